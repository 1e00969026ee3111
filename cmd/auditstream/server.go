package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/auditstream/internal/httpserver"
	"golang.org/x/sync/errgroup"
)

// runServer serves merged audit logs until SIGINT or SIGTERM.
func runServer(cfg appConfig) error {
	logger := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	reader, err := buildReader(cfg, logger)
	if err != nil {
		return err
	}
	if !reader.Enabled() {
		logger.Warn("audit reader disabled: log-space-id, queue-name, username and password are all required")
	}

	apiServer := httpserver.NewServer(cfg.APIAddr, reader, logger)
	if err := apiServer.Listen(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg, reader.Enabled())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(apiServer.Serve)
	g.Go(func() error {
		<-gctx.Done()
		return apiServer.Stop()
	})

	// A Serve failure cancels gctx, which stops the server and ends the wait.
	if err := g.Wait(); err != nil {
		logger.Error("server: exited with error", "error", err)
		return err
	}
	return nil
}

func printStartupBanner(cfg appConfig, auditEnabled bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, "    "+cyan.Bold(true).Render("auditstream")+" "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Audit"), "")
	if auditEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Log Space      %s", check, dim.Render(cfg.LogSpaceID)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Log Space      %s", dot, dim.Render("disabled")))
	}
	store := cfg.StoreProvider
	switch cfg.StoreProvider {
	case "dir":
		store += " " + shortenPath(cfg.StoreDir)
	case "s3":
		if cfg.S3Endpoint != "" {
			store += " " + cfg.S3Endpoint
		}
	}
	lines = append(lines, fmt.Sprintf("    %s  Store          %s", check, dim.Render(store)))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
