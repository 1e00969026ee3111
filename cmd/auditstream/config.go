package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"github.com/tinytelemetry/auditstream/internal/auditlog"
	"github.com/tinytelemetry/auditstream/internal/objstore"
)

const (
	defaultBindHost      = "127.0.0.1"
	defaultAPIPort       = 3000
	defaultStoreProvider = "s3"
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
)

// appConfig is internal runtime configuration.
type appConfig struct {
	LogSpaceID string `mapstructure:"log-space-id"`
	QueueName  string `mapstructure:"queue-name"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`

	StoreProvider  string `mapstructure:"store-provider"`
	StoreDir       string `mapstructure:"store-dir"`
	S3Endpoint     string `mapstructure:"s3-endpoint"`
	S3Region       string `mapstructure:"s3-region"`
	S3AccessKey    string `mapstructure:"s3-access-key"`
	S3SecretKey    string `mapstructure:"s3-secret-key"`
	S3SessionToken string `mapstructure:"s3-session-token"`
	S3UseSSL       bool   `mapstructure:"s3-use-ssl"`

	APIPort     int    `mapstructure:"api-port"`
	APIAddr     string `mapstructure:"api-addr"`
	BufferSize  int    `mapstructure:"buffer-size"`
	MaxLineSize int    `mapstructure:"max-line-size"`
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
	ConfigPath  string `mapstructure:"-"` // not from config file
}

func (c appConfig) auditConfig() auditlog.Config {
	return auditlog.Config{
		LogSpaceID: c.LogSpaceID,
		QueueName:  c.QueueName,
		Username:   c.Username,
		Password:   c.Password,
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("AUDITSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Every key needs a default so AutomaticEnv picks it up on Unmarshal.
	v.SetDefault("log-space-id", "")
	v.SetDefault("queue-name", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("store-provider", defaultStoreProvider)
	v.SetDefault("store-dir", "")
	v.SetDefault("s3-endpoint", "")
	v.SetDefault("s3-region", "")
	v.SetDefault("s3-access-key", "")
	v.SetDefault("s3-secret-key", "")
	v.SetDefault("s3-session-token", "")
	v.SetDefault("s3-use-ssl", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("api-addr", "")
	v.SetDefault("buffer-size", auditlog.DefaultBufferSize)
	v.SetDefault("max-line-size", auditlog.DefaultMaxLineSize)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-format", defaultLogFormat)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "auditstream", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if _, err := os.Stat(v.ConfigFileUsed()); err == nil {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	switch cfg.StoreProvider {
	case "s3", "dir":
	default:
		return cfg, fmt.Errorf("invalid store-provider: %q (want s3 or dir)", cfg.StoreProvider)
	}

	if strings.HasPrefix(cfg.StoreDir, "~/") {
		cfg.StoreDir = filepath.Join(home, cfg.StoreDir[2:])
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

// buildStore constructs the object store named by store-provider.
func buildStore(cfg appConfig) (objstore.Store, error) {
	switch cfg.StoreProvider {
	case "dir":
		return objstore.NewDirStore(cfg.StoreDir)
	default:
		return objstore.NewS3Store(objstore.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
		})
	}
}

func buildReader(cfg appConfig, logger *slog.Logger) (*auditlog.Reader, error) {
	store, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("init %s store: %w", cfg.StoreProvider, err)
	}
	return auditlog.NewReader(cfg.auditConfig(), store, auditlog.Options{
		BufferSize:  cfg.BufferSize,
		MaxLineSize: cfg.MaxLineSize,
		Logger:      logger,
	})
}
