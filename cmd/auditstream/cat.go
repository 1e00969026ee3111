package main

import (
	"context"
	"fmt"
	"io"

	"github.com/tinytelemetry/auditstream/internal/httpserver"
)

// runCat copies one merged audit log to out. A stream that breaks midway
// still leaves the delivered lines in out and returns the failure.
func runCat(ctx context.Context, logs httpserver.LogOpener, out io.Writer, account, storeID, spaceID string) error {
	stream, err := logs.OpenLog(ctx, account, storeID, spaceID)
	if err != nil {
		return err
	}
	defer stream.Close()

	if _, err := io.Copy(out, stream); err != nil {
		return fmt.Errorf("audit log %s/%s/%s truncated: %w", account, storeID, spaceID, err)
	}
	return nil
}
