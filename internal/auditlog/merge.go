package auditlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tinytelemetry/auditstream/internal/objstore"
	"github.com/tinytelemetry/auditstream/internal/pipe"
)

// merger concatenates audit log objects into one stream. It processes keys
// strictly in order, one object at a time.
type merger struct {
	store       objstore.Store
	bucket      string
	keys        []string
	maxLineSize int
	logger      *slog.Logger

	lines int
}

func (m *merger) run(ctx context.Context, w *pipe.Writer) {
	// A writer blocked on a full pipe is released when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = w.CloseWithError(context.Cause(ctx))
	})
	defer stop()

	for i, key := range m.keys {
		if err := m.copyObject(ctx, w, i, key); err != nil {
			m.abort(ctx, w, i, key, err)
			return
		}
	}

	_ = w.Close()
	m.logger.Info("audit log stream complete", "objects", len(m.keys), "lines", m.lines)
}

func (m *merger) copyObject(ctx context.Context, w *pipe.Writer, index int, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := m.store.GetObject(ctx, m.bucket, key)
	if err != nil {
		return &ContentError{Key: key, Op: "fetch", Err: err}
	}
	defer body.Close()

	sc := newLineScanner(body, m.maxLineSize)

	if !skipHeader(index, sc) {
		return &ContentError{Key: key, Op: "read", Err: sc.Err()}
	}

	var line []byte
	for sc.Scan() {
		line = append(line[:0], sc.Bytes()...)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
		m.lines++
	}
	if err := sc.Err(); err != nil {
		return &ContentError{Key: key, Op: "read", Err: err}
	}
	return nil
}

func (m *merger) abort(ctx context.Context, w *pipe.Writer, index int, key string, err error) {
	switch {
	case ctx.Err() != nil:
		// Reader closed or parent canceled; the pipe is already closed.
		m.logger.Info("audit log stream canceled", "object", index, "key", key, "lines", m.lines)
	case errors.Is(err, pipe.ErrClosedPipe):
		m.logger.Info("audit log reader went away", "object", index, "key", key, "lines", m.lines)
	default:
		_ = w.CloseWithError(err)
		m.logger.Error("failed to complete audit log read",
			"object", index,
			"key", key,
			"lines", m.lines,
			"error", err,
		)
	}
}
