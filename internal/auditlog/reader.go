package auditlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tinytelemetry/auditstream/internal/objstore"
	"github.com/tinytelemetry/auditstream/internal/pipe"
)

const (
	// DefaultBufferSize is the capacity of the pipe between producer and caller.
	DefaultBufferSize = pipe.DefaultCapacity

	// DefaultMaxLineSize is the longest audit line accepted from an object.
	DefaultMaxLineSize = 1024 * 1024 // 1MB
)

// Options holds tunable parameters for the reader.
type Options struct {
	BufferSize  int
	MaxLineSize int
	Logger      *slog.Logger
}

// Reader opens merged audit log streams.
type Reader struct {
	cfg         Config
	store       objstore.Store
	bufferSize  int
	maxLineSize int
	logger      *slog.Logger
}

// NewReader creates a Reader over store. A disabled cfg is accepted; OpenLog
// reports ErrNotEnabled for it.
func NewReader(cfg Config, store objstore.Store, opts ...Options) (*Reader, error) {
	if store == nil {
		return nil, errors.New("auditlog: nil object store")
	}
	r := &Reader{
		cfg:         cfg,
		store:       store,
		bufferSize:  DefaultBufferSize,
		maxLineSize: DefaultMaxLineSize,
		logger:      slog.Default(),
	}
	if len(opts) > 0 {
		if opts[0].BufferSize > 0 {
			r.bufferSize = opts[0].BufferSize
		}
		if opts[0].MaxLineSize > 0 {
			r.maxLineSize = opts[0].MaxLineSize
		}
		if opts[0].Logger != nil {
			r.logger = opts[0].Logger
		}
	}
	r.logger = r.logger.With("component", "auditlog")
	return r, nil
}

// Enabled reports whether OpenLog can serve requests.
func (r *Reader) Enabled() bool { return r.cfg.Enabled() }

// OpenLog returns the merged audit log of one space. The first line is always
// Header. Content is produced in the background; the stream is returned before
// any object is fetched.
//
// Listing happens synchronously, so ErrNotEnabled, ErrInvalidScope and
// ErrListing are reported here. Failures while fetching or reading objects
// arrive later as a *ContentError from Stream.Read, after every byte of the
// objects before the failing one.
//
// Canceling ctx aborts the producer. The caller must Close the stream.
func (r *Reader) OpenLog(ctx context.Context, account, storeID, spaceID string) (*Stream, error) {
	if !r.cfg.Enabled() {
		return nil, ErrNotEnabled
	}
	scope := Scope{Account: account, StoreID: storeID, SpaceID: spaceID}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	keys, err := r.store.ListObjects(ctx, r.cfg.LogSpaceID, scope.Prefix())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListing, scope, err)
	}

	id := uuid.NewString()
	logger := r.logger.With(
		"stream_id", id,
		"account", scope.Account,
		"store_id", scope.StoreID,
		"space_id", scope.SpaceID,
	)

	if len(keys) == 0 {
		logger.Debug("no audit log objects, returning header only")
		return &Stream{
			id:     id,
			rc:     io.NopCloser(strings.NewReader(Header + "\n")),
			cancel: func() {},
		}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	pr, pw := pipe.New(r.bufferSize)
	m := &merger{
		store:       r.store,
		bucket:      r.cfg.LogSpaceID,
		keys:        keys,
		maxLineSize: r.maxLineSize,
		logger:      logger,
	}
	go m.run(ctx, pw)

	logger.Debug("audit log stream opened", "objects", len(keys))
	return &Stream{id: id, rc: pr, cancel: cancel}, nil
}

// Stream is a merged audit log. Read returns io.EOF after a complete log and a
// non-EOF error when the producer aborted.
type Stream struct {
	id     string
	rc     io.ReadCloser
	cancel context.CancelFunc
}

// ID identifies the stream in logs.
func (s *Stream) ID() string { return s.id }

func (s *Stream) Read(p []byte) (int, error) { return s.rc.Read(p) }

// Close stops the producer and releases its object handle. Safe to call more
// than once.
func (s *Stream) Close() error {
	s.cancel()
	return s.rc.Close()
}
