package pipe

import (
	"errors"
	"io"
	"sync"
)

// DefaultCapacity is the default buffer size in bytes.
const DefaultCapacity = 10 * 1024

// ErrClosedPipe is returned by writes after the reader has gone away and by
// reads after the reader itself was closed.
var ErrClosedPipe = errors.New("pipe: read/write on closed pipe")

// pipe is a fixed-size ring buffer shared by one Reader and one Writer.
type pipe struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf  []byte
	head int // next byte to read
	n    int // bytes buffered

	werr error // set once the write side is closed
	rerr error // set once the read side is closed
}

// Reader is the consuming half of a bounded pipe.
type Reader struct{ p *pipe }

// Writer is the producing half of a bounded pipe.
type Writer struct{ p *pipe }

// New creates a bounded in-memory pipe. Writes block while capacity bytes are
// buffered and unread; reads block while the buffer is empty and the writer is
// still open.
func New(capacity int) (*Reader, *Writer) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &pipe{buf: make([]byte, capacity)}
	p.cond = sync.NewCond(&p.mu)
	return &Reader{p: p}, &Writer{p: p}
}

func (p *pipe) write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	written := 0
	for len(b) > 0 {
		for p.n == len(p.buf) && p.rerr == nil && p.werr == nil {
			p.cond.Wait()
		}
		if p.rerr != nil || p.werr != nil {
			return written, ErrClosedPipe
		}

		tail := (p.head + p.n) % len(p.buf)
		end := len(p.buf)
		if tail < p.head {
			end = p.head
		}
		if free := len(p.buf) - p.n; end-tail > free {
			end = tail + free
		}
		c := copy(p.buf[tail:end], b)
		p.n += c
		written += c
		b = b[c:]
		p.cond.Broadcast()
	}
	return written, nil
}

func (p *pipe) read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.n == 0 && p.werr == nil && p.rerr == nil {
		p.cond.Wait()
	}
	if p.rerr != nil {
		return 0, ErrClosedPipe
	}
	if p.n == 0 {
		return 0, p.werr
	}
	if len(b) == 0 {
		return 0, nil
	}

	end := p.head + p.n
	if end > len(p.buf) {
		end = len(p.buf)
	}
	c := copy(b, p.buf[p.head:end])
	p.head = (p.head + c) % len(p.buf)
	p.n -= c
	if p.n == 0 {
		p.head = 0
	}
	p.cond.Broadcast()
	return c, nil
}

func (p *pipe) closeWrite(err error) {
	if err == nil {
		err = io.EOF
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.werr == nil {
		p.werr = err
	}
	p.cond.Broadcast()
}

func (p *pipe) closeRead() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rerr == nil {
		p.rerr = ErrClosedPipe
	}
	// Buffered bytes are unreachable once the reader is gone.
	p.n = 0
	p.head = 0
	p.cond.Broadcast()
}

// Read reads buffered bytes. After the writer closes, remaining bytes are
// drained first and then the writer's close error is returned (io.EOF for a
// normal close).
func (r *Reader) Read(b []byte) (int, error) { return r.p.read(b) }

// Close closes the read side. Pending and future writes fail with
// ErrClosedPipe.
func (r *Reader) Close() error {
	r.p.closeRead()
	return nil
}

// Buffered returns the number of unread bytes currently held.
func (r *Reader) Buffered() int {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	return r.p.n
}

// Cap returns the fixed buffer capacity.
func (r *Reader) Cap() int { return len(r.p.buf) }

// Write writes b, blocking while the buffer is full. It returns ErrClosedPipe
// if either side is closed before all of b was accepted.
func (w *Writer) Write(b []byte) (int, error) { return w.p.write(b) }

// Close closes the write side; the reader sees io.EOF after draining.
func (w *Writer) Close() error { return w.CloseWithError(nil) }

// CloseWithError closes the write side; the reader sees err after draining.
// Only the first close takes effect.
func (w *Writer) CloseWithError(err error) error {
	w.p.closeWrite(err)
	return nil
}
