// Package stream implements KFS's streaming adapters (spec §4.4): a
// push-based byte sink that chunks caller writes into fixed-size records,
// and a pull-based byte source that reassembles them, both applying
// backpressure by virtue of Go's synchronous io.Reader/io.Writer contract —
// a call to Write/Read blocks until the adapter has issued (and the engine
// has completed) its underlying chunk put/get, so no more than one chunk
// operation is ever outstanding per stream.
package stream

import (
	"context"
	"io"

	"github.com/pgerbes1/kfs/kfserr"
)

// ChunkPutter is the chunk-at-a-time backend a Writer drives.
type ChunkPutter interface {
	PutChunk(n uint32, data []byte) error
}

// ChunkGetter is the chunk-at-a-time backend a Reader drives. found is
// false, with no error, once n runs past the blob's last chunk.
type ChunkGetter interface {
	GetChunk(n uint32) (data []byte, found bool, err error)
}

// Writer buffers caller bytes up to chunkSize and flushes one chunk per
// PutChunk call, per the write-stream state machine in spec §4.2:
// Open → Writing(n, buf) → Flushing(n) → Writing(n+1, …) → Ending → Closed,
// with any transition able to jump to a terminal Failed(e).
type Writer struct {
	ctx       context.Context
	put       ChunkPutter
	chunkSize int

	buf    []byte
	n      uint32
	wrote  bool // true once any chunk (including an empty one) has been put
	closed bool
	err    error
}

// NewWriter returns a Writer that flushes chunkSize-byte chunks to put.
func NewWriter(ctx context.Context, put ChunkPutter, chunkSize int) *Writer {
	return &Writer{
		ctx:       ctx,
		put:       put,
		chunkSize: chunkSize,
		buf:       make([]byte, 0, chunkSize),
	}
}

// Write implements io.Writer. It returns the terminal error, if any, on
// every call after the stream has failed.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.closed {
		return 0, io.ErrClosedPipe
	}

	total := 0
	for len(p) > 0 {
		if err := w.ctx.Err(); err != nil {
			w.err = kfserr.ErrCancelled
			return total, w.err
		}

		room := w.chunkSize - len(w.buf)
		take := room
		if take > len(p) {
			take = len(p)
		}
		w.buf = append(w.buf, p[:take]...)
		p = p[take:]
		total += take

		if len(w.buf) == w.chunkSize {
			if err := w.flush(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (w *Writer) flush() error {
	if err := w.put.PutChunk(w.n, w.buf); err != nil {
		w.err = err
		return err
	}
	w.wrote = true
	w.n++
	w.buf = w.buf[:0]
	return nil
}

// Close flushes any buffered remainder as the final chunk. Per the
// empty-terminator policy (spec §9 open question, resolved here against the
// chunk-count law in §8): a blob whose length is an exact positive multiple
// of the chunk size gets no trailing empty chunk; only a wholly empty blob
// (nothing ever written) gets an explicit empty chunk 000000.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	if w.err != nil {
		return w.err
	}

	if len(w.buf) > 0 || !w.wrote {
		if err := w.put.PutChunk(w.n, w.buf); err != nil {
			w.err = err
			return err
		}
	}
	return nil
}

// Reader lazily pulls chunks 0, 1, 2, … from a ChunkGetter and exposes them
// as a single io.Reader, per spec §4.4's read adapter.
type Reader struct {
	ctx     context.Context
	get     ChunkGetter
	baseKey string

	n       uint32
	cur     []byte
	started bool
	eof     bool
	err     error
}

// NewReader returns a Reader pulling chunks from get. baseKey identifies the
// blob being read, for kfserr.Corrupt's error message only.
func NewReader(ctx context.Context, get ChunkGetter, baseKey string) *Reader {
	return &Reader{ctx: ctx, get: get, baseKey: baseKey}
}

// Read implements io.Reader. The first call reports kfserr.ErrNotFound,
// before any byte is emitted, if chunk 000000 is absent.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	for len(r.cur) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		if err := r.ctx.Err(); err != nil {
			r.err = kfserr.ErrCancelled
			return 0, r.err
		}

		data, found, err := r.get.GetChunk(r.n)
		if err != nil {
			r.err = kfserr.Wrap(err, "read")
			return 0, r.err
		}
		if !found {
			if !r.started {
				r.err = kfserr.ErrNotFound
				return 0, r.err
			}
			// Per I1, chunks are contiguous from 0: a miss at r.n must be
			// the true end of the blob, unless a later chunk is actually
			// present, which means the store has a gap.
			if _, gapFound, gapErr := r.get.GetChunk(r.n + 1); gapErr == nil && gapFound {
				r.err = kfserr.Corrupt(r.baseKey, r.n, r.n+1)
				return 0, r.err
			}
			r.eof = true
			return 0, io.EOF
		}
		r.started = true
		r.n++
		r.cur = data
		if len(data) == 0 {
			// An explicit empty chunk only ever occurs as the sole chunk
			// of a wholly empty blob (see Writer.Close); treat it as EOF
			// after being observed once.
			r.eof = true
		}
	}

	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

// Close aborts the stream at the current chunk boundary. Per spec §5, this
// does not roll back already-read bytes; it simply stops further chunk
// fetches.
func (r *Reader) Close() error {
	if r.err == nil {
		r.err = kfserr.ErrCancelled
	}
	return nil
}
