// Package sbucket implements a single S-bucket: one KV shard holding
// chunked blobs addressed by file key, with streaming read/write,
// existence/stat/unlink/list, per spec §4.2.
package sbucket

import (
	"context"
	"sort"
	"sync"

	"github.com/pgerbes1/kfs/engine"
	"github.com/pgerbes1/kfs/keyalg"
	"github.com/pgerbes1/kfs/kfserr"
	"github.com/pgerbes1/kfs/stream"
)

// DefaultChunkSize is C, the per-chunk maximum byte length.
const DefaultChunkSize = 128 * 1024

// DefaultMaxSize is S_max, the per-shard maximum total byte footprint.
const DefaultMaxSize = 32 * 1024 * 1024 * 1024

// fullRangeStart/fullRangeEnd bound the whole shard keyspace: every chunk
// key is 47 printable-ASCII bytes, strictly below a run of 0xFF bytes.
var fullRangeStart = []byte("")
var fullRangeEnd = []byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
}

// Stat is a shard's size/free-byte vector.
type Stat struct {
	Size uint64
	Free uint64
}

// Entry describes one distinct blob as returned by List.
type Entry struct {
	BaseKey    string
	ApproxSize uint64
}

// Bucket is one open S-bucket shard.
type Bucket struct {
	eng       engine.Engine
	index     uint8
	chunkSize int
	maxSize   uint64

	mu sync.RWMutex // single-writer discipline: serializes mutating ops
}

// Option configures a Bucket at Open time.
type Option func(*Bucket)

// ChunkSize overrides C (default DefaultChunkSize).
func ChunkSize(n int) Option {
	return func(b *Bucket) { b.chunkSize = n }
}

// MaxSize overrides S_max (default DefaultMaxSize).
func MaxSize(n uint64) Option {
	return func(b *Bucket) { b.maxSize = n }
}

// Open wraps eng as shard index, applying any Options.
func Open(eng engine.Engine, index uint8, opts ...Option) *Bucket {
	b := &Bucket{
		eng:       eng,
		index:     index,
		chunkSize: DefaultChunkSize,
		maxSize:   DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Index returns this shard's index.
func (b *Bucket) Index() uint8 { return b.index }

// Exists reports whether K's blob (chunk 000000) is present.
func (b *Bucket) Exists(k keyalg.Key) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	h := k.Hash()
	ck := keyalg.ChunkKey(h, 0)
	_, found, err := b.eng.Get([]byte(ck))
	if err != nil {
		return false, kfserr.Wrap(err, "exists")
	}
	return found, nil
}

// Stat returns this shard's size/free-byte vector.
func (b *Bucket) Stat() (Stat, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.statLocked()
}

func (b *Bucket) statLocked() (Stat, error) {
	size, err := b.eng.ApproximateSize(fullRangeStart, fullRangeEnd)
	if err != nil {
		return Stat{}, kfserr.Wrap(err, "stat")
	}
	free := uint64(0)
	if size < b.maxSize {
		free = b.maxSize - size
	}
	return Stat{Size: size, Free: free}, nil
}

// Unlink deletes every chunk belonging to K, as one batched deletion.
// Succeeds silently if K is absent (idempotent, spec §7).
func (b *Bucket) Unlink(k keyalg.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unlinkLocked(k)
}

func (b *Bucket) unlinkLocked(k keyalg.Key) error {
	h := k.Hash()
	start, end := keyalg.RangeFor(h)
	if err := b.eng.DeleteRange([]byte(start), []byte(end)); err != nil {
		return kfserr.Wrap(err, "unlink")
	}
	return nil
}

// List enumerates every distinct blob in this shard, ascending by hash,
// each tagged with an approximate byte size (spec §4.2).
func (b *Bucket) List() ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	it := b.eng.NewIterator(fullRangeStart, fullRangeEnd)
	defer it.Close()

	var entries []Entry
	var curPrefix string
	var curSize uint64
	haveCur := false

	flush := func() {
		if haveCur {
			entries = append(entries, Entry{BaseKey: curPrefix, ApproxSize: curSize})
		}
	}

	for it.Next() {
		key := it.Key()
		if len(key) < keyalg.HexSize {
			continue
		}
		prefix := string(key[:keyalg.HexSize])
		if !haveCur || prefix != curPrefix {
			flush()
			curPrefix, curSize, haveCur = prefix, 0, true
		}
		curSize += uint64(len(it.Value()))
	}
	flush()
	if err := it.Error(); err != nil {
		return nil, kfserr.Wrap(err, "list")
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].BaseKey < entries[j].BaseKey })
	return entries, nil
}

// ReadStream opens a lazy chunk reader over K's blob. It reports
// kfserr.ErrNotFound on the first Read if chunk 000000 is absent, without
// having emitted any byte.
func (b *Bucket) ReadStream(ctx context.Context, k keyalg.Key) *stream.Reader {
	h := k.Hash()
	return stream.NewReader(ctx, &chunkGetter{b: b, hash: h}, keyalg.ChunkKey(h, 0)[:keyalg.HexSize])
}

// WriteStream opens a chunked writer for K. Before accepting any byte it
// unlinks any pre-existing blob at K, so a new write replaces rather than
// partially overwrites (spec §4.2).
func (b *Bucket) WriteStream(ctx context.Context, k keyalg.Key) (*stream.Writer, error) {
	b.mu.Lock()
	if err := b.unlinkLocked(k); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	b.mu.Unlock()

	h := k.Hash()
	return stream.NewWriter(ctx, &chunkPutter{b: b, key: k, hash: h}, b.chunkSize), nil
}

// chunkGetter adapts Bucket reads to stream.ChunkGetter.
type chunkGetter struct {
	b    *Bucket
	hash [20]byte
}

func (g *chunkGetter) GetChunk(n uint32) ([]byte, bool, error) {
	g.b.mu.RLock()
	defer g.b.mu.RUnlock()
	ck := keyalg.ChunkKey(g.hash, n)
	v, found, err := g.b.eng.Get([]byte(ck))
	if err != nil {
		return nil, false, kfserr.Wrap(err, "read")
	}
	return v, found, nil
}

// chunkPutter adapts Bucket writes to stream.ChunkPutter, enforcing
// admission mid-flight: a write that would push the shard past S_max fails
// with kfserr.ErrNoSpace and the partial blob is unlinked (spec §4.3).
type chunkPutter struct {
	b    *Bucket
	key  keyalg.Key
	hash [20]byte
}

func (p *chunkPutter) PutChunk(n uint32, data []byte) error {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()

	st, err := p.b.statLocked()
	if err != nil {
		return err
	}
	if uint64(len(data)) > st.Free {
		_ = p.b.unlinkLocked(p.key)
		return kfserr.ErrNoSpace
	}

	ck := keyalg.ChunkKey(p.hash, n)
	if err := p.b.eng.Put([]byte(ck), data); err != nil {
		return kfserr.Wrap(err, "write")
	}
	return nil
}

// Abort unlinks a write that the caller aborted, restoring a clean state
// (spec §5 cancellation policy for write streams).
func (b *Bucket) Abort(k keyalg.Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unlinkLocked(k)
}

// Repair asks the underlying engine to compact/repair this shard (the
// CLI's `compact` command, spec §6).
func (b *Bucket) Repair() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.eng.Repair(); err != nil {
		return kfserr.Wrap(err, "repair")
	}
	return nil
}

// Close releases the underlying engine.
func (b *Bucket) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.eng.Close(); err != nil {
		return kfserr.Wrap(err, "close")
	}
	return nil
}
