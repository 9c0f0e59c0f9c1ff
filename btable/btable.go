// Package btable implements the B-table façade over all of a KFS table's
// S-bucket shards: routing, lazy open, and admission control by free space
// (spec §4.3).
package btable

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	concurrently "github.com/tejzpr/ordered-concurrently/v3"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/pgerbes1/kfs/engine"
	"github.com/pgerbes1/kfs/keyalg"
	"github.com/pgerbes1/kfs/kfserr"
	"github.com/pgerbes1/kfs/refid"
	"github.com/pgerbes1/kfs/sbucket"
)

// DefaultShardCount is B, the table's fixed shard count.
const DefaultShardCount = 256

// defaultStreamReserve is the minimum free-byte reserve admission checks
// require when a write's length is unknown ahead of time (spec §9 open
// question: "implementations must document their reserve"). A stream whose
// actual length outgrows what fits is still caught mid-flight by
// sbucket.Bucket's own per-chunk admission check, which unlinks the partial
// blob.
const defaultStreamReserve = 1 << 20 // 1 MiB

// EngineOpener constructs the ordered KV engine backing one shard directory.
type EngineOpener func(dir string) (engine.Engine, error)

type config struct {
	shardCount   int
	referenceID  *keyalg.Key
	maxTableSize uint64
	engineOpener EngineOpener
	sbucketOpts  []sbucket.Option
}

// Option configures a Table at Open time.
type Option func(*config)

// ReferenceID pins R to a caller-supplied value instead of generating one
// (the `referenceId` config option, spec §6). Only consulted on first open.
func ReferenceID(r keyalg.Key) Option {
	return func(c *config) { c.referenceID = &r }
}

// MaxTableSize overrides the aggregate B × S_max cap (default 8 TiB). Each
// shard's S_max is derived as maxTableSize / shardCount.
func MaxTableSize(n uint64) Option {
	return func(c *config) { c.maxTableSize = n }
}

// SBucketOpts forwards options to every shard's sbucket.Open call (the
// `sBucketOpts` config option, spec §6).
func SBucketOpts(opts ...sbucket.Option) Option {
	return func(c *config) { c.sbucketOpts = append(c.sbucketOpts, opts...) }
}

// WithEngine overrides the engine implementation opened per shard. The
// default opens a goleveldb database.
func WithEngine(open EngineOpener) Option {
	return func(c *config) { c.engineOpener = open }
}

// Table is the open façade over a KFS table directory and its shards.
type Table struct {
	dir string
	r   keyalg.Key
	cfg config

	mu     sync.Mutex // guards shards: append-only for the table's lifetime
	shards map[uint8]*sbucket.Bucket
}

// Open opens (creating if absent) the table rooted at path, which is first
// passed through CoerceTablePath. It creates the table directory and
// reference-id file on first open; shards themselves open lazily.
func Open(path string, opts ...Option) (*Table, error) {
	cfg := config{
		shardCount:   DefaultShardCount,
		maxTableSize: uint64(DefaultShardCount) * sbucket.DefaultMaxSize,
		engineOpener: func(dir string) (engine.Engine, error) {
			return engine.OpenLevelDB(dir)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir := CoerceTablePath(path)
	r, err := refid.Open(dir, cfg.referenceID)
	if err != nil {
		return nil, err
	}

	return &Table{
		dir:    dir,
		r:      r,
		cfg:    cfg,
		shards: make(map[uint8]*sbucket.Bucket),
	}, nil
}

// CoerceTablePath appends the canonical ".kfs" suffix if the caller didn't
// supply one already (spec §8 scenario 5).
func CoerceTablePath(path string) string {
	if strings.HasSuffix(path, ".kfs") {
		return path
	}
	return path + ".kfs"
}

// ShardDirName returns the canonical "NNN.s" directory name for shard i
// (spec §8 scenario 3).
func ShardDirName(i uint8) string {
	return fmt.Sprintf("%03d.s", i)
}

func (t *Table) shardDir(i uint8) string {
	return filepath.Join(t.dir, ShardDirName(i))
}

// ReferenceID returns the table's persistent reference id.
func (t *Table) ReferenceID() keyalg.Key { return t.r }

// ShardIndex derives the shard a given key routes to: (K XOR R)[0].
func (t *Table) ShardIndex(k keyalg.Key) uint8 {
	return keyalg.ShardIndex(k, t.r)
}

func (t *Table) shard(i uint8) (*sbucket.Bucket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.shards[i]; ok {
		return b, nil
	}

	eng, err := t.cfg.engineOpener(t.shardDir(i))
	if err != nil {
		return nil, kfserr.Wrap(err, "open shard")
	}
	opts := append([]sbucket.Option{sbucket.MaxSize(t.cfg.maxTableSize / uint64(t.cfg.shardCount))}, t.cfg.sbucketOpts...)
	b := sbucket.Open(eng, i, opts...)
	t.shards[i] = b
	klog.V(1).Infof("kfs: opened shard %s", ShardDirName(i))
	return b, nil
}

// Close flushes and releases every shard opened during this table's
// lifetime.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for i, b := range t.shards {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = kfserr.Wrap(err, fmt.Sprintf("close shard %d", i))
		}
	}
	return firstErr
}

// Exists reports whether K's blob exists, routed to its shard.
func (t *Table) Exists(k keyalg.Key) (bool, error) {
	b, err := t.shard(t.ShardIndex(k))
	if err != nil {
		return false, err
	}
	return b.Exists(k)
}

// Unlink deletes K's blob, routed to its shard. Idempotent.
func (t *Table) Unlink(k keyalg.Key) error {
	b, err := t.shard(t.ShardIndex(k))
	if err != nil {
		return err
	}
	return b.Unlink(k)
}

// WriteFile writes data as K's whole blob: open a write stream, write all
// bytes, end (spec §4.3).
func (t *Table) WriteFile(k keyalg.Key, data []byte) error {
	w, err := t.CreateWriteStream(context.Background(), k, int64(len(data)))
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// ReadFile reads K's whole blob into memory: open a read stream and
// accumulate (spec §4.3). Callers expecting gigabyte-scale blobs should use
// CreateReadStream directly instead.
func (t *Table) ReadFile(k keyalg.Key) ([]byte, error) {
	r, err := t.CreateReadStream(context.Background(), k)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// CreateWriteStream returns a write stream for K, admitted only if the
// destination shard has enough free space. expectedLen is the blob's known
// length, or -1 if unknown (streaming): then the admission check requires
// only defaultStreamReserve of headroom, and the stream fails mid-flight
// with kfserr.ErrNoSpace (unlinking the partial blob) if S_max is actually
// reached.
func (t *Table) CreateWriteStream(ctx context.Context, k keyalg.Key, expectedLen int64) (io.WriteCloser, error) {
	b, err := t.shard(t.ShardIndex(k))
	if err != nil {
		return nil, err
	}

	st, err := b.Stat()
	if err != nil {
		return nil, err
	}

	need := uint64(defaultStreamReserve)
	if expectedLen >= 0 {
		need = uint64(expectedLen)
	}
	if st.Free < need {
		return nil, kfserr.ErrNoSpace
	}

	return b.WriteStream(ctx, k)
}

// CreateReadStream returns a read stream for K, routed to its shard. It
// reports kfserr.ErrNotFound if chunk 000000 is absent.
func (t *Table) CreateReadStream(ctx context.Context, k keyalg.Key) (io.ReadCloser, error) {
	b, err := t.shard(t.ShardIndex(k))
	if err != nil {
		return nil, err
	}
	return b.ReadStream(ctx, k), nil
}

// ShardStat tags a shard's size/free-byte vector with its index. Perc
// preserves the source tool's own `size/free` ratio definition for CLI
// compatibility (spec §9 open question); programmatic callers should use
// Size and Free directly rather than Perc.
type ShardStat struct {
	Index uint8
	Size  uint64
	Free  uint64
	Perc  float64
}

func newShardStat(i uint8, st sbucket.Stat) ShardStat {
	perc := 0.0
	if st.Free > 0 {
		perc = float64(st.Size) / float64(st.Free)
	}
	return ShardStat{Index: i, Size: st.Size, Free: st.Free, Perc: perc}
}

// StatAll returns the stat vector for all of the table's shards, ascending
// by index, fanning the underlying per-shard stat calls out concurrently.
func (t *Table) StatAll(ctx context.Context) ([]ShardStat, error) {
	input := make(chan concurrently.WorkFunction, t.cfg.shardCount)
	output := concurrently.Process(ctx, input, &concurrently.Options{
		PoolSize:         int(t.cfg.shardCount),
		OutChannelBuffer: int(t.cfg.shardCount),
	})

	for i := uint8(0); ; i++ {
		input <- statJob{t: t, index: i}
		if int(i) == t.cfg.shardCount-1 {
			break
		}
	}
	close(input)

	results := make([]ShardStat, 0, t.cfg.shardCount)
	for out := range output {
		switch v := out.Value.(type) {
		case error:
			return nil, v
		case ShardStat:
			results = append(results, v)
		}
	}
	return results, nil
}

type statJob struct {
	t     *Table
	index uint8
}

func (j statJob) Run(ctx context.Context) interface{} {
	b, err := j.t.shard(j.index)
	if err != nil {
		return err
	}
	st, err := b.Stat()
	if err != nil {
		return err
	}
	return newShardStat(j.index, st)
}

// Stat returns the stat vector for the shard with raw index i. StatKey is
// the variant that takes a file key and routes it via ShardIndex.
func (t *Table) Stat(i uint8) (ShardStat, error) {
	b, err := t.shard(i)
	if err != nil {
		return ShardStat{}, err
	}
	st, err := b.Stat()
	if err != nil {
		return ShardStat{}, err
	}
	return newShardStat(i, st), nil
}

// StatKey is Stat, routing through the shard that K maps to.
func (t *Table) StatKey(k keyalg.Key) (ShardStat, error) {
	return t.Stat(t.ShardIndex(k))
}

// List returns every distinct blob in shard i.
func (t *Table) List(i uint8) ([]sbucket.Entry, error) {
	b, err := t.shard(i)
	if err != nil {
		return nil, err
	}
	return b.List()
}

// ListKey is List, routing through the shard that K maps to.
func (t *Table) ListKey(k keyalg.Key) ([]sbucket.Entry, error) {
	return t.List(t.ShardIndex(k))
}

// Compact requests engine-level repair on every shard directory (the CLI's
// `compact` command, spec §6), fanning the per-shard calls out concurrently
// and joining on the first error.
func (t *Table) Compact(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(int(t.cfg.shardCount))

	for i := uint8(0); ; i++ {
		i := i
		g.Go(func() error {
			b, err := t.shard(i)
			if err != nil {
				return err
			}
			return b.Repair()
		})
		if int(i) == t.cfg.shardCount-1 {
			break
		}
	}
	return g.Wait()
}
