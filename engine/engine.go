// Package engine abstracts the ordered key-value primitive KFS shards are
// built on: point get/put/del, ordered range iteration, batched range
// delete, approximate range size, and compaction/repair. KFS treats the
// concrete engine as an external collaborator (spec §1); this package
// defines the capability set and a default implementation backed by
// github.com/syndtr/goleveldb.
package engine

// Engine is one independently-addressable ordered key-value store: one
// S-bucket shard in KFS terms. Implementations must serialize operations on
// a single Engine in submission order (spec §5); concurrency across
// distinct Engine values is unconstrained.
type Engine interface {
	// Get returns the value stored at key. found is false, err is nil, if
	// the key is absent.
	Get(key []byte) (value []byte, found bool, err error)

	// Put stores value at key, replacing any existing value.
	Put(key, value []byte) error

	// Delete removes key. It does not error if key is absent.
	Delete(key []byte) error

	// DeleteRange atomically removes every key in [start, end], as a
	// single batched deletion (spec §4.2 unlink).
	DeleteRange(start, end []byte) error

	// NewIterator returns an ascending iterator over [start, end]. The
	// caller must Close it.
	NewIterator(start, end []byte) Iterator

	// ApproximateSize estimates, possibly lagging compaction, the total
	// byte footprint of keys and values in [start, end].
	ApproximateSize(start, end []byte) (uint64, error)

	// Repair requests engine-level compaction/repair over the whole
	// keyspace. It is advisory; callers do not depend on it completing
	// synchronously with respect to other operations.
	Repair() error

	// Close flushes and releases the engine's resources. After Close, no
	// other method may be called.
	Close() error
}

// Iterator walks an ascending key range produced by Engine.NewIterator.
// Usage mirrors bufio.Scanner: call Next before the first Key/Value.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}
