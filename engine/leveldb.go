package engine

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is the default Engine implementation, one *leveldb.DB per shard.
// It satisfies every primitive spec §1 assumes of the ordered KV engine:
// ordered range iteration and SizeOf give the range scans and approximate
// sizing KFS needs; CompactRange gives the "compaction/repair" primitive the
// CLI's `compact` command drives.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a goleveldb database rooted at
// dir. Each shard gets its own directory and its own *LevelDB.
func OpenLevelDB(dir string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (e *LevelDB) Get(key []byte) ([]byte, bool, error) {
	v, err := e.db.Get(key, nil)
	if err == errors.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (e *LevelDB) Put(key, value []byte) error {
	return e.db.Put(key, value, nil)
}

func (e *LevelDB) Delete(key []byte) error {
	return e.db.Delete(key, nil)
}

func (e *LevelDB) DeleteRange(start, end []byte) error {
	it := e.db.NewIterator(inclusiveRange(start, end), nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}
	return e.db.Write(batch, nil)
}

func (e *LevelDB) NewIterator(start, end []byte) Iterator {
	return &levelDBIterator{it: e.db.NewIterator(inclusiveRange(start, end), nil)}
}

func (e *LevelDB) ApproximateSize(start, end []byte) (uint64, error) {
	sizes, err := e.db.SizeOf([]util.Range{*inclusiveRange(start, end)})
	if err != nil {
		return 0, err
	}
	return uint64(sizes.Sum()), nil
}

func (e *LevelDB) Repair() error {
	return e.db.CompactRange(util.Range{})
}

func (e *LevelDB) Close() error {
	return e.db.Close()
}

// inclusiveRange converts KFS's [start, end] inclusive textual bounds into
// goleveldb's [Start, Limit) half-open range, by nudging Limit one byte
// past end so end itself is included.
func inclusiveRange(start, end []byte) *util.Range {
	limit := append(append([]byte(nil), end...), 0xFF)
	return &util.Range{Start: start, Limit: limit}
}

type levelDBIterator struct {
	it interface {
		Next() bool
		Key() []byte
		Value() []byte
		Error() error
		Release()
	}
}

func (i *levelDBIterator) Next() bool    { return i.it.Next() }
func (i *levelDBIterator) Key() []byte   { return i.it.Key() }
func (i *levelDBIterator) Value() []byte { return i.it.Value() }
func (i *levelDBIterator) Error() error  { return i.it.Error() }
func (i *levelDBIterator) Close() error  { i.it.Release(); return nil }

var _ Engine = (*LevelDB)(nil)
