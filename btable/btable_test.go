package btable

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgerbes1/kfs/engine"
	"github.com/pgerbes1/kfs/keyalg"
)

func openTestTable(t *testing.T, opts ...Option) *Table {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "test")
	opts = append([]Option{
		WithEngine(func(string) (engine.Engine, error) { return engine.NewMemEngine(), nil }),
	}, opts...)
	tbl, err := Open(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl
}

func mustKey(t *testing.T, s string) keyalg.Key {
	t.Helper()
	k, err := keyalg.Parse(s)
	require.NoError(t, err)
	return k
}

func TestCoerceTablePath(t *testing.T) {
	assert.Equal(t, "test.kfs", CoerceTablePath("test"))
	assert.Equal(t, "test.kfs", CoerceTablePath("test.kfs"))
}

func TestShardDirName(t *testing.T) {
	assert.Equal(t, "042.s", ShardDirName(42))
	assert.Equal(t, "000.s", ShardDirName(0))
	assert.Equal(t, "255.s", ShardDirName(255))
}

func TestOpenPersistsReferenceIDAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "test")
	opener := func(string) (engine.Engine, error) { return engine.NewMemEngine(), nil }

	t1, err := Open(dir, WithEngine(opener))
	require.NoError(t, err)
	r1 := t1.ReferenceID()
	require.NoError(t, t1.Close())

	t2, err := Open(dir, WithEngine(opener))
	require.NoError(t, err)
	defer t2.Close()
	assert.Equal(t, r1, t2.ReferenceID())
}

func TestWriteFileThenReadFileRoundTrip(t *testing.T) {
	tbl := openTestTable(t)
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")

	require.NoError(t, tbl.WriteFile(k, []byte("payload")))

	exists, err := tbl.Exists(k)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := tbl.ReadFile(k)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestUnlinkRemovesBlob(t *testing.T) {
	tbl := openTestTable(t)
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	require.NoError(t, tbl.WriteFile(k, []byte("payload")))
	require.NoError(t, tbl.Unlink(k))

	exists, err := tbl.Exists(k)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestShardIndexIsDeterministicPerReferenceID(t *testing.T) {
	tbl := openTestTable(t)
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	assert.Equal(t, tbl.ShardIndex(k), tbl.ShardIndex(k))
}

func TestStatAllCoversEveryShard(t *testing.T) {
	tbl := openTestTable(t, MaxTableSize(uint64(DefaultShardCount)*1024))
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	require.NoError(t, tbl.WriteFile(k, []byte("payload")))

	stats, err := tbl.StatAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, int(DefaultShardCount))

	var found bool
	for _, st := range stats {
		if st.Index == tbl.ShardIndex(k) {
			found = true
			assert.True(t, st.Size > 0)
		}
	}
	assert.True(t, found)
}

func TestListReturnsWrittenEntries(t *testing.T) {
	tbl := openTestTable(t)
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	require.NoError(t, tbl.WriteFile(k, []byte("payload")))

	entries, err := tbl.ListKey(k)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.EqualValues(t, len("payload"), entries[0].ApproxSize)
}

func TestCompactRunsOverEveryShardWithoutError(t *testing.T) {
	tbl := openTestTable(t)
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	require.NoError(t, tbl.WriteFile(k, []byte("payload")))
	require.NoError(t, tbl.Compact(context.Background()))
}

func TestCreateWriteStreamDeniesWhenKnownLengthExceedsFree(t *testing.T) {
	tbl := openTestTable(t, MaxTableSize(uint64(DefaultShardCount)*2))
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")

	_, err := tbl.CreateWriteStream(context.Background(), k, 1<<20)
	assert.Error(t, err)
}
