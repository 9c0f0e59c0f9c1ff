package sbucket

import (
	"context"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgerbes1/kfs/engine"
	"github.com/pgerbes1/kfs/keyalg"
	"github.com/pgerbes1/kfs/kfserr"
)

func hashHex(k keyalg.Key) string {
	h := k.Hash()
	return hex.EncodeToString(h[:])
}

func mustKey(t *testing.T, s string) keyalg.Key {
	t.Helper()
	k, err := keyalg.Parse(s)
	require.NoError(t, err)
	return k
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	b := Open(engine.NewMemEngine(), 0, ChunkSize(4))
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")

	w, err := b.WriteStream(context.Background(), k)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	exists, err := b.Exists(k)
	require.NoError(t, err)
	assert.True(t, exists)

	r := b.ReadStream(context.Background(), k)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestWriteStreamReplacesPriorBlob(t *testing.T) {
	b := Open(engine.NewMemEngine(), 0, ChunkSize(4))
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")

	w, err := b.WriteStream(context.Background(), k)
	require.NoError(t, err)
	_, err = w.Write([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w2, err := b.WriteStream(context.Background(), k)
	require.NoError(t, err)
	_, err = w2.Write([]byte("b"))
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	r := b.ReadStream(context.Background(), k)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestUnlinkIsIdempotentAndRemovesAllChunks(t *testing.T) {
	b := Open(engine.NewMemEngine(), 0, ChunkSize(4))
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")

	w, err := b.WriteStream(context.Background(), k)
	require.NoError(t, err)
	_, err = w.Write([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, b.Unlink(k))
	require.NoError(t, b.Unlink(k)) // idempotent

	exists, err := b.Exists(k)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadMissingBlobReportsNotFound(t *testing.T) {
	b := Open(engine.NewMemEngine(), 0, ChunkSize(4))
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")

	r := b.ReadStream(context.Background(), k)
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, kfserr.ErrNotFound)
}

func TestPutChunkDeniesWriteOverCapacityAndUnlinksPartial(t *testing.T) {
	b := Open(engine.NewMemEngine(), 0, ChunkSize(4), MaxSize(4))
	k := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")

	w, err := b.WriteStream(context.Background(), k)
	require.NoError(t, err)
	_, err = w.Write([]byte("aaaaaaaa")) // 8 bytes > 4-byte shard cap
	assert.ErrorIs(t, err, kfserr.ErrNoSpace)

	exists, err := b.Exists(k)
	require.NoError(t, err)
	assert.False(t, exists, "a denied write must leave no partial blob behind")
}

func TestListGroupsChunksByBaseKeyAndSumsSize(t *testing.T) {
	b := Open(engine.NewMemEngine(), 0, ChunkSize(4))
	k1 := mustKey(t, "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	k2 := mustKey(t, "000000000000000000000000000000000000000a")

	for _, kv := range []struct {
		k keyalg.Key
		v string
	}{
		{k1, "aaaaaaaa"},
		{k2, "bb"},
	} {
		w, err := b.WriteStream(context.Background(), kv.k)
		require.NoError(t, err)
		_, err = w.Write([]byte(kv.v))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	entries, err := b.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	sizes := map[string]uint64{}
	for _, e := range entries {
		sizes[e.BaseKey] = e.ApproxSize
	}
	assert.EqualValues(t, 8, sizes[hashHex(k1)])
	assert.EqualValues(t, 2, sizes[hashHex(k2)])
}
