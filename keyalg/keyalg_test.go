package keyalg

import (
	"crypto/sha1"
	"testing"

	"github.com/pgerbes1/kfs/kfserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	const s = "adc83b19e793491b1c6ea0fd8b46cd9f32e592fc"
	k, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, s, k.String())
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"short",
		"ADC83B19E793491B1C6EA0FD8B46CD9F32E592FC", // uppercase
		"zzc83b19e793491b1c6ea0fd8b46cd9f32e592fc", // non-hex
		"adc83b19e793491b1c6ea0fd8b46cd9f32e592fc00", // too long
	}
	for _, c := range cases {
		_, err := Parse(c)
		assert.ErrorIs(t, err, kfserr.ErrBadKey, "input %q", c)
	}
}

// TestShardIndexScenario reproduces spec.md §8 scenario 1: R = 0, K =
// adc83b19e793491b1c6ea0fd8b46cd9f32e592fc => shardIndex = 0xad = 173.
func TestShardIndexScenario(t *testing.T) {
	var r Key
	k, err := Parse("adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	require.NoError(t, err)
	assert.EqualValues(t, 173, ShardIndex(k, r))
}

func TestShardIndexIsXorOfFirstByte(t *testing.T) {
	k, _ := Parse("adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	r, _ := Parse("0100000000000000000000000000000000000000")
	assert.EqualValues(t, k[0]^r[0], ShardIndex(k, r))
}

func TestHashIsOverRawBytesNotHex(t *testing.T) {
	k, err := Parse("adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	require.NoError(t, err)
	want := sha1.Sum(k[:])
	got := k.Hash()
	assert.Equal(t, want, got)
	// The hash must NOT equal sha1 of the hex string's bytes.
	assert.NotEqual(t, sha1.Sum([]byte(k.String())), got)
}

func TestChunkKeyFormat(t *testing.T) {
	k, _ := Parse("adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	h := k.Hash()
	ck := ChunkKey(h, 20)
	require.Len(t, ck, HexSize+1+ChunkIndexDigits)
	assert.Equal(t, byte(' '), ck[HexSize])
	assert.Equal(t, "000020", ck[HexSize+1:])
}

func TestRangeForBoundsAllChunksOfHash(t *testing.T) {
	k, _ := Parse("adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	h := k.Hash()
	start, end := RangeFor(h)
	ck0 := ChunkKey(h, 0)
	ck1 := ChunkKey(h, 999999)
	assert.True(t, start <= ck0)
	assert.True(t, ck0 <= end)
	assert.True(t, start <= ck1)
	assert.True(t, ck1 <= end)
	assert.True(t, ck0 < ck1)
}

func TestHashPrefixSortsBelowAnyHexDigit(t *testing.T) {
	k, _ := Parse("adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	h := k.Hash()
	prefix := HashPrefix(h)
	ck := ChunkKey(h, 0)
	assert.True(t, prefix < ck)
	assert.Equal(t, ck[:len(prefix)], prefix)
	// The separator byte sorts below '0', the lowest hex digit.
	assert.Less(t, ck[HexSize], byte('0'))
}
