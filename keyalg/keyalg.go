// Package keyalg implements KFS's key algebra: parsing and formatting file
// keys, deriving the chunk-key hash, and selecting a shard index from a file
// key and a table's reference id.
package keyalg

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/pgerbes1/kfs/kfserr"
)

// KeySize is the fixed width, in bytes, of a file key (K) and a reference id
// (R): 160 bits.
const KeySize = 20

// HexSize is the width of a key's canonical textual form.
const HexSize = KeySize * 2

// ChunkIndexDigits is the number of zero-padded decimal digits in a chunk
// key's chunk-index suffix.
const ChunkIndexDigits = 6

// MaxChunkIndex is the largest chunk index representable in
// ChunkIndexDigits decimal digits.
const MaxChunkIndex = 999999

// Key is a 160-bit file key or reference id, in raw byte form.
type Key [KeySize]byte

// Parse accepts 40 lowercase hex characters and produces a Key. It fails
// with kfserr.ErrBadKey on any other input, including uppercase hex.
func Parse(s string) (Key, error) {
	var k Key
	if len(s) != HexSize {
		return k, kfserr.ErrBadKey
	}
	for _, c := range s {
		if !isLowerHexDigit(c) {
			return k, kfserr.ErrBadKey
		}
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return k, kfserr.ErrBadKey
	}
	copy(k[:], raw)
	return k, nil
}

func isLowerHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}

// String renders K in its canonical 40-char lowercase hex form.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Hash returns H(K) = SHA-1(K), computed over the 20 raw bytes of K, not its
// hex form. This is the hash used to build chunk keys; it deliberately
// decouples on-disk layout from the caller-visible key.
func (k Key) Hash() [sha1.Size]byte {
	return sha1.Sum(k[:])
}

// ShardIndex returns (K XOR R)[0], the shard selector in [0, 256) for the
// canonical B=256 table. Sharding determinism (spec §8) follows directly:
// the same K and R always select the same shard.
func ShardIndex(k, r Key) uint8 {
	return k[0] ^ r[0]
}

// ChunkKey builds the 47-byte textual chunk key for hash h and chunk index
// n: "<40 hex chars> <6 digit decimal>".
func ChunkKey(h [sha1.Size]byte, n uint32) string {
	return fmt.Sprintf("%s %0*d", hex.EncodeToString(h[:]), ChunkIndexDigits, n)
}

// RangeFor returns the inclusive [start, end] textual bounds that delimit
// every chunk key belonging to hash h, for use with an ordered range scan.
func RangeFor(h [sha1.Size]byte) (start, end string) {
	hexH := hex.EncodeToString(h[:])
	start = hexH + " 000000"
	end = hexH + " 999999"
	return start, end
}

// HashPrefix returns the lexicographic prefix ("<hex(h)> ") shared by every
// chunk key of h. Any chunk key with this prefix belongs to the same blob.
func HashPrefix(h [sha1.Size]byte) string {
	return hex.EncodeToString(h[:]) + " "
}
