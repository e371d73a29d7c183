// Package rihash implements representation-independent hashing of structured
// values.
//
// Strings and byte strings hash to SHA-256 of their bytes, natural numbers to
// SHA-256 of their unsigned LEB128 encoding, arrays to SHA-256 of the
// concatenated element hashes, and maps to SHA-256 of the sorted concatenation
// of H(key)||H(value) for every entry. Map entries are supplied as an ordered
// list of pairs, so a key may repeat.
package rihash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Size is the length of a Hash in bytes.
const Size = sha256.Size

// Hash is a 32-byte SHA-256 digest.
type Hash [Size]byte

// Sum returns the SHA-256 digest of data.
func Sum(data []byte) Hash {
	return sha256.Sum256(data)
}

// Bytes returns a freshly allocated copy of the digest.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// String returns the lowercase hex encoding of the digest.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero digest.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a 64 character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("rihash: invalid hex digest: %w", err)
	}
	if len(b) != Size {
		return h, fmt.Errorf("rihash: digest must be %d bytes, got %d", Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Value is a node that can be hashed independently of its encoding.
type Value interface {
	Hash() Hash
}

// String is a UTF-8 string value.
type String string

// Hash implements Value.
func (s String) Hash() Hash { return Sum([]byte(s)) }

// Bytes is a raw byte string value.
type Bytes []byte

// Hash implements Value.
func (b Bytes) Hash() Hash { return Sum(b) }

// Number is a natural number value.
type Number uint64

// Hash implements Value.
func (n Number) Hash() Hash { return Sum(leb128(uint64(n))) }

// Array is an ordered sequence of values.
type Array []Value

// Hash implements Value.
func (a Array) Hash() Hash {
	buf := make([]byte, 0, len(a)*Size)
	for _, v := range a {
		h := v.Hash()
		buf = append(buf, h[:]...)
	}
	return Sum(buf)
}

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   string
	Value Value
}

// Map is a list of key/value entries. Entry order does not affect the hash.
type Map []Pair

// Hash implements Value.
func (m Map) Hash() Hash {
	return HashPairs(m)
}

// HashPairs returns the representation-independent hash of a map given as a
// list of pairs.
func HashPairs(pairs []Pair) Hash {
	entries := make([][]byte, len(pairs))
	for i, p := range pairs {
		k := Sum([]byte(p.Key))
		v := p.Value.Hash()
		entry := make([]byte, 0, 2*Size)
		entry = append(entry, k[:]...)
		entry = append(entry, v[:]...)
		entries[i] = entry
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i], entries[j]) < 0
	})

	buf := make([]byte, 0, len(entries)*2*Size)
	for _, e := range entries {
		buf = append(buf, e...)
	}
	return Sum(buf)
}

// Concat hashes the concatenation of the given digests.
func Concat(hashes ...Hash) Hash {
	buf := make([]byte, 0, len(hashes)*Size)
	for _, h := range hashes {
		buf = append(buf, h[:]...)
	}
	return Sum(buf)
}

func leb128(n uint64) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
