// Package fingerprint hashes planning inputs into stable cache keys and
// provides the cache keyed by them.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"
)

// Fingerprint is the hex sha256 of a canonical input encoding.
type Fingerprint string

// Short returns the first 12 hex characters, for logs.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Builder writes length-prefixed fields into a sha256 digest. Callers must
// write fields in a fixed order; maps are written with sorted keys.
type Builder struct {
	h hash.Hash
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{h: sha256.New()} }

func (b *Builder) field(data []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(data)))
	b.h.Write(n[:])
	b.h.Write(data)
}

// String writes s.
func (b *Builder) String(s string) *Builder {
	b.field([]byte(s))
	return b
}

// Int writes i.
func (b *Builder) Int(i int) *Builder {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(int64(i)))
	b.field(v[:])
	return b
}

// Float writes f by its IEEE 754 bits.
func (b *Builder) Float(f float64) *Builder {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], math.Float64bits(f))
	b.field(v[:])
	return b
}

// Bool writes v.
func (b *Builder) Bool(v bool) *Builder {
	if v {
		b.field([]byte{1})
	} else {
		b.field([]byte{0})
	}
	return b
}

// Strings writes the list length followed by each element, keeping order.
func (b *Builder) Strings(list []string) *Builder {
	b.Int(len(list))
	for _, s := range list {
		b.String(s)
	}
	return b
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sum returns the fingerprint of everything written so far.
func (b *Builder) Sum() Fingerprint {
	return Fingerprint(hex.EncodeToString(b.h.Sum(nil)))
}
