// Package canon implements canonical serialization and hashing used
// throughout the reducer: every map that is ever hashed must be walked
// in a fixed key order first, or replay (spec.md §4.5) cannot
// guarantee bit-identical state across runs.
//
// Grounded on LeJamon-goXRPLd's internal/core/ledger.Ledger.Close,
// which hashes a ledger header by concatenating a fixed field order
// before taking sha512/256 — the same discipline applied here to
// arbitrary sorted maps instead of a fixed struct.
package canon

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// Hash is a 32-byte canonical state hash.
type Hash [32]byte

// Hasher accumulates canonically-ordered fields into a running SHA-256
// digest. Every Write* method is order-sensitive; callers must always
// write fields in the same declared order and always sort map/slice
// keys before writing them, so two processes fed the same logical
// state but different iteration orders produce the same hash.
type Hasher struct {
	h []byte
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher { return &Hasher{} }

func (w *Hasher) WriteBytes(b []byte) *Hasher {
	w.h = append(w.h, b...)
	return w
}

func (w *Hasher) WriteUint64(v uint64) *Hasher {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return w.WriteBytes(b[:])
}

func (w *Hasher) WriteUint32(v uint32) *Hasher {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return w.WriteBytes(b[:])
}

func (w *Hasher) WriteInt64(v int64) *Hasher {
	return w.WriteUint64(uint64(v))
}

func (w *Hasher) WriteString(s string) *Hasher {
	w.WriteUint32(uint32(len(s)))
	return w.WriteBytes([]byte(s))
}

// WriteVarBytes writes a length prefix before b, the same way
// WriteString length-prefixes its payload. Use this instead of a bare
// WriteBytes whenever b's length varies between calls (e.g. big.Int.Bytes()
// output) — without a length prefix, two different field-boundary splits
// of the same total bytes hash identically, which is exactly the
// ambiguity a canonical hash must rule out.
func (w *Hasher) WriteVarBytes(b []byte) *Hasher {
	w.WriteUint32(uint32(len(b)))
	return w.WriteBytes(b)
}

func (w *Hasher) WriteHash(h Hash) *Hasher {
	return w.WriteBytes(h[:])
}

// Sum finalizes the digest.
func (w *Hasher) Sum() Hash {
	return sha256.Sum256(w.h)
}

// SortedKeys returns the keys of m sorted ascending. Used at every call
// site that iterates a map before hashing or serializing it (spec.md
// §4.1: "all maps are iterated in a canonical order (by tokenId
// ascending) whenever state is hashed").
func SortedKeys[K ~uint32 | ~uint64 | ~string | ~int, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// SortedBytesKeys returns the keys of a map keyed by a fixed-size byte
// array (e.g. EntityId) sorted lexicographically ascending.
func SortedBytesKeys[K interface{ ~[32]byte }, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		for x := range a {
			if a[x] != b[x] {
				return a[x] < b[x]
			}
		}
		return false
	})
	return keys
}
