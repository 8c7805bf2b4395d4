// Package pebble implements the append-only frame log and periodic
// snapshot store backing internal/replay (spec.md §4.5/§6 Persistence
// layout), on top of cockroachdb/pebble.
//
// Grounded on LeJamon-goXRPLd's internal/storage/database/pebble's
// Read/Write/Delete/Batch shape: this package keeps that thin
// key/value surface rather than reintroducing the teacher's own
// database.DB interface, since replay only ever needs Get/Set/Iterate
// over two key families (inputs and snapshots).
package pebble

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/pierrec/lz4"
)

var (
	ErrNotFound = errors.New("pebble: key not found")
	ErrClosed   = errors.New("pebble: store is closed")
)

const (
	prefixInput    byte = 0x01
	prefixSnapshot byte = 0x02
)

// Store is a pebble-backed key/value store keyed by tick, with two
// families: raw per-tick RuntimeInput batches (the append-only log)
// and periodic lz4-compressed State snapshots.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Close()
}

func inputKey(tick uint64) []byte {
	k := make([]byte, 9)
	k[0] = prefixInput
	binary.BigEndian.PutUint64(k[1:], tick)
	return k
}

func snapshotKey(tick uint64) []byte {
	k := make([]byte, 9)
	k[0] = prefixSnapshot
	binary.BigEndian.PutUint64(k[1:], tick)
	return k
}

// PutInput appends tick's raw (already gob-encoded) input batch.
func (s *Store) PutInput(tick uint64, encoded []byte) error {
	if s.db == nil {
		return ErrClosed
	}
	return s.db.Set(inputKey(tick), encoded, pebble.Sync)
}

// GetInput retrieves tick's raw input batch.
func (s *Store) GetInput(tick uint64) ([]byte, error) {
	return s.get(inputKey(tick))
}

// PutSnapshot stores encoded (an already-serialized State) compressed
// with lz4, the same codec the teacher uses for node-store compression
// (internal/storage/nodestore/compression/lz4.go).
func (s *Store) PutSnapshot(tick uint64, encoded []byte) error {
	if s.db == nil {
		return ErrClosed
	}
	compressed, err := compress(encoded)
	if err != nil {
		return err
	}
	return s.db.Set(snapshotKey(tick), compressed, pebble.Sync)
}

// GetSnapshot retrieves and decompresses tick's State snapshot.
func (s *Store) GetSnapshot(tick uint64) ([]byte, error) {
	compressed, err := s.get(snapshotKey(tick))
	if err != nil {
		return nil, err
	}
	return decompress(compressed)
}

func (s *Store) get(key []byte) ([]byte, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// IterateInputs walks every stored input batch in ascending tick order
// from fromTick (inclusive), calling fn until it returns false or the
// keys are exhausted.
func (s *Store) IterateInputs(fromTick uint64, fn func(tick uint64, encoded []byte) bool) error {
	if s.db == nil {
		return ErrClosed
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: inputKey(fromTick),
		UpperBound: []byte{prefixInput + 1},
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		tick := binary.BigEndian.Uint64(iter.Key()[1:])
		val := iter.Value()
		valCopy := make([]byte, len(val))
		copy(valCopy, val)
		if !fn(tick, valCopy) {
			break
		}
	}
	return iter.Error()
}

func compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	maxSize := lz4.CompressBlockBound(len(data))
	compressed := make([]byte, maxSize)
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("pebble: lz4 compress: %w", err)
	}
	// Prefix with the original length so decompress can size its buffer.
	out := make([]byte, 8+n)
	binary.BigEndian.PutUint64(out[:8], uint64(len(data)))
	copy(out[8:], compressed[:n])
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("pebble: truncated snapshot record")
	}
	origLen := binary.BigEndian.Uint64(data[:8])
	out := make([]byte, origLen)
	n, err := lz4.UncompressBlock(data[8:], out)
	if err != nil {
		return nil, fmt.Errorf("pebble: lz4 decompress: %w", err)
	}
	return out[:n], nil
}
