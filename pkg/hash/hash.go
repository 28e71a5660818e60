// Package hash provides domain-separated transcript hashing for
// Fiat-Shamir challenges, built on BLAKE3.
package hash

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Hash is a transcript of protocol values. Every value written is length
// prefixed, so the transcript encoding is unambiguous.
type Hash struct {
	h *blake3.Hasher
}

// New returns a transcript hasher whose key is derived from tag.
// Distinct tags produce independent challenge spaces.
func New(tag string) *Hash {
	return &Hash{h: blake3.NewDeriveKey(tag)}
}

// WriteAny appends values to the transcript. Supported types are []byte,
// uint32, uint64 and anything implementing encoding.BinaryMarshaler.
func (h *Hash) WriteAny(values ...interface{}) error {
	for _, v := range values {
		var data []byte
		switch t := v.(type) {
		case []byte:
			data = t
		case uint32:
			data = binary.BigEndian.AppendUint32(nil, t)
		case uint64:
			data = binary.BigEndian.AppendUint64(nil, t)
		case encoding.BinaryMarshaler:
			var err error
			data, err = t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash: failed to marshal %T: %w", v, err)
			}
		default:
			return fmt.Errorf("hash: unsupported transcript type %T", v)
		}
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(data)))
		_, _ = h.h.Write(length[:])
		_, _ = h.h.Write(data)
	}
	return nil
}

// Sum returns the 32 byte transcript digest. The transcript can keep
// growing after a call to Sum.
func (h *Hash) Sum() [32]byte {
	var out [32]byte
	digest := h.h.Digest()
	_, _ = io.ReadFull(digest, out[:])
	return out
}

// Reader returns an unbounded stream of transcript output, for callers
// that need more than 32 bytes of challenge material.
func (h *Hash) Reader() io.Reader {
	return h.h.Digest()
}
