// Package curve implements the secp256k1 scalar and point algebra used
// throughout the protocol. All operations are on the group of order N; the
// zero scalar and the point at infinity are rejected at the boundaries
// where they would be malformed protocol data.
package curve

import (
	"encoding/binary"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ScalarBytes is the length of a serialized scalar.
const ScalarBytes = 32

var errScalarEncoding = errors.New("curve: invalid scalar encoding")

// Scalar is an element of the secp256k1 scalar field Z_N.
// The zero value is the scalar 0.
type Scalar struct {
	v secp256k1.ModNScalar
}

// NewScalarUint64 returns the scalar representing v.
func NewScalarUint64(v uint64) Scalar {
	var b [ScalarBytes]byte
	binary.BigEndian.PutUint64(b[24:], v)
	var s Scalar
	s.v.SetBytes(&b)
	return s
}

// Add returns s + t mod N.
func (s Scalar) Add(t Scalar) Scalar {
	r := s.v
	r.Add(&t.v)
	return Scalar{v: r}
}

// Sub returns s - t mod N.
func (s Scalar) Sub(t Scalar) Scalar {
	neg := t.v
	neg.Negate()
	r := s.v
	r.Add(&neg)
	return Scalar{v: r}
}

// Mul returns s * t mod N.
func (s Scalar) Mul(t Scalar) Scalar {
	r := s.v
	r.Mul(&t.v)
	return Scalar{v: r}
}

// Negate returns -s mod N.
func (s Scalar) Negate() Scalar {
	r := s.v
	r.Negate()
	return Scalar{v: r}
}

// Invert returns s⁻¹ mod N. Inverting the zero scalar returns zero.
func (s Scalar) Invert() Scalar {
	r := s.v
	r.InverseNonConst()
	return Scalar{v: r}
}

// IsZero reports whether s is the zero scalar.
func (s Scalar) IsZero() bool {
	return s.v.IsZero()
}

// IsOverHalfOrder reports whether s > N/2. ECDSA signatures carrying such
// an s component are non-canonical.
func (s Scalar) IsOverHalfOrder() bool {
	return s.v.IsOverHalfOrder()
}

// Equal reports whether s and t represent the same scalar.
func (s Scalar) Equal(t Scalar) bool {
	return s.v.Equals(&t.v)
}

// ActOnBase returns s·G.
func (s Scalar) ActOnBase() Point {
	var p Point
	secp256k1.ScalarBaseMultNonConst(&s.v, &p.p)
	p.p.ToAffine()
	return p
}

// Act returns s·P.
func (s Scalar) Act(q Point) Point {
	var p Point
	qq := q.p
	secp256k1.ScalarMultNonConst(&s.v, &qq, &p.p)
	p.p.ToAffine()
	return p
}

// Bytes returns the 32 byte big-endian encoding of s.
func (s Scalar) Bytes() [ScalarBytes]byte {
	return s.v.Bytes()
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s Scalar) MarshalBinary() ([]byte, error) {
	b := s.v.Bytes()
	return b[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Only canonical
// encodings (32 bytes, value < N) are accepted.
func (s *Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != ScalarBytes {
		return errScalarEncoding
	}
	if overflow := s.v.SetByteSlice(data); overflow {
		return errScalarEncoding
	}
	return nil
}

// SetBytesReduced sets s to the scalar represented by the 32 byte
// big-endian value, reduced mod N, and returns it. Used for hash outputs
// and x-coordinates, where reduction is the intended semantics.
func (s *Scalar) SetBytesReduced(data *[ScalarBytes]byte) Scalar {
	s.v.SetBytes(data)
	return *s
}
