package curve

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PointBytes is the length of a serialized (compressed) point.
const PointBytes = 33

var errPointEncoding = errors.New("curve: invalid point encoding")

// Point is an element of the secp256k1 group. The zero value is the point
// at infinity, which is never valid protocol data.
type Point struct {
	p secp256k1.JacobianPoint
}

// IsIdentity reports whether p is the point at infinity.
func (p Point) IsIdentity() bool {
	return (p.p.X.IsZero() && p.p.Y.IsZero()) || p.p.Z.IsZero()
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	var r Point
	pp, qq := p.p, q.p
	secp256k1.AddNonConst(&pp, &qq, &r.p)
	r.p.ToAffine()
	return r
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return p.Add(q.Negate())
}

// Negate returns -p.
func (p Point) Negate() Point {
	r := p
	r.p.Y.Negate(1)
	r.p.Y.Normalize()
	return r
}

// Equal reports whether p and q are the same group element.
func (p Point) Equal(q Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() && q.IsIdentity()
	}
	pp, qq := p.p, q.p
	pp.ToAffine()
	qq.ToAffine()
	return pp.X.Equals(&qq.X) && pp.Y.Equals(&qq.Y)
}

// XScalar returns the x coordinate of p reduced mod N. This is the r
// component an ECDSA signature derives from its nonce point.
func (p Point) XScalar() Scalar {
	pp := p.p
	pp.ToAffine()
	var xb [32]byte
	pp.X.PutBytes(&xb)
	var s Scalar
	s.v.SetBytes(&xb)
	return s
}

// HasLowX reports whether the top bit of the x coordinate is clear, i.e.
// whether r serializes without a DER padding byte. Signing grinds nonces
// until this holds so that witness sizes are bounded.
func (p Point) HasLowX() bool {
	pp := p.p
	pp.ToAffine()
	var xb [32]byte
	pp.X.PutBytes(&xb)
	return xb[0] < 0x80
}

// MarshalBinary implements encoding.BinaryMarshaler, producing the 33 byte
// compressed encoding.
func (p Point) MarshalBinary() ([]byte, error) {
	if p.IsIdentity() {
		return nil, errPointEncoding
	}
	pp := p.p
	pp.ToAffine()
	pub := secp256k1.NewPublicKey(&pp.X, &pp.Y)
	return pub.SerializeCompressed(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Only compressed
// encodings of points on the curve are accepted.
func (p *Point) UnmarshalBinary(data []byte) error {
	if len(data) != PointBytes {
		return errPointEncoding
	}
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return errPointEncoding
	}
	pub.AsJacobian(&p.p)
	return nil
}

// KeyPair pairs a secret scalar with its public point.
type KeyPair struct {
	sk Scalar
	pk Point
}

// NewKeyPair derives the public point for sk. The zero scalar is not a
// valid secret key.
func NewKeyPair(sk Scalar) (KeyPair, error) {
	if sk.IsZero() {
		return KeyPair{}, errors.New("curve: zero secret key")
	}
	return KeyPair{sk: sk, pk: sk.ActOnBase()}, nil
}

// SecretKey returns the secret scalar.
func (k KeyPair) SecretKey() Scalar {
	return k.sk
}

// PublicKey returns the public point.
func (k KeyPair) PublicKey() Point {
	return k.pk
}
