// Package ecdsa implements ECDSA over secp256k1 together with the
// adaptor (encrypted) signature operations the protocol settles through.
//
// All signatures are canonical: the s component is in the lower half of
// the scalar field, and nonces are ground until the r component has its
// top bit clear. The second property keeps every DER encoding at most
// 70 bytes, which bounds spend-transaction weights.
package ecdsa

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/luxfi/a2l/pkg/math/curve"
)

// DigestSize is the length of the message digests being signed.
const DigestSize = 32

var (
	// ErrBadSignature is returned when a signature does not verify.
	ErrBadSignature = errors.New("ecdsa: bad signature")
	// ErrBadAdaptorSignature is returned when an encrypted signature does
	// not verify against its encryption key.
	ErrBadAdaptorSignature = errors.New("ecdsa: bad adaptor signature")
	// ErrRecoveryFailed is returned when a signature is not the
	// decryption of the presented encrypted signature.
	ErrRecoveryFailed = errors.New("ecdsa: encryption key recovery failed")
)

// Signature is an ECDSA signature in (r, s) form.
type Signature struct {
	R curve.Scalar
	S curve.Scalar
}

// MarshalBinary implements encoding.BinaryMarshaler as r‖s, 64 bytes.
func (sig Signature) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 2*curve.ScalarBytes)
	r := sig.R.Bytes()
	s := sig.S.Bytes()
	out = append(out, r[:]...)
	out = append(out, s[:]...)
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sig *Signature) UnmarshalBinary(data []byte) error {
	if len(data) != 2*curve.ScalarBytes {
		return fmt.Errorf("ecdsa: invalid signature length %d", len(data))
	}
	if err := sig.R.UnmarshalBinary(data[:curve.ScalarBytes]); err != nil {
		return err
	}
	return sig.S.UnmarshalBinary(data[curve.ScalarBytes:])
}

// Sign produces a canonical signature on digest under kp's secret key.
// Nonces are deterministic (RFC 6979), iterated until the nonce point has
// a low x coordinate.
func Sign(digest [DigestSize]byte, kp curve.KeyPair) Signature {
	z := digestScalar(digest)
	x := kp.SecretKey()
	skBytes := x.Bytes()

	for iteration := uint32(0); ; iteration++ {
		k := nonceRFC6979(skBytes, digest, iteration)
		R := k.ActOnBase()
		if !R.HasLowX() {
			continue
		}
		r := R.XScalar()
		if r.IsZero() {
			continue
		}
		s := k.Invert().Mul(z.Add(r.Mul(x)))
		if s.IsZero() {
			continue
		}
		if s.IsOverHalfOrder() {
			s = s.Negate()
		}
		return Signature{R: r, S: s}
	}
}

// Verify checks a canonical signature on digest under the public key X.
func Verify(digest [DigestSize]byte, sig Signature, X curve.Point) error {
	if sig.R.IsZero() || sig.S.IsZero() || sig.S.IsOverHalfOrder() {
		return ErrBadSignature
	}
	z := digestScalar(digest)
	w := sig.S.Invert()
	u1 := z.Mul(w)
	u2 := sig.R.Mul(w)
	R := u1.ActOnBase().Add(u2.Act(X))
	if R.IsIdentity() || !R.XScalar().Equal(sig.R) {
		return ErrBadSignature
	}
	return nil
}

func digestScalar(digest [DigestSize]byte) curve.Scalar {
	var z curve.Scalar
	z.SetBytesReduced(&digest)
	return z
}

func nonceRFC6979(skBytes [curve.ScalarBytes]byte, digest [DigestSize]byte, iteration uint32) curve.Scalar {
	nonce := secp256k1.NonceRFC6979(skBytes[:], digest[:], nil, nil, iteration)
	b := nonce.Bytes()
	var k curve.Scalar
	// The RFC 6979 nonce is already reduced and non-zero.
	_ = k.UnmarshalBinary(b[:])
	return k
}
