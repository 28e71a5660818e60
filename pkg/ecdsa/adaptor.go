package ecdsa

import (
	"fmt"
	"io"

	"github.com/luxfi/a2l/pkg/hash"
	"github.com/luxfi/a2l/pkg/math/curve"
	"github.com/luxfi/a2l/pkg/math/sample"
)

const dleqTag = "a2l/ecdsa/dleq"

// EncryptedSignature is an ECDSA adaptor signature bound to an encryption
// key Y. It is not a valid signature on its own; combined with y = log_G Y
// it decrypts to one, and given both forms y can be recovered.
type EncryptedSignature struct {
	// R is the encrypted nonce point k·Y; its x coordinate is the r
	// component of the decrypted signature.
	R curve.Point `cbor:"1,keyasint"`
	// RHat is k·G.
	RHat curve.Point `cbor:"2,keyasint"`
	// SHat is k⁻¹(z + r·x), missing the y⁻¹ factor of a real signature.
	SHat curve.Scalar `cbor:"3,keyasint"`
	// Proof ties R and RHat to the same nonce: log_G RHat = log_Y R.
	Proof DLEQProof `cbor:"4,keyasint"`
}

// DLEQProof is a non-interactive Chaum-Pedersen proof of discrete log
// equality across the bases G and Y.
type DLEQProof struct {
	C curve.Scalar `cbor:"1,keyasint"`
	Z curve.Scalar `cbor:"2,keyasint"`
}

// EncSign produces an encrypted signature on digest under kp, bound to
// the encryption key Y. The nonce is drawn from rng and ground until the
// decrypted signature will serialize with a 32 byte r component.
func EncSign(digest [DigestSize]byte, kp curve.KeyPair, Y curve.Point, rng io.Reader) (EncryptedSignature, error) {
	if Y.IsIdentity() {
		return EncryptedSignature{}, fmt.Errorf("ecdsa: identity encryption key")
	}
	z := digestScalar(digest)
	x := kp.SecretKey()

	for {
		k, err := sample.Scalar(rng)
		if err != nil {
			return EncryptedSignature{}, err
		}
		R := k.Act(Y)
		if !R.HasLowX() {
			continue
		}
		r := R.XScalar()
		if r.IsZero() {
			continue
		}
		sHat := k.Invert().Mul(z.Add(r.Mul(x)))
		if sHat.IsZero() {
			continue
		}
		RHat := k.ActOnBase()
		proof, err := proveDLEQ(k, Y, RHat, R, rng)
		if err != nil {
			return EncryptedSignature{}, err
		}
		return EncryptedSignature{R: R, RHat: RHat, SHat: sHat, Proof: proof}, nil
	}
}

// EncVerify checks that esig is a well-formed encrypted signature on
// digest by the holder of X, decryptable by the holder of log_G Y.
func EncVerify(X, Y curve.Point, digest [DigestSize]byte, esig EncryptedSignature) error {
	if esig.R.IsIdentity() || esig.RHat.IsIdentity() || esig.SHat.IsZero() {
		return ErrBadAdaptorSignature
	}
	if err := verifyDLEQ(esig.Proof, Y, esig.RHat, esig.R); err != nil {
		return err
	}
	r := esig.R.XScalar()
	if r.IsZero() {
		return ErrBadAdaptorSignature
	}
	z := digestScalar(digest)
	w := esig.SHat.Invert()
	// ŝ⁻¹(z·G + r·X) must reproduce the plain nonce point k·G.
	R := z.Mul(w).ActOnBase().Add(r.Mul(w).Act(X))
	if !R.Equal(esig.RHat) {
		return ErrBadAdaptorSignature
	}
	return nil
}

// DecSig decrypts esig with y, yielding a canonical ECDSA signature.
func DecSig(y curve.Scalar, esig EncryptedSignature) Signature {
	s := esig.SHat.Mul(y.Invert())
	if s.IsOverHalfOrder() {
		s = s.Negate()
	}
	return Signature{R: esig.R.XScalar(), S: s}
}

// Recover extracts the decryption key from an encrypted signature and its
// decryption. It succeeds exactly when sig is DecSig(y, esig) for some y
// with y·G = Y.
func Recover(Y curve.Point, esig EncryptedSignature, sig Signature) (curve.Scalar, error) {
	if sig.S.IsZero() || !sig.R.Equal(esig.R.XScalar()) {
		return curve.Scalar{}, ErrRecoveryFailed
	}
	// s = ±ŝ/y, so y = ±ŝ/s; the sign is lost to low-s normalization.
	y := esig.SHat.Mul(sig.S.Invert())
	if y.ActOnBase().Equal(Y) {
		return y, nil
	}
	if neg := y.Negate(); neg.ActOnBase().Equal(Y) {
		return neg, nil
	}
	return curve.Scalar{}, ErrRecoveryFailed
}

func proveDLEQ(k curve.Scalar, Y, RHat, R curve.Point, rng io.Reader) (DLEQProof, error) {
	t, err := sample.Scalar(rng)
	if err != nil {
		return DLEQProof{}, err
	}
	U1 := t.ActOnBase()
	U2 := t.Act(Y)
	c := dleqChallenge(Y, RHat, R, U1, U2)
	return DLEQProof{C: c, Z: t.Add(c.Mul(k))}, nil
}

func verifyDLEQ(proof DLEQProof, Y, RHat, R curve.Point) error {
	if proof.Z.IsZero() {
		return ErrBadAdaptorSignature
	}
	U1 := proof.Z.ActOnBase().Sub(proof.C.Act(RHat))
	U2 := proof.Z.Act(Y).Sub(proof.C.Act(R))
	if U1.IsIdentity() || U2.IsIdentity() {
		return ErrBadAdaptorSignature
	}
	if !dleqChallenge(Y, RHat, R, U1, U2).Equal(proof.C) {
		return ErrBadAdaptorSignature
	}
	return nil
}

func dleqChallenge(Y, RHat, R, U1, U2 curve.Point) curve.Scalar {
	h := hash.New(dleqTag)
	_ = h.WriteAny(Y, RHat, R, U1, U2)
	digest := h.Sum()
	var c curve.Scalar
	c.SetBytesReduced(&digest)
	return c
}
