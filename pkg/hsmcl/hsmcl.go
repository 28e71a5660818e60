// Package hsmcl provides the homomorphic encryption capability set the
// protocol mints its puzzles with: a scheme whose plaintexts are
// secp256k1 scalars, supporting scalar exponentiation on ciphertexts and
// a proof that a ciphertext and a curve point share one plaintext.
//
// The capability surface is scheme-agnostic; this instantiation uses a
// Paillier-style construction over a 2048-bit modulus. Plaintexts stay
// integers below N until decryption reduces them into the scalar field,
// so exponent chains of protocol depth (τ·β·α < n³ ≪ N) decrypt to the
// expected scalar.
package hsmcl

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/cronokirby/saferith"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/a2l/pkg/math/curve"
)

const (
	// PrimeBits is the bit length of each prime factor.
	PrimeBits = 1024
	// ModulusBytes is the byte length of the modulus N.
	ModulusBytes = 2 * PrimeBits / 8
	// CiphertextBytes is the byte length of a ciphertext (mod N²).
	CiphertextBytes = 2 * ModulusBytes
)

var (
	// ErrBadProof is returned when a puzzle's consistency proof fails.
	ErrBadProof = errors.New("hsmcl: bad puzzle proof")

	errCiphertextEncoding = errors.New("hsmcl: invalid ciphertext encoding")

	one = new(saferith.Nat).SetUint64(1)
)

func curveOrder() *saferith.Modulus {
	b := curve.NewScalarUint64(1).Negate().Bytes() // n - 1
	order := new(saferith.Nat).SetBytes(b[:])
	order.Add(order, one, -1)
	return saferith.ModulusFromNat(order)
}

var curveOrderModulus = curveOrder()

// PublicKey is the encryption key.
type PublicKey struct {
	n        *saferith.Modulus // N
	nSquared *saferith.Modulus // N²
	nNat     *saferith.Nat
}

// SecretKey is the decryption key. It carries its public half.
type SecretKey struct {
	pk     *PublicKey
	phi    *saferith.Nat // (p-1)(q-1)
	phiInv *saferith.Nat // φ⁻¹ mod N
}

// Public returns the public half of the key.
func (sk *SecretKey) Public() *PublicKey {
	return sk.pk
}

// KeyGen derives a key pair deterministically from seed. The same seed
// always yields the same key, which the tests rely on to amortize prime
// generation.
func KeyGen(seed []byte) (*SecretKey, *PublicKey, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte("a2l/hsmcl/keygen"))
	p, err := rand.Prime(reader, PrimeBits)
	if err != nil {
		return nil, nil, fmt.Errorf("hsmcl: generating p: %w", err)
	}
	q, err := rand.Prime(reader, PrimeBits)
	if err != nil {
		return nil, nil, fmt.Errorf("hsmcl: generating q: %w", err)
	}
	if p.Cmp(q) == 0 {
		return nil, nil, errors.New("hsmcl: degenerate modulus")
	}

	bigOne := big.NewInt(1)
	nBig := new(big.Int).Mul(p, q)
	phiBig := new(big.Int).Mul(new(big.Int).Sub(p, bigOne), new(big.Int).Sub(q, bigOne))

	nNat := new(saferith.Nat).SetBytes(nBig.Bytes())
	n := saferith.ModulusFromNat(nNat)
	nSquaredNat := new(saferith.Nat).Mul(nNat, nNat, -1)
	nSquared := saferith.ModulusFromNat(nSquaredNat)

	phi := new(saferith.Nat).SetBytes(phiBig.Bytes())
	phiInv := new(saferith.Nat).ModInverse(phi, n)

	pk := &PublicKey{n: n, nSquared: nSquared, nNat: nNat}
	sk := &SecretKey{pk: pk, phi: phi, phiInv: phiInv}
	return sk, pk, nil
}

// MarshalBinary implements encoding.BinaryMarshaler as the fixed-width
// big-endian modulus.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	out := make([]byte, ModulusBytes)
	pk.n.Nat().FillBytes(out)
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	if len(data) != ModulusBytes {
		return errors.New("hsmcl: invalid public key encoding")
	}
	nNat := new(saferith.Nat).SetBytes(data)
	if nNat.EqZero() == 1 {
		return errors.New("hsmcl: invalid public key encoding")
	}
	pk.nNat = nNat
	pk.n = saferith.ModulusFromNat(nNat)
	pk.nSquared = saferith.ModulusFromNat(new(saferith.Nat).Mul(nNat, nNat, -1))
	return nil
}

// Ciphertext is an encryption of a plaintext integer below N.
type Ciphertext struct {
	c *saferith.Nat
}

// MarshalBinary implements encoding.BinaryMarshaler, fixed width mod N².
func (c Ciphertext) MarshalBinary() ([]byte, error) {
	if c.c == nil {
		return nil, errCiphertextEncoding
	}
	out := make([]byte, CiphertextBytes)
	c.c.FillBytes(out)
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (c *Ciphertext) UnmarshalBinary(data []byte) error {
	if len(data) != CiphertextBytes {
		return errCiphertextEncoding
	}
	c.c = new(saferith.Nat).SetBytes(data)
	return nil
}

// Puzzle bundles a ciphertext with the curve point of its plaintext and
// the proof binding the two.
type Puzzle struct {
	A  curve.Point `cbor:"1,keyasint"`
	C  Ciphertext  `cbor:"2,keyasint"`
	Pi Proof       `cbor:"3,keyasint"`
}

// Encrypt encrypts the witness scalar under pk and proves that the
// ciphertext and witness·G share the witness as plaintext.
func Encrypt(pk *PublicKey, witness curve.Scalar, rng io.Reader) (Puzzle, error) {
	rho, err := sampleUnit(pk, rng)
	if err != nil {
		return Puzzle{}, err
	}
	mb := witness.Bytes()
	mNat := new(saferith.Nat).SetBytes(mb[:])
	c := encryptWithNonce(pk, mNat, rho)
	A := witness.ActOnBase()
	pi, err := prove(pk, c, A, mNat, rho, rng)
	if err != nil {
		return Puzzle{}, err
	}
	return Puzzle{A: A, C: c, Pi: pi}, nil
}

// VerifyPuzzle checks the consistency proof binding puzzle.C to puzzle.A.
func VerifyPuzzle(pk *PublicKey, puzzle Puzzle) error {
	return verify(pk, puzzle.C, puzzle.A, puzzle.Pi)
}

// PowCiphertext raises c to the scalar s homomorphically: the result
// encrypts s·m for c encrypting m. The result is re-randomized so it is
// statistically unlinkable to c.
func (pk *PublicKey) PowCiphertext(c Ciphertext, s curve.Scalar, rng io.Reader) (Ciphertext, error) {
	rho, err := sampleUnit(pk, rng)
	if err != nil {
		return Ciphertext{}, err
	}
	sb := s.Bytes()
	sNat := new(saferith.Nat).SetBytes(sb[:])
	out := new(saferith.Nat).Exp(c.c, sNat, pk.nSquared)
	blind := new(saferith.Nat).Exp(rho, pk.nNat, pk.nSquared)
	out.ModMul(out, blind, pk.nSquared)
	return Ciphertext{c: out}, nil
}

// PowPoint raises a curve point to the same kind of scalar exponent,
// lifting the operation onto the group: s·P. It lives on the public key
// so a caller blinds a (ciphertext, point) pair through one handle.
func (pk *PublicKey) PowPoint(P curve.Point, s curve.Scalar) curve.Point {
	return s.Act(P)
}

// Decrypt recovers the plaintext of c reduced into the scalar field.
func (sk *SecretKey) Decrypt(c Ciphertext) curve.Scalar {
	pk := sk.pk
	u := new(saferith.Nat).Exp(c.c, sk.phi, pk.nSquared)
	u.Sub(u, one, -1)
	// L(u) = (u-1)/N is an exact integer division.
	l := new(big.Int).SetBytes(u.Bytes())
	l.Quo(l, new(big.Int).SetBytes(pk.nNat.Bytes()))
	m := new(saferith.Nat).ModMul(new(saferith.Nat).SetBytes(l.Bytes()), sk.phiInv, pk.n)
	m.Mod(m, curveOrderModulus)
	var out curve.Scalar
	out.SetBytesReduced(natBytes32(m))
	return out
}

// natBytes32 right-aligns a natural < 2²⁵⁶ into a 32 byte array.
func natBytes32(n *saferith.Nat) *[curve.ScalarBytes]byte {
	var out [curve.ScalarBytes]byte
	b := n.Bytes()
	if len(b) > curve.ScalarBytes {
		b = b[len(b)-curve.ScalarBytes:]
	}
	copy(out[curve.ScalarBytes-len(b):], b)
	return &out
}

// encryptWithNonce computes (1+N)^m · ρ^N mod N².
func encryptWithNonce(pk *PublicKey, m, rho *saferith.Nat) Ciphertext {
	// (1+N)^m ≡ 1 + m·N (mod N²).
	gm := new(saferith.Nat).Mul(m, pk.nNat, -1)
	gm.Add(gm, one, -1)
	gm.Mod(gm, pk.nSquared)
	rhoN := new(saferith.Nat).Exp(rho, pk.nNat, pk.nSquared)
	c := new(saferith.Nat).ModMul(gm, rhoN, pk.nSquared)
	return Ciphertext{c: c}
}

// sampleUnit draws a uniform non-zero element of Z_N from rng.
func sampleUnit(pk *PublicKey, rng io.Reader) (*saferith.Nat, error) {
	buf := make([]byte, ModulusBytes)
	for i := 0; i < 256; i++ {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return nil, fmt.Errorf("hsmcl: reading randomness: %w", err)
		}
		rho := new(saferith.Nat).SetBytes(buf)
		rho.Mod(rho, pk.n)
		if rho.EqZero() == 1 {
			continue
		}
		return rho, nil
	}
	return nil, errors.New("hsmcl: rng kept producing zero")
}
