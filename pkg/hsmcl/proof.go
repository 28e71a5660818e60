package hsmcl

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"

	"github.com/luxfi/a2l/pkg/hash"
	"github.com/luxfi/a2l/pkg/math/curve"
)

const (
	proofTag = "a2l/hsmcl/encproof"

	// omegaBytes sizes the integer mask: the challenge times a scalar
	// plaintext spans at most 512 bits, so a 640-bit mask hides the
	// plaintext with 128 bits of statistical slack.
	omegaBytes = 80
	// z1Bytes is the fixed encoding width of the integer response.
	z1Bytes = 88
)

// Proof certifies that a ciphertext and a curve point share a plaintext:
// C = Enc_pk(α) and A = α·G for one α. It is a Fiat-Shamir compiled sigma
// protocol with an integer response on the encryption side.
type Proof struct {
	t1 Ciphertext
	t2 curve.Point
	z1 *saferith.Nat
	z2 *saferith.Nat
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Proof) MarshalBinary() ([]byte, error) {
	if p.z1 == nil || p.z2 == nil {
		return nil, fmt.Errorf("hsmcl: incomplete proof")
	}
	t1, err := p.t1.MarshalBinary()
	if err != nil {
		return nil, err
	}
	t2, err := p.t2.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, CiphertextBytes+curve.PointBytes+z1Bytes+ModulusBytes)
	out = append(out, t1...)
	out = append(out, t2...)
	out = append(out, natBytesWide(p.z1, z1Bytes)...)
	out = append(out, natBytesWide(p.z2, ModulusBytes)...)
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if len(data) != CiphertextBytes+curve.PointBytes+z1Bytes+ModulusBytes {
		return fmt.Errorf("hsmcl: invalid proof encoding")
	}
	if err := p.t1.UnmarshalBinary(data[:CiphertextBytes]); err != nil {
		return err
	}
	data = data[CiphertextBytes:]
	if err := p.t2.UnmarshalBinary(data[:curve.PointBytes]); err != nil {
		return err
	}
	data = data[curve.PointBytes:]
	p.z1 = new(saferith.Nat).SetBytes(data[:z1Bytes])
	p.z2 = new(saferith.Nat).SetBytes(data[z1Bytes:])
	return nil
}

// prove builds the consistency proof for C = Enc_pk(m; ρ), A = m·G.
func prove(pk *PublicKey, c Ciphertext, A curve.Point, m, rho *saferith.Nat, rng io.Reader) (Proof, error) {
	omegaBuf := make([]byte, omegaBytes)
	if _, err := io.ReadFull(rng, omegaBuf); err != nil {
		return Proof{}, fmt.Errorf("hsmcl: reading randomness: %w", err)
	}
	omega := new(saferith.Nat).SetBytes(omegaBuf)
	sigma, err := sampleUnit(pk, rng)
	if err != nil {
		return Proof{}, err
	}

	t1 := encryptWithNonce(pk, new(saferith.Nat).Mod(omega, pk.n), sigma)
	t2 := natScalar(omega).ActOnBase()

	eNat, _ := challenge(pk, c, A, t1, t2)

	// z1 = ω + e·m over the integers.
	z1 := new(saferith.Nat).Mul(eNat, m, -1)
	z1.Add(z1, omega, -1)

	// z2 = σ·ρ^e mod N.
	z2 := new(saferith.Nat).Exp(rho, eNat, pk.n)
	z2.ModMul(z2, new(saferith.Nat).Mod(sigma, pk.n), pk.n)

	return Proof{t1: t1, t2: t2, z1: z1, z2: z2}, nil
}

// verify checks the proof against (C, A).
func verify(pk *PublicKey, c Ciphertext, A curve.Point, p Proof) error {
	if p.z1 == nil || p.z2 == nil || p.t1.c == nil {
		return ErrBadProof
	}
	if p.z2.EqZero() == 1 || A.IsIdentity() || p.t2.IsIdentity() {
		return ErrBadProof
	}
	eNat, eScalar := challenge(pk, c, A, p.t1, p.t2)

	// Encryption side: (1+N)^z1 · z2^N == T1 · C^e (mod N²).
	lhs := encryptWithNonce(pk, new(saferith.Nat).Mod(p.z1, pk.n), p.z2).c
	rhs := new(saferith.Nat).Exp(c.c, eNat, pk.nSquared)
	rhs.ModMul(rhs, p.t1.c, pk.nSquared)
	if lhs.Eq(rhs) != 1 {
		return ErrBadProof
	}

	// Curve side: z1·G == T2 + e·A.
	if !natScalar(p.z1).ActOnBase().Equal(p.t2.Add(eScalar.Act(A))) {
		return ErrBadProof
	}
	return nil
}

// challenge derives the Fiat-Shamir challenge over the full statement.
func challenge(pk *PublicKey, c Ciphertext, A curve.Point, t1 Ciphertext, t2 curve.Point) (*saferith.Nat, curve.Scalar) {
	h := hash.New(proofTag)
	_ = h.WriteAny(pk, c, A, t1, t2)
	digest := h.Sum()
	eNat := new(saferith.Nat).SetBytes(digest[:])
	var eScalar curve.Scalar
	eScalar.SetBytesReduced(&digest)
	return eNat, eScalar
}

// natScalar reduces a natural into the scalar field.
func natScalar(n *saferith.Nat) curve.Scalar {
	reduced := new(saferith.Nat).Mod(n, curveOrderModulus)
	var s curve.Scalar
	s.SetBytesReduced(natBytes32(reduced))
	return s
}

// natBytesWide right-aligns a natural into a fixed width encoding.
func natBytesWide(n *saferith.Nat, width int) []byte {
	out := make([]byte, width)
	b := n.Bytes()
	if len(b) > width {
		b = b[len(b)-width:]
	}
	copy(out[width-len(b):], b)
	return out
}
