// Package solver implements the puzzle-solver protocol between the
// sender and the tumbler. The sender funds a joint output and pays the
// tumbler for the solution of a blinded puzzle; settling on-chain is what
// leaks the solution back to the sender, which unblinds it for the
// receiver. Atomicity hangs on the message order: the sender reveals its
// adaptor redeem signature only after holding a signed refund, and the
// tumbler's broadcast of the redeem is the event that discloses γ.
package solver

import (
	"github.com/luxfi/a2l/pkg/ecdsa"
	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/pkg/math/curve"
)

// Message is one of the protocol's wire messages.
type Message interface {
	isSolverMessage()
}

// Message0 opens the protocol with the tumbler's signing key.
type Message0 struct {
	XT curve.Point `cbor:"1,keyasint"`
}

// Message1 carries the sender's signing key and the doubly blinded
// puzzle ciphertext (C')^τ.
type Message1 struct {
	XS          curve.Point      `cbor:"1,keyasint"`
	CAlphaPrime hsmcl.Ciphertext `cbor:"2,keyasint"`
}

// Message2 answers with Γ = γ·G, the curve image of the decrypted
// blinded solution, and the tumbler's refund signature.
type Message2 struct {
	Gamma     curve.Point     `cbor:"1,keyasint"`
	RefundSig ecdsa.Signature `cbor:"2,keyasint"`
}

// Message3 is the sender's redeem signature encrypted to Γ; decrypting
// it is how the tumbler gets paid, publishing the decryption is how the
// sender learns γ.
type Message3 struct {
	RedeemEncSig ecdsa.EncryptedSignature `cbor:"1,keyasint"`
}

// Message4 is sent by the sender to the *receiver*: the unblinded
// solution ᾱ = β·α of the receiver's Lock.
type Message4 struct {
	AlphaMacron curve.Scalar `cbor:"1,keyasint"`
}

func (Message0) isSolverMessage() {}
func (Message1) isSolverMessage() {}
func (Message2) isSolverMessage() {}
func (Message3) isSolverMessage() {}
func (Message4) isSolverMessage() {}
