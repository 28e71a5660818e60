// Package promise implements the puzzle-promise protocol between the
// tumbler and the receiver. Three rounds leave the tumbler with a
// fundable joint output and a signed refund, and the receiver with an
// adaptor-signature promise it can complete once it learns the puzzle
// solution, plus the randomized Lock it forwards to the sender.
package promise

import (
	"github.com/luxfi/a2l/pkg/ecdsa"
	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/pkg/math/curve"
	"github.com/luxfi/a2l/protocols/a2l"
)

// Message is one of the protocol's wire messages.
type Message interface {
	isPromiseMessage()
}

// Message0 opens the protocol: the tumbler's signing key and the freshly
// minted puzzle (A, C_α, π_α).
type Message0 struct {
	XT     curve.Point  `cbor:"1,keyasint"`
	Puzzle hsmcl.Puzzle `cbor:"2,keyasint"`
}

// Message1 carries the receiver's signing key and its signature on the
// refund transaction of the joint output.
type Message1 struct {
	XR        curve.Point     `cbor:"1,keyasint"`
	RefundSig ecdsa.Signature `cbor:"2,keyasint"`
}

// Message2 is the promise: the tumbler's redeem signature encrypted to
// the puzzle point A.
type Message2 struct {
	RedeemEncSig ecdsa.EncryptedSignature `cbor:"1,keyasint"`
}

// Message3 is sent by the receiver to the *sender*, not the tumbler: the
// re-randomized puzzle the sender will pay to have solved.
type Message3 struct {
	Lock a2l.Lock `cbor:"1,keyasint"`
}

func (Message0) isPromiseMessage() {}
func (Message1) isPromiseMessage() {}
func (Message2) isPromiseMessage() {}
func (Message3) isPromiseMessage() {}
