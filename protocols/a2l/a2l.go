// Package a2l holds the session material shared by the two A2L
// sub-protocols: the session parameters both parties must agree on
// byte-for-byte, the Lock that binds the puzzle-promise output to the
// puzzle-solver input, and the protocol error taxonomy.
package a2l

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/luxfi/a2l/pkg/bitcoin"
	"github.com/luxfi/a2l/pkg/ecdsa"
	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/pkg/math/curve"
)

var (
	// ErrUnexpectedMessage is returned when a message arrives out of
	// protocol order for the current state.
	ErrUnexpectedMessage = errors.New("a2l: unexpected message for current state")
	// ErrNoMessage is returned when the current state has nothing to send.
	ErrNoMessage = errors.New("a2l: no message to send in current state")
	// ErrNoTransaction is returned when a transaction accessor is queried
	// in a state where that transaction does not exist yet.
	ErrNoTransaction = errors.New("a2l: transaction not available in current state")
	// ErrStateConsumed is returned when a session whose state was consumed
	// by a failed transition is driven again; this is an embedding bug,
	// not peer input.
	ErrStateConsumed = errors.New("a2l: state already consumed")
	// ErrBlindingCheckFailed is returned by the sender when the tumbler's
	// Γ does not equal (A')^τ, i.e. the tumbler answered for a different
	// puzzle than the one the sender blinded.
	ErrBlindingCheckFailed = errors.New("a2l: blinded puzzle mismatch, Γ != (A')^τ")

	// ErrBadSignature, ErrBadAdaptorSignature and ErrBadProof surface the
	// verification failures of the underlying primitives on the protocol
	// boundary.
	ErrBadSignature        = ecdsa.ErrBadSignature
	ErrBadAdaptorSignature = ecdsa.ErrBadAdaptorSignature
	ErrBadProof            = hsmcl.ErrBadProof
)

// Params are the shared parameters of one sub-protocol session. The two
// parties must hold byte-identical values: any divergence shifts the
// transaction digests and is caught by the first signature verification.
type Params struct {
	// RedeemIdentity is paid by the redeem transaction.
	RedeemIdentity curve.Point
	// RefundIdentity is paid by the refund transaction after Expiry.
	RefundIdentity curve.Point
	// Expiry is the absolute lock time of the refund transaction.
	Expiry uint32
	// TumbleAmount is the value being tumbled.
	TumbleAmount btcutil.Amount
	// TumblerFee is the tumbler's fee, carried only by the sender-side
	// joint output.
	TumblerFee btcutil.Amount
	// SpendTxFeePerWU prices the spend transactions' weight.
	SpendTxFeePerWU btcutil.Amount
	// PartialFundTransaction is fully funded except for the joint output.
	PartialFundTransaction *wire.MsgTx
}

// spendTxFee is the fee reserved for spending a joint output.
func (p Params) spendTxFee() btcutil.Amount {
	return bitcoin.MaxSatisfactionWeight * p.SpendTxFeePerWU
}

// TumblerReceiverJointOutputValue is the value of the joint output the
// tumbler funds in the puzzle-promise protocol.
func (p Params) TumblerReceiverJointOutputValue() btcutil.Amount {
	return p.TumbleAmount + p.spendTxFee()
}

// TumblerReceiverJointOutputTakeout is the value its spends forward.
func (p Params) TumblerReceiverJointOutputTakeout() btcutil.Amount {
	return p.TumbleAmount
}

// SenderTumblerJointOutputValue is the value of the joint output the
// sender funds in the puzzle-solver protocol.
func (p Params) SenderTumblerJointOutputValue() btcutil.Amount {
	return p.TumbleAmount + p.TumblerFee + p.spendTxFee()
}

// SenderTumblerJointOutputTakeout is the value its spends forward.
func (p Params) SenderTumblerJointOutputTakeout() btcutil.Amount {
	return p.TumbleAmount + p.TumblerFee
}

// Lock is the randomized puzzle the receiver hands to the sender: C'
// encrypts β·α under the tumbler's key and A' = (β·α)·G. Solving it is
// what the sender pays the tumbler for.
type Lock struct {
	CAlphaPrime hsmcl.Ciphertext `cbor:"1,keyasint"`
	APrime      curve.Point      `cbor:"2,keyasint"`
}
