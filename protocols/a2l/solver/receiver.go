package solver

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/luxfi/a2l/pkg/bitcoin"
	"github.com/luxfi/a2l/pkg/ecdsa"
	"github.com/luxfi/a2l/pkg/math/curve"
	"github.com/luxfi/a2l/protocols/a2l"
)

// PromisedRedeem is the material a receiver carries out of the promise
// protocol: everything needed to complete its redeem the moment the
// puzzle solution arrives.
type PromisedRedeem struct {
	XR                curve.KeyPair
	XT                curve.Point
	UnsignedRedeem    *wire.MsgTx
	JointOutputScript []byte
	RedeemDigest      bitcoin.Digest
	RedeemEncSig      ecdsa.EncryptedSignature
	RedeemSigR        ecdsa.Signature
	Beta              curve.Scalar
}

// Receiver is the receiver's handle on the tail of the solver protocol:
// it waits for the sender's ᾱ and turns it into a signed redeem.
type Receiver struct {
	state receiverState
}

type receiverState interface {
	isReceiverState()
}

type receiver0 struct {
	redeem PromisedRedeem
}

type receiver1 struct {
	signedRedeem *wire.MsgTx
}

func (receiver0) isReceiverState() {}
func (receiver1) isReceiverState() {}

// NewReceiver resumes from a completed promise session.
func NewReceiver(redeem PromisedRedeem) *Receiver {
	return &Receiver{state: &receiver0{redeem: redeem}}
}

// Transition consumes the current state with an incoming message.
func (r *Receiver) Transition(msg Message) error {
	state := r.state
	if state == nil {
		return a2l.ErrStateConsumed
	}
	r.state = nil

	s0, ok := state.(*receiver0)
	m4, okMsg := msg.(Message4)
	if !ok || !okMsg {
		return a2l.ErrUnexpectedMessage
	}

	next, err := s0.receive(m4)
	if err != nil {
		return err
	}
	r.state = next
	return nil
}

func (s *receiver0) receive(m Message4) (*receiver1, error) {
	// ᾱ = β·α, so β⁻¹ strips the receiver's own blinding and leaves the
	// promise key α that decrypts the tumbler's adaptor signature.
	alpha := m.AlphaMacron.Mul(s.redeem.Beta.Invert())
	redeemSigT := ecdsa.DecSig(alpha, s.redeem.RedeemEncSig)

	signedRedeem, err := bitcoin.CompleteSpendTransaction(
		s.redeem.UnsignedRedeem, s.redeem.JointOutputScript, s.redeem.RedeemDigest,
		s.redeem.XT, redeemSigT,
		s.redeem.XR.PublicKey(), s.redeem.RedeemSigR,
	)
	if err != nil {
		return nil, err
	}
	return &receiver1{signedRedeem: signedRedeem}, nil
}

// RedeemTransaction returns the signed redeem transaction once ᾱ
// arrived.
func (r *Receiver) RedeemTransaction() (*wire.MsgTx, error) {
	s, ok := r.state.(*receiver1)
	if !ok {
		return nil, a2l.ErrNoTransaction
	}
	return s.signedRedeem, nil
}
