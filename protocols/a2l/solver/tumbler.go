package solver

import (
	"io"

	"github.com/btcsuite/btcd/wire"

	"github.com/luxfi/a2l/pkg/bitcoin"
	"github.com/luxfi/a2l/pkg/ecdsa"
	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/pkg/math/curve"
	"github.com/luxfi/a2l/pkg/math/sample"
	"github.com/luxfi/a2l/protocols/a2l"
)

// Tumbler is the tumbler's handle on one puzzle-solver session.
type Tumbler struct {
	state tumblerState
}

type tumblerState interface {
	isTumblerState()
}

// tumbler0 waits for the sender's blinded puzzle.
type tumbler0 struct {
	params a2l.Params
	he     *hsmcl.SecretKey
	xT     curve.KeyPair
}

// tumbler1 has decrypted γ, built the joint output and signed its
// refund; it waits for the sender's adaptor redeem signature.
type tumbler1 struct {
	xT        curve.KeyPair
	xS        curve.Point
	gamma     curve.Scalar
	refundSig ecdsa.Signature
	txs       *bitcoin.Transactions
}

// tumbler2 holds the signed redeem transaction; broadcasting it settles
// the session and discloses γ.
type tumbler2 struct {
	signedRedeem *wire.MsgTx
}

func (tumbler0) isTumblerState() {}
func (tumbler1) isTumblerState() {}
func (tumbler2) isTumblerState() {}

// NewTumbler opens a session with a fresh signing key.
func NewTumbler(params a2l.Params, he *hsmcl.SecretKey, rng io.Reader) (*Tumbler, error) {
	xT, err := sample.KeyPair(rng)
	if err != nil {
		return nil, err
	}
	return &Tumbler{state: &tumbler0{params: params, he: he, xT: xT}}, nil
}

// NextMessage returns the message the current state owes the sender.
func (t *Tumbler) NextMessage() (Message, error) {
	switch s := t.state.(type) {
	case *tumbler0:
		return Message0{XT: s.xT.PublicKey()}, nil
	case *tumbler1:
		return Message2{Gamma: s.gamma.ActOnBase(), RefundSig: s.refundSig}, nil
	default:
		return nil, a2l.ErrNoMessage
	}
}

// Transition consumes the current state with an incoming message.
func (t *Tumbler) Transition(msg Message, rng io.Reader) error {
	state := t.state
	if state == nil {
		return a2l.ErrStateConsumed
	}
	t.state = nil

	var (
		next tumblerState
		err  error
	)
	switch s := state.(type) {
	case *tumbler0:
		m1, ok := msg.(Message1)
		if !ok {
			return a2l.ErrUnexpectedMessage
		}
		next, err = s.receive(m1)
	case *tumbler1:
		m3, ok := msg.(Message3)
		if !ok {
			return a2l.ErrUnexpectedMessage
		}
		next, err = s.receive(m3)
	default:
		return a2l.ErrUnexpectedMessage
	}
	if err != nil {
		return err
	}
	t.state = next
	return nil
}

func (s *tumbler0) receive(m Message1) (*tumbler1, error) {
	// γ = τ·β·α, blinded beyond recognition; decrypting it here is the
	// only place the promise and solver sessions touch, and the blinding
	// keeps the two statistically independent in the tumbler's view.
	gamma := s.he.Decrypt(m.CAlphaPrime)

	txs, err := bitcoin.MakeTransactions(
		s.params.PartialFundTransaction,
		s.params.SenderTumblerJointOutputValue(),
		s.params.SenderTumblerJointOutputTakeout(),
		m.XS, s.xT.PublicKey(),
		s.params.Expiry,
		s.params.RedeemIdentity, s.params.RefundIdentity,
	)
	if err != nil {
		return nil, err
	}

	return &tumbler1{
		xT:        s.xT,
		xS:        m.XS,
		gamma:     gamma,
		refundSig: ecdsa.Sign(txs.RefundDigest, s.xT),
		txs:       txs,
	}, nil
}

func (s *tumbler1) receive(m Message3) (*tumbler2, error) {
	// The adaptor signature decrypted with γ must be the sender's real
	// redeem signature, otherwise the sender is not actually paying.
	redeemSigS := ecdsa.DecSig(s.gamma, m.RedeemEncSig)
	if err := ecdsa.Verify(s.txs.RedeemDigest, redeemSigS, s.xS); err != nil {
		return nil, err
	}

	redeemSigT := ecdsa.Sign(s.txs.RedeemDigest, s.xT)
	signedRedeem, err := bitcoin.CompleteSpendTransaction(
		s.txs.Redeem, s.txs.JointOutputScript, s.txs.RedeemDigest,
		s.xS, redeemSigS,
		s.xT.PublicKey(), redeemSigT,
	)
	if err != nil {
		return nil, err
	}
	return &tumbler2{signedRedeem: signedRedeem}, nil
}

// RedeemTransaction returns the signed redeem transaction once the
// session settled. Broadcasting it is what reveals γ to the sender.
func (t *Tumbler) RedeemTransaction() (*wire.MsgTx, error) {
	s, ok := t.state.(*tumbler2)
	if !ok {
		return nil, a2l.ErrNoTransaction
	}
	return s.signedRedeem, nil
}
