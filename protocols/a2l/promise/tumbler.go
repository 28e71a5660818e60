package promise

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"

	"github.com/luxfi/a2l/pkg/bitcoin"
	"github.com/luxfi/a2l/pkg/ecdsa"
	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/pkg/math/curve"
	"github.com/luxfi/a2l/pkg/math/sample"
	"github.com/luxfi/a2l/protocols/a2l"
)

// Tumbler is the tumbler's handle on one puzzle-promise session. States
// are consumed by transitions; a handle whose session aborted stays
// consumed.
type Tumbler struct {
	state tumblerState
}

type tumblerState interface {
	isTumblerState()
}

// tumbler0 has minted the puzzle and waits for the receiver's refund
// signature.
type tumbler0 struct {
	params a2l.Params
	he     *hsmcl.SecretKey
	xT     curve.KeyPair
	a      curve.KeyPair
	puzzle hsmcl.Puzzle
}

// tumbler1 holds the session outputs: the unsigned fund transaction and
// the fully signed refund.
type tumbler1 struct {
	unsignedFund *wire.MsgTx
	signedRefund *wire.MsgTx
	redeemEncSig ecdsa.EncryptedSignature
}

func (tumbler0) isTumblerState() {}
func (tumbler1) isTumblerState() {}

// NewTumbler opens a session: it draws the signing key x_t and the
// puzzle secret a, and encrypts a under the tumbler's HE key together
// with the consistency proof.
func NewTumbler(params a2l.Params, he *hsmcl.SecretKey, rng io.Reader) (*Tumbler, error) {
	xT, err := sample.KeyPair(rng)
	if err != nil {
		return nil, err
	}
	a, err := sample.KeyPair(rng)
	if err != nil {
		return nil, err
	}
	puzzle, err := hsmcl.Encrypt(he.Public(), a.SecretKey(), rng)
	if err != nil {
		return nil, fmt.Errorf("promise: minting puzzle: %w", err)
	}
	return &Tumbler{state: &tumbler0{
		params: params,
		he:     he,
		xT:     xT,
		a:      a,
		puzzle: puzzle,
	}}, nil
}

// NextMessage returns the message the current state owes its peer.
func (t *Tumbler) NextMessage() (Message, error) {
	switch s := t.state.(type) {
	case *tumbler0:
		return Message0{XT: s.xT.PublicKey(), Puzzle: s.puzzle}, nil
	case *tumbler1:
		return Message2{RedeemEncSig: s.redeemEncSig}, nil
	default:
		return nil, a2l.ErrNoMessage
	}
}

// Transition consumes the current state with an incoming message. On a
// verification failure the session aborts and the state stays consumed.
func (t *Tumbler) Transition(msg Message, rng io.Reader) error {
	state := t.state
	if state == nil {
		return a2l.ErrStateConsumed
	}
	t.state = nil
	s0, ok := state.(*tumbler0)
	m1, okMsg := msg.(Message1)
	if !ok || !okMsg {
		return a2l.ErrUnexpectedMessage
	}

	next, err := s0.receive(m1, rng)
	if err != nil {
		return err
	}
	t.state = next
	return nil
}

func (s *tumbler0) receive(m Message1, rng io.Reader) (*tumbler1, error) {
	txs, err := bitcoin.MakeTransactions(
		s.params.PartialFundTransaction,
		s.params.TumblerReceiverJointOutputValue(),
		s.params.TumblerReceiverJointOutputTakeout(),
		s.xT.PublicKey(), m.XR,
		s.params.Expiry,
		s.params.RedeemIdentity, s.params.RefundIdentity,
	)
	if err != nil {
		return nil, err
	}

	// The receiver commits to the refund before we promise anything.
	if err := ecdsa.Verify(txs.RefundDigest, m.RefundSig, m.XR); err != nil {
		return nil, err
	}
	refundSigT := ecdsa.Sign(txs.RefundDigest, s.xT)
	signedRefund, err := bitcoin.CompleteSpendTransaction(
		txs.Refund, txs.JointOutputScript, txs.RefundDigest,
		s.xT.PublicKey(), refundSigT,
		m.XR, m.RefundSig,
	)
	if err != nil {
		return nil, err
	}

	redeemEncSig, err := ecdsa.EncSign(txs.RedeemDigest, s.xT, s.puzzle.A, rng)
	if err != nil {
		return nil, err
	}

	return &tumbler1{
		unsignedFund: txs.Fund,
		signedRefund: signedRefund,
		redeemEncSig: redeemEncSig,
	}, nil
}

// FundTransaction returns the unsigned fund transaction the tumbler may
// broadcast once the promise round-trip completed.
func (t *Tumbler) FundTransaction() (*wire.MsgTx, error) {
	s, ok := t.state.(*tumbler1)
	if !ok {
		return nil, a2l.ErrNoTransaction
	}
	return s.unsignedFund, nil
}

// RefundTransaction returns the fully signed refund transaction.
func (t *Tumbler) RefundTransaction() (*wire.MsgTx, error) {
	s, ok := t.state.(*tumbler1)
	if !ok {
		return nil, a2l.ErrNoTransaction
	}
	return s.signedRefund, nil
}
