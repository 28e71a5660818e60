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

// Sender is the sender's handle on one puzzle-solver session, seeded
// with the Lock obtained from the receiver.
type Sender struct {
	state senderState
}

type senderState interface {
	isSenderState()
}

// sender0 waits for the tumbler's key.
type sender0 struct {
	params a2l.Params
	he     *hsmcl.PublicKey
	xS     curve.KeyPair
	lock   a2l.Lock
}

// sender1 has blinded the lock with τ and waits for Γ and the tumbler's
// refund signature.
type sender1 struct {
	params a2l.Params
	he     *hsmcl.PublicKey
	xS     curve.KeyPair
	xT     curve.Point
	lock   a2l.Lock
	tau    curve.Scalar
	cpp    hsmcl.Ciphertext // C'' = (C')^τ
}

// sender2 holds the unsigned fund and signed refund, and has handed the
// adaptor redeem signature to the tumbler; it waits to observe the
// tumbler's redeem on-chain.
type sender2 struct {
	unsignedFund *wire.MsgTx
	signedRefund *wire.MsgTx
	redeemEncSig ecdsa.EncryptedSignature
	gamma        curve.Point // Γ
	tau          curve.Scalar
}

// sender3 has recovered and unblinded the solution.
type sender3 struct {
	alphaMacron curve.Scalar
}

func (sender0) isSenderState() {}
func (sender1) isSenderState() {}
func (sender2) isSenderState() {}
func (sender3) isSenderState() {}

// NewSender opens a session around the receiver's Lock.
func NewSender(params a2l.Params, lock a2l.Lock, he *hsmcl.PublicKey, rng io.Reader) (*Sender, error) {
	xS, err := sample.KeyPair(rng)
	if err != nil {
		return nil, err
	}
	return &Sender{state: &sender0{params: params, he: he, xS: xS, lock: lock}}, nil
}

// NextMessage returns the message the current state owes its peer. The
// final message is addressed to the receiver.
func (s *Sender) NextMessage() (Message, error) {
	switch st := s.state.(type) {
	case *sender1:
		return Message1{XS: st.xS.PublicKey(), CAlphaPrime: st.cpp}, nil
	case *sender2:
		return Message3{RedeemEncSig: st.redeemEncSig}, nil
	case *sender3:
		return Message4{AlphaMacron: st.alphaMacron}, nil
	default:
		return nil, a2l.ErrNoMessage
	}
}

// Transition consumes the current state with an incoming message.
func (s *Sender) Transition(msg Message, rng io.Reader) error {
	state := s.state
	if state == nil {
		return a2l.ErrStateConsumed
	}
	s.state = nil

	var (
		next senderState
		err  error
	)
	switch st := state.(type) {
	case *sender0:
		m0, ok := msg.(Message0)
		if !ok {
			return a2l.ErrUnexpectedMessage
		}
		next, err = st.receive(m0, rng)
	case *sender1:
		m2, ok := msg.(Message2)
		if !ok {
			return a2l.ErrUnexpectedMessage
		}
		next, err = st.receive(m2, rng)
	default:
		return a2l.ErrUnexpectedMessage
	}
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// TransitionOnTransaction consumes the waiting-for-settlement state with
// the tumbler's redeem transaction, observed on-chain or in the mempool.
func (s *Sender) TransitionOnTransaction(redeemTx *wire.MsgTx) error {
	state := s.state
	if state == nil {
		return a2l.ErrStateConsumed
	}
	st, ok := state.(*sender2)
	if !ok {
		s.state = nil
		return a2l.ErrUnexpectedMessage
	}

	// Leave the state alone if the transaction is not the settlement:
	// watching the chain may surface unrelated transactions, and the
	// refund path must survive them.
	sig, err := bitcoin.ExtractSignatureByKey(redeemTx, st.gamma, st.redeemEncSig)
	if err != nil {
		return err
	}
	gamma, err := ecdsa.Recover(st.gamma, st.redeemEncSig, sig)
	if err != nil {
		return err
	}

	s.state = &sender3{alphaMacron: gamma.Mul(st.tau.Invert())}
	return nil
}

func (st *sender0) receive(m Message0, rng io.Reader) (*sender1, error) {
	tau, err := sample.Scalar(rng)
	if err != nil {
		return nil, err
	}
	cpp, err := st.he.PowCiphertext(st.lock.CAlphaPrime, tau, rng)
	if err != nil {
		return nil, err
	}
	return &sender1{
		params: st.params,
		he:     st.he,
		xS:     st.xS,
		xT:     m.XT,
		lock:   st.lock,
		tau:    tau,
		cpp:    cpp,
	}, nil
}

func (st *sender1) receive(m Message2, rng io.Reader) (*sender2, error) {
	// Γ must be the τ-blinding of the lock's point, otherwise the
	// tumbler answered for some other puzzle and the adaptor signature
	// below would pay for a solution the receiver cannot use. Nothing is
	// signed before this holds.
	if !st.he.PowPoint(st.lock.APrime, st.tau).Equal(m.Gamma) {
		return nil, a2l.ErrBlindingCheckFailed
	}

	txs, err := bitcoin.MakeTransactions(
		st.params.PartialFundTransaction,
		st.params.SenderTumblerJointOutputValue(),
		st.params.SenderTumblerJointOutputTakeout(),
		st.xS.PublicKey(), st.xT,
		st.params.Expiry,
		st.params.RedeemIdentity, st.params.RefundIdentity,
	)
	if err != nil {
		return nil, err
	}

	if err := ecdsa.Verify(txs.RefundDigest, m.RefundSig, st.xT); err != nil {
		return nil, err
	}
	refundSigS := ecdsa.Sign(txs.RefundDigest, st.xS)
	// Holding the signed refund before revealing the adaptor signature
	// is the sender's half of the atomicity argument.
	signedRefund, err := bitcoin.CompleteSpendTransaction(
		txs.Refund, txs.JointOutputScript, txs.RefundDigest,
		st.xS.PublicKey(), refundSigS,
		st.xT, m.RefundSig,
	)
	if err != nil {
		return nil, err
	}

	redeemEncSig, err := ecdsa.EncSign(txs.RedeemDigest, st.xS, m.Gamma, rng)
	if err != nil {
		return nil, err
	}

	return &sender2{
		unsignedFund: txs.Fund,
		signedRefund: signedRefund,
		redeemEncSig: redeemEncSig,
		gamma:        m.Gamma,
		tau:          st.tau,
	}, nil
}

// FundTransaction returns the unsigned fund transaction once the sender
// holds its signed refund.
func (s *Sender) FundTransaction() (*wire.MsgTx, error) {
	switch st := s.state.(type) {
	case *sender2:
		return st.unsignedFund, nil
	default:
		return nil, a2l.ErrNoTransaction
	}
}

// RefundTransaction returns the fully signed refund transaction.
func (s *Sender) RefundTransaction() (*wire.MsgTx, error) {
	switch st := s.state.(type) {
	case *sender2:
		return st.signedRefund, nil
	default:
		return nil, a2l.ErrNoTransaction
	}
}

// AlphaMacron returns the unblinded solution ᾱ = β·α once recovered.
func (s *Sender) AlphaMacron() (curve.Scalar, error) {
	st, ok := s.state.(*sender3)
	if !ok {
		return curve.Scalar{}, a2l.ErrNoMessage
	}
	return st.alphaMacron, nil
}
