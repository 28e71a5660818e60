package promise

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

// Receiver is the receiver's handle on one puzzle-promise session.
type Receiver struct {
	state receiverState
}

type receiverState interface {
	isReceiverState()
}

// receiver0 waits for the tumbler's puzzle.
type receiver0 struct {
	params a2l.Params
	he     *hsmcl.PublicKey
	xR     curve.KeyPair
}

// receiver1 has verified the puzzle and the joint output and waits for
// the adaptor-signature promise.
type receiver1 struct {
	params a2l.Params
	he     *hsmcl.PublicKey
	xR     curve.KeyPair
	xT     curve.Point
	puzzle hsmcl.Puzzle
	txs    *bitcoin.Transactions
}

// receiver2 holds everything needed to redeem once the puzzle solution
// is known, plus the Lock for the sender.
type receiver2 struct {
	xR           curve.KeyPair
	xT           curve.Point
	txs          *bitcoin.Transactions
	redeemEncSig ecdsa.EncryptedSignature
	redeemSigR   ecdsa.Signature
	beta         curve.Scalar
	lock         a2l.Lock
}

func (receiver0) isReceiverState() {}
func (receiver1) isReceiverState() {}
func (receiver2) isReceiverState() {}

// NewReceiver opens a session with a fresh signing key.
func NewReceiver(params a2l.Params, he *hsmcl.PublicKey, rng io.Reader) (*Receiver, error) {
	xR, err := sample.KeyPair(rng)
	if err != nil {
		return nil, err
	}
	return &Receiver{state: &receiver0{params: params, he: he, xR: xR}}, nil
}

// NextMessage returns the message the current state owes its peer. The
// receiver's final message is addressed to the sender.
func (r *Receiver) NextMessage() (Message, error) {
	switch s := r.state.(type) {
	case *receiver1:
		return Message1{
			XR:        s.xR.PublicKey(),
			RefundSig: ecdsa.Sign(s.txs.RefundDigest, s.xR),
		}, nil
	case *receiver2:
		return Message3{Lock: s.lock}, nil
	default:
		return nil, a2l.ErrNoMessage
	}
}

// Transition consumes the current state with an incoming message.
func (r *Receiver) Transition(msg Message, rng io.Reader) error {
	state := r.state
	if state == nil {
		return a2l.ErrStateConsumed
	}
	r.state = nil

	var (
		next receiverState
		err  error
	)
	switch s := state.(type) {
	case *receiver0:
		m0, ok := msg.(Message0)
		if !ok {
			return a2l.ErrUnexpectedMessage
		}
		next, err = s.receive(m0)
	case *receiver1:
		m2, ok := msg.(Message2)
		if !ok {
			return a2l.ErrUnexpectedMessage
		}
		next, err = s.receive(m2, rng)
	default:
		return a2l.ErrUnexpectedMessage
	}
	if err != nil {
		return err
	}
	r.state = next
	return nil
}

func (s *receiver0) receive(m Message0) (*receiver1, error) {
	// The puzzle must bind A and C_α to one plaintext before anything
	// downstream treats A as the promise key.
	if err := hsmcl.VerifyPuzzle(s.he, m.Puzzle); err != nil {
		return nil, err
	}

	txs, err := bitcoin.MakeTransactions(
		s.params.PartialFundTransaction,
		s.params.TumblerReceiverJointOutputValue(),
		s.params.TumblerReceiverJointOutputTakeout(),
		m.XT, s.xR.PublicKey(),
		s.params.Expiry,
		s.params.RedeemIdentity, s.params.RefundIdentity,
	)
	if err != nil {
		return nil, err
	}

	return &receiver1{
		params: s.params,
		he:     s.he,
		xR:     s.xR,
		xT:     m.XT,
		puzzle: m.Puzzle,
		txs:    txs,
	}, nil
}

func (s *receiver1) receive(m Message2, rng io.Reader) (*receiver2, error) {
	if err := ecdsa.EncVerify(s.xT, s.puzzle.A, s.txs.RedeemDigest, m.RedeemEncSig); err != nil {
		return nil, err
	}

	beta, err := sample.Scalar(rng)
	if err != nil {
		return nil, err
	}
	cPrime, err := s.he.PowCiphertext(s.puzzle.C, beta, rng)
	if err != nil {
		return nil, err
	}
	aPrime := s.he.PowPoint(s.puzzle.A, beta)

	return &receiver2{
		xR:           s.xR,
		xT:           s.xT,
		txs:          s.txs,
		redeemEncSig: m.RedeemEncSig,
		redeemSigR:   ecdsa.Sign(s.txs.RedeemDigest, s.xR),
		beta:         beta,
		lock:         a2l.Lock{CAlphaPrime: cPrime, APrime: aPrime},
	}, nil
}

// Output is the material the receiver carries out of a completed
// promise session and into the solver protocol.
type Output struct {
	XR                curve.KeyPair
	XT                curve.Point
	UnsignedRedeem    *wire.MsgTx
	JointOutputScript []byte
	RedeemDigest      bitcoin.Digest
	RedeemEncSig      ecdsa.EncryptedSignature
	RedeemSigR        ecdsa.Signature
	Beta              curve.Scalar
	Lock              a2l.Lock
}

// Output returns the session outputs once the promise completed.
func (r *Receiver) Output() (Output, error) {
	s, ok := r.state.(*receiver2)
	if !ok {
		return Output{}, a2l.ErrNoTransaction
	}
	return Output{
		XR:                s.xR,
		XT:                s.xT,
		UnsignedRedeem:    s.txs.Redeem,
		JointOutputScript: s.txs.JointOutputScript,
		RedeemDigest:      s.txs.RedeemDigest,
		RedeemEncSig:      s.redeemEncSig,
		RedeemSigR:        s.redeemSigR,
		Beta:              s.beta,
		Lock:              s.lock,
	}, nil
}
