// Package tumble wires the two sub-protocols into whole-tumble roles: a
// Sender that consumes the receiver's Lock and runs the solver session,
// and a Receiver that runs the promise session and finishes its redeem
// from the sender's unblinded solution. It also carries the dry-run
// harness the end-to-end tests and the CLI drive.
package tumble

import (
	"io"

	"github.com/btcsuite/btcd/wire"

	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/protocols/a2l"
	"github.com/luxfi/a2l/protocols/a2l/promise"
	"github.com/luxfi/a2l/protocols/a2l/solver"
)

// Receiver spans both sub-protocols: the promise session against the
// tumbler, then the solver tail against the sender.
type Receiver struct {
	promise *promise.Receiver
	solver  *solver.Receiver
}

// NewReceiver opens the promise session.
func NewReceiver(params a2l.Params, he *hsmcl.PublicKey, rng io.Reader) (*Receiver, error) {
	p, err := promise.NewReceiver(params, he, rng)
	if err != nil {
		return nil, err
	}
	return &Receiver{promise: p}, nil
}

// TransitionPromise drives the promise-side state machine. Completing it
// arms the solver tail automatically.
func (r *Receiver) TransitionPromise(msg promise.Message, rng io.Reader) error {
	if r.solver != nil {
		return a2l.ErrUnexpectedMessage
	}
	if err := r.promise.Transition(msg, rng); err != nil {
		return err
	}
	if out, err := r.promise.Output(); err == nil {
		r.solver = solver.NewReceiver(solver.PromisedRedeem{
			XR:                out.XR,
			XT:                out.XT,
			UnsignedRedeem:    out.UnsignedRedeem,
			JointOutputScript: out.JointOutputScript,
			RedeemDigest:      out.RedeemDigest,
			RedeemEncSig:      out.RedeemEncSig,
			RedeemSigR:        out.RedeemSigR,
			Beta:              out.Beta,
		})
	}
	return nil
}

// NextPromiseMessage returns the promise-side outbound message; after the
// final promise round this is the Lock addressed to the sender.
func (r *Receiver) NextPromiseMessage() (promise.Message, error) {
	return r.promise.NextMessage()
}

// TransitionSolver consumes the sender's ᾱ message.
func (r *Receiver) TransitionSolver(msg solver.Message) error {
	if r.solver == nil {
		return a2l.ErrUnexpectedMessage
	}
	return r.solver.Transition(msg)
}

// RedeemTransaction returns the signed redeem once the solution arrived.
func (r *Receiver) RedeemTransaction() (*wire.MsgTx, error) {
	if r.solver == nil {
		return nil, a2l.ErrNoTransaction
	}
	return r.solver.RedeemTransaction()
}

// Sender spans both sub-protocols: it learns the Lock from the
// receiver's final promise message and pays the tumbler to solve it.
type Sender struct {
	params a2l.Params
	he     *hsmcl.PublicKey
	lock   *a2l.Lock
	solver *solver.Sender
}

// NewSender prepares a sender for the solver session. params are the
// solver-side session parameters.
func NewSender(params a2l.Params, he *hsmcl.PublicKey) *Sender {
	return &Sender{params: params, he: he}
}

// TransitionPromise consumes the receiver's Lock message.
func (s *Sender) TransitionPromise(msg promise.Message) error {
	m3, ok := msg.(promise.Message3)
	if !ok || s.lock != nil {
		return a2l.ErrUnexpectedMessage
	}
	lock := m3.Lock
	s.lock = &lock
	return nil
}

// TransitionSolver drives the solver-side state machine. The first
// solver message arms the session from the stored Lock.
func (s *Sender) TransitionSolver(msg solver.Message, rng io.Reader) error {
	if s.solver == nil {
		if s.lock == nil {
			return a2l.ErrUnexpectedMessage
		}
		sdr, err := solver.NewSender(s.params, *s.lock, s.he, rng)
		if err != nil {
			return err
		}
		s.solver = sdr
	}
	return s.solver.Transition(msg, rng)
}

// TransitionOnTransaction feeds the sender an observed transaction.
func (s *Sender) TransitionOnTransaction(tx *wire.MsgTx) error {
	if s.solver == nil {
		return a2l.ErrUnexpectedMessage
	}
	return s.solver.TransitionOnTransaction(tx)
}

// NextSolverMessage returns the solver-side outbound message; after
// settlement this is the ᾱ message addressed to the receiver.
func (s *Sender) NextSolverMessage() (solver.Message, error) {
	if s.solver == nil {
		return nil, a2l.ErrNoMessage
	}
	return s.solver.NextMessage()
}

// FundTransaction returns the unsigned fund transaction once the sender
// holds its signed refund.
func (s *Sender) FundTransaction() (*wire.MsgTx, error) {
	if s.solver == nil {
		return nil, a2l.ErrNoTransaction
	}
	return s.solver.FundTransaction()
}

// RefundTransaction returns the signed refund transaction.
func (s *Sender) RefundTransaction() (*wire.MsgTx, error) {
	if s.solver == nil {
		return nil, a2l.ErrNoTransaction
	}
	return s.solver.RefundTransaction()
}
