package tumble

import (
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/pkg/math/sample"
	"github.com/luxfi/a2l/protocols/a2l"
	"github.com/luxfi/a2l/protocols/a2l/promise"
	"github.com/luxfi/a2l/protocols/a2l/solver"
)

// Config parameterizes a dry tumble run.
type Config struct {
	TumbleAmount    btcutil.Amount
	TumblerFee      btcutil.Amount
	SpendTxFeePerWU btcutil.Amount
	Expiry          uint32
}

// Blockchain collects the transactions a run would have broadcast.
type Blockchain struct {
	TumblerFund    *wire.MsgTx
	TumblerRedeem  *wire.MsgTx
	TumblerRefund  *wire.MsgTx
	SenderFund     *wire.MsgTx
	SenderRefund   *wire.MsgTx
	ReceiverRedeem *wire.MsgTx
}

// BandwidthMeter sums the CBOR wire size of recorded messages.
type BandwidthMeter struct {
	Messages int
	Total    int
	Sizes    []int
}

// Record serializes msg the way the transport would and accounts for it.
func (m *BandwidthMeter) Record(msg interface{}) error {
	if m == nil {
		return nil
	}
	data, err := cbor.Marshal(msg)
	if err != nil {
		return fmt.Errorf("tumble: serializing message: %w", err)
	}
	m.Messages++
	m.Total += len(data)
	m.Sizes = append(m.Sizes, len(data))
	return nil
}

// sessions draws the payout identities and assembles the per-protocol
// session parameters. Each sub-protocol gets its own identities and its
// own partial fund transaction, so nothing but the Lock ties the two
// sessions together.
func sessions(cfg Config, rng io.Reader) (promiseParams, solverParams a2l.Params, err error) {
	receiverPayout, err := sample.KeyPair(rng)
	if err != nil {
		return
	}
	tumblerPromisePayout, err := sample.KeyPair(rng)
	if err != nil {
		return
	}
	tumblerSolverPayout, err := sample.KeyPair(rng)
	if err != nil {
		return
	}
	senderPayout, err := sample.KeyPair(rng)
	if err != nil {
		return
	}

	promiseParams = a2l.Params{
		RedeemIdentity:         receiverPayout.PublicKey(),
		RefundIdentity:         tumblerPromisePayout.PublicKey(),
		Expiry:                 cfg.Expiry,
		TumbleAmount:           cfg.TumbleAmount,
		SpendTxFeePerWU:        cfg.SpendTxFeePerWU,
		PartialFundTransaction: wire.NewMsgTx(2),
	}
	solverParams = a2l.Params{
		RedeemIdentity:         tumblerSolverPayout.PublicKey(),
		RefundIdentity:         senderPayout.PublicKey(),
		Expiry:                 cfg.Expiry,
		TumbleAmount:           cfg.TumbleAmount,
		TumblerFee:             cfg.TumblerFee,
		SpendTxFeePerWU:        cfg.SpendTxFeePerWU,
		PartialFundTransaction: wire.NewMsgTx(2),
	}
	return
}

// RunHappyPath drives a complete tumble across both sub-protocols with
// every message passing through the meter, and returns the transactions
// that would have settled it.
func RunHappyPath(cfg Config, he *hsmcl.SecretKey, rng io.Reader, meter *BandwidthMeter) (*Blockchain, error) {
	promiseParams, solverParams, err := sessions(cfg, rng)
	if err != nil {
		return nil, err
	}

	chain := &Blockchain{}

	// Puzzle promise: tumbler ↔ receiver, Lock to the sender.
	promiseTumbler, err := promise.NewTumbler(promiseParams, he, rng)
	if err != nil {
		return nil, err
	}
	receiver, err := NewReceiver(promiseParams, he.Public(), rng)
	if err != nil {
		return nil, err
	}
	sender := NewSender(solverParams, he.Public())

	m0, err := promiseTumbler.NextMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(m0); err != nil {
		return nil, err
	}
	if err := receiver.TransitionPromise(m0, rng); err != nil {
		return nil, err
	}

	m1, err := receiver.NextPromiseMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(m1); err != nil {
		return nil, err
	}
	if err := promiseTumbler.Transition(m1, rng); err != nil {
		return nil, err
	}

	m2, err := promiseTumbler.NextMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(m2); err != nil {
		return nil, err
	}
	if err := receiver.TransitionPromise(m2, rng); err != nil {
		return nil, err
	}

	m3, err := receiver.NextPromiseMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(m3); err != nil {
		return nil, err
	}
	if err := sender.TransitionPromise(m3); err != nil {
		return nil, err
	}

	if chain.TumblerFund, err = promiseTumbler.FundTransaction(); err != nil {
		return nil, err
	}

	// Puzzle solver: sender ↔ tumbler, settlement leaks the solution.
	solverTumbler, err := solver.NewTumbler(solverParams, he, rng)
	if err != nil {
		return nil, err
	}

	s0, err := solverTumbler.NextMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(s0); err != nil {
		return nil, err
	}
	if err := sender.TransitionSolver(s0, rng); err != nil {
		return nil, err
	}

	s1, err := sender.NextSolverMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(s1); err != nil {
		return nil, err
	}
	if err := solverTumbler.Transition(s1, rng); err != nil {
		return nil, err
	}

	s2, err := solverTumbler.NextMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(s2); err != nil {
		return nil, err
	}
	if err := sender.TransitionSolver(s2, rng); err != nil {
		return nil, err
	}

	s3, err := sender.NextSolverMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(s3); err != nil {
		return nil, err
	}
	if err := solverTumbler.Transition(s3, rng); err != nil {
		return nil, err
	}

	if chain.SenderFund, err = sender.FundTransaction(); err != nil {
		return nil, err
	}
	if chain.TumblerRedeem, err = solverTumbler.RedeemTransaction(); err != nil {
		return nil, err
	}

	// The broadcast redeem is the sender's settlement observation.
	if err := sender.TransitionOnTransaction(chain.TumblerRedeem); err != nil {
		return nil, err
	}

	s4, err := sender.NextSolverMessage()
	if err != nil {
		return nil, err
	}
	if err := meter.Record(s4); err != nil {
		return nil, err
	}
	if err := receiver.TransitionSolver(s4); err != nil {
		return nil, err
	}

	if chain.ReceiverRedeem, err = receiver.RedeemTransaction(); err != nil {
		return nil, err
	}
	return chain, nil
}

// RunRefund drives both sub-protocols to the point where funds would be
// committed and the tumbler goes silent: both refund paths must already
// be fully signed.
func RunRefund(cfg Config, he *hsmcl.SecretKey, rng io.Reader) (*Blockchain, error) {
	promiseParams, solverParams, err := sessions(cfg, rng)
	if err != nil {
		return nil, err
	}

	chain := &Blockchain{}

	promiseTumbler, err := promise.NewTumbler(promiseParams, he, rng)
	if err != nil {
		return nil, err
	}
	receiver, err := NewReceiver(promiseParams, he.Public(), rng)
	if err != nil {
		return nil, err
	}
	sender := NewSender(solverParams, he.Public())

	m0, err := promiseTumbler.NextMessage()
	if err != nil {
		return nil, err
	}
	if err := receiver.TransitionPromise(m0, rng); err != nil {
		return nil, err
	}
	m1, err := receiver.NextPromiseMessage()
	if err != nil {
		return nil, err
	}
	if err := promiseTumbler.Transition(m1, rng); err != nil {
		return nil, err
	}
	m2, err := promiseTumbler.NextMessage()
	if err != nil {
		return nil, err
	}
	if err := receiver.TransitionPromise(m2, rng); err != nil {
		return nil, err
	}
	m3, err := receiver.NextPromiseMessage()
	if err != nil {
		return nil, err
	}
	if err := sender.TransitionPromise(m3); err != nil {
		return nil, err
	}

	if chain.TumblerFund, err = promiseTumbler.FundTransaction(); err != nil {
		return nil, err
	}
	if chain.TumblerRefund, err = promiseTumbler.RefundTransaction(); err != nil {
		return nil, err
	}

	solverTumbler, err := solver.NewTumbler(solverParams, he, rng)
	if err != nil {
		return nil, err
	}
	s0, err := solverTumbler.NextMessage()
	if err != nil {
		return nil, err
	}
	if err := sender.TransitionSolver(s0, rng); err != nil {
		return nil, err
	}
	s1, err := sender.NextSolverMessage()
	if err != nil {
		return nil, err
	}
	if err := solverTumbler.Transition(s1, rng); err != nil {
		return nil, err
	}
	s2, err := solverTumbler.NextMessage()
	if err != nil {
		return nil, err
	}
	if err := sender.TransitionSolver(s2, rng); err != nil {
		return nil, err
	}

	// The tumbler never answers the adaptor signature; all the sender
	// can do is fund and later refund.
	if chain.SenderFund, err = sender.FundTransaction(); err != nil {
		return nil, err
	}
	if chain.SenderRefund, err = sender.RefundTransaction(); err != nil {
		return nil, err
	}
	return chain, nil
}
