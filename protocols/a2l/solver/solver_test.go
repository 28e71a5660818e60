package solver_test

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/a2l/internal/test"
	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/pkg/math/sample"
	"github.com/luxfi/a2l/protocols/a2l"
	"github.com/luxfi/a2l/protocols/a2l/promise"
	"github.com/luxfi/a2l/protocols/a2l/solver"
)

func testParams(t *testing.T, amount, fee int64) a2l.Params {
	t.Helper()
	redeemID, err := sample.KeyPair(rand.Reader)
	require.NoError(t, err)
	refundID, err := sample.KeyPair(rand.Reader)
	require.NoError(t, err)
	return a2l.Params{
		RedeemIdentity:         redeemID.PublicKey(),
		RefundIdentity:         refundID.PublicKey(),
		Expiry:                 144,
		TumbleAmount:           btcutil.Amount(amount),
		TumblerFee:             btcutil.Amount(fee),
		SpendTxFeePerWU:        10,
		PartialFundTransaction: wire.NewMsgTx(2),
	}
}

// runPromise produces the receiver-side material and the Lock the solver
// protocol starts from.
func runPromise(t *testing.T, he *hsmcl.SecretKey) (solver.PromisedRedeem, a2l.Lock) {
	t.Helper()
	params := testParams(t, 10_000_000, 0)

	tumbler, err := promise.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	receiver, err := promise.NewReceiver(params, he.Public(), rand.Reader)
	require.NoError(t, err)

	m0, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, receiver.Transition(m0, rand.Reader))
	m1, err := receiver.NextMessage()
	require.NoError(t, err)
	require.NoError(t, tumbler.Transition(m1, rand.Reader))
	m2, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, receiver.Transition(m2, rand.Reader))

	out, err := receiver.Output()
	require.NoError(t, err)
	return solver.PromisedRedeem{
		XR:                out.XR,
		XT:                out.XT,
		UnsignedRedeem:    out.UnsignedRedeem,
		JointOutputScript: out.JointOutputScript,
		RedeemDigest:      out.RedeemDigest,
		RedeemEncSig:      out.RedeemEncSig,
		RedeemSigR:        out.RedeemSigR,
		Beta:              out.Beta,
	}, out.Lock
}

func TestHappyPath(t *testing.T) {
	he := test.HSMCL(t)
	promised, lock := runPromise(t, he)
	params := testParams(t, 10_000_000, 10_000)

	tumbler, err := solver.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	sender, err := solver.NewSender(params, lock, he.Public(), rand.Reader)
	require.NoError(t, err)
	receiver := solver.NewReceiver(promised)

	m0, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, sender.Transition(m0, rand.Reader))

	m1, err := sender.NextMessage()
	require.NoError(t, err)
	require.NoError(t, tumbler.Transition(m1, rand.Reader))

	m2, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, sender.Transition(m2, rand.Reader))

	// Before revealing the adaptor signature the sender already holds
	// its escape hatch.
	refund, err := sender.RefundTransaction()
	require.NoError(t, err)
	assert.Len(t, refund.TxIn[0].Witness, 3)
	fund, err := sender.FundTransaction()
	require.NoError(t, err)
	require.Len(t, fund.TxOut, 1)

	m3, err := sender.NextMessage()
	require.NoError(t, err)
	require.NoError(t, tumbler.Transition(m3, rand.Reader))

	redeem, err := tumbler.RedeemTransaction()
	require.NoError(t, err)
	assert.Len(t, redeem.TxIn[0].Witness, 3)

	// Settlement: the broadcast redeem hands the sender γ, which
	// unblinds to ᾱ = β·α for the receiver.
	require.NoError(t, sender.TransitionOnTransaction(redeem))
	m4, err := sender.NextMessage()
	require.NoError(t, err)
	require.NoError(t, receiver.Transition(m4))

	receiverRedeem, err := receiver.RedeemTransaction()
	require.NoError(t, err)
	assert.Len(t, receiverRedeem.TxIn[0].Witness, 3)
}

func TestBlindingGuard(t *testing.T) {
	he := test.HSMCL(t)
	_, lock := runPromise(t, he)
	params := testParams(t, 10_000_000, 0)

	tumbler, err := solver.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	sender, err := solver.NewSender(params, lock, he.Public(), rand.Reader)
	require.NoError(t, err)

	m0, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, sender.Transition(m0, rand.Reader))
	m1, err := sender.NextMessage()
	require.NoError(t, err)
	require.NoError(t, tumbler.Transition(m1, rand.Reader))

	m2, err := tumbler.NextMessage()
	require.NoError(t, err)
	tampered := m2.(solver.Message2)
	tampered.Gamma = tampered.Gamma.Add(tampered.Gamma)

	// The sender must refuse before signing anything at all.
	err = sender.Transition(tampered, rand.Reader)
	assert.ErrorIs(t, err, a2l.ErrBlindingCheckFailed)
	_, err = sender.FundTransaction()
	assert.ErrorIs(t, err, a2l.ErrNoTransaction)
	_, err = sender.RefundTransaction()
	assert.ErrorIs(t, err, a2l.ErrNoTransaction)
}

func TestTumblerRejectsUnpayableAdaptorSignature(t *testing.T) {
	he := test.HSMCL(t)
	_, lock := runPromise(t, he)
	params := testParams(t, 10_000_000, 0)

	tumbler, err := solver.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	sender, err := solver.NewSender(params, lock, he.Public(), rand.Reader)
	require.NoError(t, err)

	m0, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, sender.Transition(m0, rand.Reader))

	m1, err := sender.NextMessage()
	require.NoError(t, err)
	require.NoError(t, tumbler.Transition(m1, rand.Reader))

	m2, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, sender.Transition(m2, rand.Reader))

	m3, err := sender.NextMessage()
	require.NoError(t, err)
	tampered := m3.(solver.Message3)
	tampered.RedeemEncSig.SHat = tampered.RedeemEncSig.SHat.Add(tampered.RedeemEncSig.SHat)

	// γ decrypts the mangled pre-signature to garbage; paying out
	// against it would leave the tumbler unable to settle.
	assert.ErrorIs(t, tumbler.Transition(tampered, rand.Reader), a2l.ErrBadSignature)
}

func TestOutOfOrderMessageAborts(t *testing.T) {
	he := test.HSMCL(t)
	_, lock := runPromise(t, he)
	params := testParams(t, 10_000_000, 0)

	sender, err := solver.NewSender(params, lock, he.Public(), rand.Reader)
	require.NoError(t, err)

	err = sender.Transition(solver.Message2{}, rand.Reader)
	assert.ErrorIs(t, err, a2l.ErrUnexpectedMessage)
	assert.ErrorIs(t, sender.Transition(solver.Message0{}, rand.Reader), a2l.ErrStateConsumed)
}

func TestSettlementObservationIgnoresForeignTransaction(t *testing.T) {
	he := test.HSMCL(t)
	_, lock := runPromise(t, he)
	params := testParams(t, 10_000_000, 0)

	tumbler, err := solver.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	sender, err := solver.NewSender(params, lock, he.Public(), rand.Reader)
	require.NoError(t, err)

	m0, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, sender.Transition(m0, rand.Reader))
	m1, err := sender.NextMessage()
	require.NoError(t, err)
	require.NoError(t, tumbler.Transition(m1, rand.Reader))
	m2, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, sender.Transition(m2, rand.Reader))

	// A transaction without the settling signature must not consume the
	// waiting state: the refund path has to survive chain noise.
	foreign := wire.NewMsgTx(2)
	err = sender.TransitionOnTransaction(foreign)
	assert.Error(t, err)

	refund, err := sender.RefundTransaction()
	require.NoError(t, err)
	assert.NotNil(t, refund)
}
