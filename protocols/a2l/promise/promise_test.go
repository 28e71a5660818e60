package promise_test

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/a2l/internal/test"
	"github.com/luxfi/a2l/pkg/math/sample"
	"github.com/luxfi/a2l/protocols/a2l"
	"github.com/luxfi/a2l/protocols/a2l/promise"
)

func testParams(t *testing.T, amount int64) a2l.Params {
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
		SpendTxFeePerWU:        10,
		PartialFundTransaction: wire.NewMsgTx(2),
	}
}

func TestHappyPath(t *testing.T) {
	he := test.HSMCL(t)
	params := testParams(t, 10_000_000)

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

	m3, err := receiver.NextMessage()
	require.NoError(t, err)
	lock, ok := m3.(promise.Message3)
	require.True(t, ok, "final receiver message is the Lock")
	assert.False(t, lock.Lock.APrime.IsIdentity())

	fund, err := tumbler.FundTransaction()
	require.NoError(t, err)
	refund, err := tumbler.RefundTransaction()
	require.NoError(t, err)
	require.Len(t, fund.TxOut, 1, "fund carries the joint output")
	require.Len(t, refund.TxIn, 1)
	assert.Len(t, refund.TxIn[0].Witness, 3, "refund must be fully signed")

	out, err := receiver.Output()
	require.NoError(t, err)
	assert.NotNil(t, out.UnsignedRedeem)
	assert.False(t, out.Beta.IsZero())
}

func TestParamsDivergenceAborts(t *testing.T) {
	he := test.HSMCL(t)
	params := testParams(t, 10_000_000)

	divergent := params
	divergent.TumbleAmount = params.TumbleAmount / 2

	tumbler, err := promise.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	receiver, err := promise.NewReceiver(divergent, he.Public(), rand.Reader)
	require.NoError(t, err)

	m0, err := tumbler.NextMessage()
	require.NoError(t, err)
	require.NoError(t, receiver.Transition(m0, rand.Reader))

	m1, err := receiver.NextMessage()
	require.NoError(t, err)

	// The receiver signed the refund of a different joint output; the
	// first signature verification is where the divergence surfaces.
	err = tumbler.Transition(m1, rand.Reader)
	assert.ErrorIs(t, err, a2l.ErrBadSignature)
}

func TestReceiverRejectsTamperedPuzzle(t *testing.T) {
	he := test.HSMCL(t)
	params := testParams(t, 10_000_000)

	tumbler, err := promise.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	receiver, err := promise.NewReceiver(params, he.Public(), rand.Reader)
	require.NoError(t, err)

	m0, err := tumbler.NextMessage()
	require.NoError(t, err)
	tampered := m0.(promise.Message0)
	tampered.Puzzle.A = tampered.Puzzle.A.Add(tampered.Puzzle.A)

	assert.ErrorIs(t, receiver.Transition(tampered, rand.Reader), a2l.ErrBadProof)
}

func TestOutOfOrderMessageAborts(t *testing.T) {
	he := test.HSMCL(t)
	params := testParams(t, 10_000_000)

	tumbler, err := promise.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	receiver, err := promise.NewReceiver(params, he.Public(), rand.Reader)
	require.NoError(t, err)

	// Message2 before Message0 is out of protocol order.
	err = receiver.Transition(promise.Message2{}, rand.Reader)
	assert.ErrorIs(t, err, a2l.ErrUnexpectedMessage)

	// The aborted session is consumed for good.
	m0, err := tumbler.NextMessage()
	require.NoError(t, err)
	assert.ErrorIs(t, receiver.Transition(m0, rand.Reader), a2l.ErrStateConsumed)
}

func TestAccessorsBeforeFinalState(t *testing.T) {
	he := test.HSMCL(t)
	params := testParams(t, 10_000_000)

	tumbler, err := promise.NewTumbler(params, he, rand.Reader)
	require.NoError(t, err)
	receiver, err := promise.NewReceiver(params, he.Public(), rand.Reader)
	require.NoError(t, err)

	_, err = tumbler.FundTransaction()
	assert.ErrorIs(t, err, a2l.ErrNoTransaction)
	_, err = tumbler.RefundTransaction()
	assert.ErrorIs(t, err, a2l.ErrNoTransaction)
	_, err = receiver.Output()
	assert.ErrorIs(t, err, a2l.ErrNoTransaction)
	_, err = receiver.NextMessage()
	assert.ErrorIs(t, err, a2l.ErrNoMessage)
}
