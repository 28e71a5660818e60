package curve_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/a2l/pkg/math/curve"
	"github.com/luxfi/a2l/pkg/math/sample"
)

func TestScalarFieldLaws(t *testing.T) {
	a, err := sample.Scalar(rand.Reader)
	require.NoError(t, err)
	b, err := sample.Scalar(rand.Reader)
	require.NoError(t, err)

	assert.True(t, a.Add(b).Equal(b.Add(a)), "addition commutes")
	assert.True(t, a.Mul(b).Equal(b.Mul(a)), "multiplication commutes")
	assert.True(t, a.Sub(a).IsZero(), "a - a = 0")
	assert.True(t, a.Mul(a.Invert()).Equal(curve.NewScalarUint64(1)), "a·a⁻¹ = 1")
	assert.True(t, a.Add(a.Negate()).IsZero(), "a + (-a) = 0")
}

func TestScalarDistributesOverPoints(t *testing.T) {
	a, err := sample.Scalar(rand.Reader)
	require.NoError(t, err)
	b, err := sample.Scalar(rand.Reader)
	require.NoError(t, err)

	// (a+b)·G == a·G + b·G
	lhs := a.Add(b).ActOnBase()
	rhs := a.ActOnBase().Add(b.ActOnBase())
	assert.True(t, lhs.Equal(rhs))

	// (a·b)·G == a·(b·G)
	lhs = a.Mul(b).ActOnBase()
	rhs = a.Act(b.ActOnBase())
	assert.True(t, lhs.Equal(rhs))
}

func TestScalarMarshalRoundTrip(t *testing.T) {
	s, err := sample.Scalar(rand.Reader)
	require.NoError(t, err)

	data, err := s.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, curve.ScalarBytes)

	var back curve.Scalar
	require.NoError(t, back.UnmarshalBinary(data))
	assert.True(t, s.Equal(back))
}

func TestScalarRejectsNonCanonical(t *testing.T) {
	overOrder := make([]byte, curve.ScalarBytes)
	for i := range overOrder {
		overOrder[i] = 0xff
	}
	var s curve.Scalar
	assert.Error(t, s.UnmarshalBinary(overOrder), "value >= N must be rejected")
	assert.Error(t, s.UnmarshalBinary([]byte{0x01}), "short encoding must be rejected")
}

func TestPointMarshalRoundTrip(t *testing.T) {
	kp, err := sample.KeyPair(rand.Reader)
	require.NoError(t, err)

	data, err := kp.PublicKey().MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, curve.PointBytes)

	var back curve.Point
	require.NoError(t, back.UnmarshalBinary(data))
	assert.True(t, kp.PublicKey().Equal(back))
}

func TestPointRejectsOffCurve(t *testing.T) {
	data := make([]byte, curve.PointBytes)
	data[0] = 0x02
	data[curve.PointBytes-1] = 0x05
	var p curve.Point
	// x = 5 has no square y on secp256k1, so this encoding names no
	// curve point.
	if err := p.UnmarshalBinary(data); err == nil {
		t.Skip("x=5 happened to be on curve; not expected for secp256k1")
	}
}

func TestIdentityHandling(t *testing.T) {
	kp, err := sample.KeyPair(rand.Reader)
	require.NoError(t, err)
	p := kp.PublicKey()

	inf := p.Sub(p)
	assert.True(t, inf.IsIdentity())
	_, err = inf.MarshalBinary()
	assert.Error(t, err, "point at infinity has no wire form")

	assert.True(t, p.Add(inf).Equal(p), "P + 0 = P")
}

func TestNewKeyPairRejectsZero(t *testing.T) {
	_, err := curve.NewKeyPair(curve.Scalar{})
	assert.Error(t, err)
}
