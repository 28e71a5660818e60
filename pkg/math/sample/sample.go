// Package sample draws uniformly random field elements from an io.Reader.
package sample

import (
	"fmt"
	"io"

	"github.com/luxfi/a2l/pkg/math/curve"
)

const maxAttempts = 256

// Scalar returns a uniformly random non-zero scalar read from rand.
func Scalar(rand io.Reader) (curve.Scalar, error) {
	var buf [curve.ScalarBytes]byte
	for i := 0; i < maxAttempts; i++ {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return curve.Scalar{}, fmt.Errorf("sample: reading randomness: %w", err)
		}
		var s curve.Scalar
		if err := s.UnmarshalBinary(buf[:]); err != nil {
			// >= N, try again to stay uniform.
			continue
		}
		if s.IsZero() {
			continue
		}
		return s, nil
	}
	return curve.Scalar{}, fmt.Errorf("sample: rng kept producing out-of-range scalars")
}

// KeyPair returns a key pair with a uniformly random secret key.
func KeyPair(rand io.Reader) (curve.KeyPair, error) {
	sk, err := Scalar(rand)
	if err != nil {
		return curve.KeyPair{}, err
	}
	return curve.NewKeyPair(sk)
}
