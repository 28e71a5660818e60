// Package test provides fixtures shared by the test suites.
package test

import (
	"sync"
	"testing"

	"github.com/luxfi/a2l/pkg/hsmcl"
)

var (
	heOnce sync.Once
	heKey  *hsmcl.SecretKey
	heErr  error
)

// HSMCL returns a process-wide homomorphic encryption key. Key
// generation is deterministic from a fixed seed and runs once; the
// protocol suites all share it the way one tumbler would.
func HSMCL(tb testing.TB) *hsmcl.SecretKey {
	tb.Helper()
	heOnce.Do(func() {
		heKey, _, heErr = hsmcl.KeyGen([]byte("a2l/test/hsmcl"))
	})
	if heErr != nil {
		tb.Fatalf("generating HE key: %v", heErr)
	}
	return heKey
}
