package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/a2l/protocols/a2l/tumble"
)

func runBenchmark(cmd *cobra.Command, args []string) error {
	sk, err := heKey()
	if err != nil {
		return err
	}
	cfg := sessionConfig()

	fmt.Printf("\n=== Tumble benchmark ===\n")
	fmt.Printf("sessions: %d, iterations each: %d\n", sessions, iterations)

	start := time.Now()
	var g errgroup.Group
	for s := 0; s < sessions; s++ {
		g.Go(func() error {
			// Sessions share nothing but the ledger; each one draws its
			// own randomness.
			var (
				totalTime time.Duration
				minTime   = time.Hour
				maxTime   time.Duration
			)
			for i := 0; i < iterations; i++ {
				iterStart := time.Now()
				if _, err := tumble.RunHappyPath(cfg, sk, rand.Reader, nil); err != nil {
					return fmt.Errorf("tumble failed: %w", err)
				}
				elapsed := time.Since(iterStart)
				totalTime += elapsed
				if elapsed < minTime {
					minTime = elapsed
				}
				if elapsed > maxTime {
					maxTime = elapsed
				}
			}
			if verbose {
				fmt.Printf("  session avg: %v  min: %v  max: %v\n",
					totalTime/time.Duration(iterations), minTime, maxTime)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := sessions * iterations
	elapsed := time.Since(start)
	fmt.Printf("  tumbles:  %d\n", total)
	fmt.Printf("  elapsed:  %v\n", elapsed)
	fmt.Printf("  per run:  %v\n", elapsed/time.Duration(total))
	return nil
}
