package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	heSeed  string
	verbose bool

	// Session options
	tumbleAmount int64
	tumblerFee   int64
	feePerWU     int64
	expiry       uint32

	// Benchmark options
	iterations int
	sessions   int

	// Root command
	rootCmd = &cobra.Command{
		Use:   "a2l-cli",
		Short: "CLI tool for the A2L payment hub protocol",
		Long: `A CLI tool for dry-running and benchmarking the A2L payment hub
protocol: the puzzle-promise and puzzle-solver sessions, their settlement
transactions, and the wire cost of a complete tumble.`,
	}

	// Subcommands
	tumbleCmd = &cobra.Command{
		Use:   "tumble",
		Short: "Dry-run a complete tumble",
		Long:  `Run both sub-protocols in-process and print the settlement transactions`,
		RunE:  runTumble,
	}

	bandwidthCmd = &cobra.Command{
		Use:   "bandwidth",
		Short: "Report the wire cost of a tumble",
		Long:  `Serialize every protocol message to CBOR and report the byte totals`,
		RunE:  runBandwidth,
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Run tumble benchmarks",
		Long:  `Time repeated tumbles, optionally across concurrent sessions`,
		RunE:  runBenchmark,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&heSeed, "he-seed", "a2l-cli", "seed for the tumbler's homomorphic encryption key")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Int64Var(&tumbleAmount, "amount", 10_000_000, "tumble amount in satoshi")
	rootCmd.PersistentFlags().Int64Var(&tumblerFee, "fee", 10_000, "tumbler fee in satoshi")
	rootCmd.PersistentFlags().Int64Var(&feePerWU, "fee-per-wu", 15, "spend transaction fee per weight unit")
	rootCmd.PersistentFlags().Uint32Var(&expiry, "expiry", 144, "absolute locktime of the refund transactions")

	benchCmd.Flags().IntVar(&iterations, "iterations", 10, "number of tumbles per session")
	benchCmd.Flags().IntVar(&sessions, "sessions", 1, "number of concurrent sessions")

	rootCmd.AddCommand(tumbleCmd)
	rootCmd.AddCommand(bandwidthCmd)
	rootCmd.AddCommand(benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
