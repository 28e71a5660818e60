package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/spf13/cobra"

	"github.com/luxfi/a2l/pkg/bitcoin"
	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/protocols/a2l/tumble"
)

func sessionConfig() tumble.Config {
	return tumble.Config{
		TumbleAmount:    btcutil.Amount(tumbleAmount),
		TumblerFee:      btcutil.Amount(tumblerFee),
		SpendTxFeePerWU: btcutil.Amount(feePerWU),
		Expiry:          expiry,
	}
}

func heKey() (*hsmcl.SecretKey, error) {
	fmt.Printf("Deriving HE key from seed %q...\n", heSeed)
	sk, _, err := hsmcl.KeyGen([]byte(heSeed))
	if err != nil {
		return nil, fmt.Errorf("generating HE key: %w", err)
	}
	return sk, nil
}

func runTumble(cmd *cobra.Command, args []string) error {
	sk, err := heKey()
	if err != nil {
		return err
	}

	chain, err := tumble.RunHappyPath(sessionConfig(), sk, rand.Reader, nil)
	if err != nil {
		return fmt.Errorf("tumble failed: %w", err)
	}

	fmt.Printf("\n=== Settlement transactions ===\n")
	printTransaction("tumbler fund", chain.TumblerFund)
	printTransaction("receiver redeem", chain.ReceiverRedeem)
	printTransaction("sender fund", chain.SenderFund)
	printTransaction("tumbler redeem", chain.TumblerRedeem)
	return nil
}

func printTransaction(name string, tx *wire.MsgTx) {
	fmt.Printf("\n%s:\n", name)
	fmt.Printf("  txid:   %s\n", tx.TxHash())
	fmt.Printf("  weight: %d WU\n", bitcoin.TransactionWeight(tx))
	if verbose {
		var buf bytes.Buffer
		if err := tx.Serialize(&buf); err == nil {
			fmt.Printf("  raw:    %s\n", hex.EncodeToString(buf.Bytes()))
		}
	}
}

func runBandwidth(cmd *cobra.Command, args []string) error {
	sk, err := heKey()
	if err != nil {
		return err
	}

	meter := &tumble.BandwidthMeter{}
	if _, err := tumble.RunHappyPath(sessionConfig(), sk, rand.Reader, meter); err != nil {
		return fmt.Errorf("tumble failed: %w", err)
	}

	const budget = 7146
	fmt.Printf("\n=== Wire cost ===\n")
	for i, size := range meter.Sizes {
		fmt.Printf("  message %d: %d bytes\n", i, size)
	}
	fmt.Printf("  messages: %d\n", meter.Messages)
	fmt.Printf("  total:    %d bytes (budget %d)\n", meter.Total, budget)
	if meter.Total > budget {
		return fmt.Errorf("bandwidth budget exceeded by %d bytes", meter.Total-budget)
	}
	return nil
}
