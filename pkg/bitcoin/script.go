// Package bitcoin builds the on-chain side of a tumble: the fund
// transaction carrying a 2-of-2 joint output, the refund and redeem
// transactions spending it, their BIP143 digests, and the witness
// assembly and inspection the protocol settles through.
package bitcoin

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/luxfi/a2l/pkg/math/curve"
)

var errIdentityKey = errors.New("bitcoin: point at infinity is not a key")

// sortKeys returns the two compressed encodings in lexicographic order.
func sortKeys(a, b curve.Point) (first, second []byte, err error) {
	ab, err := a.MarshalBinary()
	if err != nil {
		return nil, nil, errIdentityKey
	}
	bb, err := b.MarshalBinary()
	if err != nil {
		return nil, nil, errIdentityKey
	}
	if bytes.Compare(ab, bb) <= 0 {
		return ab, bb, nil
	}
	return bb, ab, nil
}

// jointOutputScript builds the witness script both parties must sign to
// spend: <K1> OP_CHECKSIGVERIFY <K2> OP_CHECKSIG over the sorted keys.
// Spending it takes two signatures and no CHECKMULTISIG dummy element,
// which is what keeps the redeem transactions inside the weight budget.
func jointOutputScript(a, b curve.Point) ([]byte, error) {
	k1, k2, err := sortKeys(a, b)
	if err != nil {
		return nil, err
	}
	return txscript.NewScriptBuilder().
		AddData(k1).
		AddOp(txscript.OP_CHECKSIGVERIFY).
		AddData(k2).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// witnessScriptHash wraps a witness script in its P2WSH output script.
func witnessScriptHash(witnessScript []byte) ([]byte, error) {
	scriptHash := sha256.Sum256(witnessScript)
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(scriptHash[:]).
		Script()
}

// payoutScript builds the P2WPKH output script of an identity key.
func payoutScript(identity curve.Point) ([]byte, error) {
	pub, err := identity.MarshalBinary()
	if err != nil {
		return nil, errIdentityKey
	}
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(btcutil.Hash160(pub)).
		Script()
}

// scriptKeys reads the two public keys back out of a joint output script.
func scriptKeys(witnessScript []byte) (k1, k2 []byte, err error) {
	const keyPush = 1 + 33
	want := keyPush + 1 + keyPush + 1
	if len(witnessScript) != want || witnessScript[0] != 33 ||
		witnessScript[keyPush] != txscript.OP_CHECKSIGVERIFY ||
		witnessScript[keyPush+1] != 33 ||
		witnessScript[2*keyPush+1] != txscript.OP_CHECKSIG {
		return nil, nil, fmt.Errorf("bitcoin: not a joint output script")
	}
	return witnessScript[1:keyPush], witnessScript[keyPush+2 : 2*keyPush+1], nil
}
