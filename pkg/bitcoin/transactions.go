package bitcoin

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/luxfi/a2l/pkg/ecdsa"
	"github.com/luxfi/a2l/pkg/math/curve"
)

// MaxSatisfactionWeight is the worst-case witness weight of a joint
// output spend: two 72 byte DER signatures, the 70 byte witness script
// and the item framing, rounded up. Fee accounting is normative on this
// constant: every joint output carries MaxSatisfactionWeight times the
// session's fee rate on top of the value it forwards.
const MaxSatisfactionWeight = 222

var (
	// ErrNoWitnessSignature is returned when a transaction's witness does
	// not contain the signature being looked for.
	ErrNoWitnessSignature = errors.New("bitcoin: witness signature not found")

	errNoInput = errors.New("bitcoin: transaction has no input")
)

// Digest is a BIP143 signature hash.
type Digest = [32]byte

// Transactions is the transaction trio of one joint output: the unsigned
// fund transaction creating it, the unsigned refund and redeem spending
// it, and the SIGHASH_ALL digests both parties sign.
type Transactions struct {
	Fund   *wire.MsgTx
	Refund *wire.MsgTx
	Redeem *wire.MsgTx

	// JointOutputScript is the witness script of the 2-of-2 output.
	JointOutputScript []byte
	// JointOutputIndex is the output's position in Fund.
	JointOutputIndex int
	// JointOutputValue is the output's value in satoshi.
	JointOutputValue btcutil.Amount

	RefundDigest Digest
	RedeemDigest Digest
}

// MakeTransactions builds the trio on top of partialFund, which must be
// fully funded except for the joint output. The joint output pays
// jointValue to the sorted pair {Xa, Xb}; refund pays takeoutValue to
// refundIdentity and only becomes valid at expiry; redeem pays
// takeoutValue to redeemIdentity with no locktime.
func MakeTransactions(
	partialFund *wire.MsgTx,
	jointValue, takeoutValue btcutil.Amount,
	Xa, Xb curve.Point,
	expiry uint32,
	redeemIdentity, refundIdentity curve.Point,
) (*Transactions, error) {
	witnessScript, err := jointOutputScript(Xa, Xb)
	if err != nil {
		return nil, err
	}
	outputScript, err := witnessScriptHash(witnessScript)
	if err != nil {
		return nil, err
	}

	fund := partialFund.Copy()
	fund.AddTxOut(wire.NewTxOut(int64(jointValue), outputScript))
	jointIndex := len(fund.TxOut) - 1

	redeemScript, err := payoutScript(redeemIdentity)
	if err != nil {
		return nil, err
	}
	refundScript, err := payoutScript(refundIdentity)
	if err != nil {
		return nil, err
	}

	fundHash := fund.TxHash()
	refund := spendTransaction(fundHash, jointIndex, takeoutValue, refundScript, expiry)
	redeem := spendTransaction(fundHash, jointIndex, takeoutValue, redeemScript, 0)

	refundDigest, err := spendDigest(refund, witnessScript, outputScript, jointValue)
	if err != nil {
		return nil, err
	}
	redeemDigest, err := spendDigest(redeem, witnessScript, outputScript, jointValue)
	if err != nil {
		return nil, err
	}

	return &Transactions{
		Fund:              fund,
		Refund:            refund,
		Redeem:            redeem,
		JointOutputScript: witnessScript,
		JointOutputIndex:  jointIndex,
		JointOutputValue:  jointValue,
		RefundDigest:      refundDigest,
		RedeemDigest:      redeemDigest,
	}, nil
}

func spendTransaction(fundHash chainhash.Hash, jointIndex int, takeout btcutil.Amount, payScript []byte, lockTime uint32) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	in := wire.NewTxIn(wire.NewOutPoint(&fundHash, uint32(jointIndex)), nil, nil)
	if lockTime != 0 {
		// A final sequence would disable the locktime.
		in.Sequence = wire.MaxTxInSequenceNum - 1
	}
	tx.AddTxIn(in)
	tx.AddTxOut(wire.NewTxOut(int64(takeout), payScript))
	tx.LockTime = lockTime
	return tx
}

func spendDigest(tx *wire.MsgTx, witnessScript, outputScript []byte, value btcutil.Amount) (Digest, error) {
	fetcher := txscript.NewCannedPrevOutputFetcher(outputScript, int64(value))
	hashes := txscript.NewTxSigHashes(tx, fetcher)
	digest, err := txscript.CalcWitnessSigHash(witnessScript, hashes, txscript.SigHashAll, tx, 0, int64(value))
	if err != nil {
		return Digest{}, fmt.Errorf("bitcoin: computing sighash: %w", err)
	}
	var out Digest
	copy(out[:], digest)
	return out, nil
}

// CompleteSpendTransaction attaches the two-party witness to a spend of
// the joint output guarded by witnessScript. Both signatures are checked
// against digest under their keys before anything is assembled; the
// witness stack order follows the script's sorted keys.
func CompleteSpendTransaction(
	tx *wire.MsgTx,
	witnessScript []byte,
	digest Digest,
	Xa curve.Point, sigA ecdsa.Signature,
	Xb curve.Point, sigB ecdsa.Signature,
) (*wire.MsgTx, error) {
	if len(tx.TxIn) == 0 {
		return nil, errNoInput
	}
	if err := ecdsa.Verify(digest, sigA, Xa); err != nil {
		return nil, err
	}
	if err := ecdsa.Verify(digest, sigB, Xb); err != nil {
		return nil, err
	}

	k1, _, err := scriptKeys(witnessScript)
	if err != nil {
		return nil, err
	}
	aBytes, err := Xa.MarshalBinary()
	if err != nil {
		return nil, errIdentityKey
	}
	sig1, sig2 := sigA, sigB
	if !bytes.Equal(aBytes, k1) {
		sig1, sig2 = sigB, sigA
	}

	signed := tx.Copy()
	signed.TxIn[0].Witness = wire.TxWitness{
		witnessSignature(sig2),
		witnessSignature(sig1),
		witnessScript,
	}
	return signed, nil
}

// witnessSignature encodes a signature as DER plus the SIGHASH_ALL byte.
func witnessSignature(sig ecdsa.Signature) []byte {
	r := modNScalar(sig.R)
	s := modNScalar(sig.S)
	return append(btcecdsa.NewSignature(r, s).Serialize(), byte(txscript.SigHashAll))
}

func modNScalar(s curve.Scalar) *btcec.ModNScalar {
	b := s.Bytes()
	var m btcec.ModNScalar
	m.SetByteSlice(b[:])
	return &m
}

// ExtractSignatureByKey finds the witness signature that is the
// decryption of esig under the discrete log of Y, i.e. the signature
// published by whoever could open the adaptor. It walks every witness
// element of the transaction and round-trips the recovery check.
func ExtractSignatureByKey(tx *wire.MsgTx, Y curve.Point, esig ecdsa.EncryptedSignature) (ecdsa.Signature, error) {
	for _, in := range tx.TxIn {
		for _, item := range in.Witness {
			sig, ok := parseWitnessSignature(item)
			if !ok {
				continue
			}
			if _, err := ecdsa.Recover(Y, esig, sig); err == nil {
				return sig, nil
			}
		}
	}
	return ecdsa.Signature{}, ErrNoWitnessSignature
}

// parseWitnessSignature reads a DER signature plus sighash byte back into
// (r, s) form. Witness elements that are not signatures are skipped.
func parseWitnessSignature(item []byte) (ecdsa.Signature, bool) {
	if len(item) < 9 {
		return ecdsa.Signature{}, false
	}
	der := item[:len(item)-1]
	if der[0] != 0x30 || int(der[1]) != len(der)-2 {
		return ecdsa.Signature{}, false
	}
	r, rest, ok := parseDERInt(der[2:])
	if !ok {
		return ecdsa.Signature{}, false
	}
	s, rest, ok2 := parseDERInt(rest)
	if !ok2 || len(rest) != 0 {
		return ecdsa.Signature{}, false
	}
	var sig ecdsa.Signature
	if err := sig.R.UnmarshalBinary(r[:]); err != nil {
		return ecdsa.Signature{}, false
	}
	if err := sig.S.UnmarshalBinary(s[:]); err != nil {
		return ecdsa.Signature{}, false
	}
	return sig, true
}

// parseDERInt reads one DER INTEGER into a 32 byte big-endian value.
func parseDERInt(data []byte) ([32]byte, []byte, bool) {
	var out [32]byte
	if len(data) < 2 || data[0] != 0x02 {
		return out, nil, false
	}
	length := int(data[1])
	if length == 0 || len(data) < 2+length {
		return out, nil, false
	}
	value := data[2 : 2+length]
	// Strip the sign padding byte DER adds for high values.
	if value[0] == 0x00 {
		value = value[1:]
	}
	if len(value) > 32 {
		return out, nil, false
	}
	copy(out[32-len(value):], value)
	return out, data[2+length:], true
}

// TransactionWeight returns the BIP141 weight of tx.
func TransactionWeight(tx *wire.MsgTx) int {
	return tx.SerializeSizeStripped()*3 + tx.SerializeSize()
}
