package script

import (
	"crypto/sha256"
	"testing"

	"golang.org/x/crypto/ripemd160"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/blksv/chaincore"
)

// noopHasher hands back a fixed digest for every input, since these
// tests exercise stack-machine semantics rather than transaction
// binding; the signature tests below sign that fixed digest directly.
type noopHasher struct{ hash chaincore.Hash }

func (h noopHasher) CalcSignatureHash(tx *chaincore.Tx, inputIndex int, subScript []byte, hashType byte) (chaincore.Hash, error) {
	return h.hash, nil
}

// push builds the minimal pushdata encoding for data, falling back to
// OP_PUSHDATA1 once a single length byte no longer fits (the redeem
// script in TestP2SHMultisigAcceptAndBitFlipReject is well over 75
// bytes).
func push(data []byte) []byte {
	n := len(data)
	switch {
	case n == 0:
		return []byte{byte(OP_0)}
	case n <= 75:
		return append([]byte{byte(n)}, data...)
	case n <= 255:
		return append([]byte{byte(OP_PUSHDATA1), byte(n)}, data...)
	default:
		panic("push: test data too large for this helper")
	}
}

func TestTrivialPushOnlyScriptSigAccepted(t *testing.T) {
	scriptSig := push([]byte{1, 2, 3})
	scriptPubKey := []byte{byte(OP_NOP), byte(OP_1)}
	err := CorrectlySpends(&chaincore.Tx{}, 0, scriptSig, scriptPubKey, VerifyP2SH, noopHasher{})
	if err != nil {
		t.Fatalf("CorrectlySpends: %v", err)
	}
}

func TestReservedOpcodeFails(t *testing.T) {
	scriptPubKey := []byte{byte(OP_RESERVED)}
	err := CorrectlySpends(&chaincore.Tx{}, 0, nil, scriptPubKey, VerifyP2SH, noopHasher{})
	if err == nil {
		t.Fatalf("CorrectlySpends should fail: OP_RESERVED must never execute")
	}
}

func TestDisabledOpcodeInDeadBranchFails(t *testing.T) {
	scriptPubKey := []byte{
		byte(OP_0), byte(OP_IF), byte(OP_CAT), byte(OP_ENDIF), byte(OP_1),
	}
	err := CorrectlySpends(&chaincore.Tx{}, 0, nil, scriptPubKey, VerifyP2SH, noopHasher{})
	if err == nil {
		t.Fatalf("CorrectlySpends should fail: OP_CAT is disabled even unexecuted")
	}
}

func hash160(b []byte) []byte {
	sh := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sh[:])
	return h.Sum(nil)
}

func TestP2PKHAccept(t *testing.T) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	pubKeyBytes := privKey.PubKey().SerializeCompressed()

	scriptPubKey := append([]byte{byte(OP_DUP), byte(OP_HASH160)}, push(hash160(pubKeyBytes))...)
	scriptPubKey = append(scriptPubKey, byte(OP_EQUALVERIFY), byte(OP_CHECKSIG))

	hasher := noopHasher{hash: chaincore.HashDouble([]byte("fixed message"))}
	sig := ecdsa.Sign(privKey, hasher.hash[:])
	sigBytes := append(sig.Serialize(), byte(0x01)) // SIGHASH_ALL

	scriptSig := append(push(sigBytes), push(pubKeyBytes)...)

	tx := &chaincore.Tx{TxIns: chaincore.TxInList{{}}}
	if err := CorrectlySpends(tx, 0, scriptSig, scriptPubKey, VerifyP2SH, hasher); err != nil {
		t.Fatalf("CorrectlySpends: %v", err)
	}
}

func TestP2SHMultisigAcceptAndBitFlipReject(t *testing.T) {
	var privKeys [3]*btcec.PrivateKey
	var pubKeys [3][]byte
	for i := range privKeys {
		pk, err := btcec.NewPrivateKey()
		if err != nil {
			t.Fatalf("NewPrivateKey: %v", err)
		}
		privKeys[i] = pk
		pubKeys[i] = pk.PubKey().SerializeCompressed()
	}

	redeem := []byte{byte(OP_2)}
	for _, pk := range pubKeys {
		redeem = append(redeem, push(pk)...)
	}
	redeem = append(redeem, byte(OP_3), byte(OP_CHECKMULTISIG))

	scriptPubKey := append([]byte{byte(OP_HASH160)}, push(hash160(redeem))...)
	scriptPubKey = append(scriptPubKey, byte(OP_EQUAL))

	hasher := noopHasher{hash: chaincore.HashDouble([]byte("multisig message"))}
	sig1 := ecdsa.Sign(privKeys[0], hasher.hash[:])
	sig2 := ecdsa.Sign(privKeys[1], hasher.hash[:])
	sig1Bytes := append(sig1.Serialize(), byte(0x01))
	sig2Bytes := append(sig2.Serialize(), byte(0x01))

	buildScriptSig := func(s1, s2 []byte) []byte {
		out := []byte{byte(OP_0)} // CHECKMULTISIG dummy element
		out = append(out, push(s1)...)
		out = append(out, push(s2)...)
		out = append(out, push(redeem)...)
		return out
	}

	tx := &chaincore.Tx{TxIns: chaincore.TxInList{{}}}

	if err := CorrectlySpends(tx, 0, buildScriptSig(sig1Bytes, sig2Bytes), scriptPubKey, VerifyP2SH, hasher); err != nil {
		t.Fatalf("CorrectlySpends with valid sigs: %v", err)
	}

	flipped := append([]byte{}, sig2Bytes...)
	flipped[0] ^= 0xff
	if err := CorrectlySpends(tx, 0, buildScriptSig(sig1Bytes, flipped), scriptPubKey, VerifyP2SH, hasher); err == nil {
		t.Fatalf("CorrectlySpends should reject a bit-flipped signature")
	}
}
