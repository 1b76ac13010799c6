package script

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/ripemd160"

	"github.com/blksv/chaincore"
)

// VerifyFlags gates optional or upgrade behavior, the way btcd's
// txscript.ScriptFlags and decred-dcrd's engine.ScriptFlags do (spec §9:
// BIP65/BIP112 are "not present in this snapshot... add them behind
// verify flags").
type VerifyFlags uint32

const (
	// VerifyP2SH enables the pay-to-script-hash template check (spec
	// §4.2 step 6). Every caller in this module sets it; it exists as a
	// flag because historically it activated at a specific block height.
	VerifyP2SH VerifyFlags = 1 << iota

	// VerifyCheckLockTimeVerify upgrades OP_NOP2 to OP_CHECKLOCKTIMEVERIFY
	// (BIP65). Without this flag OP_NOP2 remains a no-op.
	VerifyCheckLockTimeVerify

	// VerifyCheckSequenceVerify upgrades OP_NOP3 to OP_CHECKSEQUENCEVERIFY
	// (BIP112). Without this flag OP_NOP3 remains a no-op.
	VerifyCheckSequenceVerify
)

// maxOpCount bounds the number of counted opcodes a script may execute
// (spec §4.2).
const maxOpCount = 201

// SignatureHasher is the transaction signing callback the engine
// consumes but does not implement (spec §4.2's "hash_for_signature"):
// package sighash provides the concrete implementation.
type SignatureHasher interface {
	CalcSignatureHash(tx *chaincore.Tx, inputIndex int, subScript []byte, hashType byte) (chaincore.Hash, error)
}

// scriptError is the error kind the engine's own checks raise. Stack
// underflow, parse and numeric-decoding failures from stack.go, chunk.go
// and num.go are returned as plain errors, not as scriptError.
type scriptError struct {
	msg string
}

func (e *scriptError) Error() string { return e.msg }

func fail(format string, args ...interface{}) error {
	return &scriptError{msg: fmt.Sprintf(format, args...)}
}

// engine holds one script-verification run's mutable state.
type engine struct {
	tx          *chaincore.Tx
	inputIndex  int
	hasher      SignatureHasher
	flags       VerifyFlags
	main        stack
	alt         stack
	ifStack     []bool
	lastSep     int
	opCount     int
	program     []byte
}

// CorrectlySpends checks that scriptSig, run against scriptPubKey,
// satisfies tx's input at inputIndex — the correctly_spends contract of
// spec §4.2. hasher supplies the per-input signature hash.
func CorrectlySpends(tx *chaincore.Tx, inputIndex int, scriptSig, scriptPubKey []byte, flags VerifyFlags, hasher SignatureHasher) error {
	if len(scriptSig) > maxScriptSize || len(scriptPubKey) > maxScriptSize {
		return fail("script: program exceeds %d-byte limit", maxScriptSize)
	}

	sigChunks, err := Parse(scriptSig)
	if err != nil {
		return err
	}
	e := &engine{tx: tx, inputIndex: inputIndex, hasher: hasher, flags: flags}
	if err := e.run(scriptSig, sigChunks); err != nil {
		return err
	}

	var p2shStack stack
	if flags&VerifyP2SH != 0 {
		p2shStack = append(p2shStack, e.main...)
	}

	pubKeyChunks, err := Parse(scriptPubKey)
	if err != nil {
		return err
	}
	e.lastSep = 0
	e.opCount = 0
	if err := e.run(scriptPubKey, pubKeyChunks); err != nil {
		return err
	}

	if err := requireTrueTop(&e.main); err != nil {
		return err
	}

	if flags&VerifyP2SH != 0 && IsP2SH(scriptPubKey) {
		if !isPushOnly(sigChunks) {
			return fail("script: scriptSig must be push-only to unlock a P2SH output")
		}
		redeem, err := p2shStack.pop()
		if err != nil {
			return fail("script: P2SH stack is empty, no redeem script to pop")
		}
		redeemChunks, err := Parse(redeem)
		if err != nil {
			return err
		}
		re := &engine{tx: tx, inputIndex: inputIndex, hasher: hasher, flags: flags, main: p2shStack}
		if err := re.run(redeem, redeemChunks); err != nil {
			return err
		}
		return requireTrueTop(&re.main)
	}
	return nil
}

func requireTrueTop(s *stack) error {
	top, err := s.pop()
	if err != nil {
		return fail("script: final stack is empty")
	}
	if !castToBool(top) {
		return fail("script: final stack top is false")
	}
	return nil
}

func (e *engine) shouldExecute() bool {
	for _, v := range e.ifStack {
		if !v {
			return false
		}
	}
	return true
}

func (e *engine) run(program []byte, chunks []Chunk) error {
	e.program = program
	e.ifStack = nil
	for _, c := range chunks {
		if disabledOpcodes[c.Op] {
			return fail("script: %s is a disabled opcode", c.Op)
		}
		if c.Op == OP_VERIF || c.Op == OP_VERNOTIF {
			return fail("script: %s always fails", c.Op)
		}
		if c.Op > OP_16 {
			e.opCount++
			if e.opCount > maxOpCount {
				return fail("script: opcode count exceeds %d", maxOpCount)
			}
		}
		exec := e.shouldExecute()
		switch {
		case c.Op == OP_IF || c.Op == OP_NOTIF:
			var branch bool
			if exec {
				top, err := e.main.pop()
				if err != nil {
					return err
				}
				branch = castToBool(top)
				if c.Op == OP_NOTIF {
					branch = !branch
				}
			}
			e.ifStack = append(e.ifStack, exec && branch)
			continue
		case c.Op == OP_ELSE:
			if len(e.ifStack) == 0 {
				return fail("script: OP_ELSE without matching OP_IF")
			}
			e.ifStack[len(e.ifStack)-1] = !e.ifStack[len(e.ifStack)-1]
			continue
		case c.Op == OP_ENDIF:
			if len(e.ifStack) == 0 {
				return fail("script: OP_ENDIF without matching OP_IF")
			}
			e.ifStack = e.ifStack[:len(e.ifStack)-1]
			continue
		}
		if !exec {
			continue
		}
		if err := e.step(c); err != nil {
			return err
		}
		if e.main.depth()+e.alt.depth() > maxStackDepth {
			return fail("script: combined stack depth exceeds %d", maxStackDepth)
		}
	}
	if len(e.ifStack) != 0 {
		return fail("script: unterminated OP_IF")
	}
	return nil
}

func (e *engine) step(c Chunk) error {
	switch {
	case isLiteralPush(c.Op):
		e.main.push(c.Data)
		return nil
	}

	switch c.Op {
	case OP_0:
		e.main.push(nil)
	case OP_1NEGATE:
		e.main.pushNum(-1)
	case OP_1, OP_2, OP_3, OP_4, OP_5, OP_6, OP_7, OP_8, OP_9, OP_10,
		OP_11, OP_12, OP_13, OP_14, OP_15, OP_16:
		e.main.pushNum(int64(c.Op) - int64(OP_1) + 1)

	case OP_NOP, OP_NOP1, OP_NOP4, OP_NOP5, OP_NOP6, OP_NOP7, OP_NOP8, OP_NOP9, OP_NOP10:
		// no-ops

	case OP_NOP2:
		if e.flags&VerifyCheckLockTimeVerify != 0 {
			return e.checkLockTimeVerify()
		}
	case OP_NOP3:
		if e.flags&VerifyCheckSequenceVerify != 0 {
			return e.checkSequenceVerify()
		}

	case OP_VERIFY:
		top, err := e.main.pop()
		if err != nil {
			return err
		}
		if !castToBool(top) {
			return fail("script: OP_VERIFY failed")
		}
	case OP_RETURN:
		return fail("script: OP_RETURN")

	case OP_TOALTSTACK:
		v, err := e.main.pop()
		if err != nil {
			return err
		}
		e.alt.push(v)
	case OP_FROMALTSTACK:
		v, err := e.alt.pop()
		if err != nil {
			return fail("script: OP_FROMALTSTACK on empty alt stack")
		}
		e.main.push(v)

	case OP_2DROP:
		if _, err := e.main.pop(); err != nil {
			return err
		}
		if _, err := e.main.pop(); err != nil {
			return err
		}
	case OP_2DUP:
		return e.dupTop(2)
	case OP_3DUP:
		return e.dupTop(3)
	case OP_2OVER:
		return e.overTop(2)
	case OP_2ROT:
		return e.rotTop()
	case OP_2SWAP:
		return e.swap2()
	case OP_IFDUP:
		top, err := e.main.peek(0)
		if err != nil {
			return err
		}
		if castToBool(top) {
			e.main.push(top)
		}
	case OP_DEPTH:
		e.main.pushNum(int64(e.main.depth()))
	case OP_DROP:
		_, err := e.main.pop()
		return err
	case OP_DUP:
		top, err := e.main.peek(0)
		if err != nil {
			return err
		}
		e.main.push(top)
	case OP_NIP:
		top, err := e.main.pop()
		if err != nil {
			return err
		}
		if _, err := e.main.pop(); err != nil {
			return err
		}
		e.main.push(top)
	case OP_OVER:
		v, err := e.main.peek(1)
		if err != nil {
			return err
		}
		e.main.push(v)
	case OP_PICK, OP_ROLL:
		n, err := e.main.popNum()
		if err != nil {
			return err
		}
		if n < 0 || int(n) >= e.main.depth() {
			return fail("script: %s index out of range", c.Op)
		}
		idx := len(e.main) - 1 - int(n)
		v := e.main[idx]
		if c.Op == OP_ROLL {
			e.main = append(e.main[:idx], e.main[idx+1:]...)
		}
		e.main.push(v)
	case OP_ROT:
		return e.rotate3()
	case OP_SWAP:
		a, err := e.main.pop()
		if err != nil {
			return err
		}
		b, err := e.main.pop()
		if err != nil {
			return err
		}
		e.main.push(a)
		e.main.push(b)
	case OP_TUCK:
		a, err := e.main.pop()
		if err != nil {
			return err
		}
		b, err := e.main.pop()
		if err != nil {
			return err
		}
		e.main.push(a)
		e.main.push(b)
		e.main.push(a)

	case OP_SIZE:
		top, err := e.main.peek(0)
		if err != nil {
			return err
		}
		e.main.pushNum(int64(len(top)))

	case OP_EQUAL, OP_EQUALVERIFY:
		a, err := e.main.pop()
		if err != nil {
			return err
		}
		b, err := e.main.pop()
		if err != nil {
			return err
		}
		eq := bytes.Equal(a, b)
		if c.Op == OP_EQUALVERIFY {
			if !eq {
				return fail("script: OP_EQUALVERIFY failed")
			}
			return nil
		}
		e.main.pushBool(eq)

	case OP_1ADD, OP_1SUB, OP_NEGATE, OP_ABS, OP_NOT, OP_0NOTEQUAL:
		n, err := e.main.popNum()
		if err != nil {
			return err
		}
		switch c.Op {
		case OP_1ADD:
			n++
		case OP_1SUB:
			n--
		case OP_NEGATE:
			n = -n
		case OP_ABS:
			if n < 0 {
				n = -n
			}
		case OP_NOT:
			e.main.pushBool(n == 0)
			return nil
		case OP_0NOTEQUAL:
			e.main.pushBool(n != 0)
			return nil
		}
		e.main.pushNum(n)

	case OP_ADD, OP_SUB, OP_BOOLAND, OP_BOOLOR, OP_NUMEQUAL, OP_NUMEQUALVERIFY,
		OP_NUMNOTEQUAL, OP_LESSTHAN, OP_GREATERTHAN, OP_LESSTHANOREQUAL,
		OP_GREATERTHANOREQUAL, OP_MIN, OP_MAX:
		return e.binaryNumOp(c.Op)

	case OP_WITHIN:
		max, err := e.main.popNum()
		if err != nil {
			return err
		}
		min, err := e.main.popNum()
		if err != nil {
			return err
		}
		x, err := e.main.popNum()
		if err != nil {
			return err
		}
		e.main.pushBool(x >= min && x < max)

	case OP_RIPEMD160:
		return e.hashOp(func(b []byte) []byte { h := ripemd160.New(); h.Write(b); return h.Sum(nil) })
	case OP_SHA1:
		return e.hashOp(func(b []byte) []byte { h := sha1.Sum(b); return h[:] })
	case OP_SHA256:
		return e.hashOp(func(b []byte) []byte { h := sha256.Sum256(b); return h[:] })
	case OP_HASH160:
		return e.hashOp(func(b []byte) []byte {
			sh := sha256.Sum256(b)
			h := ripemd160.New()
			h.Write(sh[:])
			return h.Sum(nil)
		})
	case OP_HASH256:
		return e.hashOp(func(b []byte) []byte {
			h := chaincore.HashDouble(b)
			return h[:]
		})

	case OP_CODESEPARATOR:
		e.lastSep = c.StartOffset + 1

	case OP_CHECKSIG, OP_CHECKSIGVERIFY:
		return e.checkSig(c.Op == OP_CHECKSIGVERIFY)
	case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
		return e.checkMultiSig(c.Op == OP_CHECKMULTISIGVERIFY)

	case OP_VER, OP_RESERVED, OP_RESERVED1, OP_RESERVED2:
		return fail("script: %s is a reserved opcode", c.Op)

	default:
		return fail("script: unimplemented opcode %s", c.Op)
	}
	return nil
}

func (e *engine) dupTop(n int) error {
	if e.main.depth() < n {
		return fail("script: stack underflow")
	}
	items := append(stack{}, e.main[len(e.main)-n:]...)
	e.main = append(e.main, items...)
	return nil
}

func (e *engine) overTop(n int) error {
	if e.main.depth() < 2*n {
		return fail("script: stack underflow")
	}
	items := append(stack{}, e.main[len(e.main)-2*n:len(e.main)-n]...)
	e.main = append(e.main, items...)
	return nil
}

func (e *engine) rotTop() error {
	if e.main.depth() < 6 {
		return fail("script: stack underflow")
	}
	n := len(e.main)
	pair := append(stack{}, e.main[n-6:n-4]...)
	e.main = append(e.main[:n-6], e.main[n-4:]...)
	e.main = append(e.main, pair...)
	return nil
}

func (e *engine) swap2() error {
	if e.main.depth() < 4 {
		return fail("script: stack underflow")
	}
	n := len(e.main)
	e.main[n-4], e.main[n-2] = e.main[n-2], e.main[n-4]
	e.main[n-3], e.main[n-1] = e.main[n-1], e.main[n-3]
	return nil
}

func (e *engine) rotate3() error {
	if e.main.depth() < 3 {
		return fail("script: stack underflow")
	}
	n := len(e.main)
	v := e.main[n-3]
	e.main = append(e.main[:n-3], e.main[n-2], e.main[n-1], v)
	return nil
}

func (e *engine) binaryNumOp(op Opcode) error {
	b, err := e.main.popNum()
	if err != nil {
		return err
	}
	a, err := e.main.popNum()
	if err != nil {
		return err
	}
	switch op {
	case OP_ADD:
		e.main.pushNum(a + b)
	case OP_SUB:
		e.main.pushNum(a - b)
	case OP_BOOLAND:
		e.main.pushBool(a != 0 && b != 0)
	case OP_BOOLOR:
		e.main.pushBool(a != 0 || b != 0)
	case OP_NUMEQUAL:
		e.main.pushBool(a == b)
	case OP_NUMEQUALVERIFY:
		if a != b {
			return fail("script: OP_NUMEQUALVERIFY failed")
		}
	case OP_NUMNOTEQUAL:
		e.main.pushBool(a != b)
	case OP_LESSTHAN:
		e.main.pushBool(a < b)
	case OP_GREATERTHAN:
		e.main.pushBool(a > b)
	case OP_LESSTHANOREQUAL:
		e.main.pushBool(a <= b)
	case OP_GREATERTHANOREQUAL:
		e.main.pushBool(a >= b)
	case OP_MIN:
		if a < b {
			e.main.pushNum(a)
		} else {
			e.main.pushNum(b)
		}
	case OP_MAX:
		if a > b {
			e.main.pushNum(a)
		} else {
			e.main.pushNum(b)
		}
	}
	return nil
}

func (e *engine) hashOp(h func([]byte) []byte) error {
	top, err := e.main.pop()
	if err != nil {
		return err
	}
	e.main.push(h(top))
	return nil
}

// subScript returns the portion of the running program active since the
// last OP_CODESEPARATOR, per spec §4.2's OP_CHECKSIG step 2.
func (e *engine) subScript() []byte {
	if e.lastSep >= len(e.program) {
		return nil
	}
	return e.program[e.lastSep:]
}

// removeSigPush strips every serialized-push encoding of sig out of
// subScript (spec §4.2's OP_CHECKSIG step 3), the FindAndDelete idiom
// every reference client applies before hashing.
func removeSigPush(subScript, sig []byte) []byte {
	push := serializePush(sig)
	if len(push) == 0 {
		return subScript
	}
	var out []byte
	for len(subScript) > 0 {
		if bytes.HasPrefix(subScript, push) {
			subScript = subScript[len(push):]
			continue
		}
		out = append(out, subScript[0])
		subScript = subScript[1:]
	}
	return out
}

func serializePush(data []byte) []byte {
	n := len(data)
	switch {
	case n == 0:
		return []byte{byte(OP_0)}
	case n <= 75:
		return append([]byte{byte(n)}, data...)
	case n <= 255:
		return append([]byte{byte(OP_PUSHDATA1), byte(n)}, data...)
	default:
		return nil // sigs never need PUSHDATA2/4; unmatched, nothing removed
	}
}

func (e *engine) checkSig(isVerify bool) error {
	pubKeyBytes, err := e.main.pop()
	if err != nil {
		return err
	}
	sig, err := e.main.pop()
	if err != nil {
		return err
	}
	ok := e.verifySignature(sig, pubKeyBytes)
	if isVerify {
		if !ok {
			return fail("script: OP_CHECKSIGVERIFY failed")
		}
		return nil
	}
	e.main.pushBool(ok)
	return nil
}

func (e *engine) verifySignature(sig, pubKeyBytes []byte) bool {
	if len(sig) == 0 {
		return false
	}
	hashType := sig[len(sig)-1]
	rawSig := sig[:len(sig)-1]
	subScript := removeSigPush(e.subScript(), sig)
	hash, err := e.hasher.CalcSignatureHash(e.tx, e.inputIndex, subScript, hashType)
	if err != nil {
		return false
	}
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	signature, err := ecdsa.ParseDERSignature(rawSig)
	if err != nil {
		return false
	}
	return signature.Verify(hash[:], pubKey)
}

func (e *engine) checkMultiSig(isVerify bool) error {
	pubKeyCount, err := e.main.popNum()
	if err != nil {
		return err
	}
	if pubKeyCount < 0 || pubKeyCount > 20 {
		return fail("script: OP_CHECKMULTISIG pubkey count %d out of range", pubKeyCount)
	}
	e.opCount += int(pubKeyCount)
	if e.opCount > maxOpCount {
		return fail("script: opcode count exceeds %d", maxOpCount)
	}
	// Pop in reverse-of-push order, then flip back: the last pubkey
	// pushed comes off the stack first, but matchSig below needs
	// pubKeys in the order they were declared in the script.
	pubKeys := make([][]byte, pubKeyCount)
	for i := pubKeyCount - 1; i >= 0; i-- {
		pubKeys[i], err = e.main.pop()
		if err != nil {
			return err
		}
	}
	sigCount, err := e.main.popNum()
	if err != nil {
		return err
	}
	if sigCount < 0 || sigCount > pubKeyCount {
		return fail("script: OP_CHECKMULTISIG sig count %d out of range", sigCount)
	}
	sigs := make([][]byte, sigCount)
	for i := sigCount - 1; i >= 0; i-- {
		sigs[i], err = e.main.pop()
		if err != nil {
			return err
		}
	}
	// Reference-client off-by-one: one extra dummy item is always
	// popped, preserved verbatim (spec §4.2).
	if _, err := e.main.pop(); err != nil {
		return err
	}

	subScript := e.subScript()
	for _, sig := range sigs {
		subScript = removeSigPush(subScript, sig)
	}

	sigIdx, pubIdx := 0, 0
	success := true
	for sigIdx < len(sigs) {
		if pubIdx >= len(pubKeys) {
			success = false
			break
		}
		if e.matchSig(sigs[sigIdx], pubKeys[pubIdx], subScript) {
			sigIdx++
		}
		pubIdx++
	}
	ok := success && sigIdx == len(sigs)

	if isVerify {
		if !ok {
			return fail("script: OP_CHECKMULTISIGVERIFY failed")
		}
		return nil
	}
	e.main.pushBool(ok)
	return nil
}

func (e *engine) matchSig(sig, pubKeyBytes, subScript []byte) bool {
	if len(sig) == 0 {
		return false
	}
	hashType := sig[len(sig)-1]
	rawSig := sig[:len(sig)-1]
	hash, err := e.hasher.CalcSignatureHash(e.tx, e.inputIndex, subScript, hashType)
	if err != nil {
		return false
	}
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	signature, err := ecdsa.ParseDERSignature(rawSig)
	if err != nil {
		return false
	}
	return signature.Verify(hash[:], pubKey)
}

// checkLockTimeVerify and checkSequenceVerify implement BIP65/BIP112
// behind VerifyCheckLockTimeVerify/VerifyCheckSequenceVerify (spec §9's
// upgrade path, resolved): with the flag set, OP_NOP2/OP_NOP3 check the
// top stack item against the spending input's LockTime/Sequence instead
// of doing nothing.
func (e *engine) checkLockTimeVerify() error {
	top, err := e.main.peek(0)
	if err != nil {
		return err
	}
	lockTime, err := decodeNum(top)
	if err != nil || lockTime < 0 {
		return fail("script: OP_CHECKLOCKTIMEVERIFY: invalid operand")
	}
	const lockTimeThreshold = 500000000
	txLockTime := int64(e.tx.LockTime)
	if (lockTime < lockTimeThreshold) != (txLockTime < lockTimeThreshold) {
		return fail("script: OP_CHECKLOCKTIMEVERIFY: lock-time type mismatch")
	}
	if lockTime > txLockTime {
		return fail("script: OP_CHECKLOCKTIMEVERIFY: not yet reached")
	}
	in := e.tx.TxIns[e.inputIndex]
	const sequenceFinal = 0xffffffff
	if in.Sequence == sequenceFinal {
		return fail("script: OP_CHECKLOCKTIMEVERIFY: input is final")
	}
	return nil
}

func (e *engine) checkSequenceVerify() error {
	top, err := e.main.peek(0)
	if err != nil {
		return err
	}
	sequence, err := decodeNum(top)
	if err != nil || sequence < 0 {
		return fail("script: OP_CHECKSEQUENCEVERIFY: invalid operand")
	}
	const sequenceLockTimeDisabled = 1 << 31
	if sequence&sequenceLockTimeDisabled != 0 {
		return nil
	}
	in := e.tx.TxIns[e.inputIndex]
	if in.Sequence&sequenceLockTimeDisabled != 0 {
		return fail("script: OP_CHECKSEQUENCEVERIFY: input disables relative lock time")
	}
	const typeMask = 1 << 22
	if sequence&typeMask != int64(in.Sequence)&typeMask {
		return fail("script: OP_CHECKSEQUENCEVERIFY: lock-time type mismatch")
	}
	const valueMask = 0x0000ffff
	if sequence&valueMask > int64(in.Sequence)&valueMask {
		return fail("script: OP_CHECKSEQUENCEVERIFY: not yet reached")
	}
	return nil
}
