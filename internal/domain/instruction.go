package domain

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Instruction selectors. The selector is the first byte of the signed
// message, so a signature for one operation can never be replayed as
// another.
const (
	SelectorCreateRace   uint8 = 0
	SelectorJoinRace     uint8 = 1
	SelectorSubmitResult uint8 = 2
	SelectorSettleRace   uint8 = 3
	SelectorClaimPrize   uint8 = 4
	SelectorCancelRace   uint8 = 5
)

// Instruction is the signed envelope every state-changing call arrives in.
// Race is the derived account address the instruction targets; Args is the
// selector-specific payload; Signature covers Message().
type Instruction struct {
	Selector  uint8
	Race      solana.PublicKey
	Caller    solana.PublicKey
	Args      []byte
	Signature solana.Signature
}

// Message returns the canonical byte string the caller signs:
// selector | race address | caller address | args.
func (in *Instruction) Message() []byte {
	msg := make([]byte, 0, 1+32+32+len(in.Args))
	msg = append(msg, in.Selector)
	msg = append(msg, in.Race.Bytes()...)
	msg = append(msg, in.Caller.Bytes()...)
	msg = append(msg, in.Args...)
	return msg
}

// Verify checks the envelope signature against the caller's key.
func (in *Instruction) Verify() error {
	if !ed25519.Verify(ed25519.PublicKey(in.Caller.Bytes()), in.Message(), in.Signature[:]) {
		return ErrBadSignature
	}
	return nil
}

// Sign fills in the envelope signature. Used by tests and tooling; real
// clients sign with their own wallets.
func (in *Instruction) Sign(priv ed25519.PrivateKey) {
	copy(in.Signature[:], ed25519.Sign(priv, in.Message()))
}

// EncodeCreateArgs packs the CreateRace payload:
// raceIDLen u8 | raceID | mint | entryFee LE u64.
func EncodeCreateArgs(raceID []byte, mint solana.PublicKey, entryFee uint64) []byte {
	args := make([]byte, 0, 1+len(raceID)+32+8)
	args = append(args, uint8(len(raceID)))
	args = append(args, raceID...)
	args = append(args, mint.Bytes()...)
	args = binary.LittleEndian.AppendUint64(args, entryFee)
	return args
}

// EncodeSubmitArgs packs the SubmitResult payload:
// finishTimeMs LE u64 | collectibles LE u32 | integrityHash.
func EncodeSubmitArgs(res Result) []byte {
	args := make([]byte, 0, 8+4+32)
	args = binary.LittleEndian.AppendUint64(args, res.FinishTimeMs)
	args = binary.LittleEndian.AppendUint32(args, res.Collectibles)
	args = append(args, res.IntegrityHash[:]...)
	return args
}

var errMalformedArgs = errors.New("malformed instruction args")

// DecodeCreateArgs is the inverse of EncodeCreateArgs. Trailing bytes are an
// error: the args are covered by the signature and must be exact.
func DecodeCreateArgs(args []byte) (raceID []byte, mint solana.PublicKey, entryFee uint64, err error) {
	if len(args) < 1 {
		return nil, solana.PublicKey{}, 0, errMalformedArgs
	}
	idLen := int(args[0])
	if idLen == 0 || idLen > 32 || len(args) != 1+idLen+32+8 {
		return nil, solana.PublicKey{}, 0, errMalformedArgs
	}
	raceID = append([]byte(nil), args[1:1+idLen]...)
	mint = solana.PublicKeyFromBytes(args[1+idLen : 1+idLen+32])
	entryFee = binary.LittleEndian.Uint64(args[1+idLen+32:])
	return raceID, mint, entryFee, nil
}

// DecodeSubmitArgs is the inverse of EncodeSubmitArgs.
func DecodeSubmitArgs(args []byte) (Result, error) {
	if len(args) != 8+4+32 {
		return Result{}, errMalformedArgs
	}
	var res Result
	res.FinishTimeMs = binary.LittleEndian.Uint64(args[:8])
	res.Collectibles = binary.LittleEndian.Uint32(args[8:12])
	copy(res.IntegrityHash[:], args[12:])
	return res, nil
}
