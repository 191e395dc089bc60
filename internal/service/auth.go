package service

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// loginSkew bounds how stale a signed login message may be. Wide enough for
// clock drift, narrow enough that a leaked message is useless quickly.
const loginSkew = 5 * time.Minute

var (
	ErrLoginExpired   = errors.New("login message outside accepted window")
	ErrLoginSignature = errors.New("login signature invalid")
)

// LoginMessage is the canonical byte string a wallet signs to open a
// session: a fixed prefix, the key itself and a unix timestamp.
func LoginMessage(pubkey solana.PublicKey, unixTS int64) []byte {
	return []byte(fmt.Sprintf("raceledger-login|%s|%d", pubkey, unixTS))
}

// VerifyLogin checks a signed login message. There is no server-side nonce:
// the timestamp window plus the key binding is enough for session bootstrap,
// and real value movement is re-signed per instruction anyway.
func VerifyLogin(pubkey solana.PublicKey, unixTS int64, sig solana.Signature) error {
	now := time.Now()
	ts := time.Unix(unixTS, 0)
	if ts.Before(now.Add(-loginSkew)) || ts.After(now.Add(loginSkew)) {
		return ErrLoginExpired
	}
	if !ed25519.Verify(ed25519.PublicKey(pubkey.Bytes()), LoginMessage(pubkey, unixTS), sig[:]) {
		return ErrLoginSignature
	}
	return nil
}
