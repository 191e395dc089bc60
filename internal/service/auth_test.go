package service

import (
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
)

func TestVerifyLogin(t *testing.T) {
	w := solana.NewWallet()
	ts := time.Now().Unix()

	var sig solana.Signature
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(w.PrivateKey), LoginMessage(w.PublicKey(), ts)))

	if err := VerifyLogin(w.PublicKey(), ts, sig); err != nil {
		t.Fatalf("valid login rejected: %v", err)
	}
}

func TestVerifyLoginStaleTimestamp(t *testing.T) {
	w := solana.NewWallet()
	ts := time.Now().Add(-time.Hour).Unix()

	var sig solana.Signature
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(w.PrivateKey), LoginMessage(w.PublicKey(), ts)))

	if err := VerifyLogin(w.PublicKey(), ts, sig); !errors.Is(err, ErrLoginExpired) {
		t.Fatalf("got %v, want ErrLoginExpired", err)
	}
}

func TestVerifyLoginWrongKey(t *testing.T) {
	w := solana.NewWallet()
	other := solana.NewWallet()
	ts := time.Now().Unix()

	var sig solana.Signature
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(other.PrivateKey), LoginMessage(w.PublicKey(), ts)))

	if err := VerifyLogin(w.PublicKey(), ts, sig); !errors.Is(err, ErrLoginSignature) {
		t.Fatalf("got %v, want ErrLoginSignature", err)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")
	pk := solana.NewWallet().PublicKey().String()

	token, err := GenerateJWT(pk)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != pk {
		t.Fatalf("subject = %q, want %q", got, pk)
	}
	if _, err := ParseJWT(token + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}
}
