package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"raceledger/internal/domain"
	"raceledger/internal/ledger"
)

var testProgramID = solana.MustPublicKeyFromBase58("57H2v8mytNYpw4V87UfwiQ9RjYWZr5ps4ggUGou9fK6P")

type recordedEvent struct {
	races []*domain.Race
}

func (r *recordedEvent) RaceUpdated(race *domain.Race) {
	r.races = append(r.races, race)
}

func newTestService(t *testing.T) (*RaceService, *ledger.Memory, *recordedEvent) {
	t.Helper()
	mem := ledger.NewMemory(testProgramID)
	events := &recordedEvent{}
	svc := NewRaceService(mem, testProgramID, 10, 1_000_000).WithEvents(events)
	return svc, mem, events
}

func signedCreate(t *testing.T, w *solana.Wallet, raceID []byte, mint solana.PublicKey, fee uint64) *domain.Instruction {
	t.Helper()
	addr, _, err := domain.DeriveRaceAddress(testProgramID, raceID, mint, fee)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	in := &domain.Instruction{
		Selector: domain.SelectorCreateRace,
		Race:     addr,
		Caller:   w.PublicKey(),
		Args:     domain.EncodeCreateArgs(raceID, mint, fee),
	}
	in.Sign(ed25519.PrivateKey(w.PrivateKey))
	return in
}

func signed(t *testing.T, w *solana.Wallet, selector uint8, race solana.PublicKey, args []byte) *domain.Instruction {
	t.Helper()
	in := &domain.Instruction{
		Selector: selector,
		Race:     race,
		Caller:   w.PublicKey(),
		Args:     args,
	}
	in.Sign(ed25519.PrivateKey(w.PrivateKey))
	return in
}

func TestServiceFullFlow(t *testing.T) {
	ctx := context.Background()
	svc, mem, events := newTestService(t)

	mint := solana.NewWallet().PublicKey()
	p1 := solana.NewWallet()
	p2 := solana.NewWallet()
	mem.Fund(p1.PublicKey(), mint, 1000)
	mem.Fund(p2.PublicKey(), mint, 1000)

	race, err := svc.CreateRace(ctx, signedCreate(t, p1, []byte("cup"), mint, 100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.JoinRace(ctx, signed(t, p2, domain.SelectorJoinRace, race.Address, nil)); err != nil {
		t.Fatalf("join: %v", err)
	}

	args1 := domain.EncodeSubmitArgs(domain.Result{FinishTimeMs: 50000})
	if _, err := svc.SubmitResult(ctx, signed(t, p1, domain.SelectorSubmitResult, race.Address, args1)); err != nil {
		t.Fatalf("submit p1: %v", err)
	}
	args2 := domain.EncodeSubmitArgs(domain.Result{FinishTimeMs: 45000, Collectibles: 3})
	if _, err := svc.SubmitResult(ctx, signed(t, p2, domain.SelectorSubmitResult, race.Address, args2)); err != nil {
		t.Fatalf("submit p2: %v", err)
	}

	settled, err := svc.SettleRace(ctx, race.Address)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !settled.Winner.Equals(p2.PublicKey()) {
		t.Fatal("player2 should win")
	}

	_, payout, err := svc.ClaimPrize(ctx, signed(t, p2, domain.SelectorClaimPrize, race.Address, nil))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if payout != 200 {
		t.Fatalf("payout = %d", payout)
	}

	// Create, join, two submits, settle, claim.
	if len(events.races) != 6 {
		t.Fatalf("%d events emitted, want 6", len(events.races))
	}
}

func TestServiceRejectsUnsignedEnvelope(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newTestService(t)

	mint := solana.NewWallet().PublicKey()
	p1 := solana.NewWallet()
	mem.Fund(p1.PublicKey(), mint, 1000)

	in := signedCreate(t, p1, []byte("cup"), mint, 100)
	in.Signature = solana.Signature{}
	if _, err := svc.CreateRace(ctx, in); !errors.Is(err, domain.ErrBadSignature) {
		t.Fatalf("got %v, want ErrBadSignature", err)
	}
}

func TestServiceRejectsSelectorMismatch(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newTestService(t)

	mint := solana.NewWallet().PublicKey()
	p1 := solana.NewWallet()
	mem.Fund(p1.PublicKey(), mint, 1000)
	race, err := svc.CreateRace(ctx, signedCreate(t, p1, []byte("cup"), mint, 100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A join signature replayed as a claim must not pass.
	in := signed(t, p1, domain.SelectorJoinRace, race.Address, nil)
	if _, _, err := svc.ClaimPrize(ctx, in); !errors.Is(err, domain.ErrBadSignature) {
		t.Fatalf("got %v, want ErrBadSignature", err)
	}
}

func TestServiceFeeBounds(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newTestService(t)

	mint := solana.NewWallet().PublicKey()
	p1 := solana.NewWallet()
	mem.Fund(p1.PublicKey(), mint, 10_000_000)

	if _, err := svc.CreateRace(ctx, signedCreate(t, p1, []byte("low"), mint, 9)); !errors.Is(err, domain.ErrEntryFeeTooLow) {
		t.Fatalf("low fee: got %v", err)
	}
	if _, err := svc.CreateRace(ctx, signedCreate(t, p1, []byte("high"), mint, 1_000_001)); !errors.Is(err, domain.ErrEntryFeeTooHigh) {
		t.Fatalf("high fee: got %v", err)
	}
}

func TestServiceRejectsAddressMismatch(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newTestService(t)

	mint := solana.NewWallet().PublicKey()
	p1 := solana.NewWallet()
	mem.Fund(p1.PublicKey(), mint, 1000)

	in := signedCreate(t, p1, []byte("cup"), mint, 100)
	in.Race = solana.NewWallet().PublicKey()
	in.Sign(ed25519.PrivateKey(p1.PrivateKey))
	if _, err := svc.CreateRace(ctx, in); !errors.Is(err, domain.ErrBadSignature) {
		t.Fatalf("got %v, want ErrBadSignature", err)
	}
}

func TestServiceCancelRefund(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newTestService(t)

	mint := solana.NewWallet().PublicKey()
	p1 := solana.NewWallet()
	mem.Fund(p1.PublicKey(), mint, 1000)

	race, err := svc.CreateRace(ctx, signedCreate(t, p1, []byte("lonely"), mint, 100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, refund, err := svc.CancelRace(ctx, signed(t, p1, domain.SelectorCancelRace, race.Address, nil))
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if refund != 100 {
		t.Fatalf("refund = %d", refund)
	}
	if bal, _ := mem.Balance(ctx, p1.PublicKey(), mint); bal != 1000 {
		t.Fatalf("balance = %d after refund", bal)
	}
}
