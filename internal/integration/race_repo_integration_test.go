package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"raceledger/internal/domain"
	"raceledger/internal/repository"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
)

var programID = solana.MustPublicKeyFromBase58("57H2v8mytNYpw4V87UfwiQ9RjYWZr5ps4ggUGou9fK6P")

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := db.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func testDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	applyMigrations(t, db)
	return db
}

func fundedPlayer(t *testing.T, wallets *repository.WalletRepository, mint solana.PublicKey, amount uint64) solana.PublicKey {
	t.Helper()
	pk := solana.NewWallet().PublicKey()
	if err := wallets.Deposit(context.Background(), pk, mint, amount); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return pk
}

func TestRaceRepositoryFullLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	races := repository.NewRaceRepository(db, programID)
	wallets := repository.NewWalletRepository(db)

	mint := solana.NewWallet().PublicKey()
	p1 := fundedPlayer(t, wallets, mint, 1000)
	p2 := fundedPlayer(t, wallets, mint, 1000)

	race, err := races.CreateRace(ctx, p1, []byte("itest-cup"), mint, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bal, _ := wallets.Balance(ctx, p1, mint); bal != 900 {
		t.Fatalf("creator balance = %d", bal)
	}

	// Duplicate seeds collide on the derived address.
	if _, err := races.CreateRace(ctx, p2, []byte("itest-cup"), mint, 100); !errors.Is(err, domain.ErrRaceExists) {
		t.Fatalf("duplicate create: got %v", err)
	}

	if _, err := races.JoinRace(ctx, p2, race.Address); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := races.SubmitResult(ctx, p1, race.Address, domain.Result{FinishTimeMs: 50000}); err != nil {
		t.Fatalf("submit p1: %v", err)
	}
	if _, err := races.SubmitResult(ctx, p2, race.Address, domain.Result{FinishTimeMs: 45000}); err != nil {
		t.Fatalf("submit p2: %v", err)
	}
	if _, err := races.SubmitResult(ctx, p2, race.Address, domain.Result{FinishTimeMs: 1}); !errors.Is(err, domain.ErrResultAlreadySubmitted) {
		t.Fatalf("resubmit: got %v", err)
	}

	settled, err := races.SettleRace(ctx, race.Address)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !settled.Winner.Equals(p2) {
		t.Fatal("player2 should win")
	}

	if _, _, err := races.ClaimPrize(ctx, p1, race.Address); !errors.Is(err, domain.ErrNotWinner) {
		t.Fatalf("loser claim: got %v", err)
	}
	_, payout, err := races.ClaimPrize(ctx, p2, race.Address)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if payout != 200 {
		t.Fatalf("payout = %d", payout)
	}
	if bal, _ := wallets.Balance(ctx, p2, mint); bal != 1100 {
		t.Fatalf("winner balance = %d", bal)
	}
	if _, _, err := races.ClaimPrize(ctx, p2, race.Address); !errors.Is(err, domain.ErrInvalidRaceStatus) {
		t.Fatalf("second claim: got %v", err)
	}

	// Escrow journal: two deposits and one payout.
	entries, err := wallets.EscrowEntries(ctx, race.Address)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("%d journal entries, want 3", len(entries))
	}
	var deposits, payouts uint64
	for _, e := range entries {
		switch e.Direction {
		case domain.EscrowDeposit:
			deposits += e.Amount
		case domain.EscrowPayout:
			payouts += e.Amount
		}
	}
	if deposits != 200 || payouts != 200 {
		t.Fatalf("journal deposits=%d payouts=%d", deposits, payouts)
	}
}

func TestRaceRepositoryConcurrentJoin(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	races := repository.NewRaceRepository(db, programID)
	wallets := repository.NewWalletRepository(db)

	mint := solana.NewWallet().PublicKey()
	p1 := fundedPlayer(t, wallets, mint, 1000)

	race, err := races.CreateRace(ctx, p1, []byte("itest-rush"), mint, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const contenders = 8
	keys := make([]solana.PublicKey, contenders)
	for i := range keys {
		keys[i] = fundedPlayer(t, wallets, mint, 1000)
	}

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for _, pk := range keys {
		wg.Add(1)
		go func(pk solana.PublicKey) {
			defer wg.Done()
			_, err := races.JoinRace(ctx, pk, race.Address)
			results <- err
		}(pk)
	}
	wg.Wait()
	close(results)

	joined := 0
	for err := range results {
		if err == nil {
			joined++
		} else if !errors.Is(err, domain.ErrInvalidRaceStatus) && !errors.Is(err, domain.ErrPlayer2AlreadySet) {
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if joined != 1 {
		t.Fatalf("%d joins succeeded, want exactly 1", joined)
	}

	got, err := races.Race(ctx, race.Address)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EscrowAmount != 200 {
		t.Fatalf("escrow = %d after contended join", got.EscrowAmount)
	}
}

func TestRaceRepositoryCancelRefund(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	races := repository.NewRaceRepository(db, programID)
	wallets := repository.NewWalletRepository(db)

	mint := solana.NewWallet().PublicKey()
	p1 := fundedPlayer(t, wallets, mint, 500)

	race, err := races.CreateRace(ctx, p1, []byte("itest-lonely"), mint, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := races.CancelRace(ctx, solana.NewWallet().PublicKey(), race.Address); !errors.Is(err, domain.ErrPlayerNotInRace) {
		t.Fatalf("stranger cancel: got %v", err)
	}
	_, refund, err := races.CancelRace(ctx, p1, race.Address)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if refund != 100 {
		t.Fatalf("refund = %d", refund)
	}
	if bal, _ := wallets.Balance(ctx, p1, mint); bal != 500 {
		t.Fatalf("balance = %d after refund", bal)
	}
}

func TestRaceRepositoryInsufficientFunds(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	races := repository.NewRaceRepository(db, programID)

	mint := solana.NewWallet().PublicKey()
	broke := solana.NewWallet().PublicKey()

	if _, err := races.CreateRace(ctx, broke, []byte("itest-broke"), mint, 100); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if _, err := races.Race(ctx, mustDerive(t, []byte("itest-broke"), mint, 100)); !errors.Is(err, domain.ErrRaceNotFound) {
		t.Fatal("failed create left a row behind")
	}
}

func mustDerive(t *testing.T, raceID []byte, mint solana.PublicKey, fee uint64) solana.PublicKey {
	t.Helper()
	addr, _, err := domain.DeriveRaceAddress(programID, raceID, mint, fee)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	return addr
}
