package repository

import (
	"context"
	"errors"

	"raceledger/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WalletRepository reads and seeds custodial balances. The balance-moving
// writes live in race_repo.go inside the instruction transactions; this type
// only covers the read path and deposits.
type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Get(ctx context.Context, owner, mint solana.PublicKey) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `
		SELECT balance, updated_at
		FROM wallets
		WHERE owner = $1 AND token_mint = $2
	`, owner.String(), mint.String())

	w := domain.Wallet{Owner: owner, TokenMint: mint}
	var balance int64
	if err := row.Scan(&balance, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	w.Balance = uint64(balance)
	return &w, nil
}

func (r *WalletRepository) Balance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	w, err := r.Get(ctx, owner, mint)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// Deposit credits a balance. Deposit detection itself happens outside this
// service; this is the hand-off point.
func (r *WalletRepository) Deposit(ctx context.Context, owner, mint solana.PublicKey, amount uint64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallets (owner, token_mint, balance, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (owner, token_mint)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()
	`, owner.String(), mint.String(), int64(amount))
	return err
}

// EscrowEntries returns the journal for one race, oldest first.
func (r *WalletRepository) EscrowEntries(ctx context.Context, race solana.PublicKey) ([]domain.EscrowEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, race, player, direction, amount, created_at
		FROM escrow_entries
		WHERE race = $1
		ORDER BY id
	`, race.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.EscrowEntry
	for rows.Next() {
		var (
			e      domain.EscrowEntry
			raceS  string
			player string
			amount int64
		)
		if err := rows.Scan(&e.ID, &raceS, &player, &e.Direction, &amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Race, err = solana.PublicKeyFromBase58(raceS); err != nil {
			return nil, err
		}
		if e.Player, err = solana.PublicKeyFromBase58(player); err != nil {
			return nil, err
		}
		e.Amount = uint64(amount)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// debitWallet moves amount out of a custodial balance under a row lock.
// Shared by the instruction transactions in race_repo.go.
func debitWallet(ctx context.Context, tx pgx.Tx, owner, mint solana.PublicKey, amount uint64) error {
	var balance int64
	err := tx.QueryRow(ctx, `
		SELECT balance FROM wallets
		WHERE owner = $1 AND token_mint = $2
		FOR UPDATE
	`, owner.String(), mint.String()).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrInsufficientFunds
	}
	if err != nil {
		return err
	}
	if uint64(balance) < amount {
		return domain.ErrInsufficientFunds
	}
	_, err = tx.Exec(ctx, `
		UPDATE wallets SET balance = balance - $3, updated_at = now()
		WHERE owner = $1 AND token_mint = $2
	`, owner.String(), mint.String(), int64(amount))
	return err
}

func creditWallet(ctx context.Context, tx pgx.Tx, owner, mint solana.PublicKey, amount uint64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (owner, token_mint, balance, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (owner, token_mint)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()
	`, owner.String(), mint.String(), int64(amount))
	return err
}

func journalEscrow(ctx context.Context, tx pgx.Tx, race, player solana.PublicKey, direction string, amount uint64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO escrow_entries (race, player, direction, amount)
		VALUES ($1, $2, $3, $4)
	`, race.String(), player.String(), direction, int64(amount))
	return err
}
