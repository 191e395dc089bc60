package repository

import (
	"context"

	"raceledger/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PayoutRepository backs the settlement watcher. payout_signals has one row
// per race, so emission survives restarts without duplicates.
type PayoutRepository struct {
	db *pgxpool.Pool
}

func NewPayoutRepository(db *pgxpool.Pool) *PayoutRepository {
	return &PayoutRepository{db: db}
}

// Unsignaled returns settled races that have no payout signal yet. A race
// claimed between polls still needs its signal, so claimed rows count too;
// the amount is the pot at settlement (twice the entry fee), because a claim
// zeroes the live escrow column before the poll can read it.
func (r *PayoutRepository) Unsignaled(ctx context.Context, limit int) ([]domain.PayoutSignal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ra.address, ra.winner, ra.entry_fee * 2
		FROM races ra
		LEFT JOIN payout_signals ps ON ps.race = ra.address
		WHERE ra.status IN ($1, $2) AND ps.race IS NULL
		ORDER BY ra.settled_at
		LIMIT $3
	`, domain.StatusSettled, domain.StatusClaimed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.PayoutSignal
	for rows.Next() {
		var (
			s      domain.PayoutSignal
			race   string
			winner string
			amount int64
		)
		if err := rows.Scan(&race, &winner, &amount); err != nil {
			return nil, err
		}
		if s.Race, err = solana.PublicKeyFromBase58(race); err != nil {
			return nil, err
		}
		if s.Winner, err = solana.PublicKeyFromBase58(winner); err != nil {
			return nil, err
		}
		s.Amount = uint64(amount)
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// Emit inserts the signal for a race. Returns false when another emitter got
// there first.
func (r *PayoutRepository) Emit(ctx context.Context, s domain.PayoutSignal) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO payout_signals (race, winner, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (race) DO NOTHING
	`, s.Race.String(), s.Winner.String(), int64(s.Amount))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
