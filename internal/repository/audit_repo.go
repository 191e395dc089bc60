package repository

import (
	"context"

	"raceledger/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository records every processed instruction, including rejected
// ones. Best-effort: callers log and continue on insert failure.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, selector uint8, race, caller solana.PublicKey, code string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO instruction_audit (selector, race, caller, code)
		VALUES ($1, $2, $3, $4)
	`, int16(selector), race.String(), caller.String(), code)
	return err
}

// ForRace returns the instruction history of one account, newest first.
func (r *AuditRepository) ForRace(ctx context.Context, race solana.PublicKey, limit int) ([]domain.AuditRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, selector, race, caller, code, created_at
		FROM instruction_audit
		WHERE race = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, race.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var (
			rec      domain.AuditRecord
			selector int16
			raceS    string
			caller   string
		)
		if err := rows.Scan(&rec.ID, &selector, &raceS, &caller, &rec.Code, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Selector = uint8(selector)
		if rec.Race, err = solana.PublicKeyFromBase58(raceS); err != nil {
			return nil, err
		}
		if rec.Caller, err = solana.PublicKeyFromBase58(caller); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
