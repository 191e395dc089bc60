package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raceledger/internal/domain"
	"raceledger/internal/ledger"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// RaceRepository persists race accounts in Postgres. Every instruction runs
// in one transaction with the race row locked FOR UPDATE, so the pure
// transitions in the ledger package see a serialized view of the account.
type RaceRepository struct {
	db        *pgxpool.Pool
	programID solana.PublicKey
}

func NewRaceRepository(db *pgxpool.Pool, programID solana.PublicKey) *RaceRepository {
	return &RaceRepository{db: db, programID: programID}
}

const raceColumns = `address, bump, race_id, token_mint, entry_fee, player1, player2, status,
	p1_finish_ms, p1_collect, p1_hash, p2_finish_ms, p2_collect, p2_hash,
	winner, escrow_amount, created_at, settled_at, claimed_at`

func scanRace(row pgx.Row) (*domain.Race, error) {
	var (
		r          domain.Race
		addr       string
		bump       int16
		mint       string
		entryFee   int64
		player1    string
		player2    *string
		p1Finish   *int64
		p1Collect  *int32
		p1Hash     []byte
		p2Finish   *int64
		p2Collect  *int32
		p2Hash     []byte
		winner     *string
		escrow     int64
	)
	if err := row.Scan(
		&addr, &bump, &r.RaceID, &mint, &entryFee, &player1, &player2, &r.Status,
		&p1Finish, &p1Collect, &p1Hash, &p2Finish, &p2Collect, &p2Hash,
		&winner, &escrow, &r.CreatedAt, &r.SettledAt, &r.ClaimedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRaceNotFound
		}
		return nil, err
	}

	var err error
	if r.Address, err = solana.PublicKeyFromBase58(addr); err != nil {
		return nil, fmt.Errorf("race address: %w", err)
	}
	if r.TokenMint, err = solana.PublicKeyFromBase58(mint); err != nil {
		return nil, fmt.Errorf("token mint: %w", err)
	}
	if r.Player1, err = solana.PublicKeyFromBase58(player1); err != nil {
		return nil, fmt.Errorf("player1: %w", err)
	}
	if player2 != nil {
		pk, err := solana.PublicKeyFromBase58(*player2)
		if err != nil {
			return nil, fmt.Errorf("player2: %w", err)
		}
		r.Player2 = &pk
	}
	if winner != nil {
		pk, err := solana.PublicKeyFromBase58(*winner)
		if err != nil {
			return nil, fmt.Errorf("winner: %w", err)
		}
		r.Winner = &pk
	}
	r.Bump = uint8(bump)
	r.EntryFee = uint64(entryFee)
	r.EscrowAmount = uint64(escrow)
	if p1Finish != nil {
		res := domain.Result{FinishTimeMs: uint64(*p1Finish)}
		if p1Collect != nil {
			res.Collectibles = uint32(*p1Collect)
		}
		copy(res.IntegrityHash[:], p1Hash)
		r.Player1Result = &res
	}
	if p2Finish != nil {
		res := domain.Result{FinishTimeMs: uint64(*p2Finish)}
		if p2Collect != nil {
			res.Collectibles = uint32(*p2Collect)
		}
		copy(res.IntegrityHash[:], p2Hash)
		r.Player2Result = &res
	}
	return &r, nil
}

func optKey(pk *solana.PublicKey) *string {
	if pk == nil {
		return nil
	}
	s := pk.String()
	return &s
}

func optResult(res *domain.Result) (finish *int64, collect *int32, hash []byte) {
	if res == nil {
		return nil, nil, nil
	}
	f := int64(res.FinishTimeMs)
	c := int32(res.Collectibles)
	return &f, &c, res.IntegrityHash[:]
}

// CreateRace derives the account, debits the creator's wallet and inserts
// the Waiting row, all in one transaction. A concurrent create of the same
// account loses on the primary key and maps to ErrRaceExists.
func (repo *RaceRepository) CreateRace(ctx context.Context, caller solana.PublicKey, raceID []byte, mint solana.PublicKey, entryFee uint64) (*domain.Race, error) {
	race, err := ledger.NewRace(repo.programID, caller, raceID, mint, entryFee, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	tx, err := repo.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := debitWallet(ctx, tx, caller, mint, entryFee); err != nil {
		return nil, err
	}

	p1f, p1c, p1h := optResult(race.Player1Result)
	p2f, p2c, p2h := optResult(race.Player2Result)
	_, err = tx.Exec(ctx, `
		INSERT INTO races (address, bump, race_id, token_mint, entry_fee, player1, player2, status,
			p1_finish_ms, p1_collect, p1_hash, p2_finish_ms, p2_collect, p2_hash,
			winner, escrow_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, race.Address.String(), int16(race.Bump), race.RaceID, mint.String(), int64(entryFee),
		caller.String(), optKey(race.Player2), race.Status,
		p1f, p1c, p1h, p2f, p2c, p2h,
		optKey(race.Winner), int64(race.EscrowAmount), race.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrRaceExists
		}
		return nil, err
	}

	if err := journalEscrow(ctx, tx, race.Address, caller, domain.EscrowDeposit, entryFee); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return race, nil
}

// withRace locks the race row, runs fn against the decoded account and
// writes the mutated fields back. fn returning an error rolls everything
// back.
func (repo *RaceRepository) withRace(ctx context.Context, race solana.PublicKey, fn func(tx pgx.Tx, r *domain.Race) error) (*domain.Race, error) {
	tx, err := repo.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+raceColumns+` FROM races WHERE address = $1 FOR UPDATE`, race.String())
	r, err := scanRace(row)
	if err != nil {
		return nil, err
	}

	if err := fn(tx, r); err != nil {
		return nil, err
	}

	p1f, p1c, p1h := optResult(r.Player1Result)
	p2f, p2c, p2h := optResult(r.Player2Result)
	_, err = tx.Exec(ctx, `
		UPDATE races
		SET player2 = $2, status = $3,
			p1_finish_ms = $4, p1_collect = $5, p1_hash = $6,
			p2_finish_ms = $7, p2_collect = $8, p2_hash = $9,
			winner = $10, escrow_amount = $11, settled_at = $12, claimed_at = $13
		WHERE address = $1
	`, race.String(), optKey(r.Player2), r.Status,
		p1f, p1c, p1h, p2f, p2c, p2h,
		optKey(r.Winner), int64(r.EscrowAmount), r.SettledAt, r.ClaimedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (repo *RaceRepository) JoinRace(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, error) {
	return repo.withRace(ctx, race, func(tx pgx.Tx, r *domain.Race) error {
		if err := ledger.Join(r, caller); err != nil {
			return err
		}
		if err := debitWallet(ctx, tx, caller, r.TokenMint, r.EntryFee); err != nil {
			return err
		}
		return journalEscrow(ctx, tx, r.Address, caller, domain.EscrowDeposit, r.EntryFee)
	})
}

func (repo *RaceRepository) SubmitResult(ctx context.Context, caller, race solana.PublicKey, res domain.Result) (*domain.Race, error) {
	return repo.withRace(ctx, race, func(tx pgx.Tx, r *domain.Race) error {
		return ledger.SubmitResult(r, caller, res)
	})
}

func (repo *RaceRepository) SettleRace(ctx context.Context, race solana.PublicKey) (*domain.Race, error) {
	return repo.withRace(ctx, race, func(tx pgx.Tx, r *domain.Race) error {
		return ledger.Settle(r, time.Now().UTC())
	})
}

func (repo *RaceRepository) ClaimPrize(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, uint64, error) {
	var payout uint64
	r, err := repo.withRace(ctx, race, func(tx pgx.Tx, r *domain.Race) error {
		p, err := ledger.Claim(r, caller, time.Now().UTC())
		if err != nil {
			return err
		}
		payout = p
		if err := creditWallet(ctx, tx, caller, r.TokenMint, p); err != nil {
			return err
		}
		return journalEscrow(ctx, tx, r.Address, caller, domain.EscrowPayout, p)
	})
	if err != nil {
		return nil, 0, err
	}
	return r, payout, nil
}

func (repo *RaceRepository) CancelRace(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, uint64, error) {
	var refund uint64
	r, err := repo.withRace(ctx, race, func(tx pgx.Tx, r *domain.Race) error {
		rf, err := ledger.Cancel(r, caller)
		if err != nil {
			return err
		}
		refund = rf
		if err := creditWallet(ctx, tx, caller, r.TokenMint, rf); err != nil {
			return err
		}
		return journalEscrow(ctx, tx, r.Address, caller, domain.EscrowRefund, rf)
	})
	if err != nil {
		return nil, 0, err
	}
	return r, refund, nil
}

func (repo *RaceRepository) Race(ctx context.Context, race solana.PublicKey) (*domain.Race, error) {
	row := repo.db.QueryRow(ctx, `SELECT `+raceColumns+` FROM races WHERE address = $1`, race.String())
	return scanRace(row)
}

// ListOpen returns joinable races, newest first.
func (repo *RaceRepository) ListOpen(ctx context.Context, limit int) ([]*domain.Race, error) {
	rows, err := repo.db.Query(ctx, `
		SELECT `+raceColumns+`
		FROM races
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, domain.StatusWaiting, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []*domain.Race
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, err
		}
		races = append(races, r)
	}
	return races, rows.Err()
}

// RacesForPlayer returns races the key participates in, newest first.
func (repo *RaceRepository) RacesForPlayer(ctx context.Context, player solana.PublicKey, limit int) ([]*domain.Race, error) {
	rows, err := repo.db.Query(ctx, `
		SELECT `+raceColumns+`
		FROM races
		WHERE player1 = $1 OR player2 = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, player.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var races []*domain.Race
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, err
		}
		races = append(races, r)
	}
	return races, rows.Err()
}

// LeaderboardEntry aggregates claimed wins per player.
type LeaderboardEntry struct {
	Player  string `json:"player"`
	Wins    int64  `json:"wins"`
	WonBase int64  `json:"won_base_units"`
}

func (repo *RaceRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := repo.db.Query(ctx, `
		SELECT winner, COUNT(*) AS wins, COALESCE(SUM(entry_fee * 2), 0) AS won
		FROM races
		WHERE status = $1 AND winner IS NOT NULL
		GROUP BY winner
		ORDER BY wins DESC, won DESC
		LIMIT $2
	`, domain.StatusClaimed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Player, &e.Wins, &e.WonBase); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
