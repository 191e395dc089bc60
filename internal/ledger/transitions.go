// Package ledger implements the race account state machine. The transition
// functions here are pure: they mutate a single in-memory Race under the
// caller's serialization (a row lock in Postgres, a mutex in Memory) and
// either fully apply or leave the account untouched.
package ledger

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"raceledger/internal/domain"
)

// addEscrow is checked u64 addition. Escrow never wraps; a wrap means the
// caller tried to hold more value than the token supply can express.
func addEscrow(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, domain.ErrEscrowOverflow
	}
	return sum, nil
}

// NewRace builds a fresh Waiting account with the creator seated as player1
// and the creator's entry fee already in escrow.
func NewRace(programID solana.PublicKey, creator solana.PublicKey, raceID []byte, mint solana.PublicKey, entryFee uint64, now time.Time) (*domain.Race, error) {
	addr, bump, err := domain.DeriveRaceAddress(programID, raceID, mint, entryFee)
	if err != nil {
		return nil, err
	}
	id := make([]byte, len(raceID))
	copy(id, raceID)
	return &domain.Race{
		Address:      addr,
		Bump:         bump,
		RaceID:       id,
		TokenMint:    mint,
		EntryFee:     entryFee,
		Player1:      creator,
		Status:       domain.StatusWaiting,
		EscrowAmount: entryFee,
		CreatedAt:    now,
	}, nil
}

// Join seats caller as player2 and moves the race to Active. The caller's
// entry fee joins the escrow. The creator cannot take the second seat: the
// result slots key on identity, so a self-joined race could only ever fill
// the player1 slot and would hold the doubled escrow forever.
func Join(r *domain.Race, caller solana.PublicKey) error {
	if r.Status != domain.StatusWaiting {
		return domain.ErrInvalidRaceStatus
	}
	if r.Player2 != nil {
		return domain.ErrPlayer2AlreadySet
	}
	if r.Player1.Equals(caller) {
		return domain.ErrSelfJoin
	}
	escrow, err := addEscrow(r.EscrowAmount, r.EntryFee)
	if err != nil {
		return err
	}
	p2 := caller
	r.Player2 = &p2
	r.EscrowAmount = escrow
	r.Status = domain.StatusActive
	return nil
}

// SubmitResult writes the caller's result slot. Each slot is write-once;
// there is no way to amend a submitted time. There is no status gate beyond
// rejecting cancelled races: a seated player may record their time even
// before the opponent joins, and a retry after settlement fails on the
// filled slot, which is what makes client-side retries safe.
func SubmitResult(r *domain.Race, caller solana.PublicKey, res domain.Result) error {
	if r.Status == domain.StatusCancelled {
		return domain.ErrInvalidRaceStatus
	}
	if !r.HasPlayer(caller) {
		return domain.ErrPlayerNotInRace
	}
	if r.ResultFor(caller) != nil {
		return domain.ErrResultAlreadySubmitted
	}
	stored := res
	if r.Player1.Equals(caller) {
		r.Player1Result = &stored
	} else {
		r.Player2Result = &stored
	}
	return nil
}

// Settle picks the winner once both results are in. Lower finish time wins;
// on an exact tie the creator wins. Settlement is permissionless: anyone may
// trigger it, the outcome depends only on the stored results.
func Settle(r *domain.Race, now time.Time) error {
	switch r.Status {
	case domain.StatusSettled, domain.StatusClaimed, domain.StatusCancelled:
		return domain.ErrInvalidRaceStatus
	}
	// Before settlement the decisive condition is result completeness: a
	// waiting race can never have both slots full, so it reports the
	// missing results rather than its status.
	if r.Player1Result == nil || r.Player2Result == nil {
		return domain.ErrResultsNotComplete
	}
	winner := r.Player1
	if r.Player2Result.FinishTimeMs < r.Player1Result.FinishTimeMs {
		winner = *r.Player2
	}
	r.Winner = &winner
	r.Status = domain.StatusSettled
	t := now
	r.SettledAt = &t
	return nil
}

// Claim drains the escrow to the winner and closes the race. Returns the
// payout amount. A second claim fails on status before it can ever observe
// the emptied escrow.
func Claim(r *domain.Race, caller solana.PublicKey, now time.Time) (uint64, error) {
	if r.Status != domain.StatusSettled {
		return 0, domain.ErrInvalidRaceStatus
	}
	if r.Winner == nil || !r.Winner.Equals(caller) {
		return 0, domain.ErrNotWinner
	}
	if r.EscrowAmount == 0 {
		return 0, domain.ErrEscrowEmpty
	}
	payout := r.EscrowAmount
	r.EscrowAmount = 0
	r.Status = domain.StatusClaimed
	t := now
	r.ClaimedAt = &t
	return payout, nil
}

// Cancel lets the creator abandon a race nobody joined, refunding their
// entry fee. Returns the refund amount.
func Cancel(r *domain.Race, caller solana.PublicKey) (uint64, error) {
	if r.Status != domain.StatusWaiting {
		return 0, domain.ErrInvalidRaceStatus
	}
	if !r.Player1.Equals(caller) {
		return 0, domain.ErrPlayerNotInRace
	}
	refund := r.EscrowAmount
	r.EscrowAmount = 0
	r.Status = domain.StatusCancelled
	return refund, nil
}
