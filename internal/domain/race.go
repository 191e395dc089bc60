package domain

import (
	"encoding/binary"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Race statuses. Transitions are forward-only:
// Waiting -> Active -> Settled -> Claimed, with Waiting -> Cancelled as
// the single terminal branch for abandoned races.
const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusSettled   = "settled"
	StatusClaimed   = "claimed"
	StatusCancelled = "cancelled"
)

// Result is one player's write-once race outcome.
type Result struct {
	FinishTimeMs  uint64   `json:"finish_time_ms"`
	Collectibles  uint32   `json:"collectibles"`
	IntegrityHash [32]byte `json:"-"`
}

// Race is the replicated account for one head-to-head wager. Its address is
// derived, not chosen: two races with the same (race_id, token_mint,
// entry_fee) collide by construction.
type Race struct {
	Address solana.PublicKey `json:"address"`
	Bump    uint8            `json:"bump"`

	RaceID    []byte           `json:"race_id"`
	TokenMint solana.PublicKey `json:"token_mint"`
	EntryFee  uint64           `json:"entry_fee"`

	Player1 solana.PublicKey  `json:"player1"`
	Player2 *solana.PublicKey `json:"player2,omitempty"`

	Status string `json:"status"`

	Player1Result *Result           `json:"player1_result,omitempty"`
	Player2Result *Result           `json:"player2_result,omitempty"`
	Winner        *solana.PublicKey `json:"winner,omitempty"`

	EscrowAmount uint64 `json:"escrow_amount"`

	CreatedAt time.Time  `json:"created_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// HasPlayer reports whether pk is a seated participant.
func (r *Race) HasPlayer(pk solana.PublicKey) bool {
	if r.Player1.Equals(pk) {
		return true
	}
	return r.Player2 != nil && r.Player2.Equals(pk)
}

// ResultFor returns the stored result slot for pk, or nil if pk is not a
// participant.
func (r *Race) ResultFor(pk solana.PublicKey) *Result {
	if r.Player1.Equals(pk) {
		return r.Player1Result
	}
	if r.Player2 != nil && r.Player2.Equals(pk) {
		return r.Player2Result
	}
	return nil
}

// DeriveRaceAddress computes the program-derived address for a race account.
// Seeds: the literal "race", the raw race id, the mint key, and the entry fee
// as little-endian u64. The fee in the seeds means the fee can never silently
// change after creation; a different fee is a different account.
func DeriveRaceAddress(programID solana.PublicKey, raceID []byte, mint solana.PublicKey, entryFee uint64) (solana.PublicKey, uint8, error) {
	if len(raceID) == 0 || len(raceID) > 32 {
		return solana.PublicKey{}, 0, ErrInvalidRaceID
	}
	feeSeed := make([]byte, 8)
	binary.LittleEndian.PutUint64(feeSeed, entryFee)
	return solana.FindProgramAddress([][]byte{
		[]byte("race"),
		raceID,
		mint.Bytes(),
		feeSeed,
	}, programID)
}
