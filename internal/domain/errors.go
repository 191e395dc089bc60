package domain

import "errors"

// Every instruction failure is terminal for that call: the ledger's
// atomicity means a rejected instruction leaves the race account exactly as
// it was. Recovery (retry, user messaging) belongs to the caller.
var (
	// Storage-level key collision: a race with the same
	// (race_id, token_mint, entry_fee) already exists at the derived address.
	ErrRaceExists = errors.New("race already exists")

	// Status violations.
	ErrInvalidRaceStatus = errors.New("invalid race status")

	// Capacity violation.
	ErrPlayer2AlreadySet = errors.New("player2 already set")

	// Identity violations.
	ErrPlayerNotInRace = errors.New("player not in race")
	ErrNotWinner       = errors.New("caller is not the winner")
	ErrBadSignature    = errors.New("invalid instruction signature")
	ErrSelfJoin        = errors.New("creator cannot join own race")

	// Duplicate-submission violation.
	ErrResultAlreadySubmitted = errors.New("result already submitted")

	// Incompleteness violation.
	ErrResultsNotComplete = errors.New("both results required")

	// Custody violations.
	ErrEscrowEmpty       = errors.New("escrow already paid out")
	ErrEscrowOverflow    = errors.New("escrow amount out of bounds")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Argument violations (checked before any state is read).
	ErrInvalidRaceID   = errors.New("race id must be 1-32 bytes")
	ErrEntryFeeTooLow  = errors.New("entry fee below minimum")
	ErrEntryFeeTooHigh = errors.New("entry fee exceeds maximum")

	ErrRaceNotFound   = errors.New("race not found")
	ErrWalletNotFound = errors.New("wallet not found")
)

// ErrorCode returns the stable wire code for a domain error, or "internal"
// for anything unrecognized. The codes are part of the API surface; clients
// map them to UI states.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRaceExists):
		return "race_exists"
	case errors.Is(err, ErrInvalidRaceStatus):
		return "invalid_race_status"
	case errors.Is(err, ErrPlayer2AlreadySet):
		return "player2_already_set"
	case errors.Is(err, ErrPlayerNotInRace):
		return "player_not_in_race"
	case errors.Is(err, ErrNotWinner):
		return "not_winner"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrSelfJoin):
		return "self_join"
	case errors.Is(err, ErrResultAlreadySubmitted):
		return "result_already_submitted"
	case errors.Is(err, ErrResultsNotComplete):
		return "results_not_complete"
	case errors.Is(err, ErrEscrowEmpty):
		return "escrow_empty"
	case errors.Is(err, ErrEscrowOverflow):
		return "escrow_overflow"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidRaceID):
		return "invalid_race_id"
	case errors.Is(err, ErrEntryFeeTooLow):
		return "entry_fee_too_low"
	case errors.Is(err, ErrEntryFeeTooHigh):
		return "entry_fee_too_high"
	case errors.Is(err, ErrRaceNotFound):
		return "race_not_found"
	case errors.Is(err, ErrWalletNotFound):
		return "wallet_not_found"
	default:
		return "internal"
	}
}
