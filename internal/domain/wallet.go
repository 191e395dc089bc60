package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Wallet is a custodial balance for one (owner, mint) pair. Entry fees are
// debited from here into race escrow; prizes and refunds are credited back.
type Wallet struct {
	Owner     solana.PublicKey `json:"owner"`
	TokenMint solana.PublicKey `json:"token_mint"`
	Balance   uint64           `json:"balance"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// EscrowEntry journals one escrow movement on a race account. Amount is
// always positive; Direction says which way the value moved.
type EscrowEntry struct {
	ID        int64            `json:"id"`
	Race      solana.PublicKey `json:"race"`
	Player    solana.PublicKey `json:"player"`
	Direction string           `json:"direction"` // deposit | payout | refund
	Amount    uint64           `json:"amount"`
	CreatedAt time.Time        `json:"created_at"`
}

const (
	EscrowDeposit = "deposit"
	EscrowPayout  = "payout"
	EscrowRefund  = "refund"
)

// PayoutSignal is the durable record the settlement watcher emits once per
// settled race. The unique race key makes emission idempotent.
type PayoutSignal struct {
	Race      solana.PublicKey `json:"race"`
	Winner    solana.PublicKey `json:"winner"`
	Amount    uint64           `json:"amount"`
	CreatedAt time.Time        `json:"created_at"`
}

// AuditRecord is one processed instruction, accepted or rejected.
type AuditRecord struct {
	ID        int64            `json:"id"`
	Selector  uint8            `json:"selector"`
	Race      solana.PublicKey `json:"race"`
	Caller    solana.PublicKey `json:"caller"`
	Code      string           `json:"code"` // "ok" or a domain error code
	CreatedAt time.Time        `json:"created_at"`
}
