package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"raceledger/internal/domain"
)

type balanceKey struct {
	owner solana.PublicKey
	mint  solana.PublicKey
}

// Memory is a single-process ledger holding race accounts and custodial
// balances in maps. It applies the same transitions as the Postgres store
// under one mutex, which stands in for the replicated ledger's per-account
// serialization. Used by tests and by local tooling that has no database.
type Memory struct {
	programID solana.PublicKey

	mu       sync.Mutex
	accounts map[solana.PublicKey]*domain.Race
	balances map[balanceKey]uint64
	now      func() time.Time
}

func NewMemory(programID solana.PublicKey) *Memory {
	return &Memory{
		programID: programID,
		accounts:  make(map[solana.PublicKey]*domain.Race),
		balances:  make(map[balanceKey]uint64),
		now:       time.Now,
	}
}

// Fund credits a custodial balance directly. Deposits are out of scope for
// the ledger itself, so tests and tooling seed balances this way.
func (m *Memory) Fund(owner, mint solana.PublicKey, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balanceKey{owner, mint}] += amount
}

func (m *Memory) Balance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[balanceKey{owner, mint}], nil
}

func (m *Memory) debit(owner, mint solana.PublicKey, amount uint64) error {
	key := balanceKey{owner, mint}
	if m.balances[key] < amount {
		return domain.ErrInsufficientFunds
	}
	m.balances[key] -= amount
	return nil
}

func (m *Memory) credit(owner, mint solana.PublicKey, amount uint64) {
	m.balances[balanceKey{owner, mint}] += amount
}

// snapshot returns a copy so callers never hold a pointer into the map.
func snapshot(r *domain.Race) *domain.Race {
	cp := *r
	cp.RaceID = append([]byte(nil), r.RaceID...)
	if r.Player2 != nil {
		p2 := *r.Player2
		cp.Player2 = &p2
	}
	if r.Player1Result != nil {
		res := *r.Player1Result
		cp.Player1Result = &res
	}
	if r.Player2Result != nil {
		res := *r.Player2Result
		cp.Player2Result = &res
	}
	if r.Winner != nil {
		w := *r.Winner
		cp.Winner = &w
	}
	if r.SettledAt != nil {
		t := *r.SettledAt
		cp.SettledAt = &t
	}
	if r.ClaimedAt != nil {
		t := *r.ClaimedAt
		cp.ClaimedAt = &t
	}
	return &cp
}

func (m *Memory) CreateRace(ctx context.Context, caller solana.PublicKey, raceID []byte, mint solana.PublicKey, entryFee uint64) (*domain.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	race, err := NewRace(m.programID, caller, raceID, mint, entryFee, m.now())
	if err != nil {
		return nil, err
	}
	if _, ok := m.accounts[race.Address]; ok {
		return nil, domain.ErrRaceExists
	}
	if err := m.debit(caller, mint, entryFee); err != nil {
		return nil, err
	}
	m.accounts[race.Address] = race
	return snapshot(race), nil
}

func (m *Memory) JoinRace(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[race]
	if !ok {
		return nil, domain.ErrRaceNotFound
	}
	if m.balances[balanceKey{caller, r.TokenMint}] < r.EntryFee {
		return nil, domain.ErrInsufficientFunds
	}
	if err := Join(r, caller); err != nil {
		return nil, err
	}
	// Debit after the transition succeeded; both run under the same lock.
	if err := m.debit(caller, r.TokenMint, r.EntryFee); err != nil {
		return nil, err
	}
	return snapshot(r), nil
}

func (m *Memory) SubmitResult(ctx context.Context, caller, race solana.PublicKey, res domain.Result) (*domain.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[race]
	if !ok {
		return nil, domain.ErrRaceNotFound
	}
	if err := SubmitResult(r, caller, res); err != nil {
		return nil, err
	}
	return snapshot(r), nil
}

func (m *Memory) SettleRace(ctx context.Context, race solana.PublicKey) (*domain.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[race]
	if !ok {
		return nil, domain.ErrRaceNotFound
	}
	if err := Settle(r, m.now()); err != nil {
		return nil, err
	}
	return snapshot(r), nil
}

func (m *Memory) ClaimPrize(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[race]
	if !ok {
		return nil, 0, domain.ErrRaceNotFound
	}
	payout, err := Claim(r, caller, m.now())
	if err != nil {
		return nil, 0, err
	}
	m.credit(caller, r.TokenMint, payout)
	return snapshot(r), payout, nil
}

func (m *Memory) CancelRace(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[race]
	if !ok {
		return nil, 0, domain.ErrRaceNotFound
	}
	refund, err := Cancel(r, caller)
	if err != nil {
		return nil, 0, err
	}
	m.credit(caller, r.TokenMint, refund)
	return snapshot(r), refund, nil
}

func (m *Memory) Race(ctx context.Context, race solana.PublicKey) (*domain.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.accounts[race]
	if !ok {
		return nil, domain.ErrRaceNotFound
	}
	return snapshot(r), nil
}

// ListOpen returns Waiting races, newest first.
func (m *Memory) ListOpen(ctx context.Context, limit int) ([]*domain.Race, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var open []*domain.Race
	for _, r := range m.accounts {
		if r.Status == domain.StatusWaiting {
			open = append(open, snapshot(r))
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}
