package service

import (
	"context"

	"raceledger/internal/domain"
	"raceledger/internal/logger"

	"github.com/gagliardetto/solana-go"
)

// Store is the race account ledger. Satisfied by the Postgres repository in
// production and by the in-memory ledger in tests and tooling.
type Store interface {
	CreateRace(ctx context.Context, caller solana.PublicKey, raceID []byte, mint solana.PublicKey, entryFee uint64) (*domain.Race, error)
	JoinRace(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, error)
	SubmitResult(ctx context.Context, caller, race solana.PublicKey, res domain.Result) (*domain.Race, error)
	SettleRace(ctx context.Context, race solana.PublicKey) (*domain.Race, error)
	ClaimPrize(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, uint64, error)
	CancelRace(ctx context.Context, caller, race solana.PublicKey) (*domain.Race, uint64, error)
	Race(ctx context.Context, race solana.PublicKey) (*domain.Race, error)
	ListOpen(ctx context.Context, limit int) ([]*domain.Race, error)
}

// AuditRecorder persists the instruction trail. Optional.
type AuditRecorder interface {
	Record(ctx context.Context, selector uint8, race, caller solana.PublicKey, code string) error
}

// EventSink receives account updates after a successful instruction.
// Optional; backed by the websocket hub.
type EventSink interface {
	RaceUpdated(r *domain.Race)
}

// RaceService verifies instruction envelopes and applies them to the store.
// All domain checks live in the ledger transitions; this layer owns
// signatures, argument decoding, fee policy, audit and metrics.
type RaceService struct {
	store     Store
	audit     AuditRecorder
	events    EventSink
	programID solana.PublicKey
	minFee    uint64
	maxFee    uint64
}

func NewRaceService(store Store, programID solana.PublicKey, minFee, maxFee uint64) *RaceService {
	return &RaceService{
		store:     store,
		programID: programID,
		minFee:    minFee,
		maxFee:    maxFee,
	}
}

func (s *RaceService) ProgramID() solana.PublicKey {
	return s.programID
}

func (s *RaceService) WithAudit(a AuditRecorder) *RaceService {
	s.audit = a
	return s
}

func (s *RaceService) WithEvents(e EventSink) *RaceService {
	s.events = e
	return s
}

var opNames = map[uint8]string{
	domain.SelectorCreateRace:   "create_race",
	domain.SelectorJoinRace:     "join_race",
	domain.SelectorSubmitResult: "submit_result",
	domain.SelectorSettleRace:   "settle_race",
	domain.SelectorClaimPrize:   "claim_prize",
	domain.SelectorCancelRace:   "cancel_race",
}

// finish records the outcome of one instruction: audit row, counters and,
// on success, the account update event.
func (s *RaceService) finish(ctx context.Context, selector uint8, race, caller solana.PublicKey, r *domain.Race, err error) {
	op := opNames[selector]
	instructionsTotal.WithLabelValues(op).Inc()

	code := "ok"
	if err != nil {
		code = domain.ErrorCode(err)
		instructionsFailed.WithLabelValues(op, code).Inc()
	}
	if s.audit != nil {
		if auditErr := s.audit.Record(ctx, selector, race, caller, code); auditErr != nil {
			logger.Warn("audit record failed", "op", op, "error", auditErr)
		}
	}
	if err == nil && s.events != nil && r != nil {
		s.events.RaceUpdated(r)
	}
}

// checkEnvelope validates the parts every signed instruction shares.
func checkEnvelope(in *domain.Instruction, selector uint8) error {
	if in.Selector != selector {
		return domain.ErrBadSignature
	}
	return in.Verify()
}

func (s *RaceService) CreateRace(ctx context.Context, in *domain.Instruction) (*domain.Race, error) {
	if err := checkEnvelope(in, domain.SelectorCreateRace); err != nil {
		return nil, err
	}
	raceID, mint, entryFee, err := domain.DecodeCreateArgs(in.Args)
	if err != nil {
		return nil, err
	}
	if entryFee < s.minFee {
		return nil, domain.ErrEntryFeeTooLow
	}
	if entryFee > s.maxFee {
		return nil, domain.ErrEntryFeeTooHigh
	}
	// The envelope must target the account its own args derive; otherwise
	// the signature binds to the wrong address.
	derived, _, err := domain.DeriveRaceAddress(s.programID, raceID, mint, entryFee)
	if err != nil {
		return nil, err
	}
	if !derived.Equals(in.Race) {
		return nil, domain.ErrBadSignature
	}

	r, err := s.store.CreateRace(ctx, in.Caller, raceID, mint, entryFee)
	s.finish(ctx, in.Selector, in.Race, in.Caller, r, err)
	return r, err
}

func (s *RaceService) JoinRace(ctx context.Context, in *domain.Instruction) (*domain.Race, error) {
	if err := checkEnvelope(in, domain.SelectorJoinRace); err != nil {
		return nil, err
	}
	r, err := s.store.JoinRace(ctx, in.Caller, in.Race)
	s.finish(ctx, in.Selector, in.Race, in.Caller, r, err)
	return r, err
}

func (s *RaceService) SubmitResult(ctx context.Context, in *domain.Instruction) (*domain.Race, error) {
	if err := checkEnvelope(in, domain.SelectorSubmitResult); err != nil {
		return nil, err
	}
	res, err := domain.DecodeSubmitArgs(in.Args)
	if err != nil {
		return nil, err
	}
	r, err := s.store.SubmitResult(ctx, in.Caller, in.Race, res)
	s.finish(ctx, in.Selector, in.Race, in.Caller, r, err)
	return r, err
}

// SettleRace is permissionless: the outcome depends only on stored results,
// so no signature is required to trigger it.
func (s *RaceService) SettleRace(ctx context.Context, race solana.PublicKey) (*domain.Race, error) {
	r, err := s.store.SettleRace(ctx, race)
	s.finish(ctx, domain.SelectorSettleRace, race, solana.PublicKey{}, r, err)
	return r, err
}

func (s *RaceService) ClaimPrize(ctx context.Context, in *domain.Instruction) (*domain.Race, uint64, error) {
	if err := checkEnvelope(in, domain.SelectorClaimPrize); err != nil {
		return nil, 0, err
	}
	r, payout, err := s.store.ClaimPrize(ctx, in.Caller, in.Race)
	s.finish(ctx, in.Selector, in.Race, in.Caller, r, err)
	if err == nil {
		payoutsTotal.Inc()
	}
	return r, payout, err
}

func (s *RaceService) CancelRace(ctx context.Context, in *domain.Instruction) (*domain.Race, uint64, error) {
	if err := checkEnvelope(in, domain.SelectorCancelRace); err != nil {
		return nil, 0, err
	}
	r, refund, err := s.store.CancelRace(ctx, in.Caller, in.Race)
	s.finish(ctx, in.Selector, in.Race, in.Caller, r, err)
	return r, refund, err
}

func (s *RaceService) Race(ctx context.Context, race solana.PublicKey) (*domain.Race, error) {
	return s.store.Race(ctx, race)
}

func (s *RaceService) ListOpen(ctx context.Context, limit int) ([]*domain.Race, error) {
	return s.store.ListOpen(ctx, limit)
}
