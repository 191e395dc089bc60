// Package watcher polls for settled races and emits exactly one payout
// signal per race. Downstream consumers (payout tooling, dashboards) read
// the signals from Postgres or the Redis channel; duplicates are impossible
// because emission is gated on the payout_signals primary key.
package watcher

import (
	"context"
	"encoding/json"
	"time"

	"raceledger/internal/domain"
	"raceledger/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// PayoutChannel is the Redis pub/sub channel signals are published on.
const PayoutChannel = "payout:signals"

// SignalStore is the durable side of the watcher, backed by the payout
// repository.
type SignalStore interface {
	Unsignaled(ctx context.Context, limit int) ([]domain.PayoutSignal, error)
	Emit(ctx context.Context, s domain.PayoutSignal) (bool, error)
}

// Broadcaster pushes emitted signals to live subscribers. Optional.
type Broadcaster interface {
	PayoutEmitted(s domain.PayoutSignal)
}

type Settlement struct {
	store    SignalStore
	redis    *redis.Client
	events   Broadcaster
	interval time.Duration
	batch    int
}

func NewSettlement(store SignalStore, interval time.Duration) *Settlement {
	return &Settlement{
		store:    store,
		interval: interval,
		batch:    100,
	}
}

func (w *Settlement) WithRedis(client *redis.Client) *Settlement {
	w.redis = client
	return w
}

func (w *Settlement) WithEvents(events Broadcaster) *Settlement {
	w.events = events
	return w
}

// Run polls until the context is cancelled.
func (w *Settlement) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("settlement watcher started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("settlement watcher stopped")
			return
		case <-ticker.C:
			if err := w.tick(ctx); err != nil {
				logger.Error("settlement watcher tick failed", "error", err)
			}
		}
	}
}

// tick emits signals for every settled race that has none yet. Safe to run
// concurrently across instances: the insert decides who emits.
func (w *Settlement) tick(ctx context.Context) error {
	pending, err := w.store.Unsignaled(ctx, w.batch)
	if err != nil {
		return err
	}

	for _, s := range pending {
		emitted, err := w.store.Emit(ctx, s)
		if err != nil {
			return err
		}
		if !emitted {
			continue
		}
		logger.Info("payout signal emitted",
			"race", s.Race.String(),
			"winner", s.Winner.String(),
			"amount", s.Amount)

		w.publish(ctx, s)
		if w.events != nil {
			w.events.PayoutEmitted(s)
		}
	}
	return nil
}

func (w *Settlement) publish(ctx context.Context, s domain.PayoutSignal) {
	if w.redis == nil {
		return
	}
	payload, err := json.Marshal(s)
	if err != nil {
		logger.Error("marshal payout signal", "error", err)
		return
	}
	if err := w.redis.Publish(ctx, PayoutChannel, payload).Err(); err != nil {
		logger.Warn("publish payout signal", "error", err)
	}
}
