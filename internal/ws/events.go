package ws

import (
	"encoding/json"

	"raceledger/internal/domain"
	"raceledger/internal/logger"
)

// Outbound event types.
const (
	EventRaceUpdated = "race_updated"
	EventPayout      = "payout"
	EventReady       = "ready"
)

type event struct {
	Type string `json:"type"`
	Race any    `json:"race,omitempty"`
	Data any    `json:"data,omitempty"`
}

func marshalEvent(e event) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		logger.Error("marshal ws event", "error", err)
		return nil
	}
	return b
}

// RaceUpdated broadcasts a fresh account snapshot to the race's
// subscribers. Satisfies the event sink the instruction service accepts.
func (h *Hub) RaceUpdated(r *domain.Race) {
	if b := marshalEvent(event{Type: EventRaceUpdated, Race: r}); b != nil {
		h.broadcast(r.Address.String(), b)
	}
}

// PayoutEmitted broadcasts a settlement watcher signal.
func (h *Hub) PayoutEmitted(s domain.PayoutSignal) {
	if b := marshalEvent(event{Type: EventPayout, Data: s}); b != nil {
		h.broadcast(s.Race.String(), b)
	}
}
