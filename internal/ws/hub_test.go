package ws

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"

	"raceledger/internal/domain"
)

func newStubClient(player string) *Client {
	return &Client{Player: player, Send: make(chan []byte, 8)}
}

func TestHubRoutesEventsToSubscribers(t *testing.T) {
	hub := NewHub()
	sub := newStubClient("p1")
	other := newStubClient("p2")
	hub.register(sub)
	hub.register(other)

	race := solana.NewWallet().PublicKey()
	hub.subscribe(sub, race.String())

	hub.RaceUpdated(&domain.Race{Address: race, Status: domain.StatusActive})

	select {
	case msg := <-sub.Send:
		var e event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if e.Type != EventRaceUpdated {
			t.Fatalf("type = %q", e.Type)
		}
	default:
		t.Fatal("subscriber got no event")
	}

	select {
	case <-other.Send:
		t.Fatal("non-subscriber received event")
	default:
	}
}

func TestHubUnsubscribeAndUnregister(t *testing.T) {
	hub := NewHub()
	c := newStubClient("p1")
	hub.register(c)

	race := solana.NewWallet().PublicKey().String()
	hub.subscribe(c, race)
	if hub.Subscribers(race) != 1 {
		t.Fatal("subscribe did not stick")
	}

	hub.unsubscribe(c, race)
	if hub.Subscribers(race) != 0 {
		t.Fatal("unsubscribe left the client behind")
	}

	hub.subscribe(c, race)
	hub.unregister(c)
	if hub.Subscribers(race) != 0 {
		t.Fatal("unregister left subscriptions behind")
	}
	if _, ok := <-c.Send; ok {
		t.Fatal("send channel not closed on unregister")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := &Client{Player: "slow", Send: make(chan []byte)}
	hub.register(c)

	race := solana.NewWallet().PublicKey()
	hub.subscribe(c, race.String())

	// Unbuffered channel with no reader: broadcast must not block.
	done := make(chan struct{})
	go func() {
		hub.RaceUpdated(&domain.Race{Address: race})
		close(done)
	}()
	<-done
}
