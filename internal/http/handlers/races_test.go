package handlers

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"raceledger/internal/domain"
	"raceledger/internal/ledger"
	"raceledger/internal/service"
)

var testProgramID = solana.MustPublicKeyFromBase58("57H2v8mytNYpw4V87UfwiQ9RjYWZr5ps4ggUGou9fK6P")

func TestSubmitResultAcceptsZeroFinishTime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	mem := ledger.NewMemory(testProgramID)
	svc := service.NewRaceService(mem, testProgramID, 1, 1_000_000)
	h := &Handler{Svc: svc}

	mint := solana.NewWallet().PublicKey()
	p1 := solana.NewWallet()
	p2 := solana.NewWallet().PublicKey()
	mem.Fund(p1.PublicKey(), mint, 100)
	mem.Fund(p2, mint, 100)

	race, err := mem.CreateRace(ctx, p1.PublicKey(), []byte("zero-ms"), mint, 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := mem.JoinRace(ctx, p2, race.Address); err != nil {
		t.Fatalf("join: %v", err)
	}

	in := &domain.Instruction{
		Selector: domain.SelectorSubmitResult,
		Race:     race.Address,
		Caller:   p1.PublicKey(),
		Args:     domain.EncodeSubmitArgs(domain.Result{}),
	}
	in.Sign(ed25519.PrivateKey(p1.PrivateKey))

	r := gin.New()
	r.POST("/races/:address/result", func(c *gin.Context) {
		c.Set("player", p1.PublicKey().String())
	}, h.SubmitResult)

	body, _ := json.Marshal(map[string]any{
		"finish_time_ms": 0,
		"signature":      in.Signature.String(),
	})
	req := httptest.NewRequest(http.MethodPost, "/races/"+race.Address.String()+"/result", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	got, err := mem.Race(ctx, race.Address)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Player1Result == nil || got.Player1Result.FinishTimeMs != 0 {
		t.Fatal("zero finish time not recorded")
	}
}
