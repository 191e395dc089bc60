package handlers

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"raceledger/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

// raceParam parses the :address path segment.
func raceParam(c *gin.Context) (solana.PublicKey, bool) {
	pk, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid race address"})
		return solana.PublicKey{}, false
	}
	return pk, true
}

func parseSig(c *gin.Context, s string) (solana.Signature, bool) {
	sig, err := solana.SignatureFromBase58(s)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature encoding"})
		return solana.Signature{}, false
	}
	return sig, true
}

type createRaceRequest struct {
	RaceID    string `json:"race_id" binding:"required"`
	TokenMint string `json:"token_mint" binding:"required"`
	EntryFee  uint64 `json:"entry_fee" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// CreateRace opens a race. The caller signs the canonical instruction
// message over the derived account address; the handler rebuilds that
// message from the JSON fields.
func (h *Handler) CreateRace(c *gin.Context) {
	caller, ok := playerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req createRaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	mint, err := solana.PublicKeyFromBase58(req.TokenMint)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token mint"})
		return
	}
	sig, ok := parseSig(c, req.Signature)
	if !ok {
		return
	}
	raceID := []byte(req.RaceID)
	addr, _, err := domain.DeriveRaceAddress(h.Svc.ProgramID(), raceID, mint, req.EntryFee)
	if err != nil {
		writeError(c, err)
		return
	}

	race, err := h.Svc.CreateRace(c.Request.Context(), &domain.Instruction{
		Selector:  domain.SelectorCreateRace,
		Race:      addr,
		Caller:    caller,
		Args:      domain.EncodeCreateArgs(raceID, mint, req.EntryFee),
		Signature: sig,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, race)
}

type signedRequest struct {
	Signature string `json:"signature" binding:"required"`
}

func (h *Handler) JoinRace(c *gin.Context) {
	caller, ok := playerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	race, ok := raceParam(c)
	if !ok {
		return
	}
	var req signedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sig, ok := parseSig(c, req.Signature)
	if !ok {
		return
	}

	updated, err := h.Svc.JoinRace(c.Request.Context(), &domain.Instruction{
		Selector:  domain.SelectorJoinRace,
		Race:      race,
		Caller:    caller,
		Signature: sig,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// A finish time of zero is a legal wire value, so no required binding on it.
type submitResultRequest struct {
	FinishTimeMs  uint64 `json:"finish_time_ms"`
	Collectibles  uint32 `json:"collectibles"`
	IntegrityHash string `json:"integrity_hash"`
	Signature     string `json:"signature" binding:"required"`
}

func (h *Handler) SubmitResult(c *gin.Context) {
	caller, ok := playerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	race, ok := raceParam(c)
	if !ok {
		return
	}
	var req submitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sig, ok := parseSig(c, req.Signature)
	if !ok {
		return
	}

	res := domain.Result{FinishTimeMs: req.FinishTimeMs, Collectibles: req.Collectibles}
	if req.IntegrityHash != "" {
		raw, err := hex.DecodeString(req.IntegrityHash)
		if err != nil || len(raw) != 32 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "integrity_hash must be 32 hex bytes"})
			return
		}
		copy(res.IntegrityHash[:], raw)
	}

	updated, err := h.Svc.SubmitResult(c.Request.Context(), &domain.Instruction{
		Selector:  domain.SelectorSubmitResult,
		Race:      race,
		Caller:    caller,
		Args:      domain.EncodeSubmitArgs(res),
		Signature: sig,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// SettleRace needs no signature: the winner is a pure function of the
// stored results.
func (h *Handler) SettleRace(c *gin.Context) {
	race, ok := raceParam(c)
	if !ok {
		return
	}
	updated, err := h.Svc.SettleRace(c.Request.Context(), race)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) ClaimPrize(c *gin.Context) {
	caller, ok := playerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	race, ok := raceParam(c)
	if !ok {
		return
	}
	var req signedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sig, ok := parseSig(c, req.Signature)
	if !ok {
		return
	}

	updated, payout, err := h.Svc.ClaimPrize(c.Request.Context(), &domain.Instruction{
		Selector:  domain.SelectorClaimPrize,
		Race:      race,
		Caller:    caller,
		Signature: sig,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"race": updated, "payout": payout})
}

func (h *Handler) CancelRace(c *gin.Context) {
	caller, ok := playerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	race, ok := raceParam(c)
	if !ok {
		return
	}
	var req signedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sig, ok := parseSig(c, req.Signature)
	if !ok {
		return
	}

	updated, refund, err := h.Svc.CancelRace(c.Request.Context(), &domain.Instruction{
		Selector:  domain.SelectorCancelRace,
		Race:      race,
		Caller:    caller,
		Signature: sig,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"race": updated, "refund": refund})
}

func (h *Handler) GetRace(c *gin.Context) {
	race, ok := raceParam(c)
	if !ok {
		return
	}
	r, err := h.Svc.Race(c.Request.Context(), race)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func limitQuery(c *gin.Context, def, cap int) int {
	limit := def
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > cap {
		limit = cap
	}
	return limit
}

func (h *Handler) ListOpenRaces(c *gin.Context) {
	races, err := h.Svc.ListOpen(c.Request.Context(), limitQuery(c, 50, 200))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"races": races})
}

// MyRaces lists the caller's races across every status.
func (h *Handler) MyRaces(c *gin.Context) {
	caller, ok := playerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	races, err := h.Races.RacesForPlayer(c.Request.Context(), caller, limitQuery(c, 50, 200))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"races": races})
}

// EscrowJournal returns the escrow movements of one race.
func (h *Handler) EscrowJournal(c *gin.Context) {
	race, ok := raceParam(c)
	if !ok {
		return
	}
	entries, err := h.Wallets.EscrowEntries(c.Request.Context(), race)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// AuditTrail returns the processed instructions of one race.
func (h *Handler) AuditTrail(c *gin.Context) {
	race, ok := raceParam(c)
	if !ok {
		return
	}
	records, err := h.Audit.ForRace(c.Request.Context(), race, limitQuery(c, 100, 500))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
