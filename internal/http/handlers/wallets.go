package handlers

import (
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

// MyWallet returns the caller's custodial balance for one mint.
func (h *Handler) MyWallet(c *gin.Context) {
	caller, ok := playerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	mint, err := solana.PublicKeyFromBase58(c.Query("mint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint"})
		return
	}

	balance, err := h.Wallets.Balance(c.Request.Context(), caller, mint)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"owner":   caller.String(),
		"mint":    mint.String(),
		"balance": balance,
	})
}

type depositRequest struct {
	Mint   string `json:"mint" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// Deposit credits the caller's custodial balance. On-chain deposit
// detection lives outside this service; this endpoint is the hand-off used
// by the operator's funding pipeline.
func (h *Handler) Deposit(c *gin.Context) {
	caller, ok := playerKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	mint, err := solana.PublicKeyFromBase58(req.Mint)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mint"})
		return
	}

	if err := h.Wallets.Deposit(c.Request.Context(), caller, mint, req.Amount); err != nil {
		writeError(c, err)
		return
	}
	balance, err := h.Wallets.Balance(c.Request.Context(), caller, mint)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
