package handlers

import (
	"net/http"

	"raceledger/internal/service"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

type authRequest struct {
	Pubkey    string `json:"pubkey" binding:"required"`
	Timestamp int64  `json:"timestamp" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Auth opens a session for a wallet that signed the login message.
func (h *Handler) Auth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pubkey, err := solana.PublicKeyFromBase58(req.Pubkey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pubkey"})
		return
	}
	sig, err := solana.SignatureFromBase58(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature encoding"})
		return
	}

	if err := service.VerifyLogin(pubkey, req.Timestamp, sig); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	token, err := service.GenerateJWT(pubkey.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "pubkey": pubkey.String()})
}
