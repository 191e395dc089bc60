package middleware

import (
	"net/http"
	"strings"

	"raceledger/internal/service"

	"github.com/gin-gonic/gin"
)

// PlayerKey is the context key holding the authenticated wallet's base58
// public key.
const PlayerKey = "player"

// JWT authenticates requests with a Bearer session token and stores the
// wallet key in the context for downstream handlers.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		pubkey, err := service.ParseJWT(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(PlayerKey, pubkey)
		c.Next()
	}
}
