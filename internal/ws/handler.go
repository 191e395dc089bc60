package ws

import (
	"net/http"
	"os"

	"raceledger/internal/logger"
	"raceledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades an authenticated connection. The session token comes in
// as a query parameter because browsers cannot set headers on websockets.
func HandleWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		player, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "error", err)
			return
		}

		client := NewClient(player, conn, hub)
		go client.Run()
	}
}
