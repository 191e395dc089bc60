package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Leaderboard ranks players by claimed wins.
func (h *Handler) Leaderboard(c *gin.Context) {
	entries, err := h.Races.Leaderboard(c.Request.Context(), limitQuery(c, 100, 100))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
