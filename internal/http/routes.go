package http

import (
	"os"
	"strconv"
	"time"

	"raceledger/internal/config"
	"raceledger/internal/http/handlers"
	"raceledger/internal/http/middleware"
	"raceledger/internal/repository"
	"raceledger/internal/service"
	"raceledger/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegisterRoutes wires the full HTTP surface: health probes, the signed
// instruction endpoints, read endpoints and the websocket feed.
func RegisterRoutes(r *gin.Engine, db *pgxpool.Pool, cfg *config.Config, hub *ws.Hub, version string) {
	races := repository.NewRaceRepository(db, cfg.ProgramID)
	wallets := repository.NewWalletRepository(db)
	audit := repository.NewAuditRepository(db)

	svc := service.NewRaceService(races, cfg.ProgramID, cfg.MinEntryFee, cfg.MaxEntryFee).
		WithAudit(audit).
		WithEvents(hub)

	h := handlers.NewHandler(svc, races, wallets, audit)
	healthHandler := handlers.NewHealthHandler(db, version)

	apiRateLimit := 30
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateLimit = n
		}
	}
	apiRateWindow := time.Minute
	if v := os.Getenv("API_RATE_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			apiRateWindow = time.Duration(n) * time.Second
		}
	}
	authRateLimit := 5
	if v := os.Getenv("AUTH_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			authRateLimit = n
		}
	}

	// Health checks, unlimited.
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	opRL := middleware.PlayerRateLimit(cfg.PlayerRateLimit, time.Duration(cfg.PlayerRateWindow)*time.Second)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(apiRateLimit, apiRateWindow))
	{
		v1.POST("/auth", middleware.RedisRateLimit(authRateLimit, time.Minute), h.Auth)

		// Read surface.
		v1.GET("/races", h.ListOpenRaces)
		v1.GET("/races/:address", h.GetRace)
		v1.GET("/races/:address/escrow", h.EscrowJournal)
		v1.GET("/races/:address/audit", h.AuditTrail)
		v1.GET("/leaderboard", h.Leaderboard)

		// Instruction surface. Every write is signed; the rate limit keys
		// on the wallet, not the IP.
		v1.POST("/races", middleware.JWT(), opRL, h.CreateRace)
		v1.POST("/races/:address/join", middleware.JWT(), opRL, h.JoinRace)
		v1.POST("/races/:address/result", middleware.JWT(), opRL, h.SubmitResult)
		v1.POST("/races/:address/settle", middleware.JWT(), opRL, h.SettleRace)
		v1.POST("/races/:address/claim", middleware.JWT(), opRL, h.ClaimPrize)
		v1.POST("/races/:address/cancel", middleware.JWT(), opRL, h.CancelRace)

		// Caller state.
		v1.GET("/me/races", middleware.JWT(), h.MyRaces)
		v1.GET("/wallet", middleware.JWT(), h.MyWallet)
		v1.POST("/wallet/deposit", middleware.JWT(), h.Deposit)
	}

	// Live race events.
	r.GET("/ws", ws.HandleWS(hub))
}
