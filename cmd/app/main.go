package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raceledger/internal/config"
	"raceledger/internal/db"
	httpServer "raceledger/internal/http"
	"raceledger/internal/http/middleware"
	"raceledger/internal/logger"
	"raceledger/internal/repository"
	"raceledger/internal/service"
	"raceledger/internal/watcher"
	"raceledger/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	service.InitJWT(cfg.JWTSecret)

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	r := gin.Default()

	// CORS for browser clients on other origins.
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	hub := ws.NewHub()
	httpServer.RegisterRoutes(r, dbPool, cfg, hub, version)

	// Settlement watcher emits payout signals for settled races.
	watcherCtx, stopWatcher := context.WithCancel(context.Background())
	settlement := watcher.NewSettlement(
		repository.NewPayoutRepository(dbPool),
		time.Duration(cfg.SettlePollSeconds)*time.Second,
	).WithEvents(hub)
	if rc := middleware.RedisClient(); rc != nil {
		settlement = settlement.WithRedis(rc)
	}
	go settlement.Run(watcherCtx)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "program", cfg.ProgramID.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stopWatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
