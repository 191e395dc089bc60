package config

import (
	"os"
	"strconv"

	"raceledger/internal/logger"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Ledger program identity. Race addresses are derived from it, so
	// changing it invalidates every existing account.
	ProgramID solana.PublicKey

	// Entry fee bounds, in base token units.
	MinEntryFee uint64
	MaxEntryFee uint64

	// Settlement watcher poll interval, seconds.
	SettlePollSeconds int

	// Fixed-window rate limit per authenticated player.
	PlayerRateLimit  int
	PlayerRateWindow int
}

const defaultProgramID = "57H2v8mytNYpw4V87UfwiQ9RjYWZr5ps4ggUGou9fK6P"

// Load reads configuration from the environment, with .env as a local
// convenience. Missing required values are fatal at startup, never later.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	programStr := os.Getenv("PROGRAM_ID")
	if programStr == "" {
		programStr = defaultProgramID
	}
	programID, err := solana.PublicKeyFromBase58(programStr)
	if err != nil {
		logger.Fatal("PROGRAM_ID is not a valid public key", "error", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	minFee := uint64(1)
	if v := os.Getenv("MIN_ENTRY_FEE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			minFee = n
		}
	}

	maxFee := uint64(1_000_000_000_000)
	if v := os.Getenv("MAX_ENTRY_FEE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n >= minFee {
			maxFee = n
		}
	}

	settlePoll := 5
	if v := os.Getenv("SETTLE_POLL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			settlePoll = n
		}
	}

	rateLimit := 60
	if v := os.Getenv("PLAYER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rateLimit = n
		}
	}

	rateWindow := 60
	if v := os.Getenv("PLAYER_RATE_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rateWindow = n
		}
	}

	return &Config{
		AppPort:           port,
		DatabaseURL:       dbURL,
		JWTSecret:         jwtSecret,
		RedisAddr:         redisAddr,
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		ProgramID:         programID,
		MinEntryFee:       minFee,
		MaxEntryFee:       maxFee,
		SettlePollSeconds: settlePoll,
		PlayerRateLimit:   rateLimit,
		PlayerRateWindow:  rateWindow,
	}
}
