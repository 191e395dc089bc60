package handlers

import (
	"errors"
	"net/http"

	"raceledger/internal/domain"
	"raceledger/internal/repository"
	"raceledger/internal/service"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Svc     *service.RaceService
	Races   *repository.RaceRepository
	Wallets *repository.WalletRepository
	Audit   *repository.AuditRepository
}

func NewHandler(svc *service.RaceService, races *repository.RaceRepository, wallets *repository.WalletRepository, audit *repository.AuditRepository) *Handler {
	return &Handler{
		Svc:     svc,
		Races:   races,
		Wallets: wallets,
		Audit:   audit,
	}
}

// playerKey reads the authenticated wallet key the JWT middleware stored.
func playerKey(c *gin.Context) (solana.PublicKey, bool) {
	v, ok := c.Get("player")
	if !ok {
		return solana.PublicKey{}, false
	}
	s, ok := v.(string)
	if !ok {
		return solana.PublicKey{}, false
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, false
	}
	return pk, true
}

// writeError maps domain errors onto HTTP statuses. The body always carries
// the stable error code so clients can switch on it.
func writeError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrRaceNotFound), errors.Is(err, domain.ErrWalletNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotWinner), errors.Is(err, domain.ErrPlayerNotInRace):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrBadSignature):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrRaceExists),
		errors.Is(err, domain.ErrInvalidRaceStatus),
		errors.Is(err, domain.ErrPlayer2AlreadySet),
		errors.Is(err, domain.ErrSelfJoin),
		errors.Is(err, domain.ErrResultAlreadySubmitted),
		errors.Is(err, domain.ErrResultsNotComplete),
		errors.Is(err, domain.ErrEscrowEmpty):
		status = http.StatusConflict
	case code == "internal":
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
