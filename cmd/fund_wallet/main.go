package main

import (
	"context"
	"flag"
	"log"
	"os"

	"raceledger/internal/db"
	"raceledger/internal/repository"
	"raceledger/internal/service"

	"github.com/gagliardetto/solana-go"
)

// Credits a custodial wallet and prints a session token for it. Local
// development helper; production balances arrive through the funding
// pipeline.
func main() {
	owner := flag.String("owner", "", "wallet public key (base58)")
	mint := flag.String("mint", "", "token mint (base58)")
	amount := flag.Uint64("amount", 1_000_000_000, "amount in base units")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	ownerPK, err := solana.PublicKeyFromBase58(*owner)
	if err != nil {
		log.Fatalf("invalid owner: %v", err)
	}
	mintPK, err := solana.PublicKeyFromBase58(*mint)
	if err != nil {
		log.Fatalf("invalid mint: %v", err)
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	ctx := context.Background()
	wallets := repository.NewWalletRepository(pool)
	if err := wallets.Deposit(ctx, ownerPK, mintPK, *amount); err != nil {
		log.Fatalf("deposit failed: %v", err)
	}
	balance, err := wallets.Balance(ctx, ownerPK, mintPK)
	if err != nil {
		log.Fatalf("read balance: %v", err)
	}
	log.Printf("balance=%d owner=%s mint=%s\n", balance, ownerPK, mintPK)

	service.InitJWT(jwtSecret)
	token, err := service.GenerateJWT(ownerPK.String())
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
