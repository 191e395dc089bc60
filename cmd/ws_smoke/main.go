package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"raceledger/internal/service"
)

// Connects to the live event feed, subscribes to one race address and
// prints whatever arrives. Smoke check for a locally running server:
//
//	JWT_SECRET=... go run ./cmd/ws_smoke <pubkey> <race-address>
func main() {
	if len(os.Args) < 3 {
		log.Fatal("usage: ws_smoke <pubkey> <race-address>")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	service.InitJWT(jwtSecret)
	token, err := service.GenerateJWT(os.Args[1])
	if err != nil {
		log.Fatalf("gen token: %v", err)
	}

	// 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	wsURL := fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub, _ := json.Marshal(map[string]string{"op": "subscribe", "race": os.Args[2]})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("read: %v", err)
			return
		}
		log.Printf("event: %s", msg)
	}
}
