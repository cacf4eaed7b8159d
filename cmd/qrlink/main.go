package main

import (
	"log"
	"os"

	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/layer-3/qrlink/adapters/events"
	"github.com/layer-3/qrlink/adapters/qr"
	"github.com/layer-3/qrlink/adapters/sessions"
	"github.com/layer-3/qrlink/adapters/store"
	"github.com/layer-3/qrlink/service"
	"github.com/layer-3/qrlink/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Generate a new ECDSA key pair (you would normally load this from somewhere secure)
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(err)
	}

	// Get Redis URL from environment
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	// Base URL encoded into QR payloads so the phone knows where to confirm
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:9000"
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":9000"
	}

	// Parse Redis URL and create client
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	redisClient := redis.NewClient(opts)

	// Initialize Watermill Redis publisher
	logger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	tokenStore := store.NewRedisStore(redisClient)
	sessionManager := sessions.NewJWTSessions(privateKey, tokenStore)
	eventPub := events.NewWatermillPublisher(publisher)
	renderer := qr.NewQRCodeRenderer()

	pairingService := service.NewPairingService(tokenStore, sessionManager, eventPub, renderer, baseURL)

	// Setup Gin router
	router := http.SetupRouter(pairingService, sessionManager)

	// Start server
	if err := router.Run(listenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
