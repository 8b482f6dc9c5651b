package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/credential-api/internal/application/registration"
	"github.com/credential-api/internal/config"
	"github.com/credential-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/credential-api/internal/infrastructure/jwt"
	"github.com/credential-api/internal/infrastructure/keys"
	"github.com/credential-api/internal/infrastructure/smtp"
	snsinfra "github.com/credential-api/internal/infrastructure/sns"
	transporthttp "github.com/credential-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Signing keys are mandatory — this process is the token issuer.
	material, err := keys.Load(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath)
	if err != nil {
		log.Fatalf("key material: %v", err)
	}
	jwtProvider := jwtinfra.NewProvider(material, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL)

	var notifier registration.Notifier
	switch cfg.Notifier {
	case "sns":
		sender, err := snsinfra.NewSender(cfg)
		if err != nil {
			log.Fatalf("sns sender: %v", err)
		}
		notifier = sender
	default:
		notifier = smtp.NewMailer(cfg)
	}

	deps := &transporthttp.Deps{
		AccountRepo: dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		SessionRepo: dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		TicketRepo:  dynamo.NewTicketRepo(dynamoClient, cfg.DynamoTables.Tickets),
		Notifier:    notifier,
		JWTProvider: jwtProvider,
		KeyMaterial: material,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
