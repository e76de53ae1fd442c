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

	"github.com/go-push-relay/internal/application/retry"
	"github.com/go-push-relay/internal/application/sender"
	"github.com/go-push-relay/internal/application/token"
	"github.com/go-push-relay/internal/config"
	"github.com/go-push-relay/internal/infrastructure/clientlogin"
	"github.com/go-push-relay/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-push-relay/internal/infrastructure/jwt"
	s3infra "github.com/go-push-relay/internal/infrastructure/s3"
	"github.com/go-push-relay/internal/infrastructure/sns"
	sqsinfra "github.com/go-push-relay/internal/infrastructure/sqs"
	transporthttp "github.com/go-push-relay/internal/transport/http"
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

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for interest photos.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if s, err := sns.NewSender(cfg); err == nil {
		smsSender = s
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// Delivery pipeline: token store -> retry queue -> sender -> worker.
	deviceRepo := dynamo.NewDeviceRepo(dynamoClient, cfg.DynamoTables.Devices)
	deliveryCfgRepo := dynamo.NewDeliveryConfigRepo(dynamoClient, cfg.DynamoTables.DeliveryConfig)
	tokenStore := token.NewStore(deliveryCfgRepo, clientlogin.NewClient(cfg), cfg.DeliveryEndpoint)

	retryQueue := sqsinfra.NewQueue(sqsinfra.NewClient(cfg), cfg.RetryQueueURL)
	scheduler := retry.NewScheduler(retryQueue, cfg.RetryMaxJitter)
	pushSender := sender.NewService(tokenStore, scheduler)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go func() {
		if err := retry.NewWorker(retryQueue, pushSender).Run(workerCtx); err != nil && workerCtx.Err() == nil {
			log.Printf("WARN: retry worker stopped: %v", err)
		}
	}()

	deps := &transporthttp.Deps{
		DeviceRepo:   deviceRepo,
		InterestRepo: dynamo.NewInterestRepo(dynamoClient, cfg.DynamoTables.Interests),
		S3Store:      s3Store,
		Sender:       pushSender,
		SMSSender:    smsSender,
		JWTProvider:  jwtProvider,
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
	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
