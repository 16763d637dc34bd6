/*
duochat is a real-time relay for two-party chat and call signaling.

It persists messages and block relations in PostgreSQL, stores attachments in
S3-compatible storage, and relays chat and WebRTC signaling events between the
two live websocket sessions of a conversation.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"duochat/internal/app/relay"
	"duochat/internal/app/storage"
	"duochat/internal/app/store"
	"duochat/internal/configs"
	"duochat/internal/handler"
	"duochat/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Info("Configuration loaded.", "environment", cfg.Environment, "port", cfg.Port)

	pool, err := store.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	attachmentStorage, err := storage.NewAttachmentStorage(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize attachment storage")
	}

	messages := store.NewMessageStore(pool)
	conversations := store.NewConversationStore(pool)
	blocks := store.NewBlockStore(pool)

	gateway := relay.NewGateway(messages, conversations, blocks)

	deps := &handler.AppDeps{
		Gateway:       gateway,
		Config:        cfg,
		Messages:      messages,
		Conversations: conversations,
		Storage:       attachmentStorage,
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.Router(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logx.Info("Server starting...", "addr", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Shutdown signal received, draining connections...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Graceful shutdown failed")
	}

	logx.Info("Server stopped.")
}
