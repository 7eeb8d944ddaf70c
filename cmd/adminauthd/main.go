// Command adminauthd serves the administrator authentication API for the
// patient-intake CRM. All state lives in Redis; mail goes out over SMTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	adminauth "github.com/420website/CRM-sub000"
	"github.com/420website/CRM-sub000/api"
	"github.com/420website/CRM-sub000/notify"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Running without a .env file is normal in containers.
	_ = godotenv.Load()

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     env("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	})

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Fatal("redis unreachable", zap.Error(err))
	}

	gateway := notify.NewSMTPGateway(notify.SMTPConfig{
		Host:     env("SMTP_HOST", "localhost"),
		Port:     env("SMTP_PORT", "587"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     env("SMTP_FROM", "no-reply@localhost"),
	})

	builder := adminauth.New().
		WithRedis(rdb).
		WithGateway(gateway).
		WithAuditSink(adminauth.NewJSONWriterSink(os.Stdout))

	initialPIN := os.Getenv("ADMIN_INITIAL_PIN")
	if initialPIN != "" {
		builder = builder.WithInitialPIN(initialPIN)
	}

	engine, err := builder.Build()
	if err != nil {
		logger.Fatal("engine construction failed", zap.Error(err))
	}
	defer engine.Close()

	if initialPIN == "" {
		// Without an initial PIN the account must already be provisioned;
		// refusing to start beats serving an engine that can never log in.
		probeCtx, cancelProbe := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := engine.SecondFactorStatus(probeCtx)
		cancelProbe()
		if errors.Is(err, adminauth.ErrEngineNotReady) {
			logger.Fatal("no administrator account exists; set ADMIN_INITIAL_PIN to provision one")
		}
		if err != nil {
			logger.Fatal("account probe failed", zap.Error(err))
		}
	}

	server := api.NewServer(engine, logger)
	router := server.Router()

	wrapped := handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(router)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		wrapped = handlers.CORS(
			handlers.AllowedOrigins([]string{origins}),
			handlers.AllowedMethods([]string{http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		)(wrapped)
	}

	srv := &http.Server{
		Addr:         env("LISTEN_ADDR", ":8443"),
		Handler:      wrapped,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
