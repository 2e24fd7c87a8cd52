package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/address-holidays/internal/api"
	"github.com/EmpoweredVote/address-holidays/internal/app"
	"github.com/EmpoweredVote/address-holidays/internal/batch"
	"github.com/EmpoweredVote/address-holidays/internal/config"
	"github.com/EmpoweredVote/address-holidays/internal/logger"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("building service", zap.Error(err))
	}
	defer a.Close()

	jobs := batch.NewJobs(a.Service, batch.Options{Workers: cfg.BatchWorkers}, log.Named("batch"))
	h := api.NewHandler(a.Service, jobs, log.Named("api"))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           api.SetupRoutes(h, cfg.CORSAllowedOrigins, cfg.APITokenHash),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server stopped", zap.Error(err))
	}
}
