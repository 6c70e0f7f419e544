package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"krypto_store/internal/config"
	"krypto_store/internal/controllers"
	"krypto_store/internal/ledger"
	"krypto_store/internal/logger"
	"krypto_store/internal/middleware"
	"krypto_store/internal/realtime"
	"krypto_store/internal/receipts"
	"krypto_store/internal/routes"
	"krypto_store/internal/storage"
)

func main() {
	cfg := config.Load()

	// Structured logging to a rotating file
	accessLog := logger.Setup(cfg.LogFile, cfg.LogLevel, cfg.LogStdout)
	gin.SetMode(cfg.GinMode)

	db, err := config.OpenDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}

	var snapshots storage.SnapshotStore = storage.NewGormStore(db)
	if cfg.StorageDriver == "redis" {
		rs, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to redis")
		}
		defer rs.Close()
		snapshots = rs
	}

	store := ledger.New(snapshots, ledger.Options{PersistTimeout: cfg.PersistTimeout})
	if resumed, err := store.ResumeActiveAccount(); err != nil {
		logrus.WithError(err).Warn("Could not resume the last active account.")
	} else if resumed {
		logrus.WithField("account", store.ActiveAccount()).Info("Resumed active account.")
	}

	hub := realtime.NewLedgerHub()
	store.Subscribe(hub.Publish)

	ctl := &controllers.Controller{
		Store:     store,
		Operators: storage.NewOperatorRepository(db),
		Tokens:    middleware.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Hub:       hub,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ReceiptsDatabaseURL != "" {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		repo, err := receipts.Open(openCtx, cfg.ReceiptsDatabaseURL)
		cancel()
		if err != nil {
			logrus.WithError(err).Warn("Receipt history unavailable, continuing without it.")
		} else {
			defer repo.Close()
			ctl.Receipts = repo
		}
	}

	r := routes.SetupRouter(ctl, accessLog)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: middleware.EnableCORS(r, cfg.AllowedOrigins),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		logrus.WithField("addr", server.Addr).Info("Server running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Server stopped with error")
	}
	if err := store.Flush(); err != nil {
		logrus.WithError(err).Error("Final flush failed, last changes may not be saved")
	}
	logrus.Info("Server exiting")
}
