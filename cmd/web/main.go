package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/maysqunaibi/strollers-backend/internal/config"
	apphttp "github.com/maysqunaibi/strollers-backend/internal/http"
	"github.com/maysqunaibi/strollers-backend/internal/http/handlers"
	"github.com/maysqunaibi/strollers-backend/internal/modules/catalog"
	"github.com/maysqunaibi/strollers-backend/internal/modules/payments"
	"github.com/maysqunaibi/strollers-backend/internal/modules/rentals"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	privKey, err := trx.ParsePrivateKey(cfg.MerchantPrivateKeyB64)
	if err != nil {
		log.Fatalf("merchant private key: %v", err)
	}

	var vendorPub *rsa.PublicKey
	if cfg.CallbackVerify {
		vendorPub, err = trx.ParsePublicKey(cfg.VendorPublicKeyB64)
		if err != nil {
			log.Fatalf("vendor public key: %v", err)
		}
	} else {
		logger.Warn("callback signature verification disabled")
	}

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	vendor := trx.NewClient(cfg.VendorBaseURL, privKey, logger)
	gateway := payments.NewMoyasarClient(cfg.MoyasarAPIURL, cfg.MoyasarSecretKey, logger)
	ledger := rentals.NewLedger(db, logger)
	svc := rentals.NewService(ledger, gateway, vendor, cfg.MerchantNo, cfg.Currency, logger)

	reconciler := rentals.NewReconciler(ledger, logger)
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	reconciler.Start(workerCtx)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:   logger,
		Rentals:  handlers.NewRentalHandler(logger, svc),
		Callback: handlers.NewCallbackHandler(logger, trx.NewVerifier(vendorPub), reconciler),
		Orders:   handlers.NewOrdersHandler(logger, ledger),
		Packages: handlers.NewPackagesHandler(logger, catalog.NewRepo(db)),
		Devices:  handlers.NewDevicesHandler(logger, vendor, cfg.MerchantNo, cfg.DeviceType),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	// Stop accepting requests first, then let the reconciler drain its queue
	// so an acked callback is never lost to the shutdown.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	reconciler.Stop()
	cancelWorker()
}
