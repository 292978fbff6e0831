package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscription-billing-backoffice/internal/client"
	"subscription-billing-backoffice/internal/config"
	"subscription-billing-backoffice/internal/repository"
	"subscription-billing-backoffice/internal/server"
	"subscription-billing-backoffice/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	var db *gorm.DB
	var err error
	switch cfg.Database.Driver {
	case "mysql":
		db, err = client.InitMysqlClient(cfg.Database.URL)
	default:
		db, err = client.InitSqliteClient(cfg.Database.URL)
	}
	if err != nil {
		log.WithError(err).Fatal("database init failed")
	}

	customerRepo := repository.NewCustomerRepository(db)
	planRepo := repository.NewPlanRepository(db)
	itemRepo := repository.NewItemRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	if cfg.Database.Seed {
		ctx := context.Background()
		if err := customerRepo.Seed(ctx); err != nil {
			log.WithError(err).Fatal("seed customers failed")
		}
		if err := planRepo.Seed(ctx); err != nil {
			log.WithError(err).Fatal("seed plans failed")
		}
		if err := itemRepo.Seed(ctx); err != nil {
			log.WithError(err).Fatal("seed items failed")
		}
	}

	numbers := service.NewInvoiceNumberGenerator(invoiceRepo)
	assignmentService := service.NewAssignmentService(
		db, log,
		subscriptionRepo,
		customerRepo,
		planRepo,
		itemRepo,
		invoiceRepo,
		numbers,
	)
	invoiceService := service.NewInvoiceService(db, log, invoiceRepo, cfg.Invoice.PdfDir)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(assignmentService, invoiceService, cfg.Auth.TokenSecret)

	log.WithField("addr", serverAddr).Info("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	_, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(); err != nil {
		log.WithError(err).Fatal("HTTP server shutdown error")
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log
}
