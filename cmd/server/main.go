package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pradipta/schedule-engine/internal/accounting"
	"github.com/pradipta/schedule-engine/internal/config"
	"github.com/pradipta/schedule-engine/internal/handler"
	"github.com/pradipta/schedule-engine/internal/repository"
	"github.com/pradipta/schedule-engine/internal/service"
	"github.com/pradipta/schedule-engine/pkg/response"
)

func main() {
	// Load .env before viper reads the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	db, err := initDB(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	trancheRepo := repository.NewTrancheRepository(db)
	subsidyRepo := repository.NewSubsidyRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)

	// Initialize services
	loanService := service.NewLoanService(loanRepo, trancheRepo, subsidyRepo, calendarRepo,
		accounting.NopPoster{}, redisClient, cfg)
	rescheduleService := service.NewRescheduleService(repository.NewRescheduleRepository(db), loanService)

	loanHandler := handler.NewLoanHandler(loanService, cfg)
	rescheduleHandler := handler.NewRescheduleHandler(rescheduleService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(loanHandler, rescheduleHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logrus.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logrus.SetLevel(level)
	}
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loanHandler *handler.LoanHandler, rescheduleHandler *handler.RescheduleHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans/{loanId}/schedule", loanHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/disbursements", loanHandler.GetDisbursementDetails).Methods("GET")
	api.HandleFunc("/loans/{loanId}/tranches", loanHandler.AddTranche).Methods("POST")
	api.HandleFunc("/loans/{loanId}/tranches/{trancheId}", loanHandler.EditTranche).Methods("PUT")
	api.HandleFunc("/loans/{loanId}/tranches/{trancheId}", loanHandler.DeleteTranche).Methods("DELETE")
	api.HandleFunc("/loans/{loanId}/tranches/{trancheId}/disburse", loanHandler.Disburse).Methods("POST")
	api.HandleFunc("/loans/{loanId}/disbursements/undo", loanHandler.UndoLastDisbursal).Methods("POST")
	api.HandleFunc("/loans/{loanId}/repayments", loanHandler.ApplyRepayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/calendar-rules", loanHandler.ApplyCalendarChange).Methods("POST")
	api.HandleFunc("/loans/{loanId}/subsidies", loanHandler.GrantSubsidy).Methods("POST")
	api.HandleFunc("/loans/{loanId}/subsidies/revoke", loanHandler.RevokeSubsidy).Methods("POST")

	api.HandleFunc("/reschedules", rescheduleHandler.Submit).Methods("POST")
	api.HandleFunc("/reschedules/{requestId}/approve", rescheduleHandler.Approve).Methods("POST")
	api.HandleFunc("/reschedules/{requestId}/reject", rescheduleHandler.Reject).Methods("POST")

	return router
}
