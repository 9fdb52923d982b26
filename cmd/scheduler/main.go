package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/pradipta/schedule-engine/internal/accounting"
	"github.com/pradipta/schedule-engine/internal/config"
	"github.com/pradipta/schedule-engine/internal/repository"
	"github.com/pradipta/schedule-engine/internal/service"
)

func main() {
	_ = godotenv.Load()

	logrus.Info("Starting accrual scheduler...")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanService := service.NewLoanService(
		repository.NewLoanRepository(db),
		repository.NewTrancheRepository(db),
		repository.NewSubsidyRepository(db),
		repository.NewCalendarRepository(db),
		accounting.NopPoster{},
		redisClient,
		cfg,
	)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logrus.Warnf("Unknown timezone %s, falling back to UTC", cfg.Scheduler.Timezone)
		location = time.UTC
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Scheduler.AccrualCron, func() {
		runAccrualBatch(loanService, cfg.Scheduler.Workers)
	})
	if err != nil {
		logrus.Fatalf("Error scheduling accrual job: %v", err)
	}

	c.Start()
	logrus.Info("Scheduler started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	logrus.Info("Scheduler stopped")
}

// runAccrualBatch posts accrued interest for every active loan on a bounded
// worker pool. Each loan recalculates under its own lock, so loans are
// processed concurrently while any single loan stays sequential.
func runAccrualBatch(loans *service.LoanService, workers int) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	ids, err := loans.ListActiveLoanIDs(ctx)
	if err != nil {
		logrus.WithError(err).Error("listing active loans for accrual")
		return
	}
	logrus.WithField("loans", len(ids)).Info("Running daily accrual batch")

	asOf := time.Now()
	sem := make(chan struct{}, workers)
	done := make(chan struct{})
	for _, id := range ids {
		sem <- struct{}{}
		go func(loanID string) {
			defer func() {
				<-sem
				done <- struct{}{}
			}()
			if err := loans.PostAccrual(ctx, loanID, asOf); err != nil {
				logrus.WithField("loan_id", loanID).WithError(err).Error("accrual posting failed")
			}
		}(id)
	}
	for range ids {
		<-done
	}

	logrus.Info("Accrual batch complete")
}
