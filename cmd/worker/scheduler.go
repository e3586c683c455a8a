package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/postpilot/postpilot/internal/bus"
	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/db"
	"github.com/postpilot/postpilot/internal/listener"
	"github.com/postpilot/postpilot/internal/logger"
	"github.com/postpilot/postpilot/internal/metrics"
	"github.com/postpilot/postpilot/internal/provider"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/scheduler"
	"github.com/postpilot/postpilot/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the publishing scheduler",
	RunE:  runScheduler,
}

func runScheduler(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connections
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	// ClickHouse feeds the delivery report read model; the scheduler
	// still runs if it is unreachable.
	var chDeliveries repository.CHDeliveriesRepository
	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
		DSN:             cfg.ClickHouse.DSN,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
		PingTimeout:     cfg.ClickHouse.PingTimeout,
	})
	if err != nil {
		logger.Log.Warn("clickhouse unavailable, delivery read model disabled", zap.Error(err))
	} else {
		defer func() { _ = chDB.Close() }()
		chDeliveries = repository.NewCHDeliveriesRepository(chDB)
	}

	// 3) repositories
	postsRepo := repository.NewPostsRepository(dbx)
	targetsRepo := repository.NewTargetsRepository(dbx)
	jobsRepo := repository.NewJobsRepository(dbx)
	accountsRepo := repository.NewAccountsRepository(dbx)
	webhooksRepo := repository.NewWebhooksRepository(dbx)
	notificationsRepo := repository.NewNotificationsRepository(dbx)
	outboxRepo := repository.NewOutboxRepository(dbx)

	// 4) providers -> registry
	var pubs []provider.Publisher
	for _, pc := range cfg.Providers {
		if !pc.Enabled || strings.TrimSpace(pc.BaseURL) == "" {
			continue
		}
		pubs = append(pubs,
			provider.NewHTTPPublisher(
				pc.Name,
				strings.TrimRight(pc.BaseURL, "/"),
				pc.PublishPath,
				pc.TimeoutMs,
				pc.Breaker.FailThreshold,
				pc.Breaker.OpenForMs,
			),
		)
	}
	if len(pubs) == 0 {
		return fmt.Errorf("no providers enabled in config")
	}
	registry := provider.NewRegistry(pubs)

	// 5) bus + side-effect listeners
	eventBus := bus.New(logger.Log)
	defer eventBus.Close()

	wh := webhook.NewDispatcher(webhook.Config{
		MaxAttempts:    cfg.Webhook.MaxAttempts,
		BackoffBase:    cfg.Webhook.BackoffBase,
		RequestTimeout: cfg.Webhook.RequestTimeout,
		UserAgent:      cfg.Webhook.UserAgent,
	}, webhooksRepo, chDeliveries)

	listener.Register(eventBus, wh, notificationsRepo)

	// 6) scheduler
	sched := scheduler.New(
		scheduler.Config{
			TickInterval:    cfg.Scheduler.TickInterval,
			BatchSize:       cfg.Scheduler.BatchSize,
			WorkerCount:     cfg.Scheduler.WorkerCount,
			MaxAttempts:     cfg.Scheduler.MaxAttempts,
			BackoffBase:     cfg.Scheduler.BackoffBase,
			BackoffMaxShift: cfg.Scheduler.BackoffMaxShift,
			PublishTimeout:  cfg.Scheduler.PublishTimeout,
		},
		jobsRepo,
		targetsRepo,
		postsRepo,
		accountsRepo,
		outboxRepo,
		registry,
		eventBus,
		logger.Log,
	)

	// 7) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return sched.Run(ctx)
}
