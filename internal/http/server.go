package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/postpilot/postpilot/internal/config"
	"github.com/postpilot/postpilot/internal/http/middleware"
	"github.com/postpilot/postpilot/internal/metrics"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/service/compose"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	usersRepo := repository.NewUsersRepository(mysqlDB)
	postsRepo := repository.NewPostsRepository(mysqlDB)
	targetsRepo := repository.NewTargetsRepository(mysqlDB)
	jobsRepo := repository.NewJobsRepository(mysqlDB)
	accountsRepo := repository.NewAccountsRepository(mysqlDB)
	webhooksRepo := repository.NewWebhooksRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// repos (ClickHouse)
	chDeliveries := repository.NewCHDeliveriesRepository(clickhouseDB)

	// services
	composeSvc := compose.New(mysqlDB, postsRepo, targetsRepo, jobsRepo, accountsRepo, outboxRepo)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(usersRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:user:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/posts", schedulePostHandler(composeSvc))
	v1.GET("/posts/:id", postStatusHandler(postsRepo, targetsRepo))
	v1.POST("/webhooks", createWebhookHandler(webhooksRepo))
	v1.GET("/webhooks", listWebhooksHandler(webhooksRepo))
	v1.DELETE("/webhooks/:id", deleteWebhookHandler(webhooksRepo))
	v1.GET("/reports/deliveries", listDeliveriesHandler(chDeliveries))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
