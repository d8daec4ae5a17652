package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/config"
	"bitbucket.org/mmdatafocus/books_ledger/controllers"
	"bitbucket.org/mmdatafocus/books_ledger/middlewares"
	"bitbucket.org/mmdatafocus/books_ledger/models"
	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()
	settings := config.LoadLedgerSettings()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	opts := models.EngineOptions{
		Settings: settings,
		Logger:   logger,
	}
	notifiers := models.AuditNotifiers{models.NewLogAuditNotifier(logger)}

	// LEDGER_STORE=memory runs without MySQL (local demos, smoke tests).
	var db *gorm.DB
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("LEDGER_STORE")), "memory") {
		db = config.ConnectDatabaseWithRetry()
		if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
			if err := models.MigrateTable(db); err != nil {
				logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
			}
		} else {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
		}
		opts.Store = models.NewGormStore(db)
		notifiers = append(notifiers, models.NewHistoryAuditNotifier(db))
	} else {
		opts.Store = models.NewMemoryStore()
	}

	var extra []gin.HandlerFunc
	extra = append(extra, cors.New(corsConfig()))

	// Redis shares locks and cached balances across replicas. Without it the
	// engine falls back to in-process locks, which only hold for one replica.
	if strings.TrimSpace(os.Getenv("REDIS_ADDRESS")) != "" {
		redisCtx, cancel := context.WithTimeout(sigCtx, time.Minute)
		rdb := config.ConnectRedisWithRetry(redisCtx)
		cancel()
		if rdb != nil {
			opts.Locker = utils.NewRedisLocker(config.GetRedisLock())
			if settings.BalanceCacheTTL > 0 {
				opts.Cache = models.NewRedisBalanceCache(rdb, settings.BalanceCacheTTL, logger)
			}
			if limiter := rateLimiterFromEnv(); limiter != nil {
				extra = append(extra, limiter.RateLimitMiddleware)
			}
		}
	}

	if settings.AuditTopic != "" {
		if _, err := config.GetPubSubClient(context.Background()); err != nil {
			logger.WithFields(logrus.Fields{"field": "pubsub"}).Error("audit events will not be published: " + err.Error())
		} else {
			notifiers = append(notifiers, models.NewPubSubAuditNotifier(settings.AuditTopic, logger))
		}
	}
	opts.Audit = notifiers

	engine := models.NewEngine(opts)
	router := controllers.NewRouter(controllers.NewLedgerController(engine, db), logger, extra...)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithFields(logrus.Fields{
		"port":                 port,
		"allow_negative_stock": settings.AllowNegativeStock,
	}).Info("ledger API started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
	config.ClosePubSub()
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// corsConfig requires an explicit CORS_ALLOWED_ORIGINS allowlist in
// production and allows everything elsewhere.
func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		c.AllowOrigins = splitAndTrim(allowedOrigins)
		if len(c.AllowOrigins) == 0 {
			c.AllowOrigins = []string{"https://invalid.localhost"}
		}
	} else {
		c.AllowAllOrigins = true
	}
	c.AddAllowMethods("GET", "POST", "OPTIONS")
	c.AddAllowHeaders("Origin", "Content-Type",
		middlewares.HeaderBusinessId, middlewares.HeaderUserId,
		middlewares.HeaderUserName, middlewares.HeaderCorrelationId)
	c.AddExposeHeaders("Content-Length", middlewares.HeaderCorrelationId)
	return c
}

// rateLimiterFromEnv:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func rateLimiterFromEnv() *middlewares.RateLimiter {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		return nil
	}
	limit := int64(600)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	windowSec := int64(60)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			windowSec = n
		}
	}
	return middlewares.NewRateLimiter(config.GetRedisDB(), limit, time.Duration(windowSec)*time.Second)
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
