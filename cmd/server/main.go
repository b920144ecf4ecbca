// Command server runs the location verification engine: HTTP API, periodic
// monitoring, and the retention sweeper in one process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"veriloc/internal/audit"
	"veriloc/internal/consent"
	"veriloc/internal/history"
	"veriloc/internal/location"
	"veriloc/internal/platform/config"
	"veriloc/internal/platform/httpserver"
	"veriloc/internal/platform/logger"
	"veriloc/internal/platform/postgres"
	platformredis "veriloc/internal/platform/redis"
	"veriloc/internal/rights"
	"veriloc/internal/sites"
	transporthttp "veriloc/internal/transport/http"
	"veriloc/internal/verification"
	"veriloc/internal/verification/metrics"
	"veriloc/pkg/domain"
)

// sessionEnder extends erasure to the push source so no raw fix for an
// erased subject survives in process memory.
type sessionEnder struct {
	service *verification.Service
	source  *location.PushSource
}

func (s sessionEnder) EndSession(ctx context.Context, subjectID domain.SubjectID) error {
	s.source.Forget(subjectID)
	return s.service.EndSession(ctx, subjectID)
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Bootstrap(context.Background(), db); err != nil {
			log.Error("schema bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Store selection: postgres and redis when configured, in-memory
	// otherwise. The service layer never knows the difference.
	var (
		consentStore   consent.Store                 = consent.NewInMemoryStore()
		auditStore     audit.Store                   = audit.NewInMemoryStore()
		resultStore    verification.ResultStore      = verification.NewInMemoryResultStore()
		sampleCache    verification.SampleCacheStore = verification.NewInMemorySampleCache()
		emergencyStore verification.EmergencyStore   = verification.NewInMemoryEmergencyStore()
		cooldownStore  verification.CooldownStore    = verification.NewInMemoryCooldownStore()
		tokenStore     rights.TokenStore             = rights.NewInMemoryTokenStore()
	)
	if db != nil {
		consentStore = consent.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		resultStore = verification.NewPostgresResultStore(db)
		sampleCache = verification.NewPostgresSampleCache(db)
		emergencyStore = verification.NewPostgresEmergencyStore(db)
		tokenStore = rights.NewPostgresTokenStore(db)
	}
	if redisClient != nil {
		cooldownStore = verification.NewRedisCooldownStore(redisClient.Client)
	}

	registry := sites.NewInMemoryRegistry()
	if cfg.SitesFile != "" {
		registry, err = sites.LoadFile(cfg.SitesFile)
		if err != nil {
			log.Error("sites file load failed", "path", cfg.SitesFile, "error", err)
			os.Exit(1)
		}
	}

	source := location.NewPushSource()
	engineMetrics := metrics.New()

	auditSvc := audit.NewService(auditStore, audit.WithLogger(log))
	consentSvc := consent.NewService(consentStore, consent.WithLogger(log), consent.WithAudit(auditSvc))

	verifySvc := verification.NewService(verification.Deps{
		Consent:     consentSvc,
		Audit:       auditSvc,
		Source:      source,
		Motion:      source,
		Registry:    registry,
		History:     history.NewStore(),
		Results:     resultStore,
		Samples:     sampleCache,
		Emergencies: emergencyStore,
		Cooldowns:   cooldownStore,
	},
		verification.WithLogger(log),
		verification.WithMetrics(engineMetrics),
		verification.WithCooldownWindow(cfg.CooldownWindow),
		verification.WithFixTimeout(cfg.FixTimeout),
	)
	monitor := verification.NewMonitor(verifySvc, auditSvc,
		verification.WithMonitorLogger(log),
		verification.WithMonitorInterval(cfg.MonitorInterval),
	)
	rightsSvc := rights.NewService(rights.Deps{
		Consent:     consentSvc,
		Audit:       auditSvc,
		Results:     resultStore,
		Samples:     sampleCache,
		Emergencies: emergencyStore,
		Sessions:    sessionEnder{service: verifySvc, source: source},
		Tokens:      tokenStore,
	}, rights.WithLogger(log))
	sweeper := rights.NewSweeper(resultStore, sampleCache, emergencyStore, auditSvc, auditSvc,
		rights.WithSweeperLogger(log),
		rights.WithSweepInterval(cfg.SweepInterval),
		rights.WithSweeperMetrics(engineMetrics),
	)

	router := transporthttp.NewRouter(transporthttp.Services{
		Verification: verifySvc,
		Monitor:      monitor,
		Consent:      consentSvc,
		Rights:       rightsSvc,
		Ingest:       source,
		Logger:       log,
	})
	server := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	go func() {
		log.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	monitor.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
