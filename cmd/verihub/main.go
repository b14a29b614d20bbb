package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/verihub/pkg/api"
	"github.com/platinummonkey/verihub/pkg/audit"
	"github.com/platinummonkey/verihub/pkg/config"
	"github.com/platinummonkey/verihub/pkg/federation"
	"github.com/platinummonkey/verihub/pkg/observability"
	"github.com/platinummonkey/verihub/pkg/saml"
	"github.com/platinummonkey/verihub/pkg/session"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("Starting verihub")

	logrusLog := newLogrusLogger(cfg.Observability.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenTelemetry (optional)
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	// Redis session store
	redisClient, err := newRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to redis")
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("Connected to redis")

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	// Federation registry with hot reload
	registry, err := federation.NewRegistry(cfg.Federation.ConfigPath, logrusLog)
	if err != nil {
		logger.WithError(err).Error("Failed to load federation config")
		os.Exit(1)
	}
	if err := registry.Watch(ctx); err != nil {
		logger.WithError(err).Error("Failed to watch federation config")
		os.Exit(1)
	}
	scheduler := startReloadSchedule(cfg.Federation.ReloadSchedule, registry, logger)

	// SAML provider, trusting the registry's certificates
	provider, err := newSAMLProvider(cfg.SAML, registry)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize SAML provider")
		os.Exit(1)
	}
	// A reloaded federation file may carry rotated certificates, so the
	// provider's cached trust must go with the old view.
	registry.OnReload(provider.InvalidateAllTrust)

	// Audit sinks
	auditLogger, auditDB, err := newAuditLogger(cfg.Audit)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize audit logging")
		os.Exit(1)
	}

	// Session repository over the redis store
	store := session.NewRedisStore(redisClient,
		session.WithTTLGrace(cfg.Session.TTLGrace),
		session.WithStoreMetrics(metrics),
	)
	factory := session.NewControllerFactory(session.ControllerDeps{
		Engine:       provider,
		Federation:   registry,
		Cycle3Window: cfg.Session.Cycle3Window,
	})
	repo := session.NewRepository(store, factory,
		session.WithAuditLogger(auditLogger),
		session.WithMetrics(metrics),
		session.WithLogger(logrusLog),
	)

	apiServer := api.NewServer(repo,
		api.WithLogger(logrusLog),
		api.WithMetrics(metrics),
		api.WithSessionLifetime(cfg.Session.Lifetime),
	)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := newHealthServer(cfg.Server, redisClient, auditDB, metrics)

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		if scheduler != nil {
			<-scheduler.Stop().Done()
		}
		return nil
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return auditLogger.Close()
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("API server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

func newLogrusLogger(level observability.LogLevel) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	if parsed, err := logrus.ParseLevel(strings.ToLower(level.String())); err == nil {
		l.SetLevel(parsed)
	}
	return l
}

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	// A non-zero DB overrides whatever database the URL selected.
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.MaxRetries = cfg.MaxRetries
	opts.PoolSize = cfg.PoolSize

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// startReloadSchedule runs periodic registry reloads on top of the
// fsnotify watcher; inotify events can be missed on some mounts.
func startReloadSchedule(schedule string, registry *federation.Registry, logger *observability.Logger) *cron.Cron {
	if schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		defer observability.RecoverPanic(logger, "federation reload")
		if err := registry.Load(); err != nil {
			logger.WithError(err).Warn("Scheduled federation reload failed")
		}
	}); err != nil {
		logger.WithError(err).Warnf("Invalid federation reload schedule %q, scheduled reloads disabled", schedule)
		return nil
	}
	c.Start()
	return c
}

func newSAMLProvider(cfg config.SAMLConfig, certs saml.CertificateSource) (*saml.Provider, error) {
	certPEM, err := os.ReadFile(cfg.CertificatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hub certificate: %w", err)
	}
	keyPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hub private key: %w", err)
	}
	return saml.NewProvider(saml.ProviderConfig{
		HubEntityID:    cfg.HubEntityID,
		HubCertificate: string(certPEM),
		HubPrivateKey:  string(keyPEM),
		AudienceURI:    cfg.AudienceURI,
		ClockSkew:      cfg.ClockSkew,
	}, certs)
}

// newAuditLogger assembles the configured sinks. The returned *sql.DB
// is non-nil only when the postgres sink is on; the health checker
// probes it.
func newAuditLogger(cfg config.AuditConfig) (audit.Logger, *sql.DB, error) {
	var sinks []audit.Logger

	if cfg.FileEnabled {
		fl, err := audit.NewFileLogger(audit.FileLoggerConfig{
			BasePath: cfg.FilePath,
			Rotate:   true,
			MaxSize:  int64(cfg.MaxSizeMB) * 1024 * 1024,
			MaxFiles: cfg.MaxFiles,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit file sink: %w", err)
		}
		sinks = append(sinks, fl)
	}

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, nil, fmt.Errorf("audit database ping failed: %w", err)
		}
		dl, err := audit.NewDBLogger(db)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize audit database sink: %w", err)
		}
		sinks = append(sinks, dl)
	}

	switch len(sinks) {
	case 0:
		return audit.NopLogger{}, nil, nil
	case 1:
		return sinks[0], db, nil
	default:
		return audit.NewMultiLogger(sinks...), db, nil
	}
}

func newHealthServer(cfg config.ServerConfig, redisClient *redis.Client, db *sql.DB, metrics *observability.Metrics) *http.Server {
	checker := observability.NewHealthChecker(redisClient, db)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return &http.Server{
		Addr:    cfg.Host + ":" + cfg.HealthPort,
		Handler: mux,
	}
}
