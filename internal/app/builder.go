package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/coursesync/sisu-moodle-sync/internal/api"
	v1 "github.com/coursesync/sisu-moodle-sync/internal/api/v1"
	"github.com/coursesync/sisu-moodle-sync/internal/app/storage"
	"github.com/coursesync/sisu-moodle-sync/internal/config"
	"github.com/coursesync/sisu-moodle-sync/internal/enrollment"
	"github.com/coursesync/sisu-moodle-sync/internal/groupsync"
	"github.com/coursesync/sisu-moodle-sync/internal/httpclient"
	"github.com/coursesync/sisu-moodle-sync/internal/identity"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
	pkgsync "github.com/coursesync/sisu-moodle-sync/internal/sync"
	"github.com/coursesync/sisu-moodle-sync/internal/sync/coordinator"
	"github.com/coursesync/sisu-moodle-sync/internal/telemetry"
	"github.com/coursesync/sisu-moodle-sync/internal/threshold"
)

const (
	defaultHTTPAddress = ":8080"
	// course syncs and group processing run inside the request
	defaultRequestTimeout = 5 * time.Minute
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = defaultRequestTimeout + 15*time.Second
	defaultIdleTimeout    = 60 * time.Second

	tracerName = "github.com/coursesync/sisu-moodle-sync"
)

// SyncAppOptions is a function that configures the sync app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig holds what is needed to build a SyncApp.
// It supports dependency injection for testing while providing sensible defaults for production
type syncAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storageFactory  storage.Factory
	registryClient  sisu.Client
	moodleClient    moodle.Client
	accountResolver identity.Resolver
	telemetry       *telemetry.Telemetry

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return cfg, nil
}

// NewSyncApp builds the components and the HTTP server of the sync service
func NewSyncApp(ctx context.Context, opts ...SyncAppOptions) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildComponents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components)
	if err != nil {
		components.Storage.Cleanup()
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cancelFunc := func() {
		components.Storage.Cleanup()
		cancel()
	}

	return &SyncApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// NewComponents builds the components without an HTTP server, for one-shot
// commands. The caller must call Storage.Cleanup when done.
func NewComponents(ctx context.Context, opts ...SyncAppOptions) (*AppComponents, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildComponents(ctx, cfg)
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithRegistryClient allows injecting a study registry client (for testing)
func WithRegistryClient(c sisu.Client) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.registryClient = c
		return nil
	}
}

// WithMoodleClient allows injecting a Moodle client (for testing)
func WithMoodleClient(c moodle.Client) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.moodleClient = c
		return nil
	}
}

// WithAccountResolver allows injecting an identity resolver (for testing).
// An injected resolver is used as is, without the cache.
func WithAccountResolver(r identity.Resolver) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.accountResolver = r
		return nil
	}
}

// WithTelemetry sets the telemetry providers used for tracing, metrics and the scrape endpoint
func WithTelemetry(t *telemetry.Telemetry) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildComponents builds storage, clients, the reconciler family and the coordinator
func buildComponents(ctx context.Context, b *syncAppConfig) (*AppComponents, error) {
	var err error
	if b.telemetry == nil {
		if b.telemetry, err = telemetry.New(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to create telemetry: %w", err)
		}
	}

	if b.storageFactory == nil {
		b.storageFactory, err = storage.NewStorageFactory(ctx, b.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			b.storageFactory.Cleanup()
		}
	}()

	c := &AppComponents{Storage: b.storageFactory}
	if c.Courses, err = b.storageFactory.CreateCourseStore(ctx); err != nil {
		return nil, fmt.Errorf("failed to create course store: %w", err)
	}
	if c.Locks, err = b.storageFactory.CreateLockService(ctx); err != nil {
		return nil, fmt.Errorf("failed to create lock service: %w", err)
	}
	if c.States, err = b.storageFactory.CreateStateService(ctx); err != nil {
		return nil, fmt.Errorf("failed to create state service: %w", err)
	}

	if err := buildClients(b); err != nil {
		return nil, fmt.Errorf("failed to build clients: %w", err)
	}
	c.Moodle = b.moodleClient

	tracer := b.telemetry.Tracer(tracerName)
	syncMetrics, err := telemetry.NewSyncMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	syncCfg := &b.config.Sync
	moodleCfg := &b.config.Moodle
	c.Groups = groupsync.NewService(
		c.Courses, c.Locks, b.registryClient, b.moodleClient, b.accountResolver,
		groupsync.Options{Languages: syncCfg.GetLanguages()},
		groupsync.WithTracer(tracer),
		groupsync.WithMetrics(syncMetrics),
	)

	reconcilerOpts := []process.Option{
		process.WithWorkers(syncCfg.GetWorkers()),
		process.WithBatchSize(syncCfg.GetBatchSize()),
		process.WithCourseEndedAfter(syncCfg.GetCourseEndedAfter()),
		process.WithGuard(threshold.NewGuard(thresholdLimits(syncCfg.Thresholds))),
		process.WithTracer(tracer),
		process.WithMetrics(syncMetrics),
	}
	if syncCfg.Groups {
		reconcilerOpts = append(reconcilerOpts, process.WithGroups(c.Groups))
	}
	c.Reconciler = process.NewReconciler(process.Dependencies{
		Courses:  c.Courses,
		Locks:    c.Locks,
		Registry: b.registryClient,
		Moodle:   b.moodleClient,
		Accounts: b.accountResolver,
	}, enrollment.Roles{
		Student: moodleCfg.Roles.Student,
		Teacher: moodleCfg.Roles.Teacher,
		Synced:  moodleCfg.Roles.Synced,
	}, reconcilerOpts...)

	c.Importer = process.NewImporter(c.Courses, b.registryClient, b.moodleClient, c.Reconciler, process.ImportOptions{
		CategoryID: moodleCfg.CategoryID,
		Languages:  syncCfg.GetLanguages(),
	})

	c.SyncCoordinator = coordinator.New(pkgsync.NewDefaultManager(c.Reconciler), c.States, b.config)

	cleanupNeeded = false
	slog.Info("Sync components initialized successfully",
		"storage", b.config.GetStorageType(),
		"workers", syncCfg.GetWorkers(),
		"groups", syncCfg.Groups,
	)
	return c, nil
}

// buildClients creates the registry, Moodle and identity clients that were not injected
func buildClients(b *syncAppConfig) error {
	cfg := b.config
	tracer := b.telemetry.Tracer(tracerName)

	if b.registryClient == nil {
		apiKey, err := cfg.Sisu.GetAPIKey()
		if err != nil {
			return err
		}
		b.registryClient = sisu.NewClient(httpclient.NewDefaultClient(cfg.Sisu.GetTimeout()), cfg.Sisu.BaseURL, apiKey)
	}

	if b.moodleClient == nil {
		token, err := cfg.Moodle.GetToken()
		if err != nil {
			return err
		}
		b.moodleClient = moodle.NewClient(
			httpclient.NewDefaultClient(cfg.Moodle.GetTimeout()),
			cfg.Moodle.BaseURL, token, cfg.Moodle.GetServiceLanguage(),
			moodle.WithTracer(tracer),
		)
	}

	if b.accountResolver == nil {
		resolver := identity.NewResolver(
			httpclient.NewDefaultClient(cfg.Identity.GetTimeout()), cfg.Identity.BaseURL, b.moodleClient)
		b.accountResolver = identity.NewCachedResolver(resolver,
			cfg.Identity.GetCacheSize(), cfg.Identity.GetCacheTTL(),
			identity.WithRegisterer(b.telemetry.Registerer()),
		)
	}
	return nil
}

// thresholdLimits converts the configured thresholds. Keys are validated when
// the configuration is loaded.
func thresholdLimits(thresholds map[string]config.ThresholdConfig) map[enrollment.ActionType]threshold.Limit {
	limits := make(map[enrollment.ActionType]threshold.Limit, len(thresholds))
	for action, t := range thresholds {
		limits[enrollment.ActionType(action)] = threshold.Limit{Limit: t.Limit, PreventAll: t.PreventAll}
	}
	return limits
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *syncAppConfig,
	c *AppComponents,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Metrics and tracing wrap the whole chain to capture every request
	metricsMiddleware, err := telemetry.MetricsMiddleware(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
	}
	outer := []func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.telemetry.TracerProvider())}
	if metricsMiddleware != nil {
		outer = append(outer, metricsMiddleware)
	}
	b.middlewares = append(outer, b.middlewares...)

	readiness := v1.NewReadinessChecker(c.Moodle, b.config.Moodle.GetMinimumRelease(), c.Storage)
	router := api.NewServer(readiness, v1.Dependencies{
		Runs:       c.SyncCoordinator,
		Statuses:   c.States,
		Courses:    c.Courses,
		Locks:      c.Locks,
		Importer:   c.Importer,
		Reconciler: c.Reconciler,
		Groups:     c.Groups,
	},
		api.WithMiddlewares(b.middlewares...),
		api.WithMetricsHandler(b.telemetry.MetricsHandler()),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
