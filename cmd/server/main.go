package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/go-playground/validator/v10"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/vine/config"
	"github.com/Ramsey-B/vine/internal/repositories/auditlog"
	"github.com/Ramsey-B/vine/internal/repositories/identifier"
	"github.com/Ramsey-B/vine/internal/repositories/mapping"
	"github.com/Ramsey-B/vine/internal/repositories/matchresult"
	"github.com/Ramsey-B/vine/internal/repositories/productfamily"
	"github.com/Ramsey-B/vine/internal/repositories/reviewqueue"
	"github.com/Ramsey-B/vine/internal/repositories/sourcerecord"
	"github.com/Ramsey-B/vine/internal/repositories/winemaster"
	"github.com/Ramsey-B/vine/internal/repositories/winesku"
	"github.com/Ramsey-B/vine/pkg/audit"
	"github.com/Ramsey-B/vine/pkg/canonical"
	"github.com/Ramsey-B/vine/pkg/database"
	"github.com/Ramsey-B/vine/pkg/events"
	"github.com/Ramsey-B/vine/pkg/graph"
	"github.com/Ramsey-B/vine/pkg/kafka"
	"github.com/Ramsey-B/vine/pkg/middleware"
	"github.com/Ramsey-B/vine/pkg/resolution"
	"github.com/Ramsey-B/vine/pkg/resolver"
	"github.com/Ramsey-B/vine/pkg/review"
	auditlogroutes "github.com/Ramsey-B/vine/pkg/routes/auditlog"
	catalogroutes "github.com/Ramsey-B/vine/pkg/routes/catalog"
	healthroutes "github.com/Ramsey-B/vine/pkg/routes/health"
	matchresultroutes "github.com/Ramsey-B/vine/pkg/routes/matchresult"
	resolutionroutes "github.com/Ramsey-B/vine/pkg/routes/resolution"
	reviewqueueroutes "github.com/Ramsey-B/vine/pkg/routes/reviewqueue"
	"github.com/Ramsey-B/vine/pkg/startup"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// Version is set at build time
var Version = "dev"

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := buildZapLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(otel.Tracer(cfg.AppName))

	ctx := context.Background()

	// PostgreSQL
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)
	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	db := database.NewDatabaseInstance(sqlxDB, logger)
	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	migrationDriver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		logger.WithError(err).Error("Failed to create migration driver")
		os.Exit(1)
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, migrationDriver); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	// Graph read model (optional)
	var graphClient *graph.Client
	var catalogSvc *graph.CatalogService
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to create graph client")
			os.Exit(1)
		}
		catalogSvc = graph.NewCatalogService(graphClient, logger)
	}

	// Repositories
	identRepo := identifier.NewRepository(db, logger)
	masterRepo := winemaster.NewRepository(db, logger)
	skuRepo := winesku.NewRepository(db, logger)
	familyRepo := productfamily.NewRepository(db, logger)
	mappingRepo := mapping.NewRepository(db, logger)
	queueRepo := reviewqueue.NewRepository(db, logger)
	auditRepo := auditlog.NewRepository(db, logger)
	resultRepo := matchresult.NewRepository(db, logger)
	sourceRepo := sourcerecord.NewRepository(db, logger)

	// Events
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	emitter := events.NewEmitter(producer, logger)

	// Graph mirroring (interfaces stay nil when the graph is disabled)
	var entityMirror resolution.EntityMirror
	var mappingMirror review.MappingMirror
	if catalogSvc != nil {
		mirror := graph.NewMirror(catalogSvc, masterRepo, skuRepo, logger)
		entityMirror = mirror
		mappingMirror = mirror
	}

	// Core services
	chain := resolver.NewChain(identRepo, masterRepo, skuRepo, cfg.AutoCreateEnabled, logger)
	canonicalClient := canonical.NewClient(cfg.CanonicalBaseURL, cfg.CanonicalTimeout, logger)
	matcher := canonical.NewMatcher(canonicalClient, masterRepo, cfg.MaxCandidates, cfg.MaxVirtualCandidates, logger)
	auditSvc := audit.NewService(auditRepo, logger)
	resolutionSvc := resolution.NewService(chain, matcher, resultRepo, queueRepo, sourceRepo, emitter, entityMirror, resolution.Config{
		ReviewQueueEnabled: cfg.ReviewQueueEnabled,
	}, logger)
	reviewSvc := review.NewService(queueRepo, mappingRepo, masterRepo, identRepo, sourceRepo, auditSvc, emitter, mappingMirror, logger)

	registerDependencies(logger, identRepo, masterRepo, skuRepo, familyRepo, mappingRepo, queueRepo, resultRepo, catalogSvc, auditSvc, resolutionSvc, reviewSvc)

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	api := e.Group("/api/v1")
	resolutionroutes.Register(api.Group("/resolution"))
	reviewqueueroutes.Register(api.Group("/review-queue"))
	catalogroutes.Register(api.Group("/catalog"))
	auditlogroutes.Register(api.Group("/audit-log"))
	matchresultroutes.Register(api.Group("/match-results"))

	checker := healthroutes.NewChecker(db, graphClient, Version)
	checker.RegisterRoutes(e)

	// Kafka ingestion
	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
			_, err := resolutionSvc.Resolve(ctx, msg.ImportRow.MatchInput())
			return err
		})
	}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&databaseDependency{db: db})
	if graphClient != nil {
		boot.AddDependency(&graphDependency{client: graphClient})
	}
	if consumer != nil {
		boot.AddDependency(&consumerDependency{consumer: consumer})
	}
	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start dependencies")
		os.Exit(1)
	}

	go func() {
		srv := &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Port),
			ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
			WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
			IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		}
		if err := e.StartServer(srv); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server stopped unexpectedly")
			os.Exit(1)
		}
	}()

	checker.SetReady(true)
	logger.WithFields(map[string]any{"port": cfg.Port}).Infof("%s started", cfg.AppName)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down server cleanly")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop dependencies cleanly")
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Error("Failed to close kafka producer")
	}
	if graphClient != nil {
		if err := graphClient.Close(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to close graph client")
		}
	}
	if err := sqlxDB.Close(); err != nil {
		logger.WithError(err).Error("Failed to close database")
	}
}

func buildZapLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.PrettyLogs {
		zapCfg := zap.NewDevelopmentConfig()
		return zapCfg.Build()
	}
	zapCfg := zap.NewProductionConfig()
	if err := zapCfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zapCfg.Build()
}

func registerDependencies(
	logger ectologger.Logger,
	identRepo *identifier.Repository,
	masterRepo *winemaster.Repository,
	skuRepo *winesku.Repository,
	familyRepo *productfamily.Repository,
	mappingRepo *mapping.Repository,
	queueRepo *reviewqueue.Repository,
	resultRepo *matchresult.Repository,
	catalogSvc *graph.CatalogService,
	auditSvc *audit.Service,
	resolutionSvc *resolution.Service,
	reviewSvc *review.Service,
) {
	container := ectoinject.GetDefaultContainer()

	must := func(err error) {
		if err != nil {
			logger.WithError(err).Error("Failed to register dependency")
			os.Exit(1)
		}
	}

	must(ectoinject.RegisterInstance[ectologger.Logger](container, logger))
	must(ectoinject.RegisterInstance[*identifier.Repository](container, identRepo))
	must(ectoinject.RegisterInstance[*winemaster.Repository](container, masterRepo))
	must(ectoinject.RegisterInstance[*winesku.Repository](container, skuRepo))
	must(ectoinject.RegisterInstance[*productfamily.Repository](container, familyRepo))
	must(ectoinject.RegisterInstance[*mapping.Repository](container, mappingRepo))
	must(ectoinject.RegisterInstance[*reviewqueue.Repository](container, queueRepo))
	must(ectoinject.RegisterInstance[*matchresult.Repository](container, resultRepo))
	if catalogSvc != nil {
		must(ectoinject.RegisterInstance[*graph.CatalogService](container, catalogSvc))
	}
	must(ectoinject.RegisterInstance[*audit.Service](container, auditSvc))
	must(ectoinject.RegisterInstance[*resolution.Service](container, resolutionSvc))
	must(ectoinject.RegisterInstance[*review.Service](container, reviewSvc))
}

// startup adapters

type databaseDependency struct {
	db database.DB
}

func (d *databaseDependency) GetName() string     { return "postgres" }
func (d *databaseDependency) DependsOn() []string { return nil }
func (d *databaseDependency) Start(ctx context.Context) error {
	return d.db.Ping()
}
func (d *databaseDependency) Stop(ctx context.Context) error { return nil }

type graphDependency struct {
	client *graph.Client
}

func (d *graphDependency) GetName() string     { return "graph" }
func (d *graphDependency) DependsOn() []string { return nil }
func (d *graphDependency) Start(ctx context.Context) error {
	return d.client.VerifyConnectivity(ctx)
}
func (d *graphDependency) Stop(ctx context.Context) error { return nil }

type consumerDependency struct {
	consumer *kafka.Consumer
}

func (d *consumerDependency) GetName() string     { return "kafka-consumer" }
func (d *consumerDependency) DependsOn() []string { return []string{"postgres"} }
func (d *consumerDependency) Start(ctx context.Context) error {
	return d.consumer.Start(ctx)
}
func (d *consumerDependency) Stop(ctx context.Context) error {
	return d.consumer.Stop()
}
