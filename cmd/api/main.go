package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
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

	"github.com/Ramsey-B/clover/config"
	brandrepo "github.com/Ramsey-B/clover/internal/repositories/brand"
	pricerepo "github.com/Ramsey-B/clover/internal/repositories/price"
	productrepo "github.com/Ramsey-B/clover/internal/repositories/product"
	reviewrepo "github.com/Ramsey-B/clover/internal/repositories/review"
	sourcerepo "github.com/Ramsey-B/clover/internal/repositories/source"
	watchlistrepo "github.com/Ramsey-B/clover/internal/repositories/watchlist"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/resolver"
	healthroute "github.com/Ramsey-B/clover/pkg/routes/health"
	productroute "github.com/Ramsey-B/clover/pkg/routes/product"
	reviewroute "github.com/Ramsey-B/clover/pkg/routes/review"
	sourceroute "github.com/Ramsey-B/clover/pkg/routes/source"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger ectologger.Logger) error {
	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to shut down tracing")
		}
	}()

	sqlxDB, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	defer sqlxDB.Close()

	if err := migrateDatabase(cfg, logger, sqlxDB); err != nil {
		return err
	}

	db := database.NewDatabaseInstance(sqlxDB, logger)

	brands := brandrepo.NewRepository(db, logger)
	products := productrepo.NewRepository(db, logger)
	prices := pricerepo.NewRepository(db, logger)
	reviews := reviewrepo.NewRepository(db, logger)
	sources := sourcerepo.NewRepository(db, logger)
	watchlist := watchlistrepo.NewRepository(db, logger)

	var emitter *events.Emitter
	var producer *kafka.Producer
	if cfg.KafkaProducerEnable {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, logger)
	}

	scorer := matching.NewProductScorer(matching.Config{
		NameWeight:        cfg.MatchNameWeight,
		BrandWeight:       cfg.MatchBrandWeight,
		CannabinoidWeight: cfg.MatchCannabinoidWeight,
		MergeThreshold:    cfg.MergeThreshold,
	})

	var pipelineEmitter pipeline.Emitter
	var resolverEmitter resolver.Emitter
	if emitter != nil {
		pipelineEmitter = emitter
		resolverEmitter = emitter
	}

	pipe := pipeline.New(brands, products, prices, reviews, pipelineEmitter, scorer, logger)
	resolverSvc := resolver.New(db, reviews, products, prices, watchlist, brands, resolverEmitter, logger)

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(cfg, logger, func(ctx context.Context, batch *models.ListingBatch) error {
			_, err := pipe.ProcessBatch(ctx, *batch)
			return err
		})
	}

	var healthConsumer interface{ Health() bool }
	if consumer != nil {
		healthConsumer = consumer
	}
	checker := healthroute.NewChecker(db, healthConsumer, version)
	e := newEcho(cfg, logger)
	checker.RegisterRoutes(e)
	reviewroute.NewHandler(reviews, resolverSvc, logger).RegisterRoutes(e.Group("/api/v1/reviews"))
	productroute.NewHandler(products, prices, watchlist, logger).RegisterRoutes(e.Group("/api/v1/products"))
	sourceroute.NewHandler(sources, logger).RegisterRoutes(e.Group("/api/v1/sources"))

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	if consumer != nil {
		boot.AddDependency(dependency{
			name:  "kafka-consumer",
			start: consumer.Start,
			stop:  func(context.Context) error { return consumer.Stop() },
		})
	}
	boot.AddDependency(dependency{
		name: "http-server",
		start: func(context.Context) error {
			go func() {
				if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
					logger.WithError(err).Info("HTTP server stopped")
				}
			}()
			return nil
		},
		stop: func(ctx context.Context) error { return e.Shutdown(ctx) },
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}
	checker.SetReady(true)
	logger.WithFields(map[string]any{"port": cfg.Port, "version": version}).Info("Service started")

	// Block until shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	checker.SetReady(false)
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return boot.Stop(shutdownCtx)
}

// setupTracing installs the tracer provider. Without an OTLP endpoint spans
// go to the console exporter, which discards them; StartSpan stays cheap
// either way.
func setupTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	if !cfg.TracingEnabled {
		return func(context.Context) error { return nil }, nil
	}

	var exporter sdktrace.SpanExporter
	if cfg.TracingOTLPEndpoint != "" {
		var err error
		exporter, err = exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: cfg.TracingOTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	} else {
		exporter = &exporters.ConsoleExporter{}
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))
	return tp.Shutdown, nil
}

func connectDatabase(cfg config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
	db, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	return db, nil
}

func migrateDatabase(cfg config.Config, logger ectologger.Logger, db *sqlx.DB) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             cfg.DatabaseMigrationVersion,
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		zapLogger, _ = zap.NewProduction()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func newEcho(cfg config.Config, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.HTTPErrorHandler = middleware.Error(logger)
	return e
}

// dependency adapts plain start/stop funcs to the startup orchestrator
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d dependency) GetName() string { return d.name }

func (d dependency) DependsOn() []string { return d.dependsOn }

func (d dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}

func (d dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}
