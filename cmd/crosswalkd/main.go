// Package main boots the crosswalk service: the canonical player store, the
// resolution API, and the optional Kafka, Redis, and graph attachments.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/uruley/4HorsemenDFS/config"
	"github.com/uruley/4HorsemenDFS/internal/export"
	"github.com/uruley/4HorsemenDFS/internal/ingest"
	"github.com/uruley/4HorsemenDFS/internal/repositories/alias"
	"github.com/uruley/4HorsemenDFS/internal/repositories/externalid"
	"github.com/uruley/4HorsemenDFS/internal/repositories/player"
	"github.com/uruley/4HorsemenDFS/internal/repositories/suggestion"
	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/database"
	"github.com/uruley/4HorsemenDFS/pkg/events"
	"github.com/uruley/4HorsemenDFS/pkg/graph"
	"github.com/uruley/4HorsemenDFS/pkg/kafka"
	"github.com/uruley/4HorsemenDFS/pkg/logger"
	"github.com/uruley/4HorsemenDFS/pkg/matching"
	"github.com/uruley/4HorsemenDFS/pkg/middleware"
	"github.com/uruley/4HorsemenDFS/pkg/processor"
	"github.com/uruley/4HorsemenDFS/pkg/redis"
	"github.com/uruley/4HorsemenDFS/pkg/resolver"
	"github.com/uruley/4HorsemenDFS/pkg/routes"
	"github.com/uruley/4HorsemenDFS/pkg/routes/health"
	"github.com/uruley/4HorsemenDFS/pkg/startup"
	"github.com/uruley/4HorsemenDFS/pkg/suggestions"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
	"github.com/uruley/4HorsemenDFS/pkg/tracing/exporters"
)

// version is stamped at build time.
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	bootstrapPath := flag.String("bootstrap", "", "seed the store from a players CSV and exit")
	flag.Parse()

	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, flush, err := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := setupTracing(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer func() {
			_ = shutdownTracing(context.Background())
		}()
	}

	if *bootstrapPath != "" {
		return runBootstrap(ctx, cfg, log, *bootstrapPath)
	}

	log.WithFields(map[string]any{"app": cfg.AppName, "version": version}).Info("Starting crosswalk service")

	// Components are assigned by the startup dependencies below and shared
	// across them, so later dependencies see what earlier ones built.
	var (
		db                *sqlx.DB
		redisClient       *redis.Client
		graphClient       *graph.Client
		producer          *kafka.Producer
		consumer          *kafka.Consumer
		res               *resolver.Resolver
		suggestionService *suggestions.Service
		exporter          *export.Writer
		emitter           *events.Emitter
		projector         *graph.Projector
		checker           *health.Checker
		e                 *echo.Echo
	)

	errCh := make(chan error, 1)
	boot := startup.New(log, cfg.StartupMaxAttempts)

	boot.AddDependency(&serviceDependency{
		name: "database",
		start: func(ctx context.Context) error {
			conn, err := connectDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			db = conn
			return nil
		},
		stop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	boot.AddDependency(&serviceDependency{
		name:      "migrations",
		dependsOn: []string{"database"},
		start: func(ctx context.Context) error {
			driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
			if err != nil {
				return fmt.Errorf("failed to create migration driver: %w", err)
			}
			service := database.NewMigrationService(log, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return service.Migrate(cfg.DatabaseName, driver)
		},
	})

	containerDeps := []string{"migrations"}

	if cfg.CacheBackend == "redis" {
		containerDeps = append(containerDeps, "cache")
		boot.AddDependency(&serviceDependency{
			name: "cache",
			start: func(ctx context.Context) error {
				client, err := redis.NewClient(redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, log)
				if err != nil {
					return err
				}
				redisClient = client
				return nil
			},
			stop: func(ctx context.Context) error {
				return redisClient.Close()
			},
		})
	}

	if cfg.GraphEnabled {
		containerDeps = append(containerDeps, "graph")
		boot.AddDependency(&serviceDependency{
			name: "graph",
			start: func(ctx context.Context) error {
				client, err := graph.NewClient(graph.Config{
					Host:     cfg.GraphDBHost,
					Port:     cfg.GraphDBPort,
					Username: cfg.GraphDBUser,
					Password: cfg.GraphDBPassword,
				}, log)
				if err != nil {
					return err
				}
				if err := client.VerifyConnectivity(ctx); err != nil {
					return fmt.Errorf("failed to reach graph database: %w", err)
				}
				graphClient = client
				return nil
			},
			stop: func(ctx context.Context) error {
				return graphClient.Close(ctx)
			},
		})
	}

	if cfg.KafkaProducerEnabled {
		containerDeps = append(containerDeps, "kafka-producer")
		boot.AddDependency(&serviceDependency{
			name: "kafka-producer",
			start: func(ctx context.Context) error {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, log)
				return nil
			},
			stop: func(ctx context.Context) error {
				return producer.Close()
			},
		})
	}

	boot.AddDependency(&serviceDependency{
		name:      "container",
		dependsOn: containerDeps,
		start: func(ctx context.Context) error {
			dbi := database.NewDatabaseInstance(db, log)
			playerRepo := player.NewRepository(dbi, log)
			externalIDRepo := externalid.NewRepository(dbi, log)
			aliasRepo := alias.NewRepository(dbi, log)
			suggestionRepo := suggestion.NewRepository(dbi, log)

			aliasCache, err := buildAliasCache(cfg, redisClient)
			if err != nil {
				return err
			}
			store := crosswalk.NewSQLStore(playerRepo, externalIDRepo, aliasRepo, aliasCache, log)

			disambiguator := matching.NewDisambiguator(matching.Config{
				Threshold: cfg.SimilarityThreshold,
				TieBand:   cfg.SimilarityTieBand,
			})
			res = resolver.NewResolver(store, disambiguator, resolver.Config{
				Precedence:    cfg.ResolvePrecedence,
				TeamPrefilter: cfg.TeamPrefilter,
				WorkerCount:   cfg.ResolveWorkerCount,
			}, log)

			engine := suggestions.NewEngine(suggestions.Config{
				MinScore: cfg.SuggestionMinScore,
				Limit:    cfg.SuggestionLimit,
			})
			suggestionService = suggestions.NewService(engine, store, suggestionRepo, log)

			exporter = export.NewWriter(cfg.ReportDir, log)
			emitter = events.NewEmitter(producer, log)
			projector = graph.NewProjector(graphClient, log)

			registry := ingest.NewRegistry()
			if err := registerMappedAdapters(registry, cfg.IngestMappingDir, log); err != nil {
				return err
			}

			container, err := ectoinject.NewDIDefaultContainer()
			if err != nil {
				return fmt.Errorf("failed to create DI container: %w", err)
			}
			if err := ectoinject.RegisterInstance[ectologger.Logger](container, log); err != nil {
				return fmt.Errorf("failed to register logger: %w", err)
			}
			if err := ectoinject.RegisterInstance[*player.Repository](container, playerRepo); err != nil {
				return fmt.Errorf("failed to register player repository: %w", err)
			}
			if err := ectoinject.RegisterInstance[*externalid.Repository](container, externalIDRepo); err != nil {
				return fmt.Errorf("failed to register external id repository: %w", err)
			}
			if err := ectoinject.RegisterInstance[*alias.Repository](container, aliasRepo); err != nil {
				return fmt.Errorf("failed to register alias repository: %w", err)
			}
			if err := ectoinject.RegisterInstance[*suggestion.Repository](container, suggestionRepo); err != nil {
				return fmt.Errorf("failed to register suggestion repository: %w", err)
			}
			if err := ectoinject.RegisterInstance[crosswalk.Store](container, store); err != nil {
				return fmt.Errorf("failed to register crosswalk store: %w", err)
			}
			if err := ectoinject.RegisterInstance[*resolver.Resolver](container, res); err != nil {
				return fmt.Errorf("failed to register resolver: %w", err)
			}
			if err := ectoinject.RegisterInstance[*suggestions.Service](container, suggestionService); err != nil {
				return fmt.Errorf("failed to register suggestion service: %w", err)
			}
			if err := ectoinject.RegisterInstance[*export.Writer](container, exporter); err != nil {
				return fmt.Errorf("failed to register report writer: %w", err)
			}
			if err := ectoinject.RegisterInstance[*events.Emitter](container, emitter); err != nil {
				return fmt.Errorf("failed to register event emitter: %w", err)
			}
			if err := ectoinject.RegisterInstance[*graph.Projector](container, projector); err != nil {
				return fmt.Errorf("failed to register graph projector: %w", err)
			}
			if err := ectoinject.RegisterInstance[*ingest.Registry](container, registry); err != nil {
				return fmt.Errorf("failed to register ingest registry: %w", err)
			}
			return nil
		},
	})

	httpDeps := []string{"container"}

	if cfg.KafkaConsumerEnabled {
		httpDeps = append(httpDeps, "kafka-consumer")
		boot.AddDependency(&serviceDependency{
			name:      "kafka-consumer",
			dependsOn: []string{"container"},
			start: func(ctx context.Context) error {
				proc := processor.NewSlateProcessor(res, suggestionService, exporter, emitter, projector, log)
				consumer = kafka.NewConsumer(cfg, log, proc.ProcessMessage)
				return consumer.Start(ctx)
			},
			stop: func(ctx context.Context) error {
				return consumer.Stop()
			},
		})
	}

	boot.AddDependency(&serviceDependency{
		name:      "http-server",
		dependsOn: httpDeps,
		start: func(ctx context.Context) error {
			var cachePinger health.Pinger
			if redisClient != nil {
				cachePinger = redisClient
			}
			var consumerHealth health.ConsumerHealth
			if consumer != nil {
				consumerHealth = consumer
			}
			checker = health.NewChecker(db, cachePinger, consumerHealth, version)

			e = echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
				AllowOrigins: cfg.AllowOrigins,
				AllowMethods: cfg.AllowMethods,
			}))
			e.Use(otelecho.Middleware(cfg.AppName))
			e.Use(middleware.Context())
			e.Use(middleware.Logger(log))
			e.HTTPErrorHandler = middleware.Error(log)

			routes.Register(e)
			checker.RegisterRoutes(e)

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
				WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
				IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
				ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
				TLSConfig: &tls.Config{
					MinVersion: tlsVersion(cfg.TLSMinVersion, tls.VersionTLS12),
					MaxVersion: tlsVersion(cfg.TLSMaxVersion, tls.VersionTLS13),
				},
			}

			go func() {
				if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("http server error: %w", err)
				}
			}()

			log.WithField("port", cfg.Port).Infof("HTTP server listening on port %d", cfg.Port)
			return nil
		},
		stop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = boot.Stop(stopCtx)
		return err
	}

	checker.SetReady(true)
	log.WithFields(map[string]any{"port": cfg.Port, "version": version}).Info("Crosswalk service ready")

	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case err := <-errCh:
		log.WithError(err).Error("Server failed")
		checker.SetReady(false)
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = boot.Stop(stopCtx)
		return err
	}

	checker.SetReady(false)
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := boot.Stop(stopCtx); err != nil {
		log.WithError(err).Error("Shutdown finished with errors")
		return err
	}

	log.Info("Crosswalk service stopped")
	return nil
}

// serviceDependency adapts start/stop closures to the startup.Dependency
// interface so run can declare the boot graph inline.
type serviceDependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *serviceDependency) GetName() string {
	return d.name
}

func (d *serviceDependency) DependsOn() []string {
	return d.dependsOn
}

func (d *serviceDependency) Start(ctx context.Context) error {
	return d.start(ctx)
}

func (d *serviceDependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

// connectDatabase opens the Postgres pool, retrying brief connection
// failures before handing the problem to the startup backoff.
func connectDatabase(ctx context.Context, cfg config.Config, log ectologger.Logger) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	var db *sqlx.DB
	var err error
	for attempt := 0; attempt <= cfg.DatabaseReconnectRetryCount; attempt++ {
		if attempt > 0 {
			log.Warnf("Retrying database connection (attempt %d/%d)", attempt, cfg.DatabaseReconnectRetryCount)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
		}
		db, err = sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	log.WithFields(map[string]any{"host": cfg.DatabaseHost, "database": cfg.DatabaseName}).Info("Connected to database")
	return db, nil
}

// buildAliasCache picks the alias cache backend. "none" disables caching.
func buildAliasCache(cfg config.Config, redisClient *redis.Client) (crosswalk.AliasCache, error) {
	switch cfg.CacheBackend {
	case "memory":
		return crosswalk.NewMemoryAliasCache(cfg.CacheTTL), nil
	case "redis":
		return crosswalk.NewRedisAliasCache(redisClient, cfg.CacheTTL), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (use memory, redis, or none)", cfg.CacheBackend)
	}
}

// registerMappedAdapters loads mapping files and registers an adapter per
// mapping, so new providers land without a deploy.
func registerMappedAdapters(registry *ingest.Registry, dir string, log ectologger.Logger) error {
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read mapping directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read mapping %s: %w", path, err)
		}
		var mapping ingest.MappingConfig
		if err := json.Unmarshal(data, &mapping); err != nil {
			return fmt.Errorf("failed to parse mapping %s: %w", path, err)
		}
		adapter, err := ingest.NewMappedJSONAdapter(mapping)
		if err != nil {
			return fmt.Errorf("invalid mapping %s: %w", path, err)
		}
		registry.Register(adapter)
		log.WithFields(map[string]any{"source_name": adapter.SourceName(), "path": path}).Info("Registered mapped ingest adapter")
	}
	return nil
}

// setupTracing installs the OTel tracer provider and wires the package-level
// tracer the span helpers use. The returned func flushes and shuts down the
// provider.
func setupTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	switch cfg.TracingExporter {
	case "console":
		exporter = &exporters.ConsoleExporter{}
	case "otlp":
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlp
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q (use otlp or console)", cfg.TracingExporter)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(semconv.ServiceName(cfg.AppName))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}

// tlsVersion maps a config value like TLS_1_2 onto the tls constant,
// falling back when the value is unrecognized.
func tlsVersion(name string, fallback uint16) uint16 {
	switch name {
	case "TLS_1_0":
		return tls.VersionTLS10
	case "TLS_1_1":
		return tls.VersionTLS11
	case "TLS_1_2":
		return tls.VersionTLS12
	case "TLS_1_3":
		return tls.VersionTLS13
	default:
		return fallback
	}
}
