// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventportal/internal/activity"
	"github.com/Shivanand-hulikatti/eventportal/internal/config"
	"github.com/Shivanand-hulikatti/eventportal/internal/content"
	"github.com/Shivanand-hulikatti/eventportal/internal/database"
	"github.com/Shivanand-hulikatti/eventportal/internal/handler"
	"github.com/Shivanand-hulikatti/eventportal/internal/identity"
	"github.com/Shivanand-hulikatti/eventportal/internal/logging"
	"github.com/Shivanand-hulikatti/eventportal/internal/repository"
	"github.com/Shivanand-hulikatti/eventportal/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Production())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("portal stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ────────────────────────────────────────────────────────
	var pool *pgxpool.Pool
	if cfg.Store.Events == config.BackendPostgres || cfg.Store.Profiles == config.BackendPostgres {
		p, err := database.NewPool(ctx, cfg.DB, logger)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer p.Close()
		if err := database.Migrate(ctx, p, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pool = p
	}

	var events service.EventRegistry
	switch cfg.Store.Events {
	case config.BackendPostgres:
		events = repository.NewPostgresEvents(pool)
	default:
		events = repository.NewMemoryEvents()
	}

	profiles, err := newProfileStore(ctx, cfg, pool)
	if err != nil {
		return err
	}

	// ── 2. Activity ───────────────────────────────────────────────────────
	sink, err := newSink(cfg.Activity, logger)
	if err != nil {
		return err
	}
	dispatcher := activity.NewDispatcher(sink, logger, cfg.Activity.Buffer, cfg.Activity.FlushEvery)

	// ── 3. Identity ───────────────────────────────────────────────────────
	verifier, err := identity.NewVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	sessions, err := identity.NewSessions(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}

	// ── 4. Services ───────────────────────────────────────────────────────
	eventSvc := service.NewEventService(events, profiles, dispatcher, logger)
	regSvc := service.NewRegistrationService(events, profiles, dispatcher, logger)
	profileSvc := service.NewProfileService(profiles, dispatcher)
	catalog := service.NewCatalogSync(content.NewClient(cfg.CMS, logger), events, logger)

	go catalog.Run(ctx, cfg.CMS.SyncInterval)

	// ── 5. HTTP ───────────────────────────────────────────────────────────
	router := handler.NewRouter(handler.RouterConfig{
		Events: handler.NewEventHandler(eventSvc, regSvc, logger),
		Account: handler.NewAccountHandler(verifier, sessions, profileSvc, handler.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
		}, logger),
		Admin:       handler.NewAdminHandler(catalog, regSvc, logger),
		Sessions:    sessions,
		Activity:    dispatcher,
		Logger:      logger,
		CookieName:  cfg.Auth.CookieName,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		AdminToken:  cfg.AdminToken,
		WebDir:      cfg.HTTP.WebDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("events_store", cfg.Store.Events),
			zap.String("profiles_store", cfg.Store.Profiles),
			zap.String("activity_sink", cfg.Activity.Sink),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Block until SIGINT or SIGTERM.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("activity flush incomplete", zap.Error(err), zap.Int64("dropped", dispatcher.Dropped()))
	}
	logger.Info("server stopped")
	return nil
}

func newProfileStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (service.ProfileStore, error) {
	switch cfg.Store.Profiles {
	case config.BackendPostgres:
		return repository.NewPostgresProfiles(pool), nil
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoDB.Region))
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoDB.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDB.Endpoint)
			}
		})
		return repository.NewDynamoProfiles(client, cfg.DynamoDB.Table), nil
	default:
		return repository.NewMemoryProfiles(), nil
	}
}

func newSink(cfg config.Activity, logger *zap.Logger) (activity.Sink, error) {
	switch cfg.Sink {
	case config.SinkKafka:
		return activity.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case config.SinkNATS:
		sink, err := activity.DialNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return activity.NewLogSink(logger), nil
	}
}
