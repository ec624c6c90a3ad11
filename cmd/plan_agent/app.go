package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/training-planner/internal/config"
	"github.com/jonathan/training-planner/internal/db"
	"github.com/jonathan/training-planner/internal/events"
	"github.com/jonathan/training-planner/internal/llm"
	"github.com/jonathan/training-planner/internal/observability"
	"github.com/jonathan/training-planner/internal/pipeline"
	"github.com/jonathan/training-planner/internal/registry"
)

// app holds the collaborators shared by the commands
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *db.DB
	registry *registry.Service
	closers  []func()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newApp loads configuration and connects to the database.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or database_url config is required")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		registry: registry.New(database),
	}
	a.closers = append(a.closers, database.Close)
	return a, nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// newGenerator wires the pipeline. Without a backend the generator can still assemble
// prompts but cannot generate.
func (a *app) newGenerator(ctx context.Context, publisher events.Publisher, withBackend bool) (*pipeline.Generator, error) {
	deps := pipeline.Dependencies{
		Artifacts: a.registry,
		Races:     a.db,
		Plans:     a.db,
		Runs:      a.db,
		Events:    publisher,
		Logger:    a.logger,
	}

	if withBackend {
		invoker, err := a.newInvoker(ctx)
		if err != nil {
			return nil, err
		}
		deps.Invoker = invoker
	}
	return pipeline.New(deps), nil
}

func (a *app) newInvoker(ctx context.Context) (*llm.Invoker, error) {
	if a.cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable or api_key config is required")
	}
	timeout, err := a.cfg.Timeout()
	if err != nil {
		return nil, err
	}
	retryDelay, err := a.cfg.RetryDelay()
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), a.cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = client.Close() })

	return llm.NewInvoker(client,
		llm.WithTier(a.cfg.Tier()),
		llm.WithTimeout(timeout),
		llm.WithRetryDelay(retryDelay),
		llm.WithLogger(a.logger),
	), nil
}

// newPublisher returns a Kafka publisher when brokers are configured
func (a *app) newPublisher() events.Publisher {
	kcfg := events.ParseConfig(a.cfg.KafkaBrokers, a.cfg.KafkaTopic)
	if !kcfg.Enabled() {
		a.logger.Info("kafka not configured, plan events disabled")
		return events.NopPublisher{}
	}
	publisher := events.NewKafkaPublisher(kcfg, a.logger)
	a.closers = append(a.closers, func() {
		if err := publisher.Close(); err != nil {
			a.logger.Warn("failed to close kafka writer", zap.Error(err))
		}
	})
	a.logger.Info("publishing plan events", zap.Strings("brokers", kcfg.Brokers), zap.String("topic", kcfg.Topic))
	return publisher
}
