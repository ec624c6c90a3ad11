package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/jonathan/training-planner/internal/config"
	"github.com/jonathan/training-planner/internal/server"
	"github.com/jonathan/training-planner/internal/server/ratelimit"
)

const generationHeadroom = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the artifact registry, the race catalog and plan generation.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	undo, err := maxprocs.Set(maxprocs.Logger(a.logger.Sugar().Infof))
	if err != nil {
		a.logger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}
	defer undo()

	if cmd.Flags().Changed("port") {
		a.cfg.Port = servePort
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	limiter, err := newRateLimiter(ctx, a)
	if err != nil {
		return err
	}

	generator, err := a.newGenerator(ctx, a.newPublisher(), true)
	if err != nil {
		return err
	}

	timeout, _ := a.cfg.Timeout()
	retryDelay, _ := a.cfg.RetryDelay()

	srv := server.New(server.Options{
		Port:        a.cfg.Port,
		Artifacts:   a.registry,
		Store:       a.db,
		Generator:   generator,
		Tokens:      server.NewJWTService(jwtConfig).AsTokenValidator(),
		RateLimiter: limiter,
		// two backend attempts, the retry wait and headroom for validation and persistence
		GenerationTimeout: 2*timeout + retryDelay + generationHeadroom,
		Logger:            a.logger,
	})
	return srv.Start(ctx)
}

func newRateLimiter(ctx context.Context, a *app) (ratelimit.Checker, error) {
	cfg := ratelimit.LoadConfig()
	if a.cfg.RedisURL == "" {
		return ratelimit.NewLimiter(cfg), nil
	}

	limiter, err := ratelimit.NewRedisLimiter(ctx, a.cfg.RedisURL, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limiter: %w", err)
	}
	a.logger.Info("rate limiting through redis")
	return limiter, nil
}
