package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/thinkd/internal/coherence"
	"github.com/fyrsmithlabs/thinkd/internal/embeddings"
	"github.com/fyrsmithlabs/thinkd/internal/features"
	thinkhttp "github.com/fyrsmithlabs/thinkd/internal/http"
	"github.com/fyrsmithlabs/thinkd/internal/integrated"
	"github.com/fyrsmithlabs/thinkd/internal/logging"
	"github.com/fyrsmithlabs/thinkd/internal/mcp"
	"github.com/fyrsmithlabs/thinkd/internal/session"
	"github.com/fyrsmithlabs/thinkd/internal/telemetry"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// app holds every long-lived component of a running server.
type app struct {
	config    *effectiveConfig
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	sessions  *session.Registry
	features  *features.Store
	mcp       *mcp.Server
	http      *thinkhttp.Server
}

func runServe(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eff, err := loadEffective(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a, err := newApp(ctx, eff)
	if err != nil {
		return err
	}
	defer a.close()

	return a.run(ctx)
}

// newApp builds the server from configuration:
//  1. Logger and telemetry
//  2. Session registry and feature store
//  3. Optional coherence and embedding scorers
//  4. MCP server and the optional HTTP sidecar
func newApp(ctx context.Context, eff *effectiveConfig) (*app, error) {
	logger, err := logging.NewLogger(eff.Logging, global.GetLoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zlog := logger.Underlying()

	tel, err := telemetry.New(ctx, eff.Telemetry, telemetry.WithLogger(zlog))
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &app{
		config:    eff,
		logger:    logger,
		telemetry: tel,
		sessions:  session.NewRegistry(&eff.Chain, eff.Session, session.WithLogger(zlog)),
		features:  features.NewStore(eff.Features),
	}

	scorers, err := newScorers(eff, zlog)
	if err != nil {
		a.close()
		return nil, err
	}
	coordinator := integrated.NewCoordinator(&eff.Chain,
		integrated.WithScorers(scorers...),
		integrated.WithLogger(zlog),
	)

	a.mcp, err = mcp.NewServer(&mcp.Config{Name: "thinkd", Version: version, Logger: zlog}, a.sessions, coordinator, a.features)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}

	if eff.Server.HTTPEnabled {
		a.http, err = thinkhttp.NewServer(a.sessions, a.features, zlog, &thinkhttp.Config{
			Host:      eff.Server.HTTPHost,
			Port:      eff.Server.HTTPPort,
			Version:   version,
			Telemetry: tel,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to create HTTP server: %w", err)
		}
	}

	logger.Info(ctx, "thinkd configured",
		zap.String("version", version),
		zap.Int("max_depth", eff.Chain.MaxDepth),
		zap.Int("scorers", len(scorers)),
		zap.Bool("http_enabled", a.http != nil),
		zap.Bool("telemetry_enabled", tel.IsEnabled()),
	)
	return a, nil
}

// newScorers builds the advisory scorers enabled in configuration.
func newScorers(eff *effectiveConfig, logger *zap.Logger) ([]integrated.Scorer, error) {
	var scorers []integrated.Scorer

	if eff.Coherence.Enabled {
		c, err := coherence.NewScorer(coherence.Config{
			BaseURL:      eff.Coherence.BaseURL,
			Model:        eff.Coherence.Model,
			APIKey:       eff.Coherence.APIKey.Value(),
			RateLimit:    eff.Coherence.RateLimit,
			Timeout:      eff.Coherence.Timeout.Duration(),
			HistoryLimit: eff.Coherence.HistoryLimit,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create coherence scorer: %w", err)
		}
		scorers = append(scorers, c)
	}

	if eff.Embeddings.Enabled {
		svc, err := embeddings.NewService(embeddings.Config{
			BaseURL:   eff.Embeddings.BaseURL,
			Model:     eff.Embeddings.Model,
			APIKey:    eff.Embeddings.APIKey.Value(),
			RateLimit: eff.Embeddings.RateLimit,
		}, embeddings.NewMetrics(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding service: %w", err)
		}
		scorers = append(scorers, embeddings.NewScorer(svc, logger))
	}
	return scorers, nil
}

// run serves MCP on stdio, and HTTP when enabled, until ctx is done or the
// client disconnects.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The client closing stdin ends the process.
		defer cancel()
		if err := a.mcp.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if a.http != nil {
		g.Go(a.http.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(gctx), a.config.Server.ShutdownTimeout.Duration())
			defer stop()
			return a.http.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	a.logger.Info(context.Background(), "thinkd shutdown complete")
	return err
}

// close flushes telemetry and logs.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout.Duration())
	defer cancel()
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
