package app

import (
	"fmt"

	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator/direct"
	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator/remote"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/knowledge"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/render"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/resolver"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/validator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/EnvForge/backend/internal/session"
	"go.uber.org/zap"
)

// Options carries the shared ambient dependencies.
type Options struct {
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// App is the assembled compiler stack.
type App struct {
	Config       *config.Config
	Compiler     compiler.Options
	Collaborator collaborator.Service
	// Breaker is set in remote mode.
	Breaker  *resilience.Breaker
	Store    session.Store
	Sessions *session.Manager

	logger *zap.Logger
	closer func() error
}

// New builds every component cfg describes.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := logging.OrNop(opts.Logger)

	kb, err := knowledge.Load(cfg.Knowledge.Path, cfg.Knowledge.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	stats := kb.Stats()
	logger.Info("Knowledge base loaded",
		zap.String("path", cfg.Knowledge.Path),
		zap.Int("templates", stats.Templates),
		zap.Int("components", stats.Components),
		zap.Int("environments", stats.Environments),
		zap.Int("pipelines", stats.Pipelines))

	strictness, err := validator.ParseStrictness(cfg.Compiler.OutputStrictness)
	if err != nil {
		return nil, err
	}

	registry := contracts.Default()
	copts := compiler.Options{
		Contracts: registry,
		Knowledge: kb,
		Validator: validator.New(registry, kb, validator.Options{Strictness: strictness}),
		Resolver:  resolver.New(registry, kb, resolver.PolicyFromBool(cfg.Compiler.AutoWire), logger),
		Renderer:  render.New(registry, cfg.Compiler.BlueprintName),
		Logger:    logger,
		Metrics:   opts.Metrics,
	}

	a := &App{Config: cfg, Compiler: copts, logger: logger}

	set := direct.New(logger).Set()
	if cfg.Collaborator.Mode == config.ModeRemote {
		client := remote.New(remote.Options{
			BaseURL:    cfg.Collaborator.URL,
			Token:      cfg.Collaborator.Token,
			Timeout:    cfg.Collaborator.Timeout,
			RPS:        cfg.Collaborator.RPS,
			MaxRetries: 2,
			Breaker:    remote.DefaultBreaker(),
			Logger:     logger,
		})
		set = client.Set()
		a.Breaker = client.Breaker()
	}
	logger.Info("Collaborator configured",
		zap.String("mode", cfg.Collaborator.Mode),
		zap.Stringer("resolver", copts.Resolver.Policy()),
		zap.Stringer("strictness", strictness))
	a.Collaborator = collaborator.NewGuard(set, collaborator.GuardOptions{
		Logger:  logger,
		Metrics: opts.Metrics,
		Timeout: cfg.Collaborator.Timeout,
	})

	if dir := cfg.Storage.SnapshotDir; dir != "" {
		store, err := session.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		a.Store = store
		a.closer = store.Close
		logger.Info("Session snapshots enabled", zap.String("dir", dir))
	}

	a.Sessions = session.NewManager(a.Collaborator, session.Options{
		MaxRounds: cfg.Compiler.MaxRounds,
		Compiler:  copts,
		Store:     a.Store,
		Logger:    logger,
		Metrics:   opts.Metrics,
	})
	return a, nil
}

// NewCompiler starts a standalone compiler outside the session manager.
func (a *App) NewCompiler() *compiler.Compiler {
	return compiler.New(a.Collaborator, a.Compiler)
}

// Close releases the snapshot store.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}
