package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"companiond/internal/config"
	"companiond/internal/gateway"
	"companiond/internal/judge"
	"companiond/internal/orchestrator"
	"companiond/internal/router"
	"companiond/internal/safety"
	"companiond/internal/session"
	"companiond/internal/specialist"
)

// app bundles the wired pipeline and the handles the commands need after
// construction (store for shutdown, judge for threshold hot-reload).
type app struct {
	cfg          *config.Config
	client       gateway.Client
	orchestrator *orchestrator.Orchestrator
	judge        *judge.Judge
	store        session.Store
}

// buildApp wires the full pipeline from configuration.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	client, err := gateway.NewClientFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway client: %w", err)
	}

	var store session.Store
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err = session.NewSQLiteStore(cfg.Storage.DatabasePath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
	default:
		store = session.NewMemoryStore()
	}

	timeout := cfg.GetCallTimeout()
	window := cfg.Pipeline.HistoryWindow

	gate := safety.NewGate(client, timeout, log)
	rt := router.New(client, window, timeout, log)
	jd := judge.New(client, cfg.Pipeline.ApprovalThreshold, timeout, log)

	registry, err := specialist.NewRegistry(
		specialist.NewAnxiety(client, window, timeout),
		specialist.NewGeneral(client, window, timeout),
		specialist.NewCrisis(),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	orch := orchestrator.New(gate, rt, registry, jd, store, window, log)

	return &app{
		cfg:          cfg,
		client:       client,
		orchestrator: orch,
		judge:        jd,
		store:        store,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.store.Close()
}
