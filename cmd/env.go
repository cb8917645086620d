package main

import (
	"context"

	"github.com/reson-group/lead-radar/internal/enrich"
	"github.com/reson-group/lead-radar/internal/fetch"
	"github.com/reson-group/lead-radar/internal/orchestrator"
	"github.com/reson-group/lead-radar/internal/server"
	"github.com/reson-group/lead-radar/internal/source"
	"github.com/reson-group/lead-radar/internal/store"
)

// env bundles the wired subsystems shared by the commands.
type env struct {
	store store.Store
	orch  *orchestrator.Orchestrator
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	client := fetch.NewClient(cfg.Fetch)
	registry := source.DefaultRegistry(client)

	var enricher enrich.Enricher = enrich.Noop{}
	if cfg.Enrich.Enabled {
		enricher = enrich.NewWebsite(client, cfg.Tags, cfg.Enrich)
	}

	return &env{
		store: st,
		orch:  orchestrator.New(cfg, st, registry, enricher),
	}, nil
}

func (e *env) Close() {
	e.store.Close() //nolint:errcheck
}

func (e *env) server() *server.Server {
	return server.New(cfg.Server, e.store, e.orch)
}
