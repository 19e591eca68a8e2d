package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/orgsignal/decision-cli/internal/conflict"
	"github.com/orgsignal/decision-cli/internal/graph"
	"github.com/orgsignal/decision-cli/internal/retrieval"
	"github.com/orgsignal/decision-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "decisions.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
			MinConns: int32(cfg.Store.MinConns),
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initDetector(st store.Store) *conflict.Detector {
	return conflict.NewDetector(graph.NewService(st), st, cfg.Conflict)
}

func initRetriever() *retrieval.Retriever {
	return retrieval.New(cfg.Retrieval)
}
