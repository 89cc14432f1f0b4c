package main

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/datsun80zx/tubecost.git/internal/server"
	"github.com/datsun80zx/tubecost.git/internal/store"
)

func (a *app) migrate(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return err
	}

	version, err := goose.GetDBVersionContext(ctx, a.store.DB())
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Printf("✅ Database schema at version %d\n", version)
	return nil
}

func (a *app) serve(ctx context.Context) error {
	rate, err := a.cfg.DefaultRate()
	if err != nil {
		return err
	}

	cache := store.NewResultCache(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, a.cfg.RedisTTL)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	srv := server.New(server.Options{
		Importer:    a.importer,
		Store:       a.store,
		Catalog:     a.catalog,
		Cache:       cache,
		DefaultRate: rate,
		Logger:      a.log,
	})

	fmt.Printf("Listening on %s\n", a.cfg.HTTPAddr)
	return srv.ListenAndServe(ctx, a.cfg.HTTPAddr)
}
