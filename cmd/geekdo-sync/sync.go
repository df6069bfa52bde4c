// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pedorich-n/geekdo-sync/internal/config"
	"github.com/pedorich-n/geekdo-sync/internal/geekdo"
	"github.com/pedorich-n/geekdo-sync/internal/grist"
	"github.com/pedorich-n/geekdo-sync/internal/sqlstore"
	gsync "github.com/pedorich-n/geekdo-sync/internal/sync"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one incremental sync from the GeekDo API into the destination store",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load(flagConfig)
			if err != nil {
				logger.Error("Configuration error", "error", err)
				return err
			}

			source := geekdo.NewClient(geekdo.Config{
				BaseURL:      cfg.Geekdo.BaseURL,
				Token:        cfg.Geekdo.Token,
				RequestDelay: cfg.Geekdo.RequestDelay.Std(),
				Logger:       logger,
			})

			store, closeStore, err := buildStore(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("Failed to open destination store", "error", err)
				return err
			}
			defer closeStore()

			service := gsync.New(source, store, gsync.Config{
				Username:     cfg.Geekdo.Username,
				OverlapLimit: cfg.Sync.OverlapLimit,
				Validation:   gsync.ValidationMode(cfg.Sync.Validation),
			}, logger)

			report, err := service.Run(cmd.Context())
			if err != nil {
				logger.Error("Sync failed", "error", err)
				return err
			}
			if !report.Validated {
				return errors.New("sync finished but validation failed")
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"sync ok: %d new plays (%d items, %d players, %d links) in %.2fs\n",
				report.NewPlays, report.Items, report.Players, report.Links,
				report.Elapsed.Seconds())
			return nil
		},
	}
}

// buildStore constructs the configured destination store and returns a
// close function for backends that hold resources.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (gsync.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendGrist:
		client, err := grist.NewClient(grist.Config{
			BaseURL: cfg.Grist.BaseURL,
			APIKey:  cfg.Grist.APIKey,
			DocID:   cfg.Grist.DocID,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	case config.BackendSQLite:
		store, err := sqlstore.Open(ctx, sqlstore.SQLite, cfg.Store.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.BackendPostgres:
		store, err := sqlstore.Open(ctx, sqlstore.Postgres, cfg.Store.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
