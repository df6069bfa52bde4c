// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pedorich-n/geekdo-sync/internal/config"
	gsync "github.com/pedorich-n/geekdo-sync/internal/sync"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run a full-scan integrity validation over the destination store, without syncing",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load(flagConfig)
			if err != nil {
				logger.Error("Configuration error", "error", err)
				return err
			}

			store, closeStore, err := buildStore(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error("Failed to open destination store", "error", err)
				return err
			}
			defer closeStore()

			validator := gsync.NewValidator(store, logger)
			ok, err := validator.Validate(cmd.Context(), gsync.ValidateFull, nil)
			if err != nil {
				logger.Error("Validation could not run", "error", err)
				return err
			}
			if !ok {
				return errors.New("validation failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "validation ok")
			return nil
		},
	}
}
