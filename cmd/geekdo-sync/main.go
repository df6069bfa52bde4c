// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

// geekdo-sync mirrors a GeekDo (BoardGameGeek) user's play log into a
// relational destination store, incrementally and with post-write
// integrity validation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	err := root.ExecuteContext(ctx)

	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "interrupted")
		return exitInterrupted
	}
	if err != nil {
		return exitFailure
	}
	return exitOK
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "geekdo-sync",
		Short:         "Incrementally mirror a GeekDo play log into a relational store",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newSyncCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the geekdo-sync version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "geekdo-sync", Version)
		},
	}
}

// newLogger builds the process logger from the --log-level flag.
// Everything downstream receives it by injection; there is no global
// logger state beyond this.
func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(flagLogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
