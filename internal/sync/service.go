// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

// Package sync implements the incremental sync engine: overlap-bounded
// fetching from the plays feed, dependency-ordered natural-key upserts
// into the destination store, and the post-write validation pass.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pedorich-n/geekdo-sync/internal/geekdo"
)

// Config holds configuration for one sync service.
type Config struct {
	Username     string         // source feed user
	OverlapLimit int            // how many recent plays form the overlap baseline, defaults to 100
	Validation   ValidationMode // defaults to ValidateIncremental
}

// Report summarizes one sync run for the caller. The run is successful
// iff Validated is true.
type Report struct {
	RunID     string
	NewPlays  int
	Items     int
	Players   int
	Plays     int
	Links     int
	Validated bool
	Elapsed   time.Duration
}

// Service orchestrates a full sync run. All natural-key to surrogate-id
// mapping tables live only for the duration of one Run call and are
// rebuilt from the store on the next run.
type Service struct {
	source Source
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a sync service. If logger is nil, slog.Default is used.
func New(source Source, store Store, cfg Config, logger *slog.Logger) *Service {
	if cfg.OverlapLimit <= 0 {
		cfg.OverlapLimit = geekdo.PageSize
	}
	if cfg.Validation == "" {
		cfg.Validation = ValidateIncremental
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run executes one sync: baseline, fetch, prepare, dependency-ordered
// writes, validation. Fetch errors abort the run; write errors are
// downgraded to warnings at the phase boundary so already-synced
// independent entities are not lost. A returned error or a report with
// Validated=false both mean the run was unsuccessful. Nothing is ever
// rolled back.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	started := s.now()
	report := &Report{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", report.RunID)

	logger.Info("Starting sync", "username", s.cfg.Username)

	// FETCH_BASELINE
	logger.Info("Phase: fetch baseline from destination")
	existing := s.fetchBaseline(ctx, logger)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	minDate := time.Time{}
	if len(existing) == 0 {
		logger.Info("No existing plays in destination, performing full sync")
	} else {
		logger.Info("Baseline established", "recent_plays", len(existing))
		if recent := s.mostRecentPlayDate(ctx, logger); !recent.IsZero() {
			// One-day buffer against timezone skew and edited or
			// deleted upstream plays.
			minDate = recent.AddDate(0, 0, -1)
			logger.Info("Using mindate for incremental fetch", "mindate", formatDate(minDate))
		} else {
			logger.Warn("Baseline has plays but no usable date, fetching full history")
		}
	}

	// FETCH_NEW
	logger.Info("Phase: fetch new plays from source")
	fetcher := NewFetcher(s.source, s.cfg.Username, logger)
	newPlays, err := fetcher.FetchNew(ctx, existing, minDate)
	if err != nil {
		return report, err
	}
	report.NewPlays = len(newPlays)

	if len(newPlays) == 0 {
		logger.Info("No new plays, sync complete")
		report.Validated = true
		report.Elapsed = s.now().Sub(started)
		return report, nil
	}

	// PREPARE
	logger.Info("Phase: prepare independent entities", "new_plays", len(newPlays))
	items := geekdo.UniqueItems(newPlays)
	players := geekdo.UniquePlayers(newPlays)
	itemRecords := mapItems(items)
	playerRecords := mapPlayers(players)
	report.Items = len(itemRecords)
	report.Players = len(playerRecords)

	// SYNC_INDEPENDENT
	logger.Info("Phase: sync independent entities", "items", len(itemRecords), "players", len(playerRecords))
	upserter := NewUpserter(s.store, logger)

	playerRows, err := upserter.SyncPlayers(ctx, playerRecords)
	if err := s.phaseError(ctx, logger, err); err != nil {
		return report, err
	}
	itemRows, err := upserter.SyncItems(ctx, itemRecords)
	if err := s.phaseError(ctx, logger, err); err != nil {
		return report, err
	}

	// SYNC_DEPENDENT
	logger.Info("Phase: sync dependent entities")
	playRecords := mapPlays(newPlays, itemRows, logger)
	report.Plays = len(playRecords)
	playRows, err := upserter.SyncPlays(ctx, playRecords, existing)
	if err := s.phaseError(ctx, logger, err); err != nil {
		return report, err
	}

	linkRecords := mapLinks(newPlays, playRows, playerRows, logger)
	report.Links = len(linkRecords)
	err = upserter.SyncLinks(ctx, linkRecords)
	if err := s.phaseError(ctx, logger, err); err != nil {
		return report, err
	}

	// VALIDATE
	logger.Info("Phase: validate", "mode", string(s.cfg.Validation))
	validator := NewValidator(s.store, logger)
	scope := buildScope(newPlays, items, linkRecords)
	ok, err := validator.Validate(ctx, s.cfg.Validation, scope)
	if err != nil {
		return report, fmt.Errorf("validation could not run: %w", err)
	}

	report.Validated = ok
	report.Elapsed = s.now().Sub(started)
	if ok {
		logger.Info("Sync completed successfully",
			"new_plays", report.NewPlays, "plays_written", report.Plays,
			"links_written", report.Links, "elapsed", report.Elapsed)
	} else {
		logger.Error("Sync finished but validation failed", "elapsed", report.Elapsed)
	}
	return report, nil
}

// phaseError downgrades destination write errors to warnings so that
// independent entities already synced are not lost; anything else
// (notably cancellation) still aborts the run.
func (s *Service) phaseError(ctx context.Context, logger *slog.Logger, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var writeErr *WriteError
	if errors.As(err, &writeErr) {
		logger.Warn("Entity phase failed, continuing with partial mapping",
			"table", writeErr.Table, "error", writeErr.Err)
		return nil
	}
	return err
}

// fetchBaseline lists the most recent plays from the destination to
// build the overlap-detection baseline. A destination read failure
// degrades to an empty baseline (full fetch) rather than aborting.
func (s *Service) fetchBaseline(ctx context.Context, logger *slog.Logger) map[geekdo.PlayID]RowID {
	rows, err := s.store.List(ctx, TablePlays, ListOptions{Sort: "-" + ColDate, Limit: s.cfg.OverlapLimit})
	if err != nil {
		logger.Error("Failed to fetch recent plays from destination", "error", err)
		return map[geekdo.PlayID]RowID{}
	}

	existing := make(map[geekdo.PlayID]RowID, len(rows))
	for _, row := range rows {
		id, err := Fields(row).Int64FieldRequired(ColPlayID)
		if err != nil {
			logger.Warn("Skipping malformed play row in baseline", "row_id", int64(row.ID), "error", err)
			continue
		}
		existing[geekdo.PlayID(id)] = row.ID
	}
	logger.Debug("Baseline plays retrieved", "count", len(existing))
	return existing
}

// mostRecentPlayDate returns the newest play date in the destination,
// or the zero time when the table is empty or unreadable.
func (s *Service) mostRecentPlayDate(ctx context.Context, logger *slog.Logger) time.Time {
	rows, err := s.store.List(ctx, TablePlays, ListOptions{Sort: "-" + ColDate, Limit: 1})
	if err != nil {
		logger.Error("Failed to fetch most recent play date", "error", err)
		return time.Time{}
	}
	if len(rows) == 0 {
		return time.Time{}
	}
	raw := Fields(rows[0]).StrField(ColDate)
	if raw == nil {
		return time.Time{}
	}
	date, err := time.Parse(geekdo.DateLayout, *raw)
	if err != nil {
		logger.Warn("Unparseable date on most recent play", "date", *raw, "error", err)
		return time.Time{}
	}
	logger.Debug("Most recent play date", "date", *raw)
	return date
}

// buildScope records the natural keys written by this run for the
// incremental validator.
func buildScope(plays []geekdo.Play, items map[geekdo.ItemID]geekdo.Item, linkRecords []UpsertRecord) *RunScope {
	scope := &RunScope{
		PlayIDs: make(map[geekdo.PlayID]struct{}, len(plays)),
		ItemIDs: make(map[geekdo.ItemID]struct{}, len(items)),
		Links:   make(map[LinkKey]struct{}, len(linkRecords)),
	}
	for _, play := range plays {
		scope.PlayIDs[play.ID] = struct{}{}
	}
	for id := range items {
		scope.ItemIDs[id] = struct{}{}
	}
	for _, rec := range linkRecords {
		playRef, okPlay := rec.Require[ColPlay].(int64)
		playerRef, okPlayer := rec.Require[ColPlayer].(int64)
		if okPlay && okPlayer {
			scope.Links[LinkKey{Play: RowID(playRef), Player: RowID(playerRef)}] = struct{}{}
		}
	}
	return scope
}
