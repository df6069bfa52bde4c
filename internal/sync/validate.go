// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pedorich-n/geekdo-sync/internal/geekdo"
)

// ValidationMode selects the validator strategy.
type ValidationMode string

const (
	// ValidateIncremental checks only the rows written by the current
	// run. Used after a steady-state sync.
	ValidateIncremental ValidationMode = "incremental"
	// ValidateFull re-derives integrity over every destination row.
	ValidateFull ValidationMode = "full"
)

// RunScope identifies the rows written by one run, by natural key.
// A nil scope means everything is in scope.
type RunScope struct {
	PlayIDs map[geekdo.PlayID]struct{}
	ItemIDs map[geekdo.ItemID]struct{}
	Links   map[LinkKey]struct{}
}

// LinkKey is the natural key of a player-play link: the row-reference
// pair.
type LinkKey struct {
	Play   RowID
	Player RowID
}

// Validator checks referential integrity and uniqueness invariants
// over the destination store. Checks run independently: one failing
// check never stops the others.
type Validator struct {
	store  Store
	logger *slog.Logger
}

// NewValidator creates a validator over the given destination store.
func NewValidator(store Store, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{store: store, logger: logger}
}

// Validate runs all integrity checks and reports whether they passed.
// In incremental mode checks are restricted to rows named by scope;
// membership sets (valid row ids per table) always come from full
// listings. A store error aborts validation itself.
func (v *Validator) Validate(ctx context.Context, mode ValidationMode, scope *RunScope) (bool, error) {
	v.logger.Info("Running sync validation", "mode", string(mode))
	if mode == ValidateFull {
		scope = nil
	}

	items, err := v.store.List(ctx, TableItems, ListOptions{})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", TableItems, err)
	}
	players, err := v.store.List(ctx, TablePlayers, ListOptions{})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", TablePlayers, err)
	}
	plays, err := v.store.List(ctx, TablePlays, ListOptions{})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", TablePlays, err)
	}
	links, err := v.store.List(ctx, TablePlayerPlays, ListOptions{})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", TablePlayerPlays, err)
	}

	// Check 1: row counts. Zero plays is suspicious but not fatal.
	v.logger.Info("Destination row counts",
		"items", len(items), "players", len(players), "plays", len(plays), "player_plays", len(links))
	if len(plays) == 0 {
		v.logger.Warn("Plays table is empty")
	}

	validItems := rowIDSet(items)
	validPlayers := rowIDSet(players)
	validPlays := rowIDSet(plays)

	passed := true
	if !v.checkPlayItemRefs(plays, validItems, scope) {
		passed = false
	}
	if !v.checkLinkRefs(links, validPlays, validPlayers, scope) {
		passed = false
	}
	if !v.checkDuplicatePlayIDs(plays, scope) {
		passed = false
	}
	if !v.checkDuplicateItemIDs(items, scope) {
		passed = false
	}

	if passed {
		v.logger.Info("All validation checks passed")
	} else {
		v.logger.Error("Validation failed, data integrity issues detected")
	}
	return passed, nil
}

// checkPlayItemRefs verifies every (in-scope) play row references an
// existing item row.
func (v *Validator) checkPlayItemRefs(plays []Row, validItems map[RowID]struct{}, scope *RunScope) bool {
	invalid := 0
	for _, row := range plays {
		fields := Fields(row)
		playID := fields.Int64Field(ColPlayID)
		if scope != nil && (playID == nil || !inPlayScope(scope, *playID)) {
			continue
		}
		itemRef, err := fields.RowIDField(ColItem)
		if err != nil {
			invalid++
			v.logError(invalid, "Play row has no item reference", "row_id", int64(row.ID))
			continue
		}
		if _, ok := validItems[itemRef]; !ok {
			invalid++
			v.logError(invalid, "Play references non-existent item",
				"row_id", int64(row.ID), "item_ref", int64(itemRef))
		}
	}
	if invalid > 0 {
		v.logger.Error("Plays with invalid item references", "count", invalid)
		return false
	}
	v.logger.Debug("All plays have valid item references")
	return true
}

// checkLinkRefs verifies every (in-scope) link row references an
// existing play row and player row.
func (v *Validator) checkLinkRefs(links []Row, validPlays, validPlayers map[RowID]struct{}, scope *RunScope) bool {
	invalid := 0
	for _, row := range links {
		fields := Fields(row)
		playRef, playErr := fields.RowIDField(ColPlay)
		playerRef, playerErr := fields.RowIDField(ColPlayer)
		if playErr != nil || playerErr != nil {
			invalid++
			v.logError(invalid, "Link row is missing a reference", "row_id", int64(row.ID))
			continue
		}
		if scope != nil {
			if _, ok := scope.Links[LinkKey{Play: playRef, Player: playerRef}]; !ok {
				continue
			}
		}
		if _, ok := validPlays[playRef]; !ok {
			invalid++
			v.logError(invalid, "Link references non-existent play",
				"row_id", int64(row.ID), "play_ref", int64(playRef))
		}
		if _, ok := validPlayers[playerRef]; !ok {
			invalid++
			v.logError(invalid, "Link references non-existent player",
				"row_id", int64(row.ID), "player_ref", int64(playerRef))
		}
	}
	if invalid > 0 {
		v.logger.Error("Links with invalid references", "count", invalid)
		return false
	}
	v.logger.Debug("All player-play links have valid references")
	return true
}

// checkDuplicatePlayIDs verifies no source play id appears on two play
// rows. Duplicates are detected over the whole table; in incremental
// mode only duplicates involving an in-scope id are reported.
func (v *Validator) checkDuplicatePlayIDs(plays []Row, scope *RunScope) bool {
	seen := make(map[int64]struct{}, len(plays))
	duplicates := 0
	for _, row := range plays {
		id := Fields(row).Int64Field(ColPlayID)
		if id == nil {
			continue
		}
		if _, dup := seen[*id]; dup {
			if scope == nil || inPlayScope(scope, *id) {
				duplicates++
				v.logError(duplicates, "Duplicate play id", "play_id", *id)
			}
		}
		seen[*id] = struct{}{}
	}
	if duplicates > 0 {
		v.logger.Error("Duplicate play ids found", "count", duplicates)
		return false
	}
	v.logger.Debug("No duplicate play ids")
	return true
}

// checkDuplicateItemIDs verifies no source item id appears on two item
// rows.
func (v *Validator) checkDuplicateItemIDs(items []Row, scope *RunScope) bool {
	seen := make(map[int64]struct{}, len(items))
	duplicates := 0
	for _, row := range items {
		id := Fields(row).Int64Field(ColItemID)
		if id == nil {
			continue
		}
		if _, dup := seen[*id]; dup {
			if scope == nil || inItemScope(scope, *id) {
				duplicates++
				v.logError(duplicates, "Duplicate item id", "item_id", *id)
			}
		}
		seen[*id] = struct{}{}
	}
	if duplicates > 0 {
		v.logger.Error("Duplicate item ids found", "count", duplicates)
		return false
	}
	v.logger.Debug("No duplicate item ids")
	return true
}

// logError logs details for the first few violations of a check so
// the log trail stays readable on badly broken stores.
func (v *Validator) logError(nth int, msg string, args ...any) {
	const detailLimit = 5
	if nth <= detailLimit {
		v.logger.Error(msg, args...)
	}
}

func inPlayScope(scope *RunScope, id int64) bool {
	_, ok := scope.PlayIDs[geekdo.PlayID(id)]
	return ok
}

func inItemScope(scope *RunScope, id int64) bool {
	_, ok := scope.ItemIDs[geekdo.ItemID(id)]
	return ok
}

func rowIDSet(rows []Row) map[RowID]struct{} {
	set := make(map[RowID]struct{}, len(rows))
	for _, row := range rows {
		set[row.ID] = struct{}{}
	}
	return set
}
