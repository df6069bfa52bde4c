// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"context"
	"log/slog"

	"github.com/pedorich-n/geekdo-sync/internal/geekdo"
)

// Upserter writes entities to the destination in dependency order:
// players and items first (mutually independent), then plays (which
// reference items), then player-play links (which reference both).
// After each independent-entity write the full table is re-listed to
// build a natural-key to surrogate-id map, because the store does not
// return surrogate ids from the upsert call and rows may predate this
// run.
type Upserter struct {
	store  Store
	logger *slog.Logger
}

// NewUpserter creates an upserter over the given destination store.
func NewUpserter(store Store, logger *slog.Logger) *Upserter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Upserter{store: store, logger: logger}
}

// SyncPlayers upserts player records and returns the complete
// name-to-row-id map read back from the store. An empty input yields
// an empty map without touching the store.
func (u *Upserter) SyncPlayers(ctx context.Context, records []UpsertRecord) (map[string]RowID, error) {
	if len(records) == 0 {
		u.logger.Debug("No players to sync")
		return map[string]RowID{}, nil
	}

	u.logger.Debug("Upserting players", "count", len(records))
	if err := u.store.Upsert(ctx, TablePlayers, records); err != nil {
		return map[string]RowID{}, &WriteError{Table: TablePlayers, Err: err}
	}

	rows, err := u.store.List(ctx, TablePlayers, ListOptions{})
	if err != nil {
		return map[string]RowID{}, &WriteError{Table: TablePlayers, Err: err}
	}

	mapping := make(map[string]RowID, len(rows))
	for _, row := range rows {
		name, err := Fields(row).StrFieldRequired(ColName)
		if err != nil {
			u.logger.Warn("Skipping malformed player row", "row_id", int64(row.ID), "error", err)
			continue
		}
		mapping[name] = row.ID
	}
	u.logger.Debug("Players mapping built", "entries", len(mapping))
	return mapping, nil
}

// SyncItems upserts item records and returns the complete
// item-id-to-row-id map read back from the store.
func (u *Upserter) SyncItems(ctx context.Context, records []UpsertRecord) (map[geekdo.ItemID]RowID, error) {
	if len(records) == 0 {
		u.logger.Debug("No items to sync")
		return map[geekdo.ItemID]RowID{}, nil
	}

	u.logger.Debug("Upserting items", "count", len(records))
	if err := u.store.Upsert(ctx, TableItems, records); err != nil {
		return map[geekdo.ItemID]RowID{}, &WriteError{Table: TableItems, Err: err}
	}

	rows, err := u.store.List(ctx, TableItems, ListOptions{})
	if err != nil {
		return map[geekdo.ItemID]RowID{}, &WriteError{Table: TableItems, Err: err}
	}

	mapping := make(map[geekdo.ItemID]RowID, len(rows))
	for _, row := range rows {
		id, err := Fields(row).Int64FieldRequired(ColItemID)
		if err != nil {
			u.logger.Warn("Skipping malformed item row", "row_id", int64(row.ID), "error", err)
			continue
		}
		mapping[geekdo.ItemID(id)] = row.ID
	}
	u.logger.Debug("Items mapping built", "entries", len(mapping))
	return mapping, nil
}

// SyncPlays writes play records, filtering out plays already known
// before the write, then re-lists the table and merges the read-back
// rows into the existing mapping so downstream phases see a complete
// play-id to row-id map.
func (u *Upserter) SyncPlays(ctx context.Context, records []UpsertRecord, existing map[geekdo.PlayID]RowID) (map[geekdo.PlayID]RowID, error) {
	toWrite := make([]UpsertRecord, 0, len(records))
	for _, rec := range records {
		id, ok := rec.Require[ColPlayID].(int64)
		if ok {
			if _, known := existing[geekdo.PlayID(id)]; known {
				continue
			}
		}
		toWrite = append(toWrite, rec)
	}

	if len(toWrite) == 0 {
		u.logger.Debug("No new plays to sync")
		return existing, nil
	}

	u.logger.Debug("Inserting new plays", "count", len(toWrite), "filtered", len(records)-len(toWrite))
	if err := u.store.Upsert(ctx, TablePlays, toWrite); err != nil {
		return existing, &WriteError{Table: TablePlays, Err: err}
	}

	rows, err := u.store.List(ctx, TablePlays, ListOptions{})
	if err != nil {
		return existing, &WriteError{Table: TablePlays, Err: err}
	}

	mapping := make(map[geekdo.PlayID]RowID, len(rows)+len(existing))
	for id, rowID := range existing {
		mapping[id] = rowID
	}
	for _, row := range rows {
		id, err := Fields(row).Int64FieldRequired(ColPlayID)
		if err != nil {
			u.logger.Warn("Skipping malformed play row", "row_id", int64(row.ID), "error", err)
			continue
		}
		mapping[geekdo.PlayID(id)] = row.ID
	}
	u.logger.Debug("Plays mapping built", "entries", len(mapping))
	return mapping, nil
}

// SyncLinks writes player-play link records. Links carry no read-back
// mapping; nothing downstream depends on them.
func (u *Upserter) SyncLinks(ctx context.Context, records []UpsertRecord) error {
	if len(records) == 0 {
		u.logger.Debug("No player-play links to sync")
		return nil
	}

	u.logger.Debug("Upserting player-play links", "count", len(records))
	if err := u.store.Upsert(ctx, TablePlayerPlays, records); err != nil {
		return &WriteError{Table: TablePlayerPlays, Err: err}
	}
	return nil
}
