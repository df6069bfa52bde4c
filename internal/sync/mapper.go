// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"log/slog"
	"sort"

	"github.com/pedorich-n/geekdo-sync/internal/geekdo"
)

// The mapper converts source entities into natural-key upsert payloads,
// resolving foreign references through the in-memory RowID maps built
// by the upserter. A reference missing from its map is a mapping gap:
// the affected row is dropped with a warning, never an error.

// mapItems builds Items upsert records, ordered by item id for
// deterministic batches.
func mapItems(items map[geekdo.ItemID]geekdo.Item) []UpsertRecord {
	ids := make([]geekdo.ItemID, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records := make([]UpsertRecord, 0, len(items))
	for _, id := range ids {
		item := items[id]
		records = append(records, UpsertRecord{
			Require: map[string]any{ColItemID: int64(item.ID)},
			Fields: map[string]any{
				ColName:    item.Name,
				ColSubtype: item.Subtype,
				ColType:    item.Type,
			},
		})
	}
	return records
}

// mapPlayers builds Players upsert records keyed by display name,
// ordered by name for deterministic batches.
func mapPlayers(players map[string]geekdo.Player) []UpsertRecord {
	names := make([]string, 0, len(players))
	for name := range players {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]UpsertRecord, 0, len(players))
	for _, name := range names {
		player := players[name]
		records = append(records, UpsertRecord{
			Require: map[string]any{ColName: player.Name},
			Fields: map[string]any{
				ColUsername: optField(player.Username),
				ColUserID:   optUserIDField(player.UserID),
			},
		})
	}
	return records
}

// mapPlays builds Plays upsert records with the item reference
// resolved to a row id. A play whose item is absent from the map is
// skipped with a warning; that only happens on malformed upstream data
// because items are synced first.
func mapPlays(plays []geekdo.Play, items map[geekdo.ItemID]RowID, logger *slog.Logger) []UpsertRecord {
	records := make([]UpsertRecord, 0, len(plays))
	for _, play := range plays {
		itemRow, ok := items[play.Item.ID]
		if !ok {
			logger.Warn("Item missing from mapping, skipping play",
				"item_id", int64(play.Item.ID), "play_id", int64(play.ID))
			continue
		}
		records = append(records, UpsertRecord{
			Require: map[string]any{ColPlayID: int64(play.ID)},
			Fields: map[string]any{
				ColDate:     play.Date.Format(geekdo.DateLayout),
				ColItem:     int64(itemRow),
				ColQuantity: play.Quantity,
				ColLength:   optField(play.Length),
				ColComment:  optField(play.Comments),
				ColLocation: optField(play.Location),
			},
		})
	}
	return records
}

// mapLinks builds PlayerPlays upsert records, one per participant per
// play, with both references resolved. A play or player missing from
// its map drops only the affected link.
func mapLinks(plays []geekdo.Play, playRows map[geekdo.PlayID]RowID, playerRows map[string]RowID, logger *slog.Logger) []UpsertRecord {
	var records []UpsertRecord
	for _, play := range plays {
		if len(play.Players) == 0 {
			continue
		}
		playRow, ok := playRows[play.ID]
		if !ok {
			logger.Warn("Play missing from mapping, skipping its links", "play_id", int64(play.ID))
			continue
		}
		for _, player := range play.Players {
			playerRow, ok := playerRows[player.Name]
			if !ok {
				logger.Warn("Player missing from mapping, skipping link",
					"player", player.Name, "play_id", int64(play.ID))
				continue
			}
			records = append(records, UpsertRecord{
				Require: map[string]any{
					ColPlay:   int64(playRow),
					ColPlayer: int64(playerRow),
				},
				Fields: map[string]any{
					ColStartPosition: optField(player.StartPosition),
					ColColor:         optField(player.Color),
					ColScore:         optField(player.Score),
					ColRating:        optField(player.Rating),
					ColNew:           optField(player.New),
					ColWin:           optField(player.Win),
				},
			})
		}
	}
	return records
}

// optField flattens a typed optional into the untyped field value the
// store expects: nil stays nil instead of becoming a typed nil pointer.
func optField[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func optUserIDField(p *geekdo.UserID) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}
