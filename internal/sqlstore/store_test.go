// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	gsync "github.com/pedorich-n/geekdo-sync/internal/sync"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), SQLite, ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "", nil)
	require.Error(t, err)
}

func TestOpenCreatesEmptyTables(t *testing.T) {
	store := openTestStore(t)
	for _, table := range []string{gsync.TableItems, gsync.TablePlayers, gsync.TablePlays, gsync.TablePlayerPlays} {
		rows, err := store.List(context.Background(), table, gsync.ListOptions{})
		require.NoError(t, err)
		require.Empty(t, rows)
	}
}

func TestUpsertKeepsRowIDStable(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, gsync.TableItems, []gsync.UpsertRecord{{
		Require: map[string]any{gsync.ColItemID: int64(224517)},
		Fields:  map[string]any{gsync.ColName: "Brass", gsync.ColSubtype: "boardgame", gsync.ColType: "thing"},
	}})
	require.NoError(t, err)

	rows, err := store.List(ctx, gsync.TableItems, gsync.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	firstID := rows[0].ID

	// Same natural key again: the row is updated in place, not duplicated.
	err = store.Upsert(ctx, gsync.TableItems, []gsync.UpsertRecord{{
		Require: map[string]any{gsync.ColItemID: int64(224517)},
		Fields:  map[string]any{gsync.ColName: "Brass: Birmingham"},
	}})
	require.NoError(t, err)

	rows, err = store.List(ctx, gsync.TableItems, gsync.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, firstID, rows[0].ID)
	require.Equal(t, "Brass: Birmingham", rows[0].Fields[gsync.ColName])
	require.Equal(t, "boardgame", rows[0].Fields[gsync.ColSubtype], "untouched columns keep their values")
}

func TestUpsertCompositeKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	records := []gsync.UpsertRecord{
		{
			Require: map[string]any{gsync.ColPlay: int64(21), gsync.ColPlayer: int64(31)},
			Fields:  map[string]any{gsync.ColWin: true, gsync.ColScore: int64(142)},
		},
		{
			Require: map[string]any{gsync.ColPlay: int64(21), gsync.ColPlayer: int64(32)},
			Fields:  map[string]any{gsync.ColWin: false},
		},
	}
	require.NoError(t, store.Upsert(ctx, gsync.TablePlayerPlays, records))

	// Re-upserting one pair must not create a third row.
	require.NoError(t, store.Upsert(ctx, gsync.TablePlayerPlays, []gsync.UpsertRecord{{
		Require: map[string]any{gsync.ColPlay: int64(21), gsync.ColPlayer: int64(31)},
		Fields:  map[string]any{gsync.ColScore: int64(150)},
	}}))

	rows, err := store.List(ctx, gsync.TablePlayerPlays, gsync.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(150), rows[0].Fields[gsync.ColScore])
	require.Equal(t, true, rows[0].Fields[gsync.ColWin])
}

func TestUpsertNullableFields(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, gsync.TablePlays, []gsync.UpsertRecord{{
		Require: map[string]any{gsync.ColPlayID: int64(9001)},
		Fields: map[string]any{
			gsync.ColDate:     "2025-08-14",
			gsync.ColItem:     int64(1),
			gsync.ColQuantity: 1,
			gsync.ColLength:   nil,
			gsync.ColComment:  nil,
			gsync.ColLocation: "Kitchen table",
		},
	}}))

	rows, err := store.List(ctx, gsync.TablePlays, gsync.ListOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].Fields[gsync.ColLength])
	require.Nil(t, rows[0].Fields[gsync.ColComment])
	require.Equal(t, "Kitchen table", rows[0].Fields[gsync.ColLocation])
	require.Equal(t, int64(9001), rows[0].Fields[gsync.ColPlayID])
}

func TestListSortAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	dates := []string{"2025-08-12", "2025-08-14", "2025-08-13"}
	for i, date := range dates {
		require.NoError(t, store.Upsert(ctx, gsync.TablePlays, []gsync.UpsertRecord{{
			Require: map[string]any{gsync.ColPlayID: int64(9001 + i)},
			Fields:  map[string]any{gsync.ColDate: date, gsync.ColItem: int64(1), gsync.ColQuantity: 1},
		}}))
	}

	rows, err := store.List(ctx, gsync.TablePlays, gsync.ListOptions{Sort: "-" + gsync.ColDate, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "2025-08-14", rows[0].Fields[gsync.ColDate])
	require.Equal(t, "2025-08-13", rows[1].Fields[gsync.ColDate])

	rows, err = store.List(ctx, gsync.TablePlays, gsync.ListOptions{Sort: gsync.ColDate})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "2025-08-12", rows[0].Fields[gsync.ColDate])
}

func TestListUnknownTable(t *testing.T) {
	store := openTestStore(t)
	_, err := store.List(context.Background(), "Nope", gsync.ListOptions{})
	require.Error(t, err)
}

func TestListUnknownSortColumn(t *testing.T) {
	store := openTestStore(t)
	_, err := store.List(context.Background(), gsync.TablePlays, gsync.ListOptions{Sort: "Nope"})
	require.Error(t, err)
}

func TestUpsertMissingKeyColumn(t *testing.T) {
	store := openTestStore(t)
	err := store.Upsert(context.Background(), gsync.TableItems, []gsync.UpsertRecord{{
		Require: map[string]any{},
		Fields:  map[string]any{gsync.ColName: "X"},
	}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "natural key")
}
