// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"context"
	"time"

	"github.com/pedorich-n/geekdo-sync/internal/geekdo"
)

// RowID is a surrogate row identifier assigned by the destination
// store on insert. Foreign references between destination tables are
// expressed as RowIDs.
type RowID int64

// Row is a destination record read back from the store: the surrogate
// id plus the stored fields.
type Row struct {
	ID     RowID
	Fields map[string]any
}

// UpsertRecord is a natural-key upsert payload: Require identifies the
// row (insert if no match, update otherwise), Fields carries the
// non-key columns.
type UpsertRecord struct {
	Require map[string]any
	Fields  map[string]any
}

// ListOptions narrows a List call. Sort follows the destination
// convention: a column name, with a leading "-" for descending order.
// A zero Limit means no limit.
type ListOptions struct {
	Sort  string
	Limit int
}

// Store is the destination the sync engine writes into. Upsert must be
// idempotent by natural key; surrogate ids are obtained by a
// subsequent List, never from the Upsert call itself.
type Store interface {
	List(ctx context.Context, table string, opts ListOptions) ([]Row, error)
	Upsert(ctx context.Context, table string, records []UpsertRecord) error
}

// Source is the read-only plays feed. Page numbering starts at 1; a
// zero minDate means no lower bound. Pages hold at most
// geekdo.PageSize plays.
type Source interface {
	Plays(ctx context.Context, username string, page int, minDate time.Time) (*geekdo.PlaysPage, error)
}
