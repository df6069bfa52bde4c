// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"fmt"
	"strings"

	gsync "github.com/pedorich-n/geekdo-sync/internal/sync"
)

type colKind int

const (
	kindText colKind = iota
	kindInt
	kindBool
)

type column struct {
	name string
	kind colKind
}

type tableSchema struct {
	columns []column // key and non-key columns, without the surrogate id
	keys    []string // natural-key column names
}

// tableSchemas is the fixed destination schema. Dates are stored as
// ISO text so both dialects behave identically; row references are
// plain integers pointing at surrogate ids.
var tableSchemas = map[string]tableSchema{
	gsync.TableItems: {
		keys: []string{gsync.ColItemID},
		columns: []column{
			{gsync.ColItemID, kindInt},
			{gsync.ColName, kindText},
			{gsync.ColSubtype, kindText},
			{gsync.ColType, kindText},
		},
	},
	gsync.TablePlayers: {
		keys: []string{gsync.ColName},
		columns: []column{
			{gsync.ColName, kindText},
			{gsync.ColUsername, kindText},
			{gsync.ColUserID, kindInt},
		},
	},
	gsync.TablePlays: {
		keys: []string{gsync.ColPlayID},
		columns: []column{
			{gsync.ColPlayID, kindInt},
			{gsync.ColDate, kindText},
			{gsync.ColItem, kindInt},
			{gsync.ColQuantity, kindInt},
			{gsync.ColLength, kindInt},
			{gsync.ColComment, kindText},
			{gsync.ColLocation, kindText},
		},
	},
	gsync.TablePlayerPlays: {
		keys: []string{gsync.ColPlay, gsync.ColPlayer},
		columns: []column{
			{gsync.ColPlay, kindInt},
			{gsync.ColPlayer, kindInt},
			{gsync.ColStartPosition, kindText},
			{gsync.ColColor, kindText},
			{gsync.ColScore, kindInt},
			{gsync.ColRating, kindInt},
			{gsync.ColNew, kindBool},
			{gsync.ColWin, kindBool},
		},
	},
}

func (t tableSchema) column(name string) (column, bool) {
	for _, col := range t.columns {
		if col.name == name {
			return col, true
		}
	}
	return column{}, false
}

// nonKeyColumns returns the updatable columns in schema order.
func (t tableSchema) nonKeyColumns() []column {
	keys := make(map[string]bool, len(t.keys))
	for _, k := range t.keys {
		keys[k] = true
	}
	var cols []column
	for _, col := range t.columns {
		if !keys[col.name] {
			cols = append(cols, col)
		}
	}
	return cols
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func (s *Store) sqlType(kind colKind) string {
	switch kind {
	case kindInt:
		if s.dialect == Postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case kindBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// createTableDDL renders the CREATE TABLE statement for one table,
// with a dialect-appropriate surrogate id column and a UNIQUE
// constraint on the natural key.
func (s *Store) createTableDDL(name string, schema tableSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quoteIdent(name))
	if s.dialect == Postgres {
		b.WriteString("\tid BIGSERIAL PRIMARY KEY")
	} else {
		b.WriteString("\tid INTEGER PRIMARY KEY AUTOINCREMENT")
	}
	for _, col := range schema.columns {
		fmt.Fprintf(&b, ",\n\t%s %s", quoteIdent(col.name), s.sqlType(col.kind))
	}
	quoted := make([]string, len(schema.keys))
	for i, key := range schema.keys {
		quoted[i] = quoteIdent(key)
	}
	fmt.Fprintf(&b, ",\n\tUNIQUE (%s)\n)", strings.Join(quoted, ", "))
	return b.String()
}
