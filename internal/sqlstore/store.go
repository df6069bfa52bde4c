// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlstore implements the destination store on top of
// database/sql, for mirroring into a local SQLite file or a Postgres
// database instead of Grist. The store emulates natural-key upsert as
// find-then-update inside a transaction; surrogate ids come from the
// integer primary key.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	gsync "github.com/pedorich-n/geekdo-sync/internal/sync"
)

// Dialect selects the SQL backend.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Store is a database/sql-backed destination store. It implements
// sync.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

var _ gsync.Store = (*Store)(nil)

// Open connects to the database and creates the destination tables if
// they do not exist yet.
func Open(ctx context.Context, dialect Dialect, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var driver string
	switch dialect {
	case SQLite:
		driver = "sqlite3"
	case Postgres:
		driver = "pgx"
	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", dialect, err)
	}

	store := &Store{db: db, dialect: dialect, logger: logger}
	if err := store.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	// Creation order does not matter: references are plain integers,
	// not database-level foreign keys.
	for _, name := range []string{gsync.TableItems, gsync.TablePlayers, gsync.TablePlays, gsync.TablePlayerPlays} {
		ddl := s.createTableDDL(name, tableSchemas[name])
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlstore: create table %s: %w", name, err)
		}
	}
	s.logger.Debug("Destination tables ready", "dialect", string(s.dialect))
	return nil
}

// placeholder renders the n-th (1-based) statement parameter for the
// active dialect.
func (s *Store) placeholder(n int) string {
	if s.dialect == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// List reads rows from one table. Sort accepts a column name with an
// optional leading "-" for descending order.
func (s *Store) List(ctx context.Context, table string, opts gsync.ListOptions) ([]gsync.Row, error) {
	schema, ok := tableSchemas[table]
	if !ok {
		return nil, fmt.Errorf("sqlstore: unknown table %q", table)
	}

	cols := make([]string, 0, len(schema.columns)+1)
	cols = append(cols, "id")
	for _, col := range schema.columns {
		cols = append(cols, quoteIdent(col.name))
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(table))

	if opts.Sort != "" {
		sortCol := opts.Sort
		dir := "ASC"
		if strings.HasPrefix(sortCol, "-") {
			sortCol = sortCol[1:]
			dir = "DESC"
		}
		if _, ok := schema.column(sortCol); !ok {
			return nil, fmt.Errorf("sqlstore: unknown sort column %q for table %s", sortCol, table)
		}
		query += fmt.Sprintf(" ORDER BY %s %s, id %s", quoteIdent(sortCol), dir, dir)
	}
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list %s: %w", table, err)
	}
	defer rows.Close()

	var result []gsync.Row
	for rows.Next() {
		row, err := scanRow(rows, schema)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan %s row: %w", table, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: list %s: %w", table, err)
	}
	return result, nil
}

func scanRow(rows *sql.Rows, schema tableSchema) (gsync.Row, error) {
	var id int64
	dest := make([]any, 0, len(schema.columns)+1)
	dest = append(dest, &id)
	for _, col := range schema.columns {
		switch col.kind {
		case kindInt:
			dest = append(dest, new(sql.NullInt64))
		case kindBool:
			dest = append(dest, new(sql.NullBool))
		default:
			dest = append(dest, new(sql.NullString))
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return gsync.Row{}, err
	}

	fields := make(map[string]any, len(schema.columns))
	for i, col := range schema.columns {
		switch v := dest[i+1].(type) {
		case *sql.NullInt64:
			if v.Valid {
				fields[col.name] = v.Int64
			} else {
				fields[col.name] = nil
			}
		case *sql.NullBool:
			if v.Valid {
				fields[col.name] = v.Bool
			} else {
				fields[col.name] = nil
			}
		case *sql.NullString:
			if v.Valid {
				fields[col.name] = v.String
			} else {
				fields[col.name] = nil
			}
		}
	}
	return gsync.Row{ID: gsync.RowID(id), Fields: fields}, nil
}

// Upsert applies records transactionally: for each record the row is
// located by its natural key, updated when found and inserted
// otherwise.
func (s *Store) Upsert(ctx context.Context, table string, records []gsync.UpsertRecord) error {
	schema, ok := tableSchemas[table]
	if !ok {
		return fmt.Errorf("sqlstore: unknown table %q", table)
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		if err := s.upsertOne(ctx, tx, table, schema, rec); err != nil {
			return fmt.Errorf("sqlstore: upsert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit upsert tx: %w", err)
	}
	s.logger.Debug("Upserted records", "table", table, "count", len(records))
	return nil
}

func (s *Store) upsertOne(ctx context.Context, tx *sql.Tx, table string, schema tableSchema, rec gsync.UpsertRecord) error {
	keyValues := make([]any, 0, len(schema.keys))
	where := make([]string, 0, len(schema.keys))
	for i, key := range schema.keys {
		value, ok := rec.Require[key]
		if !ok {
			return fmt.Errorf("record is missing natural key column %q", key)
		}
		keyValues = append(keyValues, value)
		where = append(where, fmt.Sprintf("%s = %s", quoteIdent(key), s.placeholder(i+1)))
	}

	var rowID int64
	findQuery := fmt.Sprintf("SELECT id FROM %s WHERE %s", quoteIdent(table), strings.Join(where, " AND "))
	err := tx.QueryRowContext(ctx, findQuery, keyValues...).Scan(&rowID)
	switch {
	case err == sql.ErrNoRows:
		return s.insertRow(ctx, tx, table, schema, rec, keyValues)
	case err != nil:
		return fmt.Errorf("find by natural key: %w", err)
	default:
		return s.updateRow(ctx, tx, table, schema, rec, rowID)
	}
}

func (s *Store) insertRow(ctx context.Context, tx *sql.Tx, table string, schema tableSchema, rec gsync.UpsertRecord, keyValues []any) error {
	cols := make([]string, 0, len(schema.columns))
	placeholders := make([]string, 0, len(schema.columns))
	values := make([]any, 0, len(schema.columns))

	for i, key := range schema.keys {
		cols = append(cols, quoteIdent(key))
		placeholders = append(placeholders, s.placeholder(len(values)+1))
		values = append(values, keyValues[i])
	}
	for _, col := range schema.nonKeyColumns() {
		value, ok := rec.Fields[col.name]
		if !ok {
			continue
		}
		cols = append(cols, quoteIdent(col.name))
		placeholders = append(placeholders, s.placeholder(len(values)+1))
		values = append(values, value)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := tx.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

func (s *Store) updateRow(ctx context.Context, tx *sql.Tx, table string, schema tableSchema, rec gsync.UpsertRecord, rowID int64) error {
	var sets []string
	var values []any
	for _, col := range schema.nonKeyColumns() {
		value, ok := rec.Fields[col.name]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", quoteIdent(col.name), s.placeholder(len(values)+1)))
		values = append(values, value)
	}
	if len(sets) == 0 {
		return nil // key-only record, nothing to update
	}

	values = append(values, rowID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		quoteIdent(table), strings.Join(sets, ", "), s.placeholder(len(values)))
	if _, err := tx.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("update row %d: %w", rowID, err)
	}
	return nil
}
