// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pedorich-n/geekdo-sync/internal/geekdo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory Store that records the order of calls, so
// tests can assert on write ordering and on what was actually sent.
type memStore struct {
	tables     map[string][]Row
	nextID     RowID
	calls      []string       // "upsert:<table>" / "list:<table>" in call order
	upserted   map[string]int // records received per table, summed over calls
	failUpsert map[string]error
	failList   map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		tables:     map[string][]Row{},
		nextID:     1,
		upserted:   map[string]int{},
		failUpsert: map[string]error{},
		failList:   map[string]error{},
	}
}

// seed inserts a row directly, bypassing the upsert path.
func (m *memStore) seed(table string, fields map[string]any) RowID {
	id := m.nextID
	m.nextID++
	m.tables[table] = append(m.tables[table], Row{ID: id, Fields: fields})
	return id
}

func (m *memStore) List(_ context.Context, table string, opts ListOptions) ([]Row, error) {
	if err := m.failList[table]; err != nil {
		return nil, err
	}
	m.calls = append(m.calls, "list:"+table)

	out := make([]Row, len(m.tables[table]))
	copy(out, m.tables[table])

	if opts.Sort != "" {
		col := opts.Sort
		desc := strings.HasPrefix(col, "-")
		if desc {
			col = col[1:]
		}
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return fieldLess(out[j].Fields[col], out[i].Fields[col])
			}
			return fieldLess(out[i].Fields[col], out[j].Fields[col])
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func fieldLess(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case int64:
		bv, _ := b.(int64)
		return av < bv
	}
	return false
}

func (m *memStore) Upsert(_ context.Context, table string, records []UpsertRecord) error {
	if err := m.failUpsert[table]; err != nil {
		return err
	}
	m.calls = append(m.calls, "upsert:"+table)

	for _, rec := range records {
		m.upserted[table]++
		if idx := m.find(table, rec.Require); idx >= 0 {
			for k, v := range rec.Fields {
				m.tables[table][idx].Fields[k] = v
			}
			continue
		}
		fields := make(map[string]any, len(rec.Require)+len(rec.Fields))
		for k, v := range rec.Require {
			fields[k] = v
		}
		for k, v := range rec.Fields {
			fields[k] = v
		}
		m.tables[table] = append(m.tables[table], Row{ID: m.nextID, Fields: fields})
		m.nextID++
	}
	return nil
}

func (m *memStore) find(table string, require map[string]any) int {
	for i, row := range m.tables[table] {
		match := true
		for k, v := range require {
			if row.Fields[k] != v {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func (m *memStore) callIndex(call string) int {
	for i, c := range m.calls {
		if c == call {
			return i
		}
	}
	return -1
}

// scriptedSource serves a fixed sequence of pages and records which
// pages were requested. Pages beyond the script are served empty.
type scriptedSource struct {
	pages     []*geekdo.PlaysPage
	requested []int
	minDates  []time.Time
	failPage  int
	failErr   error
}

func (s *scriptedSource) Plays(_ context.Context, _ string, page int, minDate time.Time) (*geekdo.PlaysPage, error) {
	s.requested = append(s.requested, page)
	s.minDates = append(s.minDates, minDate)
	if s.failPage != 0 && page == s.failPage {
		return nil, s.failErr
	}
	if page > len(s.pages) {
		return &geekdo.PlaysPage{Page: page}, nil
	}
	return s.pages[page-1], nil
}

func mkPlay(id int64, date string, itemID int64, playerNames ...string) geekdo.Play {
	d, err := time.Parse(geekdo.DateLayout, date)
	if err != nil {
		panic(fmt.Sprintf("bad test date %q: %v", date, err))
	}
	play := geekdo.Play{
		ID:       geekdo.PlayID(id),
		Date:     d,
		Quantity: 1,
		Item: geekdo.Item{
			ID:      geekdo.ItemID(itemID),
			Name:    fmt.Sprintf("Game %d", itemID),
			Subtype: "boardgame",
			Type:    "thing",
		},
	}
	for _, name := range playerNames {
		play.Players = append(play.Players, geekdo.Player{Name: name})
	}
	return play
}

// playRange builds plays with descending ids from hi to lo, mirroring
// the newest-first order of the feed.
func playRange(hi, lo int64, date string, itemID int64) []geekdo.Play {
	plays := make([]geekdo.Play, 0, hi-lo+1)
	for id := hi; id >= lo; id-- {
		plays = append(plays, mkPlay(id, date, itemID))
	}
	return plays
}

func mkPage(pageNum int, plays []geekdo.Play) *geekdo.PlaysPage {
	return &geekdo.PlaysPage{Username: "alice", UserID: 12345, Page: pageNum, Plays: plays}
}
