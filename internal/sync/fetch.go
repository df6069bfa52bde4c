// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/pedorich-n/geekdo-sync/internal/geekdo"
)

// Fetcher pulls new plays from the source feed using overlap
// detection: pagination stops as soon as a page's play ids intersect
// the set of plays already present in the destination, so previously
// synced history is never re-transferred.
type Fetcher struct {
	source   Source
	username string
	logger   *slog.Logger
}

// NewFetcher creates an overlap-bounded fetcher for one user's feed.
func NewFetcher(source Source, username string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, username: username, logger: logger}
}

// FetchNew walks the feed page by page and returns the plays not yet
// present in existing, in original page order. With an empty existing
// set (first-ever sync) no overlap can occur and the entire history is
// fetched. A non-zero minDate is passed through to the source so the
// server prunes already-covered history. Any source error aborts with
// a *FetchError.
func (f *Fetcher) FetchNew(ctx context.Context, existing map[geekdo.PlayID]RowID, minDate time.Time) ([]geekdo.Play, error) {
	var newPlays []geekdo.Play

	f.logger.Info("Starting overlap-bounded fetch",
		"username", f.username, "existing", len(existing), "mindate", formatDate(minDate))

	for page := 1; ; page++ {
		resp, err := f.source.Plays(ctx, f.username, page, minDate)
		if err != nil {
			return nil, &FetchError{Page: page, Err: err}
		}

		if len(resp.Plays) == 0 {
			f.logger.Debug("Empty page, reached end of history", "page", page)
			break
		}

		overlap := 0
		for _, play := range resp.Plays {
			if _, ok := existing[play.ID]; ok {
				overlap++
			}
		}

		if overlap > 0 {
			pageNew := 0
			for _, play := range resp.Plays {
				if _, ok := existing[play.ID]; !ok {
					newPlays = append(newPlays, play)
					pageNew++
				}
			}
			f.logger.Info("Overlap found, stopping pagination",
				"page", page, "overlapping", overlap, "new_on_page", pageNew)
			break
		}

		newPlays = append(newPlays, resp.Plays...)
		f.logger.Debug("Page fully new", "page", page, "plays", len(resp.Plays))

		if len(resp.Plays) < geekdo.PageSize {
			f.logger.Debug("Short page, reached end of history", "page", page, "plays", len(resp.Plays))
			break
		}
	}

	f.logger.Info("Fetch complete", "new_plays", len(newPlays))
	return newPlays, nil
}

func formatDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(geekdo.DateLayout)
}
