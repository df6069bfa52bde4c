// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

import "fmt"

// FetchError wraps a failure while fetching a page from the source
// feed. Fetch failures abort the whole run: a half-fetched page is
// never partially committed.
type FetchError struct {
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError wraps a destination store failure (upsert or read-back)
// during one entity phase. Write errors are downgraded at the phase
// boundary: the phase's mapping stays partial and downstream phases
// skip the missing entities with warnings.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store table %s: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
