// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

package sync

import (
	"fmt"
)

// RowFields provides typed access to the loosely-typed field map of a
// destination row. Depending on the backend, numeric values arrive as
// float64 (JSON), int64 (database/sql) or numeric strings, so every
// accessor normalizes across those encodings.
type RowFields struct {
	data map[string]any
}

// Fields wraps a row's field map for typed access.
func Fields(row Row) *RowFields {
	return &RowFields{data: row.Fields}
}

// StrField extracts a nullable string. Returns nil if the field is
// missing, null, or not a string.
func (f *RowFields) StrField(key string) *string {
	if v, ok := f.data[key]; ok && v != nil {
		if s, ok2 := v.(string); ok2 {
			return &s
		}
	}
	return nil
}

// StrFieldRequired extracts a required string.
func (f *RowFields) StrFieldRequired(key string) (string, error) {
	if s := f.StrField(key); s != nil {
		return *s, nil
	}
	return "", fmt.Errorf("required string field %q is missing or invalid", key)
}

// Int64Field extracts a nullable int64. Accepts int64, float64 and
// numeric strings; returns nil when missing, null or unconvertible.
func (f *RowFields) Int64Field(key string) *int64 {
	if v, ok := f.data[key]; ok && v != nil {
		switch t := v.(type) {
		case int64:
			return &t
		case int:
			n := int64(t)
			return &n
		case float64:
			n := int64(t)
			return &n
		case string:
			if t == "" {
				return nil
			}
			var n int64
			if _, err := fmt.Sscan(t, &n); err == nil {
				return &n
			}
		}
	}
	return nil
}

// Int64FieldRequired extracts a required int64.
func (f *RowFields) Int64FieldRequired(key string) (int64, error) {
	if n := f.Int64Field(key); n != nil {
		return *n, nil
	}
	return 0, fmt.Errorf("required int64 field %q is missing or invalid", key)
}

// BoolField extracts a nullable bool. Accepts bool, numeric values
// (0=false) and "true"/"false"/"1"/"0" strings.
func (f *RowFields) BoolField(key string) *bool {
	if v, ok := f.data[key]; ok && v != nil {
		switch t := v.(type) {
		case bool:
			return &t
		case int64:
			b := t != 0
			return &b
		case float64:
			b := t != 0
			return &b
		case string:
			switch t {
			case "1", "true", "TRUE":
				b := true
				return &b
			case "0", "false", "FALSE":
				b := false
				return &b
			}
		}
	}
	return nil
}

// RowIDField extracts a required row reference.
func (f *RowFields) RowIDField(key string) (RowID, error) {
	n, err := f.Int64FieldRequired(key)
	if err != nil {
		return 0, err
	}
	return RowID(n), nil
}
