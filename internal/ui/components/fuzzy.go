// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"slices"
	"strings"
	"unicode"
)

// =============================================================================
// FUZZY MATCHING
// =============================================================================

// FuzzyMatch reports whether every rune of query appears in target in
// order, ignoring case, and scores the match. Consecutive runes, word
// starts and the start of target score higher; longer targets score lower.
//
//   - "rl" matches "Rust lifetimes" (two word starts)
//   - "gch" matches "Go channels"
//   - "xyz" does not match "Go channels"
func FuzzyMatch(query, target string) (score int, matched bool) {
	if query == "" {
		return 0, true
	}

	q := []rune(strings.ToLower(query))
	t := []rune(strings.ToLower(target))
	if len(q) > len(t) {
		return 0, false
	}

	qi, last := 0, -1
	for ti := 0; ti < len(t) && qi < len(q); ti++ {
		if t[ti] != q[qi] {
			continue
		}
		points := 1
		if last == ti-1 {
			points += 5
		}
		if ti == 0 {
			points += 10
		}
		if isWordStart(t, ti) {
			points += 7
		}
		score += points
		last = ti
		qi++
	}

	if qi != len(q) {
		return 0, false
	}
	return score - len(t)/4, true
}

// isWordStart is true after a separator or at a camelCase boundary.
func isWordStart(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	if pos >= len(runes) {
		return false
	}
	switch prev := runes[pos-1]; {
	case prev == ' ' || prev == '/' || prev == '-' || prev == '_':
		return true
	case unicode.IsLower(prev) && unicode.IsUpper(runes[pos]):
		return true
	}
	return false
}

// FuzzyRank returns the items whose key matches query, best first. Ties
// keep their input order. An empty query returns items unchanged.
func FuzzyRank[T any](query string, items []T, key func(T) string) []T {
	if strings.TrimSpace(query) == "" {
		return items
	}

	type scored struct {
		item  T
		score int
	}
	var matches []scored
	for _, item := range items {
		if s, ok := FuzzyMatch(query, key(item)); ok {
			matches = append(matches, scored{item, s})
		}
	}
	slices.SortStableFunc(matches, func(a, b scored) int {
		return b.score - a.score
	})

	out := make([]T, len(matches))
	for i, m := range matches {
		out[i] = m.item
	}
	return out
}
