package session

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FilterEntries returns entries whose title or URL contains query,
// case-insensitively. An empty (or blank) query returns every entry.
func FilterEntries(entries []Entry, query string) []Entry {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return CloneEntries(entries)
	}
	lower := strings.ToLower(trimmed)
	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), lower) || strings.Contains(strings.ToLower(e.URL), lower) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// FuzzyFilterEntries matches query as a subsequence of "title url",
// preserving candidate order.
func FuzzyFilterEntries(entries []Entry, query string) []Entry {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return CloneEntries(entries)
	}
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Title + " " + e.URL
	}
	ranks := fuzzy.RankFindNormalizedFold(trimmed, labels)
	if len(ranks) == 0 {
		return []Entry{}
	}
	matches := make(map[int]struct{}, len(ranks))
	for _, rank := range ranks {
		matches[rank.OriginalIndex] = struct{}{}
	}
	filtered := make([]Entry, 0, len(matches))
	for idx, e := range entries {
		if _, ok := matches[idx]; ok {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
