package catalog

import (
	"strconv"
	"strings"
)

// notAvailable is the OMDb placeholder for missing values.
const notAvailable = "N/A"

// SearchResult is one entry of a catalog search.
type SearchResult struct {
	ID       string
	Title    string
	Year     int
	ImageRef string
}

// SameAs reports whether both results point at the same catalog item.
// Only the ID takes part in the comparison.
func (r SearchResult) SameAs(o SearchResult) bool {
	return r.ID == o.ID
}

// DetailRecord is the full description of a single item.
type DetailRecord struct {
	ID             string
	Title          string
	Year           int
	RuntimeMinutes int
	Genres         []string
	Directors      []string
	Actors         []string
	Synopsis       string
	ImageRef       string
}

// parseNumber returns the leading integer of s, or -1 when there is none.
// OMDb years for series look like "2008–2013".
func parseNumber(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return -1
	}
	return n
}

// parseList splits a comma-joined OMDb list. "N/A" and blanks yield nil.
func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == notAvailable {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && p != notAvailable {
			out = append(out, p)
		}
	}
	return out
}

// dedupe keeps the first occurrence of every value.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == notAvailable {
		return ""
	}
	return s
}
