package storage

import (
	"fmt"
	"strings"
)

// maxIdentLen is the Postgres identifier limit, the tightest of the
// supported backends.
const maxIdentLen = 63

// SanitizeIdent turns a header such as "Contamination (%)" into a lowercase
// identifier made of [a-z0-9_]. A name that ends up empty or starts with a
// digit gets a "c_" prefix.
func SanitizeIdent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "c_" + out
	}
	return truncateIdent(out, maxIdentLen)
}

// SanitizeColumns sanitizes every name and suffixes repeats with _2, _3 ...
// so the result can be used as a column list.
func SanitizeColumns(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, n := range names {
		base := SanitizeIdent(n)
		id := base
		for k := 2; used[id]; k++ {
			suffix := fmt.Sprintf("_%d", k)
			id = truncateIdent(base, maxIdentLen-len(suffix)) + suffix
		}
		used[id] = true
		out[i] = id
	}
	return out
}

// truncateIdent cuts an ASCII identifier to at most n bytes.
func truncateIdent(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
