package registry

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes, drops combining marks and recomposes. Transformers
// keep state, so each call builds its own chain.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// RemoveDiacritics returns s without combining marks ("Jiří" -> "Jiri").
// Input the transformer rejects is returned unchanged.
func RemoveDiacritics(s string) string {
	stripped, _, err := transform.String(stripMarks(), s)
	if err != nil {
		return s
	}
	return stripped
}

// NormalizeName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes).
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// Search returns identities whose display name or external reference contains query,
// compared after NormalizeName. An empty query matches everything. Results are ordered by id.
func Search(snapshot map[int]Identity, query string) []Identity {
	q := NormalizeName(query)
	all := Sorted(snapshot)
	if q == "" {
		return all
	}
	var out []Identity
	for _, identity := range all {
		if strings.Contains(NormalizeName(identity.DisplayName), q) ||
			strings.Contains(NormalizeName(identity.ExternalReference), q) {
			out = append(out, identity)
		}
	}
	return out
}
