package station

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/trntxt/trntxt/internal/models"
	"golang.org/x/exp/slices"
)

const codeLength = 3

var (
	nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]`)
	parenthesised   = regexp.MustCompile(`\(.*\)`)
)

// ResultCache memoizes resolver output by normalized query
type ResultCache interface {
	Get(query string) ([]models.Station, bool)
	Add(query string, stations []models.Station)
}

// Resolver ranks catalog stations against free-text input
type Resolver struct {
	catalog *Catalog
	cache   ResultCache
}

var _ StationFinder = (*Resolver)(nil)

// NewResolver creates a resolver over catalog. cache may be nil.
func NewResolver(catalog *Catalog, cache ResultCache) *Resolver {
	return &Resolver{
		catalog: catalog,
		cache:   cache,
	}
}

type candidate struct {
	station    models.Station
	firstIndex int
	longestRun int
	baseLength int
}

// Normalize uppercases input, spells out "&" and drops anything that is not A-Z or 0-9
func Normalize(input string) string {
	s := strings.ToUpper(input)
	s = strings.ReplaceAll(s, "&", "AND")
	return nonAlphanumeric.ReplaceAllString(s, "")
}

// Resolve returns the stations matching query, best first. A three character
// query that is a known CRS code returns only the stations with that code.
func (r *Resolver) Resolve(query string) []models.Station {
	q := Normalize(query)
	if len(q) < codeLength {
		return []models.Station{}
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(q); ok {
			log.Trace().Str("query", q).Msg("Resolve: cache hit")
			return cached
		}
	}

	results := r.resolve(q)
	log.Debug().Str("query", q).Int("matches", len(results)).Msg("Resolved station query")

	if r.cache != nil {
		r.cache.Add(q, results)
	}
	return results
}

// ResolveOne returns the best match for query
func (r *Resolver) ResolveOne(query string) (models.Station, bool) {
	results := r.Resolve(query)
	if len(results) == 0 {
		return models.Station{}, false
	}
	return results[0], true
}

func (r *Resolver) resolve(q string) []models.Station {
	if len(q) == codeLength {
		if matches := r.catalog.ByCode(q); len(matches) > 0 {
			return matches
		}
	}

	var candidates []candidate
	for _, e := range r.catalog.entries {
		if !isSubsequence(e.normalized, q) {
			continue
		}
		candidates = append(candidates, candidate{
			station:    e.station,
			firstIndex: strings.IndexByte(e.normalized, q[0]),
			longestRun: longestPrefixRun(e.normalized, q),
			baseLength: utf8.RuneCountInString(parenthesised.ReplaceAllString(e.station.Name, "")),
		})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if a.firstIndex != b.firstIndex {
			return a.firstIndex - b.firstIndex
		}
		if a.longestRun != b.longestRun {
			return b.longestRun - a.longestRun
		}
		return a.baseLength - b.baseLength
	})

	results := make([]models.Station, len(candidates))
	for i, c := range candidates {
		results[i] = c.station
	}
	return results
}

// isSubsequence reports whether every byte of query appears in name in order,
// each match consuming its position.
func isSubsequence(name, query string) bool {
	pos := 0
	for i := 0; i < len(query); i++ {
		idx := strings.IndexByte(name[pos:], query[i])
		if idx < 0 {
			return false
		}
		pos += idx + 1
	}
	return true
}

// longestPrefixRun is the length of the longest prefix of query found
// contiguously in name.
func longestPrefixRun(name, query string) int {
	for i := len(query); i > 0; i-- {
		if strings.Contains(name, query[:i]) {
			return i
		}
	}
	return 0
}
