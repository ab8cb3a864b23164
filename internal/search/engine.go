package search

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/cinevault/api/internal/catalog"
)

const (
	minQueryLen    = 2
	candidateFloor = 200

	// lengthPenaltyDivisor is the tie-break constant favoring shorter
	// titles among equal token-match counts. Tunable, but rankings are
	// compared against it in tests, so change both together.
	lengthPenaltyDivisor = 500.0
)

var tokenSplitRe = regexp.MustCompile(`\W+`)

// CandidateSource produces a loose superset of items matching any token.
type CandidateSource interface {
	SearchCandidates(ctx context.Context, tokens []string, categoryHint string, max int) ([]catalog.Item, error)
}

type Engine struct {
	source CandidateSource
}

func NewEngine(source CandidateSource) *Engine {
	return &Engine{source: source}
}

// Tokenize splits a query on non-alphanumeric runs, lowercases, and drops
// single-character tokens.
func Tokenize(query string) []string {
	var tokens []string
	for _, t := range tokenSplitRe.Split(strings.ToLower(query), -1) {
		if len(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Search returns up to limit items ranked by how many distinct query
// tokens their title contains, with a length penalty breaking ties toward
// shorter titles. Queries under two characters return nothing without
// touching the store; a store failure degrades to an empty result.
func (e *Engine) Search(ctx context.Context, query string, limit int, categoryHint string) []catalog.Item {
	query = strings.TrimSpace(query)
	if len(query) < minQueryLen || limit <= 0 {
		return nil
	}

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	max := candidateFloor
	if limit*5 > max {
		max = limit * 5
	}

	candidates, err := e.source.SearchCandidates(ctx, tokens, strings.ToLower(categoryHint), max)
	if err != nil {
		slog.Warn("search candidate fetch failed", "query", query, "error", err)
		return nil
	}

	type scored struct {
		item  catalog.Item
		score float64
	}

	ranked := make([]scored, 0, len(candidates))
	for _, item := range candidates {
		titleLower := strings.ToLower(item.Title)
		matches := 0
		for _, tok := range tokens {
			if strings.Contains(titleLower, tok) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		ranked = append(ranked, scored{
			item:  item,
			score: float64(matches) - float64(len(titleLower))/lengthPenaltyDivisor,
		})
	}

	// Stable sort keeps the store's retrieval order for exact score ties,
	// so repeated calls over a fixed candidate set rank identically.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]catalog.Item, len(ranked))
	for i, s := range ranked {
		results[i] = s.item
	}
	return results
}
