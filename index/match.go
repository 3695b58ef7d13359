package index

import (
	"sort"
	"strings"

	"github.com/binspect/symasm/errors"
)

// separator is the only structural delimiter recognised in a demangled
// path. Generic parameters are not special-cased; they are part of the
// component string and must match literally, per spec.
const separator = "::"

// Candidate is a scored match for a fuzzy query.
type Candidate struct {
	Symbol Symbol
	Score  int
}

// scoreBand is the width within which two candidates are considered tied
// for best and therefore ambiguous.
const scoreBand = 2

// Match finds the best symbol(s) for query. disambiguate, when true,
// returns every candidate within the top score band instead of erroring
// on ambiguity — used to print the candidate list for AMBIGUOUS_MATCH.
func (ix *Index) Match(query string, disambiguate bool) ([]Candidate, error) {
	queryComponents := strings.Split(query, separator)

	var candidates []Candidate
	for _, s := range ix.symbols {
		if s.Name == query {
			// exact equality short-circuits the search
			return []Candidate{{Symbol: s, Score: topScore(query)}}, nil
		}
		score, ok := score(s.Name, query, queryComponents)
		if ok {
			candidates = append(candidates, Candidate{Symbol: s, Score: score})
		}
	}

	if len(candidates) == 0 {
		return nil, errors.Errorf(errors.NoMatch, errors.NoCandidate, query)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		li, lj := len(candidates[i].Symbol.Name), len(candidates[j].Symbol.Name)
		if li != lj {
			return li < lj
		}
		return candidates[i].Symbol.Address < candidates[j].Symbol.Address
	})

	if disambiguate {
		return topBand(candidates), nil
	}

	if len(candidates) > 1 && candidates[0].Score-candidates[1].Score < scoreBand {
		return nil, errors.Errorf(errors.AmbiguousMatch, errors.AmbiguousQuery, query)
	}

	return candidates[:1], nil
}

func topBand(candidates []Candidate) []Candidate {
	best := candidates[0].Score
	var out []Candidate
	for _, c := range candidates {
		if best-c.Score < scoreBand {
			out = append(out, c)
		}
	}
	return out
}

// topScore is the score reported for an exact full-path match. Match
// returns that candidate alone, so the value is never ranked against
// score() results.
func topScore(query string) int {
	return 1000 + len(query)
}

// score rates how well a symbol's demangled name matches the query. The
// query's components are matched as a subsequence of the name's
// components, anchored so the last component of each must agree exactly
// — this lets a fragment like "char::len_utf8" match
// "core::char::methods::len_utf8" by skipping the intervening "methods"
// module, rather than requiring the query to be a literal contiguous
// suffix. Scoring components: (a) component-suffix-match length, (b) a
// substring bonus, (c) a length penalty for components skipped over or
// left unmatched ahead of the match. The final identifier component
// compares case-sensitively; the rest of the path compares
// case-insensitively.
func score(name, query string, queryComponents []string) (int, bool) {
	nameComponents := strings.Split(name, separator)

	if len(queryComponents) > len(nameComponents) {
		return 0, false
	}

	last := len(queryComponents) - 1
	if nameComponents[len(nameComponents)-1] != queryComponents[last] {
		return 0, false
	}

	// walk both component lists backwards, greedily consuming a name
	// component whenever it matches the current (unmatched) query
	// component; a name component that doesn't match is simply skipped.
	qi := last - 1
	ni := len(nameComponents) - 2
	for qi >= 0 && ni >= 0 {
		if strings.EqualFold(nameComponents[ni], queryComponents[qi]) {
			qi--
		}
		ni--
	}
	if qi >= 0 {
		// ran out of name components before matching every query component
		return 0, false
	}

	matchStart := ni + 1

	suffixLen := 0
	for _, c := range queryComponents {
		suffixLen += len(c)
	}

	bonus := 0
	if strings.Contains(strings.ToLower(name), strings.ToLower(query)) {
		bonus = 5
	}

	span := len(nameComponents) - matchStart
	skipped := span - len(queryComponents)
	penalty := matchStart + skipped*2

	return suffixLen*10 + bonus - penalty, true
}
