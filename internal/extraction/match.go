package extraction

import (
	"regexp"
	"strings"

	"github.com/mateo/contract-intake/internal/types"
)

// MatchState tags the result of running a field matcher.
type MatchState int

const (
	// MatchNotFound means no candidate was produced for the field.
	MatchNotFound MatchState = iota
	// MatchFound means exactly one winning candidate was resolved.
	MatchFound
	// MatchAmbiguous means multiple equally confident, conflicting candidates
	// exist and no deterministic winner could be chosen.
	MatchAmbiguous
)

// Match is the tagged result of a field matcher: Found carries a value and a
// confidence; NotFound and Ambiguous carry neither.
type Match struct {
	State      MatchState
	Value      string
	Confidence float64
	Page       int
	Block      int
}

// candidate is one potential value for a field before conflict resolution.
type candidate struct {
	value      string
	confidence float64
	page       int
	block      int
}

// resolve picks the winning candidate: highest confidence first, ties broken
// by earliest page, then earliest block. Two candidates with equal confidence
// and position rank but different values make the field ambiguous.
func resolve(cands []candidate) Match {
	if len(cands) == 0 {
		return Match{State: MatchNotFound}
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if better(c, best) {
			best = c
		}
	}

	// A conflicting candidate with the same confidence on the same page is
	// unresolvable: refuse to guess.
	for _, c := range cands {
		if c.value != best.value && c.confidence == best.confidence && c.page == best.page {
			return Match{State: MatchAmbiguous}
		}
	}

	return Match{
		State:      MatchFound,
		Value:      best.value,
		Confidence: best.confidence,
		Page:       best.page,
		Block:      best.block,
	}
}

func better(a, b candidate) bool {
	if a.confidence != b.confidence {
		return a.confidence > b.confidence
	}
	if a.page != b.page {
		return a.page < b.page
	}
	return a.block < b.block
}

// labelMatcher extracts a value following a labelled anchor, e.g.
// "Account Name: Acme Corp" or a table row "| Account Name | Acme Corp |".
type labelMatcher struct {
	field      string
	labels     []*regexp.Regexp
	confidence float64
}

// newLabelMatcher compiles the given label patterns. Each pattern must have
// one capture group for the value.
func newLabelMatcher(field string, confidence float64, patterns ...string) *labelMatcher {
	m := &labelMatcher{field: field, confidence: confidence}
	for _, p := range patterns {
		m.labels = append(m.labels, regexp.MustCompile(p))
	}
	return m
}

// match scans every block and resolves the candidates deterministically.
func (m *labelMatcher) match(st *types.StructuredText) Match {
	var cands []candidate
	for _, b := range st.AllBlocks() {
		for _, re := range m.labels {
			groups := re.FindStringSubmatch(b.Text)
			if groups == nil {
				continue
			}
			value := cleanCell(groups[1])
			if value == "" || strings.EqualFold(value, "NA") {
				continue
			}
			conf := m.confidence
			if b.Kind == types.BlockParagraph {
				// Labelled values inside free-running prose are weaker
				// evidence than table rows or dedicated lines.
				conf -= 0.1
			}
			cands = append(cands, candidate{value: value, confidence: conf, page: b.Page, block: b.Index})
			break
		}
	}
	return resolve(cands)
}

// cleanCell normalizes whitespace and strips trailing table pipes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "|")
	return strings.Join(strings.Fields(s), " ")
}
