// Package contacts matches free-text customer names from order sheets
// against the ERP contact list.
//
// Matching runs a fixed ladder of tiers; the first tier that produces a
// hit wins. Each tier is a pure function over the query and the contact
// list, so tiers are testable in isolation and the ladder order is the
// single source of precedence.
package contacts

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/matta-kelly/local-bi/internal/csvx"
)

// Column names in the contacts export.
const (
	NameCol      = "Name"
	IDCol        = "ID"
	IsCompanyCol = "Is a Company"
)

// Contact is one entry from the ERP contact list. Read-only reference
// data.
type Contact struct {
	ID        string
	Name      string
	IsCompany bool

	normalized string
}

// Tier identifies which matching strategy produced a result.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierNormalized
	TierContains
	TierReverseContains
)

// Match is the outcome of resolving one customer name.
type Match struct {
	ContactID string // empty when no contact matched
	Label     string // human-readable annotation for the output notes
	Tier      Tier
}

// Stats counts match outcomes per tier across a run.
type Stats struct {
	Exact      int
	Normalized int
	Contains   int
	Partial    int
	None       int
}

// Record counts one match outcome.
func (s *Stats) Record(m Match) {
	switch m.Tier {
	case TierExact:
		s.Exact++
	case TierNormalized:
		s.Normalized++
	case TierContains:
		s.Contains++
	case TierReverseContains:
		s.Partial++
	default:
		s.None++
	}
}

// List is a prepared contact list ready for matching.
type List struct {
	contacts []Contact
	names    []string // normalized names, for fuzzy suggestions
}

var (
	punctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeName lowercases, strips punctuation, and collapses runs of
// whitespace. Tier 2 and below compare normalized forms.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = punctRe.ReplaceAllString(name, "")
	name = spaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NewList prepares contacts for matching. Order is preserved: several
// tie-breaks are defined as "first hit in stable order".
func NewList(contacts []Contact) *List {
	l := &List{contacts: make([]Contact, len(contacts))}
	for i, c := range contacts {
		c.Name = strings.TrimSpace(c.Name)
		c.ID = strings.TrimSpace(c.ID)
		c.normalized = NormalizeName(c.Name)
		l.contacts[i] = c
		l.names = append(l.names, c.normalized)
	}
	return l
}

// Load reads the contacts CSV and prepares it for matching.
func Load(path string) (*List, error) {
	t, err := csvx.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}

	contacts := make([]Contact, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		contacts = append(contacts, Contact{
			ID:        t.Cell(i, IDCol),
			Name:      t.Cell(i, NameCol),
			IsCompany: t.Cell(i, IsCompanyCol) == "True",
		})
	}
	return NewList(contacts), nil
}

// Len returns the number of contacts.
func (l *List) Len() int { return len(l.contacts) }

// Companies returns the number of company contacts.
func (l *List) Companies() int {
	n := 0
	for _, c := range l.contacts {
		if c.IsCompany {
			n++
		}
	}
	return n
}

// tierFunc is one matching strategy: returns a Match when it hits.
type tierFunc func(l *List, raw, normalized string) (Match, bool)

// tiers in precedence order. First hit wins.
var tiers = []tierFunc{
	matchExact,
	matchNormalized,
	matchContains,
	matchReverseContains,
}

// Match resolves a customer name to at most one contact ID.
// An empty result is a normal business outcome, not an error.
func (l *List) Match(customerName string) Match {
	if strings.TrimSpace(customerName) == "" {
		return Match{Label: "[No name]", Tier: TierNone}
	}

	normalized := NormalizeName(customerName)
	for _, tier := range tiers {
		if m, ok := tier(l, customerName, normalized); ok {
			return m
		}
	}
	return Match{Label: "[No match]", Tier: TierNone}
}

// matchExact: tier 1, exact string match on the raw name. Companies
// win over individuals when both match.
func matchExact(l *List, raw, _ string) (Match, bool) {
	var hits []Contact
	for _, c := range l.contacts {
		if c.Name == raw {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return Match{}, false
	}
	if c, ok := firstCompany(hits); ok {
		return Match{ContactID: c.ID, Label: "[Exact match, company]", Tier: TierExact}, true
	}
	return Match{ContactID: hits[0].ID, Label: "[Exact match]", Tier: TierExact}, true
}

// matchNormalized: tier 2, equality of normalized forms.
func matchNormalized(l *List, _, normalized string) (Match, bool) {
	var hits []Contact
	for _, c := range l.contacts {
		if c.normalized == normalized {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return Match{}, false
	}
	if c, ok := firstCompany(hits); ok {
		return Match{ContactID: c.ID, Label: "[Normalized match, company]", Tier: TierNormalized}, true
	}
	return Match{ContactID: hits[0].ID, Label: "[Normalized match]", Tier: TierNormalized}, true
}

// matchContains: tier 3, the customer name appears inside a contact
// name. Single hit wins outright. Multiple hits prefer companies; among
// several companies the shortest name is assumed most specific; with no
// companies the first individual wins (arbitrary but deterministic).
func matchContains(l *List, _, normalized string) (Match, bool) {
	if normalized == "" {
		return Match{}, false
	}
	var hits []Contact
	for _, c := range l.contacts {
		if c.normalized != "" && strings.Contains(c.normalized, normalized) {
			hits = append(hits, c)
		}
	}
	switch {
	case len(hits) == 0:
		return Match{}, false
	case len(hits) == 1:
		kind := "individual"
		if hits[0].IsCompany {
			kind = "company"
		}
		return Match{
			ContactID: hits[0].ID,
			Label:     fmt.Sprintf("[Contains match, %s]", kind),
			Tier:      TierContains,
		}, true
	}

	var companies []Contact
	for _, c := range hits {
		if c.IsCompany {
			companies = append(companies, c)
		}
	}
	switch {
	case len(companies) == 1:
		return Match{
			ContactID: companies[0].ID,
			Label:     "[Contains match, company, 1 of many]",
			Tier:      TierContains,
		}, true
	case len(companies) > 1:
		best := companies[0]
		for _, c := range companies[1:] {
			if len(c.Name) < len(best.Name) {
				best = c
			}
		}
		return Match{
			ContactID: best.ID,
			Label:     fmt.Sprintf("[Contains match, company, 1 of %d]", len(companies)),
			Tier:      TierContains,
		}, true
	}
	return Match{
		ContactID: hits[0].ID,
		Label:     fmt.Sprintf("[Contains match, 1 of %d]", len(hits)),
		Tier:      TierContains,
	}, true
}

// matchReverseContains: tier 4, the customer name appears inside a
// contact name. Same predicate as tier 3, which already returned on
// any hit, so this tier never matches against the full list. Kept
// with this direction on purpose. Company preference as in tier 1.
func matchReverseContains(l *List, _, normalized string) (Match, bool) {
	if normalized == "" {
		return Match{}, false
	}
	var hits []Contact
	for _, c := range l.contacts {
		if c.normalized != "" && strings.Contains(c.normalized, normalized) {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return Match{}, false
	}
	if c, ok := firstCompany(hits); ok {
		return Match{
			ContactID: c.ID,
			Label:     fmt.Sprintf("[Partial match, company, 1 of %d]", len(hits)),
			Tier:      TierReverseContains,
		}, true
	}
	return Match{
		ContactID: hits[0].ID,
		Label:     fmt.Sprintf("[Partial match, 1 of %d]", len(hits)),
		Tier:      TierReverseContains,
	}, true
}

func firstCompany(hits []Contact) (Contact, bool) {
	for _, c := range hits {
		if c.IsCompany {
			return c, true
		}
	}
	return Contact{}, false
}

// MatchAll resolves a set of customer names and aggregates per-tier
// counts. Unmatched names are logged individually with fuzzy
// suggestions to help the operator fix the contact list; the
// suggestions never influence the match result.
func (l *List) MatchAll(names []string, logger *slog.Logger) (map[string]Match, Stats) {
	matches := make(map[string]Match, len(names))
	var stats Stats

	for _, name := range names {
		m := l.Match(name)
		matches[name] = m
		stats.Record(m)
	}

	logger.Info("contact match results",
		"exact", stats.Exact,
		"normalized", stats.Normalized,
		"contains", stats.Contains,
		"partial", stats.Partial,
		"unmatched", stats.None,
	)

	if stats.None > 0 {
		unmatched := make([]string, 0, stats.None)
		for _, name := range names {
			if matches[name].ContactID == "" && matches[name].Tier == TierNone {
				unmatched = append(unmatched, name)
			}
		}
		sort.Strings(unmatched)
		for _, name := range unmatched {
			logger.Warn("unmatched customer", "name", name, "suggestions", l.Suggest(name, 3))
		}
	}

	return matches, stats
}

// Suggest returns up to n contact names that fuzzily resemble the given
// customer name, closest first. Advisory only.
func (l *List) Suggest(name string, n int) []string {
	ranks := fuzzy.RankFindNormalizedFold(NormalizeName(name), l.names)
	sort.Sort(ranks)

	var out []string
	seen := make(map[int]bool)
	for _, r := range ranks {
		if seen[r.OriginalIndex] {
			continue
		}
		seen[r.OriginalIndex] = true
		out = append(out, l.contacts[r.OriginalIndex].Name)
		if len(out) == n {
			break
		}
	}
	return out
}
