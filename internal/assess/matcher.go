// Package assess decides which risk-assessment review applies to a
// transcript, using the ordered assessment rules from the incident config.
package assess

import (
	"github.com/ppiankov/carelog/internal/config"
)

// Match is a matched assessment rule.
type Match struct {
	Name  string
	Quote string // matched substring of the input text
	Start int    // byte offsets into the input text
	End   int
}

// Matcher evaluates assessment rules. It holds no state of its own, so one
// Matcher can serve every extractor and concurrent analysis.
type Matcher struct {
	store *config.Store
}

// NewMatcher creates a matcher that reads rules from store on every call,
// so reloaded rules are picked up.
func NewMatcher(store *config.Store) *Matcher {
	return &Matcher{store: store}
}

// Match returns the first rule, in config order, whose incident-type
// allow-list admits incidentType and which has a pattern matching text.
// Within a rule patterns are tried in order. ok is false when nothing
// matches or the config cannot be loaded.
func (m *Matcher) Match(text string, incidentType *string) (Match, bool) {
	cfg, err := m.store.Get()
	if err != nil {
		return Match{}, false
	}
	return m.MatchIn(cfg, text, incidentType)
}

// MatchIn is Match against an already loaded config, for callers that must
// see one config snapshot across several lookups. A nil cfg matches nothing.
func (m *Matcher) MatchIn(cfg *config.IncidentConfig, text string, incidentType *string) (Match, bool) {
	if cfg == nil {
		return Match{}, false
	}
	return MatchRules(cfg.Assessments(), text, incidentType)
}

// MatchRules is Match over an explicit rule list.
func MatchRules(rules []config.AssessmentRule, text string, incidentType *string) (Match, bool) {
	for _, rule := range rules {
		if !rule.AppliesTo(incidentType) {
			continue
		}
		for _, p := range rule.Patterns {
			if loc := p.FindIndex(text); loc != nil {
				return Match{
					Name:  rule.Name,
					Quote: text[loc[0]:loc[1]],
					Start: loc[0],
					End:   loc[1],
				}, true
			}
		}
	}
	return Match{}, false
}
