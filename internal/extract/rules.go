package extract

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/carelog/internal/assess"
	"github.com/ppiankov/carelog/internal/config"
	"github.com/ppiankov/carelog/internal/logging"
	"github.com/ppiankov/carelog/internal/model"
)

// FallNotificationHint is the who_was_notified value set for falls.
const FallNotificationHint = "Supervisor (mandatory); CC Risk Assessor if recurring falls"

var (
	// "it's Greg Jones", first and last name capitalized
	namePattern = regexp.MustCompile(`\b(?i:it)['’]s\s+([A-Z][a-z]+)\.?\s+([A-Z][a-z]+)\b`)

	emergencyPattern = regexp.MustCompile(`(?i)\b(999|ambulance|emergency services|paramedic)\b`)
)

// RuleExtractor extracts incident facts with regexes and the configured
// incident patterns. It never fails: fields it cannot determine are left
// at their defaults.
type RuleExtractor struct {
	store   *config.Store
	matcher *assess.Matcher
	logger  logrus.FieldLogger
}

// NewRuleExtractor creates a rule extractor. A nil matcher is built from store.
func NewRuleExtractor(store *config.Store, matcher *assess.Matcher, logger logrus.FieldLogger) *RuleExtractor {
	if matcher == nil {
		matcher = assess.NewMatcher(store)
	}
	return &RuleExtractor{
		store:   store,
		matcher: matcher,
		logger:  logging.OrDiscard(logger),
	}
}

// Extract returns facts and evidence for text using the store's current
// config. The same text and config always produce the same output.
func (e *RuleExtractor) Extract(text string) (model.Facts, []model.Evidence) {
	cfg, err := e.store.Get()
	if err != nil {
		e.logger.WithError(err).Warn("rules: incident config unavailable, skipping config-driven fields")
	}
	return e.ExtractWith(cfg, text)
}

// ExtractWith is Extract against an explicit config snapshot. A nil cfg
// leaves the config-driven fields unset.
func (e *RuleExtractor) ExtractWith(cfg *config.IncidentConfig, text string) (model.Facts, []model.Evidence) {
	facts := model.Facts{
		Description:                    model.String(strings.TrimSpace(text)),
		WasFirstAidAdministered:        model.Bool(false),
		WereEmergencyServicesContacted: model.Bool(false),
		RiskAssessmentNeeded:           model.Bool(false),
	}
	var evidence []model.Evidence

	// Service user name
	if m := namePattern.FindStringSubmatchIndex(text); m != nil {
		facts.ServiceUserName = model.String(text[m[2]:m[3]] + " " + text[m[4]:m[5]])
		evidence = append(evidence, spanEvidence("service_user_name", text, text[m[0]:m[1]], m[2], m[5]))
	}

	if cfg != nil {
		// Incident type: first type, in file order, with any matching pattern
	types:
		for _, tp := range cfg.Patterns() {
			for _, p := range tp.Patterns {
				if loc := p.FindIndex(text); loc != nil {
					facts.IncidentType = model.String(tp.Type)
					evidence = append(evidence, spanEvidence("incident_type", text, text[loc[0]:loc[1]], loc[0], loc[1]))
					break types
				}
			}
		}

		// Location: first configured location found as a substring
		for _, loc := range cfg.Locations() {
			if b := locateBytes(text, loc); b != nil {
				facts.Location = model.String(loc)
				evidence = append(evidence, spanEvidence("location", text, text[b[0]:b[1]], b[0], b[1]))
				break
			}
		}
	}

	// First aid stays false: injury words alone do not show it was given.
	if emergencyPattern.MatchString(text) {
		facts.WereEmergencyServicesContacted = model.Bool(true)
	}

	if m, ok := e.matcher.MatchIn(cfg, text, facts.IncidentType); ok {
		facts.RiskAssessmentNeeded = model.Bool(true)
		facts.IfYesWhichRiskAssessment = model.String(m.Name)
		if m.Quote != "" {
			ev := model.Evidence{Field: "risk_assessment_needed", Quote: m.Quote}
			if start, end, found := Locate(text, m.Quote); found {
				ev.StartIdx, ev.EndIdx = model.Int(start), model.Int(end)
			}
			evidence = append(evidence, ev)
		}
	}

	if facts.IncidentType != nil && *facts.IncidentType == model.IncidentFall {
		facts.WhoWasNotified = model.String(FallNotificationHint)
	}

	return facts, evidence
}

// spanEvidence builds evidence with rune offsets from byte offsets.
func spanEvidence(field, text, quote string, startByte, endByte int) model.Evidence {
	return model.Evidence{
		Field:    field,
		Quote:    quote,
		StartIdx: model.Int(runeOffset(text, startByte)),
		EndIdx:   model.Int(runeOffset(text, endByte)),
	}
}
