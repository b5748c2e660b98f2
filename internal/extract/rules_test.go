package extract

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ppiankov/carelog/internal/config"
	"github.com/ppiankov/carelog/internal/model"
)

func shippedExtractor(t *testing.T) *RuleExtractor {
	t.Helper()
	store := config.NewStore(filepath.Join("..", "..", "config", "incident_patterns.yml"), nil)
	if _, err := store.Get(); err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	return NewRuleExtractor(store, nil, nil)
}

func findEvidence(evidence []model.Evidence, field string) *model.Evidence {
	for i := range evidence {
		if evidence[i].Field == field {
			return &evidence[i]
		}
	}
	return nil
}

func TestRuleExtractor_RecurringFall(t *testing.T) {
	text := "It's Greg Jones, he fell in the living room, second time this week."
	facts, evidence := shippedExtractor(t).Extract(text)

	checks := map[string]struct {
		got  *string
		want string
	}{
		"service_user_name":            {facts.ServiceUserName, "Greg Jones"},
		"incident_type":                {facts.IncidentType, "fall"},
		"location":                     {facts.Location, "living room"},
		"if_yes_which_risk_assessment": {facts.IfYesWhichRiskAssessment, model.ReviewMovingAndHandling},
		"who_was_notified":             {facts.WhoWasNotified, FallNotificationHint},
		"description":                  {facts.Description, text},
	}
	for field, c := range checks {
		if c.got == nil || *c.got != c.want {
			t.Errorf("%s: expected %q, got %v", field, c.want, c.got)
		}
	}
	if facts.RiskAssessmentNeeded == nil || !*facts.RiskAssessmentNeeded {
		t.Error("expected risk_assessment_needed=true")
	}
	if *facts.WereEmergencyServicesContacted || *facts.WasFirstAidAdministered {
		t.Error("expected first aid and emergency services to default false")
	}

	name := findEvidence(evidence, "service_user_name")
	if name == nil || name.Quote != "It's Greg Jones" || *name.StartIdx != 5 || *name.EndIdx != 15 {
		t.Errorf("unexpected name evidence: %+v", name)
	}
	typ := findEvidence(evidence, "incident_type")
	if typ == nil || typ.Quote != "fell" || *typ.StartIdx != 20 || *typ.EndIdx != 24 {
		t.Errorf("unexpected incident type evidence: %+v", typ)
	}
	loc := findEvidence(evidence, "location")
	if loc == nil || loc.Quote != "living room" || *loc.StartIdx != 32 {
		t.Errorf("unexpected location evidence: %+v", loc)
	}
	ra := findEvidence(evidence, "risk_assessment_needed")
	if ra == nil || ra.Quote != "second time this week" || ra.StartIdx == nil {
		t.Errorf("unexpected risk assessment evidence: %+v", ra)
	}
}

func TestRuleExtractor_EmergencyKeywords(t *testing.T) {
	ex := shippedExtractor(t)
	for _, text := range []string{
		"We called 999 straight away.",
		"The Ambulance arrived at ten.",
		"Paramedic checked her over.",
		"emergency services were called",
	} {
		facts, _ := ex.Extract(text)
		if !*facts.WereEmergencyServicesContacted {
			t.Errorf("%q: expected emergency services flag", text)
		}
	}

	facts, _ := ex.Extract("She had a small cut and it was bleeding, no broken bones.")
	if *facts.WasFirstAidAdministered {
		t.Error("expected first aid to stay false")
	}
	if *facts.WereEmergencyServicesContacted {
		t.Error("expected no emergency flag without keywords")
	}
}

func TestRuleExtractor_NoMatches(t *testing.T) {
	facts, evidence := shippedExtractor(t).Extract("  Just checking in about the rota.  ")
	if facts.IncidentType != nil || facts.Location != nil || facts.ServiceUserName != nil {
		t.Errorf("expected no config-driven facts, got %+v", facts)
	}
	if *facts.Description != "Just checking in about the rota." {
		t.Errorf("expected trimmed description, got %q", *facts.Description)
	}
	if facts.WhoWasNotified != nil {
		t.Error("expected no notification hint for non-fall")
	}
	if len(evidence) != 0 {
		t.Errorf("expected no evidence, got %+v", evidence)
	}
}

func TestRuleExtractor_Deterministic(t *testing.T) {
	ex := shippedExtractor(t)
	text := "It's Mary Smith, she slipped in the bathroom again and hit her head."
	f1, e1 := ex.Extract(text)
	f2, e2 := ex.Extract(text)
	if !reflect.DeepEqual(f1, f2) || !reflect.DeepEqual(e1, e2) {
		t.Error("expected identical output across calls")
	}
}

func TestRuleExtractor_TypeOrderFromConfig(t *testing.T) {
	doc := `
patterns:
  wandering: ['left the building']
  fall: ['fell']
locations: [garden]
`
	cfg, err := config.Parse([]byte(doc), "t.yml", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ex := NewRuleExtractor(config.NewStaticStore(cfg), nil, nil)
	facts, _ := ex.Extract("He fell after he left the building, in the Garden.")
	if facts.IncidentType == nil || *facts.IncidentType != "wandering" {
		t.Errorf("expected first configured type to win, got %v", facts.IncidentType)
	}
	if facts.Location == nil || *facts.Location != "garden" {
		t.Errorf("expected lowercased configured location, got %v", facts.Location)
	}
	if facts.WhoWasNotified != nil {
		t.Error("expected no fall hint for wandering")
	}
}

func TestRuleExtractor_MissingConfig(t *testing.T) {
	store := config.NewStore(filepath.Join(t.TempDir(), "missing.yml"), nil)
	facts, _ := NewRuleExtractor(store, nil, nil).Extract("It's Ann Lee, she fell.")
	if facts.ServiceUserName == nil || *facts.ServiceUserName != "Ann Lee" {
		t.Errorf("expected name extraction without config, got %v", facts.ServiceUserName)
	}
	if facts.IncidentType != nil {
		t.Error("expected no incident type without config")
	}
}

func TestRuleExtractor_ExtractWithUsesSnapshot(t *testing.T) {
	stored, err := config.Parse([]byte(`
patterns:
  fall: ['fell']
assessments:
  - name: stored review
    patterns: ['again']
`), "stored.yml", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	snapshot, err := config.Parse([]byte(`
patterns:
  wandering: ['fell']
assessments:
  - name: snapshot review
    patterns: ['again']
`), "snapshot.yml", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ex := NewRuleExtractor(config.NewStaticStore(stored), nil, nil)
	facts, _ := ex.ExtractWith(snapshot, "He fell again.")
	if facts.IncidentType == nil || *facts.IncidentType != "wandering" {
		t.Errorf("expected type from the snapshot, got %v", facts.IncidentType)
	}
	if facts.IfYesWhichRiskAssessment == nil || *facts.IfYesWhichRiskAssessment != "snapshot review" {
		t.Errorf("expected assessment from the snapshot, got %v", facts.IfYesWhichRiskAssessment)
	}

	facts, _ = ex.ExtractWith(nil, "He fell again.")
	if facts.IncidentType != nil || facts.IfYesWhichRiskAssessment != nil {
		t.Errorf("expected no config-driven facts without a config, got %+v", facts)
	}
}
