package llm

import (
	"errors"
	"testing"

	"github.com/ppiankov/carelog/internal/model"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON {\"a\":1}```", `{"a":1}`},
		{"```\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"{\"quote\":\"```\"}", "{\"quote\":\"```\"}"},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseResponse_ClampsAndDefaults(t *testing.T) {
	raw := "```json\n" + `{
		"incident_type": "slip",
		"service_user_name": "Greg Jones",
		"location": null,
		"if_yes_which_risk_assessment": "moving and handling risk assessment review",
		"was_first_aid_administered": "yes",
		"were_emergency_services_contacted": "maybe",
		"witnesses": ["Jane", " ", "Tom"],
		"who_was_notified": 5,
		"description": "   ",
		"evidence": [
			{"field": "service_user_name", "quote": "It's Greg Jones"},
			{"field": "location"},
			{"quote": "no field"},
			{"field": 3, "quote": "bad field"},
			"not an object"
		]
	}` + "\n```"

	facts, evidence, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}

	if facts.IncidentType != nil {
		t.Errorf("Expected unknown incident type to be dropped, got %q", *facts.IncidentType)
	}
	if facts.ServiceUserName == nil || *facts.ServiceUserName != "Greg Jones" {
		t.Errorf("Unexpected name %v", facts.ServiceUserName)
	}
	if facts.Location != nil {
		t.Error("Expected null location to be absent")
	}
	if facts.IfYesWhichRiskAssessment == nil || *facts.IfYesWhichRiskAssessment != model.ReviewMovingAndHandling {
		t.Errorf("Unexpected assessment %v", facts.IfYesWhichRiskAssessment)
	}
	if facts.RiskAssessmentNeeded == nil || !*facts.RiskAssessmentNeeded {
		t.Error("Expected risk_assessment_needed to default from the assessment")
	}
	if facts.WasFirstAidAdministered == nil || !*facts.WasFirstAidAdministered {
		t.Error("Expected \"yes\" to coerce to true")
	}
	if facts.WereEmergencyServicesContacted != nil {
		t.Error("Expected unusable boolean to be absent")
	}
	if facts.Witnesses == nil || *facts.Witnesses != "Jane, Tom" {
		t.Errorf("Expected joined witnesses, got %v", facts.Witnesses)
	}
	if facts.WhoWasNotified == nil || *facts.WhoWasNotified != "5" {
		t.Errorf("Expected number coerced to string, got %v", facts.WhoWasNotified)
	}
	if facts.Description != nil {
		t.Error("Expected blank description to be absent")
	}

	if len(evidence) != 1 {
		t.Fatalf("Expected 1 valid evidence item, got %d: %+v", len(evidence), evidence)
	}
	if evidence[0].StartIdx != nil || evidence[0].EndIdx != nil {
		t.Error("Expected no offsets on model evidence")
	}
}

func TestParseResponse_ExplicitRiskFlagKept(t *testing.T) {
	facts, _, err := ParseResponse(`{"incident_type": "fall", "risk_assessment_needed": false,
		"if_yes_which_risk_assessment": "infection control review"}`)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if *facts.RiskAssessmentNeeded {
		t.Error("Expected explicit false to be kept")
	}
	if *facts.IncidentType != model.IncidentFall {
		t.Errorf("Unexpected type %s", *facts.IncidentType)
	}
}

func TestParseResponse_NoAssessmentDefaultsFalse(t *testing.T) {
	facts, _, err := ParseResponse(`{"location": "kitchen"}`)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if facts.RiskAssessmentNeeded == nil || *facts.RiskAssessmentNeeded {
		t.Error("Expected risk_assessment_needed=false default")
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", "Sorry, I cannot help.", ErrParse},
		{"array", `[1, 2]`, ErrParse},
		{"null", `null`, ErrParse},
		{"empty", ``, ErrParse},
		{"empty object", `{}`, ErrEmptyResponse},
		{"all null", `{"incident_type": null, "location": null, "evidence": []}`, ErrEmptyResponse},
		{"only invalid enum", `{"incident_type": "unknown"}`, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts, evidence, err := ParseResponse(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if !facts.IsEmpty() || evidence != nil {
				t.Error("Expected empty facts and evidence on error")
			}
		})
	}
}
