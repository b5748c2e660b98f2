package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/carelog/internal/model"
)

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("```\\s*$")
)

// StripFences removes a Markdown code fence wrapped around a reply.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseResponse decodes a model reply into facts and evidence. Values
// outside the allowed incident types or reviews are dropped, loosely typed
// values are coerced, and evidence offsets are left unset. A reply with no
// usable fact at all returns ErrEmptyResponse.
func ParseResponse(raw string) (model.Facts, []model.Evidence, error) {
	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(StripFences(raw)), &data); err != nil {
		return model.Facts{}, nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if data == nil {
		return model.Facts{}, nil, fmt.Errorf("%w: reply is null", ErrParse)
	}

	facts := model.Facts{
		DateTimeOfIncident:             stringField(data, "date_time_of_incident"),
		ServiceUserName:                stringField(data, "service_user_name"),
		Location:                       stringField(data, "location"),
		IncidentType:                   oneOf(stringField(data, "incident_type"), IncidentTypes),
		Description:                    stringField(data, "description"),
		ImmediateActionsTaken:          stringField(data, "immediate_actions_taken"),
		WasFirstAidAdministered:        boolField(data, "was_first_aid_administered"),
		WereEmergencyServicesContacted: boolField(data, "were_emergency_services_contacted"),
		WhoWasNotified:                 stringField(data, "who_was_notified"),
		Witnesses:                      stringField(data, "witnesses"),
		AgreedNextSteps:                stringField(data, "agreed_next_steps"),
		RiskAssessmentNeeded:           boolField(data, "risk_assessment_needed"),
		IfYesWhichRiskAssessment:       oneOf(stringField(data, "if_yes_which_risk_assessment"), RiskAssessments),
	}
	if facts.IsEmpty() {
		return model.Facts{}, nil, ErrEmptyResponse
	}
	if _, ok := data["risk_assessment_needed"]; !ok {
		facts.RiskAssessmentNeeded = model.Bool(facts.IfYesWhichRiskAssessment != nil)
	}

	return facts, parseEvidence(data["evidence"]), nil
}

func parseEvidence(raw json.RawMessage) []model.Evidence {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	var out []model.Evidence
	for _, item := range items {
		var obj map[string]any
		if json.Unmarshal(item, &obj) != nil {
			continue
		}
		field, ok := obj["field"].(string)
		if !ok {
			continue
		}
		quote, ok := obj["quote"].(string)
		if !ok {
			continue
		}
		out = append(out, model.Evidence{Field: field, Quote: quote})
	}
	return out
}

// stringField accepts strings, numbers, booleans and lists of strings.
// Empty or unusable values are absent.
func stringField(data map[string]json.RawMessage, key string) *string {
	raw, ok := data[key]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	case []any:
		var parts []string
		for _, item := range x {
			if p, ok := item.(string); ok && strings.TrimSpace(p) != "" {
				parts = append(parts, strings.TrimSpace(p))
			}
		}
		s = strings.Join(parts, ", ")
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// boolField accepts booleans and yes/no/true/false strings.
func boolField(data map[string]json.RawMessage, key string) *bool {
	raw, ok := data[key]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	switch x := v.(type) {
	case bool:
		return &x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y":
			return model.Bool(true)
		case "false", "no", "n":
			return model.Bool(false)
		}
	}
	return nil
}

func oneOf(v *string, allowed []string) *string {
	if v == nil {
		return nil
	}
	for _, a := range allowed {
		if *v == a {
			return v
		}
	}
	return nil
}
