package model

// Extraction sources reported in AnalysisResult.ExtractionSource.
const (
	SourceLLM      = "llm"
	SourceRules    = "rules"
	SourceLLMEmpty = "llm_empty"
)

// SourceMode selects which extractors an analysis may use.
type SourceMode string

const (
	SourceAuto      SourceMode = ""      // LLM first, rules on failure
	SourceLLMOnly   SourceMode = "llm"   // no rules fallback
	SourceRulesOnly SourceMode = "rules" // never call the model
)

// IncidentForm is the canonical incident report. Every key is always
// serialized, unset values as null.
type IncidentForm struct {
	DateTimeOfIncident             *string `json:"date_time_of_incident"`
	ReportedAt                     string  `json:"reported_at"`
	ServiceUserName                *string `json:"service_user_name"`
	Location                       *string `json:"location"`
	TypeOfIncident                 *string `json:"type_of_incident"`
	DescriptionOfTheIncident       string  `json:"description_of_the_incident"`
	ImmediateActionsTaken          *string `json:"immediate_actions_taken"`
	WasFirstAidAdministered        bool    `json:"was_first_aid_administered"`
	WereEmergencyServicesContacted bool    `json:"were_emergency_services_contacted"`
	WhoWasNotified                 *string `json:"who_was_notified"`
	Witnesses                      *string `json:"witnesses"`
	AgreedNextSteps                *string `json:"agreed_next_steps"`
	RiskAssessmentNeeded           bool    `json:"risk_assessment_needed"`
	IfYesWhichRiskAssessment       *string `json:"if_yes_which_risk_assessment"`
}

// NewIncidentForm returns the fixed-default template stamped with reportedAt.
func NewIncidentForm(reportedAt string) *IncidentForm {
	return &IncidentForm{ReportedAt: reportedAt}
}

// Apply overwrites every form field for which facts carry a value.
// ReportedAt is never touched.
func (f *IncidentForm) Apply(facts Facts) {
	if facts.DateTimeOfIncident != nil {
		f.DateTimeOfIncident = facts.DateTimeOfIncident
	}
	if facts.ServiceUserName != nil {
		f.ServiceUserName = facts.ServiceUserName
	}
	if facts.Location != nil {
		f.Location = facts.Location
	}
	if facts.IncidentType != nil {
		f.TypeOfIncident = facts.IncidentType
	}
	if facts.Description != nil {
		f.DescriptionOfTheIncident = *facts.Description
	}
	if facts.ImmediateActionsTaken != nil {
		f.ImmediateActionsTaken = facts.ImmediateActionsTaken
	}
	if facts.WasFirstAidAdministered != nil {
		f.WasFirstAidAdministered = *facts.WasFirstAidAdministered
	}
	if facts.WereEmergencyServicesContacted != nil {
		f.WereEmergencyServicesContacted = *facts.WereEmergencyServicesContacted
	}
	if facts.WhoWasNotified != nil {
		f.WhoWasNotified = facts.WhoWasNotified
	}
	if facts.Witnesses != nil {
		f.Witnesses = facts.Witnesses
	}
	if facts.AgreedNextSteps != nil {
		f.AgreedNextSteps = facts.AgreedNextSteps
	}
	if facts.RiskAssessmentNeeded != nil {
		f.RiskAssessmentNeeded = *facts.RiskAssessmentNeeded
	}
	if facts.IfYesWhichRiskAssessment != nil {
		f.IfYesWhichRiskAssessment = facts.IfYesWhichRiskAssessment
	}
}

// AppendAction adds an entry to ImmediateActionsTaken, joined with " | ".
func (f *IncidentForm) AppendAction(action string) {
	if f.ImmediateActionsTaken != nil && *f.ImmediateActionsTaken != "" {
		joined := *f.ImmediateActionsTaken + " | " + action
		f.ImmediateActionsTaken = &joined
		return
	}
	f.ImmediateActionsTaken = String(action)
}

// AnalysisResult is the response of one "analyze transcript" call.
type AnalysisResult struct {
	ExtractionSource string        `json:"extraction_source"`
	IncidentForm     *IncidentForm `json:"incident_form"`
	Evidence         []Evidence    `json:"evidence"`
	DraftEmail       string        `json:"draft_email"`
}

// Diagnostic reports the state of the model integration.
type Diagnostic struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	EnvKeyPresent    bool   `json:"env_key_present"`
	ClientOK         bool   `json:"client_ok"`
	ClientError      string `json:"client_error,omitempty"`
	TestCallSkipped  bool   `json:"test_call_skipped,omitempty"`
	TestCallOK       bool   `json:"test_call_ok"`
	TestCallError    string `json:"test_call_error,omitempty"`
	RawFirstResponse string `json:"raw_first_token,omitempty"`
}
