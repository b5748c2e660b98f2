package model

// Incident types accepted from any extractor.
const (
	IncidentFall                = "fall"
	IncidentMedicationRefusal   = "medication_refusal"
	IncidentMedicationMissed    = "medication_missed"
	IncidentMedicationError     = "medication_error"
	IncidentAggressiveBehavior  = "aggressive_behavior"
	IncidentVerbalAbuse         = "verbal_abuse"
	IncidentSelfHarm            = "self_harm"
	IncidentWandering           = "wandering"
	IncidentMedicalEmergency    = "medical_emergency"
	IncidentNearMiss            = "near_miss"
	IncidentEquipmentFailure    = "equipment_failure"
	IncidentSafeguardingConcern = "safeguarding_concern"
)

// Facts is the raw output of one extractor, before normalization.
// A nil field means the extractor did not produce a value for it.
type Facts struct {
	IncidentType                   *string `json:"incident_type,omitempty"`
	ServiceUserName                *string `json:"service_user_name,omitempty"`
	Location                       *string `json:"location,omitempty"`
	Description                    *string `json:"description,omitempty"`
	ImmediateActionsTaken          *string `json:"immediate_actions_taken,omitempty"`
	WasFirstAidAdministered        *bool   `json:"was_first_aid_administered,omitempty"`
	WereEmergencyServicesContacted *bool   `json:"were_emergency_services_contacted,omitempty"`
	WhoWasNotified                 *string `json:"who_was_notified,omitempty"`
	Witnesses                      *string `json:"witnesses,omitempty"`
	AgreedNextSteps                *string `json:"agreed_next_steps,omitempty"`
	RiskAssessmentNeeded           *bool   `json:"risk_assessment_needed,omitempty"`
	IfYesWhichRiskAssessment       *string `json:"if_yes_which_risk_assessment,omitempty"`
	DateTimeOfIncident             *string `json:"date_time_of_incident,omitempty"`
}

// IsEmpty reports whether no field was produced at all.
func (f Facts) IsEmpty() bool {
	return f.IncidentType == nil &&
		f.ServiceUserName == nil &&
		f.Location == nil &&
		f.Description == nil &&
		f.ImmediateActionsTaken == nil &&
		f.WasFirstAidAdministered == nil &&
		f.WereEmergencyServicesContacted == nil &&
		f.WhoWasNotified == nil &&
		f.Witnesses == nil &&
		f.AgreedNextSteps == nil &&
		f.RiskAssessmentNeeded == nil &&
		f.IfYesWhichRiskAssessment == nil &&
		f.DateTimeOfIncident == nil
}

// Evidence is a transcript excerpt supporting one extracted field.
// Offsets are character (rune) offsets into the original transcript,
// nil when the quote could not be located.
type Evidence struct {
	Field    string `json:"field"`
	Quote    string `json:"quote"`
	StartIdx *int   `json:"start_idx"`
	EndIdx   *int   `json:"end_idx"`
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i.
func Int(i int) *int { return &i }

// Risk-assessment reviews accepted from the model.
const (
	ReviewMovingAndHandling    = "moving and handling risk assessment review"
	ReviewMedicationManagement = "medication management review"
	ReviewMentalHealth         = "mental health/wellbeing review"
	ReviewInfectionControl     = "infection control review"
	ReviewPersonalCare         = "personal care & dignity plan review"
	ReviewEquipmentSafety      = "moving & handling / equipment safety review"
)
