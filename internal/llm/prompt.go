package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/carelog/internal/datetime"
	"github.com/ppiankov/carelog/internal/model"
)

// IncidentTypes is the closed set of incident types the model may return.
var IncidentTypes = []string{
	model.IncidentFall,
	model.IncidentMedicationRefusal,
	model.IncidentMedicationMissed,
	model.IncidentMedicationError,
	model.IncidentAggressiveBehavior,
	model.IncidentVerbalAbuse,
	model.IncidentSelfHarm,
	model.IncidentWandering,
	model.IncidentMedicalEmergency,
	model.IncidentNearMiss,
	model.IncidentEquipmentFailure,
	model.IncidentSafeguardingConcern,
}

// RiskAssessments is the closed set of reviews the model may return.
var RiskAssessments = []string{
	model.ReviewMovingAndHandling,
	model.ReviewMedicationManagement,
	model.ReviewMentalHealth,
	model.ReviewInfectionControl,
	model.ReviewPersonalCare,
	model.ReviewEquipmentSafety,
}

// BuildPrompt renders the extraction prompt for transcript. A non-zero ref
// is embedded so the model can resolve relative times.
func BuildPrompt(transcript string, ref time.Time) string {
	var b strings.Builder

	b.WriteString("You extract structured incident reports from care-home call transcripts.\n")
	b.WriteString("Reply with a single JSON object and nothing else. Keys:\n")
	b.WriteString("- date_time_of_incident: ISO 8601 date-time, or null if not stated\n")
	b.WriteString("- service_user_name: full name of the person the incident happened to, or null\n")
	b.WriteString("- location: where it happened, e.g. \"living room\", or null\n")
	fmt.Fprintf(&b, "- incident_type: one of %s, or null\n", strings.Join(IncidentTypes, " | "))
	b.WriteString("- description: neutral summary in one to three sentences\n")
	b.WriteString("- immediate_actions_taken: actions taken at the time, or null\n")
	b.WriteString("- was_first_aid_administered: boolean, false unless stated\n")
	b.WriteString("- were_emergency_services_contacted: boolean, false unless clearly stated\n")
	b.WriteString("- who_was_notified: people informed, or null\n")
	b.WriteString("- witnesses: witnesses, or null\n")
	b.WriteString("- agreed_next_steps: agreed follow-up, or null\n")
	b.WriteString("- risk_assessment_needed: boolean\n")
	fmt.Fprintf(&b, "- if_yes_which_risk_assessment: one of %s, or null\n", quoteAll(RiskAssessments))
	b.WriteString("- evidence: array of {\"field\": \"<key>\", \"quote\": \"<short verbatim quote>\"}\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- risk_assessment_needed is true when the transcript shows a recurring pattern or a policy trigger.\n")
	fmt.Fprintf(&b, "- Recurring falls (e.g. second or third time this week) need %q.\n", model.ReviewMovingAndHandling)
	b.WriteString("- Use null when unsure. Never invent names or facts.\n")
	if !ref.IsZero() {
		fmt.Fprintf(&b, "- Resolve relative times (\"this morning\", \"2 hours ago\") against %s (UK time).\n",
			ref.In(datetime.London).Format(datetime.Layout))
	}

	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, " | ")
}
