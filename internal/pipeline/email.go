package pipeline

import (
	"strings"

	"github.com/ppiankov/carelog/internal/config"
	"github.com/ppiankov/carelog/internal/model"
)

// RenderEmail renders the draft notification email for form. It also sets
// form.WhoWasNotified to the default recipient when it is still empty.
func RenderEmail(form *model.IncidentForm, n config.Notifications) string {
	to := n.AlwaysNotify
	if to == "" {
		to = config.DefaultAlwaysNotify
	}
	if form.WhoWasNotified == nil || *form.WhoWasNotified == "" {
		form.WhoWasNotified = model.String(to)
	}

	var cc string
	if form.IfYesWhichRiskAssessment != nil {
		cc = n.CCByAssessment[*form.IfYesWhichRiskAssessment]
	}

	lines := []string{"To: " + to}
	if cc != "" {
		lines = append(lines, "CC: "+cc)
	}
	lines = append(lines,
		"Subject: Incident report: "+valueOr(form.TypeOfIncident, "Unknown")+" – "+valueOr(form.ServiceUserName, "Service User"),
		"",
		"Date/Time: "+valueOr(form.DateTimeOfIncident, "Unknown"),
		"Reported At: "+form.ReportedAt,
		"Service User: "+valueOr(form.ServiceUserName, "Unknown"),
		"Location: "+valueOr(form.Location, "Unknown"),
		"Type: "+valueOr(form.TypeOfIncident, "Unknown"),
		"",
		"Description:",
		orString(form.DescriptionOfTheIncident, "-"),
		"",
		"Immediate Actions Taken:",
		valueOr(form.ImmediateActionsTaken, "-"),
		"",
		"First Aid: "+yesNo(form.WasFirstAidAdministered),
		"Emergency Services: "+yesNo(form.WereEmergencyServicesContacted),
		"Who Was Notified: "+valueOr(form.WhoWasNotified, "-"),
		"Witnesses: "+valueOr(form.Witnesses, "-"),
		"",
		"Next Steps:",
		valueOr(form.AgreedNextSteps, "-"),
		"Risk Assessment Needed: "+yesNo(form.RiskAssessmentNeeded),
		"If Yes, Which: "+valueOr(form.IfYesWhichRiskAssessment, "-"),
	)
	return strings.Join(lines, "\n")
}

func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return orString(*v, fallback)
}

func orString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
