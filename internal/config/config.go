// Package config loads the declarative incident configuration: incident-type
// patterns, known locations, assessment rules and notification policy.
package config

import (
	"errors"
	"fmt"
	"regexp"
)

// DefaultAlwaysNotify is the recipient used when notifications.always_notify
// is not configured.
const DefaultAlwaysNotify = "Supervisor"

var (
	// ErrNotFound is returned when the config file does not exist
	ErrNotFound = errors.New("incident config not found")

	// ErrInvalidStructure is returned when the top-level shape is wrong
	ErrInvalidStructure = errors.New("invalid incident config structure")
)

// ConfigError is a fatal incident-config load failure.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("incident config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Pattern is a configured regular expression, compiled case-insensitive.
type Pattern struct {
	Source string
	re     *regexp.Regexp
}

// CompilePattern compiles src case-insensitively.
func CompilePattern(src string) (Pattern, error) {
	re, err := regexp.Compile("(?i)" + src)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{Source: src, re: re}, nil
}

// FindIndex returns the byte span of the first match in text, or nil.
func (p Pattern) FindIndex(text string) []int {
	if p.re == nil {
		return nil
	}
	return p.re.FindStringIndex(text)
}

// MatchString reports whether text contains a match.
func (p Pattern) MatchString(text string) bool {
	return p.re != nil && p.re.MatchString(text)
}

// TypePatterns holds the ordered patterns for one incident type.
type TypePatterns struct {
	Type     string
	Patterns []Pattern
}

// AssessmentRule maps transcript patterns to a named risk-assessment review.
// A nil IncidentTypes applies the rule to every incident type.
type AssessmentRule struct {
	Name          string
	IncidentTypes []string
	Patterns      []Pattern
}

// AppliesTo reports whether the rule's incident-type allow-list admits t.
// A nil incidentType only passes rules without an allow-list.
func (r AssessmentRule) AppliesTo(incidentType *string) bool {
	if len(r.IncidentTypes) == 0 {
		return true
	}
	if incidentType == nil {
		return false
	}
	for _, t := range r.IncidentTypes {
		if t == *incidentType {
			return true
		}
	}
	return false
}

// PolicyTriggers are global patterns that mandate an advisory action.
type PolicyTriggers struct {
	ContactGPIf []Pattern
	Call999If   []Pattern
}

// Notifications is the notification policy block.
type Notifications struct {
	AlwaysNotify   string
	CCByAssessment map[string]string
	Triggers       PolicyTriggers
}

// SkippedPattern records a config regex that failed to compile.
type SkippedPattern struct {
	Section string
	Source  string
	Err     string
}

// IncidentConfig is the loaded, immutable incident configuration. Slices and
// maps returned by its accessors are shared and must not be modified.
type IncidentConfig struct {
	path          string
	patterns      []TypePatterns
	locations     []string
	assessments   []AssessmentRule
	notifications Notifications
	skipped       []SkippedPattern
}

// Path returns the file the config was loaded from.
func (c *IncidentConfig) Path() string { return c.path }

// Patterns returns incident-type patterns in file order.
func (c *IncidentConfig) Patterns() []TypePatterns { return c.patterns }

// Locations returns the lowercased known locations in file order.
func (c *IncidentConfig) Locations() []string { return c.locations }

// Assessments returns the assessment rules in file order.
func (c *IncidentConfig) Assessments() []AssessmentRule { return c.assessments }

// Notifications returns the notification policy.
func (c *IncidentConfig) Notifications() Notifications { return c.notifications }

// PolicyTriggers returns the global contact-GP / call-999 patterns.
func (c *IncidentConfig) PolicyTriggers() PolicyTriggers { return c.notifications.Triggers }

// Skipped returns the patterns dropped at load because they did not compile.
func (c *IncidentConfig) Skipped() []SkippedPattern { return c.skipped }
