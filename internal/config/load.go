package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/carelog/internal/logging"
)

// stringList accepts either a single scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = stringList{n.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", n.Line)
	}
}

type rawAssessment struct {
	Name          string     `yaml:"name"`
	IncidentTypes stringList `yaml:"incident_types"`
	Patterns      stringList `yaml:"patterns"`
}

type rawTriggers struct {
	ContactGPIf stringList `yaml:"contact_gp_if"`
	Call999If   stringList `yaml:"call_999_if"`
}

type rawNotifications struct {
	AlwaysNotify         string            `yaml:"always_notify"`
	CCByAssessment       map[string]string `yaml:"cc_by_assessment"`
	GlobalPolicyTriggers *rawTriggers      `yaml:"global_policy_triggers"`
}

// Load reads and parses the incident config at path. A missing file or a
// malformed patterns/locations block is returned as a *ConfigError.
func Load(path string, logger logrus.FieldLogger) (*IncidentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Path: path, Err: ErrNotFound}
		}
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("read: %w", err)}
	}
	return Parse(data, path, logger)
}

// Parse builds an IncidentConfig from YAML. Only the patterns and locations
// blocks are strictly validated; assessments and notifications degrade to
// empty values with a warning. Regexes that fail to compile are skipped.
func Parse(data []byte, path string, logger logrus.FieldLogger) (*IncidentConfig, error) {
	log := logging.OrDiscard(logger).WithField("config", path)

	cfg := &IncidentConfig{
		path: path,
		notifications: Notifications{
			AlwaysNotify:   DefaultAlwaysNotify,
			CCByAssessment: map[string]string{},
		},
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parse yaml: %w", err)}
	}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if isNull(root) {
		return cfg, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, invalid(path, "top level must be a mapping")
	}

	if err := cfg.parsePatterns(lookup(root, "patterns"), log); err != nil {
		return nil, err
	}
	if err := cfg.parseLocations(lookup(root, "locations")); err != nil {
		return nil, err
	}
	cfg.parseAssessments(lookup(root, "assessments"), log)
	cfg.parseNotifications(lookup(root, "notifications"), lookup(root, "global_policy_triggers"), log)

	log.WithFields(logrus.Fields{
		"types":       len(cfg.patterns),
		"locations":   len(cfg.locations),
		"assessments": len(cfg.assessments),
		"skipped":     len(cfg.skipped),
	}).Debug("incident config loaded")
	return cfg, nil
}

func (c *IncidentConfig) parsePatterns(n *yaml.Node, log logrus.FieldLogger) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return invalid(c.path, "patterns must be a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		var srcs stringList
		if !isNull(val) {
			if err := val.Decode(&srcs); err != nil {
				return invalid(c.path, fmt.Sprintf("patterns.%s: %v", key.Value, err))
			}
		}
		c.patterns = append(c.patterns, TypePatterns{
			Type:     key.Value,
			Patterns: c.compileAll("patterns."+key.Value, srcs, log),
		})
	}
	return nil
}

func (c *IncidentConfig) parseLocations(n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return invalid(c.path, "locations must be a list")
	}
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return invalid(c.path, fmt.Sprintf("locations: line %d is not a string", item.Line))
		}
		if isNull(item) {
			continue
		}
		c.locations = append(c.locations, strings.ToLower(item.Value))
	}
	return nil
}

func (c *IncidentConfig) parseAssessments(n *yaml.Node, log logrus.FieldLogger) {
	if isNull(n) {
		return
	}
	if n.Kind != yaml.SequenceNode {
		log.Warn("assessments is not a list, ignoring")
		return
	}
	for i, item := range n.Content {
		var raw rawAssessment
		if item.Kind != yaml.MappingNode {
			log.WithField("index", i).Warn("assessment rule is not a mapping, dropped")
			continue
		}
		if err := item.Decode(&raw); err != nil {
			log.WithField("index", i).WithError(err).Warn("assessment rule dropped")
			continue
		}
		if raw.Name == "" || len(raw.Patterns) == 0 {
			log.WithField("index", i).Warn("assessment rule without name or patterns, dropped")
			continue
		}
		pats := c.compileAll("assessments."+raw.Name, raw.Patterns, log)
		if len(pats) == 0 {
			continue
		}
		c.assessments = append(c.assessments, AssessmentRule{
			Name:          raw.Name,
			IncidentTypes: raw.IncidentTypes,
			Patterns:      pats,
		})
	}
}

// parseNotifications reads the notifications block. Policy triggers nested
// under notifications take precedence over a top-level block.
func (c *IncidentConfig) parseNotifications(n, topTriggers *yaml.Node, log logrus.FieldLogger) {
	var raw rawNotifications
	if !isNull(n) {
		if err := n.Decode(&raw); err != nil {
			log.WithError(err).Warn("notifications block ignored")
			raw = rawNotifications{}
		}
	}
	if raw.AlwaysNotify != "" {
		c.notifications.AlwaysNotify = raw.AlwaysNotify
	}
	for name, cc := range raw.CCByAssessment {
		c.notifications.CCByAssessment[name] = cc
	}

	triggers := raw.GlobalPolicyTriggers
	if triggers == nil && !isNull(topTriggers) {
		var top rawTriggers
		if err := topTriggers.Decode(&top); err != nil {
			log.WithError(err).Warn("global_policy_triggers ignored")
		} else {
			triggers = &top
		}
	}
	if triggers != nil {
		c.notifications.Triggers = PolicyTriggers{
			ContactGPIf: c.compileAll("contact_gp_if", triggers.ContactGPIf, log),
			Call999If:   c.compileAll("call_999_if", triggers.Call999If, log),
		}
	}
}

func (c *IncidentConfig) compileAll(section string, srcs []string, log logrus.FieldLogger) []Pattern {
	out := make([]Pattern, 0, len(srcs))
	for _, src := range srcs {
		p, err := CompilePattern(src)
		if err != nil {
			log.WithFields(logrus.Fields{
				"section": section,
				"pattern": src,
			}).WithError(err).Warn("malformed pattern skipped")
			c.skipped = append(c.skipped, SkippedPattern{Section: section, Source: src, Err: err.Error()})
			continue
		}
		out = append(out, p)
	}
	return out
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func invalid(path, reason string) error {
	return &ConfigError{Path: path, Err: fmt.Errorf("%w: %s", ErrInvalidStructure, reason)}
}
