package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/carelog/internal/config"
	"github.com/ppiankov/carelog/internal/model"
)

func TestParseSource(t *testing.T) {
	tests := map[string]model.SourceMode{
		"":      model.SourceAuto,
		"auto":  model.SourceAuto,
		"llm":   model.SourceLLMOnly,
		"RULES": model.SourceRulesOnly,
	}
	for in, want := range tests {
		got, err := parseSource(in)
		if err != nil || got != want {
			t.Errorf("parseSource(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := parseSource("both"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "a.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	single := filepath.Join(dir, "b.txt")
	list := filepath.Join(dir, "list")
	if err := os.WriteFile(list, []byte("a.txt\nc.txt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := resolveInputs([]string{single, dir}, list)
	if err != nil {
		t.Fatalf("resolveInputs failed: %v", err)
	}
	expected := []string{single, filepath.Join(dir, "a.txt"), filepath.Join(dir, "c.txt")}
	if strings.Join(paths, ",") != strings.Join(expected, ",") {
		t.Errorf("expected %v, got %v", expected, paths)
	}

	if _, err := resolveInputs([]string{filepath.Join(dir, "missing.txt")}, ""); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestDefaultConfigFile(t *testing.T) {
	data, err := defaultConfigFile()
	if err != nil {
		t.Fatalf("defaultConfigFile failed: %v", err)
	}
	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("generated config does not parse: %v", err)
	}
	if cfg.Incident.Path != model.DefaultConfig().Incident.Path {
		t.Errorf("unexpected incident path %q", cfg.Incident.Path)
	}
	if strings.Contains(string(data), "api_key") {
		t.Error("api key must not be written to the config file")
	}
}

func TestDescribeIncidentConfig(t *testing.T) {
	doc := `
patterns:
  fall: ['fell', '(unclosed']
locations: [Lounge]
assessments:
  - name: falls review
    incident_types: [fall]
    patterns: ['again']
notifications:
  always_notify: Supervisor
`
	ic, err := config.Parse([]byte(doc), "patterns.yml", nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	out := describeIncidentConfig(ic)
	for _, want := range []string{"patterns.yml", "fall", "lounge", "1. falls review [fall]", "Always notify: Supervisor", "Skipped patterns (1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestApplyProviderEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":    "sk-openai",
		"ANTHROPIC_API_KEY": "sk-ant",
		"OPENAI_MODEL":      "gpt-4o",
		"OLLAMA_BASE_URL":   "http://ollama:11434",
	}
	getenv := func(k string) string { return env[k] }

	openai := model.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"}
	applyProviderEnv(&openai, getenv, false)
	if openai.BaseURL != "" {
		t.Errorf("openai must not pick up OLLAMA_BASE_URL, got %q", openai.BaseURL)
	}
	if openai.Model != "gpt-4o" || openai.APIKey != "sk-openai" {
		t.Errorf("unexpected openai config %+v", openai)
	}

	anthropic := model.LLMConfig{Provider: "anthropic", Model: "claude-3-5-haiku-latest"}
	applyProviderEnv(&anthropic, getenv, false)
	if anthropic.Model != "claude-3-5-haiku-latest" || anthropic.BaseURL != "" || anthropic.APIKey != "sk-ant" {
		t.Errorf("anthropic must only take its own key, got %+v", anthropic)
	}

	ollama := model.LLMConfig{Provider: "ollama", Model: "llama3"}
	applyProviderEnv(&ollama, getenv, false)
	if ollama.BaseURL != "http://ollama:11434" || ollama.Model != "llama3" || ollama.APIKey != "" {
		t.Errorf("unexpected ollama config %+v", ollama)
	}

	explicit := model.LLMConfig{Provider: "openai", Model: "gpt-4.1", APIKey: "sk-flag"}
	applyProviderEnv(&explicit, getenv, true)
	if explicit.Model != "gpt-4.1" || explicit.APIKey != "sk-flag" {
		t.Errorf("explicit settings must win, got %+v", explicit)
	}
}
