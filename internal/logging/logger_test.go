package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_LevelFallback(t *testing.T) {
	log := New("not-a-level", "json")
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level fallback, got %s", log.GetLevel())
	}

	log = New("debug", "json")
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", log.GetLevel())
	}
}

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("info", "json", &buf)
	log.WithField("source", "rules").Info("analysis.done")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "analysis.done" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["source"] != "rules" {
		t.Errorf("unexpected source field: %v", entry["source"])
	}
}

func TestNewWithOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("info", "TEXT", &buf)
	log.Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text formatter output, got %q", buf.String())
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("expected non-nil logger")
	}
	l := Discard()
	if OrDiscard(l) != logrus.FieldLogger(l) {
		t.Error("expected the given logger to be returned")
	}
}
