package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/carelog/internal/model"
)

type mockAnalyzer struct {
	calls int32
	fail  string
	mode  atomic.Value
}

func (m *mockAnalyzer) Analyze(ctx context.Context, text string, mode model.SourceMode) (*model.AnalysisResult, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mode.Store(mode)
	if m.fail != "" && strings.Contains(text, m.fail) {
		return nil, errors.New("analysis failed")
	}
	return &model.AnalysisResult{
		ExtractionSource: model.SourceRules,
		IncidentForm:     model.NewIncidentForm("2024-01-01T12:00:00+00:00"),
		Evidence:         []model.Evidence{},
		DraftEmail:       "To: Supervisor\n" + text,
	}, nil
}

func writeTranscripts(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBatchAnalyzer_AnalyzeFiles(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "results")
	writeTranscripts(t, in, map[string]string{
		"a.txt": "he fell",
		"b.txt": "BROKEN",
	})

	analyzer := &mockAnalyzer{fail: "BROKEN"}
	b := NewBatchAnalyzer(analyzer, 2, out, model.SourceRulesOnly, nil)
	paths := []string{
		filepath.Join(in, "a.txt"),
		filepath.Join(in, "b.txt"),
		filepath.Join(in, "missing.txt"),
	}

	results := b.AnalyzeFiles(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("result %d: expected path %s, got %s", i, paths[i], r.Path)
		}
	}

	if results[0].Error != nil {
		t.Fatalf("unexpected error: %v", results[0].Error)
	}
	if results[0].JSONPath != filepath.Join(out, "a.json") || results[0].EmailPath != filepath.Join(out, "a.eml.txt") {
		t.Errorf("unexpected output paths: %s %s", results[0].JSONPath, results[0].EmailPath)
	}
	email, err := os.ReadFile(results[0].EmailPath)
	if err != nil {
		t.Fatalf("email not written: %v", err)
	}
	if !strings.Contains(string(email), "he fell") {
		t.Errorf("unexpected email: %q", email)
	}
	if _, err := os.Stat(results[0].JSONPath); err != nil {
		t.Errorf("json not written: %v", err)
	}

	if results[1].Error == nil {
		t.Error("expected analysis error for b.txt")
	}
	if _, err := os.Stat(filepath.Join(out, "b.json")); !os.IsNotExist(err) {
		t.Error("expected no output for failed analysis")
	}
	if results[2].Error == nil {
		t.Error("expected read error for missing file")
	}

	if got := atomic.LoadInt32(&analyzer.calls); got != 2 {
		t.Errorf("expected 2 analyzer calls, got %d", got)
	}
	if got := analyzer.mode.Load().(model.SourceMode); got != model.SourceRulesOnly {
		t.Errorf("expected mode to be passed through, got %q", got)
	}
}

func TestBatchAnalyzer_WritesNextToInput(t *testing.T) {
	in := t.TempDir()
	writeTranscripts(t, in, map[string]string{"call.txt": "x"})

	b := NewBatchAnalyzer(&mockAnalyzer{}, 1, "", model.SourceAuto, nil)
	results := b.AnalyzeFiles(context.Background(), []string{filepath.Join(in, "call.txt")})

	if results[0].Error != nil {
		t.Fatalf("unexpected error: %v", results[0].Error)
	}
	if results[0].JSONPath != filepath.Join(in, "call.json") {
		t.Errorf("expected output next to input, got %s", results[0].JSONPath)
	}
}

func TestBatchAnalyzer_SameBaseNameDoesNotOverwrite(t *testing.T) {
	root := t.TempDir()
	dirA, dirB := filepath.Join(root, "a"), filepath.Join(root, "b")
	for _, d := range []string{dirA, dirB} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeTranscripts(t, dirA, map[string]string{"x.txt": "from a"})
	writeTranscripts(t, dirB, map[string]string{"x.txt": "from b"})
	out := filepath.Join(root, "out")

	b := NewBatchAnalyzer(&mockAnalyzer{}, 2, out, model.SourceAuto, nil)
	results := b.AnalyzeFiles(context.Background(), []string{filepath.Join(dirA, "x.txt"), filepath.Join(dirB, "x.txt")})

	for _, r := range results {
		if r.Error != nil {
			t.Fatalf("unexpected error for %s: %v", r.Path, r.Error)
		}
	}
	if results[0].EmailPath != filepath.Join(out, "x.eml.txt") || results[1].EmailPath != filepath.Join(out, "x-2.eml.txt") {
		t.Fatalf("expected distinct outputs, got %s and %s", results[0].EmailPath, results[1].EmailPath)
	}
	for i, want := range []string{"from a", "from b"} {
		email, err := os.ReadFile(results[i].EmailPath)
		if err != nil {
			t.Fatalf("email not written: %v", err)
		}
		if !strings.Contains(string(email), want) {
			t.Errorf("%s: expected %q, got %q", results[i].EmailPath, want, email)
		}
	}
}

func TestBatchAnalyzer_Empty(t *testing.T) {
	b := NewBatchAnalyzer(&mockAnalyzer{}, 2, "", model.SourceAuto, nil)
	if results := b.AnalyzeFiles(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestListTranscripts(t *testing.T) {
	dir := t.TempDir()
	writeTranscripts(t, dir, map[string]string{
		"b.txt":     "",
		"a.TXT":     "",
		"a.eml.txt": "",
		"a.json":    "",
	})
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	paths, err := ListTranscripts(dir)
	if err != nil {
		t.Fatalf("ListTranscripts failed: %v", err)
	}
	expected := []string{filepath.Join(dir, "a.TXT"), filepath.Join(dir, "b.txt")}
	if len(paths) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
	for i := range expected {
		if paths[i] != expected[i] {
			t.Errorf("index %d: expected %s, got %s", i, expected[i], paths[i])
		}
	}
}

func TestReadPathList(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list")
	content := "one.txt\n# comment\n\n   /abs/two.txt  \none.txt\n"
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := ReadPathList(list)
	if err != nil {
		t.Fatalf("ReadPathList failed: %v", err)
	}
	expected := []string{filepath.Join(dir, "one.txt"), "/abs/two.txt"}
	if len(paths) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
	for i := range expected {
		if paths[i] != expected[i] {
			t.Errorf("index %d: expected %s, got %s", i, expected[i], paths[i])
		}
	}
}

func TestReadPathList_NonExistent(t *testing.T) {
	if _, err := ReadPathList("no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestFileResult_GetError(t *testing.T) {
	expected := errors.New("failed")
	r := &FileResult{Pos: 3, Error: expected}
	if r.GetError() != expected || r.JobIndex() != 3 {
		t.Errorf("unexpected accessors: %v %d", r.GetError(), r.JobIndex())
	}
}
