package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/carelog/internal/logging"
	"github.com/ppiankov/carelog/internal/model"
	"github.com/ppiankov/carelog/internal/pipeline"
)

// Analyzer analyzes one transcript
type Analyzer interface {
	Analyze(ctx context.Context, text string, mode model.SourceMode) (*model.AnalysisResult, error)
}

// AnalyzeJob analyzes one transcript file
type AnalyzeJob struct {
	Pos      int
	Path     string
	Mode     model.SourceMode
	Analyzer Analyzer
}

// Index returns the job's submission position
func (j *AnalyzeJob) Index() int { return j.Pos }

// Execute reads and analyzes the file
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return &FileResult{Pos: j.Pos, Path: j.Path, Error: fmt.Errorf("read transcript: %w", err)}
	}

	result, err := j.Analyzer.Analyze(ctx, string(data), j.Mode)
	if err != nil {
		return &FileResult{Pos: j.Pos, Path: j.Path, Error: err}
	}
	return &FileResult{Pos: j.Pos, Path: j.Path, Result: result}
}

// FileResult is the outcome of analyzing one file
type FileResult struct {
	Pos       int
	Path      string
	Result    *model.AnalysisResult
	JSONPath  string
	EmailPath string
	Error     error
}

// JobIndex returns the submission position of the originating job
func (r *FileResult) JobIndex() int { return r.Pos }

// GetError returns the analysis error, if any
func (r *FileResult) GetError() error { return r.Error }

// BatchAnalyzer analyzes many transcript files concurrently and writes
// <name>.json and <name>.eml.txt for each into an output directory
type BatchAnalyzer struct {
	analyzer    Analyzer
	concurrency int
	outDir      string
	mode        model.SourceMode
	logger      logrus.FieldLogger
}

// NewBatchAnalyzer creates a batch analyzer. An empty outDir writes next to
// each input file.
func NewBatchAnalyzer(analyzer Analyzer, concurrency int, outDir string, mode model.SourceMode, logger logrus.FieldLogger) *BatchAnalyzer {
	return &BatchAnalyzer{
		analyzer:    analyzer,
		concurrency: concurrency,
		outDir:      outDir,
		mode:        mode,
		logger:      logging.OrDiscard(logger),
	}
}

// AnalyzeFiles analyzes paths and returns one result per path, in input
// order. Files not reached before ctx is cancelled carry ctx's error.
func (b *BatchAnalyzer) AnalyzeFiles(ctx context.Context, paths []string) []*FileResult {
	if len(paths) == 0 {
		return []*FileResult{}
	}

	jobs := make([]Job, len(paths))
	for i, path := range paths {
		jobs[i] = &AnalyzeJob{Pos: i, Path: path, Mode: b.mode, Analyzer: b.analyzer}
	}

	stems := b.outputStems(paths)
	results := Run(ctx, b.concurrency, jobs)

	out := make([]*FileResult, len(paths))
	for i, r := range results {
		fr, ok := r.(*FileResult)
		if !ok || fr == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("not processed")
			}
			out[i] = &FileResult{Pos: i, Path: paths[i], Error: err}
			continue
		}
		if fr.Error == nil {
			b.write(fr, stems[i])
		}
		out[i] = fr
	}

	return out
}

// outputStems returns, per input, the output path without extension. Inputs
// that would share one (same base name, different directories) get -2, -3...
// suffixes in input order.
func (b *BatchAnalyzer) outputStems(paths []string) []string {
	stems := make([]string, len(paths))
	used := make(map[string]bool, len(paths))
	for i, path := range paths {
		dir := b.outDir
		if dir == "" {
			dir = filepath.Dir(path)
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		stem := filepath.Join(dir, base)
		for n := 2; used[stem]; n++ {
			stem = filepath.Join(dir, fmt.Sprintf("%s-%d", base, n))
		}
		used[stem] = true
		stems[i] = stem
	}
	return stems
}

func (b *BatchAnalyzer) write(fr *FileResult, stem string) {
	jsonPath := stem + ".json"
	emailPath := stem + ".eml.txt"

	if err := pipeline.WriteResult(fr.Result, jsonPath, emailPath); err != nil {
		fr.Error = err
		b.logger.WithError(err).WithField("path", fr.Path).Warn("batch: write failed")
		return
	}
	fr.JSONPath, fr.EmailPath = jsonPath, emailPath
	b.logger.WithFields(logrus.Fields{
		"path":   fr.Path,
		"source": fr.Result.ExtractionSource,
	}).Debug("batch: wrote result")
}

// ListTranscripts returns the *.txt files directly under dir, sorted
func ListTranscripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		if strings.HasSuffix(e.Name(), ".eml.txt") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadPathList reads transcript paths from a file, one per line. Blank
// lines and # comments are skipped and duplicates dropped. Relative paths
// resolve against the list file's directory.
func ReadPathList(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
