package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/carelog/internal/llm"
	"github.com/ppiankov/carelog/internal/pipeline"
	"github.com/ppiankov/carelog/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	listFile     string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [file|dir...]",
	Short: "Analyze many transcripts in parallel",
	Long: `Batch analyzes transcript files concurrently:
- Arguments may be transcript files or directories of *.txt files
- --list reads transcript paths from a file (one per line)
- Model calls are rate limited per provider
- Writes <name>.json and <name>.eml.txt for each transcript

Example:
  carelog batch calls/
  carelog batch a.txt b.txt --output-dir ./reports
  carelog batch --list calls.list --concurrency 8 --force-source rules`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (default: next to each transcript)")
	batchCmd.Flags().StringVar(&listFile, "list", "", "file listing transcript paths")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&forceSource, "force-source", "", "restrict extraction to llm or rules")
}

func runBatch(cmd *cobra.Command, args []string) error {
	mode, err := parseSource(forceSource)
	if err != nil {
		return err
	}

	paths, err := resolveInputs(args, listFile)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no transcripts to analyze")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = concurrency
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  carelog batch analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Transcripts:  %d\n", len(paths))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Rate limit:   %.2f req/s (burst %d)\n", cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	}
	fmt.Fprintf(os.Stderr, "\n")

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	p := pipeline.NewPipeline(cfg, logger, llm.WithThrottle(limiter))
	batch := worker.NewBatchAnalyzer(p, cfg.Concurrency.Workers, outputDir, mode, logger)

	results := batch.AnalyzeFiles(ctx, paths)

	successCount := 0
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Path, r.Error)
			continue
		}
		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%s) -> %s\n", r.Path, r.Result.ExtractionSource, r.JSONPath)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", len(results)-successCount)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount < len(results) {
		return fmt.Errorf("%d of %d transcripts failed", len(results)-successCount, len(results))
	}
	return nil
}

// resolveInputs expands directories and the optional list file into
// transcript paths, keeping argument order and dropping duplicates.
func resolveInputs(args []string, list string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(ps ...string) {
		for _, p := range ps {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		found, err := worker.ListTranscripts(arg)
		if err != nil {
			return nil, err
		}
		add(found...)
	}

	if list != "" {
		listed, err := worker.ReadPathList(list)
		if err != nil {
			return nil, fmt.Errorf("read list: %w", err)
		}
		add(listed...)
	}

	return paths, nil
}
