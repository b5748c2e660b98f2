package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/carelog/internal/pipeline"
)

var (
	outJSON     string
	outEmail    string
	forceSource string
	timeout     time.Duration
	inlineText  string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [transcript-file|-]",
	Short: "Analyze one transcript and draft the incident report",
	Long: `Analyze extracts incident facts from a call transcript:
- incident type, location and service user
- first aid and emergency services flags
- the applicable risk-assessment review
- the incident date/time, inferred from the text when not stated

The result (form, evidence and draft email) is printed as JSON unless
--json or --email is given.

Example:
  carelog analyze call.txt
  echo "It's Greg Jones, he fell in the lounge" | carelog analyze -
  carelog analyze --text "She slipped this morning" --force-source rules
  carelog analyze call.txt --json report.json --email report.eml.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&inlineText, "text", "", "transcript text (instead of a file)")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path")
	analyzeCmd.Flags().StringVar(&outEmail, "email", "", "output draft email path")
	analyzeCmd.Flags().StringVar(&forceSource, "force-source", "", "restrict extraction to llm or rules")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	mode, err := parseSource(forceSource)
	if err != nil {
		return err
	}

	text, err := readTranscript(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	p := pipeline.NewPipeline(cfg, logger)
	result, err := p.Analyze(ctx, text, mode)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extraction source: %s\n", result.ExtractionSource)
		fmt.Fprintf(os.Stderr, "✓ Evidence items: %d\n", len(result.Evidence))
	}

	if outJSON == "" && outEmail == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if err := pipeline.WriteResult(result, outJSON, outEmail); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if outJSON != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
	}
	if outEmail != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote email: %s\n", outEmail)
	}
	return nil
}

// readTranscript takes --text, a file argument, or stdin for "-"
func readTranscript(cmd *cobra.Command, args []string) (string, error) {
	if cmd.Flags().Changed("text") {
		if len(args) > 0 {
			return "", fmt.Errorf("use either --text or a transcript file, not both")
		}
		return inlineText, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("a transcript file, - for stdin, or --text is required")
	}

	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}
