package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/carelog/internal/model"
)

// WriteResult writes the analysis as indented JSON to jsonPath and the draft
// email to emailPath. An empty path skips that output.
func WriteResult(res *model.AnalysisResult, jsonPath, emailPath string) error {
	if jsonPath != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		if err := writeFile(jsonPath, append(data, '\n')); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	}

	if emailPath != "" {
		if err := writeFile(emailPath, []byte(res.DraftEmail+"\n")); err != nil {
			return fmt.Errorf("write email: %w", err)
		}
	}

	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
