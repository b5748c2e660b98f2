package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/carelog/internal/pipeline"
)

// diagCmd represents the diag command
var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Check the model configuration with a test call",
	Long: `Diag reports the configured provider and model, whether a credential
is present, whether a client could be built, and the result of one minimal
request to the model.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		d := pipeline.NewPipeline(cfg, newLogger(cfg)).Diagnose(ctx)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode diagnostic: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagCmd)
}
