package pipeline

import (
	"context"

	"github.com/ppiankov/carelog/internal/llm"
	"github.com/ppiankov/carelog/internal/model"
)

const diagPreviewRunes = 120

// Diagnose reports the model configuration and makes one minimal test
// call. It never returns an error; failures are described in the result.
func (p *Pipeline) Diagnose(ctx context.Context) model.Diagnostic {
	d := model.Diagnostic{
		Provider:      p.llmConfig.Provider,
		Model:         p.llmConfig.Model,
		EnvKeyPresent: llm.CredentialPresent(p.llmConfig),
	}

	provider := p.llm.Provider()
	if provider == nil {
		d.ClientError = "provider not initialized"
		if p.providerErr != nil {
			d.ClientError = p.providerErr.Error()
		}
		d.TestCallSkipped = true
		return d
	}
	d.ClientOK = true
	d.Provider = provider.Name()
	d.Model = provider.Model()

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		System:    llm.SystemInstruction,
		Prompt:    `{"ok": true}`,
		MaxTokens: 16,
	})
	if err != nil {
		d.TestCallError = err.Error()
		p.logger.WithError(err).Warn("diag: test call failed")
		return d
	}

	d.TestCallOK = true
	d.RawFirstResponse = truncateRunes(resp.Text, diagPreviewRunes)
	return d
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
