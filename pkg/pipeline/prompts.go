package pipeline

import (
	"fmt"
	"strings"

	"github.com/asim-Gelal/Remit-agent/pkg/pipeline/prompts"
)

// Prompts contains the pipeline prompts loaded from embedded files.
type Prompts struct {
	Relevance string // Prompt for relevance classification
	Generate  string // Prompt for SQL generation
	Respond   string // Prompt for human-readable response formatting
}

// LoadPrompts loads all prompts from the embedded filesystem.
func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}

	var err error
	if p.Relevance, err = loadPrompt("RELEVANCE.md"); err != nil {
		return nil, fmt.Errorf("failed to load RELEVANCE: %w", err)
	}
	if p.Generate, err = loadPrompt("GENERATE.md"); err != nil {
		return nil, fmt.Errorf("failed to load GENERATE: %w", err)
	}
	if p.Respond, err = loadPrompt("RESPOND.md"); err != nil {
		return nil, fmt.Errorf("failed to load RESPOND: %w", err)
	}

	return p, nil
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.PromptsFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
