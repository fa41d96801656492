package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// PromptSpec is the assistant's system prompt and generation settings,
// kept in a YAML file so prompt edits don't require a rebuild.
type PromptSpec struct {
	System string `yaml:"system"`
	Style  struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

const defaultSystemPrompt = "You are VetDesk, a friendly assistant that helps US military " +
	"veterans understand their VA benefits. Answer clearly and concisely, and recommend " +
	"contacting the VA directly for case-specific decisions."

func defaultPromptSpec() PromptSpec {
	var spec PromptSpec
	spec.System = defaultSystemPrompt
	spec.Style.Temperature = 0.5
	spec.Style.MaxTokens = 800
	return spec
}

// LoadPromptSpec reads the prompt file, falling back to the built-in spec
// when the file is absent. A present-but-broken file is an error.
func LoadPromptSpec(path string) (PromptSpec, error) {
	spec := defaultPromptSpec()
	if path == "" {
		return spec, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return spec, nil
		}
		return spec, err
	}
	var loaded PromptSpec
	if err := yaml.Unmarshal(b, &loaded); err != nil {
		return spec, fmt.Errorf("invalid prompt file %s: %w", path, err)
	}
	if loaded.System != "" {
		spec.System = loaded.System
	}
	if loaded.Style.Temperature > 0 {
		spec.Style.Temperature = loaded.Style.Temperature
	}
	if loaded.Style.MaxTokens > 0 {
		spec.Style.MaxTokens = loaded.Style.MaxTokens
	}
	return spec, nil
}
