// Package prompts holds the prompt policy sent to the scoring provider.
//
// The defaults are embedded in the binary. A YAML file with the same keys can
// override any subset of them.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/mikey/phish-screen/internal/core"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultYAML []byte

type document struct {
	Router            string `yaml:"router"`
	Phishing          string `yaml:"phishing"`
	SocialEngineering string `yaml:"social_engineering"`
	Unified           string `yaml:"unified"`
	ExtractedTextLead string `yaml:"extracted_text_lead"`
}

// Default returns the embedded prompt set
func Default() (core.PromptSet, error) {
	return Parse(defaultYAML)
}

// Parse decodes a complete prompt set
func Parse(data []byte) (core.PromptSet, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.PromptSet{}, fmt.Errorf("failed to parse prompts: %w", err)
	}

	set := doc.toSet()
	if err := validate(set); err != nil {
		return core.PromptSet{}, err
	}
	return set, nil
}

// Load returns the embedded prompts with any keys present in path applied on top.
// An empty path returns the defaults.
func Load(path string) (core.PromptSet, error) {
	set, err := Default()
	if err != nil {
		return core.PromptSet{}, err
	}
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.PromptSet{}, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return core.PromptSet{}, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	override := doc.toSet()
	overlay(&set.Router, override.Router)
	overlay(&set.Phishing, override.Phishing)
	overlay(&set.SocialEngineering, override.SocialEngineering)
	overlay(&set.Unified, override.Unified)
	overlay(&set.ExtractedTextLead, override.ExtractedTextLead)
	return set, nil
}

func (d document) toSet() core.PromptSet {
	return core.PromptSet{
		Router:            strings.TrimSpace(d.Router),
		Phishing:          strings.TrimSpace(d.Phishing),
		SocialEngineering: strings.TrimSpace(d.SocialEngineering),
		Unified:           strings.TrimSpace(d.Unified),
		ExtractedTextLead: strings.TrimSpace(d.ExtractedTextLead),
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func validate(set core.PromptSet) error {
	for name, v := range map[string]string{
		"router":             set.Router,
		"phishing":           set.Phishing,
		"social_engineering": set.SocialEngineering,
		"unified":            set.Unified,
	} {
		if v == "" {
			return fmt.Errorf("prompt %q is empty", name)
		}
	}
	return nil
}
