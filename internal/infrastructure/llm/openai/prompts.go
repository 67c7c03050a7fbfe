package openai

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coverline/claimlens/internal/core/domain"
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptSpec struct {
	UserPrefix string `yaml:"user_prefix"`
	MaxTokens  int    `yaml:"max_tokens"`
	Focus      string `yaml:"focus"`
}

func loadPrompts() (map[domain.DocType]promptSpec, error) {
	var raw map[string]promptSpec
	if err := yaml.Unmarshal(promptsYAML, &raw); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}

	specs := make(map[domain.DocType]promptSpec, len(raw))
	for key, spec := range raw {
		dt, err := domain.ParseDocType(key)
		if err != nil {
			return nil, fmt.Errorf("prompts.yaml: %w", err)
		}
		if spec.MaxTokens <= 0 {
			return nil, fmt.Errorf("prompts.yaml: %s: max_tokens must be positive", key)
		}
		if strings.TrimSpace(spec.UserPrefix) == "" || strings.TrimSpace(spec.Focus) == "" {
			return nil, fmt.Errorf("prompts.yaml: %s: user_prefix and focus are required", key)
		}
		specs[dt] = spec
	}

	for _, dt := range domain.DocTypes() {
		if _, ok := specs[dt]; !ok {
			return nil, fmt.Errorf("prompts.yaml: missing prompt for document type %q", dt)
		}
	}

	return specs, nil
}

// systemPrompt assembles the shared analyst instruction around the
// document-specific focus list. The category list comes straight from the
// domain taxonomy so prompt and validation can never drift apart.
func systemPrompt(focus string) string {
	categories := domain.Categories()
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}

	var b strings.Builder
	b.WriteString("You are an expert insurance claims analyst. Review the document and report every red flag that affects coverage.\n\n")
	b.WriteString("Pay particular attention to:\n")
	b.WriteString(strings.TrimRight(focus, "\n"))
	b.WriteString("\n\nRespond with a single JSON object and no other prose, in exactly this shape:\n")
	b.WriteString(`{"findings": [{"category": "<category>", "rationale": "<one sentence citing the document>"}], "confidence": <0.0-1.0>, "key_findings": ["<short observation>"]}`)
	b.WriteString("\n\nAllowed categories: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(".\nUse \"other\" when no category fits. Report only findings supported by the document text; an empty findings list is a valid answer.")
	return b.String()
}
