package optimize

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// PromptBuilder renders the system and user prompts of an optimization call.
type PromptBuilder struct {
	templates map[string]*template.Template
}

// NewPromptBuilder loads the embedded templates.
func NewPromptBuilder() (*PromptBuilder, error) {
	pb := &PromptBuilder{
		templates: make(map[string]*template.Template),
	}

	funcMap := template.FuncMap{
		"join": strings.Join,
	}

	for _, name := range []string{"system_prompt", "optimize_prompt"} {
		filename := fmt.Sprintf("templates/%s.tmpl", name)
		tmpl, err := template.New(fmt.Sprintf("%s.tmpl", name)).Funcs(funcMap).ParseFS(templateFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pb.templates[name] = tmpl
	}

	return pb, nil
}

// PromptData is the input of the optimize prompt. Keywords is the full, unfiltered target list.
type PromptData struct {
	Text     string
	Keywords []string
}

// SystemPrompt returns the fixed brand-tone system prompt.
func (pb *PromptBuilder) SystemPrompt() (string, error) {
	var buf bytes.Buffer
	if err := pb.templates["system_prompt"].ExecuteTemplate(&buf, "system_prompt.tmpl", nil); err != nil {
		return "", fmt.Errorf("failed to execute system_prompt template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// BuildPrompt renders the user prompt.
func (pb *PromptBuilder) BuildPrompt(data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := pb.templates["optimize_prompt"].ExecuteTemplate(&buf, "optimize_prompt.tmpl", data); err != nil {
		return "", fmt.Errorf("failed to execute optimize_prompt template: %w", err)
	}
	return buf.String(), nil
}
