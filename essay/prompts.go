package essay

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Prompts are the system prompts of the workflow nodes. Each is a text/template executed with
// PromptData.
type Prompts struct {
	Plan             *template.Template
	Writer           *template.Template
	Reflection       *template.Template
	ResearchPlan     *template.Template
	ResearchCritique *template.Template
}

// PromptData is passed to every prompt template.
type PromptData struct {
	// Content is the retrieved research, for the writer prompt.
	Content []string

	// MaxQueries is the query bound, for the research prompts.
	MaxQueries int
}

var defaultTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		Plan:             defaultTemplates.Lookup("plan.tmpl"),
		Writer:           defaultTemplates.Lookup("writer.tmpl"),
		Reflection:       defaultTemplates.Lookup("reflection.tmpl"),
		ResearchPlan:     defaultTemplates.Lookup("research_plan.tmpl"),
		ResearchCritique: defaultTemplates.Lookup("research_critique.tmpl"),
	}
}

func render(tmpl *template.Template, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
