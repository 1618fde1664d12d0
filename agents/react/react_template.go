package react

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/rickchristie/agentloops/actions"
)

//go:embed react.tmpl
var reactSystemTemplateContent string

// SystemPromptData contains the data passed to the system prompt template.
type SystemPromptData struct {
	// Instructions is additional behavior text set with Agent.WithInstructions.
	Instructions string

	// Actions lists the registered actions, sorted by name.
	Actions []actions.Descriptor
}

// DefaultSystemTemplate is the default system prompt. It explains the
// Thought/Action/PAUSE/Observation cycle and lists the registered actions.
//
// Replace it with Agent.WithSystemTemplate or Agent.WithSystemTemplateString.
var DefaultSystemTemplate = template.Must(
	template.New("react_system").Parse(reactSystemTemplateContent),
)

// ExecuteTemplate executes a template with the given data and returns the result.
func ExecuteTemplate(tmpl *template.Template, data SystemPromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
