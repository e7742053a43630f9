package assistant

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/selivandex/fatty/pkg/templates"
)

// SystemTemplate is the template rendered into the system message
const SystemTemplate = "system.tmpl"

//go:embed prompts/*.tmpl
var defaultPrompts embed.FS

// PromptData is passed to the system template
type PromptData struct {
	Name      string
	Token     string
	Tools     []string
	Knowledge string
}

// LoadPrompts returns the built-in prompt templates, or the ones in dir when set
func LoadPrompts(dir string) (templates.Renderer, error) {
	if dir != "" {
		m, err := templates.NewManager(dir)
		if err != nil {
			return nil, err
		}
		if !m.TemplateExists(SystemTemplate) {
			return nil, fmt.Errorf("required template not found: %s", SystemTemplate)
		}
		return m, nil
	}

	sub, err := fs.Sub(defaultPrompts, "prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded prompts: %w", err)
	}
	m, err := templates.NewManagerWithValidation(sub, "embedded", []string{SystemTemplate})
	if err != nil {
		return nil, err
	}
	return m, nil
}
