package templates

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/template"

	"go.uber.org/zap"

	"github.com/selivandex/fatty/pkg/logger"
)

// Renderer interface for template rendering (for dependency injection)
type Renderer interface {
	ExecuteTemplate(name string, data any) (string, error)
	TemplateExists(name string) bool
}

// Manager manages a set of named text templates
type Manager struct {
	templates *template.Template
	source    string
}

// GetDefaultFuncMap returns common template helper functions
func GetDefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"printf": fmt.Sprintf,
		"join": func(items []string, sep string) string {
			var buf bytes.Buffer
			for i, item := range items {
				if i > 0 {
					buf.WriteString(sep)
				}
				buf.WriteString(item)
			}
			return buf.String()
		},
	}
}

// NewManagerFS loads every *.tmpl file (root and one level of subdirectories) from fsys
func NewManagerFS(fsys fs.FS, source string) (*Manager, error) {
	tmpl := template.New("root").Funcs(GetDefaultFuncMap())

	for _, pattern := range []string{"*.tmpl", "*/*.tmpl"} {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		for _, name := range matches {
			raw, err := fs.ReadFile(fsys, name)
			if err != nil {
				return nil, fmt.Errorf("failed to read template %s: %w", name, err)
			}
			if _, err := tmpl.New(filepath.Base(name)).Parse(string(raw)); err != nil {
				return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
			}
		}
	}

	templateCount := len(tmpl.Templates())
	if templateCount <= 1 { // "root" template doesn't count
		return nil, fmt.Errorf("no templates found in %s", source)
	}

	logger.Info("templates loaded",
		zap.Int("count", templateCount-1),
		zap.String("source", source),
	)

	return &Manager{
		templates: tmpl,
		source:    source,
	}, nil
}

// NewManager loads templates from a directory on disk
func NewManager(templatesDir string) (*Manager, error) {
	return NewManagerFS(os.DirFS(templatesDir), templatesDir)
}

// NewManagerWithValidation creates manager and validates required templates exist
func NewManagerWithValidation(fsys fs.FS, source string, requiredTemplates []string) (*Manager, error) {
	manager, err := NewManagerFS(fsys, source)
	if err != nil {
		return nil, err
	}

	for _, name := range requiredTemplates {
		if !manager.TemplateExists(name) {
			return nil, fmt.Errorf("required template not found: %s", name)
		}
	}

	return manager, nil
}

// ExecuteTemplate renders template with data
func (m *Manager) ExecuteTemplate(name string, data any) (string, error) {
	tmpl := m.templates.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

// TemplateExists checks if template exists
func (m *Manager) TemplateExists(name string) bool {
	return m.templates.Lookup(name) != nil
}

// Source returns where the templates were loaded from
func (m *Manager) Source() string {
	return m.source
}
