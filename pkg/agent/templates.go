// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// TemplateSet holds named system-prompt templates loaded from a directory.
// An unresolved placeholder at render time is an error, never silently
// replaced with a zero value.
type TemplateSet struct {
	templates map[string]*template.Template
	maxTokens int
}

// TemplateOption configures a TemplateSet.
type TemplateOption func(*TemplateSet)

// WithTokenBudget caps the approximate token count of a rendered template.
// Zero disables the check.
func WithTokenBudget(maxTokens int) TemplateOption {
	return func(ts *TemplateSet) { ts.maxTokens = maxTokens }
}

// LoadTemplates reads every .tmpl file in dir into a TemplateSet, keyed by
// file name without extension.
func LoadTemplates(dir string, opts ...TemplateOption) (*TemplateSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(errors.CodeTemplate, "failed to read template directory", err).
			WithContext("dir", dir)
	}

	ts := &TemplateSet{templates: make(map[string]*template.Template)}
	for _, opt := range opts {
		opt(ts)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".tmpl" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.New(errors.CodeTemplate, "failed to read template file", err).
				WithContext("file", entry.Name())
		}
		name := strings.TrimSuffix(entry.Name(), ".tmpl")
		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(raw))
		if err != nil {
			return nil, errors.New(errors.CodeTemplate, "failed to parse template", err).
				WithContext("template", name)
		}
		ts.templates[name] = tmpl
	}
	return ts, nil
}

// NewTemplateSet builds a set from in-memory sources. Used by tests and by
// callers embedding their prompts.
func NewTemplateSet(sources map[string]string, opts ...TemplateOption) (*TemplateSet, error) {
	ts := &TemplateSet{templates: make(map[string]*template.Template)}
	for _, opt := range opts {
		opt(ts)
	}
	for name, src := range sources {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, errors.New(errors.CodeTemplate, "failed to parse template", err).
				WithContext("template", name)
		}
		ts.templates[name] = tmpl
	}
	return ts, nil
}

// Names returns the loaded template names.
func (ts *TemplateSet) Names() []string {
	names := make([]string, 0, len(ts.templates))
	for name := range ts.templates {
		names = append(names, name)
	}
	return names
}

// Render executes the named template against data. A missing template, an
// unresolved placeholder, or a rendered prompt over the token budget is a
// TEMPLATE_ERROR.
func (ts *TemplateSet) Render(name string, data map[string]any) (string, error) {
	tmpl, ok := ts.templates[name]
	if !ok {
		return "", errors.New(errors.CodeTemplate, "template not found", nil).
			WithContext("template", name)
	}
	if data == nil {
		data = map[string]any{}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", errors.New(errors.CodeTemplate, "template rendering failed", err).
			WithContext("template", name)
	}
	rendered := sb.String()

	if ts.maxTokens > 0 {
		// Rough heuristic: one token per four characters.
		if approx := len(rendered) / 4; approx > ts.maxTokens {
			return "", errors.New(errors.CodeTemplate, "rendered prompt exceeds token budget", nil).
				WithContext("template", name).
				WithContext("approx_tokens", approx).
				WithContext("budget", ts.maxTokens)
		}
	}
	return rendered, nil
}
