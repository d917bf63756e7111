package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var embedded embed.FS

const (
	NameSystem = "system"
	NameHint   = "hint"
)

// Templates renders prompt templates. A file <Dir>/<name>.tmpl overrides the
// embedded default of the same name; overrides are re-read on every render.
type Templates struct {
	Dir string
}

func NewTemplates(dir string) *Templates {
	return &Templates{Dir: strings.TrimSpace(dir)}
}

// Source returns the raw template text for name.
func (t *Templates) Source(name string) (string, error) {
	if t != nil && t.Dir != "" {
		p := filepath.Join(t.Dir, name+".tmpl")
		if b, err := os.ReadFile(p); err == nil && len(bytes.TrimSpace(b)) > 0 {
			return string(b), nil
		}
	}
	b, err := embedded.ReadFile("templates/" + name + ".tmpl")
	if err != nil {
		return "", fmt.Errorf("prompt %q not found", name)
	}
	return string(b), nil
}

func (t *Templates) Render(name string, data any) (string, error) {
	src, err := t.Source(name)
	if err != nil {
		return "", err
	}
	tpl, err := parseCheck(name, src)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Known reports whether name is a template the assembler uses.
func Known(name string) bool {
	_, err := embedded.ReadFile("templates/" + name + ".tmpl")
	return err == nil
}

func parseCheck(name, src string) (*template.Template, error) {
	tpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %q: %w", name, err)
	}
	return tpl, nil
}
