package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"tutorpy/api/internal/hint"
)

var allowedNameRe = regexp.MustCompile(`^[a-z0-9_-]+$`)

var ErrNoOverrideDir = errors.New("prompt override dir is not configured")

// UpdateRequest is the payload of the prompt update API.
type UpdateRequest struct {
	Name string `json:"name"` // template name WITHOUT extension (e.g. "system")
	Text string `json:"text"`
}

type UpdateResponse struct {
	OK      bool   `json:"ok"`
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Updated string `json:"updated_at"`
}

func (req *UpdateRequest) Validate() error {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(req.Name)), ".tmpl")
	if name == "" || !allowedNameRe.MatchString(name) {
		return fmt.Errorf("invalid name: must match %q", allowedNameRe.String())
	}
	if !Known(name) {
		return fmt.Errorf("unknown prompt %q", name)
	}
	req.Name = name
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if len(req.Text) > 256*1024 {
		return fmt.Errorf("text too large (max 256 KiB)")
	}
	return nil
}

// Save writes an override for name atomically: temp file in the same
// directory, then rename. The text must render against sample data and keep
// the parts the assembler relies on.
func (t *Templates) Save(name, text string) (string, error) {
	if t == nil || t.Dir == "" {
		return "", ErrNoOverrideDir
	}
	if err := checkOverride(name, text); err != nil {
		return "", err
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return "", fmt.Errorf("make dir: %w", err)
	}
	dst := filepath.Join(t.Dir, name+".tmpl")

	tmp, err := os.CreateTemp(t.Dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename: %w", err)
	}
	return dst, nil
}

const sampleCode = "for i in range(3) print(i)"

// checkOverride пробно рендерит шаблон на двух уровнях, с ошибкой выполнения
// и без неё.
func checkOverride(name, text string) error {
	tpl, err := parseCheck(name, text)
	if err != nil {
		return err
	}
	samples := []struct {
		level        int
		runtimeError string
	}{
		{level: 2},
		{level: 3, runtimeError: "SyntaxError: expected ':'"},
	}
	for _, sm := range samples {
		var data any
		switch name {
		case NameSystem:
			data = systemData{Problem: "Reverse a string", Level: sm.level, MaxSentences: DefaultMaxSentences, RuntimeError: sm.runtimeError}
		case NameHint:
			data = hintData{Problem: "Reverse a string", Code: sampleCode, History: hint.NoHintsText, RuntimeError: sm.runtimeError, Level: sm.level}
		default:
			return fmt.Errorf("unknown prompt %q", name)
		}
		var b strings.Builder
		if err := tpl.Execute(&b, data); err != nil {
			return fmt.Errorf("render prompt %q: %w", name, err)
		}
		out := b.String()
		switch {
		case name == NameSystem && !strings.Contains(out, fmt.Sprintf("Hint level: %d", sm.level)):
			return fmt.Errorf("prompt %q must contain the line \"Hint level: {{.Level}}\"", name)
		case name == NameHint && !strings.Contains(out, sampleCode):
			return fmt.Errorf("prompt %q must embed the learner's code {{.Code}}", name)
		}
	}
	return nil
}
