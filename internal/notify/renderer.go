package notify

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders queued payloads into email subject and body.
type Renderer struct {
	templates map[MessageKind]*template.Template
}

// NewRenderer creates a renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":    titleCase,
		"upper":    strings.ToUpper,
		"humanize": humanizeStatus,
	}

	r := &Renderer{templates: make(map[MessageKind]*template.Template)}

	for _, kind := range []MessageKind{KindServiceStatusChanged, KindIncidentCreated, KindIncidentUpdated} {
		filename := fmt.Sprintf("templates/%s.tmpl", kind)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(string(kind)).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", kind, err)
		}

		r.templates[kind] = tmpl
	}

	return r, nil
}

// Render returns the subject and body for a payload.
func (r *Renderer) Render(payload Payload) (subject, body string, err error) {
	tmpl, ok := r.templates[payload.Kind]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", payload.Kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("render %s: %w", payload.Kind, err)
	}

	subject, body = splitSubject(buf.String())
	return subject, body, nil
}

// splitSubject treats the first non-empty line as the subject and the rest
// as the body.
func splitSubject(rendered string) (string, string) {
	rendered = strings.TrimLeft(rendered, "\n")
	subject, body, found := strings.Cut(rendered, "\n")
	if !found {
		return strings.TrimSpace(rendered), ""
	}
	return strings.TrimSpace(subject), strings.TrimLeft(body, "\n")
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func humanizeStatus(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
