package notify

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
	"time"

	"github.com/manav03panchal/projecthub/internal/model"
)

// GenericFormatter formats notifications for generic JSON webhooks.
type GenericFormatter struct {
	// Template is an optional text/template for the request body. It sees
	// Type, Title, Message, Fields, Timestamp and Color.
	Template string
}

type genericPayload struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp string            `json:"timestamp"`
	Color     int               `json:"color,omitempty"`
	Source    string            `json:"source"`
}

// NewGenericFormatter creates a new generic formatter with an optional template.
func NewGenericFormatter(template string) *GenericFormatter {
	return &GenericFormatter{Template: template}
}

// Format converts a notification to the generic payload, or renders the
// custom template when one is set.
func (f *GenericFormatter) Format(n *model.Notification) ([]byte, error) {
	if f.Template != "" {
		return f.formatWithTemplate(n)
	}

	payload := genericPayload{
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Fields:    n.Fields,
		Timestamp: n.Timestamp.UTC().Format(time.RFC3339),
		Color:     colorOf(n),
		Source:    strings.ToLower(brand),
	}
	return json.Marshal(payload)
}

// templateFuncs are available inside custom templates. json quotes a value
// so titles with quotes still produce valid JSON bodies.
var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

func (f *GenericFormatter) formatWithTemplate(n *model.Notification) ([]byte, error) {
	tmpl, err := template.New("webhook").Funcs(templateFuncs).Option("missingkey=zero").Parse(f.Template)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"Type":      string(n.Type),
		"Title":     n.Title,
		"Message":   n.Message,
		"Fields":    n.Fields,
		"Timestamp": n.Timestamp,
		"Color":     colorOf(n),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ValidateTemplate reports whether tmpl parses.
func ValidateTemplate(tmpl string) error {
	_, err := template.New("webhook").Funcs(templateFuncs).Parse(tmpl)
	return err
}

// ContentType returns the content type for generic webhooks.
func (f *GenericFormatter) ContentType() string {
	return "application/json"
}
