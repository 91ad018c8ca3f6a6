// Package notify delivers notifications to webhooks and retries failed deliveries.
package notify

import (
	"cmp"
	"slices"

	"github.com/manav03panchal/projecthub/internal/model"
)

// brand is shown in footers and context lines of every formatted message.
const brand = "ProjectHub"

// Formatter formats notifications for a specific webhook type.
type Formatter interface {
	// Format converts a notification into the webhook-specific payload.
	Format(n *model.Notification) ([]byte, error)

	// ContentType returns the HTTP Content-Type for the payload.
	ContentType() string
}

// GetFormatter returns the appropriate formatter for a webhook type.
func GetFormatter(webhookType string) Formatter {
	switch webhookType {
	case model.WebhookTypeDiscord:
		return &DiscordFormatter{}
	case model.WebhookTypeSlack:
		return &SlackFormatter{}
	case model.WebhookTypeTeams:
		return &TeamsFormatter{}
	default:
		return &GenericFormatter{}
	}
}

// FormatterFor returns the formatter for a webhook, honouring a generic
// webhook's custom template.
func FormatterFor(w *model.Webhook) Formatter {
	if w.Type == model.WebhookTypeGeneric && w.Template != "" {
		return NewGenericFormatter(w.Template)
	}
	return GetFormatter(w.Type)
}

// field is one key/value pair in display order.
type field struct {
	Name  string
	Value string
}

// sortedFields returns the notification fields ordered by name so payloads
// are stable between runs.
func sortedFields(n *model.Notification) []field {
	out := make([]field, 0, len(n.Fields))
	for k, v := range n.Fields {
		out = append(out, field{Name: k, Value: v})
	}
	slices.SortFunc(out, func(a, b field) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// colorOf returns the notification color or the type default.
func colorOf(n *model.Notification) int {
	if n.Color != 0 {
		return n.Color
	}
	return model.DefaultColorForType(n.Type)
}
