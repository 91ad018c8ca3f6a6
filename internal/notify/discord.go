package notify

import (
	"encoding/json"
	"time"

	"github.com/manav03panchal/projecthub/internal/model"
)

// Discord rejects embeds beyond these sizes.
const (
	discordMaxFields      = 25
	discordMaxDescription = 4096
)

// DiscordFormatter formats notifications for Discord webhooks.
type DiscordFormatter struct{}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

// Format converts a notification to Discord webhook format.
func (f *DiscordFormatter) Format(n *model.Notification) ([]byte, error) {
	description := n.Message
	if r := []rune(description); len(r) > discordMaxDescription {
		description = string(r[:discordMaxDescription-1]) + "…"
	}

	embed := discordEmbed{
		Title:       n.Title,
		Description: description,
		Color:       colorOf(n),
		Timestamp:   n.Timestamp.UTC().Format(time.RFC3339),
		Footer:      &discordEmbedFooter{Text: brand + " | " + n.TypeLabel()},
	}

	for _, fl := range sortedFields(n) {
		if len(embed.Fields) == discordMaxFields {
			break
		}
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   fl.Name,
			Value:  fl.Value,
			Inline: true,
		})
	}

	return json.Marshal(discordPayload{Embeds: []discordEmbed{embed}})
}

// ContentType returns the content type for Discord webhooks.
func (f *DiscordFormatter) ContentType() string {
	return "application/json"
}
