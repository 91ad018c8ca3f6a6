package model

import (
	"fmt"
	"regexp"
	"time"
)

// Project groups tasks and linked calendars.
type Project struct {
	Key         string    `json:"key"`
	SID         string    `json:"sid"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	Archived    bool      `json:"archived,omitempty"`
	OwnerKey    string    `json:"owner_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Project) SetKey(key string) {
	p.Key = key
}

func (p *Project) GetKey() string {
	return p.Key
}

// GenerateProjectKey returns "project:<sid>".
func GenerateProjectKey(sid string) string {
	return fmt.Sprintf("%s:%s", PrefixProject, sid)
}

// NewProject creates a new project with the given parameters.
func NewProject(sid, displayName, color string) *Project {
	return &Project{
		Key:         GenerateProjectKey(sid),
		SID:         sid,
		DisplayName: displayName,
		Color:       color,
		CreatedAt:   time.Now(),
	}
}

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidateColor checks if a color string is empty or a #RRGGBB hex color.
func ValidateColor(color string) bool {
	if color == "" {
		return true
	}
	return hexColorRegex.MatchString(color)
}
