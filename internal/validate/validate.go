// Package validate provides input validation helpers for the ProjectHub CLI.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/manav03panchal/projecthub/internal/errors"
)

const (
	// MaxSIDLength is the maximum length for a simplified ID.
	MaxSIDLength = 32
	// MaxURLLength is the maximum length for a URL.
	MaxURLLength = 2048
	// MaxNameLength is the maximum length for project and calendar names.
	MaxNameLength = 128
	// MaxTitleLength is the maximum length for a task title.
	MaxTitleLength = 256
	// MaxDescriptionLength is the maximum length for a description.
	MaxDescriptionLength = 4096
)

// sidRegex validates simplified IDs (alphanumeric, dashes, underscores, periods).
var sidRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// SID validates a simplified ID.
func SID(sid string) error {
	if sid == "" {
		return errors.NewUserError("SID cannot be empty", "Provide a valid identifier")
	}
	if len(sid) > MaxSIDLength {
		return errors.NewUserErrorWithField("sid", sid,
			"SID too long",
			"SIDs must be 32 characters or fewer")
	}
	if !sidRegex.MatchString(sid) {
		return errors.NewUserErrorWithField("sid", sid,
			"Invalid SID format",
			"SIDs must start with a letter or number and contain only letters, numbers, dashes, underscores, or periods")
	}
	return nil
}

// Name validates a project or calendar name.
func Name(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewUserError(field+" name cannot be empty", "Provide a "+field+" name")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return errors.NewUserErrorWithField(field, name,
			field+" name too long",
			fmt.Sprintf("Names must be %d characters or fewer", MaxNameLength))
	}
	return nil
}

// TaskTitle validates a task title.
func TaskTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.NewUserError("Task title cannot be empty", "Provide a title for the task")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return errors.NewUserError("Task title too long",
			fmt.Sprintf("Titles must be %d characters or fewer", MaxTitleLength))
	}
	return nil
}

// Description validates a free-text description.
func Description(text string) error {
	if utf8.RuneCountInString(text) > MaxDescriptionLength {
		return errors.NewUserError(
			"Description too long",
			fmt.Sprintf("Descriptions must be %d characters or fewer", MaxDescriptionLength))
	}
	return nil
}

// HexColor validates a hex color code.
func HexColor(color string) error {
	if color == "" {
		return nil
	}
	if !strings.HasPrefix(color, "#") {
		return errors.NewUserErrorWithField("color", color,
			"Invalid color format",
			"Use hex format like '#FF5733' or '#00FF00'")
	}
	hex := strings.TrimPrefix(color, "#")
	if len(hex) != 6 {
		return errors.NewUserErrorWithField("color", color,
			"Invalid color format",
			"Use 6-digit hex format like '#FF5733'")
	}
	for _, c := range hex {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return errors.NewUserErrorWithField("color", color,
				"Invalid hex character in color",
				"Use only hex digits (0-9, A-F)")
		}
	}
	return nil
}

// URL validates a URL for use as a webhook endpoint.
func URL(rawURL string) error {
	return checkURL(rawURL, "webhook", map[string]bool{"https": true, "http": true})
}

// FeedURL validates an iCalendar subscription URL. webcal:// and webcals://
// are accepted and fetched over HTTPS.
func FeedURL(rawURL string) error {
	return checkURL(rawURL, "calendar feed", map[string]bool{
		"https": true, "http": true, "webcal": true, "webcals": true,
	})
}

func checkURL(rawURL, kind string, schemes map[string]bool) error {
	if rawURL == "" {
		return errors.NewUserError("URL cannot be empty", "Provide a valid URL")
	}
	if len(rawURL) > MaxURLLength {
		return errors.NewUserError("URL too long", "URLs must be 2048 characters or fewer")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL format",
			"Provide a valid URL starting with https://")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !schemes[scheme] {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL scheme",
			"URLs must use https:// (or http:// for localhost)")
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL: missing hostname",
			"Provide a valid URL like https://example.com/"+strings.ReplaceAll(kind, " ", "-"))
	}

	isLocalhost := hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"

	if scheme == "http" && !isLocalhost {
		return errors.NewUserErrorWithField("url", rawURL,
			"HTTP not allowed for external URLs",
			"Use https:// for security. HTTP is only allowed for localhost.")
	}

	// SSRF protection
	if !isLocalhost {
		if err := checkInternalIP(hostname, kind); err != nil {
			return err
		}
	}
	return nil
}

// checkInternalIP checks if a hostname resolves to an internal IP.
func checkInternalIP(hostname, kind string) error {
	if ip := net.ParseIP(hostname); ip != nil {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Internal IP addresses not allowed",
				strings.ToUpper(kind[:1])+kind[1:]+" URLs must point to external services")
		}
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		// Unresolvable now; the request fails later.
		return nil
	}

	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Hostname resolves to internal IP",
				strings.ToUpper(kind[:1])+kind[1:]+" URLs must point to external services")
		}
	}
	return nil
}

var privateNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"fc00::/7",
	"fe80::/10",
	"::1/128",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		out = append(out, network)
	}
	return out
}

// isInternalIP checks if an IP is in a private/internal range.
func isInternalIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// NonEmpty validates that a string is not empty.
func NonEmpty(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewUserError(
			field+" cannot be empty",
			"Provide a value for "+field)
	}
	return nil
}

// InRange validates that an integer is within [min, max].
func InRange(field string, value, min, max int) error {
	if value < min || value > max {
		return errors.NewUserErrorWithField(field, fmt.Sprint(value),
			"Value out of range",
			fmt.Sprintf("Must be between %d and %d", min, max))
	}
	return nil
}
