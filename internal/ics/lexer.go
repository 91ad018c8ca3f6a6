package ics

import (
	"bufio"
	"fmt"
	"strings"
)

// Property is one content line: NAME;PARAM=VALUE:value.
type Property struct {
	Name   string
	Params map[string]string
	Value  string
}

// Param returns a parameter value by case-insensitive name.
func (p Property) Param(name string) string {
	return p.Params[strings.ToUpper(name)]
}

// unfold joins folded lines. A line starting with a space or horizontal tab
// continues the previous one; the single leading whitespace is dropped.
func unfold(content string) []string {
	var (
		lines   []string
		current strings.Builder
		started bool
	)

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line != "" && (line[0] == ' ' || line[0] == '\t') && started {
			current.WriteString(line[1:])
			continue
		}
		if started {
			lines = append(lines, current.String())
			current.Reset()
		}
		if strings.TrimSpace(line) == "" {
			started = false
			continue
		}
		current.WriteString(line)
		started = true
	}
	if started {
		lines = append(lines, current.String())
	}
	return lines
}

// parseProperty splits a content line into name, parameters and value.
// Colons and semicolons inside double-quoted parameter values are literal.
func parseProperty(line string) (Property, error) {
	inQuotes := false
	sep := -1
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ':':
			if !inQuotes {
				sep = i
			}
		}
		if sep >= 0 {
			break
		}
	}
	if sep < 0 {
		return Property{}, fmt.Errorf("no value separator in %q", truncate(line, 40))
	}

	head, value := line[:sep], line[sep+1:]
	parts := splitUnquoted(head, ';')
	name := strings.ToUpper(strings.TrimSpace(parts[0]))
	if name == "" {
		return Property{}, fmt.Errorf("empty property name in %q", truncate(line, 40))
	}

	prop := Property{Name: name, Value: value}
	for _, raw := range parts[1:] {
		k, v, ok := strings.Cut(raw, "=")
		if !ok {
			continue
		}
		if prop.Params == nil {
			prop.Params = make(map[string]string)
		}
		prop.Params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return prop, nil
}

func splitUnquoted(s string, sep byte) []string {
	var (
		parts    []string
		start    int
		inQuotes bool
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case sep:
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// unescapeText decodes a TEXT value: \n and \N become newlines, and \, \;
// and \\ become the literal character.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\', ':', '"':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
