package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/projecthub/internal/calsync"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/parser"
)

// Styles for CLI output.
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#10B981") // Green
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorWarning   = lipgloss.Color("#F59E0B") // Yellow
	colorError     = lipgloss.Color("#EF4444") // Red
	colorSuccess   = lipgloss.Color("#10B981") // Green

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleBold = lipgloss.NewStyle().
			Bold(true)

	styleProject = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleTask = lipgloss.NewStyle().
			Foreground(colorSecondary)
)

// CLIFormatter provides CLI-specific formatting.
type CLIFormatter struct {
	*Formatter
}

// NewCLIFormatter creates a new CLI formatter.
func NewCLIFormatter(f *Formatter) *CLIFormatter {
	return &CLIFormatter{Formatter: f}
}

func (c *CLIFormatter) render(style lipgloss.Style, text string) string {
	if c.IsColorEnabled() {
		return style.Render(text)
	}
	return text
}

// Title prints a title.
func (c *CLIFormatter) Title(text string) {
	c.Println(c.render(styleTitle, text))
}

// Success prints a success message.
func (c *CLIFormatter) Success(text string) {
	c.Println(c.render(styleSuccess, "✓ "+text))
}

// Warning prints a warning message.
func (c *CLIFormatter) Warning(text string) {
	c.Println(c.render(styleWarning, "⚠ "+text))
}

// Error prints an error message.
func (c *CLIFormatter) Error(text string) {
	c.Println(c.render(styleError, "✗ "+text))
}

// Muted prints muted text.
func (c *CLIFormatter) Muted(text string) {
	c.Println(c.render(styleMuted, text))
}

// ProjectName formats a project SID.
func (c *CLIFormatter) ProjectName(name string) string {
	return c.render(styleProject, name)
}

// TaskName formats a task title.
func (c *CLIFormatter) TaskName(name string) string {
	return c.render(styleTask, name)
}

// StatusIcon returns the board marker for a task status.
func StatusIcon(s model.TaskStatus) string {
	switch s {
	case model.StatusInProgress:
		return "◐"
	case model.StatusReview:
		return "◑"
	case model.StatusDone:
		return "●"
	default:
		return "○"
	}
}

func (c *CLIFormatter) priority(p model.Priority) string {
	switch p {
	case model.PriorityUrgent:
		return c.render(styleError, string(p))
	case model.PriorityHigh:
		return c.render(styleWarning, string(p))
	case model.PriorityLow:
		return c.render(styleMuted, string(p))
	}
	return string(p)
}

func (c *CLIFormatter) due(t *model.Task, now time.Time) string {
	if t.DueDate == nil {
		return "-"
	}
	label := parser.FormatDue(*t.DueDate, now)
	if t.IsOverdue(now) {
		return c.render(styleError, label)
	}
	return label
}

// PrintProjects prints the project list with open task counts.
func (c *CLIFormatter) PrintProjects(projects []*model.Project, openTasks map[string]int) {
	if len(projects) == 0 {
		c.Muted("No projects yet.")
		c.Muted("Use 'projecthub project create <name>' to add one.")
		return
	}
	rows := make([]TableRow, 0, len(projects))
	for _, p := range projects {
		name := p.DisplayName
		if p.Archived {
			name += " (archived)"
		}
		rows = append(rows, TableRow{Columns: []string{p.SID, name, strconv.Itoa(openTasks[p.SID]), p.Description}})
	}
	c.PrintTable([]string{"SID", "NAME", "OPEN", "DESCRIPTION"}, rows)
}

// PrintProject prints one project and its tasks.
func (c *CLIFormatter) PrintProject(p *model.Project, tasks []*model.Task, now time.Time) {
	c.Printf("%s  %s\n", c.ProjectName(p.SID), p.DisplayName)
	if p.Description != "" {
		c.Printf("  %s\n", p.Description)
	}
	if p.Color != "" {
		c.Printf("  Color:   %s\n", p.Color)
	}
	c.Printf("  Created: %s\n", FormatTime(p.CreatedAt))
	if p.Archived {
		c.Muted("  Archived")
	}
	c.Println()
	c.PrintTasks(tasks, now)
}

// PrintTasks prints a task table.
func (c *CLIFormatter) PrintTasks(tasks []*model.Task, now time.Time) {
	if len(tasks) == 0 {
		c.Muted("No tasks.")
		return
	}
	rows := make([]TableRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, TableRow{Columns: []string{
			t.ShortID(),
			StatusIcon(t.Status) + " " + string(t.Status),
			c.priority(t.Priority),
			c.due(t, now),
			t.ProjectSID,
			t.Title,
		}})
	}
	c.PrintTable([]string{"ID", "STATUS", "PRIORITY", "DUE", "PROJECT", "TITLE"}, rows)
}

// PrintTask prints the details of one task.
func (c *CLIFormatter) PrintTask(t *model.Task, now time.Time) {
	c.Printf("%s %s\n", StatusIcon(t.Status), c.TaskName(t.Title))
	c.Printf("  ID:       %s\n", t.ShortID())
	c.Printf("  Project:  %s\n", c.ProjectName(t.ProjectSID))
	c.Printf("  Status:   %s\n", t.Status)
	c.Printf("  Priority: %s\n", c.priority(t.Priority))
	if t.DueDate != nil {
		c.Printf("  Due:      %s (%s)\n", c.due(t, now), parser.FormatTimeUntil(*t.DueDate, now))
	}
	if t.Assignee != "" {
		c.Printf("  Assignee: %s\n", t.Assignee)
	}
	if t.Description != "" {
		c.Printf("  %s\n", t.Description)
	}
	if t.CompletedAt != nil {
		c.Printf("  Done:     %s\n", FormatTime(*t.CompletedAt))
	}
}

// PrintCalendars prints connected calendar feeds.
func (c *CLIFormatter) PrintCalendars(cals []*model.CalendarSync) {
	if len(cals) == 0 {
		c.Muted("No calendars connected.")
		c.Muted("Use 'projecthub calendar add <name> <url>' to connect one.")
		return
	}
	rows := make([]TableRow, 0, len(cals))
	for _, cal := range cals {
		status := cal.LastStatus
		switch {
		case !cal.Enabled:
			status = c.render(styleMuted, "disabled")
		case status == model.SyncStatusError:
			status = c.render(styleError, status)
		case status == model.SyncStatusOK:
			status = c.render(styleSuccess, status)
		}
		rows = append(rows, TableRow{Columns: []string{
			cal.ShortID(),
			cal.Name,
			status,
			strconv.Itoa(cal.EventCount),
			parser.FormatDuration(cal.Interval),
			FormatOptionalTime(cal.LastSyncAt),
			cal.ProjectSID,
		}})
	}
	c.PrintTable([]string{"ID", "NAME", "STATUS", "EVENTS", "EVERY", "LAST SYNC", "PROJECT"}, rows)

	for _, cal := range cals {
		if cal.LastStatus == model.SyncStatusError && cal.LastError != "" {
			c.Muted(fmt.Sprintf("  %s: %s", cal.ShortID(), cal.LastError))
		}
	}
}

// PrintSyncResult prints the outcome of one calendar sync.
func (c *CLIFormatter) PrintSyncResult(res *calsync.Result) {
	name := res.Name
	if name == "" {
		name = res.SyncID
	}
	switch {
	case res.Err != nil:
		c.Error(fmt.Sprintf("%s: %v", name, res.Err))
		return
	case res.Unchanged:
		c.Success(fmt.Sprintf("%s: not modified", name))
	default:
		c.Success(fmt.Sprintf("%s: %d events (+%d ~%d -%d) in %s",
			name, res.Total, res.Added, res.Updated, res.Removed, res.Duration.Round(time.Millisecond)))
	}
	for _, w := range res.Warnings {
		c.Warning(w)
	}
	if res.MirrorErr != "" {
		c.Warning("mirror: " + res.MirrorErr)
	}
}

// PrintEvents prints events grouped by local day.
func (c *CLIFormatter) PrintEvents(events []*model.SyncedEvent, calendars map[string]string, now time.Time) {
	if len(events) == 0 {
		c.Muted("No events in range.")
		return
	}
	var day time.Time
	for _, ev := range events {
		start := ev.Start.In(now.Location())
		if d := parser.StartOfDay(start); !d.Equal(day) {
			if !day.IsZero() {
				c.Println()
			}
			day = d
			c.Println(c.render(styleBold, d.Format("Monday, Jan 2")))
		}

		when := start.Format("15:04") + "-" + ev.End.In(now.Location()).Format("15:04")
		if ev.AllDay {
			when = "all day    "
		}
		line := when + "  " + ev.Title
		if ev.Location != "" {
			line += c.render(styleMuted, " @ "+ev.Location)
		}
		if name := calendars[ev.SyncID]; name != "" {
			line += c.render(styleMuted, " ["+name+"]")
		}
		c.Printf("  %s  %s\n", c.render(styleMuted, ev.ShortID()), line)
	}
}

// PrintWebhooks prints configured webhooks with masked URLs.
func (c *CLIFormatter) PrintWebhooks(hooks []*model.Webhook) {
	if len(hooks) == 0 {
		c.Muted("No webhooks configured.")
		c.Muted("Use 'projecthub webhook add <name> <url>' to add one.")
		return
	}
	rows := make([]TableRow, 0, len(hooks))
	for _, w := range hooks {
		state := c.render(styleSuccess, "enabled")
		if !w.Enabled {
			state = c.render(styleMuted, "disabled")
		}
		last := FormatOptionalTime(w.LastUsed)
		if w.LastError != "" {
			last += " " + c.render(styleError, "(failed)")
		}
		rows = append(rows, TableRow{Columns: []string{w.Name, w.Type, state, last, w.MaskedURL()}})
	}
	c.PrintTable([]string{"NAME", "TYPE", "STATE", "LAST USED", "URL"}, rows)
}

// PrintActivity prints activity entries, newest first as given.
func (c *CLIFormatter) PrintActivity(entries []*model.ActivityLog) {
	if len(entries) == 0 {
		c.Muted("No activity yet.")
		return
	}
	for _, a := range entries {
		c.Printf("%s  %-22s %s\n", c.render(styleMuted, FormatTime(a.CreatedAt)), a.Action, a.Message)
	}
}

// PrintNotifyConfig prints notification preferences.
func (c *CLIFormatter) PrintNotifyConfig(cfg *model.NotifyConfig) {
	c.Title("Notifications")
	c.Printf("  event_lead_times: %s\n", strings.Join(cfg.EventLeadTimes, ", "))
	c.Printf("  task_lead_times:  %s\n", strings.Join(cfg.TaskLeadTimes, ", "))
	c.Printf("  daily_agenda_at:  %s\n", cfg.DailyAgendaAt)
	for _, t := range model.NotificationTypes() {
		state := "on"
		if !cfg.IsTypeEnabled(t) {
			state = "off"
		}
		c.Printf("  %-17s %s\n", string(t)+":", state)
	}
}

// TableRow is one row of PrintTable.
type TableRow struct {
	Columns []string
}

// PrintTable prints an aligned table. When the table is wider than the
// terminal, the last column is truncated to fit.
func (c *CLIFormatter) PrintTable(headers []string, rows []TableRow) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, col := range row.Columns {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(col))
			}
		}
	}

	last := len(widths) - 1
	used := 0
	for _, w := range widths[:last] {
		used += w + 2
	}
	if avail := c.Width() - used; avail >= len(headers[last]) && widths[last] > avail {
		widths[last] = avail
	}

	pad := func(s string, w int) string {
		if gap := w - lipgloss.Width(s); gap > 0 {
			return s + strings.Repeat(" ", gap)
		}
		return s
	}

	var line strings.Builder
	for i, h := range headers {
		line.WriteString(pad(h, widths[i]) + "  ")
	}
	c.Println(c.render(styleBold, strings.TrimRight(line.String(), " ")))

	line.Reset()
	for _, w := range widths {
		line.WriteString(strings.Repeat("─", w) + "  ")
	}
	c.Println(strings.TrimRight(line.String(), " "))

	for _, row := range rows {
		line.Reset()
		for i, col := range row.Columns {
			if i >= len(widths) {
				break
			}
			if i == last {
				col = Truncate(col, widths[i])
			}
			line.WriteString(pad(col, widths[i]) + "  ")
		}
		c.Println(strings.TrimRight(line.String(), " "))
	}
}
