package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/output"
	"github.com/manav03panchal/projecthub/internal/parser"
)

// soonThreshold highlights the next event box once it is this close.
const soonThreshold = 15 * time.Minute

// NextEventComponent shows the event in progress or the next one to start.
type NextEventComponent struct {
	Event    *model.SyncedEvent
	Calendar string
	Now      time.Time
	Width    int
}

// View renders the next event box.
func (c *NextEventComponent) View() string {
	if c.Event == nil {
		return StyleBox.Width(boxWidth(c.Width)).Render(StyleMuted.Render("No upcoming events"))
	}

	ev := c.Event
	box := StyleBox
	var content strings.Builder
	switch {
	case !ev.Start.After(c.Now):
		box = StyleNextBox
		content.WriteString(StyleSuccess.Render("● NOW"))
		if !ev.AllDay {
			content.WriteString(StyleMuted.Render("  ends " + parser.FormatTimeUntil(ev.End, c.Now)))
		}
	default:
		if ev.Start.Sub(c.Now) <= soonThreshold {
			box = StyleNextBox
		}
		content.WriteString(StyleTime.Render("NEXT"))
		content.WriteString(StyleMuted.Render("  starts " + parser.FormatTimeUntil(ev.Start, c.Now)))
	}
	content.WriteString("\n\n")
	content.WriteString(StyleSection.Render(ev.Title))
	content.WriteString("\n")
	content.WriteString(StyleSubtitle.Render(eventWhen(ev, c.Now)))
	if ev.Location != "" {
		content.WriteString("\n")
		content.WriteString(StyleSubtitle.Render("@ " + ev.Location))
	}
	if c.Calendar != "" {
		content.WriteString("\n")
		content.WriteString(StyleMuted.Render(c.Calendar))
	}
	return box.Width(boxWidth(c.Width)).Render(content.String())
}

func eventWhen(ev *model.SyncedEvent, now time.Time) string {
	if ev.AllDay {
		return "All day"
	}
	return parser.FormatDue(ev.Start, now) + " - " + ev.End.In(now.Location()).Format("3:04 PM")
}

// EventsComponent lists upcoming events.
type EventsComponent struct {
	Events    []*model.SyncedEvent
	Calendars map[string]string
	Now       time.Time
	Width     int
	Limit     int
}

// View renders the events box.
func (c *EventsComponent) View() string {
	var content strings.Builder
	content.WriteString(StyleSection.Render("Upcoming"))
	content.WriteString("\n")

	if len(c.Events) == 0 {
		content.WriteString(StyleMuted.Render("Nothing scheduled"))
		return StyleBox.Width(boxWidth(c.Width)).Render(content.String())
	}

	for i, ev := range c.Events {
		if c.Limit > 0 && i >= c.Limit {
			content.WriteString(StyleMuted.Render(fmt.Sprintf("\n… %d more", len(c.Events)-c.Limit)))
			break
		}
		when := "all day"
		if !ev.AllDay {
			when = parser.FormatDue(ev.Start, c.Now)
		}
		line := StyleTime.Render(fmt.Sprintf("%-22s", when)) + " " + ev.Title
		if name := c.Calendars[ev.SyncID]; name != "" {
			line += StyleMuted.Render(" [" + name + "]")
		}
		content.WriteString("\n")
		content.WriteString(line)
	}
	return StyleBox.Width(boxWidth(c.Width)).Render(content.String())
}

// TasksComponent lists open tasks with a cursor and today's progress.
type TasksComponent struct {
	Tasks     []*model.Task
	Selected  int
	DueToday  int
	DoneToday int
	Now       time.Time
	Width     int
	Limit     int
}

// View renders the tasks box.
func (c *TasksComponent) View() string {
	var content strings.Builder
	content.WriteString(StyleSection.Render("Tasks"))
	if c.DueToday > 0 {
		pct := float64(c.DoneToday) / float64(c.DueToday) * 100
		content.WriteString(fmt.Sprintf("  %s %d/%d due today done", ProgressBar(pct, 20), c.DoneToday, c.DueToday))
	}
	content.WriteString("\n")

	if len(c.Tasks) == 0 {
		content.WriteString(StyleMuted.Render("No open tasks"))
		return StyleBox.Width(boxWidth(c.Width)).Render(content.String())
	}

	// Scroll so the cursor stays visible.
	start := 0
	if c.Limit > 0 && c.Selected >= c.Limit {
		start = c.Selected - c.Limit + 1
	}
	end := len(c.Tasks)
	if c.Limit > 0 {
		end = min(end, start+c.Limit)
	}

	for i := start; i < end; i++ {
		content.WriteString("\n")
		content.WriteString(c.renderTask(c.Tasks[i], i == c.Selected))
	}
	if hidden := len(c.Tasks) - (end - start); hidden > 0 {
		content.WriteString(StyleMuted.Render(fmt.Sprintf("\n… %d more", hidden)))
	}
	return StyleBox.Width(boxWidth(c.Width)).Render(content.String())
}

func (c *TasksComponent) renderTask(t *model.Task, selected bool) string {
	cursor := "  "
	title := t.Title
	if selected {
		cursor = StyleSelected.Render("> ")
		title = StyleSelected.Render(title)
	}

	due := ""
	if t.DueDate != nil {
		due = " " + parser.FormatDue(*t.DueDate, c.Now)
		if t.IsOverdue(c.Now) {
			due = StyleError.Render(due)
		} else {
			due = StyleMuted.Render(due)
		}
	}

	prio := ""
	switch t.Priority {
	case model.PriorityUrgent:
		prio = StyleError.Render("!! ")
	case model.PriorityHigh:
		prio = StyleWarning.Render("! ")
	}
	return cursor + output.StatusIcon(t.Status) + " " + prio + title + " " +
		FormatProjectTask(t.ProjectSID, t.ShortID()) + due
}

// CalendarsComponent shows the sync state of each connected calendar.
type CalendarsComponent struct {
	Calendars []*model.CalendarSync
	Width     int
}

// View renders one line per calendar, or nothing when none are connected.
func (c *CalendarsComponent) View() string {
	if len(c.Calendars) == 0 {
		return ""
	}

	var lines []string
	for _, cal := range c.Calendars {
		state := StyleMuted.Render("never synced")
		switch {
		case !cal.Enabled:
			state = StyleMuted.Render("disabled")
		case cal.LastStatus == model.SyncStatusError:
			state = StyleError.Render("error: " + cal.LastError)
		case cal.LastStatus == model.SyncStatusOK:
			state = StyleSuccess.Render(fmt.Sprintf("%d events", cal.EventCount)) +
				StyleMuted.Render(", synced "+output.FormatTime(cal.LastSyncAt))
		}
		lines = append(lines, cal.Name+"  "+state)
	}
	return StyleMuted.Render("Calendars") + "\n" + strings.Join(lines, "\n")
}

// HelpBar renders the help bar at the bottom.
func HelpBar() string {
	keys := []struct {
		key  string
		desc string
	}{
		{"j/k", "move"},
		{"x", "done"},
		{"r", "refresh"},
		{"q", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, StyleHelpKey.Render(k.key)+" "+StyleHelpDesc.Render(k.desc))
	}
	return StyleHelp.Render(strings.Join(parts, "  •  "))
}
