package output

import (
	"time"

	"github.com/manav03panchal/projecthub/internal/calsync"
	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ProjectOutput represents a project in JSON output.
type ProjectOutput struct {
	SID         string        `json:"sid"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description,omitempty"`
	Color       string        `json:"color,omitempty"`
	Archived    bool          `json:"archived"`
	OpenTasks   int           `json:"open_tasks"`
	CreatedAt   string        `json:"created_at"`
	Tasks       []*TaskOutput `json:"tasks,omitempty"`
}

// NewProjectOutput creates a ProjectOutput from a Project.
func NewProjectOutput(p *model.Project, openTasks int) *ProjectOutput {
	return &ProjectOutput{
		SID:         p.SID,
		DisplayName: p.DisplayName,
		Description: p.Description,
		Color:       p.Color,
		Archived:    p.Archived,
		OpenTasks:   openTasks,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

// TaskOutput represents a task in JSON output.
type TaskOutput struct {
	ID          string `json:"id"`
	ShortID     string `json:"short_id"`
	ProjectSID  string `json:"project_sid"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Assignee    string `json:"assignee,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Overdue     bool   `json:"overdue"`
	SourceEvent string `json:"source_event,omitempty"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// NewTaskOutput creates a TaskOutput from a Task.
func NewTaskOutput(t *model.Task, now time.Time) *TaskOutput {
	out := &TaskOutput{
		ID:          t.ID,
		ShortID:     t.ShortID(),
		ProjectSID:  t.ProjectSID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Assignee:    t.Assignee,
		Overdue:     t.IsOverdue(now),
		SourceEvent: t.SourceEventKey,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.DueDate != nil {
		out.DueDate = t.DueDate.Format(time.RFC3339)
	}
	if t.CompletedAt != nil {
		out.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

// CalendarOutput represents a calendar sync in JSON output. The feed URL is
// omitted since it usually embeds a private token.
type CalendarOutput struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProjectSID      string `json:"project_sid,omitempty"`
	Enabled         bool   `json:"enabled"`
	IntervalSeconds int64  `json:"interval_seconds"`
	LastSyncAt      string `json:"last_sync_at,omitempty"`
	NextSyncAt      string `json:"next_sync_at,omitempty"`
	LastStatus      string `json:"last_status"`
	LastError       string `json:"last_error,omitempty"`
	EventCount      int    `json:"event_count"`
}

// NewCalendarOutput creates a CalendarOutput from a CalendarSync.
func NewCalendarOutput(c *model.CalendarSync) *CalendarOutput {
	out := &CalendarOutput{
		ID:              c.ID,
		Name:            c.Name,
		ProjectSID:      c.ProjectSID,
		Enabled:         c.Enabled,
		IntervalSeconds: int64(c.Interval.Seconds()),
		LastStatus:      c.LastStatus,
		LastError:       c.LastError,
		EventCount:      c.EventCount,
	}
	if !c.LastSyncAt.IsZero() {
		out.LastSyncAt = c.LastSyncAt.Format(time.RFC3339)
		out.NextSyncAt = c.NextSyncAt().Format(time.RFC3339)
	}
	return out
}

// SyncResultOutput represents one sync run in JSON output.
type SyncResultOutput struct {
	Status     string   `json:"status"`
	SyncID     string   `json:"sync_id"`
	Name       string   `json:"name"`
	Unchanged  bool     `json:"unchanged"`
	Added      int      `json:"added"`
	Updated    int      `json:"updated"`
	Removed    int      `json:"removed"`
	Total      int      `json:"total"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	MirrorErr  string   `json:"mirror_error,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// NewSyncResultOutput creates a SyncResultOutput from a calsync.Result.
func NewSyncResultOutput(r *calsync.Result) *SyncResultOutput {
	out := &SyncResultOutput{
		Status:     "ok",
		SyncID:     r.SyncID,
		Name:       r.Name,
		Unchanged:  r.Unchanged,
		Added:      r.Added,
		Updated:    r.Updated,
		Removed:    r.Removed,
		Total:      r.Total,
		Warnings:   r.Warnings,
		DurationMs: r.Duration.Milliseconds(),
		MirrorErr:  r.MirrorErr,
	}
	if r.Err != nil {
		out.Status = "error"
		out.Error = logging.MaskString(r.Err.Error())
	}
	return out
}

// EventOutput represents a synced event in JSON output.
type EventOutput struct {
	ID         string   `json:"id"`
	SyncID     string   `json:"sync_id"`
	Calendar   string   `json:"calendar,omitempty"`
	UID        string   `json:"uid"`
	Title      string   `json:"title"`
	Location   string   `json:"location,omitempty"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	AllDay     bool     `json:"all_day"`
	Recurring  bool     `json:"recurring"`
	Organizer  string   `json:"organizer,omitempty"`
	Attendees  []string `json:"attendees,omitempty"`
	ProjectSID string   `json:"project_sid,omitempty"`
}

// NewEventOutput creates an EventOutput from a SyncedEvent.
func NewEventOutput(e *model.SyncedEvent, calendar string) *EventOutput {
	return &EventOutput{
		ID:         e.ShortID(),
		SyncID:     e.SyncID,
		Calendar:   calendar,
		UID:        e.UID,
		Title:      e.Title,
		Location:   e.Location,
		Start:      e.Start.Format(time.RFC3339),
		End:        e.End.Format(time.RFC3339),
		AllDay:     e.AllDay,
		Recurring:  e.Recurring,
		Organizer:  e.Organizer,
		Attendees:  e.Attendees,
		ProjectSID: e.ProjectSID,
	}
}

// EventsResponse represents the events command output in JSON.
type EventsResponse struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Events []*EventOutput `json:"events"`
}

// WebhookOutput represents a webhook in JSON output.
type WebhookOutput struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Enabled   bool   `json:"enabled"`
	Template  bool   `json:"template"`
	LastUsed  string `json:"last_used,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// NewWebhookOutput creates a WebhookOutput with the URL masked.
func NewWebhookOutput(w *model.Webhook) *WebhookOutput {
	out := &WebhookOutput{
		Name:      w.Name,
		Type:      w.Type,
		URL:       w.MaskedURL(),
		Enabled:   w.Enabled,
		Template:  w.Template != "",
		LastError: w.LastError,
	}
	if !w.LastUsed.IsZero() {
		out.LastUsed = w.LastUsed.Format(time.RFC3339)
	}
	return out
}

// ActivityOutput represents an activity entry in JSON output.
type ActivityOutput struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityKey  string            `json:"entity_key"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

// NewActivityOutput creates an ActivityOutput from an ActivityLog.
func NewActivityOutput(a *model.ActivityLog) *ActivityOutput {
	return &ActivityOutput{
		ID:         a.ID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityKey:  a.EntityKey,
		Message:    a.Message,
		Metadata:   a.Metadata,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}

// PrintError outputs an error in JSON format.
func (j *JSONFormatter) PrintError(status, errMsg, message string) error {
	return j.JSON(ErrorResponse{
		Status:  status,
		Error:   errMsg,
		Message: message,
	})
}

// PrintProjects outputs projects in JSON format.
func (j *JSONFormatter) PrintProjects(projects []*model.Project, openTasks map[string]int) error {
	out := make([]*ProjectOutput, len(projects))
	for i, p := range projects {
		out[i] = NewProjectOutput(p, openTasks[p.SID])
	}
	return j.JSON(map[string]any{"projects": out})
}

// PrintProject outputs one project with its tasks.
func (j *JSONFormatter) PrintProject(p *model.Project, tasks []*model.Task, now time.Time) error {
	out := NewProjectOutput(p, 0)
	for _, t := range tasks {
		if !t.IsDone() {
			out.OpenTasks++
		}
		out.Tasks = append(out.Tasks, NewTaskOutput(t, now))
	}
	return j.JSON(out)
}

// PrintTasks outputs tasks in JSON format.
func (j *JSONFormatter) PrintTasks(tasks []*model.Task, now time.Time) error {
	out := make([]*TaskOutput, len(tasks))
	for i, t := range tasks {
		out[i] = NewTaskOutput(t, now)
	}
	return j.JSON(map[string]any{"tasks": out})
}

// PrintTask outputs one task in JSON format.
func (j *JSONFormatter) PrintTask(t *model.Task, now time.Time) error {
	return j.JSON(NewTaskOutput(t, now))
}

// PrintCalendars outputs calendars in JSON format.
func (j *JSONFormatter) PrintCalendars(cals []*model.CalendarSync) error {
	out := make([]*CalendarOutput, len(cals))
	for i, c := range cals {
		out[i] = NewCalendarOutput(c)
	}
	return j.JSON(map[string]any{"calendars": out})
}

// PrintSyncResults outputs sync results in JSON format.
func (j *JSONFormatter) PrintSyncResults(results []*calsync.Result) error {
	out := make([]*SyncResultOutput, len(results))
	for i, r := range results {
		out[i] = NewSyncResultOutput(r)
	}
	return j.JSON(map[string]any{"results": out})
}

// PrintEvents outputs events in JSON format.
func (j *JSONFormatter) PrintEvents(events []*model.SyncedEvent, calendars map[string]string, from, to time.Time) error {
	resp := EventsResponse{
		From:   from.Format(time.RFC3339),
		To:     to.Format(time.RFC3339),
		Events: make([]*EventOutput, len(events)),
	}
	for i, e := range events {
		resp.Events[i] = NewEventOutput(e, calendars[e.SyncID])
	}
	return j.JSON(resp)
}

// PrintWebhooks outputs webhooks in JSON format.
func (j *JSONFormatter) PrintWebhooks(hooks []*model.Webhook) error {
	out := make([]*WebhookOutput, len(hooks))
	for i, w := range hooks {
		out[i] = NewWebhookOutput(w)
	}
	return j.JSON(map[string]any{"webhooks": out})
}

// PrintActivity outputs activity entries in JSON format.
func (j *JSONFormatter) PrintActivity(entries []*model.ActivityLog) error {
	out := make([]*ActivityOutput, len(entries))
	for i, a := range entries {
		out[i] = NewActivityOutput(a)
	}
	return j.JSON(map[string]any{"activity": out})
}
