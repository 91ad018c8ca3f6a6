package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/parser"
	"github.com/manav03panchal/projecthub/internal/storage"
)

// tickMsg reloads data so syncs done by the daemon show up.
type tickMsg time.Time

// refreshMsg is sent when data needs to be refreshed.
type refreshMsg struct{}

// DashboardModel is the bubbletea model for the agenda dashboard.
type DashboardModel struct {
	// Data
	events    []*model.SyncedEvent
	tasks     []*model.Task
	calendars []*model.CalendarSync
	calNames  map[string]string
	dueToday  int
	doneToday int

	// Repositories
	eventRepo    *storage.SyncedEventRepo
	taskRepo     *storage.TaskRepo
	calendarRepo *storage.CalendarSyncRepo
	activityRepo *storage.ActivityRepo

	// UI state
	selected   int
	width      int
	height     int
	err        error
	message    string
	messageExp time.Time

	// Configuration
	refreshInterval time.Duration
	horizon         time.Duration
	maxEvents       int
	maxTasks        int
	now             func() time.Time
}

// DashboardConfig holds configuration for the dashboard.
type DashboardConfig struct {
	EventRepo       *storage.SyncedEventRepo
	TaskRepo        *storage.TaskRepo
	CalendarRepo    *storage.CalendarSyncRepo
	ActivityRepo    *storage.ActivityRepo
	RefreshInterval time.Duration
	// Horizon is how far ahead events are listed.
	Horizon   time.Duration
	MaxEvents int
	MaxTasks  int
	Now       func() time.Time
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(config DashboardConfig) *DashboardModel {
	if config.RefreshInterval == 0 {
		config.RefreshInterval = 30 * time.Second
	}
	if config.Horizon == 0 {
		config.Horizon = 48 * time.Hour
	}
	if config.MaxEvents == 0 {
		config.MaxEvents = 8
	}
	if config.MaxTasks == 0 {
		config.MaxTasks = 10
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &DashboardModel{
		eventRepo:       config.EventRepo,
		taskRepo:        config.TaskRepo,
		calendarRepo:    config.CalendarRepo,
		activityRepo:    config.ActivityRepo,
		refreshInterval: config.RefreshInterval,
		horizon:         config.Horizon,
		maxEvents:       config.MaxEvents,
		maxTasks:        config.MaxTasks,
		now:             config.Now,
		calNames:        make(map[string]string),
	}
}

// Init initializes the model.
func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.refreshCmd(),
	)
}

// Update handles messages and updates the model.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if !m.messageExp.IsZero() && m.now().After(m.messageExp) {
			m.message = ""
			m.messageExp = time.Time{}
		}
		m.loadData()
		return m, m.tickCmd()

	case refreshMsg:
		m.loadData()
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input.
func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.selected < len(m.tasks)-1 {
			m.selected++
		}

	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}

	case "x":
		task := m.selectedTask()
		if task == nil {
			m.setMessage("No task selected", 2*time.Second)
			return m, nil
		}
		if err := m.completeTask(task); err != nil {
			m.err = err
			return m, nil
		}
		m.setMessage(fmt.Sprintf("Done: %s", task.Title), 2*time.Second)
		m.loadData()

	case "r":
		m.loadData()
		m.setMessage("Refreshed", time.Second)
	}

	return m, nil
}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	now := m.now()
	sections := []string{m.renderHeader(now)}

	if m.err != nil {
		sections = append(sections, StyleError.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	if m.message != "" {
		sections = append(sections, StyleWarning.Render(m.message))
	}

	next := m.nextEvent(now)
	nextComp := &NextEventComponent{Event: next, Now: now, Width: m.width}
	if next != nil {
		nextComp.Calendar = m.calNames[next.SyncID]
	}
	sections = append(sections, nextComp.View())

	eventsComp := &EventsComponent{
		Events:    m.events,
		Calendars: m.calNames,
		Now:       now,
		Width:     m.width,
		Limit:     m.maxEvents,
	}
	sections = append(sections, eventsComp.View())

	tasksComp := &TasksComponent{
		Tasks:     m.tasks,
		Selected:  m.selected,
		DueToday:  m.dueToday,
		DoneToday: m.doneToday,
		Now:       now,
		Width:     m.width,
		Limit:     m.maxTasks,
	}
	sections = append(sections, tasksComp.View())

	if cals := (&CalendarsComponent{Calendars: m.calendars, Width: m.width}).View(); cals != "" {
		sections = append(sections, cals)
	}

	sections = append(sections, HelpBar())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader renders the dashboard header.
func (m *DashboardModel) renderHeader(now time.Time) string {
	title := StyleTitle.Render("ProjectHub Agenda")
	timeStr := StyleSubtitle.Render(now.Format("Mon Jan 2, 15:04"))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", timeStr) + "\n"
}

// loadData reloads events, tasks and calendars from the store.
func (m *DashboardModel) loadData() {
	now := m.now()

	events, err := m.eventRepo.ListRange("", now, now.Add(m.horizon))
	if err != nil {
		m.err = err
		return
	}

	all, err := m.taskRepo.ListFiltered(storage.TaskFilter{IncludeDone: true})
	if err != nil {
		m.err = err
		return
	}

	cals, err := m.calendarRepo.List()
	if err != nil {
		m.err = err
		return
	}

	m.events = events
	m.calendars = cals
	m.calNames = make(map[string]string, len(cals))
	for _, cal := range cals {
		m.calNames[cal.ID] = cal.Name
	}

	m.tasks = m.tasks[:0]
	m.dueToday, m.doneToday = 0, 0
	today := parser.StartOfDay(now)
	for _, t := range all {
		if t.DueDate != nil && parser.StartOfDay(t.DueDate.In(now.Location())).Equal(today) {
			m.dueToday++
			if t.IsDone() {
				m.doneToday++
			}
		}
		if !t.IsDone() {
			m.tasks = append(m.tasks, t)
		}
	}
	m.selected = max(min(m.selected, len(m.tasks)-1), 0)
	m.err = nil
}

// nextEvent returns the first event that has not ended yet.
func (m *DashboardModel) nextEvent(now time.Time) *model.SyncedEvent {
	for _, ev := range m.events {
		if ev.End.After(now) {
			return ev
		}
	}
	return nil
}

func (m *DashboardModel) selectedTask() *model.Task {
	if m.selected < 0 || m.selected >= len(m.tasks) {
		return nil
	}
	return m.tasks[m.selected]
}

// completeTask marks t done and records the move in the activity log.
func (m *DashboardModel) completeTask(t *model.Task) error {
	from := t.Status
	t.SetStatus(model.StatusDone, m.now())
	if err := m.taskRepo.Update(t); err != nil {
		return err
	}
	if m.activityRepo == nil {
		return nil
	}
	entry := model.NewActivity(model.ActionTaskMoved, "task", t.Key,
		fmt.Sprintf("Moved %q from %s to %s", t.Title, from, model.StatusDone)).
		WithMeta("from", string(from)).
		WithMeta("to", string(model.StatusDone))
	return m.activityRepo.Record(entry)
}

// setMessage sets a temporary message.
func (m *DashboardModel) setMessage(msg string, duration time.Duration) {
	m.message = msg
	m.messageExp = m.now().Add(duration)
}

// tickCmd returns a command that sends a tick message.
func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd returns a command that sends a refresh message.
func (m *DashboardModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{}
	}
}

// Run starts the dashboard TUI.
func Run(config DashboardConfig) error {
	p := tea.NewProgram(NewDashboardModel(config), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
