package cmd

import (
	"bufio"
	"os"
	"strings"

	"github.com/manav03panchal/projecthub/internal/logging"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/storage"
)

// calendarNames maps calendar IDs to names for event listings.
func calendarNames() (map[string]string, error) {
	cals, err := ctx.CalendarRepo.List()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(cals))
	for _, c := range cals {
		names[c.ID] = c.Name
	}
	return names, nil
}

// openTaskCounts counts tasks that are not done, per project.
func openTaskCounts() (map[string]int, error) {
	open, err := ctx.TaskRepo.ListFiltered(storage.TaskFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, t := range open {
		counts[t.ProjectSID]++
	}
	return counts, nil
}

// recordActivity appends to the activity log. A failed write is logged and
// never fails the command that caused it.
func recordActivity(a *model.ActivityLog) {
	if err := ctx.ActivityRepo.Record(a); err != nil {
		logging.Warn("failed to record activity",
			logging.KeyOperation, a.Action,
			logging.KeyError, err)
	}
}

// taskStatusNames lists the kanban statuses as strings.
func taskStatusNames() []string {
	statuses := model.TaskStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}

// confirm asks a yes/no question on stdin. JSON mode never prompts.
func confirm(prompt string) bool {
	if ctx.IsJSON() {
		return true
	}
	ctx.Formatter.Printf("%s [y/N] ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// errorString returns the error message or empty string if nil.
func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
