package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/parser"
	"github.com/manav03panchal/projecthub/internal/storage"
	"github.com/manav03panchal/projecthub/internal/validate"
)

// taskCmd represents the task command.
var taskCmd = &cobra.Command{
	Use:     "task [command]",
	Aliases: []string{"tasks", "t"},
	Short:   "Manage tasks on project boards",
	Long: `Tasks live on a project's kanban board and move through
todo, in_progress, review and done.

Examples:
  projecthub task add client-work "Draft proposal" --due "friday 5pm" --priority high
  projecthub task add client-work --from-event 3f9a2c
  projecthub task list --project client-work
  projecthub task move a1b2c3 review
  projecthub task done a1b2c3`,
	RunE: runTaskList,
}

// Task subcommand flags.
var (
	taskAddFlagDue         string
	taskAddFlagPriority    string
	taskAddFlagAssignee    string
	taskAddFlagDescription string
	taskAddFlagFromEvent   string

	taskListFlagProject  string
	taskListFlagStatus   string
	taskListFlagAssignee string
	taskListFlagAll      bool

	taskEditFlagTitle       string
	taskEditFlagDue         string
	taskEditFlagPriority    string
	taskEditFlagAssignee    string
	taskEditFlagDescription string

	taskDeleteFlagForce bool
)

// taskAddCmd creates a task.
var taskAddCmd = &cobra.Command{
	Use:   "add PROJECT_SID [TITLE]",
	Short: "Add a task to a project",
	Long: `Add a task to a project board. The due date accepts natural language
("tomorrow 2pm", "friday 5pm", "in 3 days"), relative offsets ("+2h", "+1w")
and ISO dates ("2026-01-15 14:00").

With --from-event the task links to a synced event, taking its title and
start time unless they are given explicitly.`,
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completeProjectArgs,
	RunE:              runTaskAdd,
}

// taskListCmd lists tasks.
var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Args:    cobra.NoArgs,
	RunE:    runTaskList,
}

// taskShowCmd shows one task.
var taskShowCmd = &cobra.Command{
	Use:   "show TASK_ID",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

// taskMoveCmd changes a task's status.
var taskMoveCmd = &cobra.Command{
	Use:               "move TASK_ID STATUS",
	Aliases:           []string{"mv"},
	Short:             "Move a task to another column",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeTaskStatus,
	RunE:              runTaskMove,
}

// taskDoneCmd marks a task done.
var taskDoneCmd = &cobra.Command{
	Use:   "done TASK_ID",
	Short: "Mark a task done",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

// taskEditCmd edits a task.
var taskEditCmd = &cobra.Command{
	Use:   "edit TASK_ID",
	Short: "Edit a task",
	Long: `Edit a task's fields. Pass --due none to clear the due date.

Examples:
  projecthub task edit a1b2c3 --title "Send proposal"
  projecthub task edit a1b2c3 --due "next monday 9am" --priority urgent`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskEdit,
}

// taskDeleteCmd deletes a task.
var taskDeleteCmd = &cobra.Command{
	Use:     "delete TASK_ID",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskDelete,
}

func init() {
	taskAddCmd.Flags().StringVar(&taskAddFlagDue, "due", "", "Due date (e.g. \"friday 5pm\", \"+2d\")")
	taskAddCmd.Flags().StringVarP(&taskAddFlagPriority, "priority", "p", "medium", "Priority: low, medium, high, urgent")
	taskAddCmd.Flags().StringVarP(&taskAddFlagAssignee, "assignee", "a", "", "Assignee")
	taskAddCmd.Flags().StringVarP(&taskAddFlagDescription, "description", "d", "", "Description")
	taskAddCmd.Flags().StringVar(&taskAddFlagFromEvent, "from-event", "", "Create from a synced event ID")

	taskListCmd.Flags().StringVarP(&taskListFlagProject, "project", "p", "", "Filter by project SID")
	taskListCmd.Flags().StringVarP(&taskListFlagStatus, "status", "s", "", "Filter by status")
	taskListCmd.Flags().StringVarP(&taskListFlagAssignee, "assignee", "a", "", "Filter by assignee")
	taskListCmd.Flags().BoolVar(&taskListFlagAll, "all", false, "Include done tasks")
	taskListCmd.RegisterFlagCompletionFunc("project", completeProjects)

	taskEditCmd.Flags().StringVar(&taskEditFlagTitle, "title", "", "New title")
	taskEditCmd.Flags().StringVar(&taskEditFlagDue, "due", "", "New due date, or \"none\"")
	taskEditCmd.Flags().StringVarP(&taskEditFlagPriority, "priority", "p", "", "New priority")
	taskEditCmd.Flags().StringVarP(&taskEditFlagAssignee, "assignee", "a", "", "New assignee")
	taskEditCmd.Flags().StringVarP(&taskEditFlagDescription, "description", "d", "", "New description")

	taskDeleteCmd.Flags().BoolVar(&taskDeleteFlagForce, "force", false, "Skip confirmation")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	rootCmd.AddCommand(taskCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	now := time.Now()

	project, err := ctx.ProjectRepo.Get(parser.NormalizeSID(args[0]))
	if err != nil {
		return err
	}
	if project.Archived {
		return errors.NewUserError(
			fmt.Sprintf("Project %s is archived", project.SID),
			fmt.Sprintf("Unarchive it with 'projecthub project archive %s --undo'", project.SID))
	}

	var title string
	if len(args) > 1 {
		title = validate.SanitizeText(args[1])
	}

	var event *model.SyncedEvent
	if taskAddFlagFromEvent != "" {
		event, err = ctx.EventRepo.GetByShortID(taskAddFlagFromEvent)
		if err != nil {
			return err
		}
		if title == "" {
			title = event.Title
		}
	}
	if err := validate.TaskTitle(title); err != nil {
		return err
	}

	priority, ok := model.ParsePriority(taskAddFlagPriority)
	if !ok {
		return errors.ErrInvalidPriority
	}

	description := validate.SanitizeText(taskAddFlagDescription)
	if err := validate.Description(description); err != nil {
		return err
	}

	task := model.NewTask(project.SID, title)
	task.Priority = priority
	task.Assignee = strings.TrimSpace(taskAddFlagAssignee)
	task.Description = description

	switch {
	case taskAddFlagDue != "":
		due := parser.ParseDueDate(taskAddFlagDue, now)
		if due.Error != nil {
			return due.Error
		}
		task.DueDate = &due.Time
	case event != nil && event.Start.After(now):
		start := event.Start
		task.DueDate = &start
	}
	if event != nil {
		task.SourceEventKey = event.Key
		if task.Description == "" {
			task.Description = event.Description
		}
	}

	if err := ctx.TaskRepo.Create(task); err != nil {
		return err
	}

	recordActivity(model.NewActivity(model.ActionTaskCreated, model.PrefixTask, task.Key,
		fmt.Sprintf("Created task %q in %s", task.Title, task.ProjectSID)))

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTask(task, now)
	}

	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Added %s to %s", cli.TaskName(task.Title), cli.ProjectName(task.ProjectSID)))
	cli.PrintTask(task, now)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	filter := storage.TaskFilter{
		ProjectSID:  parser.NormalizeSID(taskListFlagProject),
		Assignee:    strings.TrimSpace(taskListFlagAssignee),
		IncludeDone: taskListFlagAll,
	}
	if taskListFlagStatus != "" {
		status, ok := model.ParseTaskStatus(taskListFlagStatus)
		if !ok {
			return errors.ErrInvalidStatus
		}
		filter.Status = status
	}

	tasks, err := ctx.TaskRepo.ListFiltered(filter)
	if err != nil {
		return err
	}

	now := time.Now()
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTasks(tasks, now)
	}
	ctx.CLIFormatter().PrintTasks(tasks, now)
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	task, err := ctx.TaskRepo.GetByShortID(args[0])
	if err != nil {
		return err
	}

	now := time.Now()
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTask(task, now)
	}
	ctx.CLIFormatter().PrintTask(task, now)
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	status, ok := model.ParseTaskStatus(args[1])
	if !ok {
		return errors.ErrInvalidStatus
	}
	return moveTask(args[0], status)
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	return moveTask(args[0], model.StatusDone)
}

// moveTask changes a task's status and records the move.
func moveTask(ref string, status model.TaskStatus) error {
	task, err := ctx.TaskRepo.GetByShortID(ref)
	if err != nil {
		return err
	}

	now := time.Now()
	from := task.Status
	if from != status {
		task.SetStatus(status, now)
		if err := ctx.TaskRepo.Update(task); err != nil {
			return err
		}
		recordActivity(model.NewActivity(model.ActionTaskMoved, model.PrefixTask, task.Key,
			fmt.Sprintf("Moved %q from %s to %s", task.Title, from, status)).
			WithMeta("from", string(from)).
			WithMeta("to", string(status)))
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTask(task, now)
	}
	cli := ctx.CLIFormatter()
	if from == status {
		cli.Muted(fmt.Sprintf("%s is already %s", task.ShortID(), status))
		return nil
	}
	cli.Success(fmt.Sprintf("%s %s → %s", cli.TaskName(task.Title), from, status))
	return nil
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	task, err := ctx.TaskRepo.GetByShortID(args[0])
	if err != nil {
		return err
	}

	now := time.Now()
	flags := cmd.Flags()
	if flags.Changed("title") {
		title := validate.SanitizeText(taskEditFlagTitle)
		if err := validate.TaskTitle(title); err != nil {
			return err
		}
		task.Title = title
	}
	if flags.Changed("due") {
		if strings.EqualFold(strings.TrimSpace(taskEditFlagDue), "none") {
			task.DueDate = nil
		} else {
			due := parser.ParseDueDate(taskEditFlagDue, now)
			if due.Error != nil {
				return due.Error
			}
			task.DueDate = &due.Time
		}
	}
	if flags.Changed("priority") {
		priority, ok := model.ParsePriority(taskEditFlagPriority)
		if !ok {
			return errors.ErrInvalidPriority
		}
		task.Priority = priority
	}
	if flags.Changed("assignee") {
		task.Assignee = strings.TrimSpace(taskEditFlagAssignee)
	}
	if flags.Changed("description") {
		description := validate.SanitizeText(taskEditFlagDescription)
		if err := validate.Description(description); err != nil {
			return err
		}
		task.Description = description
	}
	task.UpdatedAt = now

	if err := ctx.TaskRepo.Update(task); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintTask(task, now)
	}
	ctx.CLIFormatter().Success("Updated task " + task.ShortID())
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	task, err := ctx.TaskRepo.GetByShortID(args[0])
	if err != nil {
		return err
	}

	if !taskDeleteFlagForce && !confirm(fmt.Sprintf("Delete task %q?", task.Title)) {
		ctx.Formatter.Println("Cancelled.")
		return nil
	}

	if err := ctx.TaskRepo.Delete(task.ProjectSID, task.ID); err != nil {
		return err
	}

	recordActivity(model.NewActivity(model.ActionTaskDeleted, model.PrefixTask, task.Key,
		fmt.Sprintf("Deleted task %q from %s", task.Title, task.ProjectSID)))

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status": "deleted",
			"task":   task.ID,
		})
	}
	ctx.CLIFormatter().Success("Deleted task " + task.ShortID())
	return nil
}
