package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/projecthub/internal/errors"
	"github.com/manav03panchal/projecthub/internal/model"
	"github.com/manav03panchal/projecthub/internal/parser"
	"github.com/manav03panchal/projecthub/internal/validate"
)

// projectCmd represents the project command.
var projectCmd = &cobra.Command{
	Use:     "project [PROJECT_SID]",
	Aliases: []string{"projects", "proj", "prj", "pj"},
	Short:   "Manage projects",
	Long: `List all projects, show details for a specific project, or manage projects.

Examples:
  projecthub project
  projecthub project client-work
  projecthub project create "Client Work" --color "#FF5733"
  projecthub project edit client-work --name "New Name"
  projecthub project archive client-work
  projecthub project delete client-work --force`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeProjectArgs,
	RunE:              runProjectList,
}

// Project subcommand flags.
var (
	projectCreateFlagSID         string
	projectCreateFlagColor       string
	projectCreateFlagDescription string
	projectEditFlagName          string
	projectEditFlagColor         string
	projectEditFlagDescription   string
	projectArchiveFlagUndo       bool
	projectDeleteFlagForce       bool
)

// projectCreateCmd creates a new project.
var projectCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCreate,
}

// projectEditCmd edits an existing project.
var projectEditCmd = &cobra.Command{
	Use:               "edit PROJECT_SID",
	Short:             "Edit a project",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeProjectArgs,
	RunE:              runProjectEdit,
}

// projectArchiveCmd hides a project from default listings.
var projectArchiveCmd = &cobra.Command{
	Use:               "archive PROJECT_SID",
	Short:             "Archive a project",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeProjectArgs,
	RunE:              runProjectArchive,
}

// projectDeleteCmd removes a project and its tasks.
var projectDeleteCmd = &cobra.Command{
	Use:     "delete PROJECT_SID",
	Aliases: []string{"rm", "remove"},
	Short:   "Delete a project and all of its tasks",
	Long: `Delete a project and all of its tasks. Calendars linked to the project
keep syncing but lose the link.

Examples:
  projecthub project delete old-client
  projecthub project delete old-client --force   # no confirmation`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeProjectArgs,
	RunE:              runProjectDelete,
}

func init() {
	// Create flags
	projectCreateCmd.Flags().StringVarP(&projectCreateFlagSID, "sid", "s", "", "Custom SID (auto-generated if omitted)")
	projectCreateCmd.Flags().StringVarP(&projectCreateFlagColor, "color", "c", "", "Hex color (#RRGGBB)")
	projectCreateCmd.Flags().StringVarP(&projectCreateFlagDescription, "description", "d", "", "Project description")

	// Edit flags
	projectEditCmd.Flags().StringVarP(&projectEditFlagName, "name", "n", "", "Update display name")
	projectEditCmd.Flags().StringVarP(&projectEditFlagColor, "color", "c", "", "Update color")
	projectEditCmd.Flags().StringVarP(&projectEditFlagDescription, "description", "d", "", "Update description")

	projectArchiveCmd.Flags().BoolVar(&projectArchiveFlagUndo, "undo", false, "Unarchive the project")
	projectDeleteCmd.Flags().BoolVar(&projectDeleteFlagForce, "force", false, "Skip confirmation")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectEditCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectList(cmd *cobra.Command, args []string) error {
	// If a project SID is provided, show that project
	if len(args) > 0 {
		return showProject(args[0])
	}

	projects, err := ctx.ProjectRepo.List()
	if err != nil {
		return err
	}
	counts, err := openTaskCounts()
	if err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintProjects(projects, counts)
	}
	ctx.CLIFormatter().PrintProjects(projects, counts)
	return nil
}

func showProject(sid string) error {
	project, err := ctx.ProjectRepo.Get(parser.NormalizeSID(sid))
	if err != nil {
		return err
	}

	tasks, err := ctx.TaskRepo.ListByProject(project.SID)
	if err != nil {
		return err
	}

	now := time.Now()
	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintProject(project, tasks, now)
	}
	ctx.CLIFormatter().PrintProject(project, tasks, now)
	return nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	displayName := validate.SanitizeName(args[0])
	if err := validate.Name("project name", displayName); err != nil {
		return err
	}

	sid := projectCreateFlagSID
	if sid == "" {
		sid = parser.ConvertToSID(displayName)
	}
	if err := validate.SID(sid); err != nil {
		return err
	}
	if err := validate.HexColor(projectCreateFlagColor); err != nil {
		return err
	}
	description := validate.SanitizeText(projectCreateFlagDescription)
	if err := validate.Description(description); err != nil {
		return err
	}

	project := model.NewProject(sid, displayName, projectCreateFlagColor)
	project.Description = description
	if err := ctx.ProjectRepo.Create(project); err != nil {
		return err
	}

	recordActivity(model.NewActivity(model.ActionProjectCreated, model.PrefixProject, project.Key,
		fmt.Sprintf("Created project %s", project.SID)))

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintProject(project, nil, time.Now())
	}

	cli := ctx.CLIFormatter()
	cli.Success(fmt.Sprintf("Created project %s (%s)", cli.ProjectName(project.SID), project.DisplayName))
	return nil
}

func runProjectEdit(cmd *cobra.Command, args []string) error {
	project, err := ctx.ProjectRepo.Get(parser.NormalizeSID(args[0]))
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("name") {
		name := validate.SanitizeName(projectEditFlagName)
		if err := validate.Name("project name", name); err != nil {
			return err
		}
		project.DisplayName = name
	}
	if cmd.Flags().Changed("color") {
		if err := validate.HexColor(projectEditFlagColor); err != nil {
			return err
		}
		project.Color = projectEditFlagColor
	}
	if cmd.Flags().Changed("description") {
		description := validate.SanitizeText(projectEditFlagDescription)
		if err := validate.Description(description); err != nil {
			return err
		}
		project.Description = description
	}

	if err := ctx.ProjectRepo.Update(project); err != nil {
		return err
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintProject(project, nil, time.Now())
	}
	ctx.CLIFormatter().Success("Updated project " + project.SID)
	return nil
}

func runProjectArchive(cmd *cobra.Command, args []string) error {
	project, err := ctx.ProjectRepo.Get(parser.NormalizeSID(args[0]))
	if err != nil {
		return err
	}

	project.Archived = !projectArchiveFlagUndo
	if err := ctx.ProjectRepo.Update(project); err != nil {
		return err
	}

	verb := "Archived"
	if projectArchiveFlagUndo {
		verb = "Unarchived"
	} else {
		recordActivity(model.NewActivity(model.ActionProjectArchived, model.PrefixProject, project.Key,
			fmt.Sprintf("Archived project %s", project.SID)))
	}

	if ctx.IsJSON() {
		return ctx.JSONFormatter().PrintProject(project, nil, time.Now())
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("%s project %s", verb, project.SID))
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	project, err := ctx.ProjectRepo.Get(parser.NormalizeSID(args[0]))
	if err != nil {
		return err
	}

	if !projectDeleteFlagForce && !confirm(fmt.Sprintf("Delete project %q and all of its tasks?", project.SID)) {
		ctx.Formatter.Println("Cancelled.")
		return nil
	}

	removed, err := ctx.TaskRepo.DeleteByProject(project.SID)
	if err != nil {
		return errors.Wrapf(err, "delete tasks of %s", project.SID)
	}
	if err := unlinkCalendars(project.SID); err != nil {
		return err
	}
	if err := ctx.ProjectRepo.Delete(project.SID); err != nil {
		return err
	}

	recordActivity(model.NewActivity(model.ActionProjectDeleted, model.PrefixProject, project.Key,
		fmt.Sprintf("Deleted project %s", project.SID)).
		WithMeta("tasks_removed", fmt.Sprint(removed)))

	if ctx.IsJSON() {
		return ctx.Formatter.JSON(map[string]any{
			"status":        "deleted",
			"project":       project.SID,
			"tasks_removed": removed,
		})
	}
	ctx.CLIFormatter().Success(fmt.Sprintf("Deleted project %s (%d tasks)", project.SID, removed))
	return nil
}

// unlinkCalendars clears the project link of calendars that pointed at sid.
func unlinkCalendars(sid string) error {
	cals, err := ctx.CalendarRepo.ListByProject(sid)
	if err != nil {
		return err
	}
	for _, c := range cals {
		c.ProjectSID = ""
		if err := ctx.CalendarRepo.Update(c); err != nil {
			return err
		}
	}
	return nil
}
