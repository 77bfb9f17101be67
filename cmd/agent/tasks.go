package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/frameforge/frameforge-agent/internal/config"
	"github.com/frameforge/frameforge-agent/internal/db"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

var (
	tasksProject string
	tasksLimit   int
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List render tasks for a project",
	Long:  `Reads the agent database directly and prints the most recent render tasks of a project, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tasksProject == "" {
			return fmt.Errorf("--project is required")
		}

		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		database, err := db.OpenExisting(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		repo := studio.NewRepository(database.Conn())
		tasks, err := repo.ListRenderTasks(cmd.Context(), tasksProject, tasksLimit)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No render tasks found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Type", "Shot", "Status", "Progress", "Created At", "Error"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, t := range tasks {
			table.Append([]string{
				t.ID,
				t.Type,
				t.ShotID,
				statusString(t.Status),
				strconv.Itoa(t.Progress) + "%",
				t.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				t.ErrorMessage,
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	tasksCmd.Flags().StringVarP(&tasksProject, "project", "p", "", "Project ID")
	tasksCmd.Flags().IntVarP(&tasksLimit, "limit", "n", 50, "Maximum number of tasks to show")
}

func statusString(status string) string {
	switch status {
	case studio.TaskStatusCompleted:
		return color.GreenString(status)
	case studio.TaskStatusError:
		return color.RedString(status)
	case studio.TaskStatusRendering:
		return color.CyanString(status)
	case studio.TaskStatusPaused:
		return color.YellowString(status)
	default:
		return status
	}
}
