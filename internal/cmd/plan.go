package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskguard/taskguard/internal/plancap"
)

var planTaskID int

var planCmd = &cobra.Command{
	Use:   "plan [file]",
	Short: "Capture an approved plan as the active task",
	Long: `Capture an approved plan as a durable task record and make it the
active task. The plan text is read from the given file, or from stdin
when no file is given. When branching is enabled a task branch is
opened as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().IntVar(&planTaskID, "task", 0, "task id to (re)capture (0 = automatic)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	if !app.cfg.Hooks.PlanCaptureEnabled {
		fmt.Println(mutedStyle.Render("plan capture is disabled in config"))
		return nil
	}

	planText, err := readPlanText(args)
	if err != nil {
		return err
	}

	lock, err := app.store.Lock()
	if err != nil {
		return err
	}
	defer lock.Release()

	capturer := plancap.NewCapturer(app.client, app.store, app.branches, app.issues, app.cfg, app.logger)
	result, err := capturer.Capture(cmd.Context(), planText, planTaskID)
	if err != nil {
		return err
	}

	fmt.Println(headingStyle.Render(fmt.Sprintf("Captured %s: %s", result.Task.ExternalID(), result.Task.Title)))
	fmt.Printf("  Requirements: %d\n", len(result.Task.Requirements))
	if result.UsedFallback {
		fmt.Println(warnStyle.Render("  Plan expansion unavailable, captured with the minimal template"))
	}
	if result.BranchCreated {
		fmt.Printf("  Branch: %s\n", result.BranchName)
	}
	if result.IssueCreated {
		fmt.Printf("  Issue: %s\n", result.Task.Issue.URL)
	}
	for _, warning := range result.Warnings {
		fmt.Println(warnStyle.Render("  ! " + warning))
	}
	return nil
}

func readPlanText(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read plan file: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read plan from stdin: %w", err)
	}
	return string(data), nil
}
