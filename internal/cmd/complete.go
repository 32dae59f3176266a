package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskguard/taskguard/internal/completion"
	"github.com/taskguard/taskguard/internal/pr"
	"github.com/taskguard/taskguard/internal/validate"
)

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Validate, squash, and integrate the active task",
	Long: `Complete the active task: run the configured validation checks,
collapse the session's WIP history into a single commit, mark the
task completed, and integrate the branch by direct merge or by
pushing it for a pull request.

A validation failure blocks completion and leaves the repository
untouched; the failures are reported so they can be fixed and
completion retried.`,
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	if !app.cfg.Hooks.CompletionEnabled {
		fmt.Println(mutedStyle.Render("completion handling is disabled in config"))
		return nil
	}

	lock, err := app.store.Lock()
	if err != nil {
		return err
	}
	defer lock.Release()

	cwd := app.branches.RepoDir()
	validator := validate.NewRunner(cwd, app.cfg.Validation, app.logger)
	prs := pr.NewCreator()

	controller := completion.NewController(
		app.client, app.inspector, app.branches, app.store,
		validator, app.issues, prs, app.cfg, app.logger)

	report, err := controller.Complete(cmd.Context())
	if report != nil {
		renderReport(report)
	}
	return err
}

func renderReport(report *completion.Report) {
	fmt.Println(headingStyle.Render(fmt.Sprintf("Completion report for %s: %s", report.TaskID, report.Title)))

	if report.AlreadyCompleted {
		fmt.Println(mutedStyle.Render("  Already completed, nothing to do"))
		return
	}

	renderValidation(report.Validation)

	switch report.Outcome {
	case completion.OutcomeBlocked:
		fmt.Println(failStyle.Render("  Outcome: blocked"))
		for _, warning := range report.Warnings {
			fmt.Println(warnStyle.Render("  ! " + warning))
		}
		return
	case completion.OutcomeDoneWithWarnings:
		fmt.Println(warnStyle.Render("  Outcome: done with warnings"))
	default:
		fmt.Println(okStyle.Render("  Outcome: done"))
	}

	if report.Git.SquashPerformed {
		fmt.Printf("  Squashed session history into %s\n", shortRef(report.Git.CommitRef))
	} else if report.Git.SkipReason != "" {
		fmt.Println(warnStyle.Render("  Squash skipped: " + report.Git.SkipReason))
	}

	switch report.Git.Integration {
	case completion.DirectMerge:
		if report.Git.MergedInto != "" {
			fmt.Printf("  Merged into %s\n", report.Git.MergedInto)
		}
	case completion.PullRequestPush:
		if report.Git.Pushed {
			fmt.Println("  Branch pushed")
		}
		if report.Git.PullRequestURL != "" {
			fmt.Printf("  Pull request: %s\n", report.Git.PullRequestURL)
		} else if report.Git.PullRequest != nil {
			fmt.Printf("  Pull request prepared: %s\n", report.Git.PullRequest.Title)
		}
	}

	for _, warning := range report.Warnings {
		fmt.Println(warnStyle.Render("  ! " + warning))
	}
}

func renderValidation(results validate.Results) {
	if len(results) == 0 {
		fmt.Println(mutedStyle.Render("  No validation checks configured"))
		return
	}
	for _, check := range results {
		if check.Passed {
			fmt.Printf("  %s %s\n", okStyle.Render("✓"), check.Name)
			continue
		}
		label := "✗"
		if check.TimedOut {
			label = "✗ (timeout)"
		}
		fmt.Printf("  %s %s\n", failStyle.Render(label), check.Name)
		if check.Output != "" {
			fmt.Println(mutedStyle.Render(indent(check.Output, "    ")))
		}
	}
}
