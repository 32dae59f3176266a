package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskguard/taskguard/internal/review"
)

var reviewForce bool

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the paused session against the active task",
	Long: `Review the current session against the active task: commit
accumulated changes as a WIP checkpoint and classify whether the
session still serves the task. Intended to run on every
session-pause event.`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewForce, "force", false, "classify even when nothing changed since the last pass")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	if !app.cfg.Hooks.SessionReviewEnabled {
		fmt.Println(mutedStyle.Render("session review is disabled in config"))
		return nil
	}

	lock, err := app.store.Lock()
	if err != nil {
		return err
	}
	defer lock.Release()

	reviewer := review.NewReviewer(app.client, app.inspector, app.branches, app.store, app.cfg, app.logger)
	verdict, err := reviewer.Review(cmd.Context(), review.Options{Force: reviewForce})
	if err != nil {
		return err
	}

	if verdict.NoOp {
		fmt.Println(mutedStyle.Render("Nothing to review: " + verdict.Reason))
		return nil
	}

	fmt.Println(headingStyle.Render("Session review for " + verdict.TaskID))
	fmt.Printf("  Verdict: %s\n", renderClassification(verdict.Classification))
	if verdict.Summary != "" {
		fmt.Printf("  %s\n", verdict.Summary)
	}
	if verdict.Committed {
		fmt.Printf("  Checkpoint: %s (%s)\n", verdict.CommitMessage, shortRef(verdict.CommitRef))
	} else {
		fmt.Println(mutedStyle.Render("  No checkpoint commit produced"))
	}
	return nil
}

func renderClassification(c review.Classification) string {
	switch c {
	case review.ClassOnTrack:
		return okStyle.Render(string(c))
	case review.ClassDeviation, review.ClassStuck:
		return failStyle.Render(string(c))
	default:
		return warnStyle.Render(string(c))
	}
}

func shortRef(ref string) string {
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}
