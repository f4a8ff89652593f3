package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/renami-app/renami/internal/domain"
)

var errFilesFailed = errors.New("some files could not be renamed")

func init() {
	rootCmd.AddCommand(renameCmd)
	renameCmd.Flags().BoolP("quiet", "q", false, "Only print the summary")
}

// ─── rename ─────────────────────────────────────────────────────────────────

var renameCmd = &cobra.Command{
	Use:   "rename FILE...",
	Short: "Rename files from their content",
	Long: `Process each file concurrently: extract its text, ask the active provider
for a name and rename it in place. A numeric suffix is added when the new
name is already taken. Exits non-zero if any file failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	quiet, _ := cmd.Flags().GetBool("quiet")

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	sum, err := a.renamer.ProcessBatch(ctx, args, func(res domain.RenameResult) {
		if quiet {
			return
		}
		mark := "✅"
		if !res.Success {
			mark = "❌"
		}
		fmt.Fprintf(out, "%s %s: %s\n", mark, res.OriginalPath, res.Message)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d/%d file(s) renamed.\n", sum.Succeeded, sum.Total)
	if a.history != nil && !quiet {
		fmt.Fprintf(out, "Batch %s (renami history list --batch %s)\n", sum.BatchID, sum.BatchID)
	}
	if !sum.AllSucceeded() {
		return fmt.Errorf("%w (%d failed)", errFilesFailed, sum.Failed())
	}
	return nil
}
