package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/renami-app/renami/internal/domain"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyUndoCmd)
	historyListCmd.Flags().IntP("limit", "n", 20, "Number of entries to show (0 = all)")
	historyListCmd.Flags().String("batch", "", "Only show the entries of this batch, oldest first")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show and revert past renames",
}

// ─── history list ───────────────────────────────────────────────────────────

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent rename attempts, newest first",
	Long: `List recent rename attempts, newest first. With --batch, list every
attempt of one batch in the order it was recorded; the batch ID is printed
after each rename run.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	batch, _ := cmd.Flags().GetString("batch")
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()
	if a.history == nil {
		return errors.New("history is disabled ([history].enabled = false)")
	}

	var entries []domain.HistoryEntry
	if batch != "" {
		entries, err = a.history.ListBatch(cmd.Context(), batch)
	} else {
		entries, err = a.history.ListRenames(cmd.Context(), limit)
	}
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No renames recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tSTATUS\tORIGINAL\tRENAMED TO")
	for _, e := range entries {
		status := "failed"
		switch {
		case e.UndoneAt != nil:
			status = "undone"
		case e.Success:
			status = "ok"
		}
		final := e.FinalPath
		if final == "" {
			final = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04"), status, e.OriginalPath, final)
	}
	return w.Flush()
}

// ─── history undo ───────────────────────────────────────────────────────────

var historyUndoCmd = &cobra.Command{
	Use:   "undo ID",
	Short: "Move a renamed file back to its original name",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryUndo,
}

func runHistoryUndo(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid history id %q", args[0])
	}
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.renamer.Undo(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Restored %s\n", entry.OriginalPath)
	return nil
}
