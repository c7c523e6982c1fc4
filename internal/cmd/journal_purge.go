package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IIExpanse/honest-sign-test-task/internal/output"
)

type purgeResult struct {
	Matched int   `json:"matched"`
	Deleted int64 `json:"deleted"`
	DryRun  bool  `json:"dry_run"`
}

var journalPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete journaled submissions",
	Example: `  crptdoc journal purge --before 720h
  crptdoc journal purge --kind network_error --dry-run
  crptdoc journal purge --all --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		q, err := queryFromFlags(cmd, time.Now())
		if err != nil {
			return err
		}
		if err := q.Validate(); err != nil {
			return err
		}

		yes, _ := cmd.Flags().GetBool("yes")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if q.All && !yes && !dryRun {
			return fmt.Errorf("--all requires --yes (or use --dry-run)")
		}

		cfg, err := loadConfig(cmd, journalFlagBindings)
		if err != nil {
			return err
		}
		journal, err := requireJournal(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer journal.Close() // nolint:errcheck

		count, err := journal.CountSubmissions(cmd.Context(), q)
		if err != nil {
			return err
		}

		result := purgeResult{Matched: count, DryRun: dryRun}
		if !dryRun && count > 0 {
			deleted, err := journal.PurgeSubmissions(cmd.Context(), q)
			if err != nil {
				return err
			}
			result.Deleted = deleted
		}

		if format == output.FormatJSON {
			rendered, err := output.MarshalJSON(result)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		}

		if dryRun {
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Would delete %d submission(s)\n", result.Matched)
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d submission(s)\n", result.Deleted)
		return err
	},
}

func init() {
	journalCmd.AddCommand(journalPurgeCmd)

	addQueryFlags(journalPurgeCmd)
	journalPurgeCmd.Flags().Bool("yes", false, "confirm deletion when using --all")
	journalPurgeCmd.Flags().Bool("dry-run", false, "report how many entries would be deleted")
	journalPurgeCmd.Flags().String("output-format", string(output.FormatTable), "output format: table, json")
}
