package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/IIExpanse/honest-sign-test-task/internal/output"
)

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled submissions",
	Long: `List journaled submissions, newest first.

Without filters the 50 most recent entries are shown.`,
	Example: `  crptdoc journal list
  crptdoc journal list --kind api_rejected --since 24h
  crptdoc journal list --type LP_INTRODUCE_GOODS --output-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := queryFromFlags(cmd, time.Now())
		if err != nil {
			return err
		}
		if err := q.Validate(); err != nil {
			// listing defaults to everything; only purge insists on a filter
			q.All = true
		}
		q.Limit, _ = cmd.Flags().GetInt("limit")
		if err := q.Validate(); err != nil {
			return err
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

		entries, err := journal.ListSubmissions(cmd.Context(), q)
		if err != nil {
			return err
		}

		format, sink, err := openOutput(cmd, "journal")
		if err != nil {
			return err
		}
		defer sink.close() // nolint:errcheck

		rendered, err := output.FormatJournal(format, entries)
		if err != nil {
			return err
		}
		return sink.write(rendered)
	},
}

func init() {
	journalCmd.AddCommand(journalListCmd)

	addQueryFlags(journalListCmd)
	addOutputFlags(journalListCmd)
	journalListCmd.Flags().Int("limit", 50, "maximum entries to show (0 for no limit)")
}
