package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/store"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect and manage the submission journal",
}

var journalFlagBindings = map[string]string{
	"journal-driver": "journal.driver",
	"journal-path":   "journal.path",
}

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.PersistentFlags().String("journal-driver", "", "journal driver override: libsql, redis")
	journalCmd.PersistentFlags().String("journal-path", "", "libsql journal path override")
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("all", false, "select all entries")
	cmd.Flags().String("id", "", "submission id")
	cmd.Flags().String("kind", "", "outcome kind (e.g. success, api_rejected)")
	cmd.Flags().String("type", "", "document type (e.g. LP_INTRODUCE_GOODS)")
	cmd.Flags().String("since", "", "entries requested at or after this time (RFC3339 or duration like 24h)")
	cmd.Flags().String("before", "", "entries requested before this time (RFC3339 or duration like 24h)")
}

// queryFromFlags builds a journal query. Relative times are measured back
// from now.
func queryFromFlags(cmd *cobra.Command, now time.Time) (store.SubmissionQuery, error) {
	all, _ := cmd.Flags().GetBool("all")
	id, _ := cmd.Flags().GetString("id")
	kind, _ := cmd.Flags().GetString("kind")
	docType, _ := cmd.Flags().GetString("type")
	since, _ := cmd.Flags().GetString("since")
	before, _ := cmd.Flags().GetString("before")

	q := store.SubmissionQuery{
		All:  all,
		ID:   strings.TrimSpace(id),
		Kind: core.OutcomeKind(strings.ToLower(strings.TrimSpace(kind))),
	}

	if strings.TrimSpace(docType) != "" {
		parsed, err := core.ParseDocumentType(docType)
		if err != nil {
			return q, err
		}
		q.DocumentType = parsed
	}

	var err error
	if q.Since, err = parseQueryTime(since, now); err != nil {
		return q, fmt.Errorf("--since: %w", err)
	}
	if q.Before, err = parseQueryTime(before, now); err != nil {
		return q, fmt.Errorf("--before: %w", err)
	}
	return q, nil
}

func parseQueryTime(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("duration must not be negative: %s", value)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 time or duration, got %q", value)
	}
	return t, nil
}
