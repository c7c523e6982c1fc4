package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IIExpanse/honest-sign-test-task/internal/config"
	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// ErrJournalDisabled is returned by OpenJournal when the driver is "none".
var ErrJournalDisabled = errors.New("submission journal is disabled")

// Journal records submission outcomes and serves the admin commands.
type Journal interface {
	RecordSubmission(ctx context.Context, outcome *core.SubmissionOutcome) error
	ListSubmissions(ctx context.Context, q SubmissionQuery) ([]core.SubmissionOutcome, error)
	CountSubmissions(ctx context.Context, q SubmissionQuery) (int, error)
	PurgeSubmissions(ctx context.Context, q SubmissionQuery) (int64, error)
	Close() error
}

var (
	_ Journal = (*Store)(nil)
	_ Journal = (*RedisJournal)(nil)
)

// OpenJournal opens and prepares the journal selected by cfg.Driver.
func OpenJournal(ctx context.Context, cfg config.JournalConfig) (Journal, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", config.JournalLibsql:
		s, err := Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case config.JournalRedis:
		return OpenRedis(ctx, cfg.Redis)
	case config.JournalNone:
		return nil, ErrJournalDisabled
	default:
		return nil, fmt.Errorf("unsupported journal driver: %s", cfg.Driver)
	}
}

// SubmissionQuery selects journal entries. Filters combine with AND.
type SubmissionQuery struct {
	All          bool
	ID           string
	Kind         core.OutcomeKind
	DocumentType core.DocumentType
	Since        time.Time
	Before       time.Time

	// Limit caps ListSubmissions; zero means no cap
	Limit int
}

func (q SubmissionQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	if q.All || q.hasFilter() {
		return nil
	}
	return errors.New("must specify --all, --id, --kind, --type, --since, or --before")
}

func (q SubmissionQuery) hasFilter() bool {
	return strings.TrimSpace(q.ID) != "" ||
		strings.TrimSpace(string(q.Kind)) != "" ||
		strings.TrimSpace(string(q.DocumentType)) != "" ||
		!q.Since.IsZero() ||
		!q.Before.IsZero()
}

func (q SubmissionQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var (
		conds []string
		args  []any
	)
	if id := strings.TrimSpace(q.ID); id != "" {
		conds = append(conds, "id = ?")
		args = append(args, id)
	}
	if kind := strings.TrimSpace(string(q.Kind)); kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}
	if docType := strings.TrimSpace(string(q.DocumentType)); docType != "" {
		conds = append(conds, "document_type = ?")
		args = append(args, docType)
	}
	if !q.Since.IsZero() {
		conds = append(conds, "requested_at >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Before.IsZero() {
		conds = append(conds, "requested_at < ?")
		args = append(args, q.Before.UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args, nil
}

// matches applies the query filters to a decoded outcome.
func (q SubmissionQuery) matches(o *core.SubmissionOutcome) bool {
	if id := strings.TrimSpace(q.ID); id != "" && o.Provenance.SubmissionID != id {
		return false
	}
	if kind := strings.TrimSpace(string(q.Kind)); kind != "" && string(o.Kind) != kind {
		return false
	}
	if docType := strings.TrimSpace(string(q.DocumentType)); docType != "" && string(o.DocumentType) != docType {
		return false
	}
	requested := o.Provenance.RequestedAt.UnixMilli()
	if !q.Since.IsZero() && requested < q.Since.UnixMilli() {
		return false
	}
	if !q.Before.IsZero() && requested >= q.Before.UnixMilli() {
		return false
	}
	return true
}
