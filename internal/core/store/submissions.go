package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

// RecordSubmission stores one outcome, replacing an entry with the same id.
func (s *Store) RecordSubmission(ctx context.Context, outcome *core.SubmissionOutcome) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if outcome == nil {
		return errors.New("outcome is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	var group, rejectionCode sql.NullString
	if outcome.ProductGroup != nil {
		group = sql.NullString{String: string(*outcome.ProductGroup), Valid: true}
	}
	if outcome.Rejection != nil {
		rejectionCode = sql.NullString{String: outcome.Rejection.Code, Valid: true}
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO submissions (
			id, kind, document_type, product_group, document_id, status_code, message,
			rejection_code, requested_at, resolved_at, gate_wait_ms, endpoint, outcome_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			document_id = excluded.document_id,
			status_code = excluded.status_code,
			message = excluded.message,
			rejection_code = excluded.rejection_code,
			resolved_at = excluded.resolved_at,
			gate_wait_ms = excluded.gate_wait_ms,
			outcome_json = excluded.outcome_json
	`,
		outcome.Provenance.SubmissionID,
		string(outcome.Kind),
		string(outcome.DocumentType),
		group,
		outcome.DocumentID,
		outcome.StatusCode,
		outcome.Message,
		rejectionCode,
		outcome.Provenance.RequestedAt.UnixMilli(),
		outcome.Provenance.ResolvedAt.UnixMilli(),
		outcome.Provenance.GateWait.Milliseconds(),
		outcome.Provenance.Endpoint,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// ListSubmissions returns matching entries, newest first.
func (s *Store) ListSubmissions(ctx context.Context, q SubmissionQuery) ([]core.SubmissionOutcome, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	limit := ""
	if q.Limit > 0 {
		limit = "LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT outcome_json
		FROM submissions
		%s
		ORDER BY requested_at DESC, id
		%s
	`, where, limit), args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []core.SubmissionOutcome{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan submissions: %w", err)
		}

		var outcome core.SubmissionOutcome
		if err := json.Unmarshal([]byte(payload), &outcome); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		entries = append(entries, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	return entries, nil
}

func (s *Store) CountSubmissions(ctx context.Context, q SubmissionQuery) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	row := s.DB.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*)
		FROM submissions
		%s
	`, where), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeSubmissions(ctx context.Context, q SubmissionQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM submissions
		%s
	`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("purge submissions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge submissions: %w", err)
	}
	return affected, nil
}
