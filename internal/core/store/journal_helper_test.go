package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

func journalOutcome(id string, kind core.OutcomeKind, docType core.DocumentType, requestedAt time.Time) *core.SubmissionOutcome {
	group := core.ProductGroupMilk
	outcome := &core.SubmissionOutcome{
		Kind:         kind,
		DocumentType: docType,
		ProductGroup: &group,
		StatusCode:   200,
		Provenance: core.Provenance{
			SubmissionID: id,
			RequestedAt:  requestedAt,
			ResolvedAt:   requestedAt.Add(150 * time.Millisecond),
			GateWait:     100 * time.Millisecond,
			Endpoint:     "https://ismp.crpt.ru/api/v3/lk/documents/create",
		},
	}
	switch kind {
	case core.KindSuccess:
		outcome.DocumentID = "doc-" + id
	case core.KindAPIRejected:
		outcome.Rejection = &core.Rejection{Code: "X", ErrorMessage: "m", Description: "d"}
	}
	return outcome
}

// exerciseJournal runs the same record/list/count/purge scenario against any backend.
func exerciseJournal(t *testing.T, journal Journal) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, journal.RecordSubmission(ctx, journalOutcome("a", core.KindSuccess, core.DocumentTypeIntroduceGoods, base)))
	require.NoError(t, journal.RecordSubmission(ctx, journalOutcome("b", core.KindAPIRejected, core.DocumentTypeIntroduceGoods, base.Add(time.Minute))))
	require.NoError(t, journal.RecordSubmission(ctx, journalOutcome("c", core.KindNetworkTimeout, core.DocumentTypeShipGoods, base.Add(2*time.Minute))))

	all, err := journal.ListSubmissions(ctx, SubmissionQuery{All: true})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].Provenance.SubmissionID)
	require.Equal(t, "a", all[2].Provenance.SubmissionID)
	require.Equal(t, "doc-a", all[2].DocumentID)
	require.Equal(t, core.ProductGroupMilk, *all[2].ProductGroup)
	require.True(t, all[2].Provenance.RequestedAt.Equal(base))

	limited, err := journal.ListSubmissions(ctx, SubmissionQuery{All: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)

	rejected, err := journal.ListSubmissions(ctx, SubmissionQuery{Kind: core.KindAPIRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	require.Equal(t, &core.Rejection{Code: "X", ErrorMessage: "m", Description: "d"}, rejected[0].Rejection)

	count, err := journal.CountSubmissions(ctx, SubmissionQuery{DocumentType: core.DocumentTypeIntroduceGoods})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = journal.CountSubmissions(ctx, SubmissionQuery{Since: base.Add(time.Minute), Before: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// re-recording an id replaces the entry
	updated := journalOutcome("c", core.KindSuccess, core.DocumentTypeShipGoods, base.Add(2*time.Minute))
	require.NoError(t, journal.RecordSubmission(ctx, updated))
	byID, err := journal.ListSubmissions(ctx, SubmissionQuery{ID: "c"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	require.Equal(t, core.KindSuccess, byID[0].Kind)

	_, err = journal.ListSubmissions(ctx, SubmissionQuery{})
	require.Error(t, err)

	purged, err := journal.PurgeSubmissions(ctx, SubmissionQuery{Before: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Equal(t, int64(2), purged)

	remaining, err := journal.CountSubmissions(ctx, SubmissionQuery{All: true})
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
}
