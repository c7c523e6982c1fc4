package cmd

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
)

type recordingSubmitter struct {
	mu       sync.Mutex
	inFlight atomic.Int32
	peak     int32
	seen     []string
}

func (s *recordingSubmitter) Submit(ctx context.Context, req core.SubmissionRequest) *core.SubmissionOutcome {
	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	s.mu.Lock()
	if current > s.peak {
		s.peak = current
	}
	s.seen = append(s.seen, req.Document.DocID)
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	if ctx.Err() != nil {
		return &core.SubmissionOutcome{Kind: core.KindCancelled, DocumentType: req.Type}
	}
	if req.Document.DocID == "bad" {
		return &core.SubmissionOutcome{Kind: core.KindAPIRejected, DocumentType: req.Type}
	}
	return &core.SubmissionOutcome{Kind: core.KindSuccess, DocumentType: req.Type, DocumentID: req.Document.DocID}
}

func requestsFor(ids ...string) []core.SubmissionRequest {
	requests := make([]core.SubmissionRequest, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, core.NewSubmissionRequest(
			core.ProductDocument{DocID: id}, nil, "sig", core.DocumentTypeIntroduceGoods))
	}
	return requests
}

func TestRunSubmissionsKeepsOrderAndBoundsWorkers(t *testing.T) {
	submitter := &recordingSubmitter{}
	requests := requestsFor("a", "b", "bad", "c", "d", "e")

	outcomes := runSubmissions(context.Background(), submitter, requests, 2)

	require.Len(t, outcomes, len(requests))
	for i, outcome := range outcomes {
		require.NotNil(t, outcome)
		if requests[i].Document.DocID == "bad" {
			assert.Equal(t, core.KindAPIRejected, outcome.Kind)
			continue
		}
		assert.Equal(t, requests[i].Document.DocID, outcome.DocumentID)
	}
	assert.LessOrEqual(t, submitter.peak, int32(2))
	assert.Len(t, submitter.seen, len(requests))
}

func TestRunSubmissionsCancelledStillResolvesEveryRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := runSubmissions(ctx, &recordingSubmitter{}, requestsFor("a", "b", "c"), 0)
	require.Len(t, outcomes, 3)
	for _, outcome := range outcomes {
		assert.Equal(t, core.KindCancelled, outcome.Kind)
	}
}

func TestRunSubmissionsEmpty(t *testing.T) {
	assert.Empty(t, runSubmissions(context.Background(), &recordingSubmitter{}, nil, 4))
}

func TestFirstFailure(t *testing.T) {
	failed, kind := firstFailure([]*core.SubmissionOutcome{
		{Kind: core.KindSuccess},
		{Kind: core.KindNetworkTimeout},
		nil,
		{Kind: core.KindAPIRejected},
	})
	assert.Equal(t, 2, failed)
	assert.Equal(t, core.KindNetworkTimeout, kind)

	failed, kind = firstFailure([]*core.SubmissionOutcome{{Kind: core.KindSuccess}})
	assert.Zero(t, failed)
	assert.Empty(t, kind)
}
