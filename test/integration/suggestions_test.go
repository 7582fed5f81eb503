package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uruley/4HorsemenDFS/pkg/matching"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/resolver"
	"github.com/uruley/4HorsemenDFS/pkg/suggestions"
)

// TestSuggestionReviewFlow drives a near-miss from unmatched result through
// the review queue to an approved alias that resolves the next slate.
func TestSuggestionReviewFlow(t *testing.T) {
	tc := setupTestContext(t)

	mccaffrey := tc.seedPlayer(t, "Christian McCaffrey", "Christian", "McCaffrey", "RB", "SF")
	tc.seedPlayer(t, "Patrick Mahomes", "Patrick", "Mahomes", "QB", "KC")
	tc.seedPlayer(t, "Justin Jefferson", "Justin", "Jefferson", "WR", "MIN")

	// Under a strict threshold the misspelling misses, which is exactly the
	// situation the review queue exists for.
	strict := tc.newResolver(resolver.Config{}, matching.Config{Threshold: 0.95})
	results, err := strict.ResolveSlate(tc.ctx, "fanduel", []models.SourceRecord{{Name: "Christian McCaffery"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, models.MatchStatusUnmatched, results[0].Status)

	engine := suggestions.NewEngine(suggestions.Config{MinScore: 0.5, Limit: 3})
	svc := suggestions.NewService(engine, tc.store, tc.queue, tc.logger)

	written, err := svc.Capture(tc.ctx, results)
	require.NoError(t, err)
	require.GreaterOrEqual(t, written, 1)

	pending, err := tc.queue.List(tc.ctx, models.SuggestionStatusPending, nil, 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, pending.Items)

	// Best similarity first, so the real player tops the queue.
	top := pending.Items[0]
	assert.Equal(t, mccaffrey.ID, top.PlayerID)
	assert.Equal(t, "christian mccaffery", top.UnmatchedName)
	assert.Equal(t, "fanduel", top.SourceName)
	assert.Equal(t, models.SuggestionStatusPending, top.Status)

	// Capturing the same slate again updates rows instead of duplicating.
	_, err = svc.Capture(tc.ctx, results)
	require.NoError(t, err)
	recaptured, err := tc.queue.List(tc.ctx, models.SuggestionStatusPending, nil, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, pending.TotalCount, recaptured.TotalCount)

	approved, err := svc.Approve(tc.ctx, top.ID, "reviewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, "reviewer@example.com", *approved.ReviewedBy)

	// The approved pairing now resolves by lookup at full confidence, at the
	// production threshold that rejected it before.
	std := tc.newResolver(resolver.Config{}, matching.Config{})
	results, err = std.ResolveSlate(tc.ctx, "fanduel", []models.SourceRecord{{Name: "Christian McCaffery"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.MatchStatusMatched, results[0].Status)
	assert.Equal(t, models.MatchMethodAliasLookup, results[0].Method)
	require.NotNil(t, results[0].PlayerID)
	assert.Equal(t, mccaffrey.ID, *results[0].PlayerID)
	assert.Equal(t, 1.0, results[0].Similarity)

	// A decided suggestion stays decided; recapture cannot re-queue it.
	_, err = svc.Capture(tc.ctx, []models.MatchResult{{
		Record: models.SourceRecord{SourceName: "fanduel", Name: "Christian McCaffery"},
		Status: models.MatchStatusUnmatched,
	}})
	require.NoError(t, err)
	pendingAfter, err := tc.queue.List(tc.ctx, models.SuggestionStatusPending, nil, 1, 10)
	require.NoError(t, err)
	for _, item := range pendingAfter.Items {
		assert.NotEqual(t, top.ID, item.ID)
	}
}

// TestSuggestionRejectWritesNothing verifies rejection records the decision
// without touching the crosswalk.
func TestSuggestionRejectWritesNothing(t *testing.T) {
	tc := setupTestContext(t)

	mccaffrey := tc.seedPlayer(t, "Christian McCaffrey", "Christian", "McCaffrey", "RB", "SF")

	strict := tc.newResolver(resolver.Config{}, matching.Config{Threshold: 0.95})
	results, err := strict.ResolveSlate(tc.ctx, "fanduel", []models.SourceRecord{{Name: "Kristian McCaffrey"}})
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusUnmatched, results[0].Status)

	svc := suggestions.NewService(suggestions.NewEngine(suggestions.Config{MinScore: 0.5, Limit: 3}), tc.store, tc.queue, tc.logger)
	written, err := svc.Capture(tc.ctx, results)
	require.NoError(t, err)
	require.GreaterOrEqual(t, written, 1)

	pending, err := tc.queue.List(tc.ctx, models.SuggestionStatusPending, nil, 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, pending.Items)
	require.Equal(t, mccaffrey.ID, pending.Items[0].PlayerID)

	rejected, err := svc.Reject(tc.ctx, pending.Items[0].ID, "reviewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionStatusRejected, rejected.Status)

	hits, err := tc.store.LookupAliases(tc.ctx, "fanduel", "kristian mccaffrey")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
