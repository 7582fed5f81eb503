package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uruley/4HorsemenDFS/pkg/matching"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/report"
	"github.com/uruley/4HorsemenDFS/pkg/resolver"
)

// TestResolveSlateLifecycle walks one provider slate through every resolution
// stage and verifies what the store learns along the way.
func TestResolveSlateLifecycle(t *testing.T) {
	tc := setupTestContext(t)

	mahomes := tc.seedPlayer(t, "Patrick Mahomes", "Patrick", "Mahomes", "QB", "KC")
	kelce := tc.seedPlayer(t, "Travis Kelce", "Travis", "Kelce", "TE", "KC")
	mccaffrey := tc.seedPlayer(t, "Christian McCaffrey", "Christian", "McCaffrey", "RB", "SF")

	// One known mapping and one known alias, as a bootstrap would leave them.
	require.NoError(t, tc.store.UpsertExternalID(tc.ctx, models.UpsertExternalIDRequest{
		PlayerID:     mahomes.ID,
		SourceName:   "draftkings",
		ExternalID:   "11816255",
		ExternalName: "Patrick Mahomes",
		Confidence:   1.0,
	}))
	require.NoError(t, tc.store.UpsertAlias(tc.ctx, models.CreateAliasRequest{
		PlayerID:   kelce.ID,
		AliasName:  "Travis Kelce",
		SourceName: "draftkings",
		Confidence: 1.0,
	}))

	res := tc.newResolver(resolver.Config{}, matching.Config{})

	records := []models.SourceRecord{
		{ExternalID: "11816255", Name: "P. Mahomes"}, // mapping decides, the name alone would not
		{Name: "Travis Kelce"},
		{Name: "Christian McCaffery", Team: "SF"}, // misspelled, only fuzzy can catch it
		{Name: "Quantavius Leslie"},               // nobody close
	}
	results, err := res.ResolveSlate(tc.ctx, "draftkings", records)
	require.NoError(t, err)
	require.Len(t, results, len(records))

	exact := resultFor(t, results, "P. Mahomes")
	assert.Equal(t, models.MatchStatusMatched, exact.Status)
	assert.Equal(t, models.MatchMethodExactCrosswalk, exact.Method)
	require.NotNil(t, exact.PlayerID)
	assert.Equal(t, mahomes.ID, *exact.PlayerID)
	assert.Equal(t, 1.0, exact.Similarity)

	aliased := resultFor(t, results, "Travis Kelce")
	assert.Equal(t, models.MatchStatusMatched, aliased.Status)
	assert.Equal(t, models.MatchMethodAliasLookup, aliased.Method)
	require.NotNil(t, aliased.PlayerID)
	assert.Equal(t, kelce.ID, *aliased.PlayerID)

	fuzzy := resultFor(t, results, "Christian McCaffery")
	assert.Equal(t, models.MatchStatusMatched, fuzzy.Status)
	assert.Equal(t, models.MatchMethodFuzzyMatch, fuzzy.Method)
	require.NotNil(t, fuzzy.PlayerID)
	assert.Equal(t, mccaffrey.ID, *fuzzy.PlayerID)
	assert.GreaterOrEqual(t, fuzzy.Similarity, 0.8)
	assert.Less(t, fuzzy.Similarity, 1.0)

	missed := resultFor(t, results, "Quantavius Leslie")
	assert.Equal(t, models.MatchStatusUnmatched, missed.Status)
	assert.Nil(t, missed.PlayerID)
	assert.Contains(t, missed.Reason, "below threshold")

	summary := report.Generate(results).Summary
	assert.Equal(t, 4, summary.TotalRecords)
	assert.Equal(t, 3, summary.MatchedCount)
	assert.Equal(t, 1, summary.UnmatchedCount)
	assert.Equal(t, 0, summary.AmbiguousCount)
	assert.Equal(t, 1, summary.ExactMatches)
	assert.Equal(t, 1, summary.AliasMatches)
	assert.Equal(t, 1, summary.FuzzyMatches)
	assert.Equal(t, 75.0, summary.MatchRate)

	// The fuzzy match taught the store the observed spelling; the unmatched
	// name taught it nothing.
	hits, err := tc.store.LookupAliases(tc.ctx, "draftkings", "christian mccaffery")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, mccaffrey.ID, hits[0].Player.ID)
	assert.InDelta(t, fuzzy.Similarity, hits[0].Confidence, 1e-9)

	hits, err = tc.store.LookupAliases(tc.ctx, "draftkings", "quantavius leslie")
	require.NoError(t, err)
	assert.Empty(t, hits)

	// The next slate resolves the misspelling by lookup alone.
	results, err = res.ResolveSlate(tc.ctx, "draftkings", []models.SourceRecord{{Name: "Christian McCaffery"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.MatchStatusMatched, results[0].Status)
	assert.Equal(t, models.MatchMethodAliasLookup, results[0].Method)
	require.NotNil(t, results[0].PlayerID)
	assert.Equal(t, mccaffrey.ID, *results[0].PlayerID)
}

// TestResolveSlateTieBreaking covers two players sharing a name: ambiguous
// without a team, pinned down with one, and afterwards decided by the alias
// the pinned match learned.
func TestResolveSlateTieBreaking(t *testing.T) {
	tc := setupTestContext(t)

	quarterback := tc.seedPlayer(t, "Lamar Jackson", "Lamar", "Jackson", "QB", "BAL")
	cornerback := tc.seedPlayer(t, "Lamar Jackson", "Lamar", "Jackson", "CB", "NYJ")

	res := tc.newResolver(resolver.Config{}, matching.Config{})

	// Both players score 1.0 and nothing on the record separates them.
	results, err := res.ResolveSlate(tc.ctx, "draftkings", []models.SourceRecord{{Name: "Lamar Jackson"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.MatchStatusAmbiguous, results[0].Status)
	assert.Nil(t, results[0].PlayerID)
	assert.Contains(t, results[0].Reason, "tied")

	// Ambiguity is terminal, not learned: no alias was written.
	hits, err := tc.store.LookupAliases(tc.ctx, "draftkings", "lamar jackson")
	require.NoError(t, err)
	assert.Empty(t, hits)

	// The record's team filters the tie down to one player.
	results, err = res.ResolveSlate(tc.ctx, "draftkings", []models.SourceRecord{{Name: "Lamar Jackson", Team: "BAL"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.MatchStatusMatched, results[0].Status)
	assert.Equal(t, models.MatchMethodFuzzyMatch, results[0].Method)
	require.NotNil(t, results[0].PlayerID)
	assert.Equal(t, quarterback.ID, *results[0].PlayerID)
	assert.Equal(t, 1.0, results[0].Similarity)

	// That match learned the spelling, so the teamless record now resolves
	// by lookup to the player the team once had to single out.
	results, err = res.ResolveSlate(tc.ctx, "draftkings", []models.SourceRecord{{Name: "Lamar Jackson"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.MatchStatusMatched, results[0].Status)
	assert.Equal(t, models.MatchMethodAliasLookup, results[0].Method)
	require.NotNil(t, results[0].PlayerID)
	assert.Equal(t, quarterback.ID, *results[0].PlayerID)
	assert.NotEqual(t, cornerback.ID, *results[0].PlayerID)
}

// TestTeamPrefilterFallsBackToFullPool verifies the prefilter only saves
// work: a record carrying a stale team still matches against the full pool.
func TestTeamPrefilterFallsBackToFullPool(t *testing.T) {
	tc := setupTestContext(t)

	mccaffrey := tc.seedPlayer(t, "Christian McCaffrey", "Christian", "McCaffrey", "RB", "SF")
	tc.seedPlayer(t, "Adam Thielen", "Adam", "Thielen", "WR", "CAR")

	res := tc.newResolver(resolver.Config{TeamPrefilter: true}, matching.Config{})

	// The provider still lists his old team; the CAR subset scores nobody
	// close, so resolution retries against everyone.
	results, err := res.ResolveSlate(tc.ctx, "draftkings", []models.SourceRecord{{Name: "Christian McCaffrey", Team: "CAR"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.MatchStatusMatched, results[0].Status)
	assert.Equal(t, models.MatchMethodFuzzyMatch, results[0].Method)
	require.NotNil(t, results[0].PlayerID)
	assert.Equal(t, mccaffrey.ID, *results[0].PlayerID)
	assert.Equal(t, 1.0, results[0].Similarity)
}
