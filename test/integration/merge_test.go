package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// TestMergeRepointsCrosswalk merges a duplicate player into a survivor and
// verifies the crosswalk, the alias pool, and the audit trail afterwards.
func TestMergeRepointsCrosswalk(t *testing.T) {
	tc := setupTestContext(t)

	// Same player twice: one row carries his old team, so the fingerprints
	// differ and both inserts went through.
	survivor := tc.seedPlayer(t, "Odell Beckham", "Odell", "Beckham", "WR", "LAR")
	duplicate := tc.seedPlayer(t, "Odell Beckham", "Odell", "Beckham", "WR", "CLE")

	require.NoError(t, tc.store.UpsertExternalID(tc.ctx, models.UpsertExternalIDRequest{
		PlayerID:     duplicate.ID,
		SourceName:   "draftkings",
		ExternalID:   "881234",
		ExternalName: "Odell Beckham Jr.",
		Confidence:   1.0,
	}))
	// "OBJ" lives on both players; "O. Beckham" only on the duplicate.
	require.NoError(t, tc.store.UpsertAlias(tc.ctx, models.CreateAliasRequest{
		PlayerID: survivor.ID, AliasName: "OBJ", SourceName: "draftkings", Confidence: 0.95,
	}))
	require.NoError(t, tc.store.UpsertAlias(tc.ctx, models.CreateAliasRequest{
		PlayerID: duplicate.ID, AliasName: "OBJ", SourceName: "draftkings", Confidence: 0.9,
	}))
	require.NoError(t, tc.store.UpsertAlias(tc.ctx, models.CreateAliasRequest{
		PlayerID: duplicate.ID, AliasName: "O. Beckham", SourceName: "draftkings", Confidence: 0.85,
	}))

	result, err := tc.store.Merge(tc.ctx, survivor.ID, duplicate.ID, "same player listed under a stale team", stringPtr("ops@example.com"))
	require.NoError(t, err)
	assert.Equal(t, survivor.ID, result.SurvivorID)
	assert.Equal(t, duplicate.ID, result.DuplicateID)
	assert.Equal(t, 1, result.MovedExternalIDs)
	assert.Equal(t, 1, result.MovedAliases)
	assert.Equal(t, 1, result.SkippedAliases)

	// The mapping now answers with the survivor and no longer lists under
	// the duplicate.
	player, err := tc.store.LookupByExternalID(tc.ctx, "draftkings", "881234")
	require.NoError(t, err)
	require.NotNil(t, player)
	assert.Equal(t, survivor.ID, player.ID)

	moved, err := tc.mappings.ListByPlayer(tc.ctx, survivor.ID)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, "881234", moved[0].ExternalID)

	left, err := tc.mappings.ListByPlayer(tc.ctx, duplicate.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	// The moved alias follows, and the colliding one kept the higher
	// confidence instead of duplicating.
	hits, err := tc.store.LookupAliases(tc.ctx, "draftkings", "o beckham")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, survivor.ID, hits[0].Player.ID)

	hits, err = tc.store.LookupAliases(tc.ctx, "draftkings", "obj")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, survivor.ID, hits[0].Player.ID)
	assert.InDelta(t, 0.95, hits[0].Confidence, 1e-9)

	// The duplicate's canonical name keeps resolving to the survivor.
	aliases, err := tc.aliases.ListByPlayer(tc.ctx, survivor.ID)
	require.NoError(t, err)
	found := false
	for _, a := range aliases {
		if a.AliasName == "odell beckham" && a.SourceName == "merge" {
			found = true
			assert.InDelta(t, 1.0, a.Confidence, 1e-9)
		}
	}
	assert.True(t, found, "merge should record the duplicate's name as a survivor alias")

	// The duplicate is archived and out of the matchable pool.
	archived, err := tc.players.Get(tc.ctx, duplicate.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())

	pool, err := tc.store.AllPlayers(tc.ctx)
	require.NoError(t, err)
	for _, p := range pool {
		assert.NotEqual(t, duplicate.ID, p.ID)
	}

	// Both sides of the merge can pull the audit row.
	history, err := tc.players.MergeHistory(tc.ctx, survivor.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, survivor.ID, history[0].SurvivorID)
	assert.Equal(t, duplicate.ID, history[0].DuplicateID)
	assert.Equal(t, "same player listed under a stale team", history[0].Reason)
	assert.Equal(t, 1, history[0].MovedExternalIDs)
	assert.Equal(t, 1, history[0].MovedAliases)
	require.NotNil(t, history[0].PerformedBy)
	assert.Equal(t, "ops@example.com", *history[0].PerformedBy)

	history, err = tc.players.MergeHistory(tc.ctx, duplicate.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

// TestMergeGuards covers the merges the repository must refuse.
func TestMergeGuards(t *testing.T) {
	tc := setupTestContext(t)

	survivor := tc.seedPlayer(t, "Derrick Henry", "Derrick", "Henry", "RB", "TEN")
	duplicate := tc.seedPlayer(t, "Derrick Henry", "Derrick", "Henry", "RB", "BAL")

	_, err := tc.store.Merge(tc.ctx, survivor.ID, survivor.ID, "oops", nil)
	require.Error(t, err, "a player cannot merge into itself")

	_, err = tc.store.Merge(tc.ctx, survivor.ID, duplicate.ID, "duplicate rows", nil)
	require.NoError(t, err)

	// The archived duplicate cannot survive a later merge.
	_, err = tc.store.Merge(tc.ctx, duplicate.ID, survivor.ID, "backwards", nil)
	require.Error(t, err)
}
