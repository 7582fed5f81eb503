package suggestions

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/models"
)

func TestEngine_Score(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("identical names blend to 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, engine.Score("patrick mahomes", "patrick mahomes"))
	})

	t.Run("empty names score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, engine.Score("", "patrick mahomes"))
		assert.Equal(t, 0.0, engine.Score("patrick mahomes", ""))
	})

	t.Run("phonetic near miss", func(t *testing.T) {
		// smith vs smyth: ratio 0.8, jaro-winkler 13.4/15, levenshtein 0.8,
		// soundex S530 on both sides. Blend (1.6+1.34+0.8+0.5)/5 = 0.848.
		assert.InDelta(t, 0.848, engine.Score("smith", "smyth"), 0.0001)
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, engine.Score("smith", "smyth"), engine.Score("smyth", "smith"))
	})
}

func TestEngine_Rank(t *testing.T) {
	pool := []models.CanonicalPlayer{
		{ID: "p1", CanonicalName: "Mike Williams", Team: "LAC", Position: "WR"},
		{ID: "p2", CanonicalName: "Mike Williams", Team: "NYJ", Position: "WR"},
		{ID: "p3", CanonicalName: "Michael Williams", Team: "DET", Position: "TE"},
		{ID: "p4", CanonicalName: "Mike Wilson", Team: "SF", Position: "WR"},
		{ID: "p5", CanonicalName: "Tom Brady", Team: "TB", Position: "QB"},
	}

	t.Run("keeps the best candidates above the floor", func(t *testing.T) {
		engine := NewEngine(DefaultConfig())
		candidates := engine.Rank("mike williams", pool)

		require.Len(t, candidates, 3)
		// Both exact namesakes come first, pool order preserved on ties.
		assert.Equal(t, "p1", candidates[0].Player.ID)
		assert.Equal(t, 1.0, candidates[0].Score)
		assert.Equal(t, "p2", candidates[1].Player.ID)
		assert.Equal(t, 1.0, candidates[1].Score)
		assert.Less(t, candidates[2].Score, 1.0)

		for _, candidate := range candidates {
			assert.GreaterOrEqual(t, candidate.Score, DefaultMinScore)
			assert.NotEqual(t, "p5", candidate.Player.ID)
		}
	})

	t.Run("scores sorted descending", func(t *testing.T) {
		engine := NewEngine(Config{MinScore: 0.1, Limit: 10})
		candidates := engine.Rank("mike williams", pool)

		require.NotEmpty(t, candidates)
		for i := 1; i < len(candidates); i++ {
			assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
		}
	})

	t.Run("limit truncates", func(t *testing.T) {
		engine := NewEngine(Config{MinScore: 0.1, Limit: 2})
		candidates := engine.Rank("mike williams", pool)
		require.Len(t, candidates, 2)
	})

	t.Run("nothing close returns empty", func(t *testing.T) {
		engine := NewEngine(DefaultConfig())
		assert.Empty(t, engine.Rank("xzqv ploki", pool))
	})

	t.Run("empty name returns nil", func(t *testing.T) {
		engine := NewEngine(DefaultConfig())
		assert.Nil(t, engine.Rank("", pool))
	})

	t.Run("zero config falls back to defaults", func(t *testing.T) {
		engine := NewEngine(Config{})
		candidates := engine.Rank("mike williams", pool)
		require.Len(t, candidates, DefaultLimit)
		for _, candidate := range candidates {
			assert.GreaterOrEqual(t, candidate.Score, DefaultMinScore)
		}
	})
}

type sinkUpsert struct {
	PlayerID      string
	UnmatchedName string
	SourceName    string
	Similarity    float64
}

// fakeSink records calls and mimics the repository's already-reviewed no-op.
type fakeSink struct {
	upserts  []sinkUpsert
	reviewed map[string]bool
	pending  map[string]*models.AliasSuggestion
	reviews  []models.SuggestionStatus
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		reviewed: map[string]bool{},
		pending:  map[string]*models.AliasSuggestion{},
	}
}

func (f *fakeSink) Upsert(_ context.Context, playerID, unmatchedName, sourceName string, similarity float64) (*models.AliasSuggestion, error) {
	f.upserts = append(f.upserts, sinkUpsert{playerID, unmatchedName, sourceName, similarity})
	if f.reviewed[playerID+"|"+unmatchedName+"|"+sourceName] {
		return nil, nil
	}
	return &models.AliasSuggestion{
		ID:            fmt.Sprintf("sug-%d", len(f.upserts)),
		PlayerID:      playerID,
		UnmatchedName: unmatchedName,
		SourceName:    sourceName,
		Similarity:    similarity,
		Status:        models.SuggestionStatusPending,
	}, nil
}

func (f *fakeSink) Review(_ context.Context, id string, status models.SuggestionStatus, reviewedBy string) (*models.AliasSuggestion, error) {
	suggestion, ok := f.pending[id]
	if !ok {
		return nil, fmt.Errorf("suggestion %s not found", id)
	}
	f.reviews = append(f.reviews, status)
	suggestion.Status = status
	if reviewedBy != "" {
		suggestion.ReviewedBy = &reviewedBy
	}
	return suggestion, nil
}

func newTestService(store crosswalk.Store, sink Sink) *Service {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewService(NewEngine(DefaultConfig()), store, sink, logger)
}

func TestService_Capture(t *testing.T) {
	ctx := context.Background()
	store := crosswalk.NewMemoryStore()
	jefferson := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Justin Jefferson", Team: "MIN", Position: "WR"})
	store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Jalen Hurts", Team: "PHI", Position: "QB"})
	store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Tom Brady", Team: "TB", Position: "QB"})

	sink := newFakeSink()
	service := newTestService(store, sink)

	matchedID := jefferson.ID
	results := []models.MatchResult{
		{
			Record:   models.SourceRecord{SourceName: "draftkings", Name: "Justin Jefferson"},
			PlayerID: &matchedID,
			Status:   models.MatchStatusMatched,
		},
		{
			Record: models.SourceRecord{SourceName: "draftkings", Name: "J. Jefferson"},
			Status: models.MatchStatusUnmatched,
			Reason: "best candidate below threshold",
		},
		{
			// Same name again: ranked once per slate.
			Record: models.SourceRecord{SourceName: "draftkings", Name: "J. Jefferson"},
			Status: models.MatchStatusUnmatched,
		},
		{
			Record: models.SourceRecord{SourceName: "draftkings", Name: "......"},
			Status: models.MatchStatusUnmatched,
		},
	}

	written, err := service.Capture(ctx, results)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	require.Len(t, sink.upserts, 1)
	upsert := sink.upserts[0]
	assert.Equal(t, jefferson.ID, upsert.PlayerID)
	assert.Equal(t, "j jefferson", upsert.UnmatchedName)
	assert.Equal(t, "draftkings", upsert.SourceName)
	assert.GreaterOrEqual(t, upsert.Similarity, DefaultMinScore)
	assert.Less(t, upsert.Similarity, 1.0)
}

func TestService_Capture_AmbiguousNamesakes(t *testing.T) {
	ctx := context.Background()
	store := crosswalk.NewMemoryStore()
	chargers := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Mike Williams", Team: "LAC", Position: "WR"})
	jets := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Mike Williams", Team: "NYJ", Position: "WR"})

	sink := newFakeSink()
	service := newTestService(store, sink)

	results := []models.MatchResult{
		{
			Record: models.SourceRecord{SourceName: "fanduel", Name: "Mike Williams"},
			Status: models.MatchStatusAmbiguous,
			Reason: "2 candidates tied",
		},
	}

	written, err := service.Capture(ctx, results)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	suggested := map[string]bool{}
	for _, upsert := range sink.upserts {
		suggested[upsert.PlayerID] = true
		assert.Equal(t, 1.0, upsert.Similarity)
	}
	assert.True(t, suggested[chargers.ID])
	assert.True(t, suggested[jets.ID])
}

func TestService_Capture_AlreadyReviewed(t *testing.T) {
	ctx := context.Background()
	store := crosswalk.NewMemoryStore()
	jefferson := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Justin Jefferson", Team: "MIN", Position: "WR"})

	sink := newFakeSink()
	sink.reviewed[jefferson.ID+"|j jefferson|draftkings"] = true
	service := newTestService(store, sink)

	results := []models.MatchResult{
		{
			Record: models.SourceRecord{SourceName: "draftkings", Name: "J. Jefferson"},
			Status: models.MatchStatusUnmatched,
		},
	}

	written, err := service.Capture(ctx, results)
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.Len(t, sink.upserts, 1)
}

func TestService_Capture_MatchedOnly(t *testing.T) {
	ctx := context.Background()
	store := crosswalk.NewMemoryStore()
	mahomes := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Patrick Mahomes", Team: "KC", Position: "QB"})

	sink := newFakeSink()
	service := newTestService(store, sink)

	matchedID := mahomes.ID
	results := []models.MatchResult{
		{
			Record:   models.SourceRecord{SourceName: "draftkings", Name: "Patrick Mahomes"},
			PlayerID: &matchedID,
			Status:   models.MatchStatusMatched,
		},
	}

	written, err := service.Capture(ctx, results)
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.Empty(t, sink.upserts)
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()
	store := crosswalk.NewMemoryStore()
	jefferson := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Justin Jefferson", Team: "MIN", Position: "WR"})

	sink := newFakeSink()
	sink.pending["sug-1"] = &models.AliasSuggestion{
		ID:            "sug-1",
		PlayerID:      jefferson.ID,
		UnmatchedName: "j jefferson",
		SourceName:    "draftkings",
		Similarity:    0.87,
		Status:        models.SuggestionStatusPending,
	}
	service := newTestService(store, sink)

	suggestion, err := service.Approve(ctx, "sug-1", "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionStatusApproved, suggestion.Status)

	// The approved pairing is now a full-confidence alias.
	hits, err := store.LookupAliases(ctx, "draftkings", "j jefferson")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, jefferson.ID, hits[0].Player.ID)
	assert.Equal(t, 1.0, hits[0].Confidence)
}

func TestService_Reject(t *testing.T) {
	ctx := context.Background()
	store := crosswalk.NewMemoryStore()
	jefferson := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Justin Jefferson", Team: "MIN", Position: "WR"})

	sink := newFakeSink()
	sink.pending["sug-1"] = &models.AliasSuggestion{
		ID:            "sug-1",
		PlayerID:      jefferson.ID,
		UnmatchedName: "j jefferson",
		SourceName:    "draftkings",
		Status:        models.SuggestionStatusPending,
	}
	service := newTestService(store, sink)

	suggestion, err := service.Reject(ctx, "sug-1", "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionStatusRejected, suggestion.Status)

	// Rejection records the decision and nothing else.
	hits, err := store.LookupAliases(ctx, "draftkings", "j jefferson")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
