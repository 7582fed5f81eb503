package suggestions

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/metrics"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

// Sink persists ranked suggestions. A nil suggestion with a nil error means
// the pairing was already reviewed and must not be reopened.
type Sink interface {
	Upsert(ctx context.Context, playerID, unmatchedName, sourceName string, similarity float64) (*models.AliasSuggestion, error)
	Review(ctx context.Context, id string, status models.SuggestionStatus, reviewedBy string) (*models.AliasSuggestion, error)
}

// Service captures suggestions from resolution results and applies review
// decisions back to the crosswalk.
type Service struct {
	engine *Engine
	store  crosswalk.Store
	sink   Sink
	logger ectologger.Logger
}

// NewService creates a suggestion Service.
func NewService(engine *Engine, store crosswalk.Store, sink Sink, logger ectologger.Logger) *Service {
	return &Service{
		engine: engine,
		store:  store,
		sink:   sink,
		logger: logger,
	}
}

// Capture ranks and persists suggestions for every non-matched result.
// Returns the number of suggestions written. Safe to call repeatedly with
// the same slate; already-reviewed pairings are left alone.
func (s *Service) Capture(ctx context.Context, results []models.MatchResult) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.Capture")
	defer span.End()

	pool, err := s.store.AllPlayers(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to load player pool for suggestions")
		return 0, err
	}

	written := 0
	seen := map[string]struct{}{}
	for _, result := range results {
		if result.Status == models.MatchStatusMatched {
			continue
		}

		normalized := normalizers.NormalizeName(result.Record.Name)
		if normalized == "" {
			continue
		}

		// A slate can repeat the same unresolvable name; rank it once.
		key := result.Record.SourceName + "\x00" + normalized
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		for _, candidate := range s.engine.Rank(normalized, pool) {
			suggestion, err := s.sink.Upsert(ctx, candidate.Player.ID, normalized, result.Record.SourceName, candidate.Score)
			if err != nil {
				s.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
					"unmatched_name": normalized,
					"source_name":    result.Record.SourceName,
					"player_id":      candidate.Player.ID,
				}).Error("Failed to persist alias suggestion")
				return written, err
			}
			if suggestion == nil {
				continue
			}
			written++
			metrics.SuggestionsCreatedTotal.WithLabelValues(result.Record.SourceName).Inc()
		}
	}

	if written > 0 {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"suggestions": written,
		}).Info("Captured alias suggestions")
	}
	return written, nil
}

// Approve accepts a pending suggestion and writes the alias it proposed.
// The alias gets confidence 1.0: a human has vouched for the pairing.
func (s *Service) Approve(ctx context.Context, id, reviewedBy string) (*models.AliasSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.Approve")
	defer span.End()

	suggestion, err := s.sink.Review(ctx, id, models.SuggestionStatusApproved, reviewedBy)
	if err != nil {
		return nil, err
	}

	err = s.store.UpsertAlias(ctx, models.CreateAliasRequest{
		PlayerID:   suggestion.PlayerID,
		AliasName:  suggestion.UnmatchedName,
		SourceName: suggestion.SourceName,
		Confidence: 1.0,
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"suggestion_id": suggestion.ID,
			"player_id":     suggestion.PlayerID,
		}).Error("Failed to write alias for approved suggestion")
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"suggestion_id": suggestion.ID,
		"player_id":     suggestion.PlayerID,
		"alias_name":    suggestion.UnmatchedName,
		"source_name":   suggestion.SourceName,
	}).Info("Approved alias suggestion")
	return suggestion, nil
}

// Reject dismisses a pending suggestion without touching the crosswalk.
func (s *Service) Reject(ctx context.Context, id, reviewedBy string) (*models.AliasSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestions.Service.Reject")
	defer span.End()

	return s.sink.Review(ctx, id, models.SuggestionStatusRejected, reviewedBy)
}
