// Package resolver implements entity resolution for source records: exact
// crosswalk lookup, then alias lookup, then fuzzy matching, learning aliases
// from every fuzzy match so later slates resolve without scoring.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/matching"
	"github.com/uruley/4HorsemenDFS/pkg/metrics"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

const (
	// PrecedenceCrosswalk checks the external id crosswalk before aliases.
	PrecedenceCrosswalk = "crosswalk"
	// PrecedenceAlias checks aliases before the external id crosswalk.
	PrecedenceAlias = "alias"

	// DefaultWorkerCount is the slate resolution pool size when unconfigured.
	DefaultWorkerCount = 4
)

// Config controls resolution behavior outside the acceptance policy, which
// lives on the Disambiguator.
type Config struct {
	// Precedence orders the exact stages when a record could satisfy both.
	Precedence string
	// TeamPrefilter scores only the record's team first, falling back to a
	// full scan when the subset produces no match. Off by default: it is an
	// optimization that trusts provider team data.
	TeamPrefilter bool
	// WorkerCount bounds the slate resolution pool.
	WorkerCount int
}

// Resolver resolves source records against the crosswalk store.
type Resolver struct {
	store         crosswalk.Store
	scorer        *matching.Scorer
	disambiguator *matching.Disambiguator
	cfg           Config
	logger        ectologger.Logger
}

// NewResolver creates a Resolver, filling zero config values with defaults.
func NewResolver(store crosswalk.Store, disambiguator *matching.Disambiguator, cfg Config, logger ectologger.Logger) *Resolver {
	if cfg.Precedence != PrecedenceAlias {
		cfg.Precedence = PrecedenceCrosswalk
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	return &Resolver{
		store:         store,
		scorer:        matching.NewScorer(),
		disambiguator: disambiguator,
		cfg:           cfg,
		logger:        logger,
	}
}

// Resolve resolves one source record, attempting each stage in strict order
// and short-circuiting on the first decisive outcome. Soft outcomes
// (unmatched, ambiguous) are results, not errors; an error means the store
// itself failed and the whole batch should stop.
func (r *Resolver) Resolve(ctx context.Context, record models.SourceRecord) (models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.Resolve")
	defer span.End()

	normalized := normalizers.NormalizeName(record.Name)

	stages := []func(context.Context, models.SourceRecord, string) (*models.MatchResult, error){
		r.lookupExternalID,
		r.lookupAlias,
	}
	if r.cfg.Precedence == PrecedenceAlias {
		stages[0], stages[1] = stages[1], stages[0]
	}

	for _, stage := range stages {
		result, err := stage(ctx, record, normalized)
		if err != nil {
			return models.MatchResult{}, err
		}
		if result != nil {
			r.count(*result)
			return *result, nil
		}
	}

	result, err := r.fuzzyMatch(ctx, record, normalized)
	if err != nil {
		return models.MatchResult{}, err
	}
	r.count(result)
	return result, nil
}

// ResolveSlate resolves a batch of records from one provider across a bounded
// worker pool. Output order matches input order. Records without a source
// name inherit the slate's. One unresolvable record never fails the batch;
// the first store error aborts it.
func (r *Resolver) ResolveSlate(ctx context.Context, sourceName string, records []models.SourceRecord) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.ResolveSlate")
	defer span.End()

	start := time.Now()
	if len(records) == 0 {
		return []models.MatchResult{}, nil
	}

	workers := r.cfg.WorkerCount
	if workers > len(records) {
		workers = len(records)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct {
		index  int
		record models.SourceRecord
	}
	jobs := make(chan job)
	results := make([]models.MatchResult, len(records))

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				result, err := r.Resolve(ctx, j.record)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				results[j.index] = result
			}
		}()
	}

feed:
	for i, record := range records {
		if record.SourceName == "" {
			record.SourceName = sourceName
		}
		select {
		case jobs <- job{index: i, record: record}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		r.logger.WithContext(ctx).WithError(firstErr).WithFields(map[string]any{"source_name": sourceName, "records": len(records)}).Error("Slate resolution aborted")
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics.SlateResolutionDuration.WithLabelValues(sourceName).Observe(time.Since(start).Seconds())
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"source_name": sourceName,
		"records":     len(records),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Resolved slate")
	return results, nil
}

// lookupExternalID is the exact crosswalk stage. A stored mapping is an
// identity assertion, so a hit matches at full similarity no matter how the
// name would score.
func (r *Resolver) lookupExternalID(ctx context.Context, record models.SourceRecord, _ string) (*models.MatchResult, error) {
	if record.ExternalID == "" {
		return nil, nil
	}

	player, err := r.store.LookupByExternalID(ctx, record.SourceName, record.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up external id %s/%s: %w", record.SourceName, record.ExternalID, err)
	}
	if player == nil {
		return nil, nil
	}

	return &models.MatchResult{
		Record:     record,
		PlayerID:   &player.ID,
		Player:     player,
		Method:     models.MatchMethodExactCrosswalk,
		Similarity: 1.0,
		Status:     models.MatchStatusMatched,
	}, nil
}

// lookupAlias is the alias stage. A unique hit is decisive. Several players
// sharing the alias are disambiguated on their stored confidences; ambiguity
// there is terminal, but a below-threshold outcome falls through to the full
// fuzzy scan rather than letting weak aliases block a resolvable record.
func (r *Resolver) lookupAlias(ctx context.Context, record models.SourceRecord, normalized string) (*models.MatchResult, error) {
	if normalized == "" {
		return nil, nil
	}

	hits, err := r.store.LookupAliases(ctx, record.SourceName, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to look up aliases for %q: %w", normalized, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	if len(hits) == 1 {
		player := hits[0].Player
		return &models.MatchResult{
			Record:     record,
			PlayerID:   &player.ID,
			Player:     &player,
			Method:     models.MatchMethodAliasLookup,
			Similarity: hits[0].Confidence,
			Status:     models.MatchStatusMatched,
		}, nil
	}

	candidates := make([]matching.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, matching.Candidate{Player: hit.Player, Similarity: hit.Confidence})
	}

	decision := r.disambiguator.Decide(record, candidates)
	switch decision.Status {
	case models.MatchStatusMatched:
		player := decision.Accepted.Player
		return &models.MatchResult{
			Record:     record,
			PlayerID:   &player.ID,
			Player:     &player,
			Method:     models.MatchMethodAliasLookup,
			Similarity: decision.Accepted.Similarity,
			Status:     models.MatchStatusMatched,
		}, nil
	case models.MatchStatusAmbiguous:
		return &models.MatchResult{
			Record: record,
			Status: models.MatchStatusAmbiguous,
			Reason: decision.Reason,
		}, nil
	default:
		return nil, nil
	}
}

// fuzzyMatch is the last stage and always produces a terminal result. A
// successful match writes the observed spelling back as an alias at the
// match's similarity, so the next slate resolves it by lookup alone.
func (r *Resolver) fuzzyMatch(ctx context.Context, record models.SourceRecord, normalized string) (models.MatchResult, error) {
	if normalized == "" {
		reason := "name normalizes to empty"
		if record.Name == "" {
			reason = "record has no name or external id"
		}
		return models.MatchResult{
			Record: record,
			Status: models.MatchStatusUnmatched,
			Reason: reason,
		}, nil
	}

	decision, err := r.scanAndDecide(ctx, record, normalized)
	if err != nil {
		return models.MatchResult{}, err
	}

	switch decision.Status {
	case models.MatchStatusMatched:
		player := decision.Accepted.Player
		result := models.MatchResult{
			Record:     record,
			PlayerID:   &player.ID,
			Player:     &player,
			Method:     models.MatchMethodFuzzyMatch,
			Similarity: decision.Accepted.Similarity,
			Status:     models.MatchStatusMatched,
		}
		err := r.store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID:   player.ID,
			AliasName:  normalized,
			SourceName: record.SourceName,
			Confidence: decision.Accepted.Similarity,
		})
		if err != nil {
			return models.MatchResult{}, fmt.Errorf("failed to learn alias %q: %w", normalized, err)
		}
		metrics.AliasesLearnedTotal.WithLabelValues(record.SourceName).Inc()
		return result, nil
	default:
		return models.MatchResult{
			Record: record,
			Status: decision.Status,
			Reason: decision.Reason,
		}, nil
	}
}

// scanAndDecide scores the candidate pool and applies the acceptance policy.
// With the team prefilter on, the record's team is scored first and any
// non-matched outcome retries against the full pool, so the prefilter can
// only save work, never lose a match the full scan would find.
func (r *Resolver) scanAndDecide(ctx context.Context, record models.SourceRecord, normalized string) (matching.Decision, error) {
	if r.cfg.TeamPrefilter && record.Team != "" {
		subset, err := r.store.PlayersByTeam(ctx, record.Team)
		if err != nil {
			return matching.Decision{}, fmt.Errorf("failed to load players for team %q: %w", record.Team, err)
		}
		if len(subset) > 0 {
			decision := r.disambiguator.Decide(record, r.score(normalized, subset))
			if decision.Status == models.MatchStatusMatched {
				return decision, nil
			}
		}
	}

	players, err := r.store.AllPlayers(ctx)
	if err != nil {
		return matching.Decision{}, fmt.Errorf("failed to load player pool: %w", err)
	}
	return r.disambiguator.Decide(record, r.score(normalized, players)), nil
}

// score pairs every player with its similarity against the normalized name.
func (r *Resolver) score(normalized string, players []models.CanonicalPlayer) []matching.Candidate {
	candidates := make([]matching.Candidate, 0, len(players))
	for _, player := range players {
		similarity := r.scorer.SimilarityNormalized(normalized, normalizers.NormalizeName(player.CanonicalName))
		candidates = append(candidates, matching.Candidate{Player: player, Similarity: similarity})
	}
	return candidates
}

func (r *Resolver) count(result models.MatchResult) {
	method := string(result.Method)
	if method == "" {
		method = "none"
	}
	metrics.ResolutionsTotal.WithLabelValues(result.Record.SourceName, method, string(result.Status)).Inc()
}
