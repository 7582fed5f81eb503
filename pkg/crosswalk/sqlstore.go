package crosswalk

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/uruley/4HorsemenDFS/internal/repositories/alias"
	"github.com/uruley/4HorsemenDFS/internal/repositories/externalid"
	"github.com/uruley/4HorsemenDFS/internal/repositories/player"
	"github.com/uruley/4HorsemenDFS/pkg/metrics"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

// SQLStore is the Postgres-backed Store. Alias lookups read through an
// optional cache keyed (source, normalized name); every alias write
// invalidates its key so resolution never sees a stale candidate set.
type SQLStore struct {
	players     *player.Repository
	externalIDs *externalid.Repository
	aliases     *alias.Repository
	cache       AliasCache
	logger      ectologger.Logger
}

// NewSQLStore creates the Postgres-backed crosswalk store. A nil cache
// disables alias caching.
func NewSQLStore(players *player.Repository, externalIDs *externalid.Repository, aliases *alias.Repository, cache AliasCache, logger ectologger.Logger) *SQLStore {
	return &SQLStore{
		players:     players,
		externalIDs: externalIDs,
		aliases:     aliases,
		cache:       cache,
		logger:      logger,
	}
}

func (s *SQLStore) LookupByExternalID(ctx context.Context, sourceName, externalID string) (*models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.LookupByExternalID")
	defer span.End()

	return s.externalIDs.GetPlayerBySourceID(ctx, sourceName, externalID)
}

func (s *SQLStore) LookupAliases(ctx context.Context, sourceName, normalizedName string) ([]models.AliasHit, error) {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.LookupAliases")
	defer span.End()

	if s.cache != nil {
		hits, ok, err := s.cache.Get(ctx, sourceName, normalizedName)
		if err != nil {
			// A broken cache degrades to a database read, never to a failure.
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_name": sourceName, "alias_name": normalizedName}).Warn("Alias cache read failed")
		} else if ok {
			metrics.AliasCacheLookupsTotal.WithLabelValues("hit").Inc()
			return hits, nil
		} else {
			metrics.AliasCacheLookupsTotal.WithLabelValues("miss").Inc()
		}
	}

	hits, err := s.aliases.FindHits(ctx, sourceName, normalizedName)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sourceName, normalizedName, hits); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_name": sourceName, "alias_name": normalizedName}).Warn("Alias cache write failed")
		}
	}
	return hits, nil
}

func (s *SQLStore) UpsertExternalID(ctx context.Context, req models.UpsertExternalIDRequest) error {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.UpsertExternalID")
	defer span.End()

	if _, err := s.players.Get(ctx, req.PlayerID); err != nil {
		return err
	}

	result, err := s.externalIDs.Upsert(ctx, req)
	if err != nil {
		return err
	}
	if result.Conflicted {
		metrics.StoreConflictsTotal.WithLabelValues(req.SourceName).Inc()
		return NewConflictError(req.SourceName, req.ExternalID, result.Existing.PlayerID, req.PlayerID, result.Existing.Confidence, req.Confidence)
	}
	return nil
}

func (s *SQLStore) UpsertAlias(ctx context.Context, req models.CreateAliasRequest) error {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.UpsertAlias")
	defer span.End()

	normalized := normalizers.NormalizeName(req.AliasName)
	if normalized == "" {
		// An alias nothing can match is not worth a row.
		return nil
	}
	req.AliasName = normalized

	if _, err := s.players.Get(ctx, req.PlayerID); err != nil {
		return err
	}
	if _, err := s.aliases.Upsert(ctx, req); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, req.SourceName, normalized); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_name": req.SourceName, "alias_name": normalized}).Warn("Alias cache invalidation failed")
		}
	}
	return nil
}

func (s *SQLStore) AllPlayers(ctx context.Context) ([]models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.AllPlayers")
	defer span.End()

	return s.players.AllActive(ctx)
}

func (s *SQLStore) PlayersByTeam(ctx context.Context, team string) ([]models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.PlayersByTeam")
	defer span.End()

	return s.players.FindByTeam(ctx, normalizers.NormalizeTeam(team))
}

// Merge merges a duplicate player into a survivor and flushes the alias
// cache, since rows for both players may have moved or been folded.
func (s *SQLStore) Merge(ctx context.Context, survivorID, duplicateID, reason string, performedBy *string) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.Merge")
	defer span.End()

	result, err := s.players.Merge(ctx, survivorID, duplicateID, reason, performedBy)
	if err != nil {
		return nil, err
	}
	s.flushCache(ctx)
	return result, nil
}

// ArchivePlayer archives a player and flushes the alias cache so the player
// stops appearing in cached candidate sets.
func (s *SQLStore) ArchivePlayer(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.ArchivePlayer")
	defer span.End()

	if err := s.players.Archive(ctx, id); err != nil {
		return err
	}
	s.flushCache(ctx)
	return nil
}

// DeleteAlias removes an alias row. The alias text is not known here, so the
// whole cache is flushed rather than one key.
func (s *SQLStore) DeleteAlias(ctx context.Context, playerID, aliasID string) error {
	ctx, span := tracing.StartSpan(ctx, "crosswalk.SQLStore.DeleteAlias")
	defer span.End()

	if err := s.aliases.Delete(ctx, playerID, aliasID); err != nil {
		return err
	}
	s.flushCache(ctx)
	return nil
}

func (s *SQLStore) flushCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Alias cache flush failed")
	}
}
