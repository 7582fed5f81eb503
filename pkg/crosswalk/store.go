package crosswalk

import (
	"context"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// Store is the persistent crosswalk. Resolution reads through it in strict
// precedence order (external id, then alias, then full scan) and writes back
// the aliases it learns, so the store improves with every resolved slate.
//
// Implementations must be safe for concurrent use: slate resolution fans out
// across workers and serializes only through these methods.
type Store interface {
	// LookupByExternalID returns the player a provider identifier maps to,
	// or (nil, nil) when the pair is unknown.
	LookupByExternalID(ctx context.Context, sourceName, externalID string) (*models.CanonicalPlayer, error)

	// LookupAliases returns every player holding the alias for this source,
	// ordered by confidence descending. The name must already be normalized.
	// Multiple hits mean the alias alone cannot identify the player and the
	// caller has to disambiguate.
	LookupAliases(ctx context.Context, sourceName, normalizedName string) ([]models.AliasHit, error)

	// UpsertExternalID registers a provider identifier for a player.
	// Re-registering an existing pair for a different player succeeds only
	// with strictly higher confidence; otherwise it returns a *ConflictError
	// and leaves the store unchanged.
	UpsertExternalID(ctx context.Context, req models.UpsertExternalIDRequest) error

	// UpsertAlias records an alias spelling for a player. Idempotent:
	// re-adding an identical alias updates its confidence upward at most,
	// never duplicates. The alias text is normalized before storage.
	UpsertAlias(ctx context.Context, req models.CreateAliasRequest) error

	// AllPlayers returns the full matchable pool, excluding archived players.
	AllPlayers(ctx context.Context) ([]models.CanonicalPlayer, error)

	// PlayersByTeam returns the matchable players on one team. Used as a
	// scan prefilter; callers must fall back to AllPlayers when the subset
	// produces no acceptable match so the prefilter can never change results.
	PlayersByTeam(ctx context.Context, team string) ([]models.CanonicalPlayer, error)
}
