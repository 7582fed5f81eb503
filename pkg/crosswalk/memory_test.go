package crosswalk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

func TestMemoryStore_ExternalIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup miss returns nil without error", func(t *testing.T) {
		store := NewMemoryStore()
		player, err := store.LookupByExternalID(ctx, "draftkings", "12345")
		require.NoError(t, err)
		assert.Nil(t, player)
	})

	t.Run("upsert then lookup round-trips", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})

		err := store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID:     cmc.ID,
			SourceName:   "draftkings",
			ExternalID:   "12345",
			ExternalName: "C.McCaffrey",
			Confidence:   1.0,
		})
		require.NoError(t, err)

		player, err := store.LookupByExternalID(ctx, "draftkings", "12345")
		require.NoError(t, err)
		require.NotNil(t, player)
		assert.Equal(t, cmc.ID, player.ID)
	})

	t.Run("same pair for same player is a no-op update", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})

		req := models.UpsertExternalIDRequest{PlayerID: cmc.ID, SourceName: "draftkings", ExternalID: "12345", Confidence: 1.0}
		require.NoError(t, store.UpsertExternalID(ctx, req))
		require.NoError(t, store.UpsertExternalID(ctx, req))
	})

	t.Run("lower confidence for different player conflicts and leaves store unchanged", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})
		other := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Luke McCaffrey", Position: "WR", Team: "WAS"})

		require.NoError(t, store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID: cmc.ID, SourceName: "draftkings", ExternalID: "12345", Confidence: 1.0,
		}))

		err := store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID: other.ID, SourceName: "draftkings", ExternalID: "12345", Confidence: 0.9,
		})
		require.Error(t, err)
		assert.True(t, IsConflictError(err))

		player, err := store.LookupByExternalID(ctx, "draftkings", "12345")
		require.NoError(t, err)
		assert.Equal(t, cmc.ID, player.ID)
	})

	t.Run("equal confidence for different player still conflicts", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})
		other := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Luke McCaffrey", Position: "WR", Team: "WAS"})

		require.NoError(t, store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID: cmc.ID, SourceName: "draftkings", ExternalID: "12345", Confidence: 0.9,
		}))

		err := store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID: other.ID, SourceName: "draftkings", ExternalID: "12345", Confidence: 0.9,
		})
		assert.True(t, IsConflictError(err))
	})

	t.Run("strictly higher confidence repoints the mapping", func(t *testing.T) {
		store := NewMemoryStore()
		wrong := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Mike Williams", Position: "WR", Team: "NYJ"})
		right := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Mike Williams", Position: "WR", Team: "LAC"})

		require.NoError(t, store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID: wrong.ID, SourceName: "draftkings", ExternalID: "777", Confidence: 0.8,
		}))
		require.NoError(t, store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID: right.ID, SourceName: "draftkings", ExternalID: "777", Confidence: 1.0,
		}))

		player, err := store.LookupByExternalID(ctx, "draftkings", "777")
		require.NoError(t, err)
		assert.Equal(t, right.ID, player.ID)
	})

	t.Run("unknown player is rejected", func(t *testing.T) {
		store := NewMemoryStore()
		err := store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID: "missing", SourceName: "draftkings", ExternalID: "1", Confidence: 1.0,
		})
		assert.Error(t, err)
	})
}

func TestMemoryStore_Aliases(t *testing.T) {
	ctx := context.Background()

	t.Run("alias is stored normalized and found by normalized name", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})

		require.NoError(t, store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID: cmc.ID, AliasName: "C.McCaffrey", SourceName: "draftkings", Confidence: 0.83,
		}))

		hits, err := store.LookupAliases(ctx, "draftkings", "c mccaffrey")
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, cmc.ID, hits[0].Player.ID)
		assert.Equal(t, 0.83, hits[0].Confidence)
	})

	t.Run("re-adding an identical alias does not duplicate", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})

		req := models.CreateAliasRequest{PlayerID: cmc.ID, AliasName: "C.McCaffrey", SourceName: "draftkings", Confidence: 0.83}
		require.NoError(t, store.UpsertAlias(ctx, req))
		require.NoError(t, store.UpsertAlias(ctx, req))

		hits, err := store.LookupAliases(ctx, "draftkings", "c mccaffrey")
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("confidence only ratchets upward", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})

		require.NoError(t, store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID: cmc.ID, AliasName: "c mccaffrey", SourceName: "draftkings", Confidence: 0.9,
		}))
		require.NoError(t, store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID: cmc.ID, AliasName: "c mccaffrey", SourceName: "draftkings", Confidence: 0.7,
		}))

		hits, err := store.LookupAliases(ctx, "draftkings", "c mccaffrey")
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, 0.9, hits[0].Confidence)
	})

	t.Run("shared alias surfaces every holder ordered by confidence", func(t *testing.T) {
		store := NewMemoryStore()
		a := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Mike Williams", Position: "WR", Team: "LAC"})
		b := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Mike Williams Jr", Position: "WR", Team: "NYJ"})

		require.NoError(t, store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID: a.ID, AliasName: "Mike Williams", SourceName: "draftkings", Confidence: 0.8,
		}))
		require.NoError(t, store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID: b.ID, AliasName: "Mike Williams", SourceName: "draftkings", Confidence: 0.95,
		}))

		hits, err := store.LookupAliases(ctx, "draftkings", "mike williams")
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, b.ID, hits[0].Player.ID)
		assert.Equal(t, a.ID, hits[1].Player.ID)
	})

	t.Run("aliases are source scoped", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})

		require.NoError(t, store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID: cmc.ID, AliasName: "c mccaffrey", SourceName: "draftkings", Confidence: 0.83,
		}))

		hits, err := store.LookupAliases(ctx, "nflverse", "c mccaffrey")
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("alias that normalizes to empty is ignored", func(t *testing.T) {
		store := NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})

		require.NoError(t, store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID: cmc.ID, AliasName: "...", SourceName: "draftkings", Confidence: 0.9,
		}))

		hits, err := store.LookupAliases(ctx, "draftkings", "")
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestMemoryStore_Players(t *testing.T) {
	ctx := context.Background()

	t.Run("all players excludes archived and sorts by name", func(t *testing.T) {
		store := NewMemoryStore()
		store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Zay Flowers", Position: "WR", Team: "BAL"})
		store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Amon-Ra St. Brown", Position: "WR", Team: "DET"})
		archivedAt := time.Now().UTC()
		store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Retired Guy", Position: "RB", Team: "SF", ArchivedAt: &archivedAt})

		players, err := store.AllPlayers(ctx)
		require.NoError(t, err)
		require.Len(t, players, 2)
		assert.Equal(t, "Amon-Ra St. Brown", players[0].CanonicalName)
		assert.Equal(t, "Zay Flowers", players[1].CanonicalName)
	})

	t.Run("players by team folds provider variants", func(t *testing.T) {
		store := NewMemoryStore()
		store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Puka Nacua", Position: "WR", Team: "LAR"})
		store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Josh Allen", Position: "QB", Team: "BUF"})

		players, err := store.PlayersByTeam(ctx, "LA")
		require.NoError(t, err)
		require.Len(t, players, 1)
		assert.Equal(t, "Puka Nacua", players[0].CanonicalName)
	})

	t.Run("archived player still resolves through external id", func(t *testing.T) {
		store := NewMemoryStore()
		archivedAt := time.Now().UTC()
		old := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Retired Guy", Position: "RB", Team: "SF", ArchivedAt: &archivedAt})

		require.NoError(t, store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
			PlayerID: old.ID, SourceName: "draftkings", ExternalID: "999", Confidence: 1.0,
		}))

		player, err := store.LookupByExternalID(ctx, "draftkings", "999")
		require.NoError(t, err)
		require.NotNil(t, player)
		assert.Equal(t, old.ID, player.ID)
	})
}

func TestMemoryAliasCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss then set then hit", func(t *testing.T) {
		cache := NewMemoryAliasCache(0)

		_, ok, err := cache.Get(ctx, "draftkings", "c mccaffrey")
		require.NoError(t, err)
		assert.False(t, ok)

		hits := []models.AliasHit{{Confidence: 0.83}}
		require.NoError(t, cache.Set(ctx, "draftkings", "c mccaffrey", hits))

		cached, ok, err := cache.Get(ctx, "draftkings", "c mccaffrey")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, hits, cached)
	})

	t.Run("empty slice is a remembered miss", func(t *testing.T) {
		cache := NewMemoryAliasCache(0)
		require.NoError(t, cache.Set(ctx, "draftkings", "nobody", []models.AliasHit{}))

		cached, ok, err := cache.Get(ctx, "draftkings", "nobody")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, cached)
	})

	t.Run("invalidate drops a single key", func(t *testing.T) {
		cache := NewMemoryAliasCache(0)
		require.NoError(t, cache.Set(ctx, "draftkings", "a", nil))
		require.NoError(t, cache.Set(ctx, "draftkings", "b", nil))

		require.NoError(t, cache.Invalidate(ctx, "draftkings", "a"))

		_, ok, _ := cache.Get(ctx, "draftkings", "a")
		assert.False(t, ok)
		_, ok, _ = cache.Get(ctx, "draftkings", "b")
		assert.True(t, ok)
	})

	t.Run("invalidate all drops everything", func(t *testing.T) {
		cache := NewMemoryAliasCache(0)
		require.NoError(t, cache.Set(ctx, "draftkings", "a", nil))
		require.NoError(t, cache.InvalidateAll(ctx))

		_, ok, _ := cache.Get(ctx, "draftkings", "a")
		assert.False(t, ok)
	})

	t.Run("expired entries read as misses", func(t *testing.T) {
		cache := NewMemoryAliasCache(time.Nanosecond)
		require.NoError(t, cache.Set(ctx, "draftkings", "a", []models.AliasHit{{Confidence: 1}}))
		time.Sleep(time.Millisecond)

		_, ok, err := cache.Get(ctx, "draftkings", "a")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
