package crosswalk

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uruley/4HorsemenDFS/pkg/fingerprint"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
)

// MemoryStore is an in-memory Store used by tests and one-shot tooling.
// It mirrors the SQL store's semantics exactly, including conflict
// protection and alias idempotence, so resolution code cannot tell them
// apart.
type MemoryStore struct {
	mu          sync.RWMutex
	players     map[string]models.CanonicalPlayer
	externalIDs map[string]models.ExternalIDMapping
	aliases     map[string][]models.Alias
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:     make(map[string]models.CanonicalPlayer),
		externalIDs: make(map[string]models.ExternalIDMapping),
		aliases:     make(map[string][]models.Alias),
	}
}

// mapKey builds the lookup key for source-scoped maps.
func mapKey(sourceName, value string) string {
	return sourceName + "|" + value
}

// AddPlayer seeds a canonical player, filling in the id, fingerprint, and
// timestamps when absent. Returns the stored player.
func (m *MemoryStore) AddPlayer(player models.CanonicalPlayer) models.CanonicalPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if player.ID == "" {
		player.ID = uuid.New().String()
	}
	if player.Fingerprint == "" {
		player.Fingerprint = fingerprint.Player(player.CanonicalName, player.Position, player.Team)
	}
	now := time.Now().UTC()
	if player.CreatedAt.IsZero() {
		player.CreatedAt = now
	}
	player.UpdatedAt = now

	m.players[player.ID] = player
	return player
}

// Player returns a stored player by id.
func (m *MemoryStore) Player(id string) (*models.CanonicalPlayer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	player, ok := m.players[id]
	if !ok {
		return nil, false
	}
	return &player, true
}

// LookupByExternalID returns the mapped player or (nil, nil) on a miss.
// Archived players still resolve here: the mapping is verified and archival
// never severs it.
func (m *MemoryStore) LookupByExternalID(ctx context.Context, sourceName, externalID string) (*models.CanonicalPlayer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.externalIDs[mapKey(sourceName, externalID)]
	if !ok {
		return nil, nil
	}

	player, ok := m.players[mapping.PlayerID]
	if !ok {
		return nil, nil
	}
	return &player, nil
}

// LookupAliases returns alias hits ordered by confidence descending.
// Archived players are out of the matchable pool and never surface.
func (m *MemoryStore) LookupAliases(ctx context.Context, sourceName, normalizedName string) ([]models.AliasHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.aliases[mapKey(sourceName, normalizedName)]
	hits := make([]models.AliasHit, 0, len(rows))
	for _, row := range rows {
		player, ok := m.players[row.PlayerID]
		if !ok || player.IsArchived() {
			continue
		}
		hits = append(hits, models.AliasHit{
			Player:     player,
			Confidence: row.Confidence,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Confidence > hits[j].Confidence
	})
	return hits, nil
}

// UpsertExternalID registers an external id, rejecting confidence downgrades
// that would repoint the mapping to a different player.
func (m *MemoryStore) UpsertExternalID(ctx context.Context, req models.UpsertExternalIDRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[req.PlayerID]; !ok {
		return fmt.Errorf("player %s not found", req.PlayerID)
	}

	key := mapKey(req.SourceName, req.ExternalID)
	now := time.Now().UTC()

	existing, ok := m.externalIDs[key]
	if ok {
		if existing.PlayerID != req.PlayerID && existing.Confidence >= req.Confidence {
			return NewConflictError(req.SourceName, req.ExternalID, existing.PlayerID, req.PlayerID, existing.Confidence, req.Confidence)
		}
		existing.PlayerID = req.PlayerID
		existing.ExternalName = req.ExternalName
		existing.Confidence = req.Confidence
		existing.UpdatedAt = now
		m.externalIDs[key] = existing
		return nil
	}

	m.externalIDs[key] = models.ExternalIDMapping{
		ID:           uuid.New().String(),
		PlayerID:     req.PlayerID,
		SourceName:   req.SourceName,
		ExternalID:   req.ExternalID,
		ExternalName: req.ExternalName,
		Confidence:   req.Confidence,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return nil
}

// UpsertAlias records an alias in normalized form. Re-adding an identical
// alias for the same player only ever raises its confidence. Distinct
// players may hold the same alias; lookups surface all of them.
func (m *MemoryStore) UpsertAlias(ctx context.Context, req models.CreateAliasRequest) error {
	normalized := normalizers.NormalizeName(req.AliasName)
	if normalized == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.players[req.PlayerID]; !ok {
		return fmt.Errorf("player %s not found", req.PlayerID)
	}

	key := mapKey(req.SourceName, normalized)
	now := time.Now().UTC()

	rows := m.aliases[key]
	for i, row := range rows {
		if row.PlayerID == req.PlayerID {
			if req.Confidence > row.Confidence {
				rows[i].Confidence = req.Confidence
				rows[i].UpdatedAt = now
			}
			return nil
		}
	}

	m.aliases[key] = append(rows, models.Alias{
		ID:         uuid.New().String(),
		PlayerID:   req.PlayerID,
		AliasName:  normalized,
		SourceName: req.SourceName,
		Confidence: req.Confidence,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return nil
}

// AllPlayers returns the matchable pool sorted by canonical name so scans
// are deterministic.
func (m *MemoryStore) AllPlayers(ctx context.Context) ([]models.CanonicalPlayer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	players := make([]models.CanonicalPlayer, 0, len(m.players))
	for _, player := range m.players {
		if player.IsArchived() {
			continue
		}
		players = append(players, player)
	}

	sortPlayers(players)
	return players, nil
}

// PlayersByTeam returns the matchable players whose team matches after
// canonicalizing provider variants.
func (m *MemoryStore) PlayersByTeam(ctx context.Context, team string) ([]models.CanonicalPlayer, error) {
	want := normalizers.NormalizeTeam(team)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var players []models.CanonicalPlayer
	for _, player := range m.players {
		if player.IsArchived() {
			continue
		}
		if normalizers.NormalizeTeam(player.Team) == want {
			players = append(players, player)
		}
	}

	sortPlayers(players)
	return players, nil
}

func sortPlayers(players []models.CanonicalPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].CanonicalName != players[j].CanonicalName {
			return players[i].CanonicalName < players[j].CanonicalName
		}
		return players[i].ID < players[j].ID
	})
}
