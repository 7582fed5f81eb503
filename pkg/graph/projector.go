package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

// Projector mirrors canonical players and the links resolution observed
// into the graph database. Players become :Player nodes, providers become
// :Source nodes reached over IDENTIFIED_BY edges, and resolved names
// become :Alias nodes reached over KNOWN_AS edges.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

// NewProjector creates a projector over the given client.
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

// Enabled reports whether projection is wired to a graph database. A nil
// projector is disabled and every method no-ops.
func (p *Projector) Enabled() bool {
	return p != nil && p.client != nil
}

// ProjectIdentity projects one player with its stored mappings and aliases.
// Called after merges so the survivor's node reflects the combined identity.
func (p *Projector) ProjectIdentity(ctx context.Context, player *models.CanonicalPlayer, mappings []models.ExternalIDMapping, aliases []models.Alias) error {
	if !p.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectIdentity")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"player_id": player.ID,
		"mappings":  len(mappings),
		"aliases":   len(aliases),
	})

	props := map[string]any{
		"id":             player.ID,
		"canonical_name": player.CanonicalName,
		"team":           player.Team,
		"position":       player.Position,
		"fingerprint":    player.Fingerprint,
		"archived":       player.IsArchived(),
	}

	mappingBatch := make([]map[string]any, len(mappings))
	for i, m := range mappings {
		mappingBatch[i] = map[string]any{
			"source_name":   m.SourceName,
			"external_id":   m.ExternalID,
			"external_name": m.ExternalName,
			"confidence":    m.Confidence,
		}
	}

	aliasBatch := make([]map[string]any, len(aliases))
	for i, a := range aliases {
		aliasBatch[i] = map[string]any{
			"alias_name":  a.AliasName,
			"source_name": a.SourceName,
			"confidence":  a.Confidence,
		}
	}

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (p:Player {id: $id})
			SET p = $props
		`, map[string]any{"id": player.ID, "props": props}); err != nil {
			return nil, err
		}

		if len(mappingBatch) > 0 {
			if _, err := tx.Run(ctx, `
				UNWIND $batch AS m
				MATCH (p:Player {id: $id})
				MERGE (s:Source {name: m.source_name})
				MERGE (p)-[r:IDENTIFIED_BY {external_id: m.external_id}]->(s)
				SET r.external_name = m.external_name, r.confidence = m.confidence
			`, map[string]any{"id": player.ID, "batch": mappingBatch}); err != nil {
				return nil, err
			}
		}

		if len(aliasBatch) > 0 {
			if _, err := tx.Run(ctx, `
				UNWIND $batch AS a
				MATCH (p:Player {id: $id})
				MERGE (al:Alias {name: a.alias_name})
				MERGE (p)-[r:KNOWN_AS {source_name: a.source_name}]->(al)
				SET r.confidence = a.confidence
			`, map[string]any{"id": player.ID, "batch": aliasBatch}); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	if err != nil {
		log.WithError(err).Error("Failed to project player identity")
		return fmt.Errorf("failed to project player identity: %w", err)
	}

	log.Debug("Projected player identity")
	return nil
}

// ProjectMatches projects what a resolution run observed: the matched
// players, the crosswalk hits as IDENTIFIED_BY edges, and the name matches
// as KNOWN_AS edges carrying the similarity that won.
func (p *Projector) ProjectMatches(ctx context.Context, results []models.MatchResult) error {
	if !p.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectMatches")
	defer span.End()

	var players []map[string]any
	var identified []map[string]any
	var knownAs []map[string]any
	seen := make(map[string]bool)

	for i := range results {
		result := &results[i]
		if !result.IsMatched() || result.PlayerID == nil {
			continue
		}
		playerID := *result.PlayerID

		if !seen[playerID] {
			seen[playerID] = true
			node := map[string]any{"id": playerID}
			if result.Player != nil {
				node["canonical_name"] = result.Player.CanonicalName
				node["team"] = result.Player.Team
				node["position"] = result.Player.Position
			}
			players = append(players, node)
		}

		switch result.Method {
		case models.MatchMethodExactCrosswalk:
			if result.Record.ExternalID != "" {
				identified = append(identified, map[string]any{
					"player_id":   playerID,
					"source_name": result.Record.SourceName,
					"external_id": result.Record.ExternalID,
					"confidence":  result.Similarity,
				})
			}
		case models.MatchMethodAliasLookup, models.MatchMethodFuzzyMatch:
			name := normalizers.NormalizeName(result.Record.Name)
			if name == "" {
				continue
			}
			knownAs = append(knownAs, map[string]any{
				"player_id":   playerID,
				"source_name": result.Record.SourceName,
				"alias_name":  name,
				"similarity":  result.Similarity,
			})
		}
	}

	if len(players) == 0 {
		return nil
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"players":    len(players),
		"identified": len(identified),
		"known_as":   len(knownAs),
	})

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			UNWIND $batch AS pl
			MERGE (p:Player {id: pl.id})
			SET p += pl
		`, map[string]any{"batch": players}); err != nil {
			return nil, err
		}

		if len(identified) > 0 {
			if _, err := tx.Run(ctx, `
				UNWIND $batch AS m
				MATCH (p:Player {id: m.player_id})
				MERGE (s:Source {name: m.source_name})
				MERGE (p)-[r:IDENTIFIED_BY {external_id: m.external_id}]->(s)
				SET r.confidence = m.confidence
			`, map[string]any{"batch": identified}); err != nil {
				return nil, err
			}
		}

		if len(knownAs) > 0 {
			if _, err := tx.Run(ctx, `
				UNWIND $batch AS a
				MATCH (p:Player {id: a.player_id})
				MERGE (al:Alias {name: a.alias_name})
				MERGE (p)-[r:KNOWN_AS {source_name: a.source_name}]->(al)
				SET r.similarity = a.similarity
			`, map[string]any{"batch": knownAs}); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	if err != nil {
		log.WithError(err).Error("Failed to project match results")
		return fmt.Errorf("failed to project match results: %w", err)
	}

	log.Debug("Projected match results")
	return nil
}

// RemovePlayer deletes a player node and every edge touching it. Used when
// a merge retires the duplicate; the relational store keeps the audit trail.
func (p *Projector) RemovePlayer(ctx context.Context, playerID string) error {
	if !p.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.RemovePlayer")
	defer span.End()

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (p:Player {id: $id})
			DETACH DELETE p
		`, map[string]any{"id": playerID})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to remove player from graph")
		return fmt.Errorf("failed to remove player from graph: %w", err)
	}

	return nil
}
