package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

// IdentityGraph is the subgraph around one player: its node plus every
// source and alias it connects to. Node and edge IDs are graph element
// ids; domain identity lives in the properties.
type IdentityGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode is a node from the identity subgraph
type GraphNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// GraphEdge is a relationship from the identity subgraph
type GraphEdge struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	StartNode  string         `json:"start_node"`
	EndNode    string         `json:"end_node"`
	Properties map[string]any `json:"properties"`
}

// PlayerGraph returns the identity subgraph for a player, or nil when the
// player has never been projected.
func (p *Projector) PlayerGraph(ctx context.Context, playerID string) (*IdentityGraph, error) {
	if !p.Enabled() {
		return nil, errors.New("graph projection is not enabled")
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.PlayerGraph")
	defer span.End()

	result, err := p.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (p:Player {id: $id})
			OPTIONAL MATCH (p)-[r]-(n)
			RETURN p, r, n
		`, map[string]any{"id": playerID})
		if err != nil {
			return nil, err
		}

		graph := &IdentityGraph{
			Nodes: make([]GraphNode, 0),
			Edges: make([]GraphEdge, 0),
		}
		seenNodes := make(map[string]bool)
		seenEdges := make(map[string]bool)
		found := false

		for res.Next(ctx) {
			found = true
			record := res.Record()
			for _, key := range record.Keys {
				val, _ := record.Get(key)
				collectValue(val, graph, seenNodes, seenEdges)
			}
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return graph, nil
	})

	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to query player graph")
		return nil, fmt.Errorf("failed to query player graph: %w", err)
	}

	if result == nil {
		return nil, nil
	}
	return result.(*IdentityGraph), nil
}

// collectValue folds neo4j values into the graph, deduplicating by element id
func collectValue(val any, graph *IdentityGraph, seenNodes, seenEdges map[string]bool) {
	if val == nil {
		return
	}

	switch v := val.(type) {
	case neo4j.Node:
		if seenNodes[v.ElementId] {
			return
		}
		seenNodes[v.ElementId] = true
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:         v.ElementId,
			Labels:     v.Labels,
			Properties: v.Props,
		})

	case neo4j.Relationship:
		if seenEdges[v.ElementId] {
			return
		}
		seenEdges[v.ElementId] = true
		graph.Edges = append(graph.Edges, GraphEdge{
			ID:         v.ElementId,
			Type:       v.Type,
			StartNode:  v.StartElementId,
			EndNode:    v.EndElementId,
			Properties: v.Props,
		})

	case []any:
		for _, item := range v {
			collectValue(item, graph, seenNodes, seenEdges)
		}
	}
}
