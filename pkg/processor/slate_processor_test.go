package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uruley/4HorsemenDFS/internal/export"
	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/events"
	"github.com/uruley/4HorsemenDFS/pkg/kafka"
	"github.com/uruley/4HorsemenDFS/pkg/matching"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/resolver"
	"github.com/uruley/4HorsemenDFS/pkg/suggestions"
)

type noopSink struct{}

func (noopSink) Upsert(_ context.Context, _, _, _ string, _ float64) (*models.AliasSuggestion, error) {
	return nil, nil
}

func (noopSink) Review(_ context.Context, _ string, _ models.SuggestionStatus, _ string) (*models.AliasSuggestion, error) {
	return nil, nil
}

func newTestProcessor(store crosswalk.Store) *SlateProcessor {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	res := resolver.NewResolver(store, matching.NewDisambiguator(matching.DefaultConfig()), resolver.Config{}, logger)
	sugg := suggestions.NewService(suggestions.NewEngine(suggestions.DefaultConfig()), store, noopSink{}, logger)
	return NewSlateProcessor(res, sugg, export.NewWriter("", logger), events.NewEmitter(nil, logger), nil, logger)
}

func slateMessage(t *testing.T, req models.ResolveSlateRequest) *kafka.IncomingMessage {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return &kafka.IncomingMessage{
		Key:    req.SourceName,
		Value:  payload,
		Topic:  "dfs-slates",
		Offset: 7,
	}
}

func TestSlateProcessor_ProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a valid slate message", func(t *testing.T) {
		store := crosswalk.NewMemoryStore()
		cmc := store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Christian McCaffrey", Position: "RB", Team: "SF"})

		p := newTestProcessor(store)
		msg := slateMessage(t, models.ResolveSlateRequest{
			SourceName: "draftkings",
			Records: []models.SourceRecord{
				{Name: "C.McCaffrey", Team: "SF"},
				{Name: "Nobody Real"},
			},
		})

		require.NoError(t, p.ProcessMessage(ctx, msg))

		// The fuzzy match learned an alias, proving the pipeline ran.
		hits, err := store.LookupAliases(ctx, "draftkings", "c mccaffrey")
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, cmc.ID, hits[0].Player.ID)
	})

	t.Run("malformed payload is skipped, not retried", func(t *testing.T) {
		p := newTestProcessor(crosswalk.NewMemoryStore())
		msg := &kafka.IncomingMessage{Value: []byte("{not json"), Topic: "dfs-slates"}

		assert.NoError(t, p.ProcessMessage(ctx, msg))
	})

	t.Run("message without a source name is skipped", func(t *testing.T) {
		p := newTestProcessor(crosswalk.NewMemoryStore())
		msg := &kafka.IncomingMessage{
			Value: []byte(`{"records":[{"name":"Someone"}]}`),
			Topic: "dfs-slates",
		}

		assert.NoError(t, p.ProcessMessage(ctx, msg))
	})

	t.Run("message without records is skipped", func(t *testing.T) {
		p := newTestProcessor(crosswalk.NewMemoryStore())
		msg := &kafka.IncomingMessage{
			Value: []byte(`{"source_name":"draftkings","records":[]}`),
			Topic: "dfs-slates",
		}

		assert.NoError(t, p.ProcessMessage(ctx, msg))
	})

	t.Run("store failure is returned so the consumer retries", func(t *testing.T) {
		store := &brokenStore{Store: crosswalk.NewMemoryStore()}
		p := newTestProcessor(store)
		msg := slateMessage(t, models.ResolveSlateRequest{
			SourceName: "draftkings",
			Records:    []models.SourceRecord{{Name: "Someone"}},
		})

		err := p.ProcessMessage(ctx, msg)
		require.Error(t, err)
		assert.ErrorIs(t, err, errPoolDown)
	})

	t.Run("reprocessing the same message is idempotent", func(t *testing.T) {
		store := crosswalk.NewMemoryStore()
		store.AddPlayer(models.CanonicalPlayer{CanonicalName: "Ja'Marr Chase", Position: "WR", Team: "CIN"})

		p := newTestProcessor(store)
		msg := slateMessage(t, models.ResolveSlateRequest{
			SourceName: "draftkings",
			Records:    []models.SourceRecord{{Name: "J.Chase", Team: "CIN"}},
		})

		require.NoError(t, p.ProcessMessage(ctx, msg))
		require.NoError(t, p.ProcessMessage(ctx, msg))

		hits, err := store.LookupAliases(ctx, "draftkings", "j chase")
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})
}

var errPoolDown = errors.New("player pool unavailable")

type brokenStore struct {
	crosswalk.Store
}

func (b *brokenStore) AllPlayers(context.Context) ([]models.CanonicalPlayer, error) {
	return nil, errPoolDown
}
