package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/uruley/4HorsemenDFS/internal/repositories/alias"
	"github.com/uruley/4HorsemenDFS/internal/repositories/externalid"
	"github.com/uruley/4HorsemenDFS/internal/repositories/player"
	"github.com/uruley/4HorsemenDFS/internal/repositories/suggestion"
	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/database"
	"github.com/uruley/4HorsemenDFS/pkg/matching"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/resolver"
)

// testContext holds the wired crosswalk stack the scenarios drive.
type testContext struct {
	ctx      context.Context
	players  *player.Repository
	mappings *externalid.Repository
	aliases  *alias.Repository
	queue    *suggestion.Repository
	store    *crosswalk.SQLStore
	logger   ectologger.Logger
}

// setupTestContext connects to the database named by TEST_DATABASE_DSN,
// migrates it, and wipes it. The DSN must point at a disposable database;
// every scenario starts from empty tables.
func setupTestContext(t *testing.T) *testContext {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("Database not configured; set TEST_DATABASE_DSN")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	require.NoError(t, err)
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: "../../db/pg",
	})
	require.NoError(t, migrations.Migrate("crosswalk_test", driver))

	_, err = db.Exec("TRUNCATE players, merge_audit_log CASCADE")
	require.NoError(t, err)

	dbi := database.NewDatabaseInstance(db, logger)
	players := player.NewRepository(dbi, logger)
	mappings := externalid.NewRepository(dbi, logger)
	aliases := alias.NewRepository(dbi, logger)
	queue := suggestion.NewRepository(dbi, logger)
	cache := crosswalk.NewMemoryAliasCache(time.Minute)

	return &testContext{
		ctx:      context.Background(),
		players:  players,
		mappings: mappings,
		aliases:  aliases,
		queue:    queue,
		store:    crosswalk.NewSQLStore(players, mappings, aliases, cache, logger),
		logger:   logger,
	}
}

// newResolver wires a resolver over the scenario's store with the given
// acceptance policy. Zero values fall back to the production defaults.
func (tc *testContext) newResolver(cfg resolver.Config, policy matching.Config) *resolver.Resolver {
	return resolver.NewResolver(tc.store, matching.NewDisambiguator(policy), cfg, tc.logger)
}

func (tc *testContext) seedPlayer(t *testing.T, name, first, last, position, team string) models.CanonicalPlayer {
	t.Helper()
	result, err := tc.players.Upsert(tc.ctx, models.CreatePlayerRequest{
		CanonicalName: name,
		FirstName:     first,
		LastName:      last,
		Position:      position,
		Team:          team,
	})
	require.NoError(t, err)
	require.True(t, result.IsNew, "player %q already seeded", name)
	return *result.Player
}

// resultFor finds the result for the record submitted with the given raw
// name. Slate resolution preserves input order, but scenarios read by name
// so reordering a fixture cannot silently shift assertions.
func resultFor(t *testing.T, results []models.MatchResult, name string) models.MatchResult {
	t.Helper()
	for _, result := range results {
		if result.Record.Name == name {
			return result
		}
	}
	t.Fatalf("no result for record %q", name)
	return models.MatchResult{}
}

func stringPtr(s string) *string {
	return &s
}
