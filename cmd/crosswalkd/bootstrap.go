package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/uruley/4HorsemenDFS/config"
	"github.com/uruley/4HorsemenDFS/internal/ingest"
	"github.com/uruley/4HorsemenDFS/internal/repositories/alias"
	"github.com/uruley/4HorsemenDFS/internal/repositories/externalid"
	"github.com/uruley/4HorsemenDFS/internal/repositories/player"
	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/database"
	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// runBootstrap seeds the store from a players CSV and exits. Safe to re-run:
// players upsert by fingerprint and mapping writes are idempotent.
//
// Expected columns: canonical_name (required), first_name, last_name,
// position, team, nfl_id. Each row seeds the canonical player, its nflverse
// external id at confidence 1.0 when present, the canonical name as a
// draftkings alias at 1.0, and a first-initial alias ("c mccaffrey") for
// nflverse at 0.9, which is how that feed abbreviates display names.
func runBootstrap(ctx context.Context, cfg config.Config, log ectologger.Logger, path string) error {
	db, err := connectDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	migrations := database.NewMigrationService(log, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return err
	}

	dbi := database.NewDatabaseInstance(db, log)
	playerRepo := player.NewRepository(dbi, log)
	store := crosswalk.NewSQLStore(playerRepo, externalid.NewRepository(dbi, log), alias.NewRepository(dbi, log), nil, log)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open players file %s: %w", path, err)
	}
	defer file.Close()

	return seedPlayers(ctx, file, playerRepo, store, log)
}

func seedPlayers(ctx context.Context, r io.Reader, players *player.Repository, store crosswalk.Store, log ectologger.Logger) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read players header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["canonical_name"]; !ok {
		return fmt.Errorf("players file is missing required column %q", "canonical_name")
	}

	cell := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	total, created, mappings, aliases := 0, 0, 0, 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read players row %d: %w", line, err)
		}

		canonicalName := cell(row, "canonical_name")
		if canonicalName == "" {
			log.Warnf("Skipping row %d: empty canonical_name", line)
			continue
		}
		firstName := cell(row, "first_name")
		lastName := cell(row, "last_name")

		result, err := players.Upsert(ctx, models.CreatePlayerRequest{
			CanonicalName: canonicalName,
			FirstName:     firstName,
			LastName:      lastName,
			Position:      cell(row, "position"),
			Team:          cell(row, "team"),
		})
		if err != nil {
			return fmt.Errorf("failed to seed player %q (row %d): %w", canonicalName, line, err)
		}
		total++
		if result.IsNew {
			created++
		}
		playerID := result.Player.ID

		if nflID := cell(row, "nfl_id"); nflID != "" {
			err := store.UpsertExternalID(ctx, models.UpsertExternalIDRequest{
				PlayerID:     playerID,
				SourceName:   ingest.SourceNflverse,
				ExternalID:   nflID,
				ExternalName: canonicalName,
				Confidence:   1.0,
			})
			if err != nil {
				return fmt.Errorf("failed to seed external id for %q (row %d): %w", canonicalName, line, err)
			}
			mappings++
		}

		err = store.UpsertAlias(ctx, models.CreateAliasRequest{
			PlayerID:   playerID,
			AliasName:  canonicalName,
			SourceName: ingest.SourceDraftKings,
			Confidence: 1.0,
		})
		if err != nil {
			return fmt.Errorf("failed to seed alias for %q (row %d): %w", canonicalName, line, err)
		}
		aliases++

		if firstName != "" && lastName != "" {
			abbreviated := fmt.Sprintf("%c %s", []rune(firstName)[0], lastName)
			err = store.UpsertAlias(ctx, models.CreateAliasRequest{
				PlayerID:   playerID,
				AliasName:  abbreviated,
				SourceName: ingest.SourceNflverse,
				Confidence: 0.9,
			})
			if err != nil {
				return fmt.Errorf("failed to seed abbreviated alias for %q (row %d): %w", canonicalName, line, err)
			}
			aliases++
		}
	}

	log.WithFields(map[string]any{
		"players":      total,
		"created":      created,
		"external_ids": mappings,
		"aliases":      aliases,
	}).Info("Bootstrap complete")
	return nil
}
