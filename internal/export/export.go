// Package export writes resolution reports to CSV for spreadsheet review.
// Files land under a fixed directory with fixed names, overwritten every
// run, so downstream tooling never has to guess a path.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Gobusters/ectologger"

	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

// Report file names under the report directory.
const (
	MatchedFile     = "matched_players.csv"
	UnmatchedFile   = "unmatched_players.csv"
	AmbiguousFile   = "ambiguous_matches.csv"
	SuggestionsFile = "alias_suggestions.csv"
)

// Writer exports resolution reports as CSV files. A Writer with an empty
// directory is disabled and every write becomes a no-op.
type Writer struct {
	dir    string
	logger ectologger.Logger
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string, logger ectologger.Logger) *Writer {
	return &Writer{
		dir:    dir,
		logger: logger,
	}
}

// Enabled reports whether exports are configured.
func (w *Writer) Enabled() bool {
	return w.dir != ""
}

// WriteReport writes the matched, unmatched, and ambiguous partitions.
// Headers are written even when a partition is empty so consumers can tell
// an empty run from a missing one.
func (w *Writer) WriteReport(ctx context.Context, report models.Report) error {
	if !w.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "export.Writer.WriteReport")
	defer span.End()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", w.dir, err)
	}

	if err := w.writeMatched(report.Matched); err != nil {
		return err
	}
	if err := w.writeRecords(UnmatchedFile, report.Unmatched); err != nil {
		return err
	}
	if err := w.writeRecords(AmbiguousFile, report.Ambiguous); err != nil {
		return err
	}

	w.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"dir":       w.dir,
		"matched":   len(report.Matched),
		"unmatched": len(report.Unmatched),
		"ambiguous": len(report.Ambiguous),
	}).Info("Wrote resolution report")
	return nil
}

// WriteSuggestions writes the pending suggestion queue.
func (w *Writer) WriteSuggestions(ctx context.Context, suggestions []models.AliasSuggestion) error {
	if !w.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "export.Writer.WriteSuggestions")
	defer span.End()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", w.dir, err)
	}

	rows := make([][]string, 0, len(suggestions))
	for _, suggestion := range suggestions {
		rows = append(rows, []string{
			suggestion.SourceName,
			suggestion.UnmatchedName,
			suggestion.PlayerID,
			formatScore(suggestion.Similarity),
			string(suggestion.Status),
		})
	}

	header := []string{"source_name", "unmatched_name", "player_id", "similarity", "status"}
	if err := w.writeFile(SuggestionsFile, header, rows); err != nil {
		return err
	}

	w.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"dir":         w.dir,
		"suggestions": len(suggestions),
	}).Info("Wrote alias suggestions report")
	return nil
}

func (w *Writer) writeMatched(results []models.MatchResult) error {
	header := []string{
		"source_name", "record_name", "external_id", "record_team", "record_position",
		"player_id", "canonical_name", "player_team", "player_position",
		"method", "similarity",
	}

	rows := make([][]string, 0, len(results))
	for _, result := range results {
		playerID := ""
		if result.PlayerID != nil {
			playerID = *result.PlayerID
		}
		canonicalName, playerTeam, playerPosition := "", "", ""
		if result.Player != nil {
			canonicalName = result.Player.CanonicalName
			playerTeam = result.Player.Team
			playerPosition = result.Player.Position
		}
		rows = append(rows, []string{
			result.Record.SourceName,
			result.Record.Name,
			result.Record.ExternalID,
			result.Record.Team,
			result.Record.Position,
			playerID,
			canonicalName,
			playerTeam,
			playerPosition,
			string(result.Method),
			formatScore(result.Similarity),
		})
	}
	return w.writeFile(MatchedFile, header, rows)
}

func (w *Writer) writeRecords(name string, results []models.MatchResult) error {
	header := []string{
		"source_name", "record_name", "external_id", "record_team", "record_position", "reason",
	}

	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			result.Record.SourceName,
			result.Record.Name,
			result.Record.ExternalID,
			result.Record.Team,
			result.Record.Position,
			result.Reason,
		})
	}
	return w.writeFile(name, header, rows)
}

func (w *Writer) writeFile(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	writer.Write(header)
	writer.WriteAll(rows)
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// formatScore renders a similarity with the same four decimals the scorer
// rounds to.
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 4, 64)
}
