package ingest

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// SourceNflverse is the source name nflverse records carry.
const SourceNflverse = "nflverse"

// NflverseAdapter parses nflverse player stats CSVs. The gsis-style
// player_id is stable across seasons, which makes these feeds the best
// seed for external id mappings.
type NflverseAdapter struct{}

// NewNflverseAdapter creates the nflverse stats CSV adapter.
func NewNflverseAdapter() *NflverseAdapter {
	return &NflverseAdapter{}
}

// SourceName returns the provider key for nflverse.
func (a *NflverseAdapter) SourceName() string {
	return SourceNflverse
}

// Parse reads a stats file and returns one record per row. Stats files
// repeat a player per week; dedup is the resolver's problem, not the
// adapter's, because repeated records resolve identically.
func (a *NflverseAdapter) Parse(r io.Reader) ([]models.SourceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("stats file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats header: %w", err)
	}

	index := headerIndex(header)
	if err := requireColumns(index, "player_id", "player_name"); err != nil {
		return nil, err
	}

	var records []models.SourceRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read stats row: %w", err)
		}

		name := column(row, index, "player_display_name")
		if name == "" {
			name = column(row, index, "player_name")
		}

		record := models.SourceRecord{
			SourceName: SourceNflverse,
			ExternalID: column(row, index, "player_id"),
			Name:       name,
			Team:       column(row, index, "recent_team"),
			Position:   column(row, index, "position"),
		}
		if record.Name == "" && record.ExternalID == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
