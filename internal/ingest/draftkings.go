package ingest

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// SourceDraftKings is the source name DraftKings records carry.
const SourceDraftKings = "draftkings"

// DraftKingsAdapter parses DraftKings salary export CSVs. The export header
// is Position,Name + ID,Name,ID,Roster Position,Salary,Game Info,TeamAbbrev,
// AvgPointsPerGame; only the identity columns matter here.
type DraftKingsAdapter struct{}

// NewDraftKingsAdapter creates the DraftKings salary CSV adapter.
func NewDraftKingsAdapter() *DraftKingsAdapter {
	return &DraftKingsAdapter{}
}

// SourceName returns the provider key for DraftKings.
func (a *DraftKingsAdapter) SourceName() string {
	return SourceDraftKings
}

// Parse reads a salary export and returns one record per roster row. Rows
// with neither a name nor an id are skipped; everything else is kept so the
// resolver can report on it.
func (a *DraftKingsAdapter) Parse(r io.Reader) ([]models.SourceRecord, error) {
	reader := csv.NewReader(r)
	// Salary exports pad some rows short of the header.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("salary file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read salary header: %w", err)
	}

	index := headerIndex(header)
	if err := requireColumns(index, "name", "id"); err != nil {
		return nil, err
	}

	var records []models.SourceRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read salary row: %w", err)
		}

		record := models.SourceRecord{
			SourceName: SourceDraftKings,
			ExternalID: column(row, index, "id"),
			Name:       column(row, index, "name"),
			Team:       column(row, index, "teamabbrev"),
			Position:   column(row, index, "position"),
		}
		if record.Name == "" && record.ExternalID == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
