package report

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

func result(name string, status models.MatchStatus, method models.MatchMethod) models.MatchResult {
	return models.MatchResult{
		Record: models.SourceRecord{SourceName: "draftkings", Name: name},
		Status: status,
		Method: method,
	}
}

func TestGenerate(t *testing.T) {
	t.Run("partitions cover every input exactly once", func(t *testing.T) {
		results := []models.MatchResult{
			result("a", models.MatchStatusMatched, models.MatchMethodExactCrosswalk),
			result("b", models.MatchStatusUnmatched, ""),
			result("c", models.MatchStatusMatched, models.MatchMethodFuzzyMatch),
			result("d", models.MatchStatusAmbiguous, ""),
			result("e", models.MatchStatusMatched, models.MatchMethodAliasLookup),
		}

		report := Generate(results)
		assert.Equal(t, len(results), len(report.Matched)+len(report.Unmatched)+len(report.Ambiguous))
		assert.Equal(t, 5, report.Summary.TotalRecords)
		assert.Equal(t, 3, report.Summary.MatchedCount)
		assert.Equal(t, 1, report.Summary.UnmatchedCount)
		assert.Equal(t, 1, report.Summary.AmbiguousCount)
	})

	t.Run("partitions preserve input order", func(t *testing.T) {
		var results []models.MatchResult
		for i := 0; i < 9; i++ {
			status := models.MatchStatusMatched
			switch i % 3 {
			case 1:
				status = models.MatchStatusUnmatched
			case 2:
				status = models.MatchStatusAmbiguous
			}
			results = append(results, result(fmt.Sprintf("r%d", i), status, ""))
		}

		report := Generate(results)
		require.Len(t, report.Matched, 3)
		assert.Equal(t, "r0", report.Matched[0].Record.Name)
		assert.Equal(t, "r3", report.Matched[1].Record.Name)
		assert.Equal(t, "r6", report.Matched[2].Record.Name)
		assert.Equal(t, "r1", report.Unmatched[0].Record.Name)
		assert.Equal(t, "r4", report.Unmatched[1].Record.Name)
		assert.Equal(t, "r2", report.Ambiguous[0].Record.Name)
	})

	t.Run("counts matches per method", func(t *testing.T) {
		report := Generate([]models.MatchResult{
			result("a", models.MatchStatusMatched, models.MatchMethodExactCrosswalk),
			result("b", models.MatchStatusMatched, models.MatchMethodExactCrosswalk),
			result("c", models.MatchStatusMatched, models.MatchMethodAliasLookup),
			result("d", models.MatchStatusMatched, models.MatchMethodFuzzyMatch),
		})
		assert.Equal(t, 2, report.Summary.ExactMatches)
		assert.Equal(t, 1, report.Summary.AliasMatches)
		assert.Equal(t, 1, report.Summary.FuzzyMatches)
	})

	t.Run("match rate is a percentage of the total", func(t *testing.T) {
		report := Generate([]models.MatchResult{
			result("a", models.MatchStatusMatched, models.MatchMethodFuzzyMatch),
			result("b", models.MatchStatusUnmatched, ""),
			result("c", models.MatchStatusMatched, models.MatchMethodFuzzyMatch),
			result("d", models.MatchStatusAmbiguous, ""),
		})
		assert.Equal(t, 50.0, report.Summary.MatchRate)
	})

	t.Run("empty input yields zero rate not a division error", func(t *testing.T) {
		report := Generate(nil)
		assert.Equal(t, 0.0, report.Summary.MatchRate)
		assert.Equal(t, 0, report.Summary.TotalRecords)
		assert.NotNil(t, report.Matched)
		assert.NotNil(t, report.Unmatched)
		assert.NotNil(t, report.Ambiguous)
	})

	t.Run("fully unmatched slate still reports", func(t *testing.T) {
		report := Generate([]models.MatchResult{
			result("a", models.MatchStatusUnmatched, ""),
			result("b", models.MatchStatusUnmatched, ""),
		})
		assert.Equal(t, 0.0, report.Summary.MatchRate)
		assert.Len(t, report.Unmatched, 2)
	})
}
