// Package report turns a slate's match results into the review report:
// ordered outcome partitions plus summary counters.
package report

import (
	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// Generate partitions results by status, preserving input order within each
// partition, and computes the summary. Every input lands in exactly one
// partition. Pure; persistence belongs to callers.
func Generate(results []models.MatchResult) models.Report {
	report := models.Report{
		Matched:   []models.MatchResult{},
		Unmatched: []models.MatchResult{},
		Ambiguous: []models.MatchResult{},
	}

	for _, result := range results {
		switch result.Status {
		case models.MatchStatusMatched:
			report.Matched = append(report.Matched, result)
			switch result.Method {
			case models.MatchMethodExactCrosswalk:
				report.Summary.ExactMatches++
			case models.MatchMethodAliasLookup:
				report.Summary.AliasMatches++
			case models.MatchMethodFuzzyMatch:
				report.Summary.FuzzyMatches++
			}
		case models.MatchStatusAmbiguous:
			report.Ambiguous = append(report.Ambiguous, result)
		default:
			// Anything unrecognized is unmatched: the record needs a human
			// either way.
			report.Unmatched = append(report.Unmatched, result)
		}
	}

	report.Summary.TotalRecords = len(results)
	report.Summary.MatchedCount = len(report.Matched)
	report.Summary.UnmatchedCount = len(report.Unmatched)
	report.Summary.AmbiguousCount = len(report.Ambiguous)
	if report.Summary.TotalRecords > 0 {
		report.Summary.MatchRate = 100 * float64(report.Summary.MatchedCount) / float64(report.Summary.TotalRecords)
	}

	return report
}
