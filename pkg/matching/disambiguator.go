// Package matching implements player name matching with a clear separation:
// - Scorer = arithmetic (pure string similarity, no policy)
// - Disambiguator = policy (thresholds and tie-breaking, never touches strings)
package matching

import (
	"fmt"
	"sort"

	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
)

// Candidate pairs a canonical player with its similarity against one record.
type Candidate struct {
	Player     models.CanonicalPlayer
	Similarity float64
}

// Config contains the acceptance policy for fuzzy disambiguation.
type Config struct {
	Threshold float64 // Minimum similarity to accept a match (default: 0.8)
	TieBand   float64 // Candidates within this of the top score count as tied (default: 0.05)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Threshold: 0.8,
		TieBand:   0.05,
	}
}

// Decision is the outcome of disambiguating one record's candidates.
// Accepted is nil unless Status is matched.
type Decision struct {
	Accepted *Candidate
	Status   models.MatchStatus
	Reason   string
}

// Disambiguator applies the acceptance policy to scored candidates.
// It never accepts a candidate below the threshold, no matter how the
// tie-breaking filters play out.
type Disambiguator struct {
	cfg Config
}

// NewDisambiguator creates a Disambiguator, filling zero config values with
// defaults.
func NewDisambiguator(cfg Config) *Disambiguator {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.TieBand <= 0 {
		cfg.TieBand = def.TieBand
	}
	return &Disambiguator{cfg: cfg}
}

// Threshold returns the configured acceptance threshold.
func (d *Disambiguator) Threshold() float64 {
	return d.cfg.Threshold
}

// Decide picks at most one candidate for a record:
// 1. Sort candidates by similarity descending.
// 2. Top score below threshold → unmatched.
// 3. Collect the tie set: candidates at or above threshold within the tie
//    band of the top score. A lone survivor is accepted.
// 4. Otherwise filter ties by the record's team, then by position. Exactly
//    one survivor at any point is accepted.
// 5. Two or more survivors after both filters → ambiguous. Never guess.
func (d *Disambiguator) Decide(record models.SourceRecord, candidates []Candidate) Decision {
	if len(candidates) == 0 {
		return Decision{
			Status: models.MatchStatusUnmatched,
			Reason: "no candidates scored",
		}
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	top := sorted[0]
	if top.Similarity < d.cfg.Threshold {
		return Decision{
			Status: models.MatchStatusUnmatched,
			Reason: fmt.Sprintf("best score %.2f below threshold %.2f", top.Similarity, d.cfg.Threshold),
		}
	}

	// Sub-threshold candidates never count as ties; they could not be
	// accepted even if a filter singled them out.
	ties := make([]Candidate, 0, len(sorted))
	for _, c := range sorted {
		if c.Similarity >= d.cfg.Threshold && top.Similarity-c.Similarity <= d.cfg.TieBand {
			ties = append(ties, c)
		}
	}

	if len(ties) == 1 {
		return accept(ties[0])
	}

	if record.Team != "" {
		if filtered := filterByTeam(ties, record.Team); len(filtered) == 1 {
			return accept(filtered[0])
		} else if len(filtered) > 1 {
			ties = filtered
		}
	}

	if record.Position != "" {
		if filtered := filterByPosition(ties, record.Position); len(filtered) == 1 {
			return accept(filtered[0])
		} else if len(filtered) > 1 {
			ties = filtered
		}
	}

	return Decision{
		Status: models.MatchStatusAmbiguous,
		Reason: fmt.Sprintf("%d candidates tied at score %.2f", len(ties), top.Similarity),
	}
}

func accept(c Candidate) Decision {
	return Decision{
		Accepted: &c,
		Status:   models.MatchStatusMatched,
	}
}

// filterByTeam keeps candidates whose stored team matches the record's,
// comparing canonicalized abbreviations so provider variants still agree.
func filterByTeam(candidates []Candidate, team string) []Candidate {
	want := normalizers.NormalizeTeam(team)
	var kept []Candidate
	for _, c := range candidates {
		if normalizers.NormalizeTeam(c.Player.Team) == want {
			kept = append(kept, c)
		}
	}
	return kept
}

// filterByPosition keeps candidates whose stored position matches the record's.
func filterByPosition(candidates []Candidate, position string) []Candidate {
	want := normalizers.NormalizePosition(position)
	var kept []Candidate
	for _, c := range candidates {
		if normalizers.NormalizePosition(c.Player.Position) == want {
			kept = append(kept, c)
		}
	}
	return kept
}
