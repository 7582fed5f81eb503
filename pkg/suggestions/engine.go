// Package suggestions ranks near-miss candidates for unmatched records and
// queues them for human review. Suggestions never influence resolution until
// a reviewer approves one into an alias.
package suggestions

import (
	"sort"

	"github.com/uruley/4HorsemenDFS/pkg/matching"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
)

const (
	// DefaultMinScore is the blended score floor for keeping a suggestion.
	DefaultMinScore = 0.6
	// DefaultLimit is how many suggestions to keep per unmatched record.
	DefaultLimit = 3
)

// Config controls suggestion ranking.
type Config struct {
	MinScore float64
	Limit    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinScore: DefaultMinScore,
		Limit:    DefaultLimit,
	}
}

// Candidate is one ranked near-miss pairing.
type Candidate struct {
	Player models.CanonicalPlayer
	Score  float64
}

// Engine ranks candidates with a blend of string metrics. The acceptance
// threshold already rejected these names, so a single metric is not enough;
// the blend surfaces names that several metrics agree are close.
type Engine struct {
	scorer *matching.Scorer
	cfg    Config
}

// NewEngine creates an Engine, filling zero config values with defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	return &Engine{
		scorer: matching.NewScorer(),
		cfg:    cfg,
	}
}

var blendWeights = map[string]float64{
	"similarity":   2.0,
	"jaro_winkler": 1.5,
	"levenshtein":  1.0,
	"soundex":      0.5,
}

// Rank scores the normalized name against every player and returns the top
// candidates at or above the score floor, best first.
func (e *Engine) Rank(normalizedName string, players []models.CanonicalPlayer) []Candidate {
	if normalizedName == "" {
		return nil
	}

	candidates := make([]Candidate, 0, len(players))
	for _, player := range players {
		score := e.Score(normalizedName, normalizers.NormalizeName(player.CanonicalName))
		if score >= e.cfg.MinScore {
			candidates = append(candidates, Candidate{Player: player, Score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > e.cfg.Limit {
		candidates = candidates[:e.cfg.Limit]
	}
	return candidates
}

// Score blends the string metrics for one normalized pair.
func (e *Engine) Score(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	scores := map[string]float64{
		"similarity":   e.scorer.SimilarityNormalized(a, b),
		"jaro_winkler": e.scorer.JaroWinkler(a, b),
		"levenshtein":  e.scorer.Levenshtein(a, b),
		"soundex":      e.scorer.SoundexMatch(a, b),
	}
	return e.scorer.WeightedScore(scores, blendWeights)
}
