package matching

import (
	"math"
	"strings"
	"unicode"

	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
)

// ContainmentBonus is added to the base ratio when one normalized name is an
// abbreviated form of the other. First-initial names are common in salary
// feeds and must not be penalized purely for length mismatch.
const ContainmentBonus = 0.1

// Scorer provides the string comparison algorithms used for player name
// resolution and alias suggestion ranking
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Similarity scores two raw player names on [0,1]. Both names are normalized
// before comparison; a name that normalizes to empty scores 0 against
// everything, including another empty name.
func (s *Scorer) Similarity(a, b string) float64 {
	return s.SimilarityNormalized(normalizers.NormalizeName(a), normalizers.NormalizeName(b))
}

// SimilarityNormalized scores two already-normalized names. Byte-identical
// inputs short-circuit to exactly 1.0 so equal names never pick up float
// noise. Otherwise the score is the Ratcliff/Obershelp ratio plus the
// containment bonus when one name abbreviates the other, clamped to 1.0.
// Scores are rounded to four decimals: they are stored and compared as
// confidences, and a ratio of 0.7 plus the 0.1 bonus must land exactly on a
// 0.8 threshold instead of a hair under it.
func (s *Scorer) SimilarityNormalized(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	score := s.Ratio(a, b)
	if containsAbbreviated(a, b) {
		score += ContainmentBonus
	}

	return math.Min(math.Round(score*10000)/10000, 1.0)
}

// Ratio calculates the Ratcliff/Obershelp similarity between two strings:
// 2*M / (len(a)+len(b)), where M counts the characters covered by recursively
// chosen longest matching blocks. Arguments are ordered canonically first so
// the ratio is symmetric even when block tie-breaking would disagree.
func (s *Scorer) Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if a > b {
		a, b = b, a
	}
	return 2.0 * float64(commonChars(a, b)) / float64(len(a)+len(b))
}

// commonChars counts characters in common blocks: take the longest matching
// block, then recurse on the pieces to its left and right.
func commonChars(a, b string) int {
	ai, bi, size := longestMatchingBlock(a, b)
	if size == 0 {
		return 0
	}
	return size + commonChars(a[:ai], b[:bi]) + commonChars(a[ai+size:], b[bi+size:])
}

// longestMatchingBlock finds the longest common substring, preferring the
// earliest position in a, then in b, on ties.
func longestMatchingBlock(a, b string) (int, int, int) {
	bestA, bestB, bestLen := 0, 0, 0
	for i := 0; i < len(a); i++ {
		if len(a)-i <= bestLen {
			break
		}
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > bestLen {
				bestA, bestB, bestLen = i, j, k
			}
		}
	}
	return bestA, bestB, bestLen
}

// containsAbbreviated reports whether the shorter of two normalized names is
// contained in the longer, either as a literal substring or token by token
// where each shorter token must prefix a remaining longer token in order.
// The token walk is what relates "c mccaffrey" to "christian mccaffrey".
func containsAbbreviated(a, b string) bool {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		return true
	}

	shortTokens := strings.Fields(shorter)
	longTokens := strings.Fields(longer)
	if len(shortTokens) == 0 || len(shortTokens) > len(longTokens) {
		return false
	}

	i := 0
	for _, token := range longTokens {
		if i < len(shortTokens) && strings.HasPrefix(token, shortTokens[i]) {
			i++
		}
	}
	return i == len(shortTokens)
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings
// Returns a value between 0.0 (no similarity) and 1.0 (exact match)
func (s *Scorer) JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}

	jaro := s.Jaro(a, b)

	// Winkler modification: boost for common prefix
	prefixLen := 0
	maxPrefix := 4
	for i := 0; i < len(a) && i < len(b) && i < maxPrefix; i++ {
		if a[i] == b[i] {
			prefixLen++
		} else {
			break
		}
	}

	// Winkler scaling factor is typically 0.1
	scalingFactor := 0.1
	return jaro + float64(prefixLen)*scalingFactor*(1.0-jaro)
}

// Jaro calculates the Jaro similarity between two strings
func (s *Scorer) Jaro(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Maximum distance for character matching
	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	transpositions := 0

	// Find matches
	for i := 0; i < len(a); i++ {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	// Count transpositions
	k := 0
	for i := 0; i < len(a); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// Levenshtein calculates the Levenshtein distance between two strings
// Returns a similarity score between 0.0 and 1.0
func (s *Scorer) Levenshtein(a, b string) float64 {
	distance := s.LevenshteinDistance(a, b)
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// Soundex calculates the Soundex encoding of a string
func (s *Scorer) Soundex(str string) string {
	if len(str) == 0 {
		return ""
	}

	// Convert to uppercase
	str = strings.ToUpper(str)

	// Keep the first letter
	result := string(str[0])
	prevCode := soundexCode(rune(str[0]))

	// Process remaining characters
	for i := 1; i < len(str) && len(result) < 4; i++ {
		char := rune(str[i])
		if !unicode.IsLetter(char) {
			continue
		}

		code := soundexCode(char)
		if code != "0" && code != prevCode {
			result += code
		}
		prevCode = code
	}

	// Pad with zeros
	for len(result) < 4 {
		result += "0"
	}

	return result
}

// SoundexMatch returns 1.0 if Soundex codes match, 0.0 otherwise
func (s *Scorer) SoundexMatch(a, b string) float64 {
	if s.Soundex(a) == s.Soundex(b) {
		return 1.0
	}
	return 0.0
}

// soundexCode returns the Soundex code for a character
func soundexCode(char rune) string {
	switch char {
	case 'B', 'F', 'P', 'V':
		return "1"
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return "2"
	case 'D', 'T':
		return "3"
	case 'L':
		return "4"
	case 'M', 'N':
		return "5"
	case 'R':
		return "6"
	default:
		return "0"
	}
}

// WeightedScore calculates a weighted average of scores
func (s *Scorer) WeightedScore(scores map[string]float64, weights map[string]float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	var totalWeight float64
	var weightedSum float64

	for field, score := range scores {
		weight := 1.0 // Default weight
		if w, ok := weights[field]; ok {
			weight = w
		}
		weightedSum += score * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0.0
	}

	return weightedSum / totalWeight
}
