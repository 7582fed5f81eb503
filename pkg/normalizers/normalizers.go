// Package normalizers provides field normalization functions for match keys
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("nname", NormalizeName)
	Register("nteam", NormalizeTeam)
	Register("nposition", NormalizePosition)
	Register("remove_whitespace", RemoveWhitespace)
	Register("alphanumeric", Alphanumeric)
	Register("digits_only", DigitsOnly)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// suffixPattern matches one trailing generational suffix token in a folded
// key, where tokens are lowercase and separated by single spaces.
var suffixPattern = regexp.MustCompile(` (jr|sr|ii|iii|iv|v)$`)

// NormalizeName canonicalizes a raw player display name into a comparable key:
// fold every character that is neither a letter nor whitespace into a space,
// collapse whitespace runs, lowercase, trim, then strip trailing generational
// suffix tokens (Jr, Sr, II, III, IV, V) until none remain. Punctuation folds
// to a space rather than disappearing so "C.McCaffrey" keys as "c mccaffrey",
// which keeps first-initial forms comparable to full names token by token.
// Stripping after folding and to a fixpoint makes every result stable under
// re-normalization, including forms like "Beckham-Jr" or "Harrison Jr Sr".
// Deterministic and total; garbage in yields a garbage (possibly empty) key,
// never an error. An empty key means the name is unmatchable.
func NormalizeName(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			result.WriteRune(unicode.ToLower(r))
			prevSpace = false
		default:
			if !prevSpace {
				result.WriteByte(' ')
				prevSpace = true
			}
		}
	}

	key := strings.TrimSpace(result.String())
	for {
		stripped := suffixPattern.ReplaceAllString(key, "")
		if stripped == key {
			return key
		}
		key = stripped
	}
}

// teamVariations maps alternate team abbreviations seen across providers to
// the canonical form.
var teamVariations = map[string]string{
	"LA":  "LAR",
	"OAK": "LV",
	"SD":  "LAC",
	"STL": "LAR",
	"WSH": "WAS",
	"SFO": "SF",
	"KCC": "KC",
	"GNB": "GB",
	"TBB": "TB",
	"NWE": "NE",
	"NOS": "NO",
	"JAC": "JAX",
}

// NormalizeTeam canonicalizes a team abbreviation (uppercase, trim, fold
// known provider variations like WSH/WAS and GNB/GB)
func NormalizeTeam(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if canonical, ok := teamVariations[s]; ok {
		return canonical
	}
	return s
}

// positionVariations maps alternate position labels to the canonical form.
// Defense notation differs the most across providers.
var positionVariations = map[string]string{
	"DEF":     "DST",
	"DEFENSE": "DST",
	"DEF/ST":  "DST",
	"D/ST":    "DST",
	"D":       "DST",
}

// NormalizePosition canonicalizes a roster position label. Multi-position
// labels like "RB/WR" keep their first position.
func NormalizePosition(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if canonical, ok := positionVariations[s]; ok {
		return canonical
	}
	if idx := strings.IndexByte(s, '/'); idx > 0 {
		s = s[:idx]
	}
	return s
}

// RemoveWhitespace removes all whitespace characters
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
