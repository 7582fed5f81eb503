// Package preview exposes the normalization and scoring primitives as
// standalone endpoints, so a reviewer can see exactly how two names score
// before deciding on a suggestion.
package preview

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uruley/4HorsemenDFS/pkg/fingerprint"
	"github.com/uruley/4HorsemenDFS/pkg/matching"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
	"github.com/uruley/4HorsemenDFS/pkg/utils"
)

// NormalizeRequest previews how one raw record normalizes
type NormalizeRequest struct {
	Name     string `json:"name" validate:"required"`
	Team     string `json:"team"`
	Position string `json:"position"`
}

// NormalizeResponse carries the normalized forms and the fingerprint they
// produce
type NormalizeResponse struct {
	Name        string `json:"name"`
	Team        string `json:"team"`
	Position    string `json:"position"`
	Fingerprint string `json:"fingerprint"`
}

// SimilarityRequest previews how two raw names compare
type SimilarityRequest struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required"`
}

// SimilarityResponse breaks the comparison into its component scores.
// Similarity is the score resolution actually uses; the rest are the
// signals the suggestion engine blends.
type SimilarityResponse struct {
	NormalizedA string  `json:"normalized_a"`
	NormalizedB string  `json:"normalized_b"`
	Similarity  float64 `json:"similarity"`
	Ratio       float64 `json:"ratio"`
	JaroWinkler float64 `json:"jaro_winkler"`
	Levenshtein float64 `json:"levenshtein"`
	SoundexA    string  `json:"soundex_a"`
	SoundexB    string  `json:"soundex_b"`
}

// Register registers preview routes on the api group.
func Register(api *echo.Group) {
	api.POST("/preview/normalize", PreviewNormalize)
	api.POST("/preview/similarity", PreviewSimilarity)
}

// PreviewNormalize shows the normalized forms of a record
func PreviewNormalize(c echo.Context) error {
	req, err := utils.BindRequest[NormalizeRequest](c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, NormalizeResponse{
		Name:        normalizers.NormalizeName(req.Name),
		Team:        normalizers.NormalizeTeam(req.Team),
		Position:    normalizers.NormalizePosition(req.Position),
		Fingerprint: fingerprint.Player(req.Name, req.Position, req.Team),
	})
}

// PreviewSimilarity shows the component scores for a pair of names
func PreviewSimilarity(c echo.Context) error {
	req, err := utils.BindRequest[SimilarityRequest](c)
	if err != nil {
		return err
	}

	scorer := matching.NewScorer()
	a := normalizers.NormalizeName(req.A)
	b := normalizers.NormalizeName(req.B)

	return c.JSON(http.StatusOK, SimilarityResponse{
		NormalizedA: a,
		NormalizedB: b,
		Similarity:  scorer.SimilarityNormalized(a, b),
		Ratio:       scorer.Ratio(a, b),
		JaroWinkler: scorer.JaroWinkler(a, b),
		Levenshtein: scorer.Levenshtein(a, b),
		SoundexA:    scorer.Soundex(a),
		SoundexB:    scorer.Soundex(b),
	})
}
