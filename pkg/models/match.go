package models

// MatchMethod identifies which resolution stage produced a match
type MatchMethod string

const (
	// MatchMethodExactCrosswalk means the record's external id was already mapped
	MatchMethodExactCrosswalk MatchMethod = "exact_crosswalk"
	// MatchMethodAliasLookup means the normalized name hit a stored alias
	MatchMethodAliasLookup MatchMethod = "alias_lookup"
	// MatchMethodFuzzyMatch means similarity scoring picked the player
	MatchMethodFuzzyMatch MatchMethod = "fuzzy_match"
)

// MatchStatus is the terminal outcome of resolving one source record
type MatchStatus string

const (
	// MatchStatusMatched means exactly one canonical player was identified
	MatchStatusMatched MatchStatus = "matched"
	// MatchStatusUnmatched means no candidate cleared the threshold
	MatchStatusUnmatched MatchStatus = "unmatched"
	// MatchStatusAmbiguous means several candidates tied and filters could not separate them
	MatchStatusAmbiguous MatchStatus = "ambiguous"
)

// SourceRecord is one row from a provider feed awaiting resolution.
// ExternalID is optional; records without one resolve by name alone.
// SourceName may be empty on slate records, in which case the resolver
// fills it from the slate's source before resolving.
type SourceRecord struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Team       string `json:"team"`
	Position   string `json:"position"`
}

// MatchResult is the outcome of resolving one source record. PlayerID and
// Player are set only when Status is matched.
type MatchResult struct {
	Record     SourceRecord     `json:"record"`
	PlayerID   *string          `json:"player_id,omitempty"`
	Player     *CanonicalPlayer `json:"player,omitempty"`
	Method     MatchMethod      `json:"method,omitempty"`
	Similarity float64          `json:"similarity"`
	Status     MatchStatus      `json:"status"`
	Reason     string           `json:"reason,omitempty"`
}

// IsMatched returns true if the record resolved to a single player
func (r *MatchResult) IsMatched() bool {
	return r.Status == MatchStatusMatched
}

// ResolveSlateRequest submits a batch of records from one provider for
// resolution. Records missing a source name inherit the slate's.
type ResolveSlateRequest struct {
	SourceName string         `json:"source_name" validate:"required"`
	Records    []SourceRecord `json:"records" validate:"required,min=1,dive"`
}

// Report partitions a slate's results by outcome. Every input record lands in
// exactly one bucket and buckets preserve the slate's submission order.
type Report struct {
	Matched   []MatchResult `json:"matched"`
	Unmatched []MatchResult `json:"unmatched"`
	Ambiguous []MatchResult `json:"ambiguous"`
	Summary   ReportSummary `json:"summary"`
}

// ReportSummary carries the aggregate counters for a resolution run
type ReportSummary struct {
	TotalRecords   int     `json:"total_records"`
	MatchedCount   int     `json:"matched_count"`
	UnmatchedCount int     `json:"unmatched_count"`
	AmbiguousCount int     `json:"ambiguous_count"`
	ExactMatches   int     `json:"exact_matches"`
	AliasMatches   int     `json:"alias_matches"`
	FuzzyMatches   int     `json:"fuzzy_matches"`
	MatchRate      float64 `json:"match_rate"`
}
