// Package crosswalk defines the persistent mapping store between provider
// records and canonical players: external id crosswalks, name aliases, and
// the canonical player pool itself.
package crosswalk

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// ConflictError reports a rejected external id write: the key already maps to
// a different player at equal or higher confidence, and overwriting it would
// silently downgrade a verified mapping. Callers resolve it explicitly; the
// store never auto-resolves.
type ConflictError struct {
	SourceName          string
	ExternalID          string
	ExistingPlayerID    string
	ExistingConfidence  float64
	AttemptedPlayerID   string
	AttemptedConfidence float64
}

func NewConflictError(sourceName, externalID, existingPlayerID, attemptedPlayerID string, existingConfidence, attemptedConfidence float64) *ConflictError {
	return &ConflictError{
		SourceName:          sourceName,
		ExternalID:          externalID,
		ExistingPlayerID:    existingPlayerID,
		ExistingConfidence:  existingConfidence,
		AttemptedPlayerID:   attemptedPlayerID,
		AttemptedConfidence: attemptedConfidence,
	}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"external id %s/%s already maps to player %s at confidence %.2f, refusing write for player %s at confidence %.2f",
		e.SourceName, e.ExternalID, e.ExistingPlayerID, e.ExistingConfidence, e.AttemptedPlayerID, e.AttemptedConfidence,
	)
}

func (e *ConflictError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, e.Error()).
		AddMetaValue("source_name", e.SourceName).
		AddMetaValue("external_id", e.ExternalID).
		AddMetaValue("existing_player_id", e.ExistingPlayerID).
		AddMetaValue("attempted_player_id", e.AttemptedPlayerID)
}

func IsConflictError(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
