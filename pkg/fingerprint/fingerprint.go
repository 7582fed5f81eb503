// Package fingerprint derives stable identity hashes for canonical players.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
)

// Player creates a deterministic fingerprint for a player's identity triple.
// The fingerprint is a SHA256 hash of the normalized (name, position, team)
// fields, so the same athlete described with different formatting hashes
// identically. Player creation keys on it to stay idempotent across
// re-imported slates.
func Player(name, position, team string) string {
	canonical := strings.Join([]string{
		normalizers.NormalizeName(name),
		normalizers.NormalizePosition(position),
		normalizers.NormalizeTeam(team),
	}, "|")

	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:])
}
