package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayer(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := Player("Christian McCaffrey", "RB", "SF")
		b := Player("Christian McCaffrey", "RB", "SF")
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("formatting variants hash identically", func(t *testing.T) {
		a := Player("Christian McCaffrey", "RB", "SF")
		b := Player("  christian   mccaffrey ", "rb", "sf")
		assert.Equal(t, a, b)
	})

	t.Run("suffix and team variants fold in", func(t *testing.T) {
		assert.Equal(t,
			Player("Mike Williams Jr", "WR", "LA"),
			Player("Mike Williams", "WR", "LAR"),
		)
		assert.Equal(t,
			Player("Arizona Cardinals", "DEF", "ARI"),
			Player("Arizona Cardinals", "DST", "ARI"),
		)
	})

	t.Run("identity fields all participate", func(t *testing.T) {
		base := Player("Mike Williams", "WR", "LAC")
		assert.NotEqual(t, base, Player("Mike Williams", "WR", "NYJ"))
		assert.NotEqual(t, base, Player("Mike Williams", "TE", "LAC"))
		assert.NotEqual(t, base, Player("Mike Evans", "WR", "LAC"))
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		// Name content must not bleed into the position field.
		assert.NotEqual(t, Player("a b", "", "SF"), Player("a", "b", "SF"))
	})
}
