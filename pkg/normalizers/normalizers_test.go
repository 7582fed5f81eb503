package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	t.Run("lowercases and trims", func(t *testing.T) {
		assert.Equal(t, "mike evans", NormalizeName("  Mike Evans  "))
	})

	t.Run("strips generational suffixes", func(t *testing.T) {
		assert.Equal(t, "odell beckham", NormalizeName("Odell Beckham Jr."))
		assert.Equal(t, "odell beckham", NormalizeName("Odell Beckham Jr"))
		assert.Equal(t, "frank gore", NormalizeName("Frank Gore Sr."))
		assert.Equal(t, "robert griffin", NormalizeName("Robert Griffin III"))
		assert.Equal(t, "kenneth walker", NormalizeName("Kenneth Walker II"))
		assert.Equal(t, "dorance armstrong", NormalizeName("Dorance Armstrong IV"))
		assert.Equal(t, "gardner minshew", NormalizeName("Gardner Minshew V"))
	})

	t.Run("strips stacked and punctuation-joined suffixes", func(t *testing.T) {
		assert.Equal(t, "marvin harrison", NormalizeName("Marvin Harrison Jr Sr"))
		assert.Equal(t, "mcgarry", NormalizeName("McGarry-Jr"))
		assert.Equal(t, "beckham", NormalizeName("Beckham.Jr"))
	})

	t.Run("suffix token as the whole name is kept", func(t *testing.T) {
		// Nothing precedes the token, so there is no name to strip it from.
		assert.Equal(t, "jr", NormalizeName("Jr"))
		assert.Equal(t, "v", NormalizeName("V"))
	})

	t.Run("folds punctuation to a single space", func(t *testing.T) {
		assert.Equal(t, "c mccaffrey", NormalizeName("C.McCaffrey"))
		assert.Equal(t, "d j moore", NormalizeName("D.J. Moore"))
		assert.Equal(t, "ja marr chase", NormalizeName("Ja'Marr Chase"))
		assert.Equal(t, "amon ra st brown", NormalizeName("Amon-Ra St. Brown"))
	})

	t.Run("collapses whitespace runs", func(t *testing.T) {
		assert.Equal(t, "josh allen", NormalizeName("Josh \t  Allen"))
	})

	t.Run("suffix stripping and folding combine", func(t *testing.T) {
		assert.Equal(t, "d j moore", NormalizeName("D.J. Moore Jr."))
		assert.Equal(t, "mike williams", NormalizeName("Mike Williams Jr"))
		assert.Equal(t, "mike williams", NormalizeName("Mike Williams"))
	})

	t.Run("garbage input yields empty key", func(t *testing.T) {
		assert.Equal(t, "", NormalizeName(""))
		assert.Equal(t, "", NormalizeName("..."))
		assert.Equal(t, "", NormalizeName("12345"))
		assert.Equal(t, "", NormalizeName("  \t "))
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := []string{
			"Odell Beckham Jr.",
			"C.McCaffrey",
			"Ja'Marr Chase",
			"  Mike   Evans ",
			"...",
			"",
			"Amon-Ra St. Brown",
			"Robert Griffin III",
			"Marvin Harrison Jr Sr",
			"McGarry-Jr",
			"Jr",
		}
		for _, in := range inputs {
			once := NormalizeName(in)
			assert.Equal(t, once, NormalizeName(once), "input %q", in)
		}
	})
}

func TestNormalizeTeam(t *testing.T) {
	t.Run("uppercases and trims", func(t *testing.T) {
		assert.Equal(t, "CIN", NormalizeTeam(" cin "))
	})

	t.Run("folds provider variations", func(t *testing.T) {
		assert.Equal(t, "LAR", NormalizeTeam("LA"))
		assert.Equal(t, "WAS", NormalizeTeam("WSH"))
		assert.Equal(t, "GB", NormalizeTeam("gnb"))
		assert.Equal(t, "JAX", NormalizeTeam("JAC"))
		assert.Equal(t, "LV", NormalizeTeam("OAK"))
	})

	t.Run("passes through canonical abbreviations", func(t *testing.T) {
		assert.Equal(t, "SF", NormalizeTeam("SF"))
		assert.Equal(t, "KC", NormalizeTeam("KC"))
	})
}

func TestNormalizePosition(t *testing.T) {
	t.Run("folds defense notations", func(t *testing.T) {
		assert.Equal(t, "DST", NormalizePosition("DEF"))
		assert.Equal(t, "DST", NormalizePosition("D/ST"))
		assert.Equal(t, "DST", NormalizePosition("d"))
		assert.Equal(t, "DST", NormalizePosition("Defense"))
	})

	t.Run("keeps first of multi-position labels", func(t *testing.T) {
		assert.Equal(t, "RB", NormalizePosition("RB/WR"))
	})

	t.Run("passes through standard positions", func(t *testing.T) {
		for _, pos := range []string{"QB", "RB", "WR", "TE", "K", "DST"} {
			assert.Equal(t, pos, NormalizePosition(pos))
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("applies registered normalizer by name", func(t *testing.T) {
		assert.Equal(t, "c mccaffrey", Apply("C.McCaffrey", "nname"))
		assert.Equal(t, "LAR", Apply("la", "nteam"))
	})

	t.Run("unknown normalizer passes value through", func(t *testing.T) {
		assert.Equal(t, "As-Is", Apply("As-Is", "no_such_normalizer"))
	})

	t.Run("applies chain in sequence", func(t *testing.T) {
		assert.Equal(t, "mikeevans", ApplyChain(" Mike Evans ", "nname", "remove_whitespace"))
	})

	t.Run("get reports registration", func(t *testing.T) {
		_, ok := Get("nname")
		assert.True(t, ok)
		_, ok = Get("missing")
		assert.False(t, ok)
	})
}
