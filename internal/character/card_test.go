package character

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	t.Run("Flat", func(t *testing.T) {
		card, err := ParseCard([]byte(`{"name":"Mira","description":"a sea witch"}`))
		require.NoError(t, err)
		assert.Equal(t, "Mira", card.Get("name"))
		assert.Equal(t, "a sea witch", card.Get("description"))
	})

	t.Run("CharaCardV2Unwrapped", func(t *testing.T) {
		raw := `{"spec":"chara_card_v2","spec_version":"2.0","data":{"name":"Mira","first_mes":"Hello there."}}`
		card, err := ParseCard([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "Mira", card.Get("name"))
		assert.Equal(t, "Hello there.", card.Get("first_mes"))
		assert.Empty(t, card.Get("spec"), "envelope fields must not leak through")
	})

	t.Run("NonTextualProperty", func(t *testing.T) {
		card, err := ParseCard([]byte(`{"name":"Mira","tags":["witch","sea"]}`))
		require.NoError(t, err)
		assert.Empty(t, card.Get("tags"))
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := ParseCard([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestCardFirst(t *testing.T) {
	card, err := ParseCard([]byte(`{"char_name":"Mira","persona":"stoic"}`))
	require.NoError(t, err)

	assert.Equal(t, "Mira", card.First("name", "char_name"))
	assert.Equal(t, "stoic", card.First("char_persona", "persona"))
	assert.Empty(t, card.First("scenario", "world_scenario"))
	assert.Equal(t, "Mira", card.Name())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Mira", DisplayName("mira"))
	assert.Equal(t, "Mira", DisplayName("MIRA"))
	assert.Equal(t, "Mira", DisplayName("  mIrA "))
	assert.Equal(t, "", DisplayName("   "))
}
