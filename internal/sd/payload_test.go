package sd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertTraits(t *testing.T) {
	t.Run("WeavesTraitsAtMarker", func(t *testing.T) {
		got := InsertTraits("masterpiece, 1girl$, outdoors", "(happy)", 1.2)
		assert.Equal(t, "masterpiece, 1girl,(happy:1.2), outdoors", got)
	})

	t.Run("IntegerWeightStaysBare", func(t *testing.T) {
		got := InsertTraits("portrait$", "(calm smile)", 1)
		assert.Equal(t, "portrait,(calm smile:1)", got)
	})

	t.Run("EmptyTraitsDropsMarker", func(t *testing.T) {
		got := InsertTraits("masterpiece, 1girl$, outdoors", "", 1.2)
		assert.Equal(t, "masterpiece, 1girl, outdoors", got)
	})

	t.Run("NoMarkerLeavesPromptAlone", func(t *testing.T) {
		got := InsertTraits("masterpiece, 1girl", "(happy)", 1.2)
		assert.Equal(t, "masterpiece, 1girl", got)
	})
}

func TestBuildPayload(t *testing.T) {
	base := map[string]any{
		"steps":     float64(20),
		"cfg_scale": float64(7),
	}

	payload := BuildPayload(base, "1girl$", "lowres", "(beach)", 1.2)

	assert.Equal(t, "1girl,(beach:1.2)", payload["prompt"])
	assert.Equal(t, "lowres", payload["negative_prompt"])
	assert.Equal(t, float64(20), payload["steps"])

	_, touched := base["prompt"]
	assert.False(t, touched, "template must not be mutated")
}

func TestBuildPayloadNilBase(t *testing.T) {
	payload := BuildPayload(nil, "1girl$", "", "", 1.2)
	assert.Equal(t, "1girl", payload["prompt"])
	assert.Equal(t, "", payload["negative_prompt"])
}
