package sd

import (
	"maps"
	"strconv"
	"strings"
)

// InsertTraits splices generated traits into a character's base
// prompt at the $ marker, weighted so the fixed character traits keep
// dominating the image. traits arrives parenthesized, e.g. "(happy)",
// and comes out as ",(happy:1.2)". An empty traits string just drops
// the marker.
func InsertTraits(prompt, traits string, weight float64) string {
	if traits == "" {
		return strings.ReplaceAll(prompt, "$", "")
	}
	insert := "," + strings.TrimSuffix(traits, ")") + ":" + strconv.FormatFloat(weight, 'g', -1, 64) + ")"
	return strings.ReplaceAll(prompt, "$", insert)
}

// BuildPayload fills a txt2img payload template with the character's
// prompts and the per-request traits.
func BuildPayload(base map[string]any, positive, negative, traits string, weight float64) map[string]any {
	payload := maps.Clone(base)
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["prompt"] = InsertTraits(positive, traits, weight)
	payload["negative_prompt"] = negative
	return payload
}
