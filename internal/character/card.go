package character

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Card is a character definition loaded from a JSON card file. Cards
// come from several editors with different field names, so lookups go
// through string properties on the raw object. Cards in the
// chara_card_v2 format keep their fields under a "data" envelope,
// which is unwrapped on load.
type Card struct {
	fields map[string]any
}

func ParseCard(raw []byte) (*Card, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse character card: %w", err)
	}
	if spec, _ := fields["spec"].(string); spec == "chara_card_v2" {
		if data, ok := fields["data"].(map[string]any); ok {
			fields = data
		}
	}
	return &Card{fields: fields}, nil
}

// Get returns the named property as a string, or "" when it is
// missing, empty, or not textual.
func (c *Card) Get(prop string) string {
	if c == nil {
		return ""
	}
	if v, ok := c.fields[prop].(string); ok {
		return v
	}
	return ""
}

// First returns the first non-empty property among the given aliases.
func (c *Card) First(aliases ...string) string {
	for _, prop := range aliases {
		if v := c.Get(prop); v != "" {
			return v
		}
	}
	return ""
}

// Name falls back to the aliases the card editors use.
func (c *Card) Name() string {
	return c.First("name", "char_name")
}

func (c *Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.fields)
}

// DisplayName normalizes a user-typed character name to the stored
// capitalized form.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}
