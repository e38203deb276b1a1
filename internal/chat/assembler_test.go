package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/character"
	"github.com/klayza/Fractal/internal/storage"
)

func mustCard(t *testing.T, raw string) *character.Card {
	t.Helper()
	card, err := character.ParseCard([]byte(raw))
	require.NoError(t, err)
	return card
}

func TestRenderCharacterDetails(t *testing.T) {
	t.Run("SectionOrderAndDelimiters", func(t *testing.T) {
		card := mustCard(t, `{
			"personality": "curious",
			"name": "Mira",
			"description": "a sea witch",
			"scenario": "a quiet harbor"
		}`)

		got := RenderCharacterDetails(card)
		want := "---Name---\nMira\n---Description---\na sea witch\n---Scenario---\na quiet harbor\n---Personality---\ncurious"
		assert.Equal(t, want, got)
	})

	t.Run("AliasFallback", func(t *testing.T) {
		card := mustCard(t, `{"char_name":"Mira","world_scenario":"a storm","mes_example":"Mira: hello"}`)
		got := RenderCharacterDetails(card)
		assert.Contains(t, got, "---Name---\nMira")
		assert.Contains(t, got, "---Scenario---\na storm")
		assert.Contains(t, got, "---Example Chat---\nMira: hello")
	})

	t.Run("FirstAliasWins", func(t *testing.T) {
		card := mustCard(t, `{"char_persona":"stoic","persona":"cheery"}`)
		got := RenderCharacterDetails(card)
		assert.Contains(t, got, "stoic")
		assert.NotContains(t, got, "cheery")
	})

	t.Run("EmptyCard", func(t *testing.T) {
		card := mustCard(t, `{}`)
		assert.Empty(t, RenderCharacterDetails(card))
	})
}

func TestRenderGreeting(t *testing.T) {
	card := mustCard(t, `{"first_mes":"  Hello there.  "}`)
	got := RenderGreeting(card)
	assert.Equal(t, "Hello there.", got)
	assert.NotContains(t, got, "---", "greeting carries no section delimiters")
}

func TestInsertVars(t *testing.T) {
	vars := map[string]string{"user": "Clay", "char": "Mira"}

	assert.Equal(t, "Clay meets Mira", InsertVars("{{user}} meets {{char}}", vars))
	assert.Equal(t, "Clay and Clay", InsertVars("{{user}} and {{user}}", vars))
	assert.Equal(t, "{{place}} stays", InsertVars("{{place}} stays", vars), "unbound placeholders stay verbatim")
	assert.Equal(t, "plain", InsertVars("plain", vars))
}

func TestCleanReply(t *testing.T) {
	assert.Equal(t, "hello", CleanReply("Mira: hello", "Mira"))
	assert.Equal(t, "hello", CleanReply("Mira:hello", "Mira"))
	assert.Equal(t, "as Mira: hello", CleanReply("as Mira: hello", "Mira"), "only a leading prefix is stripped")
	assert.Equal(t, "hello", CleanReply("hello", "Mira"))
}

func TestAssemble(t *testing.T) {
	card := mustCard(t, `{"name":"Mira","description":"a sea witch","first_mes":"Hello, {{user}}."}`)

	t.Run("Structure", func(t *testing.T) {
		var a Assembler
		messages := a.Assemble(AssembleInput{
			SystemPrompt: "You are {{char}}.",
			UserDetails:  "The user likes boats.",
			Card:         card,
			UserText:     "hi",
			Vars:         map[string]string{"user": "Clay", "char": "Mira"},
		})

		require.Len(t, messages, 3)
		assert.Equal(t, ai.RoleSystem, messages[0].Role)
		assert.True(t, strings.HasPrefix(messages[0].Content, "You are Mira.\n"))
		assert.Contains(t, messages[0].Content, "---Description---\na sea witch")
		assert.True(t, strings.HasSuffix(messages[0].Content, "\nThe user likes boats."))

		assert.Equal(t, ai.RoleAssistant, messages[1].Role)
		assert.Equal(t, "Hello, Clay.", messages[1].Content)

		assert.Equal(t, ai.RoleUser, messages[2].Role)
		assert.Equal(t, "hi", messages[2].Content)
	})

	t.Run("OnlyLastHistoryTurnForwarded", func(t *testing.T) {
		var a Assembler
		messages := a.Assemble(AssembleInput{
			SystemPrompt: "rules",
			Card:         card,
			UserText:     "and now?",
			History: []storage.Turn{
				{Name: "Clay", Role: ai.RoleUser, Msg: "first"},
				{Name: "Mira", Role: ai.RoleAssistant, Msg: "second"},
				{Name: "Clay", Role: ai.RoleUser, Msg: "third"},
			},
		})

		require.Len(t, messages, 4)
		assert.Equal(t, ai.RoleUser, messages[2].Role)
		assert.Equal(t, "third", messages[2].Content)
	})
}
