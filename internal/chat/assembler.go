package chat

import (
	"strings"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/character"
	"github.com/klayza/Fractal/internal/storage"
)

type section struct {
	title   string
	aliases []string
}

// Card editors disagree on field names; the first non-empty alias
// wins and each section renders at most once, in this order.
var detailSections = []section{
	{"Name", []string{"name", "char_name"}},
	{"Description", []string{"description"}},
	{"Scenario", []string{"scenario", "world_scenario"}},
	{"Example Chat", []string{"sampleChat", "example_dialogue", "mes_example"}},
	{"Persona", []string{"char_persona", "persona"}},
	{"Personality", []string{"personality"}},
}

var greetingAliases = []string{"char_greeting", "greeting", "first_mes"}

// RenderCharacterDetails flattens a card into the titled prompt block
// fed to the system message.
func RenderCharacterDetails(card *character.Card) string {
	var b strings.Builder
	for _, s := range detailSections {
		if v := card.First(s.aliases...); v != "" {
			b.WriteString("\n---")
			b.WriteString(s.title)
			b.WriteString("---\n")
			b.WriteString(v)
		}
	}
	return strings.TrimSpace(b.String())
}

// RenderGreeting returns the card's first message, without section
// delimiters.
func RenderGreeting(card *character.Card) string {
	return strings.TrimSpace(card.First(greetingAliases...))
}

// InsertVars replaces {{key}} placeholders. Unbound placeholders stay
// verbatim so a half-filled template is visible instead of silently
// blanked.
func InsertVars(prompt string, vars map[string]string) string {
	for key, value := range vars {
		prompt = strings.ReplaceAll(prompt, "{{"+key+"}}", value)
	}
	return prompt
}

// CleanReply strips the "Name: " prefix models like to prepend when
// speaking in character.
func CleanReply(text, charName string) string {
	prefix := charName + ":"
	if rest, ok := strings.CutPrefix(text, prefix); ok {
		return strings.TrimSpace(rest)
	}
	return text
}

// AssembleInput carries everything one turn needs: the rules prompt,
// the card, optional user details, prior history, and the incoming
// message. Vars feed {{placeholder}} substitution across all
// template-bearing pieces.
type AssembleInput struct {
	SystemPrompt string
	UserDetails  string
	Card         *character.Card
	History      []storage.Turn
	UserText     string
	Vars         map[string]string
}

// Assembler builds the completion message list for a turn. It is
// stateless and safe for concurrent use.
type Assembler struct{}

// Assemble produces [system, assistant greeting, last history turn,
// user]. Only the most recent history turn is forwarded.
// TODO: forward more history once compression keeps the context small
func (Assembler) Assemble(in AssembleInput) []ai.Message {
	rules := InsertVars(in.SystemPrompt, in.Vars)
	details := InsertVars(RenderCharacterDetails(in.Card), in.Vars)
	userDetails := InsertVars(in.UserDetails, in.Vars)
	greeting := InsertVars(RenderGreeting(in.Card), in.Vars)

	messages := []ai.Message{
		ai.SystemMessage(rules + "\n" + details + "\n" + userDetails),
		ai.AssistantMessage(greeting),
	}

	if len(in.History) > 0 {
		last := in.History[len(in.History)-1]
		messages = append(messages, ai.Message{
			Role:    last.Role,
			Content: last.Msg,
		})
	}

	return append(messages, ai.UserMessage(in.UserText))
}
