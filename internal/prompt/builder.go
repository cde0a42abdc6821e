package prompt

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/luma/internal/memory"
	"github.com/stellarlinkco/luma/internal/summary"
	"github.com/stellarlinkco/luma/internal/tone"
)

const truncatedContextMarker = "\n...[context truncated]...\n"

var toneInstructions = map[string]string{
	"sad":       "Be empathetic and supportive. Use a gentle, caring tone. Avoid toxic positivity.",
	"excited":   "Match their enthusiasm! Use exclamation points and share their excitement.",
	"angry":     "Stay calm and validating. Don't take it personally. Give them space.",
	"anxious":   "Be reassuring and grounding. Speak calmly and offer gentle support.",
	"sarcastic": "Match their playful energy. Light humor and wit are good here.",
	"happy":     "Be warm and positive. Share in their good mood!",
	"casual":    "Keep it relaxed and conversational. Just be yourself.",
}

var energyInstructions = map[string]string{
	tone.EnergyHigh:   "Match their high energy with enthusiasm and quick responses.",
	tone.EnergyMedium: "Maintain a balanced, engaging conversational pace.",
	tone.EnergyLow:    "Keep energy lower. Be calm, thoughtful, and give them space.",
}

// Builder assembles the final system prompt out of the persona prompt, the
// memory context and the per-turn tone directives.
type Builder struct {
	maxPromptTokens int
}

func NewBuilder(maxPromptTokens int) *Builder {
	return &Builder{maxPromptTokens: maxPromptTokens}
}

// BuildSystemPrompt layers user context, tone adaptation, any extra
// instructions and the character reminder onto the persona prompt, then
// bounds the result to the builder's token budget.
func (b *Builder) BuildSystemPrompt(personaPrompt, userContext string, detected *tone.EmotionalTone, guidance *tone.Guidance, extra string) string {
	parts := []string{personaPrompt}

	if strings.TrimSpace(userContext) != "" {
		parts = append(parts, "\n"+userContext)
	}

	if detected != nil && guidance != nil {
		parts = append(parts, "\n"+formatToneAdaptation(detected.Primary, guidance.Style))
	}

	if extra != "" {
		parts = append(parts, "\n"+extra)
	}

	parts = append(parts, characterReminder)

	return b.OptimizeForTokens(strings.Join(parts, "\n"), b.maxPromptTokens)
}

func formatToneAdaptation(detectedTone, style string) string {
	return fmt.Sprintf(`TONE ADAPTATION:
The user seems %s. Adapt your response style: %s.
Remember to stay natural and in character while matching their energy.`, detectedTone, style)
}

const characterReminder = `
CRITICAL REMINDERS:
- Stay completely in character as a real person
- Never break character or reveal AI nature
- Only reference information from this conversation or provided context
- If uncertain about something, admit it naturally
- Be human, be genuine, be present`

// WithToneGuidance appends the mood/energy directive block for the turn.
func WithToneGuidance(base string, t tone.EmotionalTone) string {
	toneInstr, ok := toneInstructions[t.Primary]
	if !ok {
		toneInstr = toneInstructions["casual"]
	}
	energyInstr, ok := energyInstructions[t.Energy]
	if !ok {
		energyInstr = energyInstructions[tone.EnergyMedium]
	}

	return base + fmt.Sprintf(`
CURRENT TONE GUIDANCE:
User's mood: %s
Energy level: %s
%s
%s
`, t.Primary, t.Energy, toneInstr, energyInstr)
}

// WithSafetyConstraints appends the grounding rules every generation carries.
func WithSafetyConstraints(base string) string {
	return base + `
SAFETY RULES (CRITICAL):
1. Never fabricate memories not explicitly mentioned
2. Never claim to see, hear, or physically sense anything
3. Never reference meeting the user in person
4. Never make up personal details about the user
5. If you don't remember something, say so naturally
6. Stay grounded in the actual conversation context`
}

// FirstMessagePrompt builds the prompt for an unsolicited opening message.
func FirstMessagePrompt(systemPrompt string, profile memory.ProfileView) string {
	parts := []string{systemPrompt}

	switch {
	case profile.InteractionCount > 0 && profile.Name != "":
		parts = append(parts, fmt.Sprintf("\nYou're talking with %s again. Welcome them back naturally.", profile.Name))
	case profile.InteractionCount > 0:
		parts = append(parts, "\nThis user has talked with you before. Welcome them back!")
	default:
		parts = append(parts, "\nThis is a new user. Start with a friendly, casual greeting.")
	}

	return strings.Join(parts, "\n")
}

// OptimizeForTokens keeps the head and tail of an oversized prompt and cuts
// the middle, so the persona opening and the newest history both survive.
func (b *Builder) OptimizeForTokens(text string, targetTokens int) string {
	if summary.EstimateTokens(text) <= targetTokens {
		return text
	}

	targetChars := targetTokens * 4
	keep := targetChars / 2
	return text[:keep] + truncatedContextMarker + text[len(text)-keep:]
}
