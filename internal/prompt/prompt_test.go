package prompt

import (
	"strings"
	"testing"

	"github.com/stellarlinkco/luma/internal/memory"
	"github.com/stellarlinkco/luma/internal/tone"
)

func TestAssembleFullBundle(t *testing.T) {
	a := NewAssembler(1500)

	bundle := memory.ContextBundle{
		Profile: memory.ProfileView{
			Name:             "Sam",
			Interests:        []string{"anime", "hiking"},
			InteractionCount: 3,
		},
		Summaries: []memory.SummaryView{
			{Summary: "Discussed work.", KeyMoments: []string{"got a promotion"}},
		},
		Mood:  "happy",
		Topic: "work",
		History: []memory.Turn{
			{Role: memory.RoleUser, Content: "hey!"},
			{Role: memory.RoleAssistant, Content: "hey, what's up?"},
		},
	}

	got := a.Assemble(bundle)

	for _, want := range []string{
		"USER CONTEXT:",
		"- Name: Sam",
		"- Interests: anime, hiking",
		"- Talked 3 times before",
		"PAST CONVERSATIONS:",
		"1. Discussed work. | Key moments: got a promotion",
		"CURRENT SESSION:",
		"Current mood: happy | Topic: work",
		"CONVERSATION:",
		"User: hey!",
		"You: hey, what's up?",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("assembled context missing %q:\n%s", want, got)
		}
	}

	// Section ordering is fixed.
	if strings.Index(got, "USER CONTEXT:") > strings.Index(got, "CONVERSATION:") {
		t.Fatalf("profile must precede conversation:\n%s", got)
	}
}

func TestAssembleOmitsEmptySections(t *testing.T) {
	a := NewAssembler(1500)

	got := a.Assemble(memory.ContextBundle{
		History: []memory.Turn{{Role: memory.RoleUser, Content: "hi"}},
	})

	for _, absent := range []string{"USER CONTEXT:", "PAST CONVERSATIONS:", "CURRENT SESSION:"} {
		if strings.Contains(got, absent) {
			t.Fatalf("empty section %q must be omitted:\n%s", absent, got)
		}
	}
	if !strings.Contains(got, "User: hi") {
		t.Fatalf("history missing:\n%s", got)
	}
}

func TestAssembleHistoryWindow(t *testing.T) {
	a := NewAssembler(1500)

	var turns []memory.Turn
	for i := 0; i < 12; i++ {
		turns = append(turns, memory.Turn{Role: memory.RoleUser, Content: strings.Repeat("m", 1) + string(rune('a'+i))})
	}

	got := a.Assemble(memory.ContextBundle{History: turns})
	if strings.Contains(got, "User: ma") {
		t.Fatalf("oldest turns must be dropped beyond the window:\n%s", got)
	}
	if !strings.Contains(got, "User: ml") {
		t.Fatalf("newest turn missing:\n%s", got)
	}
	if lines := strings.Count(got, "User: "); lines != 8 {
		t.Fatalf("expected 8 history lines, got %d", lines)
	}
}

func TestTruncateToFit(t *testing.T) {
	text := strings.Repeat("a", 100)

	if got := TruncateToFit(text, 25); got != text {
		t.Fatalf("text within budget must pass through")
	}

	got := TruncateToFit(text, 10)
	if !strings.HasSuffix(got, "...[truncated]") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	if !strings.HasPrefix(got, strings.Repeat("a", 40)) || strings.HasPrefix(got, strings.Repeat("a", 41)) {
		t.Fatalf("expected exactly 40 kept chars, got %q", got)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	b := NewBuilder(2000)

	detected := &tone.EmotionalTone{Primary: "sad"}
	guidance := &tone.Guidance{Style: "empathetic, soft, supportive"}

	got := b.BuildSystemPrompt("You are Luna.", "USER CONTEXT:\n- Name: Sam", detected, guidance, "")

	if !strings.HasPrefix(got, "You are Luna.") {
		t.Fatalf("persona prompt must come first:\n%s", got)
	}
	for _, want := range []string{
		"- Name: Sam",
		"TONE ADAPTATION:",
		"The user seems sad. Adapt your response style: empathetic, soft, supportive.",
		"CRITICAL REMINDERS:",
		"Never break character",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuildSystemPromptNoToneBlock(t *testing.T) {
	b := NewBuilder(2000)

	got := b.BuildSystemPrompt("You are Luna.", "", nil, nil, "")
	if strings.Contains(got, "TONE ADAPTATION:") {
		t.Fatalf("tone block must be absent without a detection:\n%s", got)
	}
	if !strings.Contains(got, "CRITICAL REMINDERS:") {
		t.Fatalf("character reminder always present:\n%s", got)
	}
}

func TestWithToneGuidance(t *testing.T) {
	got := WithToneGuidance("base", tone.EmotionalTone{Primary: "excited", Energy: tone.EnergyHigh})

	for _, want := range []string{
		"CURRENT TONE GUIDANCE:",
		"User's mood: excited",
		"Energy level: high",
		"Match their enthusiasm!",
		"Match their high energy",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("tone guidance missing %q:\n%s", want, got)
		}
	}
}

func TestWithToneGuidanceUnknownTone(t *testing.T) {
	got := WithToneGuidance("base", tone.EmotionalTone{Primary: "bewildered", Energy: "weird"})
	if !strings.Contains(got, "Keep it relaxed and conversational.") {
		t.Fatalf("unknown tone must fall back to casual:\n%s", got)
	}
	if !strings.Contains(got, "Maintain a balanced, engaging conversational pace.") {
		t.Fatalf("unknown energy must fall back to medium:\n%s", got)
	}
}

func TestWithSafetyConstraints(t *testing.T) {
	got := WithSafetyConstraints("base")
	if !strings.Contains(got, "SAFETY RULES (CRITICAL):") {
		t.Fatalf("safety rules missing:\n%s", got)
	}
	if !strings.Contains(got, "Never fabricate memories") {
		t.Fatalf("fabrication rule missing:\n%s", got)
	}
}

func TestFirstMessagePrompt(t *testing.T) {
	base := "You are Luna."

	got := FirstMessagePrompt(base, memory.ProfileView{})
	if !strings.Contains(got, "This is a new user.") {
		t.Fatalf("new user greeting missing:\n%s", got)
	}

	got = FirstMessagePrompt(base, memory.ProfileView{InteractionCount: 2})
	if !strings.Contains(got, "has talked with you before") {
		t.Fatalf("returning user greeting missing:\n%s", got)
	}

	got = FirstMessagePrompt(base, memory.ProfileView{Name: "Sam", InteractionCount: 2})
	if !strings.Contains(got, "You're talking with Sam again.") {
		t.Fatalf("named returning user greeting missing:\n%s", got)
	}
}

func TestOptimizeForTokensMiddleOut(t *testing.T) {
	b := NewBuilder(2000)

	head := strings.Repeat("H", 100)
	tail := strings.Repeat("T", 100)
	text := head + strings.Repeat("M", 400) + tail

	got := b.OptimizeForTokens(text, 50)
	if !strings.Contains(got, "...[context truncated]...") {
		t.Fatalf("expected middle cut marker, got %q", got)
	}
	if !strings.HasPrefix(got, "H") || !strings.HasSuffix(got, "T") {
		t.Fatalf("head and tail must survive, got %q", got)
	}
	if strings.Contains(got, "M") {
		t.Fatalf("middle must be cut at this budget, got %q", got)
	}
}
