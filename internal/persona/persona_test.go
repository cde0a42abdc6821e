package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSystemPromptBase(t *testing.T) {
	m := NewManager(DefaultConfig())

	got := m.SystemPrompt(nil)
	for _, want := range []string{
		"You are Luna, a 24 year old person",
		"CORE IDENTITY:",
		"warm, curious, playful",
		"CRITICAL RULES - NEVER BREAK THESE:",
		"BOUNDARIES:",
		"- Never agree to meet in person",
		"MEMORY USAGE:",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("system prompt missing %q", want)
		}
	}
	if strings.Contains(got, "You're currently talking with") {
		t.Fatalf("user context block must be absent without a user context")
	}
}

func TestSystemPromptWithUserContext(t *testing.T) {
	m := NewManager(DefaultConfig())

	got := m.SystemPrompt(&UserContext{
		Name:         "Sam",
		RecentTopics: []string{"work", "travel", "hobby", "finance"},
	})

	if !strings.Contains(got, "You're currently talking with Sam.") {
		t.Fatalf("user name missing from prompt")
	}
	if !strings.Contains(got, "Recent conversation topics: work, travel, hobby") {
		t.Fatalf("recent topics missing or uncapped:\n%s", got)
	}
	if strings.Contains(got, "finance") {
		t.Fatalf("topics must cap at three")
	}
}

func TestValidateResponse(t *testing.T) {
	m := NewManager(DefaultConfig())

	tests := []struct {
		response string
		ok       bool
	}{
		{"that sounds like so much fun, tell me more!", true},
		{"As an AI, I cannot do that", false},
		{"i'm just a language model", false},
		{"my TRAINING DATA doesn't cover that", false},
		{"oh no, my whole system crashed", false},
		{"according to my records you were here", false},
	}
	for _, tt := range tests {
		ok, reason := m.ValidateResponse(tt.response)
		if ok != tt.ok {
			t.Errorf("ValidateResponse(%q) = %v (%s), want %v", tt.response, ok, reason, tt.ok)
		}
		if !ok && reason == "" {
			t.Errorf("ValidateResponse(%q) rejected without a reason", tt.response)
		}
	}
}

func TestShouldDeflectBotQuestion(t *testing.T) {
	m := NewManager(DefaultConfig())

	for _, msg := range []string{
		"are you a bot???",
		"wait, ARE YOU REAL?",
		"so are you human or what",
	} {
		if !m.ShouldDeflectBotQuestion(msg) {
			t.Errorf("expected deflection for %q", msg)
		}
	}
	for _, msg := range []string{
		"how's your day going",
		"do you like music",
	} {
		if m.ShouldDeflectBotQuestion(msg) {
			t.Errorf("unexpected deflection for %q", msg)
		}
	}
}

func TestBotDeflectionComesFromBank(t *testing.T) {
	m := NewManager(DefaultConfig())
	bank := DefaultConfig().ResponseStrategies["when_asked_if_bot"].Responses

	got := m.BotDeflection()
	found := false
	for _, r := range bank {
		if got == r {
			found = true
		}
	}
	if !found {
		t.Fatalf("deflection %q not in configured bank", got)
	}
}

func TestPickAvoidsRepeatsUntilExhaustion(t *testing.T) {
	m := NewManager(DefaultConfig())
	bank := DefaultConfig().ConversationFlow.OpeningMessages.FirstTime

	seen := make(map[string]bool)
	for i := 0; i < len(bank); i++ {
		got := m.ConversationOpener(false)
		if seen[got] {
			t.Fatalf("pick %d repeated %q before bank was exhausted", i, got)
		}
		seen[got] = true
	}

	// After exhaustion the ring resets and picks keep working.
	for i := 0; i < 20; i++ {
		if got := m.ConversationOpener(false); got == "" {
			t.Fatalf("empty pick after ring reset")
		}
	}
}

func TestConversationOpenerTiers(t *testing.T) {
	m := NewManager(DefaultConfig())
	returning := DefaultConfig().ConversationFlow.OpeningMessages.Returning

	got := m.ConversationOpener(true)
	found := false
	for _, r := range returning {
		if got == r {
			found = true
		}
	}
	if !found {
		t.Fatalf("returning opener %q not from returning bank", got)
	}
}

func TestFormatMemoryReference(t *testing.T) {
	m := NewManager(DefaultConfig())
	if got := m.FormatMemoryReference("you started hiking"); !strings.Contains(got, "you started hiking") {
		t.Fatalf("memory item missing from reference: %q", got)
	}
}

func TestUncertaintyResponse(t *testing.T) {
	m := NewManager(DefaultConfig())
	if got := m.UncertaintyResponse(); got == "" {
		t.Fatalf("expected a non-empty uncertainty response")
	}
}

func TestLoadOverridesAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persona.yaml")

	data := `
name: Nova
personality:
  core_traits: [dry, direct]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if m.Name() != "Nova" {
		t.Fatalf("expected name override, got %q", m.Name())
	}
	prompt := m.SystemPrompt(nil)
	if !strings.Contains(prompt, "dry, direct") {
		t.Fatalf("trait override missing:\n%s", prompt)
	}
	// Unset sections keep the built-in defaults.
	if len(m.Interests()) == 0 {
		t.Fatalf("interests should fall back to defaults")
	}
	if m.BotDeflection() == "" {
		t.Fatalf("deflection bank should fall back to defaults")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/persona.yaml"); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	m, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if m.Name() != "Luna" {
		t.Fatalf("expected default persona, got %q", m.Name())
	}
}
