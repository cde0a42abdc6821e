package safety

import (
	"strings"
	"testing"

	"github.com/stellarlinkco/luma/internal/memory"
)

func bundleWithInterests(interests ...string) memory.ContextBundle {
	return memory.ContextBundle{Profile: memory.ProfileView{Interests: interests}}
}

func TestValidateCleanResponse(t *testing.T) {
	f := NewFilter()

	got := f.Validate("That sounds great, how did it go?", memory.ContextBundle{}, nil)
	if !got.Safe {
		t.Fatalf("clean response rejected: %+v", got)
	}
}

func TestValidateForbiddenPattern(t *testing.T) {
	f := NewFilter()

	got := f.Validate("Well, as an AI I can't really say", memory.ContextBundle{}, nil)
	if got.Safe || got.Kind != KindForbiddenPattern {
		t.Fatalf("expected forbidden_pattern, got %+v", got)
	}
}

func TestValidateForbiddenBeatsRobotic(t *testing.T) {
	f := NewFilter()

	// Text triggering both checks must report the first one.
	got := f.Validate("As an AI, as previously stated, I agree", memory.ContextBundle{}, nil)
	if got.Kind != KindForbiddenPattern {
		t.Fatalf("check order violated, got %+v", got)
	}
}

func TestValidateRoboticLanguage(t *testing.T) {
	f := NewFilter()

	got := f.Validate("As previously discussed, that movie rocks", memory.ContextBundle{}, nil)
	if got.Safe || got.Kind != KindRoboticLanguage {
		t.Fatalf("expected robotic_language, got %+v", got)
	}
}

func TestValidateUngroundedMemoryClaim(t *testing.T) {
	f := NewFilter()

	got := f.Validate("You mentioned you like anime earlier", bundleWithInterests("hiking"), nil)
	if got.Safe || got.Kind != KindFabrication {
		t.Fatalf("ungrounded claim must be rejected, got %+v", got)
	}
}

func TestValidateGroundedMemoryClaim(t *testing.T) {
	f := NewFilter()

	got := f.Validate("You mentioned you like anime earlier", bundleWithInterests("anime", "hiking"), nil)
	if !got.Safe {
		t.Fatalf("grounded claim must pass, got %+v", got)
	}
}

func TestValidateHedgeIsPermissible(t *testing.T) {
	f := NewFilter()

	got := f.Validate("You mentioned that before, right?", bundleWithInterests("hiking"), nil)
	if !got.Safe {
		t.Fatalf("bare hedge must pass, got %+v", got)
	}
}

func TestValidateFabricationIndicator(t *testing.T) {
	f := NewFilter()

	got := f.Validate("When we met at the park you were taller", memory.ContextBundle{}, nil)
	if got.Safe || got.Kind != KindFabrication {
		t.Fatalf("expected fabrication, got %+v", got)
	}
}

func TestValidateUngroundedDate(t *testing.T) {
	f := NewFilter()

	history := []memory.Turn{{Role: memory.RoleUser, Content: "my birthday is coming up"}}

	got := f.Validate("Happy early birthday for March 14, 2026!", memory.ContextBundle{}, history)
	if got.Safe || got.Kind != KindUngrounded {
		t.Fatalf("expected ungrounded date, got %+v", got)
	}
}

func TestValidateGroundedDate(t *testing.T) {
	f := NewFilter()

	history := []memory.Turn{{Role: memory.RoleUser, Content: "my party is last saturday... wait no, next one"}}

	got := f.Validate("How was last Saturday then?", memory.ContextBundle{}, history)
	if !got.Safe {
		t.Fatalf("date present in context must pass, got %+v", got)
	}
}

func TestSanitize(t *testing.T) {
	f := NewFilter()

	got := f.Sanitize("As previously mentioned, the show is great. Let me retrieve the name.")
	if strings.Contains(strings.ToLower(got), "as previously mentioned") {
		t.Fatalf("robotic phrase not replaced: %q", got)
	}
	if !strings.Contains(got, "like I said") || !strings.Contains(got, "let me think") {
		t.Fatalf("expected natural substitutions, got %q", got)
	}
}

func TestHallucinationRisk(t *testing.T) {
	f := NewFilter()

	score, factors := f.HallucinationRisk("You look beautiful, and your address must be close. You always say that. See you at 10:30")
	if score != 1.0 {
		t.Fatalf("expected capped score 1.0, got %v (factors %v)", score, factors)
	}
	if len(factors) != 4 {
		t.Fatalf("expected 4 risk factors, got %v", factors)
	}

	score, factors = f.HallucinationRisk("sounds good, see you soon")
	if score != 0 || len(factors) != 0 {
		t.Fatalf("expected zero risk, got %v %v", score, factors)
	}
}

func TestShouldAddUncertainty(t *testing.T) {
	f := NewFilter()

	if !f.ShouldAddUncertainty("totally fine", 0.4) {
		t.Fatalf("low confidence must trigger uncertainty")
	}
	if !f.ShouldAddUncertainty("You said the trip was in June", 0.9) {
		t.Fatalf("unhedged past claim must trigger uncertainty")
	}
	if f.ShouldAddUncertainty("I think you said the trip was in June", 0.9) {
		t.Fatalf("hedged claim must not trigger uncertainty")
	}
	if f.ShouldAddUncertainty("have a great day", 0.9) {
		t.Fatalf("plain response must not trigger uncertainty")
	}
}

func TestAddUncertaintyMarker(t *testing.T) {
	f := NewFilter()

	got := f.AddUncertaintyMarker("The trip was in June")
	if !strings.Contains(got, "the trip was in June") {
		t.Fatalf("original text must be lowercased and kept: %q", got)
	}
	if got == "The trip was in June" {
		t.Fatalf("marker missing: %q", got)
	}
}

func TestContainsPII(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"write me at luna@example.com", true},
		{"call 555-867-5309", true},
		{"ssn is 123-45-6789", true},
		{"nothing sensitive here", false},
	}
	for _, tt := range tests {
		if got := ContainsPII(tt.text); got != tt.want {
			t.Errorf("ContainsPII(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	got := SanitizeText("  hello\x00   there \n\n friend  ")
	if got != "hello there friend" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}
