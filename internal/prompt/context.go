// Package prompt turns memory state into the text handed to the generator:
// a formatted context block plus the system prompt that wraps it. All sizing
// is done with the rough four-characters-per-token estimate.
package prompt

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/luma/internal/memory"
	"github.com/stellarlinkco/luma/internal/summary"
)

const (
	maxSummarySections = 3
	maxHistoryLines    = 8

	truncatedMarker = "...[truncated]"
)

// Assembler renders a ContextBundle into the context section of a prompt.
// Sections with nothing to say are omitted entirely.
type Assembler struct {
	maxTokens int
}

func NewAssembler(maxTokens int) *Assembler {
	return &Assembler{maxTokens: maxTokens}
}

// Assemble builds the full context block: user profile, past conversation
// digests, current session state, then the recent exchanges. The result is
// truncated to the assembler's token budget.
func (a *Assembler) Assemble(bundle memory.ContextBundle) string {
	var parts []string

	if profile := formatProfile(bundle.Profile); profile != "" {
		parts = append(parts, "USER CONTEXT:\n"+profile)
	}

	if summaries := formatSummaries(bundle.Summaries); summaries != "" {
		parts = append(parts, "\nPAST CONVERSATIONS:\n"+summaries)
	}

	if session := formatSessionState(bundle.Mood, bundle.Topic); session != "" {
		parts = append(parts, "\nCURRENT SESSION:\n"+session)
	}

	if history := formatHistory(bundle.History); history != "" {
		parts = append(parts, "\nCONVERSATION:\n"+history)
	}

	return TruncateToFit(strings.Join(parts, "\n"), a.maxTokens)
}

func formatProfile(p memory.ProfileView) string {
	var lines []string

	if p.Name != "" {
		lines = append(lines, "- Name: "+p.Name)
	}
	if len(p.Interests) > 0 {
		lines = append(lines, "- Interests: "+strings.Join(capAt(p.Interests, 5), ", "))
	}
	if len(p.Likes) > 0 {
		lines = append(lines, "- Likes: "+strings.Join(capAt(p.Likes, 3), ", "))
	}
	if len(p.PersonalityNotes) > 0 {
		lines = append(lines, "- Personality: "+strings.Join(capAt(p.PersonalityNotes, 2), "; "))
	}

	switch {
	case p.InteractionCount == 1:
		lines = append(lines, "- First conversation")
	case p.InteractionCount > 1 && p.InteractionCount < 5:
		lines = append(lines, fmt.Sprintf("- Talked %d times before", p.InteractionCount))
	case p.InteractionCount >= 5:
		lines = append(lines, fmt.Sprintf("- Regular user (%d interactions)", p.InteractionCount))
	}

	return strings.Join(lines, "\n")
}

func formatSummaries(summaries []memory.SummaryView) string {
	var lines []string
	for i, s := range summaries {
		if i == maxSummarySections {
			break
		}

		var fields []string
		if s.Summary != "" {
			fields = append(fields, s.Summary)
		}
		if len(s.KeyMoments) > 0 {
			fields = append(fields, "Key moments: "+strings.Join(capAt(s.KeyMoments, 2), "; "))
		}
		if len(fields) > 0 {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, strings.Join(fields, " | ")))
		}
	}
	return strings.Join(lines, "\n")
}

func formatSessionState(mood, topic string) string {
	var fields []string
	if mood != "" {
		fields = append(fields, "Current mood: "+mood)
	}
	if topic != "" {
		fields = append(fields, "Topic: "+topic)
	}
	return strings.Join(fields, " | ")
}

func formatHistory(turns []memory.Turn) string {
	if len(turns) > maxHistoryLines {
		turns = turns[len(turns)-maxHistoryLines:]
	}

	var lines []string
	for _, t := range turns {
		if t.Role == memory.RoleUser {
			lines = append(lines, "User: "+t.Content)
		} else {
			lines = append(lines, "You: "+t.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// TruncateToFit hard-truncates text to the token budget and marks the cut.
func TruncateToFit(text string, maxTokens int) string {
	if summary.EstimateTokens(text) <= maxTokens {
		return text
	}
	return text[:maxTokens*4] + truncatedMarker
}

func capAt(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
