// Package safety screens candidate responses before they reach the user:
// character-breaking patterns, robotic phrasing, fabricated-memory claims
// cross-checked against stored profile data, and ungrounded date references.
package safety

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stellarlinkco/luma/internal/memory"
)

// Error kinds returned by Validate, in check order.
const (
	KindForbiddenPattern = "forbidden_pattern"
	KindRoboticLanguage  = "robotic_language"
	KindFabrication      = "fabrication"
	KindUngrounded       = "ungrounded"
)

// Result is the outcome of one validation pass.
type Result struct {
	Safe   bool
	Kind   string
	Detail string
}

var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bas an ai\b`),
	regexp.MustCompile(`\bartificial intelligence\b`),
	regexp.MustCompile(`\blanguage model\b`),
	regexp.MustCompile(`\b(i am|i'm) (a |an )?bot\b`),
	regexp.MustCompile(`\bapi\b`),
	regexp.MustCompile(`\btraining data\b`),
	regexp.MustCompile(`\bmachine learning\b`),
	regexp.MustCompile(`\bneural network\b`),
	regexp.MustCompile(`\balgorithm\b`),
	regexp.MustCompile(`\bprogrammed to\b`),
	regexp.MustCompile(`\bmy (code|programming|system)\b`),
	regexp.MustCompile(`\bretrieving from (database|memory|storage)\b`),
	regexp.MustCompile(`\baccording to my (records|data|logs)\b`),
}

var roboticPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bas previously (stated|mentioned|discussed)\b`),
	regexp.MustCompile(`\bin our conversation (dated|from|on)\b`),
	regexp.MustCompile(`\blet me (retrieve|access|check) (that|my)\b`),
	regexp.MustCompile(`\bprocessing (your|the) (request|query)\b`),
	regexp.MustCompile(`\bconsulting my (knowledge|database)\b`),
}

var fabricationIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\byou told me (last|that) (week|month|year)\b`),
	regexp.MustCompile(`\bi remember (you|when you) (said|told|mentioned).*\d{4}`),
	regexp.MustCompile(`\b(your|the) (secret|password|private)\b`),
	regexp.MustCompile(`\byou look(ed)? (like|good|beautiful)\b`),
	regexp.MustCompile(`\bwhen we met (at|in)\b`),
	regexp.MustCompile(`\byour (address|location|phone)\b`),
}

// Memory-claim patterns: "you mentioned X", "you like X" and friends, where
// X must exist in the stored profile for the claim to stand.
var memoryClaimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`you mentioned (.*?)(?:\.|,|!|\?|$)`),
	regexp.MustCompile(`you said (.*?)(?:\.|,|!|\?|$)`),
	regexp.MustCompile(`you told me (.*?)(?:\.|,|!|\?|$)`),
	regexp.MustCompile(`you like (.*?)(?:\.|,|!|\?|$)`),
}

// Generic hedges are always permissible: "you mentioned" with no concrete
// item is conversational filler, not a memory claim.
var genericHedges = []string{"you mentioned", "you said", "last time"}

var ungroundedDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	regexp.MustCompile(`\blast (monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
}

// Filter validates and repairs candidate responses. Stateless; safe for
// concurrent use.
type Filter struct{}

func NewFilter() *Filter {
	return &Filter{}
}

// Validate runs the four checks in fixed order and stops at the first
// failure: forbidden patterns, robotic language, memory fabrication, then
// ungrounded date references.
func (f *Filter) Validate(response string, bundle memory.ContextBundle, history []memory.Turn) Result {
	lower := strings.ToLower(response)

	for _, re := range forbiddenPatterns {
		if m := re.FindString(lower); m != "" {
			return Result{Kind: KindForbiddenPattern, Detail: fmt.Sprintf("contains forbidden pattern: %q", m)}
		}
	}

	for _, re := range roboticPatterns {
		if m := re.FindString(lower); m != "" {
			return Result{Kind: KindRoboticLanguage, Detail: fmt.Sprintf("contains robotic pattern: %q", m)}
		}
	}

	if detail := f.checkFabrications(lower, bundle); detail != "" {
		return Result{Kind: KindFabrication, Detail: detail}
	}

	if detail := checkGrounding(lower, history); detail != "" {
		return Result{Kind: KindUngrounded, Detail: detail}
	}

	return Result{Safe: true}
}

func (f *Filter) checkFabrications(lower string, bundle memory.ContextBundle) string {
	for _, re := range fabricationIndicators {
		if m := re.FindString(lower); m != "" {
			if !verifyMemoryClaim(m, bundle) {
				return fmt.Sprintf("potential fabrication: %q", m)
			}
		}
	}

	for _, re := range memoryClaimPatterns {
		for _, groups := range re.FindAllStringSubmatch(lower, -1) {
			item := strings.TrimSpace(groups[1])
			if item == "" {
				continue
			}
			if !claimInProfile(item, bundle.Profile) {
				return fmt.Sprintf("memory claim not in profile: %q", item)
			}
		}
	}

	return ""
}

// verifyMemoryClaim gates fabrication-indicator matches. A bare hedge phrase
// passes; anything concrete needs profile data behind it.
func verifyMemoryClaim(claim string, bundle memory.ContextBundle) bool {
	lower := strings.ToLower(claim)
	for _, hedge := range genericHedges {
		if strings.Contains(lower, hedge) {
			return true
		}
	}

	p := bundle.Profile
	return len(p.Interests) > 0 || len(p.Likes) > 0 || len(p.PersonalityNotes) > 0
}

// claimInProfile reports whether any stored profile entry overlaps the
// claimed item, word by word. "you like anime" stands only if some interest,
// like, or note mentions anime. A claim with no concrete word is a hedge and
// always stands.
func claimInProfile(item string, p memory.ProfileView) bool {
	fields := append(append(append([]string{}, p.Interests...), p.Likes...), p.PersonalityNotes...)

	concrete := false
	for _, word := range strings.Fields(item) {
		word = strings.Trim(word, ".,!?'\"")
		if len(word) < 3 || isStopWord(word) {
			continue
		}
		concrete = true
		for _, entry := range fields {
			if strings.Contains(strings.ToLower(entry), word) {
				return true
			}
		}
	}
	return !concrete
}

var stopWords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "that": true,
	"this": true, "was": true, "were": true, "are": true, "like": true,
	"really": true, "earlier": true, "before": true, "about": true,
}

func isStopWord(w string) bool { return stopWords[w] }

func checkGrounding(lower string, history []memory.Turn) string {
	var contextText strings.Builder
	for _, t := range history {
		contextText.WriteString(strings.ToLower(t.Content))
		contextText.WriteString(" ")
	}

	for _, re := range ungroundedDatePatterns {
		if m := re.FindString(lower); m != "" {
			if !strings.Contains(contextText.String(), m) {
				return fmt.Sprintf("ungrounded date reference: %q", m)
			}
		}
	}
	return ""
}
