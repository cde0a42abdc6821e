package safety

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode"
)

// Robotic phrase substitutions applied by Sanitize, case-insensitive. The
// sanitized text is not re-validated; the persona validator has the last word.
var sanitizeReplacements = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)as previously mentioned`), "like I said"},
	{regexp.MustCompile(`(?i)as previously stated`), "like I mentioned"},
	{regexp.MustCompile(`(?i)according to my records`), "I think"},
	{regexp.MustCompile(`(?i)retrieving from memory`), "trying to remember"},
	{regexp.MustCompile(`(?i)let me retrieve`), "let me think"},
}

// Sanitize rewrites known robotic phrases into natural equivalents.
func (f *Filter) Sanitize(response string) string {
	for _, r := range sanitizeReplacements {
		response = r.pattern.ReplaceAllString(response, r.replacement)
	}
	return response
}

var (
	personalDetailRisk = regexp.MustCompile(`\byour (name is|address|phone|email)\b`)
	appearanceRisk     = regexp.MustCompile(`\byou (look|appear|seem) (like|good|beautiful|handsome)\b`)
	specificTimeRisk   = regexp.MustCompile(`\b(on|at) \d{1,2}:\d{2}\b`)
	absoluteRisk       = regexp.MustCompile(`\byou (always|never) \b`)
)

// HallucinationRisk scores the response on four additive risk factors,
// capped at 1.0.
func (f *Filter) HallucinationRisk(response string) (float64, []string) {
	lower := strings.ToLower(response)

	score := 0.0
	var factors []string

	if personalDetailRisk.MatchString(lower) {
		score += 0.3
		factors = append(factors, "specific personal details")
	}
	if appearanceRisk.MatchString(lower) {
		score += 0.4
		factors = append(factors, "physical appearance claims")
	}
	if specificTimeRisk.MatchString(lower) {
		score += 0.2
		factors = append(factors, "specific times")
	}
	if absoluteRisk.MatchString(lower) {
		score += 0.1
		factors = append(factors, "absolute statements")
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, factors
}

var pastClaimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\byou (said|told|mentioned)\b`),
	regexp.MustCompile(`\blast time\b`),
	regexp.MustCompile(`\byou (always|never|usually)\b`),
}

var hedgePhrases = []string{"i think", "if i remember", "i believe", "maybe"}

var uncertaintyMarkers = []string{
	"I think ",
	"If I remember right, ",
	"Pretty sure ",
	"I believe ",
}

// ShouldAddUncertainty is advisory: low confidence, or an unhedged claim
// about the past, suggests softening the response.
func (f *Filter) ShouldAddUncertainty(response string, confidence float64) bool {
	if confidence < 0.6 {
		return true
	}

	lower := strings.ToLower(response)
	for _, re := range pastClaimPatterns {
		if re.MatchString(lower) {
			for _, hedge := range hedgePhrases {
				if strings.Contains(lower, hedge) {
					return false
				}
			}
			return true
		}
	}
	return false
}

// AddUncertaintyMarker prefixes a hedge and lowercases the original opening.
func (f *Filter) AddUncertaintyMarker(response string) string {
	if response == "" {
		return response
	}

	marker := uncertaintyMarkers[rand.Intn(len(uncertaintyMarkers))]
	runes := []rune(response)
	runes[0] = unicode.ToLower(runes[0])
	return marker + string(runes)
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

// ContainsPII is a coarse screen for emails, phone numbers and SSNs.
func ContainsPII(text string) bool {
	return emailPattern.MatchString(text) || phonePattern.MatchString(text) || ssnPattern.MatchString(text)
}

// SanitizeText strips null bytes and collapses whitespace for storage.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.Join(strings.Fields(text), " ")
}
