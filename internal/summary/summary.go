// Package summary compresses a conversation segment into a short digest:
// topic tags, key excerpts, an emotional arc, and an estimated token saving.
// Everything here is lexical heuristics over already-loaded text.
package summary

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stellarlinkco/luma/internal/memory"
)

const (
	maxTopics     = 5
	maxKeyMoments = 5

	// A message qualifies as a key moment when its combined importance,
	// emotion and revelation scores reach this threshold.
	keyMomentThreshold = 2

	keyMomentExcerptLen = 100
	summaryExcerptLen   = 80

	arcSeparator = " → "
)

// Result is the digest of one conversation segment. An empty segment yields
// the zero Result, not an error.
type Result struct {
	Summary       string
	KeyMoments    []string
	Topics        []string
	EmotionalArc  string
	OriginalCount int
	TokensSaved   int
}

// topicRule pairs a tag with its category pattern. Rules run in declared
// order, which fixes the order of the returned tags.
type topicRule struct {
	tag     string
	pattern *regexp.Regexp
}

var topicRules = []topicRule{
	{"work", regexp.MustCompile(`\b(work|job|career|office|boss|colleague|project)\b`)},
	{"family", regexp.MustCompile(`\b(family|mom|dad|sister|brother|parent|kid|child)\b`)},
	{"relationship", regexp.MustCompile(`\b(girlfriend|boyfriend|partner|dating|relationship|marriage)\b`)},
	{"health", regexp.MustCompile(`\b(health|sick|doctor|hospital|medicine|therapy)\b`)},
	{"education", regexp.MustCompile(`\b(school|college|university|class|study|exam|degree)\b`)},
	{"hobby", regexp.MustCompile(`\b(hobby|game|gaming|anime|music|art|sport|reading)\b`)},
	{"travel", regexp.MustCompile(`\b(travel|trip|vacation|flight|hotel|visit)\b`)},
	{"finance", regexp.MustCompile(`\b(money|salary|budget|expensive|cheap|cost|price)\b`)},
}

var importanceKeywords = []string{
	"important", "remember", "always", "never",
	"love", "hate", "feel", "felt",
	"decided", "realized", "learned",
	"family", "friend", "job", "work",
	"happy", "sad", "excited", "worried",
}

var emotionalMarkers = []string{"!", "...", "😢", "😭", "❤️", "💔", "😡", "🎉"}

var revelationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bi (just|finally|recently|actually)\b`),
	regexp.MustCompile(`\bturns? out\b`),
	regexp.MustCompile(`\brealized\b`),
	regexp.MustCompile(`\bfound out\b`),
}

var moodKeywords = []struct {
	mood     string
	keywords []string
}{
	{"happy", []string{"happy", "great", "good", "excited", "awesome", "love"}},
	{"sad", []string{"sad", "down", "depressed", "unhappy", "hurt"}},
	{"anxious", []string{"anxious", "worried", "stressed", "nervous", "scared"}},
	{"angry", []string{"angry", "mad", "frustrated", "annoyed", "pissed"}},
	{"neutral", []string{"okay", "fine", "alright"}},
}

// Summarizer produces Results from exchange lists.
type Summarizer struct{}

func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize compresses the given exchanges. Topics and key moments come from
// user messages only; the arc samples all exchanges.
func (s *Summarizer) Summarize(exchanges []memory.Exchange, extractKeyMoments bool) Result {
	if len(exchanges) == 0 {
		return Result{}
	}

	var userMessages []string
	for _, ex := range exchanges {
		if ex.Role == memory.RoleUser {
			userMessages = append(userMessages, ex.Text)
		}
	}

	topics := ExtractTopics(userMessages)

	var keyMoments []string
	if extractKeyMoments {
		keyMoments = ExtractKeyMoments(userMessages)
	}

	digest := generateSummary(userMessages, topics, keyMoments)

	return Result{
		Summary:       digest,
		KeyMoments:    keyMoments,
		Topics:        topics,
		EmotionalArc:  DetectEmotionalArc(exchanges),
		OriginalCount: len(exchanges),
		TokensSaved:   tokensSaved(exchanges, digest),
	}
}

// ExtractTopics tags the batch with up to five topic labels, in rule order.
func ExtractTopics(messages []string) []string {
	combined := strings.ToLower(strings.Join(messages, " "))

	var topics []string
	for _, rule := range topicRules {
		if rule.pattern.MatchString(combined) {
			topics = append(topics, rule.tag)
			if len(topics) == maxTopics {
				break
			}
		}
	}
	return topics
}

// ExtractKeyMoments returns up to five qualifying excerpts in original order,
// each truncated to 100 characters.
func ExtractKeyMoments(messages []string) []string {
	var moments []string
	for _, msg := range messages {
		if !isImportant(msg) {
			continue
		}
		moments = append(moments, truncate(msg, keyMomentExcerptLen))
		if len(moments) == maxKeyMoments {
			break
		}
	}
	return moments
}

func isImportant(message string) bool {
	lower := strings.ToLower(message)

	score := 0
	for _, kw := range importanceKeywords {
		if strings.Contains(lower, kw) {
			score++
		}
	}
	for _, marker := range emotionalMarkers {
		if strings.Contains(message, marker) {
			score++
		}
	}
	for _, re := range revelationPatterns {
		if re.MatchString(lower) {
			score++
		}
	}

	return score >= keyMomentThreshold
}

// DetectEmotionalArc samples mood at the first, middle and last exchange.
// Fewer than three exchanges, or fewer than two recognizable moods, yields "".
func DetectEmotionalArc(exchanges []memory.Exchange) string {
	if len(exchanges) < 3 {
		return ""
	}

	samples := []string{
		guessMood(exchanges[0].Text),
		guessMood(exchanges[len(exchanges)/2].Text),
		guessMood(exchanges[len(exchanges)-1].Text),
	}

	var moods []string
	for _, m := range samples {
		if m != "" {
			moods = append(moods, m)
		}
	}
	if len(moods) < 2 {
		return ""
	}
	return strings.Join(moods, arcSeparator)
}

func guessMood(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range moodKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.mood
			}
		}
	}
	return ""
}

func generateSummary(messages, topics, keyMoments []string) string {
	var parts []string

	if len(topics) > 0 {
		if len(topics) == 1 {
			parts = append(parts, fmt.Sprintf("Discussed %s.", topics[0]))
		} else {
			listed := strings.Join(topics[:len(topics)-1], ", ") + " and " + topics[len(topics)-1]
			parts = append(parts, fmt.Sprintf("Discussed %s.", listed))
		}
	}

	if len(keyMoments) > 0 {
		parts = append(parts, truncate(keyMoments[0], summaryExcerptLen))
	}

	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("Had a conversation with %d messages.", len(messages)))
	}

	return strings.Join(parts, " ")
}

func tokensSaved(exchanges []memory.Exchange, digest string) int {
	var all []string
	for _, ex := range exchanges {
		all = append(all, ex.Text)
	}
	saved := EstimateTokens(strings.Join(all, " ")) - EstimateTokens(digest)
	if saved < 0 {
		return 0
	}
	return saved
}

// EstimateTokens is the rough four-characters-per-token estimate used across
// the pipeline. It exists to bound prompt sizes, not to meter billing.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// ShouldSummarize triggers once the exchange count reaches the threshold.
func ShouldSummarize(messageCount, threshold int) bool {
	return messageCount >= threshold
}

// MergeSummaries joins several digests into one numbered line.
func MergeSummaries(summaries []string) string {
	if len(summaries) == 0 {
		return ""
	}
	if len(summaries) == 1 {
		return summaries[0]
	}

	merged := make([]string, 0, len(summaries))
	for i, s := range summaries {
		merged = append(merged, fmt.Sprintf("[%d] %s", i+1, s))
	}
	return strings.Join(merged, " | ")
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
