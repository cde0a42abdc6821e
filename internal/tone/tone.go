// Package tone classifies the emotional register of a single user message
// using weighted lexical pattern tables. Classification is pure string
// matching; there is no statistical model behind it.
package tone

import (
	"regexp"
	"strings"
	"unicode"
)

// EmotionalTone is the transient classification result for one message.
// It is never persisted; only Primary is folded into session state.
type EmotionalTone struct {
	Primary    string
	Secondary  string
	Confidence float64
	Energy     string // "low", "medium", "high"
	Formality  string // "casual", "neutral", "formal"
}

const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"

	FormalityCasual  = "casual"
	FormalityNeutral = "neutral"
	FormalityFormal  = "formal"
)

// patternGroup is one labeled set of indicators. Groups are evaluated in
// declared order; the first group reaching the maximum match count wins ties.
type patternGroup struct {
	label    string
	patterns []*regexp.Regexp
}

var emotionGroups = []patternGroup{
	{"sad", compileAll(
		`\b(sad|depressed|down|unhappy|miserable|hopeless|lonely|crying|cry)\b`,
		`\b(feel like shit|feeling down|not okay|feeling bad)\b`,
		`😢|😭|😔|😞|☹️|💔`,
	)},
	{"excited", compileAll(
		`\b(excited|amazing|awesome|great|fantastic|wonderful|omg|wow|yay)\b`,
		`\b(so happy|super happy|really happy|love it|love this)\b`,
		`!!+`,
		`😃|😄|😍|🎉|🔥|💪|✨|🙌`,
	)},
	{"angry", compileAll(
		`\b(angry|mad|pissed|frustrated|annoyed|hate|furious|wtf)\b`,
		`\b(so annoying|really annoyed|pissing me off)\b`,
		`😠|😡|🤬|💢`,
	)},
	{"anxious", compileAll(
		`\b(anxious|worried|nervous|scared|afraid|stressed|stress|panic)\b`,
		`\b(freaking out|stressing out|really worried)\b`,
		`😰|😨|😥|😟`,
	)},
	{"sarcastic", compileAll(
		`/s\b`,
		`\b(yeah right|sure|obviously|totally|oh wow)\b.*\b(not|yeah)\b`,
		`🙄`,
	)},
	{"happy", compileAll(
		`\b(happy|good|nice|cool|glad|pleased|content)\b`,
		`\b(going well|pretty good|doing good)\b`,
		`😊|☺️|😌|🙂|😀`,
	)},
}

var highEnergyPatterns = compileAll(
	`!!+`,
	`\b(omg|wow|yay|yes|let'?s go|hype|pumped)\b`,
)

var lowEnergyPatterns = compileAll(
	`\b(tired|exhausted|whatever|meh|idk|dunno)\b`,
	`\.\.\.+`,
	`\b(not really|i guess|maybe)\b`,
)

var formalPatterns = compileAll(
	`\b(therefore|furthermore|however|subsequently|indeed)\b`,
	`\b(would like to|shall|ought to)\b`,
)

var casualPatterns = compileAll(
	`\b(gonna|wanna|gotta|kinda|sorta|yeah|yep|nah|lol|haha)\b`,
	`\b(what'?s up|how'?s it going|sup|yo)\b`,
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

// Detector scores messages against the pattern tables. The zero-cost
// construction exists so callers hold one instance per engine rather than
// reaching for package state.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect never fails: a message with no matches comes back as "casual" with
// confidence 0.5 and medium/neutral energy and formality baselines.
func (d *Detector) Detect(message string) EmotionalTone {
	lower := strings.ToLower(message)

	counts := make([]int, len(emotionGroups))
	maxCount := 0
	for i, group := range emotionGroups {
		counts[i] = countMatches(lower, group.patterns)
		if counts[i] > maxCount {
			maxCount = counts[i]
		}
	}

	primary := "casual"
	confidence := 0.5
	if maxCount > 0 {
		for i, group := range emotionGroups {
			if counts[i] == maxCount {
				primary = group.label
				break
			}
		}
		confidence = float64(maxCount) * 0.3
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	secondary := secondaryLabel(counts, maxCount)

	return EmotionalTone{
		Primary:    primary,
		Secondary:  secondary,
		Confidence: confidence,
		Energy:     detectEnergy(message, lower),
		Formality:  detectFormality(lower),
	}
}

// secondaryLabel picks the second-highest scoring group, if it matched at all.
func secondaryLabel(counts []int, maxCount int) string {
	if maxCount == 0 {
		return ""
	}

	primaryIdx := -1
	for i, c := range counts {
		if c == maxCount {
			primaryIdx = i
			break
		}
	}

	best, bestIdx := 0, -1
	for i, c := range counts {
		if i == primaryIdx {
			continue
		}
		if c > best {
			best, bestIdx = c, i
		}
	}
	if bestIdx < 0 || best == 0 {
		return ""
	}
	return emotionGroups[bestIdx].label
}

func countMatches(text string, patterns []*regexp.Regexp) int {
	count := 0
	for _, re := range patterns {
		count += len(re.FindAllStringIndex(text, -1))
	}
	return count
}

func detectEnergy(original, lower string) string {
	highScore := countMatches(lower, highEnergyPatterns)
	lowScore := countMatches(lower, lowEnergyPatterns)

	upper := 0
	for _, r := range original {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if len(original) > 0 && float64(upper) > float64(len(original))*0.3 {
		highScore += 2
	}
	if len(original) > 200 {
		highScore++
	}

	switch {
	case highScore > lowScore:
		return EnergyHigh
	case lowScore > highScore:
		return EnergyLow
	default:
		return EnergyMedium
	}
}

func detectFormality(lower string) string {
	formalScore := countMatches(lower, formalPatterns)
	casualScore := countMatches(lower, casualPatterns)

	switch {
	case formalScore > casualScore && formalScore > 0:
		return FormalityFormal
	case casualScore > formalScore && casualScore > 0:
		return FormalityCasual
	default:
		return FormalityNeutral
	}
}

// ShouldAdaptTone reports whether the conversation's running tone should
// shift toward the newly detected one. Strong emotional signals always win;
// a drop back to "casual" does not displace a strong running tone.
func (d *Detector) ShouldAdaptTone(current, detected string) bool {
	strong := map[string]bool{"sad": true, "angry": true, "anxious": true, "excited": true}

	if strong[detected] {
		return true
	}
	if detected == "casual" && strong[current] {
		return false
	}
	return current != detected
}
