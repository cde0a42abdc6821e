package tone

// Guidance describes how a response should be shaped for a detected tone.
type Guidance struct {
	Style   string
	Avoid   []string
	Include []string
}

var guidanceTable = map[string]Guidance{
	"sad": {
		Style:   "empathetic, soft, supportive",
		Avoid:   []string{"toxic positivity", "dismissing feelings", "overexplaining"},
		Include: []string{"validation", "presence", "gentle support"},
	},
	"excited": {
		Style:   "enthusiastic, energetic, celebratory",
		Avoid:   []string{"dampening energy", "being too serious"},
		Include: []string{"exclamation points", "matching excitement", "follow-up questions"},
	},
	"angry": {
		Style:   "calm, validating, space-giving",
		Avoid:   []string{"dismissing anger", "taking it personally", "being defensive"},
		Include: []string{"acknowledgment", "empathy", "patience"},
	},
	"anxious": {
		Style:   "reassuring, grounding, patient",
		Avoid:   []string{"minimizing concerns", "rushing", "adding pressure"},
		Include: []string{"calm presence", "practical support", "validation"},
	},
	"sarcastic": {
		Style:   "playful, witty, banter-ready",
		Avoid:   []string{"taking too seriously", "being overly sincere"},
		Include: []string{"light humor", "playful responses", "matching wit"},
	},
	"happy": {
		Style:   "warm, positive, engaged",
		Avoid:   []string{"dampening mood", "being cynical"},
		Include: []string{"genuine interest", "positive energy", "celebration"},
	},
	"casual": {
		Style:   "relaxed, conversational, natural",
		Avoid:   []string{"being too formal", "overthinking"},
		Include: []string{"casual language", "easy flow", "authenticity"},
	},
}

// ResponseGuidance returns the guidance entry for the tone's primary label,
// falling back to the "casual" entry for unknown labels.
func (d *Detector) ResponseGuidance(t EmotionalTone) Guidance {
	if g, ok := guidanceTable[t.Primary]; ok {
		return g
	}
	return guidanceTable["casual"]
}
