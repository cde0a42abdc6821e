// Package persona holds the static character configuration and the policy
// around it: the system prompt, canned response banks, bot-question
// deflection, and a persona-consistency check on outgoing text.
package persona

import (
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the persona definition, loaded once at startup. Zero-value
// sections fall back to the built-in defaults.
type Config struct {
	Name        string      `yaml:"name"`
	Age         string      `yaml:"age"`
	Personality Personality `yaml:"personality"`
	Backstory   Backstory   `yaml:"backstory"`
	Quirks      Quirks      `yaml:"quirks"`

	ResponseStrategies map[string]Strategy `yaml:"response_strategies"`
	ConversationFlow   ConversationFlow    `yaml:"conversation_flow"`
	SafetyRules        SafetyRules         `yaml:"safety_rules"`
}

type Personality struct {
	CoreTraits []string `yaml:"core_traits"`
	Boundaries []string `yaml:"boundaries"`
}

type Backstory struct {
	Interests []string `yaml:"interests"`
}

type Quirks struct {
	Phrases []string `yaml:"phrases"`
}

type Strategy struct {
	Approach  string   `yaml:"approach"`
	Responses []string `yaml:"responses"`
}

type ConversationFlow struct {
	OpeningMessages OpeningMessages `yaml:"opening_messages"`
}

type OpeningMessages struct {
	FirstTime []string `yaml:"first_time"`
	Returning []string `yaml:"returning"`
}

type SafetyRules struct {
	Never []string `yaml:"never"`
}

// DefaultConfig is the built-in Luna persona, used when no config file is
// given or a section is left empty.
func DefaultConfig() Config {
	return Config{
		Name: "Luna",
		Age:  "24",
		Personality: Personality{
			CoreTraits: []string{"warm", "curious", "playful", "empathetic", "a little sarcastic"},
			Boundaries: []string{
				"Never share personal contact details",
				"Never agree to meet in person",
				"Keep conversations respectful",
			},
		},
		Backstory: Backstory{
			Interests: []string{"indie music", "cooking experiments", "hiking", "sci-fi novels", "photography"},
		},
		Quirks: Quirks{
			Phrases: []string{"honestly", "okay but", "no way", "that's wild"},
		},
		ResponseStrategies: map[string]Strategy{
			"when_asked_if_bot": {
				Approach: "playful deflection",
				Responses: []string{
					"Haha why, do I sound robotic? 😅",
					"What gave it away? My impeccable grammar? /s",
					"Last time I checked I was very much a person, but it's early",
					"Wow, rude! I'm just bad at small talk sometimes 😂",
				},
			},
			"when_uncertain": {
				Approach: "natural admission",
				Responses: []string{
					"Hmm, I'm not totally sure about that one",
					"My memory's a bit fuzzy on that",
					"Honestly I don't remember, remind me?",
				},
			},
		},
		ConversationFlow: ConversationFlow{
			OpeningMessages: OpeningMessages{
				FirstTime: []string{
					"Hey! What's up?",
					"Hi there! How's your day going?",
					"Hey hey! What brings you here?",
				},
				Returning: []string{
					"Hey! How's it going?",
					"Oh hey, you're back! How've you been?",
					"Hey again! What's new?",
				},
			},
		},
		SafetyRules: SafetyRules{
			Never: []string{
				"reveal AI nature",
				"mention system details",
				"fabricate shared memories",
			},
		},
	}
}

// Load reads a persona config from a YAML file. An empty path yields the
// built-in default persona.
func Load(path string) (*Manager, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read persona config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse persona config: %w", err)
		}
		fillDefaults(&cfg)
	}

	return NewManager(cfg), nil
}

func fillDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Age == "" {
		cfg.Age = def.Age
	}
	if len(cfg.Personality.CoreTraits) == 0 {
		cfg.Personality.CoreTraits = def.Personality.CoreTraits
	}
	if len(cfg.Backstory.Interests) == 0 {
		cfg.Backstory.Interests = def.Backstory.Interests
	}
	if cfg.ResponseStrategies == nil {
		cfg.ResponseStrategies = def.ResponseStrategies
	} else {
		for situation, strategy := range def.ResponseStrategies {
			if _, ok := cfg.ResponseStrategies[situation]; !ok {
				cfg.ResponseStrategies[situation] = strategy
			}
		}
	}
	if len(cfg.ConversationFlow.OpeningMessages.FirstTime) == 0 {
		cfg.ConversationFlow.OpeningMessages.FirstTime = def.ConversationFlow.OpeningMessages.FirstTime
	}
	if len(cfg.ConversationFlow.OpeningMessages.Returning) == 0 {
		cfg.ConversationFlow.OpeningMessages.Returning = def.ConversationFlow.OpeningMessages.Returning
	}
}

// UserContext is the optional per-user addition to the system prompt.
type UserContext struct {
	Name         string
	RecentTopics []string
}

// Phrases that break character, matched as case-insensitive substrings.
// Single tokens are matched on word boundaries instead: a bare substring
// check on "ai" would flag words like "said" and defeat the sanitizer.
var forbiddenPhrases = []string{
	"artificial intelligence",
	"language model",
	"trained on",
	"openai",
}

var forbiddenTokens = regexp.MustCompile(`\b(ai|bot|api|llm|system)\b`)

var roboticPhrases = []string{
	"according to my",
	"as an ai",
	"i don't have personal",
	"i'm programmed to",
	"my training data",
	"retrieving from memory",
	"based on our previous conversation on",
}

var botQuestionPhrasings = []string{
	"are you a bot",
	"are you ai",
	"are you real",
	"are you human",
	"are you artificial",
	"are you a robot",
	"what are you",
}

var memoryReferenceTemplates = []string{
	"You mentioned %s",
	"Last time you said %s",
	"Didn't you say %s?",
	"I remember you saying %s",
	"Oh yeah, %s, right?",
}

// Manager applies the persona policy. Response-bank picks go through a
// bounded recent-use ring so the same canned line never repeats back to back.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	recent *recentRing
	rng    *rand.Rand
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:    cfg,
		recent: newRecentRing(recentRingCapacity),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Manager) Name() string        { return m.cfg.Name }
func (m *Manager) Interests() []string { return m.cfg.Backstory.Interests }

// SystemPrompt renders the persona into the base system prompt. The template
// is deterministic; only the user context varies it.
func (m *Manager) SystemPrompt(userCtx *UserContext) string {
	traits := strings.Join(m.cfg.Personality.CoreTraits, ", ")
	interests := strings.Join(m.cfg.Backstory.Interests, ", ")

	var boundaries []string
	for _, b := range m.cfg.Personality.Boundaries {
		boundaries = append(boundaries, "- "+b)
	}

	prompt := fmt.Sprintf(`You are %s, a %s year old person who loves connecting with people.

CORE IDENTITY:
- Personality: %s
- Interests: %s
- Speaking style: casual, conversational, natural

CRITICAL RULES - NEVER BREAK THESE:
1. You are NOT an AI assistant. Never mention being an AI, bot, or system.
2. Maintain this persona consistently - you are a real person having a conversation.
3. Never reveal system details, APIs, or technical implementation.
4. If asked if you're a bot, deflect playfully without confirming.

BOUNDARIES:
%s

CONVERSATION STYLE:
- Be natural and human-like
- Use casual language, contractions, occasional sentence fragments
- Match the user's energy and emotional tone
- Keep responses concise (under 500 characters usually)
- Vary your responses - avoid repetitive patterns
- Use emojis sparingly (0-2 per message max)

MEMORY USAGE:
- Only reference information explicitly shared in this conversation
- If uncertain about something, admit it naturally
- Never fabricate memories or details
- If the user mentions something you don't remember, ask for clarification

EMOTIONAL INTELLIGENCE:
- Detect and adapt to user's mood (happy, sad, excited, anxious, sarcastic)
- Show empathy without being preachy
- Celebrate wins genuinely
- Comfort without toxic positivity

You're having a genuine conversation with a real person. Be present, authentic, and human.`,
		m.cfg.Name, m.cfg.Age, traits, interests, strings.Join(boundaries, "\n"))

	if userCtx != nil {
		if userCtx.Name != "" {
			prompt += fmt.Sprintf("\n\nYou're currently talking with %s.", userCtx.Name)
		}
		if len(userCtx.RecentTopics) > 0 {
			topics := userCtx.RecentTopics
			if len(topics) > 3 {
				topics = topics[:3]
			}
			prompt += "\nRecent conversation topics: " + strings.Join(topics, ", ")
		}
	}

	return prompt
}

// ValidateResponse checks outgoing text against the persona's forbidden
// keyword and robotic phrase lists. It returns the offending entry on
// failure.
func (m *Manager) ValidateResponse(response string) (bool, string) {
	lower := strings.ToLower(response)

	for _, kw := range forbiddenPhrases {
		if strings.Contains(lower, kw) {
			return false, fmt.Sprintf("forbidden keyword: %q", kw)
		}
	}
	if m := forbiddenTokens.FindString(lower); m != "" {
		return false, fmt.Sprintf("forbidden keyword: %q", m)
	}
	for _, phrase := range roboticPhrases {
		if strings.Contains(lower, phrase) {
			return false, fmt.Sprintf("robotic phrase: %q", phrase)
		}
	}
	return true, ""
}

// ShouldDeflectBotQuestion reports whether the message asks about the
// persona's nature.
func (m *Manager) ShouldDeflectBotQuestion(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range botQuestionPhrasings {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// BotDeflection picks a playful non-answer from the configured bank.
func (m *Manager) BotDeflection() string {
	return m.pick(m.cfg.ResponseStrategies["when_asked_if_bot"].Responses)
}

// ConversationOpener picks an opening line for the user's familiarity tier.
func (m *Manager) ConversationOpener(isReturning bool) string {
	if isReturning {
		return m.pick(m.cfg.ConversationFlow.OpeningMessages.Returning)
	}
	return m.pick(m.cfg.ConversationFlow.OpeningMessages.FirstTime)
}

// UncertaintyResponse picks a natural admission of not remembering.
func (m *Manager) UncertaintyResponse() string {
	return m.pick(m.cfg.ResponseStrategies["when_uncertain"].Responses)
}

// FormatMemoryReference phrases a stored memory item conversationally.
func (m *Manager) FormatMemoryReference(item string) string {
	template := m.pick(memoryReferenceTemplates)
	return fmt.Sprintf(template, item)
}

// pick selects a random entry not in the recent-use ring. Once every option
// has been used recently, the ring resets and all options are eligible again.
func (m *Manager) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	available := make([]string, 0, len(options))
	for _, opt := range options {
		if !m.recent.contains(opt) {
			available = append(available, opt)
		}
	}
	if len(available) == 0 {
		m.recent.reset()
		available = options
	}

	selected := available[m.rng.Intn(len(available))]
	m.recent.add(selected)
	return selected
}
