package memory

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserProfile is the durable per-user record. It survives across sessions
// and is recreated empty if the backend expires it.
type UserProfile struct {
	UserID           string            `json:"user_id"`
	Name             string            `json:"name,omitempty"`
	Interests        []string          `json:"interests"`
	Likes            []string          `json:"likes"`
	Dislikes         []string          `json:"dislikes"`
	PersonalityNotes []string          `json:"personality_notes"`
	InteractionCount int               `json:"interaction_count"`
	FirstSeen        time.Time         `json:"first_seen"`
	LastSeen         time.Time         `json:"last_seen"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

func NewUserProfile(userID string) *UserProfile {
	now := time.Now().UTC()
	return &UserProfile{
		UserID:    userID,
		FirstSeen: now,
		LastSeen:  now,
	}
}

// AddInterest appends the interest unless an exact duplicate exists.
func (p *UserProfile) AddInterest(interest string) {
	p.Interests = appendUnique(p.Interests, interest)
}

// AddLike and AddDislike follow the same dedup rule as AddInterest.
func (p *UserProfile) AddLike(item string)    { p.Likes = appendUnique(p.Likes, item) }
func (p *UserProfile) AddDislike(item string) { p.Dislikes = appendUnique(p.Dislikes, item) }

func (p *UserProfile) AddPersonalityNote(note string) {
	p.PersonalityNotes = appendUnique(p.PersonalityNotes, note)
}

// Touch refreshes last-seen and counts one completed turn.
func (p *UserProfile) Touch() {
	p.LastSeen = time.Now().UTC()
	p.InteractionCount++
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

// ConversationSummary is the compressed record of one summarized segment.
// It is append-only: never mutated after creation.
type ConversationSummary struct {
	SessionID            string    `json:"session_id"`
	UserID               string    `json:"user_id"`
	Summary              string    `json:"summary"`
	KeyMoments           []string  `json:"key_moments"`
	EmotionalArc         string    `json:"emotional_arc,omitempty"`
	TopicsDiscussed      []string  `json:"topics_discussed"`
	Timestamp            time.Time `json:"timestamp"`
	OriginalMessageCount int       `json:"original_message_count"`
	TokensSaved          int       `json:"tokens_saved"`
}

// Exchange is one message inside a session's recent history.
type Exchange struct {
	Role      string            `json:"role"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SessionContext is the active state of one session. RecentExchanges never
// exceeds ContextWindow; the oldest entries are dropped on overflow.
type SessionContext struct {
	SessionID       string     `json:"session_id"`
	UserID          string     `json:"user_id"`
	CurrentTopic    string     `json:"current_topic,omitempty"`
	CurrentMood     string     `json:"current_mood,omitempty"`
	RecentExchanges []Exchange `json:"recent_exchanges"`
	StartedAt       time.Time  `json:"started_at"`
	LastActivity    time.Time  `json:"last_activity"`
	ContextWindow   int        `json:"context_window"`
}

func NewSessionContext(sessionID, userID string, contextWindow int) *SessionContext {
	now := time.Now().UTC()
	return &SessionContext{
		SessionID:     sessionID,
		UserID:        userID,
		StartedAt:     now,
		LastActivity:  now,
		ContextWindow: contextWindow,
	}
}

// AddExchange appends one message and evicts the oldest entries beyond the
// context window.
func (s *SessionContext) AddExchange(role, text string, metadata map[string]string) {
	s.RecentExchanges = append(s.RecentExchanges, Exchange{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	if s.ContextWindow > 0 && len(s.RecentExchanges) > s.ContextWindow {
		s.RecentExchanges = s.RecentExchanges[len(s.RecentExchanges)-s.ContextWindow:]
	}
	s.LastActivity = time.Now().UTC()
}

// Compact truncates history to the last keep exchanges after a summarization.
func (s *SessionContext) Compact(keep int) {
	if keep > 0 && len(s.RecentExchanges) > keep {
		s.RecentExchanges = s.RecentExchanges[len(s.RecentExchanges)-keep:]
	}
}

// History returns the exchanges in role/content form for prompting.
func (s *SessionContext) History() []Turn {
	turns := make([]Turn, 0, len(s.RecentExchanges))
	for _, ex := range s.RecentExchanges {
		turns = append(turns, Turn{Role: ex.Role, Content: ex.Text})
	}
	return turns
}

// Turn is the role/content pair consumed by the generator collaborator.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextBundle is the read-combining view handed to the prompt layer.
// Slices are capped at read time to bound prompt size deterministically.
type ContextBundle struct {
	Profile   ProfileView
	Summaries []SummaryView
	Topic     string
	Mood      string
	History   []Turn
}

type ProfileView struct {
	Name             string
	Interests        []string
	Likes            []string
	PersonalityNotes []string
	InteractionCount int
}

type SummaryView struct {
	Summary    string
	KeyMoments []string
	Topics     []string
}
