package engine

import (
	"context"
	"sync"
	"time"
)

type systemStats struct {
	mu          sync.Mutex
	totalTurns  int
	totalTokens int
}

func (s *systemStats) record(tokens int) {
	s.mu.Lock()
	s.totalTurns++
	s.totalTokens += tokens
	s.mu.Unlock()
}

func (s *systemStats) snapshot() (turns, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTurns, s.totalTokens
}

// UserStats is the per-user view exposed over the API and CLI.
type UserStats struct {
	UserID            string    `json:"user_id"`
	Name              string    `json:"name,omitempty"`
	InteractionCount  int       `json:"interaction_count"`
	FirstSeen         time.Time `json:"first_seen"`
	LastSeen          time.Time `json:"last_seen"`
	Interests         []string  `json:"interests"`
	PastConversations int       `json:"past_conversations"`
}

// GetUserStats summarizes what is stored for one user.
func (e *Engine) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	profile, err := e.store.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries, err := e.store.GetConversationSummaries(ctx, userID, e.cfg.Engine.MaxSummaries)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		UserID:            userID,
		Name:              profile.Name,
		InteractionCount:  profile.InteractionCount,
		FirstSeen:         profile.FirstSeen,
		LastSeen:          profile.LastSeen,
		Interests:         profile.Interests,
		PastConversations: len(summaries),
	}, nil
}

// SystemStats is the process-wide counter view.
type SystemStats struct {
	TotalTurns     int    `json:"total_turns"`
	TotalTokens    int    `json:"total_tokens"`
	PersonaName    string `json:"persona_name"`
	Model          string `json:"model"`
	SafetyEnabled  bool   `json:"safety_enabled"`
	ToneAdaptation bool   `json:"tone_adaptation_enabled"`
}

func (e *Engine) GetSystemStats() SystemStats {
	turns, tokens := e.stats.snapshot()
	return SystemStats{
		TotalTurns:     turns,
		TotalTokens:    tokens,
		PersonaName:    e.persona.Name(),
		Model:          e.cfg.Provider.Model,
		SafetyEnabled:  e.cfg.Engine.Safety,
		ToneAdaptation: e.cfg.Engine.ToneAdaptation,
	}
}

// HealthCheck probes each collaborator the engine depends on.
func (e *Engine) HealthCheck(ctx context.Context) map[string]bool {
	checks := map[string]bool{
		"storage":   e.store.Ping(ctx) == nil,
		"generator": e.generator != nil,
		"persona":   e.persona != nil,
	}
	checks["overall"] = checks["storage"] && checks["generator"] && checks["persona"]
	return checks
}
