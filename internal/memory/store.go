// Package memory owns persistence of the three record tiers: user profiles,
// conversation summaries, and session contexts. Serialization happens only
// here, at the backend boundary; everything above works with typed records.
package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stellarlinkco/luma/internal/config"
)

const (
	profileKeyPrefix   = "profile:"
	sessionKeyPrefix   = "session:"
	summariesKeyPrefix = "summaries:"

	// Caps applied by BuildContext to keep prompts bounded without token
	// counting.
	contextInterestCap      = 5
	contextLikeCap          = 3
	contextPersonalityCap   = 2
	contextSummaryCap       = 3
	contextSummaryMomentCap = 2
	contextSummaryTopicCap  = 3
)

// Store is the memory layer over an abstract Backend. All operations fail
// only through backend I/O errors, which carry ErrStorage.
type Store struct {
	backend       Backend
	contextWindow int
	maxSummaries  int
}

func NewStore(backend Backend, cfg config.EngineConfig) *Store {
	// New sessions hold enough exchanges for the summarization threshold to
	// be reachable; the prompt layer applies the tighter context window.
	window := cfg.ContextWindow
	if cfg.SummaryThreshold > window {
		window = cfg.SummaryThreshold
	}
	return &Store{
		backend:       backend,
		contextWindow: window,
		maxSummaries:  cfg.MaxSummaries,
	}
}

// GetUserProfile reads the profile for userID, creating and persisting an
// empty one when none exists. Backend expiry of an old profile is not an
// error; the user simply starts fresh.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	raw, found, err := s.backend.Get(ctx, profileKeyPrefix+userID)
	if err != nil {
		return nil, err
	}
	if found {
		var profile UserProfile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", userID, err)
		}
		return &profile, nil
	}

	profile := NewUserProfile(userID)
	if err := s.writeProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveUserProfile counts one completed turn (Touch) before persisting.
func (s *Store) SaveUserProfile(ctx context.Context, profile *UserProfile) error {
	profile.Touch()
	return s.writeProfile(ctx, profile)
}

func (s *Store) writeProfile(ctx context.Context, profile *UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", profile.UserID, err)
	}
	return s.backend.Set(ctx, profileKeyPrefix+profile.UserID, string(data), config.ProfileTTL)
}

// GetSessionContext reads the session, creating and persisting an empty one
// when none exists.
func (s *Store) GetSessionContext(ctx context.Context, sessionID, userID string) (*SessionContext, error) {
	raw, found, err := s.backend.Get(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		return nil, err
	}
	if found {
		var session SessionContext
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
		}
		return &session, nil
	}

	session := NewSessionContext(sessionID, userID, s.contextWindow)
	if err := s.SaveSessionContext(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Store) SaveSessionContext(ctx context.Context, session *SessionContext) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.SessionID, err)
	}
	return s.backend.Set(ctx, sessionKeyPrefix+session.SessionID, string(data), config.SessionTTL)
}

// GetConversationSummaries returns up to limit summaries, most recent first.
func (s *Store) GetConversationSummaries(ctx context.Context, userID string, limit int) ([]ConversationSummary, error) {
	items, err := s.backend.GetList(ctx, summariesKeyPrefix+userID, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(items))
	for _, raw := range items {
		var summary ConversationSummary
		if err := json.Unmarshal([]byte(raw), &summary); err != nil {
			return nil, fmt.Errorf("decode summary for %s: %w", userID, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// SaveConversationSummary appends to the user's bounded summary list; the
// oldest entry is evicted once the cap is reached.
func (s *Store) SaveConversationSummary(ctx context.Context, summary *ConversationSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary for %s: %w", summary.UserID, err)
	}
	return s.backend.AddToList(ctx, summariesKeyPrefix+summary.UserID, string(data), s.maxSummaries)
}

// ExtractedInfo is what the orchestrator's heuristics pulled from one message.
type ExtractedInfo struct {
	Name             string
	Interests        []string
	Likes            []string
	Dislikes         []string
	PersonalityNotes []string
}

func (e ExtractedInfo) Empty() bool {
	return e.Name == "" && len(e.Interests) == 0 && len(e.Likes) == 0 &&
		len(e.Dislikes) == 0 && len(e.PersonalityNotes) == 0
}

// ExtractAndUpdateProfile merges extracted info into the profile and
// persists it. Re-adding an existing item is a no-op.
func (s *Store) ExtractAndUpdateProfile(ctx context.Context, userID string, info ExtractedInfo) error {
	profile, err := s.GetUserProfile(ctx, userID)
	if err != nil {
		return err
	}

	if info.Name != "" {
		profile.Name = info.Name
	}
	for _, interest := range info.Interests {
		profile.AddInterest(interest)
	}
	for _, like := range info.Likes {
		profile.AddLike(like)
	}
	for _, dislike := range info.Dislikes {
		profile.AddDislike(dislike)
	}
	for _, note := range info.PersonalityNotes {
		profile.AddPersonalityNote(note)
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", userID, err)
	}
	return s.backend.Set(ctx, profileKeyPrefix+userID, string(data), config.ProfileTTL)
}

// BuildContext is the read-combining convenience returning capped slices of
// everything the prompt layer needs for one turn.
func (s *Store) BuildContext(ctx context.Context, userID, sessionID string) (*ContextBundle, error) {
	profile, err := s.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	session, err := s.GetSessionContext(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	summaries, err := s.GetConversationSummaries(ctx, userID, contextSummaryCap)
	if err != nil {
		return nil, err
	}

	views := make([]SummaryView, 0, len(summaries))
	for _, sum := range summaries {
		views = append(views, SummaryView{
			Summary:    sum.Summary,
			KeyMoments: capSlice(sum.KeyMoments, contextSummaryMomentCap),
			Topics:     capSlice(sum.TopicsDiscussed, contextSummaryTopicCap),
		})
	}

	return &ContextBundle{
		Profile: ProfileView{
			Name:             profile.Name,
			Interests:        capSlice(profile.Interests, contextInterestCap),
			Likes:            capSlice(profile.Likes, contextLikeCap),
			PersonalityNotes: capSlice(profile.PersonalityNotes, contextPersonalityCap),
			InteractionCount: profile.InteractionCount,
		},
		Summaries: views,
		Topic:     session.CurrentTopic,
		Mood:      session.CurrentMood,
		History:   session.History(),
	}, nil
}

// ResetUser removes every record for the user: profile, summaries, and the
// given sessions. This is the privacy-purge path.
func (s *Store) ResetUser(ctx context.Context, userID string, sessionIDs ...string) error {
	if err := s.backend.Delete(ctx, profileKeyPrefix+userID); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, summariesKeyPrefix+userID); err != nil {
		return err
	}
	for _, sid := range sessionIDs {
		if err := s.backend.Delete(ctx, sessionKeyPrefix+sid); err != nil {
			return err
		}
	}
	return nil
}

// Ping reports backend reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func capSlice(list []string, limit int) []string {
	if len(list) > limit {
		return list[:limit]
	}
	return list
}
