// Package engine sequences one conversation turn end to end: input
// validation, bot-question deflection, tone detection, memory loading,
// prompt assembly, generation, safety filtering, and persistence.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stellarlinkco/luma/internal/config"
	"github.com/stellarlinkco/luma/internal/llm"
	"github.com/stellarlinkco/luma/internal/memory"
	"github.com/stellarlinkco/luma/internal/persona"
	"github.com/stellarlinkco/luma/internal/prompt"
	"github.com/stellarlinkco/luma/internal/safety"
	"github.com/stellarlinkco/luma/internal/summary"
	"github.com/stellarlinkco/luma/internal/tone"
)

const (
	rephraseResponse = "Hey, could you rephrase that?"
	errorResponse    = "Oops, something went wrong on my end. Can you try again?"
)

// Fallbacks keyed by detected tone, used when generation fails or a response
// cannot be repaired.
var safeFallbacks = map[string]string{
	"sad":     "I'm here for you. Wanna talk about it?",
	"excited": "That's awesome! Tell me more!",
	"angry":   "I hear you. That sounds frustrating.",
	"anxious": "Hey, it's okay. Take a breath. What's going on?",
}

const defaultFallback = "Hmm, let me think about that differently..."

// Response is the result of one turn, with enough metadata for callers to
// log and display.
type Response struct {
	Text           string            `json:"text"`
	UserID         string            `json:"user_id"`
	SessionID      string            `json:"session_id"`
	DetectedTone   string            `json:"detected_tone,omitempty"`
	Confidence     float64           `json:"confidence"`
	TokensUsed     int               `json:"tokens_used"`
	ResponseTimeMs float64           `json:"response_time_ms"`
	SafetyPassed   bool              `json:"safety_passed"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Engine owns the per-turn pipeline and the collaborators it runs through.
type Engine struct {
	cfg        *config.Config
	persona    *persona.Manager
	store      *memory.Store
	generator  llm.Generator
	detector   *tone.Detector
	summarizer *summary.Summarizer
	assembler  *prompt.Assembler
	builder    *prompt.Builder
	filter     *safety.Filter

	stats *systemStats
}

func New(cfg *config.Config, pm *persona.Manager, store *memory.Store, generator llm.Generator) *Engine {
	return &Engine{
		cfg:        cfg,
		persona:    pm,
		store:      store,
		generator:  generator,
		detector:   tone.NewDetector(),
		summarizer: summary.NewSummarizer(),
		assembler:  prompt.NewAssembler(cfg.Engine.ContextTokens),
		builder:    prompt.NewBuilder(cfg.Engine.ContextTokens + 500),
		filter:     safety.NewFilter(),
		stats:      &systemStats{},
	}
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Chat runs one full turn. It always produces an in-character response; losses
// along the pipeline degrade to canned fallbacks rather than surfacing to the
// user.
func (e *Engine) Chat(ctx context.Context, userID, sessionID, message string) (*Response, error) {
	start := time.Now()

	if ok, reason := ValidateMessage(message, e.cfg.Engine.MaxMessageLen); !ok {
		return &Response{
			Text:         rephraseResponse,
			UserID:       userID,
			SessionID:    sessionID,
			SafetyPassed: false,
			Metadata:     map[string]string{"error": reason},
		}, nil
	}

	message = safety.SanitizeText(message)

	if e.persona.ShouldDeflectBotQuestion(message) {
		return e.deflect(ctx, userID, sessionID, message, start)
	}

	var detected tone.EmotionalTone
	detectedLabel := ""
	if e.cfg.Engine.ToneAdaptation {
		detected = e.detector.Detect(message)
		detectedLabel = detected.Primary
	}

	session, err := e.store.GetSessionContext(ctx, sessionID, userID)
	if err != nil {
		return e.errorResponse(userID, sessionID, err), nil
	}
	session.AddExchange(memory.RoleUser, message, toneMetadata(detectedLabel))
	if err := e.store.SaveSessionContext(ctx, session); err != nil {
		return e.errorResponse(userID, sessionID, err), nil
	}

	bundle, err := e.store.BuildContext(ctx, userID, sessionID)
	if err != nil {
		return e.errorResponse(userID, sessionID, err), nil
	}

	adaptTone := detectedLabel != "" && e.detector.ShouldAdaptTone(session.CurrentMood, detectedLabel)

	systemPrompt := e.buildSystemPrompt(bundle, detected, adaptTone)
	userContext := e.assembler.Assemble(*bundle)

	var detectedPtr *tone.EmotionalTone
	var guidancePtr *tone.Guidance
	if adaptTone {
		g := e.detector.ResponseGuidance(detected)
		detectedPtr, guidancePtr = &detected, &g
	}
	fullPrompt := e.builder.BuildSystemPrompt(systemPrompt, userContext, detectedPtr, guidancePtr, "")

	safetyPassed := true
	meta := map[string]string{}

	history := lastTurns(session.History(), e.cfg.Engine.ContextWindow)
	text, tokensUsed := e.generate(ctx, fullPrompt, history, detectedLabel, meta)

	if e.cfg.Engine.Safety {
		if res := e.filter.Validate(text, *bundle, history); !res.Safe {
			safetyPassed = false
			meta["safety_"+res.Kind] = res.Detail

			text = e.filter.Sanitize(text)
			if ok, _ := e.persona.ValidateResponse(text); !ok {
				text = safeFallback(detectedLabel)
			}
		}
	}

	session.AddExchange(memory.RoleAssistant, text, nil)
	if adaptTone {
		session.CurrentMood = detectedLabel
	}
	if err := e.store.SaveSessionContext(ctx, session); err != nil {
		return e.errorResponse(userID, sessionID, err), nil
	}

	e.updateProfile(ctx, userID, message)

	if summary.ShouldSummarize(len(session.RecentExchanges), e.cfg.Engine.SummaryThreshold) {
		if err := e.summarizeAndCompact(ctx, userID, sessionID, session); err != nil {
			log.Printf("[engine] summarize session %s: %v", sessionID, err)
		}
	}

	e.stats.record(tokensUsed)

	if len(meta) == 0 {
		meta = nil
	}
	return &Response{
		Text:           text,
		UserID:         userID,
		SessionID:      sessionID,
		DetectedTone:   detectedLabel,
		Confidence:     detected.Confidence,
		TokensUsed:     tokensUsed,
		ResponseTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		SafetyPassed:   safetyPassed,
		Metadata:       meta,
	}, nil
}

// deflect answers a bot-identity question with a canned line. The user's
// message is still recorded in session history and counts toward the
// summarization threshold.
func (e *Engine) deflect(ctx context.Context, userID, sessionID, message string, start time.Time) (*Response, error) {
	session, err := e.store.GetSessionContext(ctx, sessionID, userID)
	if err == nil {
		session.AddExchange(memory.RoleUser, message, nil)
		if err := e.store.SaveSessionContext(ctx, session); err != nil {
			log.Printf("[engine] save session %s: %v", sessionID, err)
		}
	} else {
		log.Printf("[engine] load session %s: %v", sessionID, err)
	}

	return &Response{
		Text:           e.persona.BotDeflection(),
		UserID:         userID,
		SessionID:      sessionID,
		DetectedTone:   "curious",
		Confidence:     1.0,
		ResponseTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		SafetyPassed:   true,
	}, nil
}

func (e *Engine) buildSystemPrompt(bundle *memory.ContextBundle, detected tone.EmotionalTone, adaptTone bool) string {
	userCtx := &persona.UserContext{Name: bundle.Profile.Name}
	for _, s := range bundle.Summaries {
		userCtx.RecentTopics = append(userCtx.RecentTopics, s.Topics...)
	}

	base := e.persona.SystemPrompt(userCtx)
	if adaptTone {
		base = prompt.WithToneGuidance(base, detected)
	}
	if e.cfg.Engine.Safety {
		base = prompt.WithSafetyConstraints(base)
	}
	return base
}

// generate calls the external generator with bounded retry; on exhaustion it
// degrades to a tone-keyed fallback instead of surfacing the failure.
func (e *Engine) generate(ctx context.Context, systemPrompt string, history []memory.Turn, detectedLabel string, meta map[string]string) (string, int) {
	reply, err := llm.GenerateWithRetry(ctx, e.generator, systemPrompt, history)
	if err != nil {
		log.Printf("[engine] generation failed: %v", err)
		meta["generation_error"] = err.Error()
		return safeFallback(detectedLabel), 0
	}
	return reply.Text, reply.Usage.TotalTokens
}

func (e *Engine) updateProfile(ctx context.Context, userID, message string) {
	profile, err := e.store.GetUserProfile(ctx, userID)
	if err != nil {
		log.Printf("[engine] load profile %s: %v", userID, err)
		return
	}
	if err := e.store.SaveUserProfile(ctx, profile); err != nil {
		log.Printf("[engine] save profile %s: %v", userID, err)
	}

	info := ExtractUserInfo(message)
	if info.Empty() {
		return
	}
	if err := e.store.ExtractAndUpdateProfile(ctx, userID, info); err != nil {
		log.Printf("[engine] update profile %s: %v", userID, err)
	}
}

func (e *Engine) summarizeAndCompact(ctx context.Context, userID, sessionID string, session *memory.SessionContext) error {
	result := e.summarizer.Summarize(session.RecentExchanges, true)

	err := e.store.SaveConversationSummary(ctx, &memory.ConversationSummary{
		SessionID:            sessionID,
		UserID:               userID,
		Summary:              result.Summary,
		KeyMoments:           result.KeyMoments,
		EmotionalArc:         result.EmotionalArc,
		TopicsDiscussed:      result.Topics,
		Timestamp:            time.Now().UTC(),
		OriginalMessageCount: result.OriginalCount,
		TokensSaved:          result.TokensSaved,
	})
	if err != nil {
		return err
	}

	session.Compact(e.cfg.Engine.CompactKeep)
	return e.store.SaveSessionContext(ctx, session)
}

// StartConversation opens a session with an unprompted greeting suited to
// whether the user has been here before.
func (e *Engine) StartConversation(ctx context.Context, userID, sessionID string) (*Response, error) {
	profile, err := e.store.GetUserProfile(ctx, userID)
	if err != nil {
		return e.errorResponse(userID, sessionID, err), nil
	}

	greeting := e.persona.ConversationOpener(profile.InteractionCount > 0)

	session, err := e.store.GetSessionContext(ctx, sessionID, userID)
	if err != nil {
		return e.errorResponse(userID, sessionID, err), nil
	}
	session.AddExchange(memory.RoleAssistant, greeting, nil)
	if err := e.store.SaveSessionContext(ctx, session); err != nil {
		return e.errorResponse(userID, sessionID, err), nil
	}

	return &Response{
		Text:         greeting,
		UserID:       userID,
		SessionID:    sessionID,
		DetectedTone: "casual",
		Confidence:   1.0,
		SafetyPassed: true,
	}, nil
}

// ResetUserMemory deletes everything stored for the user.
func (e *Engine) ResetUserMemory(ctx context.Context, userID string, sessionIDs ...string) error {
	return e.store.ResetUser(ctx, userID, sessionIDs...)
}

func (e *Engine) errorResponse(userID, sessionID string, err error) *Response {
	log.Printf("[engine] turn failed for user %s: %v", userID, err)
	return &Response{
		Text:         errorResponse,
		UserID:       userID,
		SessionID:    sessionID,
		SafetyPassed: false,
		Metadata:     map[string]string{"error": err.Error()},
	}
}

func safeFallback(detectedTone string) string {
	if f, ok := safeFallbacks[detectedTone]; ok {
		return f
	}
	return defaultFallback
}

func toneMetadata(label string) map[string]string {
	if label == "" {
		return nil
	}
	return map[string]string{"tone": label}
}

func lastTurns(turns []memory.Turn, n int) []memory.Turn {
	if n > 0 && len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}
