package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stellarlinkco/luma/internal/config"
	"github.com/stellarlinkco/luma/internal/cron"
	"github.com/stellarlinkco/luma/internal/engine"
	"github.com/stellarlinkco/luma/internal/llm"
	"github.com/stellarlinkco/luma/internal/memory"
	"github.com/stellarlinkco/luma/internal/persona"
)

type cannedGenerator struct {
	text string
}

func (g *cannedGenerator) Generate(ctx context.Context, systemPrompt string, history []memory.Turn) (*llm.Reply, error) {
	return &llm.Reply{Text: g.text, Usage: llm.Usage{TotalTokens: 5}}, nil
}

func testFactory(text string) EngineFactory {
	return func(cfg *config.Config) (*engine.Engine, cron.Sweeper, error) {
		backend := memory.NewInMemoryBackend()
		store := memory.NewStore(backend, cfg.Engine)
		pm := persona.NewManager(persona.DefaultConfig())
		return engine.New(cfg, pm, store, &cannedGenerator{text: text}), backend, nil
	}
}

func TestChatSingleMessage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	messageFlag = "hello there"
	defer func() { messageFlag = "" }()

	var stdout, stderr bytes.Buffer
	err := runChatWithOptions(ChatOptions{
		EngineFactory: testFactory("Hey! Good to hear from you."),
		Stdin:         strings.NewReader(""),
		Stdout:        &stdout,
		Stderr:        &stderr,
	})
	if err != nil {
		t.Fatalf("runChatWithOptions error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Hey! Good to hear from you.") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestChatREPL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	messageFlag = ""

	var stdout, stderr bytes.Buffer
	err := runChatWithOptions(ChatOptions{
		EngineFactory: testFactory("nice, tell me more"),
		Stdin:         strings.NewReader("I went hiking today\nexit\n"),
		Stdout:        &stdout,
		Stderr:        &stderr,
	})
	if err != nil {
		t.Fatalf("runChatWithOptions error: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "nice, tell me more") {
		t.Fatalf("stdout = %q", out)
	}
	// The REPL opens with a greeting before the prompt.
	if !strings.Contains(out, "(type 'exit' to quit)") {
		t.Fatalf("missing REPL banner in %q", out)
	}
}

func TestChatFactoryError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	messageFlag = "hi"
	defer func() { messageFlag = "" }()

	err := runChatWithOptions(ChatOptions{
		EngineFactory: func(cfg *config.Config) (*engine.Engine, cron.Sweeper, error) {
			return nil, nil, context.DeadlineExceeded
		},
		Stdin:  strings.NewReader(""),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	if err == nil {
		t.Fatal("expected factory error to propagate")
	}
}

func TestDefaultFactoryRequiresAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LUMA_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := config.DefaultConfig()
	cfg.Provider.APIKey = ""
	if _, _, err := defaultEngineFactory(cfg); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestDefaultFactoryMemoryBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Provider.APIKey = "test-key"
	cfg.Storage.Backend = "memory"
	cfg.PersonaPath = ""

	eng, sweeper, err := defaultEngineFactory(cfg)
	if err != nil {
		t.Fatalf("factory error: %v", err)
	}
	if eng == nil {
		t.Fatal("expected engine")
	}
	if sweeper == nil {
		t.Fatal("memory backend should come with a sweeper")
	}
}

func TestLoadPersonaMissingFileFallsBack(t *testing.T) {
	pm, err := loadPersona("/nonexistent/persona.yaml")
	if err != nil {
		t.Fatalf("loadPersona error: %v", err)
	}
	if pm == nil {
		t.Fatal("expected default persona manager")
	}
}
