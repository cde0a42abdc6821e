package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stellarlinkco/luma/internal/config"
	"github.com/stellarlinkco/luma/internal/cron"
	"github.com/stellarlinkco/luma/internal/engine"
	"github.com/stellarlinkco/luma/internal/llm"
	"github.com/stellarlinkco/luma/internal/memory"
	"github.com/stellarlinkco/luma/internal/persona"
	"github.com/stellarlinkco/luma/internal/server"
)

// EngineFactory builds the conversation engine and, when the in-memory
// backend is selected, the sweeper for maintenance. Injectable for tests.
type EngineFactory func(cfg *config.Config) (*engine.Engine, cron.Sweeper, error)

func defaultEngineFactory(cfg *config.Config) (*engine.Engine, cron.Sweeper, error) {
	if cfg.Provider.APIKey == "" {
		return nil, nil, fmt.Errorf("API key not set. Run 'luma onboard' or set LUMA_API_KEY / OPENAI_API_KEY")
	}

	var backend memory.Backend
	var sweeper cron.Sweeper
	switch cfg.Storage.Backend {
	case "memory":
		mem := memory.NewInMemoryBackend()
		backend = mem
		sweeper = mem
	default:
		rb, err := memory.NewRedisBackend(cfg.Storage)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		backend = rb
	}

	pm, err := loadPersona(cfg.PersonaPath)
	if err != nil {
		return nil, nil, err
	}

	store := memory.NewStore(backend, cfg.Engine)
	generator := llm.NewOpenAIClient(cfg.Provider)
	return engine.New(cfg, pm, store, generator), sweeper, nil
}

func loadPersona(path string) (*persona.Manager, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			pm, err := persona.Load(path)
			if err != nil {
				return nil, fmt.Errorf("load persona: %w", err)
			}
			return pm, nil
		}
	}
	return persona.NewManager(persona.DefaultConfig()), nil
}

// ChatOptions carries injectable dependencies for the chat command.
type ChatOptions struct {
	EngineFactory EngineFactory
	Stdin         io.Reader
	Stdout        io.Writer
	Stderr        io.Writer
}

var rootCmd = &cobra.Command{
	Use:   "luma",
	Short: "luma - persistent-memory companion chatbot",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the companion in single message or REPL mode",
	RunE:  runChat,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and maintenance scheduler",
	RunE:  runServe,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and persona files",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show luma status",
	RunE:  runStatus,
}

var (
	messageFlag string
	userFlag    string
)

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	chatCmd.Flags().StringVarP(&userFlag, "user", "u", "cli", "User ID for the conversation")
	rootCmd.AddCommand(chatCmd, serveCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	return runChatWithOptions(ChatOptions{})
}

// runChatWithOptions runs the chat loop with injectable dependencies for testing.
func runChatWithOptions(opts ChatOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	factory := opts.EngineFactory
	if factory == nil {
		factory = defaultEngineFactory
	}
	eng, _, err := factory(cfg)
	if err != nil {
		return err
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	ctx := context.Background()
	sessionID := engine.NewSessionID()

	// Single message mode
	if messageFlag != "" {
		resp, err := eng.Chat(ctx, userFlag, sessionID, messageFlag)
		if err != nil {
			return fmt.Errorf("chat error: %w", err)
		}
		fmt.Fprintln(stdout, resp.Text)
		return nil
	}

	// REPL mode
	if opener, err := eng.StartConversation(ctx, userFlag, sessionID); err == nil {
		fmt.Fprintln(stdout, opener.Text)
	}
	fmt.Fprintln(stdout, "(type 'exit' to quit)")

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		resp, err := eng.Chat(ctx, userFlag, sessionID, input)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(stdout, resp.Text)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, sweeper, err := defaultEngineFactory(cfg)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, eng)

	var maint *cron.Service
	if cfg.Maintenance.Enabled {
		maint = cron.NewService(cfg.Maintenance, eng, sweeper)
		if err := maint.Start(); err != nil {
			return fmt.Errorf("start maintenance: %w", err)
		}
		defer maint.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.PersonaPath); os.IsNotExist(err) {
		data, err := yaml.Marshal(persona.DefaultConfig())
		if err != nil {
			return fmt.Errorf("marshal persona: %w", err)
		}
		if err := os.WriteFile(cfg.PersonaPath, data, 0644); err != nil {
			return fmt.Errorf("write persona: %w", err)
		}
		fmt.Printf("Created persona: %s\n", cfg.PersonaPath)
	} else {
		fmt.Printf("Persona already exists: %s\n", cfg.PersonaPath)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key\n", cfgPath)
	fmt.Println("  2. Or set LUMA_API_KEY environment variable")
	fmt.Println("  3. Run 'luma chat -m \"Hello\"' to test")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Provider.Model)
	fmt.Printf("Storage: %s\n", storageDisplay(cfg.Storage))
	fmt.Printf("Persona: %s\n", personaDisplay(cfg.PersonaPath))
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("API Key: %s\n", masked)
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}
	fmt.Printf("Safety filter: enabled=%v\n", cfg.Engine.Safety)
	fmt.Printf("Tone adaptation: enabled=%v\n", cfg.Engine.ToneAdaptation)
	fmt.Printf("Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)

	if cfg.Storage.Backend != "memory" {
		if backend, err := memory.NewRedisBackend(cfg.Storage); err != nil {
			fmt.Printf("Redis: unreachable (%v)\n", err)
		} else if err := backend.Ping(context.Background()); err != nil {
			fmt.Printf("Redis: unreachable (%v)\n", err)
		} else {
			fmt.Println("Redis: ok")
		}
	}

	return nil
}

func storageDisplay(cfg config.StorageConfig) string {
	if cfg.Backend == "memory" {
		return "in-memory (non-persistent)"
	}
	return fmt.Sprintf("redis (%s)", cfg.Addr)
}

func personaDisplay(path string) string {
	if _, err := os.Stat(path); err != nil {
		return "built-in defaults"
	}
	return path
}
