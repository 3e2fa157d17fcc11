package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nightowlworks/grindbot/internal/compose"
	"github.com/nightowlworks/grindbot/internal/config"
	"github.com/nightowlworks/grindbot/internal/cron"
	"github.com/nightowlworks/grindbot/internal/deliver"
	"github.com/nightowlworks/grindbot/internal/memory"
	"github.com/nightowlworks/grindbot/internal/pipeline"
	"github.com/nightowlworks/grindbot/internal/telegram"
	"github.com/nightowlworks/grindbot/internal/trigger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grindbot",
	Short: "grindbot - accountability buddy for a study group chat",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trigger server (and the built-in nag schedule if enabled)",
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reactive pass and exit",
	RunE:  runOnce,
}

var nagCmd = &cobra.Command{
	Use:   "nag",
	Short: "Run one proactive goal check-in and exit",
	RunE:  runNag,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and workspace",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show grindbot status",
	RunE:  runStatus,
}

var forceFlag bool

func init() {
	runCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Generate a reply even without new messages")
	rootCmd.AddCommand(serveCmd, runCmd, nagCmd, onboardCmd, statusCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired collaborators for one process lifetime.
type app struct {
	cfg    *config.Config
	agent  *pipeline.Agent
	engine *memory.Engine
	rt     compose.Runtime
}

func (a *app) close() {
	if a.rt != nil {
		a.rt.Close()
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			log.Printf("[main] close store: %v", err)
		}
	}
}

func buildApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("API key not set. Run 'grindbot onboard' or set GRINDBOT_API_KEY / ANTHROPIC_API_KEY")
	}

	client, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		return nil, fmt.Errorf("telegram config: %w", err)
	}
	if err := client.Init(); err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "grindbot.db")
	}
	engine, err := memory.NewEngine(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rt, err := compose.DefaultRuntimeFactory(cfg, compose.PersonaPrompt)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	agent := pipeline.New(cfg, client, engine, engine,
		compose.New(rt), deliver.New(client, deliver.NewPacer()))

	return &app{cfg: cfg, agent: agent, engine: engine, rt: rt}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cronSvc *cron.Service
	if a.cfg.Nag.Enabled {
		cronSvc = cron.NewService(a.cfg.Nag.Schedule)
		cronSvc.OnNag = func() {
			if _, err := a.agent.Proactive(ctx); err != nil {
				log.Printf("[main] scheduled nag failed: %v", err)
			}
		}
		if err := cronSvc.Start(ctx); err != nil {
			return err
		}
		defer cronSvc.Stop()
	}

	srv := trigger.NewServer(a.cfg, a.agent)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[main] received %v, shutting down", sig)
	}

	cancel()
	return srv.Shutdown(context.Background())
}

func runOnce(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	sum, err := a.agent.Reactive(context.Background(), forceFlag)
	printSummary(sum)
	return err
}

func runNag(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	sum, err := a.agent.Proactive(context.Background())
	printSummary(sum)
	return err
}

func printSummary(sum pipeline.Summary) {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		log.Printf("[main] marshal summary: %v", err)
		return
	}
	fmt.Println(string(data))
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, _ := config.LoadConfig()
	if err := os.MkdirAll(cfg.Agent.Workspace, 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	fmt.Printf("Workspace ready: %s\n", cfg.Agent.Workspace)
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set API key, telegram token and chat id\n", cfgPath)
	fmt.Println("  2. Or set GRINDBOT_API_KEY / GRINDBOT_TELEGRAM_TOKEN / GRINDBOT_CHAT_ID")
	fmt.Println("  3. Run 'grindbot run --force' to test a reply")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Agent.Model)
	fmt.Printf("Provider: %s\n", providerDisplay(cfg.Provider.Type))
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("API Key: %s\n", masked)
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}
	fmt.Printf("Telegram: token=%v chat=%d\n", cfg.Telegram.Token != "", cfg.Telegram.ChatID)
	fmt.Printf("Trigger: %s:%d key=%v\n", cfg.Trigger.Host, cfg.Trigger.Port, cfg.Trigger.APIKey != "")
	fmt.Printf("Nag schedule: enabled=%v expr=%q\n", cfg.Nag.Enabled, cfg.Nag.Schedule)
	fmt.Printf("Tracked users: %d, goals: %d\n", len(cfg.Goals.Users), len(cfg.Goals.Targets))

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "grindbot.db")
	}
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Printf("Store: %s (not created yet)\n", dbPath)
	} else {
		fmt.Printf("Store: %s\n", dbPath)
	}

	return nil
}

func providerDisplay(t string) string {
	if t == "" {
		return "anthropic (default)"
	}
	return t
}
