package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"eventmind/internal/agent"
	"eventmind/internal/bus"
	"eventmind/internal/channel"
	"eventmind/internal/clock"
	"eventmind/internal/config"
	"eventmind/internal/domain"
	"eventmind/internal/memory"
	"eventmind/internal/metrics"
	"eventmind/internal/runtime"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "eventmind",
		Short: "EventMind: LINE webhook bridge to a Gemini event assistant",
		Long:  "EventMind receives LINE messages, runs them through a Gemini agent that extracts event information, and replies with text or a calendar confirmation card.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.eventmind/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false, "err", err)
				return nil
			}
			logger.Info("config", "path", cfgPath, "loaded", true)
			if err := config.ValidateSecrets(cfg); err != nil {
				logger.Warn("secrets incomplete", "err", err)
			} else {
				logger.Info("secrets present")
			}
			logger.Info("agent", "app", cfg.Agent.AppName, "model", cfg.Agent.Model)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook bridge (LINE webhook + agent loop)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Required secrets must be present before anything starts.
	if err := config.ValidateSecrets(cfg); err != nil {
		return err
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.General.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	profile, err := agent.LoadProfile(cfg.Agent.ProfilePath, logger)
	if err != nil {
		return fmt.Errorf("agent profile: %w", err)
	}
	if cfg.Agent.Model != "" {
		profile.Model = cfg.Agent.Model
	}

	timezone := profile.Timezone
	if timezone == "" {
		timezone = cfg.General.Timezone
	}
	clk := clock.New(timezone, logger)

	sessionStore := runtime.NewSessionStore(logger)
	runner, err := runtime.NewGeminiRunner(ctx, runtime.GeminiConfig{
		APIKey:        cfg.Agent.APIKey,
		Model:         profile.Model,
		Instruction:   profile.Instruction,
		MaxToolRounds: cfg.Agent.MaxToolRounds,
		Store:         sessionStore,
		Clock:         clk,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("agent runtime: %w", err)
	}
	logger.Info("agent runtime ready", "app", cfg.Agent.AppName, "model", profile.Model)

	var exchangeStore domain.ExchangeStore
	if cfg.Memory.Enabled {
		sqlStore, err := memory.NewSQLiteStore(cfg.Memory.DBPath, logger)
		if err != nil {
			return fmt.Errorf("exchange store: %w", err)
		}
		defer sqlStore.Close()
		exchangeStore = sqlStore
	}

	registry := agent.NewSessionRegistry(sessionStore, cfg.Agent.AppName, logger)
	orchestrator := agent.NewOrchestrator(runner, registry, logger)

	agentLoop := agent.NewLoop(agent.LoopConfig{
		Orchestrator: orchestrator,
		Router:       agent.NewRouter(logger),
		Prompt:       agent.NewPromptBuilder(clk),
		Bus:          messageBus,
		Store:        exchangeStore,
		Logger:       logger,
		Concurrency:  cfg.General.MaxConcurrentMessages,
	})
	go agentLoop.Run(ctx)

	lineCfg := channel.LineConfig{
		ChannelSecret: cfg.Line.ChannelSecret,
		AccessToken:   cfg.Line.ChannelAccessToken,
		Port:          cfg.Line.Port,
		WebhookPath:   cfg.Line.WebhookPath,
		Logger:        logger,
	}
	if cfg.Metrics.Enabled {
		lineCfg.MetricsPath = cfg.Metrics.Endpoint
		lineCfg.MetricsHandler = metrics.Collector.Handler()
	}
	lineCh := channel.NewLine(lineCfg)

	logger.Info("bridge started. Press Ctrl+C to stop.")
	return lineCh.Start(ctx, messageBus)
}
