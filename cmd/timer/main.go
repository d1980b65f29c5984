package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/PatrickWalther/wordle-timer-go/internal/bot"
	"github.com/PatrickWalther/wordle-timer-go/internal/config"
	"github.com/PatrickWalther/wordle-timer-go/internal/logger"
	"github.com/PatrickWalther/wordle-timer-go/internal/version"
)

var (
	configFile = flag.String("config", "config.json", "Path to configuration file")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	genConfig  = flag.Bool("generate-config", false, "Generate a sample configuration file")
)

func main() {
	flag.Parse()

	if *genConfig {
		setupBasicLogger(*debug)
		generateSampleConfig()
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		setupBasicLogger(*debug)
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		setupBasicLogger(*debug)
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logSettings := cfg.Logger
	if *debug {
		logSettings.ConsoleLevel = "DEBUG"
		logSettings.FileLevel = "DEBUG"
	}

	log, err := logger.Setup(filepath.Join(cfg.DataDir, "logs"), "wordle-timer", logSettings)
	if err != nil {
		setupBasicLogger(*debug)
		slog.Error("Failed to setup logger", "error", err)
		os.Exit(1)
	}
	defer log.Close()

	slog.Info("Wordle Timer", "version", version.Version, "mode", cfg.Tracking.Mode, "timeZone", cfg.Tracking.TimeZone)

	b := bot.New(cfg)
	if err := b.Run(); err != nil {
		slog.Error("Bot error", "error", err)
		log.Close()
		os.Exit(1)
	}
}

func setupBasicLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func generateSampleConfig() {
	cfg := config.DefaultConfig()
	cfg.Web.Enabled = true

	if err := config.SaveConfig("config.sample.json", &cfg); err != nil {
		slog.Error("Failed to save sample configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Sample configuration generated", "path", "config.sample.json")
	fmt.Println("\nSample configuration saved to config.sample.json")
	fmt.Println("Rename it to config.json and set DISCORD_TOKEN in the environment or a .env file")
}
