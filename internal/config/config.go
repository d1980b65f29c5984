package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/PatrickWalther/wordle-timer-go/internal/constants"
	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

var ErrMissingToken = errors.New("discord token is required (set DISCORD_TOKEN)")

type TrackingMode string

const (
	// ModePresence keys games by user and follows rich presence updates.
	ModePresence TrackingMode = "presence"
	// ModeAnnouncement keys games by announcement message and player name.
	ModeAnnouncement TrackingMode = "announcement"
)

type Config struct {
	DataDir   string            `json:"dataDir" env:"DATA_DIR"`
	Discord   DiscordSettings   `json:"discord"`
	Tracking  TrackingSettings  `json:"tracking"`
	Detection DetectionSettings `json:"detection"`
	Cache     CacheSettings     `json:"cache"`
	Web       WebSettings       `json:"web"`
	History   HistorySettings   `json:"history"`
	Logger    LoggerSettings    `json:"logger"`
}

type DiscordSettings struct {
	Token         string `json:"token,omitempty" env:"DISCORD_TOKEN"`
	ChannelName   string `json:"channelName" env:"DAILY_PUZZLES_CHANNEL_NAME"`
	ApplicationID string `json:"applicationId"`
	ActivityName  string `json:"activityName"`
	EmbedFooter   string `json:"embedFooter"`
}

type TrackingSettings struct {
	Mode                 TrackingMode `json:"mode" env:"WORDLE_TRACKING_MODE"`
	TimeZone             string       `json:"timeZone" env:"WORDLE_TIMEZONE"`
	MemberLookupAttempts int          `json:"memberLookupAttempts"`
	VerifyAttempts       int          `json:"verifyAttempts"`
	PruneInterval        int          `json:"pruneInterval"`
}

type DetectionSettings struct {
	MarkerPath string        `json:"markerPath" env:"WORDLE_MARKER_PATH"`
	Marker     vision.Params `json:"marker"`
	Avatar     vision.Params `json:"avatar"`
}

type CacheSettings struct {
	Dir            string `json:"dir"`
	RequestTimeout int    `json:"requestTimeout"`
}

type WebSettings struct {
	Enabled bool   `json:"enabled" env:"WEB_ENABLED"`
	Host    string `json:"host"`
	Port    int    `json:"port" env:"PORT"`
}

type HistorySettings struct {
	Enabled bool `json:"enabled"`
}

type LoggerSettings struct {
	Save         bool   `json:"save"`
	ConsoleLevel string `json:"consoleLevel" env:"LOG_LEVEL"`
	FileLevel    string `json:"fileLevel"`
	AutoClear    bool   `json:"autoClear"`
}

func DefaultConfig() Config {
	return Config{
		DataDir:   "data",
		Discord:   DefaultDiscordSettings(),
		Tracking:  DefaultTrackingSettings(),
		Detection: DefaultDetectionSettings(),
		Cache:     DefaultCacheSettings(),
		Web:       DefaultWebSettings(),
		History:   HistorySettings{Enabled: true},
		Logger:    DefaultLoggerSettings(),
	}
}

func DefaultDiscordSettings() DiscordSettings {
	return DiscordSettings{
		ChannelName:   "daily-puzzles",
		ApplicationID: constants.WordleApplicationID,
		ActivityName:  constants.WordleActivityName,
		EmbedFooter:   constants.EmbedFooter,
	}
}

func DefaultTrackingSettings() TrackingSettings {
	return TrackingSettings{
		Mode:                 ModePresence,
		TimeZone:             "Australia/Sydney",
		MemberLookupAttempts: 3,
		VerifyAttempts:       5,
		PruneInterval:        60,
	}
}

func DefaultDetectionSettings() DetectionSettings {
	detection := puzzle.DefaultVerifierConfig()
	return DetectionSettings{
		MarkerPath: filepath.Join("assets", "complete.png"),
		Marker:     detection.Marker,
		Avatar:     detection.Avatar,
	}
}

func DefaultCacheSettings() CacheSettings {
	return CacheSettings{
		RequestTimeout: 30,
	}
}

func DefaultWebSettings() WebSettings {
	return WebSettings{
		Enabled: false,
		Host:    "0.0.0.0",
		Port:    8080,
	}
}

func DefaultLoggerSettings() LoggerSettings {
	return LoggerSettings{
		Save:         true,
		ConsoleLevel: "INFO",
		FileLevel:    "DEBUG",
		AutoClear:    true,
	}
}

// Load reads the JSON file at path over the defaults, then applies a .env
// file and the process environment. A missing config file is not an error.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	validateConfig(&config)
	return &config, nil
}

func SaveConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return ErrMissingToken
	}
	if _, err := time.LoadLocation(c.Tracking.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Tracking.TimeZone, err)
	}
	return nil
}

// Location returns the reference time zone for calendar days.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Tracking.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.DataDir, "cache")
}

func (c *Config) DatabaseDir() string {
	return filepath.Join(c.DataDir, "database")
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Cache.RequestTimeout) * time.Second
}

func (c *Config) PruneInterval() time.Duration {
	return time.Duration(c.Tracking.PruneInterval) * time.Minute
}

func validateConfig(config *Config) {
	switch TrackingMode(strings.ToLower(string(config.Tracking.Mode))) {
	case ModeAnnouncement:
		config.Tracking.Mode = ModeAnnouncement
	default:
		config.Tracking.Mode = ModePresence
	}

	config.Discord.ChannelName = strings.TrimPrefix(strings.TrimSpace(config.Discord.ChannelName), "#")
	if config.Discord.ChannelName == "" {
		config.Discord.ChannelName = "daily-puzzles"
	}
	if config.Discord.ApplicationID == "" {
		config.Discord.ApplicationID = constants.WordleApplicationID
	}
	if config.Discord.ActivityName == "" {
		config.Discord.ActivityName = constants.WordleActivityName
	}
	if config.DataDir == "" {
		config.DataDir = "data"
	}

	if config.Tracking.MemberLookupAttempts < 1 {
		config.Tracking.MemberLookupAttempts = 1
	} else if config.Tracking.MemberLookupAttempts > 10 {
		config.Tracking.MemberLookupAttempts = 10
	}

	if config.Tracking.VerifyAttempts < 1 {
		config.Tracking.VerifyAttempts = 1
	} else if config.Tracking.VerifyAttempts > 10 {
		config.Tracking.VerifyAttempts = 10
	}

	if config.Tracking.PruneInterval < 5 {
		config.Tracking.PruneInterval = 5
	} else if config.Tracking.PruneInterval > 24*60 {
		config.Tracking.PruneInterval = 24 * 60
	}

	if config.Cache.RequestTimeout < 5 {
		config.Cache.RequestTimeout = 5
	} else if config.Cache.RequestTimeout > 120 {
		config.Cache.RequestTimeout = 120
	}

	if config.Web.Port < 1 || config.Web.Port > 65535 {
		config.Web.Port = 8080
	}

	clampParams(&config.Detection.Marker)
	clampParams(&config.Detection.Avatar)
}

func clampParams(p *vision.Params) {
	if p.MaxMatches < 0 {
		p.MaxMatches = 0
	}
	if p.ScaleSteps < 0 {
		p.ScaleSteps = 0
	} else if p.ScaleSteps > 500 {
		p.ScaleSteps = 500
	}
	if p.Threshold < 0 {
		p.Threshold = 0
	} else if p.Threshold > 1 {
		p.Threshold = 1
	}
}
