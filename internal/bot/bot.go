package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PatrickWalther/wordle-timer-go/internal/config"
	"github.com/PatrickWalther/wordle-timer-go/internal/database"
	"github.com/PatrickWalther/wordle-timer-go/internal/history"
	"github.com/PatrickWalther/wordle-timer-go/internal/imagecache"
	"github.com/PatrickWalther/wordle-timer-go/internal/notifications"
	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
	"github.com/PatrickWalther/wordle-timer-go/internal/retry"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
	"github.com/PatrickWalther/wordle-timer-go/internal/web"
)

const (
	intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildPresences |
		discordgo.IntentsGuildMembers

	channelNameTTL = 10 * time.Minute
)

type Bot struct {
	config *config.Config

	session   *discordgo.Session
	tracker   *puzzle.Tracker
	fetcher   *imagecache.Fetcher
	marker    *vision.Image
	db        *database.DB
	repo      *history.Repository
	hub       *history.Hub
	webServer *web.Server
	status    *web.StatusBroadcaster

	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	stopChan chan struct{}

	mu sync.RWMutex
}

func New(cfg *config.Config) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		config:   cfg,
		hub:      history.NewHub(),
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

func (b *Bot) Run() error {
	if err := b.initialize(); err != nil {
		b.stop()
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := b.setupComponents(); err != nil {
		b.stop()
		return err
	}

	if err := b.connect(); err != nil {
		b.stop()
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}

	b.startPruning()

	b.waitForShutdown()

	return nil
}

func (b *Bot) initialize() error {
	slog.Info("Initializing Wordle timer")

	marker, err := vision.Load(b.config.Detection.MarkerPath)
	if err != nil {
		return fmt.Errorf("failed to load completion marker: %w", err)
	}
	b.marker = marker

	fetcher, err := imagecache.NewFetcher(b.config.CacheDir(), &http.Client{Timeout: b.config.RequestTimeout()})
	if err != nil {
		return err
	}
	b.fetcher = fetcher

	if b.config.History.Enabled {
		db, err := database.Open(b.config.DatabaseDir())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		b.db = db

		repo, err := history.NewRepository(db)
		if err != nil {
			return err
		}
		b.repo = repo
	}

	return nil
}

func (b *Bot) setupComponents() error {
	session, err := discordgo.New("Bot " + b.config.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = intents
	session.SyncEvents = false
	session.StateEnabled = true
	b.session = session

	verifier := puzzle.NewVerifier(b.marker, b.fetcher, puzzle.VerifierConfig{
		Marker: b.config.Detection.Marker,
		Avatar: b.config.Detection.Avatar,
	})

	recorder := history.NewRecorder(b.repo, b.hub)
	var store web.CompletionStore
	if b.repo != nil {
		store = b.repo
	}

	b.tracker = puzzle.NewTracker(puzzle.Deps{
		Location:    b.config.Location(),
		Checker:     verifier,
		Members:     &memberResolver{api: session},
		Screenshots: b.fetcher,
		Notifier:    notifications.NewDiscordNotifier(session, b.config.Discord.EmbedFooter),
		Recorder:    recorder,
		MemberRetry: retry.Policy{
			Name:        "member lookup",
			MaxAttempts: b.config.Tracking.MemberLookupAttempts,
		},
		VerifyRetry: retry.Policy{
			Name:        "completion check",
			MaxAttempts: b.config.Tracking.VerifyAttempts,
		},
	})

	if b.config.Web.Enabled {
		b.webServer = web.NewServer(b.config.Web, b.config.Location(), b.tracker, store, b.hub)
		b.status = b.webServer.GetStatusBroadcaster()
		b.webServer.Start()
	}

	channels := newChannelNames(session, channelNameTTL)
	r := newRouter(b.ctx, b.tracker, channels, b.config)

	session.AddHandler(r.onPresenceUpdate)
	session.AddHandler(r.onMessageCreate)
	session.AddHandler(r.onMessageUpdate)
	session.AddHandler(func(_ *discordgo.Session, c *discordgo.ChannelUpdate) {
		channels.Forget(c.ID)
	})
	session.AddHandler(b.onReady)
	session.AddHandler(b.onDisconnect)
	return nil
}

func (b *Bot) connect() error {
	slog.Info("Connecting to Discord",
		"mode", b.config.Tracking.Mode,
		"channel", b.config.Discord.ChannelName,
	)
	if err := b.session.Open(); err != nil {
		if b.status != nil {
			b.status.SetStatus(web.StatusError, err.Error())
		}
		return err
	}

	b.mu.Lock()
	b.running = true
	b.mu.Unlock()
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	slog.Info("Connected to Discord", "user", r.User.Username, "guilds", len(r.Guilds))
	if b.status != nil {
		b.status.SetConnected(len(r.Guilds))
	}
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	slog.Warn("Disconnected from Discord")
	if b.status != nil {
		b.status.SetStatus(web.StatusDisconnected, "Reconnecting...")
	}
}

// startPruning drops records of previous days so the tracker does not grow
// without bound.
func (b *Bot) startPruning() {
	interval := b.config.PruneInterval()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				if removed := b.tracker.Prune(); removed > 0 {
					slog.Info("Pruned stale games", "removed", removed)
				}
			}
		}
	}()
}

func (b *Bot) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Shutting down...")

	b.stop()
}

func (b *Bot) stop() {
	b.mu.Lock()
	wasRunning := b.running
	b.running = false
	b.mu.Unlock()

	b.cancel()

	if wasRunning {
		close(b.stopChan)
		if err := b.session.Close(); err != nil {
			slog.Warn("Failed to close Discord session", "error", err)
		}
	}

	if b.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		b.webServer.Stop(ctx)
		cancel()
	}

	if b.db != nil {
		_ = b.db.Close()
	}

	slog.Info("Wordle timer stopped")
}
