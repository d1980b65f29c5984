package puzzle

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/PatrickWalther/wordle-timer-go/internal/retry"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

var ErrMemberNotFound = errors.New("member not found")

// Member is the guild metadata needed to build a Player.
type Member struct {
	ID        string
	Name      string
	AvatarURL string
}

type MemberResolver interface {
	MemberByID(ctx context.Context, guildID, userID string) (Member, error)
	MemberByName(ctx context.Context, guildID, name string) (Member, error)
}

type CompletionChecker interface {
	Verify(ctx context.Context, p *Player, screenshot *vision.Image) (bool, error)
}

type ScreenshotSource interface {
	Image(ctx context.Context, url string) (*vision.Image, error)
}

// Completion describes a finished puzzle.
type Completion struct {
	Day         string
	UserID      string
	Name        string
	ChannelID   string
	Duration    time.Duration
	CompletedAt time.Time
}

type Notifier interface {
	SendCompletion(ctx context.Context, channelID string, c Completion) (string, error)
	UpdateCompletion(ctx context.Context, channelID, messageID string, c Completion) error
}

type Recorder interface {
	RecordCompletion(ctx context.Context, c Completion) error
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Screenshot is a candidate result image posted in a channel.
type Screenshot struct {
	GuildID   string
	ChannelID string
	MessageID string
	URL       string
}

// Announcement is the text of a new or edited activity message.
type Announcement struct {
	ChannelID string
	MessageID string
	Content   string
}

// GameSummary is a read-only view of a tracked game.
type GameSummary struct {
	Key       string        `json:"key"`
	UserID    string        `json:"userId,omitempty"`
	MessageID string        `json:"messageId,omitempty"`
	Name      string        `json:"name,omitempty"`
	Active    bool          `json:"active"`
	Completed bool          `json:"completed"`
	Elapsed   time.Duration `json:"elapsed"`
	CreatedAt time.Time     `json:"createdAt"`
}

type Deps struct {
	Clock       Clock
	Location    *time.Location
	Checker     CompletionChecker
	Members     MemberResolver
	Screenshots ScreenshotSource
	Notifier    Notifier
	Recorder    Recorder
	MemberRetry retry.Policy
	VerifyRetry retry.Policy
}

// Tracker owns the lifecycle records of every tracked game. A single mutex
// guards the map; each event holds it for its whole read-modify-write,
// including the verification loop of a screenshot.
type Tracker struct {
	deps  Deps
	games map[Key]*GameState
	mu    sync.Mutex
}

func NewTracker(deps Deps) *Tracker {
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.MemberRetry.Name == "" {
		deps.MemberRetry.Name = "member lookup"
	}
	if deps.VerifyRetry.Name == "" {
		deps.VerifyRetry.Name = "completion check"
	}
	return &Tracker{
		deps:  deps,
		games: make(map[Key]*GameState),
	}
}

// PresenceChanged starts, resumes or pauses the game of userID.
func (t *Tracker) PresenceChanged(ctx context.Context, userID string, playing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key{UserID: userID}
	now := t.deps.Clock.Now()
	if playing {
		t.start(key, "", now)
	} else {
		t.stop(key, now)
	}
}

// AnnouncementObserved applies an "is playing" / "was playing" message to
// every player it names.
func (t *Tracker) AnnouncementObserved(ctx context.Context, a Announcement) {
	names, trigger := ParseAnnouncement(a.Content)
	if len(names) == 0 {
		slog.Debug("Announcement names no players", "message", a.MessageID, "trigger", trigger)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.deps.Clock.Now()
	for _, name := range names {
		key := Key{MessageID: a.MessageID, Name: name}
		switch trigger {
		case TriggerPlaying:
			t.start(key, name, now)
		case TriggerFinished:
			t.stop(key, now)
		}
	}
}

func (t *Tracker) start(key Key, name string, now time.Time) {
	g, ok := t.games[key]
	switch {
	case !ok:
		t.games[key] = newGameState(now, name)
		slog.Info("Started tracking new game", "player", key)
	case !g.isCurrent(now, t.deps.Location):
		slog.Info("Reset game state for new day", "player", key, "previousTime", g.total)
		t.games[key] = newGameState(now, name)
	case g.completed:
		slog.Debug("Ignoring activity for completed game", "player", key)
	case !g.active:
		g.resume(now)
		slog.Debug("Resumed game", "player", key, "time", g.total)
	default:
		slog.Debug("Continuing existing game", "player", key, "time", g.total)
	}
}

func (t *Tracker) stop(key Key, now time.Time) {
	g, ok := t.games[key]
	switch {
	case !ok:
		slog.Debug("No active game found", "player", key)
	case !g.isCurrent(now, t.deps.Location):
		slog.Debug("Ignoring stop for stale game", "player", key)
	case g.completed:
		slog.Debug("Ignoring stop for completed game", "player", key)
	case !g.active:
		slog.Debug("Game already paused", "player", key)
	default:
		g.pause(now)
		slog.Info("Player stopped playing", "player", key, "totalActiveTime", g.total)
	}
}

// ScreenshotPosted checks every current, unfinished game against the image at
// s.URL. Failures for one player are logged and do not affect the others.
func (t *Tracker) ScreenshotPosted(ctx context.Context, s Screenshot) error {
	shot, err := t.deps.Screenshots.Image(ctx, s.URL)
	if err != nil {
		slog.Error("Failed to download screenshot", "url", s.URL, "error", err)
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.deps.Clock.Now()
	for _, key := range t.sortedKeys() {
		g := t.games[key]
		if g.completed || !g.isCurrent(now, t.deps.Location) {
			slog.Debug("Skipping game",
				"player", key,
				"completed", g.completed,
				"current", g.isCurrent(now, t.deps.Location),
			)
			continue
		}

		member, err := retry.Do(ctx, t.deps.MemberRetry, func(ctx context.Context) (Member, error) {
			m, err := t.lookup(ctx, s.GuildID, key)
			if errors.Is(err, ErrMemberNotFound) {
				return m, retry.Permanent(err)
			}
			return m, err
		})
		if err != nil {
			slog.Warn("Could not find member info", "player", key, "error", err)
			continue
		}

		player := NewPlayer(member.ID, member.Name, member.AvatarURL)
		done, err := retry.Do(ctx, t.deps.VerifyRetry, func(ctx context.Context) (bool, error) {
			return t.deps.Checker.Verify(ctx, player, shot)
		})
		if err != nil {
			slog.Error("Failed to verify completion", "player", key, "error", err)
			continue
		}
		if !done {
			slog.Debug("Player has not completed yet", "player", key)
			continue
		}

		t.complete(ctx, key, g, player, s.ChannelID)
	}
	return nil
}

func (t *Tracker) lookup(ctx context.Context, guildID string, key Key) (Member, error) {
	if key.UserID != "" {
		return t.deps.Members.MemberByID(ctx, guildID, key.UserID)
	}
	return t.deps.Members.MemberByName(ctx, guildID, key.Name)
}

func (t *Tracker) complete(ctx context.Context, key Key, g *GameState, p *Player, channelID string) {
	now := t.deps.Clock.Now()
	g.pause(now)
	g.completed = true
	g.channelID = channelID
	if g.name == "" {
		g.name = p.Name
	}

	slog.Info("Detected completion", "player", key, "name", p.Name, "time", g.total)

	c := Completion{
		Day:         dayOf(now, t.deps.Location),
		UserID:      p.ID,
		Name:        p.Name,
		ChannelID:   channelID,
		Duration:    g.total,
		CompletedAt: now.Round(0),
	}

	if t.deps.Notifier != nil {
		if g.notification == nil {
			id, err := t.deps.Notifier.SendCompletion(ctx, channelID, c)
			if err != nil {
				slog.Error("Failed to send completion message", "player", key, "error", err)
			} else {
				g.notification = &NotificationRef{ChannelID: channelID, MessageID: id}
			}
		} else if err := t.deps.Notifier.UpdateCompletion(ctx, g.notification.ChannelID, g.notification.MessageID, c); err != nil {
			slog.Error("Failed to update completion message", "player", key, "error", err)
		}
	}

	if t.deps.Recorder != nil {
		if err := t.deps.Recorder.RecordCompletion(ctx, c); err != nil {
			slog.Error("Failed to record completion", "player", key, "error", err)
		}
	}
}

// Snapshot lists today's games, longest first.
func (t *Tracker) Snapshot() []GameSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.deps.Clock.Now()
	var out []GameSummary
	for key, g := range t.games {
		if !g.isCurrent(now, t.deps.Location) {
			continue
		}
		out = append(out, GameSummary{
			Key:       key.String(),
			UserID:    key.UserID,
			MessageID: key.MessageID,
			Name:      g.name,
			Active:    g.active && !g.completed,
			Completed: g.completed,
			Elapsed:   g.elapsed(now),
			CreatedAt: g.createdAt,
		})
	}
	slices.SortFunc(out, func(a, b GameSummary) int {
		if c := cmp.Compare(b.Elapsed, a.Elapsed); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// Prune drops records from previous days and returns how many were removed.
func (t *Tracker) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.deps.Clock.Now()
	removed := 0
	for key, g := range t.games {
		if !g.isCurrent(now, t.deps.Location) {
			delete(t.games, key)
			removed++
		}
	}
	return removed
}

func (t *Tracker) sortedKeys() []Key {
	keys := make([]Key, 0, len(t.games))
	for k := range t.games {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Compare(a.String(), b.String())
	})
	return keys
}
