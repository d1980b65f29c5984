package puzzle

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/PatrickWalther/wordle-timer-go/internal/retry"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeMembers struct {
	byID    map[string]Member
	byName  map[string]Member
	failing map[string]bool
	calls   map[string]int
}

func newFakeMembers(members ...Member) *fakeMembers {
	f := &fakeMembers{
		byID:    make(map[string]Member),
		byName:  make(map[string]Member),
		failing: make(map[string]bool),
		calls:   make(map[string]int),
	}
	for _, m := range members {
		f.byID[m.ID] = m
		f.byName[m.Name] = m
	}
	return f
}

func (f *fakeMembers) MemberByID(_ context.Context, _, userID string) (Member, error) {
	f.calls[userID]++
	if f.failing[userID] {
		return Member{}, errors.New("gateway timeout")
	}
	m, ok := f.byID[userID]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return m, nil
}

func (f *fakeMembers) MemberByName(_ context.Context, _, name string) (Member, error) {
	f.calls[name]++
	m, ok := f.byName[name]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return m, nil
}

type fakeChecker struct {
	done  map[string]bool
	calls int
}

func (f *fakeChecker) Verify(_ context.Context, p *Player, _ *vision.Image) (bool, error) {
	f.calls++
	if f.done[p.ID] {
		p.Completed = true
		return true, nil
	}
	return false, nil
}

type fakeScreenshots struct {
	err error
}

func (f *fakeScreenshots) Image(context.Context, string) (*vision.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return noise(4, 4, 99), nil
}

type fakeNotifier struct {
	sent    []Completion
	updated []Completion
	editIDs []string
}

func (f *fakeNotifier) SendCompletion(_ context.Context, _ string, c Completion) (string, error) {
	f.sent = append(f.sent, c)
	return "notice-1", nil
}

func (f *fakeNotifier) UpdateCompletion(_ context.Context, _, messageID string, c Completion) error {
	f.updated = append(f.updated, c)
	f.editIDs = append(f.editIDs, messageID)
	return nil
}

type fakeRecorder struct {
	records []Completion
}

func (f *fakeRecorder) RecordCompletion(_ context.Context, c Completion) error {
	f.records = append(f.records, c)
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

type harness struct {
	clock    *fakeClock
	members  *fakeMembers
	checker  *fakeChecker
	shots    *fakeScreenshots
	notifier *fakeNotifier
	recorder *fakeRecorder
	tracker  *Tracker
}

func sydney(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newHarness(t *testing.T, start time.Time, members ...Member) *harness {
	t.Helper()
	h := &harness{
		clock:    &fakeClock{now: start},
		members:  newFakeMembers(members...),
		checker:  &fakeChecker{done: make(map[string]bool)},
		shots:    &fakeScreenshots{},
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
	}
	h.tracker = NewTracker(Deps{
		Clock:       h.clock,
		Location:    sydney(t),
		Checker:     h.checker,
		Members:     h.members,
		Screenshots: h.shots,
		Notifier:    h.notifier,
		Recorder:    h.recorder,
		MemberRetry: retry.Policy{MaxAttempts: 3, Sleep: noSleep},
		VerifyRetry: retry.Policy{MaxAttempts: 5, Sleep: noSleep},
	})
	return h
}

var (
	alice = Member{ID: "100", Name: "alice", AvatarURL: "https://cdn.test/alice.png"}
	bob   = Member{ID: "200", Name: "bob", AvatarURL: "https://cdn.test/bob.png"}
)

func morning(t *testing.T) time.Time {
	return time.Date(2025, 3, 10, 9, 0, 0, 0, sydney(t))
}

func shot() Screenshot {
	return Screenshot{GuildID: "g", ChannelID: "c", MessageID: "m", URL: "https://cdn.test/result.png"}
}

func TestCompletionIsReportedOnce(t *testing.T) {
	h := newHarness(t, morning(t), alice)
	ctx := context.Background()

	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.clock.Advance(95 * time.Second)
	h.checker.done[alice.ID] = true

	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	h.clock.Advance(time.Minute)
	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}

	if len(h.notifier.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(h.notifier.sent))
	}
	if len(h.notifier.updated) != 0 {
		t.Fatalf("updated %d notifications, want 0", len(h.notifier.updated))
	}
	if h.checker.calls != 1 {
		t.Fatalf("checker called %d times, want 1", h.checker.calls)
	}

	c := h.notifier.sent[0]
	if c.Duration != 95*time.Second {
		t.Errorf("duration = %v, want 95s", c.Duration)
	}
	if c.Day != "2025-03-10" || c.Name != "alice" || c.UserID != alice.ID {
		t.Errorf("unexpected completion %+v", c)
	}

	games := h.tracker.Snapshot()
	if len(games) != 1 || !games[0].Completed || games[0].Elapsed != 95*time.Second {
		t.Fatalf("snapshot = %+v", games)
	}
	if len(h.recorder.records) != 1 {
		t.Fatalf("recorded %d completions, want 1", len(h.recorder.records))
	}
}

func TestPausedTimeIsNotCounted(t *testing.T) {
	h := newHarness(t, morning(t), alice)
	ctx := context.Background()

	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.clock.Advance(60 * time.Second)
	h.tracker.PresenceChanged(ctx, alice.ID, false)
	h.clock.Advance(time.Hour)
	h.tracker.PresenceChanged(ctx, alice.ID, false)
	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.clock.Advance(30 * time.Second)
	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.clock.Advance(15 * time.Second)

	h.checker.done[alice.ID] = true
	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}

	if len(h.notifier.sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(h.notifier.sent))
	}
	if got := h.notifier.sent[0].Duration; got != 105*time.Second {
		t.Fatalf("duration = %v, want 1m45s", got)
	}
}

func TestStaleGameIsReplacedOnNewDay(t *testing.T) {
	loc := sydney(t)
	h := newHarness(t, time.Date(2025, 3, 10, 23, 50, 0, 0, loc), alice)
	ctx := context.Background()

	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.clock.Advance(5 * time.Minute)
	h.tracker.PresenceChanged(ctx, alice.ID, false)

	// 00:05 the next morning in Sydney.
	h.clock.Advance(10 * time.Minute)
	h.tracker.PresenceChanged(ctx, alice.ID, true)

	games := h.tracker.Snapshot()
	if len(games) != 1 {
		t.Fatalf("got %d games, want 1", len(games))
	}
	g := games[0]
	if g.Elapsed != 0 || !g.Active || g.Completed {
		t.Fatalf("game not reset: %+v", g)
	}
	if day := g.CreatedAt.In(loc).Format(time.DateOnly); day != "2025-03-11" {
		t.Fatalf("created on %s, want 2025-03-11", day)
	}
}

func TestStaleGameIsSkippedForScreenshots(t *testing.T) {
	h := newHarness(t, time.Date(2025, 3, 10, 23, 50, 0, 0, sydney(t)), alice)
	ctx := context.Background()

	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.clock.Advance(20 * time.Minute)
	h.checker.done[alice.ID] = true

	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if h.checker.calls != 0 || len(h.notifier.sent) != 0 {
		t.Fatalf("stale game was verified: calls=%d sent=%d", h.checker.calls, len(h.notifier.sent))
	}
}

func TestFailuresAreIsolatedPerPlayer(t *testing.T) {
	h := newHarness(t, morning(t), alice, bob)
	ctx := context.Background()
	h.members.failing[alice.ID] = true

	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.tracker.PresenceChanged(ctx, bob.ID, true)
	h.clock.Advance(2 * time.Minute)
	h.checker.done[alice.ID] = true
	h.checker.done[bob.ID] = true

	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}

	if h.members.calls[alice.ID] != 3 {
		t.Errorf("alice looked up %d times, want 3", h.members.calls[alice.ID])
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0].UserID != bob.ID {
		t.Fatalf("sent = %+v, want only bob", h.notifier.sent)
	}
}

func TestScreenshotDownloadFailure(t *testing.T) {
	h := newHarness(t, morning(t), alice)
	h.shots.err = errors.New("404")
	h.tracker.PresenceChanged(context.Background(), alice.ID, true)

	if err := h.tracker.ScreenshotPosted(context.Background(), shot()); err == nil {
		t.Fatal("expected download error")
	}
	if h.checker.calls != 0 {
		t.Fatalf("checker called %d times, want 0", h.checker.calls)
	}
}

func TestAnnouncementFlow(t *testing.T) {
	h := newHarness(t, morning(t), alice, bob)
	ctx := context.Background()

	h.tracker.AnnouncementObserved(ctx, Announcement{ChannelID: "c", MessageID: "a1", Content: "**alice and bob** are playing"})
	h.clock.Advance(40 * time.Second)
	h.tracker.AnnouncementObserved(ctx, Announcement{ChannelID: "c", MessageID: "a1", Content: "alice and bob were playing"})
	h.clock.Advance(time.Hour)

	games := h.tracker.Snapshot()
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
	for _, g := range games {
		if g.Active || g.Elapsed != 40*time.Second || g.MessageID != "a1" {
			t.Errorf("unexpected game %+v", g)
		}
	}

	h.checker.done[bob.ID] = true
	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0].Name != "bob" || h.notifier.sent[0].Duration != 40*time.Second {
		t.Fatalf("sent = %+v", h.notifier.sent)
	}
	if h.members.calls["bob"] == 0 {
		t.Error("expected lookup by name")
	}
}

func TestAnnouncementOverflowIsIgnored(t *testing.T) {
	h := newHarness(t, morning(t))
	h.tracker.AnnouncementObserved(context.Background(), Announcement{MessageID: "a2", Content: "alice, bob and 3 others are playing"})
	if games := h.tracker.Snapshot(); len(games) != 0 {
		t.Fatalf("got %d games, want 0", len(games))
	}
}

func TestExistingNotificationIsEdited(t *testing.T) {
	h := newHarness(t, morning(t), alice)
	ctx := context.Background()

	g := newGameState(h.clock.Now(), "")
	g.notification = &NotificationRef{ChannelID: "c", MessageID: "old-notice"}
	h.tracker.games[Key{UserID: alice.ID}] = g

	h.clock.Advance(30 * time.Second)
	h.checker.done[alice.ID] = true
	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}

	if len(h.notifier.sent) != 0 {
		t.Fatalf("sent %d new notifications, want 0", len(h.notifier.sent))
	}
	if len(h.notifier.editIDs) != 1 || h.notifier.editIDs[0] != "old-notice" {
		t.Fatalf("edits = %v, want [old-notice]", h.notifier.editIDs)
	}
	if h.notifier.updated[0].Duration != 30*time.Second {
		t.Fatalf("duration = %v, want 30s", h.notifier.updated[0].Duration)
	}
}

func TestPruneDropsPreviousDays(t *testing.T) {
	h := newHarness(t, morning(t), alice, bob)
	ctx := context.Background()

	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.clock.Advance(24 * time.Hour)
	h.tracker.PresenceChanged(ctx, bob.ID, true)

	if removed := h.tracker.Prune(); removed != 1 {
		t.Fatalf("pruned %d, want 1", removed)
	}
	games := h.tracker.Snapshot()
	if len(games) != 1 || games[0].UserID != bob.ID {
		t.Fatalf("snapshot = %+v", games)
	}
}

func TestSnapshotOrdersByElapsed(t *testing.T) {
	h := newHarness(t, morning(t), alice, bob)
	ctx := context.Background()

	h.tracker.PresenceChanged(ctx, alice.ID, true)
	h.clock.Advance(time.Minute)
	h.tracker.PresenceChanged(ctx, bob.ID, true)
	h.clock.Advance(time.Minute)

	games := h.tracker.Snapshot()
	if len(games) != 2 || games[0].UserID != alice.ID || games[1].UserID != bob.ID {
		t.Fatalf("snapshot = %+v", games)
	}
	if games[0].Elapsed != 2*time.Minute || games[1].Elapsed != time.Minute {
		t.Fatalf("elapsed = %v, %v", games[0].Elapsed, games[1].Elapsed)
	}
}

type countingChecker struct {
	inner CompletionChecker
	calls int
}

func (c *countingChecker) Verify(ctx context.Context, p *Player, shot *vision.Image) (bool, error) {
	c.calls++
	return c.inner.Verify(ctx, p, shot)
}

func TestUnknownMemberIsLookedUpOnce(t *testing.T) {
	h := newHarness(t, morning(t))
	ctx := context.Background()

	h.tracker.PresenceChanged(ctx, alice.ID, true)
	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}

	if got := h.members.calls[alice.ID]; got != 1 {
		t.Fatalf("looked up %d times, want 1", got)
	}
	if h.checker.calls != 0 {
		t.Fatalf("checker called %d times, want 0", h.checker.calls)
	}
}

func TestMissingAvatarIsVerifiedOnce(t *testing.T) {
	noAvatar := Member{ID: "300", Name: "carol"}
	h := newHarness(t, morning(t), noAvatar)
	ctx := context.Background()

	marker := noise(100, 20, 21)
	result := compose(400, 100, map[image.Point]*vision.Image{image.Pt(100, 10): marker})
	checker := &countingChecker{inner: NewVerifier(marker, &fakeAvatars{}, testVerifierConfig())}
	h.tracker.deps.Checker = checker
	h.tracker.deps.Screenshots = fixedScreenshot{img: result}

	h.tracker.PresenceChanged(ctx, noAvatar.ID, true)
	if err := h.tracker.ScreenshotPosted(ctx, shot()); err != nil {
		t.Fatalf("screenshot: %v", err)
	}

	if checker.calls != 1 {
		t.Fatalf("verified %d times, want 1", checker.calls)
	}
	if len(h.notifier.sent) != 0 {
		t.Fatalf("sent %d notifications, want 0", len(h.notifier.sent))
	}
	games := h.tracker.Snapshot()
	if len(games) != 1 || games[0].Completed {
		t.Fatalf("snapshot = %+v", games)
	}
}

type fixedScreenshot struct {
	img *vision.Image
}

func (f fixedScreenshot) Image(context.Context, string) (*vision.Image, error) {
	return f.img, nil
}
