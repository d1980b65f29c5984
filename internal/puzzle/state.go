package puzzle

import "time"

// Key identifies a tracked game. Presence tracking keys by UserID only;
// announcement tracking keys by MessageID and Name.
type Key struct {
	UserID    string
	MessageID string
	Name      string
}

func (k Key) String() string {
	if k.UserID != "" {
		return k.UserID
	}
	return k.MessageID + "/" + k.Name
}

// NotificationRef points at a completion message that can be edited.
type NotificationRef struct {
	ChannelID string
	MessageID string
}

// GameState is the lifecycle record of one player's puzzle for one day.
//
// Only active attempts are timed. A stop folds the running attempt into total
// and clears active; a completion detected while paused adds nothing. Time
// between a stop and the next start is never counted, even when the result
// screenshot arrives long after the player stopped.
//
// startedAt keeps its monotonic clock reading and is only used for elapsed
// time; createdAt has it stripped and is only used for calendar days.
type GameState struct {
	name         string
	startedAt    time.Time
	active       bool
	total        time.Duration
	notification *NotificationRef
	createdAt    time.Time
	completed    bool
	channelID    string
}

func newGameState(now time.Time, name string) *GameState {
	return &GameState{
		name:      name,
		startedAt: now,
		active:    true,
		createdAt: now.Round(0),
	}
}

// isCurrent reports whether the record was created on today's date in loc.
func (g *GameState) isCurrent(now time.Time, loc *time.Location) bool {
	return dayOf(g.createdAt, loc) == dayOf(now.Round(0), loc)
}

// pause ends the running attempt and adds it to the total.
func (g *GameState) pause(now time.Time) {
	if !g.active {
		return
	}
	if elapsed := now.Sub(g.startedAt); elapsed > 0 {
		g.total += elapsed
	}
	g.startedAt = now
	g.active = false
}

func (g *GameState) resume(now time.Time) {
	if g.active {
		return
	}
	g.startedAt = now
	g.active = true
}

// elapsed is the total including the running attempt, if any.
func (g *GameState) elapsed(now time.Time) time.Duration {
	if !g.active || g.completed {
		return g.total
	}
	if running := now.Sub(g.startedAt); running > 0 {
		return g.total + running
	}
	return g.total
}

func dayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
