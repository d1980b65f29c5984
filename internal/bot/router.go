package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/PatrickWalther/wordle-timer-go/internal/config"
	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
)

// EventSink receives the gateway events the tracker cares about.
type EventSink interface {
	PresenceChanged(ctx context.Context, userID string, playing bool)
	AnnouncementObserved(ctx context.Context, a puzzle.Announcement)
	ScreenshotPosted(ctx context.Context, s puzzle.Screenshot) error
}

type channelNamer interface {
	Name(channelID string) (string, error)
}

// router filters raw gateway events and forwards the relevant ones.
type router struct {
	ctx      context.Context
	sink     EventSink
	channels channelNamer

	mode          config.TrackingMode
	applicationID string
	activityName  string
	channelName   string
}

func newRouter(ctx context.Context, sink EventSink, channels channelNamer, cfg *config.Config) *router {
	return &router{
		ctx:           ctx,
		sink:          sink,
		channels:      channels,
		mode:          cfg.Tracking.Mode,
		applicationID: cfg.Discord.ApplicationID,
		activityName:  cfg.Discord.ActivityName,
		channelName:   cfg.Discord.ChannelName,
	}
}

func (r *router) onPresenceUpdate(_ *discordgo.Session, p *discordgo.PresenceUpdate) {
	r.handlePresence(p)
}

func (r *router) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	r.handleMessage(m.Message, nil)
}

func (r *router) onMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	r.handleMessage(m.Message, m.BeforeUpdate)
}

func (r *router) handlePresence(p *discordgo.PresenceUpdate) {
	if r.mode != config.ModePresence || p == nil || p.User == nil {
		return
	}
	r.sink.PresenceChanged(r.ctx, p.User.ID, r.isPlaying(p.Activities))
}

func (r *router) isPlaying(activities []*discordgo.Activity) bool {
	for _, a := range activities {
		if a == nil {
			continue
		}
		if a.Name == r.activityName && a.ApplicationID == r.applicationID {
			return true
		}
	}
	return false
}

// handleMessage routes a new or edited message. before is the cached copy of
// an edited message, if any.
func (r *router) handleMessage(m, before *discordgo.Message) {
	if m == nil || !r.fromApp(m, before) {
		return
	}

	name, err := r.channels.Name(m.ChannelID)
	if err != nil {
		slog.Warn("Unable to get channel information", "channel", m.ChannelID, "error", err)
		return
	}
	if !strings.EqualFold(name, r.channelName) {
		slog.Debug("Ignoring message outside puzzle channel", "channel", name)
		return
	}

	if r.mode == config.ModeAnnouncement && m.Content != "" {
		r.sink.AnnouncementObserved(r.ctx, puzzle.Announcement{
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			Content:   m.Content,
		})
	}

	if len(m.Attachments) == 0 {
		return
	}
	att := m.Attachments[len(m.Attachments)-1]
	if !isImage(att) {
		slog.Debug("Ignoring non-image attachment", "filename", att.Filename, "contentType", att.ContentType)
		return
	}

	slog.Debug("Processing screenshot", "message", m.ID, "url", att.URL)
	if err := r.sink.ScreenshotPosted(r.ctx, puzzle.Screenshot{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		URL:       att.URL,
	}); err != nil {
		slog.Error("Failed to process screenshot", "message", m.ID, "error", err)
	}
}

// fromApp reports whether m was posted by the puzzle application. Partial
// edit payloads may omit the author, in which case the cached copy decides.
func (r *router) fromApp(m, before *discordgo.Message) bool {
	if r.applicationID == "" {
		return false
	}
	for _, msg := range []*discordgo.Message{m, before} {
		if msg == nil {
			continue
		}
		if msg.Author != nil && msg.Author.ID == r.applicationID {
			return true
		}
		if msg.Application != nil && msg.Application.ID == r.applicationID {
			return true
		}
	}
	return false
}

func isImage(att *discordgo.MessageAttachment) bool {
	if att == nil || att.URL == "" {
		return false
	}
	if att.ContentType != "" {
		return strings.HasPrefix(att.ContentType, "image/")
	}
	return true
}
