package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PatrickWalther/wordle-timer-go/internal/constants"
	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
	"github.com/PatrickWalther/wordle-timer-go/internal/util"
)

// EmbedSender is the subset of *discordgo.Session used to post and edit
// completion embeds.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts completion announcements as embeds.
type DiscordNotifier struct {
	footer  string
	session EmbedSender

	mu sync.RWMutex
}

func NewDiscordNotifier(session EmbedSender, footer string) *DiscordNotifier {
	if footer == "" {
		footer = constants.EmbedFooter
	}
	return &DiscordNotifier{
		footer:  footer,
		session: session,
	}
}

// SetSession swaps the underlying session, e.g. after a reconnect.
func (d *DiscordNotifier) SetSession(session EmbedSender) {
	d.mu.Lock()
	d.session = session
	d.mu.Unlock()
}

func (d *DiscordNotifier) sender() (EmbedSender, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.session == nil {
		return nil, fmt.Errorf("discord not connected")
	}
	return d.session, nil
}

// SendCompletion posts a new completion embed and returns its message ID.
func (d *DiscordNotifier) SendCompletion(ctx context.Context, channelID string, c puzzle.Completion) (string, error) {
	session, err := d.sender()
	if err != nil {
		return "", err
	}

	msg, err := session.ChannelMessageSendEmbed(channelID, d.embed(c, false), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send Discord message: %w", err)
	}

	slog.Debug("Completion notification sent",
		"channel", channelID,
		"message", msg.ID,
		"player", c.Name,
	)
	return msg.ID, nil
}

// UpdateCompletion rewrites an earlier completion embed in place.
func (d *DiscordNotifier) UpdateCompletion(ctx context.Context, channelID, messageID string, c puzzle.Completion) error {
	session, err := d.sender()
	if err != nil {
		return err
	}

	if _, err := session.ChannelMessageEditEmbed(channelID, messageID, d.embed(c, true), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit Discord message: %w", err)
	}

	slog.Debug("Completion notification updated",
		"channel", channelID,
		"message", messageID,
		"player", c.Name,
	)
	return nil
}

func (d *DiscordNotifier) embed(c puzzle.Completion, updated bool) *discordgo.MessageEmbed {
	description := fmt.Sprintf("%s finished their Wordle in **%s**!", c.Name, util.FormatDuration(c.Duration))
	if updated {
		description += " (Updated)"
	}

	at := c.CompletedAt
	if at.IsZero() {
		at = time.Now()
	}

	return &discordgo.MessageEmbed{
		Title:       constants.EmbedTitle,
		Description: description,
		Color:       constants.EmbedColor,
		Timestamp:   at.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: d.footer,
		},
	}
}
