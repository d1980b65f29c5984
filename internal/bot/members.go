package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
)

const memberSearchLimit = 10

type memberAPI interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// memberResolver looks guild members up over the REST API.
type memberResolver struct {
	api memberAPI
}

var _ puzzle.MemberResolver = (*memberResolver)(nil)

func (r *memberResolver) MemberByID(ctx context.Context, guildID, userID string) (puzzle.Member, error) {
	m, err := r.api.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		var rest *discordgo.RESTError
		if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
			return puzzle.Member{}, fmt.Errorf("%w: %s", puzzle.ErrMemberNotFound, userID)
		}
		return puzzle.Member{}, fmt.Errorf("failed to get member %s: %w", userID, err)
	}
	return toMember(guildID, m), nil
}

// MemberByName resolves a display name from an announcement. Display names
// win over global names, which win over usernames.
func (r *memberResolver) MemberByName(ctx context.Context, guildID, name string) (puzzle.Member, error) {
	candidates, err := r.api.GuildMembersSearch(guildID, name, memberSearchLimit, discordgo.WithContext(ctx))
	if err != nil {
		return puzzle.Member{}, fmt.Errorf("failed to search members for %q: %w", name, err)
	}

	for _, pick := range []func(*discordgo.Member) string{
		func(m *discordgo.Member) string { return m.DisplayName() },
		func(m *discordgo.Member) string { return m.User.GlobalName },
		func(m *discordgo.Member) string { return m.User.Username },
	} {
		for _, m := range candidates {
			if m == nil || m.User == nil {
				continue
			}
			if strings.EqualFold(pick(m), name) {
				return toMember(guildID, m), nil
			}
		}
	}

	return puzzle.Member{}, fmt.Errorf("%w: %q", puzzle.ErrMemberNotFound, name)
}

func toMember(guildID string, m *discordgo.Member) puzzle.Member {
	if m.GuildID == "" {
		m.GuildID = guildID
	}
	return puzzle.Member{
		ID:        m.User.ID,
		Name:      m.DisplayName(),
		AvatarURL: m.AvatarURL(""),
	}
}
