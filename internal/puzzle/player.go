package puzzle

import (
	"context"
	"errors"
	"fmt"

	"github.com/PatrickWalther/wordle-timer-go/internal/retry"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

// AvatarSource loads avatar images by URL.
type AvatarSource interface {
	CachedImage(ctx context.Context, url string) (*vision.Image, error)
}

// Player is a transient view of a guild member built for one verification.
type Player struct {
	ID        string
	Name      string
	AvatarURL string
	Completed bool

	avatar *vision.Image
}

func NewPlayer(id, name, avatarURL string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		AvatarURL: avatarURL,
	}
}

// Avatar returns the player's avatar, fetching it on first use. Once
// resolved, the same image is returned without another fetch. Failed fetches
// are not remembered. A missing URL or an undecodable image is marked
// permanent, since fetching again cannot fix it.
func (p *Player) Avatar(ctx context.Context, src AvatarSource) (*vision.Image, error) {
	if p.avatar != nil {
		return p.avatar, nil
	}
	if p.AvatarURL == "" {
		return nil, retry.Permanent(fmt.Errorf("player %s has no avatar url", p.Name))
	}
	img, err := src.CachedImage(ctx, p.AvatarURL)
	if errors.Is(err, vision.ErrDecode) {
		return nil, retry.Permanent(fmt.Errorf("failed to load avatar for %s: %w", p.Name, err))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch avatar for %s: %w", p.Name, err)
	}
	p.avatar = img
	return img, nil
}

// SetAvatar supplies an already loaded avatar.
func (p *Player) SetAvatar(img *vision.Image) {
	p.avatar = img
}
