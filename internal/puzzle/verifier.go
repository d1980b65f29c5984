package puzzle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PatrickWalther/wordle-timer-go/internal/retry"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

// VerifierConfig holds the detection policy for markers and avatars.
type VerifierConfig struct {
	Marker vision.Params
	Avatar vision.Params
}

// DefaultVerifierConfig matches near-exact "solved" markers across a wide
// scale range and avatars with a looser bar.
func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		Marker: vision.Params{
			MaxMatches: 30,
			ScaleMin:   0.1,
			ScaleMax:   1.0,
			ScaleSteps: 100,
			Threshold:  0.99,
		},
		Avatar: vision.Params{
			MaxMatches: 1,
			ScaleMin:   0.1,
			ScaleMax:   0.6,
			ScaleSteps: 50,
			Threshold:  0.84,
		},
	}
}

// Verifier decides whether a player's avatar sits under a "solved" marker in
// a result screenshot.
type Verifier struct {
	marker  *vision.Image
	avatars AvatarSource
	cfg     VerifierConfig
}

func NewVerifier(marker *vision.Image, avatars AvatarSource, cfg VerifierConfig) *Verifier {
	return &Verifier{
		marker:  marker,
		avatars: avatars,
		cfg:     cfg,
	}
}

// Verify reports whether p has completed the puzzle shown in screenshot and
// marks p completed when it has. Only horizontal placement is compared:
// markers and avatars share a column in the result layout. Detection errors
// come from malformed images and are marked permanent.
func (v *Verifier) Verify(ctx context.Context, p *Player, screenshot *vision.Image) (bool, error) {
	markers, err := vision.Detect(v.marker, screenshot, v.cfg.Marker)
	if err != nil {
		return false, retry.Permanent(fmt.Errorf("failed to detect markers: %w", err))
	}
	if len(markers) == 0 {
		slog.Debug("No completion markers found")
		return false, nil
	}
	slog.Debug("Found completion markers", "count", len(markers))

	avatar, err := p.Avatar(ctx, v.avatars)
	if err != nil {
		return false, err
	}

	found, err := vision.Detect(avatar, screenshot, v.cfg.Avatar)
	if err != nil {
		return false, retry.Permanent(fmt.Errorf("failed to detect avatar: %w", err))
	}
	if len(found) != 1 {
		slog.Debug("Avatar not found unambiguously", "player", p.Name, "matches", len(found))
		return false, nil
	}

	center := found[0].Box.CenterX()
	for _, m := range markers {
		if m.Box.ContainsX(center) {
			slog.Debug("Avatar under completion marker",
				"player", p.Name,
				"center", center,
				"confidence", found[0].Confidence,
			)
			p.Completed = true
			return true, nil
		}
	}

	slog.Debug("Avatar not under any marker", "player", p.Name, "center", center)
	return false, nil
}
