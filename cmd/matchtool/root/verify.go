package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PatrickWalther/wordle-timer-go/internal/config"
	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

func newVerifyCmd() *cobra.Command {
	var (
		configPath string
		markerPath string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "verify <avatar> <screenshot>",
		Short: "Check whether an avatar sits under a completion marker",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			detection := config.DefaultDetectionSettings()
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				detection = cfg.Detection
			}
			if markerPath != "" {
				detection.MarkerPath = markerPath
			}

			marker, err := vision.Load(detection.MarkerPath)
			if err != nil {
				return fmt.Errorf("failed to load marker: %w", err)
			}
			avatar, err := vision.Load(args[0])
			if err != nil {
				return err
			}
			screenshot, err := vision.Load(args[1])
			if err != nil {
				return err
			}

			// The avatar is preloaded, so the verifier never needs a source.
			verifier := puzzle.NewVerifier(marker, nil, puzzle.VerifierConfig{
				Marker: detection.Marker,
				Avatar: detection.Avatar,
			})
			player := puzzle.NewPlayer("local", args[0], args[0])
			player.SetAvatar(avatar)

			done, err := verifier.Verify(cmd.Context(), player, screenshot)
			if err != nil {
				return err
			}
			if done {
				fmt.Fprintln(cmd.OutOrStdout(), "completed")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "not completed")
			}

			if out == "" {
				return nil
			}
			markers, err := vision.Detect(marker, screenshot, detection.Marker)
			if err != nil {
				return err
			}
			avatars, err := vision.Detect(avatar, screenshot, detection.Avatar)
			if err != nil {
				return err
			}
			return writeAnnotated(out, screenshot,
				annotation{matches: markers, color: markerColor},
				annotation{matches: avatars, color: avatarColor},
			)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "Read detection settings from this config file")
	f.StringVarP(&markerPath, "marker", "m", "", "Completion marker template (overrides config)")
	f.StringVarP(&out, "out", "o", "", "Write an annotated PNG to this path")

	return cmd
}
