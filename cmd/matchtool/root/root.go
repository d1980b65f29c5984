package root

import (
	"fmt"
	"image/color"
	"image/png"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/PatrickWalther/wordle-timer-go/internal/version"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

var (
	markerColor = color.RGBA{R: 0x57, G: 0xF2, B: 0x87, A: 0xff}
	avatarColor = color.RGBA{R: 0xED, G: 0x42, B: 0x45, A: 0xff}
)

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:           "matchtool",
		Short:         "Run completion detection against local images",
		Long:          "matchtool runs the template matcher and completion check offline, for tuning detection settings against saved screenshots.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newDetectCmd(),
		newVerifyCmd(),
	)
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}

func writeAnnotated(path string, target *vision.Image, groups ...annotation) error {
	out := target
	for _, g := range groups {
		out = vision.FromImage(vision.Annotate(out, g.matches, g.color, 2))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, out.RGBA()); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

type annotation struct {
	matches []vision.Match
	color   color.Color
}
