package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PatrickWalther/wordle-timer-go/internal/config"
	"github.com/PatrickWalther/wordle-timer-go/internal/vision"
)

func newDetectCmd() *cobra.Command {
	var (
		out    string
		params = config.DefaultDetectionSettings().Marker
	)

	cmd := &cobra.Command{
		Use:   "detect <template> <target>",
		Short: "List matches of a template in a target image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, err := vision.Load(args[0])
			if err != nil {
				return err
			}
			target, err := vision.Load(args[1])
			if err != nil {
				return err
			}

			matches, err := vision.Detect(template, target, params)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d match(es)\n", len(matches))
			for i, m := range matches {
				fmt.Fprintf(w, "%2d  (%d,%d)-(%d,%d)  %.4f\n",
					i+1, m.Box.Min.X, m.Box.Min.Y, m.Box.Max.X, m.Box.Max.Y, m.Confidence)
			}

			if out != "" {
				return writeAnnotated(out, target, annotation{matches: matches, color: markerColor})
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&params.MaxMatches, "max", params.MaxMatches, "Maximum number of matches")
	f.Float64Var(&params.ScaleMin, "scale-min", params.ScaleMin, "Smallest template scale")
	f.Float64Var(&params.ScaleMax, "scale-max", params.ScaleMax, "Largest template scale")
	f.IntVar(&params.ScaleSteps, "steps", params.ScaleSteps, "Number of scale intervals")
	f.Float64Var(&params.Threshold, "threshold", params.Threshold, "Minimum confidence")
	f.StringVarP(&out, "out", "o", "", "Write an annotated PNG to this path")

	return cmd
}
