package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app/analyze"
)

var (
	analyzeTrack int
	analyzeHead  int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [capture-path]",
	Short: "Show the flux histogram and decoder counters of tracks",
	Long: `Sample tracks once each and report the flux interval peaks, the
density they classify as and what every modulation decoder found.
Nothing is kept.

Examples:
  # Analyse track 0 side 0
  fluxdisk analyze games.raw --track 0 --head 0

  # Analyse the whole disk
  fluxdisk analyze games.raw`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := newContext()
		defer cancel()

		request := &analyze.Request{
			Target: captureTarget(args[0]),
			Track:  analyzeTrack,
			Head:   analyzeHead,
		}
		response, err := analyze.Handle(ctx, request)
		if err != nil {
			return err
		}
		return analyze.FormatOutput(ctx.Out, response, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addCaptureFlags(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeTrack, "track", analyze.AllTracks, "track to analyse, -1 for all")
	analyzeCmd.Flags().IntVar(&analyzeHead, "head", analyze.AllTracks, "head to analyse, -1 for both")
}
