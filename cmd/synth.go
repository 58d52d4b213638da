package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app/synth"
)

var synthRequest synth.Request

var synthCmd = &cobra.Command{
	Use:   "synth [image-path] [capture-path]",
	Short: "Render a sector image as a raw flux capture",
	Long: `Encode a flat sector image as flux so it can be read back with the
other commands. Useful for testing the decoder without a drive.

Examples:
  # Render a DFS image as FM
  fluxdisk synth games.ssd games.raw

  # Render an ADFS L image as MFM from a drive running 2% fast
  fluxdisk synth archive.adl archive.raw --modulation mfm --speed 0.98`,

	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := newContext()
		defer cancel()

		request := synthRequest
		request.ImagePath = args[0]
		request.RawPath = args[1]

		response, err := synth.Handle(ctx, &request)
		if err != nil {
			return err
		}
		return synth.FormatOutput(ctx.Out, response, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(synthCmd)

	synthCmd.Flags().StringVar(&synthRequest.Modulation, "modulation", "fm", "encoding (fm, mfm, amigamfm, gcr, applegcr)")
	synthCmd.Flags().IntVar(&synthRequest.Tracks, "tracks", 0, "tracks in the image")
	synthCmd.Flags().IntVar(&synthRequest.Heads, "heads", 0, "sides in the image")
	synthCmd.Flags().IntVar(&synthRequest.SectorsPerTrack, "sectors", 0, "sectors per track")
	synthCmd.Flags().IntVar(&synthRequest.SectorSize, "sector-size", 0, "bytes per sector")
	synthCmd.Flags().Float64Var(&synthRequest.Speed, "speed", 1, "cell length scale, 1.0 is a nominal drive")
}
