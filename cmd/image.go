package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app/image"
)

var (
	imageOutput         string
	imageConfigGeometry bool
	imageStrict         bool
)

var imageCmd = &cobra.Command{
	Use:   "image [capture-path]",
	Short: "Capture a disk and write a flat sector image",
	Long: `Decode a raw flux capture and write every sector into a flat image.

The geometry comes from the detected filesystem unless --raw-geometry is
given. The image extension selects the side layout: .ssd is one side,
.dsd, .adl and .adf interleave the sides track by track.

Examples:
  # Write a double sided DFS image
  fluxdisk image games.raw --out games.dsd

  # Fail when any sector could not be read
  fluxdisk image archive.raw --out archive.adl --strict`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImage(args[0])
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
	addCaptureFlags(imageCmd)

	imageCmd.Flags().StringVar(&imageOutput, "out", "", "image file to write")
	imageCmd.Flags().BoolVar(&imageConfigGeometry, "raw-geometry", false, "use the configured geometry instead of detecting the format")
	imageCmd.Flags().BoolVar(&imageStrict, "strict", false, "fail when sectors are bad or missing")
	imageCmd.MarkFlagRequired("out")
}

func runImage(rawPath string) error {
	ctx, cancel := newContext()
	defer cancel()

	request := &image.Request{
		Target:         captureTarget(rawPath),
		OutputPath:     imageOutput,
		ConfigGeometry: imageConfigGeometry,
		Strict:         imageStrict,
	}

	response, err := image.Handle(ctx, request)
	if response != nil {
		if ferr := image.FormatOutput(ctx.Out, response, ctx.OutputFormat); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}
