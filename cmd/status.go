package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app/status"
)

var statusCmd = &cobra.Command{
	Use:   "status [capture-path]",
	Short: "Capture a disk and show the quality of every sector",
	Long: `Decode a raw flux capture and print one row per track side:
'#' good, '?' read with errors, '.' not found.`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := newContext()
		defer cancel()

		response, err := status.Handle(ctx, &status.Request{Target: captureTarget(args[0])})
		if err != nil {
			return err
		}
		return status.FormatOutput(ctx.Out, response, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	addCaptureFlags(statusCmd)
}
