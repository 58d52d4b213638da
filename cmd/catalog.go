package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app/catalog"
)

var (
	catalogRefetch  bool
	catalogMaxDepth int
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [capture-path]",
	Short: "Capture a disk and list its ADFS or DFS catalogue",
	Long: `Decode a raw flux capture and list the catalogue of the disk.

ADFS discs are walked from the root directory; DFS discs list the files
of each side.

Examples:
  # List the catalogue of a DFS disc
  fluxdisk catalog games.raw

  # Read only track 0 of a 40 track disc
  fluxdisk catalog games.raw --tracks 40 --catalog-only

  # Show two directory levels of an ADFS disc as JSON
  fluxdisk catalog archive.raw --depth 2 -o json`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(args[0])
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	addCaptureFlags(catalogCmd)

	catalogCmd.Flags().BoolVar(&catalogRefetch, "refetch", false, "re-capture tracks holding unreadable directory sectors")
	catalogCmd.Flags().IntVar(&catalogMaxDepth, "depth", 0, "directory levels to show, 0 shows all")
}

func runCatalog(rawPath string) error {
	ctx, cancel := newContext()
	defer cancel()

	request := &catalog.Request{
		Target:   captureTarget(rawPath),
		Refetch:  catalogRefetch,
		MaxDepth: catalogMaxDepth,
	}

	response, err := catalog.Handle(ctx, request)
	if err != nil {
		return err
	}
	return catalog.FormatOutput(ctx.Out, response, ctx.OutputFormat)
}
