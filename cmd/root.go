package cmd

import (
	"fmt"
	"os"
	"os/signal"

	log "github.com/dsoprea/go-logging"
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-fluxdisk/pkg/app"
)

var (
	// Global output flags
	verbose      bool
	quiet        bool
	outputFormat string
	configFile   string

	// Capture overrides shared by every command reading a capture file
	captureTracks      int
	captureHeads       int
	captureCatalogOnly bool
)

var rootCmd = &cobra.Command{
	Use:   "fluxdisk",
	Short: "Floppy disk flux decoder and Acorn catalogue reader",
	Long: `fluxdisk decodes raw flux captures of floppy disks into sectors and
reads Acorn ADFS and DFS catalogues from them.

Each track is sampled several times and decoded as FM, MFM, Amiga MFM,
Commodore GCR and Apple GCR. The best copy of every sector is kept.

Commands:
  catalog     Capture a disk and list its catalogue
  image       Capture a disk and write a flat sector image
  status      Capture a disk and show the quality of every sector
  analyze     Show the flux histogram and decoder counters of tracks
  synth       Render a sector image as a raw flux capture
  config      Show the effective capture configuration`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "capture configuration file (default fluxdisk-config.yaml)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// configureLogging routes package loggers to the console at a level chosen
// by the output flags
func configureLogging() {
	log.ClearAdapters()
	log.AddAdapter("console", log.NewConsoleLogAdapter())

	scp := log.NewStaticConfigurationProvider()
	scp.SetDefaultAdapterName("console")
	switch {
	case verbose:
		scp.SetLevelName(log.LevelNameDebug)
	case quiet:
		scp.SetLevelName(log.LevelNameError)
	default:
		scp.SetLevelName(log.LevelNameWarning)
	}
	log.LoadConfiguration(scp)
}

// addCaptureFlags registers the capture overrides on a command
func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&captureTracks, "tracks", 0, "tracks to capture (default from configuration)")
	cmd.Flags().IntVar(&captureHeads, "heads", 0, "heads to capture, 1 or 2 (default from configuration)")
	cmd.Flags().BoolVar(&captureCatalogOnly, "catalog-only", false, "capture track 0 only")
}

func captureTarget(rawPath string) app.CaptureTarget {
	return app.CaptureTarget{
		RawPath:     rawPath,
		Tracks:      captureTracks,
		Heads:       captureHeads,
		CatalogOnly: captureCatalogOnly,
	}
}

// newContext creates the application context from the global flags. The
// returned cancel stops the run on interrupt.
func newContext() (*app.Context, func()) {
	ctx := app.NewContext()
	ctx.OutputFormat = outputFormat
	ctx.Verbose = verbose
	ctx.Quiet = quiet
	ctx.ConfigFile = configFile

	if verbose && !quiet {
		ctx.SetProgress(app.NewProgressPrinter(os.Stderr))
	}

	timed, cancelTimeout := ctx.WithTimeout(ctx.DefaultTimeout)
	notified, stop := signal.NotifyContext(timed.Context, os.Interrupt)
	timed.Context = notified
	return timed, func() {
		stop()
		cancelTimeout()
	}
}
