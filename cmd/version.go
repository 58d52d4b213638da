package cmd

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X .../cmd.version=v1.2.3"
var version = "0.1.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fluxdisk version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := semver.ParseTolerant(version)
		if err != nil {
			return fmt.Errorf("invalid build version %q: %w", version, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fluxdisk %s\n", v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version
}
