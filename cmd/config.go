package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective capture configuration",
	Long: `Print the capture configuration after defaults, the configuration
file and FLUXDISK_* environment variables have been applied.`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := newContext()
		defer cancel()

		config, err := ctx.LoadConfig()
		if err != nil {
			return err
		}

		switch ctx.OutputFormat {
		case "json":
			encoder := json.NewEncoder(ctx.Out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(config)
		case "yaml", "table":
			encoder := yaml.NewEncoder(ctx.Out)
			defer encoder.Close()
			encoder.SetIndent(2)
			return encoder.Encode(config)
		default:
			return fmt.Errorf("unsupported output format: %s", ctx.OutputFormat)
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
