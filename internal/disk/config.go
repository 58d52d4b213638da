package disk

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-fluxdisk/internal/types"
)

// LoadCaptureConfig loads the capture configuration using Viper. An empty
// configFile searches the usual locations for fluxdisk-config.yaml.
func LoadCaptureConfig(configFile string) (*types.CaptureConfig, error) {
	return LoadCaptureConfigFs(afero.NewOsFs(), configFile)
}

// LoadCaptureConfigFs loads the capture configuration from the given filesystem
func LoadCaptureConfigFs(fs afero.Fs, configFile string) (*types.CaptureConfig, error) {
	v := viper.New()
	v.SetFs(fs)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("fluxdisk-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../..") // For tests running from subdirectories
		v.AddConfigPath("$HOME/.fluxdisk")
		v.AddConfigPath("/etc/fluxdisk")
	}

	// Set defaults
	defaults := types.DefaultCaptureConfig()
	v.SetDefault("sample_rate", defaults.SampleRate)
	v.SetDefault("retries", defaults.Retries)
	v.SetDefault("tracks", defaults.Tracks)
	v.SetDefault("heads", defaults.Heads)
	v.SetDefault("sectors_per_track", defaults.SectorsPerTrack)
	v.SetDefault("first_sector", defaults.FirstSector)
	v.SetDefault("histogram_size", defaults.HistogramSize)
	v.SetDefault("default_density", defaults.DefaultDensity)
	v.SetDefault("use_pll", defaults.UsePLL)
	v.SetDefault("modulations", defaults.Modulations)
	v.SetDefault("rotations", defaults.Rotations)
	v.SetDefault("track_bytes", defaults.TrackBytes)
	v.SetDefault("raw_layout", defaults.RawLayout)
	v.SetDefault("catalog_only", defaults.CatalogOnly)
	v.SetDefault("parallel_decode", defaults.ParallelDecode)

	// Allow environment variables
	v.SetEnvPrefix("FLUXDISK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config types.CaptureConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}

	return &config, nil
}
