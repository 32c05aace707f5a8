// Package config loads Playform's runtime configuration: LOD
// thresholds, world seed, update rate, Gaia queue capacity, and the
// persistence path. Embedded YAML defaults are merged with an
// optional override file.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// TelemetryConfig holds the telemetry flush window and the optional
// CSV export directory. Only OutputDir is read by the server, whose
// monitor goroutine flushes the collector once a second whatever
// WindowSeconds says.
type TelemetryConfig struct {
	WindowSeconds float64 `yaml:"window_seconds"`
	OutputDir     string  `yaml:"output_dir"`
}

// Config holds every tunable the terrain distribution subsystem and
// its ambient stack read at startup.
type Config struct {
	ListenURL                    string          `yaml:"listen_url"`
	Seed                         int64           `yaml:"seed"`
	UnitSize                     float32         `yaml:"unit_size"`
	LODThresholds                []int32         `yaml:"lod_thresholds"`
	LGSampleSize                 []int16         `yaml:"lg_sample_size"`
	GaiaQueueCapacity            int             `yaml:"gaia_queue_capacity"`
	UpdateRateHz                 float64         `yaml:"update_rate_hz"`
	DayLengthSeconds             float64         `yaml:"day_length_seconds"`
	MobCount                     int             `yaml:"mob_count"`
	MobLoadDistance              int32           `yaml:"mob_load_distance"`
	PersistPath                  string          `yaml:"persist_path"`
	Telemetry                    TelemetryConfig `yaml:"telemetry"`
	WireCompressionThresholdByte int             `yaml:"wire_compression_threshold_bytes"`
}

// Load reads the embedded defaults, then merges path's contents over
// them if path is non-empty. An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}
	return cfg, nil
}

// WriteYAML saves cfg to path, for reproducing a run's settings
// alongside its telemetry output.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
