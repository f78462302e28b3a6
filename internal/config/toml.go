// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Generate GenerateConfig `toml:"generate"`
	Train    TrainConfig    `toml:"train"`
	Runs     RunsConfig     `toml:"runs"`
}

// GenerateConfig maps corpus generation settings.
type GenerateConfig struct {
	Policy      *string  `toml:"policy"`
	Samples     *int     `toml:"samples"`
	Characters  *int     `toml:"characters"`
	Words       *int     `toml:"words"`
	WordList    *string  `toml:"word-list"`
	MinWPM      *float64 `toml:"min-wpm"`
	MaxWPM      *float64 `toml:"max-wpm"`
	Sigma       *float64 `toml:"sigma"`
	WordGapProb *float64 `toml:"word-gap-prob"`
	Seed        *int64   `toml:"seed"`
	Shards      *int     `toml:"shards"`
}

// TrainConfig maps training settings.
type TrainConfig struct {
	Model           *string  `toml:"model"`
	WindowLength    *int     `toml:"window"`
	Hidden          *int     `toml:"hidden"`
	Epochs          *int     `toml:"epochs"`
	Patience        *int     `toml:"patience"`
	PlateauPatience *int     `toml:"plateau-patience"`
	DecayFactor     *float64 `toml:"decay-factor"`
	LearningRate    *float64 `toml:"lr"`
	BatchSize       *int     `toml:"batch-size"`
	Workers         *int     `toml:"workers"`
	Seed            *int64   `toml:"seed"`
}

// RunsConfig maps run history settings.
type RunsConfig struct {
	Last        *int `toml:"last"`
	CurveWindow *int `toml:"curve-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
