package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/morsetrain/internal/config"
	"github.com/verte-zerg/morsetrain/internal/experiment"
	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/stats"
)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		line = strings.TrimPrefix(line, "# ")
		if strings.HasPrefix(line, "morsetrain configuration") || strings.HasPrefix(line, "Uncomment") {
			continue
		}
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = line[:idx]
		}
		lines = append(lines, line)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template does not decode: %v\n%s", err, strings.Join(lines, "\n"))
	}
	if cfg.Train.Epochs == nil || *cfg.Train.Epochs != experiment.DefaultTrainConfig().Epochs {
		t.Fatalf("unexpected epochs: %+v", cfg.Train.Epochs)
	}
	if cfg.Generate.Seed == nil || *cfg.Generate.Seed != 42 {
		t.Fatalf("unexpected seed: %+v", cfg.Generate.Seed)
	}
	var raw map[string]any
	if _, err := toml.Decode(strings.Join(lines, "\n"), &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	for _, table := range []string{"generate", "train", "runs"} {
		if _, ok := raw[table]; !ok {
			t.Fatalf("template missing [%s]", table)
		}
	}
}

func TestValidateGenerateConfig(t *testing.T) {
	cfg := experiment.DefaultGenerateConfig()
	cfg.Tolerance = stats.DefaultTolerance
	if err := validateGenerateConfig(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cases := map[string]func(*model.GenerateConfig){
		"policy":   func(c *model.GenerateConfig) { c.Policy = "random" },
		"speed":    func(c *model.GenerateConfig) { c.MinWPM, c.MaxWPM = 40, 10 },
		"sigma":    func(c *model.GenerateConfig) { c.Sigma = -0.1 },
		"wordgap":  func(c *model.GenerateConfig) { c.WordGapProb = 1.5 },
		"shards":   func(c *model.GenerateConfig) { c.Shards = 0 },
		"shuffle":  func(c *model.GenerateConfig) { c.Shuffle = true },
		"chars":    func(c *model.GenerateConfig) { c.Characters = 0 },
		"tolerate": func(c *model.GenerateConfig) { c.Tolerance = 0 },
	}
	for name, mutate := range cases {
		c := cfg
		mutate(&c)
		if err := validateGenerateConfig(c); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateTrainConfig(t *testing.T) {
	cfg := experiment.DefaultTrainConfig()
	if err := validateTrainConfig(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := cfg
	bad.Model = "lstm"
	if err := validateTrainConfig(bad); err == nil {
		t.Fatalf("expected unknown model error")
	}
	bad = cfg
	bad.DecayFactor = 1
	if err := validateTrainConfig(bad); err == nil {
		t.Fatalf("expected decay factor error")
	}
	bad = cfg
	bad.Model = "windowed"
	bad.WindowLength = 0
	if err := validateTrainConfig(bad); err == nil {
		t.Fatalf("expected window error")
	}
}

func TestAlphabetCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := newAlphabetCmd()
	cmd.SetOut(&buf)
	if err := runAlphabetCmd(cmd, nil); err != nil {
		t.Fatalf("alphabet: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 36 {
		t.Fatalf("expected 36 symbols, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "A  .-") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
}

func TestFindRun(t *testing.T) {
	runs := []model.RunSummary{{ID: "abc123"}, {ID: "def456"}}
	if idx := findRun(runs, "def"); idx != 1 {
		t.Fatalf("expected 1, got %d", idx)
	}
	if idx := findRun(runs, "zzz"); idx != -1 {
		t.Fatalf("expected -1, got %d", idx)
	}
}
