package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/morsetrain/internal/config"
	"github.com/verte-zerg/morsetrain/internal/experiment"
	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/nn"
	"github.com/verte-zerg/morsetrain/internal/timing"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	g := experiment.DefaultGenerateConfig()
	t := experiment.DefaultTrainConfig()
	return fmt.Sprintf(`# morsetrain configuration
# Uncomment a value to enable it. CLI flags override config values.

[generate]
# policy = %q        # independent, sequence, text or combined
# samples = %d          # Elements for independent sampling
# characters = %d        # Characters for sequence generation
# words = %d             # Words for text keying
# word-list = %q
# min-wpm = %.1f
# max-wpm = %.1f
# sigma = %.2f           # Relative timing jitter
# word-gap-prob = %.2f   # Probability that a character ends a word
# seed = %d
# shards = %d

[train]
# model = %q            # dense or windowed
# window = %d             # Window length for the windowed model
# hidden = %d             # Hidden units
# epochs = %d
# patience = %d           # Epochs without improvement before early stop
# plateau-patience = %d    # Flat epochs before the learning rate decays
# decay-factor = %.1f
# lr = %g
# batch-size = %d
# workers = 0             # Validation workers (0 uses all CPUs)
# seed = %d

[runs]
# last = 0                # Limit to last N runs
# curve-window = %d        # Moving average window
`,
		g.Policy,
		g.Samples,
		g.Characters,
		g.Words,
		config.DefaultWordListPath(),
		g.MinWPM,
		g.MaxWPM,
		g.Sigma,
		g.WordGapProb,
		g.Seed,
		g.Shards,
		t.Model,
		t.WindowLength,
		t.Hidden,
		t.Epochs,
		t.Patience,
		t.PlateauPatience,
		t.DecayFactor,
		t.LearningRate,
		t.BatchSize,
		t.Seed,
		defaultCurveWindow,
	)
}

func validateGenerateConfig(cfg model.GenerateConfig) error {
	switch cfg.Policy {
	case model.PolicyIndependent:
		if cfg.Samples <= 0 {
			return fmt.Errorf("--samples must be > 0")
		}
	case model.PolicySequence:
		if cfg.Characters <= 0 {
			return fmt.Errorf("--characters must be > 0")
		}
	case model.PolicyText:
		if cfg.Words <= 0 {
			return fmt.Errorf("--words must be > 0")
		}
	case model.PolicyCombined:
		if cfg.Samples <= 0 || cfg.Characters <= 0 {
			return fmt.Errorf("--samples and --characters must be > 0")
		}
	default:
		return fmt.Errorf("--policy must be one of independent, sequence, text, combined")
	}
	if err := timing.ValidateSpeedRange(cfg.MinWPM, cfg.MaxWPM); err != nil {
		return fmt.Errorf("--min-wpm/--max-wpm: %w", err)
	}
	if cfg.Sigma < 0 {
		return fmt.Errorf("--sigma must be >= 0")
	}
	if cfg.WordGapProb < 0 || cfg.WordGapProb > 1 {
		return fmt.Errorf("--word-gap-prob must be between 0 and 1")
	}
	if cfg.Shards < 1 {
		return fmt.Errorf("--shards must be >= 1")
	}
	if cfg.Shuffle && cfg.Policy != model.PolicyCombined {
		return fmt.Errorf("--shuffle only applies to the combined policy")
	}
	if cfg.Tolerance <= 0 || cfg.Tolerance >= 1 {
		return fmt.Errorf("--tolerance must be between 0 and 1")
	}
	return nil
}

func validateTrainConfig(cfg model.TrainConfig) error {
	switch cfg.Model {
	case nn.KindDense, nn.KindWindowed:
	default:
		return fmt.Errorf("--model must be %s or %s", nn.KindDense, nn.KindWindowed)
	}
	if cfg.Model == nn.KindWindowed && cfg.WindowLength <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	if cfg.Hidden < 0 {
		return fmt.Errorf("--hidden must be >= 0")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("--workers must be >= 0")
	}
	if err := experiment.ControllerConfig(cfg).Validate(); err != nil {
		return err
	}
	return nil
}
