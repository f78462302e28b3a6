// Package main provides the CLI entrypoint for morsetrain.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/morsetrain/internal/config"
	"github.com/verte-zerg/morsetrain/internal/dataset"
	"github.com/verte-zerg/morsetrain/internal/experiment"
	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/morse"
	"github.com/verte-zerg/morsetrain/internal/stats"
	"github.com/verte-zerg/morsetrain/internal/store"
	"github.com/verte-zerg/morsetrain/internal/wordlist"
)

var (
	genPolicy      string
	genSamples     int
	genCharacters  int
	genWords       int
	genWordList    string
	genMinWPM      float64
	genMaxWPM      float64
	genSigma       float64
	genWordGapProb float64
	genSeed        int64
	genShards      int
	genShuffle     bool
	genCSV         string
	genTolerance   float64

	validateCorpus    string
	validateCSV       string
	validateTolerance float64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "morsetrain",
		Short:         "Synthetic Morse timing corpora and classifier training",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newCorporaCmd())
	rootCmd.AddCommand(newTrainCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAlphabetCmd())

	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	d := experiment.DefaultGenerateConfig()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate, validate and store a labeled timing corpus",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}
	cmd.Flags().StringVar(&genPolicy, "policy", string(d.Policy), "generation policy: independent, sequence, text or combined")
	cmd.Flags().IntVar(&genSamples, "samples", d.Samples, "elements for independent sampling")
	cmd.Flags().IntVar(&genCharacters, "characters", d.Characters, "characters for sequence generation")
	cmd.Flags().IntVar(&genWords, "words", d.Words, "words for text keying")
	cmd.Flags().StringVar(&genWordList, "word-list", config.DefaultWordListPath(), "word list for text keying (built-in vocabulary if missing)")
	cmd.Flags().Float64Var(&genMinWPM, "min-wpm", d.MinWPM, "lowest operator speed")
	cmd.Flags().Float64Var(&genMaxWPM, "max-wpm", d.MaxWPM, "highest operator speed")
	cmd.Flags().Float64Var(&genSigma, "sigma", d.Sigma, "relative timing jitter (0 disables)")
	cmd.Flags().Float64Var(&genWordGapProb, "word-gap-prob", d.WordGapProb, "probability that a character ends a word (0-1)")
	cmd.Flags().Int64Var(&genSeed, "seed", d.Seed, "random seed")
	cmd.Flags().IntVar(&genShards, "shards", d.Shards, "independent shards generated in parallel")
	cmd.Flags().BoolVar(&genShuffle, "shuffle", false, "shuffle a combined corpus (drops run structure)")
	cmd.Flags().StringVar(&genCSV, "csv", "", "also write the corpus to this CSV file")
	cmd.Flags().Float64Var(&genTolerance, "tolerance", stats.DefaultTolerance, "relative tolerance for ratio validation")
	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	g := fileCfg.Generate
	applyStringConfig(cmd, "policy", &genPolicy, g.Policy)
	applyIntConfig(cmd, "samples", &genSamples, g.Samples)
	applyIntConfig(cmd, "characters", &genCharacters, g.Characters)
	applyIntConfig(cmd, "words", &genWords, g.Words)
	applyStringConfig(cmd, "word-list", &genWordList, g.WordList)
	applyFloatConfig(cmd, "min-wpm", &genMinWPM, g.MinWPM)
	applyFloatConfig(cmd, "max-wpm", &genMaxWPM, g.MaxWPM)
	applyFloatConfig(cmd, "sigma", &genSigma, g.Sigma)
	applyFloatConfig(cmd, "word-gap-prob", &genWordGapProb, g.WordGapProb)
	applyInt64Config(cmd, "seed", &genSeed, g.Seed)
	applyIntConfig(cmd, "shards", &genShards, g.Shards)

	cfg := experiment.DefaultGenerateConfig()
	cfg.Policy = model.Policy(strings.ToLower(strings.TrimSpace(genPolicy)))
	cfg.Samples = genSamples
	cfg.Characters = genCharacters
	cfg.Words = genWords
	cfg.WordListPath = genWordList
	cfg.MinWPM = genMinWPM
	cfg.MaxWPM = genMaxWPM
	cfg.Sigma = genSigma
	cfg.WordGapProb = genWordGapProb
	cfg.Seed = genSeed
	cfg.Shards = genShards
	cfg.Shuffle = genShuffle
	cfg.Tolerance = genTolerance

	if err := validateGenerateConfig(cfg); err != nil {
		return err
	}

	var words []string
	if cfg.Policy == model.PolicyText {
		loaded, fallback, err := wordlist.LoadOrDefault(cfg.WordListPath)
		if err != nil {
			return fmt.Errorf("failed to load word list: %w", err)
		}
		if fallback {
			logErrf("word list %s not found; using built-in vocabulary\n", cfg.WordListPath)
		}
		words = loaded
	}

	logErrf("Generating %s corpus (seed %d, %d shard(s))...\n", cfg.Policy, cfg.Seed, max(cfg.Shards, 1))
	corpus, err := experiment.BuildCorpus(context.Background(), cfg, words)
	if err != nil {
		return fmt.Errorf("failed to generate corpus: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := stats.RenderDistribution(out, fmt.Sprintf("Corpus (%s)", cfg.Policy), stats.Describe(corpus)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	validation := stats.Validate(corpus, cfg.Tolerance)
	if err := stats.RenderValidation(out, validation); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !validation.Passed() {
		return fmt.Errorf("corpus failed ratio validation; not saved")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	id, err := st.SaveCorpus(context.Background(), corpus)
	if err != nil {
		return fmt.Errorf("failed to save corpus: %w", err)
	}
	logErrf("Saved corpus %s (%d elements)\n", id, corpus.Len())

	if genCSV != "" {
		if err := writeCSVFile(genCSV, corpus.Elements); err != nil {
			return err
		}
		logErrf("Wrote %s\n", genCSV)
	}
	return nil
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the timing ratios of a stored corpus or CSV file",
		Args:  cobra.NoArgs,
		RunE:  runValidateCmd,
	}
	cmd.Flags().StringVar(&validateCorpus, "corpus", "", "corpus id (default: latest)")
	cmd.Flags().StringVar(&validateCSV, "csv", "", "validate a CSV file instead of a stored corpus")
	cmd.Flags().Float64Var(&validateTolerance, "tolerance", stats.DefaultTolerance, "relative tolerance for ratio validation")
	return cmd
}

func runValidateCmd(cmd *cobra.Command, _ []string) error {
	if validateTolerance <= 0 || validateTolerance >= 1 {
		return fmt.Errorf("--tolerance must be between 0 and 1")
	}
	var corpus model.Corpus
	var title string
	if validateCSV != "" {
		elements, err := readCSVFile(validateCSV)
		if err != nil {
			return err
		}
		corpus = model.Corpus{Elements: elements}
		title = validateCSV
	} else {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		corpus, err = loadCorpus(context.Background(), st, validateCorpus)
		if err != nil {
			return err
		}
		title = fmt.Sprintf("Corpus %s (%s)", corpus.ID, corpus.Policy)
	}

	out := cmd.OutOrStdout()
	if err := stats.RenderDistribution(out, title, stats.Describe(corpus)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	validation := stats.Validate(corpus, validateTolerance)
	if err := stats.RenderValidation(out, validation); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !validation.Passed() {
		return fmt.Errorf("ratio validation failed")
	}
	return nil
}

func newCorporaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "corpora",
		Short: "List stored corpora",
		Args:  cobra.NoArgs,
		RunE:  runCorporaCmd,
	}
}

func runCorporaCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	corpora, err := st.ListCorpora(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list corpora: %w", err)
	}
	if len(corpora) == 0 {
		logErrln("No corpora found. Create one with: morsetrain generate")
		return nil
	}
	for _, c := range corpora {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %-11s  seed=%-6d  %5.1f-%-5.1f wpm  sigma=%.2f  %d elements  %s\n",
			c.ID, c.Policy, c.Seed, c.MinWPM, c.MaxWPM, c.Sigma, c.Elements, c.CreatedAt.Local().Format("2006-01-02 15:04")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newAlphabetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alphabet",
		Short: "Print the supported Morse alphabet",
		Args:  cobra.NoArgs,
		RunE:  runAlphabetCmd,
	}
}

func runAlphabetCmd(cmd *cobra.Command, _ []string) error {
	for _, r := range morse.Symbols() {
		pattern, err := morse.Pattern(r)
		if err != nil {
			return err
		}
		units, err := morse.Units(r)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%c  %-6s  %2d units\n", r, pattern, units); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func loadCorpus(ctx context.Context, st *store.Store, id string) (model.Corpus, error) {
	if id == "" {
		latest, err := st.LatestCorpus(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return model.Corpus{}, fmt.Errorf("no corpus stored yet; run: morsetrain generate")
		}
		if err != nil {
			return model.Corpus{}, fmt.Errorf("failed to find latest corpus: %w", err)
		}
		id = latest
	}
	corpus, err := st.LoadCorpus(ctx, id)
	if err != nil {
		return model.Corpus{}, fmt.Errorf("failed to load corpus: %w", err)
	}
	return corpus, nil
}

func writeCSVFile(path string, elements []model.TimingElement) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close csv: %w", cerr)
		}
	}()
	if err := dataset.WriteCSV(f, elements); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func readCSVFile(path string) ([]model.TimingElement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	elements, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return elements, nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
