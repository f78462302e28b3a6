package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/morsetrain/internal/config"
	"github.com/verte-zerg/morsetrain/internal/experiment"
	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/nn"
	"github.com/verte-zerg/morsetrain/internal/stats"
	"github.com/verte-zerg/morsetrain/internal/statsui"
	"github.com/verte-zerg/morsetrain/internal/store"
	"github.com/verte-zerg/morsetrain/internal/trainer"
	"github.com/verte-zerg/morsetrain/internal/tui"
)

const defaultCurveWindow = 5

var (
	trainModel           string
	trainWindow          int
	trainHidden          int
	trainEpochs          int
	trainPatience        int
	trainPlateauPatience int
	trainDecayFactor     float64
	trainLR              float64
	trainBatchSize       int
	trainWorkers         int
	trainSeed            int64
	trainCorpus          string
	trainOut             string
	trainExport          bool
	trainTUI             bool

	runsModel       string
	runsSince       string
	runsLast        int
	runsCurveWindow int
	runsRun         string
	runsPlain       bool
)

func newTrainCmd() *cobra.Command {
	d := experiment.DefaultTrainConfig()
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier on a stored corpus",
		Args:  cobra.NoArgs,
		RunE:  runTrainCmd,
	}
	cmd.Flags().StringVar(&trainModel, "model", d.Model, "model: dense or windowed")
	cmd.Flags().IntVar(&trainWindow, "window", d.WindowLength, "window length for the windowed model")
	cmd.Flags().IntVar(&trainHidden, "hidden", d.Hidden, "hidden units (0 for a linear classifier)")
	cmd.Flags().IntVar(&trainEpochs, "epochs", d.Epochs, "maximum epochs")
	cmd.Flags().IntVar(&trainPatience, "patience", d.Patience, "epochs without improvement before early stop")
	cmd.Flags().IntVar(&trainPlateauPatience, "plateau-patience", d.PlateauPatience, "flat epochs before the learning rate decays")
	cmd.Flags().Float64Var(&trainDecayFactor, "decay-factor", d.DecayFactor, "learning rate multiplier on plateau (0-1)")
	cmd.Flags().Float64Var(&trainLR, "lr", d.LearningRate, "initial learning rate")
	cmd.Flags().IntVar(&trainBatchSize, "batch-size", d.BatchSize, "mini-batch size")
	cmd.Flags().IntVar(&trainWorkers, "workers", d.Workers, "validation workers (0 uses all CPUs)")
	cmd.Flags().Int64Var(&trainSeed, "seed", d.Seed, "random seed for splits, init and shuffling")
	cmd.Flags().StringVar(&trainCorpus, "corpus", "", "corpus id (default: latest)")
	cmd.Flags().StringVar(&trainOut, "out", "", "export the best model as JSON to this path")
	cmd.Flags().BoolVar(&trainExport, "export", false, "export the best model to the data directory")
	cmd.Flags().BoolVar(&trainTUI, "tui", false, "show the live training view")
	return cmd
}

func runTrainCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	t := fileCfg.Train
	applyStringConfig(cmd, "model", &trainModel, t.Model)
	applyIntConfig(cmd, "window", &trainWindow, t.WindowLength)
	applyIntConfig(cmd, "hidden", &trainHidden, t.Hidden)
	applyIntConfig(cmd, "epochs", &trainEpochs, t.Epochs)
	applyIntConfig(cmd, "patience", &trainPatience, t.Patience)
	applyIntConfig(cmd, "plateau-patience", &trainPlateauPatience, t.PlateauPatience)
	applyFloatConfig(cmd, "decay-factor", &trainDecayFactor, t.DecayFactor)
	applyFloatConfig(cmd, "lr", &trainLR, t.LearningRate)
	applyIntConfig(cmd, "batch-size", &trainBatchSize, t.BatchSize)
	applyIntConfig(cmd, "workers", &trainWorkers, t.Workers)
	applyInt64Config(cmd, "seed", &trainSeed, t.Seed)

	cfg := experiment.DefaultTrainConfig()
	cfg.Model = strings.ToLower(strings.TrimSpace(trainModel))
	cfg.WindowLength = trainWindow
	cfg.Hidden = trainHidden
	cfg.Epochs = trainEpochs
	cfg.Patience = trainPatience
	cfg.PlateauPatience = trainPlateauPatience
	cfg.DecayFactor = trainDecayFactor
	cfg.LearningRate = trainLR
	cfg.BatchSize = trainBatchSize
	cfg.Workers = trainWorkers
	cfg.Seed = trainSeed
	cfg.OutPath = trainOut
	if cfg.OutPath == "" && trainExport {
		name := fmt.Sprintf("%s-%s.json", cfg.Model, time.Now().Format("20060102-150405"))
		cfg.OutPath = filepath.Join(config.DefaultExportDir(), name)
	}

	if err := validateTrainConfig(cfg); err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	corpus, err := loadCorpus(context.Background(), st, trainCorpus)
	if err != nil {
		return err
	}
	if cfg.Model == nn.KindWindowed && !corpus.Policy.Sequential() {
		return fmt.Errorf("corpus %s (%s): %w", corpus.ID, corpus.Policy, experiment.ErrNotSequential)
	}
	cfg.CorpusID = corpus.ID
	logErrf("Training %s model on corpus %s (%d elements)\n", cfg.Model, corpus.ID, corpus.Len())

	var outcome experiment.Outcome
	if trainTUI {
		outcome, err = trainWithTUI(st, corpus, cfg)
	} else {
		outcome, err = trainPlain(st, corpus, cfg)
	}
	canceled := errors.Is(err, context.Canceled)
	if err != nil && !canceled {
		return fmt.Errorf("training failed: %w", err)
	}
	if canceled {
		logErrf("Training canceled; run %s keeps the best snapshot so far\n", outcome.Run.ID)
	}
	return reportOutcome(cmd.OutOrStdout(), outcome)
}

func trainPlain(st *store.Store, corpus model.Corpus, cfg model.TrainConfig) (experiment.Outcome, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return experiment.Train(ctx, st, corpus, cfg, logEpoch(cfg.Epochs))
}

type trainResult struct {
	outcome experiment.Outcome
	err     error
}

func trainWithTUI(st *store.Store, corpus model.Corpus, cfg model.TrainConfig) (experiment.Outcome, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	title := fmt.Sprintf("Training %s on corpus %s", cfg.Model, corpus.ID)
	view := tui.NewModel(title, experiment.ControllerConfig(cfg), cancel)
	program := tea.NewProgram(view, tea.WithAltScreen())

	done := make(chan trainResult, 1)
	go func() {
		outcome, err := experiment.Train(ctx, st, corpus, cfg, tui.Observer(program))
		program.Send(tui.DoneMsg{Outcome: outcome, Err: err})
		done <- trainResult{outcome: outcome, err: err}
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return experiment.Outcome{}, fmt.Errorf("failed to run TUI: %w", err)
	}
	res := <-done
	return res.outcome, res.err
}

func logEpoch(maxEpochs int) trainer.Observer {
	return func(r trainer.EpochReport) {
		marker := ""
		if r.Improved {
			marker = " *"
		}
		if r.LRDecayed {
			marker += " (lr decayed)"
		}
		logErrf("epoch %3d/%d  train %.4f/%.2f%%  val %.4f/%.2f%%  lr %.6f%s\n",
			r.Epoch, maxEpochs, r.TrainLoss, r.TrainAcc*100, r.ValLoss, r.ValAcc*100, r.LearningRate, marker)
	}
}

func reportOutcome(w io.Writer, outcome experiment.Outcome) error {
	res := outcome.Result
	if _, err := fmt.Fprintf(w, "Run %s: %s after %d epochs, best epoch %d (val loss %.4f)\n\n",
		outcome.Run.ID, res.Reason, res.Epochs, res.BestEpoch, res.BestValLoss); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if outcome.Evaluation.Total > 0 {
		if err := stats.RenderEvaluation(w, "Test set", outcome.Evaluation); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if outcome.ExportPath != "" {
		logErrf("Exported model to %s\n", outcome.ExportPath)
	}
	return nil
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse training runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
	cmd.Flags().StringVar(&runsModel, "model", "", "model filter")
	cmd.Flags().StringVar(&runsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&runsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&runsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&runsRun, "run", "", "run id or prefix whose curves are shown")
	cmd.Flags().BoolVar(&runsPlain, "plain", false, "print tables and plots instead of the browser")
	return cmd
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "last", &runsLast, fileCfg.Runs.Last)
	applyIntConfig(cmd, "curve-window", &runsCurveWindow, fileCfg.Runs.CurveWindow)

	var sinceTime *time.Time
	if runsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", runsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if runsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if runsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	cfg := model.RunsConfig{
		Model:       strings.TrimSpace(runsModel),
		Since:       sinceTime,
		Last:        runsLast,
		CurveWindow: runsCurveWindow,
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if !runsPlain {
		browser := statsui.NewModel(st, cfg)
		program := tea.NewProgram(browser, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run runs TUI: %w", err)
		}
		return nil
	}

	ctx := context.Background()
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load runs: %w", err)
	}
	if runsRun != "" {
		idx := findRun(report.Runs, runsRun)
		if idx < 0 {
			return fmt.Errorf("run %q not found", runsRun)
		}
		if err := report.Select(ctx, st, idx); err != nil {
			return fmt.Errorf("failed to load epochs: %w", err)
		}
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderRunSummary(out, report.Runs); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if run, ok := report.SelectedRun(); ok {
		if _, err := fmt.Fprintf(out, "Curves for run %s\n", run.ID); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := stats.RenderCurves(out, report.Epochs, cfg.CurveWindow); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func findRun(runs []model.RunSummary, prefix string) int {
	for i, r := range runs {
		if strings.HasPrefix(r.ID, prefix) {
			return i
		}
	}
	return -1
}
