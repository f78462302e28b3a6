package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/morsetrain/internal/dataset"
	"github.com/verte-zerg/morsetrain/internal/model"
	"github.com/verte-zerg/morsetrain/internal/nn"
	"github.com/verte-zerg/morsetrain/internal/stats"
	"github.com/verte-zerg/morsetrain/internal/store"
	"github.com/verte-zerg/morsetrain/internal/trainer"
)

// DefaultTrainConfig returns the reference training settings.
func DefaultTrainConfig() model.TrainConfig {
	tc := trainer.DefaultConfig()
	return model.TrainConfig{
		Model:           nn.KindDense,
		WindowLength:    dataset.DefaultWindowLength,
		Hidden:          nn.DefaultHidden,
		Epochs:          tc.MaxEpochs,
		Patience:        tc.Patience,
		PlateauPatience: tc.PlateauPatience,
		DecayFactor:     tc.DecayFactor,
		LearningRate:    tc.LearningRate,
		BatchSize:       tc.BatchSize,
		TestFraction:    dataset.DefaultTestFraction,
		ValFraction:     dataset.DefaultValFraction,
		Seed:            42,
	}
}

// ControllerConfig maps run settings onto the training controller.
func ControllerConfig(cfg model.TrainConfig) trainer.Config {
	return trainer.Config{
		MaxEpochs:       cfg.Epochs,
		Patience:        cfg.Patience,
		LearningRate:    cfg.LearningRate,
		PlateauPatience: cfg.PlateauPatience,
		DecayFactor:     cfg.DecayFactor,
		BatchSize:       cfg.BatchSize,
		Workers:         cfg.Workers,
	}
}

// Outcome is everything a finished run produced.
type Outcome struct {
	Run        model.RunSummary
	Result     trainer.Result
	Evaluation stats.Evaluation
	Prepared   Prepared
	ExportPath string
}

// Train prepares corpus, trains the configured model and records the run in st.
// Every epoch is stored as it finishes and then forwarded to observe, which may
// be nil. When cfg.OutPath is set the best model is exported there as JSON.
//
// A canceled context still finishes the run with the best snapshot so far.
func Train(ctx context.Context, st *store.Store, corpus model.Corpus, cfg model.TrainConfig, observe trainer.Observer) (Outcome, error) {
	ctrl := ControllerConfig(cfg)
	if err := ctrl.Validate(); err != nil {
		return Outcome{}, err
	}
	prepared, err := Prepare(corpus, cfg)
	if err != nil {
		return Outcome{}, err
	}
	net, err := nn.New(cfg.Model, cfg.WindowLength, cfg.Hidden, cfg.Seed)
	if err != nil {
		return Outcome{}, err
	}

	windowLength := cfg.WindowLength
	if cfg.Model == nn.KindDense {
		windowLength = 1
	}
	run := model.RunSummary{
		CorpusID:     corpus.ID,
		Model:        cfg.Model,
		WindowLength: windowLength,
		StartedAt:    time.Now(),
		ScalerMean:   prepared.Scaler.Mean,
		ScalerStd:    prepared.Scaler.Std,
	}
	run.ID, err = st.CreateRun(ctx, run)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create run: %w", err)
	}

	var recordErr error
	observer := func(r trainer.EpochReport) {
		if recordErr == nil {
			recordErr = st.RecordEpoch(context.WithoutCancel(ctx), epochRecord(run.ID, r))
		}
		if observe != nil {
			observe(r)
		}
	}
	tr, err := trainer.New(ctrl, cfg.Seed, observer)
	if err != nil {
		return Outcome{}, err
	}
	res, runErr := tr.Run(ctx, net, prepared.Train, prepared.Val)
	if recordErr != nil {
		return Outcome{}, errors.Join(runErr, fmt.Errorf("failed to record epoch: %w", recordErr))
	}
	if res.BestEpoch == 0 {
		res.BestValLoss = 0
	}
	run.Reason = string(res.Reason)
	run.Epochs = res.Epochs
	run.BestEpoch = res.BestEpoch
	run.BestValLoss = res.BestValLoss
	if runErr != nil && res.Reason != trainer.ReasonCanceled {
		run.Reason = string(trainer.ReasonFailed)
		if err := st.FinishRun(context.WithoutCancel(ctx), run, res.Snapshot); err != nil {
			return Outcome{}, errors.Join(runErr, fmt.Errorf("failed to finish run: %w", err))
		}
		return Outcome{Run: run, Result: res, Prepared: prepared}, runErr
	}

	ev, err := stats.Evaluate(dataset.Labels(prepared.Test), trainer.Predict(net, prepared.Test))
	if err != nil {
		return Outcome{}, err
	}
	run.TestAccuracy = ev.Accuracy
	if err := st.FinishRun(context.WithoutCancel(ctx), run, res.Snapshot); err != nil {
		return Outcome{}, fmt.Errorf("failed to finish run: %w", err)
	}

	out := Outcome{Run: run, Result: res, Evaluation: ev, Prepared: prepared}
	if cfg.OutPath != "" {
		export := nn.NewExport(net, cfg.WindowLength, prepared.Scaler, res.Snapshot, res.BestEpoch, res.BestValLoss)
		if err := nn.WriteExport(cfg.OutPath, export); err != nil {
			return out, err
		}
		out.ExportPath = cfg.OutPath
	}
	return out, runErr
}

func epochRecord(runID string, r trainer.EpochReport) model.EpochRecord {
	return model.EpochRecord{
		RunID:        runID,
		Epoch:        r.Epoch,
		TrainLoss:    r.TrainLoss,
		TrainAcc:     r.TrainAcc,
		ValLoss:      r.ValLoss,
		ValAcc:       r.ValAcc,
		LearningRate: r.LearningRate,
		Phase:        string(r.Phase),
	}
}
