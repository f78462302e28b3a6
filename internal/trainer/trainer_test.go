package trainer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/morsetrain/internal/dataset"
	"github.com/verte-zerg/morsetrain/internal/model"
)

// scriptedModel reports validation losses from a script indexed by the number of
// training steps taken. One training batch equals one epoch in these tests.
type scriptedModel struct {
	script    []float64
	trainLoss float64
	steps     int
	params    []float64
	mu        sync.Mutex
	lrs       []float64
	evalCalls int
}

func (m *scriptedModel) Params() []float64 {
	return append([]float64(nil), m.params...)
}

func (m *scriptedModel) SetParams(p []float64) error {
	m.params = append([]float64(nil), p...)
	return nil
}

func (m *scriptedModel) TrainBatch(batch []dataset.Sample, lr float64) (float64, int, error) {
	m.steps++
	m.params = []float64{float64(m.steps)}
	m.lrs = append(m.lrs, lr)
	return m.trainLoss, len(batch), nil
}

func (m *scriptedModel) EvalBatch(batch []dataset.Sample) (float64, int, error) {
	m.mu.Lock()
	m.evalCalls++
	m.mu.Unlock()
	i := m.steps - 1
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	return m.script[i], 0, nil
}

func (m *scriptedModel) Score(x []float64) []float64 {
	return x
}

func samples(n int) []dataset.Sample {
	out := make([]dataset.Sample, n)
	for i := range out {
		out[i] = dataset.Sample{X: []float64{float64(i)}, Y: model.Dit}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 8
	cfg.Workers = 3
	return cfg
}

func run(t *testing.T, cfg Config, m Model, observer Observer) (Result, error) {
	t.Helper()
	tr, err := New(cfg, 1, observer)
	require.NoError(t, err)
	return tr.Run(context.Background(), m, samples(8), samples(20))
}

func TestEarlyStoppingRestoresBest(t *testing.T) {
	m := &scriptedModel{script: []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.6}, trainLoss: 0.5}
	var reports []EpochReport
	res, err := run(t, testConfig(), m, func(r EpochReport) { reports = append(reports, r) })
	require.NoError(t, err)

	require.Equal(t, ReasonEarlyStopped, res.Reason)
	require.Equal(t, 25, res.Epochs)
	require.Equal(t, 5, res.BestEpoch)
	require.Equal(t, 0.6, res.BestValLoss)
	require.Equal(t, []float64{5}, res.Snapshot)
	require.Equal(t, []float64{5}, m.Params(), "best snapshot must be restored")
	require.Equal(t, 25, m.steps, "no epochs after termination")
	require.Len(t, reports, 25)
	require.Equal(t, res.History, reports)

	require.True(t, reports[4].Improved)
	require.Equal(t, PhaseImproved, reports[4].Phase)
	require.Equal(t, PhaseStalled, reports[5].Phase)
	require.Equal(t, PhaseTerminated, reports[24].Phase)
	require.Equal(t, 20, reports[24].EpochsSinceImprovement)
}

func TestPlateauDecayIsIndependentOfEarlyStop(t *testing.T) {
	m := &scriptedModel{script: []float64{1.0, 0.9, 0.8, 0.7, 0.6, 0.6}, trainLoss: 0.5}
	res, err := run(t, testConfig(), m, nil)
	require.NoError(t, err)

	for epoch := 1; epoch <= 10; epoch++ {
		require.Equal(t, 0.001, m.lrs[epoch-1], "epoch %d", epoch)
	}
	require.True(t, res.History[9].LRDecayed)
	require.Equal(t, 0, res.History[9].PlateauCount)
	require.Equal(t, 5, res.History[9].EpochsSinceImprovement)
	require.Equal(t, 0.0005, m.lrs[10])
	require.Equal(t, 0.00025, m.lrs[15])
	require.Equal(t, 0.000125, m.lrs[20])
	require.Equal(t, 0.000125, res.History[24].LearningRate)
}

func TestMinLearningRateFloor(t *testing.T) {
	cfg := testConfig()
	cfg.MinLearningRate = 0.0004
	m := &scriptedModel{script: []float64{1.0}, trainLoss: 0.5}
	_, err := run(t, cfg, m, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0005, m.lrs[6])
	require.Equal(t, 0.0004, m.lrs[11])
	require.Equal(t, 0.0004, m.lrs[len(m.lrs)-1])
}

func TestMaxEpochsKeepsBestNotLast(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEpochs = 4
	m := &scriptedModel{script: []float64{1.0, 0.5, 0.7, 0.8}, trainLoss: 0.5}
	res, err := run(t, cfg, m, nil)
	require.NoError(t, err)
	require.Equal(t, ReasonMaxEpochs, res.Reason)
	require.Equal(t, 4, res.Epochs)
	require.Equal(t, 2, res.BestEpoch)
	require.Equal(t, []float64{2}, res.Snapshot)
	require.Equal(t, []float64{2}, m.Params())
}

func TestEqualLossIsNotImprovement(t *testing.T) {
	cfg := testConfig()
	cfg.Patience = 3
	m := &scriptedModel{script: []float64{0.5}, trainLoss: 0.5}
	res, err := run(t, cfg, m, nil)
	require.NoError(t, err)
	require.Equal(t, 4, res.Epochs)
	require.Equal(t, 1, res.BestEpoch)
	require.Equal(t, []float64{1}, res.Snapshot)
}

func TestNonFiniteValidationLossAborts(t *testing.T) {
	m := &scriptedModel{script: []float64{1.0, 0.5, math.NaN()}, trainLoss: 0.5}
	res, err := run(t, testConfig(), m, nil)
	require.ErrorIs(t, err, ErrNonFiniteLoss)
	require.Contains(t, err.Error(), "epoch 3")
	require.Equal(t, ReasonFailed, res.Reason)
	require.Equal(t, 2, res.Epochs)
	require.Equal(t, 2, res.BestEpoch)
	require.Equal(t, []float64{2}, res.Snapshot)
	require.Equal(t, []float64{2}, m.Params())
}

func TestNonFiniteTrainingLossAborts(t *testing.T) {
	m := &scriptedModel{script: []float64{1.0}, trainLoss: math.Inf(1)}
	res, err := run(t, testConfig(), m, nil)
	require.True(t, errors.Is(err, ErrNonFiniteLoss))
	require.Equal(t, 0, res.Epochs)
	require.Equal(t, 0, m.evalCalls)
	require.Equal(t, ReasonFailed, res.Reason)
	require.Nil(t, res.Snapshot)
}

type failingModel struct {
	scriptedModel
}

var errBoom = errors.New("boom")

func (m *failingModel) EvalBatch([]dataset.Sample) (float64, int, error) {
	return 0, 0, errBoom
}

func TestModelErrorsPropagate(t *testing.T) {
	m := &failingModel{scriptedModel{script: []float64{1}}}
	_, err := run(t, testConfig(), m, nil)
	require.ErrorIs(t, err, errBoom)
}

func TestCancellationBetweenEpochs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &scriptedModel{script: []float64{1.0, 0.5, 0.7, 0.8, 0.9}, trainLoss: 0.5}
	tr, err := New(testConfig(), 1, func(r EpochReport) {
		if r.Epoch == 3 {
			cancel()
		}
	})
	require.NoError(t, err)
	res, err := tr.Run(ctx, m, samples(8), samples(20))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, ReasonCanceled, res.Reason)
	require.Equal(t, 3, res.Epochs)
	require.Equal(t, []float64{2}, m.Params())
}

// meanModel reports the mean of X[0] over each batch as its loss.
type meanModel struct {
	scriptedModel
}

func (m *meanModel) EvalBatch(batch []dataset.Sample) (float64, int, error) {
	var sum float64
	correct := 0
	for _, s := range batch {
		sum += s.X[0]
		if int(s.X[0])%2 == 0 {
			correct++
		}
	}
	return sum / float64(len(batch)), correct, nil
}

func TestValidationAggregatesByBatchSize(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEpochs = 1
	m := &meanModel{scriptedModel{trainLoss: 0.25}}
	res, err := run(t, cfg, m, nil)
	require.NoError(t, err)
	// 20 samples in batches of 8, 8 and 4: the weighted mean of 0..19.
	require.InDelta(t, 9.5, res.History[0].ValLoss, 1e-12)
	require.Equal(t, 0.5, res.History[0].ValAcc)
	require.Equal(t, 0.25, res.History[0].TrainLoss)
	require.Equal(t, 1.0, res.History[0].TrainAcc)
}

func TestRunRejectsEmptySplits(t *testing.T) {
	tr, err := New(testConfig(), 1, nil)
	require.NoError(t, err)
	_, err = tr.Run(context.Background(), &scriptedModel{}, nil, samples(2))
	require.ErrorIs(t, err, ErrEmptySplit)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	mutations := []func(*Config){
		func(c *Config) { c.MaxEpochs = 0 },
		func(c *Config) { c.Patience = 0 },
		func(c *Config) { c.LearningRate = 0 },
		func(c *Config) { c.PlateauPatience = -1 },
		func(c *Config) { c.DecayFactor = 1 },
		func(c *Config) { c.MinLearningRate = 1 },
		func(c *Config) { c.BatchSize = 0 },
		func(c *Config) { c.Workers = -2 },
	}
	for i, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(&cfg)
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "mutation %d", i)
		_, err := New(cfg, 1, nil)
		require.Error(t, err)
	}
}

func TestPredict(t *testing.T) {
	m := &scriptedModel{}
	got := Predict(m, []dataset.Sample{
		{X: []float64{0.1, 0.7, 0.1, 0.05, 0.05}},
		{X: []float64{0.1, 0.1, 0.1, 0.1, 0.6}},
		{X: []float64{0.5, 0.5, 0, 0, 0}},
	})
	require.Equal(t, []model.Class{model.Dah, model.WordGap, model.Dit}, got)
}
