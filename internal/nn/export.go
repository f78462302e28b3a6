package nn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verte-zerg/morsetrain/internal/dataset"
	"github.com/verte-zerg/morsetrain/internal/model"
)

// Export is the JSON document describing a trained model.
type Export struct {
	Model        string         `json:"model"`
	WindowLength int            `json:"window_length"`
	Hidden       int            `json:"hidden"`
	Classes      []string       `json:"classes"`
	Scaler       dataset.Scaler `json:"scaler"`
	Params       []float64      `json:"params"`
	BestEpoch    int            `json:"best_epoch"`
	BestValLoss  float64        `json:"best_val_loss"`
}

// NewExport describes m with its best snapshot.
func NewExport(m *MLP, windowLength int, scaler dataset.Scaler, snapshot []float64, bestEpoch int, bestValLoss float64) Export {
	classes := make([]string, 0, model.NumClasses)
	for _, c := range model.Classes() {
		classes = append(classes, c.String())
	}
	if m.kind == KindDense {
		windowLength = 1
	}
	return Export{
		Model:        m.kind,
		WindowLength: windowLength,
		Hidden:       m.hidden,
		Classes:      classes,
		Scaler:       scaler,
		Params:       snapshot,
		BestEpoch:    bestEpoch,
		BestValLoss:  bestValLoss,
	}
}

// WriteExport writes e to path, creating parent directories.
func WriteExport(path string, e Export) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// LoadExport reads an export and rebuilds its model.
func LoadExport(path string) (*MLP, Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Export{}, fmt.Errorf("failed to read export: %w", err)
	}
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, Export{}, fmt.Errorf("failed to decode export: %w", err)
	}
	m, err := New(e.Model, e.WindowLength, e.Hidden, 0)
	if err != nil {
		return nil, Export{}, err
	}
	if err := m.SetParams(e.Params); err != nil {
		return nil, Export{}, err
	}
	return m, e, nil
}
