package dataset

import (
	"math/rand"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// Sample is one model input with its target class.
type Sample struct {
	X []float64
	Y model.Class
}

// PointSamples turns each element into a sample of its own features and label.
func PointSamples(elements []model.TimingElement, scaler Scaler) []Sample {
	out := make([]Sample, len(elements))
	for i, e := range elements {
		f := scaler.Transform(e)
		out[i] = Sample{X: []float64{f[0], f[1]}, Y: e.Label}
	}
	return out
}

// Labels returns the targets of samples.
func Labels(samples []Sample) []model.Class {
	out := make([]model.Class, len(samples))
	for i, s := range samples {
		out[i] = s.Y
	}
	return out
}

// Subset returns samples at idx in the given order.
func Subset(samples []Sample, idx []int) []Sample {
	out := make([]Sample, len(idx))
	for i, j := range idx {
		out[i] = samples[j]
	}
	return out
}

// Batches cuts samples into consecutive batches of size; the last one may be short.
func Batches(samples []Sample, size int) [][]Sample {
	if size <= 0 || len(samples) == 0 {
		return nil
	}
	out := make([][]Sample, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := start + size
		if end > len(samples) {
			end = len(samples)
		}
		out = append(out, samples[start:end])
	}
	return out
}

// ShuffledBatches permutes a copy of samples with rnd and cuts it into batches.
func ShuffledBatches(samples []Sample, size int, rnd *rand.Rand) [][]Sample {
	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return Batches(shuffled, size)
}
