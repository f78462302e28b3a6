// Package nn provides small reference classifiers for the training controller:
// a point-wise model over one element and a windowed model over a flattened
// sequence window. Both are one-hidden-layer perceptrons trained with Adam.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/verte-zerg/morsetrain/internal/dataset"
	"github.com/verte-zerg/morsetrain/internal/model"
)

const (
	KindDense    = "dense"
	KindWindowed = "windowed"

	DefaultHidden = 32

	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-7
	minProb   = 1e-12
)

// ErrShape indicates an input or parameter vector of the wrong length.
var ErrShape = errors.New("shape mismatch")

// MLP is a softmax classifier with an optional ReLU hidden layer. With zero
// hidden units it reduces to multinomial logistic regression.
//
// Parameters are stored flat: hidden weights, hidden biases, output weights,
// output biases.
type MLP struct {
	kind   string
	in     int
	hidden int
	out    int
	params []float64
	adam   adam
}

type adam struct {
	m    []float64
	v    []float64
	step int
}

// NewDense returns a point-wise classifier over one element's features.
func NewDense(hidden int, seed int64) (*MLP, error) {
	return newMLP(KindDense, dataset.NumFeatures, hidden, seed)
}

// NewWindowed returns a classifier over a flattened window of length L.
func NewWindowed(windowLength, hidden int, seed int64) (*MLP, error) {
	if windowLength <= 0 {
		return nil, fmt.Errorf("window length must be > 0, got %d", windowLength)
	}
	return newMLP(KindWindowed, windowLength*dataset.NumFeatures, hidden, seed)
}

// New builds the model named by kind.
func New(kind string, windowLength, hidden int, seed int64) (*MLP, error) {
	switch kind {
	case KindDense:
		return NewDense(hidden, seed)
	case KindWindowed:
		return NewWindowed(windowLength, hidden, seed)
	default:
		return nil, fmt.Errorf("unknown model %q (want %s or %s)", kind, KindDense, KindWindowed)
	}
}

func newMLP(kind string, in, hidden int, seed int64) (*MLP, error) {
	if hidden < 0 {
		return nil, fmt.Errorf("hidden units must be >= 0, got %d", hidden)
	}
	m := &MLP{kind: kind, in: in, hidden: hidden, out: model.NumClasses}
	n := m.paramCount()
	m.params = make([]float64, n)
	m.adam = adam{m: make([]float64, n), v: make([]float64, n)}

	rnd := rand.New(rand.NewSource(seed))
	if hidden > 0 {
		glorot(rnd, m.params[:hidden*in], in, hidden)
		off := hidden*in + hidden
		glorot(rnd, m.params[off:off+m.out*hidden], hidden, m.out)
	} else {
		glorot(rnd, m.params[:m.out*in], in, m.out)
	}
	return m, nil
}

func glorot(rnd *rand.Rand, w []float64, fanIn, fanOut int) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = (rnd.Float64()*2 - 1) * limit
	}
}

func (m *MLP) paramCount() int {
	if m.hidden == 0 {
		return m.out*m.in + m.out
	}
	return m.hidden*m.in + m.hidden + m.out*m.hidden + m.out
}

// Kind names the model shape.
func (m *MLP) Kind() string {
	return m.kind
}

// InputSize returns the expected length of an input vector.
func (m *MLP) InputSize() int {
	return m.in
}

// Params returns a copy of the parameters.
func (m *MLP) Params() []float64 {
	return append([]float64(nil), m.params...)
}

// SetParams replaces the parameters. Optimizer moments are kept.
func (m *MLP) SetParams(params []float64) error {
	if len(params) != len(m.params) {
		return fmt.Errorf("%w: got %d params, want %d", ErrShape, len(params), len(m.params))
	}
	copy(m.params, params)
	return nil
}

// layout returns views of the weight blocks. With no hidden layer w1 and b1 are
// empty and w2 maps inputs to logits.
func (m *MLP) layout(p []float64) (w1, b1, w2, b2 []float64) {
	if m.hidden == 0 {
		n := m.out * m.in
		return nil, nil, p[:n], p[n:]
	}
	off := 0
	w1 = p[off : off+m.hidden*m.in]
	off += m.hidden * m.in
	b1 = p[off : off+m.hidden]
	off += m.hidden
	w2 = p[off : off+m.out*m.hidden]
	off += m.out * m.hidden
	b2 = p[off:]
	return w1, b1, w2, b2
}

// forward fills h (hidden activations, or a copy of x without a hidden layer)
// and probs.
func (m *MLP) forward(x, h, probs []float64) {
	w1, b1, w2, b2 := m.layout(m.params)
	if m.hidden > 0 {
		for j := 0; j < m.hidden; j++ {
			sum := b1[j]
			row := w1[j*m.in : (j+1)*m.in]
			for i, xi := range x {
				sum += row[i] * xi
			}
			if sum < 0 {
				sum = 0
			}
			h[j] = sum
		}
	} else {
		copy(h, x)
	}
	width := len(h)
	for k := 0; k < m.out; k++ {
		sum := b2[k]
		row := w2[k*width : (k+1)*width]
		for j, hj := range h {
			sum += row[j] * hj
		}
		probs[k] = sum
	}
	softmax(probs)
}

func softmax(z []float64) {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	var sum float64
	for i, v := range z {
		z[i] = math.Exp(v - maxZ)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}

func (m *MLP) hiddenWidth() int {
	if m.hidden == 0 {
		return m.in
	}
	return m.hidden
}

// Score returns class probabilities for x. A wrongly sized input scores zero
// everywhere.
func (m *MLP) Score(x []float64) []float64 {
	probs := make([]float64, m.out)
	if len(x) != m.in {
		return probs
	}
	h := make([]float64, m.hiddenWidth())
	m.forward(x, h, probs)
	return probs
}

// EvalBatch returns the mean cross-entropy and the number of correct predictions.
func (m *MLP) EvalBatch(batch []dataset.Sample) (float64, int, error) {
	if len(batch) == 0 {
		return 0, 0, nil
	}
	h := make([]float64, m.hiddenWidth())
	probs := make([]float64, m.out)
	var loss float64
	correct := 0
	for i, s := range batch {
		if err := m.checkSample(i, s); err != nil {
			return 0, 0, err
		}
		m.forward(s.X, h, probs)
		loss += crossEntropy(probs, s.Y)
		if argmax(probs) == int(s.Y) {
			correct++
		}
	}
	return loss / float64(len(batch)), correct, nil
}

// TrainBatch computes gradients of the mean cross-entropy over batch and applies
// one Adam step with learning rate lr.
func (m *MLP) TrainBatch(batch []dataset.Sample, lr float64) (float64, int, error) {
	if len(batch) == 0 {
		return 0, 0, nil
	}
	grad := make([]float64, len(m.params))
	gw1, gb1, gw2, gb2 := m.layout(grad)
	_, _, w2, _ := m.layout(m.params)

	width := m.hiddenWidth()
	h := make([]float64, width)
	probs := make([]float64, m.out)
	dh := make([]float64, width)
	var loss float64
	correct := 0
	for i, s := range batch {
		if err := m.checkSample(i, s); err != nil {
			return 0, 0, err
		}
		m.forward(s.X, h, probs)
		loss += crossEntropy(probs, s.Y)
		if argmax(probs) == int(s.Y) {
			correct++
		}
		// dL/dz = p - onehot(y)
		probs[s.Y]--
		for j := range dh {
			dh[j] = 0
		}
		for k, dz := range probs {
			gb2[k] += dz
			row := gw2[k*width : (k+1)*width]
			wrow := w2[k*width : (k+1)*width]
			for j, hj := range h {
				row[j] += dz * hj
				dh[j] += dz * wrow[j]
			}
		}
		if m.hidden == 0 {
			continue
		}
		for j, hj := range h {
			if hj <= 0 {
				continue
			}
			gb1[j] += dh[j]
			row := gw1[j*m.in : (j+1)*m.in]
			for q, xi := range s.X {
				row[q] += dh[j] * xi
			}
		}
	}
	scale := 1 / float64(len(batch))
	for i := range grad {
		grad[i] *= scale
	}
	m.adam.apply(m.params, grad, lr)
	return loss * scale, correct, nil
}

func (a *adam) apply(params, grad []float64, lr float64) {
	a.step++
	c1 := 1 - math.Pow(adamBeta1, float64(a.step))
	c2 := 1 - math.Pow(adamBeta2, float64(a.step))
	for i, g := range grad {
		a.m[i] = adamBeta1*a.m[i] + (1-adamBeta1)*g
		a.v[i] = adamBeta2*a.v[i] + (1-adamBeta2)*g*g
		mHat := a.m[i] / c1
		vHat := a.v[i] / c2
		params[i] -= lr * mHat / (math.Sqrt(vHat) + adamEps)
	}
}

func (m *MLP) checkSample(i int, s dataset.Sample) error {
	if len(s.X) != m.in {
		return fmt.Errorf("%w: sample %d has %d features, want %d", ErrShape, i, len(s.X), m.in)
	}
	if !s.Y.Valid() {
		return fmt.Errorf("sample %d: invalid label %d", i, int(s.Y))
	}
	return nil
}

func crossEntropy(probs []float64, y model.Class) float64 {
	return -math.Log(math.Max(probs[y], minProb))
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
