package forecast

import (
	"fmt"
	"math"
	"math/rand"
)

// Hyperparameters fixes the architecture of a SequenceForecaster.
// Input width, hidden width and layer count must match the persisted
// artifact for a load to succeed.
type Hyperparameters struct {
	InputSize  int     `json:"input_size" yaml:"input_size"`
	HiddenSize int     `json:"hidden_size" yaml:"hidden_size"`
	NumLayers  int     `json:"num_layers" yaml:"num_layers"`
	OutLen     int     `json:"out_len" yaml:"out_len"`
	Dropout    float64 `json:"dropout" yaml:"dropout"`
}

// DefaultHyperparameters mirrors the production configuration: ten
// engineered features per day, a 2-layer encoder, a 30-day native horizon.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		InputSize:  10,
		HiddenSize: 128,
		NumLayers:  2,
		OutLen:     30,
		Dropout:    0.2,
	}
}

// Validate rejects architectures the dense stack cannot express.
func (hp Hyperparameters) Validate() error {
	if hp.InputSize < 1 {
		return fmt.Errorf("input size must be >= 1, got %d", hp.InputSize)
	}
	if hp.HiddenSize < 4 {
		return fmt.Errorf("hidden size must be >= 4, got %d", hp.HiddenSize)
	}
	if hp.NumLayers < 1 {
		return fmt.Errorf("num layers must be >= 1, got %d", hp.NumLayers)
	}
	if hp.OutLen < 1 {
		return fmt.Errorf("out len must be >= 1, got %d", hp.OutLen)
	}
	if hp.Dropout < 0 || hp.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", hp.Dropout)
	}
	return nil
}

// matrix is a dense row-major float64 matrix.
type matrix struct {
	rows, cols int
	data       []float64
}

func newMatrix(rows, cols int) *matrix {
	return &matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

func (m *matrix) row(r int) []float64 {
	return m.data[r*m.cols : (r+1)*m.cols]
}

// mulVec computes out = m * x + b. out must have length m.rows.
func (m *matrix) mulVec(x, b, out []float64) {
	for r := 0; r < m.rows; r++ {
		row := m.row(r)
		sum := b[r]
		for c, v := range row {
			sum += v * x[c]
		}
		out[r] = sum
	}
}

// mulVecT computes out += mᵀ * dy. out must have length m.cols.
func (m *matrix) mulVecT(dy, out []float64) {
	for r := 0; r < m.rows; r++ {
		row := m.row(r)
		d := dy[r]
		if d == 0 {
			continue
		}
		for c, v := range row {
			out[c] += d * v
		}
	}
}

// initUniform fills the matrix with uniform values scaled by 1/sqrt(fanIn).
func (m *matrix) initUniform(rng *rand.Rand) {
	scale := 1.0 / math.Sqrt(float64(m.cols))
	for i := range m.data {
		m.data[i] = (rng.Float64()*2 - 1) * scale
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// lstmCell is a single LSTM layer. Gate weights are concatenated in
// (input, forget, cell, output) order: w is (4H x inSize+H), b is 4H.
type lstmCell struct {
	inSize, hidden int
	w              *matrix
	b              []float64
}

func newLSTMCell(inSize, hidden int, rng *rand.Rand) *lstmCell {
	cell := &lstmCell{
		inSize: inSize,
		hidden: hidden,
		w:      newMatrix(4*hidden, inSize+hidden),
		b:      make([]float64, 4*hidden),
	}
	cell.w.initUniform(rng)
	// Forget-gate bias starts at 1 so early training does not erase state.
	for i := hidden; i < 2*hidden; i++ {
		cell.b[i] = 1
	}
	return cell
}

// lstmStep caches one timestep's activations for backpropagation.
type lstmStep struct {
	z             []float64 // concatenated [x, hPrev]
	i, f, g, o    []float64
	cPrev, c, tc  []float64
	h             []float64
}

func (cell *lstmCell) forward(x, hPrev, cPrev []float64) lstmStep {
	H := cell.hidden
	z := make([]float64, cell.inSize+H)
	copy(z, x)
	copy(z[cell.inSize:], hPrev)

	a := make([]float64, 4*H)
	cell.w.mulVec(z, cell.b, a)

	step := lstmStep{
		z: z,
		i: make([]float64, H), f: make([]float64, H),
		g: make([]float64, H), o: make([]float64, H),
		cPrev: cPrev,
		c:     make([]float64, H), tc: make([]float64, H),
		h: make([]float64, H),
	}
	for j := 0; j < H; j++ {
		step.i[j] = sigmoid(a[j])
		step.f[j] = sigmoid(a[H+j])
		step.g[j] = math.Tanh(a[2*H+j])
		step.o[j] = sigmoid(a[3*H+j])
		step.c[j] = step.f[j]*cPrev[j] + step.i[j]*step.g[j]
		step.tc[j] = math.Tanh(step.c[j])
		step.h[j] = step.o[j] * step.tc[j]
	}
	return step
}

// backward accumulates weight gradients into gw/gb and returns gradients
// with respect to the step input, previous hidden state and previous cell
// state. dh and dc are the gradients flowing in from above and from the
// following timestep.
func (cell *lstmCell) backward(step lstmStep, dh, dc []float64, gw *matrix, gb []float64) (dx, dhPrev, dcPrev []float64) {
	H := cell.hidden
	da := make([]float64, 4*H)
	dcPrev = make([]float64, H)

	for j := 0; j < H; j++ {
		do := dh[j] * step.tc[j]
		dcj := dc[j] + dh[j]*step.o[j]*(1-step.tc[j]*step.tc[j])

		di := dcj * step.g[j]
		df := dcj * step.cPrev[j]
		dg := dcj * step.i[j]
		dcPrev[j] = dcj * step.f[j]

		da[j] = di * step.i[j] * (1 - step.i[j])
		da[H+j] = df * step.f[j] * (1 - step.f[j])
		da[2*H+j] = dg * (1 - step.g[j]*step.g[j])
		da[3*H+j] = do * step.o[j] * (1 - step.o[j])
	}

	for r := 0; r < 4*H; r++ {
		d := da[r]
		gb[r] += d
		if d == 0 {
			continue
		}
		grow := gw.row(r)
		for c, zv := range step.z {
			grow[c] += d * zv
		}
	}

	dz := make([]float64, cell.inSize+H)
	cell.w.mulVecT(da, dz)
	return dz[:cell.inSize], dz[cell.inSize:], dcPrev
}

// denseLayer is a fully connected layer: y = w*x + b.
type denseLayer struct {
	in, out int
	w       *matrix
	b       []float64
}

func newDenseLayer(in, out int, rng *rand.Rand) *denseLayer {
	l := &denseLayer{in: in, out: out, w: newMatrix(out, in), b: make([]float64, out)}
	l.w.initUniform(rng)
	return l
}

// SequenceForecaster maps a window of per-day feature vectors to a
// multi-day demand forecast. Inference is side-effect free on model state;
// only training mutates weights.
type SequenceForecaster struct {
	hp    Hyperparameters
	cells []*lstmCell
	dense []*denseLayer

	// outputScale denormalizes predictions back to demand units. Set by
	// the training pipeline, persisted with the artifact. Always > 0.
	outputScale float64

	rng *rand.Rand
}

// NewSequenceForecaster builds a model with deterministic weight
// initialization from the given seed.
func NewSequenceForecaster(hp Hyperparameters, seed int64) (*SequenceForecaster, error) {
	if err := hp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hyperparameters: %w", err)
	}
	rng := rand.New(rand.NewSource(seed))

	m := &SequenceForecaster{hp: hp, outputScale: 1, rng: rng}
	in := hp.InputSize
	for l := 0; l < hp.NumLayers; l++ {
		m.cells = append(m.cells, newLSTMCell(in, hp.HiddenSize, rng))
		in = hp.HiddenSize
	}
	h := hp.HiddenSize
	m.dense = []*denseLayer{
		newDenseLayer(h, h/2, rng),
		newDenseLayer(h/2, h/4, rng),
		newDenseLayer(h/4, hp.OutLen, rng),
	}
	return m, nil
}

// Hyper returns the model's architecture hyperparameters.
func (m *SequenceForecaster) Hyper() Hyperparameters {
	return m.hp
}

// Predict runs inference over a feature window and returns OutLen
// non-negative demand values in demand units.
func (m *SequenceForecaster) Predict(window [][]float64) ([]float64, error) {
	out, _, err := m.forward(window, false)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] *= m.outputScale
	}
	return out, nil
}

// forwardCache holds everything backward needs: per-layer LSTM steps,
// dropout masks, and dense-stack activations.
type forwardCache struct {
	steps     [][]lstmStep // [layer][t]
	layerDrop [][][]float64
	x0        []float64 // dense input: terminal hidden state of top layer
	z1, z2, z3 []float64 // dense pre-activations
	x1, x2    []float64 // dense post-activation inputs to the next layer
	drop1     []float64 // inverted-dropout mask after the first dense ReLU
}

// forward runs the full network. When training is true, inverted dropout is
// applied between LSTM layers and after the first dense ReLU.
func (m *SequenceForecaster) forward(window [][]float64, training bool) ([]float64, *forwardCache, error) {
	if len(window) == 0 {
		return nil, nil, fmt.Errorf("empty feature window")
	}
	for t, vec := range window {
		if len(vec) != m.hp.InputSize {
			return nil, nil, fmt.Errorf("feature vector %d has width %d, want %d", t, len(vec), m.hp.InputSize)
		}
	}

	T := len(window)
	H := m.hp.HiddenSize
	cache := &forwardCache{
		steps:     make([][]lstmStep, len(m.cells)),
		layerDrop: make([][][]float64, len(m.cells)),
	}

	inputs := window
	for l, cell := range m.cells {
		cache.steps[l] = make([]lstmStep, T)
		cache.layerDrop[l] = make([][]float64, T)

		h := make([]float64, H)
		c := make([]float64, H)
		outputs := make([][]float64, T)
		for t := 0; t < T; t++ {
			step := cell.forward(inputs[t], h, c)
			cache.steps[l][t] = step
			h, c = step.h, step.c

			out := step.h
			// Dropout between stacked layers only, never after the last.
			if training && m.hp.Dropout > 0 && l < len(m.cells)-1 {
				mask := m.dropoutMask(H)
				cache.layerDrop[l][t] = mask
				dropped := make([]float64, H)
				for j := range dropped {
					dropped[j] = out[j] * mask[j]
				}
				out = dropped
			}
			outputs[t] = out
		}
		inputs = outputs
	}

	// Terminal hidden state of the last layer feeds the dense stack.
	cache.x0 = cache.steps[len(m.cells)-1][T-1].h

	cache.z1 = make([]float64, m.dense[0].out)
	m.dense[0].w.mulVec(cache.x0, m.dense[0].b, cache.z1)
	cache.x1 = reluVec(cache.z1)
	if training && m.hp.Dropout > 0 {
		cache.drop1 = m.dropoutMask(len(cache.x1))
		for j := range cache.x1 {
			cache.x1[j] *= cache.drop1[j]
		}
	}

	cache.z2 = make([]float64, m.dense[1].out)
	m.dense[1].w.mulVec(cache.x1, m.dense[1].b, cache.z2)
	cache.x2 = reluVec(cache.z2)

	cache.z3 = make([]float64, m.dense[2].out)
	m.dense[2].w.mulVec(cache.x2, m.dense[2].b, cache.z3)

	// Non-negativity clamp: demand cannot be negative.
	out := reluVec(cache.z3)
	return out, cache, nil
}

// backward accumulates gradients for one sample into g. dOut is dLoss/dOut
// for the clamped output.
func (m *SequenceForecaster) backward(cache *forwardCache, dOut []float64, g *gradients) {
	// Final clamp: gradient passes only where the pre-clamp value is positive.
	dz3 := make([]float64, len(dOut))
	for j := range dOut {
		if cache.z3[j] > 0 {
			dz3[j] = dOut[j]
		}
	}

	dx2 := m.denseBackward(2, cache.x2, dz3, g)
	dz2 := reluBackward(dx2, cache.z2)
	dx1 := m.denseBackward(1, cache.x1, dz2, g)
	if cache.drop1 != nil {
		for j := range dx1 {
			dx1[j] *= cache.drop1[j]
		}
	}
	dz1 := reluBackward(dx1, cache.z1)
	dx0 := m.denseBackward(0, cache.x0, dz1, g)

	// Backpropagate through time, top layer first. Only the terminal
	// timestep of the top layer receives gradient from the dense stack.
	T := len(cache.steps[0])
	H := m.hp.HiddenSize
	dTop := make([][]float64, T)
	for t := range dTop {
		dTop[t] = make([]float64, H)
	}
	copy(dTop[T-1], dx0)

	for l := len(m.cells) - 1; l >= 0; l-- {
		cell := m.cells[l]
		dhNext := make([]float64, H)
		dcNext := make([]float64, H)
		dxs := make([][]float64, T)
		for t := T - 1; t >= 0; t-- {
			dh := dTop[t]
			for j := range dh {
				dh[j] += dhNext[j]
			}
			dx, dhPrev, dcPrev := cell.backward(cache.steps[l][t], dh, dcNext, g.cellW[l], g.cellB[l])
			dhNext, dcNext = dhPrev, dcPrev
			dxs[t] = dx
		}
		if l > 0 {
			// Undo the inter-layer dropout applied to the layer below.
			for t := range dxs {
				if mask := cache.layerDrop[l-1][t]; mask != nil {
					for j := range dxs[t] {
						dxs[t][j] *= mask[j]
					}
				}
			}
			dTop = dxs
		}
	}
}

// denseBackward accumulates gradients for dense layer l and returns dx.
func (m *SequenceForecaster) denseBackward(l int, x, dy []float64, g *gradients) []float64 {
	layer := m.dense[l]
	for r := 0; r < layer.out; r++ {
		d := dy[r]
		g.denseB[l][r] += d
		if d == 0 {
			continue
		}
		grow := g.denseW[l].row(r)
		for c, xv := range x {
			grow[c] += d * xv
		}
	}
	dx := make([]float64, layer.in)
	layer.w.mulVecT(dy, dx)
	return dx
}

func (m *SequenceForecaster) dropoutMask(n int) []float64 {
	keep := 1 - m.hp.Dropout
	mask := make([]float64, n)
	for j := range mask {
		if m.rng.Float64() < keep {
			mask[j] = 1 / keep
		}
	}
	return mask
}

func reluVec(z []float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

// reluBackward masks dy by the sign of the pre-activation z.
func reluBackward(dy, z []float64) []float64 {
	out := make([]float64, len(dy))
	for i := range dy {
		if z[i] > 0 {
			out[i] = dy[i]
		}
	}
	return out
}

// gradients mirrors the model's parameter shapes.
type gradients struct {
	cellW  []*matrix
	cellB  [][]float64
	denseW []*matrix
	denseB [][]float64
}

func (m *SequenceForecaster) newGradients() *gradients {
	g := &gradients{}
	for _, cell := range m.cells {
		g.cellW = append(g.cellW, newMatrix(cell.w.rows, cell.w.cols))
		g.cellB = append(g.cellB, make([]float64, len(cell.b)))
	}
	for _, layer := range m.dense {
		g.denseW = append(g.denseW, newMatrix(layer.w.rows, layer.w.cols))
		g.denseB = append(g.denseB, make([]float64, len(layer.b)))
	}
	return g
}

// paramSlices exposes every parameter tensor as a flat slice, in a stable
// order shared with gradients.slices.
func (m *SequenceForecaster) paramSlices() [][]float64 {
	var out [][]float64
	for _, cell := range m.cells {
		out = append(out, cell.w.data, cell.b)
	}
	for _, layer := range m.dense {
		out = append(out, layer.w.data, layer.b)
	}
	return out
}

func (g *gradients) slices() [][]float64 {
	var out [][]float64
	for i := range g.cellW {
		out = append(out, g.cellW[i].data, g.cellB[i])
	}
	for i := range g.denseW {
		out = append(out, g.denseW[i].data, g.denseB[i])
	}
	return out
}

// norm returns the global L2 norm across all gradient tensors.
func (g *gradients) norm() float64 {
	var sum float64
	for _, s := range g.slices() {
		for _, v := range s {
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

func (g *gradients) scale(f float64) {
	for _, s := range g.slices() {
		for i := range s {
			s[i] *= f
		}
	}
}
