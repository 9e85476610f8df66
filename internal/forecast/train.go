package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/maishanyun/pantry/internal/store"
)

// TrainingStatus reports the outcome of a training run.
type TrainingStatus string

const (
	TrainingSuccess          TrainingStatus = "success"
	TrainingInsufficientData TrainingStatus = "insufficient_data"
	TrainingError            TrainingStatus = "error"
)

// TrainingReport is returned from every training run. Data-availability
// problems surface here as a status, never as an error return.
type TrainingReport struct {
	Status    TrainingStatus `json:"status"`
	FinalLoss float64        `json:"final_loss"`
	Epochs    int            `json:"epochs"`
	Samples   int            `json:"samples"`
	Message   string         `json:"message,omitempty"`
}

// TrainingConfig bounds a training run up front. There is no unbounded
// loop anywhere in the pipeline.
type TrainingConfig struct {
	Epochs         int     `yaml:"epochs"`
	LearningRate   float64 `yaml:"learning_rate"`
	MinHistoryDays int     `yaml:"min_history_days"`
	WindowSize     int     `yaml:"window_size"`
	ClipNorm       float64 `yaml:"clip_norm"`
	Seed           int64   `yaml:"seed"`

	// EarlyStopPatience stops training after this many epochs without
	// loss improvement. Zero disables early stopping (the default).
	EarlyStopPatience int `yaml:"early_stop_patience"`
}

// DefaultTrainingConfig mirrors the production run: 50 epochs at a fixed
// learning rate over 10-day windows, at least 30 days of history.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Epochs:         50,
		LearningRate:   0.001,
		MinHistoryDays: 30,
		WindowSize:     10,
		ClipNorm:       5,
		Seed:           1,
	}
}

// Validate rejects configurations that cannot bound a run.
func (c TrainingConfig) Validate() error {
	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be >= 1, got %d", c.Epochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be > 0, got %g", c.LearningRate)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("window size must be >= 1, got %d", c.WindowSize)
	}
	return nil
}

// ErrTrainingInProgress is returned when a training run is already
// executing. Training is the only mutator of model state and is strictly
// serialized; a second caller is rejected, not queued.
var ErrTrainingInProgress = fmt.Errorf("training already in progress")

// TrainingPipeline fits a SequenceForecaster from ordered usage history
// and atomically persists the result.
type TrainingPipeline struct {
	mu sync.Mutex

	hp           Hyperparameters
	cfg          TrainingConfig
	features     FeaturePreparer
	artifactPath string
	logger       *slog.Logger
}

// NewTrainingPipeline constructs a pipeline writing its artifact to
// artifactPath. A nil logger falls back to slog.Default.
func NewTrainingPipeline(hp Hyperparameters, cfg TrainingConfig, artifactPath string, logger *slog.Logger) *TrainingPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrainingPipeline{
		hp:           hp,
		cfg:          cfg,
		features:     NewCalendarUsageFeatures(),
		artifactPath: artifactPath,
		logger:       logger,
	}
}

// Train fits the model on the given ordered daily usage history.
//
// Returns status insufficient_data without touching any model state when
// the history is too short. Numerical failures (diverging loss) are
// reported as status error with the previous artifact left intact. Only
// unexpected internal failures (context cancellation, artifact write)
// produce a non-nil error.
func (p *TrainingPipeline) Train(ctx context.Context, history []store.DailyUsage) (TrainingReport, error) {
	if !p.mu.TryLock() {
		return TrainingReport{}, ErrTrainingInProgress
	}
	defer p.mu.Unlock()

	if err := p.cfg.Validate(); err != nil {
		return TrainingReport{}, fmt.Errorf("invalid training config: %w", err)
	}

	if len(history) < p.cfg.MinHistoryDays {
		return TrainingReport{
			Status:  TrainingInsufficientData,
			Message: fmt.Sprintf("need at least %d days of history, have %d", p.cfg.MinHistoryDays, len(history)),
		}, nil
	}

	windows, targets := p.assemble(history)
	if len(windows) == 0 {
		return TrainingReport{
			Status:  TrainingInsufficientData,
			Message: fmt.Sprintf("no complete %d-day windows with %d-day targets in %d days of history", p.cfg.WindowSize, p.hp.OutLen, len(history)),
		}, nil
	}

	// Scale targets so the fixed learning rate is well-conditioned
	// regardless of the magnitude of demand.
	scale := targetScale(targets)
	scaled := make([][]float64, len(targets))
	for i, y := range targets {
		row := make([]float64, len(y))
		for j, v := range y {
			row[j] = v / scale
		}
		scaled[i] = row
	}

	model, err := NewSequenceForecaster(p.hp, p.cfg.Seed)
	if err != nil {
		return TrainingReport{}, err
	}
	model.outputScale = scale

	p.logger.Info("training started",
		"samples", len(windows), "epochs", p.cfg.Epochs,
		"window", p.cfg.WindowSize, "out_len", p.hp.OutLen)

	opt := newAdam(model, p.cfg.LearningRate)
	grads := model.newGradients()

	bestLoss := math.Inf(1)
	sinceBest := 0
	finalLoss := 0.0
	epochsRun := 0

	for epoch := 0; epoch < p.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return TrainingReport{Status: TrainingError, Message: "training cancelled"}, err
		}

		loss, err := p.runEpoch(model, windows, scaled, grads, opt)
		if err != nil {
			return TrainingReport{Status: TrainingError, Message: err.Error()}, nil
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return TrainingReport{
				Status:  TrainingError,
				Message: fmt.Sprintf("loss diverged at epoch %d", epoch),
			}, nil
		}

		finalLoss = loss
		epochsRun = epoch + 1
		if epoch%10 == 0 {
			p.logger.Debug("epoch complete", "epoch", epoch, "loss", loss)
		}

		if loss < bestLoss {
			bestLoss = loss
			sinceBest = 0
		} else {
			sinceBest++
		}
		if p.cfg.EarlyStopPatience > 0 && sinceBest >= p.cfg.EarlyStopPatience {
			p.logger.Info("early stop on plateau", "epoch", epoch, "best_loss", bestLoss)
			break
		}
	}

	if err := SaveArtifact(p.artifactPath, model); err != nil {
		return TrainingReport{Status: TrainingError, Message: err.Error()}, err
	}

	p.logger.Info("training complete", "epochs", epochsRun, "final_loss", finalLoss)
	return TrainingReport{
		Status:    TrainingSuccess,
		FinalLoss: finalLoss,
		Epochs:    epochsRun,
		Samples:   len(windows),
	}, nil
}

// assemble slices history into overlapping feature windows paired with the
// subsequent OutLen-day demand targets. Incomplete trailing windows are
// discarded.
func (p *TrainingPipeline) assemble(history []store.DailyUsage) (windows [][][]float64, targets [][]float64) {
	w := p.cfg.WindowSize
	outLen := p.hp.OutLen

	for end := w - 1; end+outLen < len(history); end++ {
		windows = append(windows, p.features.Window(history, end, w))
		y := make([]float64, outLen)
		for j := 0; j < outLen; j++ {
			y[j] = history[end+1+j].Quantity
		}
		targets = append(targets, y)
	}
	return windows, targets
}

// runEpoch performs one full-batch gradient step and returns the epoch's
// mean MSE over scaled targets.
func (p *TrainingPipeline) runEpoch(model *SequenceForecaster, windows [][][]float64, targets [][]float64, grads *gradients, opt *adam) (float64, error) {
	for _, s := range grads.slices() {
		for i := range s {
			s[i] = 0
		}
	}

	outLen := float64(model.hp.OutLen)
	totalLoss := 0.0

	for i, window := range windows {
		out, cache, err := model.forward(window, true)
		if err != nil {
			return 0, err
		}

		y := targets[i]
		dOut := make([]float64, len(out))
		sampleLoss := 0.0
		for j := range out {
			diff := out[j] - y[j]
			sampleLoss += diff * diff
			dOut[j] = 2 * diff / outLen
		}
		totalLoss += sampleLoss / outLen

		model.backward(cache, dOut, grads)
	}

	n := float64(len(windows))
	grads.scale(1 / n)

	if p.cfg.ClipNorm > 0 {
		if norm := grads.norm(); norm > p.cfg.ClipNorm {
			grads.scale(p.cfg.ClipNorm / norm)
		}
	}

	opt.step(model.paramSlices(), grads.slices())
	return totalLoss / n, nil
}

// targetScale returns the mean absolute target value, floored at 1 so
// all-zero histories stay well-defined.
func targetScale(targets [][]float64) float64 {
	var sum float64
	var n int
	for _, y := range targets {
		for _, v := range y {
			sum += math.Abs(v)
			n++
		}
	}
	if n == 0 || sum == 0 {
		return 1
	}
	scale := sum / float64(n)
	if scale < 1 {
		return 1
	}
	return scale
}

// adam is the Adam optimizer with a fixed learning rate.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  [][]float64
}

func newAdam(model *SequenceForecaster, lr float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
	for _, s := range model.paramSlices() {
		a.m = append(a.m, make([]float64, len(s)))
		a.v = append(a.v, make([]float64, len(s)))
	}
	return a
}

func (a *adam) step(params, grads [][]float64) {
	a.t++
	mc := 1 - math.Pow(a.beta1, float64(a.t))
	vc := 1 - math.Pow(a.beta2, float64(a.t))

	for i, p := range params {
		g := grads[i]
		m := a.m[i]
		v := a.v[i]
		for j := range p {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1-a.beta2)*g[j]*g[j]
			mHat := m[j] / mc
			vHat := v[j] / vc
			p[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
