package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maishanyun/pantry/internal/store"
)

// Source tags a forecast with where its numbers came from, so callers can
// tell a degraded-but-valid response from a real one.
type Source string

const (
	SourceModel     Source = "model"
	SourceSynthetic Source = "synthetic"
)

// Reason explains why a synthetic forecast was produced.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNoModel            Reason = "no_model"
	ReasonNoHistory          Reason = "no_history"
	ReasonCatalogUnavailable Reason = "catalog_unavailable"
	ReasonStoreError         Reason = "store_error"
)

// ForecastPoint is one day of predicted demand. PredictedDemand is always
// non-negative.
type ForecastPoint struct {
	Date            time.Time `json:"date"`
	PredictedDemand float64   `json:"predicted_demand"`
}

// ForecastResult is the ephemeral outcome of a single forecast request.
// It is produced fresh on every call and never persisted.
type ForecastResult struct {
	IngredientID    string          `json:"ingredient_id"`
	Horizon         int             `json:"horizon"`
	Forecast        []ForecastPoint `json:"forecast"`
	ReorderDate     time.Time       `json:"reorder_date"`
	ReorderQuantity float64         `json:"reorder_quantity"`
	Source          Source          `json:"source"`
	Reason          Reason          `json:"reason,omitempty"`
}

// HistoryReader is the data-store contract the orchestrator consumes.
// *store.Store satisfies it.
type HistoryReader interface {
	IngredientDailyUsage(ctx context.Context, ingredientID string) ([]store.DailyUsage, error)
	Ingredients(ctx context.Context) ([]store.Ingredient, error)
}

// PadPolicy says how to reconcile the model's native horizon with a
// requested one. Excess is always truncated; the policy controls the
// deficit.
type PadPolicy int

const (
	// PadRepeatLast extends a short model output by repeating its final
	// value. The default.
	PadRepeatLast PadPolicy = iota
	// PadZero extends a short model output with zeros.
	PadZero
)

// defaultIngredientIDs keeps bulk forecasting usable for demos when the
// catalog is empty or unreachable. Results built from this list are
// explicitly tagged catalog_unavailable (or store_error), never silently
// substituted.
var defaultIngredientIDs = []string{
	"braised_beef", "braised_chicken", "braised_pork", "egg", "rice",
	"ramen", "rice_noodles", "chicken_thigh", "chicken_wings", "flour",
	"pickle_cabbage", "green_onion", "cilantro", "white_onion", "peas",
	"carrot", "bokchoy", "tapioca_starch",
}

// OrchestratorConfig bounds and parameterizes forecast requests.
type OrchestratorConfig struct {
	ArtifactPath string
	Hyper        Hyperparameters
	WindowSize   int

	// ReorderThreshold is the cumulative-demand level that triggers a
	// reorder. The reorder date is the first day cumulative predicted
	// demand exceeds it.
	ReorderThreshold float64

	// DefaultReorderDays is the fallback reorder offset when no
	// threshold crossing occurs within the horizon.
	DefaultReorderDays int

	SyntheticSeed int64
	Pad           PadPolicy

	// Now allows tests to pin the clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultOrchestratorConfig mirrors the production values: threshold 200,
// 7-day fallback offset, 10-day feature window.
func DefaultOrchestratorConfig(artifactPath string) OrchestratorConfig {
	return OrchestratorConfig{
		ArtifactPath:       artifactPath,
		Hyper:              DefaultHyperparameters(),
		WindowSize:         10,
		ReorderThreshold:   200,
		DefaultReorderDays: 7,
		SyntheticSeed:      42,
		Pad:                PadRepeatLast,
	}
}

// Orchestrator serves forecast requests. The trained model is loaded
// lazily, at most once per process lifetime, and is read-only after load;
// concurrent requests during a training run keep using the previously
// loaded model until Reload is called.
type Orchestrator struct {
	cfg      OrchestratorConfig
	history  HistoryReader
	features FeaturePreparer
	logger   *slog.Logger

	mu        sync.RWMutex
	model     *SequenceForecaster
	loadTried bool
}

// NewOrchestrator wires a forecast orchestrator. A nil logger falls back
// to slog.Default.
func NewOrchestrator(cfg OrchestratorConfig, history HistoryReader, logger *slog.Logger) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		history:  history,
		features: NewCalendarUsageFeatures(),
		logger:   logger,
	}
}

// Predict forecasts demand for one ingredient over the given horizon.
//
// The forecast always has exactly horizon non-negative values. A missing
// model, missing history or a store failure degrades to a deterministic
// synthetic forecast tagged with the reason; only invalid input or an
// unexpected internal failure returns an error.
func (o *Orchestrator) Predict(ctx context.Context, ingredientID string, horizon int) (ForecastResult, error) {
	if horizon < 1 {
		return ForecastResult{}, fmt.Errorf("horizon must be >= 1, got %d", horizon)
	}

	model := o.loadModel()
	if model == nil {
		return o.synthetic(ingredientID, horizon, ReasonNoModel), nil
	}

	history, err := o.history.IngredientDailyUsage(ctx, ingredientID)
	if err != nil {
		if store.IsDataStoreError(err) {
			o.logger.Warn("history unavailable, using synthetic forecast",
				"ingredient", ingredientID, "error", err)
			return o.synthetic(ingredientID, horizon, ReasonStoreError), nil
		}
		return ForecastResult{}, err
	}
	if len(history) == 0 {
		return o.synthetic(ingredientID, horizon, ReasonNoHistory), nil
	}

	window := o.features.Window(history, len(history)-1, o.cfg.WindowSize)
	preds, err := model.Predict(window)
	if err != nil {
		return ForecastResult{}, fmt.Errorf("predict %s: %w", ingredientID, err)
	}
	preds = fitHorizon(preds, horizon, o.cfg.Pad)

	now := o.cfg.Now()
	return ForecastResult{
		IngredientID:    ingredientID,
		Horizon:         horizon,
		Forecast:        points(now, preds),
		ReorderDate:     o.reorderDate(now, preds, horizon),
		ReorderQuantity: reorderQuantity(preds),
		Source:          SourceModel,
	}, nil
}

// BulkPredict forecasts every catalog ingredient. An empty catalog or a
// store failure falls back to the documented default ingredient list,
// tagged per result.
func (o *Orchestrator) BulkPredict(ctx context.Context, horizon int) ([]ForecastResult, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be >= 1, got %d", horizon)
	}

	ingredients, err := o.history.Ingredients(ctx)
	if err != nil {
		if store.IsDataStoreError(err) {
			o.logger.Warn("catalog unavailable, using default ingredient list", "error", err)
			return o.syntheticBulk(horizon, ReasonStoreError), nil
		}
		return nil, err
	}
	if len(ingredients) == 0 {
		return o.syntheticBulk(horizon, ReasonCatalogUnavailable), nil
	}

	out := make([]ForecastResult, 0, len(ingredients))
	for _, ing := range ingredients {
		res, err := o.Predict(ctx, ing.ID, horizon)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Reload drops the lazily loaded model so the next request picks up a
// freshly trained artifact. Requests already in flight keep the model
// they started with.
func (o *Orchestrator) Reload() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = nil
	o.loadTried = false
}

// loadModel returns the loaded model, attempting the load exactly once
// per process lifetime (until Reload). Returns nil when no usable
// artifact exists.
func (o *Orchestrator) loadModel() *SequenceForecaster {
	o.mu.RLock()
	if o.loadTried {
		m := o.model
		o.mu.RUnlock()
		return m
	}
	o.mu.RUnlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loadTried {
		return o.model
	}
	o.loadTried = true

	model, err := LoadArtifact(o.cfg.ArtifactPath, o.cfg.Hyper)
	if err != nil {
		var loadErr *ModelLoadError
		switch {
		case errors.Is(err, ErrArtifactNotFound):
			o.logger.Info("no model artifact, synthetic forecasts until trained", "path", o.cfg.ArtifactPath)
		case errors.As(err, &loadErr):
			o.logger.Warn("model artifact unusable, falling back to synthetic", "error", err)
		default:
			o.logger.Error("model load failed", "error", err)
		}
		return nil
	}
	o.model = model
	o.logger.Info("model loaded", "path", o.cfg.ArtifactPath)
	return model
}

func (o *Orchestrator) synthetic(ingredientID string, horizon int, reason Reason) ForecastResult {
	now := o.cfg.Now()
	values := syntheticSeries(o.cfg.SyntheticSeed, ingredientID, horizon)
	return ForecastResult{
		IngredientID:    ingredientID,
		Horizon:         horizon,
		Forecast:        points(now, values),
		ReorderDate:     now.AddDate(0, 0, o.cfg.DefaultReorderDays),
		ReorderQuantity: reorderQuantity(values),
		Source:          SourceSynthetic,
		Reason:          reason,
	}
}

func (o *Orchestrator) syntheticBulk(horizon int, reason Reason) []ForecastResult {
	out := make([]ForecastResult, 0, len(defaultIngredientIDs))
	for _, id := range defaultIngredientIDs {
		out = append(out, o.synthetic(id, horizon, reason))
	}
	return out
}

// reorderDate finds the first day on which cumulative predicted demand
// exceeds the reorder threshold (stable scan, first crossing wins). When
// no crossing occurs the offset defaults to DefaultReorderDays, clamped
// to the horizon.
func (o *Orchestrator) reorderDate(now time.Time, preds []float64, horizon int) time.Time {
	offset := o.cfg.DefaultReorderDays
	cumulative := 0.0
	for i, v := range preds {
		cumulative += v
		if cumulative > o.cfg.ReorderThreshold {
			offset = i
			break
		}
	}
	if offset > horizon {
		offset = horizon
	}
	return now.AddDate(0, 0, offset)
}

// reorderQuantity sums predicted demand over the first seven days,
// clamped to the horizon.
func reorderQuantity(preds []float64) float64 {
	n := 7
	if len(preds) < n {
		n = len(preds)
	}
	var sum float64
	for _, v := range preds[:n] {
		sum += v
	}
	return sum
}

// fitHorizon reconciles the model's native output length with the
// requested horizon: excess is truncated, deficit is padded per policy.
func fitHorizon(preds []float64, horizon int, pad PadPolicy) []float64 {
	if len(preds) >= horizon {
		return preds[:horizon]
	}
	out := make([]float64, horizon)
	copy(out, preds)
	if pad == PadRepeatLast && len(preds) > 0 {
		last := preds[len(preds)-1]
		for i := len(preds); i < horizon; i++ {
			out[i] = last
		}
	}
	return out
}

func points(now time.Time, values []float64) []ForecastPoint {
	out := make([]ForecastPoint, len(values))
	for i, v := range values {
		out[i] = ForecastPoint{Date: now.AddDate(0, 0, i), PredictedDemand: v}
	}
	return out
}
