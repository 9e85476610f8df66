// Package forecast implements the demand forecasting core: a trainable
// recurrent sequence model, its training pipeline, and the orchestrator
// that turns forecasts into reorder signals.
//
// ARCHITECTURE:
//
// SequenceForecaster is a stacked LSTM encoder over a fixed-length window
// of per-day feature vectors. The terminal hidden state of the last layer
// feeds a narrowing dense stack ending in a ReLU clamp, so the model can
// never emit negative demand.
//
// TrainingPipeline slices ordered usage history into overlapping windows,
// fits the model with full-batch Adam on MSE loss, and atomically replaces
// the persisted artifact on success. Training is serialized: at most one
// run at a time, and a failed run never touches the previous artifact.
//
// Orchestrator lazily loads the persisted model (at most once per process
// unless retrained) and serves per-ingredient forecasts. When no model or
// no history is available it degrades to a deterministic synthetic
// forecast, tagged with an explicit Source and Reason so callers can tell
// a degraded response from a real one.
//
// DETERMINISM:
//
// All randomness (weight init, dropout, synthetic noise) flows from
// caller-supplied seeds. Two calls with unchanged model, history and seed
// produce identical output.
package forecast
