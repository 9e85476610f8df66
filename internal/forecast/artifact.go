package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// artifactVersion tracks the serialized layout.
// 1 - Initial layout
const artifactVersion = 1

// ErrArtifactNotFound reports that no model artifact exists yet. Callers
// fall back to synthetic forecasting; this is the normal state before the
// first training run.
var ErrArtifactNotFound = errors.New("model artifact not found")

// ModelLoadError reports a present but unusable artifact: corrupt bytes or
// a shape incompatible with the configured hyperparameters. Callers must
// fall back rather than crash.
type ModelLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ModelLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load model %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load model %s: %s", e.Path, e.Reason)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// tensorParams serializes one weight matrix with its bias.
type tensorParams struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	W    []float64 `json:"w"`
	B    []float64 `json:"b"`
}

// ModelParameters is the persisted form of a trained SequenceForecaster:
// trained weights plus the architecture hyperparameters they belong to.
// Owned exclusively by this package.
type ModelParameters struct {
	Version     int             `json:"version"`
	Hyper       Hyperparameters `json:"hyperparameters"`
	TargetScale float64         `json:"target_scale"`
	LSTM        []tensorParams  `json:"lstm"`
	Dense       []tensorParams  `json:"dense"`
}

// SaveArtifact atomically replaces the artifact at path with the model's
// parameters. Writes to a temp file in the same directory then renames, so
// a crash mid-write never corrupts the previous usable artifact.
func SaveArtifact(path string, m *SequenceForecaster) error {
	params := ModelParameters{
		Version:     artifactVersion,
		Hyper:       m.hp,
		TargetScale: m.outputScale,
	}
	for _, cell := range m.cells {
		params.LSTM = append(params.LSTM, tensorParams{
			Rows: cell.w.rows, Cols: cell.w.cols,
			W: cell.w.data, B: cell.b,
		})
	}
	for _, layer := range m.dense {
		params.Dense = append(params.Dense, tensorParams{
			Rows: layer.w.rows, Cols: layer.w.cols,
			W: layer.w.data, B: layer.b,
		})
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after successful rename

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(params); err != nil {
		tmp.Close()
		return fmt.Errorf("save model: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save model: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save model: rename: %w", err)
	}
	return nil
}

// LoadArtifact reads the artifact at path and reconstructs a model with
// the expected hyperparameters.
//
// Returns ErrArtifactNotFound when no artifact exists, and *ModelLoadError
// when the artifact is corrupt or its shapes do not match want.
func LoadArtifact(path string, want Hyperparameters) (*SequenceForecaster, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, &ModelLoadError{Path: path, Reason: "open failed", Err: err}
	}
	defer f.Close()

	var params ModelParameters
	if err := json.NewDecoder(f).Decode(&params); err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "corrupt artifact", Err: err}
	}
	if params.Version != artifactVersion {
		return nil, &ModelLoadError{Path: path, Reason: fmt.Sprintf("unsupported artifact version %d", params.Version)}
	}
	if params.Hyper != want {
		return nil, &ModelLoadError{Path: path, Reason: fmt.Sprintf("hyperparameters %+v incompatible with configured %+v", params.Hyper, want)}
	}
	if params.TargetScale <= 0 {
		return nil, &ModelLoadError{Path: path, Reason: "non-positive target scale"}
	}

	model, err := NewSequenceForecaster(want, 0)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Reason: "rebuild model", Err: err}
	}
	model.outputScale = params.TargetScale

	if len(params.LSTM) != len(model.cells) || len(params.Dense) != len(model.dense) {
		return nil, &ModelLoadError{Path: path, Reason: "layer count mismatch"}
	}
	for l, cell := range model.cells {
		t := params.LSTM[l]
		if t.Rows != cell.w.rows || t.Cols != cell.w.cols ||
			len(t.W) != len(cell.w.data) || len(t.B) != len(cell.b) {
			return nil, &ModelLoadError{Path: path, Reason: fmt.Sprintf("lstm layer %d shape mismatch", l)}
		}
		copy(cell.w.data, t.W)
		copy(cell.b, t.B)
	}
	for l, layer := range model.dense {
		t := params.Dense[l]
		if t.Rows != layer.w.rows || t.Cols != layer.w.cols ||
			len(t.W) != len(layer.w.data) || len(t.B) != len(layer.b) {
			return nil, &ModelLoadError{Path: path, Reason: fmt.Sprintf("dense layer %d shape mismatch", l)}
		}
		copy(layer.w.data, t.W)
		copy(layer.b, t.B)
	}
	return model, nil
}
