// Package store persists training runs to disk. Each run is identified by
// a timestamp and lays out its artifacts as gob-encoded models and
// pipeline state plus JSON weight and configuration snapshots.
package store

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/zyztek/sardinai/internal/config"
	"github.com/zyztek/sardinai/internal/ensemble"
	"github.com/zyztek/sardinai/internal/models"
	"github.com/zyztek/sardinai/internal/pipeline"
)

// ErrNotFound is wrapped into errors for missing run artifacts.
var ErrNotFound = errors.New("artifact not found")

func init() {
	gob.Register(&models.RandomForest{})
	gob.Register(&models.GradientBoost{})
}

// FileStore implements ensemble.ArtifactStore on a base directory.
type FileStore struct {
	dir    string
	logger *zap.SugaredLogger
	now    func() time.Time
}

// New creates a FileStore rooted at dir. The directory tree is created
// lazily on the first Save.
func New(dir string, logger *zap.SugaredLogger) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: logger,
		now:    time.Now,
	}
}

// Save writes all run artifacts and returns the assigned run identifier.
func (f *FileStore) Save(arts ensemble.Artifacts) (string, error) {
	runID := f.now().Format("20060102_150405")

	modelsDir := filepath.Join(f.dir, "models")
	scalersDir := filepath.Join(f.dir, "scalers")
	for _, dir := range []string{modelsDir, scalersDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}

	for name, m := range arts.Models {
		path := filepath.Join(modelsDir, fmt.Sprintf("%s_%s.gob", name, runID))
		if err := writeGob(path, &m); err != nil {
			return "", err
		}
	}
	if err := writeGob(filepath.Join(scalersDir, fmt.Sprintf("standard_%s.gob", runID)), arts.Pipeline); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(modelsDir, fmt.Sprintf("ensemble_weights_%s.json", runID)), arts.Weights); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(modelsDir, fmt.Sprintf("config_%s.json", runID)), arts.Config); err != nil {
		return "", err
	}

	f.logger.Infow("Persisted training run",
		"run_id", runID,
		"models", len(arts.Models),
		"dir", f.dir,
	)
	return runID, nil
}

// Load restores the artifacts of a run. The weights snapshot names the
// stored model identities, so it is read first.
func (f *FileStore) Load(runID string) (ensemble.Artifacts, error) {
	modelsDir := filepath.Join(f.dir, "models")

	var weights map[string]float64
	if err := readJSON(filepath.Join(modelsDir, fmt.Sprintf("ensemble_weights_%s.json", runID)), &weights); err != nil {
		return ensemble.Artifacts{}, err
	}

	mods := make(map[string]models.Regressor, len(weights))
	for name := range weights {
		path := filepath.Join(modelsDir, fmt.Sprintf("%s_%s.gob", name, runID))
		var m models.Regressor
		if err := readGob(path, &m); err != nil {
			return ensemble.Artifacts{}, err
		}
		mods[name] = m
	}

	var pipeState pipeline.State
	if err := readGob(filepath.Join(f.dir, "scalers", fmt.Sprintf("standard_%s.gob", runID)), &pipeState); err != nil {
		return ensemble.Artifacts{}, err
	}

	var cfg config.Config
	if err := readJSON(filepath.Join(modelsDir, fmt.Sprintf("config_%s.json", runID)), &cfg); err != nil {
		return ensemble.Artifacts{}, err
	}

	f.logger.Infow("Loaded training run", "run_id", runID, "models", len(mods))
	return ensemble.Artifacts{
		Models:   mods,
		Pipeline: pipeState,
		Weights:  weights,
		Config:   cfg,
	}, nil
}

func writeGob(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := gob.NewEncoder(file).Encode(v); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}

func readGob(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
