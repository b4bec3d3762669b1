package ensemble

import (
	"fmt"

	"github.com/zyztek/sardinai/internal/config"
	"github.com/zyztek/sardinai/internal/models"
	"github.com/zyztek/sardinai/internal/pipeline"
)

// Artifacts is everything persisted for one training run.
type Artifacts struct {
	Models   map[string]models.Regressor
	Pipeline pipeline.State
	Weights  map[string]float64
	Config   config.Config
}

// ArtifactStore saves and restores training runs.
type ArtifactStore interface {
	// Save persists the artifacts and returns the run identifier.
	Save(arts Artifacts) (string, error)
	// Load restores the artifacts of a previous run.
	Load(runID string) (Artifacts, error)
}

// Save persists the fitted models, pipeline state, weights and the active
// configuration, returning the run identifier assigned by the store.
func (p *Predictor) Save(store ArtifactStore) (string, error) {
	st := p.snapshot()
	if st == nil {
		return "", ErrNotFitted
	}
	pipeState, err := st.pipe.State()
	if err != nil {
		return "", err
	}

	mods := make(map[string]models.Regressor, st.registry.Len())
	for _, name := range st.registry.Names() {
		m, _ := st.registry.Get(name)
		mods[name] = m
	}

	runID, err := store.Save(Artifacts{
		Models:   mods,
		Pipeline: pipeState,
		Weights:  copyWeights(st.weights),
		Config:   p.cfg,
	})
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	p.logger.Infow("Saved ensemble artifacts", "run_id", runID)
	return runID, nil
}

// Load restores a previous run and installs it as the active state. The
// stored models must cover exactly the configured learner identities.
func (p *Predictor) Load(store ArtifactStore, runID string) error {
	arts, err := store.Load(runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}

	reg, err := buildRegistry(p.cfg)
	if err != nil {
		return err
	}
	if len(arts.Models) != reg.Len() {
		return fmt.Errorf("run %s has %d models, expected %d", runID, len(arts.Models), reg.Len())
	}
	for name, m := range arts.Models {
		if m.Name() != name {
			return fmt.Errorf("run %s: model stored as %q reports identity %q", runID, name, m.Name())
		}
		if err := reg.Replace(m); err != nil {
			return fmt.Errorf("run %s: %w", runID, err)
		}
	}

	p.mu.Lock()
	p.state = &fittedState{
		registry: reg,
		pipe:     pipeline.FromState(p.logger, arts.Pipeline),
		weights:  arts.Weights,
		scores:   map[string]ModelScore{},
	}
	p.mu.Unlock()

	p.metrics.observeWeights(arts.Weights)
	p.logger.Infow("Loaded ensemble artifacts", "run_id", runID)
	return nil
}
