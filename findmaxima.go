// Package findmaxima is the public entry point of the watershed-with-merging
// peak finder: FindMaxima wires the staged pipeline (internal/pipeline),
// configuration (internal/config), and default collaborators into a
// single call, while StagedRun exposes the underlying orchestrator for
// callers that want to re-run only downstream stages.
package findmaxima

import (
	"context"
	"fmt"

	"github.com/aherbert/gdsc-sub001/internal/collab"
	"github.com/aherbert/gdsc-sub001/internal/collab/gocvblur"
	"github.com/aherbert/gdsc-sub001/internal/config"
	"github.com/aherbert/gdsc-sub001/internal/gaussianfit"
	"github.com/aherbert/gdsc-sub001/internal/logger"
	"github.com/aherbert/gdsc-sub001/internal/pipeline"
	"github.com/aherbert/gdsc-sub001/internal/threshold"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Result re-exports pipeline.Result so callers need not import the
// internal package directly.
type Result = pipeline.Result

// Options configures a single-shot FindMaxima call.
type Options struct {
	Config          config.Config
	ROI             collab.ROI
	Mask            collab.Mask
	RasterThreshold collab.RasterThreshold
	Capacity        int
	Interrupted     func() bool
	Log             logger.Logger
	// DisableGaussianFit permanently disables the GAUSSIAN centre
	// methods, falling back to MAX_VALUE per §6.
	DisableGaussianFit bool
}

// DefaultCapacity bounds the number of seed maxima a single run accepts
// before failing with ErrCapacityExceeded; large enough for any
// microscopy field of view, small enough to fail fast on pure noise.
const DefaultCapacity = 1 << 20

// FindMaxima runs the full Init→Search→Merge(Height)→Merge(Size)→
// Merge(AboveSaddle)→Final pipeline over src and returns the surviving
// peaks, statistics, and (if requested) a rasterized label volume.
func FindMaxima(ctx context.Context, src voxel.Source, opts Options) (Result, error) {
	resolved, err := config.Resolve(opts.Config)
	if err != nil {
		return Result{}, err
	}

	registry := threshold.NewRegistry()
	collaborators := pipeline.Collaborators{
		Blur:            gocvblur.New(),
		AutoThreshold:   registry.Threshold,
		ROI:             opts.ROI,
		Mask:            opts.Mask,
		RasterThreshold: opts.RasterThreshold,
	}
	if !opts.DisableGaussianFit {
		collaborators.GaussianFit = gaussianfit.New()
	}

	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	orch := pipeline.New(collaborators, opts.Log)
	result, err := orch.FindMaxima(ctx, src, resolved, capacity, opts.Interrupted)
	if err != nil {
		return Result{}, fmt.Errorf("findmaxima: %w", err)
	}
	return result, nil
}

// StagedRun exposes the underlying orchestrator for callers that want to
// drive Init/Search/MergeHeight/MergeSize/MergeAboveSaddle/Final
// individually (e.g. a GUI re-running only the merge stages after a
// parameter tweak).
func StagedRun(collaborators pipeline.Collaborators, log logger.Logger) *pipeline.Orchestrator {
	return pipeline.New(collaborators, log)
}

// NewRegistry returns a stats.AutoThreshold-compatible registry
// pre-populated with the standard auto-threshold strategies, for callers
// assembling their own Collaborators value.
func NewRegistry() *threshold.Registry { return threshold.NewRegistry() }
