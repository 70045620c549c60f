// Package pipeline implements C11: the staged orchestrator that sequences
// C4 through C10, polling for cancellation between stages and reporting
// stage timings/outcomes as Prometheus metrics.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aherbert/gdsc-sub001/internal/collab"
	"github.com/aherbert/gdsc-sub001/internal/config"
	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/geometry"
	"github.com/aherbert/gdsc-sub001/internal/logger"
	"github.com/aherbert/gdsc-sub001/internal/maxima"
	"github.com/aherbert/gdsc-sub001/internal/merge"
	"github.com/aherbert/gdsc-sub001/internal/mask"
	"github.com/aherbert/gdsc-sub001/internal/peak"
	"github.com/aherbert/gdsc-sub001/internal/region"
	"github.com/aherbert/gdsc-sub001/internal/result"
	"github.com/aherbert/gdsc-sub001/internal/saddle"
	"github.com/aherbert/gdsc-sub001/internal/stats"
	"github.com/aherbert/gdsc-sub001/internal/voxel"
)

// Collaborators bundles the external-contract implementations of §6 that
// the orchestrator injects into the core; any field may be nil when the
// corresponding feature is unused.
type Collaborators struct {
	Blur            collab.BlurProvider
	AutoThreshold   stats.AutoThreshold
	GaussianFit     collab.GaussianFitStrategy
	ROI             collab.ROI
	Mask            collab.Mask
	RasterThreshold collab.RasterThreshold
}

// Result is the returned artefact set of §6: the peak list, statistics,
// and an optional rasterized label volume.
type Result struct {
	RunID      string
	Peaks      []*peak.Record
	Statistics stats.Statistics
	Mask       *result.Volume
}

// State threads the mutable buffers and intermediate artefacts between
// stages (§4.11), so a caller re-running only downstream stages (e.g. a
// GUI tweaking merge parameters) can reuse Init/Search output unchanged.
type State struct {
	RunID string
	Grid  geometry.Grid

	cfg    config.Resolved
	collab Collaborators
	log    logger.Logger

	original voxel.Source
	search   voxel.Source // blurred buffer when cfg.Blur > 0, else == original

	Flags  voxel.Flags
	Labels voxel.Labels

	Statistics stats.Statistics
	Background float64
	Threshold  float64

	Peaks  []*peak.Record
	merger *merge.Merger
}

// New builds an orchestrator bound to the given collaborators and logger.
// A nil logger disables logging.
func New(collaborators Collaborators, log logger.Logger) *Orchestrator {
	return &Orchestrator{collab: collaborators, log: log}
}

// Orchestrator drives the staged pipeline.
type Orchestrator struct {
	collab Collaborators
	log    logger.Logger
}

func logInfo(log logger.Logger, component, msg string, fields map[string]interface{}) {
	if log != nil {
		log.Info(component, msg, fields)
	}
}

// observe times a stage, records it in the stage-duration histogram, and
// polls ctx for cancellation on return.
func observe(ctx context.Context, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return focierr.ErrCancelled
	default:
		return nil
	}
}

// Init is the first stage (§4.11): builds the exclusion mask, the
// background-inclusion histogram, resolves background/search thresholds,
// and (if cfg.Blur > 0) produces the blurred search buffer.
func (o *Orchestrator) Init(ctx context.Context, src voxel.Source, cfg config.Resolved) (*State, error) {
	s := &State{
		RunID:    uuid.NewString(),
		Grid:     src.Grid(),
		cfg:      cfg,
		collab:   o.collab,
		original: src,
	}
	s.log = o.log
	if o.log != nil {
		s.log = o.log.With(map[string]interface{}{"run_id": s.RunID})
	}

	err := observe(ctx, "init", func() error {
		s.Flags = voxel.NewFlags(s.Grid)
		s.Labels = voxel.NewLabels(s.Grid)

		if _, err := mask.Apply(s.Grid, s.Flags, o.collab.ROI, o.collab.Mask); err != nil {
			return err
		}

		inc := stats.InclusionAll
		if cfg.Options.StatsInside {
			inc = stats.InclusionInside
		} else if cfg.Options.StatsOutside {
			inc = stats.InclusionOutside
		}
		hist := stats.Build(src, s.Flags, inc)
		s.Statistics = stats.Compute(src, s.Flags, inc, hist)

		bg, err := stats.Background(cfg.BackgroundMethod, cfg.BackgroundParameter, s.Statistics, o.collab.AutoThreshold, cfg.AutoThresholdMethod)
		if err != nil {
			return fmt.Errorf("resolving background: %w", err)
		}
		s.Background = bg

		s.search = src
		if cfg.Blur > 0 {
			if o.collab.Blur == nil {
				return fmt.Errorf("%w: blur requested but no BlurProvider configured", focierr.ErrInvalidConfiguration)
			}
			raw, ok := src.(*voxel.Buffer)
			if !ok {
				return fmt.Errorf("%w: blur requires an in-memory voxel.Buffer source", focierr.ErrInvalidConfiguration)
			}
			blurred, err := o.collab.Blur.Blur(raw.Raw(), s.Grid.Width, s.Grid.Height, s.Grid.Depth, cfg.Blur)
			if err != nil {
				return fmt.Errorf("blurring: %w", err)
			}
			s.search = voxel.NewBuffer(s.Grid, 0, blurred)
		}
		return nil
	})
	if err != nil {
		runsTotal.WithLabelValues("init", "error").Inc()
		return nil, err
	}

	logInfo(s.log, "pipeline", "init complete", map[string]interface{}{"background": s.Background})
	return s, nil
}

// Search is C5+C6+C7+C8's initial totals: seed maxima, grow regions,
// build the saddle graph, and compute count/intensity per peak.
func (o *Orchestrator) Search(ctx context.Context, s *State, capacity int, interrupted func() bool) error {
	return observe(ctx, "search", func() error {
		imageMin := s.Statistics.ImageMinimum
		s.Threshold = s.Background

		peaks, err := maxima.Find(s.Grid, s.search, s.Flags, s.Labels, s.Background, imageMin, capacity)
		if err != nil {
			return err
		}
		s.Peaks = peaks

		hist := stats.Build(s.search, s.Flags, stats.InclusionInside)
		backgroundBin := hist.Bin(s.Background)
		if err := region.Grow(ctx, s.Grid, s.search, s.Flags, s.Labels, hist, backgroundBin, interrupted); err != nil {
			return err
		}

		for _, p := range s.Peaks {
			tau := stats.SearchThreshold(s.cfg.SearchMethod, s.cfg.SearchParameter, s.Background, p.MaxValue)
			region.Prune(s.Grid, s.search, s.Flags, s.Labels, p, tau)
		}

		saddle.Build(s.Grid, s.Labels, s.Flags, s.Peaks, s.Background, s.search.Value)

		byID := make(map[int32]*peak.Record, len(s.Peaks))
		for _, p := range s.Peaks {
			byID[p.ID] = p
		}
		peak.InitialTotals(s.Grid, s.Labels, s.search, byID)
		peak.AboveSaddleTotals(s.Grid, s.search, s.Flags, s.Labels, byID, s.cfg.Options.ContiguousAboveSaddle)

		s.merger = merge.New(s.Peaks)
		return nil
	})
}

// MergeHeight runs Pass H (§4.9).
func (o *Orchestrator) MergeHeight(ctx context.Context, s *State) error {
	return observe(ctx, "merge_height", func() error {
		s.merger.RunHeightPass(s.cfg.PeakMethod, s.cfg.PeakParameter, s.Background, s.cfg.IntegerImage)
		return nil
	})
}

// MergeSize runs Pass S (§4.9).
func (o *Orchestrator) MergeSize(ctx context.Context, s *State) error {
	return observe(ctx, "merge_size", func() error {
		s.merger.RunSizePass(s.cfg.MinSize)
		return nil
	})
}

// MergeAboveSaddle runs the optional Pass A (§4.9), a no-op unless
// MinimumAboveSaddle is set.
func (o *Orchestrator) MergeAboveSaddle(ctx context.Context, s *State) error {
	if !s.cfg.Options.MinimumAboveSaddle {
		return nil
	}
	return observe(ctx, "merge_above_saddle", func() error {
		s.merger.RunAboveSaddlePass(s.Grid, s.search, s.Flags, s.Labels, s.MinSizeForAboveSaddle(), s.cfg.Options.ContiguousAboveSaddle)
		return nil
	})
}

// MinSizeForAboveSaddle exposes the configured minSize for the
// above-saddle pass; it is the same threshold as Pass S.
func (s *State) MinSizeForAboveSaddle() int64 { return s.cfg.MinSize }

// Final runs the optional edge-removal pass, finalises the merger,
// recomputes intensity-above baselines, refines centroids, applies the
// final derived fields, sorts, trims/renumbers, and optionally
// rasterizes a labelled volume (C9 tail + C10).
func (o *Orchestrator) Final(ctx context.Context, s *State) (Result, error) {
	var res Result
	err := observe(ctx, "final", func() error {
		if s.cfg.Options.RemoveEdgeMaxima {
			s.merger.RemoveEdge(s.Grid.Width, s.Grid.Height, s.Grid.Depth)
		}

		survivors := s.merger.Finalize(s.Labels)
		idMap := s.merger.PeakIDMap()

		byID := make(map[int32]*peak.Record, len(survivors))
		for _, p := range survivors {
			byID[p.ID] = p
		}
		peak.IntensityBaselines(s.Grid, s.search, s.Flags, s.Labels, byID, s.Background, s.Statistics.ImageMinimum)

		centroidSrc := s.search
		if s.cfg.CentreOriginal {
			centroidSrc = s.original
		}
		result.RefineCentroids(s.Grid, centroidSrc, s.Flags, s.Labels, survivors, s.cfg.CentreMethod, s.cfg.CentreParameter, o.collab.GaussianFit, s.cfg.CentreParameter != 0)

		result.FinalizeFields(survivors, s.Background)
		result.Sort(survivors, s.cfg.SortIndex, s.Background)

		survivors = result.TrimAndRenumber(survivors, s.cfg.MaxPeaks)

		// Build original-seed-id -> final-renumbered-id by composing
		// peakIdMap (seed id -> pre-trim surviving id) with the identity
		// of the pointer each seed id resolves to (already renumbered by
		// TrimAndRenumber in place).
		oldToNew := make(map[int32]int32, len(survivors))
		survivorSet := make(map[*peak.Record]bool, len(survivors))
		for _, p := range survivors {
			survivorSet[p] = true
		}
		for originalID, mapped := range idMap {
			if mapped == 0 {
				continue
			}
			if p, ok := byID[mapped]; ok && survivorSet[p] {
				oldToNew[originalID] = p.ID
			}
		}
		result.RelabelSurvivors(s.Labels, oldToNew)

		s.Peaks = survivors
		res = Result{RunID: s.RunID, Peaks: survivors, Statistics: s.Statistics}

		if s.cfg.OutputType.Mask {
			var thresholdFn func(peakID int32, voxel int) bool
			if s.collab.RasterThreshold != nil {
				thresholdFn = s.collab.RasterThreshold.Include
			}
			vol, err := result.Rasterize(s.Grid, s.search, s.Flags, s.Labels, survivors, result.RasterOptions{
				Mode:          s.cfg.MaskMode,
				FractionParam: s.cfg.FractionParameter,
				MarkMaximum:   s.cfg.OutputType.MarkMaximum,
				MaximumValue:  len(survivors) + 1,
				RenderBorders: s.cfg.OutputType.RenderBorders,
				ThresholdFn:   thresholdFn,
			})
			if err != nil {
				return err
			}
			res.Mask = &vol
		}

		peaksFound.Observe(float64(len(survivors)))
		return nil
	})
	if err != nil {
		runsTotal.WithLabelValues("final", "error").Inc()
		return Result{}, err
	}
	runsTotal.WithLabelValues("final", "ok").Inc()
	logInfo(s.log, "pipeline", "run complete", map[string]interface{}{"peaks": len(res.Peaks)})
	return res, nil
}

// FindMaxima is the single-shot entry point: runs every stage in order,
// aborting and discarding artefacts on the first error or cancellation.
func (o *Orchestrator) FindMaxima(ctx context.Context, src voxel.Source, cfg config.Resolved, capacity int, interrupted func() bool) (Result, error) {
	s, err := o.Init(ctx, src, cfg)
	if err != nil {
		return Result{}, err
	}
	if err := o.Search(ctx, s, capacity, interrupted); err != nil {
		return Result{}, err
	}
	if err := o.MergeHeight(ctx, s); err != nil {
		return Result{}, err
	}
	if err := o.MergeSize(ctx, s); err != nil {
		return Result{}, err
	}
	if err := o.MergeAboveSaddle(ctx, s); err != nil {
		return Result{}, err
	}
	return o.Final(ctx, s)
}
