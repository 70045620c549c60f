package stats

import "math"

// BackgroundMethod selects how the background threshold is resolved (§4.6).
type BackgroundMethod int

const (
	BackgroundNone BackgroundMethod = iota
	BackgroundAbsolute
	BackgroundAutoThreshold
	BackgroundMean
	BackgroundStdDevAboveMean
	BackgroundMinROI
)

// SearchMethod selects the per-peak search-threshold tolerance (§4.6).
type SearchMethod int

const (
	SearchAboveBackground SearchMethod = iota
	SearchFractionOfPeakMinusBackground
	SearchHalfPeakValue
)

// PeakHeightMethod selects the minimum-prominence formula (§4.6).
type PeakHeightMethod int

const (
	PeakHeightAbsolute PeakHeightMethod = iota
	PeakHeightRelative
	PeakHeightRelativeAboveBackground
)

// AutoThreshold resolves an auto-threshold strategy name to a bin index
// over a histogram. Implementations are registered externally (§6,
// internal/threshold) and injected here, never held in process-wide state
// (§9 "Global configuration registries").
type AutoThreshold func(name string, hist Histogram) (bin int, err error)

// Background resolves the background threshold for method/param, given
// the region statistics and (for AUTO_THRESHOLD) an injected strategy and
// the configured method name.
func Background(method BackgroundMethod, param float64, region Statistics, auto AutoThreshold, autoName string) (float64, error) {
	switch method {
	case BackgroundAbsolute:
		if param < 0 {
			return 0, nil
		}
		return param, nil
	case BackgroundAutoThreshold:
		bin, err := auto(autoName, region.hist)
		if err != nil {
			return 0, err
		}
		return region.hist.Value(bin), nil
	case BackgroundMean:
		return region.Mean, nil
	case BackgroundStdDevAboveMean:
		if param < 0 {
			param = 0
		}
		return region.Mean + param*region.StdDev, nil
	case BackgroundMinROI:
		return region.Min, nil
	default: // BackgroundNone
		return 0, nil
	}
}

// SearchThreshold computes τ_p, the per-peak level below which growth for
// peak p stops (§4.5 "Search-threshold pruning", §4.6).
func SearchThreshold(method SearchMethod, param, background, peakMax float64) float64 {
	switch method {
	case SearchFractionOfPeakMinusBackground:
		return background + param*(peakMax-background)
	case SearchHalfPeakValue:
		return background + 0.5*(peakMax-background)
	default: // SearchAboveBackground
		return background
	}
}

// PeakHeight computes h_p, the minimum prominence required to survive
// the height merge pass (§4.6, §4.9 Pass H).
func PeakHeight(method PeakHeightMethod, param, background, peakMax float64, integer bool) float64 {
	var h float64
	switch method {
	case PeakHeightRelative:
		h = param * peakMax
	case PeakHeightRelativeAboveBackground:
		h = param * (peakMax - background)
	default: // PeakHeightAbsolute
		h = param
	}
	if integer {
		h = math.Round(h)
		if h < 1 {
			h = 1
		}
	}
	return h
}
