// Package config defines the pipeline configuration surface of §6 and its
// YAML/viper-backed loader.
package config

import (
	"fmt"

	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/result"
	"github.com/aherbert/gdsc-sub001/internal/stats"
)

// Options is the §6 options bitmask, expanded into named booleans since
// the config surface is YAML-backed rather than wire-packed.
type Options struct {
	MinimumAboveSaddle    bool `mapstructure:"minimum_above_saddle" yaml:"minimum_above_saddle"`
	ContiguousAboveSaddle bool `mapstructure:"contiguous_above_saddle" yaml:"contiguous_above_saddle"`
	RemoveEdgeMaxima      bool `mapstructure:"remove_edge_maxima" yaml:"remove_edge_maxima"`
	StatsInside           bool `mapstructure:"stats_inside" yaml:"stats_inside"`
	StatsOutside          bool `mapstructure:"stats_outside" yaml:"stats_outside"`
}

// OutputType selects which artefacts the pipeline assembles besides the
// peak list itself.
type OutputType struct {
	Mask          bool `mapstructure:"mask" yaml:"mask"`
	MarkMaximum   bool `mapstructure:"mark_maximum" yaml:"mark_maximum"`
	RenderBorders bool `mapstructure:"render_borders" yaml:"render_borders"`
}

// Config mirrors the §6 configuration surface. String-valued enum fields
// are validated and resolved by Validate/Resolve rather than bound
// directly to the typed enums, so a YAML file can name methods by their
// conventional upper-snake identifiers.
type Config struct {
	BackgroundMethod    string  `mapstructure:"background_method" yaml:"background_method"`
	BackgroundParameter float64 `mapstructure:"background_parameter" yaml:"background_parameter"`
	AutoThresholdMethod string  `mapstructure:"auto_threshold_method" yaml:"auto_threshold_method"`

	SearchMethod    string  `mapstructure:"search_method" yaml:"search_method"`
	SearchParameter float64 `mapstructure:"search_parameter" yaml:"search_parameter"`

	MaxPeaks int   `mapstructure:"max_peaks" yaml:"max_peaks"`
	MinSize  int64 `mapstructure:"min_size" yaml:"min_size"`

	PeakMethod    string  `mapstructure:"peak_method" yaml:"peak_method"`
	PeakParameter float64 `mapstructure:"peak_parameter" yaml:"peak_parameter"`

	OutputType OutputType `mapstructure:"output_type" yaml:"output_type"`
	MaskMode   string     `mapstructure:"mask_mode" yaml:"mask_mode"`
	SortIndex  string     `mapstructure:"sort_index" yaml:"sort_index"`
	Options    Options    `mapstructure:"options" yaml:"options"`

	Blur float64 `mapstructure:"blur" yaml:"blur"`

	CentreMethod      string  `mapstructure:"centre_method" yaml:"centre_method"`
	CentreParameter   float64 `mapstructure:"centre_parameter" yaml:"centre_parameter"`
	FractionParameter float64 `mapstructure:"fraction_parameter" yaml:"fraction_parameter"`

	IntegerImage bool `mapstructure:"integer_image" yaml:"integer_image"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the out-of-the-box configuration: no background
// subtraction, no merging, MAX_VALUE centres, intensity sort.
func DefaultConfig() Config {
	return Config{
		BackgroundMethod: "NONE",
		SearchMethod:     "ABOVE_BACKGROUND",
		MaxPeaks:         0,
		MinSize:          1,
		PeakMethod:       "ABSOLUTE",
		PeakParameter:    0,
		MaskMode:         "ABOVE_SADDLE",
		SortIndex:        "INTENSITY",
		CentreMethod:     "MAX_VALUE_SEARCH",
		LogLevel:         "info",
		IntegerImage:     true,
		Options: Options{
			StatsInside: true,
		},
	}
}

var backgroundMethods = map[string]stats.BackgroundMethod{
	"NONE":                stats.BackgroundNone,
	"ABSOLUTE":            stats.BackgroundAbsolute,
	"AUTO_THRESHOLD":      stats.BackgroundAutoThreshold,
	"MEAN":                stats.BackgroundMean,
	"STD_DEV_ABOVE_MEAN":  stats.BackgroundStdDevAboveMean,
	"MIN_ROI":             stats.BackgroundMinROI,
}

var searchMethods = map[string]stats.SearchMethod{
	"ABOVE_BACKGROUND":                   stats.SearchAboveBackground,
	"FRACTION_OF_PEAK_MINUS_BACKGROUND":  stats.SearchFractionOfPeakMinusBackground,
	"HALF_PEAK_VALUE":                    stats.SearchHalfPeakValue,
}

var peakMethods = map[string]stats.PeakHeightMethod{
	"ABSOLUTE":                   stats.PeakHeightAbsolute,
	"RELATIVE":                   stats.PeakHeightRelative,
	"RELATIVE_ABOVE_BACKGROUND": stats.PeakHeightRelativeAboveBackground,
}

var sortKeys = map[string]result.SortKey{
	"INTENSITY":                  result.SortIntensity,
	"INTENSITY_ABOVE_BACKGROUND": result.SortIntensityAboveBackground,
	"COUNT":                      result.SortCount,
	"MAX_VALUE":                  result.SortMaxValue,
	"AVERAGE":                    result.SortAverageIntensity,
	"SADDLE_HEIGHT":               result.SortSaddleHeight,
	"COUNT_ABOVE_SADDLE":          result.SortCountAboveSaddle,
	"INTENSITY_ABOVE_SADDLE":      result.SortIntensityAboveSaddle,
	"ABSOLUTE_HEIGHT":             result.SortAbsoluteHeight,
	"RELATIVE_HEIGHT":             result.SortRelativeHeight,
	"XYZ":                         result.SortXYZ,
	"PEAK_ID":                     result.SortPeakID,
}

// maskModes resolves the §6 mask rasterization mode names to their typed
// result.RasterMode. ABOVE_SADDLE paints every voxel above a peak's
// highest saddle; FRACTION_OF_INTENSITY and FRACTION_OF_HEIGHT both use
// fraction_parameter but against different baselines (see
// result.Rasterize); THRESHOLDED delegates to an injected per-voxel
// collaborator.
var maskModes = map[string]result.RasterMode{
	"ABOVE_SADDLE":          result.RasterAboveSaddle,
	"FRACTION_OF_INTENSITY": result.RasterFractionOfIntensity,
	"FRACTION_OF_HEIGHT":    result.RasterFractionOfHeight,
	"THRESHOLDED":           result.RasterThresholded,
}

var centreMethods = map[string]struct {
	Method result.CentroidMethod
	UseOriginal bool
}{
	"MAX_VALUE_SEARCH":       {result.CentroidMaxValue, false},
	"MAX_VALUE_ORIGINAL":     {result.CentroidMaxValue, true},
	"CENTRE_OF_MASS_SEARCH":  {result.CentroidCentreOfMass, false},
	"CENTRE_OF_MASS_ORIGINAL": {result.CentroidCentreOfMass, true},
	"GAUSSIAN_SEARCH":        {result.CentroidGaussianFit, false},
	"GAUSSIAN_ORIGINAL":      {result.CentroidGaussianFit, true},
}

// Validate checks enum membership, mutually exclusive options, and
// numeric ranges (§7 InvalidConfiguration).
func (c Config) Validate() error {
	if _, ok := backgroundMethods[c.BackgroundMethod]; !ok {
		return fmt.Errorf("%w: unknown background_method %q", focierr.ErrInvalidConfiguration, c.BackgroundMethod)
	}
	if _, ok := searchMethods[c.SearchMethod]; !ok {
		return fmt.Errorf("%w: unknown search_method %q", focierr.ErrInvalidConfiguration, c.SearchMethod)
	}
	if _, ok := peakMethods[c.PeakMethod]; !ok {
		return fmt.Errorf("%w: unknown peak_method %q", focierr.ErrInvalidConfiguration, c.PeakMethod)
	}
	if _, ok := sortKeys[c.SortIndex]; !ok {
		return fmt.Errorf("%w: unknown sort_index %q", focierr.ErrInvalidConfiguration, c.SortIndex)
	}
	if _, ok := centreMethods[c.CentreMethod]; !ok {
		return fmt.Errorf("%w: unknown centre_method %q", focierr.ErrInvalidConfiguration, c.CentreMethod)
	}
	if _, ok := maskModes[c.MaskMode]; !ok {
		return fmt.Errorf("%w: unknown mask_mode %q", focierr.ErrInvalidConfiguration, c.MaskMode)
	}
	if c.BackgroundMethod == "AUTO_THRESHOLD" && c.AutoThresholdMethod == "" {
		return fmt.Errorf("%w: auto_threshold_method required when background_method is AUTO_THRESHOLD", focierr.ErrInvalidConfiguration)
	}
	if c.Options.StatsInside && c.Options.StatsOutside {
		return fmt.Errorf("%w: stats_inside and stats_outside are mutually exclusive", focierr.ErrInvalidConfiguration)
	}
	if c.MinSize < 0 {
		return fmt.Errorf("%w: min_size must be >= 0", focierr.ErrInvalidConfiguration)
	}
	if c.MaxPeaks < 0 {
		return fmt.Errorf("%w: max_peaks must be >= 0", focierr.ErrInvalidConfiguration)
	}
	if c.Blur < 0 {
		return fmt.Errorf("%w: blur must be >= 0", focierr.ErrInvalidConfiguration)
	}
	return nil
}

// Resolved is Config with every enum resolved to its typed internal
// representation, ready for the orchestrator to consume.
type Resolved struct {
	BackgroundMethod    stats.BackgroundMethod
	BackgroundParameter float64
	AutoThresholdMethod string

	SearchMethod    stats.SearchMethod
	SearchParameter float64

	MaxPeaks int
	MinSize  int64

	PeakMethod    stats.PeakHeightMethod
	PeakParameter float64

	OutputType OutputType
	MaskMode   result.RasterMode
	SortIndex  result.SortKey
	Options    Options

	Blur float64

	CentreMethod    result.CentroidMethod
	CentreOriginal  bool
	CentreParameter float64

	FractionParameter float64
	IntegerImage      bool
}

// Resolve validates and converts c into its Resolved form.
func Resolve(c Config) (Resolved, error) {
	if err := c.Validate(); err != nil {
		return Resolved{}, err
	}
	centre := centreMethods[c.CentreMethod]
	return Resolved{
		BackgroundMethod:    backgroundMethods[c.BackgroundMethod],
		BackgroundParameter: c.BackgroundParameter,
		AutoThresholdMethod: c.AutoThresholdMethod,
		SearchMethod:        searchMethods[c.SearchMethod],
		SearchParameter:     c.SearchParameter,
		MaxPeaks:            c.MaxPeaks,
		MinSize:             c.MinSize,
		PeakMethod:          peakMethods[c.PeakMethod],
		PeakParameter:       c.PeakParameter,
		OutputType:          c.OutputType,
		MaskMode:            maskModes[c.MaskMode],
		SortIndex:           sortKeys[c.SortIndex],
		Options:             c.Options,
		Blur:                c.Blur,
		CentreMethod:        centre.Method,
		CentreOriginal:      centre.UseOriginal,
		CentreParameter:     c.CentreParameter,
		FractionParameter:   c.FractionParameter,
		IntegerImage:        c.IntegerImage,
	}, nil
}
