package config

import (
	"errors"
	"testing"

	"github.com/aherbert/gdsc-sub001/internal/focierr"
	"github.com/aherbert/gdsc-sub001/internal/result"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"background_method", func(c *Config) { c.BackgroundMethod = "NOPE" }},
		{"search_method", func(c *Config) { c.SearchMethod = "NOPE" }},
		{"peak_method", func(c *Config) { c.PeakMethod = "NOPE" }},
		{"sort_index", func(c *Config) { c.SortIndex = "NOPE" }},
		{"centre_method", func(c *Config) { c.CentreMethod = "NOPE" }},
		{"mask_mode", func(c *Config) { c.MaskMode = "NOPE" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !errors.Is(err, focierr.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestValidateRequiresAutoThresholdMethod(t *testing.T) {
	c := DefaultConfig()
	c.BackgroundMethod = "AUTO_THRESHOLD"
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error when auto_threshold_method is unset")
	}
	c.AutoThresholdMethod = "otsu"
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil once auto_threshold_method is set", err)
	}
}

func TestValidateRejectsMutuallyExclusiveStats(t *testing.T) {
	c := DefaultConfig()
	c.Options.StatsInside = true
	c.Options.StatsOutside = true
	if err := c.Validate(); err == nil {
		t.Fatal("expected an error for stats_inside and stats_outside both set")
	}
}

func TestValidateRejectsNegativeNumerics(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min_size", func(c *Config) { c.MinSize = -1 }},
		{"max_peaks", func(c *Config) { c.MaxPeaks = -1 }},
		{"blur", func(c *Config) { c.Blur = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected an error for negative %s", tt.name)
			}
		})
	}
}

func TestResolveMapsEnumsToTypedForm(t *testing.T) {
	c := DefaultConfig()
	c.CentreMethod = "GAUSSIAN_ORIGINAL"
	resolved, err := Resolve(c)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resolved.CentreOriginal {
		t.Error("GAUSSIAN_ORIGINAL should resolve CentreOriginal to true")
	}
}

func TestResolveMapsMaskModes(t *testing.T) {
	tests := []struct {
		name string
		want result.RasterMode
	}{
		{"ABOVE_SADDLE", result.RasterAboveSaddle},
		{"FRACTION_OF_INTENSITY", result.RasterFractionOfIntensity},
		{"FRACTION_OF_HEIGHT", result.RasterFractionOfHeight},
		{"THRESHOLDED", result.RasterThresholded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.MaskMode = tt.name
			resolved, err := Resolve(c)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if resolved.MaskMode != tt.want {
				t.Errorf("MaskMode = %v, want %v", resolved.MaskMode, tt.want)
			}
		})
	}
}

func TestResolvePropagatesValidationError(t *testing.T) {
	c := DefaultConfig()
	c.SortIndex = "NOPE"
	if _, err := Resolve(c); err == nil {
		t.Fatal("expected Resolve to surface the validation error")
	}
}
