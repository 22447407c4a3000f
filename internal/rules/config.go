package rules

import (
	"fmt"

	"github.com/siftd/sift/internal/common"
)

// Config mirrors the rule configuration file. Categories are a list rather
// than a map so declaration order survives decoding; keyword tie-breaks
// depend on it.
type Config struct {
	Categories []CategoryConfig `mapstructure:"categories"`
	Validation ValidationConfig `mapstructure:"validation"`
	Settings   SettingsConfig   `mapstructure:"settings"`
}

// CategoryConfig declares one category with its match lists.
type CategoryConfig struct {
	Name      string   `mapstructure:"name"`
	Keywords  []string `mapstructure:"keywords"`
	Merchants []string `mapstructure:"merchants"`
}

// ValidationConfig declares the three fixed rule layers of the validation
// pipeline.
type ValidationConfig struct {
	MerchantRanges     map[string]RangeConfig     `mapstructure:"merchant_ranges"`
	CategoryThresholds map[string]ThresholdConfig `mapstructure:"category_thresholds"`
	GlobalBands        []BandConfig               `mapstructure:"global_bands"`
}

// RangeConfig is an authoritative per-merchant amount range.
type RangeConfig struct {
	MinAmount     float64 `mapstructure:"min_amount"`
	MaxAmount     float64 `mapstructure:"max_amount"`
	BillingCycles int     `mapstructure:"billing_cycles"`
}

// ThresholdConfig is an advisory per-category amount range.
type ThresholdConfig struct {
	MinAmount float64 `mapstructure:"min_amount"`
	MaxAmount float64 `mapstructure:"max_amount"`
}

// BandConfig is one amount band for tier-3 validation. Upper == 0 marks the
// open-ended final band.
type BandConfig struct {
	Label  string  `mapstructure:"label"`
	Lower  float64 `mapstructure:"lower"`
	Upper  float64 `mapstructure:"upper"`
	MaxCap float64 `mapstructure:"max_cap"`
}

// SettingsConfig decodes the settings section. Pointer fields distinguish an
// explicit zero from an omitted value; only omitted values take the default.
type SettingsConfig struct {
	FuzzyMatchThreshold *int     `mapstructure:"fuzzy_match_threshold"`
	OutlierMultiplier   *float64 `mapstructure:"outlier_multiplier"`
	RetentionYears      *int     `mapstructure:"retention_years"`
	AllowFuture         bool     `mapstructure:"allow_future"`
}

// Settings holds the resolved tunables consumed by the matcher and validation
// tiers.
type Settings struct {
	FuzzyMatchThreshold int
	OutlierMultiplier   float64
	RetentionYears      int
	AllowFuture         bool
}

// Setting defaults applied when the config omits a value.
const (
	DefaultFuzzyMatchThreshold = 80
	DefaultOutlierMultiplier   = 3.0
	DefaultRetentionYears      = 5
)

func (c SettingsConfig) resolve() Settings {
	s := Settings{
		FuzzyMatchThreshold: DefaultFuzzyMatchThreshold,
		OutlierMultiplier:   DefaultOutlierMultiplier,
		RetentionYears:      DefaultRetentionYears,
		AllowFuture:         c.AllowFuture,
	}
	if c.FuzzyMatchThreshold != nil {
		s.FuzzyMatchThreshold = *c.FuzzyMatchThreshold
	}
	if c.OutlierMultiplier != nil {
		s.OutlierMultiplier = *c.OutlierMultiplier
	}
	if c.RetentionYears != nil {
		s.RetentionYears = *c.RetentionYears
	}
	return s
}

func (s Settings) validate() error {
	if s.FuzzyMatchThreshold < 0 || s.FuzzyMatchThreshold > 100 {
		return fmt.Errorf("%w: fuzzy_match_threshold must be 0-100, got %d",
			common.ErrInvalidConfig, s.FuzzyMatchThreshold)
	}
	if s.OutlierMultiplier < 0 {
		return fmt.Errorf("%w: outlier_multiplier must not be negative",
			common.ErrInvalidConfig)
	}
	if s.RetentionYears < 0 {
		return fmt.Errorf("%w: retention_years must not be negative",
			common.ErrInvalidConfig)
	}
	return nil
}
