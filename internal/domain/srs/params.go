package srs

import "github.com/phrazzld/qbank-api/internal/domain"

// Params defines all configurable parameters for the SRS algorithm.
// Ease factors are fixed point, multiplied by domain.EaseFactorScale.
type Params struct {
	// Core limits
	MinEaseFactor     int
	InitialEaseFactor int

	// Quality at or above which a review counts as a successful recall
	PassingQuality domain.Quality

	// Interval ladder for the first successful repetitions
	FirstIntervalDays  int
	SecondIntervalDays int

	// Interval after a lapse
	LapseIntervalDays int

	// Upper bound for intervals; 0 disables the cap
	MaxIntervalDays int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	MinEaseFactor      int
	InitialEaseFactor  int
	FirstIntervalDays  int
	SecondIntervalDays int
	LapseIntervalDays  int
	MaxIntervalDays    int
}

// NewDefaultParams creates a new Params instance with the classic SM-2 values.
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:      130,
		InitialEaseFactor:  domain.DefaultEaseFactor,
		PassingQuality:     domain.QualityCorrectDifficult,
		FirstIntervalDays:  1,
		SecondIntervalDays: 6,
		LapseIntervalDays:  1,
		MaxIntervalDays:    0,
	}
}

// NewParams creates a new Params instance with custom configuration.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > domain.EaseFactorScale {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.InitialEaseFactor > 0 {
		params.InitialEaseFactor = config.InitialEaseFactor
	}
	if params.InitialEaseFactor < params.MinEaseFactor {
		params.InitialEaseFactor = params.MinEaseFactor
	}

	if config.FirstIntervalDays > 0 {
		params.FirstIntervalDays = config.FirstIntervalDays
	}
	if config.SecondIntervalDays > 0 {
		params.SecondIntervalDays = config.SecondIntervalDays
	}
	if params.SecondIntervalDays < params.FirstIntervalDays {
		params.SecondIntervalDays = params.FirstIntervalDays
	}
	if config.LapseIntervalDays > 0 {
		params.LapseIntervalDays = config.LapseIntervalDays
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	return params
}
