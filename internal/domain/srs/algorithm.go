package srs

import (
	"time"

	"github.com/phrazzld/qbank-api/internal/domain"
)

// easeDelta returns the SM-2 ease factor adjustment for a quality score, in hundredths.
//
// The classic formula is EF' = EF + (0.1 - (5-q) * (0.08 + (5-q) * 0.02)).
// Scaled by 100 it stays integral: q5 +10, q4 0, q3 -14, q2 -32, q1 -54, q0 -80.
func easeDelta(quality domain.Quality) int {
	d := int(domain.QualityPerfect - quality)
	return 10 - d*(8+d*2)
}

// calculateNewEaseFactor applies the quality adjustment to the current ease factor.
//
// The result never drops below params.MinEaseFactor. There is deliberately no
// upper bound: repeated perfect recalls keep increasing the ease.
func calculateNewEaseFactor(currentEF int, quality domain.Quality, params *Params) int {
	newEF := currentEF + easeDelta(quality)
	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	return newEF
}

// calculateNewInterval determines the interval in days after a successful recall.
//
// Parameters:
//   - previousInterval: the interval before this review
//   - repetition: the repetition number this review produces (1 for the first success)
//   - easeFactor: the ease factor before this review's adjustment
//   - params: configuration parameters for the SRS algorithm
//
// The first two repetitions use the fixed ladder (1 day, then 6 days). Later
// repetitions multiply the previous interval by the ease factor, rounded half
// up. The interval never shrinks on a success and is capped by MaxIntervalDays
// when that is set.
func calculateNewInterval(previousInterval, repetition, easeFactor int, params *Params) int {
	var interval int
	switch repetition {
	case 1:
		interval = params.FirstIntervalDays
	case 2:
		interval = params.SecondIntervalDays
	default:
		interval = (previousInterval*easeFactor + domain.EaseFactorScale/2) / domain.EaseFactorScale
		if interval < previousInterval {
			interval = previousInterval
		}
	}

	if interval < 1 {
		interval = 1
	}
	if params.MaxIntervalDays > 0 && interval > params.MaxIntervalDays {
		interval = params.MaxIntervalDays
	}
	return interval
}

// calculateNextState returns a new ReviewState with the review applied.
//
// The input state is not modified. On a lapse (quality below PassingQuality)
// the repetition count resets to 0, the interval to LapseIntervalDays, and the
// ease factor decreases. On a success the repetition count increments, the
// interval grows, and the ease factor moves by how far quality is from 5.
// The next review is the review time plus the interval in days.
func calculateNextState(
	state *domain.ReviewState,
	quality domain.Quality,
	now time.Time,
	params *Params,
) *domain.ReviewState {
	next := *state

	currentEF := state.EaseFactor
	if currentEF <= domain.EaseFactorScale {
		currentEF = params.InitialEaseFactor
	}
	previousInterval := state.IntervalDays
	if previousInterval < 1 {
		previousInterval = domain.DefaultIntervalDays
	}
	repetitions := state.RepetitionCount
	if repetitions < 0 {
		repetitions = 0
	}

	if quality < params.PassingQuality {
		next.RepetitionCount = 0
		next.IntervalDays = params.LapseIntervalDays
	} else {
		next.RepetitionCount = repetitions + 1
		next.IntervalDays = calculateNewInterval(previousInterval, next.RepetitionCount, currentEF, params)
	}
	next.EaseFactor = calculateNewEaseFactor(currentEF, quality, params)

	next.LastReviewedAt = now
	next.NextReviewAt = now.AddDate(0, 0, next.IntervalDays)
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	return &next
}
