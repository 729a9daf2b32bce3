package scoring

import (
	"math"
	"time"

	"scamdrill/models"
)

// Summary is the windowed reactivity and variance view over a sample set.
// Reactivity is the recent-window mean minus the early-window mean.
type Summary struct {
	Avg        float64 `json:"avg"`
	Peak       float64 `json:"peak"`
	Std        float64 `json:"std"`
	Reactivity float64 `json:"reactivity"`
	Score      int     `json:"score"`
}

// SummaryOptions tunes the summary windows. Zero values fall back to the
// defaults (baseline 70 bpm, 15 second windows).
type SummaryOptions struct {
	Baseline     float64
	RecentWindow time.Duration
	EarlyWindow  time.Duration
}

// ComputeHeartRateSummary derives mean, peak, population standard deviation
// and reactivity from a sample history. An empty sample set yields the zero
// summary rather than an error.
func ComputeHeartRateSummary(samples []models.HeartRateSample, opts *SummaryOptions) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	baseline := DefaultBaselineHR
	recentWindow := 15 * time.Second
	earlyWindow := 15 * time.Second
	if opts != nil {
		if opts.Baseline > 0 {
			baseline = opts.Baseline
		}
		if opts.RecentWindow > 0 {
			recentWindow = opts.RecentWindow
		}
		if opts.EarlyWindow > 0 {
			earlyWindow = opts.EarlyWindow
		}
	}

	vals := make([]float64, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.BPM) || math.IsInf(s.BPM, 0) {
			continue
		}
		vals = append(vals, s.BPM)
	}
	if len(vals) == 0 {
		return Summary{}
	}

	sum := 0.0
	peak := vals[0]
	for _, v := range vals {
		sum += v
		if v > peak {
			peak = v
		}
	}
	mean := sum / float64(len(vals))

	variance := 0.0
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals))
	std := math.Sqrt(variance)

	now := samples[len(samples)-1].TimestampMs
	recentMs := recentWindow.Milliseconds()
	earlyMs := earlyWindow.Milliseconds()

	recentSum, recentN := 0.0, 0
	earlySum, earlyN := 0.0, 0
	for _, s := range samples {
		age := now - s.TimestampMs
		if age <= recentMs {
			recentSum += s.BPM
			recentN++
		}
		if age >= recentMs && age <= recentMs+earlyMs {
			earlySum += s.BPM
			earlyN++
		}
	}
	recentAvg := mean
	if recentN > 0 {
		recentAvg = recentSum / float64(recentN)
	}
	earlyAvg := mean
	if earlyN > 0 {
		earlyAvg = earlySum / float64(earlyN)
	}
	reactivity := recentAvg - earlyAvg

	overBaseline := math.Max(0, mean-baseline)
	peakOver := math.Max(0, peak-baseline)

	nAvg := math.Min(1, overBaseline/30)
	nPeak := math.Min(1, peakOver/40)
	nStd := math.Min(1, std/20)
	nReact := math.Min(1, math.Max(0, reactivity)/20)

	score := int(math.Round((nAvg*0.35 + nPeak*0.25 + nStd*0.20 + nReact*0.20) * 100))

	return Summary{Avg: mean, Peak: peak, Std: std, Reactivity: reactivity, Score: score}
}

// RecoveryTime scans the sample history for the peak heart rate and returns
// the seconds it took to come back within ±threshold of baseline afterwards.
// It returns (0, true) when the peak never exceeded baseline+threshold (no
// stress induced) and (0, false) when the rate never recovered within the
// observed window.
func RecoveryTime(samples []models.HeartRateSample, baseline, threshold float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}

	peakIdx := 0
	for i, s := range samples {
		if s.BPM > samples[peakIdx].BPM {
			peakIdx = i
		}
	}
	peak := samples[peakIdx]

	if peak.BPM <= baseline+threshold {
		return 0, true
	}

	for _, s := range samples[peakIdx+1:] {
		if math.Abs(s.BPM-baseline) <= threshold {
			return float64(s.TimestampMs-peak.TimestampMs) / 1000.0, true
		}
	}
	return 0, false
}
