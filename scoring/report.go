package scoring

import (
	"time"

	"scamdrill/models"
)

// ReportConfig carries the deployment-time scoring parameters.
type ReportConfig struct {
	BaselineHR        float64
	RecoveryThreshold float64
	StabilityMode     StabilityMode
}

// DefaultReportConfig returns the stock scoring parameters.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		BaselineHR:        DefaultBaselineHR,
		RecoveryThreshold: DefaultRecoveryThreshold,
		StabilityMode:     StabilityRecoveryMode,
	}
}

// BuildReport computes the final score report from a frozen session state
// snapshot and the full sample history. Missing samples degrade gracefully:
// with no history the peak falls back to baseline (no measured elevation).
func BuildReport(state *models.SessionState, history []models.HeartRateSample, cfg ReportConfig) models.ScoreReport {
	if cfg.BaselineHR == 0 {
		cfg.BaselineHR = DefaultBaselineHR
	}
	if cfg.RecoveryThreshold == 0 {
		cfg.RecoveryThreshold = DefaultRecoveryThreshold
	}
	if cfg.StabilityMode == "" {
		cfg.StabilityMode = StabilityRecoveryMode
	}

	summary := ComputeHeartRateSummary(history, &SummaryOptions{Baseline: cfg.BaselineHR})

	peak := cfg.BaselineHR
	if len(history) > 0 {
		peak = summary.Peak
	}

	var stability int
	switch cfg.StabilityMode {
	case StabilityStddevMode:
		stability = StabilityStddev(summary.Std)
	default:
		seconds, recovered := RecoveryTime(history, cfg.BaselineHR, cfg.RecoveryThreshold)
		stability = StabilityRecovery(seconds, recovered)
	}

	knowledge := Knowledge(state.QuizCorrectCount)
	judgement := Judgement(state.FirstTryScore)
	calmness := Calmness(cfg.BaselineHR, peak)
	speed := Speed(state.ActionSeconds)

	return models.ScoreReport{
		SessionID:        state.ID,
		ScenarioName:     state.ScenarioName,
		Knowledge:        knowledge,
		Judgement:        judgement,
		Calmness:         calmness,
		Speed:            speed,
		Stability:        stability,
		Overall:          Overall(knowledge, judgement, calmness, speed, stability),
		SectionHRRecords: state.SectionHRRecords,
		SectionHistory:   state.SectionHistory,
		CreatedAt:        time.Now(),
	}
}
