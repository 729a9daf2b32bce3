package scoring

import "math"

const (
	// JudgementFloor is the lowest value the judgement axis can reach.
	JudgementFloor = 25
	// DecoyPenalty is subtracted from the running judgement score for every
	// spurious interaction with the decoy UI before the demo step resolves.
	DecoyPenalty = 15

	DefaultBaselineHR        = 70.0
	DefaultRecoveryThreshold = 5.0
)

// StabilityMode selects which physiological-recovery signal feeds the
// stability axis. This is a deployment-time choice, not a runtime branch.
type StabilityMode string

const (
	StabilityStddevMode   StabilityMode = "stddev"
	StabilityRecoveryMode StabilityMode = "recoveryTime"
)

// knowledgeTable maps a clamped correct-answer count to a score. The count of
// 5 falls into the 0 bucket, inherited from the deployed scoring config; keep
// the table as data rather than changing the semantics here.
var knowledgeTable = map[int]int{
	0: 20,
	1: 40,
	2: 60,
	3: 80,
	4: 100,
}

// finite maps NaN and infinities to zero so every scoring function stays
// total over real-number inputs.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampMin(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}

// Knowledge scores the quiz axis from the number of correctly answered
// questions.
func Knowledge(correctCount int) int {
	n := correctCount
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	if score, ok := knowledgeTable[n]; ok {
		return score
	}
	return 0
}

// Judgement floors the incrementally maintained first-try score.
func Judgement(firstTryScore int) int {
	if firstTryScore < JudgementFloor {
		return JudgementFloor
	}
	return firstTryScore
}

// ApplyDecoyPenalty decrements a running judgement score by one penalty step,
// never dropping below the floor.
func ApplyDecoyPenalty(score int) int {
	if score <= JudgementFloor {
		return JudgementFloor
	}
	return score - DecoyPenalty
}

// Calmness scores heart-rate elevation: the rise from baseline to peak, with
// a downward excursion treated as no rise at all.
func Calmness(baselineHR, peakHR float64) int {
	diff := clampMin(finite(peakHR)-finite(baselineHR), 0)
	switch {
	case diff <= 5:
		return 100
	case diff <= 10:
		return 90
	case diff <= 15:
		return 80
	case diff <= 20:
		return 70
	case diff <= 25:
		return 60
	case diff <= 35:
		return 50
	case diff <= 40:
		return 40
	case diff <= 45:
		return 30
	case diff <= 50:
		return 20
	default:
		return 10
	}
}

// Speed scores how quickly the participant escaped the demo step.
func Speed(elapsedSeconds float64) int {
	s := clampMin(finite(elapsedSeconds), 0)
	switch {
	case s <= 5:
		return 100
	case s <= 10:
		return 90
	case s <= 15:
		return 80
	case s <= 20:
		return 70
	case s <= 25:
		return 60
	default:
		return 50
	}
}

// StabilityStddev scores heart-rate stability from the population standard
// deviation of the session's samples.
func StabilityStddev(stddev float64) int {
	s := clampMin(finite(stddev), 0)
	switch {
	case s <= 4:
		return 100
	case s <= 7:
		return 90
	case s <= 10:
		return 80
	case s <= 13:
		return 70
	default:
		return 60
	}
}

// StabilityRecovery scores how fast the heart rate returned to the baseline
// band after its peak. recovered=false means it never came back within the
// observed window.
func StabilityRecovery(seconds float64, recovered bool) int {
	if !recovered || seconds < 0 {
		return 40
	}
	if seconds == 0 {
		return 100
	}
	s := finite(seconds)
	switch {
	case s <= 10:
		return 100
	case s <= 20:
		return 90
	case s <= 30:
		return 80
	case s <= 45:
		return 70
	case s <= 60:
		return 60
	case s <= 90:
		return 50
	default:
		return 40
	}
}

// Overall is the rounded arithmetic mean of the axis scores.
func Overall(axes ...int) int {
	if len(axes) == 0 {
		return 0
	}
	sum := 0
	for _, a := range axes {
		sum += a
	}
	return int(math.Round(float64(sum) / float64(len(axes))))
}
