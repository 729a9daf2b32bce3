package models

import "time"

// HeartRateSample is a single reading from the biometric service, timestamped
// at arrival rather than by the sender.
type HeartRateSample struct {
	TimestampMs int64   `bson:"t" json:"t"`
	BPM         float64 `bson:"bpm" json:"bpm"`
	Device      string  `bson:"device" json:"device"`
}

// SectionHeartRateRecord brackets the heart rate over one contiguous stay on a
// step id. StartHR and EndHR are nil when no sample was known at the boundary.
type SectionHeartRateRecord struct {
	SectionID string   `bson:"sectionId" json:"sectionId"`
	StartHR   *float64 `bson:"startHR" json:"startHR"`
	EndHR     *float64 `bson:"endHR" json:"endHR"`
}

// SessionState is the mutable per-participant state owned by the session
// controller. It is created at session start and frozen when the terminal
// step is reached.
type SessionState struct {
	ID                string                   `bson:"sessionId" json:"sessionId"`
	ScenarioName      string                   `bson:"scenarioName" json:"scenarioName"`
	CurrentStepID     string                   `bson:"currentStepId" json:"currentStepId"`
	QuizCorrectCount  int                      `bson:"quizCorrectCount" json:"quizCorrectCount"`
	FirstTryScore     int                      `bson:"firstTryScore" json:"firstTryScore"`
	ActionSeconds     float64                  `bson:"actionSeconds" json:"actionSeconds"`
	LastAnswerCorrect bool                     `bson:"lastAnswerCorrect" json:"lastAnswerCorrect"`
	SectionHistory    []string                 `bson:"sectionHistory" json:"sectionHistory"`
	SectionHRRecords  []SectionHeartRateRecord `bson:"sectionHRRecords" json:"sectionHRRecords"`
	StartedAt         time.Time                `bson:"startedAt" json:"startedAt"`
	CompletedAt       time.Time                `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// NewSessionState returns the initial state for one participant run.
func NewSessionState(id, scenarioName string) *SessionState {
	return &SessionState{
		ID:            id,
		ScenarioName:  scenarioName,
		FirstTryScore: 100,
		StartedAt:     time.Now(),
	}
}
