package models

import "time"

// ScoreReport is the immutable post-session result, computed once from a
// frozen SessionState snapshot. All axis scores are integers in [0,100].
type ScoreReport struct {
	SessionID        string                   `bson:"sessionId" json:"sessionId"`
	ScenarioName     string                   `bson:"scenarioName" json:"scenarioName"`
	Knowledge        int                      `bson:"knowledge" json:"knowledge"`
	Judgement        int                      `bson:"judgement" json:"judgement"`
	Calmness         int                      `bson:"calmness" json:"calmness"`
	Speed            int                      `bson:"speed" json:"speed"`
	Stability        int                      `bson:"stability" json:"stability"`
	Overall          int                      `bson:"overall" json:"overall"`
	SectionHRRecords []SectionHeartRateRecord `bson:"sectionHRRecords" json:"sectionHRRecords"`
	SectionHistory   []string                 `bson:"sectionHistory" json:"sectionHistory"`
	Feedback         string                   `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CreatedAt        time.Time                `bson:"createdAt" json:"createdAt"`
}
