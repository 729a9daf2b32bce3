package models

// StepType discriminates the step variants of a scenario graph.
type StepType string

const (
	StepQuiz    StepType = "quiz"
	StepVideo   StepType = "video"
	StepDemo    StepType = "demo"
	StepExplain StepType = "explain"
	StepEnd     StepType = "end"
)

// TerminalStepID marks the end of a scenario. A graph may carry an explicit
// end record, but a dangling reference to this id is also terminal.
const TerminalStepID = "end"

// QuizOption is a single selectable quiz answer.
type QuizOption struct {
	ID    string `bson:"id" json:"id"`
	Label string `bson:"label" json:"label"`
}

// Step is one node of the scenario graph. Exactly one payload pointer is set
// for non-terminal steps, matching Type.
type Step struct {
	ID      string       `bson:"id" json:"id"`
	Type    StepType     `bson:"type" json:"type"`
	Quiz    *QuizStep    `bson:"quiz,omitempty" json:"quiz,omitempty"`
	Video   *VideoStep   `bson:"video,omitempty" json:"video,omitempty"`
	Demo    *DemoStep    `bson:"demo,omitempty" json:"demo,omitempty"`
	Explain *ExplainStep `bson:"explain,omitempty" json:"explain,omitempty"`
}

type QuizStep struct {
	Question        string       `bson:"question" json:"question"`
	Options         []QuizOption `bson:"options" json:"options"`
	CorrectOptionID string       `bson:"correctOptionId" json:"correctOptionId"`
	Images          []string     `bson:"images,omitempty" json:"images,omitempty"`
	NextID          string       `bson:"nextId" json:"nextId"`
}

type VideoStep struct {
	SourceURL string `bson:"src" json:"src"`
	NextID    string `bson:"nextId" json:"nextId"`
}

type DemoStep struct {
	Options         []string `bson:"options" json:"options"`
	CorrectOptions  []string `bson:"correctOptions" json:"correctOptions"`
	RetryOnFail     bool     `bson:"retryOnFail" json:"retryOnFail"`
	OnCorrectNextID string   `bson:"onCorrectNextId" json:"onCorrectNextId"`
	OnWrongNextID   string   `bson:"onWrongNextId" json:"onWrongNextId"`
	NextID          string   `bson:"nextId" json:"nextId"`
	BackgroundImage string   `bson:"backgroundImage,omitempty" json:"backgroundImage,omitempty"`
}

type ExplainStep struct {
	AnswerText    string `bson:"answer" json:"answer"`
	BodyOnCorrect string `bson:"bodyCorrect" json:"bodyCorrect"`
	BodyOnWrong   string `bson:"bodyWrong" json:"bodyWrong"`
	NextID        string `bson:"nextId" json:"nextId"`
}

// ReferencedIDs returns every step id this step can transition to.
func (s *Step) ReferencedIDs() []string {
	switch s.Type {
	case StepQuiz:
		return []string{s.Quiz.NextID}
	case StepVideo:
		return []string{s.Video.NextID}
	case StepDemo:
		refs := []string{s.Demo.OnCorrectNextID, s.Demo.OnWrongNextID}
		if s.Demo.NextID != "" {
			refs = append(refs, s.Demo.NextID)
		}
		return refs
	case StepExplain:
		return []string{s.Explain.NextID}
	}
	return nil
}
