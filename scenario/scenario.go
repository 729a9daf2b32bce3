package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"scamdrill/models"
)

// ErrNotArray is returned when the scenario document is neither a bare step
// array nor an object carrying a "steps" array.
var ErrNotArray = errors.New("scenario data is not an array")

// Graph is the validated, immutable in-memory step graph for one session.
type Graph struct {
	steps map[string]*models.Step
	order []string
}

// document is Shape B of the scenario wire format. Shape A is a bare array.
type document struct {
	Steps         []json.RawMessage `json:"steps"`
	BiometricData json.RawMessage   `json:"biometricData"`
}

type rawOption struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Option string `json:"option"`
	E      string `json:"e"` // legacy field name, pre-dates "option"
}

type rawStep struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Question string `json:"question"`
	// Options is []rawOption for quiz steps and []string for demo steps,
	// so it is decoded per type.
	Options         json.RawMessage `json:"options"`
	Correct         stringList      `json:"correct"`
	Image           stringList      `json:"image"`
	Src             string          `json:"src"`
	Next            string          `json:"next"`
	NextID          string          `json:"nextId"`
	RetryOnFail     bool            `json:"retryOnFail"`
	VideoCorrect    string          `json:"videoCorrect"`
	VideoWrong      string          `json:"videoWrong"`
	BackgroundImage string          `json:"backgroundImage"`
	Answer          string          `json:"answer"`
	BodyCorrect     string          `json:"bodyCorrect"`
	BodyWrong       string          `json:"bodyWrong"`
}

// stringList accepts both a single string and an array of strings, since both
// forms appear across scenario document revisions.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = nil
		} else {
			*l = stringList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = stringList(many)
	return nil
}

// Load parses a scenario document and returns the validated graph together
// with the opaque biometricData payload (nil for Shape A documents).
func Load(doc []byte) (*Graph, json.RawMessage, error) {
	var rawSteps []json.RawMessage
	var aux json.RawMessage

	var arr []json.RawMessage
	if err := json.Unmarshal(doc, &arr); err == nil {
		rawSteps = arr
	} else {
		var obj document
		if err := json.Unmarshal(doc, &obj); err != nil {
			if json.Valid(doc) {
				return nil, nil, ErrNotArray
			}
			return nil, nil, fmt.Errorf("failed to parse scenario document: %w", err)
		}
		if obj.Steps == nil {
			return nil, nil, ErrNotArray
		}
		rawSteps = obj.Steps
		aux = obj.BiometricData
	}

	g := &Graph{steps: make(map[string]*models.Step)}
	for i, rawMsg := range rawSteps {
		step, err := normalize(rawMsg)
		if err != nil {
			return nil, nil, fmt.Errorf("step %d: %w", i, err)
		}
		if _, dup := g.steps[step.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate step id %q", step.ID)
		}
		g.steps[step.ID] = step
		g.order = append(g.order, step.ID)
	}
	if len(g.order) == 0 {
		return nil, nil, errors.New("scenario has no steps")
	}

	if err := g.validateReferences(); err != nil {
		return nil, nil, err
	}
	return g, aux, nil
}

// normalize converts one raw record into a closed tagged variant, failing
// fast on an unrecognized type instead of producing a step with missing
// fields.
func normalize(data json.RawMessage) (*models.Step, error) {
	var raw rawStep
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed step record: %w", err)
	}
	if raw.ID == "" {
		return nil, errors.New("step is missing an id")
	}

	next := raw.NextID
	if next == "" {
		next = raw.Next
	}

	switch raw.Type {
	case "quiz":
		var opts []rawOption
		if len(raw.Options) > 0 {
			if err := json.Unmarshal(raw.Options, &opts); err != nil {
				return nil, fmt.Errorf("quiz %q has malformed options: %w", raw.ID, err)
			}
		}
		correct := ""
		if len(raw.Correct) > 0 {
			correct = raw.Correct[0]
		}
		return &models.Step{
			ID:   raw.ID,
			Type: models.StepQuiz,
			Quiz: &models.QuizStep{
				Question:        raw.Question,
				Options:         normalizeOptions(opts),
				CorrectOptionID: correct,
				Images:          raw.Image,
				NextID:          next,
			},
		}, nil
	case "video":
		return &models.Step{
			ID:    raw.ID,
			Type:  models.StepVideo,
			Video: &models.VideoStep{SourceURL: raw.Src, NextID: next},
		}, nil
	case "demo":
		var opts []string
		if len(raw.Options) > 0 {
			if err := json.Unmarshal(raw.Options, &opts); err != nil {
				return nil, fmt.Errorf("demo %q has malformed options: %w", raw.ID, err)
			}
		}
		return &models.Step{
			ID:   raw.ID,
			Type: models.StepDemo,
			Demo: &models.DemoStep{
				Options:         opts,
				CorrectOptions:  raw.Correct,
				RetryOnFail:     raw.RetryOnFail,
				OnCorrectNextID: raw.VideoCorrect,
				OnWrongNextID:   raw.VideoWrong,
				NextID:          next,
				BackgroundImage: raw.BackgroundImage,
			},
		}, nil
	case "explain":
		return &models.Step{
			ID:   raw.ID,
			Type: models.StepExplain,
			Explain: &models.ExplainStep{
				AnswerText:    raw.Answer,
				BodyOnCorrect: raw.BodyCorrect,
				BodyOnWrong:   raw.BodyWrong,
				NextID:        next,
			},
		}, nil
	case "end":
		return &models.Step{ID: raw.ID, Type: models.StepEnd}, nil
	default:
		return nil, fmt.Errorf("unrecognized step type %q", raw.Type)
	}
}

// normalizeOptions coalesces the heterogeneous option label fields into a
// single label and drops options with empty labels.
func normalizeOptions(raw []rawOption) []models.QuizOption {
	out := make([]models.QuizOption, 0, len(raw))
	for _, o := range raw {
		label := o.Label
		if label == "" {
			label = o.Option
		}
		if label == "" {
			label = o.E
		}
		if label == "" {
			continue
		}
		out = append(out, models.QuizOption{ID: o.ID, Label: label})
	}
	return out
}

func (g *Graph) validateReferences() error {
	for _, id := range g.order {
		for _, ref := range g.steps[id].ReferencedIDs() {
			if ref == "" || ref == models.TerminalStepID {
				continue
			}
			if _, ok := g.steps[ref]; !ok {
				return fmt.Errorf("step %q references unknown step %q", id, ref)
			}
		}
	}
	return nil
}

// Resolve looks up a step by id. The second return is false when no step
// matches, which the caller treats as recoverable.
func (g *Graph) Resolve(id string) (*models.Step, bool) {
	step, ok := g.steps[id]
	return step, ok
}

// FirstID returns the id of the first step in document order.
func (g *Graph) FirstID() string {
	return g.order[0]
}

// Len reports the number of steps in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Steps returns the steps in document order.
func (g *Graph) Steps() []*models.Step {
	out := make([]*models.Step, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.steps[id])
	}
	return out
}

// Fetch retrieves a remote scenario document. A single attempt is made; the
// caller decides whether a locally stored override should be used instead.
func Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scenario: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch scenario: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
