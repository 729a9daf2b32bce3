package session

import (
	"sync"
	"time"

	"scamdrill/models"
	"scamdrill/scenario"
	"scamdrill/scoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeartSource is the slice of the biometric stream the controller needs.
type HeartSource interface {
	Latest() (models.HeartRateSample, bool)
	History() []models.HeartRateSample
	NotifyStepChange(stepID, stepLabel string)
	Disconnect()
}

// Update is one frame pushed to the presentation layer. LastCorrect is set
// on explain-step frames so the renderer can pick the matching body text.
type Update struct {
	Type        string              `json:"type"`
	Step        *models.Step        `json:"step,omitempty"`
	LastCorrect *bool               `json:"lastCorrect,omitempty"`
	Report      *models.ScoreReport `json:"report,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// Config carries the per-deployment controller parameters.
type Config struct {
	DemoTimeout       time.Duration
	BaselineHR        float64
	RecoveryThreshold float64
	StabilityMode     scoring.StabilityMode
}

// Controller drives one participant session: it resolves steps against the
// graph, applies the four external stimuli, brackets section heart rates and
// produces the final report at the terminal step. All state transitions are
// serialized through its mutex.
type Controller struct {
	mu     sync.Mutex
	log    *zap.Logger
	graph  *scenario.Graph
	stream HeartSource
	cfg    Config

	state   *models.SessionState
	current *models.Step
	done    bool
	report  *models.ScoreReport

	demoTimer     *time.Timer
	demoEnteredAt time.Time
	demoFinished  bool

	onUpdate func(Update)
}

// New creates a controller for one session. onUpdate receives every frame
// the presentation layer should render; it is called with the controller
// lock held, so it must not call back into the controller.
func New(scenarioName string, graph *scenario.Graph, stream HeartSource, cfg Config, log *zap.Logger, onUpdate func(Update)) *Controller {
	if cfg.DemoTimeout == 0 {
		cfg.DemoTimeout = 30 * time.Second
	}
	return &Controller{
		log:      log,
		graph:    graph,
		stream:   stream,
		cfg:      cfg,
		state:    models.NewSessionState(uuid.NewString(), scenarioName),
		onUpdate: onUpdate,
	}
}

// ID returns the session id.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ID
}

// Start enters the first step of the graph.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.CurrentStepID != "" || c.done {
		return
	}
	c.advanceLocked(c.graph.FirstID())
}

// SubmitAnswer handles a quiz answer: compares the selection against the
// correct option, updates the counters and advances to the next step.
func (c *Controller) SubmitAnswer(optionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done || c.current == nil || c.current.Type != models.StepQuiz {
		return
	}
	correct := optionID == c.current.Quiz.CorrectOptionID
	if correct {
		c.state.QuizCorrectCount++
	}
	c.state.LastAnswerCorrect = correct
	c.advanceLocked(c.current.Quiz.NextID)
}

// VideoEnded advances past the current video step unconditionally.
func (c *Controller) VideoEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done || c.current == nil || c.current.Type != models.StepVideo {
		return
	}
	c.advanceLocked(c.current.Video.NextID)
}

// AdvanceExplain moves past the current explanation step.
func (c *Controller) AdvanceExplain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done || c.current == nil || c.current.Type != models.StepExplain {
		return
	}
	c.advanceLocked(c.current.Explain.NextID)
}

// RecordDecoyInteraction applies the judgement penalty for one extraneous
// interaction with the decoy UI before the demo step resolves.
func (c *Controller) RecordDecoyInteraction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done || c.current == nil || c.current.Type != models.StepDemo || c.demoFinished {
		return
	}
	c.state.FirstTryScore = scoring.ApplyDecoyPenalty(c.state.FirstTryScore)
}

// ResolveScam records the outcome reported by the scam-screen collaborator.
func (c *Controller) ResolveScam(correct bool, elapsedSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveDemoLocked(correct, elapsedSeconds)
}

// resolveDemoLocked is the single resolution path for the demo step. The
// finished latch guarantees first resolution wins; the timeout and the
// participant's action racing here is expected, not an error.
func (c *Controller) resolveDemoLocked(correct bool, elapsedSeconds float64) {
	if c.done || c.current == nil || c.current.Type != models.StepDemo || c.demoFinished {
		return
	}
	c.demoFinished = true
	if c.demoTimer != nil {
		c.demoTimer.Stop()
		c.demoTimer = nil
	}

	c.state.ActionSeconds = elapsedSeconds
	demo := c.current.Demo
	if correct {
		c.advanceLocked(demo.OnCorrectNextID)
	} else {
		c.state.FirstTryScore = scoring.JudgementFloor
		c.advanceLocked(demo.OnWrongNextID)
	}
}

// advanceLocked performs one step transition: section bookkeeping, heart
// rate bracketing, stream notification and resolution of the new step.
func (c *Controller) advanceLocked(nextID string) {
	c.state.CurrentStepID = nextID

	hist := c.state.SectionHistory
	if len(hist) > 0 && hist[len(hist)-1] == nextID {
		return // self-transition, no-op
	}

	latest := c.latestHR()
	// Close the previous open record and open one for the new section as
	// whole-record operations; sample callbacks never touch these.
	if n := len(c.state.SectionHRRecords); n > 0 && c.state.SectionHRRecords[n-1].EndHR == nil {
		c.state.SectionHRRecords[n-1].EndHR = latest
	}
	c.state.SectionHRRecords = append(c.state.SectionHRRecords, models.SectionHeartRateRecord{
		SectionID: nextID,
		StartHR:   latest,
	})
	c.state.SectionHistory = append(c.state.SectionHistory, nextID)

	step, ok := c.graph.Resolve(nextID)
	label := nextID
	if ok {
		label = string(step.Type)
	}
	c.stream.NotifyStepChange(nextID, label)

	if nextID == models.TerminalStepID || (ok && step.Type == models.StepEnd) {
		c.finishLocked()
		return
	}
	if !ok {
		// Dangling reference in the graph: recover locally by clearing the
		// displayed payload and stalling, never by crashing the session.
		c.log.Warn("no step matched current id",
			zap.String("sessionId", c.state.ID),
			zap.String("stepId", nextID))
		c.current = nil
		c.push(Update{Type: "step"})
		return
	}

	c.current = step
	if step.Type == models.StepDemo {
		c.enterDemoLocked()
	}
	update := Update{Type: "step", Step: step}
	if step.Type == models.StepExplain {
		correct := c.state.LastAnswerCorrect
		update.LastCorrect = &correct
	}
	c.push(update)
}

func (c *Controller) enterDemoLocked() {
	c.demoEnteredAt = time.Now()
	c.demoFinished = false
	timeout := c.cfg.DemoTimeout
	c.demoTimer = time.AfterFunc(timeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		elapsed := time.Since(c.demoEnteredAt).Seconds()
		c.log.Info("demo step timed out",
			zap.String("sessionId", c.state.ID),
			zap.Float64("elapsedSeconds", elapsed))
		c.resolveDemoLocked(false, elapsed)
	})
}

// finishLocked freezes the state, builds the report and tears the stream
// down. Runs exactly once.
func (c *Controller) finishLocked() {
	if c.done {
		return
	}
	c.done = true
	c.current = nil
	if c.demoTimer != nil {
		c.demoTimer.Stop()
		c.demoTimer = nil
	}

	// Session end closes the last open section record.
	if n := len(c.state.SectionHRRecords); n > 0 && c.state.SectionHRRecords[n-1].EndHR == nil {
		c.state.SectionHRRecords[n-1].EndHR = c.latestHR()
	}
	c.state.CompletedAt = time.Now()

	history := c.stream.History()
	report := scoring.BuildReport(c.state, history, scoring.ReportConfig{
		BaselineHR:        c.cfg.BaselineHR,
		RecoveryThreshold: c.cfg.RecoveryThreshold,
		StabilityMode:     c.cfg.StabilityMode,
	})
	c.report = &report
	c.stream.Disconnect()

	c.push(Update{Type: "report", Report: &report})
}

// Close tears the session down on any exit path: pending timers are
// cancelled and the stream is released even when the terminal step was never
// reached.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.demoTimer != nil {
		c.demoTimer.Stop()
		c.demoTimer = nil
	}
	c.demoFinished = true
	c.done = true
	c.stream.Disconnect()
}

// Report returns the final report once the session has completed.
func (c *Controller) Report() (*models.ScoreReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report, c.report != nil
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := *c.state
	snap.SectionHistory = append([]string(nil), c.state.SectionHistory...)
	snap.SectionHRRecords = append([]models.SectionHeartRateRecord(nil), c.state.SectionHRRecords...)
	return snap
}

func (c *Controller) latestHR() *float64 {
	if sample, ok := c.stream.Latest(); ok {
		bpm := sample.BPM
		return &bpm
	}
	return nil
}

func (c *Controller) push(u Update) {
	if c.onUpdate != nil {
		c.onUpdate(u)
	}
}
