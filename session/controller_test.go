package session

import (
	"sync"
	"testing"
	"time"

	"scamdrill/models"
	"scamdrill/scenario"
	"scamdrill/scoring"

	"go.uber.org/zap"
)

// fakeHeart is an in-memory HeartSource standing in for the biometric stream.
type fakeHeart struct {
	mu            sync.Mutex
	samples       []models.HeartRateSample
	stepChanges   []string
	disconnected  bool
	disconnectCnt int
}

func (f *fakeHeart) push(bpm float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, models.HeartRateSample{
		TimestampMs: int64(len(f.samples)) * 1000,
		BPM:         bpm,
		Device:      "fake",
	})
}

func (f *fakeHeart) Latest() (models.HeartRateSample, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.samples) == 0 {
		return models.HeartRateSample{}, false
	}
	return f.samples[len(f.samples)-1], true
}

func (f *fakeHeart) History() []models.HeartRateSample {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.HeartRateSample(nil), f.samples...)
}

func (f *fakeHeart) NotifyStepChange(stepID, stepLabel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stepChanges = append(f.stepChanges, stepID)
}

func (f *fakeHeart) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	f.disconnectCnt++
}

// collector gathers pushed frames. The callback runs under the controller
// lock, so it only appends.
type collector struct {
	mu     sync.Mutex
	frames []Update
}

func (c *collector) record(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, u)
}

func (c *collector) all() []Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Update(nil), c.frames...)
}

func (c *collector) last() (Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return Update{}, false
	}
	return c.frames[len(c.frames)-1], true
}

const threeStepDoc = `[
	{"id": "quiz1", "type": "quiz", "question": "Which sender is genuine?",
	 "options": [{"id": "x", "label": "it@corp.example"}, {"id": "y", "label": "it-support@corp-example.co"}],
	 "correct": "x", "next": "video1"},
	{"id": "video1", "type": "video", "src": "briefing.mp4", "next": "end"}
]`

const demoDoc = `[
	{"id": "demo1", "type": "demo",
	 "options": ["Hang up", "Read out the code"],
	 "correct": ["Hang up"],
	 "videoCorrect": "good", "videoWrong": "bad"},
	{"id": "good", "type": "video", "src": "g.mp4", "next": "end"},
	{"id": "bad", "type": "video", "src": "b.mp4", "next": "end"}
]`

const explainDoc = `[
	{"id": "quiz1", "type": "quiz", "question": "Q",
	 "options": [{"id": "a", "label": "right"}, {"id": "b", "label": "wrong"}],
	 "correct": "a", "next": "explain1"},
	{"id": "explain1", "type": "explain", "answer": "a",
	 "bodyCorrect": "Well spotted.", "bodyWrong": "Look at the domain again.",
	 "next": "end"}
]`

func newTestController(t *testing.T, doc string, heart *fakeHeart, out *collector, cfg Config) *Controller {
	t.Helper()
	g, _, err := scenario.Load([]byte(doc))
	if err != nil {
		t.Fatalf("scenario.Load: %v", err)
	}
	return New("test", g, heart, cfg, zap.NewNop(), out.record)
}

func TestFullRunProducesReport(t *testing.T) {
	heart := &fakeHeart{}
	heart.push(72)
	out := &collector{}
	ctrl := newTestController(t, threeStepDoc, heart, out, Config{})

	ctrl.Start()
	if snap := ctrl.Snapshot(); snap.CurrentStepID != "quiz1" {
		t.Fatalf("after Start, CurrentStepID = %q, want quiz1", snap.CurrentStepID)
	}

	ctrl.SubmitAnswer("x")
	snap := ctrl.Snapshot()
	if snap.QuizCorrectCount != 1 {
		t.Errorf("QuizCorrectCount = %d, want 1", snap.QuizCorrectCount)
	}
	if snap.CurrentStepID != "video1" {
		t.Errorf("CurrentStepID = %q, want video1", snap.CurrentStepID)
	}

	heart.push(75)
	ctrl.VideoEnded()

	report, ok := ctrl.Report()
	if !ok {
		t.Fatal("no report after reaching the terminal step")
	}
	if report.Knowledge != scoring.Knowledge(1) {
		t.Errorf("Knowledge = %d, want %d", report.Knowledge, scoring.Knowledge(1))
	}
	if report.Judgement != 100 {
		t.Errorf("Judgement = %d, want 100 with no demo interaction", report.Judgement)
	}
	if !heart.disconnected {
		t.Error("stream not disconnected at session end")
	}

	last, _ := out.last()
	if last.Type != "report" || last.Report == nil {
		t.Errorf("last frame = %+v, want a report frame", last)
	}
}

func TestWrongAnswerNotCounted(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, threeStepDoc, heart, out, Config{})

	ctrl.Start()
	ctrl.SubmitAnswer("y")
	snap := ctrl.Snapshot()
	if snap.QuizCorrectCount != 0 {
		t.Errorf("QuizCorrectCount = %d, want 0", snap.QuizCorrectCount)
	}
	if snap.LastAnswerCorrect {
		t.Error("LastAnswerCorrect should be false")
	}
	if snap.CurrentStepID != "video1" {
		t.Errorf("wrong answer should still advance, got %q", snap.CurrentStepID)
	}
}

func TestSectionRecordBracketing(t *testing.T) {
	heart := &fakeHeart{}
	heart.push(70)
	out := &collector{}
	ctrl := newTestController(t, threeStepDoc, heart, out, Config{})

	ctrl.Start()
	heart.push(82)
	ctrl.SubmitAnswer("x")
	heart.push(76)
	ctrl.VideoEnded()

	snap := ctrl.Snapshot()
	// quiz1, video1, end
	if len(snap.SectionHRRecords) != 3 {
		t.Fatalf("records = %d, want 3", len(snap.SectionHRRecords))
	}
	for i, rec := range snap.SectionHRRecords {
		if rec.StartHR == nil || rec.EndHR == nil {
			t.Errorf("record %d (%s) has open boundary after finish: %+v", i, rec.SectionID, rec)
		}
	}
	first := snap.SectionHRRecords[0]
	if first.SectionID != "quiz1" || *first.StartHR != 70 || *first.EndHR != 82 {
		t.Errorf("quiz1 record = %+v, want start 70 end 82", first)
	}
	if got := snap.SectionHistory; len(got) != 3 || got[0] != "quiz1" || got[1] != "video1" || got[2] != "end" {
		t.Errorf("SectionHistory = %v", got)
	}
}

func TestSectionRecordWithoutSamples(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, threeStepDoc, heart, out, Config{})

	ctrl.Start()
	snap := ctrl.Snapshot()
	if len(snap.SectionHRRecords) != 1 {
		t.Fatalf("records = %d, want 1", len(snap.SectionHRRecords))
	}
	if snap.SectionHRRecords[0].StartHR != nil {
		t.Error("StartHR should be nil when no sample has arrived")
	}
}

func TestDemoCorrectResolution(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, demoDoc, heart, out, Config{})

	ctrl.Start()
	ctrl.ResolveScam(true, 4.2)
	snap := ctrl.Snapshot()
	if snap.CurrentStepID != "good" {
		t.Errorf("CurrentStepID = %q, want good", snap.CurrentStepID)
	}
	if snap.ActionSeconds != 4.2 {
		t.Errorf("ActionSeconds = %v, want 4.2", snap.ActionSeconds)
	}
	if snap.FirstTryScore != 100 {
		t.Errorf("FirstTryScore = %d, want 100 after a clean resolution", snap.FirstTryScore)
	}
}

func TestDemoWrongResolutionFloorsJudgement(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, demoDoc, heart, out, Config{})

	ctrl.Start()
	ctrl.ResolveScam(false, 12)
	snap := ctrl.Snapshot()
	if snap.CurrentStepID != "bad" {
		t.Errorf("CurrentStepID = %q, want bad", snap.CurrentStepID)
	}
	if snap.FirstTryScore != scoring.JudgementFloor {
		t.Errorf("FirstTryScore = %d, want %d", snap.FirstTryScore, scoring.JudgementFloor)
	}
}

func TestDecoyPenalties(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, demoDoc, heart, out, Config{})

	ctrl.Start()
	ctrl.RecordDecoyInteraction()
	ctrl.RecordDecoyInteraction()
	if got := ctrl.Snapshot().FirstTryScore; got != 70 {
		t.Errorf("FirstTryScore after two decoys = %d, want 70", got)
	}

	// Penalties stop once the demo resolves.
	ctrl.ResolveScam(true, 3)
	ctrl.RecordDecoyInteraction()
	if got := ctrl.Snapshot().FirstTryScore; got != 70 {
		t.Errorf("FirstTryScore after resolution = %d, want unchanged 70", got)
	}
}

func TestDemoResolutionLatch(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, demoDoc, heart, out, Config{})

	ctrl.Start()
	ctrl.ResolveScam(true, 3)
	// Second resolution loses the race and must be a no-op.
	ctrl.ResolveScam(false, 9)
	snap := ctrl.Snapshot()
	if snap.CurrentStepID != "good" {
		t.Errorf("CurrentStepID = %q, want good after first resolution won", snap.CurrentStepID)
	}
	if snap.ActionSeconds != 3 {
		t.Errorf("ActionSeconds = %v, want 3", snap.ActionSeconds)
	}
}

func TestDemoTimeout(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, demoDoc, heart, out, Config{DemoTimeout: 20 * time.Millisecond})

	ctrl.Start()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if ctrl.Snapshot().CurrentStepID == "bad" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("demo never timed out onto the wrong branch")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := ctrl.Snapshot().FirstTryScore; got != scoring.JudgementFloor {
		t.Errorf("FirstTryScore after timeout = %d, want %d", got, scoring.JudgementFloor)
	}
}

func TestExplainFrameCarriesLastCorrect(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, explainDoc, heart, out, Config{})

	ctrl.Start()
	ctrl.SubmitAnswer("b")
	last, ok := out.last()
	if !ok || last.Step == nil || last.Step.ID != "explain1" {
		t.Fatalf("last frame = %+v, want explain1 step frame", last)
	}
	if last.LastCorrect == nil || *last.LastCorrect {
		t.Errorf("LastCorrect = %v, want false", last.LastCorrect)
	}

	ctrl.AdvanceExplain()
	if _, ok := ctrl.Report(); !ok {
		t.Error("session should have finished after the explanation")
	}
}

func TestStimuliIgnoredOnWrongStepType(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, threeStepDoc, heart, out, Config{})

	ctrl.Start()
	// Current step is a quiz; none of these may move the session.
	ctrl.VideoEnded()
	ctrl.AdvanceExplain()
	ctrl.ResolveScam(true, 1)
	ctrl.RecordDecoyInteraction()
	snap := ctrl.Snapshot()
	if snap.CurrentStepID != "quiz1" {
		t.Errorf("CurrentStepID = %q, want quiz1", snap.CurrentStepID)
	}
	if snap.FirstTryScore != 100 {
		t.Errorf("FirstTryScore = %d, want 100", snap.FirstTryScore)
	}
}

func TestStimuliIgnoredAfterFinish(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, threeStepDoc, heart, out, Config{})

	ctrl.Start()
	ctrl.SubmitAnswer("x")
	ctrl.VideoEnded()

	before := len(out.all())
	ctrl.SubmitAnswer("x")
	ctrl.VideoEnded()
	if got := len(out.all()); got != before {
		t.Errorf("frames after finish grew from %d to %d", before, got)
	}
	if snap := ctrl.Snapshot(); snap.QuizCorrectCount != 1 {
		t.Errorf("QuizCorrectCount = %d, want 1", snap.QuizCorrectCount)
	}
}

func TestMissingNextStallsSession(t *testing.T) {
	// A quiz with no next is loadable; answering it must stall the session
	// with a cleared step frame instead of crashing or finishing.
	doc := `[{"id": "quiz1", "type": "quiz", "question": "Q",
		"options": [{"id": "a", "label": "only"}],
		"correct": "a"}]`
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, doc, heart, out, Config{})

	ctrl.Start()
	ctrl.SubmitAnswer("a")

	snap := ctrl.Snapshot()
	if snap.CurrentStepID != "" {
		t.Errorf("CurrentStepID = %q, want empty after an unresolvable transition", snap.CurrentStepID)
	}
	last, ok := out.last()
	if !ok || last.Type != "step" || last.Step != nil {
		t.Errorf("last frame = %+v, want a cleared step frame", last)
	}
	if _, ok := ctrl.Report(); ok {
		t.Error("stalled session must not produce a report")
	}

	// Stalled means stalled: no stimulus may move it.
	before := len(out.all())
	ctrl.SubmitAnswer("a")
	ctrl.VideoEnded()
	ctrl.AdvanceExplain()
	ctrl.ResolveScam(true, 1)
	if got := len(out.all()); got != before {
		t.Errorf("frames grew from %d to %d while stalled", before, got)
	}
	if snap := ctrl.Snapshot(); snap.QuizCorrectCount != 1 {
		t.Errorf("QuizCorrectCount = %d, want 1", snap.QuizCorrectCount)
	}
}

func TestCloseIsTerminal(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, threeStepDoc, heart, out, Config{})

	ctrl.Start()
	ctrl.Close()

	before := len(out.all())
	ctrl.SubmitAnswer("x")
	ctrl.VideoEnded()
	if got := len(out.all()); got != before {
		t.Errorf("frames grew from %d to %d after Close", before, got)
	}
	if snap := ctrl.Snapshot(); snap.QuizCorrectCount != 0 {
		t.Errorf("QuizCorrectCount = %d, want 0 after Close", snap.QuizCorrectCount)
	}
	if _, ok := ctrl.Report(); ok {
		t.Error("no report expected from a closed, unfinished session")
	}
}

func TestCloseReleasesStream(t *testing.T) {
	heart := &fakeHeart{}
	out := &collector{}
	ctrl := newTestController(t, demoDoc, heart, out, Config{DemoTimeout: time.Hour})

	ctrl.Start()
	ctrl.Close()
	if !heart.disconnected {
		t.Error("Close did not disconnect the stream")
	}

	// The parked timer must not fire a resolution later.
	ctrl.ResolveScam(true, 1)
	if _, ok := ctrl.Report(); ok {
		t.Error("no report expected after Close without finishing")
	}
}
