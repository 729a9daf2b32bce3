package biometric

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"scamdrill/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotReady is returned by Subscribe before a connection exists.
var ErrNotReady = errors.New("heart rate stream is not connected")

// displayWindowCap bounds the live-display buffer; roughly ten minutes at
// one sample per second. The scoring history is never capped within a
// session.
const displayWindowCap = 600

// State is the connection lifecycle of a stream.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
)

// event is the wire frame shared by all inbound and outbound messages on the
// biometric socket.
type event struct {
	Type      string   `json:"type"`
	DevNames  []string `json:"devNames,omitempty"`
	DevName   string   `json:"devName,omitempty"`
	HeartRate float64  `json:"heartRate,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	StepID    string   `json:"stepId,omitempty"`
	StepLabel string   `json:"stepLabel,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// Stream manages one persistent connection per session to the external
// biometric service: device discovery, REST subscription, sample ingestion
// and step-change annotation.
type Stream struct {
	log        *zap.Logger
	baseURL    string
	socketPath string
	httpClient *http.Client

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	state    State
	devices  []string
	device   string
	display  []models.HeartRateSample
	history  []models.HeartRateSample
	onDevice func([]string)
	onSample func(models.HeartRateSample)

	now func() time.Time
}

// New creates a stream for the service at baseURL. The websocket and the
// subscribe endpoint share a cookie jar so credentials set by either carry
// over to the other.
func New(baseURL, socketPath string, log *zap.Logger) *Stream {
	jar, _ := cookiejar.New(nil)
	return &Stream{
		log:        log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		socketPath: socketPath,
		httpClient: &http.Client{Jar: jar, Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// OnDevices registers the device-list callback. Must be set before Connect.
func (s *Stream) OnDevices(fn func([]string)) {
	s.onDevice = fn
}

// OnSample registers the per-sample callback. Must be set before Connect.
func (s *Stream) OnSample(fn func(models.HeartRateSample)) {
	s.onSample = fn
}

// Connect dials the biometric socket and starts the read loop. Failures are
// logged and otherwise swallowed: the caller observes them only through the
// absence of device events, and scoring treats missing samples as a
// legitimate condition.
func (s *Stream) Connect() {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.mu.Unlock()

	wsURL, err := s.socketURL()
	if err != nil {
		s.log.Warn("biometric socket url invalid", zap.Error(err))
		s.setDisconnected(nil)
		return
	}

	dialer := websocket.Dialer{
		Jar:              s.httpClient.Jar,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		s.log.Warn("biometric socket connect failed", zap.String("url", wsURL), zap.Error(err))
		s.setDisconnected(nil)
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()

	go s.readLoop(conn)
}

func (s *Stream) socketURL() (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = s.socketPath
	return u.String(), nil
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			s.log.Debug("biometric socket closed", zap.Error(err))
			s.setDisconnected(conn)
			return
		}
		s.handleEvent(ev)
	}
}

// handleEvent applies one inbound event. Both sample buffers are updated
// under the same lock so they can never disagree.
func (s *Stream) handleEvent(ev event) {
	switch ev.Type {
	case "updateDevices":
		s.mu.Lock()
		s.devices = append([]string(nil), ev.DevNames...)
		names := append([]string(nil), s.devices...)
		fn := s.onDevice
		s.mu.Unlock()
		if fn != nil {
			fn(names)
		}
	case "addData":
		sample := models.HeartRateSample{
			TimestampMs: s.now().UnixMilli(),
			BPM:         ev.HeartRate,
			Device:      ev.DevName,
		}
		s.mu.Lock()
		if s.device != "" && ev.DevName != s.device {
			s.mu.Unlock()
			return
		}
		s.display = append(s.display, sample)
		if len(s.display) > displayWindowCap {
			s.display = s.display[len(s.display)-displayWindowCap:]
		}
		s.history = append(s.history, sample)
		fn := s.onSample
		s.mu.Unlock()
		if fn != nil {
			fn(sample)
		}
	case "subscribeAck":
		s.log.Debug("subscribe acknowledged", zap.String("device", ev.DevName))
	case "subscribeError":
		// Best effort: an error ack never affects local state.
		s.log.Warn("subscribe rejected by service", zap.String("reason", ev.Reason))
	default:
		s.log.Debug("ignoring unknown biometric event", zap.String("type", ev.Type))
	}
}

// Subscribe selects a device via the service's REST endpoint and resets the
// display buffer for it. It fails with ErrNotReady before Connect has
// established a connection.
func (s *Stream) Subscribe(device string) error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.mu.Unlock()

	resp, err := s.httpClient.Get(s.baseURL + "/api/subscribe/" + url.PathEscape(device))
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subscribe failed: status %d", resp.StatusCode)
	}

	s.mu.Lock()
	s.device = device
	s.display = nil
	s.state = StateSubscribed
	s.mu.Unlock()
	return nil
}

// NotifyStepChange sends a fire-and-forget annotation correlating samples
// with scenario progress. It is a no-op unless subscribed; delivery is not
// guaranteed and failure never affects local state.
func (s *Stream) NotifyStepChange(stepID, stepLabel string) {
	s.mu.Lock()
	conn := s.conn
	subscribed := s.state == StateSubscribed
	s.mu.Unlock()
	if !subscribed || conn == nil {
		return
	}

	s.writeMu.Lock()
	err := conn.WriteJSON(event{
		Type:      "stepChange",
		StepID:    stepID,
		StepLabel: stepLabel,
		Timestamp: s.now().UnixMilli(),
	})
	s.writeMu.Unlock()
	if err != nil {
		s.log.Debug("step change notification failed", zap.String("stepId", stepID), zap.Error(err))
	}
}

// Disconnect releases the connection and clears the device selection. Safe
// to call from any state, repeatedly.
func (s *Stream) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.device = ""
	s.state = StateDisconnected
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// setDisconnected marks the stream disconnected if conn is still current
// (nil matches any connection).
func (s *Stream) setDisconnected(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn != nil && s.conn != conn {
		return
	}
	s.conn = nil
	s.state = StateDisconnected
}

// State reports the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Devices returns the last device set announced by the service.
func (s *Stream) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.devices...)
}

// Latest returns the most recent accepted sample.
func (s *Stream) Latest() (models.HeartRateSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return models.HeartRateSample{}, false
	}
	return s.history[len(s.history)-1], true
}

// History returns the full uncapped sample history for scoring.
func (s *Stream) History() []models.HeartRateSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HeartRateSample(nil), s.history...)
}

// DisplayWindow returns the capped rolling buffer for live display.
func (s *Stream) DisplayWindow() []models.HeartRateSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HeartRateSample(nil), s.display...)
}
