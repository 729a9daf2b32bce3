package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"scamdrill/biometric"
	"scamdrill/config"
	"scamdrill/db"
	"scamdrill/models"
	"scamdrill/scenario"
	"scamdrill/scoring"
	"scamdrill/services"
	"scamdrill/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	// The kiosk client and the server share an origin in production; adjust
	// CheckOrigin when deploying them separately.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub creates and serves participant session sockets.
type Hub struct {
	cfg *config.Config
	log *zap.Logger
}

// NewHub returns a hub bound to the server configuration.
func NewHub(cfg *config.Config, log *zap.Logger) *Hub {
	return &Hub{cfg: cfg, log: log}
}

// client wraps a participant connection with a write mutex, since controller
// updates and biometric callbacks write concurrently.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (cl *client) writeJSON(v any) error {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()
	return cl.conn.WriteJSON(v)
}

// inbound is a stimulus frame from the participant client.
type inbound struct {
	Type           string  `json:"type"`
	OptionID       string  `json:"optionId,omitempty"`
	Device         string  `json:"device,omitempty"`
	Correct        bool    `json:"correct,omitempty"`
	ElapsedSeconds float64 `json:"elapsedSeconds,omitempty"`
}

type outbound struct {
	Type    string                  `json:"type"`
	Names   []string                `json:"names,omitempty"`
	Sample  *models.HeartRateSample `json:"sample,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// SessionHandler upgrades the connection and runs one training session over
// it: scenario load, biometric stream lifecycle, stimulus dispatch and
// report delivery.
func (h *Hub) SessionHandler(c *gin.Context) {
	name := c.Query("scenario")
	if name == "" {
		name = "default"
	}

	loadCtx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	doc, err := services.LoadScenarioDocument(loadCtx, h.cfg, name)
	cancel()
	if err != nil {
		h.log.Error("scenario load failed", zap.String("scenario", name), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load scenario"})
		return
	}
	graph, _, err := scenario.Load(doc)
	if err != nil {
		h.log.Error("scenario parse failed", zap.String("scenario", name), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	cl := &client{conn: conn}

	stream := biometric.New(h.cfg.Biometric.BaseURL, h.cfg.Biometric.SocketPath, h.log)
	stream.OnDevices(func(names []string) {
		cl.writeJSON(outbound{Type: "devices", Names: names})
	})
	stream.OnSample(func(s models.HeartRateSample) {
		cl.writeJSON(outbound{Type: "heartRate", Sample: &s})
	})

	ctrl := session.New(name, graph, stream, session.Config{
		DemoTimeout:       time.Duration(h.cfg.Scoring.DemoTimeoutSec) * time.Second,
		BaselineHR:        h.cfg.Scoring.BaselineHR,
		RecoveryThreshold: h.cfg.Scoring.RecoveryThreshold,
		StabilityMode:     scoring.StabilityMode(h.cfg.Scoring.StabilityMode),
	}, h.log, func(u session.Update) {
		cl.writeJSON(u)
		if u.Type == "report" && u.Report != nil {
			go h.storeReport(cl, u.Report)
		}
	})

	h.log.Info("session started",
		zap.String("sessionId", ctrl.ID()),
		zap.String("scenario", name),
		zap.String("participant", c.GetString("participant")))

	stream.Connect()
	ctrl.Start()

	defer func() {
		ctrl.Close()
		conn.Close()
		h.log.Info("session closed", zap.String("sessionId", ctrl.ID()))
	}()

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug("participant socket closed", zap.String("sessionId", ctrl.ID()), zap.Error(err))
			return
		}

		switch msg.Type {
		case "subscribeDevice":
			if err := stream.Subscribe(msg.Device); err != nil {
				h.log.Warn("device subscribe failed",
					zap.String("sessionId", ctrl.ID()),
					zap.String("device", msg.Device),
					zap.Error(err))
				cl.writeJSON(outbound{Type: "error", Message: "device subscribe failed"})
			}
		case "answer":
			ctrl.SubmitAnswer(msg.OptionID)
		case "videoEnded":
			ctrl.VideoEnded()
		case "explainNext":
			ctrl.AdvanceExplain()
		case "scamInteraction":
			ctrl.RecordDecoyInteraction()
		case "scamResult":
			ctrl.ResolveScam(msg.Correct, msg.ElapsedSeconds)
		default:
			h.log.Debug("unknown client message",
				zap.String("sessionId", ctrl.ID()),
				zap.String("type", msg.Type))
		}
	}
}

// storeReport persists the report and, when the feedback service is
// configured, follows up with a coaching paragraph. Runs off the session
// goroutine; failures are logged but never surfaced to the participant.
func (h *Hub) storeReport(cl *client, report *models.ScoreReport) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if services.FeedbackEnabled() {
		feedback, err := services.GenerateReportFeedback(ctx, report)
		if err != nil {
			h.log.Warn("feedback generation failed", zap.String("sessionId", report.SessionID), zap.Error(err))
		} else {
			report.Feedback = feedback
			cl.writeJSON(outbound{Type: "feedback", Message: feedback})
		}
	}

	if err := db.SaveReport(ctx, report); err != nil {
		h.log.Error("failed to persist report", zap.String("sessionId", report.SessionID), zap.Error(err))
	}
}
