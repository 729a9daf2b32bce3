package utils

import (
	"context"
	"time"

	"scamdrill/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// defaultScenario is the stock training flow: an awareness quiz with an
// explanation, an instructional video, the simulated tech-support-scam step
// and its two outcome branches.
const defaultScenario = `{
  "steps": [
    {
      "id": "quiz1",
      "type": "quiz",
      "question": "A full-screen warning says your PC is infected and tells you to call a support number. What should you do?",
      "options": [
        { "id": "a", "option": "Call the number right away" },
        { "id": "b", "option": "Close the browser and do not call" },
        { "id": "c", "option": "Enter your password to unlock the screen" }
      ],
      "correct": "b",
      "nextId": "explain1"
    },
    {
      "id": "explain1",
      "type": "explain",
      "answer": "Close the browser and do not call.",
      "bodyCorrect": "Correct. Real security software never asks you to call a phone number from a browser popup.",
      "bodyWrong": "Not quite. Browser popups that demand a phone call are always scams; closing the browser is safe.",
      "nextId": "video1"
    },
    {
      "id": "video1",
      "type": "video",
      "src": "/videos/intro.mp4",
      "nextId": "demo1"
    },
    {
      "id": "demo1",
      "type": "demo",
      "options": ["call", "escape", "pay"],
      "correct": ["escape"],
      "retryOnFail": false,
      "videoCorrect": "correct1",
      "videoWrong": "wrong1",
      "nextId": "end",
      "backgroundImage": "/images/desktop-screenshot.jpg"
    },
    {
      "id": "correct1",
      "type": "video",
      "src": "/videos/correct.mp4",
      "nextId": "end"
    },
    {
      "id": "wrong1",
      "type": "video",
      "src": "/videos/wrong.mp4",
      "nextId": "end"
    }
  ],
  "biometricData": { "source": "default", "sampleRateHz": 1 }
}`

// SeedScenarioData stores the default scenario if no override exists yet, so
// a fresh install serves a working flow without a remote document source.
func SeedScenarioData(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := db.ScenarioOverridesCollection.CountDocuments(ctx, bson.M{"name": "default"})
	if err != nil {
		log.Warn("failed to check for seeded scenario", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	if err := db.PutScenarioOverride(ctx, "default", []byte(defaultScenario)); err != nil {
		log.Warn("failed to seed default scenario", zap.Error(err))
		return
	}
	log.Info("seeded default scenario")
}
