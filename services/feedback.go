package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scamdrill/models"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

var feedbackClient *genai.Client

// InitFeedbackService initializes the Gemini client for post-session
// coaching feedback. An empty API key leaves the service disabled.
func InitFeedbackService(apiKey string) error {
	if apiKey == "" {
		return nil
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return err
	}
	feedbackClient = client
	return nil
}

// FeedbackEnabled reports whether coaching feedback can be generated.
func FeedbackEnabled() bool {
	return feedbackClient != nil
}

// GenerateReportFeedback produces a short coaching paragraph for a completed
// session's score report.
func GenerateReportFeedback(ctx context.Context, report *models.ScoreReport) (string, error) {
	if feedbackClient == nil {
		return "", errors.New("feedback service not initialized")
	}

	prompt := fmt.Sprintf(`You are a security-awareness coach. A participant just finished a
simulated tech-support-scam training session. Their scores out of 100:
knowledge %d, judgement %d, calmness %d, speed %d, recovery %d, overall %d.
Write a short encouraging paragraph (3-4 sentences) telling them what they
did well and the single most important thing to practice. Plain text only.`,
		report.Knowledge, report.Judgement, report.Calmness,
		report.Speed, report.Stability, report.Overall)

	resp, err := feedbackClient.Models.GenerateContent(ctx, defaultGeminiModel, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return cleanModelOutput(resp.Text()), nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
