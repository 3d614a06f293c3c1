package ai

import (
	"context"
	"fmt"

	"github.com/inboxpilot/backend/internal/models"
	"github.com/inboxpilot/backend/internal/utils"
)

// MockAnalyzer fakes the three model sub-results deterministically from
// the message id and runs the real urgency and language heuristics, so
// dev mode exercises the same dispatch paths as production.
type MockAnalyzer struct {
	ModelVersion string
}

func (m MockAnalyzer) Analyze(ctx context.Context, msg models.Message, history []models.Communication, client models.Client) models.Analysis {
	h := utils.HashStringToUint64(msg.ID)

	sentiments := []string{"positive", "neutral", "negative"}
	intents := []string{"question", "complaint", "billing", "dispute_status", "cancellation"}

	sentiment := sentiments[int(h)%len(sentiments)]
	intent := intents[int(h/7)%len(intents)]
	confidence := 60 + float64(h%40)

	frustration := float64(h % 100)
	satisfaction := float64((h / 3) % 100)

	p := primaryIntentResult{
		CanAutoRespond: intent == "question" && sentiment != "negative",
		Response:       fmt.Sprintf("Thanks for reaching out about %q. Here is what we found.", msg.Subject),
		Reasoning:      "mock analysis",
		UrgencyLevel:   "normal",
		Confidence:     confidence,
		Tags:           []string{"mock"},
	}
	s := sentimentResult{
		Sentiment:         sentiment,
		FrustrationScore:  frustration,
		SatisfactionScore: satisfaction,
		Confidence:        confidence,
	}
	i := intentResult{Primary: intent, Confidence: confidence}

	u := ScoreUrgency(msg.Subject, msg.Body, client.VIP, client.HasOpenIssue)
	l := DetectLanguage(msg.Subject, msg.Body)

	out := merge(m.ModelVersion, p, s, i, u, l)
	return out
}
