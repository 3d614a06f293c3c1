package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/inboxpilot/backend/internal/models"
)

type primaryIntentResult struct {
	CanAutoRespond   bool     `json:"canAutoRespond"`
	Response         string   `json:"response"`
	Reasoning        string   `json:"reasoning"`
	UrgencyLevel     string   `json:"urgencyLevel"`
	Confidence       float64  `json:"confidence"`
	Tags             []string `json:"tags"`
	SuggestedActions []string `json:"suggestedActions"`
}

type sentimentResult struct {
	Sentiment         string   `json:"sentiment"`
	Emotions          []string `json:"emotions"`
	FrustrationScore  float64  `json:"frustrationScore"`
	SatisfactionScore float64  `json:"satisfactionScore"`
	Confidence        float64  `json:"confidence"`
	Tags              []string `json:"tags"`
}

type intentResult struct {
	Primary    string   `json:"primary"`
	Secondary  []string `json:"secondary"`
	Actions    []string `json:"actions"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags"`
}

// ModelAnalyzer runs the three model calls and the two deterministic
// heuristics concurrently, then merges the five results. All five must
// succeed; any failure yields the fixed fallback analysis.
type ModelAnalyzer struct {
	Chat   ChatClient
	Model  string
	Logger zerolog.Logger
}

// FallbackAnalysis is the analysis substituted when any sub-analysis
// fails. It always routes the message toward a human.
func FallbackAnalysis() models.Analysis {
	return models.Analysis{
		CanAutoRespond:    false,
		Confidence:        0,
		Sentiment:         "neutral",
		SatisfactionScore: 50,
		PrimaryIntent:     "unknown",
		UrgencyLevel:      "normal",
		UrgencyScore:      50,
		Priority:          models.PriorityNormal,
		ResponseDeadline:  24,
		Language:          "en",
		Tags:              []string{"ai_failed"},
		ModelsUsed:        []string{"fallback"},
	}
}

func (a *ModelAnalyzer) Analyze(ctx context.Context, msg models.Message, history []models.Communication, client models.Client) models.Analysis {
	var (
		wg        sync.WaitGroup
		primary   primaryIntentResult
		sentiment sentimentResult
		intent    intentResult
		urgency   UrgencyResult
		language  LanguageResult
		errs      [5]error
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		errs[0] = a.callJSON(ctx, primaryIntentPrompt(msg, history, client), 0.7, "primary.json", &primary)
	}()
	go func() {
		defer wg.Done()
		errs[1] = a.callJSON(ctx, sentimentPrompt(msg), 0.3, "sentiment.json", &sentiment)
	}()
	go func() {
		defer wg.Done()
		errs[2] = a.callJSON(ctx, intentPrompt(msg), 0.3, "intent.json", &intent)
	}()
	go func() {
		defer wg.Done()
		urgency = ScoreUrgency(msg.Subject, msg.Body, client.VIP, client.HasOpenIssue)
	}()
	go func() {
		defer wg.Done()
		language = DetectLanguage(msg.Subject, msg.Body)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			a.Logger.Warn().Err(err).Str("message_id", msg.ID).Msg("analysis sub-call failed, using fallback")
			return FallbackAnalysis()
		}
	}
	return merge(a.Model, primary, sentiment, intent, urgency, language)
}

func (a *ModelAnalyzer) callJSON(ctx context.Context, req ChatRequest, temp float64, schemaName string, out any) error {
	req.Temperature = temp
	req.ForceJSON = true
	raw, err := a.Chat.Complete(ctx, req)
	if err != nil {
		return err
	}
	return decodeValidated(schemaName, raw, out)
}

func merge(model string, p primaryIntentResult, s sentimentResult, i intentResult, u UrgencyResult, l LanguageResult) models.Analysis {
	confidences := []float64{p.Confidence, s.Confidence, i.Confidence, u.Confidence}
	var sum float64
	for _, c := range confidences {
		sum += clampFloat(c, 0, 100)
	}

	tags := dedupe(append(append(append([]string{}, p.Tags...), s.Tags...), i.Tags...))

	return models.Analysis{
		CanAutoRespond:        p.CanAutoRespond,
		Response:              p.Response,
		Reasoning:             p.Reasoning,
		Confidence:            sum / float64(len(confidences)),
		Sentiment:             s.Sentiment,
		Emotions:              s.Emotions,
		FrustrationScore:      s.FrustrationScore,
		SatisfactionScore:     s.SatisfactionScore,
		PrimaryIntent:         strings.ToLower(strings.TrimSpace(i.Primary)),
		SecondaryIntents:      i.Secondary,
		SuggestedActions:      p.SuggestedActions,
		EscalationRecommended: containsFold(p.SuggestedActions, "escalate"),
		UrgencyLevel:          moreSevere(u.Level, strings.ToLower(p.UrgencyLevel)),
		UrgencyScore:          u.Score,
		Priority:              u.Priority,
		ResponseDeadline:      u.DeadlineHours,
		Language:              l.Language,
		Tags:                  tags,
		ModelsUsed:            []string{model, "urgency_rules", "language_rules"},
	}
}

var severityRank = map[string]int{"low": 0, "normal": 1, "high": 2, "critical": 3}

func moreSevere(a, b string) string {
	if severityRank[b] > severityRank[a] {
		return b
	}
	if _, ok := severityRank[a]; !ok {
		return "normal"
	}
	return a
}

func primaryIntentPrompt(msg models.Message, history []models.Communication, client models.Client) ChatRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\nSubject: %s\n\n%s\n", msg.From, msg.Subject, msg.Body)
	if len(history) > 0 {
		b.WriteString("\nRecent conversation history (newest first):\n")
		for i, h := range history {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s (%s, %s)\n", h.Direction, h.Subject, h.Analysis.PrimaryIntent, h.Analysis.Sentiment)
		}
	}
	fmt.Fprintf(&b, "\nClient: name=%q vip=%v open_issue=%v language=%q total_messages=%d\n",
		client.Name, client.VIP, client.HasOpenIssue, client.Language, client.TotalCommunications)

	return ChatRequest{
		System: `You are a support assistant for a credit-repair company. Decide whether this email can be answered automatically and draft the reply if so. Respond with a JSON object: {"canAutoRespond": bool, "response": string, "reasoning": string, "urgencyLevel": "low"|"normal"|"high"|"critical", "confidence": number 0-100, "tags": [string], "suggestedActions": [string]}. Only set canAutoRespond true for simple, unambiguous questions you can fully answer.`,
		User:   b.String(),
	}
}

func sentimentPrompt(msg models.Message) ChatRequest {
	return ChatRequest{
		System: `Analyze the emotional tone of this client email. Respond with a JSON object: {"sentiment": "positive"|"neutral"|"negative", "emotions": [string], "frustrationScore": number 0-100, "satisfactionScore": number 0-100, "confidence": number 0-100, "tags": [string]}.`,
		User:   fmt.Sprintf("Subject: %s\n\n%s", msg.Subject, msg.Body),
	}
}

func intentPrompt(msg models.Message) ChatRequest {
	return ChatRequest{
		System: `Classify the intent of this client email. Common intents: question, complaint, cancellation, billing, dispute_status, document_request, compliment, other. Respond with a JSON object: {"primary": string, "secondary": [string], "actions": [string], "confidence": number 0-100, "tags": [string]}.`,
		User:   fmt.Sprintf("Subject: %s\n\n%s", msg.Subject, msg.Body),
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func containsFold(items []string, target string) bool {
	for _, s := range items {
		if strings.Contains(strings.ToLower(s), target) {
			return true
		}
	}
	return false
}

func dedupe(items []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
