package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/inboxpilot/backend/internal/models"
)

// scriptedChat routes each request to a canned response by matching a
// substring of the system prompt, mirroring how the three model calls
// are distinguished in production.
type scriptedChat struct {
	primary   string
	sentiment string
	intent    string
	err       error
}

func (c *scriptedChat) Complete(_ context.Context, req ChatRequest) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	switch {
	case strings.Contains(req.System, "canAutoRespond"):
		return c.primary, nil
	case strings.Contains(req.System, "emotional tone"):
		return c.sentiment, nil
	case strings.Contains(req.System, "Classify the intent"):
		return c.intent, nil
	}
	return "", errors.New("unexpected prompt")
}

func testAnalyzer(chat ChatClient) *ModelAnalyzer {
	return &ModelAnalyzer{Chat: chat, Model: "test-model", Logger: zerolog.Nop()}
}

func TestAnalyzeMergesConfidenceAsMean(t *testing.T) {
	chat := &scriptedChat{
		primary:   `{"canAutoRespond": true, "response": "Hi there", "reasoning": "simple question", "urgencyLevel": "normal", "confidence": 80, "tags": ["auto"], "suggestedActions": []}`,
		sentiment: `{"sentiment": "positive", "emotions": ["calm"], "frustrationScore": 10, "satisfactionScore": 70, "confidence": 90, "tags": ["auto"]}`,
		intent:    `{"primary": "Question", "secondary": [], "actions": [], "confidence": 70, "tags": ["intent"]}`,
	}
	a := testAnalyzer(chat)

	msg := models.Message{ID: "m1", Subject: "Quick question", Body: "What is the status of my dispute? Thanks"}
	got := a.Analyze(context.Background(), msg, nil, models.Client{})

	// Urgency heuristic on this text: base 25, "question" +5, "thanks" -5,
	// no matches beyond that, so it reports confidence 85 (keywords hit).
	u := ScoreUrgency(msg.Subject, msg.Body, false, false)
	want := (80 + 90 + 70 + u.Confidence) / 4
	if got.Confidence != want {
		t.Fatalf("merged confidence = %v, want %v", got.Confidence, want)
	}
	if !got.CanAutoRespond {
		t.Fatal("expected canAutoRespond carried from primary result")
	}
	if got.PrimaryIntent != "question" {
		t.Fatalf("primary intent not normalised: %q", got.PrimaryIntent)
	}
	if got.Sentiment != "positive" {
		t.Fatalf("sentiment = %q", got.Sentiment)
	}
	if got.Language != "en" {
		t.Fatalf("language = %q", got.Language)
	}
	wantModels := []string{"test-model", "urgency_rules", "language_rules"}
	if len(got.ModelsUsed) != len(wantModels) {
		t.Fatalf("modelsUsed = %v", got.ModelsUsed)
	}
	for i, m := range wantModels {
		if got.ModelsUsed[i] != m {
			t.Fatalf("modelsUsed = %v", got.ModelsUsed)
		}
	}
}

func TestAnalyzeDedupesTags(t *testing.T) {
	chat := &scriptedChat{
		primary:   `{"canAutoRespond": false, "confidence": 50, "tags": ["billing", "auto"]}`,
		sentiment: `{"sentiment": "neutral", "confidence": 50, "tags": ["billing"]}`,
		intent:    `{"primary": "billing", "confidence": 50, "tags": [" auto ", ""]}`,
	}
	got := testAnalyzer(chat).Analyze(context.Background(), models.Message{Subject: "Invoice", Body: "About my bill"}, nil, models.Client{})

	if len(got.Tags) != 2 || got.Tags[0] != "billing" || got.Tags[1] != "auto" {
		t.Fatalf("tags = %v", got.Tags)
	}
}

func TestAnalyzeEscalationFromSuggestedActions(t *testing.T) {
	chat := &scriptedChat{
		primary:   `{"canAutoRespond": false, "confidence": 60, "suggestedActions": ["Escalate to a human agent"]}`,
		sentiment: `{"sentiment": "negative", "confidence": 60}`,
		intent:    `{"primary": "complaint", "confidence": 60}`,
	}
	got := testAnalyzer(chat).Analyze(context.Background(), models.Message{Subject: "Unhappy", Body: "This is not ok"}, nil, models.Client{})

	if !got.EscalationRecommended {
		t.Fatal("expected escalation recommended from suggested actions")
	}
}

func TestAnalyzeModelErrorFallsBack(t *testing.T) {
	chat := &scriptedChat{err: errors.New("upstream down")}
	got := testAnalyzer(chat).Analyze(context.Background(), models.Message{Subject: "hi", Body: "hello"}, nil, models.Client{})

	assertFallback(t, got)
}

func TestAnalyzeInvalidJSONFallsBack(t *testing.T) {
	chat := &scriptedChat{
		primary:   `I cannot answer in JSON, sorry.`,
		sentiment: `{"sentiment": "neutral", "confidence": 50}`,
		intent:    `{"primary": "other", "confidence": 50}`,
	}
	got := testAnalyzer(chat).Analyze(context.Background(), models.Message{Subject: "hi", Body: "hello"}, nil, models.Client{})

	assertFallback(t, got)
}

func TestAnalyzeOutOfRangeConfidenceFallsBack(t *testing.T) {
	chat := &scriptedChat{
		primary:   `{"canAutoRespond": true, "confidence": 150}`,
		sentiment: `{"sentiment": "neutral", "confidence": 50}`,
		intent:    `{"primary": "other", "confidence": 50}`,
	}
	got := testAnalyzer(chat).Analyze(context.Background(), models.Message{Subject: "hi", Body: "hello"}, nil, models.Client{})

	assertFallback(t, got)
}

func assertFallback(t *testing.T, got models.Analysis) {
	t.Helper()
	want := FallbackAnalysis()
	if got.CanAutoRespond != want.CanAutoRespond ||
		got.Confidence != want.Confidence ||
		got.Sentiment != want.Sentiment ||
		got.PrimaryIntent != want.PrimaryIntent ||
		got.UrgencyLevel != want.UrgencyLevel ||
		got.Priority != want.Priority {
		t.Fatalf("expected fallback analysis, got %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "ai_failed" {
		t.Fatalf("fallback tags = %v", got.Tags)
	}
	if len(got.ModelsUsed) != 1 || got.ModelsUsed[0] != "fallback" {
		t.Fatalf("fallback modelsUsed = %v", got.ModelsUsed)
	}
}

func TestMoreSevere(t *testing.T) {
	cases := []struct {
		a, b, want string
	}{
		{"normal", "critical", "critical"},
		{"critical", "low", "critical"},
		{"low", "low", "low"},
		{"high", "", "high"},
		{"", "high", "high"},
		{"bogus", "bogus2", "normal"},
	}
	for _, c := range cases {
		if got := moreSevere(c.a, c.b); got != c.want {
			t.Errorf("moreSevere(%q, %q) = %q, want %q", c.a, c.b, got, c.want)
		}
	}
}

func TestDecodeValidatedMissingRequiredField(t *testing.T) {
	var out sentimentResult
	err := decodeValidated("sentiment.json", `{"confidence": 50}`, &out)
	if err == nil {
		t.Fatal("expected validation error for missing sentiment field")
	}
}
