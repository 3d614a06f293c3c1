package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/inboxpilot/backend/internal/ai"
	"github.com/inboxpilot/backend/internal/db"
	"github.com/inboxpilot/backend/internal/mail"
	"github.com/inboxpilot/backend/internal/models"
	"github.com/inboxpilot/backend/internal/scoring"
)

const (
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// Store is the persistence surface the monitor needs. *db.Store
// implements it; tests substitute an in-memory fake.
type Store interface {
	FindOrCreateClient(ctx context.Context, email, name string) (models.Client, bool, error)
	ClaimMessage(ctx context.Context, messageID, runID string) (bool, error)
	LogCommunication(ctx context.Context, comm models.Communication) (string, error)
	SetCommunicationStatus(ctx context.Context, commID, status string) error
	GetConversationHistory(ctx context.Context, clientID string, limit int) ([]models.Communication, error)
	UpdateClientProfile(ctx context.Context, clientID string, u db.ProfileUpdate) error
	CreateTicket(ctx context.Context, t models.Ticket) (string, error)
	CreateRun(ctx context.Context) (string, error)
	FinishRun(ctx context.Context, runID, status string, processed, succeeded, failed int, summary []byte) error
}

// Monitor runs the inbox-processing job: list unread, then for each
// message claim, fetch, analyze, persist, score, dispatch, update the
// client and mark read. Messages are processed one at a time; the only
// intra-message parallelism is the analysis fan-out.
type Monitor struct {
	Mail       mail.Source
	AI         ai.Analyzer
	Store      Store
	Dispatcher *Dispatcher
	Logger     zerolog.Logger
}

// MessageResult is one entry in the per-run batch result.
type MessageResult struct {
	MessageID  string  `json:"message_id"`
	Success    bool    `json:"success"`
	Skipped    bool    `json:"skipped,omitempty"`
	Action     string  `json:"action,omitempty"`
	TicketID   string  `json:"ticket_id,omitempty"`
	Confidence float64 `json:"confidence"`
	ChurnRisk  int     `json:"churn_risk"`
	Error      string  `json:"error,omitempty"`
}

// BatchInsights summarizes one run.
type BatchInsights struct {
	Processed     int            `json:"processed"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	Skipped       int            `json:"skipped"`
	Actions       map[string]int `json:"actions"`
	AvgConfidence float64        `json:"avg_confidence"`
	AvgChurnRisk  float64        `json:"avg_churn_risk"`
}

// Run executes one monitor pass and records it as a monitor run.
func (m *Monitor) Run(ctx context.Context) (BatchInsights, error) {
	runID, err := m.Store.CreateRun(ctx)
	if err != nil {
		return BatchInsights{}, err
	}

	handles, err := m.Mail.ListUnread(ctx)
	if err != nil {
		m.Logger.Error().Err(err).Msg("listing unread messages failed")
		_ = m.Store.FinishRun(ctx, runID, RunStatusFailed, 0, 0, 0, nil)
		return BatchInsights{}, err
	}

	results := make([]MessageResult, 0, len(handles))
	for _, h := range handles {
		results = append(results, m.processMessage(ctx, runID, h))
	}

	insights := GenerateBatchInsights(results)
	summary, _ := json.Marshal(map[string]any{
		"insights": insights,
		"results":  results,
	})
	if err := m.Store.FinishRun(ctx, runID, RunStatusSuccess, insights.Processed, insights.Succeeded, insights.Failed, summary); err != nil {
		m.Logger.Error().Err(err).Str("run_id", runID).Msg("failed to finish run")
	}

	m.Logger.Info().
		Str("run_id", runID).
		Int("processed", insights.Processed).
		Int("succeeded", insights.Succeeded).
		Int("failed", insights.Failed).
		Int("skipped", insights.Skipped).
		Msg("monitor run complete")
	return insights, nil
}

func (m *Monitor) processMessage(ctx context.Context, runID string, h mail.Handle) MessageResult {
	claimed, err := m.Store.ClaimMessage(ctx, h.ID, runID)
	if err != nil {
		return MessageResult{MessageID: h.ID, Error: err.Error()}
	}
	if !claimed {
		return MessageResult{MessageID: h.ID, Skipped: true, Success: true}
	}

	msg, err := m.Mail.FetchFull(ctx, h.ID)
	if err != nil {
		return MessageResult{MessageID: h.ID, Error: err.Error()}
	}

	name, email := mail.ParseAddress(msg.From)
	client, created, err := m.Store.FindOrCreateClient(ctx, email, name)
	if err != nil {
		return MessageResult{MessageID: h.ID, Error: err.Error()}
	}
	if created {
		m.Logger.Info().Str("email", client.Email).Msg("new lead created from inbound email")
	}

	history, err := m.Store.GetConversationHistory(ctx, client.ID, scoring.HistoryWindow)
	if err != nil {
		return MessageResult{MessageID: h.ID, Error: err.Error()}
	}

	analysis := m.AI.Analyze(ctx, msg, history, client)

	commID, err := m.Store.LogCommunication(ctx, models.Communication{
		ClientID:  client.ID,
		MessageID: msg.ID,
		Direction: models.DirectionInbound,
		From:      msg.From,
		To:        msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Analysis:  analysis,
		Status:    models.CommStatusReceived,
		CreatedAt: msg.Date,
	})
	if err != nil {
		return MessageResult{MessageID: h.ID, Error: err.Error()}
	}

	predictions := scoring.Predict(time.Now().UTC(), analysis, history)
	decision := SelectAction(analysis, predictions)
	action := m.Dispatcher.Dispatch(ctx, decision, msg, client, commID, analysis, predictions)

	if err := m.Store.UpdateClientProfile(ctx, client.ID, db.ProfileUpdate{
		LastContactAt:     msg.Date,
		LastSentiment:     analysis.Sentiment,
		Language:          analysis.Language,
		ChurnRisk:         predictions.ChurnRisk,
		SatisfactionTrend: predictions.SatisfactionTrend,
		HasOpenIssue:      action.Action != ActionAutoRespond,
	}); err != nil {
		return MessageResult{MessageID: h.ID, Action: action.Action, Error: err.Error()}
	}

	if err := m.Mail.MarkRead(ctx, h.ID); err != nil {
		return MessageResult{MessageID: h.ID, Action: action.Action, Error: err.Error()}
	}

	return MessageResult{
		MessageID:  h.ID,
		Success:    action.Action != ActionFailed,
		Action:     action.Action,
		TicketID:   action.TicketID,
		Confidence: analysis.Confidence,
		ChurnRisk:  predictions.ChurnRisk,
		Error:      action.Error,
	}
}

// GenerateBatchInsights aggregates the per-message results. Averages
// run over all entries, counting a missing confidence as zero.
func GenerateBatchInsights(results []MessageResult) BatchInsights {
	insights := BatchInsights{Actions: map[string]int{}}
	var confSum, churnSum float64
	for _, r := range results {
		if r.Skipped {
			insights.Skipped++
			continue
		}
		insights.Processed++
		if r.Success {
			insights.Succeeded++
		} else {
			insights.Failed++
		}
		if r.Action != "" {
			insights.Actions[r.Action]++
		}
		confSum += r.Confidence
		churnSum += float64(r.ChurnRisk)
	}
	if insights.Processed > 0 {
		insights.AvgConfidence = confSum / float64(insights.Processed)
		insights.AvgChurnRisk = churnSum / float64(insights.Processed)
	}
	return insights
}
