package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/inboxpilot/backend/internal/models"
	"github.com/inboxpilot/backend/internal/notify"
)

const (
	ActionEscalate    = "escalate"
	ActionRetention   = "retention"
	ActionAutoRespond = "auto_respond"
	ActionTicket      = "ticket"
	ActionFailed      = "failed"

	escalationAssignee = "chris"
	churnThreshold     = 70
	autoRespondMinConf = 75
)

// Decision is the outcome of the priority cascade, before any side
// effect runs.
type Decision struct {
	Action       string `json:"action"`
	Priority     string `json:"priority"`
	AssignedTo   string `json:"assigned_to,omitempty"`
	Category     string `json:"category,omitempty"`
	RoutingScore int    `json:"routing_score"`
}

// SelectAction applies the strict, ordered cascade: critical escalation,
// then churn retention, then auto-respond, then a default ticket.
// First match wins; the order is total.
func SelectAction(a models.Analysis, p models.Predictions) Decision {
	switch {
	case a.UrgencyLevel == models.PriorityCritical || a.EscalationRecommended:
		return Decision{
			Action:     ActionEscalate,
			Priority:   models.PriorityCritical,
			AssignedTo: escalationAssignee,
			Category:   "escalation",
		}
	case p.ChurnRisk > churnThreshold:
		return Decision{
			Action:   ActionRetention,
			Priority: models.PriorityHigh,
			Category: "retention",
		}
	case a.CanAutoRespond && a.Confidence > autoRespondMinConf:
		return Decision{Action: ActionAutoRespond}
	default:
		return Decision{
			Action:       ActionTicket,
			Priority:     a.Priority,
			Category:     a.PrimaryIntent,
			RoutingScore: routingScore(a, p),
		}
	}
}

func routingScore(a models.Analysis, p models.Predictions) int {
	score := a.UrgencyScore + p.ChurnRisk/2 + int(a.FrustrationScore)/4
	if score > 100 {
		score = 100
	}
	return score
}

// ActionResult records what the dispatcher did for one message.
type ActionResult struct {
	Action    string `json:"action"`
	TicketID  string `json:"ticket_id,omitempty"`
	EmailSent bool   `json:"email_sent"`
	Error     string `json:"error,omitempty"`
}

// Dispatcher executes a Decision's side effects. The writes are not
// transactional across ticket and email: a mid-branch failure is
// reported as a failed action for that message only.
type Dispatcher struct {
	Store        Store
	Mailer       notify.Mailer
	EscalationTo []string
	RetentionTo  string
	Logger       zerolog.Logger
}

func (d *Dispatcher) Dispatch(ctx context.Context, decision Decision, msg models.Message, client models.Client, commID string, a models.Analysis, p models.Predictions) ActionResult {
	var (
		res ActionResult
		err error
	)
	switch decision.Action {
	case ActionEscalate:
		res, err = d.escalate(ctx, decision, msg, client, commID, a, p)
	case ActionRetention:
		res, err = d.retain(ctx, decision, msg, client, commID, a, p)
	case ActionAutoRespond:
		res, err = d.autoRespond(ctx, msg, client, commID, a)
	default:
		res, err = d.createStandardTicket(ctx, decision, msg, client, commID, a, p)
	}
	if err != nil {
		d.Logger.Error().Err(err).Str("message_id", msg.ID).Str("action", decision.Action).Msg("dispatch failed")
		res.Action = ActionFailed
		res.Error = err.Error()
	}
	return res
}

func (d *Dispatcher) escalate(ctx context.Context, decision Decision, msg models.Message, client models.Client, commID string, a models.Analysis, p models.Predictions) (ActionResult, error) {
	ticketID, err := d.createTicket(ctx, decision, msg, client, commID, a, p)
	if err != nil {
		return ActionResult{}, err
	}

	email, err := notify.CriticalAlert(d.EscalationTo, notify.CriticalAlertData{
		From:          msg.From,
		Subject:       msg.Subject,
		Body:          msg.Body,
		UrgencyScore:  a.UrgencyScore,
		TicketID:      ticketID,
		AssignedTo:    decision.AssignedTo,
		DeadlineHours: a.ResponseDeadline,
	})
	if err != nil {
		return ActionResult{Action: ActionEscalate, TicketID: ticketID}, err
	}
	if err := d.Mailer.Send(ctx, email); err != nil {
		return ActionResult{Action: ActionEscalate, TicketID: ticketID}, err
	}
	return ActionResult{Action: ActionEscalate, TicketID: ticketID, EmailSent: true}, nil
}

func (d *Dispatcher) retain(ctx context.Context, decision Decision, msg models.Message, client models.Client, commID string, a models.Analysis, p models.Predictions) (ActionResult, error) {
	ticketID, err := d.createTicket(ctx, decision, msg, client, commID, a, p)
	if err != nil {
		return ActionResult{}, err
	}

	email, err := notify.ChurnAlert(d.RetentionTo, notify.ChurnAlertData{
		ClientEmail:       client.Email,
		Body:              msg.Body,
		ChurnRisk:         p.ChurnRisk,
		SatisfactionTrend: p.SatisfactionTrend,
		TicketID:          ticketID,
	})
	if err != nil {
		return ActionResult{Action: ActionRetention, TicketID: ticketID}, err
	}
	if err := d.Mailer.Send(ctx, email); err != nil {
		return ActionResult{Action: ActionRetention, TicketID: ticketID}, err
	}
	return ActionResult{Action: ActionRetention, TicketID: ticketID, EmailSent: true}, nil
}

func (d *Dispatcher) autoRespond(ctx context.Context, msg models.Message, client models.Client, commID string, a models.Analysis) (ActionResult, error) {
	email, err := notify.AutoReply(client.Email, msg.Subject, notify.AutoReplyData{
		Name:       client.Name,
		Paragraphs: splitParagraphs(a.Response),
	})
	if err != nil {
		return ActionResult{}, err
	}
	if err := d.Mailer.Send(ctx, email); err != nil {
		return ActionResult{}, err
	}
	if err := d.Store.SetCommunicationStatus(ctx, commID, models.CommStatusAutoResponded); err != nil {
		return ActionResult{Action: ActionAutoRespond, EmailSent: true}, err
	}
	return ActionResult{Action: ActionAutoRespond, EmailSent: true}, nil
}

func (d *Dispatcher) createStandardTicket(ctx context.Context, decision Decision, msg models.Message, client models.Client, commID string, a models.Analysis, p models.Predictions) (ActionResult, error) {
	ticketID, err := d.createTicket(ctx, decision, msg, client, commID, a, p)
	if err != nil {
		return ActionResult{}, err
	}

	email, err := notify.Acknowledgement(client.Email, msg.Subject, notify.AckData{
		Name:     client.Name,
		TicketID: ticketID,
		ETAHours: etaHours(decision.Priority),
	})
	if err != nil {
		return ActionResult{Action: ActionTicket, TicketID: ticketID}, err
	}
	if err := d.Mailer.Send(ctx, email); err != nil {
		return ActionResult{Action: ActionTicket, TicketID: ticketID}, err
	}
	return ActionResult{Action: ActionTicket, TicketID: ticketID, EmailSent: true}, nil
}

func (d *Dispatcher) createTicket(ctx context.Context, decision Decision, msg models.Message, client models.Client, commID string, a models.Analysis, p models.Predictions) (string, error) {
	analysisJSON, _ := json.Marshal(a)
	predictionsJSON, _ := json.Marshal(p)

	due := time.Now().UTC().Add(time.Duration(etaHours(decision.Priority)) * time.Hour)
	return d.Store.CreateTicket(ctx, models.Ticket{
		ClientID:        client.ID,
		CommunicationID: commID,
		Subject:         msg.Subject,
		Priority:        decision.Priority,
		Category:        decision.Category,
		AssignedTo:      decision.AssignedTo,
		RoutingScore:    decision.RoutingScore,
		Analysis:        analysisJSON,
		Predictions:     predictionsJSON,
		DueAt:           &due,
		CreatedAt:       time.Now().UTC(),
	})
}

func etaHours(priority string) int {
	switch priority {
	case models.PriorityCritical:
		return 1
	case models.PriorityHigh:
		return 4
	default:
		return 24
	}
}

func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
