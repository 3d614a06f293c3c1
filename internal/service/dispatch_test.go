package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/inboxpilot/backend/internal/models"
	"github.com/inboxpilot/backend/internal/notify"
)

func TestSelectActionCriticalWinsOverEverything(t *testing.T) {
	a := models.Analysis{
		UrgencyLevel:   models.PriorityCritical,
		CanAutoRespond: true,
		Confidence:     95,
	}
	p := models.Predictions{ChurnRisk: 100}

	got := SelectAction(a, p)
	if got.Action != ActionEscalate {
		t.Fatalf("action = %q, want escalate", got.Action)
	}
	if got.Priority != models.PriorityCritical || got.AssignedTo != escalationAssignee {
		t.Fatalf("decision = %+v", got)
	}
}

func TestSelectActionEscalationRecommendedAlone(t *testing.T) {
	a := models.Analysis{UrgencyLevel: models.PriorityLow, EscalationRecommended: true}
	if got := SelectAction(a, models.Predictions{}); got.Action != ActionEscalate {
		t.Fatalf("action = %q, want escalate", got.Action)
	}
}

func TestSelectActionChurnBeatsAutoRespond(t *testing.T) {
	a := models.Analysis{CanAutoRespond: true, Confidence: 95, UrgencyLevel: models.PriorityNormal}
	p := models.Predictions{ChurnRisk: 71}

	got := SelectAction(a, p)
	if got.Action != ActionRetention {
		t.Fatalf("action = %q, want retention", got.Action)
	}
	if got.Priority != models.PriorityHigh || got.Category != "retention" {
		t.Fatalf("decision = %+v", got)
	}
}

func TestSelectActionChurnThresholdIsStrict(t *testing.T) {
	a := models.Analysis{CanAutoRespond: true, Confidence: 95, UrgencyLevel: models.PriorityNormal}
	if got := SelectAction(a, models.Predictions{ChurnRisk: 70}); got.Action != ActionAutoRespond {
		t.Fatalf("action = %q, want auto_respond at churn 70", got.Action)
	}
}

func TestSelectActionAutoRespondConfidenceIsStrict(t *testing.T) {
	a := models.Analysis{
		CanAutoRespond: true,
		Confidence:     75,
		UrgencyLevel:   models.PriorityNormal,
		Priority:       models.PriorityNormal,
		PrimaryIntent:  "question",
	}
	got := SelectAction(a, models.Predictions{})
	if got.Action != ActionTicket {
		t.Fatalf("action = %q, want ticket at confidence 75", got.Action)
	}
	if got.Category != "question" || got.Priority != models.PriorityNormal {
		t.Fatalf("decision = %+v", got)
	}
}

func TestSelectActionDefaultTicketRoutingScore(t *testing.T) {
	a := models.Analysis{
		UrgencyLevel:     models.PriorityHigh,
		UrgencyScore:     80,
		FrustrationScore: 60,
		Priority:         models.PriorityHigh,
		PrimaryIntent:    "billing",
	}
	p := models.Predictions{ChurnRisk: 50}

	got := SelectAction(a, p)
	if got.Action != ActionTicket {
		t.Fatalf("action = %q, want ticket", got.Action)
	}
	// 80 + 50/2 + 60/4 = 120, capped.
	if got.RoutingScore != 100 {
		t.Fatalf("routing score = %d, want cap at 100", got.RoutingScore)
	}
}

func TestRoutingScore(t *testing.T) {
	a := models.Analysis{UrgencyScore: 40, FrustrationScore: 40}
	p := models.Predictions{ChurnRisk: 30}
	if got := routingScore(a, p); got != 40+15+10 {
		t.Fatalf("routing score = %d, want 65", got)
	}

	// 90 + 100/2 + 100/4 = 165, capped.
	a = models.Analysis{UrgencyScore: 90, FrustrationScore: 100}
	p = models.Predictions{ChurnRisk: 100}
	if got := routingScore(a, p); got != 100 {
		t.Fatalf("routing score = %d, want cap at 100", got)
	}
}

func TestEtaHours(t *testing.T) {
	cases := map[string]int{
		models.PriorityCritical: 1,
		models.PriorityHigh:     4,
		models.PriorityNormal:   24,
		models.PriorityLow:      24,
		"":                      24,
	}
	for priority, want := range cases {
		if got := etaHours(priority); got != want {
			t.Errorf("etaHours(%q) = %d, want %d", priority, got, want)
		}
	}
}

func TestDispatchTicketFailureReportsFailedAction(t *testing.T) {
	st := newFakeStore()
	st.ticketErr = errors.New("insert failed")
	d := &Dispatcher{
		Store:        st,
		Mailer:       &notify.MockMailer{},
		EscalationTo: []string{"chris@inboxpilot.app"},
		RetentionTo:  "retention@inboxpilot.app",
		Logger:       zerolog.Nop(),
	}

	decision := Decision{Action: ActionEscalate, Priority: models.PriorityCritical, AssignedTo: escalationAssignee}
	msg := models.Message{ID: "m1", Subject: "help", Body: "help", Date: time.Now()}
	res := d.Dispatch(context.Background(), decision, msg, models.Client{ID: "c1", Email: "a@example.com"}, "comm-1", models.Analysis{}, models.Predictions{})

	if res.Action != ActionFailed {
		t.Fatalf("action = %q, want failed", res.Action)
	}
	if res.Error == "" {
		t.Fatal("expected error recorded on result")
	}
}

func TestDispatchStandardTicketSendsAcknowledgement(t *testing.T) {
	st := newFakeStore()
	mailer := &notify.MockMailer{}
	d := &Dispatcher{Store: st, Mailer: mailer, RetentionTo: "retention@inboxpilot.app", Logger: zerolog.Nop()}

	decision := Decision{Action: ActionTicket, Priority: models.PriorityNormal, Category: "question", RoutingScore: 40}
	msg := models.Message{ID: "m1", Subject: "Question about fees", Body: "How much?", Date: time.Now()}
	client := models.Client{ID: "c1", Email: "lee@example.com", Name: "Lee"}

	res := d.Dispatch(context.Background(), decision, msg, client, "comm-1", models.Analysis{}, models.Predictions{})
	if res.Action != ActionTicket || !res.EmailSent {
		t.Fatalf("result = %+v", res)
	}
	if len(st.tickets) != 1 {
		t.Fatalf("expected one ticket, got %d", len(st.tickets))
	}
	if st.tickets[0].RoutingScore != 40 || st.tickets[0].Category != "question" {
		t.Fatalf("ticket = %+v", st.tickets[0])
	}
	if st.tickets[0].DueAt == nil {
		t.Fatal("ticket due date not set")
	}
	if mailer.SentCount() != 1 || mailer.Sent[0].To[0] != "lee@example.com" {
		t.Fatalf("acknowledgement = %+v", mailer.Sent)
	}
}
