package models

import "time"

const (
	ClientStatusLead   = "lead"
	ClientStatusActive = "active"

	CommStatusReceived      = "received"
	CommStatusAutoResponded = "auto_responded"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

type Client struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	Status              string     `json:"status"`
	VIP                 bool       `json:"vip"`
	HasOpenIssue        bool       `json:"has_open_issue"`
	Language            string     `json:"language"`
	LastContactAt       *time.Time `json:"last_contact_at"`
	LastSentiment       string     `json:"last_sentiment"`
	ChurnRisk           int        `json:"churn_risk"`
	SatisfactionTrend   string     `json:"satisfaction_trend"`
	TotalCommunications int        `json:"total_communications"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Message is a normalized inbound mail message, independent of the
// mailbox provider's wire format.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Date     time.Time `json:"date"`
}

type Communication struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	MessageID string    `json:"message_id"`
	Direction string    `json:"direction"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Analysis  Analysis  `json:"analysis"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis is the merged result of the five per-message sub-analyses.
// Confidence is the plain arithmetic mean of the primary, sentiment,
// intent and urgency sub-confidences.
type Analysis struct {
	CanAutoRespond        bool     `json:"can_auto_respond"`
	Response              string   `json:"response,omitempty"`
	Reasoning             string   `json:"reasoning,omitempty"`
	Confidence            float64  `json:"confidence"`
	Sentiment             string   `json:"sentiment"`
	Emotions              []string `json:"emotions,omitempty"`
	FrustrationScore      float64  `json:"frustration_score"`
	SatisfactionScore     float64  `json:"satisfaction_score"`
	PrimaryIntent         string   `json:"primary_intent"`
	SecondaryIntents      []string `json:"secondary_intents,omitempty"`
	SuggestedActions      []string `json:"suggested_actions,omitempty"`
	EscalationRecommended bool     `json:"escalation_recommended"`
	UrgencyLevel          string   `json:"urgency_level"`
	UrgencyScore          int      `json:"urgency_score"`
	Priority              string   `json:"priority"`
	ResponseDeadline      int      `json:"response_deadline_hours"`
	Language              string   `json:"language"`
	Tags                  []string `json:"tags,omitempty"`
	ModelsUsed            []string `json:"models_used"`
}

// Predictions are the fixed-formula heuristic scores derived from a
// client's stored communication history.
type Predictions struct {
	ChurnRisk             int       `json:"churn_risk"`
	SatisfactionTrend     string    `json:"satisfaction_trend"`
	NextContactAt         time.Time `json:"next_contact_at"`
	NextContactConfidence int       `json:"next_contact_confidence"`
	LTVTrend              string    `json:"ltv_trend"`
	ResponseQuality       int       `json:"response_quality"`
	ConversionProbability int       `json:"conversion_probability"`
	UpsellReadiness       int       `json:"upsell_readiness"`
}

type Ticket struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	CommunicationID string     `json:"communication_id"`
	Subject         string     `json:"subject"`
	Priority        string     `json:"priority"`
	Category        string     `json:"category"`
	AssignedTo      string     `json:"assigned_to"`
	RoutingScore    int        `json:"routing_score"`
	Analysis        []byte     `json:"analysis,omitempty"`
	Predictions     []byte     `json:"predictions,omitempty"`
	Status          string     `json:"status"`
	DueAt           *time.Time `json:"due_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Status     string     `json:"status"`
	Processed  int        `json:"processed"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Summary    []byte     `json:"summary"`
}
