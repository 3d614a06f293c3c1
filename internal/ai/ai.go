package ai

import (
	"context"

	"github.com/inboxpilot/backend/internal/models"
)

// Analyzer produces the merged analysis for one inbound message.
// Analyze never fails: when any sub-analysis fails the fixed fallback
// analysis is returned, tagged so the dispatcher routes to a human.
type Analyzer interface {
	Analyze(ctx context.Context, msg models.Message, history []models.Communication, client models.Client) models.Analysis
}

// ChatRequest is one chat-completion call. ForceJSON asks the provider
// for a JSON-object response format.
type ChatRequest struct {
	System      string
	User        string
	Temperature float64
	ForceJSON   bool
}

// ChatClient is the minimal surface of a chat-completion provider.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
