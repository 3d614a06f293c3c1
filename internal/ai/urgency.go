package ai

import "strings"

// Urgency scoring is deliberately not model-based: a deterministic
// keyword heuristic over four word lists, adjusted by two client flags.

var (
	criticalKeywords = []string{
		"urgent", "emergency", "immediately", "asap", "right away",
		"lawsuit", "attorney", "legal action", "foreclosure", "eviction",
		"identity theft", "fraud alert",
	}
	highKeywords = []string{
		"frustrated", "angry", "unacceptable", "disappointed",
		"escalate", "supervisor", "deadline", "still waiting",
		"second time", "no response",
	}
	normalKeywords = []string{
		"question", "help", "update", "status", "when will",
		"how long", "please advise",
	}
	lowKeywords = []string{
		"thank you", "thanks", "great", "appreciate", "no rush",
		"whenever",
	}
)

type UrgencyResult struct {
	Score         int      `json:"score"`
	Level         string   `json:"level"`
	Priority      string   `json:"priority"`
	DeadlineHours int      `json:"deadline_hours"`
	Confidence    float64  `json:"confidence"`
	Matched       []string `json:"matched,omitempty"`
}

const urgencyBase = 25

// ScoreUrgency scores subject+body against the keyword lists. Any
// critical keyword forces the score to at least 95 before the VIP and
// open-issue bonuses. The result is clamped to [0, 100].
func ScoreUrgency(subject, body string, vip, hasOpenIssue bool) UrgencyResult {
	text := strings.ToLower(subject + " " + body)

	score := urgencyBase
	var matched []string
	critical := false

	for _, kw := range criticalKeywords {
		if strings.Contains(text, kw) {
			critical = true
			matched = append(matched, kw)
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(text, kw) {
			score += 15
			matched = append(matched, kw)
		}
	}
	for _, kw := range normalKeywords {
		if strings.Contains(text, kw) {
			score += 5
			matched = append(matched, kw)
		}
	}
	for _, kw := range lowKeywords {
		if strings.Contains(text, kw) {
			score -= 5
			matched = append(matched, kw)
		}
	}

	if critical && score < 95 {
		score = 95
	}
	if vip {
		score += 10
	}
	if hasOpenIssue {
		score += 15
	}
	score = clampInt(score, 0, 100)

	level := levelForScore(score)
	res := UrgencyResult{
		Score:      score,
		Level:      level,
		Priority:   level,
		Confidence: 50,
		Matched:    matched,
	}
	if len(matched) > 0 {
		res.Confidence = 85
	}
	switch level {
	case "critical":
		res.DeadlineHours = 1
	case "high":
		res.DeadlineHours = 4
	default:
		res.DeadlineHours = 24
	}
	return res
}

func levelForScore(score int) string {
	switch {
	case score >= 90:
		return "critical"
	case score >= 70:
		return "high"
	case score >= 40:
		return "normal"
	default:
		return "low"
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
