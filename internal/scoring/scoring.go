// Package scoring computes fixed-formula heuristic scores from a
// client's stored communication history. Everything here is pure and
// deterministic: no external calls, no persisted model state.
package scoring

import (
	"time"

	"github.com/inboxpilot/backend/internal/models"
)

const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// HistoryWindow bounds how much history feeds the formulas.
const HistoryWindow = 50

// Predict derives all heuristic scores for one analyzed message.
// history is ordered newest first.
func Predict(now time.Time, current models.Analysis, history []models.Communication) models.Predictions {
	if len(history) > HistoryWindow {
		history = history[:HistoryWindow]
	}

	nextAt, nextConf := NextContact(now, history)
	return models.Predictions{
		ChurnRisk:             ChurnRisk(current, history),
		SatisfactionTrend:     SatisfactionTrend(history),
		NextContactAt:         nextAt,
		NextContactConfidence: nextConf,
		LTVTrend:              LTVTrend(history),
		ResponseQuality:       ResponseQuality(current, history),
		ConversionProbability: ConversionProbability(current, history),
		UpsellReadiness:       UpsellReadiness(current, history),
	}
}

// ChurnRisk is an additive point scheme over the current analysis and
// the last five history entries, clamped to 100.
func ChurnRisk(current models.Analysis, history []models.Communication) int {
	score := 0
	if current.Sentiment == "negative" {
		score += 30
	}
	if current.FrustrationScore > 70 {
		score += 25
	}
	switch current.PrimaryIntent {
	case "cancellation":
		score += 40
	case "complaint":
		score += 20
	}

	recent := history
	if len(recent) > 5 {
		recent = recent[:5]
	}
	for _, h := range recent {
		if h.Analysis.Sentiment == "negative" {
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// SatisfactionTrend compares mean satisfaction of the newest ten
// records against the ten before them, with a ±5 dead band.
func SatisfactionTrend(history []models.Communication) string {
	if len(history) < 3 {
		return TrendStable
	}
	split := 10
	if split > len(history) {
		split = len(history) / 2
	}
	recent := meanSatisfaction(history[:split])
	older := meanSatisfaction(history[split:])
	switch {
	case recent > older+5:
		return TrendImproving
	case recent < older-5:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// NextContact predicts when the client will write again from the mean
// inter-contact interval. With fewer than two records it falls back to
// a fixed seven-day, 30-confidence guess.
func NextContact(now time.Time, history []models.Communication) (time.Time, int) {
	if len(history) < 2 {
		return now.Add(7 * 24 * time.Hour), 30
	}

	var total time.Duration
	intervals := 0
	for i := 0; i < len(history)-1; i++ {
		gap := history[i].CreatedAt.Sub(history[i+1].CreatedAt)
		if gap > 0 {
			total += gap
			intervals++
		}
	}
	if intervals == 0 {
		return now.Add(7 * 24 * time.Hour), 30
	}

	mean := total / time.Duration(intervals)
	conf := 40 + len(history)*5
	if conf > 90 {
		conf = 90
	}
	return now.Add(mean), conf
}

// LTVTrend labels the value trajectory from the sentiment balance of
// the last ten records.
func LTVTrend(history []models.Communication) string {
	recent := history
	if len(recent) > 10 {
		recent = recent[:10]
	}
	positives, negatives := 0, 0
	for _, h := range recent {
		switch h.Analysis.Sentiment {
		case "positive":
			positives++
		case "negative":
			negatives++
		}
	}
	switch {
	case positives > negatives+1:
		return TrendImproving
	case negatives > positives+1:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// ResponseQuality estimates how well-positioned an answer to this
// message is, capped at 95.
func ResponseQuality(current models.Analysis, history []models.Communication) int {
	score := 50
	if current.Confidence > 80 {
		score += 20
	}
	if meanSatisfaction(history) > 60 {
		score += 15
	}
	if len(history) > 10 {
		score += 10
	}
	if score > 95 {
		score = 95
	}
	return score
}

// ConversionProbability scores how likely a lead converts, in [0, 95].
func ConversionProbability(current models.Analysis, history []models.Communication) int {
	score := 30
	switch current.Sentiment {
	case "positive":
		score += 20
	case "negative":
		score -= 20
	}
	if current.PrimaryIntent == "question" || current.PrimaryIntent == "billing" {
		score += 15
	}
	if len(history) >= 3 {
		score += 10
	}
	if score < 0 {
		score = 0
	}
	if score > 95 {
		score = 95
	}
	return score
}

// UpsellReadiness is high only for satisfied, low-churn clients.
func UpsellReadiness(current models.Analysis, history []models.Communication) int {
	score := 20
	if meanSatisfaction(history) > 70 {
		score += 25
	}
	if ChurnRisk(current, history) < 30 {
		score += 15
	}
	if current.Sentiment == "positive" {
		score += 10
	}
	if score > 95 {
		score = 95
	}
	return score
}

// meanSatisfaction treats an unset satisfaction score as the neutral 50.
func meanSatisfaction(history []models.Communication) float64 {
	if len(history) == 0 {
		return 50
	}
	var sum float64
	for _, h := range history {
		v := h.Analysis.SatisfactionScore
		if v == 0 {
			v = 50
		}
		sum += v
	}
	return sum / float64(len(history))
}
