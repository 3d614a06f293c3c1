package ai

import "testing"

func TestScoreUrgencyCriticalKeyword(t *testing.T) {
	res := ScoreUrgency("URGENT - need help immediately", "This is an emergency", false, false)
	if res.Level != "critical" {
		t.Fatalf("expected critical level, got %s", res.Level)
	}
	if res.Score < 95 {
		t.Fatalf("expected score >= 95, got %d", res.Score)
	}
	if res.DeadlineHours != 1 {
		t.Fatalf("expected 1h deadline, got %d", res.DeadlineHours)
	}
}

func TestScoreUrgencyCriticalBeatsLowKeywords(t *testing.T) {
	// Low-signal words must not pull a critical message below the floor.
	res := ScoreUrgency("urgent", "thanks, no rush, appreciate it, whenever", false, false)
	if res.Level != "critical" || res.Score < 95 {
		t.Fatalf("expected critical >=95 despite low keywords, got %s/%d", res.Level, res.Score)
	}
}

func TestScoreUrgencyDeterministic(t *testing.T) {
	a := ScoreUrgency("emergency", "need this asap", true, true)
	b := ScoreUrgency("emergency", "need this asap", true, true)
	if a.Score != b.Score || a.Level != b.Level || a.Confidence != b.Confidence {
		t.Fatalf("expected deterministic scoring, got %+v vs %+v", a, b)
	}
	if a.Score != 100 {
		t.Fatalf("expected clamp at 100 with both bonuses, got %d", a.Score)
	}
}

func TestScoreUrgencyClientFlagBonuses(t *testing.T) {
	plain := ScoreUrgency("question about my account", "when will the update land?", false, false)
	vip := ScoreUrgency("question about my account", "when will the update land?", true, false)
	openIssue := ScoreUrgency("question about my account", "when will the update land?", false, true)

	if vip.Score != plain.Score+10 {
		t.Fatalf("expected +10 VIP bonus, got %d vs %d", vip.Score, plain.Score)
	}
	if openIssue.Score != plain.Score+15 {
		t.Fatalf("expected +15 open-issue bonus, got %d vs %d", openIssue.Score, plain.Score)
	}
}

func TestScoreUrgencyBands(t *testing.T) {
	cases := []struct {
		score int
		level string
	}{
		{95, "critical"},
		{75, "high"},
		{50, "normal"},
		{10, "low"},
	}
	for _, tc := range cases {
		if got := levelForScore(tc.score); got != tc.level {
			t.Errorf("score %d: expected %s, got %s", tc.score, tc.level, got)
		}
	}
}

func TestScoreUrgencyNoKeywords(t *testing.T) {
	res := ScoreUrgency("monthly report", "attached as discussed", false, false)
	if res.Level != "low" {
		t.Fatalf("expected low level for no matches, got %s", res.Level)
	}
	if res.Confidence != 50 {
		t.Fatalf("expected reduced confidence with no matches, got %v", res.Confidence)
	}
}
