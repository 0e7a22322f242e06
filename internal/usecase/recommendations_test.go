package usecase

import (
	"context"
	"testing"
)

func TestRecommendations(t *testing.T) {
	svc := NewRecommendationService(newTestScoringService())
	recs := svc.Recommendations(context.Background())

	if len(recs) != len(curatedPicks) {
		t.Fatalf("got %d picks, want %d", len(recs), len(curatedPicks))
	}

	for i := 1; i < len(recs); i++ {
		if recs[i].EcoScore > recs[i-1].EcoScore {
			t.Errorf("picks not sorted by descending score: %d before %d",
				recs[i-1].EcoScore, recs[i].EcoScore)
		}
	}

	for _, rec := range recs {
		if rec.Grade == "" || rec.EcoScore <= 0 {
			t.Errorf("pick %s missing score data: %+v", rec.ID, rec)
		}
		if rec.Price == "" || rec.Price[0] != '$' {
			t.Errorf("pick %s has unformatted price %q", rec.ID, rec.Price)
		}
	}

	t.Run("hemp jacket outranks recycled joggers", func(t *testing.T) {
		pos := map[string]int{}
		for i, rec := range recs {
			pos[rec.ID] = i
		}
		if pos["pick_hemp_denim"] > pos["pick_recycled_jogger"] {
			t.Error("hemp blend should score better than synthetic joggers")
		}
	})
}
