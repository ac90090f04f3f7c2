package ranking

import (
	"testing"

	"leadscore_backend/internal/leads/repository"
	"leadscore_backend/internal/predictions/features"

	"github.com/google/uuid"
)

func candidate(leadScore, daysSinceActivity, totalActivities, engagement int, probability float64) Candidate {
	return Candidate{
		Lead: repository.Lead{ID: uuid.New(), LeadScore: leadScore},
		Features: features.LeadFeatures{
			Behavioral: features.BehavioralFeatures{TotalActivities: totalActivities},
			Temporal:   features.TemporalFeatures{DaysSinceLastActivity: daysSinceActivity},
			Engagement: features.EngagementFeatures{TotalEngagementScore: engagement},
		},
		Probability: probability,
	}
}

func TestTierFor_ExactBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{75, TierTop},
		{74.99, TierHigh},
		{50, TierHigh},
		{49.99, TierMedium},
		{25, TierMedium},
		{24.99, TierLow},
		{0, TierLow},
	}
	for _, c := range cases {
		if got := TierFor(c.score); got != c.want {
			t.Errorf("TierFor(%v) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestRuleBased_ScoreComposition(t *testing.T) {
	// 0.5*80 + 20 (recent) + 15 (volume) + 15 (engagement) = 90
	ranked := RuleBased([]Candidate{candidate(80, 1, 25, 70, 0.8)})
	if ranked[0].PriorityScore != 90 {
		t.Fatalf("priorityScore = %v, want 90", ranked[0].PriorityScore)
	}
	if ranked[0].PriorityTier != TierTop {
		t.Fatalf("tier = %q, want top", ranked[0].PriorityTier)
	}

	// 0.5*20 - 15 (stale) = -5, clamped to 0
	stale := RuleBased([]Candidate{candidate(20, 45, 0, 0, 0.05)})
	if stale[0].PriorityScore != 0 {
		t.Fatalf("stale priorityScore = %v, want 0 after clamp", stale[0].PriorityScore)
	}
	if stale[0].PriorityTier != TierLow {
		t.Fatalf("stale tier = %q, want low", stale[0].PriorityTier)
	}
}

func TestRuleBased_DenseRanksAndStableTies(t *testing.T) {
	a := candidate(60, 1, 25, 70, 0.6)
	b := candidate(60, 1, 25, 70, 0.6) // identical score to a
	c := candidate(90, 1, 25, 70, 0.9)

	ranked := RuleBased([]Candidate{a, b, c})

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked leads, got %d", len(ranked))
	}
	for i, r := range ranked {
		if r.PriorityRank != i+1 {
			t.Fatalf("rank at index %d = %d, want dense %d", i, r.PriorityRank, i+1)
		}
	}
	if ranked[0].Lead.ID != c.Lead.ID {
		t.Fatal("highest score did not rank first")
	}
	// Tie between a and b keeps input order.
	if ranked[1].Lead.ID != a.Lead.ID || ranked[2].Lead.ID != b.Lead.ID {
		t.Fatal("tied scores did not preserve input order")
	}
}

func TestMergeLLM_MissingLeadFails(t *testing.T) {
	a := candidate(60, 1, 10, 40, 0.5)
	b := candidate(70, 1, 10, 40, 0.6)

	_, err := MergeLLM([]Candidate{a, b}, []LLMRanking{
		{LeadID: a.Lead.ID, PriorityScore: 80, Reasoning: "engaged"},
	})
	if err == nil {
		t.Fatal("expected error when response misses a lead")
	}

	ranked, err := MergeLLM([]Candidate{a, b}, []LLMRanking{
		{LeadID: a.Lead.ID, PriorityScore: 80, Reasoning: "engaged"},
		{LeadID: b.Lead.ID, PriorityScore: 120, Reasoning: "very engaged"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Out-of-range LLM score is clamped.
	if ranked[0].PriorityScore != 100 {
		t.Fatalf("clamped score = %v, want 100", ranked[0].PriorityScore)
	}
	if ranked[0].Lead.ID != b.Lead.ID || ranked[0].PriorityRank != 1 {
		t.Fatal("expected highest LLM score ranked first")
	}
}

func TestFilterMinProbability_KeepsRanks(t *testing.T) {
	a := candidate(90, 1, 25, 70, 0.8)
	b := candidate(60, 1, 25, 70, 0.1)
	c := candidate(40, 1, 25, 70, 0.5)

	ranked := RuleBased([]Candidate{a, b, c})
	filtered, topTier := FilterMinProbability(ranked, 0.3)

	if len(filtered) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(filtered))
	}
	// Ranks are not renumbered after filtering.
	if filtered[0].PriorityRank != 1 {
		t.Fatalf("first survivor rank = %d, want 1", filtered[0].PriorityRank)
	}
	if filtered[1].PriorityRank != 3 {
		t.Fatalf("second survivor rank = %d, want original rank 3", filtered[1].PriorityRank)
	}
	if topTier != 1 {
		t.Fatalf("topTierCount = %d, want 1", topTier)
	}
}
