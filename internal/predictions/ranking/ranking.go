// Package ranking orders leads by outreach priority. The rule-based
// path is a pure function over lead score and engagement signals; the
// LLM batch path produces the same shape and always falls back to the
// rule-based path on failure.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"leadscore_backend/internal/leads/repository"
	"leadscore_backend/internal/predictions/features"

	"github.com/google/uuid"
)

// MaxLLMBatch caps how many leads fit into one ranking prompt.
// Larger sets are ranked rule-based.
const MaxLLMBatch = 20

// Priority tiers.
const (
	TierTop    = "top"
	TierHigh   = "high"
	TierMedium = "medium"
	TierLow    = "low"
)

// Candidate is one lead entering the ranking, with its derived
// features and conversion probability already computed.
type Candidate struct {
	Lead        repository.Lead
	Features    features.LeadFeatures
	Probability float64
}

// RankedLead is one ranking result. Ephemeral, recomputed per call.
type RankedLead struct {
	Lead                  repository.Lead
	PriorityRank          int
	PriorityTier          string
	PriorityScore         float64
	ConversionProbability float64
	Reasoning             string
}

// TierFor buckets a priority score.
func TierFor(score float64) string {
	switch {
	case score >= 75:
		return TierTop
	case score >= 50:
		return TierHigh
	case score >= 25:
		return TierMedium
	default:
		return TierLow
	}
}

// RuleBased scores and ranks candidates deterministically. Sorting is
// stable: ties keep the original fetch order.
func RuleBased(candidates []Candidate) []RankedLead {
	ranked := make([]RankedLead, len(candidates))
	for i, c := range candidates {
		score, reasoning := priorityScore(c)
		ranked[i] = RankedLead{
			Lead:                  c.Lead,
			PriorityScore:         score,
			PriorityTier:          TierFor(score),
			ConversionProbability: c.Probability,
			Reasoning:             reasoning,
		}
	}
	assignRanks(ranked)
	return ranked
}

func priorityScore(c Candidate) (float64, string) {
	score := 0.5 * float64(c.Lead.LeadScore)
	var reasons []string

	days := c.Features.Temporal.DaysSinceLastActivity
	switch {
	case days < 3:
		score += 20
		reasons = append(reasons, "very recent activity")
	case days < 7:
		score += 15
		reasons = append(reasons, "active this week")
	case days < 14:
		score += 10
		reasons = append(reasons, "active in the last two weeks")
	case days > 30:
		score -= 15
		reasons = append(reasons, "gone quiet for over a month")
	}

	total := c.Features.Behavioral.TotalActivities
	switch {
	case total >= 20:
		score += 15
		reasons = append(reasons, "heavy activity volume")
	case total >= 10:
		score += 10
		reasons = append(reasons, "solid activity volume")
	case total >= 5:
		score += 5
		reasons = append(reasons, "some activity")
	}

	engagement := c.Features.Engagement.TotalEngagementScore
	switch {
	case engagement >= 60:
		score += 15
		reasons = append(reasons, "strong email engagement")
	case engagement >= 30:
		score += 10
		reasons = append(reasons, "moderate email engagement")
	case engagement >= 10:
		score += 5
		reasons = append(reasons, "light email engagement")
	}

	score = clampScore(score)

	if len(reasons) == 0 {
		reasons = append(reasons, "no engagement signals yet")
	}
	reasoning := fmt.Sprintf("Lead score %d/100; %s.", c.Lead.LeadScore, strings.Join(reasons, ", "))
	return score, reasoning
}

// LLMRanking is the parsed batch response shape.
type LLMRanking struct {
	LeadID        uuid.UUID `json:"leadId"`
	PriorityScore float64   `json:"priorityScore"`
	Reasoning     string    `json:"reasoning"`
}

// MergeLLM joins LLM rankings back onto the candidates by lead id. It
// fails when the response misses a lead or references an unknown one,
// so the caller can fall back to the rule-based path.
func MergeLLM(candidates []Candidate, rankings []LLMRanking) ([]RankedLead, error) {
	byID := make(map[uuid.UUID]LLMRanking, len(rankings))
	for _, r := range rankings {
		byID[r.LeadID] = r
	}
	if len(byID) != len(candidates) {
		return nil, fmt.Errorf("ranking response covers %d of %d leads", len(byID), len(candidates))
	}

	ranked := make([]RankedLead, len(candidates))
	for i, c := range candidates {
		r, ok := byID[c.Lead.ID]
		if !ok {
			return nil, fmt.Errorf("ranking response missing lead %s", c.Lead.ID)
		}
		score := clampScore(r.PriorityScore)
		ranked[i] = RankedLead{
			Lead:                  c.Lead,
			PriorityScore:         score,
			PriorityTier:          TierFor(score),
			ConversionProbability: c.Probability,
			Reasoning:             strings.TrimSpace(r.Reasoning),
		}
	}
	assignRanks(ranked)
	return ranked, nil
}

// assignRanks sorts descending by score, ties keeping input order, and
// numbers ranks densely 1..N.
func assignRanks(ranked []RankedLead) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorityScore > ranked[j].PriorityScore
	})
	for i := range ranked {
		ranked[i].PriorityRank = i + 1
	}
}

// FilterMinProbability drops entries below the threshold without
// renumbering the surviving ranks. It returns the filtered list and
// the recomputed top-tier count.
func FilterMinProbability(ranked []RankedLead, minProbability float64) ([]RankedLead, int) {
	filtered := make([]RankedLead, 0, len(ranked))
	topTier := 0
	for _, r := range ranked {
		if r.ConversionProbability < minProbability {
			continue
		}
		filtered = append(filtered, r)
		if r.PriorityTier == TierTop {
			topTier++
		}
	}
	return filtered, topTier
}

// TopTierCount counts entries in the top tier.
func TopTierCount(ranked []RankedLead) int {
	count := 0
	for _, r := range ranked {
		if r.PriorityTier == TierTop {
			count++
		}
	}
	return count
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
