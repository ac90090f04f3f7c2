package service

import (
	"context"
	"encoding/json"
	"fmt"

	"leadscore_backend/internal/predictions/prompt"
	"leadscore_backend/internal/predictions/ranking"
	"leadscore_backend/internal/predictions/transport"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/ai/llm"

	"github.com/google/uuid"
)

// RankOptions control a ranking request.
type RankOptions struct {
	Limit          int
	Tier           string
	MinProbability float64
	RuleBasedOnly  bool
}

// RankLeads fetches the organization's top-scored leads and orders
// them by outreach priority. Sets small enough for one prompt go
// through the LLM; anything larger, or any LLM failure, is ranked by
// the deterministic path.
func (s *Service) RankLeads(ctx context.Context, organizationID uuid.UUID, opts RankOptions) (transport.RankingResponse, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.bulkLimit
	}

	leads, err := s.leads.ListTopScored(ctx, organizationID, limit)
	if err != nil {
		return transport.RankingResponse{}, apperr.Wrap(apperr.KindInternal, "failed to list leads for ranking", err)
	}

	candidates := make([]ranking.Candidate, len(leads))
	for i, lead := range leads {
		lctx, err := s.gatherContext(ctx, lead.ID, organizationID)
		if err != nil {
			return transport.RankingResponse{}, err
		}
		candidates[i] = ranking.Candidate{
			Lead:        lctx.Lead,
			Features:    lctx.Features,
			Probability: lctx.RuleResult.Probability,
		}
	}

	ranked, rankedBy := s.rank(ctx, candidates, opts)

	topTier := ranking.TopTierCount(ranked)
	if opts.MinProbability > 0 {
		ranked, topTier = ranking.FilterMinProbability(ranked, opts.MinProbability)
	}
	if opts.Tier != "" {
		ranked = filterTier(ranked, opts.Tier)
	}

	resp := transport.RankingResponse{
		Leads:        make([]transport.RankedLeadResponse, len(ranked)),
		TopTierCount: topTier,
		RankedBy:     rankedBy,
		GeneratedAt:  s.now().UTC(),
	}
	for i, r := range ranked {
		resp.Leads[i] = transport.RankedLeadResponse{
			LeadID:                r.Lead.ID,
			FirstName:             r.Lead.FirstName,
			LastName:              r.Lead.LastName,
			Company:               r.Lead.Company,
			PriorityRank:          r.PriorityRank,
			PriorityTier:          r.PriorityTier,
			PriorityScore:         r.PriorityScore,
			ConversionProbability: r.ConversionProbability,
			Reasoning:             r.Reasoning,
		}
	}
	return resp, nil
}

// rank picks the LLM batch path when it can, otherwise the rule-based
// path. Returns which path produced the order.
func (s *Service) rank(ctx context.Context, candidates []ranking.Candidate, opts RankOptions) ([]ranking.RankedLead, string) {
	useLLM := !opts.RuleBasedOnly && s.llmAvailable() &&
		len(candidates) > 0 && len(candidates) <= ranking.MaxLLMBatch

	if useLLM {
		ranked, err := s.rankWithLLM(ctx, candidates)
		if err == nil {
			return ranked, "llm"
		}
		s.log.PredictionFallback("batch", "PRIORITY", err)
	}
	return ranking.RuleBased(candidates), "rule-based"
}

func (s *Service) rankWithLLM(ctx context.Context, candidates []ranking.Candidate) ([]ranking.RankedLead, error) {
	prompts := make([]prompt.RankingLead, len(candidates))
	for i, c := range candidates {
		prompts[i] = prompt.RankingLead{
			Lead:        c.Lead,
			Features:    c.Features,
			Probability: c.Probability,
		}
	}

	raw, _, err := s.llmClient.CompleteJSON(ctx, prompt.BuildRanking(prompts), prompt.RankingSchema, llm.CompletionOptions{
		Temperature:  0.2,
		MaxTokens:    4096,
		SystemPrompt: prompt.SystemPrompt,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Rankings []ranking.LLMRanking `json:"rankings"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse ranking response: %w", err)
	}

	return ranking.MergeLLM(candidates, parsed.Rankings)
}

func filterTier(ranked []ranking.RankedLead, tier string) []ranking.RankedLead {
	filtered := make([]ranking.RankedLead, 0, len(ranked))
	for _, r := range ranked {
		if r.PriorityTier == tier {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
