package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	leadsrepo "leadscore_backend/internal/leads/repository"
	"leadscore_backend/internal/predictions/features"
	"leadscore_backend/internal/predictions/prompt"
	"leadscore_backend/internal/predictions/ranking"
	"leadscore_backend/internal/predictions/repository"
	"leadscore_backend/internal/predictions/scoring"
	"leadscore_backend/platform/ai/llm"
)

// FallbackModel is stamped into llmMetadata whenever the deterministic
// scorer produced the answer.
const FallbackModel = "rule-based-fallback"

// LLMClient is the capability contract the orchestrator needs from the
// language model. Satisfied by *llm.Client.
type LLMClient interface {
	Available() bool
	CompleteJSON(ctx context.Context, prompt, schemaHint string, opts llm.CompletionOptions) (json.RawMessage, llm.Usage, error)
}

// leadContext is everything gathered about one lead before prediction.
// Now is the clock reading the features were extracted against, reused
// so the prompt and the features agree on the reference time.
type leadContext struct {
	Lead       leadsrepo.Lead
	Activities []leadsrepo.Activity
	Enrollment *leadsrepo.Enrollment
	Features   features.LeadFeatures
	RuleResult scoring.Result
	Now        time.Time
}

// outcome is a prediction before persistence, whichever path produced it.
type outcome struct {
	Probability     float64
	Confidence      float64
	PredictedValue  *float64
	PredictedDays   *int
	RiskFactors     []scoring.RiskFactor
	Explanation     string
	Recommendations []scoring.Recommendation
	Metadata        repository.LLMMetadata
}

// predictor turns gathered lead context into a prediction outcome.
type predictor interface {
	Predict(ctx context.Context, lctx leadContext, predictionType string) (outcome, error)
}

// rulePredictor answers from the deterministic scorer. It never fails.
type rulePredictor struct{}

func (rulePredictor) Predict(_ context.Context, lctx leadContext, predictionType string) (outcome, error) {
	r := lctx.RuleResult
	days := r.PredictedDays

	out := outcome{
		Probability:     r.Probability,
		Confidence:      r.Confidence,
		PredictedDays:   &days,
		RiskFactors:     r.RiskFactors,
		Explanation:     r.Explanation,
		Recommendations: r.Recommendations,
		Metadata:        repository.LLMMetadata{Model: FallbackModel},
	}

	switch predictionType {
	case repository.TypeScore:
		value := float64(r.Breakdown.Total)
		out.PredictedValue = &value
	case repository.TypePriority:
		ranked := ranking.RuleBased([]ranking.Candidate{{
			Lead:        lctx.Lead,
			Features:    lctx.Features,
			Probability: r.Probability,
		}})
		out.PredictedValue = &ranked[0].PriorityScore
		out.Explanation = ranked[0].Reasoning
	}

	return out, nil
}

// llmPrediction is the JSON shape requested from the model.
type llmPrediction struct {
	Probability     float64                  `json:"probability"`
	Confidence      float64                  `json:"confidence"`
	PredictedDays   *int                     `json:"predictedDays"`
	Explanation     string                   `json:"explanation"`
	RiskFactors     []scoring.RiskFactor     `json:"riskFactors"`
	Recommendations []scoring.Recommendation `json:"recommendations"`
}

// llmPredictor asks the language model, normalizing its answer into
// the same bounds the rule-based model guarantees.
type llmPredictor struct {
	client LLMClient
}

func (p llmPredictor) Predict(ctx context.Context, lctx leadContext, predictionType string) (outcome, error) {
	promptText := prompt.BuildPrediction(prompt.PredictionInput{
		Lead:           lctx.Lead,
		Activities:     lctx.Activities,
		Features:       lctx.Features,
		RuleResult:     lctx.RuleResult,
		PredictionType: predictionType,
		Now:            lctx.Now,
	})

	raw, usage, err := p.client.CompleteJSON(ctx, promptText, prompt.PredictionSchema, llm.CompletionOptions{
		Temperature:  0.2,
		MaxTokens:    2048,
		SystemPrompt: prompt.SystemPrompt,
	})
	if err != nil {
		return outcome{}, err
	}

	var parsed llmPrediction
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return outcome{}, fmt.Errorf("parse prediction response: %w", err)
	}

	out := outcome{
		Probability:     clampProbability(parsed.Probability),
		Confidence:      math.Min(math.Max(parsed.Confidence, 0), 0.95),
		Explanation:     parsed.Explanation,
		RiskFactors:     truncateRisks(parsed.RiskFactors),
		Recommendations: truncateRecs(parsed.Recommendations),
		Metadata: repository.LLMMetadata{
			Model:         usage.Model,
			TokensUsed:    usage.TotalTokens,
			LatencyMs:     usage.LatencyMs,
			EstimatedCost: usage.EstimatedCost,
		},
	}

	if parsed.PredictedDays != nil {
		days := clampDays(*parsed.PredictedDays)
		out.PredictedDays = &days
	} else {
		days := lctx.RuleResult.PredictedDays
		out.PredictedDays = &days
	}
	if out.Explanation == "" {
		out.Explanation = lctx.RuleResult.Explanation
	}

	if predictionType == repository.TypeScore {
		value := float64(lctx.RuleResult.Breakdown.Total)
		out.PredictedValue = &value
	}

	return out, nil
}

func clampProbability(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}

func clampDays(days int) int {
	if days < 7 {
		return 7
	}
	if days > 180 {
		return 180
	}
	return days
}

func truncateRisks(factors []scoring.RiskFactor) []scoring.RiskFactor {
	if len(factors) > 6 {
		return factors[:6]
	}
	return factors
}

func truncateRecs(recs []scoring.Recommendation) []scoring.Recommendation {
	if len(recs) > 5 {
		return recs[:5]
	}
	return recs
}
