package transport

import (
	"time"

	"leadscore_backend/internal/predictions/features"
	"leadscore_backend/internal/predictions/scoring"

	"github.com/google/uuid"
)

// Request DTOs

type GenerateRequest struct {
	ForceRefresh  bool `json:"forceRefresh"`
	RuleBasedOnly bool `json:"ruleBasedOnly"`
}

type BulkGenerateRequest struct {
	PredictionType string `json:"predictionType" validate:"required,oneof=CONVERSION TIME_TO_CLOSE SCORE PRIORITY"`
	Limit          int    `json:"limit" validate:"omitempty,min=1,max=200"`
}

type ValidateRequest struct {
	WasAccurate *bool `json:"wasAccurate" validate:"required"`
}

// Response DTOs

type LLMMetadataResponse struct {
	Model         string  `json:"model"`
	TokensUsed    int     `json:"tokensUsed"`
	LatencyMs     int64   `json:"latencyMs"`
	EstimatedCost float64 `json:"estimatedCost"`
}

type PredictionResponse struct {
	ID                 uuid.UUID                   `json:"id"`
	LeadID             uuid.UUID                   `json:"leadId"`
	PredictionType     string                      `json:"predictionType"`
	Probability        float64                     `json:"probability"`
	Confidence         float64                     `json:"confidence"`
	ScoreLevel         string                      `json:"scoreLevel"`
	PredictedValue     *float64                    `json:"predictedValue,omitempty"`
	PredictedDays      *int                        `json:"predictedDays,omitempty"`
	ConfidenceInterval *scoring.ConfidenceInterval `json:"confidenceInterval,omitempty"`
	RiskFactors        []scoring.RiskFactor        `json:"riskFactors"`
	Explanation        string                      `json:"explanation"`
	Recommendations    []scoring.Recommendation    `json:"recommendations"`
	LLMMetadata        LLMMetadataResponse         `json:"llmMetadata"`
	PredictedAt        time.Time                   `json:"predictedAt"`
	ValidUntil         time.Time                   `json:"validUntil"`
	Status             string                      `json:"status"`
	WasAccurate        *bool                       `json:"wasAccurate,omitempty"`
	Cached             bool                        `json:"cached"`
}

type BulkItemResult struct {
	LeadID     uuid.UUID           `json:"leadId"`
	Prediction *PredictionResponse `json:"prediction,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type BulkGenerateResponse struct {
	Processed  int              `json:"processed"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []BulkItemResult `json:"results"`
}

type RankedLeadResponse struct {
	LeadID                uuid.UUID `json:"leadId"`
	FirstName             string    `json:"firstName"`
	LastName              string    `json:"lastName"`
	Company               *string   `json:"company,omitempty"`
	PriorityRank          int       `json:"priorityRank"`
	PriorityTier          string    `json:"priorityTier"`
	PriorityScore         float64   `json:"priorityScore"`
	ConversionProbability float64   `json:"conversionProbability"`
	Reasoning             string    `json:"reasoning"`
}

type RankingResponse struct {
	Leads        []RankedLeadResponse `json:"leads"`
	TopTierCount int                  `json:"topTierCount"`
	RankedBy     string               `json:"rankedBy"`
	GeneratedAt  time.Time            `json:"generatedAt"`
}

type AccuracyByType struct {
	Total     int     `json:"total"`
	Validated int     `json:"validated"`
	Accurate  int     `json:"accurate"`
	Accuracy  float64 `json:"accuracy"`
}

type AccuracyResponse struct {
	From    time.Time                 `json:"from"`
	To      time.Time                 `json:"to"`
	Overall AccuracyByType            `json:"overall"`
	ByType  map[string]AccuracyByType `json:"byType"`
}

type FeatureBreakdownResponse struct {
	LeadID      uuid.UUID             `json:"leadId"`
	Features    features.LeadFeatures `json:"features"`
	Probability float64               `json:"probability"`
	ScoreLevel  string                `json:"scoreLevel"`
	Breakdown   scoring.Breakdown     `json:"breakdown"`
	ComputedAt  time.Time             `json:"computedAt"`
}

type FeatureImportance struct {
	Feature     string  `json:"feature"`
	Group       string  `json:"group"`
	Importance  float64 `json:"importance"`
	Description string  `json:"description"`
}
