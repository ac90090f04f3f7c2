// Package prompt builds the LLM prompts for lead prediction and batch
// ranking. All user-supplied text passes through the platform/sanitize
// prompt boundary before interpolation; nothing in this package
// interpolates raw input.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"leadscore_backend/internal/leads/repository"
	"leadscore_backend/internal/predictions/features"
	"leadscore_backend/internal/predictions/scoring"
	"leadscore_backend/platform/sanitize"
)

// SystemPrompt frames the model as a sales analyst returning strict JSON.
const SystemPrompt = `You are a B2B sales analyst. You score sales leads from CRM data.
Respond with a single JSON object matching the requested schema exactly.
Do not include markdown, commentary, or any text outside the JSON object.`

// PredictionSchema is the schema hint for single-lead predictions.
const PredictionSchema = `{
  "probability": 0.0,
  "confidence": 0.0,
  "predictedDays": 0,
  "explanation": "string",
  "riskFactors": [{"factor": "string", "impact": "positive|negative", "currentValue": "string", "trend": "up|down|stable|flat", "description": "string"}],
  "recommendations": [{"priority": "urgent|high|medium|low", "action": "string", "rationale": "string", "expectedImpact": "high|medium|low", "timeframe": "string"}]
}`

// RankingSchema is the schema hint for batch priority ranking.
const RankingSchema = `{
  "rankings": [{"leadId": "uuid", "priorityScore": 0, "reasoning": "string"}]
}`

// PredictionInput bundles the gathered context for one lead prompt.
type PredictionInput struct {
	Lead           repository.Lead
	Activities     []repository.Activity
	Features       features.LeadFeatures
	RuleResult     scoring.Result
	PredictionType string
	Now            time.Time
}

// BuildPrediction renders the single-lead prediction prompt.
func BuildPrediction(in PredictionInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Predict %s for the following sales lead.\n", in.PredictionType)
	fmt.Fprintf(&b, "Current date: %s.\n\n", in.Now.UTC().Format("2006-01-02"))

	b.WriteString("## Lead profile\n")
	fmt.Fprintf(&b, "Name: %s %s\n",
		sanitize.PromptPersonName(in.Lead.FirstName),
		sanitize.PromptPersonName(in.Lead.LastName))
	if in.Lead.Title != nil {
		fmt.Fprintf(&b, "Title: %s\n", sanitize.PromptTitle(*in.Lead.Title))
	}
	if in.Lead.Company != nil {
		fmt.Fprintf(&b, "Company: %s\n", sanitize.PromptCompany(*in.Lead.Company))
	}
	fmt.Fprintf(&b, "Email domain type: %s\n", in.Features.Demographic.EmailDomainType)
	fmt.Fprintf(&b, "Title seniority: %s\n", in.Features.Demographic.TitleSeniority)
	fmt.Fprintf(&b, "Company size estimate: %s\n", in.Features.Demographic.CompanySizeEstimate)
	if in.Lead.Source != nil {
		fmt.Fprintf(&b, "Source: %s\n", sanitize.PromptFreeText(*in.Lead.Source))
	}

	b.WriteString("\n## Engagement\n")
	f := in.Features
	fmt.Fprintf(&b, "Total activities: %d (velocity %.2f/day, %d distinct types)\n",
		f.Behavioral.TotalActivities, f.Behavioral.ActivityVelocity, f.Behavioral.ChannelDiversity)
	fmt.Fprintf(&b, "Email opens: %d, clicks: %d, page views: %d, form submits: %d, meetings: %d, calls: %d\n",
		f.Behavioral.EmailOpenCount, f.Behavioral.EmailClickCount, f.Behavioral.PageViewCount,
		f.Behavioral.FormSubmitCount, f.Behavioral.MeetingCount, f.Behavioral.CallCount)
	fmt.Fprintf(&b, "Open rate: %.2f, click rate: %.2f, engagement score: %d/100\n",
		f.Engagement.EmailOpenRate, f.Engagement.EmailClickRate, f.Engagement.TotalEngagementScore)
	fmt.Fprintf(&b, "Days since created: %d, days since last activity: %d, recency score: %d/100, activity burst: %t\n",
		f.Temporal.DaysSinceCreated, f.Temporal.DaysSinceLastActivity, f.Temporal.RecencyScore, f.Temporal.ActivityBurst)

	if f.Engagement.IsInActiveSequence {
		fmt.Fprintf(&b, "Nurture sequence: active at step %d (progress %.0f%%)\n",
			f.Engagement.CurrentSequenceStep, f.Engagement.SequenceEngagement*100)
	} else {
		b.WriteString("Nurture sequence: not enrolled\n")
	}

	if len(in.Activities) > 0 {
		b.WriteString("\n## Recent activity\n")
		for i, a := range in.Activities {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "- %s on %s\n",
				sanitize.PromptActivityType(a.ActivityType),
				a.OccurredAt.UTC().Format("2006-01-02"))
		}
	}

	b.WriteString("\n## Baseline model\n")
	fmt.Fprintf(&b, "Rule-based probability: %.2f (%s), confidence %.2f, estimated %d days to close.\n",
		in.RuleResult.Probability, in.RuleResult.ScoreLevel, in.RuleResult.Confidence, in.RuleResult.PredictedDays)
	fmt.Fprintf(&b, "Current lead score: %d/100.\n", in.Lead.LeadScore)
	if in.Lead.ConversionProbability != nil {
		fmt.Fprintf(&b, "Previous conversion probability: %.2f.\n", *in.Lead.ConversionProbability)
	}

	b.WriteString("\nWeigh the baseline model against the raw signals. Probabilities must stay within [0.01, 0.99].")
	return b.String()
}

// RankingLead is one entry in a batch ranking prompt.
type RankingLead struct {
	Lead        repository.Lead
	Features    features.LeadFeatures
	Probability float64
}

// BuildRanking renders the batch priority-ranking prompt. Callers must
// enforce the batch size cap before building.
func BuildRanking(leads []RankingLead) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rank the following %d sales leads by priority for outreach today.\n", len(leads))
	b.WriteString("Assign each a priorityScore from 0 to 100 and a one-sentence reasoning.\n\n")

	for i, rl := range leads {
		fmt.Fprintf(&b, "### Lead %d (id: %s)\n", i+1, rl.Lead.ID)
		fmt.Fprintf(&b, "Name: %s %s",
			sanitize.PromptPersonName(rl.Lead.FirstName),
			sanitize.PromptPersonName(rl.Lead.LastName))
		if rl.Lead.Title != nil {
			fmt.Fprintf(&b, ", %s", sanitize.PromptTitle(*rl.Lead.Title))
		}
		if rl.Lead.Company != nil {
			fmt.Fprintf(&b, " at %s", sanitize.PromptCompany(*rl.Lead.Company))
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Lead score: %d/100, conversion probability: %.2f\n", rl.Lead.LeadScore, rl.Probability)
		fmt.Fprintf(&b, "Activities: %d total, last one %d days ago, engagement %d/100\n\n",
			rl.Features.Behavioral.TotalActivities,
			rl.Features.Temporal.DaysSinceLastActivity,
			rl.Features.Engagement.TotalEngagementScore)
	}

	b.WriteString("Return every lead exactly once, keyed by its id.")
	return b.String()
}
