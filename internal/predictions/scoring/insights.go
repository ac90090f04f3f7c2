package scoring

import (
	"fmt"
	"math"
	"strings"

	"leadscore_backend/internal/predictions/features"
)

// RiskFactors evaluates a fixed checklist of signals in a fixed order
// and returns every triggered one, truncated to six. Positive signals
// come first, then negative; the list is not re-sorted by severity.
func (s *Scorer) RiskFactors(f features.LeadFeatures) []RiskFactor {
	factors := make([]RiskFactor, 0, maxRiskFactors)

	if f.Demographic.TitleSeniority == features.SeniorityCLevel || f.Demographic.TitleSeniority == features.SeniorityVP {
		factors = append(factors, RiskFactor{
			Factor:       "senior_decision_maker",
			Impact:       "positive",
			CurrentValue: f.Demographic.TitleSeniority,
			Trend:        "stable",
			Description:  "Lead holds a senior title with buying authority",
		})
	}

	if f.Behavioral.HighValueActionCount >= 3 {
		factors = append(factors, RiskFactor{
			Factor:       "high_value_actions",
			Impact:       "positive",
			CurrentValue: fmt.Sprintf("%d", f.Behavioral.HighValueActionCount),
			Trend:        "up",
			Description:  "Multiple form submits, clicks, or meetings recorded",
		})
	}

	if f.Behavioral.EmailClickCount >= 3 {
		factors = append(factors, RiskFactor{
			Factor:       "email_clicks",
			Impact:       "positive",
			CurrentValue: fmt.Sprintf("%d", f.Behavioral.EmailClickCount),
			Trend:        "up",
			Description:  "Repeated email click-throughs show active interest",
		})
	}

	if f.Temporal.ActivityBurst {
		factors = append(factors, RiskFactor{
			Factor:       "activity_burst",
			Impact:       "positive",
			CurrentValue: "true",
			Trend:        "up",
			Description:  "Concentrated activity on a single day suggests urgency",
		})
	}

	if f.Temporal.DaysSinceLastActivity > 14 {
		factors = append(factors, RiskFactor{
			Factor:       "staleness",
			Impact:       "negative",
			CurrentValue: fmt.Sprintf("%d days", f.Temporal.DaysSinceLastActivity),
			Trend:        "down",
			Description:  "No activity for over two weeks",
		})
	}

	if f.Demographic.EmailDomainType == features.DomainFree {
		factors = append(factors, RiskFactor{
			Factor:       "free_email_domain",
			Impact:       "negative",
			CurrentValue: features.DomainFree,
			Trend:        "stable",
			Description:  "Consumer email address weakens the business signal",
		})
	}

	if !f.Demographic.HasCompany {
		factors = append(factors, RiskFactor{
			Factor:       "missing_company",
			Impact:       "negative",
			CurrentValue: "none",
			Trend:        "stable",
			Description:  "No company on record, firmographic fit unknown",
		})
	}

	if f.Engagement.TotalEngagementScore == 0 {
		factors = append(factors, RiskFactor{
			Factor:       "zero_engagement",
			Impact:       "negative",
			CurrentValue: "0",
			Trend:        "flat",
			Description:  "Lead has not engaged with any outreach",
		})
	}

	if len(factors) > maxRiskFactors {
		factors = factors[:maxRiskFactors]
	}
	return factors
}

// Recommendations evaluates a fixed checklist of next actions in a
// fixed order, truncated to five.
func (s *Scorer) Recommendations(f features.LeadFeatures, probability float64) []Recommendation {
	recs := make([]Recommendation, 0, maxRecommendations)

	if probability >= 0.7 {
		recs = append(recs, Recommendation{
			Priority:       "urgent",
			Action:         "Book a demo call this week",
			Rationale:      "Conversion probability is in the hot range",
			ExpectedImpact: "high",
			Timeframe:      "48 hours",
		})
	}

	if f.Temporal.DaysSinceLastActivity > 14 {
		recs = append(recs, Recommendation{
			Priority:       "high",
			Action:         "Run a re-engagement touch",
			Rationale:      "Lead has gone quiet for over two weeks",
			ExpectedImpact: "medium",
			Timeframe:      "this week",
		})
	}

	if !f.Demographic.HasCompany {
		recs = append(recs, Recommendation{
			Priority:       "medium",
			Action:         "Research and enrich the company profile",
			Rationale:      "Firmographic data is missing",
			ExpectedImpact: "medium",
			Timeframe:      "this week",
		})
	}

	if f.Engagement.TotalEngagementScore < 20 && probability < 0.4 {
		recs = append(recs, Recommendation{
			Priority:       "medium",
			Action:         "Enroll in a nurture sequence",
			Rationale:      "Low engagement and low probability need warming",
			ExpectedImpact: "medium",
			Timeframe:      "two weeks",
		})
	}

	if f.Engagement.EmailOpenRate < 0.2 && f.Behavioral.TotalActivities > 5 {
		recs = append(recs, Recommendation{
			Priority:       "low",
			Action:         "Test different content formats and subject lines",
			Rationale:      "Emails are being sent but rarely opened",
			ExpectedImpact: "low",
			Timeframe:      "next campaign",
		})
	}

	if f.Demographic.EmailDomainType == features.DomainCorporate &&
		f.Demographic.TitleSeniority != features.SeniorityUnknown &&
		f.Engagement.TotalEngagementScore == 0 {
		recs = append(recs, Recommendation{
			Priority:       "medium",
			Action:         "Attempt direct outreach by phone or LinkedIn",
			Rationale:      "Strong profile but no response to email",
			ExpectedImpact: "medium",
			Timeframe:      "this week",
		})
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// ScoreBreakdown splits a 0-100 lead score into four capped
// sub-scores: demographic up to 25, behavioral up to 40, temporal up
// to 20, engagement up to 15.
func (s *Scorer) ScoreBreakdown(f features.LeadFeatures) Breakdown {
	b := Breakdown{
		Demographic: demographicSubScore(f.Demographic),
		Behavioral:  behavioralSubScore(f.Behavioral),
		Temporal:    float64(f.Temporal.RecencyScore) * 0.2,
		Engagement:  float64(f.Engagement.TotalEngagementScore) * 0.15,
	}
	total := b.Demographic + b.Behavioral + b.Temporal + b.Engagement
	b.Total = int(math.Min(100, math.Round(total)))
	return b
}

func demographicSubScore(d features.DemographicFeatures) float64 {
	var score float64

	if d.HasCompany {
		score += 5
	}
	if d.HasTitle {
		score += 4
	}
	if d.HasPhone {
		score += 3
	}

	switch d.EmailDomainType {
	case features.DomainCorporate:
		score += 7
	case features.DomainEdu, features.DomainGovernment:
		score += 3
	}

	switch d.TitleSeniority {
	case features.SeniorityCLevel:
		score += 6
	case features.SeniorityVP:
		score += 5
	case features.SeniorityDirector:
		score += 3
	case features.SeniorityManager:
		score += 2
	}

	return math.Min(score, 25)
}

func behavioralSubScore(b features.BehavioralFeatures) float64 {
	score := float64(b.EmailOpenCount)*1 +
		float64(b.EmailClickCount)*3 +
		float64(b.PageViewCount)*0.5 +
		float64(b.FormSubmitCount)*5 +
		float64(b.MeetingCount)*6 +
		float64(b.CallCount)*4
	return math.Min(score, 40)
}

func (s *Scorer) explain(f features.LeadFeatures, probability float64) string {
	parts := []string{
		fmt.Sprintf("Rule-based model %s estimates a %.0f%% conversion probability (%s).",
			modelVersion, probability*100, LevelFromProbability(probability)),
	}

	if f.Demographic.TitleSeniority != features.SeniorityUnknown {
		parts = append(parts, fmt.Sprintf("Title seniority: %s.", f.Demographic.TitleSeniority))
	}
	if f.Behavioral.TotalActivities > 0 {
		parts = append(parts, fmt.Sprintf("%d activities recorded, last one %d days ago.",
			f.Behavioral.TotalActivities, f.Temporal.DaysSinceLastActivity))
	} else {
		parts = append(parts, "No activity recorded yet.")
	}
	if f.Engagement.IsInActiveSequence {
		parts = append(parts, fmt.Sprintf("Active in a nurture sequence at step %d.", f.Engagement.CurrentSequenceStep))
	}

	return strings.Join(parts, " ")
}
