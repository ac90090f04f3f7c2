// Package scoring implements the deterministic conversion model: a
// weighted-sum probability over extracted lead features, with derived
// confidence, risk factors, recommendations, and time-to-close
// estimates. Everything in this package is a pure function of its
// inputs so the model can be unit-tested with literal values.
package scoring

import (
	"math"

	"leadscore_backend/internal/predictions/features"
)

const (
	// modelVersion tracks the rule-based model for debugging and
	// accuracy analysis. Bump when weights change materially.
	modelVersion = "rules-2026-v1"

	// baseProbability is the prior for a lead we know nothing about.
	baseProbability = 0.15

	minProbability = 0.01
	maxProbability = 0.99

	maxConfidence = 0.95

	maxRiskFactors     = 6
	maxRecommendations = 5
)

// Score levels, coarse buckets over conversion probability.
const (
	LevelHot  = "HOT"
	LevelWarm = "WARM"
	LevelCold = "COLD"
	LevelDead = "DEAD"
)

// Weights is the full constant table for the rule-based model. It is
// passed into the Scorer explicitly so tests can substitute
// alternative tables.
type Weights struct {
	// Demographic profile flags
	HasCompany float64
	HasTitle   float64
	HasPhone   float64

	// Email domain type adjustments
	DomainCorporate  float64
	DomainEdu        float64
	DomainGovernment float64
	DomainFree       float64

	// Title seniority adjustments
	SeniorityCLevel     float64
	SeniorityVP         float64
	SeniorityDirector   float64
	SeniorityManager    float64
	SeniorityIndividual float64

	// Company size adjustments
	CompanyEnterprise float64
	CompanyMidMarket  float64
	CompanySMB        float64
	CompanyStartup    float64

	// Per-activity channel weights, summed and capped at BehavioralCap
	EmailOpen     float64
	EmailClick    float64
	PageView      float64
	FormSubmit    float64
	Meeting       float64
	Call          float64
	BehavioralCap float64

	// Velocity and diversity threshold bonuses
	HighVelocity     float64 // velocity > 1.0
	ModerateVelocity float64 // velocity > 0.5
	WideDiversity    float64 // >= 4 distinct activity types
	SomeDiversity    float64 // >= 2 distinct activity types

	// Temporal adjustments
	RecencyMax     float64 // scaled by recencyScore/100
	ActivityBurst  float64
	Stale14Penalty float64 // applied when > 14 days quiet
	Stale30Penalty float64 // applied instead when > 30 days quiet

	// Engagement rate threshold bonuses
	StrongClickRate   float64 // clickRate >= 0.3
	ModerateClickRate float64 // clickRate >= 0.1
	StrongOpenRate    float64 // openRate >= 0.5
	ModerateOpenRate  float64 // openRate >= 0.25

	// Scaled by sequenceEngagement (0..1)
	SequenceMax float64
}

// DefaultWeights is the hand-tuned production table.
func DefaultWeights() Weights {
	return Weights{
		HasCompany: 0.05,
		HasTitle:   0.03,
		HasPhone:   0.02,

		DomainCorporate:  0.10,
		DomainEdu:        0.02,
		DomainGovernment: 0.03,
		DomainFree:       -0.05,

		SeniorityCLevel:     0.15,
		SeniorityVP:         0.12,
		SeniorityDirector:   0.08,
		SeniorityManager:    0.05,
		SeniorityIndividual: 0.02,

		CompanyEnterprise: 0.08,
		CompanyMidMarket:  0.05,
		CompanySMB:        0.03,
		CompanyStartup:    0.02,

		EmailOpen:     0.01,
		EmailClick:    0.02,
		PageView:      0.005,
		FormSubmit:    0.04,
		Meeting:       0.05,
		Call:          0.03,
		BehavioralCap: 0.25,

		HighVelocity:     0.05,
		ModerateVelocity: 0.03,
		WideDiversity:    0.05,
		SomeDiversity:    0.02,

		RecencyMax:     0.10,
		ActivityBurst:  0.05,
		Stale14Penalty: -0.08,
		Stale30Penalty: -0.15,

		StrongClickRate:   0.10,
		ModerateClickRate: 0.05,
		StrongOpenRate:    0.05,
		ModerateOpenRate:  0.02,

		SequenceMax: 0.10,
	}
}

// ConfidenceInterval bounds a time-to-close estimate in days. Kept as
// floats so the bounds stay strictly ordered whenever confidence < 1.
type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// RiskFactor is one signal that moves the prediction, positive or
// negative, surfaced for the sales rep.
type RiskFactor struct {
	Factor       string `json:"factor"`
	Impact       string `json:"impact"`
	CurrentValue string `json:"currentValue"`
	Trend        string `json:"trend"`
	Description  string `json:"description"`
}

// Recommendation is a suggested next action for the sales rep.
type Recommendation struct {
	Priority       string `json:"priority"`
	Action         string `json:"action"`
	Rationale      string `json:"rationale"`
	ExpectedImpact string `json:"expectedImpact"`
	Timeframe      string `json:"timeframe"`
}

// Breakdown splits the 0-100 lead score into its four sub-scores.
type Breakdown struct {
	Demographic float64 `json:"demographic"`
	Behavioral  float64 `json:"behavioral"`
	Temporal    float64 `json:"temporal"`
	Engagement  float64 `json:"engagement"`
	Total       int     `json:"total"`
}

// Result is the complete rule-based model output for one lead.
type Result struct {
	Probability        float64            `json:"probability"`
	ScoreLevel         string             `json:"scoreLevel"`
	Confidence         float64            `json:"confidence"`
	RiskFactors        []RiskFactor       `json:"riskFactors"`
	Recommendations    []Recommendation   `json:"recommendations"`
	PredictedDays      int                `json:"predictedDays"`
	ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
	Breakdown          Breakdown          `json:"breakdown"`
	Explanation        string             `json:"explanation"`
	ModelVersion       string             `json:"modelVersion"`
}

// Scorer evaluates the rule-based model with a fixed weight table.
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score runs the full model over one feature set.
func (s *Scorer) Score(f features.LeadFeatures) Result {
	probability := s.Probability(f)
	confidence := s.Confidence(f)
	days := s.TimeToClose(f, probability)

	return Result{
		Probability:        probability,
		ScoreLevel:         LevelFromProbability(probability),
		Confidence:         confidence,
		RiskFactors:        s.RiskFactors(f),
		Recommendations:    s.Recommendations(f, probability),
		PredictedDays:      days,
		ConfidenceInterval: IntervalFor(days, confidence),
		Breakdown:          s.ScoreBreakdown(f),
		Explanation:        s.explain(f, probability),
		ModelVersion:       modelVersion,
	}
}

// Probability maps a feature set to a conversion probability. The
// result is always inside [0.01, 0.99]; callers rely on never seeing
// exactly 0 or 1.
func (s *Scorer) Probability(f features.LeadFeatures) float64 {
	p := baseProbability
	p += s.demographicContribution(f.Demographic)
	p += s.behavioralContribution(f.Behavioral)
	p += s.temporalContribution(f.Temporal)
	p += s.engagementContribution(f.Engagement)
	return clampProbability(p)
}

func (s *Scorer) demographicContribution(d features.DemographicFeatures) float64 {
	w := s.weights
	var p float64

	if d.HasCompany {
		p += w.HasCompany
	}
	if d.HasTitle {
		p += w.HasTitle
	}
	if d.HasPhone {
		p += w.HasPhone
	}

	switch d.EmailDomainType {
	case features.DomainCorporate:
		p += w.DomainCorporate
	case features.DomainEdu:
		p += w.DomainEdu
	case features.DomainGovernment:
		p += w.DomainGovernment
	case features.DomainFree:
		p += w.DomainFree
	}

	switch d.TitleSeniority {
	case features.SeniorityCLevel:
		p += w.SeniorityCLevel
	case features.SeniorityVP:
		p += w.SeniorityVP
	case features.SeniorityDirector:
		p += w.SeniorityDirector
	case features.SeniorityManager:
		p += w.SeniorityManager
	case features.SeniorityIndividual:
		p += w.SeniorityIndividual
	}

	switch d.CompanySizeEstimate {
	case features.CompanyEnterprise:
		p += w.CompanyEnterprise
	case features.CompanyMidMarket:
		p += w.CompanyMidMarket
	case features.CompanySMB:
		p += w.CompanySMB
	case features.CompanyStartup:
		p += w.CompanyStartup
	}

	return p
}

func (s *Scorer) behavioralContribution(b features.BehavioralFeatures) float64 {
	w := s.weights

	channels := float64(b.EmailOpenCount)*w.EmailOpen +
		float64(b.EmailClickCount)*w.EmailClick +
		float64(b.PageViewCount)*w.PageView +
		float64(b.FormSubmitCount)*w.FormSubmit +
		float64(b.MeetingCount)*w.Meeting +
		float64(b.CallCount)*w.Call
	p := math.Min(channels, w.BehavioralCap)

	switch {
	case b.ActivityVelocity > 1.0:
		p += w.HighVelocity
	case b.ActivityVelocity > 0.5:
		p += w.ModerateVelocity
	}

	switch {
	case b.ChannelDiversity >= 4:
		p += w.WideDiversity
	case b.ChannelDiversity >= 2:
		p += w.SomeDiversity
	}

	return p
}

func (s *Scorer) temporalContribution(t features.TemporalFeatures) float64 {
	w := s.weights

	p := float64(t.RecencyScore) / 100 * w.RecencyMax
	if t.ActivityBurst {
		p += w.ActivityBurst
	}

	// Staleness penalties are exclusive: the 30-day penalty replaces
	// the 14-day one, they never stack.
	switch {
	case t.DaysSinceLastActivity > 30:
		p += w.Stale30Penalty
	case t.DaysSinceLastActivity > 14:
		p += w.Stale14Penalty
	}

	return p
}

func (s *Scorer) engagementContribution(e features.EngagementFeatures) float64 {
	w := s.weights
	var p float64

	switch {
	case e.EmailClickRate >= 0.3:
		p += w.StrongClickRate
	case e.EmailClickRate >= 0.1:
		p += w.ModerateClickRate
	}

	switch {
	case e.EmailOpenRate >= 0.5:
		p += w.StrongOpenRate
	case e.EmailOpenRate >= 0.25:
		p += w.ModerateOpenRate
	}

	p += e.SequenceEngagement * w.SequenceMax
	return p
}

// Confidence estimates how much signal backs the probability. More
// activity, a fuller profile, and recent engagement all raise it.
func (s *Scorer) Confidence(f features.LeadFeatures) float64 {
	c := 0.5

	switch {
	case f.Behavioral.TotalActivities >= 20:
		c += 0.15
	case f.Behavioral.TotalActivities >= 10:
		c += 0.10
	case f.Behavioral.TotalActivities >= 5:
		c += 0.05
	}

	if f.Demographic.HasCompany {
		c += 0.07
	}
	if f.Demographic.HasTitle {
		c += 0.05
	}
	if f.Demographic.HasPhone {
		c += 0.03
	}

	if f.Behavioral.TotalActivities > 0 {
		switch {
		case f.Temporal.DaysSinceLastActivity <= 7:
			c += 0.10
		case f.Temporal.DaysSinceLastActivity <= 14:
			c += 0.05
		}
	}

	return math.Min(c, maxConfidence)
}

// LevelFromProbability buckets a probability into HOT/WARM/COLD/DEAD.
func LevelFromProbability(p float64) string {
	switch {
	case p >= 0.7:
		return LevelHot
	case p >= 0.4:
		return LevelWarm
	case p >= 0.15:
		return LevelCold
	default:
		return LevelDead
	}
}

// TimeToClose estimates days until conversion, always in [7, 180].
func (s *Scorer) TimeToClose(f features.LeadFeatures, probability float64) int {
	days := 60.0
	days -= probability * 30

	switch f.Demographic.TitleSeniority {
	case features.SeniorityCLevel:
		days -= 10
	case features.SeniorityVP:
		days -= 7
	case features.SeniorityDirector:
		days -= 5
	}

	switch {
	case f.Behavioral.ActivityVelocity > 1.0:
		days -= 10
	case f.Behavioral.ActivityVelocity > 0.5:
		days -= 5
	}

	if f.Temporal.DaysSinceLastActivity > 14 {
		days += 15
	}

	return clampDays(int(math.Round(days)))
}

// IntervalFor widens the day estimate by the uncertainty left in the
// confidence value.
func IntervalFor(days int, confidence float64) ConfidenceInterval {
	variance := (1 - confidence) * float64(days) * 0.5
	return ConfidenceInterval{
		Low:  math.Max(7, float64(days)-variance),
		High: float64(days) + variance,
	}
}

func clampProbability(p float64) float64 {
	if p < minProbability {
		return minProbability
	}
	if p > maxProbability {
		return maxProbability
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
