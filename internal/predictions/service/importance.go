package service

import "leadscore_backend/internal/predictions/transport"

// featureImportance is a static explanation of how much each signal
// moves the rule-based model, for display alongside predictions.
var featureImportance = []transport.FeatureImportance{
	{Feature: "titleSeniority", Group: "demographic", Importance: 0.15, Description: "Senior titles carry buying authority"},
	{Feature: "emailDomainType", Group: "demographic", Importance: 0.10, Description: "Corporate domains signal business intent"},
	{Feature: "companySizeEstimate", Group: "demographic", Importance: 0.08, Description: "Larger companies close bigger deals"},
	{Feature: "highValueActions", Group: "behavioral", Importance: 0.25, Description: "Form submits, clicks, and meetings predict conversion"},
	{Feature: "emailClickRate", Group: "engagement", Importance: 0.10, Description: "Click-throughs show active interest"},
	{Feature: "recencyScore", Group: "temporal", Importance: 0.10, Description: "Recent activity decays with a seven day half-life"},
	{Feature: "sequenceEngagement", Group: "engagement", Importance: 0.10, Description: "Progress through nurture sequences"},
	{Feature: "activityVelocity", Group: "behavioral", Importance: 0.05, Description: "Sustained activity per day since creation"},
	{Feature: "activityBurst", Group: "temporal", Importance: 0.05, Description: "Concentrated single-day activity suggests urgency"},
	{Feature: "staleness", Group: "temporal", Importance: -0.15, Description: "Quiet periods over 14 and 30 days penalize the score"},
	{Feature: "freeEmailDomain", Group: "demographic", Importance: -0.05, Description: "Consumer mail addresses weaken the business signal"},
}

// FeatureImportanceTable returns the static importance table.
func (s *Service) FeatureImportanceTable() []transport.FeatureImportance {
	return featureImportance
}
