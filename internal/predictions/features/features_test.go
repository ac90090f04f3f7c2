package features

import (
	"testing"
	"time"

	"leadscore_backend/internal/leads/repository"
)

func strPtr(s string) *string { return &s }

func TestClassifyEmailDomain(t *testing.T) {
	cases := []struct {
		domain string
		want   string
	}{
		{"gmail.com", DomainFree},
		{"yahoo.com", DomainFree},
		{"mit.edu", DomainEdu},
		{"nasa.gov", DomainGovernment},
		{"acme.io", DomainCorporate},
		{"bigco.com", DomainCorporate},
	}
	for _, c := range cases {
		if got := classifyEmailDomain(c.domain); got != c.want {
			t.Errorf("classifyEmailDomain(%q) = %q, want %q", c.domain, got, c.want)
		}
	}
}

func TestClassifyTitleSeniority_PriorityOrder(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"CEO", SeniorityCLevel},
		{"Co-Founder & CTO", SeniorityCLevel},
		{"VP of Engineering", SeniorityVP},
		{"Senior Vice President Sales", SeniorityVP},
		{"Director of Marketing", SeniorityDirector},
		{"Head of Growth", SeniorityDirector},
		{"Engineering Manager", SeniorityManager},
		{"Software Engineer", SeniorityIndividual},
		{"Astronaut", SeniorityUnknown},
	}
	for _, c := range cases {
		if got := classifyTitleSeniority(c.title); got != c.want {
			t.Errorf("classifyTitleSeniority(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}

func TestEstimateCompanySize(t *testing.T) {
	cases := []struct {
		company string
		want    string
	}{
		{"Globex Corporation", CompanyEnterprise},
		{"Initech Holdings", CompanyEnterprise},
		{"Pied Piper LLC", CompanySMB},
		{"Hooli", CompanyStartup},
		{"A Really Quite Long Company Name Indeed", CompanyMidMarket},
		{"Mediumsize Co", CompanyMidMarket},
	}
	for _, c := range cases {
		if got := estimateCompanySize(c.company); got != c.want {
			t.Errorf("estimateCompanySize(%q) = %q, want %q", c.company, got, c.want)
		}
	}
}

func TestRecencyScore_HalfLife(t *testing.T) {
	if got := RecencyScore(0); got != 100 {
		t.Fatalf("RecencyScore(0) = %d, want 100", got)
	}
	if got := RecencyScore(7); got != 50 {
		t.Fatalf("RecencyScore(7) = %d, want 50", got)
	}
	if got := RecencyScore(14); got != 25 {
		t.Fatalf("RecencyScore(14) = %d, want 25", got)
	}

	prev := RecencyScore(0)
	for days := 1; days <= 120; days++ {
		cur := RecencyScore(days)
		if cur > prev {
			t.Fatalf("recency score increased from %d to %d at day %d", prev, cur, days)
		}
		prev = cur
	}
}

func TestActivityBucket_FirstMatchWins(t *testing.T) {
	cases := []struct {
		activityType string
		want         string
	}{
		{"email_open", "open"},
		{"email_click", "click"},
		{"page_view", "view"},
		{"form_submit", "submit"},
		{"meeting_booked", "meeting"},
		{"phone_call", "call"},
		{"newsletter_signup", ""},
	}
	for _, c := range cases {
		if got := activityBucket(c.activityType); got != c.want {
			t.Errorf("activityBucket(%q) = %q, want %q", c.activityType, got, c.want)
		}
	}
}

func TestDetectBurst(t *testing.T) {
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	burst := []repository.Activity{
		{ActivityType: "email_open", OccurredAt: day},
		{ActivityType: "email_click", OccurredAt: day.Add(2 * time.Hour)},
		{ActivityType: "page_view", OccurredAt: day.Add(5 * time.Hour)},
	}
	if !detectBurst(burst) {
		t.Fatal("expected burst for 3 activities on the same day")
	}

	spread := []repository.Activity{
		{ActivityType: "email_open", OccurredAt: day},
		{ActivityType: "email_click", OccurredAt: day.AddDate(0, 0, 1)},
		{ActivityType: "page_view", OccurredAt: day.AddDate(0, 0, 2)},
	}
	if detectBurst(spread) {
		t.Fatal("did not expect burst for activities on separate days")
	}
}

func TestExtract_FullLead(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	created := now.AddDate(0, 0, -14)

	lead := repository.Lead{
		Email:     strPtr("jane@acme.io"),
		FirstName: "Jane",
		LastName:  "Doe",
		Company:   strPtr("Acme Corporation"),
		Title:     strPtr("VP of Sales"),
		Phone:     strPtr("+16502530000"),
		CreatedAt: created,
	}

	activities := []repository.Activity{
		{ActivityType: "email_click", OccurredAt: now.AddDate(0, 0, -1)},
		{ActivityType: "email_open", OccurredAt: now.AddDate(0, 0, -2)},
		{ActivityType: "email_open", OccurredAt: now.AddDate(0, 0, -3)},
		{ActivityType: "page_view", OccurredAt: now.AddDate(0, 0, -3)},
		{ActivityType: "form_submit", OccurredAt: now.AddDate(0, 0, -5)},
	}

	enrollment := &repository.Enrollment{CurrentStep: 3, TotalSteps: 6}

	f := Extract(lead, activities, enrollment, now)

	if f.Demographic.EmailDomainType != DomainCorporate {
		t.Errorf("emailDomainType = %q, want corporate", f.Demographic.EmailDomainType)
	}
	if f.Demographic.TitleSeniority != SeniorityVP {
		t.Errorf("titleSeniority = %q, want vp", f.Demographic.TitleSeniority)
	}
	if f.Demographic.CompanySizeEstimate != CompanyEnterprise {
		t.Errorf("companySizeEstimate = %q, want enterprise", f.Demographic.CompanySizeEstimate)
	}
	if !f.Demographic.HasPhone {
		t.Error("expected hasPhone true for valid E.164 number")
	}

	if f.Behavioral.EmailOpenCount != 2 || f.Behavioral.EmailClickCount != 1 {
		t.Errorf("open/click = %d/%d, want 2/1", f.Behavioral.EmailOpenCount, f.Behavioral.EmailClickCount)
	}
	if f.Behavioral.HighValueActionCount != 2 {
		t.Errorf("highValueActionCount = %d, want 2 (submit+click)", f.Behavioral.HighValueActionCount)
	}
	if f.Behavioral.ChannelDiversity != 4 {
		t.Errorf("channelDiversity = %d, want 4 distinct raw types", f.Behavioral.ChannelDiversity)
	}

	if f.Temporal.DaysSinceCreated != 14 {
		t.Errorf("daysSinceCreated = %d, want 14", f.Temporal.DaysSinceCreated)
	}
	if f.Temporal.DaysSinceLastActivity != 1 {
		t.Errorf("daysSinceLastActivity = %d, want 1", f.Temporal.DaysSinceLastActivity)
	}
	if f.Temporal.LeadAgeWeeks != 2 {
		t.Errorf("leadAgeWeeks = %d, want 2", f.Temporal.LeadAgeWeeks)
	}

	if !f.Engagement.IsInActiveSequence || f.Engagement.CurrentSequenceStep != 3 {
		t.Errorf("sequence state = %v/%d, want active step 3", f.Engagement.IsInActiveSequence, f.Engagement.CurrentSequenceStep)
	}
	if f.Engagement.SequenceEngagement != 0.5 {
		t.Errorf("sequenceEngagement = %v, want 0.5", f.Engagement.SequenceEngagement)
	}
}

func TestExtract_EmptyLead_DefensiveDefaults(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	lead := repository.Lead{FirstName: "Ghost", LastName: "Lead", CreatedAt: now}

	f := Extract(lead, nil, nil, now)

	if f.Demographic.EmailDomainType != DomainUnknown {
		t.Errorf("emailDomainType = %q, want unknown", f.Demographic.EmailDomainType)
	}
	if f.Demographic.TitleSeniority != SeniorityUnknown {
		t.Errorf("titleSeniority = %q, want unknown", f.Demographic.TitleSeniority)
	}
	if f.Behavioral.TotalActivities != 0 {
		t.Errorf("totalActivities = %d, want 0", f.Behavioral.TotalActivities)
	}
	if f.Engagement.TotalEngagementScore != 0 {
		t.Errorf("totalEngagementScore = %d, want 0", f.Engagement.TotalEngagementScore)
	}
	if f.Temporal.RecencyScore != 100 {
		t.Errorf("recencyScore = %d, want 100 for a brand-new lead", f.Temporal.RecencyScore)
	}
}

func TestEngagementScore_Composite(t *testing.T) {
	b := BehavioralFeatures{
		EmailOpenCount:  5,
		EmailClickCount: 5,
		PageViewCount:   2,
		TotalActivities: 10,
	}
	e := extractEngagement(b, &repository.Enrollment{CurrentStep: 4, TotalSteps: 4})

	// 30*0.5 + 40*0.5 + 20*1.0 + 10*1.0 = 65
	if e.TotalEngagementScore != 65 {
		t.Fatalf("totalEngagementScore = %d, want 65", e.TotalEngagementScore)
	}
	if e.EmailOpenRate != 0.5 || e.EmailClickRate != 0.5 {
		t.Fatalf("rates = %v/%v, want 0.5/0.5", e.EmailOpenRate, e.EmailClickRate)
	}
}
