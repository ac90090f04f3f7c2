// Package features derives scoring signals from a lead's raw profile,
// activity history, and nurture enrollment state. Feature sets are
// ephemeral: recomputed per request, never stored.
package features

import (
	"math"
	"regexp"
	"strings"
	"time"

	"leadscore_backend/internal/leads/repository"
	"leadscore_backend/platform/phone"
)

// Email domain classifications.
const (
	DomainCorporate  = "corporate"
	DomainFree       = "free"
	DomainEdu        = "edu"
	DomainGovernment = "government"
	DomainUnknown    = "unknown"
)

// Title seniority levels, highest first.
const (
	SeniorityCLevel     = "c_level"
	SeniorityVP         = "vp"
	SeniorityDirector   = "director"
	SeniorityManager    = "manager"
	SeniorityIndividual = "individual"
	SeniorityUnknown    = "unknown"
)

// Company size estimates.
const (
	CompanyEnterprise = "enterprise"
	CompanyMidMarket  = "mid_market"
	CompanySMB        = "smb"
	CompanyStartup    = "startup"
	CompanyUnknown    = "unknown"
)

// DemographicFeatures describes who the lead is.
type DemographicFeatures struct {
	HasCompany          bool    `json:"hasCompany"`
	HasTitle            bool    `json:"hasTitle"`
	HasPhone            bool    `json:"hasPhone"`
	EmailDomainType     string  `json:"emailDomainType"`
	TitleSeniority      string  `json:"titleSeniority"`
	CompanySizeEstimate string  `json:"companySizeEstimate"`
	EmailDomain         *string `json:"emailDomain"`
}

// BehavioralFeatures describes what the lead has done.
type BehavioralFeatures struct {
	EmailOpenCount       int     `json:"emailOpenCount"`
	EmailClickCount      int     `json:"emailClickCount"`
	PageViewCount        int     `json:"pageViewCount"`
	FormSubmitCount      int     `json:"formSubmitCount"`
	MeetingCount         int     `json:"meetingCount"`
	CallCount            int     `json:"callCount"`
	TotalActivities      int     `json:"totalActivities"`
	ActivityVelocity     float64 `json:"activityVelocity"`
	ChannelDiversity     int     `json:"channelDiversity"`
	HighValueActionCount int     `json:"highValueActionCount"`
}

// TemporalFeatures describes when the lead has been active.
type TemporalFeatures struct {
	DaysSinceCreated      int    `json:"daysSinceCreated"`
	DaysSinceLastActivity int    `json:"daysSinceLastActivity"`
	RecencyScore          int    `json:"recencyScore"`
	ActivityBurst         bool   `json:"activityBurst"`
	DayPattern            string `json:"dayPattern"`
	TimePattern           string `json:"timePattern"`
	LeadAgeWeeks          int    `json:"leadAgeWeeks"`
}

// EngagementFeatures describes how receptive the lead is.
type EngagementFeatures struct {
	TotalEngagementScore int     `json:"totalEngagementScore"`
	EmailOpenRate        float64 `json:"emailOpenRate"`
	EmailClickRate       float64 `json:"emailClickRate"`
	SequenceEngagement   float64 `json:"sequenceEngagement"`
	IsInActiveSequence   bool    `json:"isInActiveSequence"`
	CurrentSequenceStep  int     `json:"currentSequenceStep"`
}

// TextFeatures carries optional message-derived signals. All fields may
// be empty when no message content was available.
type TextFeatures struct {
	Sentiment string `json:"sentiment,omitempty"`
	Intent    string `json:"intent,omitempty"`
	Urgency   string `json:"urgency,omitempty"`
}

// LeadFeatures is the full derived feature set for one lead.
type LeadFeatures struct {
	Demographic DemographicFeatures `json:"demographic"`
	Behavioral  BehavioralFeatures  `json:"behavioral"`
	Temporal    TemporalFeatures    `json:"temporal"`
	Engagement  EngagementFeatures  `json:"engagement"`
	Text        *TextFeatures       `json:"text,omitempty"`
}

// freeEmailProviders are consumer mail domains that carry no company signal.
var freeEmailProviders = map[string]struct{}{
	"gmail.com":      {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"aol.com":        {},
	"icloud.com":     {},
	"me.com":         {},
	"live.com":       {},
	"msn.com":        {},
	"protonmail.com": {},
	"proton.me":      {},
	"mail.com":       {},
	"gmx.com":        {},
	"zoho.com":       {},
	"yandex.com":     {},
}

var (
	cLevelPattern     = regexp.MustCompile(`(?i)\b(ceo|cfo|cto|coo|cmo|cio|cro|chief|founder|co-founder|owner|president)\b`)
	vpPattern         = regexp.MustCompile(`(?i)\b(vp|vice president|svp|evp)\b`)
	directorPattern   = regexp.MustCompile(`(?i)\b(director|head of)\b`)
	managerPattern    = regexp.MustCompile(`(?i)\b(manager|lead|supervisor)\b`)
	individualPattern = regexp.MustCompile(`(?i)\b(engineer|developer|analyst|specialist|consultant|coordinator|associate|representative|assistant)\b`)

	enterprisePattern = regexp.MustCompile(`(?i)\b(corporation|corp|incorporated|international|global|group|holdings|enterprises)\b`)
	smbPattern        = regexp.MustCompile(`(?i)\b(llc|ltd|limited|consulting|agency|studio|shop)\b`)
)

// Extract computes a feature set from the lead record, its recent
// activities (newest first, capped upstream), and an optional active
// sequence enrollment. Deterministic given identical inputs and now.
func Extract(lead repository.Lead, activities []repository.Activity, enrollment *repository.Enrollment, now time.Time) LeadFeatures {
	behavioral := extractBehavioral(lead, activities, now)
	temporal := extractTemporal(lead, activities, now)
	engagement := extractEngagement(behavioral, enrollment)

	return LeadFeatures{
		Demographic: extractDemographic(lead),
		Behavioral:  behavioral,
		Temporal:    temporal,
		Engagement:  engagement,
	}
}

func extractDemographic(lead repository.Lead) DemographicFeatures {
	d := DemographicFeatures{
		HasCompany:          hasValue(lead.Company),
		HasTitle:            hasValue(lead.Title),
		HasPhone:            lead.Phone != nil && phone.IsValid(*lead.Phone),
		EmailDomainType:     DomainUnknown,
		TitleSeniority:      SeniorityUnknown,
		CompanySizeEstimate: CompanyUnknown,
	}

	if lead.Email != nil {
		if domain := emailDomain(*lead.Email); domain != "" {
			d.EmailDomain = &domain
			d.EmailDomainType = classifyEmailDomain(domain)
		}
	}
	if d.HasTitle {
		d.TitleSeniority = classifyTitleSeniority(*lead.Title)
	}
	if d.HasCompany {
		d.CompanySizeEstimate = estimateCompanySize(*lead.Company)
	}
	return d
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

func classifyEmailDomain(domain string) string {
	if _, ok := freeEmailProviders[domain]; ok {
		return DomainFree
	}
	if strings.HasSuffix(domain, ".edu") {
		return DomainEdu
	}
	if strings.HasSuffix(domain, ".gov") {
		return DomainGovernment
	}
	return DomainCorporate
}

// classifyTitleSeniority checks patterns in priority order so a
// "VP of Engineering" lands on vp, not individual.
func classifyTitleSeniority(title string) string {
	switch {
	case cLevelPattern.MatchString(title):
		return SeniorityCLevel
	case vpPattern.MatchString(title):
		return SeniorityVP
	case directorPattern.MatchString(title):
		return SeniorityDirector
	case managerPattern.MatchString(title):
		return SeniorityManager
	case individualPattern.MatchString(title):
		return SeniorityIndividual
	default:
		return SeniorityUnknown
	}
}

func estimateCompanySize(company string) string {
	name := strings.TrimSpace(company)
	if name == "" {
		return CompanyUnknown
	}
	if enterprisePattern.MatchString(name) {
		return CompanyEnterprise
	}
	if smbPattern.MatchString(name) {
		return CompanySMB
	}
	if len(name) > 30 {
		return CompanyMidMarket
	}
	if len(name) < 10 {
		return CompanyStartup
	}
	return CompanyMidMarket
}

// activityBucket maps a raw activity type onto one of six canonical
// channels. Buckets are checked in a fixed order and the first match
// wins; an activity increments at most one bucket.
func activityBucket(activityType string) string {
	t := strings.ToLower(activityType)
	switch {
	case strings.Contains(t, "open"):
		return "open"
	case strings.Contains(t, "click"):
		return "click"
	case strings.Contains(t, "view"):
		return "view"
	case strings.Contains(t, "submit"):
		return "submit"
	case strings.Contains(t, "meeting"):
		return "meeting"
	case strings.Contains(t, "call"):
		return "call"
	default:
		return ""
	}
}

func extractBehavioral(lead repository.Lead, activities []repository.Activity, now time.Time) BehavioralFeatures {
	b := BehavioralFeatures{TotalActivities: len(activities)}

	distinctTypes := make(map[string]struct{}, len(activities))
	for _, a := range activities {
		distinctTypes[strings.ToLower(a.ActivityType)] = struct{}{}
		switch activityBucket(a.ActivityType) {
		case "open":
			b.EmailOpenCount++
		case "click":
			b.EmailClickCount++
		case "view":
			b.PageViewCount++
		case "submit":
			b.FormSubmitCount++
		case "meeting":
			b.MeetingCount++
		case "call":
			b.CallCount++
		}
	}

	b.ChannelDiversity = len(distinctTypes)
	b.HighValueActionCount = b.FormSubmitCount + b.EmailClickCount + b.MeetingCount

	daysSinceCreated := daysBetween(lead.CreatedAt, now)
	b.ActivityVelocity = float64(b.TotalActivities) / math.Max(1, float64(daysSinceCreated))
	return b
}

func extractTemporal(lead repository.Lead, activities []repository.Activity, now time.Time) TemporalFeatures {
	daysSinceCreated := daysBetween(lead.CreatedAt, now)

	t := TemporalFeatures{
		DaysSinceCreated:      daysSinceCreated,
		DaysSinceLastActivity: daysSinceCreated,
		LeadAgeWeeks:          daysSinceCreated / 7,
		DayPattern:            "none",
		TimePattern:           "none",
	}

	if len(activities) > 0 {
		latest := activities[0].OccurredAt
		for _, a := range activities[1:] {
			if a.OccurredAt.After(latest) {
				latest = a.OccurredAt
			}
		}
		t.DaysSinceLastActivity = daysBetween(latest, now)
	}

	t.RecencyScore = RecencyScore(t.DaysSinceLastActivity)
	t.ActivityBurst = detectBurst(activities)
	t.DayPattern = classifyDayPattern(activities)
	t.TimePattern = classifyTimePattern(activities)
	return t
}

// RecencyScore decays exponentially with a seven day half-life:
// 100 at zero days, 50 at seven, 25 at fourteen.
func RecencyScore(daysSinceLastActivity int) int {
	return int(math.Round(100 * math.Pow(0.5, float64(daysSinceLastActivity)/7)))
}

// detectBurst reports whether any single UTC calendar day saw three or
// more activities.
func detectBurst(activities []repository.Activity) bool {
	perDay := make(map[string]int, len(activities))
	for _, a := range activities {
		day := a.OccurredAt.UTC().Format("2006-01-02")
		perDay[day]++
		if perDay[day] >= 3 {
			return true
		}
	}
	return false
}

func classifyDayPattern(activities []repository.Activity) string {
	if len(activities) == 0 {
		return "none"
	}
	weekday, weekend := 0, 0
	for _, a := range activities {
		switch a.OccurredAt.UTC().Weekday() {
		case time.Saturday, time.Sunday:
			weekend++
		default:
			weekday++
		}
	}
	switch {
	case weekend == 0:
		return "weekday"
	case weekday == 0:
		return "weekend"
	default:
		return "mixed"
	}
}

func classifyTimePattern(activities []repository.Activity) string {
	if len(activities) == 0 {
		return "none"
	}
	business, offHours := 0, 0
	for _, a := range activities {
		hour := a.OccurredAt.UTC().Hour()
		if hour >= 9 && hour < 18 {
			business++
		} else {
			offHours++
		}
	}
	switch {
	case offHours == 0:
		return "business_hours"
	case business == 0:
		return "off_hours"
	default:
		return "mixed"
	}
}

func extractEngagement(b BehavioralFeatures, enrollment *repository.Enrollment) EngagementFeatures {
	e := EngagementFeatures{}

	if b.TotalActivities > 0 {
		e.EmailOpenRate = float64(b.EmailOpenCount) / float64(b.TotalActivities)
		e.EmailClickRate = float64(b.EmailClickCount) / float64(b.TotalActivities)
	}

	if enrollment != nil && enrollment.TotalSteps > 0 {
		e.IsInActiveSequence = true
		e.CurrentSequenceStep = enrollment.CurrentStep
		e.SequenceEngagement = clamp01(float64(enrollment.CurrentStep) / float64(enrollment.TotalSteps))
	}

	hasVisit := 0.0
	if b.PageViewCount > 0 {
		hasVisit = 1.0
	}
	composite := 30*e.EmailOpenRate + 40*e.EmailClickRate + 20*e.SequenceEngagement + 10*hasVisit
	e.TotalEngagementScore = int(math.Min(100, math.Round(composite)))
	return e
}

func daysBetween(from, to time.Time) int {
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func hasValue(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
