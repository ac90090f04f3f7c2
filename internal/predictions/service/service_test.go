package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"leadscore_backend/internal/events"
	leadsrepo "leadscore_backend/internal/leads/repository"
	"leadscore_backend/internal/predictions/repository"
	"leadscore_backend/platform/ai/llm"
	"leadscore_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeLeadsRepo serves canned leads and activities. failContextFor
// makes activity reads fail for one lead to exercise batch isolation.
type fakeLeadsRepo struct {
	leads          map[uuid.UUID]leadsrepo.Lead
	activities     map[uuid.UUID][]leadsrepo.Activity
	enrollments    map[uuid.UUID]*leadsrepo.Enrollment
	failContextFor uuid.UUID
	conversions    map[uuid.UUID]float64
	scores         map[uuid.UUID]int
}

func newFakeLeadsRepo() *fakeLeadsRepo {
	return &fakeLeadsRepo{
		leads:       make(map[uuid.UUID]leadsrepo.Lead),
		activities:  make(map[uuid.UUID][]leadsrepo.Activity),
		enrollments: make(map[uuid.UUID]*leadsrepo.Enrollment),
		conversions: make(map[uuid.UUID]float64),
		scores:      make(map[uuid.UUID]int),
	}
}

func (f *fakeLeadsRepo) GetByID(_ context.Context, id, _ uuid.UUID) (leadsrepo.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return leadsrepo.Lead{}, leadsrepo.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeadsRepo) List(_ context.Context, _ leadsrepo.ListParams) ([]leadsrepo.Lead, error) {
	return nil, nil
}

func (f *fakeLeadsRepo) ListTopScored(_ context.Context, _ uuid.UUID, limit int) ([]leadsrepo.Lead, error) {
	leads := make([]leadsrepo.Lead, 0, len(f.leads))
	for _, l := range f.leads {
		leads = append(leads, l)
	}
	sort.Slice(leads, func(i, j int) bool {
		if leads[i].LeadScore != leads[j].LeadScore {
			return leads[i].LeadScore > leads[j].LeadScore
		}
		return leads[i].CreatedAt.Before(leads[j].CreatedAt)
	})
	if len(leads) > limit {
		leads = leads[:limit]
	}
	return leads, nil
}

func (f *fakeLeadsRepo) Create(_ context.Context, _ leadsrepo.CreateLeadParams) (leadsrepo.Lead, error) {
	return leadsrepo.Lead{}, errors.New("not implemented")
}

func (f *fakeLeadsRepo) ListRecentActivities(_ context.Context, leadID uuid.UUID, _ int) ([]leadsrepo.Activity, error) {
	if leadID == f.failContextFor {
		return nil, errors.New("activity store unavailable")
	}
	return f.activities[leadID], nil
}

func (f *fakeLeadsRepo) AddActivity(_ context.Context, leadID uuid.UUID, activityType string, occurredAt time.Time) (leadsrepo.Activity, error) {
	a := leadsrepo.Activity{ID: uuid.New(), LeadID: leadID, ActivityType: activityType, OccurredAt: occurredAt}
	f.activities[leadID] = append(f.activities[leadID], a)
	return a, nil
}

func (f *fakeLeadsRepo) GetActiveEnrollment(_ context.Context, leadID uuid.UUID) (*leadsrepo.Enrollment, error) {
	return f.enrollments[leadID], nil
}

func (f *fakeLeadsRepo) UpdateConversionFields(_ context.Context, leadID, _ uuid.UUID, probability float64, _ *time.Time) error {
	f.conversions[leadID] = probability
	return nil
}

func (f *fakeLeadsRepo) UpdateLeadScore(_ context.Context, leadID, _ uuid.UUID, score int) error {
	f.scores[leadID] = score
	return nil
}

// fakePredsRepo stores prediction rows in memory, append-only.
type fakePredsRepo struct {
	rows []repository.Prediction
	now  func() time.Time
}

func (f *fakePredsRepo) CreatePrediction(_ context.Context, p repository.CreatePredictionParams) (repository.Prediction, error) {
	row := repository.Prediction{
		ID:              uuid.New(),
		LeadID:          p.LeadID,
		OrganizationID:  p.OrganizationID,
		PredictionType:  p.PredictionType,
		Probability:     p.Probability,
		Confidence:      p.Confidence,
		PredictedValue:  p.PredictedValue,
		PredictedDays:   p.PredictedDays,
		RiskFactors:     p.RiskFactors,
		Explanation:     p.Explanation,
		Recommendations: p.Recommendations,
		LLMMetadata:     p.LLMMetadata,
		PredictedAt:     f.now(),
		ValidUntil:      p.ValidUntil,
		Status:          repository.StatusActive,
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakePredsRepo) FindLatestPrediction(_ context.Context, leadID, orgID uuid.UUID, predictionType string) (*repository.Prediction, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.LeadID == leadID && r.OrganizationID == orgID && r.PredictionType == predictionType {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakePredsRepo) GetByID(_ context.Context, id, orgID uuid.UUID) (repository.Prediction, error) {
	for _, r := range f.rows {
		if r.ID == id && r.OrganizationID == orgID {
			return r, nil
		}
	}
	return repository.Prediction{}, repository.ErrNotFound
}

func (f *fakePredsRepo) UpdatePredictionStatus(_ context.Context, id, orgID uuid.UUID, status string, wasAccurate bool) error {
	for i, r := range f.rows {
		if r.ID == id && r.OrganizationID == orgID {
			now := f.now()
			f.rows[i].Status = status
			f.rows[i].WasAccurate = &wasAccurate
			f.rows[i].ValidatedAt = &now
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakePredsRepo) ListForAccuracy(_ context.Context, orgID uuid.UUID, from, to time.Time) ([]repository.Prediction, error) {
	var out []repository.Prediction
	for _, r := range f.rows {
		if r.OrganizationID == orgID && !r.PredictedAt.Before(from) && !r.PredictedAt.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeLLM returns a fixed payload or a fixed error.
type fakeLLM struct {
	available bool
	payload   string
	err       error
	calls     int
}

func (f *fakeLLM) Available() bool { return f.available }

func (f *fakeLLM) CompleteJSON(_ context.Context, _, _ string, _ llm.CompletionOptions) (json.RawMessage, llm.Usage, error) {
	f.calls++
	if f.err != nil {
		return nil, llm.Usage{}, f.err
	}
	return json.RawMessage(f.payload), llm.Usage{Model: "gemini-2.0-flash", TotalTokens: 420, LatencyMs: 120}, nil
}

// testPredictionConfig satisfies config.PredictionConfig for tests.
type testPredictionConfig struct {
	validity  time.Duration
	bulkLimit int
}

func (c testPredictionConfig) GetPredictionValidity() time.Duration { return c.validity }
func (c testPredictionConfig) GetBulkPredictionLimit() int          { return c.bulkLimit }

func testService(leads *fakeLeadsRepo, llmClient LLMClient) (*Service, *fakePredsRepo) {
	log := logger.New("development")
	preds := &fakePredsRepo{now: time.Now}
	bus := events.NewInMemoryBus(log)
	svc := New(leads, preds, llmClient, bus, log, testPredictionConfig{validity: 7 * 24 * time.Hour})
	return svc, preds
}

func seedLead(repo *fakeLeadsRepo, score int) leadsrepo.Lead {
	company := "Acme Corporation"
	title := "VP of Sales"
	email := "jane@acme.io"
	lead := leadsrepo.Lead{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          &email,
		Company:        &company,
		Title:          &title,
		LeadScore:      score,
		Status:         "New",
		CreatedAt:      time.Now().AddDate(0, 0, -14),
	}
	repo.leads[lead.ID] = lead
	repo.activities[lead.ID] = []leadsrepo.Activity{
		{ID: uuid.New(), LeadID: lead.ID, ActivityType: "email_click", OccurredAt: time.Now().AddDate(0, 0, -1)},
		{ID: uuid.New(), LeadID: lead.ID, ActivityType: "email_open", OccurredAt: time.Now().AddDate(0, 0, -2)},
	}
	return lead
}

func TestGenerate_CacheIdempotence(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 80)
	svc, preds := testService(repo, &fakeLLM{available: false})

	first, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{})
	if err != nil {
		t.Fatalf("first generate failed: %v", err)
	}
	if first.Cached {
		t.Fatal("first generation should not be marked cached")
	}

	second, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{})
	if err != nil {
		t.Fatalf("second generate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected cached prediction with id %s, got %s", first.ID, second.ID)
	}
	if !second.Cached {
		t.Fatal("second call within validity window should be cached")
	}
	if len(preds.rows) != 1 {
		t.Fatalf("expected exactly 1 persisted row, got %d", len(preds.rows))
	}

	refreshed, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{ForceRefresh: true})
	if err != nil {
		t.Fatalf("force refresh failed: %v", err)
	}
	if refreshed.ID == first.ID {
		t.Fatal("force refresh must create a new row")
	}
	if len(preds.rows) != 2 {
		t.Fatalf("expected 2 persisted rows after force refresh, got %d", len(preds.rows))
	}
}

func TestGenerate_LLMFailureFallsBackSilently(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 70)
	broken := &fakeLLM{available: true, err: errors.New("deadline exceeded")}
	svc, _ := testService(repo, broken)

	resp, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{})
	if err != nil {
		t.Fatalf("fallback must not surface the LLM error, got: %v", err)
	}
	if broken.calls != 1 {
		t.Fatalf("expected 1 LLM attempt, got %d", broken.calls)
	}
	if resp.LLMMetadata.Model != FallbackModel {
		t.Fatalf("model = %q, want %q", resp.LLMMetadata.Model, FallbackModel)
	}
	if resp.Probability < 0.01 || resp.Probability > 0.99 {
		t.Fatalf("fallback probability %v outside clamp range", resp.Probability)
	}
}

func TestGenerate_LLMSuccess(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 70)
	working := &fakeLLM{available: true, payload: `{
		"probability": 0.72,
		"confidence": 0.8,
		"predictedDays": 21,
		"explanation": "Executive engagement with rapid click-through",
		"riskFactors": [],
		"recommendations": []
	}`}
	svc, _ := testService(repo, working)

	resp, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.LLMMetadata.Model != "gemini-2.0-flash" {
		t.Fatalf("model = %q, want gemini-2.0-flash", resp.LLMMetadata.Model)
	}
	if resp.Probability != 0.72 {
		t.Fatalf("probability = %v, want 0.72", resp.Probability)
	}
	if resp.PredictedDays == nil || *resp.PredictedDays != 21 {
		t.Fatalf("predictedDays = %v, want 21", resp.PredictedDays)
	}
	if resp.ConfidenceInterval == nil || resp.ConfidenceInterval.Low >= resp.ConfidenceInterval.High {
		t.Fatalf("confidence interval missing or unordered: %+v", resp.ConfidenceInterval)
	}
}

func TestGenerate_RuleBasedOnlySkipsLLM(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 70)
	llmClient := &fakeLLM{available: true, payload: `{"probability": 0.9}`}
	svc, _ := testService(repo, llmClient)

	resp, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{RuleBasedOnly: true})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if llmClient.calls != 0 {
		t.Fatalf("LLM called %d times despite ruleBasedOnly", llmClient.calls)
	}
	if resp.LLMMetadata.Model != FallbackModel {
		t.Fatalf("model = %q, want %q", resp.LLMMetadata.Model, FallbackModel)
	}
}

func TestGenerate_ConversionSideEffect(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 70)
	svc, _ := testService(repo, &fakeLLM{})

	resp, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got, ok := repo.conversions[lead.ID]; !ok || got != resp.Probability {
		t.Fatalf("lead conversion probability = %v (ok=%t), want %v", got, ok, resp.Probability)
	}

	// SCORE predictions must not touch the lead's conversion fields.
	other := seedLead(repo, 60)
	if _, err := svc.Generate(context.Background(), other.ID, other.OrganizationID, repository.TypeScore, GenerateOptions{}); err != nil {
		t.Fatalf("score generate failed: %v", err)
	}
	if _, ok := repo.conversions[other.ID]; ok {
		t.Fatal("SCORE prediction updated conversion fields")
	}
}

func TestGenerate_ScoreSideEffect(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 10)
	svc, _ := testService(repo, &fakeLLM{})

	resp, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeScore, GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp.PredictedValue == nil {
		t.Fatal("SCORE prediction has no predicted value")
	}
	stored, ok := repo.scores[lead.ID]
	if !ok {
		t.Fatal("SCORE prediction did not update the lead score")
	}
	if stored != int(*resp.PredictedValue) {
		t.Fatalf("stored lead score = %d, want %d", stored, int(*resp.PredictedValue))
	}

	// CONVERSION predictions must not touch the stored lead score.
	other := seedLead(repo, 60)
	if _, err := svc.Generate(context.Background(), other.ID, other.OrganizationID, repository.TypeConversion, GenerateOptions{}); err != nil {
		t.Fatalf("conversion generate failed: %v", err)
	}
	if _, ok := repo.scores[other.ID]; ok {
		t.Fatal("CONVERSION prediction updated the lead score")
	}
}

func TestGenerate_UnknownLead(t *testing.T) {
	repo := newFakeLeadsRepo()
	svc, _ := testService(repo, &fakeLLM{})

	_, err := svc.Generate(context.Background(), uuid.New(), uuid.New(), repository.TypeConversion, GenerateOptions{})
	if err == nil {
		t.Fatal("expected NotFound for unknown lead")
	}
}

func TestGenerate_InvalidType(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 50)
	svc, _ := testService(repo, &fakeLLM{})

	if _, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, "MOON_PHASE", GenerateOptions{}); err == nil {
		t.Fatal("expected validation error for unknown prediction type")
	}
}

func TestBulkGenerate_PartialFailureIsolation(t *testing.T) {
	repo := newFakeLeadsRepo()
	org := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		lead := seedLead(repo, 90-i*10)
		lead.OrganizationID = org
		repo.leads[lead.ID] = lead
		ids = append(ids, lead.ID)
	}
	// Lead #2's context lookup fails.
	repo.failContextFor = ids[1]

	svc, _ := testService(repo, &fakeLLM{})

	result, err := svc.BulkGenerate(context.Background(), org, repository.TypeConversion, 10)
	if err != nil {
		t.Fatalf("bulk generate failed: %v", err)
	}
	if result.Processed != 3 || result.Successful != 2 || result.Failed != 1 {
		t.Fatalf("processed/successful/failed = %d/%d/%d, want 3/2/1",
			result.Processed, result.Successful, result.Failed)
	}
	for _, item := range result.Results {
		if item.LeadID == ids[1] {
			if item.Error == "" {
				t.Fatal("failed lead has no error message")
			}
		} else if item.Error != "" {
			t.Fatalf("healthy lead %s carries error %q", item.LeadID, item.Error)
		}
	}
}

func TestBulkGenerate_ConfiguredLimit(t *testing.T) {
	repo := newFakeLeadsRepo()
	org := uuid.New()
	for i := 0; i < 3; i++ {
		lead := seedLead(repo, 90-i*10)
		lead.OrganizationID = org
		repo.leads[lead.ID] = lead
	}

	log := logger.New("development")
	preds := &fakePredsRepo{now: time.Now}
	svc := New(repo, preds, &fakeLLM{}, events.NewInMemoryBus(log), log, testPredictionConfig{validity: time.Hour, bulkLimit: 2})

	result, err := svc.BulkGenerate(context.Background(), org, repository.TypeConversion, 0)
	if err != nil {
		t.Fatalf("bulk generate failed: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("processed = %d, want configured limit of 2", result.Processed)
	}
}

func TestValidateAndAccuracy(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 70)
	svc, _ := testService(repo, &fakeLLM{})

	generated, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	validated, err := svc.Validate(context.Background(), generated.ID, lead.OrganizationID, true)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if validated.Status != repository.StatusValidated {
		t.Fatalf("status = %q, want VALIDATED", validated.Status)
	}
	if validated.WasAccurate == nil || !*validated.WasAccurate {
		t.Fatal("wasAccurate not set to true")
	}

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	acc, err := svc.Accuracy(context.Background(), lead.OrganizationID, from, to)
	if err != nil {
		t.Fatalf("accuracy failed: %v", err)
	}
	if acc.Overall.Total != 1 || acc.Overall.Validated != 1 || acc.Overall.Accurate != 1 {
		t.Fatalf("overall = %+v, want 1/1/1", acc.Overall)
	}
	if acc.Overall.Accuracy != 1.0 {
		t.Fatalf("overall accuracy = %v, want 1.0", acc.Overall.Accuracy)
	}
	byType, ok := acc.ByType[repository.TypeConversion]
	if !ok || byType.Accurate != 1 {
		t.Fatalf("byType CONVERSION = %+v, want accurate 1", byType)
	}

	// Re-validation overwrites, last write wins.
	revalidated, err := svc.Validate(context.Background(), generated.ID, lead.OrganizationID, false)
	if err != nil {
		t.Fatalf("revalidate failed: %v", err)
	}
	if revalidated.Status != repository.StatusInvalidated || *revalidated.WasAccurate {
		t.Fatal("revalidation did not overwrite the previous verdict")
	}
}

func TestAccuracy_ZeroWhenNothingValidated(t *testing.T) {
	repo := newFakeLeadsRepo()
	lead := seedLead(repo, 70)
	svc, _ := testService(repo, &fakeLLM{})

	if _, err := svc.Generate(context.Background(), lead.ID, lead.OrganizationID, repository.TypeConversion, GenerateOptions{}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	acc, err := svc.Accuracy(context.Background(), lead.OrganizationID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("accuracy failed: %v", err)
	}
	if acc.Overall.Total != 1 || acc.Overall.Validated != 0 {
		t.Fatalf("overall = %+v, want total 1 validated 0", acc.Overall)
	}
	if acc.Overall.Accuracy != 0 {
		t.Fatalf("accuracy = %v, want 0 when nothing validated", acc.Overall.Accuracy)
	}
}

func TestRankLeads_RuleBasedPath(t *testing.T) {
	repo := newFakeLeadsRepo()
	org := uuid.New()
	for i := 0; i < 3; i++ {
		lead := seedLead(repo, 90-i*20)
		lead.OrganizationID = org
		repo.leads[lead.ID] = lead
	}

	svc, _ := testService(repo, &fakeLLM{available: false})

	resp, err := svc.RankLeads(context.Background(), org, RankOptions{Limit: 10})
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if resp.RankedBy != "rule-based" {
		t.Fatalf("rankedBy = %q, want rule-based", resp.RankedBy)
	}
	if len(resp.Leads) != 3 {
		t.Fatalf("expected 3 ranked leads, got %d", len(resp.Leads))
	}
	for i, r := range resp.Leads {
		if r.PriorityRank != i+1 {
			t.Fatalf("rank at index %d = %d, want dense ordering", i, r.PriorityRank)
		}
		if i > 0 && r.PriorityScore > resp.Leads[i-1].PriorityScore {
			t.Fatal("ranking not sorted descending by priorityScore")
		}
	}
}

func TestRankLeads_LLMFallsBackOnGarbage(t *testing.T) {
	repo := newFakeLeadsRepo()
	org := uuid.New()
	lead := seedLead(repo, 80)
	lead.OrganizationID = org
	repo.leads[lead.ID] = lead

	garbage := &fakeLLM{available: true, payload: `{"rankings": []}`}
	svc, _ := testService(repo, garbage)

	resp, err := svc.RankLeads(context.Background(), org, RankOptions{Limit: 10})
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if garbage.calls != 1 {
		t.Fatalf("expected 1 LLM attempt, got %d", garbage.calls)
	}
	if resp.RankedBy != "rule-based" {
		t.Fatalf("rankedBy = %q, want rule-based after empty LLM response", resp.RankedBy)
	}
}
