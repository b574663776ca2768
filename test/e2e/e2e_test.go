// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callcenter-workers/internal/common/config"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/models"
	"callcenter-workers/internal/pipeline"
	resolvestatus "callcenter-workers/internal/workers/approval/resolve-status"
	validatedecision "callcenter-workers/internal/workers/approval/validate-decision"
	executeactionitem "callcenter-workers/internal/workers/execution/execute-action-item"
	extractactionitems "callcenter-workers/internal/workers/plan/extract-action-items"
	routeapproval "callcenter-workers/internal/workers/risk/route-approval"
	scoreactionitem "callcenter-workers/internal/workers/risk/score-action-item"
	"callcenter-workers/internal/workflow"
)

// ==========================
// Test Doubles
// ==========================

// memStore is an in-memory workflow.Store enforcing the same transition
// table as the Postgres implementation.
type memStore struct {
	mu         sync.Mutex
	statuses   map[string]models.ItemStatus
	executions []*models.ExecutionResult
}

func newMemStore() *memStore {
	return &memStore{statuses: make(map[string]models.ItemStatus)}
}

func (s *memStore) SavePlan(ctx context.Context, plan *models.ActionPlan) error { return nil }
func (s *memStore) GetPlan(ctx context.Context, planID string) (*models.ActionPlan, error) {
	return nil, fmt.Errorf("not stored")
}

func (s *memStore) SaveItem(ctx context.Context, item *models.ActionItem, status models.ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[item.ID] = status
	return nil
}

func (s *memStore) GetItemStatus(ctx context.Context, itemID string) (models.ItemStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[itemID]
	if !ok {
		return "", fmt.Errorf("item %s not found", itemID)
	}
	return status, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, itemID string, next models.ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := workflow.CheckTransition(s.statuses[itemID], next); err != nil {
		return err
	}
	s.statuses[itemID] = next
	return nil
}

func (s *memStore) SaveAssessment(ctx context.Context, a *models.RiskAssessment) error    { return nil }
func (s *memStore) SaveRoutingDecision(ctx context.Context, d *models.RoutingDecision) error {
	return nil
}
func (s *memStore) SaveDecisionRecord(ctx context.Context, d *models.DecisionRecord) error {
	return nil
}
func (s *memStore) SaveValidationResult(ctx context.Context, v *models.ValidationResult) error {
	return nil
}

func (s *memStore) SaveExecutionResult(ctx context.Context, r *models.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions = append(s.executions, r)
	return nil
}

func (s *memStore) GetApproverContact(ctx context.Context, level models.ApprovalLevel) (*workflow.ApproverContact, error) {
	return &workflow.ApproverContact{ApprovalLevel: level, Email: "approver@example.com"}, nil
}

// keywordCompleter is a deterministic LLM stand-in: compliance language
// scores HIGH, everything else LOW.
type keywordCompleter struct{}

func (keywordCompleter) Complete(ctx context.Context, stage, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	if strings.Contains(prompt, "CFPB") || strings.Contains(prompt, "compliance flag") {
		return json.RawMessage(`{"risk_level":"HIGH","risk_score":0.9,"reasoning":"regulatory exposure","factors":["CFPB violation cited"]}`), nil
	}
	return json.RawMessage(`{"risk_level":"LOW","risk_score":0.2,"reasoning":"routine borrower follow-through","factors":["standard request"]}`), nil
}

// ==========================
// Test Helper Functions
// ==========================

func defaultConfig() *config.Config {
	return &config.Config{
		Risk:     config.RiskConfig{Thresholds: config.DefaultRiskThresholds()},
		Approval: config.ApprovalConfig{Policies: config.DefaultApprovalPolicies()},
	}
}

func buildPipeline(t *testing.T, store workflow.Store, decisions pipeline.DecisionProvider) *pipeline.Pipeline {
	cfg := defaultConfig()
	log := logger.NewTestLogger(t)

	extractor := extractactionitems.NewHandler(extractactionitems.LoadConfig(), store, log)
	scorer := scoreactionitem.NewHandler(&scoreactionitem.Config{
		Timeout:    5 * time.Second,
		Thresholds: cfg.Risk,
	}, keywordCompleter{}, nil, store, log)
	router := routeapproval.NewHandler(routeapproval.LoadConfig(cfg), nil, store, log)
	validator := validatedecision.NewHandler(validatedecision.LoadConfig(cfg), store, log)
	resolver := resolvestatus.NewHandler(resolvestatus.LoadConfig(cfg), store, log)
	executor := executeactionitem.NewHandler(executeactionitem.LoadConfig(cfg), store, nil, log)

	return pipeline.New(extractor, scorer, router, validator, resolver, nil, executor, decisions, log)
}

func noDecisions(ctx context.Context, item models.ActionItem, routing models.RoutingDecision) (models.DecisionRecord, bool, error) {
	return models.DecisionRecord{}, false, fmt.Errorf("no human decision expected for item %s", item.ID)
}

// ==========================
// End-to-End Scenarios
// ==========================

func TestE2E_BorrowerHardshipPacketAutoApprovesAndExecutes(t *testing.T) {
	store := newMemStore()
	p := buildPipeline(t, store, noDecisions)

	plan := models.ActionPlan{
		Context: models.PlanContext{PlanID: "plan-1", TranscriptID: "tr-1"},
		Borrower: &models.BorrowerSection{
			ImmediateActions: []models.PlanEntry{
				{Action: "Send hardship packet within 24 hours", Priority: "high", Timeline: "24h"},
			},
		},
	}

	result, err := p.Run(context.Background(), plan, models.WorkflowBorrower, plan.Context)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	require.NoError(t, item.Err)

	assert.Contains(t, []models.RiskLevel{models.RiskLow, models.RiskMedium}, item.Assessment.RiskLevel)
	assert.False(t, item.Routing.RequiresHumanApproval)
	assert.Equal(t, models.StatusAutoApproved, item.Routing.InitialStatus)
	assert.True(t, item.Execution.Success)
	assert.Equal(t, models.StatusCompleted, item.FinalStatus)

	status, err := store.GetItemStatus(context.Background(), item.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, status)
}

func TestE2E_SupervisorCFPBViolationRequiresApproval(t *testing.T) {
	store := newMemStore()

	// The supervisor approves without any written reasoning.
	decisions := func(ctx context.Context, item models.ActionItem, routing models.RoutingDecision) (models.DecisionRecord, bool, error) {
		return models.DecisionRecord{
			ItemID:       item.ID,
			Approved:     true,
			ApproverID:   "u-200",
			ApproverRole: "SUPERVISOR",
			Reasoning:    "",
			DecidedAt:    time.Now().UTC(),
		}, false, nil
	}
	p := buildPipeline(t, store, decisions)

	plan := models.ActionPlan{
		Context: models.PlanContext{PlanID: "plan-2"},
		Supervisor: &models.SupervisorSection{
			EscalationItems: []models.PlanEntry{
				{Action: "Investigate CFPB violation raised on the call", ComplianceFlag: true},
			},
		},
	}

	result, err := p.Run(context.Background(), plan, models.WorkflowSupervisor, plan.Context)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	require.NoError(t, item.Err)

	assert.Equal(t, models.RiskHigh, item.Assessment.RiskLevel)
	assert.True(t, item.Routing.RequiresHumanApproval)
	assert.Contains(t, []models.ApprovalLevel{models.ApprovalSupervisor, models.ApprovalLeadership}, item.Routing.ApprovalLevel)

	// The validator rejects the reasoning-free approval; the item stays put.
	require.NotNil(t, item.Validation)
	assert.False(t, item.Validation.IsValid)
	assert.Nil(t, item.Resolution)
	assert.Nil(t, item.Execution)
	assert.Empty(t, store.executions)

	status, err := store.GetItemStatus(context.Background(), item.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingApproval, status)
}

func TestE2E_RejectedItemNeverExecutes(t *testing.T) {
	store := newMemStore()

	decisions := func(ctx context.Context, item models.ActionItem, routing models.RoutingDecision) (models.DecisionRecord, bool, error) {
		return models.DecisionRecord{
			ItemID:       item.ID,
			Approved:     false,
			ApproverID:   "u-300",
			ApproverRole: "LEADERSHIP",
			Reasoning:    "escalation not warranted, handle through standard QA",
			DecidedAt:    time.Now().UTC(),
		}, true, nil
	}
	p := buildPipeline(t, store, decisions)

	plan := models.ActionPlan{
		Context: models.PlanContext{PlanID: "plan-3"},
		Supervisor: &models.SupervisorSection{
			EscalationItems: []models.PlanEntry{
				{Action: "Investigate CFPB violation raised on the call", ComplianceFlag: true},
			},
		},
	}

	result, err := p.Run(context.Background(), plan, models.WorkflowSupervisor, plan.Context)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	require.NoError(t, item.Err)

	assert.Equal(t, models.StatusClosedRejected, item.FinalStatus)
	assert.Nil(t, item.Execution)
	// Zero execution side effects recorded for a rejected item.
	assert.Empty(t, store.executions)

	status, err := store.GetItemStatus(context.Background(), item.Item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosedRejected, status)
}

func TestE2E_CancelledContextStopsBeforeExecution(t *testing.T) {
	store := newMemStore()
	p := buildPipeline(t, store, noDecisions)

	plan := models.ActionPlan{
		Context: models.PlanContext{PlanID: "plan-4"},
		Borrower: &models.BorrowerSection{
			ImmediateActions: []models.PlanEntry{
				{Action: "Confirm updated mailing address"},
			},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	result, err := p.Run(ctx, plan, models.WorkflowBorrower, plan.Context)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	cancel()

	// A fresh run with an already-cancelled context never reaches the
	// executor.
	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()

	store2 := newMemStore()
	p2 := buildPipeline(t, store2, noDecisions)
	result2, err := p2.Run(cancelled, plan, models.WorkflowBorrower, plan.Context)
	if err == nil {
		for _, item := range result2.Items {
			assert.Error(t, item.Err)
			assert.Nil(t, item.Execution)
		}
		assert.Empty(t, store2.executions)
	}
}

func TestE2E_MultipleRolesExtractIndependently(t *testing.T) {
	store := newMemStore()
	p := buildPipeline(t, store, noDecisions)

	plan := models.ActionPlan{
		Context: models.PlanContext{PlanID: "plan-5"},
		Borrower: &models.BorrowerSection{
			ImmediateActions: []models.PlanEntry{
				{Action: "Send welcome letter"},
				{Action: "Schedule payment reminder"},
			},
		},
		Advisor: &models.AdvisorSection{
			CoachingItems: []models.PlanEntry{
				{Action: "Review call pacing"},
			},
		},
	}

	borrower, err := p.Run(context.Background(), plan, models.WorkflowBorrower, plan.Context)
	require.NoError(t, err)
	assert.Len(t, borrower.Items, 2)

	advisor, err := p.Run(context.Background(), plan, models.WorkflowAdvisor, plan.Context)
	require.NoError(t, err)
	assert.Len(t, advisor.Items, 1)
}
