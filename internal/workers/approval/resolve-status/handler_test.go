// internal/workers/approval/resolve-status/handler_test.go
package resolvestatus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"callcenter-workers/internal/common/config"
	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) *Handler {
	handler := NewHandler(LoadConfig(&config.Config{}), nil, logger.NewTestLogger(t))
	handler.now = func() time.Time { return testNow }
	return handler
}

func decision(approved bool) models.DecisionRecord {
	return models.DecisionRecord{
		ItemID:       "item-1",
		Approved:     approved,
		ApproverID:   "u-100",
		ApproverRole: "SUPERVISOR",
		Reasoning:    "reviewed and decided",
		DecidedAt:    testNow,
	}
}

// ==========================
// Resolution Table Tests
// ==========================

func TestHandler_Execute_ResolutionTable(t *testing.T) {
	tests := []struct {
		name           string
		approved       bool
		notBefore      time.Time
		complianceFlag bool
		wantStatus     models.ItemStatus
		wantNotify     bool
	}{
		{"approved executes immediately", true, time.Time{}, false, models.StatusExecuting, false},
		{"approved compliance item notifies", true, time.Time{}, true, models.StatusExecuting, true},
		{"approved before window opens defers", true, testNow.Add(48 * time.Hour), false, models.StatusAwaitingExecutionWindow, false},
		{"approved after window opened executes", true, testNow.Add(-time.Hour), false, models.StatusExecuting, false},
		{"rejected closes and notifies", false, time.Time{}, false, models.StatusClosedRejected, true},
		{"rejection ignores timeline constraint", false, testNow.Add(48 * time.Hour), false, models.StatusClosedRejected, true},
	}

	handler := newTestHandler(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := handler.Execute(context.Background(), &Input{
				Item: models.ActionItem{
					ID:             "item-1",
					Role:           models.WorkflowSupervisor,
					ComplianceFlag: tt.complianceFlag,
				},
				Decision:     decision(tt.approved),
				NotBefore:    tt.notBefore,
				WorkflowType: "SUPERVISOR",
			})
			assert.NoError(t, err)

			resolution := output.Resolution
			assert.Equal(t, "item-1", resolution.ItemID)
			assert.Equal(t, tt.wantStatus, resolution.NextStatus)
			assert.Equal(t, tt.wantNotify, resolution.NotificationNeeded)
			assert.NotEmpty(t, resolution.Reasoning)
		})
	}
}

func TestHandler_Execute_ReasoningNamesApprover(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		Item:         models.ActionItem{ID: "item-1", Role: models.WorkflowBorrower},
		Decision:     decision(true),
		WorkflowType: "BORROWER",
	})
	assert.NoError(t, err)
	assert.Contains(t, output.Resolution.Reasoning, "u-100")
}

// ==========================
// Configuration Tests
// ==========================

func TestHandler_Execute_UnknownWorkflowType(t *testing.T) {
	handler := newTestHandler(t)

	_, err := handler.Execute(context.Background(), &Input{
		Item:         models.ActionItem{ID: "item-1"},
		Decision:     decision(true),
		WorkflowType: "AUDITOR",
	})
	assert.Error(t, err)

	stdErr, ok := err.(*stderrors.StandardError)
	assert.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeConfiguration, stdErr.Code)
}
