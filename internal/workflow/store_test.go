// internal/workflow/store_test.go
package workflow

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// ==========================
// Status Transition Tests
// ==========================

func TestPostgresStore_UpdateStatus_LegalTransition(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM action_items").
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("AWAITING_APPROVAL"))
	mock.ExpectExec("UPDATE action_items SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.UpdateStatus(context.Background(), "item-1", models.StatusExecuting)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus_IllegalTransition(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM action_items").
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("COMPLETED"))
	mock.ExpectRollback()

	err := store.UpdateStatus(context.Background(), "item-1", models.StatusExecuting)
	assert.Error(t, err)

	stdErr, ok := err.(*stderrors.StandardError)
	assert.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeInvalidTransition, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Persistence Tests
// ==========================

func TestPostgresStore_SaveItem(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectExec("INSERT INTO action_items").
		WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.ActionItem{
		ID:          "item-1",
		Role:        models.WorkflowBorrower,
		Description: "Send hardship packet",
		PlanID:      "plan-1",
	}
	err := store.SaveItem(context.Background(), item, models.StatusPendingAssessment)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveItem_DBError(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectExec("INSERT INTO action_items").
		WillReturnError(sql.ErrConnDone)

	err := store.SaveItem(context.Background(), &models.ActionItem{ID: "item-1"}, models.StatusPendingAssessment)
	assert.Error(t, err)

	stdErr, ok := err.(*stderrors.StandardError)
	assert.True(t, ok)
	assert.Equal(t, stderrors.ErrCodePersistenceFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestPostgresStore_SavePlanAndGetPlan(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	plan := &models.ActionPlan{
		Context: models.PlanContext{PlanID: "plan-1", TranscriptID: "tr-1", AnalysisID: "an-1"},
		Borrower: &models.BorrowerSection{
			ImmediateActions: []models.PlanEntry{{Action: "Send hardship packet"}},
		},
	}

	mock.ExpectExec("INSERT INTO action_plans").
		WillReturnResult(sqlmock.NewResult(1, 1))
	assert.NoError(t, store.SavePlan(context.Background(), plan))

	mock.ExpectQuery("SELECT document FROM action_plans").
		WithArgs("plan-1").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).
			AddRow(`{"context":{"transcriptId":"tr-1","analysisId":"an-1","planId":"plan-1"},"borrower":{"immediateActions":[{"action":"Send hardship packet"}],"followUps":null}}`))

	loaded, err := store.GetPlan(context.Background(), "plan-1")
	assert.NoError(t, err)
	assert.Equal(t, "plan-1", loaded.Context.PlanID)
	assert.Len(t, loaded.Borrower.ImmediateActions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetApproverContact(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectQuery("SELECT email, phone_number FROM approver_contacts").
		WithArgs("SUPERVISOR").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone_number"}).
			AddRow("supervisor@example.com", "+15550100"))

	contact, err := store.GetApproverContact(context.Background(), models.ApprovalSupervisor)
	assert.NoError(t, err)
	assert.Equal(t, "supervisor@example.com", contact.Email)
	assert.Equal(t, "+15550100", contact.PhoneNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveExecutionResult(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectExec("INSERT INTO execution_results").
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := &models.ExecutionResult{
		ItemID:         "item-1",
		Status:         models.StatusFailed,
		Success:        false,
		CompletedSteps: []string{"prepare-communication"},
		FailedSteps:    []string{"dispatch-to-borrower"},
	}
	assert.NoError(t, store.SaveExecutionResult(context.Background(), result))
	assert.NoError(t, mock.ExpectationsWereMet())
}
