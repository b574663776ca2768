// internal/workflow/store.go
package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/models"
)

// Store persists pipeline artifacts and enforces the lifecycle table on
// every status change.
type Store interface {
	SavePlan(ctx context.Context, plan *models.ActionPlan) error
	GetPlan(ctx context.Context, planID string) (*models.ActionPlan, error)
	SaveItem(ctx context.Context, item *models.ActionItem, status models.ItemStatus) error
	GetItemStatus(ctx context.Context, itemID string) (models.ItemStatus, error)
	UpdateStatus(ctx context.Context, itemID string, next models.ItemStatus) error
	SaveAssessment(ctx context.Context, a *models.RiskAssessment) error
	SaveRoutingDecision(ctx context.Context, d *models.RoutingDecision) error
	SaveDecisionRecord(ctx context.Context, d *models.DecisionRecord) error
	SaveValidationResult(ctx context.Context, v *models.ValidationResult) error
	SaveExecutionResult(ctx context.Context, r *models.ExecutionResult) error
	GetApproverContact(ctx context.Context, approvalLevel models.ApprovalLevel) (*ApproverContact, error)
}

// ApproverContact is the notification target for an approval tier.
type ApproverContact struct {
	ApprovalLevel models.ApprovalLevel
	Email         string
	PhoneNumber   string
}

// PostgresStore implements Store on top of database/sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SavePlan stores the raw plan document. The plan is opaque to the pipeline
// past extraction, so it is kept as a JSONB column rather than normalized.
func (s *PostgresStore) SavePlan(ctx context.Context, plan *models.ActionPlan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return stderrors.NewPersistenceFailedError("marshal action plan", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO action_plans (id, transcript_id, analysis_id, document, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		plan.Context.PlanID, plan.Context.TranscriptID, plan.Context.AnalysisID,
		doc, time.Now().UTC(),
	)
	if err != nil {
		return stderrors.NewPersistenceFailedError("save action plan", err)
	}
	return nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, planID string) (*models.ActionPlan, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM action_plans WHERE id = $1`, planID,
	).Scan(&doc)
	if err != nil {
		return nil, stderrors.NewPersistenceFailedError("get action plan", err)
	}
	var plan models.ActionPlan
	if err := json.Unmarshal(doc, &plan); err != nil {
		return nil, stderrors.NewPersistenceFailedError("decode action plan", err)
	}
	return &plan, nil
}

func (s *PostgresStore) SaveItem(ctx context.Context, item *models.ActionItem, status models.ItemStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_items (id, plan_id, role, description, priority, timeline, owner, compliance_flag, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		item.ID, item.PlanID, string(item.Role), item.Description,
		item.Priority, item.Timeline, item.Owner, item.ComplianceFlag,
		string(status), time.Now().UTC(),
	)
	if err != nil {
		return stderrors.NewPersistenceFailedError("save action item", err)
	}
	return nil
}

func (s *PostgresStore) GetItemStatus(ctx context.Context, itemID string) (models.ItemStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM action_items WHERE id = $1`, itemID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return "", stderrors.NewPersistenceFailedError("get item status", fmt.Errorf("item %s not found", itemID))
	}
	if err != nil {
		return "", stderrors.NewPersistenceFailedError("get item status", err)
	}
	return models.ItemStatus(status), nil
}

// UpdateStatus moves an item to its next status. The current status is read
// and checked against the transition table inside one transaction so a
// concurrent writer cannot slip an illegal step through.
func (s *PostgresStore) UpdateStatus(ctx context.Context, itemID string, next models.ItemStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stderrors.NewPersistenceFailedError("begin status update", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM action_items WHERE id = $1 FOR UPDATE`, itemID,
	).Scan(&current)
	if err != nil {
		return stderrors.NewPersistenceFailedError("read current status", err)
	}

	if err := CheckTransition(models.ItemStatus(current), next); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE action_items SET status = $1, updated_at = $2 WHERE id = $3`,
		string(next), time.Now().UTC(), itemID,
	); err != nil {
		return stderrors.NewPersistenceFailedError("update status", err)
	}

	if err := tx.Commit(); err != nil {
		return stderrors.NewPersistenceFailedError("commit status update", err)
	}
	return nil
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, a *models.RiskAssessment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (item_id, risk_level, risk_score, reasoning, factors, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ItemID, string(a.RiskLevel), a.RiskScore, a.Reasoning,
		pq.Array(a.Factors), time.Now().UTC(),
	)
	if err != nil {
		return stderrors.NewPersistenceFailedError("save risk assessment", err)
	}
	return nil
}

func (s *PostgresStore) SaveRoutingDecision(ctx context.Context, d *models.RoutingDecision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO routing_decisions (item_id, requires_human_approval, initial_status, approval_level, reasoning, routed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ItemID, d.RequiresHumanApproval, string(d.InitialStatus),
		string(d.ApprovalLevel), d.Reasoning, time.Now().UTC(),
	)
	if err != nil {
		return stderrors.NewPersistenceFailedError("save routing decision", err)
	}
	return nil
}

func (s *PostgresStore) SaveDecisionRecord(ctx context.Context, d *models.DecisionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_records (item_id, approved, approver_id, approver_role, reasoning, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ItemID, d.Approved, d.ApproverID, d.ApproverRole, d.Reasoning, d.DecidedAt,
	)
	if err != nil {
		return stderrors.NewPersistenceFailedError("save decision record", err)
	}
	return nil
}

func (s *PostgresStore) SaveValidationResult(ctx context.Context, v *models.ValidationResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validation_results (item_id, is_valid, validation_status, reasoning, issues, recommended_actions, validated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ItemID, v.IsValid, v.ValidationStatus, v.Reasoning,
		pq.Array(v.Issues), pq.Array(v.RecommendedActions), time.Now().UTC(),
	)
	if err != nil {
		return stderrors.NewPersistenceFailedError("save validation result", err)
	}
	return nil
}

func (s *PostgresStore) SaveExecutionResult(ctx context.Context, r *models.ExecutionResult) error {
	steps, _ := json.Marshal(struct {
		Completed []string `json:"completed"`
		Failed    []string `json:"failed"`
		Next      []string `json:"next"`
	}{r.CompletedSteps, r.FailedSteps, r.NextSteps})

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_results (item_id, status, success, steps, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		r.ItemID, string(r.Status), r.Success, steps, time.Now().UTC(),
	)
	if err != nil {
		return stderrors.NewPersistenceFailedError("save execution result", err)
	}
	return nil
}

func (s *PostgresStore) GetApproverContact(ctx context.Context, approvalLevel models.ApprovalLevel) (*ApproverContact, error) {
	contact := &ApproverContact{ApprovalLevel: approvalLevel}
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone_number FROM approver_contacts WHERE approval_level = $1`,
		string(approvalLevel),
	).Scan(&contact.Email, &contact.PhoneNumber)
	if err != nil {
		return nil, stderrors.NewPersistenceFailedError("get approver contact", err)
	}
	return contact, nil
}
