// internal/models/item.go
package models

import "time"

// ItemStatus is the lifecycle state of an action item. Transitions are
// enforced by the workflow transition table; stages never set a status
// outside it.
type ItemStatus string

const (
	StatusPendingAssessment       ItemStatus = "PENDING_ASSESSMENT"
	StatusAwaitingApproval        ItemStatus = "AWAITING_APPROVAL"
	StatusAutoApproved            ItemStatus = "AUTO_APPROVED"
	StatusAwaitingExecutionWindow ItemStatus = "AWAITING_EXECUTION_WINDOW"
	StatusExecuting               ItemStatus = "EXECUTING"
	StatusCompleted               ItemStatus = "COMPLETED"
	StatusFailed                  ItemStatus = "FAILED"
	StatusClosedRejected          ItemStatus = "CLOSED_REJECTED"
)

// RiskLevel is the categorical label assigned by risk assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ApprovalLevel identifies which tier of reviewer an item routed for human
// approval must be signed off by.
type ApprovalLevel string

const (
	ApprovalAdvisor    ApprovalLevel = "ADVISOR"
	ApprovalSupervisor ApprovalLevel = "SUPERVISOR"
	ApprovalLeadership ApprovalLevel = "LEADERSHIP"
)

// Rank orders approval levels so validation can reject sign-offs from below
// the required tier. Higher rank outranks lower.
func (l ApprovalLevel) Rank() int {
	switch l {
	case ApprovalAdvisor:
		return 1
	case ApprovalSupervisor:
		return 2
	case ApprovalLeadership:
		return 3
	default:
		return 0
	}
}

// ActionItem is the unit of work flowing through the pipeline: one concrete
// action extracted from a role section of an action plan.
type ActionItem struct {
	ID             string       `json:"id"`
	Role           WorkflowType `json:"role"`
	Description    string       `json:"description"`
	Priority       string       `json:"priority,omitempty"`
	Timeline       string       `json:"timeline,omitempty"`
	Owner          string       `json:"owner,omitempty"`
	ComplianceFlag bool         `json:"complianceFlag"`
	PlanID         string       `json:"planId"`
}

// RiskAssessment is the scorer's output for one item. The label and score
// must agree with the configured thresholds for the item's workflow type.
type RiskAssessment struct {
	ItemID    string    `json:"itemId"`
	RiskLevel RiskLevel `json:"riskLevel"`
	RiskScore float64   `json:"riskScore"`
	Reasoning string    `json:"reasoning"`
	Factors   []string  `json:"factors,omitempty"`
}

// RoutingDecision is the deterministic routing output for one scored item.
type RoutingDecision struct {
	ItemID                string        `json:"itemId"`
	RequiresHumanApproval bool          `json:"requiresHumanApproval"`
	InitialStatus         ItemStatus    `json:"initialStatus"`
	ApprovalLevel         ApprovalLevel `json:"approvalLevel,omitempty"`
	Reasoning             string        `json:"reasoning"`
}

// DecisionRecord is a human approver's verdict on one item.
type DecisionRecord struct {
	ItemID       string    `json:"itemId"`
	Approved     bool      `json:"approved"`
	ApproverID   string    `json:"approverId"`
	ApproverRole string    `json:"approverRole"`
	Reasoning    string    `json:"reasoning"`
	DecidedAt    time.Time `json:"decidedAt"`
}

// ValidationResult is the outcome of checking a decision record for
// completeness and authority. An invalid decision is data, not an error;
// the item stays awaiting a corrected decision.
type ValidationResult struct {
	ItemID             string   `json:"itemId"`
	IsValid            bool     `json:"isValid"`
	ValidationStatus   string   `json:"validationStatus"`
	Reasoning          string   `json:"reasoning"`
	Issues             []string `json:"issues,omitempty"`
	RecommendedActions []string `json:"recommendedActions,omitempty"`
}

// StatusResolution maps a validated decision onto the item's next lifecycle
// status and says whether stakeholders need notifying.
type StatusResolution struct {
	ItemID             string     `json:"itemId"`
	NextStatus         ItemStatus `json:"nextStatus"`
	NotificationNeeded bool       `json:"notificationNeeded"`
	Reasoning          string     `json:"reasoning"`
}

// ExecutionResult records what execution achieved for one approved item,
// including everything completed before a partial failure.
type ExecutionResult struct {
	ItemID         string     `json:"itemId"`
	Status         ItemStatus `json:"status"`
	Success        bool       `json:"success"`
	CompletedSteps []string   `json:"completedSteps"`
	FailedSteps    []string   `json:"failedSteps,omitempty"`
	NextSteps      []string   `json:"nextSteps,omitempty"`
}
