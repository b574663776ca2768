// internal/workers/approval/validate-decision/models.go
package validatedecision

import "callcenter-workers/internal/models"

type Input struct {
	Item    models.ActionItem      `json:"item"`
	Routing models.RoutingDecision `json:"routing"`
	// Decision is the human verdict being validated.
	Decision models.DecisionRecord `json:"decision"`
	// ComplianceResolved records whether a compliance flag on the item has
	// been cleared by the reviewer.
	ComplianceResolved bool               `json:"complianceResolved"`
	WorkflowType       string             `json:"workflowType"`
	Context            models.PlanContext `json:"context"`
}

type Output struct {
	Result models.ValidationResult `json:"result"`
}

// Validation statuses
const (
	StatusValid   = "VALID"
	StatusInvalid = "INVALID"
)
