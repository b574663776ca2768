// internal/workers/plan/extract-action-items/models.go
package extractactionitems

import "callcenter-workers/internal/models"

type Input struct {
	Plan         models.ActionPlan  `json:"plan"`
	WorkflowType string             `json:"workflowType"`
	Context      models.PlanContext `json:"context"`
}

type Output struct {
	Items     []models.ActionItem `json:"items"`
	ItemCount int                 `json:"itemCount"`
}
