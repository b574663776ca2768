// internal/workers/execution/execute-action-item/models.go
package executeactionitem

import "callcenter-workers/internal/models"

type Input struct {
	Item         models.ActionItem  `json:"item"`
	WorkflowType string             `json:"workflowType"`
	Context      models.PlanContext `json:"context"`
}

type Output struct {
	Result models.ExecutionResult `json:"result"`
}
