// internal/workers/risk/score-action-item/models.go
package scoreactionitem

import "callcenter-workers/internal/models"

type Input struct {
	Item         models.ActionItem  `json:"item"`
	WorkflowType string             `json:"workflowType"`
	Context      models.PlanContext `json:"context"`
}

type Output struct {
	Assessment models.RiskAssessment `json:"assessment"`
}

// llmAssessment is the shape the model is contracted to return.
type llmAssessment struct {
	RiskLevel string   `json:"risk_level"`
	RiskScore *float64 `json:"risk_score"`
	Reasoning string   `json:"reasoning"`
	Factors   []string `json:"factors"`
}
