// internal/workers/risk/route-approval/models.go
package routeapproval

import "callcenter-workers/internal/models"

type Input struct {
	Item         models.ActionItem     `json:"item"`
	Assessment   models.RiskAssessment `json:"assessment"`
	WorkflowType string                `json:"workflowType"`
	Context      models.PlanContext    `json:"context"`
}

type Output struct {
	Decision models.RoutingDecision `json:"decision"`
}
