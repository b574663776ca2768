// internal/workers/approval/resolve-status/models.go
package resolvestatus

import (
	"time"

	"callcenter-workers/internal/models"
)

type Input struct {
	Item     models.ActionItem     `json:"item"`
	Decision models.DecisionRecord `json:"decision"`
	// NotBefore is the earliest moment the item may execute. Zero means no
	// timeline constraint.
	NotBefore    time.Time          `json:"notBefore,omitempty"`
	WorkflowType string             `json:"workflowType"`
	Context      models.PlanContext `json:"context"`
}

type Output struct {
	Resolution models.StatusResolution `json:"resolution"`
}
