// internal/workers/approval/send-notification/models.go
package sendnotification

import "callcenter-workers/internal/models"

type Input struct {
	Item models.ActionItem `json:"item"`
	// Resolution is the status change being announced.
	Resolution models.StatusResolution `json:"resolution"`
	// ApprovalLevel picks which approver tier's contact gets notified.
	ApprovalLevel string             `json:"approvalLevel"`
	WorkflowType  string             `json:"workflowType"`
	Context       models.PlanContext `json:"context"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
