// internal/models/plan.go
package models

import "fmt"

// WorkflowType identifies which role-specific slice of an action plan an
// item came from. Every policy lookup (risk thresholds, approval routing)
// is keyed by it.
type WorkflowType string

const (
	WorkflowBorrower   WorkflowType = "BORROWER"
	WorkflowAdvisor    WorkflowType = "ADVISOR"
	WorkflowSupervisor WorkflowType = "SUPERVISOR"
	WorkflowLeadership WorkflowType = "LEADERSHIP"
)

// ParseWorkflowType validates a raw workflow type string. Unknown values are
// a configuration error at the caller.
func ParseWorkflowType(raw string) (WorkflowType, error) {
	switch WorkflowType(raw) {
	case WorkflowBorrower, WorkflowAdvisor, WorkflowSupervisor, WorkflowLeadership:
		return WorkflowType(raw), nil
	default:
		return "", fmt.Errorf("unknown workflow type %q", raw)
	}
}

// AllWorkflowTypes lists every recognized workflow type, in routing order.
func AllWorkflowTypes() []WorkflowType {
	return []WorkflowType{WorkflowBorrower, WorkflowAdvisor, WorkflowSupervisor, WorkflowLeadership}
}

// PlanContext carries the identifiers tying an action plan back to the call
// analysis it was derived from.
type PlanContext struct {
	TranscriptID string `json:"transcriptId"`
	AnalysisID   string `json:"analysisId"`
	PlanID       string `json:"planId"`
}

// PlanEntry is one raw entry in a role section of an action plan, before
// extraction normalizes it into an ActionItem.
type PlanEntry struct {
	Action         string `json:"action"`
	Priority       string `json:"priority,omitempty"`
	Timeline       string `json:"timeline,omitempty"`
	Owner          string `json:"owner,omitempty"`
	ComplianceFlag bool   `json:"complianceFlag,omitempty"`
}

// BorrowerSection holds borrower-facing follow-through items.
type BorrowerSection struct {
	ImmediateActions []PlanEntry `json:"immediateActions"`
	FollowUps        []PlanEntry `json:"followUps"`
}

// AdvisorSection holds coaching items addressed to the advisor on the call.
type AdvisorSection struct {
	CoachingItems []PlanEntry `json:"coachingItems"`
}

// SupervisorSection holds items escalated for supervisor attention,
// typically compliance-sensitive.
type SupervisorSection struct {
	EscalationItems []PlanEntry `json:"escalationItems"`
}

// LeadershipSection holds portfolio-level insights surfaced to leadership.
type LeadershipSection struct {
	PortfolioInsights []PlanEntry `json:"portfolioInsights"`
}

// ActionPlan is the upstream analysis artifact the pipeline consumes. Any of
// the four sections may be absent; an absent section simply yields no items
// for that workflow type.
type ActionPlan struct {
	Context    PlanContext        `json:"context"`
	Borrower   *BorrowerSection   `json:"borrower,omitempty"`
	Advisor    *AdvisorSection    `json:"advisor,omitempty"`
	Supervisor *SupervisorSection `json:"supervisor,omitempty"`
	Leadership *LeadershipSection `json:"leadership,omitempty"`
}
