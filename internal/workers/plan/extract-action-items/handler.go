// internal/workers/plan/extract-action-items/handler.go
package extractactionitems

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/common/metrics"
	"callcenter-workers/internal/models"
	"callcenter-workers/internal/workflow"
)

const (
	TaskType = "extract-action-items"
)

// Handler flattens one role section of an action plan into discrete,
// independently trackable action items.
type Handler struct {
	config       *Config
	store        workflow.Store
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
}

func NewHandler(config *Config, store workflow.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		logger:       l,
		errorHandler: stderrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job,
			stderrors.NewContractViolationError(TaskType, fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.StageFailures.WithLabelValues(TaskType, errorCode(err)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// Execute is the direct surface used by tests and the in-process pipeline.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()

	workflowType, err := models.ParseWorkflowType(input.WorkflowType)
	if err != nil {
		return nil, stderrors.NewConfigurationError(err.Error())
	}

	entries := sectionEntries(&input.Plan, workflowType)

	items := make([]models.ActionItem, 0, len(entries))
	for _, entry := range entries {
		item := models.ActionItem{
			ID:             uuid.New().String(),
			Role:           workflowType,
			Description:    entry.Action,
			Priority:       entry.Priority,
			Timeline:       entry.Timeline,
			Owner:          entry.Owner,
			ComplianceFlag: entry.ComplianceFlag,
			PlanID:         input.Context.PlanID,
		}
		items = append(items, item)
	}

	if h.store != nil {
		if err := h.store.SavePlan(ctx, &input.Plan); err != nil {
			return nil, err
		}
		for i := range items {
			if err := h.store.SaveItem(ctx, &items[i], models.StatusPendingAssessment); err != nil {
				return nil, err
			}
		}
	}

	h.logger.Info("action items extracted", map[string]interface{}{
		"workflowType": string(workflowType),
		"planId":       input.Context.PlanID,
		"itemCount":    len(items),
	})
	metrics.StageItemsProcessed.WithLabelValues(TaskType, string(workflowType)).Add(float64(len(items)))
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{Items: items, ItemCount: len(items)}, nil
}

// sectionEntries collects the role's relevant plan lists in source order. An
// absent section yields no entries; that is not an error.
func sectionEntries(plan *models.ActionPlan, workflowType models.WorkflowType) []models.PlanEntry {
	var entries []models.PlanEntry
	switch workflowType {
	case models.WorkflowBorrower:
		if plan.Borrower != nil {
			entries = append(entries, plan.Borrower.ImmediateActions...)
			entries = append(entries, plan.Borrower.FollowUps...)
		}
	case models.WorkflowAdvisor:
		if plan.Advisor != nil {
			entries = append(entries, plan.Advisor.CoachingItems...)
		}
	case models.WorkflowSupervisor:
		if plan.Supervisor != nil {
			entries = append(entries, plan.Supervisor.EscalationItems...)
		}
	case models.WorkflowLeadership:
		if plan.Leadership != nil {
			entries = append(entries, plan.Leadership.PortfolioInsights...)
		}
	}
	return entries
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func errorCode(err error) string {
	if stdErr, ok := err.(*stderrors.StandardError); ok {
		return string(stdErr.Code)
	}
	return "INTERNAL_ERROR"
}
