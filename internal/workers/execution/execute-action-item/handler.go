// internal/workers/execution/execute-action-item/handler.go
package executeactionitem

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/common/metrics"
	"callcenter-workers/internal/models"
	"callcenter-workers/internal/workflow"
)

const (
	TaskType = "execute-action-item"
)

// StepRunner performs one execution sub-step. The default runner records the
// step as done; tests and integrations swap in real side effects or injected
// failures.
type StepRunner func(ctx context.Context, item *models.ActionItem, step string) error

// Handler carries an approved item through its execution sub-steps. Once
// started, execution is not cancellable: at-least-once semantics, and a
// failed sub-step keeps everything completed before it (no rollback).
type Handler struct {
	config       *Config
	store        workflow.Store
	runner       StepRunner
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
}

func NewHandler(config *Config, store workflow.Store, runner StepRunner, log logger.Logger) *Handler {
	if runner == nil {
		runner = func(ctx context.Context, item *models.ActionItem, step string) error { return nil }
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		runner:       runner,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()

	workflowType, err := models.ParseWorkflowType(input.WorkflowType)
	if err != nil {
		return nil, stderrors.NewConfigurationError(err.Error())
	}

	// Auto-approved items arrive here without passing the status resolver,
	// so move them into EXECUTING before any side effect runs.
	if h.store != nil {
		current, err := h.store.GetItemStatus(ctx, input.Item.ID)
		if err != nil {
			return nil, err
		}
		if current != models.StatusExecuting {
			if err := h.store.UpdateStatus(ctx, input.Item.ID, models.StatusExecuting); err != nil {
				return nil, err
			}
		}
	}

	steps := executionSteps(workflowType)

	result := &models.ExecutionResult{
		ItemID:  input.Item.ID,
		Status:  models.StatusCompleted,
		Success: true,
	}

	for _, step := range steps {
		if err := h.runner(ctx, &input.Item, step); err != nil {
			result.Status = models.StatusFailed
			result.Success = false
			result.FailedSteps = append(result.FailedSteps, step)
			result.NextSteps = []string{
				fmt.Sprintf("investigate failed step %q", step),
				"resubmit the item after remediation",
			}
			h.logger.Error("execution sub-step failed", map[string]interface{}{
				"itemId": input.Item.ID,
				"step":   step,
				"error":  err.Error(),
			})
			break
		}
		result.CompletedSteps = append(result.CompletedSteps, step)
	}

	if h.store != nil {
		if err := h.store.SaveExecutionResult(ctx, result); err != nil {
			return nil, err
		}
		if err := h.store.UpdateStatus(ctx, input.Item.ID, result.Status); err != nil {
			return nil, err
		}
	}

	h.logger.Info("execution finished", map[string]interface{}{
		"itemId":         result.ItemID,
		"status":         string(result.Status),
		"completedSteps": len(result.CompletedSteps),
		"failedSteps":    len(result.FailedSteps),
	})
	metrics.StageItemsProcessed.WithLabelValues(TaskType, string(workflowType)).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{Result: *result}, nil
}

// executionSteps names the sub-steps each role's items go through, in order.
func executionSteps(workflowType models.WorkflowType) []string {
	switch workflowType {
	case models.WorkflowBorrower:
		return []string{"prepare-communication", "dispatch-to-borrower", "log-crm-activity"}
	case models.WorkflowAdvisor:
		return []string{"schedule-coaching-session", "record-coaching-plan"}
	case models.WorkflowSupervisor:
		return []string{"open-escalation-case", "attach-compliance-evidence", "assign-reviewer"}
	case models.WorkflowLeadership:
		return []string{"compile-portfolio-insight", "publish-dashboard-entry"}
	default:
		return nil
	}
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
