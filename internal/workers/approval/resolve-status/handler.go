// internal/workers/approval/resolve-status/handler.go
package resolvestatus

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
	TaskType = "resolve-status"
)

// Handler maps a validated decision onto the item's next lifecycle status.
// Pure table lookup; the auto-approved path never reaches this stage.
type Handler struct {
	config       *Config
	store        workflow.Store
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
	// now is swappable for tests of the execution-window rule.
	now func() time.Time
}

func NewHandler(config *Config, store workflow.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		logger:       l,
		errorHandler: stderrors.NewErrorHandler(l),
		now:          time.Now,
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

	resolution := h.resolve(input)

	if h.store != nil {
		if err := h.store.UpdateStatus(ctx, input.Item.ID, resolution.NextStatus); err != nil {
			return nil, err
		}
	}

	h.logger.Info("status resolved", map[string]interface{}{
		"itemId":             resolution.ItemID,
		"nextStatus":         string(resolution.NextStatus),
		"notificationNeeded": resolution.NotificationNeeded,
	})
	metrics.StageItemsProcessed.WithLabelValues(TaskType, string(workflowType)).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{Resolution: *resolution}, nil
}

func (h *Handler) resolve(input *Input) *models.StatusResolution {
	if !input.Decision.Approved {
		return &models.StatusResolution{
			ItemID:             input.Item.ID,
			NextStatus:         models.StatusClosedRejected,
			NotificationNeeded: true,
			Reasoning: fmt.Sprintf("rejected by %s (%s)",
				input.Decision.ApproverID, input.Decision.ApproverRole),
		}
	}

	if !input.NotBefore.IsZero() && h.now().Before(input.NotBefore) {
		return &models.StatusResolution{
			ItemID:             input.Item.ID,
			NextStatus:         models.StatusAwaitingExecutionWindow,
			NotificationNeeded: input.Item.ComplianceFlag,
			Reasoning: fmt.Sprintf("approved, execution deferred until %s",
				input.NotBefore.Format(time.RFC3339)),
		}
	}

	return &models.StatusResolution{
		ItemID:             input.Item.ID,
		NextStatus:         models.StatusExecuting,
		NotificationNeeded: input.Item.ComplianceFlag,
		Reasoning: fmt.Sprintf("approved by %s (%s)",
			input.Decision.ApproverID, input.Decision.ApproverRole),
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
