// internal/workers/approval/validate-decision/handler.go
package validatedecision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
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
	TaskType = "validate-decision"
)

// Handler checks a human approval or rejection against policy. An invalid
// decision is returned as data with issues populated, never as an error;
// the item keeps waiting for a corrected decision.
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()

	workflowType, err := models.ParseWorkflowType(input.WorkflowType)
	if err != nil {
		return nil, stderrors.NewConfigurationError(err.Error())
	}

	result := h.validate(input)

	if h.store != nil {
		if err := h.store.SaveDecisionRecord(ctx, &input.Decision); err != nil {
			return nil, err
		}
		if err := h.store.SaveValidationResult(ctx, result); err != nil {
			return nil, err
		}
	}

	h.logger.Info("decision validated", map[string]interface{}{
		"itemId":   result.ItemID,
		"isValid":  result.IsValid,
		"issues":   len(result.Issues),
		"approved": input.Decision.Approved,
	})
	metrics.StageItemsProcessed.WithLabelValues(TaskType, string(workflowType)).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{Result: *result}, nil
}

func (h *Handler) validate(input *Input) *models.ValidationResult {
	var issues []string
	var recommended []string

	if len(strings.TrimSpace(input.Decision.Reasoning)) < h.config.MinReasoningLength {
		issues = append(issues, "decision reasoning is empty")
		recommended = append(recommended, "resubmit the decision with written reasoning")
	}

	approverLevel := models.ApprovalLevel(strings.ToUpper(input.Decision.ApproverRole))
	if approverLevel.Rank() == 0 {
		issues = append(issues, fmt.Sprintf("approver role %q is not a recognized approval tier", input.Decision.ApproverRole))
		recommended = append(recommended, "route the decision to an advisor, supervisor, or leadership approver")
	} else if input.Routing.ApprovalLevel != "" && approverLevel.Rank() < input.Routing.ApprovalLevel.Rank() {
		issues = append(issues, fmt.Sprintf("approver tier %s is below the required level %s", approverLevel, input.Routing.ApprovalLevel))
		recommended = append(recommended, fmt.Sprintf("escalate to a %s approver", input.Routing.ApprovalLevel))
	}

	if input.Decision.Approved && input.Item.ComplianceFlag && !input.ComplianceResolved {
		issues = append(issues, "approval granted while a compliance issue remains unresolved")
		recommended = append(recommended, "resolve the compliance issue before approving")
	}

	result := &models.ValidationResult{
		ItemID:             input.Item.ID,
		IsValid:            len(issues) == 0,
		Issues:             issues,
		RecommendedActions: recommended,
	}
	if result.IsValid {
		result.ValidationStatus = StatusValid
		result.Reasoning = "decision satisfies reasoning, authority, and compliance policy"
	} else {
		result.ValidationStatus = StatusInvalid
		result.Reasoning = fmt.Sprintf("decision rejected: %s", strings.Join(issues, "; "))
	}
	return result
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
