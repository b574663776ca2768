// internal/workers/risk/route-approval/handler.go
package routeapproval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"callcenter-workers/internal/common/config"
	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/common/metrics"
	"callcenter-workers/internal/models"
	"callcenter-workers/internal/workflow"
)

const (
	TaskType = "route-approval"

	// policyOverrideKeyPrefix is where operators can park a runtime policy
	// override (e.g. suspend auto-approval during an audit) without a
	// redeploy. Absent key means the configured policy applies.
	policyOverrideKeyPrefix = "approval:policy:"
)

// Handler maps a risk assessment onto an approval route. Fully
// deterministic: same assessment and policy always route the same way.
type Handler struct {
	config       *Config
	redis        *redis.Client
	store        workflow.Store
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
}

func NewHandler(config *Config, redisClient *redis.Client, store workflow.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		redis:        redisClient,
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

	policy, err := h.resolvePolicy(ctx, workflowType)
	if err != nil {
		return nil, err
	}

	decision := route(&input.Item, &input.Assessment, workflowType, policy)

	if h.store != nil {
		if err := h.store.SaveRoutingDecision(ctx, decision); err != nil {
			return nil, err
		}
		if err := h.store.UpdateStatus(ctx, input.Item.ID, decision.InitialStatus); err != nil {
			return nil, err
		}
	}

	h.logger.Info("approval route decided", map[string]interface{}{
		"itemId":                decision.ItemID,
		"requiresHumanApproval": decision.RequiresHumanApproval,
		"initialStatus":         string(decision.InitialStatus),
		"approvalLevel":         string(decision.ApprovalLevel),
	})
	metrics.StageItemsProcessed.WithLabelValues(TaskType, string(workflowType)).Inc()
	if !decision.RequiresHumanApproval {
		metrics.ItemsAutoApproved.WithLabelValues(string(workflowType)).Inc()
	}
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{Decision: *decision}, nil
}

// resolvePolicy returns the workflow type's routing policy, preferring a
// runtime override from the cache over the configured matrix. Cache errors
// fall back to configuration; a missing configured policy is fatal.
func (h *Handler) resolvePolicy(ctx context.Context, workflowType models.WorkflowType) (config.ApprovalPolicy, error) {
	if h.redis != nil {
		val, err := h.redis.Get(ctx, policyOverrideKeyPrefix+string(workflowType)).Result()
		if err == nil {
			var override config.ApprovalPolicy
			if jsonErr := json.Unmarshal([]byte(val), &override); jsonErr == nil {
				h.logger.Info("using runtime policy override", map[string]interface{}{
					"workflowType": string(workflowType),
				})
				return override, nil
			}
			h.logger.Warn("malformed policy override ignored", map[string]interface{}{
				"workflowType": string(workflowType),
			})
		} else if err != redis.Nil {
			h.logger.Warn("policy override lookup failed, using configured policy", map[string]interface{}{
				"workflowType": string(workflowType),
				"error":        err.Error(),
			})
		}
	}

	policy, err := h.config.Policies.PolicyFor(string(workflowType))
	if err != nil {
		return config.ApprovalPolicy{}, stderrors.NewConfigurationError(err.Error())
	}
	return policy, nil
}

// route applies the routing matrix. HIGH risk or a compliance flag always
// requires a human; LOW may auto-approve when the policy allows; MEDIUM
// additionally needs the policy's medium_auto_resolves.
func route(item *models.ActionItem, assessment *models.RiskAssessment, workflowType models.WorkflowType, policy config.ApprovalPolicy) *models.RoutingDecision {
	autoEligible := false
	var reason string

	switch {
	case assessment.RiskLevel == models.RiskHigh:
		reason = "HIGH risk always requires human approval"
	case item.ComplianceFlag:
		reason = "compliance-flagged items always require human approval"
	case assessment.RiskLevel == models.RiskLow:
		autoEligible = policy.AutoApprovalEnabled
		if autoEligible {
			reason = "LOW risk with no compliance flags auto-approves under policy"
		} else {
			reason = fmt.Sprintf("auto-approval disabled for %s workflow", workflowType)
		}
	default: // MEDIUM
		autoEligible = policy.AutoApprovalEnabled && policy.MediumAutoResolves
		if autoEligible {
			reason = fmt.Sprintf("MEDIUM risk auto-resolves for %s workflow under policy", workflowType)
		} else {
			reason = fmt.Sprintf("MEDIUM risk requires human approval for %s workflow", workflowType)
		}
	}

	if autoEligible {
		return &models.RoutingDecision{
			ItemID:                item.ID,
			RequiresHumanApproval: false,
			InitialStatus:         models.StatusAutoApproved,
			Reasoning:             reason,
		}
	}

	return &models.RoutingDecision{
		ItemID:                item.ID,
		RequiresHumanApproval: true,
		InitialStatus:         models.StatusAwaitingApproval,
		ApprovalLevel:         requiredLevel(workflowType, assessment.RiskLevel, item.ComplianceFlag),
		Reasoning:             reason,
	}
}

// requiredLevel picks the minimal tier sufficient for the item: leadership
// items are portfolio-level, HIGH risk and compliance-adjacent items need a
// supervisor, everything else an advisor can sign off.
func requiredLevel(workflowType models.WorkflowType, riskLevel models.RiskLevel, complianceFlag bool) models.ApprovalLevel {
	if workflowType == models.WorkflowLeadership {
		return models.ApprovalLeadership
	}
	if riskLevel == models.RiskHigh || complianceFlag {
		return models.ApprovalSupervisor
	}
	return models.ApprovalAdvisor
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
