// internal/pipeline/pipeline.go

// Package pipeline is the legacy whole-workflow entry point: it runs every
// stage for every extracted item in-process by calling the same handlers the
// broker workers use, aggregating per-item results. No stage logic lives
// here.
package pipeline

import (
	"context"

	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/models"
	resolvestatus "callcenter-workers/internal/workers/approval/resolve-status"
	sendnotification "callcenter-workers/internal/workers/approval/send-notification"
	validatedecision "callcenter-workers/internal/workers/approval/validate-decision"
	executeactionitem "callcenter-workers/internal/workers/execution/execute-action-item"
	extractactionitems "callcenter-workers/internal/workers/plan/extract-action-items"
	routeapproval "callcenter-workers/internal/workers/risk/route-approval"
	scoreactionitem "callcenter-workers/internal/workers/risk/score-action-item"
)

// DecisionProvider supplies the human verdict for an item awaiting approval.
// The second return reports whether a compliance flag was cleared.
type DecisionProvider func(ctx context.Context, item models.ActionItem, routing models.RoutingDecision) (models.DecisionRecord, bool, error)

// ItemResult aggregates everything one item produced on its way through the
// pipeline. Stages the item never reached stay nil.
type ItemResult struct {
	Item       models.ActionItem
	Assessment *models.RiskAssessment
	Routing    *models.RoutingDecision
	Validation *models.ValidationResult
	Resolution *models.StatusResolution
	Execution  *models.ExecutionResult
	// FinalStatus is the item's status when the pipeline stopped touching it.
	FinalStatus models.ItemStatus
	// Err is set when a stage failed for this item; later stages were skipped.
	Err error
}

// Result is the whole-plan aggregate.
type Result struct {
	WorkflowType models.WorkflowType
	Items        []ItemResult
}

// Pipeline wires the stage handlers together for in-process runs.
type Pipeline struct {
	extractor *extractactionitems.Handler
	scorer    *scoreactionitem.Handler
	router    *routeapproval.Handler
	validator *validatedecision.Handler
	resolver  *resolvestatus.Handler
	notifier  *sendnotification.Handler
	executor  *executeactionitem.Handler
	decisions DecisionProvider
	logger    logger.Logger
}

func New(
	extractor *extractactionitems.Handler,
	scorer *scoreactionitem.Handler,
	router *routeapproval.Handler,
	validator *validatedecision.Handler,
	resolver *resolvestatus.Handler,
	notifier *sendnotification.Handler,
	executor *executeactionitem.Handler,
	decisions DecisionProvider,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		scorer:    scorer,
		router:    router,
		validator: validator,
		resolver:  resolver,
		notifier:  notifier,
		executor:  executor,
		decisions: decisions,
		logger:    log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Run carries one plan's items for one workflow type through every stage.
// Items are independent; an error on one item is recorded in its result and
// does not stop the others. Cancellation between stages stops an item before
// it produces execution side effects; an item already inside the executor
// finishes (at-least-once once started).
func (p *Pipeline) Run(ctx context.Context, plan models.ActionPlan, workflowType models.WorkflowType, planCtx models.PlanContext) (*Result, error) {
	extracted, err := p.extractor.Execute(ctx, &extractactionitems.Input{
		Plan:         plan,
		WorkflowType: string(workflowType),
		Context:      planCtx,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{WorkflowType: workflowType}
	for _, item := range extracted.Items {
		result.Items = append(result.Items, p.runItem(ctx, item, workflowType, planCtx))
	}
	return result, nil
}

func (p *Pipeline) runItem(ctx context.Context, item models.ActionItem, workflowType models.WorkflowType, planCtx models.PlanContext) ItemResult {
	res := ItemResult{Item: item, FinalStatus: models.StatusPendingAssessment}

	if ctx.Err() != nil {
		res.Err = ctx.Err()
		return res
	}

	scored, err := p.scorer.Execute(ctx, &scoreactionitem.Input{
		Item:         item,
		WorkflowType: string(workflowType),
		Context:      planCtx,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Assessment = &scored.Assessment

	if ctx.Err() != nil {
		res.Err = ctx.Err()
		return res
	}

	routed, err := p.router.Execute(ctx, &routeapproval.Input{
		Item:         item,
		Assessment:   scored.Assessment,
		WorkflowType: string(workflowType),
		Context:      planCtx,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Routing = &routed.Decision
	res.FinalStatus = routed.Decision.InitialStatus

	if routed.Decision.RequiresHumanApproval {
		decision, complianceResolved, err := p.decisions(ctx, item, routed.Decision)
		if err != nil {
			res.Err = err
			return res
		}

		validated, err := p.validator.Execute(ctx, &validatedecision.Input{
			Item:               item,
			Routing:            routed.Decision,
			Decision:           decision,
			ComplianceResolved: complianceResolved,
			WorkflowType:       string(workflowType),
			Context:            planCtx,
		})
		if err != nil {
			res.Err = err
			return res
		}
		res.Validation = &validated.Result

		// Invalid decisions are not errors: the item keeps awaiting a
		// corrected decision and never advances.
		if !validated.Result.IsValid {
			return res
		}

		resolved, err := p.resolver.Execute(ctx, &resolvestatus.Input{
			Item:         item,
			Decision:     decision,
			WorkflowType: string(workflowType),
			Context:      planCtx,
		})
		if err != nil {
			res.Err = err
			return res
		}
		res.Resolution = &resolved.Resolution
		res.FinalStatus = resolved.Resolution.NextStatus

		if resolved.Resolution.NotificationNeeded && p.notifier != nil {
			if _, err := p.notifier.Execute(ctx, &sendnotification.Input{
				Item:          item,
				Resolution:    resolved.Resolution,
				ApprovalLevel: string(routed.Decision.ApprovalLevel),
				WorkflowType:  string(workflowType),
				Context:       planCtx,
			}); err != nil {
				// Notification failure never blocks the item's lifecycle.
				p.logger.Warn("notification failed", map[string]interface{}{
					"itemId": item.ID,
					"error":  err.Error(),
				})
			}
		}

		if resolved.Resolution.NextStatus != models.StatusExecuting {
			return res
		}
	}

	if ctx.Err() != nil {
		res.Err = ctx.Err()
		return res
	}

	// The executor is detached from the caller's cancellation: once started,
	// the item runs to a recorded result.
	execCtx := context.WithoutCancel(ctx)
	executed, err := p.executor.Execute(execCtx, &executeactionitem.Input{
		Item:         item,
		WorkflowType: string(workflowType),
		Context:      planCtx,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Execution = &executed.Result
	res.FinalStatus = executed.Result.Status
	return res
}
