// internal/workers/risk/score-action-item/handler.go
package scoreactionitem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"callcenter-workers/internal/common/config"
	"callcenter-workers/internal/common/database"
	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/genai"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/common/metrics"
	"callcenter-workers/internal/models"
	"callcenter-workers/internal/workflow"
)

const (
	TaskType = "score-action-item"
)

// TranscriptSource supplies call transcript context for scoring prompts.
// *database.ElasticsearchClient satisfies it.
type TranscriptSource interface {
	GetTranscriptExcerpt(ctx context.Context, transcriptID string) (*database.TranscriptExcerpt, error)
}

// Handler scores one action item's risk with an LLM call and holds the
// result to the label/score invariant.
type Handler struct {
	config       *Config
	llm          genai.Completer
	transcripts  TranscriptSource
	store        workflow.Store
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
}

func NewHandler(config *Config, llm genai.Completer, transcripts TranscriptSource, store workflow.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		llm:          llm,
		transcripts:  transcripts,
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

	thresholds, err := h.config.Thresholds.ThresholdsFor(string(workflowType))
	if err != nil {
		return nil, stderrors.NewConfigurationError(err.Error())
	}

	excerpt := h.lookupTranscript(ctx, input.Context.TranscriptID)

	prompt := h.buildPrompt(&input.Item, workflowType, excerpt)
	payload, err := h.llm.Complete(ctx, TaskType, prompt, h.config.OutputSchema)
	if err != nil {
		return nil, err
	}

	assessment, err := h.parseAssessment(input.Item.ID, payload, thresholds)
	if err != nil {
		return nil, err
	}

	if h.store != nil {
		if err := h.store.SaveAssessment(ctx, assessment); err != nil {
			return nil, err
		}
	}

	h.logger.Info("action item scored", map[string]interface{}{
		"itemId":    assessment.ItemID,
		"riskLevel": string(assessment.RiskLevel),
		"riskScore": assessment.RiskScore,
	})
	metrics.StageItemsProcessed.WithLabelValues(TaskType, string(workflowType)).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{Assessment: *assessment}, nil
}

// lookupTranscript fetches prompt context when a transcript ID is supplied.
// Lookup failures degrade to scoring without context; the item description
// alone is always sufficient input.
func (h *Handler) lookupTranscript(ctx context.Context, transcriptID string) string {
	if transcriptID == "" || h.transcripts == nil {
		return ""
	}
	excerpt, err := h.transcripts.GetTranscriptExcerpt(ctx, transcriptID)
	if err != nil {
		h.logger.Warn("transcript lookup failed, scoring without call context", map[string]interface{}{
			"transcriptId": transcriptID,
			"error":        err.Error(),
		})
		return ""
	}
	return excerpt.Text
}

func (h *Handler) buildPrompt(item *models.ActionItem, workflowType models.WorkflowType, transcript string) string {
	var parts []string

	parts = append(parts, "You are a risk analyst for a loan servicing call center. Assess the operational and compliance risk of executing the following action item.")
	parts = append(parts, fmt.Sprintf("\nWorkflow type: %s", workflowType))
	parts = append(parts, fmt.Sprintf("Action: %s", item.Description))
	if item.Priority != "" {
		parts = append(parts, fmt.Sprintf("Priority: %s", item.Priority))
	}
	if item.Timeline != "" {
		parts = append(parts, fmt.Sprintf("Timeline: %s", item.Timeline))
	}
	if item.ComplianceFlag {
		parts = append(parts, "This item carries a compliance flag.")
	}

	if transcript != "" {
		parts = append(parts, "\nCall transcript excerpt:")
		parts = append(parts, transcript)
	}

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Classify risk_level as exactly one of LOW, MEDIUM, HIGH")
	parts = append(parts, "- Return risk_score between 0.0 and 1.0, consistent with the level")
	parts = append(parts, "- List the contributing factors")
	parts = append(parts, "- Respond with a single JSON object: {\"risk_level\", \"risk_score\", \"reasoning\", \"factors\"}")

	return strings.Join(parts, "\n")
}

// parseAssessment converts the model payload into a RiskAssessment, holding
// it to the output contract. Required fields may not be defaulted; label and
// score must agree with the configured thresholds.
func (h *Handler) parseAssessment(itemID string, payload json.RawMessage, thresholds config.RiskThresholds) (*models.RiskAssessment, error) {
	var raw llmAssessment
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, stderrors.NewContractViolationError(TaskType, fmt.Sprintf("decode assessment: %v", err))
	}

	if raw.RiskScore == nil {
		return nil, stderrors.NewContractViolationError(TaskType, "risk_score missing from response")
	}
	if strings.TrimSpace(raw.Reasoning) == "" {
		return nil, stderrors.NewContractViolationError(TaskType, "reasoning missing from response")
	}

	level := models.RiskLevel(raw.RiskLevel)
	switch level {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		return nil, stderrors.NewContractViolationError(TaskType, fmt.Sprintf("risk_level %q outside {LOW, MEDIUM, HIGH}", raw.RiskLevel))
	}

	score := *raw.RiskScore
	if score < 0.0 || score > 1.0 {
		return nil, stderrors.NewContractViolationError(TaskType, fmt.Sprintf("risk_score %v outside [0,1]", score))
	}
	if level == models.RiskHigh && score < thresholds.High {
		return nil, stderrors.NewContractViolationError(TaskType,
			fmt.Sprintf("risk_level HIGH with score %.2f below high threshold %.2f", score, thresholds.High))
	}
	if level == models.RiskLow && score > thresholds.Low {
		return nil, stderrors.NewContractViolationError(TaskType,
			fmt.Sprintf("risk_level LOW with score %.2f above low threshold %.2f", score, thresholds.Low))
	}

	return &models.RiskAssessment{
		ItemID:    itemID,
		RiskLevel: level,
		RiskScore: score,
		Reasoning: raw.Reasoning,
		Factors:   raw.Factors,
	}, nil
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
