// internal/workers/approval/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/common/metrics"
	"callcenter-workers/internal/models"
	"callcenter-workers/internal/workflow"
)

const (
	TaskType = "send-notification"

	contactCacheKeyPrefix = "approver:contact:"
)

// SESService and SNSService allow mocking the AWS clients in tests.
// common/aws wrappers satisfy both.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Handler announces approval-workflow status changes to the responsible
// approver tier: email always when enabled, SMS for high-priority items.
type Handler struct {
	config       *Config
	store        workflow.Store
	redis        *redis.Client
	sesClient    SESService
	snsClient    SNSService
	logger       logger.Logger
	errorHandler *stderrors.ErrorHandler
}

func NewHandler(config *Config, store workflow.Store, redisClient *redis.Client, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        store,
		redis:        redisClient,
		sesClient:    sesClient,
		snsClient:    snsClient,
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
	sentAt := time.Now().UTC().Format(time.RFC3339)

	if !input.Resolution.NotificationNeeded {
		return &Output{
			NotificationID: uuid.New().String(),
			Status:         StatusSkipped,
			SentAt:         sentAt,
		}, nil
	}

	if !h.config.EmailEnabled && !h.config.SMSEnabled {
		return &Output{
			NotificationID: uuid.New().String(),
			Status:         StatusDisabled,
			SentAt:         sentAt,
		}, nil
	}

	contact, err := h.getContact(ctx, models.ApprovalLevel(input.ApprovalLevel))
	if err != nil {
		return nil, err
	}

	subject, body := h.composeMessage(&input.Item, &input.Resolution)

	var channels []string
	if h.config.EmailEnabled && contact.Email != "" {
		if err := h.sendEmail(ctx, contact.Email, subject, body); err != nil {
			return nil, stderrors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		channels = append(channels, ChannelEmail)
	}

	if h.config.SMSEnabled && contact.PhoneNumber != "" && h.smsEligible(input.Item.Priority) {
		if err := h.sendSMS(ctx, contact.PhoneNumber, subject); err != nil {
			return nil, stderrors.NewNotificationSendFailedError(ChannelSMS, err)
		}
		channels = append(channels, ChannelSMS)
	}

	h.logger.Info("notification sent", map[string]interface{}{
		"itemId":        input.Item.ID,
		"approvalLevel": input.ApprovalLevel,
		"channels":      channels,
	})
	metrics.StageItemsProcessed.WithLabelValues(TaskType, input.WorkflowType).Inc()
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())

	return &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusSent,
		Channels:       channels,
		SentAt:         sentAt,
	}, nil
}

// getContact resolves the approver tier's contact, serving from the cache
// when warm and falling back to the store.
func (h *Handler) getContact(ctx context.Context, level models.ApprovalLevel) (*workflow.ApproverContact, error) {
	cacheKey := contactCacheKeyPrefix + string(level)

	if h.redis != nil {
		if val, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
			var contact workflow.ApproverContact
			if json.Unmarshal([]byte(val), &contact) == nil {
				return &contact, nil
			}
		}
	}

	contact, err := h.store.GetApproverContact(ctx, level)
	if err != nil {
		return nil, err
	}

	if h.redis != nil {
		if data, err := json.Marshal(contact); err == nil {
			h.redis.Set(ctx, cacheKey, data, h.config.ContactCacheTTL)
		}
	}
	return contact, nil
}

func (h *Handler) composeMessage(item *models.ActionItem, resolution *models.StatusResolution) (subject, body string) {
	subject = fmt.Sprintf("[%s] Action item %s: %s", item.Role, item.ID, resolution.NextStatus)

	var lines []string
	lines = append(lines, fmt.Sprintf("Action item %s has moved to %s.", item.ID, resolution.NextStatus))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Action: %s", item.Description))
	if item.Priority != "" {
		lines = append(lines, fmt.Sprintf("Priority: %s", item.Priority))
	}
	if item.ComplianceFlag {
		lines = append(lines, "This item carries a compliance flag.")
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Reason: %s", resolution.Reasoning))
	return subject, strings.Join(lines, "\n")
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(h.config.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, phoneNumber, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phoneNumber),
		Message:     aws.String(message),
	})
	return err
}

// smsEligible gates SMS to items at or above the configured priority tag.
func (h *Handler) smsEligible(priority string) bool {
	switch strings.ToLower(h.config.SMSPriorityThreshold) {
	case "", "low":
		return true
	case "medium":
		p := strings.ToLower(priority)
		return p == "medium" || p == "high" || p == "urgent"
	default:
		p := strings.ToLower(priority)
		return p == "high" || p == "urgent"
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
