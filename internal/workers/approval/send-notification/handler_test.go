// internal/workers/approval/send-notification/handler_test.go
package sendnotification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/models"
	"callcenter-workers/internal/workflow"
)

// ==========================
// Test Doubles
// ==========================

type mockSES struct {
	sent []*ses.SendEmailInput
	err  error
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, params)
	return &ses.SendEmailOutput{}, nil
}

type mockSNS struct {
	published []*sns.PublishInput
	err       error
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.published = append(m.published, params)
	return &sns.PublishOutput{}, nil
}

// contactStore serves approver contacts and counts lookups so cache hits are
// observable.
type contactStore struct {
	workflow.Store
	contact *workflow.ApproverContact
	lookups int
}

func (s *contactStore) GetApproverContact(ctx context.Context, level models.ApprovalLevel) (*workflow.ApproverContact, error) {
	s.lookups++
	if s.contact == nil {
		return nil, stderrors.NewPersistenceFailedError("get approver contact", fmt.Errorf("no contact for %s", level))
	}
	return s.contact, nil
}

// ==========================
// Test Helper Functions
// ==========================

func setupRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func testConfig() *Config {
	return &Config{
		EmailEnabled:         true,
		SMSEnabled:           true,
		FromEmail:            "workflow@example.com",
		SMSPriorityThreshold: "high",
		Timeout:              5 * time.Second,
		ContactCacheTTL:      time.Minute,
	}
}

func supervisorContact() *workflow.ApproverContact {
	return &workflow.ApproverContact{
		ApprovalLevel: models.ApprovalSupervisor,
		Email:         "supervisor@example.com",
		PhoneNumber:   "+15550100",
	}
}

func notificationInput(priority string) *Input {
	return &Input{
		Item: models.ActionItem{
			ID:          "item-1",
			Role:        models.WorkflowSupervisor,
			Description: "Investigate disclosure issue",
			Priority:    priority,
		},
		Resolution: models.StatusResolution{
			ItemID:             "item-1",
			NextStatus:         models.StatusClosedRejected,
			NotificationNeeded: true,
			Reasoning:          "rejected by u-100 (SUPERVISOR)",
		},
		ApprovalLevel: "SUPERVISOR",
		WorkflowType:  "SUPERVISOR",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_EmailAndSMSForHighPriority(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	store := &contactStore{contact: supervisorContact()}
	handler := NewHandler(testConfig(), store, nil, sesMock, snsMock, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), notificationInput("high"))
	assert.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.ElementsMatch(t, []string{ChannelEmail, ChannelSMS}, output.Channels)
	assert.NotEmpty(t, output.NotificationID)

	assert.Len(t, sesMock.sent, 1)
	assert.Equal(t, "supervisor@example.com", sesMock.sent[0].Destination.ToAddresses[0])
	assert.Len(t, snsMock.published, 1)
}

func TestHandler_Execute_LowPrioritySkipsSMS(t *testing.T) {
	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	store := &contactStore{contact: supervisorContact()}
	handler := NewHandler(testConfig(), store, nil, sesMock, snsMock, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), notificationInput("low"))
	assert.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail}, output.Channels)
	assert.Empty(t, snsMock.published)
}

func TestHandler_Execute_SkippedWhenNotNeeded(t *testing.T) {
	store := &contactStore{contact: supervisorContact()}
	handler := NewHandler(testConfig(), store, nil, &mockSES{}, &mockSNS{}, logger.NewTestLogger(t))

	input := notificationInput("high")
	input.Resolution.NotificationNeeded = false

	output, err := handler.Execute(context.Background(), input)
	assert.NoError(t, err)
	assert.Equal(t, StatusSkipped, output.Status)
	assert.Zero(t, store.lookups)
}

func TestHandler_Execute_DisabledChannels(t *testing.T) {
	cfg := testConfig()
	cfg.EmailEnabled = false
	cfg.SMSEnabled = false
	store := &contactStore{contact: supervisorContact()}
	handler := NewHandler(cfg, store, nil, &mockSES{}, &mockSNS{}, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), notificationInput("high"))
	assert.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
}

// ==========================
// Contact Cache Tests
// ==========================

func TestHandler_Execute_ContactCacheAvoidsRepeatLookups(t *testing.T) {
	redisClient := setupRedis(t)
	store := &contactStore{contact: supervisorContact()}
	handler := NewHandler(testConfig(), store, redisClient, &mockSES{}, &mockSNS{}, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), notificationInput("high"))
	assert.NoError(t, err)
	_, err = handler.Execute(context.Background(), notificationInput("high"))
	assert.NoError(t, err)

	assert.Equal(t, 1, store.lookups)
}

// ==========================
// Failure Tests
// ==========================

func TestHandler_Execute_EmailSendFailure(t *testing.T) {
	sesMock := &mockSES{err: fmt.Errorf("ses unavailable")}
	store := &contactStore{contact: supervisorContact()}
	handler := NewHandler(testConfig(), store, nil, sesMock, &mockSNS{}, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), notificationInput("high"))
	assert.Error(t, err)

	stdErr, ok := err.(*stderrors.StandardError)
	assert.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestHandler_Execute_UnknownContact(t *testing.T) {
	store := &contactStore{}
	handler := NewHandler(testConfig(), store, nil, &mockSES{}, &mockSNS{}, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), notificationInput("high"))
	assert.Error(t, err)

	stdErr, ok := err.(*stderrors.StandardError)
	assert.True(t, ok)
	assert.Equal(t, stderrors.ErrCodePersistenceFailed, stdErr.Code)
}
