// internal/workers/risk/score-action-item/handler_test.go
package scoreactionitem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"callcenter-workers/internal/common/config"
	"callcenter-workers/internal/common/database"
	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/common/logger"
	"callcenter-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

// stubCompleter returns a canned payload and records prompts.
type stubCompleter struct {
	payload json.RawMessage
	err     error
	prompts []string
}

func (s *stubCompleter) Complete(ctx context.Context, stage, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

// stubTranscripts serves a fixed excerpt.
type stubTranscripts struct {
	text string
	err  error
}

func (s *stubTranscripts) GetTranscriptExcerpt(ctx context.Context, transcriptID string) (*database.TranscriptExcerpt, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &database.TranscriptExcerpt{TranscriptID: transcriptID, Text: s.text}, nil
}

func testConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		Thresholds: config.RiskConfig{
			Thresholds: map[string]config.RiskThresholds{
				"BORROWER":   {High: 0.7, Low: 0.3},
				"SUPERVISOR": {High: 0.6, Low: 0.3},
			},
		},
	}
}

func assessmentPayload(level string, score float64) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"risk_level":%q,"risk_score":%v,"reasoning":"assessed from action description","factors":["timeline pressure"]}`,
		level, score,
	))
}

func sampleItem() models.ActionItem {
	return models.ActionItem{
		ID:          "item-1",
		Role:        models.WorkflowBorrower,
		Description: "Send hardship packet within 24 hours",
		Priority:    "high",
		Timeline:    "24h",
		PlanID:      "plan-1",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	llm := &stubCompleter{payload: assessmentPayload("LOW", 0.2)}
	handler := NewHandler(testConfig(), llm, nil, nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		Item:         sampleItem(),
		WorkflowType: "BORROWER",
		Context:      models.PlanContext{PlanID: "plan-1"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "item-1", output.Assessment.ItemID)
	assert.Equal(t, models.RiskLow, output.Assessment.RiskLevel)
	assert.Equal(t, 0.2, output.Assessment.RiskScore)
	assert.NotEmpty(t, output.Assessment.Reasoning)
	assert.NotEmpty(t, output.Assessment.Factors)
}

func TestHandler_Execute_DeterministicModelIsIdempotent(t *testing.T) {
	llm := &stubCompleter{payload: assessmentPayload("MEDIUM", 0.5)}
	handler := NewHandler(testConfig(), llm, nil, nil, logger.NewTestLogger(t))

	input := &Input{Item: sampleItem(), WorkflowType: "BORROWER"}

	first, err := handler.Execute(context.Background(), input)
	assert.NoError(t, err)
	second, err := handler.Execute(context.Background(), input)
	assert.NoError(t, err)

	assert.Equal(t, first.Assessment.RiskLevel, second.Assessment.RiskLevel)
}

func TestHandler_Execute_TranscriptContextInPrompt(t *testing.T) {
	llm := &stubCompleter{payload: assessmentPayload("LOW", 0.1)}
	transcripts := &stubTranscripts{text: "Caller described a recent job loss."}
	handler := NewHandler(testConfig(), llm, transcripts, nil, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{
		Item:         sampleItem(),
		WorkflowType: "BORROWER",
		Context:      models.PlanContext{TranscriptID: "tr-1"},
	})
	assert.NoError(t, err)
	assert.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Caller described a recent job loss.")
}

func TestHandler_Execute_TranscriptLookupFailureDegrades(t *testing.T) {
	llm := &stubCompleter{payload: assessmentPayload("LOW", 0.1)}
	transcripts := &stubTranscripts{err: fmt.Errorf("search unavailable")}
	handler := NewHandler(testConfig(), llm, transcripts, nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		Item:         sampleItem(),
		WorkflowType: "BORROWER",
		Context:      models.PlanContext{TranscriptID: "tr-1"},
	})
	assert.NoError(t, err)
	assert.Equal(t, models.RiskLow, output.Assessment.RiskLevel)
}

// ==========================
// Label/Score Invariant Tests
// ==========================

func TestHandler_Execute_LabelScoreInvariant(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		score     float64
		expectErr bool
	}{
		{"high at threshold", "HIGH", 0.7, false},
		{"high above threshold", "HIGH", 0.95, false},
		{"high below threshold violates contract", "HIGH", 0.5, true},
		{"low at threshold", "LOW", 0.3, false},
		{"low above threshold violates contract", "LOW", 0.4, true},
		{"medium anywhere in band", "MEDIUM", 0.5, false},
		{"score above one violates contract", "MEDIUM", 1.2, true},
		{"negative score violates contract", "LOW", -0.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubCompleter{payload: assessmentPayload(tt.level, tt.score)}
			handler := NewHandler(testConfig(), llm, nil, nil, logger.NewTestLogger(t))

			_, err := handler.Execute(context.Background(), &Input{
				Item:         sampleItem(),
				WorkflowType: "BORROWER",
			})

			if tt.expectErr {
				stdErr, ok := err.(*stderrors.StandardError)
				assert.True(t, ok)
				assert.Equal(t, stderrors.ErrCodeContractViolation, stdErr.Code)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ==========================
// Contract Violation Tests
// ==========================

func TestHandler_Execute_MalformedResponses(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"unknown risk level", `{"risk_level":"CRITICAL","risk_score":0.9,"reasoning":"r"}`},
		{"missing risk score", `{"risk_level":"LOW","reasoning":"r"}`},
		{"missing reasoning", `{"risk_level":"LOW","risk_score":0.2}`},
		{"blank reasoning", `{"risk_level":"LOW","risk_score":0.2,"reasoning":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubCompleter{payload: json.RawMessage(tt.payload)}
			handler := NewHandler(testConfig(), llm, nil, nil, logger.NewTestLogger(t))

			_, err := handler.Execute(context.Background(), &Input{
				Item:         sampleItem(),
				WorkflowType: "BORROWER",
			})
			assert.Error(t, err)

			stdErr, ok := err.(*stderrors.StandardError)
			assert.True(t, ok)
			assert.Equal(t, stderrors.ErrCodeContractViolation, stdErr.Code)
		})
	}
}

// ==========================
// Configuration Tests
// ==========================

func TestHandler_Execute_ConfigurationErrors(t *testing.T) {
	llm := &stubCompleter{payload: assessmentPayload("LOW", 0.1)}
	handler := NewHandler(testConfig(), llm, nil, nil, logger.NewTestLogger(t))

	t.Run("unknown workflow type", func(t *testing.T) {
		_, err := handler.Execute(context.Background(), &Input{
			Item:         sampleItem(),
			WorkflowType: "AUDITOR",
		})
		stdErr, ok := err.(*stderrors.StandardError)
		assert.True(t, ok)
		assert.Equal(t, stderrors.ErrCodeConfiguration, stdErr.Code)
	})

	t.Run("missing thresholds", func(t *testing.T) {
		_, err := handler.Execute(context.Background(), &Input{
			Item:         sampleItem(),
			WorkflowType: "LEADERSHIP", // not in test config
		})
		stdErr, ok := err.(*stderrors.StandardError)
		assert.True(t, ok)
		assert.Equal(t, stderrors.ErrCodeConfiguration, stdErr.Code)
		assert.True(t, strings.Contains(stdErr.Details, "LEADERSHIP"))
	})
}
