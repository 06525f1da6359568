package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/radflow-triage-server/internal/domain"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func testAIConfig() domain.AIConfig {
	return domain.AIConfig{Model: "gemini-3-flash-preview"}
}

func newTestGateway(gen TextGenerator, cfg domain.AIConfig) *Gateway {
	logger, _ := test.NewNullLogger()
	return NewGateway(gen, cfg, logger)
}

const fullAnalysis = `{
	"clinicalHistory": "58M with CKD stage 3",
	"labCorrelations": "Creatinine 1.9 mg/dL",
	"keyFindings": "3.4 cm enhancing right renal mass",
	"followUpSuggestions": "Urology referral and renal protocol MRI"
}`

func TestAnalyzeReport_SchemaContract(t *testing.T) {
	tests := []struct {
		name     string
		response string
		genErr   error
		want     *domain.ReportAnalysis
	}{
		{
			name:     "all four fields",
			response: fullAnalysis,
			want: &domain.ReportAnalysis{
				ClinicalHistory:     "58M with CKD stage 3",
				LabCorrelations:     "Creatinine 1.9 mg/dL",
				KeyFindings:         "3.4 cm enhancing right renal mass",
				FollowUpSuggestions: "Urology referral and renal protocol MRI",
			},
		},
		{
			name:     "missing field",
			response: `{"clinicalHistory":"a","labCorrelations":"b","keyFindings":"c"}`,
		},
		{
			name:     "null field",
			response: `{"clinicalHistory":null,"labCorrelations":"b","keyFindings":"c","followUpSuggestions":"d"}`,
		},
		{
			name:     "non-json body",
			response: "I could not analyze this report.",
		},
		{
			name:     "empty body",
			response: "",
		},
		{
			name:   "service failure",
			genErr: errors.New("503 service unavailable"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{}
			gen.On("Generate", mock.Anything, mock.Anything).Return(tt.response, tt.genErr).Once()

			gateway := newTestGateway(gen, testAIConfig())
			got, err := gateway.AnalyzeReport(context.Background(), "58M with CKD. 3.4cm right renal mass.")

			if tt.want != nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			} else {
				var analysisErr *domain.AnalysisError
				require.ErrorAs(t, err, &analysisErr)
				assert.Nil(t, got, "no partial result on failure")
			}
			if tt.genErr != nil {
				assert.ErrorIs(t, err, tt.genErr)
			}
			gen.AssertExpectations(t)
		})
	}
}

func TestAnalyzeReport_RequestShape(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req GenerateRequest) bool {
		if req.Model != "gemini-3-flash-preview" || req.Prompt != "report body" || req.SystemInstruction == "" {
			return false
		}
		if req.ResponseSchema == nil || len(req.ResponseSchema.Properties) != 4 {
			return false
		}
		for i, prop := range req.ResponseSchema.Properties {
			if prop.Name != domain.ReportAnalysisFields[i] || prop.Description == "" {
				return false
			}
		}
		return true
	})).Return(fullAnalysis, nil).Once()

	_, err := newTestGateway(gen, testAIConfig()).AnalyzeReport(context.Background(), "report body")
	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestAnalyzeReport_ForwardsShortText(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(req GenerateRequest) bool {
		return req.Prompt == "x"
	})).Return(fullAnalysis, nil).Once()

	_, err := newTestGateway(gen, testAIConfig()).AnalyzeReport(context.Background(), "x")

	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestGenerateExplanation(t *testing.T) {
	t.Run("verbatim text", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("Generate", mock.Anything, mock.MatchedBy(func(req GenerateRequest) bool {
			return req.ResponseSchema == nil &&
				req.SystemInstruction == explanationSystemInstruction &&
				assert.ObjectsAreEqual(explanationPrompt("Jane Doe", "A trauma case arrived."), req.Prompt)
		})).Return("Thank you for your patience, Jane.", nil).Once()

		text, err := newTestGateway(gen, testAIConfig()).GenerateExplanation(context.Background(), "Jane Doe", "A trauma case arrived.")
		require.NoError(t, err)
		assert.Equal(t, "Thank you for your patience, Jane.", text)
		gen.AssertExpectations(t)
	})

	t.Run("empty reply is not an error", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.On("Generate", mock.Anything, mock.Anything).Return("", nil).Once()

		text, err := newTestGateway(gen, testAIConfig()).GenerateExplanation(context.Background(), "Jane Doe", "Calibration")
		require.NoError(t, err)
		assert.Equal(t, "", text)
	})

	t.Run("service failure", func(t *testing.T) {
		cause := errors.New("connection reset")
		gen := &mockGenerator{}
		gen.On("Generate", mock.Anything, mock.Anything).Return("", cause).Once()

		_, err := newTestGateway(gen, testAIConfig()).GenerateExplanation(context.Background(), "Jane Doe", "Calibration")
		var explanationErr *domain.ExplanationError
		require.ErrorAs(t, err, &explanationErr)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("missing inputs", func(t *testing.T) {
		gen := &mockGenerator{}
		gateway := newTestGateway(gen, testAIConfig())

		_, err := gateway.GenerateExplanation(context.Background(), "", "Calibration")
		var explanationErr *domain.ExplanationError
		assert.ErrorAs(t, err, &explanationErr)
		_, err = gateway.GenerateExplanation(context.Background(), "Jane Doe", " ")
		assert.ErrorAs(t, err, &explanationErr)
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})
}

func TestGateway_DisabledGenerator(t *testing.T) {
	gateway := newTestGateway(DisabledGenerator{}, testAIConfig())

	_, err := gateway.AnalyzeReport(context.Background(), "report")
	assert.ErrorIs(t, err, ErrNoCredential)

	_, err = gateway.GenerateExplanation(context.Background(), "Jane", "reason")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestGateway_Timeout(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("", nil).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "timeout should set a deadline")
	}).Once()

	cfg := testAIConfig()
	cfg.Timeout = 5 * time.Second
	_, err := newTestGateway(gen, cfg).GenerateExplanation(context.Background(), "Jane", "reason")
	require.NoError(t, err)

	noTimeout := &mockGenerator{}
	noTimeout.On("Generate", mock.Anything, mock.Anything).Return("", nil).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline, "default config waits on the transport")
	}).Once()
	_, err = newTestGateway(noTimeout, testAIConfig()).GenerateExplanation(context.Background(), "Jane", "reason")
	require.NoError(t, err)
}

func TestGateway_CircuitBreaker(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("upstream down")).Times(2)

	cfg := testAIConfig()
	cfg.CircuitBreaker = domain.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}
	registry := prometheus.NewRegistry()
	logger, _ := test.NewNullLogger()
	gateway := NewGateway(gen, cfg, logger, WithMetrics(NewMetrics(registry)))

	for i := 0; i < 2; i++ {
		_, err := gateway.GenerateExplanation(context.Background(), "Jane", "reason")
		require.Error(t, err)
	}

	_, err := gateway.GenerateExplanation(context.Background(), "Jane", "reason")
	var explanationErr *domain.ExplanationError
	require.ErrorAs(t, err, &explanationErr)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	gen.AssertNumberOfCalls(t, "Generate", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(gateway.metrics.requests.WithLabelValues(opGenerateExplanation, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(gateway.metrics.requests.WithLabelValues(opGenerateExplanation, "rejected")))
}

func TestMetrics_SuccessOutcome(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return(fullAnalysis, nil).Once()

	registry := prometheus.NewRegistry()
	logger, _ := test.NewNullLogger()
	gateway := NewGateway(gen, testAIConfig(), logger, WithMetrics(NewMetrics(registry)))

	_, err := gateway.AnalyzeReport(context.Background(), "report")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(gateway.metrics.requests.WithLabelValues(opAnalyzeReport, "success")))
}
