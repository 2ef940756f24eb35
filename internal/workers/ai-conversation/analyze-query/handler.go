package analyzequery

import (
	"context"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"

	"venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/common/validation"
	"venue-recommender/internal/models"
)

const TaskType = "analyze-query"

var schema = validation.MustCompile(inputSchema())

type QueryAnalyzer interface {
	Analyze(query string, prev *models.ConversationContext) models.QueryAnalysis
	Session(userID, sessionID string) *models.ConversationContext
}

type Handler struct {
	config   *Config
	analyzer QueryAnalyzer
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, analyzer QueryAnalyzer, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		analyzer: analyzer,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := []byte(job.Variables)
	result, err := schema.ValidateBytes(raw)
	if err != nil {
		return nil, errors.NewInvalidTurnInputError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidTurnInputError(result.Error())
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidTurnInputError(err.Error())
	}
	return &input, nil
}

// Execute classifies the query and extracts its entities. When the query
// belongs to a known session its context resolves follow-ups; the session
// itself is left untouched.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternalFaultError("analyze", err)
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, errors.NewInvalidTurnInputError("query is blank")
	}

	var prev *models.ConversationContext
	if input.UserID != "" && input.SessionID != "" {
		prev = h.analyzer.Session(input.UserID, input.SessionID)
	}

	a := h.analyzer.Analyze(input.Query, prev)

	out := &Output{
		Intent:             a.Intent,
		Confidence:         a.Confidence,
		Sticky:             a.Sticky,
		Entities:           a.Entities,
		AlternativeIntents: a.Alternatives,
		Normalized:         a.Normalized,
		Tokens:             a.Tokens,
	}
	if out.AlternativeIntents == nil {
		out.AlternativeIntents = []models.IntentScore{}
	}
	if a.Confidence < h.config.MinConfidence {
		out.Warning = string(errors.ErrCodeClassificationAmbiguous)
	}
	return out, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.failJob(ctx, client, job, errors.NewInternalFaultError("complete-job", err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":     job.Key,
		"intent":     string(output.Intent),
		"confidence": output.Confidence,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
