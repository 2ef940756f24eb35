package getcontextsummary

import (
	"context"
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

const TaskType = "get-context-summary"

var schema = validation.MustCompile(sessionSchema())

type SessionReader interface {
	ContextSummary(userID, sessionID string) models.ContextSummary
	Session(userID, sessionID string) *models.ConversationContext
}

type Handler struct {
	config   *Config
	sessions SessionReader
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, sessions SessionReader, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		sessions: sessions,
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

	output := h.Execute(input)

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.failJob(ctx, client, job, errors.NewInternalFaultError("complete-job", err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}

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

// Execute never fails: an unknown session yields the empty welcome summary.
func (h *Handler) Execute(input *Input) *Output {
	return &Output{
		Exists:  h.sessions.Session(input.UserID, input.SessionID) != nil,
		Summary: h.sessions.ContextSummary(input.UserID, input.SessionID),
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
