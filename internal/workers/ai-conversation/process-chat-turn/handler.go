package processchatturn

import (
	"context"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/common/validation"
	"venue-recommender/internal/models"
)

const TaskType = "process-chat-turn"

var schema = validation.MustCompile(inputSchema())

// TurnProcessor runs one conversation turn. It never fails; a broken turn
// comes back degraded.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, query, userID, sessionID string) models.TurnResult
}

type Handler struct {
	config *Config
	engine TurnProcessor
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, engine TurnProcessor, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		engine: engine,
		errors: errors.NewErrorHandler(log),
		logger: log,
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

// Execute runs the turn. A session id is generated when the caller has none,
// and echoed back so the process can reuse it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, errors.NewInvalidTurnInputError("query is blank")
	}
	if strings.TrimSpace(input.UserID) == "" {
		return nil, errors.NewInvalidTurnInputError("userId is required")
	}
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	res := h.engine.ProcessTurn(ctx, input.Query, input.UserID, sessionID)

	if res.Error != "" {
		h.logger.Warn("turn degraded", map[string]interface{}{
			"turnId":    res.TurnID,
			"errorCode": res.Error,
		})
	}

	return &Output{
		TurnID:           res.TurnID,
		SessionID:        sessionID,
		ResponseText:     res.Text,
		Intent:           res.Intent,
		Confidence:       res.Confidence,
		Entities:         res.Entities,
		Recommendations:  res.Recommendations,
		FollowUpHints:    res.FollowUpHints,
		CacheHit:         res.CacheHit,
		ProcessingTimeMs: res.ProcessingTime.Milliseconds(),
		Degraded:         res.Error != "",
		ErrorCode:        res.Error,
	}, nil
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
		"jobKey":          job.Key,
		"intent":          string(output.Intent),
		"recommendations": len(output.Recommendations),
		"degraded":        output.Degraded,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
