package retrieverecommendations

import (
	"context"
	stderrors "errors"
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

const TaskType = "retrieve-recommendations"

var schema = validation.MustCompile(inputSchema())

// Recommender is the read-only slice of the engine this worker needs.
type Recommender interface {
	Analyze(query string, prev *models.ConversationContext) models.QueryAnalysis
	Retrieve(ctx context.Context, analysis models.QueryAnalysis, prev *models.ConversationContext) ([]models.RankedResult, bool, error)
	Session(userID, sessionID string) *models.ConversationContext
}

type Handler struct {
	config *Config
	engine Recommender
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, engine Recommender, log logger.Logger) *Handler {
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

// Execute analyzes and retrieves without recording anything in the session.
// Unlike a chat turn, a retrieval failure fails the job so the process can
// retry or take its error path.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, errors.NewInvalidTurnInputError("query is blank")
	}

	var prev *models.ConversationContext
	if input.UserID != "" && input.SessionID != "" {
		prev = h.engine.Session(input.UserID, input.SessionID)
	}

	analysis := h.engine.Analyze(input.Query, prev)
	results, hit, err := h.engine.Retrieve(ctx, analysis, prev)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
			return nil, errors.NewTransportFailureError("retrieval", err)
		}
		return nil, errors.NewInternalFaultError("retrieval", err)
	}

	limit := h.config.MaxResults
	if input.Limit > 0 && input.Limit < limit {
		limit = input.Limit
	}
	total := len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	recs := make([]models.Recommendation, 0, len(results))
	for _, r := range results {
		recs = append(recs, models.ToRecommendation(r))
	}

	return &Output{
		Intent:          analysis.Intent,
		Entities:        analysis.Entities,
		Recommendations: recs,
		TotalFound:      total,
		CacheHit:        hit,
		Empty:           total == 0,
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
		"jobKey":     job.Key,
		"totalFound": output.TotalFound,
		"cacheHit":   output.CacheHit,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
