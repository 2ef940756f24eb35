package refreshcatalog

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/common/validation"
)

const TaskType = "refresh-catalog"

var schema = validation.MustCompile(inputSchema())

type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context) (catalog.RefreshReport, error)
}

type Handler struct {
	config    *Config
	refresher CatalogRefresher
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, refresher CatalogRefresher, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		refresher: refresher,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
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
	if len(raw) == 0 {
		return &Input{}, nil
	}
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

// Execute rebuilds the catalog snapshot. A rebuild where some kinds failed
// still completes, listing the failures; only a rebuild where every kind
// failed fails the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	report, err := h.refresher.RefreshCatalog(ctx)
	if err != nil {
		switch {
		case stderrors.Is(err, catalog.ErrRefreshFailed):
			return nil, errors.NewCatalogUnavailableError("all", err)
		case stderrors.Is(err, context.DeadlineExceeded):
			return nil, errors.NewTransportFailureError("catalog", err)
		default:
			return nil, errors.NewInternalFaultError("catalog-refresh", err)
		}
	}

	out := &Output{
		Generation: report.Generation,
		Swapped:    report.Swapped,
		Counts:     make(map[string]int, len(report.Counts)),
		DurationMs: report.Duration.Milliseconds(),
	}
	for kind, n := range report.Counts {
		out.Counts[string(kind)] = n
	}
	if len(report.Failed) > 0 {
		out.Failed = make(map[string]string, len(report.Failed))
		for kind, msg := range report.Failed {
			out.Failed[string(kind)] = msg
		}
	}

	h.logger.Info("catalog refreshed", map[string]interface{}{
		"reason":     input.Reason,
		"generation": out.Generation,
		"failed":     len(out.Failed),
	})
	return out, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}
