package refreshcatalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/models"
	"venue-recommender/internal/recommender"
)

type stubRefresher struct {
	report catalog.RefreshReport
	err    error
}

func (s stubRefresher) RefreshCatalog(context.Context) (catalog.RefreshReport, error) {
	return s.report, s.err
}

// failingSource fails events and serves venues from the sample data.
type failingSource struct {
	*catalog.StaticSource
}

func (f failingSource) FetchItems(ctx context.Context, kind models.ItemKind) ([]models.Item, error) {
	if kind == models.KindEvent {
		return nil, stderrors.New("events api returned 502")
	}
	return f.StaticSource.FetchItems(ctx, kind)
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 30*time.Second, LoadConfig(config.WorkerConfig{}, 0).Timeout)
	assert.Equal(t, 15*time.Second, LoadConfig(config.WorkerConfig{Timeout: 1000}, 10*time.Second).Timeout)
	assert.Equal(t, 60*time.Second, LoadConfig(config.WorkerConfig{Timeout: 60000}, 10*time.Second).Timeout)
}

func TestHandler_ParseInput(t *testing.T) {
	h := NewHandler(LoadConfig(config.WorkerConfig{}, 0), stubRefresher{}, logger.NewTestLogger(t))

	tests := []struct {
		name      string
		variables string
		wantErr   bool
		want      string
	}{
		{name: "no variables", variables: ""},
		{name: "empty object", variables: "{}"},
		{name: "with reason", variables: `{"reason":"nightly"}`, want: "nightly"},
		{name: "reason of wrong type", variables: `{"reason":7}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: TaskType, Variables: tt.variables}}
			input, err := h.parseInput(job)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidTurnInput, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, input.Reason)
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
	}{
		{name: "every kind failed", err: fmt.Errorf("%w: boom", catalog.ErrRefreshFailed), wantCode: errors.ErrCodeCatalogUnavailable},
		{name: "timed out", err: context.DeadlineExceeded, wantCode: errors.ErrCodeTransportFailure},
		{name: "no refresher", err: recommender.ErrNoRefresher, wantCode: errors.ErrCodeInternalFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(config.WorkerConfig{}, 0), stubRefresher{err: tt.err}, logger.NewTestLogger(t))
			_, err := h.Execute(context.Background(), &Input{})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
		})
	}
}

func TestHandler_Execute_PartialFailure(t *testing.T) {
	log := logger.NewTestLogger(t)
	store := catalog.NewStore()
	refresher := catalog.NewRefresher(store, failingSource{catalog.DefaultStaticSource()}, nil, catalog.RefresherConfig{}, log)
	engine := recommender.New(recommender.Deps{Store: store, Refresher: refresher}, recommender.Config{}, log)

	h := NewHandler(LoadConfig(config.WorkerConfig{}, 0), engine, log)
	out, err := h.Execute(context.Background(), &Input{Reason: "test"})
	require.NoError(t, err)

	assert.True(t, out.Swapped)
	assert.Equal(t, uint64(1), out.Generation)
	assert.Positive(t, out.Counts["venue"])
	assert.Zero(t, out.Counts["event"])
	assert.Contains(t, out.Failed["event"], "502")
}
