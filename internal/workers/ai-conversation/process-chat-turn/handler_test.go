package processchatturn

import (
	"context"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-recommender/internal/catalog"
	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/models"
	"venue-recommender/internal/recommender"
	"venue-recommender/internal/resultcache"
	"venue-recommender/internal/retrieval"
)

// ==========================
// Test Helpers
// ==========================

type fakeEngine struct {
	result     models.TurnResult
	gotQuery   string
	gotUser    string
	gotSession string
}

func (f *fakeEngine) ProcessTurn(_ context.Context, query, userID, sessionID string) models.TurnResult {
	f.gotQuery, f.gotUser, f.gotSession = query, userID, sessionID
	return f.result
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "chat-turn",
		ElementId:          "Activity_ProcessChatTurn",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newHandler(t *testing.T, engine TurnProcessor) *Handler {
	return NewHandler(LoadConfig(config.WorkerConfig{}), engine, logger.NewTestLogger(t))
}

func realEngine(t *testing.T) *recommender.Engine {
	log := logger.NewTestLogger(t)
	byKind := map[models.ItemKind][]models.Item{}
	for _, it := range catalog.SampleItems() {
		byKind[it.Kind()] = append(byKind[it.Kind()], it)
	}
	store := catalog.NewStore()
	store.Swap(catalog.NewSnapshot(1, time.Now(), byKind))
	return recommender.New(recommender.Deps{
		Store:     store,
		Retriever: retrieval.New(store, nil, nil, nil, retrieval.Config{}, log),
		Cache:     resultcache.New(resultcache.NewMemoryBackend(), resultcache.Config{}, log),
	}, recommender.Config{}, log)
}

// ==========================
// Input Parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := newHandler(t, &fakeEngine{})

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
		want      *Input
	}{
		{
			name:      "query and user",
			variables: map[string]interface{}{"query": "pizza", "userId": "u1"},
			want:      &Input{Query: "pizza", UserID: "u1"},
		},
		{
			name:      "with session and unrelated process variables",
			variables: map[string]interface{}{"query": "pizza", "userId": "u1", "sessionId": "s1", "locale": "ro"},
			want:      &Input{Query: "pizza", UserID: "u1", SessionID: "s1"},
		},
		{
			name:      "missing user",
			variables: map[string]interface{}{"query": "pizza"},
			wantErr:   true,
		},
		{
			name:      "empty query",
			variables: map[string]interface{}{"query": "", "userId": "u1"},
			wantErr:   true,
		},
		{
			name:      "query of wrong type",
			variables: map[string]interface{}{"query": 42, "userId": "u1"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(12345, tt.variables))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidTurnInput, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, input)
		})
	}
}

func TestHandler_ParseInput_MalformedVariables(t *testing.T) {
	h := newHandler(t, &fakeEngine{})
	job := createMockJob(1, nil)
	job.Variables = "{not json"

	_, err := h.parseInput(job)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidTurnInput, errors.CodeOf(err))
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute(t *testing.T) {
	t.Run("maps the turn result", func(t *testing.T) {
		engine := &fakeEngine{result: models.TurnResult{
			TurnID:          "t-1",
			Text:            "Am găsit o recomandare pentru tine.",
			Intent:          models.IntentFoodSearch,
			Confidence:      0.5,
			Entities:        models.Entities{models.EntityCuisine: {"italian"}},
			Recommendations: []models.Recommendation{{ID: 3, Kind: models.KindVenue, Title: "Pizza Bella"}},
			FollowUpHints:   []string{},
			ProcessingTime:  12 * time.Millisecond,
		}}
		h := newHandler(t, engine)

		out, err := h.Execute(context.Background(), &Input{Query: "pizza", UserID: "u1", SessionID: "s1"})
		require.NoError(t, err)

		assert.Equal(t, "pizza", engine.gotQuery)
		assert.Equal(t, "u1", engine.gotUser)
		assert.Equal(t, "s1", engine.gotSession)
		assert.Equal(t, "t-1", out.TurnID)
		assert.Equal(t, "s1", out.SessionID)
		assert.Equal(t, models.IntentFoodSearch, out.Intent)
		assert.Len(t, out.Recommendations, 1)
		assert.Equal(t, int64(12), out.ProcessingTimeMs)
		assert.False(t, out.Degraded)
	})

	t.Run("generates a session id when missing", func(t *testing.T) {
		engine := &fakeEngine{}
		h := newHandler(t, engine)

		out, err := h.Execute(context.Background(), &Input{Query: "salut", UserID: "u1"})
		require.NoError(t, err)
		assert.NotEmpty(t, engine.gotSession)
		assert.Equal(t, engine.gotSession, out.SessionID)
	})

	t.Run("degraded turns complete with the error code", func(t *testing.T) {
		engine := &fakeEngine{result: models.TurnResult{
			Intent: models.IntentError,
			Error:  string(errors.ErrCodeInternalFault),
		}}
		h := newHandler(t, engine)

		out, err := h.Execute(context.Background(), &Input{Query: "pizza", UserID: "u1", SessionID: "s1"})
		require.NoError(t, err)
		assert.True(t, out.Degraded)
		assert.Equal(t, "INTERNAL_FAULT", out.ErrorCode)
	})

	t.Run("blank query is rejected", func(t *testing.T) {
		h := newHandler(t, &fakeEngine{})
		_, err := h.Execute(context.Background(), &Input{Query: "   ", UserID: "u1"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidTurnInput, errors.CodeOf(err))
	})
}

func TestHandler_Execute_WithEngine(t *testing.T) {
	h := newHandler(t, realEngine(t))

	out, err := h.Execute(context.Background(), &Input{Query: "vreau pizza italiana", UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Recommendations)
	assert.Equal(t, "Pizza Bella", out.Recommendations[0].Title)
	assert.False(t, out.CacheHit)

	again, err := h.Execute(context.Background(), &Input{Query: "vreau pizza italiana", UserID: "u2", SessionID: "s2"})
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
	assert.Equal(t, out.Recommendations, again.Recommendations)
}
