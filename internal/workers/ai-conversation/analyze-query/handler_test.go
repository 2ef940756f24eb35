package analyzequery

import (
	"context"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/models"
	"venue-recommender/internal/recommender"
)

// ==========================
// Test Helpers
// ==========================

type fakeAnalyzer struct {
	sessions map[models.SessionKey]*models.ConversationContext
	gotPrev  *models.ConversationContext
	analysis models.QueryAnalysis
}

func (f *fakeAnalyzer) Analyze(query string, prev *models.ConversationContext) models.QueryAnalysis {
	f.gotPrev = prev
	a := f.analysis
	a.Query = query
	return a
}

func (f *fakeAnalyzer) Session(userID, sessionID string) *models.ConversationContext {
	return f.sessions[models.SessionKey{UserID: userID, SessionID: sessionID}]
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "chat-turn",
		ElementId:          "Activity_AnalyzeQuery",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newHandler(t *testing.T, a QueryAnalyzer) *Handler {
	return NewHandler(LoadConfig(config.WorkerConfig{}, 0), a, logger.NewTestLogger(t))
}

// ==========================
// Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := newHandler(t, &fakeAnalyzer{})

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{name: "query only", variables: map[string]interface{}{"query": "sushi"}},
		{name: "query with session", variables: map[string]interface{}{"query": "sushi", "userId": "u1", "sessionId": "s1"}},
		{name: "missing query", variables: map[string]interface{}{"userId": "u1"}, wantErr: true},
		{name: "empty query", variables: map[string]interface{}{"query": ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidTurnInput, errors.CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHandler_Execute_UsesKnownSession(t *testing.T) {
	prev := &models.ConversationContext{CurrentIntent: models.IntentRestaurantSearch}
	a := &fakeAnalyzer{
		sessions: map[models.SessionKey]*models.ConversationContext{{UserID: "u1", SessionID: "s1"}: prev},
		analysis: models.QueryAnalysis{Intent: models.IntentRestaurantSearch, Confidence: 0.5, Sticky: true},
	}
	h := newHandler(t, a)

	out, err := h.Execute(context.Background(), &Input{Query: "mai arată-mi", UserID: "u1", SessionID: "s1"})
	require.NoError(t, err)
	assert.Same(t, prev, a.gotPrev)
	assert.True(t, out.Sticky)
	assert.Empty(t, out.Warning)

	_, err = h.Execute(context.Background(), &Input{Query: "mai arată-mi", UserID: "u2", SessionID: "s1"})
	require.NoError(t, err)
	assert.Nil(t, a.gotPrev, "unknown sessions are not created")
}

func TestHandler_Execute_WithEngine(t *testing.T) {
	engine := recommender.New(recommender.Deps{}, recommender.Config{}, logger.NewTestLogger(t))
	h := newHandler(t, engine)

	tests := []struct {
		name        string
		query       string
		wantIntent  models.Intent
		wantCuisine []string
		wantWarning string
	}{
		{
			name:        "italian restaurant",
			query:       "restaurant italian",
			wantIntent:  models.IntentRestaurantSearch,
			wantCuisine: []string{"italian"},
		},
		{
			name:        "gibberish is ambiguous",
			query:       "qwerty zxcvb",
			wantIntent:  models.IntentGeneral,
			wantWarning: "CLASSIFICATION_AMBIGUOUS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), &Input{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.wantIntent, out.Intent)
			assert.Equal(t, tt.wantCuisine, out.Entities[models.EntityCuisine])
			assert.Equal(t, tt.wantWarning, out.Warning)
			assert.NotNil(t, out.AlternativeIntents)
		})
	}
}

func TestHandler_Execute_CancelledContext(t *testing.T) {
	h := newHandler(t, &fakeAnalyzer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Execute(ctx, &Input{Query: "pizza"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternalFault, errors.CodeOf(err))
}
