package resetsession

import (
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-recommender/internal/common/config"
	"venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/logger"
	"venue-recommender/internal/conversation"
	"venue-recommender/internal/models"
)

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "chat-end",
		ElementId:          "Activity_ResetSession",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

type memoryResetter struct {
	memory *conversation.Memory
}

func (m memoryResetter) ResetSession(userID, sessionID string) bool {
	return m.memory.Reset(models.SessionKey{UserID: userID, SessionID: sessionID})
}

func TestHandler_ParseInput(t *testing.T) {
	h := NewHandler(LoadConfig(config.WorkerConfig{}), memoryResetter{conversation.NewMemory(conversation.Config{})}, logger.NewTestLogger(t))

	_, err := h.parseInput(createMockJob(1, map[string]interface{}{"userId": "u1", "sessionId": "s1"}))
	assert.NoError(t, err)

	_, err = h.parseInput(createMockJob(1, map[string]interface{}{"sessionId": "s1"}))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidTurnInput, errors.CodeOf(err))
}

func TestHandler_Execute(t *testing.T) {
	memory := conversation.NewMemory(conversation.Config{})
	key := models.SessionKey{UserID: "u1", SessionID: "s1"}
	memory.GetOrCreate(key)
	h := NewHandler(LoadConfig(config.WorkerConfig{}), memoryResetter{memory}, logger.NewTestLogger(t))

	out := h.Execute(&Input{UserID: "u1", SessionID: "s1"})
	assert.True(t, out.SessionReset)
	assert.Zero(t, memory.Len())

	again := h.Execute(&Input{UserID: "u1", SessionID: "s1"})
	assert.False(t, again.SessionReset, "reset is idempotent")
}
