package processchatturn

import "venue-recommender/internal/models"

type Input struct {
	Query     string `json:"query"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"`
}

type Output struct {
	TurnID           string                  `json:"turnId"`
	SessionID        string                  `json:"sessionId"`
	ResponseText     string                  `json:"responseText"`
	Intent           models.Intent           `json:"intent"`
	Confidence       float64                 `json:"confidence"`
	Entities         models.Entities         `json:"entities"`
	Recommendations  []models.Recommendation `json:"recommendations"`
	FollowUpHints    []string                `json:"followUpHints"`
	CacheHit         bool                    `json:"cacheHit"`
	ProcessingTimeMs int64                   `json:"processingTimeMs"`
	Degraded         bool                    `json:"degraded"`
	ErrorCode        string                  `json:"errorCode,omitempty"`
}

func inputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"query", "userId"},
		"properties": map[string]interface{}{
			"query":     map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 1000},
			"userId":    map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 200},
			"sessionId": map[string]interface{}{"type": "string", "maxLength": 200},
		},
	}
}
