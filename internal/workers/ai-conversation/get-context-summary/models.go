package getcontextsummary

import "venue-recommender/internal/models"

type Input struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

type Output struct {
	Exists  bool                  `json:"sessionExists"`
	Summary models.ContextSummary `json:"contextSummary"`
}

func sessionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"userId", "sessionId"},
		"properties": map[string]interface{}{
			"userId":    map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 200},
			"sessionId": map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 200},
		},
	}
}
