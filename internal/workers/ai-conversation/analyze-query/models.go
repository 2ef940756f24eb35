package analyzequery

import "venue-recommender/internal/models"

type Input struct {
	Query     string `json:"query"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type Output struct {
	Intent             models.Intent        `json:"intent"`
	Confidence         float64              `json:"confidence"`
	Sticky             bool                 `json:"sticky"`
	Entities           models.Entities      `json:"entities"`
	AlternativeIntents []models.IntentScore `json:"alternativeIntents"`
	Normalized         string               `json:"normalized"`
	Tokens             []string             `json:"tokens"`
	Warning            string               `json:"warning,omitempty"`
}

func inputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"query"},
		"properties": map[string]interface{}{
			"query":     map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 1000},
			"userId":    map[string]interface{}{"type": "string", "maxLength": 200},
			"sessionId": map[string]interface{}{"type": "string", "maxLength": 200},
		},
	}
}
