package retrieverecommendations

import "venue-recommender/internal/models"

type Input struct {
	Query     string `json:"query"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type Output struct {
	Intent          models.Intent           `json:"intent"`
	Entities        models.Entities         `json:"entities"`
	Recommendations []models.Recommendation `json:"recommendations"`
	TotalFound      int                     `json:"totalFound"`
	CacheHit        bool                    `json:"cacheHit"`
	Empty           bool                    `json:"empty"`
}

func inputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"query"},
		"properties": map[string]interface{}{
			"query":     map[string]interface{}{"type": "string", "minLength": 1, "maxLength": 1000},
			"userId":    map[string]interface{}{"type": "string", "maxLength": 200},
			"sessionId": map[string]interface{}{"type": "string", "maxLength": 200},
			"limit":     map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 50},
		},
	}
}
