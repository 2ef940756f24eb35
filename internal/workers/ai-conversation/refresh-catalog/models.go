package refreshcatalog

type Input struct {
	Reason string `json:"reason,omitempty"`
}

type Output struct {
	Generation uint64            `json:"catalogGeneration"`
	Swapped    bool              `json:"catalogSwapped"`
	Counts     map[string]int    `json:"catalogCounts"`
	Failed     map[string]string `json:"catalogFailed,omitempty"`
	DurationMs int64             `json:"refreshDurationMs"`
}

func inputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"reason": map[string]interface{}{"type": "string", "maxLength": 200},
		},
	}
}
