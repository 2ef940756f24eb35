package models

import "time"

// SessionKey identifies one conversation.
type SessionKey struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// String renders the key the way it is stored.
func (k SessionKey) String() string {
	return k.UserID + ":" + k.SessionID
}

// ConversationState tracks where a conversation is in its lifecycle.
type ConversationState string

const (
	ConversationWelcome ConversationState = "welcome"
	ConversationActive  ConversationState = "active"
)

// Turn is one exchanged message.
type Turn struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	Intent    Intent    `json:"intent,omitempty"`
	ResultIDs []ItemKey `json:"resultIds,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationContext is the per-session memory.
type ConversationContext struct {
	Key           SessionKey        `json:"key"`
	History       []Turn            `json:"history"`
	Preferences   map[string]string `json:"preferences"`
	SearchHistory []string          `json:"searchHistory"`
	CurrentIntent Intent            `json:"currentIntent,omitempty"`
	Location      *GeoPoint         `json:"location,omitempty"`
	State         ConversationState `json:"state"`
	CreatedAt     time.Time         `json:"createdAt"`
	LastActivity  time.Time         `json:"lastActivity"`
}

// Clone returns a deep copy so callers can read it without holding a lock.
func (c *ConversationContext) Clone() *ConversationContext {
	if c == nil {
		return nil
	}
	out := *c
	out.History = make([]Turn, len(c.History))
	for i, t := range c.History {
		t.ResultIDs = append([]ItemKey(nil), t.ResultIDs...)
		out.History[i] = t
	}
	out.Preferences = make(map[string]string, len(c.Preferences))
	for k, v := range c.Preferences {
		out.Preferences[k] = v
	}
	out.SearchHistory = append([]string(nil), c.SearchHistory...)
	if c.Location != nil {
		loc := *c.Location
		out.Location = &loc
	}
	return &out
}

// IsExpired reports whether the context has been idle longer than maxIdle.
func (c *ConversationContext) IsExpired(now time.Time, maxIdle time.Duration) bool {
	return maxIdle > 0 && now.Sub(c.LastActivity) > maxIdle
}

// ContextSummary is the read-only projection handed to the retriever and
// response layer.
type ContextSummary struct {
	RecentQueries     []string          `json:"recentQueries"`
	Preferences       map[string]string `json:"preferences"`
	SearchHistory     []string          `json:"searchHistory"`
	CurrentIntent     Intent            `json:"currentIntent,omitempty"`
	ConversationState ConversationState `json:"conversationState"`
	TurnCount         int               `json:"turnCount"`
	LastActivity      time.Time         `json:"lastActivity"`
}
