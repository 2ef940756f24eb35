// Package conversation keeps per-session conversational memory: bounded turn
// history, learned preferences, recent searches and the last resolved intent.
package conversation

import (
	"errors"
	"sync"
	"time"

	"venue-recommender/internal/models"
)

const (
	summaryRecentQueries = 5
	summarySearches      = 10
)

var ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")

type Config struct {
	MaxHistory       int
	MaxSearchHistory int
}

type Option func(*Memory)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.now = now }
}

// Memory is the session store. A single mutex guards every context; all
// operations are short so per-key locking is not worth it. Values handed out
// are deep copies.
type Memory struct {
	mu       sync.Mutex
	contexts map[models.SessionKey]*models.ConversationContext
	config   Config
	now      func() time.Time
}

func NewMemory(config Config, opts ...Option) *Memory {
	if config.MaxHistory <= 0 {
		config.MaxHistory = 50
	}
	if config.MaxSearchHistory <= 0 {
		config.MaxSearchHistory = 20
	}
	m := &Memory{
		contexts: make(map[models.SessionKey]*models.ConversationContext),
		config:   config,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// getOrCreate must be called with mu held.
func (m *Memory) getOrCreate(key models.SessionKey) *models.ConversationContext {
	c, ok := m.contexts[key]
	if ok {
		return c
	}
	now := m.now()
	c = &models.ConversationContext{
		Key:          key,
		History:      []models.Turn{},
		Preferences:  map[string]string{},
		State:        models.ConversationWelcome,
		CreatedAt:    now,
		LastActivity: now,
	}
	m.contexts[key] = c
	return c
}

// GetOrCreate returns a copy of the context for key, creating it lazily.
func (m *Memory) GetOrCreate(key models.SessionKey) *models.ConversationContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreate(key).Clone()
}

// Snapshot returns a copy of an existing context without creating one.
func (m *Memory) Snapshot(key models.SessionKey) (*models.ConversationContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contexts[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c.Clone(), nil
}

// RecordTurn appends a turn and drops the oldest ones beyond MaxHistory.
func (m *Memory) RecordTurn(key models.SessionKey, turn models.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.getOrCreate(key)
	if turn.Timestamp.IsZero() {
		turn.Timestamp = m.now()
	}
	turn.ResultIDs = append([]models.ItemKey(nil), turn.ResultIDs...)
	c.History = append(c.History, turn)
	if over := len(c.History) - m.config.MaxHistory; over > 0 {
		c.History = append([]models.Turn(nil), c.History[over:]...)
	}
	if turn.IsUser {
		c.State = models.ConversationActive
	}
	c.LastActivity = m.now()
}

// UpdatePreferences merges patch into the stored preferences; later writes win.
func (m *Memory) UpdatePreferences(key models.SessionKey, patch map[string]string) {
	if len(patch) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.getOrCreate(key)
	for k, v := range patch {
		c.Preferences[k] = v
	}
	c.LastActivity = m.now()
}

// RecordSearch remembers a resolved query and its intent.
func (m *Memory) RecordSearch(key models.SessionKey, query string, intent models.Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.getOrCreate(key)
	c.CurrentIntent = intent
	if query != "" {
		c.SearchHistory = append(c.SearchHistory, query)
		if over := len(c.SearchHistory) - m.config.MaxSearchHistory; over > 0 {
			c.SearchHistory = append([]string(nil), c.SearchHistory[over:]...)
		}
	}
	c.LastActivity = m.now()
}

func (m *Memory) SetLocation(key models.SessionKey, loc models.GeoPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.getOrCreate(key)
	c.Location = &loc
	c.LastActivity = m.now()
}

// Summarize projects the context for the retriever and response layer. An
// unknown key yields an empty welcome summary.
func (m *Memory) Summarize(key models.SessionKey) models.ContextSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contexts[key]
	if !ok {
		return models.ContextSummary{
			RecentQueries:     []string{},
			Preferences:       map[string]string{},
			SearchHistory:     []string{},
			ConversationState: models.ConversationWelcome,
		}
	}

	var recent []string
	for i := len(c.History) - 1; i >= 0 && len(recent) < summaryRecentQueries; i-- {
		if c.History[i].IsUser {
			recent = append(recent, c.History[i].Text)
		}
	}
	// oldest first
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	searches := c.SearchHistory
	if len(searches) > summarySearches {
		searches = searches[len(searches)-summarySearches:]
	}

	prefs := make(map[string]string, len(c.Preferences))
	for k, v := range c.Preferences {
		prefs[k] = v
	}

	return models.ContextSummary{
		RecentQueries:     append([]string{}, recent...),
		Preferences:       prefs,
		SearchHistory:     append([]string{}, searches...),
		CurrentIntent:     c.CurrentIntent,
		ConversationState: c.State,
		TurnCount:         len(c.History),
		LastActivity:      c.LastActivity,
	}
}

// Reset forgets a session. It reports whether anything was removed.
func (m *Memory) Reset(key models.SessionKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.contexts[key]
	delete(m.contexts, key)
	return ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contexts)
}

// EvictIdle drops contexts idle longer than maxIdle and returns their keys.
func (m *Memory) EvictIdle(maxIdle time.Duration) []models.SessionKey {
	if maxIdle <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var evicted []models.SessionKey
	for key, c := range m.contexts {
		if c.IsExpired(now, maxIdle) {
			evicted = append(evicted, key)
			delete(m.contexts, key)
		}
	}
	return evicted
}
