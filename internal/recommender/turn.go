package recommender

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "venue-recommender/internal/common/errors"
	"venue-recommender/internal/common/metrics"
	"venue-recommender/internal/models"
	"venue-recommender/internal/retrieval"
)

// turn carries one ProcessTurn call through its states.
type turn struct {
	id       string
	key      models.SessionKey
	query    string
	start    time.Time
	span     trace.Span
	state    models.TurnState
	lookedUp bool
}

func (t *turn) enter(state models.TurnState) {
	t.state = state
	t.span.AddEvent(string(state))
}

// ProcessTurn runs one conversation turn:
//
//	received → normalized → classified → extracted → cache_checked →
//	{cache_hit | retrieving} → context_updated → delivered
//
// It always reaches delivered. A failure or panic in any step yields the
// degraded result: intent error, no recommendations, confidence 0.
func (e *Engine) ProcessTurn(ctx context.Context, query, userID, sessionID string) (res models.TurnResult) {
	ctx, span := e.obs.StartSpan(ctx, "recommender.ProcessTurn",
		attribute.String("user.id", userID),
		attribute.String("session.id", sessionID),
	)
	defer span.End()

	t := &turn{
		id:    e.newID(),
		key:   models.SessionKey{UserID: userID, SessionID: sessionID},
		query: query,
		start: e.now(),
		span:  span,
	}
	t.enter(models.StateReceived)

	defer func() {
		if p := recover(); p != nil {
			fault := apperrors.NewInternalFaultError(string(t.state), p)
			e.log.Error("Turn panicked, returning degraded response", map[string]interface{}{
				"turnId": t.id,
				"state":  string(t.state),
				"panic":  fmt.Sprint(p),
				"stack":  string(debug.Stack()),
			})
			res = e.degraded(t, fault)
		}
		t.enter(models.StateDelivered)
		res.FinalState = models.StateDelivered
		e.finish(ctx, t, res)
	}()

	out, err := e.process(ctx, t)
	if err != nil {
		e.log.Warn("Turn failed, returning degraded response", map[string]interface{}{
			"turnId": t.id,
			"state":  string(t.state),
			"error":  err,
		})
		return e.degraded(t, apperrors.NewInternalFaultError(string(t.state), err))
	}
	return out
}

func (e *Engine) process(ctx context.Context, t *turn) (models.TurnResult, error) {
	prev := e.memory.GetOrCreate(t.key)
	firstTurn := len(prev.History) == 0

	analysis := e.Analyze(t.query, prev)
	t.enter(models.StateNormalized)
	t.enter(models.StateClassified)
	t.span.SetAttributes(
		attribute.String("intent", string(analysis.Intent)),
		attribute.Float64("confidence", analysis.Confidence),
		attribute.Bool("sticky", analysis.Sticky),
	)
	t.enter(models.StateExtracted)

	results, hit, err := e.Retrieve(ctx, analysis, prev)
	t.lookedUp = len(retrieval.KindsFor(analysis.Intent)) > 0
	t.enter(models.StateCacheChecked)
	if err != nil {
		return models.TurnResult{}, err
	}
	if hit {
		t.enter(models.StateCacheHit)
	} else {
		t.enter(models.StateRetrieving)
	}

	recs := make([]models.Recommendation, 0, len(results))
	ids := make([]models.ItemKey, 0, len(results))
	for _, r := range results {
		recs = append(recs, models.ToRecommendation(r))
		ids = append(ids, models.KeyOf(r.Item))
	}
	text := responseText(analysis.Intent, len(recs))

	e.updateContext(t, analysis, text, ids)
	t.enter(models.StateContextUpdated)

	return models.TurnResult{
		TurnID:          t.id,
		Text:            text,
		Intent:          analysis.Intent,
		Confidence:      analysis.Confidence,
		Entities:        analysis.Entities,
		Recommendations: recs,
		FollowUpHints:   followUpHints(analysis, firstTurn, e.config.MaxFollowUps),
		CacheHit:        hit,
		ProcessingTime:  e.now().Sub(t.start),
	}, nil
}

// updateContext records both sides of the turn and learns single-valued
// preferences.
func (e *Engine) updateContext(t *turn, analysis models.QueryAnalysis, reply string, ids []models.ItemKey) {
	now := e.now()
	e.memory.RecordTurn(t.key, models.Turn{
		ID:        t.id,
		Text:      t.query,
		IsUser:    true,
		Intent:    analysis.Intent,
		Timestamp: now,
	})

	searched := t.query
	if analysis.Intent == models.IntentGreeting {
		searched = ""
	}
	e.memory.RecordSearch(t.key, searched, analysis.Intent)

	patch := map[string]string{}
	for kind, pref := range learnedPreferences {
		if vals := analysis.Entities[kind]; len(vals) == 1 {
			patch[pref] = vals[0]
		}
	}
	e.memory.UpdatePreferences(t.key, patch)

	e.memory.RecordTurn(t.key, models.Turn{
		ID:        t.id + "-reply",
		Text:      reply,
		Intent:    analysis.Intent,
		ResultIDs: ids,
		Timestamp: now,
	})
}

// learnedPreferences maps entity kinds to the preference they update when a
// query names exactly one value.
var learnedPreferences = map[models.EntityKind]string{
	models.EntityCuisine:    retrieval.PreferenceCuisine,
	models.EntityPriceRange: "price_range",
	models.EntityDietary:    "dietary",
}

func (e *Engine) degraded(t *turn, fault *apperrors.StandardError) models.TurnResult {
	t.span.RecordError(fault)
	t.span.SetStatus(codes.Error, fault.Message)
	return models.TurnResult{
		TurnID:          t.id,
		Text:            apologyText,
		Intent:          models.IntentError,
		Confidence:      0,
		Entities:        models.Entities{},
		Recommendations: []models.Recommendation{},
		FollowUpHints:   []string{},
		ProcessingTime:  e.now().Sub(t.start),
		Error:           string(fault.Code),
	}
}

func (e *Engine) finish(ctx context.Context, t *turn, res models.TurnResult) {
	cache := "none"
	switch {
	case res.CacheHit:
		cache = "hit"
	case t.lookedUp:
		cache = "miss"
	}
	metrics.TurnsProcessed.WithLabelValues(string(res.Intent), cache).Inc()
	e.obs.RecordTurn(ctx, string(res.Intent), res.CacheHit, res.ProcessingTime)
	e.observe(res, t.lookedUp && res.Intent != models.IntentError)

	e.log.Info("Turn delivered", map[string]interface{}{
		"turnId":          t.id,
		"session":         t.key.String(),
		"intent":          string(res.Intent),
		"confidence":      res.Confidence,
		"recommendations": len(res.Recommendations),
		"cacheHit":        res.CacheHit,
		"durationMs":      res.ProcessingTime.Milliseconds(),
	})
}
