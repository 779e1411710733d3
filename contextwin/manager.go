package contextwin

import (
	"context"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"winnow/common"
	"winnow/editlog"
	"winnow/logger"
	"winnow/store"
	"winnow/tokens"
)

// Manager prepares one task's conversation history for submission. It owns
// the task's live edit log; the raw history is owned by the caller and read
// only. A manager is not safe for concurrent use: the caller serializes
// Process/Rollback per task id, and managers for different tasks share no
// mutable state.
type Manager struct {
	taskId    string
	store     store.Store
	counter   tokens.Counter
	estimator tokens.Estimator
	config    common.ContextConfig
	model     *common.ModelInfo
	editLog   *editlog.EditLog
	loaded    bool
	// warnedMissingModel gates the missing-model warning to once per model
	// change rather than once per Process call
	warnedMissingModel bool
	now                func() time.Time
	logger             zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithCounter overrides the token counter (default: heuristic chars-based).
func WithCounter(counter tokens.Counter) Option {
	return func(m *Manager) {
		m.counter = counter
	}
}

// WithConfig overrides the context tunables (default: built-in defaults).
func WithConfig(config common.ContextConfig) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// WithModel sets the initial model descriptor.
func WithModel(model *common.ModelInfo) Option {
	return func(m *Manager) {
		m.model = model
	}
}

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager for the given task. An empty taskId gets a
// generated one, giving ad-hoc callers isolated persistence.
func NewManager(taskId string, editStore store.Store, opts ...Option) *Manager {
	if taskId == "" {
		taskId = ksuid.New().String()
	}
	m := &Manager{
		taskId:  taskId,
		store:   editStore,
		config:  common.DefaultContextConfig(),
		editLog: editlog.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.estimator = tokens.NewEstimator(m.counter, m.config.ImageTokens)
	m.logger = logger.Get().With().Str("taskId", taskId).Logger()
	return m
}

// TaskId returns the task id this manager persists under.
func (m *Manager) TaskId() string {
	return m.taskId
}

// ProcessResult is what one preparation pass produced.
type ProcessResult struct {
	// History is the prepared history, ready for submission.
	History []common.Message
	// Log is the live edit log after the pass.
	Log *editlog.EditLog
	// TokensUsed is the estimated size of the prepared history.
	TokensUsed int
	// WasTruncated reports whether this pass evicted messages (or wanted
	// to but the history was too short).
	WasTruncated bool
}

// Process prepares the raw history for the next request. It elides
// duplicate file reads, applies the edit log, truncates middle turns when
// the previous request overflowed the budget, and persists the log if it
// changed. Elision runs before the truncation decision, but truncation
// still triggers on the previous request's measured tokens: savings from
// this pass's elision only avert a truncation on a later turn.
//
// Process never fails: at worst the raw history is returned untouched.
func (m *Manager) Process(ctx context.Context, history []common.Message, prevRequestTokens int) ProcessResult {
	m.ensureLoaded(ctx)

	candidate := Elide(history, m.editLog, m.now())
	optimized := Apply(history, candidate)

	info := ContextWindowInfo(m.model)
	if m.model == nil || m.model.ContextWindow == 0 {
		if !m.warnedMissingModel {
			m.logger.Warn().Int("contextWindow", info.ContextWindow).Msg("no model info available, assuming default context window")
			m.warnedMissingModel = true
		}
	}

	budget := info.MaxAllowedSize - m.config.ReservedResponseTokens - m.config.TokenBuffer
	if budget <= 0 {
		m.logger.Error().
			Int("maxAllowedSize", info.MaxAllowedSize).
			Int("reservedResponseTokens", m.config.ReservedResponseTokens).
			Int("tokenBuffer", m.config.TokenBuffer).
			Msg("effective budget is not positive, returning history unmodified")
		return ProcessResult{
			History:    history,
			Log:        m.editLog,
			TokensUsed: m.estimator.History(history),
		}
	}

	result := Truncate(optimized, candidate, budget, prevRequestTokens, m.config.TruncationFraction, m.now())
	prepared := Apply(result.History, result.Log)
	tokensUsed := m.estimator.History(prepared)

	if !result.Log.Equal(m.editLog) {
		m.editLog = result.Log
		if err := m.store.Save(ctx, m.taskId, m.editLog); err != nil {
			m.logger.Warn().Err(err).Msg("failed to persist edit log")
		}
	}

	return ProcessResult{
		History:      prepared,
		Log:          m.editLog,
		TokensUsed:   tokensUsed,
		WasTruncated: result.WasTruncated,
	}
}

// UpdateModel swaps the model descriptor if it differs structurally from
// the current one.
func (m *Manager) UpdateModel(model *common.ModelInfo) {
	if reflect.DeepEqual(m.model, model) {
		return
	}
	m.model = model
	m.warnedMissingModel = false
	window := 0
	if model != nil {
		window = model.ContextWindow
	}
	m.logger.Info().Int("contextWindow", window).Msg("model updated")
}

// RollbackAtTimestamp rewrites the live log so that every edit recorded
// after instant ts (milliseconds) is removed, restoring the log to the
// state it had at that instant. The log is persisted only if it changed.
func (m *Manager) RollbackAtTimestamp(ctx context.Context, ts int64) {
	m.ensureLoaded(ctx)

	if !m.editLog.TrimAfter(ts) {
		return
	}
	if err := m.store.Save(ctx, m.taskId, m.editLog); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist edit log after rollback")
	}
}

// ensureLoaded lazily loads the persisted edit log on first use. Load
// failures degrade to an empty log so preparation can proceed.
func (m *Manager) ensureLoaded(ctx context.Context) {
	if m.loaded {
		return
	}
	m.loaded = true

	loaded, err := m.store.Load(ctx, m.taskId)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to load edit log, starting empty")
		return
	}
	m.editLog = loaded
}
