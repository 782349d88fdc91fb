package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

// ErrSessionNotFound is returned for ids without a live session
var ErrSessionNotFound = errors.New("session not found")

// PresetStore persists watermark settings per owner
type PresetStore interface {
	// GetPreset returns nil and no error when owner has no preset
	GetPreset(ctx context.Context, owner string) (*domain.Preset, error)
	SavePreset(ctx context.Context, owner string, preset domain.Preset) error
}

// SubmissionRecorder keeps the history of issued submissions
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, rec domain.SubmissionRecord) error
	UpdateStatus(ctx context.Context, sessionID string, seq uint64, state domain.RequestState, message string) error
	// LatestSeq returns the highest recorded sequence number of a session, 0 when it has none
	LatestSeq(ctx context.Context, sessionID string) (uint64, error)
}

// OutcomeListener is notified whenever the outcome of any managed session changes
type OutcomeListener func(s *Session, seq uint64, outcome domain.Outcome)

// SessionManager owns the live sessions of a process
type SessionManager struct {
	service domain.WatermarkService
	logger  *zap.Logger
	presets PresetStore
	history SubmissionRecorder

	mu        sync.RWMutex
	sessions  map[string]*Session
	lastSeq   map[string]uint64
	listeners []OutcomeListener
}

// ManagerOption configures optional collaborators of a SessionManager
type ManagerOption func(m *SessionManager)

// WithPresetStore loads and saves presets through p
func WithPresetStore(p PresetStore) ManagerOption {
	return func(m *SessionManager) { m.presets = p }
}

// WithSubmissionRecorder records every submission in r
func WithSubmissionRecorder(r SubmissionRecorder) ManagerOption {
	return func(m *SessionManager) { m.history = r }
}

// NewSessionManager creates a manager whose sessions call svc
func NewSessionManager(svc domain.WatermarkService, logger *zap.Logger, opts ...ManagerOption) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SessionManager{
		service:  svc,
		logger:   logger,
		sessions: make(map[string]*Session),
		lastSeq:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers l for outcome changes of every session
func (m *SessionManager) Subscribe(l OutcomeListener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Create starts a new session with a random id
func (m *SessionManager) Create(ctx context.Context) *Session {
	s, _ := m.GetOrCreate(ctx, uuid.NewString())
	return s
}

// Get returns the session with id
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// GetOrCreate returns the session with id, creating it when needed. A new session
// starts from the owner's saved preset if one exists and continues the sequence of
// earlier sessions with the same id. The second result reports whether the session
// was created.
func (m *SessionManager) GetOrCreate(ctx context.Context, id string) (*Session, bool) {
	if s, err := m.Get(id); err == nil {
		return s, false
	}

	s := NewSession(id, m.service, m.logger, Hooks{
		OnSubmit:  m.onSubmit,
		OnOutcome: m.onOutcome,
	})
	m.applyPreset(ctx, s)
	s.resumeSeq(m.latestSeq(ctx, id))

	// the session is published only once fully set up
	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, false
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("Session created", zap.String("session", id), zap.Uint64("seq", s.Seq()))
	return s, true
}

// latestSeq is the highest sequence number issued for id by earlier sessions
func (m *SessionManager) latestSeq(ctx context.Context, id string) uint64 {
	m.mu.RLock()
	seq := m.lastSeq[id]
	m.mu.RUnlock()

	if m.history == nil {
		return seq
	}
	recorded, err := m.history.LatestSeq(ctx, id)
	if err != nil {
		m.logger.Warn("Failed to load latest seq", zap.String("session", id), zap.Error(err))
		return seq
	}
	return max(seq, recorded)
}

// forget drops s from the registry and remembers its sequence number.
// m.mu must be held.
func (m *SessionManager) forget(s *Session) {
	delete(m.sessions, s.ID())
	if seq := s.Seq(); seq > m.lastSeq[s.ID()] {
		m.lastSeq[s.ID()] = seq
	}
}

func (m *SessionManager) applyPreset(ctx context.Context, s *Session) {
	if m.presets == nil {
		return
	}
	preset, err := m.presets.GetPreset(ctx, s.ID())
	if err != nil {
		m.logger.Warn("Failed to load preset", zap.String("session", s.ID()), zap.Error(err))
		return
	}
	if preset == nil {
		return
	}
	s.SetMode(preset.Mode)
	if err := s.SetTextParams(preset.Text); err != nil {
		m.logger.Warn("Ignoring invalid text preset", zap.String("session", s.ID()), zap.Error(err))
	}
	if err := s.SetCustomParams(preset.Custom); err != nil {
		m.logger.Warn("Ignoring invalid custom preset", zap.String("session", s.ID()), zap.Error(err))
	}
}

// SavePreset stores the current settings of the session with id
func (m *SessionManager) SavePreset(ctx context.Context, id string) error {
	if m.presets == nil {
		return errors.New("preset storage is not configured")
	}
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	snap := s.Snapshot()
	preset := domain.Preset{Mode: snap.Mode, Text: snap.Text, Custom: snap.Custom}
	preset.Custom.Watermark = domain.ImagePayload{}
	if err := m.presets.SavePreset(ctx, id, preset); err != nil {
		return fmt.Errorf("failed to save preset: %w", err)
	}
	return nil
}

// Remove resets and forgets the session with id
func (m *SessionManager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		m.forget(s)
	}
	m.mu.Unlock()
	if ok {
		s.Reset()
	}
	return ok
}

// PruneIdle removes sessions that have been inactive for longer than ttl and are not
// waiting for a response
func (m *SessionManager) PruneIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	var stale []*Session
	for _, s := range m.sessions {
		if s.LastActive().Before(cutoff) && s.Outcome().State != domain.StatePending {
			stale = append(stale, s)
			m.forget(s)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Reset()
	}
	if len(stale) > 0 {
		m.logger.Info("Pruned idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Len returns the number of live sessions
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) onSubmit(s *Session, sub *Submission, mode domain.Mode) {
	if m.history == nil {
		return
	}
	rec := domain.SubmissionRecord{
		SessionID: s.ID(),
		Seq:       sub.Seq(),
		Mode:      mode,
		State:     domain.StatePending,
		CreatedAt: time.Now(),
	}
	if err := m.history.RecordSubmission(context.Background(), rec); err != nil {
		m.logger.Warn("Failed to record submission", zap.String("session", s.ID()), zap.Error(err))
	}
}

func (m *SessionManager) onOutcome(s *Session, seq uint64, outcome domain.Outcome) {
	if m.history != nil && outcome.Terminal() {
		if err := m.history.UpdateStatus(context.Background(), s.ID(), seq, outcome.State, outcome.Message); err != nil {
			m.logger.Warn("Failed to update submission status", zap.String("session", s.ID()), zap.Error(err))
		}
	}

	m.mu.RLock()
	listeners := append([]OutcomeListener(nil), m.listeners...)
	m.mu.RUnlock()
	for _, l := range listeners {
		l(s, seq, outcome)
	}
}
