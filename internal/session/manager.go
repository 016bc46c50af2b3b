package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Strokes/internal/hermes"
	"github.com/MikeSquared-Agency/Strokes/internal/metrics"
	"github.com/MikeSquared-Agency/Strokes/internal/probability"
	"github.com/MikeSquared-Agency/Strokes/internal/profile"
	"github.com/MikeSquared-Agency/Strokes/internal/simulator"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrUnknownArchetype = errors.New("unknown archetype")
)

type Options struct {
	Debounce      time.Duration
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// Manager owns every live session. Nothing is persisted; a session ends when
// it is deleted or has been idle longer than IdleTimeout.
type Manager struct {
	profile    *profile.Profile
	rebalancer *probability.Rebalancer
	client     simulator.Client
	events     *hermes.Emitter
	opts       Options
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewManager(p *profile.Profile, rb *probability.Rebalancer, client simulator.Client, events *hermes.Emitter, opts Options, logger *slog.Logger) *Manager {
	return &Manager{
		profile:    p,
		rebalancer: rb,
		client:     client,
		events:     events,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[uuid.UUID]*Session),
		stopCh:     make(chan struct{}),
	}
}

func (m *Manager) Profile() *profile.Profile { return m.profile }

func (m *Manager) Rebalancer() *probability.Rebalancer { return m.rebalancer }

func (m *Manager) Client() simulator.Client { return m.client }

func (m *Manager) baseline(a profile.Archetype) (probability.Vector, error) {
	base, ok := m.profile.Baseline(a)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArchetype, a)
	}
	return base, nil
}

// Create starts a session from an archetype's baseline and requests its
// first score.
func (m *Manager) Create(ctx context.Context, a profile.Archetype) (Snapshot, error) {
	base, err := m.baseline(a)
	if err != nil {
		return Snapshot{}, err
	}
	editor, err := probability.NewEditor(m.rebalancer, base)
	if err != nil {
		return Snapshot{}, fmt.Errorf("start editor: %w", err)
	}

	now := m.now()
	s := &Session{
		ID:         uuid.New(),
		CreatedAt:  now,
		archetype:  a,
		editor:     editor,
		lastActive: now,
	}
	id := s.ID
	s.tracker = NewScoreTracker(m.client, m.opts.Debounce, m.logger.With("session_id", id), func(seq uint64, score float64) {
		m.events.Emit(context.Background(), hermes.SubjectSessionScored(id.String()), hermes.SessionScoredEvent{
			SessionID:     id.String(),
			Seq:           seq,
			ExpectedScore: score,
		})
	})

	// The baseline request must take seq 1 before any edit can reach the
	// session through the map.
	s.tracker.Request(editor.Values())

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(count))
	m.logger.Info("session created", "session_id", id, "archetype", a)
	m.events.Emit(ctx, hermes.SubjectSessionCreated(id.String()), hermes.SessionCreatedEvent{
		SessionID: id.String(),
		Archetype: string(a),
		CreatedAt: now,
	})
	return s.Snapshot(), nil
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch(m.now())
	return s, nil
}

// List returns snapshots of every session, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	out := make([]Snapshot, len(all))
	for i, s := range all {
		out[i] = s.Snapshot()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// SetValue applies one edit to a session and schedules a fresh score.
func (m *Manager) SetValue(ctx context.Context, id uuid.UUID, key string, value float64) (EditResult, error) {
	s, err := m.Get(id)
	if err != nil {
		return EditResult{}, err
	}
	res, err := s.setValue(key, value, m.now())
	if err != nil {
		metrics.Edits.WithLabelValues("rejected").Inc()
		return EditResult{}, err
	}
	metrics.Edits.WithLabelValues(string(res.Branch)).Inc()
	m.logger.Debug("value set", "session_id", id, "key", key, "value", res.Value, "branch", res.Branch, "seq", res.Seq)
	m.events.Emit(ctx, hermes.SubjectSessionUpdated(id.String()), hermes.SessionUpdatedEvent{
		SessionID: id.String(),
		Key:       key,
		Value:     res.Value,
		Group:     res.Group,
		Branch:    string(res.Branch),
		Seq:       res.Seq,
	})
	return res, nil
}

// LoadPreset resets a session to an archetype's baseline. The archetype also
// becomes the session's fallback weighting.
func (m *Manager) LoadPreset(ctx context.Context, id uuid.UUID, a profile.Archetype) (Snapshot, error) {
	base, err := m.baseline(a)
	if err != nil {
		return Snapshot{}, err
	}
	s, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	seq, snap, err := s.loadPreset(a, base, m.now())
	if err != nil {
		return Snapshot{}, err
	}
	m.events.Emit(ctx, hermes.SubjectSessionUpdated(id.String()), hermes.SessionUpdatedEvent{
		SessionID: id.String(),
		Archetype: string(a),
		Seq:       seq,
	})
	return snap, nil
}

func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.remove(ctx, id, "deleted")
}

func (m *Manager) remove(ctx context.Context, id uuid.UUID, reason string) error {
	if !m.removeIf(ctx, id, reason, nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// removeIf deletes the session when cond, checked under the map lock, holds.
// A nil cond always holds. It reports whether the session was removed.
func (m *Manager) removeIf(ctx context.Context, id uuid.UUID, reason string, cond func(*Session) bool) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && cond != nil && !cond(s) {
		ok = false
	}
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return false
	}
	metrics.ActiveSessions.Set(float64(count))

	s.tracker.Close()
	m.logger.Info("session closed", "session_id", id, "reason", reason)
	m.events.Emit(ctx, hermes.SubjectSessionClosed(id.String()), hermes.SessionClosedEvent{
		SessionID: id.String(),
		Reason:    reason,
	})
	return true
}

func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.sweepLoop(ctx)
}

// Stop ends the sweeper and closes every remaining session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()

	m.mu.RLock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.remove(context.Background(), id, "shutdown")
	}
}

func (m *Manager) sweepLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep closes sessions idle for longer than IdleTimeout and returns how many
// it closed.
func (m *Manager) sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.opts.IdleTimeout)

	m.mu.RLock()
	var expired []uuid.UUID
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range expired {
		if m.expire(ctx, id, cutoff) {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("swept idle sessions", "count", closed)
	}
	return closed
}

// expire closes the session only if it is still idle past cutoff; a Get
// between the scan and the removal keeps it alive.
func (m *Manager) expire(ctx context.Context, id uuid.UUID, cutoff time.Time) bool {
	return m.removeIf(ctx, id, "idle", func(s *Session) bool {
		return s.idleSince().Before(cutoff)
	})
}
