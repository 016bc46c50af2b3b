package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Strokes/internal/probability"
	"github.com/MikeSquared-Agency/Strokes/internal/profile"
)

// Session is one user's in-memory editing state. Edits are serialized by mu so
// each edit, and the score request it issues, completes before the next.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu         sync.Mutex
	archetype  profile.Archetype
	editor     *probability.Editor
	lastActive time.Time
	tracker    *ScoreTracker
}

type Snapshot struct {
	ID         uuid.UUID          `json:"session_id"`
	Archetype  profile.Archetype  `json:"archetype"`
	Values     probability.Vector `json:"values"`
	GroupSums  map[string]float64 `json:"group_sums"`
	Score      ScoreState         `json:"score"`
	CreatedAt  time.Time          `json:"created_at"`
	LastActive time.Time          `json:"last_active"`
}

// EditResult describes one applied edit.
type EditResult struct {
	Key     string             `json:"key"`
	Value   float64            `json:"value"`
	Group   string             `json:"group,omitempty"`
	Branch  probability.Branch `json:"branch"`
	Seq     uint64             `json:"seq"`
	Session Snapshot           `json:"session"`
}

func (s *Session) setValue(key string, value float64, now time.Time) (EditResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.editor.SetValue(key, value)
	if err != nil {
		return EditResult{}, err
	}
	s.lastActive = now
	seq := s.tracker.Request(s.editor.Values())
	return EditResult{
		Key:     key,
		Value:   res.Value,
		Group:   res.Group,
		Branch:  res.Branch,
		Seq:     seq,
		Session: s.snapshotLocked(),
	}, nil
}

func (s *Session) loadPreset(a profile.Archetype, baseline probability.Vector, now time.Time) (uint64, Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editor.Reset(baseline); err != nil {
		return 0, Snapshot{}, err
	}
	s.archetype = a
	s.lastActive = now
	seq := s.tracker.Request(s.editor.Values())
	return seq, s.snapshotLocked(), nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Values returns a copy of the current vector.
func (s *Session) Values() probability.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Values()
}

// Score returns the current score view.
func (s *Session) Score() ScoreState { return s.tracker.State() }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:         s.ID,
		Archetype:  s.archetype,
		Values:     s.editor.Values(),
		GroupSums:  s.editor.Sums(),
		Score:      s.tracker.State(),
		CreatedAt:  s.CreatedAt,
		LastActive: s.lastActive,
	}
}
