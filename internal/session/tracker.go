package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/Strokes/internal/metrics"
	"github.com/MikeSquared-Agency/Strokes/internal/probability"
	"github.com/MikeSquared-Agency/Strokes/internal/simulator"
)

// ScoreState is what a caller shows for the expected score.
type ScoreState struct {
	// ExpectedScore is nil until the first successful response.
	ExpectedScore *float64   `json:"expected_score"`
	Seq           uint64     `json:"seq"`
	LatestSeq     uint64     `json:"latest_seq"`
	Pending       bool       `json:"pending"`
	Unavailable   bool       `json:"unavailable"`
	LastError     string     `json:"last_error,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// ScoreTracker issues score requests for successive vectors and keeps only the
// answer to the newest one. Every request gets a sequence number; issuing a
// new request cancels the one in flight, and a response is applied only if
// its sequence number is still the latest issued.
type ScoreTracker struct {
	client    simulator.Client
	debounce  time.Duration
	logger    *slog.Logger
	onApplied func(seq uint64, score float64)

	mu      sync.Mutex
	latest  uint64
	settled uint64
	cancel  context.CancelFunc
	state   ScoreState
	closed  bool
	wg      sync.WaitGroup
}

func NewScoreTracker(client simulator.Client, debounce time.Duration, logger *slog.Logger, onApplied func(seq uint64, score float64)) *ScoreTracker {
	return &ScoreTracker{
		client:    client,
		debounce:  debounce,
		logger:    logger,
		onApplied: onApplied,
	}
}

// Request schedules a score computation for stats and returns its sequence
// number. It never blocks on the engine.
func (t *ScoreTracker) Request(stats probability.Vector) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return t.latest
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.latest++
	seq := t.latest
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.wg.Add(1)
	go t.run(ctx, cancel, seq, stats.Clone())
	return seq
}

func (t *ScoreTracker) run(ctx context.Context, cancel context.CancelFunc, seq uint64, stats probability.Vector) {
	defer t.wg.Done()
	defer cancel()

	if t.debounce > 0 {
		timer := time.NewTimer(t.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			metrics.ScoreRequests.WithLabelValues("cancelled").Inc()
			return
		case <-timer.C:
		}
	}

	score, err := t.client.ExpectedScore(ctx, stats)

	t.mu.Lock()
	if latest := t.latest; seq != latest {
		t.mu.Unlock()
		metrics.ScoreRequests.WithLabelValues("stale").Inc()
		t.logger.Debug("discarding stale score", "seq", seq, "latest", latest)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && t.closed {
			t.mu.Unlock()
			metrics.ScoreRequests.WithLabelValues("cancelled").Inc()
			return
		}
		t.settled = seq
		t.state.Unavailable = true
		t.state.LastError = err.Error()
		t.mu.Unlock()
		metrics.ScoreRequests.WithLabelValues("failed").Inc()
		t.logger.Warn("score engine unavailable, keeping last score", "seq", seq, "error", err)
		return
	}
	now := time.Now()
	t.settled = seq
	t.state.ExpectedScore = &score
	t.state.Seq = seq
	t.state.Unavailable = false
	t.state.LastError = ""
	t.state.UpdatedAt = &now
	t.cancel = nil
	onApplied := t.onApplied
	t.mu.Unlock()

	metrics.ScoreRequests.WithLabelValues("applied").Inc()
	if onApplied != nil {
		onApplied(seq, score)
	}
}

// State returns the current score view.
func (t *ScoreTracker) State() ScoreState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state
	if st.ExpectedScore != nil {
		v := *st.ExpectedScore
		st.ExpectedScore = &v
	}
	if st.UpdatedAt != nil {
		ts := *st.UpdatedAt
		st.UpdatedAt = &ts
	}
	st.LatestSeq = t.latest
	st.Pending = t.settled < t.latest
	return st
}

// Close cancels any request in flight and waits for it to finish. Later
// Requests are ignored.
func (t *ScoreTracker) Close() {
	t.mu.Lock()
	t.closed = true
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()
	t.wg.Wait()
}
