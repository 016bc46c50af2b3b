package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Strokes/internal/probability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reply struct {
	score float64
	err   error
}

type pendingCall struct {
	stats map[string]float64
	reply chan reply
}

// manualClient hands every call to the test, which answers it whenever it
// likes. Answers are delivered even after the caller cancels, like a slow
// engine that finishes anyway.
type manualClient struct {
	calls chan *pendingCall
}

func newManualClient() *manualClient {
	return &manualClient{calls: make(chan *pendingCall, 16)}
}

func (m *manualClient) ExpectedScore(_ context.Context, stats map[string]float64) (float64, error) {
	c := &pendingCall{stats: stats, reply: make(chan reply, 1)}
	m.calls <- c
	r := <-c.reply
	return r.score, r.err
}

func (m *manualClient) Health(context.Context) error { return nil }

func (m *manualClient) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-m.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for engine call")
		return nil
	}
}

// funcClient answers immediately with fn and counts calls.
type funcClient struct {
	calls atomic.Int64
	fn    func(ctx context.Context, stats map[string]float64) (float64, error)
}

func (f *funcClient) ExpectedScore(ctx context.Context, stats map[string]float64) (float64, error) {
	f.calls.Add(1)
	return f.fn(ctx, stats)
}

func (f *funcClient) Health(context.Context) error { return nil }

func constantClient(score float64) *funcClient {
	return &funcClient{fn: func(context.Context, map[string]float64) (float64, error) { return score, nil }}
}

func scoreOf(t *testing.T, st ScoreState) float64 {
	t.Helper()
	require.NotNil(t, st.ExpectedScore)
	return *st.ExpectedScore
}

func TestScoreTracker_AppliesLatestResponse(t *testing.T) {
	client := newManualClient()
	tr := NewScoreTracker(client, 0, discardLogger(), nil)

	seq := tr.Request(probability.Vector{"a": 0.5})
	assert.Equal(t, uint64(1), seq)
	assert.True(t, tr.State().Pending)
	assert.Nil(t, tr.State().ExpectedScore)

	call := client.next(t)
	assert.Equal(t, 0.5, call.stats["a"])
	call.reply <- reply{score: 4.25}

	assert.Eventually(t, func() bool { return !tr.State().Pending }, time.Second, 5*time.Millisecond)
	st := tr.State()
	assert.Equal(t, 4.25, scoreOf(t, st))
	assert.Equal(t, uint64(1), st.Seq)
	assert.False(t, st.Unavailable)
	assert.NotNil(t, st.UpdatedAt)
	tr.Close()
}

func TestScoreTracker_DiscardsStaleResponses(t *testing.T) {
	client := newManualClient()
	tr := NewScoreTracker(client, 0, discardLogger(), nil)

	tr.Request(probability.Vector{"a": 0.1})
	first := client.next(t)
	tr.Request(probability.Vector{"a": 0.2})
	second := client.next(t)

	// The newer request answers first; the older one arrives late.
	second.reply <- reply{score: 5}
	assert.Eventually(t, func() bool { return !tr.State().Pending }, time.Second, 5*time.Millisecond)
	first.reply <- reply{score: 9}

	tr.Close()
	st := tr.State()
	assert.Equal(t, 5.0, scoreOf(t, st))
	assert.Equal(t, uint64(2), st.Seq)
	assert.Equal(t, uint64(2), st.LatestSeq)
}

func TestScoreTracker_OlderResponseNeverOverwritesNewer(t *testing.T) {
	client := newManualClient()
	tr := NewScoreTracker(client, 0, discardLogger(), nil)

	tr.Request(probability.Vector{"a": 0.1})
	first := client.next(t)
	tr.Request(probability.Vector{"a": 0.2})
	second := client.next(t)

	// Older answer lands first and is dropped; state stays pending until the
	// newest answer arrives.
	first.reply <- reply{score: 9}
	time.Sleep(20 * time.Millisecond)
	st := tr.State()
	assert.Nil(t, st.ExpectedScore)
	assert.True(t, st.Pending)

	second.reply <- reply{score: 5}
	assert.Eventually(t, func() bool { return !tr.State().Pending }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 5.0, scoreOf(t, tr.State()))
	tr.Close()
}

func TestScoreTracker_FailureKeepsLastScore(t *testing.T) {
	client := newManualClient()
	tr := NewScoreTracker(client, 0, discardLogger(), nil)
	defer tr.Close()

	tr.Request(probability.Vector{"a": 0.1})
	client.next(t).reply <- reply{score: 4}
	assert.Eventually(t, func() bool { return !tr.State().Pending }, time.Second, 5*time.Millisecond)

	tr.Request(probability.Vector{"a": 0.2})
	client.next(t).reply <- reply{err: errors.New("engine down")}
	assert.Eventually(t, func() bool { return tr.State().Unavailable }, time.Second, 5*time.Millisecond)

	st := tr.State()
	assert.Equal(t, 4.0, scoreOf(t, st))
	assert.Equal(t, uint64(1), st.Seq)
	assert.False(t, st.Pending)
	assert.Equal(t, "engine down", st.LastError)

	tr.Request(probability.Vector{"a": 0.3})
	client.next(t).reply <- reply{score: 3.5}
	assert.Eventually(t, func() bool { return !tr.State().Unavailable }, time.Second, 5*time.Millisecond)
	st = tr.State()
	assert.Equal(t, 3.5, scoreOf(t, st))
	assert.Empty(t, st.LastError)
}

func TestScoreTracker_DebounceCollapsesBursts(t *testing.T) {
	client := constantClient(4.5)
	tr := NewScoreTracker(client, 50*time.Millisecond, discardLogger(), nil)
	defer tr.Close()

	var last uint64
	for i := 0; i < 5; i++ {
		last = tr.Request(probability.Vector{"a": float64(i) / 10})
	}
	assert.Equal(t, uint64(5), last)

	assert.Eventually(t, func() bool { return !tr.State().Pending }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), client.calls.Load())
	assert.Equal(t, uint64(5), tr.State().Seq)
}

func TestScoreTracker_NewRequestCancelsInFlight(t *testing.T) {
	started := make(chan struct{}, 4)
	var cancelled atomic.Int64
	client := &funcClient{fn: func(ctx context.Context, stats map[string]float64) (float64, error) {
		if stats["a"] == 0.9 {
			return 2, nil
		}
		started <- struct{}{}
		<-ctx.Done()
		cancelled.Add(1)
		return 0, ctx.Err()
	}}
	tr := NewScoreTracker(client, 0, discardLogger(), nil)
	defer tr.Close()

	tr.Request(probability.Vector{"a": 0.1})
	<-started
	tr.Request(probability.Vector{"a": 0.9})

	assert.Eventually(t, func() bool { return !tr.State().Pending }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return cancelled.Load() == 1 }, time.Second, 5*time.Millisecond)
	st := tr.State()
	assert.Equal(t, 2.0, scoreOf(t, st))
	assert.False(t, st.Unavailable)
}

func TestScoreTracker_OnApplied(t *testing.T) {
	var mu sync.Mutex
	var got []float64
	tr := NewScoreTracker(constantClient(3.75), 0, discardLogger(), func(seq uint64, score float64) {
		mu.Lock()
		got = append(got, score)
		mu.Unlock()
	})
	defer tr.Close()

	tr.Request(probability.Vector{"a": 1})
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []float64{3.75}, got)
}

func TestScoreTracker_CloseCancelsAndIgnoresLaterRequests(t *testing.T) {
	client := &funcClient{fn: func(ctx context.Context, _ map[string]float64) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}}
	tr := NewScoreTracker(client, 0, discardLogger(), nil)

	tr.Request(probability.Vector{"a": 0.1})
	tr.Close()

	st := tr.State()
	assert.Nil(t, st.ExpectedScore)
	assert.False(t, st.Unavailable)

	assert.Equal(t, uint64(1), tr.Request(probability.Vector{"a": 0.2}))
}

func TestScoreTracker_StaleAnswerDuringRequestBurst(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := &funcClient{fn: func(_ context.Context, stats map[string]float64) (float64, error) {
		if stats["a"] == 0.1 {
			close(started)
			<-release
			return 9, nil
		}
		return 1, nil
	}}
	tr := NewScoreTracker(client, 0, discardLogger(), nil)

	tr.Request(probability.Vector{"a": 0.1})
	<-started
	tr.Request(probability.Vector{"a": 0.2})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		close(release)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			tr.Request(probability.Vector{"a": 0.5})
		}
	}()
	for i := 0; i < 100; i++ {
		tr.Request(probability.Vector{"a": 0.5})
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return !tr.State().Pending }, 2*time.Second, 5*time.Millisecond)
	tr.Close()
	st := tr.State()
	assert.Equal(t, uint64(202), st.LatestSeq)
	assert.Equal(t, uint64(202), st.Seq)
	assert.Equal(t, 1.0, scoreOf(t, st))
}

func TestScoreTracker_ReleasesContextAfterApply(t *testing.T) {
	seen := make(chan context.Context, 1)
	client := &funcClient{fn: func(ctx context.Context, _ map[string]float64) (float64, error) {
		seen <- ctx
		return 4, nil
	}}
	tr := NewScoreTracker(client, 0, discardLogger(), nil)
	defer tr.Close()

	tr.Request(probability.Vector{"a": 0.1})
	ctx := <-seen
	assert.Eventually(t, func() bool { return !tr.State().Pending }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 4.0, scoreOf(t, tr.State()))
	assert.Eventually(t, func() bool { return ctx.Err() != nil }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
