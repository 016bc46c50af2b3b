package hermes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingClient struct {
	subjects []string
	err      error
}

func (r *recordingClient) Publish(_ context.Context, subject string, _ interface{}) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}
func (r *recordingClient) Close() {}

func TestEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("publishes", func(t *testing.T) {
		rc := &recordingClient{}
		NewEmitter(rc, logger).Emit(context.Background(), SubjectSessionScored("abc"), SessionScoredEvent{SessionID: "abc"})
		assert.Equal(t, []string{"strokes.session.abc.scored"}, rc.subjects)
	})

	t.Run("swallows errors", func(t *testing.T) {
		rc := &recordingClient{err: errors.New("no responders")}
		NewEmitter(rc, logger).Emit(context.Background(), SubjectSessionClosed("abc"), nil)
		assert.Len(t, rc.subjects, 1)
	})

	t.Run("nil client and nil emitter are no-ops", func(t *testing.T) {
		NewEmitter(nil, logger).Emit(context.Background(), SubjectSessionCreated("abc"), nil)
		var e *Emitter
		e.Emit(context.Background(), SubjectSessionCreated("abc"), nil)
	})
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "strokes.session.s1.created", SubjectSessionCreated("s1"))
	assert.Equal(t, "strokes.session.s1.updated", SubjectSessionUpdated("s1"))
	assert.Equal(t, "strokes.session.s1.analyzed", SubjectSessionAnalyzed("s1"))
}
