package hermes

const (
	StreamName   = "STROKES_EVENTS"
	StreamMaxAge = "168h" // 7 days
)

func SubjectSessionCreated(sessionID string) string  { return "strokes.session." + sessionID + ".created" }
func SubjectSessionUpdated(sessionID string) string  { return "strokes.session." + sessionID + ".updated" }
func SubjectSessionScored(sessionID string) string   { return "strokes.session." + sessionID + ".scored" }
func SubjectSessionAnalyzed(sessionID string) string { return "strokes.session." + sessionID + ".analyzed" }
func SubjectSessionClosed(sessionID string) string   { return "strokes.session." + sessionID + ".closed" }
