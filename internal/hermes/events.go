package hermes

import "time"

type SessionCreatedEvent struct {
	SessionID string    `json:"session_id"`
	Archetype string    `json:"archetype"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionUpdatedEvent struct {
	SessionID string  `json:"session_id"`
	Key       string  `json:"key,omitempty"`
	Value     float64 `json:"value"`
	Group     string  `json:"group,omitempty"`
	Branch    string  `json:"branch,omitempty"`
	Archetype string  `json:"archetype,omitempty"`
	Seq       uint64  `json:"seq"`
}

type SessionScoredEvent struct {
	SessionID     string  `json:"session_id"`
	Seq           uint64  `json:"seq"`
	ExpectedScore float64 `json:"expected_score"`
}

type SessionAnalyzedEvent struct {
	SessionID     string  `json:"session_id"`
	StrokesGained float64 `json:"strokes_gained"`
	BiggestGap    string  `json:"biggest_gap,omitempty"`
	StrongestArea string  `json:"strongest_area,omitempty"`
}

type SessionClosedEvent struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}
