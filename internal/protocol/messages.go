package protocol

import "time"

// Transcript is published on the bus after text was committed to the focused field.
type Transcript struct {
	CaptureID  string    `json:"capture_id"`
	Serial     uint32    `json:"serial"`
	Text       string    `json:"text"`
	Engine     string    `json:"engine"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

const (
	SubjectTranscriptCommitted = "ime.transcript.committed"
)
