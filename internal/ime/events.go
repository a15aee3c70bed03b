package ime

// Event is one input-method protocol event.
type Event interface {
	eventName() string
}

type Activate struct{}

type Deactivate struct{}

// SurroundingText is accepted and ignored.
type SurroundingText struct {
	Text   string
	Cursor uint32
	Anchor uint32
}

// TextChangeCause is accepted and ignored.
type TextChangeCause struct {
	Cause uint32
}

// ContentType describes the focused field. It is remembered but never used
// to shape recognition.
type ContentType struct {
	Hint    uint32
	Purpose uint32
}

// Done closes a batch of events and commits the pending state.
type Done struct{}

// Unavailable means another input method holds the seat; it is terminal.
type Unavailable struct{}

func (Activate) eventName() string        { return "activate" }
func (Deactivate) eventName() string      { return "deactivate" }
func (SurroundingText) eventName() string { return "surrounding_text" }
func (TextChangeCause) eventName() string { return "text_change_cause" }
func (ContentType) eventName() string     { return "content_type" }
func (Done) eventName() string            { return "done" }
func (Unavailable) eventName() string     { return "unavailable" }
