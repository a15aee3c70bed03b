package wayland

import (
	"errors"
	"fmt"

	"github.com/loqalabs/loqa-ime/internal/ime"
	"github.com/loqalabs/loqa-ime/internal/wayland/imv2"
)

// MaxMessageSize is the largest request libwayland compositors accept.
const MaxMessageSize = 4096

// ErrMessageTooLarge is returned for a request that would not fit in one message.
var ErrMessageTooLarge = errors.New("wayland message too large")

// InputMethod forwards zwp_input_method_v2 events to a listener as ime events.
type InputMethod struct {
	proxy    *imv2.InputMethod
	listener func(ime.Event)
}

// GetInputMethod requests the input method for the bootstrapped seat.
func (d *Display) GetInputMethod(b Bootstrap) (*InputMethod, error) {
	proxy, err := b.Manager.GetInputMethod(b.Seat)
	if err != nil {
		return nil, fmt.Errorf("get input method: %w", err)
	}
	im := &InputMethod{proxy: proxy}
	proxy.SetActivateHandler(func(imv2.InputMethodActivateEvent) { im.emit(ime.Activate{}) })
	proxy.SetDeactivateHandler(func(imv2.InputMethodDeactivateEvent) { im.emit(ime.Deactivate{}) })
	proxy.SetSurroundingTextHandler(func(e imv2.InputMethodSurroundingTextEvent) {
		im.emit(ime.SurroundingText{Text: e.Text, Cursor: e.Cursor, Anchor: e.Anchor})
	})
	proxy.SetTextChangeCauseHandler(func(e imv2.InputMethodTextChangeCauseEvent) {
		im.emit(ime.TextChangeCause{Cause: e.Cause})
	})
	proxy.SetContentTypeHandler(func(e imv2.InputMethodContentTypeEvent) {
		im.emit(ime.ContentType{Hint: e.Hint, Purpose: e.Purpose})
	})
	proxy.SetDoneHandler(func(imv2.InputMethodDoneEvent) { im.emit(ime.Done{}) })
	proxy.SetUnavailableHandler(func(imv2.InputMethodUnavailableEvent) { im.emit(ime.Unavailable{}) })
	return im, nil
}

// SetListener installs the event callback. Events arriving without a
// listener are dropped.
func (im *InputMethod) SetListener(fn func(ime.Event)) {
	im.listener = fn
}

func (im *InputMethod) emit(ev ime.Event) {
	if im.listener != nil {
		im.listener(ev)
	}
}

// CommitString queues text for the next Commit. Text that does not fit in
// one protocol message is rejected before anything is written.
func (im *InputMethod) CommitString(text string) error {
	if size := imv2.CommitStringRequestSize(text); size > MaxMessageSize {
		return fmt.Errorf("%w: commit_string of %d bytes exceeds %d", ErrMessageTooLarge, size, MaxMessageSize)
	}
	return im.proxy.CommitString(text)
}

func (im *InputMethod) Commit(serial uint32) error {
	return im.proxy.Commit(serial)
}

func (im *InputMethod) Destroy() error {
	return im.proxy.Destroy()
}
