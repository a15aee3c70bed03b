// Package imv2 holds zwp_input_method_manager_v2 and zwp_input_method_v2
// bindings in the layout go-wayland-scanner emits for
// input-method-unstable-v2.xml. Only the two interfaces the daemon binds are
// kept; request opcodes follow the protocol file so the popup surface and
// keyboard grab requests keep their slots without being bound.
package imv2

import "github.com/rajveermalviya/go-wayland/wayland/client"

const (
	InputMethodManagerInterfaceName = "zwp_input_method_manager_v2"
	InputMethodInterfaceName        = "zwp_input_method_v2"
)

// InputMethodManager : input method manager
//
// The input method manager allows the client to become the input method on
// a chosen seat.
type InputMethodManager struct {
	client.BaseProxy
}

// NewInputMethodManager : input method manager
func NewInputMethodManager(ctx *client.Context) *InputMethodManager {
	zwpInputMethodManagerV2 := &InputMethodManager{}
	ctx.Register(zwpInputMethodManagerV2)
	return zwpInputMethodManagerV2
}

// GetInputMethod : request an input method object
//
// Request a new input zwp_input_method_v2 object associated with a given
// seat.
func (i *InputMethodManager) GetInputMethod(seat *client.Seat) (*InputMethod, error) {
	inputMethod := NewInputMethod(i.Context())
	const opcode = 0
	const _reqBufLen = 8 + 4 + 4
	var _reqBuf [_reqBufLen]byte
	l := 0
	client.PutUint32(_reqBuf[l:4], i.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	client.PutUint32(_reqBuf[l:l+4], seat.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], inputMethod.ID())
	l += 4
	err := i.Context().WriteMsg(_reqBuf[:], nil)
	return inputMethod, err
}

// Destroy : destroy the input method manager
func (i *InputMethodManager) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 1
	const _reqBufLen = 8
	var _reqBuf [_reqBufLen]byte
	l := 0
	client.PutUint32(_reqBuf[l:4], i.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	err := i.Context().WriteMsg(_reqBuf[:], nil)
	return err
}

// InputMethod : input method
//
// An input method object allows for clients to compose text. Events are
// double-buffered and applied on done.
type InputMethod struct {
	client.BaseProxy
	activateHandler        InputMethodActivateHandlerFunc
	deactivateHandler      InputMethodDeactivateHandlerFunc
	surroundingTextHandler InputMethodSurroundingTextHandlerFunc
	textChangeCauseHandler InputMethodTextChangeCauseHandlerFunc
	contentTypeHandler     InputMethodContentTypeHandlerFunc
	doneHandler            InputMethodDoneHandlerFunc
	unavailableHandler     InputMethodUnavailableHandlerFunc
}

// NewInputMethod : input method
func NewInputMethod(ctx *client.Context) *InputMethod {
	zwpInputMethodV2 := &InputMethod{}
	ctx.Register(zwpInputMethodV2)
	return zwpInputMethodV2
}

// CommitStringRequestSize is the encoded size of a commit_string request
// carrying text.
func CommitStringRequestSize(text string) int {
	return 8 + (4 + client.PaddedLen(len(text)+1))
}

// CommitString : commit string
//
// Send the commit string text for insertion to the application. Applied on
// the next commit.
func (i *InputMethod) CommitString(text string) error {
	const opcode = 0
	textLen := client.PaddedLen(len(text) + 1)
	_reqBufLen := 8 + (4 + textLen)
	_reqBuf := make([]byte, _reqBufLen)
	l := 0
	client.PutUint32(_reqBuf[l:4], i.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	client.PutString(_reqBuf[l:l+(4+textLen)], text, textLen)
	l += (4 + textLen)
	err := i.Context().WriteMsg(_reqBuf, nil)
	return err
}

// Commit : apply state
//
// Apply state changes from commit_string, set_preedit_string and
// delete_surrounding_text requests. The serial is the number of done events
// received so far.
func (i *InputMethod) Commit(serial uint32) error {
	const opcode = 3
	const _reqBufLen = 8 + 4
	var _reqBuf [_reqBufLen]byte
	l := 0
	client.PutUint32(_reqBuf[l:4], i.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(serial))
	l += 4
	err := i.Context().WriteMsg(_reqBuf[:], nil)
	return err
}

// Destroy : destroy the text input
func (i *InputMethod) Destroy() error {
	defer i.Context().Unregister(i)
	const opcode = 6
	const _reqBufLen = 8
	var _reqBuf [_reqBufLen]byte
	l := 0
	client.PutUint32(_reqBuf[l:4], i.ID())
	l += 4
	client.PutUint32(_reqBuf[l:l+4], uint32(_reqBufLen<<16|opcode&0x0000ffff))
	l += 4
	err := i.Context().WriteMsg(_reqBuf[:], nil)
	return err
}

// InputMethodActivateEvent : input method has been requested
type InputMethodActivateEvent struct{}
type InputMethodActivateHandlerFunc func(InputMethodActivateEvent)

// SetActivateHandler : sets handler for InputMethodActivateEvent
func (i *InputMethod) SetActivateHandler(f InputMethodActivateHandlerFunc) {
	i.activateHandler = f
}

// InputMethodDeactivateEvent : deactivate event
type InputMethodDeactivateEvent struct{}
type InputMethodDeactivateHandlerFunc func(InputMethodDeactivateEvent)

// SetDeactivateHandler : sets handler for InputMethodDeactivateEvent
func (i *InputMethod) SetDeactivateHandler(f InputMethodDeactivateHandlerFunc) {
	i.deactivateHandler = f
}

// InputMethodSurroundingTextEvent : surrounding text event
type InputMethodSurroundingTextEvent struct {
	Text   string
	Cursor uint32
	Anchor uint32
}
type InputMethodSurroundingTextHandlerFunc func(InputMethodSurroundingTextEvent)

// SetSurroundingTextHandler : sets handler for InputMethodSurroundingTextEvent
func (i *InputMethod) SetSurroundingTextHandler(f InputMethodSurroundingTextHandlerFunc) {
	i.surroundingTextHandler = f
}

// InputMethodTextChangeCauseEvent : indicates the cause of surrounding text change
type InputMethodTextChangeCauseEvent struct {
	Cause uint32
}
type InputMethodTextChangeCauseHandlerFunc func(InputMethodTextChangeCauseEvent)

// SetTextChangeCauseHandler : sets handler for InputMethodTextChangeCauseEvent
func (i *InputMethod) SetTextChangeCauseHandler(f InputMethodTextChangeCauseHandlerFunc) {
	i.textChangeCauseHandler = f
}

// InputMethodContentTypeEvent : content purpose and hint
type InputMethodContentTypeEvent struct {
	Hint    uint32
	Purpose uint32
}
type InputMethodContentTypeHandlerFunc func(InputMethodContentTypeEvent)

// SetContentTypeHandler : sets handler for InputMethodContentTypeEvent
func (i *InputMethod) SetContentTypeHandler(f InputMethodContentTypeHandlerFunc) {
	i.contentTypeHandler = f
}

// InputMethodDoneEvent : apply state
type InputMethodDoneEvent struct{}
type InputMethodDoneHandlerFunc func(InputMethodDoneEvent)

// SetDoneHandler : sets handler for InputMethodDoneEvent
func (i *InputMethod) SetDoneHandler(f InputMethodDoneHandlerFunc) {
	i.doneHandler = f
}

// InputMethodUnavailableEvent : input method unavailable
type InputMethodUnavailableEvent struct{}
type InputMethodUnavailableHandlerFunc func(InputMethodUnavailableEvent)

// SetUnavailableHandler : sets handler for InputMethodUnavailableEvent
func (i *InputMethod) SetUnavailableHandler(f InputMethodUnavailableHandlerFunc) {
	i.unavailableHandler = f
}

func (i *InputMethod) Dispatch(opcode uint32, fd int, data []byte) {
	switch opcode {
	case 0:
		if i.activateHandler == nil {
			return
		}
		var e InputMethodActivateEvent

		i.activateHandler(e)
	case 1:
		if i.deactivateHandler == nil {
			return
		}
		var e InputMethodDeactivateEvent

		i.deactivateHandler(e)
	case 2:
		if i.surroundingTextHandler == nil {
			return
		}
		var e InputMethodSurroundingTextEvent
		l := 0
		textLen := client.PaddedLen(int(client.Uint32(data[l : l+4])))
		l += 4
		e.Text = client.String(data[l : l+textLen])
		l += textLen
		e.Cursor = client.Uint32(data[l : l+4])
		l += 4
		e.Anchor = client.Uint32(data[l : l+4])
		l += 4

		i.surroundingTextHandler(e)
	case 3:
		if i.textChangeCauseHandler == nil {
			return
		}
		var e InputMethodTextChangeCauseEvent
		l := 0
		e.Cause = client.Uint32(data[l : l+4])
		l += 4

		i.textChangeCauseHandler(e)
	case 4:
		if i.contentTypeHandler == nil {
			return
		}
		var e InputMethodContentTypeEvent
		l := 0
		e.Hint = client.Uint32(data[l : l+4])
		l += 4
		e.Purpose = client.Uint32(data[l : l+4])
		l += 4

		i.contentTypeHandler(e)
	case 5:
		if i.doneHandler == nil {
			return
		}
		var e InputMethodDoneEvent

		i.doneHandler(e)
	case 6:
		if i.unavailableHandler == nil {
			return
		}
		var e InputMethodUnavailableEvent

		i.unavailableHandler(e)
	}
}
