// Package wayland connects to the compositor through go-wayland and exposes
// the registry bootstrap and the input-method object the session drives.
package wayland

import (
	"errors"
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// ErrProtocol matches every *ProtocolError.
var ErrProtocol = errors.New("wayland protocol error")

// ProtocolError is a fatal error reported by the compositor.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wayland protocol error on object %d (code %d): %s", e.ObjectID, e.Code, e.Message)
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// Display is a connection to the compositor. All methods except Close must
// be called from one goroutine.
type Display struct {
	display *client.Display
	err     error
}

// Connect opens $XDG_RUNTIME_DIR/$WAYLAND_DISPLAY (default wayland-0).
func Connect() (*Display, error) {
	display, err := client.Connect("")
	if err != nil {
		return nil, fmt.Errorf("connect to wayland display: %w", err)
	}
	d := &Display{display: display}
	display.SetErrorHandler(d.handleError)
	return d, nil
}

func (d *Display) handleError(e client.DisplayErrorEvent) {
	if d.err != nil {
		return
	}
	perr := &ProtocolError{Code: e.Code, Message: e.Message}
	if e.ObjectId != nil {
		perr.ObjectID = e.ObjectId.ID()
	}
	d.err = perr
}

func (d *Display) context() *client.Context {
	return d.display.Context()
}

// Close releases the connection. It unblocks a pending Dispatch.
func (d *Display) Close() error {
	return d.context().Close()
}

// Dispatch blocks until one event arrives and delivers it. A wl_display
// error is returned as *ProtocolError and stays fatal.
func (d *Display) Dispatch() error {
	if d.err != nil {
		return d.err
	}
	if err := d.context().Dispatch(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return d.err
}

// Roundtrip blocks until the compositor has processed every request sent so far.
func (d *Display) Roundtrip() error {
	cb, err := d.display.Sync()
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	defer cb.Destroy()

	done := false
	cb.SetDoneHandler(func(client.CallbackDoneEvent) { done = true })
	for !done {
		if err := d.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}
