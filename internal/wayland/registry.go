package wayland

import (
	"errors"
	"fmt"

	"github.com/loqalabs/loqa-ime/internal/wayland/imv2"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

const (
	InterfaceSeat               = "wl_seat"
	InterfaceInputMethodManager = imv2.InputMethodManagerInterfaceName
)

// ErrMissingCapability matches every *MissingCapabilityError.
var ErrMissingCapability = errors.New("missing capability")

// MissingCapabilityError names the global the compositor did not advertise.
type MissingCapabilityError struct {
	Capability string // "seat" or "manager"
	Interface  string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("missing capability %s: compositor does not advertise %s", e.Capability, e.Interface)
}

func (e *MissingCapabilityError) Is(target error) bool { return target == ErrMissingCapability }

// Global is one advertised compositor capability.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Bootstrap holds the objects bound during discovery.
type Bootstrap struct {
	Seat    *client.Seat
	Manager *imv2.InputMethodManager
	Globals []Global
}

func find(globals []Global, iface string) (Global, bool) {
	for _, g := range globals {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// Bootstrap enumerates globals with one roundtrip and binds the first seat
// and the input-method manager at version 1. It does not retry.
func (d *Display) Bootstrap() (Bootstrap, error) {
	reg, err := d.display.GetRegistry()
	if err != nil {
		return Bootstrap{}, fmt.Errorf("get registry: %w", err)
	}
	var globals []Global
	reg.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		globals = append(globals, Global{Name: e.Name, Interface: e.Interface, Version: e.Version})
	})
	reg.SetGlobalRemoveHandler(func(e client.RegistryGlobalRemoveEvent) {
		for i, g := range globals {
			if g.Name == e.Name {
				globals = append(globals[:i], globals[i+1:]...)
				break
			}
		}
	})
	if err := d.Roundtrip(); err != nil {
		return Bootstrap{}, fmt.Errorf("registry roundtrip: %w", err)
	}

	seatGlobal, ok := find(globals, InterfaceSeat)
	if !ok {
		return Bootstrap{}, &MissingCapabilityError{Capability: "seat", Interface: InterfaceSeat}
	}
	managerGlobal, ok := find(globals, InterfaceInputMethodManager)
	if !ok {
		return Bootstrap{}, &MissingCapabilityError{Capability: "manager", Interface: InterfaceInputMethodManager}
	}

	b := Bootstrap{Globals: append([]Global(nil), globals...)}
	b.Seat = client.NewSeat(d.context())
	if err := reg.Bind(seatGlobal.Name, seatGlobal.Interface, 1, b.Seat); err != nil {
		return Bootstrap{}, fmt.Errorf("bind %s: %w", seatGlobal.Interface, err)
	}
	b.Manager = imv2.NewInputMethodManager(d.context())
	if err := reg.Bind(managerGlobal.Name, managerGlobal.Interface, 1, b.Manager); err != nil {
		return Bootstrap{}, fmt.Errorf("bind %s: %w", managerGlobal.Interface, err)
	}
	return b, nil
}
