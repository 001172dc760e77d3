// Package seat implements the seat/focus engine (§4.4): pointer
// and keyboard focus tracking with enter/leave serial bookkeeping per
// client device interface.
//
// Mirrors SeatState's WlPointer/WlKeyboard last_enter_serial bookkeeping,
// and design note 9's resolution to iterate a global device-interface map
// filtered by (client, seat) rather than per-seat proxy maps.
package seat

import (
	"sync"

	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/protoerr"
)

// Capability is a bit in a seat's capability set.
type Capability uint32

const (
	CapPointer Capability = 1 << iota
	CapKeyboard
	CapTouch
)

func (c Capability) Has(bit Capability) bool { return c&bit != 0 }

// DeviceKind distinguishes the three per-client device interface types.
type DeviceKind int

const (
	DevicePointer DeviceKind = iota
	DeviceKeyboard
	DeviceTouch
)

func (k DeviceKind) String() string {
	switch k {
	case DeviceKeyboard:
		return "keyboard"
	case DeviceTouch:
		return "touch"
	default:
		return "pointer"
	}
}

// Device is a per-client device interface (§4.4, §3): "Each
// per-client device interface (Pointer, Keyboard, Touch) holds its
// client id, owning seat id, object id, and the last enter serial
// delivered to that client."
type Device struct {
	Kind            DeviceKind
	Client          ids.ClientId
	Seat            ids.SeatId
	ObjectID        uint32
	LastEnterSerial uint32
}

type deviceKey struct {
	client   ids.ClientId
	seat     ids.SeatId
	kind     DeviceKind
	objectID uint32
}

// Seat holds a seat's stable state (§3): id, name, capability
// bitset, and current pointer/keyboard focus.
type Seat struct {
	ID           ids.SeatId
	Name         string
	Capabilities Capability

	PointerFocus       ids.SurfaceId
	PointerFocusClient ids.ClientId
	hasPointerFoc      bool

	KeyboardFocus       ids.SurfaceId
	KeyboardFocusClient ids.ClientId
	hasKeyboardFoc      bool
}

// Dispatcher delivers focus events to a client's device interfaces. The
// seat engine never touches the wire directly (§5: cross-thread
// calls route through message queues); Dispatcher is the seam an
// implementation wires to its protocol connection table.
type Dispatcher interface {
	PointerLeave(dev Device, serial uint32, surface ids.SurfaceId)
	PointerEnter(dev Device, serial uint32, surface ids.SurfaceId, localX, localY float64)
	PointerMotion(dev Device, localX, localY float64)
	KeyboardLeave(dev Device, serial uint32, surface ids.SurfaceId)
	KeyboardEnter(dev Device, serial uint32, surface ids.SurfaceId, pressedKeys []uint32)
	KeyboardModifiers(dev Device, depressed, latched, locked, group uint32)
}

// SurfaceLocator resolves a surface's world position, so the engine can
// compute the enter/motion local coordinates §4.4 step 2 defines
// as "locals ... computed by subtracting the new surface's world
// position from the global coordinates".
type SurfaceLocator interface {
	WorldPosition(id ids.SurfaceId) (x, y float64, ok bool)
}

// Engine is the seat/focus engine. Safe for concurrent use; per
// §5 all of its operations are expected to run to completion
// within a single event-loop dispatch.
type Engine struct {
	mu      sync.Mutex
	alloc   *ids.Allocator[ids.SeatMarker]
	seats   map[ids.SeatId]*Seat
	devices map[deviceKey]*Device
	dispatch Dispatcher
	locate   SurfaceLocator
}

// New creates a seat engine. dispatch delivers protocol events; locate
// resolves a focused surface's world position.
func New(dispatch Dispatcher, locate SurfaceLocator) *Engine {
	return &Engine{
		alloc:    ids.NewAllocator[ids.SeatMarker](),
		seats:    make(map[ids.SeatId]*Seat),
		devices:  make(map[deviceKey]*Device),
		dispatch: dispatch,
		locate:   locate,
	}
}

// CreateSeat registers a new seat with the given name and capabilities.
func (e *Engine) CreateSeat(name string, caps Capability) ids.SeatId {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.alloc.Alloc()
	e.seats[id] = &Seat{ID: id, Name: name, Capabilities: caps}
	return id
}

// SetCapabilities updates a seat's capability bitset (e.g. a physical
// keyboard being hot-unplugged).
func (e *Engine) SetCapabilities(seatID ids.SeatId, caps Capability) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.seats[seatID]; ok {
		s.Capabilities = caps
	}
}

// GetPointer implements §4.4's get_pointer request: fails
// MissingCapability if the seat lacks Pointer.
func (e *Engine) GetPointer(client ids.ClientId, seatID ids.SeatId, objectID uint32) error {
	return e.newDevice(client, seatID, objectID, DevicePointer, CapPointer)
}

// GetKeyboard implements §4.4's get_keyboard request.
func (e *Engine) GetKeyboard(client ids.ClientId, seatID ids.SeatId, objectID uint32) error {
	return e.newDevice(client, seatID, objectID, DeviceKeyboard, CapKeyboard)
}

// GetTouch implements §4.4's get_touch request.
func (e *Engine) GetTouch(client ids.ClientId, seatID ids.SeatId, objectID uint32) error {
	return e.newDevice(client, seatID, objectID, DeviceTouch, CapTouch)
}

func (e *Engine) newDevice(client ids.ClientId, seatID ids.SeatId, objectID uint32, kind DeviceKind, required Capability) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.seats[seatID]
	if !ok {
		return protoerr.New(protoerr.InvalidState, "wl_seat", "no such seat")
	}
	if !s.Capabilities.Has(required) {
		return protoerr.New(protoerr.MissingCapability, "wl_seat", "seat lacks requested capability")
	}
	key := deviceKey{client: client, seat: seatID, kind: kind, objectID: objectID}
	e.devices[key] = &Device{Kind: kind, Client: client, Seat: seatID, ObjectID: objectID}
	logDeviceCreated(kind, seatID, client)
	return nil
}

// devicesFor iterates the global device map (design note 9) filtered by
// (client, seat, kind), rather than maintaining a redundant per-seat
// proxy index.
func (e *Engine) devicesFor(client ids.ClientId, seatID ids.SeatId, kind DeviceKind) []*Device {
	var out []*Device
	for k, d := range e.devices {
		if k.client == client && k.seat == seatID && k.kind == kind {
			out = append(out, d)
		}
	}
	return out
}
