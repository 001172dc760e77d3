package seat

import (
	"testing"

	"github.com/novade/compositor-core/internal/ids"
)

type event struct {
	kind      string
	serial    uint32
	surf      ids.SurfaceId
	x, y      float64
	devSerial uint32 // the device's LastEnterSerial as seen by the dispatcher
}

type fakeDispatcher struct {
	events []event
}

func (f *fakeDispatcher) PointerLeave(dev Device, serial uint32, surface ids.SurfaceId) {
	f.events = append(f.events, event{kind: "pointer.leave", serial: serial, surf: surface})
}
func (f *fakeDispatcher) PointerEnter(dev Device, serial uint32, surface ids.SurfaceId, localX, localY float64) {
	f.events = append(f.events, event{kind: "pointer.enter", serial: serial, surf: surface, x: localX, y: localY, devSerial: dev.LastEnterSerial})
}
func (f *fakeDispatcher) PointerMotion(dev Device, localX, localY float64) {
	f.events = append(f.events, event{kind: "pointer.motion", x: localX, y: localY})
}
func (f *fakeDispatcher) KeyboardLeave(dev Device, serial uint32, surface ids.SurfaceId) {
	f.events = append(f.events, event{kind: "keyboard.leave", serial: serial, surf: surface})
}
func (f *fakeDispatcher) KeyboardEnter(dev Device, serial uint32, surface ids.SurfaceId, pressedKeys []uint32) {
	f.events = append(f.events, event{kind: "keyboard.enter", serial: serial, surf: surface, devSerial: dev.LastEnterSerial})
}
func (f *fakeDispatcher) KeyboardModifiers(dev Device, depressed, latched, locked, group uint32) {
	f.events = append(f.events, event{kind: "keyboard.modifiers"})
}

type fakeLocator struct {
	positions map[ids.SurfaceId][2]float64
}

func (f *fakeLocator) WorldPosition(id ids.SurfaceId) (float64, float64, bool) {
	p, ok := f.positions[id]
	if !ok {
		return 0, 0, false
	}
	return p[0], p[1], true
}

func newTestEngine() (*Engine, *fakeDispatcher, *fakeLocator) {
	disp := &fakeDispatcher{}
	loc := &fakeLocator{positions: make(map[ids.SurfaceId][2]float64)}
	return New(disp, loc), disp, loc
}

func allocSurfaceID() ids.SurfaceId {
	return ids.NewAllocator[ids.SurfaceMarker]().Alloc()
}

func allocClientID() ids.ClientId {
	return ids.NewAllocator[ids.ClientMarker]().Alloc()
}

func TestGetPointerFailsWithoutCapability(t *testing.T) {
	e, _, _ := newTestEngine()
	seatID := e.CreateSeat("seat0", CapKeyboard)
	if err := e.GetPointer(allocClientID(), seatID, 1); err == nil {
		t.Fatal("expected MissingCapability error")
	}
}

func TestGetPointerSucceedsWithCapability(t *testing.T) {
	e, _, _ := newTestEngine()
	seatID := e.CreateSeat("seat0", CapPointer)
	if err := e.GetPointer(allocClientID(), seatID, 1); err != nil {
		t.Fatalf("GetPointer failed: %v", err)
	}
}

func TestGetPointerFailsUnknownSeat(t *testing.T) {
	e, _, _ := newTestEngine()
	bogus := ids.NewAllocator[ids.SeatMarker]().Alloc()
	if err := e.GetPointer(allocClientID(), bogus, 1); err == nil {
		t.Fatal("expected error for unknown seat")
	}
}

func TestPointerFocusEntersNewSurfaceAfterSerialSet(t *testing.T) {
	e, disp, loc := newTestEngine()
	seatID := e.CreateSeat("seat0", CapPointer)
	client := allocClientID()
	surf := allocSurfaceID()
	if err := e.GetPointer(client, seatID, 1); err != nil {
		t.Fatalf("GetPointer failed: %v", err)
	}
	loc.positions[surf] = [2]float64{10, 20}

	e.UpdatePointerFocus(seatID, surf, true, client, 15, 25, 100)

	if len(disp.events) != 1 || disp.events[0].kind != "pointer.enter" {
		t.Fatalf("events = %+v, want single pointer.enter", disp.events)
	}
	if disp.events[0].x != 5 || disp.events[0].y != 5 {
		t.Errorf("local coords = (%v, %v), want (5, 5)", disp.events[0].x, disp.events[0].y)
	}
	if disp.events[0].devSerial != 100 {
		t.Errorf("device LastEnterSerial at enter dispatch = %d, want 100", disp.events[0].devSerial)
	}
	got, ok := e.PointerFocus(seatID)
	if !ok || got != surf {
		t.Errorf("PointerFocus = %v, %v, want %v, true", got, ok, surf)
	}
}

func TestPointerFocusLeavesOldEntersNew(t *testing.T) {
	e, disp, loc := newTestEngine()
	seatID := e.CreateSeat("seat0", CapPointer)
	client := allocClientID()
	s1, s2 := allocSurfaceID(), allocSurfaceID()
	if err := e.GetPointer(client, seatID, 1); err != nil {
		t.Fatalf("GetPointer failed: %v", err)
	}
	loc.positions[s1] = [2]float64{0, 0}
	loc.positions[s2] = [2]float64{0, 0}

	e.UpdatePointerFocus(seatID, s1, true, client, 1, 1, 1)
	disp.events = nil
	e.UpdatePointerFocus(seatID, s2, true, client, 2, 2, 2)

	if len(disp.events) != 2 {
		t.Fatalf("events = %+v, want leave then enter", disp.events)
	}
	if disp.events[0].kind != "pointer.leave" || disp.events[0].surf != s1 {
		t.Errorf("first event = %+v, want leave of s1", disp.events[0])
	}
	if disp.events[1].kind != "pointer.enter" || disp.events[1].surf != s2 {
		t.Errorf("second event = %+v, want enter of s2", disp.events[1])
	}
}

func TestPointerFocusUnchangedOnlySendsMotion(t *testing.T) {
	e, disp, loc := newTestEngine()
	seatID := e.CreateSeat("seat0", CapPointer)
	client := allocClientID()
	surf := allocSurfaceID()
	if err := e.GetPointer(client, seatID, 1); err != nil {
		t.Fatalf("GetPointer failed: %v", err)
	}
	loc.positions[surf] = [2]float64{0, 0}

	e.UpdatePointerFocus(seatID, surf, true, client, 1, 1, 1)
	disp.events = nil
	e.UpdatePointerFocus(seatID, surf, true, client, 5, 5, 2)

	if len(disp.events) != 1 || disp.events[0].kind != "pointer.motion" {
		t.Fatalf("events = %+v, want single motion", disp.events)
	}
}

func TestPointerFocusLossSendsLeaveOnly(t *testing.T) {
	e, disp, loc := newTestEngine()
	seatID := e.CreateSeat("seat0", CapPointer)
	client := allocClientID()
	surf := allocSurfaceID()
	if err := e.GetPointer(client, seatID, 1); err != nil {
		t.Fatalf("GetPointer failed: %v", err)
	}
	loc.positions[surf] = [2]float64{0, 0}
	e.UpdatePointerFocus(seatID, surf, true, client, 0, 0, 1)
	disp.events = nil

	e.UpdatePointerFocus(seatID, ids.SurfaceId{}, false, ids.ClientId{}, 0, 0, 2)

	if len(disp.events) != 1 || disp.events[0].kind != "pointer.leave" {
		t.Fatalf("events = %+v, want single leave", disp.events)
	}
	if _, ok := e.PointerFocus(seatID); ok {
		t.Error("PointerFocus should report no focus")
	}
}

func TestKeyboardFocusEnterSetsSerialBeforeDispatch(t *testing.T) {
	e, disp, _ := newTestEngine()
	seatID := e.CreateSeat("seat0", CapKeyboard)
	client := allocClientID()
	surf := allocSurfaceID()
	if err := e.GetKeyboard(client, seatID, 1); err != nil {
		t.Fatalf("GetKeyboard failed: %v", err)
	}

	e.UpdateKeyboardFocus(seatID, surf, true, client, 77, nil, 0, 0, 0, 0)

	if len(disp.events) != 2 {
		t.Fatalf("events = %+v, want enter then modifiers", disp.events)
	}
	if disp.events[0].kind != "keyboard.enter" || disp.events[0].serial != 77 {
		t.Errorf("first event = %+v, want keyboard.enter serial=77", disp.events[0])
	}
	if disp.events[0].devSerial != 77 {
		t.Errorf("device LastEnterSerial at enter dispatch = %d, want 77", disp.events[0].devSerial)
	}
	if disp.events[1].kind != "keyboard.modifiers" {
		t.Errorf("second event = %+v, want keyboard.modifiers", disp.events[1])
	}
	got, ok := e.KeyboardFocus(seatID)
	if !ok || got != surf {
		t.Errorf("KeyboardFocus = %v, %v, want %v, true", got, ok, surf)
	}
}

func TestKeyboardFocusLeaveBeforeEnterOnSwitch(t *testing.T) {
	e, disp, _ := newTestEngine()
	seatID := e.CreateSeat("seat0", CapKeyboard)
	client := allocClientID()
	s1, s2 := allocSurfaceID(), allocSurfaceID()
	if err := e.GetKeyboard(client, seatID, 1); err != nil {
		t.Fatalf("GetKeyboard failed: %v", err)
	}
	e.UpdateKeyboardFocus(seatID, s1, true, client, 1, nil, 0, 0, 0, 0)
	disp.events = nil

	e.UpdateKeyboardFocus(seatID, s2, true, client, 2, nil, 0, 0, 0, 0)

	if len(disp.events) != 3 {
		t.Fatalf("events = %+v, want leave, enter, modifiers", disp.events)
	}
	if disp.events[0].kind != "keyboard.leave" || disp.events[0].surf != s1 {
		t.Errorf("first event = %+v, want leave of s1", disp.events[0])
	}
	if disp.events[1].kind != "keyboard.enter" || disp.events[1].surf != s2 {
		t.Errorf("second event = %+v, want enter of s2", disp.events[1])
	}
}

func TestKeyboardFocusUnchangedIsNoOp(t *testing.T) {
	e, disp, _ := newTestEngine()
	seatID := e.CreateSeat("seat0", CapKeyboard)
	client := allocClientID()
	surf := allocSurfaceID()
	if err := e.GetKeyboard(client, seatID, 1); err != nil {
		t.Fatalf("GetKeyboard failed: %v", err)
	}
	e.UpdateKeyboardFocus(seatID, surf, true, client, 1, nil, 0, 0, 0, 0)
	disp.events = nil

	e.UpdateKeyboardFocus(seatID, surf, true, client, 2, nil, 0, 0, 0, 0)

	if len(disp.events) != 0 {
		t.Errorf("events = %+v, want none for unchanged focus", disp.events)
	}
}
