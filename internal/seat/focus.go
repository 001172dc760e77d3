package seat

import "github.com/novade/compositor-core/internal/ids"

// UpdatePointerFocus implements §4.4's pointer focus update
// algorithm (steps 2-3). newFocus/hasFocus and newFocusClient are the
// result of step 1 (topmost surface under the pointer with a receptive
// input region), resolved by the caller via the scene graph's spatial
// index (§4.5's point-in-nodes query) and the surface registry —
// the seat engine itself holds no surface geometry or ownership data.
func (e *Engine) UpdatePointerFocus(seatID ids.SeatId, newFocus ids.SurfaceId, hasFocus bool, newFocusClient ids.ClientId, globalX, globalY float64, serial uint32) {
	e.mu.Lock()
	s, ok := e.seats[seatID]
	if !ok {
		e.mu.Unlock()
		return
	}

	oldFocus, oldClient, hadFocus := s.PointerFocus, s.PointerFocusClient, s.hasPointerFoc
	unchanged := hadFocus == hasFocus && (!hadFocus || oldFocus == newFocus)

	if unchanged {
		if hasFocus {
			lx, ly := e.localCoords(newFocus, globalX, globalY)
			devices := e.devicesFor(oldClient, seatID, DevicePointer)
			e.mu.Unlock()
			for _, d := range devices {
				e.dispatch.PointerMotion(*d, lx, ly)
			}
		} else {
			e.mu.Unlock()
		}
		return
	}

	s.PointerFocus, s.hasPointerFoc = newFocus, hasFocus
	s.PointerFocusClient = newFocusClient

	var leaveDevices, enterDevices []*Device
	if hadFocus {
		leaveDevices = e.devicesFor(oldClient, seatID, DevicePointer)
	}
	var lx, ly float64
	if hasFocus {
		enterDevices = e.devicesFor(newFocusClient, seatID, DevicePointer)
		lx, ly = e.localCoords(newFocus, globalX, globalY)
		for _, d := range enterDevices {
			d.LastEnterSerial = serial
		}
	}
	e.mu.Unlock()

	for _, d := range leaveDevices {
		e.dispatch.PointerLeave(*d, serial, oldFocus)
	}
	for _, d := range enterDevices {
		e.dispatch.PointerEnter(*d, serial, newFocus, lx, ly)
	}
}

// UpdateKeyboardFocus implements §4.4's keyboard focus update:
// leave to the old focus' client's keyboards, then enter followed by
// modifiers to the new, updating last_enter_serial strictly before
// emitting enter.
func (e *Engine) UpdateKeyboardFocus(seatID ids.SeatId, newFocus ids.SurfaceId, hasFocus bool, newFocusClient ids.ClientId, serial uint32, pressedKeys []uint32, depressed, latched, locked, group uint32) {
	e.mu.Lock()
	s, ok := e.seats[seatID]
	if !ok {
		e.mu.Unlock()
		return
	}
	oldFocus, oldClient, hadFocus := s.KeyboardFocus, s.KeyboardFocusClient, s.hasKeyboardFoc
	if hadFocus == hasFocus && (!hadFocus || oldFocus == newFocus) {
		e.mu.Unlock()
		return
	}

	s.KeyboardFocus, s.hasKeyboardFoc = newFocus, hasFocus
	s.KeyboardFocusClient = newFocusClient

	var leaveDevices []*Device
	if hadFocus {
		leaveDevices = e.devicesFor(oldClient, seatID, DeviceKeyboard)
	}
	var enterDevices []*Device
	if hasFocus {
		enterDevices = e.devicesFor(newFocusClient, seatID, DeviceKeyboard)
		for _, d := range enterDevices {
			d.LastEnterSerial = serial
		}
	}
	e.mu.Unlock()

	for _, d := range leaveDevices {
		e.dispatch.KeyboardLeave(*d, serial, oldFocus)
	}
	for _, d := range enterDevices {
		e.dispatch.KeyboardEnter(*d, serial, newFocus, pressedKeys)
		e.dispatch.KeyboardModifiers(*d, depressed, latched, locked, group)
	}
}

// localCoords subtracts the focused surface's world position from global
// pointer coordinates (§4.4 step 2).
func (e *Engine) localCoords(surfaceID ids.SurfaceId, globalX, globalY float64) (float64, float64) {
	wx, wy, ok := e.locate.WorldPosition(surfaceID)
	if !ok {
		return globalX, globalY
	}
	return globalX - wx, globalY - wy
}

// PointerFocus returns the seat's current pointer focus, if any.
func (e *Engine) PointerFocus(seatID ids.SeatId) (ids.SurfaceId, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.seats[seatID]
	if !ok || !s.hasPointerFoc {
		return ids.SurfaceId{}, false
	}
	return s.PointerFocus, true
}

// KeyboardFocus returns the seat's current keyboard focus, if any.
func (e *Engine) KeyboardFocus(seatID ids.SeatId) (ids.SurfaceId, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.seats[seatID]
	if !ok || !s.hasKeyboardFoc {
		return ids.SurfaceId{}, false
	}
	return s.KeyboardFocus, true
}
