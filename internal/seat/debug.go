package seat

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	novade "github.com/novade/compositor-core"
	"github.com/novade/compositor-core/internal/ids"
)

var deviceKindTitle = cases.Title(language.Und)

// logDeviceCreated emits an info-level record of a new per-client device
// interface (§4.4's get_pointer/get_keyboard/get_touch), normalizing
// DeviceKind's name through Unicode-aware title casing so log output
// stays consistent regardless of how callers spell it elsewhere
// (lifecycle logging, §A.1 — not on the render hot path).
func logDeviceCreated(kind DeviceKind, seatID ids.SeatId, client ids.ClientId) {
	novade.Logger().Info("seat: device created",
		"kind", deviceKindTitle.String(kind.String()),
		"seat", seatID.String(), "client", client.String())
}
