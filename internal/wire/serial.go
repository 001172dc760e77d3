package wire

import "sync/atomic"

// SerialAllocator hands out wl_display event serials: plain wrapping
// uint32 counters, unlike internal/ids' never-reused allocator. Wayland
// serials are compared only for recency within one configure/ack or
// press/release handshake, so wraparound after 2^32 events is harmless
// and matches every libwayland-server implementation.
type SerialAllocator struct {
	next atomic.Uint32
}

// Next returns a fresh serial, wrapping from 0xFFFFFFFF back to 0.
func (s *SerialAllocator) Next() uint32 {
	return s.next.Add(1)
}
