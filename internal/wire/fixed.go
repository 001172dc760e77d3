package wire

import "math"

// Fixed is the wire representation of wl_fixed_t: a signed 24.8 fixed
// point number used throughout the protocol for pointer and touch
// coordinates, so fractional positions survive the wire without a
// separate float encoding.
type Fixed int32

// FixedFromFloat64 converts a float64 to its nearest Fixed representation.
func FixedFromFloat64(v float64) Fixed {
	return Fixed(math.Round(v * 256.0))
}

// Float64 converts f back to a float64.
func (f Fixed) Float64() float64 {
	return float64(f) / 256.0
}
