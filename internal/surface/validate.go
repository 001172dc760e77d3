package surface

import "github.com/novade/compositor-core/internal/bufferreg"

// ValidateBufferGeometry reports whether a committed buffer's dimensions
// are positive and evenly divisible by the surface's buffer scale
// (§4.2 commit step 1, §8's quantified invariant). Exposed as a
// standalone function (rather than inlined only in commit), so
// introspection/debug tooling can reuse the same check commit() enforces.
func ValidateBufferGeometry(buf bufferreg.Record, bufferScale int) bool {
	if buf.Width <= 0 || buf.Height <= 0 {
		return false
	}
	if bufferScale <= 0 {
		return false
	}
	return buf.Width%bufferScale == 0 && buf.Height%bufferScale == 0
}
