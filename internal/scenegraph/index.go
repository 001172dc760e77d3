package scenegraph

import (
	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
)

// DefaultCellSize is the uniform grid's default cell size in pixels
// (§3: "fixed cell size (default 256 px)").
const DefaultCellSize = 256

type cellCoord struct{ col, row int }

// SpatialIndex is a uniform grid over the output rectangle
// (§3's "Spatial index"). Rebuilt each frame after node
// construction.
type SpatialIndex struct {
	cellSize int
	origin   geom.Rect
	cells    map[cellCoord][]ids.SurfaceId
}

// NewSpatialIndex builds an empty index over output with the given cell
// size (DefaultCellSize if cellSize <= 0).
func NewSpatialIndex(output geom.Rect, cellSize int) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &SpatialIndex{
		cellSize: cellSize,
		origin:   output,
		cells:    make(map[cellCoord][]ids.SurfaceId),
	}
}

// Insert maps a node's clipped rect into every overlapping grid cell,
// relative to the output's origin (§4.5 step 6).
func (s *SpatialIndex) Insert(id ids.SurfaceId, clipped geom.Rect) {
	if clipped.IsEmpty() {
		return
	}
	c0, r0 := s.cellOf(clipped.X, clipped.Y)
	c1, r1 := s.cellOf(clipped.MaxX()-1, clipped.MaxY()-1)
	for col := c0; col <= c1; col++ {
		for row := r0; row <= r1; row++ {
			key := cellCoord{col, row}
			s.cells[key] = append(s.cells[key], id)
		}
	}
}

func (s *SpatialIndex) cellOf(x, y int) (int, int) {
	col := (x - s.origin.X) / s.cellSize
	row := (y - s.origin.Y) / s.cellSize
	return col, row
}

// Query returns the (de-duplicated) set of surface ids whose grid cells
// overlap rect — the occlusion pass's "candidate occluders"
// (§4.5 step 7) and the focus engine's point query
// (§4.4 step 1).
func (s *SpatialIndex) Query(rect geom.Rect) []ids.SurfaceId {
	if rect.IsEmpty() {
		return nil
	}
	c0, r0 := s.cellOf(rect.X, rect.Y)
	c1, r1 := s.cellOf(rect.MaxX()-1, rect.MaxY()-1)
	seen := make(map[ids.SurfaceId]struct{})
	var out []ids.SurfaceId
	for col := c0; col <= c1; col++ {
		for row := r0; row <= r1; row++ {
			for _, id := range s.cells[cellCoord{col, row}] {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					out = append(out, id)
				}
			}
		}
	}
	return out
}
