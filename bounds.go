package meshes

import (
	"github.com/chewxy/math32"
)

// BoundingBox is an axis-aligned bounding box.
type BoundingBox struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

// NewBoundingBox returns an empty box that any point will grow.
func NewBoundingBox() BoundingBox {
	inf := math32.Inf(1)
	return BoundingBox{
		Min: [3]float32{inf, inf, inf},
		Max: [3]float32{-inf, -inf, -inf},
	}
}

// AddVec3 grows the box to include v.
func (b *BoundingBox) AddVec3(v [3]float32) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], v[i])
		b.Max[i] = math32.Max(b.Max[i], v[i])
	}
}

// IsEmpty reports whether no point has been added.
func (b BoundingBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Contains reports whether v lies inside the box, boundary included.
func (b BoundingBox) Contains(v [3]float32) bool {
	for i := 0; i < 3; i++ {
		if v[i] < b.Min[i] || v[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns the extent of the box along each axis.
// An empty box has zero size.
func (b BoundingBox) Size() [3]float32 {
	if b.IsEmpty() {
		return [3]float32{}
	}
	return [3]float32{
		b.Max[0] - b.Min[0],
		b.Max[1] - b.Min[1],
		b.Max[2] - b.Min[2],
	}
}

// boundsOf folds every complete coordinate triple into a box.
// A trailing partial triple is ignored.
func boundsOf(coords []float32) BoundingBox {
	box := NewBoundingBox()
	for i := 0; i+2 < len(coords); i += 3 {
		box.AddVec3([3]float32{coords[i], coords[i+1], coords[i+2]})
	}
	return box
}
