package meshes

import "testing"

func TestBoundsOf(t *testing.T) {
	tests := []struct {
		name   string
		coords []float32
		want   BoundingBox
	}{
		{
			name:   "single point",
			coords: []float32{1, 2, 3},
			want:   BoundingBox{Min: [3]float32{1, 2, 3}, Max: [3]float32{1, 2, 3}},
		},
		{
			name:   "quad",
			coords: quadMesh().Coords,
			want:   BoundingBox{Min: [3]float32{-1, -1, 0}, Max: [3]float32{1, 1, 0}},
		},
		{
			name:   "partial triple ignored",
			coords: []float32{0, 0, 0, 5, 5},
			want:   BoundingBox{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boundsOf(tt.coords); got != tt.want {
				t.Errorf("boundsOf() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEmptyBoundingBox(t *testing.T) {
	box := boundsOf(nil)

	if !box.IsEmpty() {
		t.Error("box of no points should be empty")
	}
	if box.Contains([3]float32{0, 0, 0}) {
		t.Error("empty box should contain nothing")
	}
	if box.Size() != ([3]float32{}) {
		t.Errorf("Size() = %v, want zero", box.Size())
	}
}

func TestBoundingBoxQueries(t *testing.T) {
	box := NewBoundingBox()
	box.AddVec3([3]float32{-2, 0, 4})
	box.AddVec3([3]float32{2, 6, -4})

	if box.IsEmpty() {
		t.Fatal("box should not be empty")
	}
	if got, want := box.Center(), ([3]float32{0, 3, 0}); got != want {
		t.Errorf("Center() = %v, want %v", got, want)
	}
	if got, want := box.Size(), ([3]float32{4, 6, 8}); got != want {
		t.Errorf("Size() = %v, want %v", got, want)
	}

	contains := []struct {
		p    [3]float32
		want bool
	}{
		{[3]float32{0, 0, 0}, true},
		{[3]float32{2, 6, 4}, true},
		{[3]float32{2.1, 0, 0}, false},
		{[3]float32{0, -0.1, 0}, false},
	}
	for _, c := range contains {
		if got := box.Contains(c.p); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}
