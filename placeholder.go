package meshes

import (
	"github.com/chewxy/math32"
)

// Default placeholder sphere parameters.
const (
	placeholderRadius = 25
	placeholderSlices = 5
	placeholderStacks = 5
)

// placeholderName names the default placeholder mesh.
const placeholderName = "__placeholder_sphere"

// newPlaceholderMesh builds the default placeholder: a low-poly sphere.
func newPlaceholderMesh() *Mesh {
	data := makeSphere(placeholderRadius, placeholderSlices, placeholderStacks)
	return &Mesh{
		Name: placeholderName,
		Data: data,
		BBox: boundsOf(data.Coords),
	}
}

// makeSphere generates a UV sphere centered at the origin. slices divide
// the equator and stacks divide pole to pole; both are raised to the
// minimum that still encloses a volume.
func makeSphere(radius float32, slices, stacks int) MeshData {
	if slices < 3 {
		slices = 3
	}
	if stacks < 2 {
		stacks = 2
	}

	vertices := (stacks + 1) * (slices + 1)
	d := MeshData{
		Coords:  make([]float32, 0, vertices*3),
		Normals: make([]float32, 0, vertices*3),
		UVs:     make([]float32, 0, vertices*2),
		Indices: make([]uint32, 0, stacks*slices*6),
	}

	for stack := 0; stack <= stacks; stack++ {
		v := float32(stack) / float32(stacks)
		theta := v * math32.Pi
		sinTheta, cosTheta := math32.Sin(theta), math32.Cos(theta)

		for slice := 0; slice <= slices; slice++ {
			u := float32(slice) / float32(slices)
			phi := u * 2 * math32.Pi
			sinPhi, cosPhi := math32.Sin(phi), math32.Cos(phi)

			nx := cosPhi * sinTheta
			ny := cosTheta
			nz := sinPhi * sinTheta

			d.Coords = append(d.Coords, radius*nx, radius*ny, radius*nz)
			d.Normals = append(d.Normals, nx, ny, nz)
			d.UVs = append(d.UVs, u, v)
		}
	}

	row := uint32(slices + 1)
	for stack := 0; stack < stacks; stack++ {
		for slice := 0; slice < slices; slice++ {
			a := uint32(stack)*row + uint32(slice)
			b := a + row
			d.Indices = append(d.Indices, a, b, a+1, b, b+1, a+1)
		}
	}

	return d
}
