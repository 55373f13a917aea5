package probe

import "github.com/lumen-engine/lumen-go/common"

// GridLattice is the world-space basis of a grid probe's cell lattice:
// the position of the first cell and the per-axis step between neighboring
// cells. It is recomputed from the grid's placement transform and resolution
// whenever either changes.
type GridLattice struct {
	// Corner is the world-space center of cell 0.
	Corner [3]float32

	// IncrementX, IncrementY, IncrementZ are the world-space steps from a
	// cell to its next neighbor along each lattice axis.
	IncrementX [3]float32
	IncrementY [3]float32
	IncrementZ [3]float32

	// Resolution is the cell count along each axis.
	Resolution [3]int32
}

// ComputeLattice derives the world-space lattice basis for a grid probe.
// The grid's local volume spans [-1, 1] on each axis; cells are centered
// inside it, so cell 0 sits half a cell in from the corner and each
// increment is the transformed step of one cell dimension.
//
// Parameters:
//   - transform: the grid's placement model matrix (column-major)
//   - resolution: cells along each axis (each must be >= 1)
//
// Returns:
//   - GridLattice: the derived lattice basis
func ComputeLattice(transform [16]float32, resolution [3]int32) GridLattice {
	var cellDim, halfCell [3]float32
	for a := 0; a < 3; a++ {
		cellDim[a] = 2.0 / float32(resolution[a])
		halfCell[a] = cellDim[a] * 0.5
	}

	m := transform[:]
	corner := common.TransformPoint(m, -1+halfCell[0], -1+halfCell[1], -1+halfCell[2])

	// Each increment is the world-space offset from the corner cell to its
	// opposite neighbor along one axis.
	neighbor := func(dx, dy, dz float32) [3]float32 {
		p := common.TransformPoint(m, dx+halfCell[0]-1, dy+halfCell[1]-1, dz+halfCell[2]-1)
		return [3]float32{p[0] - corner[0], p[1] - corner[1], p[2] - corner[2]}
	}

	return GridLattice{
		Corner:     corner,
		IncrementX: neighbor(cellDim[0], 0, 0),
		IncrementY: neighbor(0, cellDim[1], 0),
		IncrementZ: neighbor(0, 0, cellDim[2]),
		Resolution: resolution,
	}
}

// CellLocation returns the world-space position of lattice cell idx.
// Cells are ordered z-fastest: idx 0 is the corner cell, idx 1 its +z
// neighbor, and the x coordinate varies slowest. The mapping is a bijection
// from [0, nx*ny*nz) onto the lattice points.
//
// Parameters:
//   - idx: the flat cell index in [0, nx*ny*nz)
//
// Returns:
//   - [3]float32: the world-space cell center
func (g *GridLattice) CellLocation(idx int) [3]float32 {
	rz := int(g.Resolution[2])
	ry := int(g.Resolution[1])

	cz := float32(idx % rz)
	cy := float32((idx / rz) % ry)
	cx := float32(idx / (rz * ry))

	var pos [3]float32
	for a := 0; a < 3; a++ {
		pos[a] = g.Corner[a] + g.IncrementX[a]*cx + g.IncrementY[a]*cy + g.IncrementZ[a]*cz
	}
	return pos
}
