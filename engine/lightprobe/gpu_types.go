package lightprobe

import "unsafe"

const (
	// ProbeRTSize is the face edge length of the capture cubemap render target.
	ProbeRTSize = 512

	// ProbeOctahedronSize is the edge length of one octahedral-mapped layer of
	// the probe pool. Its log2 bounds the glossy mip chain.
	ProbeOctahedronSize = 1024

	// IrradiancePoolSize is the edge length of the square irradiance atlas.
	IrradiancePoolSize = 1024

	// HammersleySize is the number of low-discrepancy samples in the shared
	// importance-sampling table.
	HammersleySize = 1024

	// MaxProbe is the cube-probe slot capacity, including the reserved world
	// slot 0.
	MaxProbe = 1024

	// MaxGrid is the grid-probe slot capacity, including the reserved world
	// slot 0.
	MaxGrid = 1024
)

// GPUCubeProbe is the GPU-aligned per-probe record uploaded for shading.
// Size: 160 bytes (std140 aligned).
type GPUCubeProbe struct {
	Position        [3]float32  // offset   0: capture position in world space
	AttenuationFac  float32     // offset  12: 1 / max(1e-8, falloff)
	AttenuationType int32       // offset  16: influence volume shape
	ParallaxType    int32       // offset  20: parallax volume shape
	_pad0           [2]uint32   // offset  24: padding to 16-byte alignment
	AttenuationMat  [16]float32 // offset  32: world-to-influence-volume matrix
	ParallaxMat     [16]float32 // offset  96: world-to-parallax-volume matrix
}

// Size returns the size of the GPUCubeProbe struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (160)
func (g *GPUCubeProbe) Size() int {
	return int(unsafe.Sizeof(*g))
}

// GPUGrid is the GPU-aligned per-grid record uploaded for shading.
// Size: 144 bytes (std140 aligned).
type GPUGrid struct {
	Mat              [16]float32 // offset   0: world-to-cell-range matrix
	Resolution       [3]int32    // offset  64: cells along each axis
	Offset           int32       // offset  76: first atlas slot of this grid
	Corner           [3]float32  // offset  80: world-space center of cell 0
	AttenuationScale float32     // offset  92: falloff scale term
	IncrementX       [3]float32  // offset  96: world-space step along x
	AttenuationBias  float32     // offset 108: falloff bias term
	IncrementY       [3]float32  // offset 112: world-space step along y
	_pad0            uint32      // offset 124: padding
	IncrementZ       [3]float32  // offset 128: world-space step along z
	_pad1            uint32      // offset 140: padding to 16-byte alignment
}

// Size returns the size of the GPUGrid struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUGrid) Size() int {
	return int(unsafe.Sizeof(*g))
}
