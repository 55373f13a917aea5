package probe

// ProbeType identifies the kind of light probe.
type ProbeType int

const (
	// ProbeTypeCube represents a point sample of reflected radiance stored as a
	// filtered, octahedral-mapped cubemap layer in the probe pool. Used for
	// glossy and specular indirect lighting around a capture position.
	ProbeTypeCube ProbeType = iota

	// ProbeTypeGrid represents a 3D lattice of diffuse irradiance samples
	// (an irradiance volume) used to relight dynamic surfaces. Each lattice
	// cell is baked separately into the irradiance atlas.
	ProbeTypeGrid
)

// FalloffType selects the shape of a probe's influence volume.
type FalloffType int

const (
	// FalloffElipsoid attenuates influence inside an ellipsoid defined by the
	// probe's transform scaled by its falloff distance.
	FalloffElipsoid FalloffType = iota

	// FalloffBox attenuates influence inside an oriented box defined by the
	// probe's transform scaled by its falloff distance.
	FalloffBox
)

// probeImpl is the implementation of the Probe interface.
type probeImpl struct {
	probeType ProbeType

	transform [16]float32 // placement model matrix, column-major

	falloffType     FalloffType
	falloffDistance float32
	falloff         float32 // blend fraction of the influence volume

	customParallax   bool
	parallaxType     FalloffType
	parallaxDistance float32

	clipNear float32
	clipFar  float32

	resolution [3]int32 // grid only

	showData bool
	drawSize float32

	dirty bool

	state EngineState
}

// Probe defines the interface for a light probe in the scene.
//
// A probe is either a cube (reflection) probe or a grid (irradiance volume)
// probe; type-specific properties return zero values when not applicable.
// Probes are registered with the light-probe pipeline each frame and carry an
// engine-private EngineState that tracks their bake progress. The owning
// scene object marks the probe dirty whenever its transform or parameters
// change, which forces a re-bake on a later frame.
type Probe interface {
	// Type returns the kind of probe.
	//
	// Returns:
	//   - ProbeType: cube or grid
	Type() ProbeType

	// Transform returns the probe's placement model matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the placement transform
	Transform() [16]float32

	// Position returns the world-space position of the probe, i.e. the
	// translation column of its placement transform.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// FalloffType returns the shape of the probe's influence volume.
	//
	// Returns:
	//   - FalloffType: ellipsoid or box
	FalloffType() FalloffType

	// FalloffDistance returns the influence distance scaling the probe's
	// transform into its attenuation volume.
	//
	// Returns:
	//   - float32: the influence distance
	FalloffDistance() float32

	// Falloff returns the blend fraction of the influence volume over which
	// the probe's contribution fades to zero.
	//
	// Returns:
	//   - float32: the falloff fraction
	Falloff() float32

	// CustomParallax returns whether the probe uses a parallax volume distinct
	// from its attenuation volume. Meaningless for grid probes.
	//
	// Returns:
	//   - bool: true if a custom parallax volume is set
	CustomParallax() bool

	// ParallaxType returns the shape of the custom parallax volume.
	// Only meaningful when CustomParallax is true.
	//
	// Returns:
	//   - FalloffType: ellipsoid or box
	ParallaxType() FalloffType

	// ParallaxDistance returns the distance scaling the probe's transform into
	// its parallax-correction volume. Only meaningful when CustomParallax is true.
	//
	// Returns:
	//   - float32: the parallax distance
	ParallaxDistance() float32

	// ClipNear returns the near clip distance used when capturing the scene
	// from this probe.
	//
	// Returns:
	//   - float32: the near clip distance
	ClipNear() float32

	// ClipFar returns the far clip distance used when capturing the scene
	// from this probe.
	//
	// Returns:
	//   - float32: the far clip distance
	ClipFar() float32

	// Resolution returns the grid cell resolution (nx, ny, nz).
	// Meaningless for cube probes.
	//
	// Returns:
	//   - [3]int32: cells along each axis
	Resolution() [3]int32

	// ShowData returns whether the probe's baked data should be drawn as a
	// debug overlay.
	//
	// Returns:
	//   - bool: true if the debug display is enabled
	ShowData() bool

	// DrawSize returns the radius of the debug display spheres.
	//
	// Returns:
	//   - float32: the debug sphere radius
	DrawSize() float32

	// Dirty returns whether the owning object changed since the probe was
	// last consumed by the pipeline. The registry clears the mark when it
	// picks the change up.
	//
	// Returns:
	//   - bool: true if a re-bake is pending pickup
	Dirty() bool

	// State returns the engine-private bake state for this probe. The state
	// is owned by the probe but only mutated by the light-probe pipeline.
	//
	// Returns:
	//   - *EngineState: the mutable engine state
	State() *EngineState

	// SetTransform replaces the placement transform and marks the probe dirty.
	//
	// Parameters:
	//   - m: the new placement model matrix (column-major)
	SetTransform(m [16]float32)

	// SetFalloffDistance sets the influence distance and marks the probe dirty.
	//
	// Parameters:
	//   - d: the influence distance
	SetFalloffDistance(d float32)

	// SetFalloff sets the influence blend fraction and marks the probe dirty.
	//
	// Parameters:
	//   - f: the falloff fraction
	SetFalloff(f float32)

	// SetClipRange sets the capture near/far clip distances and marks the
	// probe dirty.
	//
	// Parameters:
	//   - near: the near clip distance
	//   - far: the far clip distance
	SetClipRange(near, far float32)

	// SetShowData enables or disables the debug display for this probe.
	//
	// Parameters:
	//   - show: true to draw the baked data overlay
	SetShowData(show bool)

	// ClearDirty clears the pending-change mark. Called by the registry once
	// the change has been folded into the probe's bake state.
	ClearDirty()
}

var _ Probe = &probeImpl{}

// NewProbe creates a new Probe of the specified type with sensible defaults
// and any provided options applied. New probes start dirty so their first
// registration schedules a bake.
//
// Parameters:
//   - probeType: the kind of probe to create (cube or grid)
//   - opts: variadic list of ProbeBuilderOption functions to configure the probe
//
// Returns:
//   - Probe: a new Probe instance
func NewProbe(probeType ProbeType, opts ...ProbeBuilderOption) Probe {
	p := &probeImpl{
		probeType:        probeType,
		falloffType:      FalloffElipsoid,
		falloffDistance:  2.5,
		falloff:          0.25,
		parallaxType:     FalloffElipsoid,
		parallaxDistance: 2.5,
		clipNear:         0.8,
		clipFar:          40.0,
		resolution:       [3]int32{4, 4, 4},
		drawSize:         0.1,
		dirty:            true,
	}
	Identity16(&p.transform)
	for _, opt := range opts {
		opt(p)
	}
	p.state.NumCell = int(p.resolution[0] * p.resolution[1] * p.resolution[2])
	return p
}

// Identity16 resets a fixed-size 4x4 matrix to the identity matrix.
//
// Parameters:
//   - m: the matrix to reset
func Identity16(m *[16]float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

func (p *probeImpl) Type() ProbeType {
	return p.probeType
}

func (p *probeImpl) Transform() [16]float32 {
	return p.transform
}

func (p *probeImpl) Position() [3]float32 {
	return [3]float32{p.transform[12], p.transform[13], p.transform[14]}
}

func (p *probeImpl) FalloffType() FalloffType {
	return p.falloffType
}

func (p *probeImpl) FalloffDistance() float32 {
	return p.falloffDistance
}

func (p *probeImpl) Falloff() float32 {
	return p.falloff
}

func (p *probeImpl) CustomParallax() bool {
	return p.customParallax
}

func (p *probeImpl) ParallaxType() FalloffType {
	return p.parallaxType
}

func (p *probeImpl) ParallaxDistance() float32 {
	return p.parallaxDistance
}

func (p *probeImpl) ClipNear() float32 {
	return p.clipNear
}

func (p *probeImpl) ClipFar() float32 {
	return p.clipFar
}

func (p *probeImpl) Resolution() [3]int32 {
	return p.resolution
}

func (p *probeImpl) ShowData() bool {
	return p.showData
}

func (p *probeImpl) DrawSize() float32 {
	return p.drawSize
}

func (p *probeImpl) Dirty() bool {
	return p.dirty
}

func (p *probeImpl) State() *EngineState {
	return &p.state
}

func (p *probeImpl) SetTransform(m [16]float32) {
	p.transform = m
	p.dirty = true
}

func (p *probeImpl) SetFalloffDistance(d float32) {
	p.falloffDistance = d
	p.dirty = true
}

func (p *probeImpl) SetFalloff(f float32) {
	p.falloff = f
	p.dirty = true
}

func (p *probeImpl) SetClipRange(near, far float32) {
	p.clipNear = near
	p.clipFar = far
	p.dirty = true
}

func (p *probeImpl) SetShowData(show bool) {
	p.showData = show
}

func (p *probeImpl) ClearDirty() {
	p.dirty = false
}
