package probe

import "github.com/lumen-engine/lumen-go/common"

// ProbeBuilderOption is a function that configures a Probe instance during construction.
type ProbeBuilderOption func(*probeImpl)

// WithTransform is an option builder that sets the probe's placement model matrix.
//
// Parameters:
//   - m: the placement transform (column-major)
//
// Returns:
//   - ProbeBuilderOption: a function that applies the transform option to a probeImpl
func WithTransform(m [16]float32) ProbeBuilderOption {
	return func(p *probeImpl) {
		p.transform = m
	}
}

// WithPosition is an option builder that sets the probe's placement to a pure
// translation at the given world-space position.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - ProbeBuilderOption: a function that applies the position option to a probeImpl
func WithPosition(x, y, z float32) ProbeBuilderOption {
	return func(p *probeImpl) {
		Identity16(&p.transform)
		p.transform[12], p.transform[13], p.transform[14] = x, y, z
	}
}

// WithFalloff is an option builder that sets the influence volume shape,
// distance, and blend fraction. Zero values fall back to the probe defaults.
//
// Parameters:
//   - falloffType: the influence volume shape
//   - distance: the influence distance (0 keeps the default)
//   - falloff: the blend fraction (0 keeps the default)
//
// Returns:
//   - ProbeBuilderOption: a function that applies the falloff option to a probeImpl
func WithFalloff(falloffType FalloffType, distance, falloff float32) ProbeBuilderOption {
	return func(p *probeImpl) {
		p.falloffType = falloffType
		p.falloffDistance = common.Coalesce(distance, p.falloffDistance)
		p.falloff = common.Coalesce(falloff, p.falloff)
	}
}

// WithCustomParallax is an option builder that gives the probe a parallax
// volume distinct from its attenuation volume. Only meaningful for cube probes.
//
// Parameters:
//   - parallaxType: the parallax volume shape
//   - distance: the parallax distance
//
// Returns:
//   - ProbeBuilderOption: a function that applies the parallax option to a probeImpl
func WithCustomParallax(parallaxType FalloffType, distance float32) ProbeBuilderOption {
	return func(p *probeImpl) {
		p.customParallax = true
		p.parallaxType = parallaxType
		p.parallaxDistance = distance
	}
}

// WithClipRange is an option builder that sets the capture near/far clip distances.
//
// Parameters:
//   - near: the near clip distance
//   - far: the far clip distance
//
// Returns:
//   - ProbeBuilderOption: a function that applies the clip range option to a probeImpl
func WithClipRange(near, far float32) ProbeBuilderOption {
	return func(p *probeImpl) {
		p.clipNear = near
		p.clipFar = far
	}
}

// WithResolution is an option builder that sets the grid cell resolution.
// Only meaningful for grid probes; each component is clamped to at least 1.
//
// Parameters:
//   - nx: cells along the x axis
//   - ny: cells along the y axis
//   - nz: cells along the z axis
//
// Returns:
//   - ProbeBuilderOption: a function that applies the resolution option to a probeImpl
func WithResolution(nx, ny, nz int32) ProbeBuilderOption {
	return func(p *probeImpl) {
		p.resolution = [3]int32{max(nx, 1), max(ny, 1), max(nz, 1)}
	}
}

// WithShowData is an option builder that enables the debug display of the
// probe's baked data.
//
// Parameters:
//   - drawSize: the debug sphere radius (0 keeps the default)
//
// Returns:
//   - ProbeBuilderOption: a function that applies the debug display option to a probeImpl
func WithShowData(drawSize float32) ProbeBuilderOption {
	return func(p *probeImpl) {
		p.showData = true
		p.drawSize = common.Coalesce(drawSize, p.drawSize)
	}
}
