package lightprobe

// resourcePool owns the baking textures and framebuffers: the cubemap capture
// target, the filtered glossy probe array, and the ping-pong irradiance
// atlas pair. Allocation is lazy and idempotent; structural reallocations set
// the reset flags so the pipeline can re-dirty whatever the old contents
// backed.
type resourcePool struct {
	backend          Backend
	irradianceFormat IrradianceFormat

	// Capture side: the HDR cubemap the scene is rendered into, its depth
	// cubemap, and the framebuffer binding them.
	captureColor Texture
	captureDepth Texture
	captureFB    Framebuffer

	// Filter side: the octahedral probe array, the framebuffer used for
	// filtering into it, and the layer count it was allocated for.
	probePool     Texture
	filterFB      Framebuffer
	probePoolSize int

	// Irradiance atlases, ping-pong. irradiance[current] is the buffer
	// shading reads from; the other is the bake destination.
	irradiance [2]Texture
	current    int

	probePoolReset  bool
	irradianceReset bool
}

func newResourcePool(backend Backend, format IrradianceFormat) *resourcePool {
	return &resourcePool{
		backend:          backend,
		irradianceFormat: format,
	}
}

// EnsureCaptureTargets allocates the cubemap capture target, its depth
// buffer and the capture framebuffer. Idempotent; these never resize.
func (rp *resourcePool) EnsureCaptureTargets() error {
	if rp.captureColor != nil {
		return nil
	}

	var err error
	rp.captureColor, err = rp.backend.CreateCubemap(ProbeRTSize, FormatRGBA16F, true)
	if err != nil {
		return err
	}
	rp.captureDepth, err = rp.backend.CreateCubemap(ProbeRTSize, FormatDepth24, false)
	if err != nil {
		return err
	}

	rp.captureFB = rp.backend.CreateFramebuffer("probe capture")
	rp.backend.AttachCubeFace(rp.captureFB, rp.captureDepth, 0, 0)
	rp.backend.AttachCubeFace(rp.captureFB, rp.captureColor, 0, 0)
	return nil
}

// EnsureProbePool sizes the glossy probe array for numCube layers. The array
// is only reallocated when the layer count changes, which discards every
// filtered result; probePoolReset is set so the caller re-dirties all
// reflection probes.
//
// Parameters:
//   - numCube: the number of layers needed, including the world layer
//
// Returns:
//   - error: an error if allocation fails
func (rp *resourcePool) EnsureProbePool(numCube int) error {
	if rp.probePool != nil && rp.probePoolSize != numCube {
		rp.backend.ReleaseTexture(rp.probePool)
		rp.probePool = nil
	}

	if rp.probePool == nil {
		layers := max(numCube, 1)
		pool, err := rp.backend.CreateTextureArray(ProbeOctahedronSize, ProbeOctahedronSize, layers, FormatR11G11B10F, true)
		if err != nil {
			return err
		}
		rp.probePool = pool
		rp.probePoolSize = numCube
		rp.probePoolReset = true

		if rp.filterFB == nil {
			rp.filterFB = rp.backend.CreateFramebuffer("probe filter")
		}
		rp.backend.AttachColor(rp.filterFB, rp.probePool, 0, 0)
	}
	return nil
}

// EnsureIrradianceTargets allocates the ping-pong irradiance atlas pair.
// The atlases are fixed-size and shared by every grid; allocating them
// sets irradianceReset so the caller restarts every grid bake.
func (rp *resourcePool) EnsureIrradianceTargets() error {
	if rp.irradiance[0] != nil {
		return nil
	}

	format := rp.irradianceFormat.atlasFormat()
	for i := range rp.irradiance {
		tex, err := rp.backend.CreateTexture2D(IrradiancePoolSize, IrradiancePoolSize, format)
		if err != nil {
			return err
		}
		rp.irradiance[i] = tex
	}
	rp.current = 0
	rp.irradianceReset = true
	return nil
}

// DisplayAtlas returns the irradiance atlas shading currently reads from.
func (rp *resourcePool) DisplayAtlas() Texture {
	return rp.irradiance[rp.current]
}

// BakeAtlas returns the irradiance atlas bakes currently write to.
func (rp *resourcePool) BakeAtlas() Texture {
	return rp.irradiance[1-rp.current]
}

// SwapIrradiance exchanges the display and bake atlases.
func (rp *resourcePool) SwapIrradiance() {
	rp.current = 1 - rp.current
}

// Release frees every GPU texture the pool owns.
func (rp *resourcePool) Release() {
	rp.backend.ReleaseTexture(rp.captureColor)
	rp.backend.ReleaseTexture(rp.captureDepth)
	rp.backend.ReleaseTexture(rp.probePool)
	rp.backend.ReleaseTexture(rp.irradiance[0])
	rp.backend.ReleaseTexture(rp.irradiance[1])
	rp.captureColor = nil
	rp.captureDepth = nil
	rp.probePool = nil
	rp.irradiance[0] = nil
	rp.irradiance[1] = nil
	rp.captureFB = nil
	rp.filterFB = nil
	rp.probePoolSize = 0
}
