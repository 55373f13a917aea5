package lightprobe

import "math"

// minLodLevel is the lowest glossy mip kept in the probe pool. Levels below
// it are too small to carry useful detail after octahedral padding.
const minLodLevel = 3

// glossyFilterProbe prefilters the capture cubemap into layer probeIdx of the
// octahedral probe pool, one GGX roughness per mip level.
func (p *pipelineImpl) glossyFilterProbe(probeIdx int) {
	info := p.info
	pool := p.pool

	// Let the GPU build the capture mip chain for filtered importance
	// sampling.
	p.backend.GenerateMipmaps(pool.captureColor)

	// Detach to rebind the right mipmap.
	p.backend.Detach(pool.filterFB, pool.probePool)

	mipsize := float32(ProbeOctahedronSize)
	maxlevel := int(math.Floor(math.Log2(ProbeOctahedronSize)))
	for i := 0; i < maxlevel-minLodLevel; i++ {
		bias := float32(1.0)
		if i == 0 {
			bias = 0.0
		}
		info.TexelSize = 1.0 / mipsize
		info.PaddingSize = float32(math.Pow(2, float64(maxlevel-minLodLevel-1-i)))
		// The octahedral border is wrong without these corrections. Float
		// precision issue in the padding shader math, cause never found.
		if info.PaddingSize > 32 {
			info.PaddingSize += 5
		}
		if info.PaddingSize > 16 {
			info.PaddingSize += 4
		} else if info.PaddingSize > 8 {
			info.PaddingSize += 2
		} else if info.PaddingSize > 4 {
			info.PaddingSize += 1
		}
		info.Layer = int32(probeIdx)
		info.Roughness = float32(i) / (float32(maxlevel) - 4.0)
		info.Roughness *= info.Roughness // Disney roughness
		info.Roughness *= info.Roughness // distribute roughness across lods more evenly
		info.Roughness = min(max(info.Roughness, 1e-8), 0.99999)

		// Variable sample count: low roughness converges with few samples.
		switch i {
		case 0:
			info.SamplesCt = 1.0
		case 1:
			info.SamplesCt = 16.0
		case 2:
			info.SamplesCt = 32.0
		case 3:
			info.SamplesCt = 64.0
		default:
			info.SamplesCt = 128.0
		}

		info.InvSamples = 1.0 / info.SamplesCt
		info.LodFactor = bias + 0.5*float32(math.Log2(float64(ProbeRTSize*ProbeRTSize)*float64(info.InvSamples)))
		info.LodMax = float32(math.Floor(math.Log2(ProbeRTSize))) - 2.0

		p.backend.AttachColor(pool.filterFB, pool.probePool, i, 0)
		p.backend.Viewport(pool.filterFB, 0, 0, int(mipsize), int(mipsize))
		p.backend.DrawFilter(pool.filterFB, FilterGlossy, p.filterParams(), pool.captureColor)
		p.backend.Detach(pool.filterFB, pool.probePool)

		mipsize /= 2
		mipsize = max(mipsize, 1)
	}
	// For shading, save the max level of the octahedral map.
	info.LodMax = float32(maxlevel-minLodLevel) - 1.0

	// Reattach to keep a valid framebuffer.
	p.backend.AttachColor(pool.filterFB, pool.probePool, 0, 0)
}

// diffuseFilterProbe convolves the capture cubemap into one irradiance cell
// of the bake atlas. offset is the cell index in the atlas (offset 0 is the
// world cell).
func (p *pipelineImpl) diffuseFilterProbe(offset int) {
	info := p.info
	pool := p.pool

	lodmax := info.LodMax

	p.backend.GenerateMipmaps(pool.captureColor)

	p.backend.Detach(pool.filterFB, pool.probePool)
	p.backend.AttachColor(pool.filterFB, pool.BakeAtlas(), 0, 0)

	// Cell position on the virtual 3D texture. Keep in sync with the
	// irradiance fetch in the shading shaders.
	sx, sy := p.irradianceFormat.CellSize()
	cellPerRow := IrradiancePoolSize / sx
	x := sx * (offset % cellPerRow)
	y := sy * (offset / cellPerRow)

	if p.irradianceFormat == IrradianceSHL2 {
		info.SHRes = 32 // fewer texture fetches, fewer branches
		info.LodMax = 2.0
	} else {
		info.SamplesCt = 1024.0
		info.InvSamples = 1.0 / info.SamplesCt
		info.LodFactor = 0.5 * float32(math.Log2(float64(ProbeRTSize*ProbeRTSize)*float64(info.InvSamples)))
		info.LodMax = float32(math.Floor(math.Log2(ProbeRTSize))) - 2.0
	}

	p.backend.Viewport(pool.filterFB, x, y, sx, sy)
	p.backend.DrawFilter(pool.filterFB, FilterDiffuse, p.filterParams(), pool.captureColor)

	// Reattach to keep a valid framebuffer.
	p.backend.Detach(pool.filterFB, pool.BakeAtlas())
	p.backend.AttachColor(pool.filterFB, pool.probePool, 0, 0)

	info.LodMax = lodmax
}

// filterParams snapshots the scratch filter state into the uniform block for
// one filter draw.
func (p *pipelineImpl) filterParams() *FilterParameters {
	info := p.info
	return &FilterParameters{
		Roughness:      info.Roughness,
		SampleCount:    info.SamplesCt,
		InvSampleCount: info.InvSamples,
		LodFactor:      info.LodFactor,
		LodMax:         info.LodMax,
		TexelSize:      info.TexelSize,
		PaddingSize:    info.PaddingSize,
		Layer:          info.Layer,
		SHRes:          info.SHRes,
	}
}
