package lightprobe

import "github.com/lumen-engine/lumen-go/common"

// captureScene renders the scene into the capture cubemap from the given
// world position, one face at a time. Face-by-face instead of layered
// rendering: it is faster and keeps view dependent material effects correct.
// Specular shading is disabled for the whole capture so a probe can never
// feed its own reflection back into itself.
func (p *pipelineImpl) captureScene(pos [3]float32, clipNear, clipFar float32) {
	pool := p.pool

	var ctx PassContext
	ctx.SpecularEnabled = false
	ctx.Layer = 0
	common.Frustum(ctx.Win[:], -clipNear, clipNear, -clipNear, clipNear, clipNear, clipFar)

	// Detach to rebind one cubeface at a time.
	p.backend.Detach(pool.captureFB, pool.captureColor)
	p.backend.Detach(pool.captureFB, pool.captureDepth)

	for face := 0; face < 6; face++ {
		p.backend.AttachCubeFace(pool.captureFB, pool.captureColor, 0, face)
		p.backend.AttachCubeFace(pool.captureFB, pool.captureDepth, 0, face)
		p.backend.Viewport(pool.captureFB, 0, 0, ProbeRTSize, ProbeRTSize)

		p.backend.Clear(pool.captureFB, [4]float32{1.0, 0.0, 0.0, 1.0}, true, true, 1.0)

		common.CubeFaceView(ctx.View[:], face, pos[0], pos[1], pos[2])
		common.Mul4(ctx.Pers[:], ctx.Win[:], ctx.View[:])
		common.Invert4(ctx.PersInv[:], ctx.Pers[:])
		common.Invert4(ctx.ViewInv[:], ctx.View[:])

		p.passes.DrawBackground(&ctx)

		// Depth prepass
		p.passes.DrawDepthPrepass(&ctx)
		p.passes.DrawDepthPrepassCulled(&ctx)

		// Shading pass
		p.passes.DrawOpaque(&ctx)
		p.passes.DrawMaterials(&ctx)

		p.backend.Detach(pool.captureFB, pool.captureColor)
		p.backend.Detach(pool.captureFB, pool.captureDepth)
	}

	p.backend.AttachCubeFace(pool.captureFB, pool.captureColor, 0, 0)
	p.backend.AttachCubeFace(pool.captureFB, pool.captureDepth, 0, 0)
}

// captureWorld renders the world background into every face of the capture
// cubemap in a single layered draw. No clear is needed since the background
// covers the whole target.
func (p *pipelineImpl) captureWorld() {
	var ctx PassContext
	ctx.Layer = 0
	p.backend.Viewport(p.pool.captureFB, 0, 0, ProbeRTSize, ProbeRTSize)
	p.passes.DrawWorldBackground(&ctx)
}
