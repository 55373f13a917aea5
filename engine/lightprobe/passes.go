package lightprobe

// PassProvider is the render-pass capability the capture renderer consumes.
// The surrounding engine owns the actual draw lists; the pipeline only
// sequences them per cubeface, forcing the viewpoint and specular state
// through the PassContext on every call.
//
// DrawWorldBackground renders the world/background material once into all six
// faces of the capture target using layered geometry expansion (one instance
// per face), so it takes no view override. When the world material failed to
// compile the provider must draw a flat magenta fallback instead of
// returning: a broken world shows up pink, it does not abort the frame.
type PassProvider interface {
	// DrawWorldBackground renders the world background into every face of the
	// bound capture target via layered expansion.
	//
	// Parameters:
	//   - ctx: the pass context (layer 0, no view override)
	DrawWorldBackground(ctx *PassContext)

	// DrawBackground renders the background for one capture face.
	//
	// Parameters:
	//   - ctx: the pass context carrying the face's forced matrices
	DrawBackground(ctx *PassContext)

	// DrawDepthPrepass renders the non-culled depth prepass for one face.
	//
	// Parameters:
	//   - ctx: the pass context carrying the face's forced matrices
	DrawDepthPrepass(ctx *PassContext)

	// DrawDepthPrepassCulled renders the backface-culled depth prepass for
	// one face.
	//
	// Parameters:
	//   - ctx: the pass context carrying the face's forced matrices
	DrawDepthPrepassCulled(ctx *PassContext)

	// DrawOpaque renders the default opaque shading passes for one face.
	//
	// Parameters:
	//   - ctx: the pass context carrying the face's forced matrices
	DrawOpaque(ctx *PassContext)

	// DrawMaterials renders the material shading pass for one face.
	//
	// Parameters:
	//   - ctx: the pass context carrying the face's forced matrices
	DrawMaterials(ctx *PassContext)
}

// ViewportContext reports whether the user is interacting with the viewport.
// The scheduler defers bake work while either query is true; deferred work is
// never lost, only resumed on a later frame.
type ViewportContext interface {
	// Navigating returns true while the viewport camera is being manipulated.
	//
	// Returns:
	//   - bool: true if navigation input is active
	Navigating() bool

	// AnimationPlaying returns true while animation playback is scrubbing the
	// scene.
	//
	// Returns:
	//   - bool: true if playback is active
	AnimationPlaying() bool
}
