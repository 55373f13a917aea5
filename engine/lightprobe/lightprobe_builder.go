package lightprobe

// PipelineBuilderOption is a function that modifies the pipeline being built.
type PipelineBuilderOption func(*pipelineImpl)

// WithViewportContext attaches the viewport interaction state the scheduler
// consults before spending a bake unit. Without one the pipeline assumes the
// viewport is idle and always works.
//
// Parameters:
//   - vc: the viewport context to consult
//
// Returns:
//   - PipelineBuilderOption: the option to apply
func WithViewportContext(vc ViewportContext) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.viewport = vc
	}
}

// WithRedrawRequest sets the callback invoked whenever bake work remains, so
// the host keeps scheduling frames until the bake settles.
//
// Parameters:
//   - fn: the redraw request callback
//
// Returns:
//   - PipelineBuilderOption: the option to apply
func WithRedrawRequest(fn func()) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.requestRedraw = fn
	}
}

// WithIrradianceFormat selects the irradiance representation for the atlas.
// The choice is fixed for the pipeline's lifetime.
//
// Parameters:
//   - f: the irradiance representation
//
// Returns:
//   - PipelineBuilderOption: the option to apply
func WithIrradianceFormat(f IrradianceFormat) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.irradianceFormat = f
	}
}

// WithTransformWorkers overrides the worker count used for parallel probe
// transform updates. Values below 1 are clamped to 1.
//
// Parameters:
//   - workers: the number of workers
//
// Returns:
//   - PipelineBuilderOption: the option to apply
func WithTransformWorkers(workers int) PipelineBuilderOption {
	return func(p *pipelineImpl) {
		p.transformWorkers = max(workers, 1)
	}
}
