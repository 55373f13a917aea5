package lightprobe

import (
	"fmt"
	"testing"

	"github.com/lumen-engine/lumen-go/engine/probe"
)

// fakeTexture is a recording Texture handle.
type fakeTexture struct {
	label    string
	format   TextureFormat
	width    int
	height   int
	layers   int
	cube     bool
	mipped   bool
	released bool
}

func (t *fakeTexture) Release() { t.released = true }

// fakeBuffer is a recording UniformBuffer handle.
type fakeBuffer struct {
	size     int
	data     []byte
	uploads  int
	released bool
}

func (b *fakeBuffer) Release() { b.released = true }

// fakeFramebuffer tracks one color and one depth attachment plus the active
// viewport rectangle, mirroring how the real backend resolves attachments.
type fakeFramebuffer struct {
	label      string
	color      Texture
	colorMip   int
	colorLayer int
	depth      Texture
	viewport   [4]int
}

// filterDraw records one DrawFilter invocation with the framebuffer state it
// saw at draw time.
type filterDraw struct {
	kind     FilterKind
	params   FilterParameters
	viewport [4]int
	target   Texture
	mip      int
	layer    int
}

type clearRecord struct {
	color      [4]float32
	clearColor bool
	clearDepth bool
	depth      float32
}

// fakeBackend is a recording Backend for driving the pipeline without a GPU.
type fakeBackend struct {
	textures   []*fakeTexture
	arrayTexes []*fakeTexture
	tex1D      *fakeTexture
	tex1DData  []byte
	buffers    []*fakeBuffer

	draws       []filterDraw
	clears      []clearRecord
	mipmapCalls int

	// faceAttaches counts AttachCubeFace calls per texture format so capture
	// sequencing can be asserted.
	colorFaceAttaches int
	depthFaceAttaches int
}

var _ Backend = &fakeBackend{}

func (b *fakeBackend) newTexture(label string, format TextureFormat, w, h, layers int, cube, mipped bool) *fakeTexture {
	t := &fakeTexture{
		label:  label,
		format: format,
		width:  w,
		height: h,
		layers: layers,
		cube:   cube,
		mipped: mipped,
	}
	b.textures = append(b.textures, t)
	return t
}

func (b *fakeBackend) CreateCubemap(size int, format TextureFormat, mipmapped bool) (Texture, error) {
	return b.newTexture("cubemap", format, size, size, 6, true, mipmapped), nil
}

func (b *fakeBackend) CreateTexture2D(width, height int, format TextureFormat) (Texture, error) {
	return b.newTexture("tex2d", format, width, height, 1, false, false), nil
}

func (b *fakeBackend) CreateTextureArray(width, height, layers int, format TextureFormat, mipmapped bool) (Texture, error) {
	t := b.newTexture("array", format, width, height, layers, false, mipmapped)
	b.arrayTexes = append(b.arrayTexes, t)
	return t, nil
}

func (b *fakeBackend) CreateTexture1D(width int, format TextureFormat, pixels []byte) (Texture, error) {
	t := b.newTexture("tex1d", format, width, 1, 1, false, false)
	b.tex1D = t
	b.tex1DData = pixels
	return t, nil
}

func (b *fakeBackend) CreateFramebuffer(label string) Framebuffer {
	return &fakeFramebuffer{label: label}
}

func (b *fakeBackend) AttachColor(fb Framebuffer, tex Texture, mip, layer int) {
	f := fb.(*fakeFramebuffer)
	if ft, ok := tex.(*fakeTexture); ok && ft.format == FormatDepth24 {
		f.depth = tex
		return
	}
	f.color = tex
	f.colorMip = mip
	f.colorLayer = layer
}

func (b *fakeBackend) AttachCubeFace(fb Framebuffer, tex Texture, mip, face int) {
	if ft, ok := tex.(*fakeTexture); ok && ft.format == FormatDepth24 {
		b.depthFaceAttaches++
	} else {
		b.colorFaceAttaches++
	}
	b.AttachColor(fb, tex, mip, face)
}

func (b *fakeBackend) Detach(fb Framebuffer, tex Texture) {
	f := fb.(*fakeFramebuffer)
	if f.color == tex {
		f.color = nil
	}
	if f.depth == tex {
		f.depth = nil
	}
}

func (b *fakeBackend) Viewport(fb Framebuffer, x, y, width, height int) {
	fb.(*fakeFramebuffer).viewport = [4]int{x, y, width, height}
}

func (b *fakeBackend) Clear(fb Framebuffer, color [4]float32, clearColor, clearDepth bool, depth float32) {
	b.clears = append(b.clears, clearRecord{color: color, clearColor: clearColor, clearDepth: clearDepth, depth: depth})
}

func (b *fakeBackend) GenerateMipmaps(tex Texture) {
	b.mipmapCalls++
}

func (b *fakeBackend) CreateUniformBuffer(size int) (UniformBuffer, error) {
	buf := &fakeBuffer{size: size}
	b.buffers = append(b.buffers, buf)
	return buf, nil
}

func (b *fakeBackend) UploadUniform(buf UniformBuffer, data []byte) {
	fb := buf.(*fakeBuffer)
	fb.data = append(fb.data[:0], data...)
	fb.uploads++
}

func (b *fakeBackend) DrawFilter(fb Framebuffer, kind FilterKind, params *FilterParameters, src Texture) {
	f := fb.(*fakeFramebuffer)
	b.draws = append(b.draws, filterDraw{
		kind:     kind,
		params:   *params,
		viewport: f.viewport,
		target:   f.color,
		mip:      f.colorMip,
		layer:    f.colorLayer,
	})
}

func (b *fakeBackend) ReleaseTexture(tex Texture) {
	if tex != nil {
		tex.Release()
	}
}

// glossyDraws returns the recorded draws of the glossy kind, in order.
func (b *fakeBackend) glossyDraws() []filterDraw {
	return b.drawsOf(FilterGlossy)
}

// diffuseDraws returns the recorded draws of the diffuse kind, in order.
func (b *fakeBackend) diffuseDraws() []filterDraw {
	return b.drawsOf(FilterDiffuse)
}

func (b *fakeBackend) drawsOf(kind FilterKind) []filterDraw {
	var out []filterDraw
	for _, d := range b.draws {
		if d.kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// passCall records one render-pass invocation with a copy of its context.
type passCall struct {
	method string
	ctx    PassContext
}

// fakePasses is a recording PassProvider. The optional onDraw hook observes
// pipeline state mid-capture, which is the only window where probe hiding is
// visible.
type fakePasses struct {
	calls  []passCall
	onDraw func(method string, ctx *PassContext)
}

var _ PassProvider = &fakePasses{}

func (p *fakePasses) record(method string, ctx *PassContext) {
	p.calls = append(p.calls, passCall{method: method, ctx: *ctx})
	if p.onDraw != nil {
		p.onDraw(method, ctx)
	}
}

func (p *fakePasses) DrawWorldBackground(ctx *PassContext)    { p.record("worldBackground", ctx) }
func (p *fakePasses) DrawBackground(ctx *PassContext)         { p.record("background", ctx) }
func (p *fakePasses) DrawDepthPrepass(ctx *PassContext)       { p.record("depth", ctx) }
func (p *fakePasses) DrawDepthPrepassCulled(ctx *PassContext) { p.record("depthCulled", ctx) }
func (p *fakePasses) DrawOpaque(ctx *PassContext)             { p.record("opaque", ctx) }
func (p *fakePasses) DrawMaterials(ctx *PassContext)          { p.record("materials", ctx) }

// count returns how many times the named pass ran.
func (p *fakePasses) count(method string) int {
	n := 0
	for _, c := range p.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

// fakeViewportContext reports configurable interaction state.
type fakeViewportContext struct {
	navigating bool
	playing    bool
}

func (v *fakeViewportContext) Navigating() bool       { return v.navigating }
func (v *fakeViewportContext) AnimationPlaying() bool { return v.playing }

// newTestPipeline builds an initialized pipeline over fresh fakes.
func newTestPipeline(t *testing.T, options ...PipelineBuilderOption) (Pipeline, *fakeBackend, *fakePasses) {
	t.Helper()
	backend := &fakeBackend{}
	passes := &fakePasses{}
	p := NewPipeline(backend, passes, options...)
	if err := p.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p, backend, passes
}

// frame runs one registration frame: BeginFrame, Register each probe, EndFrame.
func frame(t *testing.T, p Pipeline, probes ...probe.Probe) {
	t.Helper()
	p.BeginFrame()
	for _, pr := range probes {
		p.Register(pr)
	}
	if err := p.EndFrame(); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
}

// stepUntilIdle runs frame+Step cycles until Step reports no work, returning
// the number of performed bake units. Fails the test if the bake does not
// converge within limit steps.
func stepUntilIdle(t *testing.T, p Pipeline, limit int, probes ...probe.Probe) int {
	t.Helper()
	baked := 0
	for i := 0; i < limit; i++ {
		frame(t, p, probes...)
		if !p.Step() {
			return baked
		}
		baked++
	}
	t.Fatalf("bake did not converge within %d steps", limit)
	return baked
}

// approx fails unless got is within tol of want.
func approx(t *testing.T, name string, got, want, tol float32) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > tol {
		t.Errorf("%s = %v, want %v (tol %v)", name, got, want, tol)
	}
}

// vecApprox fails unless each component of got is within tol of want.
func vecApprox(t *testing.T, name string, got, want [3]float32, tol float32) {
	t.Helper()
	for i := range got {
		approx(t, fmt.Sprintf("%s[%d]", name, i), got[i], want[i], tol)
	}
}
