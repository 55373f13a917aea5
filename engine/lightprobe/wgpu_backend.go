package lightprobe

import (
	_ "embed"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/lumen-engine/lumen-go/common"
)

//go:embed assets/filter_lib.wgsl
var filterLibSource string

//go:embed assets/filter_glossy.wgsl
var filterGlossySource string

//go:embed assets/filter_diffuse.wgsl
var filterDiffuseSource string

//go:embed assets/downsample.wgsl
var downsampleSource string

//go:embed assets/fallback.wgsl
var fallbackSource string

// wgpuTexture is the backend handle for a texture plus the cached views the
// filter and downsample passes need.
type wgpuTexture struct {
	tex    *wgpu.Texture
	format wgpu.TextureFormat

	width  int
	height int
	layers int
	mips   int
	cube   bool

	// sampleView is the full-chain view bound when this texture is the
	// filter source.
	sampleView *wgpu.TextureView
}

var _ Texture = &wgpuTexture{}

func (t *wgpuTexture) Release() {
	if t.sampleView != nil {
		t.sampleView.Release()
		t.sampleView = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

// attachmentSpec records what AttachColor/AttachCubeFace bound: the texture
// plus the mip and layer (or face) the next draw targets. Views are created
// per draw since the filter's destination layer comes from its parameters.
type attachmentSpec struct {
	tex   *wgpuTexture
	mip   int
	layer int
}

// wgpuFramebuffer is a lightweight CPU-side binding of attachments plus the
// current viewport rectangle. Actual render passes are built per draw.
type wgpuFramebuffer struct {
	label    string
	color    *attachmentSpec
	depth    *attachmentSpec
	viewport [4]int
}

// gpuFilterParams is the GPU-aligned mirror of FilterParameters.
// Size: 48 bytes (std140 aligned).
type gpuFilterParams struct {
	Roughness      float32   // offset  0
	SampleCount    float32   // offset  4
	InvSampleCount float32   // offset  8
	LodFactor      float32   // offset 12
	LodMax         float32   // offset 16
	TexelSize      float32   // offset 20
	PaddingSize    float32   // offset 24
	Layer          int32     // offset 28
	SHRes          int32     // offset 32
	_pad0          [3]int32  // offset 36
}

func (g *gpuFilterParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

type filterPipelineKey struct {
	kind   FilterKind
	format wgpu.TextureFormat
}

type wgpuBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	filterSampler *wgpu.Sampler

	filterLayout     *wgpu.BindGroupLayout
	filterPipeLayout *wgpu.PipelineLayout
	filterUBO        *wgpu.Buffer

	downsampleLayout     *wgpu.BindGroupLayout
	downsamplePipeLayout *wgpu.PipelineLayout

	// Pipeline caches keyed by target format. A nil entry means the shader
	// failed to compile for that key and the fallback pipeline is used.
	filterPipelines     map[filterPipelineKey]*wgpu.RenderPipeline
	fallbackPipelines   map[wgpu.TextureFormat]*wgpu.RenderPipeline
	downsamplePipelines map[wgpu.TextureFormat]*wgpu.RenderPipeline

	// sampleTable is the low-discrepancy sequence texture. The pipeline
	// creates exactly one 1D texture, so the backend keeps the handle for the
	// filter bind groups.
	sampleTable *wgpuTexture
}

// WGPUBackend is the Backend implementation on cogentcore's WebGPU binding,
// exposing the underlying device handles so pass providers can share them.
type WGPUBackend interface {
	Backend

	// Device retrieves the wgpu device the backend allocates on.
	//
	// Returns:
	//   - *wgpu.Device: the device handle
	Device() *wgpu.Device

	// Queue retrieves the wgpu queue the backend submits on.
	//
	// Returns:
	//   - *wgpu.Queue: the queue handle
	Queue() *wgpu.Queue
}

var _ WGPUBackend = &wgpuBackendImpl{}

// NewWGPUBackend creates a light-probe Backend on an existing wgpu device and
// queue. Filter shaders are compiled lazily per target format; a shader that
// fails to compile degrades that filter to the flat-color fallback instead of
// failing the bake.
//
// Parameters:
//   - device: the wgpu device to allocate resources on (must not be nil)
//   - queue: the queue to submit work on (must not be nil)
//
// Returns:
//   - WGPUBackend: the backend
//   - error: an error if shared resources could not be created
func NewWGPUBackend(device *wgpu.Device, queue *wgpu.Queue) (WGPUBackend, error) {
	if device == nil || queue == nil {
		panic("lightprobe: NewWGPUBackend requires a non-nil device and queue")
	}

	b := &wgpuBackendImpl{
		mu:                  &sync.Mutex{},
		device:              device,
		queue:               queue,
		filterPipelines:     make(map[filterPipelineKey]*wgpu.RenderPipeline),
		fallbackPipelines:   make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
		downsamplePipelines: make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        "Probe Filter Sampler",
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
		LodMinClamp:  0.0,
		LodMaxClamp:  32.0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filter sampler: %w", err)
	}
	b.filterSampler = sampler

	var params gpuFilterParams
	b.filterUBO, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Filter Params Buffer",
		Size:  uint64(params.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filter uniform buffer: %w", err)
	}

	b.filterLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Filter Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(params.Size()),
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimensionCube,
				},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension1D,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filter bind group layout: %w", err)
	}

	b.filterPipeLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Filter Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.filterLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filter pipeline layout: %w", err)
	}

	b.downsampleLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Downsample Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create downsample bind group layout: %w", err)
	}

	b.downsamplePipeLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Downsample Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.downsampleLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create downsample pipeline layout: %w", err)
	}

	return b, nil
}

func (b *wgpuBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func textureFormatToWGPU(format TextureFormat) wgpu.TextureFormat {
	switch format {
	case FormatDepth24:
		return wgpu.TextureFormatDepth24Plus
	case FormatR11G11B10F:
		return wgpu.TextureFormatRG11B10Ufloat
	case FormatRG16F:
		return wgpu.TextureFormatRG16Float
	default:
		return wgpu.TextureFormatRGBA16Float
	}
}

func mipCount(size int) int {
	return int(math.Floor(math.Log2(float64(size)))) + 1
}

func (b *wgpuBackendImpl) CreateCubemap(size int, format TextureFormat, mipmapped bool) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mips := 1
	if mipmapped {
		mips = mipCount(size)
	}
	return b.createTexture("Probe Cubemap", size, size, 6, mips, format, true)
}

func (b *wgpuBackendImpl) CreateTexture2D(width, height int, format TextureFormat) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.createTexture("Probe Texture", width, height, 1, 1, format, false)
}

func (b *wgpuBackendImpl) CreateTextureArray(width, height, layers int, format TextureFormat, mipmapped bool) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mips := 1
	if mipmapped {
		mips = mipCount(min(width, height))
	}
	return b.createTexture("Probe Array", width, height, layers, mips, format, false)
}

func (b *wgpuBackendImpl) createTexture(label string, width, height, layers, mips int, format TextureFormat, cube bool) (*wgpuTexture, error) {
	wf := textureFormatToWGPU(format)

	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: uint32(layers),
		},
		MipLevelCount: uint32(mips),
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wf,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}

	t := &wgpuTexture{
		tex:    tex,
		format: wf,
		width:  width,
		height: height,
		layers: layers,
		mips:   mips,
		cube:   cube,
	}

	if cube && format != FormatDepth24 {
		t.sampleView, err = tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           label + " Cube View",
			Format:          wf,
			Dimension:       wgpu.TextureViewDimensionCube,
			BaseMipLevel:    0,
			MipLevelCount:   uint32(mips),
			BaseArrayLayer:  0,
			ArrayLayerCount: 6,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			tex.Release()
			return nil, fmt.Errorf("failed to create cube view for %q: %w", label, err)
		}
	}

	return t, nil
}

func (b *wgpuBackendImpl) CreateTexture1D(width int, format TextureFormat, pixels []byte) (Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wf := textureFormatToWGPU(format)
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Sample Table",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             1,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension1D,
		Format:        wf,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create 1D texture: %w", err)
	}

	// Incoming pixels are packed float32 components; convert to the texel
	// format before upload.
	data := pixels
	bytesPerTexel := 8
	if format == FormatRG16F {
		data = float32ToHalf(pixels)
		bytesPerTexel = 4
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * bytesPerTexel),
			RowsPerImage: 1,
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             1,
			DepthOrArrayLayers: 1,
		},
	)

	t := &wgpuTexture{
		tex:    tex,
		format: wf,
		width:  width,
		height: 1,
		layers: 1,
		mips:   1,
	}
	t.sampleView, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Sample Table View",
		Format:          wf,
		Dimension:       wgpu.TextureViewDimension1D,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create 1D texture view: %w", err)
	}

	b.sampleTable = t
	return t, nil
}

func (b *wgpuBackendImpl) CreateFramebuffer(label string) Framebuffer {
	return &wgpuFramebuffer{label: label}
}

func (b *wgpuBackendImpl) AttachColor(fb Framebuffer, tex Texture, mip, layer int) {
	f := fb.(*wgpuFramebuffer)
	t := tex.(*wgpuTexture)
	spec := &attachmentSpec{tex: t, mip: mip, layer: layer}
	if t.format == wgpu.TextureFormatDepth24Plus {
		f.depth = spec
	} else {
		f.color = spec
	}
}

func (b *wgpuBackendImpl) AttachCubeFace(fb Framebuffer, tex Texture, mip, face int) {
	b.AttachColor(fb, tex, mip, face)
}

func (b *wgpuBackendImpl) Detach(fb Framebuffer, tex Texture) {
	f := fb.(*wgpuFramebuffer)
	if f.color != nil && f.color.tex == tex {
		f.color = nil
	}
	if f.depth != nil && f.depth.tex == tex {
		f.depth = nil
	}
}

func (b *wgpuBackendImpl) Viewport(fb Framebuffer, x, y, width, height int) {
	f := fb.(*wgpuFramebuffer)
	f.viewport = [4]int{x, y, width, height}
}

// attachmentView creates a single-slice 2D view for a render attachment.
func attachmentView(spec *attachmentSpec, layer int) (*wgpu.TextureView, error) {
	return spec.tex.tex.CreateView(&wgpu.TextureViewDescriptor{
		Format:          spec.tex.format,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    uint32(spec.mip),
		MipLevelCount:   1,
		BaseArrayLayer:  uint32(layer),
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	})
}

func (b *wgpuBackendImpl) Clear(fb Framebuffer, color [4]float32, clearColor, clearDepth bool, depth float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := fb.(*wgpuFramebuffer)
	if !clearColor && !clearDepth {
		return
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		warnf("clear: failed to create command encoder: %v", err)
		return
	}

	desc := &wgpu.RenderPassDescriptor{Label: f.label + " Clear"}
	var views []*wgpu.TextureView

	if f.color != nil {
		view, viewErr := attachmentView(f.color, f.color.layer)
		if viewErr != nil {
			warnf("clear: failed to create color view: %v", viewErr)
			encoder.Release()
			return
		}
		views = append(views, view)
		loadOp := wgpu.LoadOpLoad
		if clearColor {
			loadOp = wgpu.LoadOpClear
		}
		desc.ColorAttachments = []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  loadOp,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(color[0]),
					G: float64(color[1]),
					B: float64(color[2]),
					A: float64(color[3]),
				},
			},
		}
	}

	if f.depth != nil {
		view, viewErr := attachmentView(f.depth, f.depth.layer)
		if viewErr != nil {
			warnf("clear: failed to create depth view: %v", viewErr)
			encoder.Release()
			return
		}
		views = append(views, view)
		loadOp := wgpu.LoadOpLoad
		if clearDepth {
			loadOp = wgpu.LoadOpClear
		}
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: depth,
		}
	}

	pass := encoder.BeginRenderPass(desc)
	pass.End()
	b.submit(encoder)
	for _, v := range views {
		v.Release()
	}
}

func (b *wgpuBackendImpl) GenerateMipmaps(tex Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := tex.(*wgpuTexture)
	if t.mips < 2 {
		return
	}

	pipe := b.downsamplePipeline(t.format)
	if pipe == nil {
		return
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		warnf("mipmaps: failed to create command encoder: %v", err)
		return
	}

	var views []*wgpu.TextureView
	for layer := 0; layer < t.layers; layer++ {
		for mip := 1; mip < t.mips; mip++ {
			srcView, srcErr := t.tex.CreateView(&wgpu.TextureViewDescriptor{
				Format:          t.format,
				Dimension:       wgpu.TextureViewDimension2D,
				BaseMipLevel:    uint32(mip - 1),
				MipLevelCount:   1,
				BaseArrayLayer:  uint32(layer),
				ArrayLayerCount: 1,
				Aspect:          wgpu.TextureAspectAll,
			})
			if srcErr != nil {
				warnf("mipmaps: failed to create source view: %v", srcErr)
				break
			}
			dstView, dstErr := t.tex.CreateView(&wgpu.TextureViewDescriptor{
				Format:          t.format,
				Dimension:       wgpu.TextureViewDimension2D,
				BaseMipLevel:    uint32(mip),
				MipLevelCount:   1,
				BaseArrayLayer:  uint32(layer),
				ArrayLayerCount: 1,
				Aspect:          wgpu.TextureAspectAll,
			})
			if dstErr != nil {
				srcView.Release()
				warnf("mipmaps: failed to create target view: %v", dstErr)
				break
			}
			views = append(views, srcView, dstView)

			bindGroup, bgErr := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Layout: b.downsampleLayout,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 0, Sampler: b.filterSampler},
					{Binding: 1, TextureView: srcView},
				},
			})
			if bgErr != nil {
				warnf("mipmaps: failed to create bind group: %v", bgErr)
				break
			}

			pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
				ColorAttachments: []wgpu.RenderPassColorAttachment{
					{
						View:    dstView,
						LoadOp:  wgpu.LoadOpClear,
						StoreOp: wgpu.StoreOpStore,
					},
				},
			})
			pass.SetPipeline(pipe)
			pass.SetBindGroup(0, bindGroup, nil)
			pass.Draw(3, 1, 0, 0)
			pass.End()
			bindGroup.Release()
		}
	}

	b.submit(encoder)
	for _, v := range views {
		v.Release()
	}
}

func (b *wgpuBackendImpl) CreateUniformBuffer(size int) (UniformBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Probe Uniform Buffer",
		Size:  uint64(size),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create uniform buffer: %w", err)
	}
	return &wgpuUniformBuffer{buf: buf}, nil
}

func (b *wgpuBackendImpl) UploadUniform(buf UniformBuffer, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := buf.(*wgpuUniformBuffer)
	if u.buf == nil || len(data) == 0 {
		return
	}
	b.queue.WriteBuffer(u.buf, 0, data)
}

func (b *wgpuBackendImpl) DrawFilter(fb Framebuffer, kind FilterKind, params *FilterParameters, src Texture) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := fb.(*wgpuFramebuffer)
	if f.color == nil {
		warnf("filter draw without a color attachment on %q", f.label)
		return
	}
	srcTex := src.(*wgpuTexture)
	if srcTex.sampleView == nil || b.sampleTable == nil {
		return
	}

	// Array targets resolve their destination slice from the filter layer.
	layer := f.color.layer
	if f.color.tex.layers > 1 && !f.color.tex.cube {
		layer = int(params.Layer)
	}
	targetView, err := attachmentView(f.color, layer)
	if err != nil {
		warnf("filter: failed to create target view: %v", err)
		return
	}
	defer targetView.Release()

	gp := gpuFilterParams{
		Roughness:      params.Roughness,
		SampleCount:    params.SampleCount,
		InvSampleCount: params.InvSampleCount,
		LodFactor:      params.LodFactor,
		LodMax:         params.LodMax,
		TexelSize:      params.TexelSize,
		PaddingSize:    params.PaddingSize,
		Layer:          params.Layer,
		SHRes:          params.SHRes,
	}
	b.queue.WriteBuffer(b.filterUBO, 0, common.StructToBytes(&gp))

	pipe := b.filterPipeline(kind, f.color.tex.format)
	if pipe == nil {
		pipe = b.fallbackPipeline(f.color.tex.format)
		if pipe == nil {
			return
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Filter Bind Group",
		Layout: b.filterLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.filterUBO, Size: uint64(gp.Size())},
			{Binding: 1, Sampler: b.filterSampler},
			{Binding: 2, TextureView: srcTex.sampleView},
			{Binding: 3, TextureView: b.sampleTable.sampleView},
		},
	})
	if err != nil {
		warnf("filter: failed to create bind group: %v", err)
		return
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		warnf("filter: failed to create command encoder: %v", err)
		return
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: f.label + " Filter Pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    targetView,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	vp := f.viewport
	pass.SetViewport(float32(vp[0]), float32(vp[1]), float32(vp[2]), float32(vp[3]), 0.0, 1.0)
	pass.SetScissorRect(uint32(vp[0]), uint32(vp[1]), uint32(vp[2]), uint32(vp[3]))
	pass.SetPipeline(pipe)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	b.submit(encoder)
}

func (b *wgpuBackendImpl) ReleaseTexture(tex Texture) {
	if tex == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if tex == b.sampleTable {
		b.sampleTable = nil
	}
	tex.Release()
}

// submit finishes the encoder and hands the commands to the queue.
func (b *wgpuBackendImpl) submit(encoder *wgpu.CommandEncoder) {
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		warnf("failed to finish command encoder: %v", err)
		return
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()
}

// filterPipeline returns the cached filter pipeline for the kind and target
// format, compiling it on first use. Compile failure is remembered as nil so
// the fallback path takes over without retrying every draw.
func (b *wgpuBackendImpl) filterPipeline(kind FilterKind, format wgpu.TextureFormat) *wgpu.RenderPipeline {
	key := filterPipelineKey{kind: kind, format: format}
	if pipe, ok := b.filterPipelines[key]; ok {
		return pipe
	}

	source := filterLibSource + filterGlossySource
	entry := "fs_glossy"
	label := "Glossy Filter"
	if kind == FilterDiffuse {
		source = filterLibSource + filterDiffuseSource
		entry = "fs_diffuse"
		label = "Diffuse Filter"
	}

	pipe, err := b.buildPipeline(label, source, "vs_fullscreen", entry, b.filterPipeLayout, format)
	if err != nil {
		warnf("%s shader failed to compile, probes will render flat: %v", label, err)
		pipe = nil
	}
	b.filterPipelines[key] = pipe
	return pipe
}

func (b *wgpuBackendImpl) fallbackPipeline(format wgpu.TextureFormat) *wgpu.RenderPipeline {
	if pipe, ok := b.fallbackPipelines[format]; ok {
		return pipe
	}
	pipe, err := b.buildPipeline("Filter Fallback", fallbackSource, "vs_fullscreen", "fs_fallback", nil, format)
	if err != nil {
		warnf("fallback shader failed to compile: %v", err)
		pipe = nil
	}
	b.fallbackPipelines[format] = pipe
	return pipe
}

func (b *wgpuBackendImpl) downsamplePipeline(format wgpu.TextureFormat) *wgpu.RenderPipeline {
	if pipe, ok := b.downsamplePipelines[format]; ok {
		return pipe
	}
	pipe, err := b.buildPipeline("Mip Downsample", downsampleSource, "vs_fullscreen", "fs_downsample", b.downsamplePipeLayout, format)
	if err != nil {
		warnf("downsample shader failed to compile: %v", err)
		pipe = nil
	}
	b.downsamplePipelines[format] = pipe
	return pipe
}

func (b *wgpuBackendImpl) buildPipeline(label, source, vsEntry, fsEntry string, layout *wgpu.PipelineLayout, format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}

	return b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vsEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fsEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

type wgpuUniformBuffer struct {
	buf *wgpu.Buffer
}

var _ UniformBuffer = &wgpuUniformBuffer{}

func (u *wgpuUniformBuffer) Release() {
	if u.buf != nil {
		u.buf.Release()
		u.buf = nil
	}
}

// float32ToHalf reinterprets pixels as packed float32 components and converts
// each to IEEE 754 half precision.
func float32ToHalf(pixels []byte) []byte {
	count := len(pixels) / 4
	src := unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(pixels))), count)
	out := make([]byte, count*2)
	for i, f := range src {
		h := float16Bits(f)
		out[i*2] = byte(h)
		out[i*2+1] = byte(h >> 8)
	}
	return out
}

func float16Bits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	if exp <= 0 {
		return sign // flush denormals to zero
	}
	if exp >= 31 {
		return sign | 0x7c00
	}
	return sign | uint16(exp<<10) | uint16(mant>>13)
}
