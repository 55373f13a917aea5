package lightprobe

// TextureFormat identifies the pixel format of a backend texture.
type TextureFormat int

const (
	// FormatRGBA16F is a 16-bit float RGBA format, used for the capture
	// cubemap so HDR radiance survives filtering.
	FormatRGBA16F TextureFormat = iota

	// FormatDepth24 is a 24-bit depth format for the capture depth target.
	FormatDepth24

	// FormatR11G11B10F is a packed small-float HDR format, used for the probe
	// pool and (non signed representation) irradiance atlases.
	FormatR11G11B10F

	// FormatRG16F is a two-channel 16-bit float format, used for the
	// Hammersley sample table.
	FormatRG16F
)

// FilterKind selects which filtering program a filter draw runs.
type FilterKind int

const (
	// FilterGlossy runs the GGX importance-sampled prefilter that convolves
	// the capture cubemap into one mip level of a probe-pool layer.
	FilterGlossy FilterKind = iota

	// FilterDiffuse runs the irradiance convolution that integrates the
	// capture cubemap into one cell of the irradiance atlas.
	FilterDiffuse
)

// Texture is an opaque handle to a backend-owned texture resource.
type Texture interface {
	// Release frees the GPU resources behind the handle. The handle must not
	// be used afterwards.
	Release()
}

// Framebuffer is an opaque handle to a backend-owned render-target binding.
type Framebuffer interface{}

// UniformBuffer is an opaque handle to a backend-owned uniform buffer.
type UniformBuffer interface {
	// Release frees the GPU resources behind the handle. The handle must not
	// be used afterwards.
	Release()
}

// PassContext carries the externally-forced state a capture hands to every
// render pass it invokes: the viewpoint override and the specular kill
// switch. Passes read it from the call, never from ambient viewport state,
// so a capture cannot leak its overrides into the main view.
type PassContext struct {
	// View, ViewInv are the forced view matrix and its inverse (column-major).
	View, ViewInv [16]float32

	// Win is the forced projection matrix.
	Win [16]float32

	// Pers, PersInv are the combined view-projection matrix and its inverse.
	Pers, PersInv [16]float32

	// SpecularEnabled is false while a probe is being captured, so shading
	// passes skip specular contributions and cannot feed the probe back into
	// itself.
	SpecularEnabled bool

	// Layer is the target array layer for layered (world) rendering.
	Layer int
}

// Backend is the GPU capability contract the light-probe pipeline consumes:
// texture lifecycle, framebuffer wiring, viewport selection, mipmap
// generation, uniform upload, and filter-pass execution. Implementations are
// not expected to be safe for concurrent use; the pipeline is single-writer
// by construction.
//
// A filter draw whose shader failed to compile must degrade to a flat-color
// result instead of returning an error: bakes are visual, never fatal.
type Backend interface {
	// CreateCubemap allocates a square cubemap texture.
	//
	// Parameters:
	//   - size: the face edge length in texels
	//   - format: the pixel format
	//   - mipmapped: true to allocate a full mip chain
	//
	// Returns:
	//   - Texture: the texture handle
	//   - error: an error if allocation fails
	CreateCubemap(size int, format TextureFormat, mipmapped bool) (Texture, error)

	// CreateTexture2D allocates a 2D texture with a single mip level.
	//
	// Parameters:
	//   - width: the texture width in texels
	//   - height: the texture height in texels
	//   - format: the pixel format
	//
	// Returns:
	//   - Texture: the texture handle
	//   - error: an error if allocation fails
	CreateTexture2D(width, height int, format TextureFormat) (Texture, error)

	// CreateTextureArray allocates a 2D array texture, one layer per cube
	// probe, with a full mip chain when mipmapped is set.
	//
	// Parameters:
	//   - width: the layer width in texels
	//   - height: the layer height in texels
	//   - layers: the number of array layers (must be >= 1)
	//   - format: the pixel format
	//   - mipmapped: true to allocate a full mip chain
	//
	// Returns:
	//   - Texture: the texture handle
	//   - error: an error if allocation fails
	CreateTextureArray(width, height, layers int, format TextureFormat, mipmapped bool) (Texture, error)

	// CreateTexture1D allocates a 1D texture and uploads its initial texels.
	// Used for the Hammersley sample table.
	//
	// Parameters:
	//   - width: the texture width in texels
	//   - format: the pixel format
	//   - pixels: the initial texel data, laid out per the format
	//
	// Returns:
	//   - Texture: the texture handle
	//   - error: an error if allocation fails
	CreateTexture1D(width int, format TextureFormat, pixels []byte) (Texture, error)

	// CreateFramebuffer creates an empty render-target binding.
	//
	// Parameters:
	//   - label: a debug label for the framebuffer
	//
	// Returns:
	//   - Framebuffer: the framebuffer handle
	CreateFramebuffer(label string) Framebuffer

	// AttachColor attaches one mip of one layer of a texture as the
	// framebuffer's color target, replacing any previous color attachment.
	//
	// Parameters:
	//   - fb: the framebuffer
	//   - tex: the texture to attach
	//   - mip: the mip level
	//   - layer: the array layer (0 for non-array textures)
	AttachColor(fb Framebuffer, tex Texture, mip, layer int)

	// AttachCubeFace attaches one face of a cubemap as the framebuffer's
	// color or depth target depending on the texture's format.
	//
	// Parameters:
	//   - fb: the framebuffer
	//   - tex: the cubemap texture
	//   - mip: the mip level
	//   - face: the cubemap face index in [0, 6)
	AttachCubeFace(fb Framebuffer, tex Texture, mip, face int)

	// Detach removes a texture from the framebuffer's attachments.
	//
	// Parameters:
	//   - fb: the framebuffer
	//   - tex: the texture to detach
	Detach(fb Framebuffer, tex Texture)

	// Viewport restricts subsequent draws through the framebuffer to a
	// sub-rectangle, so a filter pass can write a single atlas cell without
	// touching its neighbors.
	//
	// Parameters:
	//   - fb: the framebuffer
	//   - x, y: the lower-left corner of the rectangle in texels
	//   - width, height: the rectangle extent in texels
	Viewport(fb Framebuffer, x, y, width, height int)

	// Clear clears the framebuffer's current attachments.
	//
	// Parameters:
	//   - fb: the framebuffer
	//   - color: the clear color
	//   - clearColor: true to clear the color attachment
	//   - clearDepth: true to clear the depth attachment
	//   - depth: the clear depth value
	Clear(fb Framebuffer, color [4]float32, clearColor, clearDepth bool, depth float32)

	// GenerateMipmaps regenerates the full mip chain of a texture from its
	// level 0 contents. Required before filtered importance sampling reads
	// the capture target.
	//
	// Parameters:
	//   - tex: the texture to mipmap
	GenerateMipmaps(tex Texture)

	// CreateUniformBuffer allocates a uniform buffer of the given size.
	//
	// Parameters:
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - UniformBuffer: the buffer handle
	//   - error: an error if allocation fails
	CreateUniformBuffer(size int) (UniformBuffer, error)

	// UploadUniform replaces a uniform buffer's contents.
	//
	// Parameters:
	//   - buf: the buffer to write
	//   - data: the bytes to upload, at most the buffer's size
	UploadUniform(buf UniformBuffer, data []byte)

	// DrawFilter executes one filtering draw into the framebuffer's current
	// attachment and viewport, reading the capture source through its mip
	// chain. Shader failure degrades to a flat-color write.
	//
	// Parameters:
	//   - fb: the framebuffer holding the filter target
	//   - kind: which filtering program to run
	//   - params: the filter uniforms for this draw
	//   - src: the capture cubemap to read
	DrawFilter(fb Framebuffer, kind FilterKind, params *FilterParameters, src Texture)

	// ReleaseTexture frees a texture if non-nil. Convenience wrapper that
	// tolerates nil handles so callers can release unconditionally.
	//
	// Parameters:
	//   - tex: the texture to free, may be nil
	ReleaseTexture(tex Texture)
}

// FilterParameters is the uniform state fed to a single filter draw. The
// pipeline recomputes it per invocation from the scratch block on ProbesInfo.
type FilterParameters struct {
	// Roughness is the GGX roughness squared for the glossy kernel.
	Roughness float32

	// SampleCount and InvSampleCount parameterize the importance sampler.
	SampleCount    float32
	InvSampleCount float32

	// LodFactor biases the source mip selection for filtered importance
	// sampling; LodMax clamps it.
	LodFactor float32
	LodMax    float32

	// TexelSize is 1 / target mip size.
	TexelSize float32

	// PaddingSize is the octahedral border padding in texels, including the
	// empirical corrections.
	PaddingSize float32

	// Layer is the destination probe-pool layer.
	Layer int32

	// SHRes is the cubemap face resolution used when projecting to
	// spherical harmonics.
	SHRes int32
}
