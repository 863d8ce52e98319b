package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// uniformSize is the byte size of drawUniforms: two mat4x4 and four vec4.
const uniformSize = 192

// alphaBlending is standard source-over blending.
var alphaBlending = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// errNoFrame is returned by Draw outside BeginFrame/EndFrame.
var errNoFrame = errors.New("no frame in progress")

// gpuMesh holds the buffers uploaded for one Geometry.
type gpuMesh struct {
	vertex   *wgpu.Buffer
	index    *wgpu.Buffer
	count    uint32
	released bool
}

// gpuTexture holds the texture uploaded for one node.Texture.
type gpuTexture struct {
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	released bool
}

// wgpuRendererBackendImpl is the implementation of the wgpuRendererBackend interface.
type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor
	width, height        int

	presentMode wgpu.PresentMode // defaults to PresentModeImmediate (Uncapped)
	clearColor  wgpu.Color
	sampleCount MSAASampleCount  // MSAA sample count for the main render pass

	bindGroupLayout  *wgpu.BindGroupLayout
	trianglePipeline *wgpu.RenderPipeline
	linePipeline     *wgpu.RenderPipeline
	sampler          *wgpu.Sampler
	whiteTexture     *wgpu.Texture
	whiteView        *wgpu.TextureView

	meshes   map[*node.Geometry]*gpuMesh
	textures map[*node.Texture]*gpuTexture

	// uniforms grows to the largest draw count seen; entry i backs the i-th draw of a frame.
	uniforms []*wgpu.Buffer

	// Frame state for batched rendering across multiple draw calls
	frameEncoder    *wgpu.CommandEncoder
	framePass       *wgpu.RenderPassEncoder
	frameSurface    *wgpu.Texture
	frameView       *wgpu.TextureView
	frameBindGroups []*wgpu.BindGroup
	frameDraws      int
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue

	// ConfigureSurface (re)configures the swapchain and the MSAA and depth
	// attachments for the given size. The draw pipelines are created on the
	// first call. Zero sizes are ignored.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	ConfigureSurface(width, height int)

	// SetClearColor sets the background every frame starts from.
	//
	// Parameters:
	//   - c: linear RGBA color
	SetClearColor(c mgl32.Vec4)

	// SetPresentMode sets the present mode applied on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// UploadGeometry creates vertex and index buffers for g and attaches their
	// release to g. Calling it for an already uploaded geometry replaces the buffers.
	//
	// Parameters:
	//   - label: debug label for the buffers
	//   - g: the geometry to upload
	//
	// Returns:
	//   - error: an error if a buffer could not be created
	UploadGeometry(label string, g *node.Geometry) error

	// UploadTexture creates an RGBA8 sRGB texture for t and attaches its release to t.
	//
	// Parameters:
	//   - t: the decoded texture
	//
	// Returns:
	//   - error: an error if the texture could not be created
	UploadTexture(t *node.Texture) error

	// BeginFrame acquires the next swapchain texture, creates a command encoder, and begins
	// the main render pass. Must be paired with EndFrame after all Draw invocations.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// SetViewport restricts the following draws to a rectangle of the surface.
	// A zero rectangle selects the whole surface.
	//
	// Parameters:
	//   - r: the viewport in pixels
	SetViewport(r Rect)

	// Draw encodes one indexed draw within the current render pass. Geometry that
	// was released since it was collected is skipped.
	//
	// Parameters:
	//   - item: the geometry, material and world matrix
	//   - u: the uniform block for the draw
	//
	// Returns:
	//   - error: an error if no frame is in progress or the bind group failed
	Draw(item drawItem, u drawUniforms) error

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	Present()

	// Release frees every GPU object the backend created.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeImmediate,
		clearColor:  wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
		sampleCount: sampleCount,
		meshes:      make(map[*node.Geometry]*gpuMesh),
		textures:    make(map[*node.Texture]*gpuTexture),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.width, b.height = width, height
	b.releaseAttachments()

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The render pass draws into the MSAA texture and resolves into the swapchain view.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTexture = msaaTexture
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTexture = depthTexture
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	// View is the MSAA texture when enabled, otherwise the swapchain view set per frame.
	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView,
				ResolveTarget: nil,
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue:    b.clearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}

	if b.trianglePipeline == nil {
		if err := b.initPipelines(); err != nil {
			panic(err)
		}
	}
}

func (b *wgpuRendererBackendImpl) releaseAttachments() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTexture.Release()
		b.msaaTextureView, b.msaaTexture = nil, nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTexture.Release()
		b.depthTextureView, b.depthTexture = nil, nil
	}
}

// initPipelines builds the shared bind group layout, the triangle and line
// pipelines, the sampler and the 1x1 white texture bound for untextured draws.
// Caller holds b.mu.
func (b *wgpuRendererBackendImpl) initPipelines() error {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Scene Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: sceneShader,
		},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	b.bindGroupLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Draw Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uniformSize,
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
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create bind group layout: %w", err)
	}

	layout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Scene Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.bindGroupLayout},
	})
	if err != nil {
		return err
	}
	defer layout.Release()

	b.trianglePipeline, err = b.createPipeline("Triangle", module, layout, wgpu.PrimitiveTopologyTriangleList)
	if err != nil {
		return err
	}
	b.linePipeline, err = b.createPipeline("Line", module, layout, wgpu.PrimitiveTopologyLineList)
	if err != nil {
		return err
	}

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Base Map Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}

	b.whiteTexture, b.whiteView, err = b.createTexture("White Texture", 1, 1, []byte{255, 255, 255, 255})
	return err
}

func (b *wgpuRendererBackendImpl) createPipeline(label string, module *wgpu.ShaderModule, layout *wgpu.PipelineLayout, topology wgpu.PrimitiveTopology) (*wgpu.RenderPipeline, error) {
	return b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: vertexStride,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
					{Format: wgpu.VertexFormatFloat32x3, Offset: 32, ShaderLocation: 3},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    *b.surfaceFormat,
				Blend:     &alphaBlending,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
}

// createTexture uploads tightly packed RGBA8 pixels. Caller holds b.mu.
func (b *wgpuRendererBackendImpl) createTexture(label string, width, height uint32, pixels []byte) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (b *wgpuRendererBackendImpl) SetClearColor(c mgl32.Vec4) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearColor = wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
	if b.renderPassDescriptor != nil {
		b.renderPassDescriptor.ColorAttachments[0].ClearValue = b.clearColor
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) UploadGeometry(label string, g *node.Geometry) error {
	vertexData := packVertices(g)
	indexData := packIndices(g)
	if len(vertexData) == 0 || len(indexData) == 0 {
		return nil
	}

	b.mu.Lock()
	vb, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.queue.WriteBuffer(vb, 0, vertexData)

	ib, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		vb.Release()
		b.mu.Unlock()
		return err
	}
	b.queue.WriteBuffer(ib, 0, indexData)

	mesh := &gpuMesh{vertex: vb, index: ib, count: uint32(len(indexData) / 4)}
	b.meshes[g] = mesh
	b.mu.Unlock()

	// Attach runs the hook immediately when g was disposed meanwhile, so it must
	// be called without b.mu held.
	g.Attach(func() { b.releaseMesh(g, mesh) })
	return nil
}

func (b *wgpuRendererBackendImpl) releaseMesh(g *node.Geometry, mesh *gpuMesh) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.meshes[g] == mesh {
		delete(b.meshes, g)
	}
	if mesh.released {
		return
	}
	mesh.released = true
	mesh.vertex.Release()
	mesh.index.Release()
}

func (b *wgpuRendererBackendImpl) UploadTexture(t *node.Texture) error {
	if t.Width <= 0 || t.Height <= 0 || len(t.Pixels) < t.Width*t.Height*4 {
		return fmt.Errorf("texture %q: %dx%d with %d bytes is not RGBA8", t.Name, t.Width, t.Height, len(t.Pixels))
	}

	b.mu.Lock()
	tex, view, err := b.createTexture(t.Name+" Texture", uint32(t.Width), uint32(t.Height), t.Pixels)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	gt := &gpuTexture{texture: tex, view: view}
	b.textures[t] = gt
	b.mu.Unlock()

	t.Attach(func() { b.releaseTexture(t, gt) })
	return nil
}

func (b *wgpuRendererBackendImpl) releaseTexture(t *node.Texture, gt *gpuTexture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.textures[t] == gt {
		delete(b.textures, t)
	}
	if gt.released {
		return
	}
	gt.released = true
	gt.view.Release()
	gt.texture.Release()
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.renderPassDescriptor == nil {
		return errors.New("surface not configured")
	}
	// Acquiring a second surface image before presenting the first fails in wgpu-native.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.frameDraws = 0

	return nil
}

func (b *wgpuRendererBackendImpl) SetViewport(r Rect) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	r = r.clip(b.width, b.height)
	b.framePass.SetViewport(float32(r.X), float32(r.Y), float32(r.W), float32(r.H), 0, 1)
	b.framePass.SetScissorRect(uint32(r.X), uint32(r.Y), uint32(r.W), uint32(r.H))
}

func (b *wgpuRendererBackendImpl) Draw(item drawItem, u drawUniforms) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errNoFrame
	}
	mesh := b.meshes[item.geometry]
	if mesh == nil {
		return nil
	}
	view := b.whiteView
	if item.material != nil && item.material.BaseMap != nil {
		if gt := b.textures[item.material.BaseMap]; gt != nil {
			view = gt.view
		}
	}

	uniform, err := b.uniformBuffer(b.frameDraws)
	if err != nil {
		return err
	}
	b.frameDraws++
	b.queue.WriteBuffer(uniform, 0, common.StructToBytes(&u))

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Draw Bind Group",
		Layout: b.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniform, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: view},
			{Binding: 2, Sampler: b.sampler},
		},
	})
	if err != nil {
		return err
	}
	b.frameBindGroups = append(b.frameBindGroups, bindGroup)

	pipeline := b.trianglePipeline
	if item.geometry.Topology == node.TopologyLines {
		pipeline = b.linePipeline
	}
	b.framePass.SetPipeline(pipeline)
	b.framePass.SetBindGroup(0, bindGroup, nil)
	b.framePass.SetVertexBuffer(0, mesh.vertex, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(mesh.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(mesh.count, 1, 0, 0, 0)
	return nil
}

// uniformBuffer returns the i-th per-draw uniform buffer, creating it on first use.
// Caller holds b.mu.
func (b *wgpuRendererBackendImpl) uniformBuffer(i int) (*wgpu.Buffer, error) {
	for len(b.uniforms) <= i {
		buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("Draw Uniform Buffer %d", len(b.uniforms)),
			Size:  uniformSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		b.uniforms = append(b.uniforms, buf)
	}
	return b.uniforms[i], nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()
	defer b.releaseFrameBindGroups()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) releaseFrameBindGroups() {
	for _, bg := range b.frameBindGroups {
		bg.Release()
	}
	b.frameBindGroups = b.frameBindGroups[:0]
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	meshes := b.meshes
	textures := b.textures
	b.meshes = make(map[*node.Geometry]*gpuMesh)
	b.textures = make(map[*node.Texture]*gpuTexture)
	for _, m := range meshes {
		if !m.released {
			m.released = true
			m.vertex.Release()
			m.index.Release()
		}
	}
	for _, t := range textures {
		if !t.released {
			t.released = true
			t.view.Release()
			t.texture.Release()
		}
	}
	for _, u := range b.uniforms {
		u.Release()
	}
	b.uniforms = nil
	b.releaseAttachments()
	if b.trianglePipeline != nil {
		b.trianglePipeline.Release()
		b.linePipeline.Release()
		b.bindGroupLayout.Release()
		b.sampler.Release()
		b.whiteView.Release()
		b.whiteTexture.Release()
		b.trianglePipeline = nil
	}
	b.mu.Unlock()

	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}
