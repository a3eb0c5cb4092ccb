package generator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

const fixtureDir = "../testdata/decls"

func fixtures(t *testing.T) (*config.Config, Input) {
	t.Helper()

	cfg := config.Default()
	in, err := LoadInput(cfg, fixtureDir)
	require.NoError(t, err)

	return cfg, in
}

func generate(t *testing.T, cfg *config.Config, in Input, opts ...Option) map[string]string {
	t.Helper()

	files, err := New(cfg, in, opts...).Generate()
	require.NoError(t, err)

	return files
}

// guardOf returns the condition of the innermost guard enclosing the
// first line of text containing needle.
func guardOf(t *testing.T, text, needle string) string {
	t.Helper()

	lines := strings.Split(text, "\n")
	at := -1
	for i, l := range lines {
		if strings.Contains(l, needle) {
			at = i
			break
		}
	}
	require.NotEqual(t, -1, at, "%q not found", needle)

	depth := 0
	for i := at - 1; i >= 0; i-- {
		l := lines[i]
		switch {
		case strings.HasPrefix(l, "#endif"):
			depth++
		case strings.HasPrefix(l, "#if "):
			if depth == 0 {
				return strings.TrimPrefix(l, "#if ")
			}
			depth--
		}
	}
	return ""
}

func TestGenerateArtifacts(t *testing.T) {
	cfg, in := fixtures(t)
	files := generate(t, cfg, in)

	var paths []string
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	want := []string{
		"enums.h",
		"export.h",
		"imageformat.h",
		"loader.h",
		"platform.h",
		"private/rhi.cpp",
		"ray.h",
		"ray_enums.h",
		"ray_structs.h",
		"resourceloader.h",
		"resourceloader_enums.h",
		"resourceloader_structs.h",
		"rhi.h",
		"shaderreflection.h",
		"shaderreflection_enums.h",
		"shaderreflection_structs.h",
		"structs.h",
	}
	assert.Equal(t, want, paths)

	for _, p := range paths {
		if strings.HasSuffix(p, ".h") {
			guard := "RHI_" + strings.ToUpper(strings.TrimSuffix(p, ".h")) + "_H_"
			assert.Contains(t, files[p], "#pragma once\n#ifndef "+guard+"\n#define "+guard+"\n", p)
			assert.True(t, strings.HasSuffix(files[p], "#endif // "+guard+"\n"), p)
		}
		assert.True(t, strings.HasPrefix(files[p], strings.Repeat("/", 75)+"\n//\n//  Autogenerated by rhi-bindgen\n"), p)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg, in := fixtures(t)

	first := generate(t, cfg, in)
	second := generate(t, cfg, in)
	sequential := generate(t, cfg, in, WithSequential())

	assert.Equal(t, first, second)
	assert.Equal(t, first, sequential)
}

func TestGenerateEnums(t *testing.T) {
	cfg, in := fixtures(t)
	files := generate(t, cfg, in)

	enums := files["enums.h"]
	assert.Contains(t, enums, "#include <stdint.h>\n")
	assert.Contains(t, enums, "static const int RHI_ALL = (RHI_RED | RHI_GREEN | RHI_BLUE | RHI_ALPHA);\n")
	assert.Contains(t, enums, "typedef enum RHI_Result\n{\n    RHI_RESULT_SUCCESS = 0,\n    RHI_RESULT_ERROR = -1\n} RHI_Result;\n")
	assert.Contains(t, enums, "enum\n{\n    RHI_MAX_RENDER_TARGET_ATTACHMENTS = 8,\n    RHI_MAX_VERTEX_BINDINGS = 15\n};\n")
	assert.Contains(t, enums, "typedef enum RHI_RendererApi\n{\n    RHI_RENDERER_API_D3D12,\n")
	assert.Contains(t, enums, "    RHI_SHADER_STAGE_ALL_GRAPHICS = ((uint32_t)RHI_SHADER_STAGE_VERT | (uint32_t)RHI_SHADER_STAGE_TESC | (uint32_t)RHI_SHADER_STAGE_TESE | (uint32_t)RHI_SHADER_STAGE_GEOM | (uint32_t)RHI_SHADER_STAGE_FRAG),\n")
	assert.Contains(t, enums, "    RHI_SHADER_STAGE_DOMN = RHI_SHADER_STAGE_TESE\n} RHI_ShaderStage;\n")

	ray := files["ray_enums.h"]
	assert.Contains(t, ray, "typedef enum RHI_AccelerationStructureType\n{\n    RHI_ACCELERATION_STRUCTURE_TYPE_BOTTOM = 0,\n    RHI_ACCELERATION_STRUCTURE_TYPE_TOP\n} RHI_AccelerationStructureType;\n")

	formats := files["imageformat.h"]
	assert.Contains(t, formats, "typedef enum RHI_ImageFormat\n{\n    RHI_IMAGEFORMAT_UNDEFINED = 0,\n    RHI_IMAGEFORMAT_R8G8B8A8_UNORM = 1,\n")
	assert.Contains(t, formats, "    RHI_IMAGEFORMAT_Count = RHI_IMAGEFORMAT_D32_SFLOAT + 1\n} RHI_ImageFormat;\n")
}

func TestGenerateStructs(t *testing.T) {
	cfg, in := fixtures(t)
	files := generate(t, cfg, in)
	structs := files["structs.h"]

	t.Run("handles", func(t *testing.T) {
		assert.Contains(t, structs, "typedef struct RHI_Buffer *RHI_BufferHandle;\n")
		assert.Contains(t, structs, "typedef struct RHI_Renderer *RHI_RendererHandle;\n")
		assert.NotContains(t, structs, "typedef struct RHI_Renderer {")
		assert.NotContains(t, structs, "RHI_VirtualTexturePage")
	})

	t.Run("guards", func(t *testing.T) {
		assert.Contains(t, structs, "typedef struct RHI_RendererDesc {\n#if defined(VULKAN)\n    const char **ppInstanceLayers;\n#endif // defined(VULKAN)\n")
		assert.Contains(t, structs, "#if defined(DIRECT3D12) || defined(DIRECT3D11)\n    uint32_t mDxFeatureLevel;\n#endif // defined(DIRECT3D12) || defined(DIRECT3D11)\n")
		assert.Contains(t, structs, "    uint32_t mEnableGpuBasedValidation : 1;\n    uint32_t mReserved : 31;\n")
	})

	t.Run("defaults", func(t *testing.T) {
		assert.Contains(t, structs, "    uint32_t mIndex = (uint32_t)-1;\n")
		assert.Contains(t, structs, "    bool mExtractBuffer = false;\n")
		assert.Contains(t, structs, "    uint64_t mOffsets[4];\n")
	})

	t.Run("type rewriting", func(t *testing.T) {
		assert.Contains(t, structs, "    RHI_ImageFormat mFormat;\n")
		assert.Contains(t, structs, "    RHI_BufferHandle pCounterBuffer;\n")
		assert.Contains(t, structs, "    RHI_QueueHandle *ppPresentQueues;\n")
		assert.Contains(t, structs, "    RHI_WindowHandle mWindowHandle;\n")
		assert.Contains(t, structs, "    RHI_ClearValue mColorClearValue;\n")
	})

	t.Run("records", func(t *testing.T) {
		assert.Contains(t, structs, "typedef struct RHI_ClearValue {\n    union {\n        struct {\n            float r;\n")
		assert.Contains(t, structs, "        struct {\n            float depth;\n            uint32_t stencil;\n        };\n    };\n} RHI_ClearValue;\n")
		assert.Contains(t, structs, "    struct {\n        uint32_t mNodeIndex;\n        uint32_t mSharedNodeIndexCount;\n    } mNodes;\n")
	})

	t.Run("prelude", func(t *testing.T) {
		assert.Contains(t, structs, "typedef void (*RHI_LogFn)(RHI_LogType, const char *, const char *);\n")
		assert.Contains(t, structs, "typedef struct RHI_SubresourceDataDesc\n{\n    uint64_t mSrcOffset;\n")
		assert.Contains(t, files["resourceloader_structs.h"], "typedef uint64_t RHI_SyncToken;\n")
	})

	t.Run("struct guard", func(t *testing.T) {
		reflection := files["shaderreflection_structs.h"]
		assert.Contains(t, reflection, "#if defined(METAL)\ntypedef struct RHI_ArgumentDescriptor {\n")
		assert.Contains(t, reflection, "#if defined(METAL)\n    RHI_ArgumentDescriptor mtlArgumentDescriptors;\n#endif // defined(METAL)\n")
	})
}

func TestGenerateFunctions(t *testing.T) {
	cfg, in := fixtures(t)
	files := generate(t, cfg, in)

	core := files["rhi.h"]
	assert.Contains(t, core, "#if !defined(RHI_SKIP_DECLARATIONS)\n")
	assert.Contains(t, core, "RHI_API void RHI_initRenderer(const char *appName, const RHI_RendererDesc *pSettings, RHI_RendererHandle *ppRenderer);\n")
	assert.Contains(t, core, "RHI_API void RHI_addFence(RHI_RendererHandle pRenderer, RHI_FenceHandle *ppFence);\n")
	assert.Contains(t, core, "RHI_API RHI_FenceStatus RHI_getFenceStatus(RHI_RendererHandle pRenderer, RHI_FenceHandle pFence);\n")
	assert.Contains(t, core, "RHI_API void RHI_cmdUpdateSubresource(RHI_CmdHandle pCmd, RHI_TextureHandle pTexture, RHI_BufferHandle pSrcBuffer, const RHI_SubresourceDataDesc *pSubresourceDesc);\n")
	assert.Contains(t, core, "#if defined(METAL)\nRHI_API void RHI_addSSVGFDenoiser(RHI_RendererHandle pRenderer, RHI_SSVGFDenoiser **ppDenoiser);\n#endif // defined(METAL)\n")
	assert.Contains(t, core, "RHI_API const RHI_PipelineReflection *RHI_shaderGetPipelineReflection(RHI_ShaderHandle shader);\n")
	assert.Contains(t, core, "RHI_API void RHI_renderTargetGetDesc(RHI_RenderTargetHandle renderTarget, RHI_RenderTargetDesc *desc);\n")
	assert.Contains(t, core, "#include \"resourceloader.h\"\n#include \"ray.h\"\n#include \"shaderreflection.h\"\n#include \"loader.h\"\n")

	loader := files["resourceloader.h"]
	assert.Contains(t, loader, "RHI_API void RHI_addBufferResource(RHI_BufferLoadDesc *pBufferDesc, RHI_SyncToken *token);\n")
	assert.Contains(t, loader, "RHI_API void RHI_addTextureResource(RHI_TextureLoadDesc *pTextureDesc, RHI_SyncToken *token);\n")
	assert.Contains(t, loader, "RHI_API void RHI_removeBufferResource(RHI_BufferHandle pBuffer);\n")
	assert.Contains(t, loader, "RHI_API void RHI_loadShader(const RHI_ShaderLoadDesc *pDesc, RHI_ShaderHandle *ppShader);\n")
	assert.Contains(t, loader, "RHI_API void RHI_loadPipelineCache(RHI_RendererHandle pRenderer, const RHI_PipelineCacheLoadDesc *pDesc, RHI_PipelineCacheHandle *ppPipelineCache);\n")
	assert.Contains(t, loader, "RHI_API bool RHI_isResourceLoaderSingleThreaded(void);\n")
	assert.NotContains(t, loader, "RHI_addResource(")

	ray := files["ray.h"]
	assert.Contains(t, ray, "RHI_API void RHI_cmdDispatchRays(RHI_CmdHandle pCmd, RHI_RaytracingHandle pRaytracing, const RHI_RaytracingDispatchDesc *pDesc);\n")

	for path, text := range files {
		assert.NotContains(t, text, "removeAccelerationStructureScratch", path)
	}
}

func TestGenerateGenericBodies(t *testing.T) {
	cfg, in := fixtures(t)
	impl := generate(t, cfg, in)["private/rhi.cpp"]

	assert.Contains(t, impl, "RHI_API RHI_FenceStatus RHI_getFenceStatus(RHI_RendererHandle pRenderer, RHI_FenceHandle pFence)\n{\n    if (!pRenderer)\n    {\n        return {};\n    }\n    return (RHI_FenceStatus)getFenceStatus((Renderer *)pRenderer, (Fence *)pFence);\n}\n")
	assert.Contains(t, impl, "RHI_API void RHI_addFence(RHI_RendererHandle pRenderer, RHI_FenceHandle *ppFence)\n{\n    if (!pRenderer)\n    {\n        return;\n    }\n    addFence((Renderer *)pRenderer, (Fence **)ppFence);\n}\n")
	assert.Contains(t, impl, "    cmdClearColor((Cmd *)pCmd, *(ClearValue *)&clearValue);\n")
	assert.Contains(t, impl, "    ReadRange result = getMappedRange((Buffer *)pBuffer);\n    return *(RHI_ReadRange *)&result;\n")
	assert.Contains(t, impl, "    addResource((BufferLoadDesc *)pBufferDesc, (SyncToken *)token);\n")
	assert.Contains(t, impl, "    addShader((const ShaderLoadDesc *)pDesc, (Shader **)ppShader);\n")
	assert.Contains(t, impl, "    return (bool)isResourceLoaderSingleThreaded();\n")
	assert.Contains(t, impl, "// resourceloader functions\n")
}

func TestGenerateAdapters(t *testing.T) {
	cfg, in := fixtures(t)
	impl := generate(t, cfg, in)["private/rhi.cpp"]

	t.Run("swap chain", func(t *testing.T) {
		assert.Contains(t, impl, "    SwapChainDesc desc{};\n#if defined(VK_USE_PLATFORM_XLIB_KHR)\n")
		assert.Contains(t, impl, "#else // defined(VK_USE_PLATFORM_XLIB_KHR)\n    desc.mWindowHandle.window = (decltype(desc.mWindowHandle.window))p_desc->mWindowHandle.window;\n#endif // defined(VK_USE_PLATFORM_XLIB_KHR)\n")
		assert.Contains(t, impl, "    desc.ppPresentQueues = (Queue **)p_desc->ppPresentQueues;\n")
		assert.Contains(t, impl, "    desc.mColorFormat = (TinyImageFormat)p_desc->mColorFormat;\n")
		assert.Contains(t, impl, "    memcpy(&desc.mColorClearValue, &p_desc->mColorClearValue, sizeof(desc.mColorClearValue));\n")
		assert.Contains(t, impl, "    addSwapChain((Renderer *)pRenderer, &desc, (SwapChain **)p_swap_chain);\n")
	})

	t.Run("binary shader", func(t *testing.T) {
		assert.Contains(t, impl, "static ShaderStage RHI_toShaderStage(uint32_t flags)\n")
		assert.Contains(t, impl, "    if (flags & RHI_SHADER_STAGE_VERT) stage |= SHADER_STAGE_VERT;\n")
		assert.Contains(t, impl, "static void RHI_toBinaryShaderStageDesc(const RHI_BinaryShaderStageDesc *src, BinaryShaderStageDesc *dst)\n{\n    dst->pByteCode = (void *)src->pByteCode;\n")
		assert.Contains(t, impl, "    desc.mStages = RHI_toShaderStage((uint32_t)p_desc->mStages);\n")
		assert.Contains(t, impl, "#if !defined(METAL)\n    if (desc.mStages & SHADER_STAGE_GEOM)\n    {\n        RHI_toBinaryShaderStageDesc(&p_desc->mGeom, &desc.mGeom);\n    }\n#endif // !defined(METAL)\n")
		assert.Contains(t, impl, "    addShaderBinary((Renderer *)pRenderer, &desc, (Shader **)p_shader_program);\n")
	})

	t.Run("source shader", func(t *testing.T) {
		assert.Contains(t, impl, "#if defined(METAL)\nstatic void RHI_toShaderStageDesc(const RHI_ShaderStageDesc *src, ShaderStageDesc *dst)\n")
		assert.Contains(t, impl, "#if defined(METAL)\n    ShaderDesc desc{};\n")
		assert.Contains(t, impl, "#else // defined(METAL)\n    (void)pRenderer;\n    (void)pDesc;\n    (void)ppShader;\n#endif // defined(METAL)\n")
	})

	t.Run("subresource", func(t *testing.T) {
		assert.Contains(t, impl, "struct SubresourceDataDesc\n{\n    uint64_t mSrcOffset;\n")
		assert.Contains(t, impl, "    SubresourceDataDesc desc{};\n    desc.mSrcOffset = pSubresourceDesc->mSrcOffset;\n")
		assert.Contains(t, impl, "#if defined(DIRECT3D11) || defined(METAL) || defined(VULKAN)\n    desc.mRowPitch = pSubresourceDesc->mRowPitch;\n")
		assert.Contains(t, impl, "    cmdUpdateSubresource((Cmd *)pCmd, (Texture *)pTexture, (Buffer *)pSrcBuffer, &desc);\n")
	})
}

func TestGenerateLayoutChecks(t *testing.T) {
	cfg, in := fixtures(t)
	files := generate(t, cfg, in)
	impl := files["private/rhi.cpp"]

	assert.Contains(t, impl, "#define API_CHK(x) static_assert(x, \"Mismatched size!\")\n")
	assert.Contains(t, impl, "#undef API_CHK\n")

	assert.Contains(t, impl, "API_CHK(sizeof(RHI_BufferDesc) == sizeof(BufferDesc));\nAPI_CHK(offsetof(RHI_BufferDesc, mSize) == offsetof(BufferDesc, mSize));\n")
	assert.Contains(t, impl, "API_CHK(sizeof(RHI_ClearValue) == sizeof(ClearValue));\n")
	assert.Contains(t, impl, "API_CHK(offsetof(RHI_TextureDesc, mNodes) == offsetof(TextureDesc, mNodes));\n")
	assert.Contains(t, impl, "API_CHK(offsetof(RHI_BufferLoadDesc, mDesc) == offsetof(BufferLoadDesc, mDesc));\n")

	assert.NotContains(t, impl, "offsetof(RHI_RendererDesc, mEnableGpuBasedValidation)")
	assert.NotContains(t, impl, "offsetof(RHI_ClearValue")
	assert.NotContains(t, impl, "sizeof(RHI_SwapChainDesc)")
	assert.NotContains(t, impl, "sizeof(RHI_Renderer)")
	assert.NotContains(t, impl, "sizeof(RHI_ArgumentDescriptor)")

	t.Run("guard propagation", func(t *testing.T) {
		tests := []struct {
			header string
			field  string
			record string
			member string
		}{
			{"structs.h", "uint32_t mDxFeatureLevel;", "RendererDesc", "mDxFeatureLevel"},
			{"structs.h", "const char **ppInstanceLayers;", "RendererDesc", "ppInstanceLayers"},
			{"ray_structs.h", "pTopLevelAccelerationStructure;", "RaytracingDispatchDesc", "pTopLevelAccelerationStructure"},
			{"shaderreflection_structs.h", "mtlArgumentDescriptors;", "ShaderResource", "mtlArgumentDescriptors"},
		}

		for _, tt := range tests {
			check := fmt.Sprintf("API_CHK(offsetof(RHI_%[1]s, %[2]s) == offsetof(%[1]s, %[2]s));", tt.record, tt.member)

			guard := guardOf(t, files[tt.header], tt.field)
			require.NotEmpty(t, guard, tt.field)
			assert.Equal(t, guard, guardOf(t, impl, check), check)
			assert.Contains(t, impl, "#if "+guard+"\n"+check+"\n#endif // "+guard+"\n")
		}
	})
}

func TestGenerateLoader(t *testing.T) {
	cfg, in := fixtures(t)
	files := generate(t, cfg, in)

	header := files["loader.h"]
	assert.Contains(t, header, "typedef void (*RHI_PFN_addFence)(RHI_RendererHandle pRenderer, RHI_FenceHandle *ppFence);\n")
	assert.Contains(t, header, "typedef RHI_TextureHandle (*RHI_PFN_renderTargetGetTexture)(RHI_RenderTargetHandle renderTarget);\n")
	assert.Contains(t, header, "    RHI_PFN_addBufferResource addBufferResource;\n")
	assert.Contains(t, header, "#if defined(METAL)\n    RHI_PFN_addSSVGFDenoiser addSSVGFDenoiser;\n#endif // defined(METAL)\n")
	assert.Contains(t, header, "typedef struct RHI_Loader\n{\n    void *library;\n    int initialized;\n    RHI_Result result;\n    RHI_Api api;\n} RHI_Loader;\n")
	assert.Contains(t, header, "RHI_API RHI_Result RHI_init(RHI_Loader *loader, RHI_RendererApi renderer);\n")
	assert.Contains(t, header, "RHI_API void RHI_exit(RHI_Loader *loader);\n")

	impl := files["private/rhi.cpp"]
	assert.Contains(t, impl, "#if !defined(RHI_SKIP_DECLARATIONS)\n")
	assert.Contains(t, impl, "#else // !defined(RHI_SKIP_DECLARATIONS)\n")
	assert.Contains(t, impl, "    loader->api.addFence = RHI_addFence;\n")
	assert.Contains(t, impl, "    loader->api.addFence = (RHI_PFN_addFence)RHI_LIBRARY_FIND(loader->library, \"RHI_addFence\");\n    missing += loader->api.addFence == NULL;\n")
	assert.Contains(t, impl, "    loader->api.textureGetWidth = (RHI_PFN_textureGetWidth)RHI_LIBRARY_FIND(loader->library, \"RHI_textureGetWidth\");\n")
	assert.Contains(t, impl, "        case RHI_RENDERER_API_D3D12:\n            return \"RHI_d3d12.dll\";\n")
	assert.Contains(t, impl, "        case RHI_RENDERER_API_METAL:\n            return \"RHI_metal.dylib\";\n")
	assert.Contains(t, impl, "        case RHI_RENDERER_API_VULKAN:\n            return \"RHI_vulkan.so\";\n")
	assert.Contains(t, impl, "    if (missing)\n    {\n        RHI_LIBRARY_CLOSE(loader->library);\n")
	assert.Contains(t, impl, "    if (loader->initialized)\n    {\n        return loader->result;\n    }\n")
	assert.Contains(t, impl, "    if (!loader || !loader->initialized)\n    {\n        return;\n    }\n")
}

func TestGenerateLenientLoader(t *testing.T) {
	cfg, in := fixtures(t)
	cfg.Loader.Strict = false
	impl := generate(t, cfg, in)["private/rhi.cpp"]

	assert.NotContains(t, impl, "missing")
	assert.Contains(t, impl, "    loader->api.addFence = (RHI_PFN_addFence)RHI_LIBRARY_FIND(loader->library, \"RHI_addFence\");\n")
}

func TestGeneratePlatform(t *testing.T) {
	cfg, in := fixtures(t)
	files := generate(t, cfg, in)

	assert.Contains(t, files["platform.h"], "RHI_API void RHI_setWindowHandleGLFW(GLFWwindow *window, RHI_WindowHandle *windowHandle);\n")
	assert.Contains(t, files["private/rhi.cpp"], "RHI_API void RHI_setWindowHandleSDL(SDL_Window *window, RHI_WindowHandle *windowHandle)\n{\n")
	assert.Contains(t, files["export.h"], "#            define RHI_API __declspec(dllexport)\n")
}

func TestGeneratePrefix(t *testing.T) {
	cfg, in := fixtures(t)
	cfg.Prefix = "GFX"
	require.NoError(t, cfg.Validate())

	files := generate(t, cfg, in)

	require.Contains(t, files, "gfx.h")
	require.Contains(t, files, "private/gfx.cpp")
	assert.Contains(t, files["gfx.h"], "GFX_API void GFX_addFence(GFX_RendererHandle pRenderer, GFX_FenceHandle *ppFence);\n")
	assert.Contains(t, files["imageformat.h"], "    GFX_IMAGEFORMAT_R8G8B8A8_UNORM = 1,\n")
	for path, text := range files {
		assert.NotContains(t, text, "RHI_", path)
	}
}

// =============================================================================

func coreOnly(decls ...parser.Decl) Input {
	return Input{
		Areas: map[string]*parser.Module{config.AreaCore: {Decls: decls}},
		ImageFormat: &parser.Module{Decls: []parser.Decl{
			&parser.EnumDecl{Name: "TinyImageFormat", Items: []parser.EnumItem{{Name: "TinyImageFormat_UNDEFINED"}}},
		}},
	}
}

func TestGenerateRenderTarget(t *testing.T) {
	cfg := config.Default()
	var handles []string
	for _, h := range cfg.Handles {
		if h != "RenderTarget" {
			handles = append(handles, h)
		}
	}
	cfg.Handles = handles
	cfg.FieldGuards = append(cfg.FieldGuards, config.FieldGuard{
		Struct: "RenderTarget",
		Fields: []string{"layerCount"},
		Guard:  "defined(VULKAN)",
	})
	require.NoError(t, cfg.Validate())

	in := coreOnly(&parser.StructDecl{
		Name: "RenderTarget",
		Fields: []parser.Field{
			{Name: "width", Type: "uint32_t"},
			{Name: "formatHandle", Type: "Buffer *"},
			{Name: "layerCount", Type: "uint32_t"},
		},
	})
	files := generate(t, cfg, in)

	assert.Contains(t, files["structs.h"], "typedef struct RHI_RenderTarget {\n"+
		"    uint32_t width;\n"+
		"    RHI_BufferHandle formatHandle;\n"+
		"#if defined(VULKAN)\n"+
		"    uint32_t layerCount;\n"+
		"#endif // defined(VULKAN)\n"+
		"} RHI_RenderTarget;\n")

	assert.Contains(t, files["private/rhi.cpp"], "API_CHK(sizeof(RHI_RenderTarget) == sizeof(RenderTarget));\n"+
		"API_CHK(offsetof(RHI_RenderTarget, width) == offsetof(RenderTarget, width));\n"+
		"API_CHK(offsetof(RHI_RenderTarget, formatHandle) == offsetof(RenderTarget, formatHandle));\n"+
		"#if defined(VULKAN)\n"+
		"API_CHK(offsetof(RHI_RenderTarget, layerCount) == offsetof(RenderTarget, layerCount));\n"+
		"#endif // defined(VULKAN)\n")
}

func TestGenerateRepeatedDeclarations(t *testing.T) {
	cfg, in := fixtures(t)
	desc := &parser.StructDecl{Name: "ReadRange", Fields: []parser.Field{{Name: "mOffset", Type: "uint64_t"}}}
	in.Areas[config.AreaRay].Decls = append(in.Areas[config.AreaRay].Decls, desc)

	files := generate(t, cfg, in)

	assert.Contains(t, files["structs.h"], "typedef struct RHI_ReadRange {")
	assert.NotContains(t, files["ray_structs.h"], "RHI_ReadRange")
	assert.Equal(t, 1, strings.Count(files["private/rhi.cpp"], "sizeof(RHI_ReadRange)"))
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config, in *Input)
		target error
	}{
		{
			name: "no core area",
			mutate: func(cfg *config.Config, in *Input) {
				delete(in.Areas, config.AreaCore)
			},
		},
		{
			name: "collision after rename",
			mutate: func(cfg *config.Config, in *Input) {
				core := in.Areas[config.AreaCore]
				core.Decls = append(core.Decls, funcDecl("loadShader"))
			},
			target: ErrNameCollision,
		},
		{
			name: "collision with loader entry",
			mutate: func(cfg *config.Config, in *Input) {
				core := in.Areas[config.AreaCore]
				core.Decls = append(core.Decls, funcDecl("init"))
			},
			target: ErrNameCollision,
		},
		{
			name: "collision with accessor",
			mutate: func(cfg *config.Config, in *Input) {
				core := in.Areas[config.AreaCore]
				core.Decls = append(core.Decls, funcDecl("textureGetWidth", parser.Param{Name: "pTexture", Type: "Texture *"}))
			},
			target: ErrNameCollision,
		},
		{
			name: "unhandled overload",
			mutate: func(cfg *config.Config, in *Input) {
				rl := in.Areas[config.AreaResourceLoader]
				rl.Decls = append(rl.Decls, funcDecl("addResource", parser.Param{Name: "pMeshDesc", Type: "MeshDesc *"}))
			},
			target: ErrNameCollision,
		},
		{
			name: "adapted type without adapter",
			mutate: func(cfg *config.Config, in *Input) {
				core := in.Areas[config.AreaCore]
				core.Decls = append(core.Decls, funcDecl("resizeSwapChain",
					parser.Param{Name: "pRenderer", Type: "Renderer *"},
					parser.Param{Name: "pDesc", Type: "const SwapChainDesc *"}))
			},
			target: ErrMissingAdapter,
		},
		{
			name: "adapter shape mismatch",
			mutate: func(cfg *config.Config, in *Input) {
				cfg.Adapters = append(cfg.Adapters, config.Adapter{
					Area:     config.AreaCore,
					Function: "addFence",
					Kind:     config.AdapterSwapChainWindow,
				})
			},
			target: ErrMissingAdapter,
		},
		{
			name: "adapter with non void return",
			mutate: func(cfg *config.Config, in *Input) {
				cfg.Adapters = append(cfg.Adapters, config.Adapter{
					Area:     config.AreaCore,
					Function: "getMappedRange",
					Kind:     config.AdapterSubresourceCopy,
				})
			},
			target: ErrMissingAdapter,
		},
		{
			name: "unrecognized parameter",
			mutate: func(cfg *config.Config, in *Input) {
				core := in.Areas[config.AreaCore]
				core.Decls = append(core.Decls, funcDecl("setCallback", parser.Param{Name: "cb", Type: "void (*)(void *)"}))
			},
			target: ErrUnrecognizedType,
		},
		{
			name: "unrecognized field",
			mutate: func(cfg *config.Config, in *Input) {
				core := in.Areas[config.AreaCore]
				core.Decls = append(core.Decls, &parser.StructDecl{
					Name:   "Callbacks",
					Fields: []parser.Field{{Name: "pfn", Type: "void (*)(void *)"}},
				})
			},
			target: ErrUnrecognizedType,
		},
		{
			name: "no image format",
			mutate: func(cfg *config.Config, in *Input) {
				in.ImageFormat = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, in := fixtures(t)
			tt.mutate(cfg, &in)
			require.NoError(t, cfg.Validate())

			files, err := New(cfg, in).Generate()
			require.Error(t, err)
			assert.Nil(t, files)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestUnrecognizedTypeErrorLocation(t *testing.T) {
	cfg, in := fixtures(t)
	core := in.Areas[config.AreaCore]
	core.Decls = append(core.Decls, funcDecl("setCallback", parser.Param{Name: "cb", Type: "void (*)(void *)"}))

	_, err := New(cfg, in).Generate()

	var unrecognized *UnrecognizedTypeError
	require.True(t, errors.As(err, &unrecognized))
	assert.Equal(t, "setCallback(cb)", unrecognized.Where)
	assert.Equal(t, "void (*)(void *)", unrecognized.Type)
}

func TestCollisionNamesBothDeclarations(t *testing.T) {
	cfg, in := fixtures(t)
	core := in.Areas[config.AreaCore]
	core.Decls = append(core.Decls, funcDecl("loadShader"))

	_, err := New(cfg, in).Generate()

	var collision *NameCollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, "RHI_loadShader", collision.Target)
	assert.Equal(t, "core:loadShader", collision.First)
	assert.Equal(t, "resourceloader:addShader", collision.Second)
}

func TestWarnUnusedAdapter(t *testing.T) {
	cfg, in := fixtures(t)
	cfg.Adapters = append(cfg.Adapters, config.Adapter{Function: "addRaytracingPipeline", Kind: config.AdapterSubresourceCopy})
	require.NoError(t, cfg.Validate())

	log, hook := logtest.NewNullLogger()
	generate(t, cfg, in, WithLogger(log))

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = append(warned, e.Data["function"].(string))
		}
	}
	assert.Equal(t, []string{"addRaytracingPipeline"}, warned)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "generation complete", last.Message)
	assert.Equal(t, 17, last.Data["artifacts"])
}
