package generator

import (
	"strings"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
)

// accessor is a hand-written function reading data back out of an opaque
// handle. "$P" in any of its text stands for the prefix.
type accessor struct {
	name   string
	ret    string
	params []string
	body   []string
}

func (a accessor) signature(prefix string) signature {
	r := strings.NewReplacer("$P", prefix)

	sig := signature{ret: Resolved{Text: r.Replace(a.ret)}}
	for _, p := range a.params {
		sig.params = append(sig.params, r.Replace(p))
	}
	return sig
}

func (a accessor) declare(prefix string) string {
	return a.signature(prefix).declare(prefix + "_" + a.name)
}

func (a accessor) define(prefix string) cdoc.Node {
	r := strings.NewReplacer("$P", prefix)

	var body []cdoc.Node
	for _, l := range a.body {
		body = append(body, cdoc.Line(r.Replace(l)))
	}

	return cdoc.Group{
		cdoc.Line(prefix + "_API " + a.declare(prefix)),
		&cdoc.Block{Open: "{", Body: body, Close: "}"},
		cdoc.Blank{},
	}
}

func formatQuery(name, query string) accessor {
	return accessor{
		name:   name,
		ret:    "bool",
		params: []string{"$P_RendererHandle handle", "$P_ImageFormat format"},
		body: []string{
			"Renderer *renderer = (Renderer *)handle;",
			"if (!renderer || (int)format >= (int)TinyImageFormat_Count)",
			"{",
			"    return false;",
			"}",
			"return renderer->pCapBits->" + query + "[(TinyImageFormat)format];",
		},
	}
}

func textureQuery(name, member string) accessor {
	return accessor{
		name:   name,
		ret:    "uint32_t",
		params: []string{"$P_TextureHandle handle"},
		body:   []string{"return ((Texture *)handle)->" + member + ";"},
	}
}

var accessorTable = []accessor{
	{
		name:   "swapChainGetRenderTarget",
		ret:    "$P_RenderTargetHandle",
		params: []string{"$P_SwapChainHandle swapChain", "int index"},
		body:   []string{"return ($P_RenderTargetHandle)((SwapChain *)swapChain)->ppRenderTargets[index];"},
	},
	{
		name:   "swapChainGetVSync",
		ret:    "bool",
		params: []string{"$P_SwapChainHandle handle"},
		body:   []string{"return ((SwapChain *)handle)->mEnableVsync;"},
	},
	{
		name:   "renderTargetGetTexture",
		ret:    "$P_TextureHandle",
		params: []string{"$P_RenderTargetHandle renderTarget"},
		body:   []string{"return ($P_TextureHandle)((RenderTarget *)renderTarget)->pTexture;"},
	},
	{
		name:   "renderTargetGetDesc",
		ret:    "void",
		params: []string{"$P_RenderTargetHandle renderTarget", "$P_RenderTargetDesc *desc"},
		body: []string{
			"RenderTarget *rt = (RenderTarget *)renderTarget;",
			"if (!rt || !desc)",
			"{",
			"    return;",
			"}",
			"desc->mWidth = rt->mWidth;",
			"desc->mHeight = rt->mHeight;",
			"desc->mDepth = rt->mDepth;",
			"desc->mArraySize = rt->mArraySize;",
			"desc->mMipLevels = rt->mMipLevels;",
			"desc->mSampleCount = ($P_SampleCount)rt->mSampleCount;",
			"desc->mFormat = ($P_ImageFormat)rt->mFormat;",
			"memcpy(&desc->mClearValue, &rt->mClearValue, sizeof(desc->mClearValue));",
			"desc->mSampleQuality = rt->mSampleQuality;",
			"desc->mDescriptors = ($P_DescriptorType)rt->mDescriptors;",
		},
	},
	textureQuery("textureGetWidth", "mWidth"),
	textureQuery("textureGetHeight", "mHeight"),
	textureQuery("textureGetDepth", "mDepth"),
	textureQuery("textureGetMipLevels", "mMipLevels"),
	{
		name:   "getRendererApi",
		ret:    "$P_RendererApi",
		params: []string{"$P_RendererHandle handle"},
		body: []string{
			"Renderer *renderer = (Renderer *)handle;",
			"if (!renderer)",
			"{",
			"    return $P_RENDERER_API_VULKAN;",
			"}",
			"return ($P_RendererApi)renderer->mApi;",
		},
	},
	formatQuery("canShaderReadFrom", "canShaderReadFrom"),
	formatQuery("canShaderWriteTo", "canShaderWriteTo"),
	formatQuery("canRenderTargetWriteTo", "canRenderTargetWriteTo"),
	{
		// The reflection is owned by the shader and must not be freed.
		name:   "shaderGetPipelineReflection",
		ret:    "const $P_PipelineReflection *",
		params: []string{"$P_ShaderHandle shader"},
		body: []string{
			"if (!shader)",
			"{",
			"    return NULL;",
			"}",
			"return (const $P_PipelineReflection *)((Shader *)shader)->pReflection;",
		},
	},
}

func (g *Generator) accessors() []accessor {
	return accessorTable
}
