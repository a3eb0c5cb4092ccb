package generator

import (
	"fmt"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/config"
	"github.com/ardanlabs/rhi-bindgen/parser"
)

// adapterShape is what an adapter body needs from the function it is
// registered for and from the input.
type adapterShape struct {
	param   string
	structs []string
}

var adapterShapes = map[config.AdapterKind]adapterShape{
	config.AdapterSwapChainWindow:    {param: "SwapChainDesc", structs: []string{"SwapChainDesc"}},
	config.AdapterBinaryShaderStages: {param: "BinaryShaderDesc", structs: []string{"BinaryShaderDesc", "BinaryShaderStageDesc"}},
	config.AdapterSourceShaderStages: {param: "ShaderDesc", structs: []string{"ShaderDesc", "ShaderStageDesc"}},
	config.AdapterSubresourceCopy:    {param: subresourceDesc},
}

// checkAdapterShape fails when the registered adapter cannot translate
// the function as declared.
func (g *Generator) checkAdapterShape(fn *function) error {
	shape, ok := adapterShapes[fn.adapter]
	if !ok {
		return &MissingAdapterError{Function: fn.decl.Name, Reason: fmt.Sprintf("no body for adapter kind %q", fn.adapter)}
	}

	ret, err := parser.ParseType(fn.decl.ReturnType)
	if err != nil {
		return &UnrecognizedTypeError{Where: fn.decl.Name + " return", Type: fn.decl.ReturnType, Err: err}
	}
	if ret.Name != "void" || ret.PointerDepth() != 0 {
		return &MissingAdapterError{Function: fn.decl.Name, Reason: fmt.Sprintf("adapter %s cannot return %s", fn.adapter, fn.decl.ReturnType)}
	}

	if _, err := g.adaptedParam(fn, shape.param); err != nil {
		return err
	}

	for _, s := range shape.structs {
		if _, ok := g.structs[s]; !ok {
			return &MissingAdapterError{Function: fn.decl.Name, Reason: fmt.Sprintf("adapter %s needs the declaration of %s", fn.adapter, s)}
		}
	}

	return nil
}

// adaptedParam returns the index of the single-pointer parameter of type
// typeName.
func (g *Generator) adaptedParam(fn *function, typeName string) (int, error) {
	for i, p := range fn.params {
		ref, err := parser.ParseType(p.Type)
		if err != nil {
			return -1, &UnrecognizedTypeError{Where: fmt.Sprintf("%s(%s)", fn.decl.Name, p.Name), Type: p.Type, Err: err}
		}
		if ref.Name == typeName && ref.PointerDepth() == 1 {
			return i, nil
		}
	}
	return -1, &MissingAdapterError{
		Function: fn.decl.Name,
		Reason:   fmt.Sprintf("adapter %s expects a %s pointer parameter", fn.adapter, typeName),
	}
}

// adapterBody renders the statements of an adapted function.
func (g *Generator) adapterBody(fn *function) ([]cdoc.Node, error) {
	switch fn.adapter {
	case config.AdapterSwapChainWindow:
		return g.swapChainWindowBody(fn)
	case config.AdapterBinaryShaderStages:
		return g.binaryShaderStagesBody(fn)
	case config.AdapterSourceShaderStages:
		return g.sourceShaderStagesBody(fn)
	case config.AdapterSubresourceCopy:
		return g.subresourceCopyBody(fn)
	}
	return nil, &MissingAdapterError{Function: fn.decl.Name, Reason: fmt.Sprintf("no body for adapter kind %q", fn.adapter)}
}

// adaptedCall forwards to the internal function, passing &desc in place
// of the adapted parameter.
func (g *Generator) adaptedCall(fn *function, typeName string) (cdoc.Node, error) {
	idx, err := g.adaptedParam(fn, typeName)
	if err != nil {
		return nil, err
	}
	args, err := g.arguments(fn, map[int]string{idx: "&desc"})
	if err != nil {
		return nil, err
	}
	return cdoc.Linef("%s(%s);", fn.decl.Name, args), nil
}

// copyFields assigns every member of structName from src to dst, under
// the member guards. Arrays and embedded structs are copied bytewise.
func (g *Generator) copyFields(structName, dst, src string, skip map[string]bool) ([]cdoc.Node, error) {
	decl, ok := g.structs[structName]
	if !ok {
		return nil, fmt.Errorf("struct %s not declared", structName)
	}

	var nodes []cdoc.Node
	for _, f := range decl.Fields {
		if f.Name == "" || f.IsRecord() || skip[f.Name] || isAnonymousMember(f) {
			continue
		}

		where := structName + "." + f.Name
		res, err := g.resolve(where, f.Type)
		if err != nil {
			return nil, err
		}

		var line cdoc.Line
		if res.Ref.IsArray || g.resolver.IsStructValue(res.Ref) {
			line = cdoc.Linef("memcpy(&%[1]s%[3]s, &%[2]s%[3]s, sizeof(%[1]s%[3]s));", dst, src, f.Name)
		} else {
			internal, err := g.internal(where, f.Type)
			if err != nil {
				return nil, err
			}
			line = cdoc.Linef("%s%s = (%s)%s%s;", dst, f.Name, internal, src, f.Name)
		}

		nodes = append(nodes, cdoc.Guarded(g.fieldGuard(structName, f), line))
	}

	return nodes, nil
}

// =============================================================================

const windowHandleField = "mWindowHandle"

func (g *Generator) swapChainWindowBody(fn *function) ([]cdoc.Node, error) {
	idx, err := g.adaptedParam(fn, "SwapChainDesc")
	if err != nil {
		return nil, err
	}
	src := fn.params[idx].Name + "->"
	wh := src + windowHandleField

	fields, err := g.copyFields("SwapChainDesc", "desc.", src, map[string]bool{windowHandleField: true})
	if err != nil {
		return nil, err
	}

	call, err := g.adaptedCall(fn, "SwapChainDesc")
	if err != nil {
		return nil, err
	}

	window := &cdoc.Chain{Branches: []cdoc.Branch{
		{Cond: "defined(VK_USE_PLATFORM_XLIB_KHR)", Body: []cdoc.Node{
			cdoc.Linef("desc.mWindowHandle.display = (Display *)%s.display;", wh),
			cdoc.Linef("desc.mWindowHandle.window = (Window)(uintptr_t)%s.window;", wh),
		}},
		{Cond: "defined(VK_USE_PLATFORM_ANDROID_KHR)", Body: []cdoc.Node{
			cdoc.Linef("desc.mWindowHandle.window = (ANativeWindow *)%s.window;", wh),
			cdoc.Linef("desc.mWindowHandle.activity = (ANativeActivity *)%s.activity;", wh),
		}},
		{Body: []cdoc.Node{
			cdoc.Linef("desc.mWindowHandle.window = (decltype(desc.mWindowHandle.window))%s.window;", wh),
		}},
	}}

	body := []cdoc.Node{
		cdoc.Line("SwapChainDesc desc{};"),
		window,
		cdoc.Group(fields),
		call,
	}
	return body, nil
}

// =============================================================================

// shaderStage pairs a stage flag with the descriptor member holding that
// stage.
type shaderStage struct {
	flag   string
	member string
	guard  string
}

const notMetal = "!defined(METAL)"

var binaryStages = []shaderStage{
	{"VERT", "mVert", ""},
	{"FRAG", "mFrag", ""},
	{"GEOM", "mGeom", notMetal},
	{"HULL", "mHull", notMetal},
	{"DOMN", "mDomain", notMetal},
	{"COMP", "mComp", ""},
}

var sourceStages = []shaderStage{
	{"VERT", "mVert", ""},
	{"FRAG", "mFrag", ""},
	{"COMP", "mComp", ""},
}

// stageFlags are translated one by one since the two enumerations are not
// guaranteed to share values.
var stageFlags = []shaderStage{
	{flag: "VERT"},
	{flag: "FRAG"},
	{flag: "COMP"},
	{flag: "TESC", guard: notMetal},
	{flag: "TESE", guard: notMetal},
	{flag: "GEOM", guard: notMetal},
	{flag: "RAYTRACING", guard: notMetal},
}

func (g *Generator) stageHelperName(suffix string) string {
	return g.cfg.Prefix + "_to" + suffix
}

func (g *Generator) stageFlagsHelper() cdoc.Node {
	var body []cdoc.Node
	body = append(body, cdoc.Line("uint32_t stage = SHADER_STAGE_NONE;"))
	for _, s := range stageFlags {
		line := cdoc.Linef("if (flags & %s_SHADER_STAGE_%s) stage |= SHADER_STAGE_%s;", g.cfg.Prefix, s.flag, s.flag)
		body = append(body, cdoc.Guarded(s.guard, line))
	}
	body = append(body, cdoc.Line("return (ShaderStage)stage;"))

	return cdoc.Group{
		cdoc.Linef("static ShaderStage %s(uint32_t flags)", g.stageHelperName("ShaderStage")),
		&cdoc.Block{Open: "{", Body: body, Close: "}"},
		cdoc.Blank{},
	}
}

func (g *Generator) stageCopyHelper(structName string) (cdoc.Node, error) {
	fields, err := g.copyFields(structName, "dst->", "src->", nil)
	if err != nil {
		return nil, err
	}

	return cdoc.Group{
		cdoc.Linef("static void %s(const %s *src, %s *dst)", g.stageHelperName(structName), g.prefixed(structName), structName),
		&cdoc.Block{Open: "{", Body: fields, Close: "}"},
		cdoc.Blank{},
	}, nil
}

// stageCopies copies each stage present in the descriptor and selected by
// the translated flags.
func (g *Generator) stageCopies(descName, stageStruct, src string, stages []shaderStage) []cdoc.Node {
	decl := g.structs[descName]
	present := make(map[string]bool)
	for _, f := range decl.Fields {
		present[f.Name] = true
	}

	var nodes []cdoc.Node
	for _, s := range stages {
		if !present[s.member] {
			continue
		}
		copyStage := []cdoc.Node{
			cdoc.Linef("if (desc.mStages & SHADER_STAGE_%s)", s.flag),
			&cdoc.Block{
				Open:  "{",
				Body:  []cdoc.Node{cdoc.Linef("%s(&%s%s, &desc.%s);", g.stageHelperName(stageStruct), src, s.member, s.member)},
				Close: "}",
			},
		}
		nodes = append(nodes, cdoc.Guarded(s.guard, copyStage...))
	}
	return nodes
}

func (g *Generator) binaryShaderStagesBody(fn *function) ([]cdoc.Node, error) {
	idx, err := g.adaptedParam(fn, "BinaryShaderDesc")
	if err != nil {
		return nil, err
	}
	src := fn.params[idx].Name + "->"

	call, err := g.adaptedCall(fn, "BinaryShaderDesc")
	if err != nil {
		return nil, err
	}

	body := []cdoc.Node{
		cdoc.Line("BinaryShaderDesc desc{};"),
		cdoc.Linef("desc.mStages = %s((uint32_t)%smStages);", g.stageHelperName("ShaderStage"), src),
		cdoc.Group(g.stageCopies("BinaryShaderDesc", "BinaryShaderStageDesc", src, binaryStages)),
		call,
	}
	return body, nil
}

// sourceShaderStagesBody translates the source shader path, which only
// the Metal backend implements.
func (g *Generator) sourceShaderStagesBody(fn *function) ([]cdoc.Node, error) {
	idx, err := g.adaptedParam(fn, "ShaderDesc")
	if err != nil {
		return nil, err
	}
	src := fn.params[idx].Name + "->"

	call, err := g.adaptedCall(fn, "ShaderDesc")
	if err != nil {
		return nil, err
	}

	var unused []cdoc.Node
	for _, p := range fn.params {
		unused = append(unused, cdoc.Linef("(void)%s;", p.Name))
	}

	return []cdoc.Node{&cdoc.Guard{
		Cond: "defined(METAL)",
		Body: []cdoc.Node{
			cdoc.Line("ShaderDesc desc{};"),
			cdoc.Linef("desc.mStages = %s((uint32_t)%smStages);", g.stageHelperName("ShaderStage"), src),
			cdoc.Group(g.stageCopies("ShaderDesc", "ShaderStageDesc", src, sourceStages)),
			call,
		},
		Else: unused,
	}}, nil
}

// =============================================================================

func (g *Generator) subresourceCopyBody(fn *function) ([]cdoc.Node, error) {
	idx, err := g.adaptedParam(fn, subresourceDesc)
	if err != nil {
		return nil, err
	}
	src := fn.params[idx].Name + "->"

	call, err := g.adaptedCall(fn, subresourceDesc)
	if err != nil {
		return nil, err
	}

	body := []cdoc.Node{cdoc.Line(subresourceDesc + " desc{};")}
	for _, f := range subresourceFields {
		body = append(body, cdoc.Guarded(f.guard, cdoc.Linef("desc.%[1]s = %[2]s%[1]s;", f.name, src)))
	}
	body = append(body, call)

	return body, nil
}

// internalSubresourceDesc declares the internal descriptor, which the
// internal headers keep private.
func internalSubresourceDesc() cdoc.Node {
	var fields []cdoc.Node
	for _, f := range subresourceFields {
		fields = append(fields, cdoc.Guarded(f.guard, cdoc.Linef("%s %s;", f.ctype, f.name)))
	}
	return cdoc.Group{
		cdoc.Line("struct " + subresourceDesc),
		&cdoc.Block{Open: "{", Body: fields, Close: "};"},
		cdoc.Blank{},
	}
}

// =============================================================================

// adapterHelpers renders the static helpers the used adapters call, each
// once.
func (g *Generator) adapterHelpers(funcs []*function) ([]cdoc.Node, error) {
	used := make(map[config.AdapterKind]bool)
	for _, fn := range funcs {
		if fn.adapter != "" {
			used[fn.adapter] = true
		}
	}

	var nodes []cdoc.Node

	if used[config.AdapterBinaryShaderStages] || used[config.AdapterSourceShaderStages] {
		nodes = append(nodes, g.stageFlagsHelper())
	}

	if used[config.AdapterBinaryShaderStages] {
		helper, err := g.stageCopyHelper("BinaryShaderStageDesc")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, helper)
	}

	if used[config.AdapterSourceShaderStages] {
		helper, err := g.stageCopyHelper("ShaderStageDesc")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, cdoc.Guarded("defined(METAL)", helper))
	}

	return nodes, nil
}
