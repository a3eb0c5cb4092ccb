package generator

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/ardanlabs/rhi-bindgen/cdoc"
	"github.com/ardanlabs/rhi-bindgen/config"
)

const bannerWidth = 75

func banner() cdoc.Node {
	rule := strings.Repeat("/", bannerWidth)
	return cdoc.Group{
		cdoc.Line(rule),
		cdoc.Line("//"),
		cdoc.Line("//  Autogenerated by rhi-bindgen"),
		cdoc.Line("//"),
		cdoc.Line(rule),
	}
}

func enumsFile(area string) string {
	if area == config.AreaCore {
		return "enums.h"
	}
	return area + "_enums.h"
}

func structsFile(area string) string {
	if area == config.AreaCore {
		return "structs.h"
	}
	return area + "_structs.h"
}

func (g *Generator) funcsFile(area string) string {
	if area == config.AreaCore {
		return strings.ToLower(g.cfg.Prefix) + ".h"
	}
	return area + ".h"
}

func (g *Generator) implFile() string {
	return "private/" + strings.ToLower(g.cfg.Prefix) + ".cpp"
}

// includeGuard derives the guard macro from the artifact path:
// "resourceloader_enums.h" becomes "RHI_RESOURCELOADER_ENUMS_H_".
func (g *Generator) includeGuard(file string) string {
	base := strings.TrimSuffix(path.Base(file), path.Ext(file))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, base)
	return g.cfg.Prefix + "_" + base + "_H_"
}

// header wraps body in the banner and include guard shared by every
// generated header. An empty include separates include groups.
func (g *Generator) header(file string, includes []string, body ...cdoc.Node) *cdoc.File {
	guard := g.includeGuard(file)

	f := &cdoc.File{}
	f.Add(
		banner(),
		cdoc.Blank{},
		cdoc.Directive("#pragma once"),
		cdoc.Directive("#ifndef "+guard),
		cdoc.Directive("#define "+guard),
		cdoc.Blank{},
	)

	if len(includes) > 0 {
		for _, inc := range includes {
			if inc == "" {
				f.Add(cdoc.Blank{})
				continue
			}
			f.Add(cdoc.Directive("#include " + inc))
		}
		f.Add(cdoc.Blank{})
	}

	f.Add(body...)
	f.Add(cdoc.Directive("#endif // " + guard))

	return f
}

// externC wraps declarations for C++ consumers.
func externC(body ...cdoc.Node) cdoc.Node {
	return cdoc.Group{
		&cdoc.Guard{Cond: "defined(__cplusplus)", Body: []cdoc.Node{cdoc.Line(`extern "C" {`)}},
		cdoc.Blank{},
		cdoc.Group(body),
		&cdoc.Guard{Cond: "defined(__cplusplus)", Body: []cdoc.Node{cdoc.Line(`} // extern "C"`)}},
		cdoc.Blank{},
	}
}

func quoted(file string) string {
	return `"` + file + `"`
}

// =============================================================================

var exportTmpl = template.Must(template.New("export").Parse(`#if !defined({{.Prefix}}_API)
#    if defined(_WIN32)
#        if defined({{.Prefix}}_IMPLEMENTATION)
#            define {{.Prefix}}_API __declspec(dllexport)
#        else
#            define {{.Prefix}}_API __declspec(dllimport)
#        endif
#    else // defined(_WIN32)
#        if defined({{.Prefix}}_IMPLEMENTATION)
#            define {{.Prefix}}_API __attribute__((visibility("default")))
#        else
#            define {{.Prefix}}_API
#        endif
#    endif // defined(_WIN32)
#endif // !defined({{.Prefix}}_API)
`))

func (g *Generator) buildExport() (*cdoc.File, error) {
	macros, err := g.execute(exportTmpl)
	if err != nil {
		return nil, err
	}

	return g.header("export.h", nil, macros, cdoc.Blank{}), nil
}

// =============================================================================

var platformIncludeTmpl = template.Must(template.New("platform_include").Parse(`#if defined({{.Prefix}}_GLFW)
#include <GLFW/glfw3.h>
#endif // defined({{.Prefix}}_GLFW)

#if defined({{.Prefix}}_SDL)
#include <SDL.h>
#endif // defined({{.Prefix}}_SDL)
`))

var platformDeclTmpl = template.Must(template.New("platform").Parse(`#if defined({{.Prefix}}_GLFW)
{{.Prefix}}_API void {{.Prefix}}_setWindowHandleGLFW(GLFWwindow *window, {{.Prefix}}_WindowHandle *windowHandle);
#endif // defined({{.Prefix}}_GLFW)

#if defined({{.Prefix}}_SDL)
{{.Prefix}}_API void {{.Prefix}}_setWindowHandleSDL(SDL_Window *window, {{.Prefix}}_WindowHandle *windowHandle);
#endif // defined({{.Prefix}}_SDL)
`))

var platformImplTmpl = template.Must(template.New("platform_impl").Parse(`#if defined({{.Prefix}}_GLFW)
#if defined(_WIN32)
#define GLFW_EXPOSE_NATIVE_WIN32
#else
#define GLFW_EXPOSE_NATIVE_X11
#endif
#include <GLFW/glfw3native.h>

{{.Prefix}}_API void {{.Prefix}}_setWindowHandleGLFW(GLFWwindow *window, {{.Prefix}}_WindowHandle *windowHandle)
{
    if (!window || !windowHandle)
    {
        return;
    }
#if defined(_WIN32)
    windowHandle->window = (void *)glfwGetWin32Window(window);
#else
    windowHandle->window = (void *)(uintptr_t)glfwGetX11Window(window);
    windowHandle->display = (void *)glfwGetX11Display();
#endif
}
#endif // defined({{.Prefix}}_GLFW)

#if defined({{.Prefix}}_SDL)
#include <SDL_syswm.h>

{{.Prefix}}_API void {{.Prefix}}_setWindowHandleSDL(SDL_Window *window, {{.Prefix}}_WindowHandle *windowHandle)
{
    if (!window || !windowHandle)
    {
        return;
    }

    SDL_SysWMinfo info;
    SDL_VERSION(&info.version);
    if (!SDL_GetWindowWMInfo(window, &info))
    {
        return;
    }
#if defined(_WIN32)
    windowHandle->window = (void *)info.info.win.window;
#elif defined(__ANDROID__)
    windowHandle->window = (void *)info.info.android.window;
    windowHandle->activity = SDL_AndroidGetActivity();
#else
    windowHandle->window = (void *)(uintptr_t)info.info.x11.window;
    windowHandle->display = (void *)info.info.x11.display;
#endif
}
#endif // defined({{.Prefix}}_SDL)
`))

func (g *Generator) execute(t *template.Template) (cdoc.Node, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, map[string]string{"Prefix": g.cfg.Prefix}); err != nil {
		return nil, fmt.Errorf("executing %s template: %w", t.Name(), err)
	}
	return cdoc.Raw(buf.String()), nil
}

func (g *Generator) buildPlatform() (*cdoc.File, error) {
	incs, err := g.execute(platformIncludeTmpl)
	if err != nil {
		return nil, err
	}
	decls, err := g.execute(platformDeclTmpl)
	if err != nil {
		return nil, err
	}

	includes := []string{quoted("export.h"), quoted("structs.h")}
	return g.header("platform.h", includes, incs, cdoc.Blank{}, externC(decls, cdoc.Blank{})), nil
}
