// Package config holds the immutable tables that drive translation: the
// handle and base type sets, backend guards, ignore lists, name overrides
// and the adapter registry keys.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Area names. Every area gets its own enum, struct and function headers.
const (
	AreaCore             = "core"
	AreaResourceLoader   = "resourceloader"
	AreaRay              = "ray"
	AreaShaderReflection = "shaderreflection"
)

// Areas lists the areas in emission order.
var Areas = []string{AreaCore, AreaResourceLoader, AreaRay, AreaShaderReflection}

// AdapterKind names a hand-written translation body.
type AdapterKind string

const (
	AdapterSwapChainWindow    AdapterKind = "swapchain_window"
	AdapterBinaryShaderStages AdapterKind = "binary_shader_stages"
	AdapterSourceShaderStages AdapterKind = "source_shader_stages"
	AdapterSubresourceCopy    AdapterKind = "subresource_copy"
)

var adapterKinds = map[AdapterKind]bool{
	AdapterSwapChainWindow:    true,
	AdapterBinaryShaderStages: true,
	AdapterSourceShaderStages: true,
	AdapterSubresourceCopy:    true,
}

// Platform families a backend library can be built for.
const (
	PlatformWindows = "windows"
	PlatformApple   = "apple"
	PlatformOther   = "other"
)

type Area struct {
	Name  string `yaml:"name"`
	Input string `yaml:"input"`
}

type ImageFormat struct {
	Input      string `yaml:"input"`
	Enum       string `yaml:"enum"`
	ItemPrefix string `yaml:"item_prefix"`
	Target     string `yaml:"target"`
	ItemTarget string `yaml:"item_target"`
}

type FieldGuard struct {
	Struct string   `yaml:"struct"`
	Fields []string `yaml:"fields"`
	Guard  string   `yaml:"guard"`
}

type FunctionGuard struct {
	Pattern string `yaml:"pattern"`
	Guard   string `yaml:"guard"`

	g glob.Glob
}

type DefaultValue struct {
	Struct string `yaml:"struct"`
	Field  string `yaml:"field"`
	Value  string `yaml:"value"`
}

type Rename struct {
	Area string `yaml:"area"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Overload disambiguates a group of functions sharing a source name by
// looking for substrings in their first parameter.
type Overload struct {
	Name     string    `yaml:"name"`
	Match    string    `yaml:"match"`
	Variants []Variant `yaml:"variants"`
}

type Variant struct {
	Contains string `yaml:"contains"`
	Target   string `yaml:"target"`
}

// MatchesType reports whether the rule inspects the parameter type rather
// than its name.
func (o *Overload) MatchesType() bool {
	return o.Match == "type"
}

type ScopedName struct {
	Area string `yaml:"area"`
	Name string `yaml:"name"`
}

type Adapter struct {
	Area     string      `yaml:"area"`
	Function string      `yaml:"function"`
	Kind     AdapterKind `yaml:"kind"`
}

type Backend struct {
	Enumerator string   `yaml:"enumerator"`
	Library    string   `yaml:"library"`
	Platforms  []string `yaml:"platforms"`
}

type Loader struct {
	Strict bool `yaml:"strict"`
}

// Config is fully built before generation starts and never mutated by it.
type Config struct {
	Prefix      string      `yaml:"prefix"`
	Areas       []Area      `yaml:"areas"`
	ImageFormat ImageFormat `yaml:"imageformat"`

	Handles               []string          `yaml:"handles"`
	BaseTypes             []string          `yaml:"base_types"`
	TypeRenames           map[string]string `yaml:"type_renames"`
	PassthroughTypes      []string          `yaml:"passthrough_types"`
	PassthroughSubstrings []string          `yaml:"passthrough_substrings"`

	FieldGuards    []FieldGuard      `yaml:"field_guards"`
	StructGuards   map[string]string `yaml:"struct_guards"`
	FunctionGuards []FunctionGuard   `yaml:"function_guards"`

	IgnoredStructs   []string       `yaml:"ignored_structs"`
	UncheckedStructs []string       `yaml:"unchecked_structs"`
	DefaultValues    []DefaultValue `yaml:"default_values"`

	Renames       []Rename     `yaml:"renames"`
	Overloads     []Overload   `yaml:"overloads"`
	SkipFunctions []ScopedName `yaml:"skip_functions"`

	Adapters         []Adapter `yaml:"adapters"`
	AdaptedTypes     []string  `yaml:"adapted_types"`
	InternalExterns  []string  `yaml:"internal_externs"`
	InternalIncludes []string  `yaml:"internal_includes"`

	Backends []Backend `yaml:"backends"`
	Loader   Loader    `yaml:"loader"`

	handles      map[string]bool
	baseTypes    map[string]bool
	passthrough  map[string]bool
	fieldGuards  map[[2]string]string
	ignored      map[string]bool
	unchecked    map[string]bool
	defaults     map[[2]string]string
	overloads    map[string]*Overload
	adaptedTypes map[string]bool
}

// Default returns the built-in tables.
func Default() *Config {
	cfg, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads a table file. The file replaces the defaults as a whole.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML tables.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the tables and builds the lookup indexes. It must be
// called again after any field is changed.
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("config: prefix is required")
	}

	known := make(map[string]bool)
	for _, a := range Areas {
		known[a] = true
	}
	seenArea := make(map[string]bool)
	for _, a := range c.Areas {
		if !known[a.Name] {
			return fmt.Errorf("config: unknown area %q", a.Name)
		}
		if seenArea[a.Name] {
			return fmt.Errorf("config: area %q listed twice", a.Name)
		}
		seenArea[a.Name] = true
	}

	c.handles = toSet(c.Handles)
	c.baseTypes = toSet(c.BaseTypes)
	c.passthrough = toSet(c.PassthroughTypes)
	c.ignored = toSet(c.IgnoredStructs)
	c.unchecked = toSet(c.UncheckedStructs)
	c.adaptedTypes = toSet(c.AdaptedTypes)

	c.fieldGuards = make(map[[2]string]string)
	for _, fg := range c.FieldGuards {
		if fg.Guard == "" {
			return fmt.Errorf("config: field guard for %s has no condition", fg.Struct)
		}
		for _, f := range fg.Fields {
			key := [2]string{fg.Struct, f}
			if prev, ok := c.fieldGuards[key]; ok && prev != fg.Guard {
				return fmt.Errorf("config: conflicting guards for %s.%s", fg.Struct, f)
			}
			c.fieldGuards[key] = fg.Guard
		}
	}

	for i := range c.FunctionGuards {
		g, err := glob.Compile(c.FunctionGuards[i].Pattern)
		if err != nil {
			return fmt.Errorf("config: function guard pattern %q: %w", c.FunctionGuards[i].Pattern, err)
		}
		c.FunctionGuards[i].g = g
	}

	c.defaults = make(map[[2]string]string)
	for _, d := range c.DefaultValues {
		c.defaults[[2]string{d.Struct, d.Field}] = d.Value
	}

	renamed := make(map[[2]string]bool)
	for _, r := range c.Renames {
		key := [2]string{r.Area, r.From}
		if renamed[key] {
			return fmt.Errorf("config: %s renamed twice", r.From)
		}
		if r.To == "" {
			return fmt.Errorf("config: rename of %s has no target", r.From)
		}
		renamed[key] = true
	}

	c.overloads = make(map[string]*Overload)
	for i := range c.Overloads {
		o := &c.Overloads[i]
		if len(o.Variants) == 0 {
			return fmt.Errorf("config: overload %s has no variants", o.Name)
		}
		if o.Match != "" && o.Match != "name" && o.Match != "type" {
			return fmt.Errorf("config: overload %s: unknown match %q", o.Name, o.Match)
		}
		targets := make(map[string]bool)
		for _, v := range o.Variants {
			if targets[v.Target] {
				return fmt.Errorf("config: overload %s maps two variants to %s", o.Name, v.Target)
			}
			targets[v.Target] = true
		}
		if _, dup := c.overloads[o.Name]; dup {
			return fmt.Errorf("config: overload %s listed twice", o.Name)
		}
		c.overloads[o.Name] = o
	}

	for _, a := range c.Adapters {
		if !adapterKinds[a.Kind] {
			return fmt.Errorf("config: adapter for %s has unknown kind %q", a.Function, a.Kind)
		}
	}

	for _, b := range c.Backends {
		for _, p := range b.Platforms {
			if p != PlatformWindows && p != PlatformApple && p != PlatformOther {
				return fmt.Errorf("config: backend %s: unknown platform %q", b.Enumerator, p)
			}
		}
	}

	return nil
}

func toSet(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

func (c *Config) IsHandle(name string) bool   { return c.handles[name] }
func (c *Config) IsBaseType(name string) bool { return c.baseTypes[name] }
func (c *Config) IsIgnored(name string) bool  { return c.ignored[name] }

// IsUnchecked reports whether a struct is translated but left out of the
// layout assertions.
func (c *Config) IsUnchecked(name string) bool { return c.unchecked[name] }

func (c *Config) IsAdaptedType(name string) bool { return c.adaptedTypes[name] }

// IsPassthrough reports whether a type name is emitted unchanged.
func (c *Config) IsPassthrough(name string) bool {
	if c.passthrough[name] {
		return true
	}
	for _, sub := range c.PassthroughSubstrings {
		if strings.Contains(name, sub) {
			return true
		}
	}
	return false
}

// TypeRename returns the replacement base name for a type exception.
func (c *Config) TypeRename(name string) (string, bool) {
	to, ok := c.TypeRenames[name]
	return to, ok
}

// FieldGuard returns the guard registered for a struct member.
func (c *Config) FieldGuard(structName, field string) string {
	return c.fieldGuards[[2]string{structName, field}]
}

// StructGuard returns the guard wrapping a whole struct.
func (c *Config) StructGuard(structName string) string {
	return c.StructGuards[structName]
}

// FunctionGuard returns the guard of the first pattern matching name.
func (c *Config) FunctionGuard(name string) string {
	for _, fg := range c.FunctionGuards {
		if fg.g != nil && fg.g.Match(name) {
			return fg.Guard
		}
	}
	return ""
}

// DefaultValue returns the inline initializer registered for a member.
func (c *Config) DefaultValue(structName, field string) string {
	return c.defaults[[2]string{structName, field}]
}

// Rename returns the unconditional target for a function name. Area
// scoped entries win over unscoped ones.
func (c *Config) Rename(area, name string) (string, bool) {
	var global string
	found := false
	for _, r := range c.Renames {
		if r.From != name {
			continue
		}
		if r.Area == area {
			return r.To, true
		}
		if r.Area == "" {
			global, found = r.To, true
		}
	}
	return global, found
}

// Overload returns the disambiguation rule for a source name.
func (c *Config) Overload(name string) *Overload {
	return c.overloads[name]
}

// IsSkipped reports whether a function has no implementation and is left
// out of every artifact.
func (c *Config) IsSkipped(area, name string) bool {
	for _, s := range c.SkipFunctions {
		if s.Name == name && (s.Area == "" || s.Area == area) {
			return true
		}
	}
	return false
}

// Adapter returns the adapter registered for a function.
func (c *Config) Adapter(area, name string) (AdapterKind, bool) {
	var global AdapterKind
	found := false
	for _, a := range c.Adapters {
		if a.Function != name {
			continue
		}
		if a.Area == area {
			return a.Kind, true
		}
		if a.Area == "" {
			global, found = a.Kind, true
		}
	}
	return global, found
}

// AreaInput returns the configured input for an area.
func (c *Config) AreaInput(area string) (string, bool) {
	for _, a := range c.Areas {
		if a.Name == area {
			return a.Input, true
		}
	}
	return "", false
}
