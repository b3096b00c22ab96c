package xcodeproj

import (
	"fmt"
	"strings"
)

// fields consumes known keys from a raw object. Whatever is left after
// decoding is the object's Extra.
type fields struct {
	m   map[string]interface{}
	err error
}

func newFields(obj map[string]interface{}) *fields {
	m := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		m[k] = v
	}
	delete(m, "isa")
	return &fields{m: m}
}

func (f *fields) str(key string) string {
	v, ok := f.m[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		if f.err == nil {
			f.err = fmt.Errorf("%s: expected string, got %T", key, v)
		}
		return ""
	}
	// An explicit empty value stays in Extra so it is written back.
	if s != "" {
		delete(f.m, key)
	}
	return s
}

// list returns nil when key is absent and a non-nil slice when present.
func (f *fields) list(key string) []string {
	v, ok := f.m[key]
	if !ok {
		return nil
	}
	delete(f.m, key)
	items, ok := v.([]interface{})
	if !ok {
		if f.err == nil {
			f.err = fmt.Errorf("%s: expected array, got %T", key, v)
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			if f.err == nil {
				f.err = fmt.Errorf("%s: expected array of strings, got %T element", key, item)
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func (f *fields) dict(key string) map[string]interface{} {
	v, ok := f.m[key]
	if !ok {
		return nil
	}
	delete(f.m, key)
	d, ok := v.(map[string]interface{})
	if !ok && f.err == nil {
		f.err = fmt.Errorf("%s: expected dictionary, got %T", key, v)
	}
	return d
}

func (f *fields) rest() map[string]interface{} {
	if len(f.m) == 0 {
		return nil
	}
	return f.m
}

// object builds a raw object for encoding.
type object map[string]interface{}

func newObject(isa string, extra map[string]interface{}) object {
	o := make(object, len(extra)+8)
	for k, v := range extra {
		o[k] = v
	}
	o["isa"] = isa
	return o
}

func (o object) str(key, v string) {
	if v != "" {
		o[key] = v
	}
}

func (o object) list(key string, v []string) {
	if v == nil {
		return
	}
	items := make([]interface{}, len(v))
	for i, s := range v {
		items[i] = s
	}
	o[key] = items
}

func (o object) dict(key string, v map[string]interface{}) {
	if v != nil {
		o[key] = v
	}
}

func (p *Project) decodeObject(id string, obj map[string]interface{}) error {
	isa, _ := obj["isa"].(string)
	if isa == "" {
		return fmt.Errorf("missing isa")
	}

	f := newFields(obj)
	switch {
	case isa == IsaProject:
		p.Root = &ProjectObject{
			ID:                     id,
			MainGroup:              f.str("mainGroup"),
			ProductRefGroup:        f.str("productRefGroup"),
			BuildConfigurationList: f.str("buildConfigurationList"),
			Targets:                f.list("targets"),
			Attributes:             f.dict("attributes"),
		}
		p.Root.Extra = f.rest()
	case isa == IsaNativeTarget:
		t := &Target{
			ID:                     id,
			Name:                   f.str("name"),
			ProductName:            f.str("productName"),
			ProductType:            f.str("productType"),
			ProductReference:       f.str("productReference"),
			BuildConfigurationList: f.str("buildConfigurationList"),
			BuildPhases:            f.list("buildPhases"),
			BuildRules:             f.list("buildRules"),
			Dependencies:           f.list("dependencies"),
		}
		t.Extra = f.rest()
		p.Targets[id] = t
	case isa == IsaGroup:
		g := &Group{
			ID:         id,
			Name:       f.str("name"),
			Path:       f.str("path"),
			SourceTree: f.str("sourceTree"),
			Children:   f.list("children"),
		}
		g.Extra = f.rest()
		p.Groups[id] = g
	case isa == IsaFileReference:
		r := &FileReference{
			ID:                id,
			Name:              f.str("name"),
			Path:              f.str("path"),
			SourceTree:        f.str("sourceTree"),
			LastKnownFileType: f.str("lastKnownFileType"),
			ExplicitFileType:  f.str("explicitFileType"),
			IncludeInIndex:    f.str("includeInIndex"),
		}
		r.Extra = f.rest()
		p.FileRefs[id] = r
	case isa == IsaBuildFile:
		b := &BuildFile{
			ID:       id,
			FileRef:  f.str("fileRef"),
			Settings: f.dict("settings"),
		}
		b.Extra = f.rest()
		p.BuildFiles[id] = b
	case strings.HasSuffix(isa, "BuildPhase"):
		ph := &BuildPhase{
			ID:                                 id,
			Isa:                                isa,
			Name:                               f.str("name"),
			BuildActionMask:                    f.str("buildActionMask"),
			Files:                              f.list("files"),
			DstPath:                            f.str("dstPath"),
			DstSubfolderSpec:                   f.str("dstSubfolderSpec"),
			RunOnlyForDeploymentPostprocessing: f.str("runOnlyForDeploymentPostprocessing"),
		}
		ph.Extra = f.rest()
		p.Phases[id] = ph
	case isa == IsaConfigurationList:
		l := &ConfigurationList{
			ID:                            id,
			BuildConfigurations:           f.list("buildConfigurations"),
			DefaultConfigurationIsVisible: f.str("defaultConfigurationIsVisible"),
			DefaultConfigurationName:      f.str("defaultConfigurationName"),
		}
		l.Extra = f.rest()
		p.ConfigLists[id] = l
	case isa == IsaBuildConfiguration:
		c := &BuildConfiguration{
			ID:                         id,
			Name:                       f.str("name"),
			BaseConfigurationReference: f.str("baseConfigurationReference"),
			BuildSettings:              f.dict("buildSettings"),
		}
		if c.BuildSettings == nil {
			c.BuildSettings = map[string]interface{}{}
		}
		c.Extra = f.rest()
		p.Configs[id] = c
	case isa == IsaTargetDependency:
		d := &TargetDependency{
			ID:          id,
			Target:      f.str("target"),
			TargetProxy: f.str("targetProxy"),
		}
		d.Extra = f.rest()
		p.Dependencies[id] = d
	case isa == IsaContainerItemProxy:
		x := &ContainerItemProxy{
			ID:                   id,
			ContainerPortal:      f.str("containerPortal"),
			ProxyType:            f.str("proxyType"),
			RemoteGlobalIDString: f.str("remoteGlobalIDString"),
			RemoteInfo:           f.str("remoteInfo"),
		}
		x.Extra = f.rest()
		p.Proxies[id] = x
	default:
		p.other[id] = obj
		return nil
	}
	if f.err != nil {
		return fmt.Errorf("%s: %w", isa, f.err)
	}
	return nil
}

// encodeObjects returns every object in raw form keyed by ID.
func (p *Project) encodeObjects() map[string]object {
	out := make(map[string]object, p.objectCount())

	if r := p.Root; r != nil {
		o := newObject(IsaProject, r.Extra)
		o.str("mainGroup", r.MainGroup)
		o.str("productRefGroup", r.ProductRefGroup)
		o.str("buildConfigurationList", r.BuildConfigurationList)
		o.list("targets", r.Targets)
		o.dict("attributes", r.Attributes)
		out[r.ID] = o
	}
	for id, t := range p.Targets {
		o := newObject(IsaNativeTarget, t.Extra)
		o.str("name", t.Name)
		o.str("productName", t.ProductName)
		o.str("productType", t.ProductType)
		o.str("productReference", t.ProductReference)
		o.str("buildConfigurationList", t.BuildConfigurationList)
		o.list("buildPhases", t.BuildPhases)
		o.list("buildRules", t.BuildRules)
		o.list("dependencies", t.Dependencies)
		out[id] = o
	}
	for id, g := range p.Groups {
		o := newObject(IsaGroup, g.Extra)
		o.str("name", g.Name)
		o.str("path", g.Path)
		o.str("sourceTree", g.SourceTree)
		o.list("children", g.Children)
		out[id] = o
	}
	for id, r := range p.FileRefs {
		o := newObject(IsaFileReference, r.Extra)
		o.str("name", r.Name)
		o.str("path", r.Path)
		o.str("sourceTree", r.SourceTree)
		o.str("lastKnownFileType", r.LastKnownFileType)
		o.str("explicitFileType", r.ExplicitFileType)
		o.str("includeInIndex", r.IncludeInIndex)
		out[id] = o
	}
	for id, b := range p.BuildFiles {
		o := newObject(IsaBuildFile, b.Extra)
		o.str("fileRef", b.FileRef)
		o.dict("settings", b.Settings)
		out[id] = o
	}
	for id, ph := range p.Phases {
		o := newObject(ph.Isa, ph.Extra)
		o.str("name", ph.Name)
		o.str("buildActionMask", ph.BuildActionMask)
		o.list("files", ph.Files)
		o.str("dstPath", ph.DstPath)
		o.str("dstSubfolderSpec", ph.DstSubfolderSpec)
		o.str("runOnlyForDeploymentPostprocessing", ph.RunOnlyForDeploymentPostprocessing)
		out[id] = o
	}
	for id, l := range p.ConfigLists {
		o := newObject(IsaConfigurationList, l.Extra)
		o.list("buildConfigurations", l.BuildConfigurations)
		o.str("defaultConfigurationIsVisible", l.DefaultConfigurationIsVisible)
		o.str("defaultConfigurationName", l.DefaultConfigurationName)
		out[id] = o
	}
	for id, c := range p.Configs {
		o := newObject(IsaBuildConfiguration, c.Extra)
		o.str("name", c.Name)
		o.str("baseConfigurationReference", c.BaseConfigurationReference)
		settings := c.BuildSettings
		if settings == nil {
			settings = map[string]interface{}{}
		}
		o.dict("buildSettings", settings)
		out[id] = o
	}
	for id, d := range p.Dependencies {
		o := newObject(IsaTargetDependency, d.Extra)
		o.str("target", d.Target)
		o.str("targetProxy", d.TargetProxy)
		out[id] = o
	}
	for id, x := range p.Proxies {
		o := newObject(IsaContainerItemProxy, x.Extra)
		o.str("containerPortal", x.ContainerPortal)
		o.str("proxyType", x.ProxyType)
		o.str("remoteGlobalIDString", x.RemoteGlobalIDString)
		o.str("remoteInfo", x.RemoteInfo)
		out[id] = o
	}
	for id, obj := range p.other {
		out[id] = object(obj)
	}
	return out
}
