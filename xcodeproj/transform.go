package xcodeproj

import (
	"fmt"
	"path"
	"strings"
)

const (
	buildActionMask = "2147483647"

	// dstSubfolderPlugIns is the copy-files destination for app extensions.
	dstSubfolderPlugIns = "13"

	// EmbedPhaseName is the name Xcode gives the phase that embeds extensions.
	EmbedPhaseName = "Embed Foundation Extensions"
)

// TargetSpec describes a target to create with AddTargetIfAbsent.
type TargetSpec struct {
	Name        string
	ProductType string
	// Configurations names the build configurations to create. Defaults to
	// the project-level configuration names.
	Configurations []string
}

// AddTargetIfAbsent returns the target named spec.Name, creating it with
// Sources, Frameworks and Resources phases, a configuration list and a
// product reference when it does not exist yet.
func (p *Project) AddTargetIfAbsent(spec TargetSpec) (*Target, bool) {
	if t, ok := p.FindTarget(spec.Name); ok {
		return t, false
	}

	names, defaultName := p.configurationNames(spec.Configurations)

	product := &FileReference{
		ID:               p.NewID("product:" + spec.Name),
		Path:             spec.Name + productExtension(spec.ProductType),
		SourceTree:       "BUILT_PRODUCTS_DIR",
		ExplicitFileType: explicitFileType(spec.ProductType),
		IncludeInIndex:   "0",
	}
	p.FileRefs[product.ID] = product
	if g, ok := p.Groups[p.Root.ProductRefGroup]; ok {
		g.Children = append(g.Children, product.ID)
	}

	list := &ConfigurationList{
		ID:                            p.NewID("configlist:" + spec.Name),
		BuildConfigurations:           []string{},
		DefaultConfigurationIsVisible: "0",
		DefaultConfigurationName:      defaultName,
	}
	p.ConfigLists[list.ID] = list
	for _, name := range names {
		c := &BuildConfiguration{
			ID:   p.NewID("config:" + spec.Name + ":" + name),
			Name: name,
			BuildSettings: map[string]interface{}{
				"PRODUCT_NAME": "$(TARGET_NAME)",
				"SKIP_INSTALL": "YES",
			},
		}
		p.Configs[c.ID] = c
		list.BuildConfigurations = append(list.BuildConfigurations, c.ID)
	}

	t := &Target{
		ID:                     p.NewID("target:" + spec.Name),
		Name:                   spec.Name,
		ProductName:            spec.Name,
		ProductType:            spec.ProductType,
		ProductReference:       product.ID,
		BuildConfigurationList: list.ID,
		BuildPhases:            []string{},
		BuildRules:             []string{},
		Dependencies:           []string{},
	}
	p.Targets[t.ID] = t
	p.Root.Targets = append(p.Root.Targets, t.ID)

	for _, isa := range []string{IsaSourcesBuildPhase, IsaFrameworksBuildPhase, IsaResourcesBuildPhase} {
		p.ensurePhase(t, isa)
	}
	return t, true
}

// configurationNames returns the names to create and the default name.
func (p *Project) configurationNames(requested []string) ([]string, string) {
	var names []string
	defaultName := ""
	if list, ok := p.ConfigLists[p.Root.BuildConfigurationList]; ok {
		defaultName = list.DefaultConfigurationName
		for _, id := range list.BuildConfigurations {
			if c, ok := p.Configs[id]; ok {
				names = append(names, c.Name)
			}
		}
	}
	if len(requested) > 0 {
		names = requested
	}
	if len(names) == 0 {
		names = []string{"Debug", "Release"}
	}
	if defaultName == "" {
		defaultName = names[len(names)-1]
	}
	return names, defaultName
}

// AddGroupIfAbsent returns the child of parent named name, creating it with
// the given path when absent. A nil parent means the main group.
func (p *Project) AddGroupIfAbsent(parent *Group, name, groupPath string) (*Group, bool, error) {
	if parent == nil {
		var err error
		if parent, err = p.MainGroup(); err != nil {
			return nil, false, err
		}
	}
	if g, ok := p.FindGroup(parent, name); ok {
		return g, false, nil
	}

	g := &Group{
		ID:         p.NewID("group:" + parent.ID + ":" + name),
		Path:       groupPath,
		SourceTree: "<group>",
		Children:   []string{},
	}
	if name != groupPath {
		g.Name = name
	}
	p.Groups[g.ID] = g
	parent.Children = append(parent.Children, g.ID)
	return g, true, nil
}

// AttachFile adds a reference to filePath (relative to group) unless one
// exists, then includes it in the phase matching its type on every target.
// Files with no compile or copy role, such as property lists, are only
// added to the group.
func (p *Project) AttachFile(group *Group, filePath string, targets ...*Target) (*FileReference, bool, error) {
	ref, changed := p.addFileReference(group, filePath)
	for _, t := range targets {
		added, err := p.addToTarget(t, ref)
		if err != nil {
			return nil, false, err
		}
		changed = changed || added
	}
	return ref, changed, nil
}

func (p *Project) addFileReference(group *Group, filePath string) (*FileReference, bool) {
	for _, id := range group.Children {
		if ref, ok := p.FileRefs[id]; ok && ref.Path == filePath {
			return ref, false
		}
	}
	ref := &FileReference{
		ID:                p.NewID("file:" + group.ID + ":" + filePath),
		Path:              filePath,
		SourceTree:        "<group>",
		LastKnownFileType: fileType(filePath),
	}
	if base := path.Base(filePath); base != filePath {
		ref.Name = base
	}
	p.FileRefs[ref.ID] = ref
	group.Children = append(group.Children, ref.ID)
	return ref, true
}

func (p *Project) addToTarget(t *Target, ref *FileReference) (bool, error) {
	isa := phaseFor(ref.Path)
	if isa == "" {
		return false, nil
	}
	ph := p.ensurePhase(t, isa)
	if _, ok := p.buildFileFor(ph, ref.ID); ok {
		return false, nil
	}
	p.addBuildFile(ph, ref, nil)
	return true, nil
}

func (p *Project) ensurePhase(t *Target, isa string) *BuildPhase {
	if ph, ok := p.Phase(t, isa); ok {
		return ph
	}
	ph := &BuildPhase{
		ID:                                 p.NewID("phase:" + t.ID + ":" + isa),
		Isa:                                isa,
		BuildActionMask:                    buildActionMask,
		Files:                              []string{},
		RunOnlyForDeploymentPostprocessing: "0",
	}
	p.Phases[ph.ID] = ph
	t.BuildPhases = append(t.BuildPhases, ph.ID)
	return ph
}

func (p *Project) addBuildFile(ph *BuildPhase, ref *FileReference, settings map[string]interface{}) *BuildFile {
	bf := &BuildFile{
		ID:       p.NewID("buildfile:" + ph.ID + ":" + ref.ID),
		FileRef:  ref.ID,
		Settings: settings,
	}
	p.BuildFiles[bf.ID] = bf
	ph.Files = append(ph.Files, bf.ID)
	return bf
}

// SetBuildSetting sets key to value in every build configuration of t.
func (p *Project) SetBuildSetting(t *Target, key, value string) (bool, error) {
	configs, err := p.Configurations(t)
	if err != nil {
		return false, err
	}
	changed := false
	for _, c := range configs {
		if cur, ok := c.BuildSettings[key].(string); ok && cur == value {
			continue
		}
		if c.BuildSettings == nil {
			c.BuildSettings = map[string]interface{}{}
		}
		c.BuildSettings[key] = value
		changed = true
	}
	return changed, nil
}

// SetBuildSettingIfAbsent sets key only in configurations that do not define it.
func (p *Project) SetBuildSettingIfAbsent(t *Target, key, value string) (bool, error) {
	configs, err := p.Configurations(t)
	if err != nil {
		return false, err
	}
	changed := false
	for _, c := range configs {
		if _, ok := c.BuildSettings[key]; ok {
			continue
		}
		if c.BuildSettings == nil {
			c.BuildSettings = map[string]interface{}{}
		}
		c.BuildSettings[key] = value
		changed = true
	}
	return changed, nil
}

// AddFramework links the SDK framework name (for example "WidgetKit.framework")
// into t. With weak set the link is marked optional.
func (p *Project) AddFramework(t *Target, name string, weak bool) (bool, error) {
	if path.Ext(name) != ".framework" {
		return false, fmt.Errorf("framework %q must end in .framework", name)
	}

	group, changed, err := p.AddGroupIfAbsent(nil, "Frameworks", "")
	if err != nil {
		return false, err
	}

	sdkPath := "System/Library/Frameworks/" + name
	var ref *FileReference
	for _, r := range p.FileRefs {
		if r.Path == sdkPath && r.SourceTree == "SDKROOT" {
			if ref == nil || r.ID < ref.ID {
				ref = r
			}
		}
	}
	if ref == nil {
		ref = &FileReference{
			ID:                p.NewID("framework:" + name),
			Name:              name,
			Path:              sdkPath,
			SourceTree:        "SDKROOT",
			LastKnownFileType: "wrapper.framework",
		}
		p.FileRefs[ref.ID] = ref
		group.Children = append(group.Children, ref.ID)
		changed = true
	}

	ph := p.ensurePhase(t, IsaFrameworksBuildPhase)
	if bf, ok := p.buildFileFor(ph, ref.ID); ok {
		if weak && !hasAttribute(bf, "Weak") {
			addAttribute(bf, "Weak")
			changed = true
		}
		return changed, nil
	}

	var settings map[string]interface{}
	if weak {
		settings = map[string]interface{}{"ATTRIBUTES": []interface{}{"Weak"}}
	}
	p.addBuildFile(ph, ref, settings)
	return true, nil
}

// IsWeakLinked reports whether t links the framework name weakly.
func (p *Project) IsWeakLinked(t *Target, name string) bool {
	ph, ok := p.Phase(t, IsaFrameworksBuildPhase)
	if !ok {
		return false
	}
	for _, id := range ph.Files {
		bf := p.BuildFiles[id]
		if bf == nil {
			continue
		}
		if ref := p.FileRefs[bf.FileRef]; ref != nil && path.Base(ref.Path) == name {
			return hasAttribute(bf, "Weak")
		}
	}
	return false
}

// EmbedExtension makes host depend on ext and copies ext's product into
// the host's PlugIns folder.
func (p *Project) EmbedExtension(host, ext *Target) (bool, error) {
	product, ok := p.FileRefs[ext.ProductReference]
	if !ok {
		return false, fmt.Errorf("%s: product reference %q not found", ext.Name, ext.ProductReference)
	}

	changed := false
	if !p.dependsOn(host, ext) {
		proxy := &ContainerItemProxy{
			ID:                   p.NewID("proxy:" + host.ID + ":" + ext.ID),
			ContainerPortal:      p.RootID,
			ProxyType:            "1",
			RemoteGlobalIDString: ext.ID,
			RemoteInfo:           ext.Name,
		}
		p.Proxies[proxy.ID] = proxy
		dep := &TargetDependency{
			ID:          p.NewID("dependency:" + host.ID + ":" + ext.ID),
			Target:      ext.ID,
			TargetProxy: proxy.ID,
		}
		p.Dependencies[dep.ID] = dep
		host.Dependencies = append(host.Dependencies, dep.ID)
		changed = true
	}

	ph := p.embedPhase(host)
	if ph == nil {
		ph = &BuildPhase{
			ID:                                 p.NewID("phase:" + host.ID + ":embed"),
			Isa:                                IsaCopyFilesBuildPhase,
			Name:                               EmbedPhaseName,
			BuildActionMask:                    buildActionMask,
			Files:                              []string{},
			DstSubfolderSpec:                   dstSubfolderPlugIns,
			RunOnlyForDeploymentPostprocessing: "0",
			Extra:                              map[string]interface{}{"dstPath": ""},
		}
		p.Phases[ph.ID] = ph
		host.BuildPhases = append(host.BuildPhases, ph.ID)
		changed = true
	}
	if _, ok := p.buildFileFor(ph, product.ID); !ok {
		p.addBuildFile(ph, product, map[string]interface{}{
			"ATTRIBUTES": []interface{}{"RemoveHeadersOnCopy"},
		})
		changed = true
	}
	return changed, nil
}

func (p *Project) dependsOn(host, ext *Target) bool {
	for _, id := range host.Dependencies {
		if d, ok := p.Dependencies[id]; ok && d.Target == ext.ID {
			return true
		}
	}
	return false
}

func (p *Project) embedPhase(host *Target) *BuildPhase {
	for _, id := range host.BuildPhases {
		if ph, ok := p.Phases[id]; ok && ph.Isa == IsaCopyFilesBuildPhase && ph.DstSubfolderSpec == dstSubfolderPlugIns {
			return ph
		}
	}
	return nil
}

// IsEmbedded reports whether host embeds ext's product.
func (p *Project) IsEmbedded(host, ext *Target) bool {
	ph := p.embedPhase(host)
	if ph == nil {
		return false
	}
	_, ok := p.buildFileFor(ph, ext.ProductReference)
	return ok && p.dependsOn(host, ext)
}

func hasAttribute(bf *BuildFile, attr string) bool {
	attrs, _ := bf.Settings["ATTRIBUTES"].([]interface{})
	for _, a := range attrs {
		if s, ok := a.(string); ok && s == attr {
			return true
		}
	}
	return false
}

func addAttribute(bf *BuildFile, attr string) {
	if bf.Settings == nil {
		bf.Settings = map[string]interface{}{}
	}
	attrs, _ := bf.Settings["ATTRIBUTES"].([]interface{})
	bf.Settings["ATTRIBUTES"] = append(attrs, attr)
}

func productExtension(productType string) string {
	switch productType {
	case ProductTypeApplication:
		return ".app"
	case ProductTypeAppExtension:
		return ".appex"
	default:
		return ""
	}
}

func explicitFileType(productType string) string {
	switch productType {
	case ProductTypeApplication:
		return "wrapper.application"
	case ProductTypeAppExtension:
		return "wrapper.app-extension"
	default:
		return "compiled.mach-o.executable"
	}
}

func fileType(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".swift":
		return "sourcecode.swift"
	case ".m":
		return "sourcecode.c.objc"
	case ".h":
		return "sourcecode.c.h"
	case ".plist":
		return "text.plist.xml"
	case ".entitlements":
		return "text.plist.entitlements"
	case ".xcassets":
		return "folder.assetcatalog"
	case ".storyboard":
		return "file.storyboard"
	case ".json":
		return "text.json"
	default:
		return "text"
	}
}

// phaseFor returns the phase a file of this type belongs to, or "" for none.
func phaseFor(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".swift", ".m", ".mm", ".c":
		return IsaSourcesBuildPhase
	case ".xcassets", ".storyboard", ".xib", ".strings", ".json":
		return IsaResourcesBuildPhase
	default:
		return ""
	}
}
