package xcodeproj

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"howett.net/plist"
)

// Isa values of the object kinds modelled by this package.
const (
	IsaProject              = "PBXProject"
	IsaNativeTarget         = "PBXNativeTarget"
	IsaGroup                = "PBXGroup"
	IsaFileReference        = "PBXFileReference"
	IsaBuildFile            = "PBXBuildFile"
	IsaSourcesBuildPhase    = "PBXSourcesBuildPhase"
	IsaFrameworksBuildPhase = "PBXFrameworksBuildPhase"
	IsaResourcesBuildPhase  = "PBXResourcesBuildPhase"
	IsaCopyFilesBuildPhase  = "PBXCopyFilesBuildPhase"
	IsaConfigurationList    = "XCConfigurationList"
	IsaBuildConfiguration   = "XCBuildConfiguration"
	IsaTargetDependency     = "PBXTargetDependency"
	IsaContainerItemProxy   = "PBXContainerItemProxy"
)

// Product types.
const (
	ProductTypeApplication  = "com.apple.product-type.application"
	ProductTypeAppExtension = "com.apple.product-type.app-extension"
)

// header is the first line Xcode writes to every descriptor.
const header = "// !$*UTF8*$!\n"

// ErrNoRootObject is returned by Parse when rootObject does not name a PBXProject.
var ErrNoRootObject = errors.New("descriptor has no PBXProject root object")

// Project is a decoded project descriptor.
type Project struct {
	ArchiveVersion string
	ObjectVersion  string
	Classes        map[string]interface{}

	RootID string
	Root   *ProjectObject

	Targets      map[string]*Target
	Groups       map[string]*Group
	FileRefs     map[string]*FileReference
	BuildFiles   map[string]*BuildFile
	Phases       map[string]*BuildPhase
	ConfigLists  map[string]*ConfigurationList
	Configs      map[string]*BuildConfiguration
	Dependencies map[string]*TargetDependency
	Proxies      map[string]*ContainerItemProxy

	// other holds objects of kinds not modelled above, keyed by ID.
	other map[string]map[string]interface{}
	// extra holds unknown top-level keys.
	extra map[string]interface{}
}

// ProjectObject is the PBXProject root node.
type ProjectObject struct {
	ID                     string
	MainGroup              string
	ProductRefGroup        string
	BuildConfigurationList string
	Targets                []string
	Attributes             map[string]interface{}
	Extra                  map[string]interface{}
}

// Target is a PBXNativeTarget.
type Target struct {
	ID                     string
	Name                   string
	ProductName            string
	ProductType            string
	ProductReference       string
	BuildConfigurationList string
	BuildPhases            []string
	BuildRules             []string
	Dependencies           []string
	Extra                  map[string]interface{}
}

// Group is a PBXGroup.
type Group struct {
	ID         string
	Name       string
	Path       string
	SourceTree string
	Children   []string
	Extra      map[string]interface{}
}

// DisplayName returns Name, or Path when the group has no name.
func (g *Group) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return g.Path
}

// FileReference is a PBXFileReference.
type FileReference struct {
	ID                string
	Name              string
	Path              string
	SourceTree        string
	LastKnownFileType string
	ExplicitFileType  string
	IncludeInIndex    string
	Extra             map[string]interface{}
}

// BuildFile is a PBXBuildFile, the membership of a file reference in a build phase.
type BuildFile struct {
	ID       string
	FileRef  string
	Settings map[string]interface{}
	Extra    map[string]interface{}
}

// BuildPhase is any PBX*BuildPhase object. Fields specific to a phase kind
// that are not listed here (shell scripts, for example) live in Extra.
type BuildPhase struct {
	ID                                 string
	Isa                                string
	Name                               string
	BuildActionMask                    string
	Files                              []string
	DstPath                            string
	DstSubfolderSpec                   string
	RunOnlyForDeploymentPostprocessing string
	Extra                              map[string]interface{}
}

// ConfigurationList is an XCConfigurationList.
type ConfigurationList struct {
	ID                            string
	BuildConfigurations           []string
	DefaultConfigurationIsVisible string
	DefaultConfigurationName      string
	Extra                         map[string]interface{}
}

// BuildConfiguration is an XCBuildConfiguration.
type BuildConfiguration struct {
	ID                         string
	Name                       string
	BaseConfigurationReference string
	BuildSettings              map[string]interface{}
	Extra                      map[string]interface{}
}

// TargetDependency is a PBXTargetDependency.
type TargetDependency struct {
	ID          string
	Target      string
	TargetProxy string
	Extra       map[string]interface{}
}

// ContainerItemProxy is a PBXContainerItemProxy.
type ContainerItemProxy struct {
	ID                   string
	ContainerPortal      string
	ProxyType            string
	RemoteGlobalIDString string
	RemoteInfo           string
	Extra                map[string]interface{}
}

// document mirrors the top level of a descriptor.
type document struct {
	ArchiveVersion string                            `plist:"archiveVersion"`
	Classes        map[string]interface{}            `plist:"classes"`
	ObjectVersion  string                            `plist:"objectVersion"`
	Objects        map[string]map[string]interface{} `plist:"objects"`
	RootObject     string                            `plist:"rootObject"`
}

// Load reads and parses the descriptor at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a descriptor.
func Parse(data []byte) (*Project, error) {
	var raw map[string]interface{}
	if _, err := plist.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding property list: %w", err)
	}
	var doc document
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding descriptor: %w", err)
	}

	p := newProject()
	p.ArchiveVersion = doc.ArchiveVersion
	p.ObjectVersion = doc.ObjectVersion
	p.Classes = doc.Classes
	p.RootID = doc.RootObject
	for k, v := range raw {
		switch k {
		case "archiveVersion", "classes", "objectVersion", "objects", "rootObject":
		default:
			p.extra[k] = v
		}
	}

	for id, obj := range doc.Objects {
		if err := p.decodeObject(id, obj); err != nil {
			return nil, fmt.Errorf("object %s: %w", id, err)
		}
	}

	if p.Root == nil || p.Root.ID != p.RootID {
		return nil, ErrNoRootObject
	}
	return p, nil
}

func newProject() *Project {
	return &Project{
		Targets:      make(map[string]*Target),
		Groups:       make(map[string]*Group),
		FileRefs:     make(map[string]*FileReference),
		BuildFiles:   make(map[string]*BuildFile),
		Phases:       make(map[string]*BuildPhase),
		ConfigLists:  make(map[string]*ConfigurationList),
		Configs:      make(map[string]*BuildConfiguration),
		Dependencies: make(map[string]*TargetDependency),
		Proxies:      make(map[string]*ContainerItemProxy),
		other:        make(map[string]map[string]interface{}),
		extra:        make(map[string]interface{}),
	}
}

// Marshal encodes the descriptor as an OpenStep property list. Output is
// deterministic: encoding an unchanged Project twice yields identical bytes.
func (p *Project) Marshal() ([]byte, error) {
	objects := make(map[string]interface{}, p.objectCount())
	for id, obj := range p.encodeObjects() {
		objects[id] = map[string]interface{}(obj)
	}

	top := make(map[string]interface{}, len(p.extra)+5)
	for k, v := range p.extra {
		top[k] = v
	}
	top["archiveVersion"] = p.ArchiveVersion
	top["objectVersion"] = p.ObjectVersion
	classes := p.Classes
	if classes == nil {
		classes = map[string]interface{}{}
	}
	top["classes"] = classes
	top["objects"] = objects
	top["rootObject"] = p.RootID

	body, err := plist.MarshalIndent(maskRunes(top), plist.OpenStepFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	body = unmaskRunes(body)

	var buf bytes.Buffer
	buf.Grow(len(header) + len(body) + 1)
	buf.WriteString(header)
	buf.Write(body)
	if !bytes.HasSuffix(body, []byte("\n")) {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ObjectIDs returns every object ID in the descriptor, sorted.
func (p *Project) ObjectIDs() []string {
	ids := make([]string, 0, p.objectCount())
	for id := range p.encodeObjects() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Isa returns the isa of the object with the given ID, or "" if there is none.
func (p *Project) Isa(id string) string {
	switch {
	case p.Root != nil && p.Root.ID == id:
		return IsaProject
	case p.Targets[id] != nil:
		return IsaNativeTarget
	case p.Groups[id] != nil:
		return IsaGroup
	case p.FileRefs[id] != nil:
		return IsaFileReference
	case p.BuildFiles[id] != nil:
		return IsaBuildFile
	case p.Phases[id] != nil:
		return p.Phases[id].Isa
	case p.ConfigLists[id] != nil:
		return IsaConfigurationList
	case p.Configs[id] != nil:
		return IsaBuildConfiguration
	case p.Dependencies[id] != nil:
		return IsaTargetDependency
	case p.Proxies[id] != nil:
		return IsaContainerItemProxy
	}
	if obj, ok := p.other[id]; ok {
		isa, _ := obj["isa"].(string)
		return isa
	}
	return ""
}

func (p *Project) objectCount() int {
	n := len(p.Targets) + len(p.Groups) + len(p.FileRefs) + len(p.BuildFiles) +
		len(p.Phases) + len(p.ConfigLists) + len(p.Configs) + len(p.Dependencies) +
		len(p.Proxies) + len(p.other)
	if p.Root != nil {
		n++
	}
	return n
}

func (p *Project) hasID(id string) bool {
	return p.Isa(id) != ""
}
