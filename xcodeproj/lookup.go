package xcodeproj

import (
	"errors"
	"fmt"
)

// ErrNoMainTarget is returned when the descriptor has no application target.
var ErrNoMainTarget = errors.New("no application target found")

// TargetList returns the project's targets in declaration order.
func (p *Project) TargetList() []*Target {
	out := make([]*Target, 0, len(p.Root.Targets))
	for _, id := range p.Root.Targets {
		if t, ok := p.Targets[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// FindTarget returns the target with the given name.
func (p *Project) FindTarget(name string) (*Target, bool) {
	for _, t := range p.TargetList() {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// MainTarget returns the first application target.
func (p *Project) MainTarget() (*Target, error) {
	for _, t := range p.TargetList() {
		if t.ProductType == ProductTypeApplication {
			return t, nil
		}
	}
	return nil, ErrNoMainTarget
}

// MainGroup returns the project's top-level group.
func (p *Project) MainGroup() (*Group, error) {
	g, ok := p.Groups[p.Root.MainGroup]
	if !ok {
		return nil, fmt.Errorf("main group %s not found", p.Root.MainGroup)
	}
	return g, nil
}

// FindGroup returns the child group of parent whose name (or path) is name.
func (p *Project) FindGroup(parent *Group, name string) (*Group, bool) {
	for _, id := range parent.Children {
		if g, ok := p.Groups[id]; ok && g.DisplayName() == name {
			return g, true
		}
	}
	return nil, false
}

// Configurations returns the build configurations of t in list order.
func (p *Project) Configurations(t *Target) ([]*BuildConfiguration, error) {
	return p.listConfigs(t.BuildConfigurationList, t.Name)
}

func (p *Project) listConfigs(listID, owner string) ([]*BuildConfiguration, error) {
	list, ok := p.ConfigLists[listID]
	if !ok {
		return nil, fmt.Errorf("%s: configuration list %s not found", owner, listID)
	}
	out := make([]*BuildConfiguration, 0, len(list.BuildConfigurations))
	for _, id := range list.BuildConfigurations {
		c, ok := p.Configs[id]
		if !ok {
			return nil, fmt.Errorf("%s: build configuration %s not found", owner, id)
		}
		out = append(out, c)
	}
	return out, nil
}

// BuildSetting returns a string build setting of t, read from its default
// configuration (or the first one when no default is named).
func (p *Project) BuildSetting(t *Target, key string) (string, bool) {
	list, ok := p.ConfigLists[t.BuildConfigurationList]
	if !ok || len(list.BuildConfigurations) == 0 {
		return "", false
	}
	chosen := p.Configs[list.BuildConfigurations[0]]
	for _, id := range list.BuildConfigurations {
		if c := p.Configs[id]; c != nil && c.Name == list.DefaultConfigurationName {
			chosen = c
			break
		}
	}
	if chosen == nil {
		return "", false
	}
	v, ok := chosen.BuildSettings[key].(string)
	return v, ok
}

// Phase returns the first build phase of t with the given isa.
func (p *Project) Phase(t *Target, isa string) (*BuildPhase, bool) {
	for _, id := range t.BuildPhases {
		if ph, ok := p.Phases[id]; ok && ph.Isa == isa {
			return ph, true
		}
	}
	return nil, false
}

// PhaseFiles returns the file references included in a build phase.
func (p *Project) PhaseFiles(ph *BuildPhase) []*FileReference {
	var out []*FileReference
	for _, id := range ph.Files {
		if bf, ok := p.BuildFiles[id]; ok {
			if ref, ok := p.FileRefs[bf.FileRef]; ok {
				out = append(out, ref)
			}
		}
	}
	return out
}

func (p *Project) buildFileFor(ph *BuildPhase, refID string) (*BuildFile, bool) {
	for _, id := range ph.Files {
		if bf, ok := p.BuildFiles[id]; ok && bf.FileRef == refID {
			return bf, true
		}
	}
	return nil, false
}
