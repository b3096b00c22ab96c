package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/nomis52/dinamicisland/config"
	"github.com/nomis52/dinamicisland/status"
	"github.com/nomis52/dinamicisland/templates"
	"github.com/nomis52/dinamicisland/xcodeproj"
)

// LocateTarget looks for an existing extension target. When one is found
// the target, shared source and build setting steps leave the descriptor
// alone.
type LocateTarget struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions

	Scaffold config.ScaffoldConfig `config:"scaffold"`

	found bool
}

func (s *LocateTarget) Init() error {
	return nil
}

func (s *LocateTarget) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		if !s.Scaffold.AutoScaffoldEnabled() {
			s.Status.Set("auto scaffold disabled")
			return nil
		}
		t, ok := s.Pre.Descriptor().FindTarget(TargetName)
		if !ok {
			s.Status.Set("target " + TargetName + " not found")
			return nil
		}
		if t.ProductType != xcodeproj.ProductTypeAppExtension {
			s.Logger.Warn("existing target is not an app extension", "target", t.Name, "product_type", t.ProductType)
		}
		s.found = true
		s.Status.Set("target " + TargetName + " already exists")
		return nil
	})
}

// Found reports whether the extension target already existed.
func (s *LocateTarget) Found() bool {
	return s.found
}

// CreateTarget adds the extension target, its group and its sources.
type CreateTarget struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions
	Locate *LocateTarget
	_      *StageArtifacts
	_      *SynthesizeManifest

	Scaffold config.ScaffoldConfig `config:"scaffold"`

	target *xcodeproj.Target
}

func (s *CreateTarget) Init() error {
	return nil
}

func (s *CreateTarget) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		if !s.Scaffold.AutoScaffoldEnabled() || s.Locate.Found() {
			s.Status.Set("nothing to create")
			return nil
		}

		p := s.Pre.Descriptor()
		ext, _ := p.AddTargetIfAbsent(xcodeproj.TargetSpec{
			Name:        TargetName,
			ProductType: xcodeproj.ProductTypeAppExtension,
		})

		group, _, err := p.AddGroupIfAbsent(nil, TargetName, TargetName)
		if err != nil {
			return fmt.Errorf("adding group %s: %w", TargetName, err)
		}
		for _, src := range widgetSources {
			if _, _, err := p.AttachFile(group, path.Base(src), ext); err != nil {
				return fmt.Errorf("attaching %s: %w", src, err)
			}
		}
		if _, _, err := p.AttachFile(group, manifestName); err != nil {
			return fmt.Errorf("attaching %s: %w", manifestName, err)
		}

		s.target = ext
		s.Logger.Info("target created", "target", ext.Name, "id", ext.ID)
		s.Status.Changed("created target " + TargetName)
		return nil
	})
}

// Target returns the target created by this run, or nil when none was.
func (s *CreateTarget) Target() *xcodeproj.Target {
	return s.target
}

// AttachSharedSource compiles the host copy of the attributes definition
// into both the application and the extension.
type AttachSharedSource struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions
	Create *CreateTarget
}

func (s *AttachSharedSource) Init() error {
	return nil
}

func (s *AttachSharedSource) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		ext := s.Create.Target()
		if ext == nil {
			s.Status.Set("no new target")
			return nil
		}

		p := s.Pre.Descriptor()
		group, err := p.MainGroup()
		if err != nil {
			return err
		}
		name := path.Base(templates.AttributesFile)
		if _, _, err := p.AttachFile(group, name, s.Pre.MainTarget(), ext); err != nil {
			return fmt.Errorf("attaching %s: %w", name, err)
		}
		s.Status.Changed(fmt.Sprintf("%s shared by %s and %s", name, s.Pre.MainTarget().Name, ext.Name))
		return nil
	})
}

// PropagateBuildSettings configures the new target and embeds it in the host.
type PropagateBuildSettings struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions
	Create *CreateTarget
	_      *AttachSharedSource
}

func (s *PropagateBuildSettings) Init() error {
	return nil
}

func (s *PropagateBuildSettings) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		ext := s.Create.Target()
		if ext == nil {
			s.Status.Set("no new target")
			return nil
		}

		p := s.Pre.Descriptor()
		settings := []struct{ key, value string }{
			{"PRODUCT_BUNDLE_IDENTIFIER", s.Pre.WidgetBundleID()},
			{"INFOPLIST_FILE", TargetName + "/" + manifestName},
			{"IPHONEOS_DEPLOYMENT_TARGET", MinimumDeploymentTarget},
			{"TARGETED_DEVICE_FAMILY", DeviceFamily},
			{"SWIFT_VERSION", SwiftVersion},
		}
		for _, kv := range settings {
			if _, err := p.SetBuildSetting(ext, kv.key, kv.value); err != nil {
				return fmt.Errorf("setting %s: %w", kv.key, err)
			}
		}

		for _, fw := range WeakFrameworks {
			if _, err := p.AddFramework(ext, fw, true); err != nil {
				return fmt.Errorf("linking %s: %w", fw, err)
			}
		}

		if _, err := p.EmbedExtension(s.Pre.MainTarget(), ext); err != nil {
			return fmt.Errorf("embedding %s: %w", ext.Name, err)
		}

		s.Logger.Debug("build settings applied", "target", ext.Name, "bundle_identifier", s.Pre.WidgetBundleID())
		s.Status.Changed(fmt.Sprintf("configured %s for iOS %s", ext.Name, MinimumDeploymentTarget))
		return nil
	})
}
