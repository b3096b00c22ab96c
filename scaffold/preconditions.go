package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nomis52/dinamicisland/config"
	"github.com/nomis52/dinamicisland/status"
	"github.com/nomis52/dinamicisland/templates"
	"github.com/nomis52/dinamicisland/xcodeproj"
)

// CheckPreconditions verifies the project can be scaffolded and loads
// everything later steps share. It never writes to disk.
type CheckPreconditions struct {
	Logger *slog.Logger
	Status *status.Line

	Project  config.ProjectConfig  `config:"project"`
	Scaffold config.ScaffoldConfig `config:"scaffold"`

	templates           *templates.Bundle
	iosDir              string
	pbxprojPath         string
	descriptor          *xcodeproj.Project
	baseline            []byte
	mainTarget          *xcodeproj.Target
	appBundleID         string
	infoPlistPath       string
	entitlementsPath    string
	entitlementsSetting string
}

func (s *CheckPreconditions) Init() error {
	return nil
}

func (s *CheckPreconditions) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		s.Status.Set("checking preconditions")

		bundle, err := s.resolveTemplates()
		if err != nil {
			return err
		}

		iosDir := s.Project.IOSPath()
		if info, err := os.Stat(iosDir); err != nil || !info.IsDir() {
			return &PreconditionError{
				Subject: "native project directory",
				Path:    iosDir,
				Reason:  "not found",
				Hint:    "run `expo prebuild` first to generate it",
				Err:     err,
			}
		}

		xcodeprojPath, err := s.findXcodeProject(iosDir)
		if err != nil {
			return err
		}
		pbxprojPath := filepath.Join(xcodeprojPath, "project.pbxproj")
		descriptor, err := xcodeproj.Load(pbxprojPath)
		if err != nil {
			return &PreconditionError{
				Subject: "project descriptor",
				Path:    pbxprojPath,
				Reason:  err.Error(),
				Err:     err,
			}
		}
		baseline, err := descriptor.Marshal()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", pbxprojPath, err)
		}

		main, err := descriptor.MainTarget()
		if err != nil {
			return &PreconditionError{
				Subject: "project descriptor",
				Path:    pbxprojPath,
				Reason:  err.Error(),
				Hint:    "the project must contain an application target",
				Err:     err,
			}
		}

		bundleID, err := s.resolveBundleID(descriptor, main)
		if err != nil {
			return err
		}

		infoRel := s.Project.InfoPlist
		if infoRel == "" {
			infoRel = projectRelative(descriptor, main, "INFOPLIST_FILE", main.Name+"/Info.plist")
		}
		infoPath := filepath.Join(iosDir, filepath.FromSlash(infoRel))
		if _, err := os.Stat(infoPath); err != nil {
			return &PreconditionError{
				Subject: "host Info.plist",
				Path:    infoPath,
				Reason:  "not found",
				Hint:    "set project.info_plist to its location relative to " + iosDir,
				Err:     err,
			}
		}

		entRel := s.Project.Entitlements
		if entRel == "" {
			entRel = projectRelative(descriptor, main, "CODE_SIGN_ENTITLEMENTS", main.Name+"/"+main.Name+".entitlements")
		}

		s.templates = bundle
		s.iosDir = iosDir
		s.pbxprojPath = pbxprojPath
		s.descriptor = descriptor
		s.baseline = baseline
		s.mainTarget = main
		s.appBundleID = bundleID
		s.infoPlistPath = infoPath
		s.entitlementsSetting = entRel
		s.entitlementsPath = filepath.Join(iosDir, filepath.FromSlash(entRel))

		s.Logger.Debug("preconditions satisfied",
			"project", pbxprojPath,
			"main_target", main.Name,
			"bundle_identifier", bundleID,
			"templates", bundle.Source(),
		)
		s.Status.Set(fmt.Sprintf("found %s, app %s", filepath.Base(xcodeprojPath), bundleID))
		return nil
	})
}

func (s *CheckPreconditions) resolveTemplates() (*templates.Bundle, error) {
	if s.Scaffold.TemplatesDir == "" {
		return templates.Default(), nil
	}
	bundle, err := templates.Open(s.Scaffold.TemplatesDir)
	if err != nil {
		return nil, &PreconditionError{
			Subject: "template bundle",
			Path:    s.Scaffold.TemplatesDir,
			Reason:  "not a readable directory",
			Hint:    "unset scaffold.templates_dir to use the built-in templates",
			Err:     err,
		}
	}
	if missing := bundle.Missing(); len(missing) > 0 {
		return nil, &PreconditionError{
			Subject: "template bundle",
			Path:    s.Scaffold.TemplatesDir,
			Reason:  "missing " + strings.Join(missing, ", "),
			Hint:    "add the missing files or unset scaffold.templates_dir",
			Err:     bundle.Verify(),
		}
	}
	return bundle, nil
}

func (s *CheckPreconditions) findXcodeProject(iosDir string) (string, error) {
	if s.Project.XcodeProject != "" {
		path := filepath.Join(iosDir, s.Project.XcodeProject)
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			return "", &PreconditionError{Subject: "xcode project", Path: path, Reason: "not found", Err: err}
		}
		return path, nil
	}

	matches, err := filepath.Glob(filepath.Join(iosDir, "*.xcodeproj"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", &PreconditionError{
			Subject: "xcode project",
			Path:    iosDir,
			Reason:  "no .xcodeproj found",
			Hint:    "run `expo prebuild` first to generate it",
		}
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = filepath.Base(m)
		}
		return "", &PreconditionError{
			Subject: "xcode project",
			Path:    iosDir,
			Reason:  "found " + strings.Join(names, ", "),
			Hint:    "set project.xcodeproj to choose one",
		}
	}
}

func (s *CheckPreconditions) resolveBundleID(p *xcodeproj.Project, main *xcodeproj.Target) (string, error) {
	if s.Project.BundleIdentifier != "" {
		return s.Project.BundleIdentifier, nil
	}
	id, ok := p.BuildSetting(main, "PRODUCT_BUNDLE_IDENTIFIER")
	if !ok || id == "" || strings.Contains(id, "$(") {
		reason := "PRODUCT_BUNDLE_IDENTIFIER is not set on target " + main.Name
		if ok && id != "" {
			reason = fmt.Sprintf("PRODUCT_BUNDLE_IDENTIFIER %q on target %s is not a literal value", id, main.Name)
		}
		return "", &PreconditionError{
			Subject: "app bundle identifier",
			Reason:  reason,
			Hint:    "set project.bundle_identifier or " + config.EnvPrefix + "_PROJECT_BUNDLE_IDENTIFIER",
		}
	}
	return id, nil
}

// projectRelative reads a path-valued build setting of t, relative to the
// project directory, falling back to def when unset or not a plain path.
func projectRelative(p *xcodeproj.Project, t *xcodeproj.Target, key, def string) string {
	v, ok := p.BuildSetting(t, key)
	if !ok {
		return def
	}
	for _, prefix := range []string{"$(SRCROOT)/", "$(PROJECT_DIR)/"} {
		v = strings.TrimPrefix(v, prefix)
	}
	if v == "" || strings.Contains(v, "$(") {
		return def
	}
	return v
}

// Templates returns the resolved template bundle.
func (s *CheckPreconditions) Templates() *templates.Bundle { return s.templates }

// IOSDir returns the native project directory.
func (s *CheckPreconditions) IOSDir() string { return s.iosDir }

// WidgetDir returns the directory the extension sources live in.
func (s *CheckPreconditions) WidgetDir() string { return filepath.Join(s.iosDir, TargetName) }

// PBXProjPath returns the path of project.pbxproj.
func (s *CheckPreconditions) PBXProjPath() string { return s.pbxprojPath }

// Descriptor returns the decoded project. Steps that mutate it are ordered
// by their dependencies and never run concurrently.
func (s *CheckPreconditions) Descriptor() *xcodeproj.Project { return s.descriptor }

// Baseline returns the encoding of the descriptor as it was loaded.
func (s *CheckPreconditions) Baseline() []byte { return s.baseline }

// MainTarget returns the host application target.
func (s *CheckPreconditions) MainTarget() *xcodeproj.Target { return s.mainTarget }

// AppBundleID returns the host application's bundle identifier.
func (s *CheckPreconditions) AppBundleID() string { return s.appBundleID }

// WidgetBundleID returns the extension's bundle identifier.
func (s *CheckPreconditions) WidgetBundleID() string { return WidgetBundleID(s.appBundleID) }

// InfoPlistPath returns the host Info.plist location.
func (s *CheckPreconditions) InfoPlistPath() string { return s.infoPlistPath }

// EntitlementsPath returns the host entitlements location. The file may not exist yet.
func (s *CheckPreconditions) EntitlementsPath() string { return s.entitlementsPath }

// EntitlementsSetting returns the CODE_SIGN_ENTITLEMENTS value for the host.
func (s *CheckPreconditions) EntitlementsSetting() string { return s.entitlementsSetting }
