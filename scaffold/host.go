package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nomis52/dinamicisland/config"
	"github.com/nomis52/dinamicisland/manifest"
	"github.com/nomis52/dinamicisland/status"
)

// ConfigureEntitlements declares the notification and Live Activity
// entitlements on the host application.
type ConfigureEntitlements struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions
	_      *PropagateBuildSettings

	Scaffold config.ScaffoldConfig `config:"scaffold"`
}

func (s *ConfigureEntitlements) Init() error {
	return nil
}

func (s *ConfigureEntitlements) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		if !s.Scaffold.LiveActivitiesEnabled() {
			s.Status.Set("live activities disabled")
			return nil
		}

		path := s.Pre.EntitlementsPath()
		wrote, err := updatePlist(path, true, manifest.MergeEntitlements)
		if err != nil {
			return err
		}

		main := s.Pre.MainTarget()
		set, err := s.Pre.Descriptor().SetBuildSettingIfAbsent(main, "CODE_SIGN_ENTITLEMENTS", s.Pre.EntitlementsSetting())
		if err != nil {
			return fmt.Errorf("setting CODE_SIGN_ENTITLEMENTS: %w", err)
		}
		if set {
			s.Logger.Info("entitlements linked", "target", main.Name, "path", s.Pre.EntitlementsSetting())
		}

		if !wrote && !set {
			s.Status.Set("entitlements up to date")
			return nil
		}
		s.Status.Changed("declared entitlements in " + path)
		return nil
	})
}

// ConfigureInfoPlist adds the notification usage description and the Live
// Activity flag to the host Info.plist.
type ConfigureInfoPlist struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions

	Scaffold config.ScaffoldConfig `config:"scaffold"`
}

func (s *ConfigureInfoPlist) Init() error {
	if s.Scaffold.NotificationUsageDescription == "" {
		return fmt.Errorf("notification usage description is required")
	}
	return nil
}

func (s *ConfigureInfoPlist) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		path := s.Pre.InfoPlistPath()
		wrote, err := updatePlist(path, false, func(d manifest.Dict) (bool, error) {
			return manifest.EnsureHostInfo(d, s.Scaffold.NotificationUsageDescription, s.Scaffold.LiveActivitiesEnabled()), nil
		})
		if err != nil {
			return err
		}
		if !wrote {
			s.Status.Set("Info.plist up to date")
			return nil
		}
		s.Status.Changed("updated " + path)
		return nil
	})
}

// updatePlist decodes the property list at path, applies edit and writes
// the result back when edit reports a change. With create set a missing
// file is treated as empty.
func updatePlist(path string, create bool, edit func(manifest.Dict) (bool, error)) (bool, error) {
	data, err := readOptional(path)
	if err != nil {
		return false, err
	}
	if data == nil && !create {
		return false, &IOError{Op: "read", Path: path, Err: os.ErrNotExist}
	}

	d, err := manifest.Decode(data)
	if err != nil {
		return false, &IOError{Op: "decode", Path: path, Err: err}
	}
	changed, err := edit(d)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if !changed {
		return false, nil
	}

	out, err := manifest.Encode(d)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, &IOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	return writeIfChanged(path, out)
}
