package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/nomis52/dinamicisland/config"
	"github.com/nomis52/dinamicisland/manifest"
	"github.com/nomis52/dinamicisland/status"
	"github.com/nomis52/dinamicisland/templates"
)

// ProvisionDirectory creates the extension source directory.
type ProvisionDirectory struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions

	Scaffold config.ScaffoldConfig `config:"scaffold"`
}

func (s *ProvisionDirectory) Init() error {
	return nil
}

func (s *ProvisionDirectory) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		if !s.Scaffold.AutoScaffoldEnabled() {
			s.Status.Set("auto scaffold disabled")
			return nil
		}

		dir := s.Pre.WidgetDir()
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return &IOError{Op: "provision", Path: dir, Err: fmt.Errorf("exists and is not a directory")}
			}
			s.Status.Set("widget directory exists")
			return nil
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IOError{Op: "mkdir", Path: dir, Err: err}
		}
		s.Status.Changed("created " + dir)
		return nil
	})
}

// StageArtifacts copies the template sources into the extension directory.
// The attributes definition is also copied next to the host sources since
// both targets compile it.
type StageArtifacts struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions
	_      *ProvisionDirectory

	Scaffold config.ScaffoldConfig `config:"scaffold"`
}

type stagedFile struct {
	artifact string
	dest     string
}

func (s *StageArtifacts) Init() error {
	return nil
}

func (s *StageArtifacts) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		if !s.Scaffold.AutoScaffoldEnabled() {
			s.Status.Set("auto scaffold disabled")
			return nil
		}

		bundle := s.Pre.Templates()
		content := make(map[string][]byte, len(templates.Artifacts))
		for _, name := range templates.Artifacts {
			data, err := bundle.Read(name)
			if err != nil {
				return &IOError{
					Op:   "read template",
					Path: bundle.Path(name),
					Err:  err,
					Hint: "template bundle " + bundle.Source() + " is incomplete",
				}
			}
			content[name] = data
		}

		written := 0
		for _, f := range s.plan() {
			if err := ctx.Err(); err != nil {
				return err
			}
			changed, err := writeIfChanged(f.dest, content[f.artifact])
			if err != nil {
				return err
			}
			if changed {
				written++
				s.Logger.Debug("staged template", "artifact", f.artifact, "path", f.dest)
			}
		}

		if written == 0 {
			s.Status.Set("templates up to date")
			return nil
		}
		s.Status.Changed(fmt.Sprintf("staged %d template files", written))
		return nil
	})
}

func (s *StageArtifacts) plan() []stagedFile {
	widgetDir := s.Pre.WidgetDir()
	var out []stagedFile
	for _, name := range templates.Artifacts {
		out = append(out, stagedFile{artifact: name, dest: filepath.Join(widgetDir, path.Base(name))})
	}
	return append(out, stagedFile{
		artifact: templates.AttributesFile,
		dest:     filepath.Join(s.Pre.IOSDir(), path.Base(templates.AttributesFile)),
	})
}

// SynthesizeManifest writes the extension's Info.plist.
type SynthesizeManifest struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions
	_      *ProvisionDirectory

	Scaffold config.ScaffoldConfig `config:"scaffold"`
}

func (s *SynthesizeManifest) Init() error {
	return nil
}

func (s *SynthesizeManifest) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		if !s.Scaffold.AutoScaffoldEnabled() {
			s.Status.Set("auto scaffold disabled")
			return nil
		}

		data, err := manifest.WidgetInfo(s.Pre.WidgetBundleID(), TargetName)
		if err != nil {
			return err
		}
		dest := filepath.Join(s.Pre.WidgetDir(), manifestName)
		changed, err := writeIfChanged(dest, data)
		if err != nil {
			return err
		}
		if !changed {
			s.Status.Set("manifest up to date")
			return nil
		}
		s.Status.Changed("wrote " + dest)
		return nil
	})
}
