package scaffold

import (
	"bytes"
	"context"
	"log/slog"
	"os"

	"github.com/nomis52/dinamicisland/status"
)

// SaveProject writes the descriptor back when any step changed it.
type SaveProject struct {
	Logger *slog.Logger
	Status *status.Line
	Pre    *CheckPreconditions
	_      *PropagateBuildSettings
	_      *ConfigureEntitlements
}

func (s *SaveProject) Init() error {
	return nil
}

func (s *SaveProject) Execute(ctx context.Context) error {
	return status.Capture(s.Status, func() error {
		out, err := s.Pre.Descriptor().Marshal()
		if err != nil {
			return err
		}
		if bytes.Equal(out, s.Pre.Baseline()) {
			s.Status.Set("project unchanged")
			return nil
		}

		path := s.Pre.PBXProjPath()
		perm := os.FileMode(filePerm)
		if info, err := os.Stat(path); err == nil {
			perm = info.Mode().Perm()
		}
		if err := writeFileAtomic(path, out, perm); err != nil {
			return err
		}
		s.Logger.Info("project saved", "path", path, "bytes", len(out))
		s.Status.Changed("saved " + path)
		return nil
	})
}
