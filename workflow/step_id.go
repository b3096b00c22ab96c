package workflow

import (
	"fmt"
	"reflect"
	"strings"
)

// StepID identifies a step by the import path of its package and its struct name.
// Two packages may both define a step named "Validate" without colliding.
type StepID struct {
	// Module is the import path of the package containing the step,
	// e.g. "github.com/nomis52/dinamicisland/scaffold".
	Module string

	// Type is the struct name of the step, e.g. "CheckPreconditions".
	Type string
}

// String returns "Module.Type".
func (id StepID) String() string {
	return fmt.Sprintf("%s.%s", id.Module, id.Type)
}

// IsValid returns true if both Module and Type are populated.
func (id StepID) IsValid() bool {
	return id.Module != "" && id.Type != ""
}

// Equal returns true if both Module and Type match.
func (id StepID) Equal(other StepID) bool {
	return id.Module == other.Module && id.Type == other.Type
}

// ShortString returns the last path element of the module plus the type,
// e.g. "scaffold.CheckPreconditions". Used for logs and reports.
func (id StepID) ShortString() string {
	if id.Module == "" {
		return id.Type
	}
	pkg := id.Module
	if i := strings.LastIndex(pkg, "/"); i >= 0 && i < len(pkg)-1 {
		pkg = pkg[i+1:]
	}
	return fmt.Sprintf("%s.%s", pkg, id.Type)
}

// GetStepID returns the StepID for a step. The step must be a pointer to a struct.
func GetStepID(step Step) StepID {
	t := reflect.TypeOf(step).Elem()
	return StepID{
		Module: t.PkgPath(),
		Type:   t.Name(),
	}
}
