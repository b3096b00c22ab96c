package bridge

import (
	"context"
	"errors"
)

var (
	// ErrUnsupported is returned by a Capability when the device or OS
	// cannot show Live Activities.
	ErrUnsupported = errors.New("live activities require iOS 16.1 or later")

	// ErrUnknownHandle is returned by Update and End when the activity no
	// longer exists, typically because the user dismissed it.
	ErrUnknownHandle = errors.New("unknown activity handle")
)

// Capability is the native Live Activity implementation.
type Capability interface {
	// IsSupported reports whether activities can be started, combining the
	// OS version gate and the user's setting.
	IsSupported(ctx context.Context) (bool, error)

	// Request starts an activity.
	Request(ctx context.Context, attrs Attributes, state ContentState) (Handle, error)

	// Update merges patch into the activity's content.
	Update(ctx context.Context, h Handle, patch ContentPatch) error

	// End stops the activity.
	End(ctx context.Context, h Handle, policy DismissalPolicy) error
}
