// Package simulator provides an in-memory bridge.Capability for tests, the
// CLI and development without a device.
package simulator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nomis52/dinamicisland/bridge"
	"golang.org/x/mod/semver"
)

// MinimumOSVersion is the first OS release that shows Live Activities.
const MinimumOSVersion = "16.1"

const defaultOSVersion = "17.0"

// Activity is a snapshot of a running activity.
type Activity struct {
	Handle     bridge.Handle
	Attributes bridge.Attributes
	State      bridge.ContentState
	StartedAt  time.Time
	UpdatedAt  time.Time
	Updates    int
}

type activity struct {
	Activity
	seq uint64
}

// Simulator is safe for concurrent use.
type Simulator struct {
	mu        sync.Mutex
	osVersion string
	enabled   bool
	now       func() time.Time
	seq       uint64
	running   map[bridge.Handle]*activity
}

var _ bridge.Capability = (*Simulator)(nil)

// Option configures a Simulator.
type Option func(*Simulator)

// WithOSVersion sets the simulated OS version, e.g. "16.0" or "17.2.1".
func WithOSVersion(v string) Option {
	return func(s *Simulator) {
		s.osVersion = v
	}
}

// WithActivitiesEnabled sets the user's Live Activities toggle.
func WithActivitiesEnabled(enabled bool) Option {
	return func(s *Simulator) {
		s.enabled = enabled
	}
}

// WithClock replaces time.Now for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		s.now = now
	}
}

// New creates a supported simulator running a recent OS.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		osVersion: defaultOSVersion,
		enabled:   true,
		now:       time.Now,
		running:   make(map[bridge.Handle]*activity),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OSVersion returns the simulated OS version.
func (s *Simulator) OSVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.osVersion
}

// SetOSVersion changes the simulated OS version.
func (s *Simulator) SetOSVersion(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.osVersion = v
}

// ActivitiesEnabled reports the user's Live Activities toggle.
func (s *Simulator) ActivitiesEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetActivitiesEnabled flips the user's Live Activities toggle. Running
// activities are unaffected.
func (s *Simulator) SetActivitiesEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// IsSupported implements bridge.Capability.
func (s *Simulator) IsSupported(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supportedLocked()
}

func (s *Simulator) supportedLocked() (bool, error) {
	ok, err := versionAtLeast(s.osVersion, MinimumOSVersion)
	if err != nil {
		return false, err
	}
	return ok && s.enabled, nil
}

// versionAtLeast compares dotted OS versions such as "16.1" or "16.1.2".
func versionAtLeast(v, min string) (bool, error) {
	sv := "v" + strings.TrimPrefix(v, "v")
	if !semver.IsValid(sv) {
		return false, fmt.Errorf("invalid OS version %q", v)
	}
	return semver.Compare(sv, "v"+min) >= 0, nil
}

// Request implements bridge.Capability.
func (s *Simulator) Request(ctx context.Context, attrs bridge.Attributes, state bridge.ContentState) (bridge.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.supportedLocked()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", bridge.ErrUnsupported
	}

	h := bridge.Handle(uuid.New().String())
	now := s.now()
	s.seq++
	s.running[h] = &activity{
		Activity: Activity{
			Handle:     h,
			Attributes: attrs,
			State:      cloneState(state),
			StartedAt:  now,
			UpdatedAt:  now,
		},
		seq: s.seq,
	}
	return h, nil
}

// Update implements bridge.Capability.
func (s *Simulator) Update(ctx context.Context, h bridge.Handle, patch bridge.ContentPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.running[h]
	if !ok {
		return bridge.ErrUnknownHandle
	}
	a.State = patch.Apply(a.State)
	a.UpdatedAt = s.now()
	a.Updates++
	return nil
}

// End implements bridge.Capability. The policy has no visible effect in
// the simulator; the activity is removed either way.
func (s *Simulator) End(ctx context.Context, h bridge.Handle, policy bridge.DismissalPolicy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[h]; !ok {
		return bridge.ErrUnknownHandle
	}
	delete(s.running, h)
	return nil
}

// Dismiss removes an activity as if the user swiped it away. It returns
// false if the handle is not running.
func (s *Simulator) Dismiss(h bridge.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.running[h]; !ok {
		return false
	}
	delete(s.running, h)
	return true
}

// Activity returns a snapshot of a running activity.
func (s *Simulator) Activity(h bridge.Handle) (Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.running[h]
	if !ok {
		return Activity{}, false
	}
	return a.snapshot(), true
}

// Activities returns snapshots of all running activities in start order.
func (s *Simulator) Activities() []Activity {
	s.mu.Lock()
	running := make([]*activity, 0, len(s.running))
	for _, a := range s.running {
		running = append(running, a)
	}
	sort.Slice(running, func(i, j int) bool { return running[i].seq < running[j].seq })
	out := make([]Activity, len(running))
	for i, a := range running {
		out[i] = a.snapshot()
	}
	s.mu.Unlock()
	return out
}

func (a *activity) snapshot() Activity {
	out := a.Activity
	out.State = cloneState(a.State)
	return out
}

func cloneState(state bridge.ContentState) bridge.ContentState {
	out := bridge.ContentState{Title: state.Title}
	if state.Subtitle != nil {
		out.Subtitle = bridge.String(*state.Subtitle)
	}
	if state.Style != nil {
		out.Style = bridge.String(*state.Style)
	}
	if state.Progress != nil {
		out.Progress = bridge.Float(*state.Progress)
	}
	return out
}
