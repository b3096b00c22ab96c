package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nomis52/dinamicisland/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded in bridge_requests_total.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeUnsupported = "unsupported"
	outcomeInactive    = "inactive"
	outcomeError       = "error"
)

// Session forwards requests to a Capability and caches the one activity it
// started last. The cache is not authoritative: the capability may end an
// activity on its own, which the session only learns about when Update or
// End reports ErrUnknownHandle.
type Session struct {
	capability Capability
	logger     *slog.Logger
	requests   metrics.CounterVec

	// mu guards the slot only and is never held across a capability call.
	mu         sync.Mutex
	activityID string
	handle     Handle
	active     bool
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	logger   *slog.Logger
	registry metrics.Registry
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = logger
	}
}

// WithMetricsRegistry counts requests in registry.
func WithMetricsRegistry(registry metrics.Registry) Option {
	return func(o *sessionOptions) {
		o.registry = registry
	}
}

// NewSession creates a session with an empty slot.
func NewSession(capability Capability, opts ...Option) (*Session, error) {
	if capability == nil {
		return nil, errors.New("capability is required")
	}
	o := &sessionOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	s := &Session{
		capability: capability,
		logger:     o.logger.With("component", "bridge"),
	}
	if o.registry != nil {
		requests, err := o.registry.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_requests_total",
			Help: "Live Activity requests by operation and outcome.",
		}, []string{"operation", "outcome"})
		if err != nil {
			return nil, fmt.Errorf("registering bridge metrics: %w", err)
		}
		s.requests = requests
	}
	return s, nil
}

func (s *Session) record(operation, outcome string) {
	if s.requests != nil {
		s.requests.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
	}
}

// Supported reports whether activities can be started. Capability errors
// are logged and reported as false.
func (s *Session) Supported(ctx context.Context) bool {
	ok, err := s.capability.IsSupported(ctx)
	if err != nil {
		s.logger.Warn("capability support check failed", "error", err)
		s.record("supported", outcomeError)
		return false
	}
	s.record("supported", outcomeOK)
	return ok
}

// Start validates r and starts an activity, replacing whatever the slot held.
func (s *Session) Start(ctx context.Context, r ActivityRequest) (Handle, error) {
	if err := validateRequest(r); err != nil {
		s.record("start", outcomeInvalid)
		return "", err
	}

	attrs, state := normalizeRequest(r)
	h, err := s.capability.Request(ctx, attrs, state)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			s.record("start", outcomeUnsupported)
			return "", &UnsupportedError{Err: err}
		}
		s.record("start", outcomeError)
		return "", fmt.Errorf("starting activity %s: %w", attrs.ActivityID, err)
	}

	s.mu.Lock()
	previous, hadPrevious := s.handle, s.active
	s.activityID, s.handle, s.active = attrs.ActivityID, h, true
	s.mu.Unlock()

	if hadPrevious && previous != h {
		s.logger.Debug("replaced current activity", "previous", previous)
	}
	s.logger.Debug("activity started", "activity_id", attrs.ActivityID, "handle", h)
	s.record("start", outcomeOK)
	return h, nil
}

// Update validates p and merges it into the current activity. It returns
// false when no activity is active.
func (s *Session) Update(ctx context.Context, p ActivityPatch) (bool, error) {
	if err := validatePatch(p); err != nil {
		s.record("update", outcomeInvalid)
		return false, err
	}

	h, ok := s.current()
	if !ok {
		s.record("update", outcomeInactive)
		return false, nil
	}

	if err := s.capability.Update(ctx, h, normalizePatch(p)); err != nil {
		if errors.Is(err, ErrUnknownHandle) {
			s.forget(h)
			s.record("update", outcomeInactive)
			return false, nil
		}
		s.record("update", outcomeError)
		return false, fmt.Errorf("updating activity: %w", err)
	}
	s.record("update", outcomeOK)
	return true, nil
}

// End stops the current activity and clears the slot. It returns false when
// no activity is active.
func (s *Session) End(ctx context.Context, policy DismissalPolicy) (bool, error) {
	h, ok := s.current()
	if !ok {
		s.record("end", outcomeInactive)
		return false, nil
	}

	if err := s.capability.End(ctx, h, policy); err != nil {
		if errors.Is(err, ErrUnknownHandle) {
			s.forget(h)
			s.record("end", outcomeInactive)
			return false, nil
		}
		s.record("end", outcomeError)
		return false, fmt.Errorf("ending activity: %w", err)
	}
	s.forget(h)
	s.logger.Debug("activity ended", "handle", h, "policy", policy)
	s.record("end", outcomeOK)
	return true, nil
}

// Current returns the cached activity, if any.
func (s *Session) Current() (activityID string, handle Handle, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activityID, s.handle, s.active
}

func (s *Session) current() (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle, s.active
}

// forget clears the slot if it still holds h. A Start that completed while
// h was being ended keeps its activity.
func (s *Session) forget(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active && s.handle == h {
		s.activityID, s.handle, s.active = "", "", false
	}
}
