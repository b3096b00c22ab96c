package bridge

// Suggested style tags. Style is free-form; these are conventions only.
const (
	StyleDefault  = "default"
	StylePlayer   = "player"
	StyleTimer    = "timer"
	StyleDelivery = "delivery"
	StyleCall     = "call"
)

// ActivityRequest starts a new activity.
type ActivityRequest struct {
	// ActivityID is chosen by the caller, 1 to 100 characters after trimming.
	ActivityID string `yaml:"activity_id"`
	// Title is 1 to 200 characters after trimming.
	Title string `yaml:"title"`
	// Subtitle is at most 300 characters before trimming.
	Subtitle *string `yaml:"subtitle"`
	Style    *string `yaml:"style"`
	// Progress is a finite value in [0, 1].
	Progress *float64 `yaml:"progress"`
}

// ActivityPatch updates the current activity. Nil fields keep their value.
type ActivityPatch struct {
	Title    *string  `yaml:"title"`
	Subtitle *string  `yaml:"subtitle"`
	Style    *string  `yaml:"style"`
	Progress *float64 `yaml:"progress"`
}

// Handle identifies an activity at the capability. It is distinct from the
// caller's activity ID.
type Handle string

// Attributes are fixed for the lifetime of an activity.
type Attributes struct {
	ActivityID string
}

// ContentState is the displayed content of an activity.
type ContentState struct {
	Title    string
	Subtitle *string
	Style    *string
	Progress *float64
}

// ContentPatch is forwarded on update. Nil fields are left unchanged by the
// capability.
type ContentPatch struct {
	Title    *string
	Subtitle *string
	Style    *string
	Progress *float64
}

// Apply merges p into s.
func (p ContentPatch) Apply(s ContentState) ContentState {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Subtitle != nil {
		s.Subtitle = String(*p.Subtitle)
	}
	if p.Style != nil {
		s.Style = String(*p.Style)
	}
	if p.Progress != nil {
		s.Progress = Float(*p.Progress)
	}
	return s
}

// DismissalPolicy controls how an ended activity leaves the screen.
type DismissalPolicy int

const (
	// DismissImmediate removes the activity at once.
	DismissImmediate DismissalPolicy = iota
	// DismissDefault lets the system keep the final content visible for a while.
	DismissDefault
)

func (p DismissalPolicy) String() string {
	switch p {
	case DismissImmediate:
		return "immediate"
	case DismissDefault:
		return "default"
	default:
		return "unknown"
	}
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}
