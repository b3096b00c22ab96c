package bridge

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxActivityIDLen = 100
	maxTitleLen      = 200
	maxSubtitleLen   = 300
)

// Field names used in ValidationError.
const (
	FieldActivityID = "activityId"
	FieldTitle      = "title"
	FieldSubtitle   = "subtitle"
	FieldProgress   = "progress"
)

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// trim strips leading and trailing whitespace as a JavaScript caller would:
// U+FEFF counts as space, U+0085 does not.
func trim(s string) string {
	return strings.TrimFunc(s, isJSSpace)
}

func isJSSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// length counts characters as Unicode code points.
func length(s string) int {
	return utf8.RuneCountInString(s)
}

// validateRequest checks r in order and returns the first violation.
func validateRequest(r ActivityRequest) error {
	id := trim(r.ActivityID)
	if id == "" {
		return invalid(FieldActivityID, "Activity ID is required and cannot be empty")
	}
	if length(id) > maxActivityIDLen {
		return invalid(FieldActivityID, "Activity ID must not exceed 100 characters")
	}

	title := trim(r.Title)
	if title == "" {
		return invalid(FieldTitle, "Title is required and cannot be empty")
	}
	if length(title) > maxTitleLen {
		return invalid(FieldTitle, "Title must not exceed 200 characters")
	}

	if err := validateSubtitle(r.Subtitle); err != nil {
		return err
	}
	return validateProgress(r.Progress)
}

// validatePatch checks only the fields present in p.
func validatePatch(p ActivityPatch) error {
	if p.Title != nil {
		title := trim(*p.Title)
		if title == "" {
			return invalid(FieldTitle, "Title cannot be empty if provided")
		}
		if length(title) > maxTitleLen {
			return invalid(FieldTitle, "Title must not exceed 200 characters")
		}
	}
	if err := validateSubtitle(p.Subtitle); err != nil {
		return err
	}
	return validateProgress(p.Progress)
}

// validateSubtitle measures the untrimmed value.
func validateSubtitle(s *string) error {
	if s != nil && length(*s) > maxSubtitleLen {
		return invalid(FieldSubtitle, "Subtitle must not exceed 300 characters")
	}
	return nil
}

func validateProgress(p *float64) error {
	if p == nil {
		return nil
	}
	if math.IsNaN(*p) || math.IsInf(*p, 0) {
		return invalid(FieldProgress, "Progress must be a valid number")
	}
	if *p < 0 || *p > 1 {
		return invalid(FieldProgress, "Progress must be between 0 and 1")
	}
	return nil
}

// normalizeRequest returns what Start forwards for a valid request.
func normalizeRequest(r ActivityRequest) (Attributes, ContentState) {
	state := ContentState{
		Title:    trim(r.Title),
		Style:    r.Style,
		Progress: r.Progress,
	}
	if r.Subtitle != nil {
		if sub := trim(*r.Subtitle); sub != "" {
			state.Subtitle = String(sub)
		}
	}
	return Attributes{ActivityID: trim(r.ActivityID)}, state
}

// normalizePatch returns what Update forwards for a valid patch.
func normalizePatch(p ActivityPatch) ContentPatch {
	out := ContentPatch{Style: p.Style, Progress: p.Progress}
	if p.Title != nil {
		out.Title = String(trim(*p.Title))
	}
	if p.Subtitle != nil {
		out.Subtitle = String(trim(*p.Subtitle))
	}
	return out
}
