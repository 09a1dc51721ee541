// Package semester derives the academic period label used to scope course
// evaluations.
package semester

import (
	"fmt"
	"strings"
	"time"
)

// Scheme names a month-to-term mapping.
type Scheme string

const (
	// SchemeQuarters maps calendar quarters: Winter Jan-Mar, Spring Apr-Jun,
	// Summer Jul-Sep, Fall Oct-Dec.
	SchemeQuarters Scheme = "quarters"
	// SchemeAcademic maps a two-term year with a summer session: Spring Jan-May,
	// Summer Jun-Jul, Fall Aug-Dec.
	SchemeAcademic Scheme = "academic"
)

// ParseScheme returns the scheme for raw, defaulting to SchemeQuarters when
// raw is empty.
func ParseScheme(raw string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SchemeQuarters:
		return SchemeQuarters, nil
	case SchemeAcademic:
		return SchemeAcademic, nil
	}
	return "", fmt.Errorf("unknown semester scheme %q", raw)
}

// Label renders the term label for t, e.g. "Fall 2025".
func (s Scheme) Label(t time.Time) string {
	return fmt.Sprintf("%s %d", s.term(t.Month()), t.Year())
}

func (s Scheme) term(m time.Month) string {
	if s == SchemeAcademic {
		switch {
		case m <= time.May:
			return "Spring"
		case m <= time.July:
			return "Summer"
		default:
			return "Fall"
		}
	}
	switch {
	case m <= time.March:
		return "Winter"
	case m <= time.June:
		return "Spring"
	case m <= time.September:
		return "Summer"
	default:
		return "Fall"
	}
}

// Clock yields the current time; tests substitute a fixed one.
type Clock func() time.Time

// Deriver resolves the current semester label.
type Deriver struct {
	scheme Scheme
	now    Clock
}

// NewDeriver builds a deriver using now (time.Now when nil).
func NewDeriver(scheme Scheme, now Clock) *Deriver {
	if now == nil {
		now = time.Now
	}
	if scheme == "" {
		scheme = SchemeQuarters
	}
	return &Deriver{scheme: scheme, now: now}
}

// Current returns the label for the present moment in UTC.
func (d *Deriver) Current() string {
	return d.scheme.Label(d.now().UTC())
}
