// Package pagestate holds the per-page UI state of the portfolio: menu and
// theme flags, the active navigation section and the scroll progress.
package pagestate

import (
	"math"
	"strings"
)

// Section identifies one anchored region of the page.
type Section string

const (
	Home     Section = "home"
	About    Section = "about"
	Skills   Section = "skills"
	Projects Section = "projects"
	Contact  Section = "contact"
)

// Sections is the page order. Ties in ActiveSection are broken by it.
var Sections = []Section{Home, About, Skills, Projects, Contact}

// DefaultReferenceLine is the viewport offset, in px from the top, that a
// section must straddle to become active.
const DefaultReferenceLine = 100.0

// ParseSection maps an identifier onto a known section.
func ParseSection(id string) (Section, bool) {
	id = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(id), "#"))
	for _, s := range Sections {
		if string(s) == id {
			return s, true
		}
	}
	return "", false
}

// Label is the capitalised navigation text for s.
func (s Section) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Anchor is the in-page fragment link for s.
func (s Section) Anchor() string { return "#" + string(s) }

// Rect is the on-screen vertical extent of an element, relative to the
// top of the viewport.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Straddles reports whether the rect covers the horizontal line at y.
func (r Rect) Straddles(y float64) bool {
	return r.Top <= y && r.Bottom >= y
}

// Locator finds the rect of a section's anchor on the page. ok is false when
// the page has no such anchor.
type Locator interface {
	Locate(s Section) (r Rect, ok bool)
}

// Rects is a Locator backed by a map of measured rects.
type Rects map[Section]Rect

// Locate implements Locator.
func (m Rects) Locate(s Section) (Rect, bool) {
	r, ok := m[s]
	return r, ok
}

// Viewport is the scroll geometry of the document.
type Viewport struct {
	ScrollY      float64 `json:"scrollY"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

// Range is the total scrollable distance.
func (v Viewport) Range() float64 { return v.ScrollHeight - v.ClientHeight }

// Progress returns the percentage of the scrollable range traversed. A
// document that fits the viewport reports 0.
func Progress(v Viewport) float64 {
	total := v.Range()
	if !(total > 0) || math.IsInf(total, 0) {
		return 0
	}
	p := v.ScrollY / total * 100
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// ActiveSection returns the first section, in page order, whose rect
// straddles refLine.
func ActiveSection(loc Locator, refLine float64) (Section, bool) {
	if loc == nil {
		return "", false
	}
	for _, s := range Sections {
		r, ok := loc.Locate(s)
		if !ok {
			continue
		}
		if r.Straddles(refLine) {
			return s, true
		}
	}
	return "", false
}

// Snapshot is one scroll report from the browser. Seq orders reports from
// one page; zero means unsequenced.
type Snapshot struct {
	Viewport
	Sections Rects
	Seq      uint64
}

// State is the UI state of one page view. The zero value is not valid; use
// New.
type State struct {
	MenuOpen bool    `json:"menuOpen"`
	Dark     bool    `json:"dark"`
	Active   Section `json:"active"`
	Progress float64 `json:"progress"`

	refLine float64
	seq     uint64
}

// New returns the initial state: light theme, menu closed, home active.
func New() State {
	return State{Active: Home, refLine: DefaultReferenceLine}
}

// WithReferenceLine overrides the line used for active section detection.
func (s State) WithReferenceLine(y float64) State {
	s.refLine = y
	return s
}

// ReferenceLine returns the line used for active section detection.
func (s State) ReferenceLine() float64 {
	if s.refLine == 0 {
		return DefaultReferenceLine
	}
	return s.refLine
}

// Scroll recomputes progress and the active section from a snapshot. When
// no section straddles the reference line the active section is kept.
// Sequenced snapshots older than the last applied one are dropped; applied
// reports whether snap was used.
func (s *State) Scroll(snap Snapshot) (applied bool) {
	if snap.Seq != 0 {
		if snap.Seq <= s.seq {
			return false
		}
		s.seq = snap.Seq
	}
	s.Progress = Progress(snap.Viewport)
	if sec, ok := ActiveSection(snap.Sections, s.ReferenceLine()); ok {
		s.Active = sec
	}
	if _, ok := ParseSection(string(s.Active)); !ok {
		s.Active = Home
	}
	return true
}

// ToggleMenu flips the mobile menu flag.
func (s *State) ToggleMenu() { s.MenuOpen = !s.MenuOpen }

// ToggleTheme flips the dark theme flag.
func (s *State) ToggleTheme() { s.Dark = !s.Dark }

// RootClass is the class carried by the document root for the current theme.
func (s State) RootClass() string {
	if s.Dark {
		return "dark"
	}
	return ""
}

// Navigate closes the menu and resolves id to a scroll target. ok is false
// when id is unknown or the page has no anchor for it; callers then do
// nothing. A nil locator treats every known section as present.
func (s *State) Navigate(id string, anchors Locator) (Section, bool) {
	s.MenuOpen = false
	sec, ok := ParseSection(id)
	if !ok {
		return "", false
	}
	if anchors != nil {
		if _, found := anchors.Locate(sec); !found {
			return "", false
		}
	}
	return sec, true
}
