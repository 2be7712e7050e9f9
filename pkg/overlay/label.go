// Package overlay draws text labels anchored to world positions on top
// of the rendered frame.
package overlay

import (
	"strings"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/lymphview/pkg/math3d"
)

// Span is a labelled run of text. Class is used to hide it.
type Span struct {
	Class string
	Text  string
}

// Label is a world-anchored piece of text made of spans. A label class
// "hide-x" hides every span of class "x" without touching its text.
type Label struct {
	Name    string
	Anchor  math3d.Vec3
	Spans   []Span
	Style   uv.Style
	Visible bool

	classes map[string]bool
}

// NewLabel creates a hidden label at anchor.
func NewLabel(name string, anchor math3d.Vec3, spans ...Span) *Label {
	return &Label{Name: name, Anchor: anchor, Spans: spans, classes: make(map[string]bool)}
}

// SetText replaces the text of every span with the given class.
func (l *Label) SetText(class, text string) {
	for i := range l.Spans {
		if l.Spans[i].Class == class {
			l.Spans[i].Text = text
		}
	}
}

// ToggleClass adds or removes a label class.
func (l *Label) ToggleClass(class string, on bool) {
	if l.classes == nil {
		l.classes = make(map[string]bool)
	}
	if on {
		l.classes[class] = true
	} else {
		delete(l.classes, class)
	}
}

// HasClass reports whether the label carries class.
func (l *Label) HasClass(class string) bool {
	return l.classes[class]
}

// Text joins the non-empty text of every shown span.
func (l *Label) Text() string {
	parts := make([]string, 0, len(l.Spans))
	for _, s := range l.Spans {
		if s.Text == "" || (s.Class != "" && l.classes["hide-"+s.Class]) {
			continue
		}
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
