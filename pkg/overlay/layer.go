package overlay

import (
	"math"
	"sort"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mattn/go-runewidth"

	"github.com/taigrr/lymphview/pkg/render"
)

// Placement is a label projected for the current frame, in framebuffer
// pixel coordinates.
type Placement struct {
	Label *Label
	X, Y  float64
	Depth float64
	Text  string
}

// Layer owns a set of labels and draws the ones that project inside the
// view. Two framebuffer rows share one terminal cell.
type Layer struct {
	labels []*Label
	placed []Placement
}

// NewLayer creates an empty layer.
func NewLayer() *Layer {
	return &Layer{}
}

// Add registers labels.
func (ly *Layer) Add(labels ...*Label) {
	ly.labels = append(ly.labels, labels...)
}

// Remove unregisters a label.
func (ly *Layer) Remove(l *Label) {
	for i, c := range ly.labels {
		if c == l {
			ly.labels = append(ly.labels[:i], ly.labels[i+1:]...)
			return
		}
	}
}

// Labels returns the registered labels.
func (ly *Layer) Labels() []*Label {
	return ly.labels
}

// Clear drops every label and placement.
func (ly *Layer) Clear() {
	ly.labels = nil
	ly.placed = nil
}

// Project places every visible label for the camera on a width x height
// pixel view. Farther labels come first so nearer ones draw on top.
func (ly *Layer) Project(cam *render.Camera, width, height int) []Placement {
	ly.placed = ly.placed[:0]
	for _, l := range ly.labels {
		if !l.Visible {
			continue
		}
		text := l.Text()
		if text == "" {
			continue
		}
		x, y, depth, ok := cam.WorldToScreen(l.Anchor, width, height)
		if !ok {
			continue
		}
		ly.placed = append(ly.placed, Placement{Label: l, X: x, Y: y, Depth: depth, Text: text})
	}
	sort.SliceStable(ly.placed, func(i, j int) bool {
		return ly.placed[i].Depth > ly.placed[j].Depth
	})
	return ly.placed
}

// Placements returns the result of the last Project call.
func (ly *Layer) Placements() []Placement {
	return ly.placed
}

// Draw writes the projected labels into area, centred on their anchor.
func (ly *Layer) Draw(scr uv.Screen, area uv.Rectangle) {
	for _, p := range ly.placed {
		row := area.Min.Y + int(math.Floor(p.Y/2))
		if row < area.Min.Y || row >= area.Max.Y {
			continue
		}
		col := area.Min.X + int(math.Floor(p.X)) - runewidth.StringWidth(p.Text)/2
		for _, r := range p.Text {
			w := runewidth.RuneWidth(r)
			if w == 0 {
				continue
			}
			if col >= area.Min.X && col+w <= area.Max.X {
				scr.SetCell(col, row, &uv.Cell{Content: string(r), Width: w, Style: p.Label.Style})
			}
			col += w
		}
	}
}
