package engine

import (
	"errors"
	"image/color"
	"strconv"

	uv "github.com/charmbracelet/ultraviolet"
	"go.uber.org/zap"

	"github.com/taigrr/lymphview/pkg/assets"
	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/models"
	"github.com/taigrr/lymphview/pkg/overlay"
	"github.com/taigrr/lymphview/pkg/scene"
)

const (
	linesNodeName = "Lines"

	markerRadius = 18.0
	labelLift    = 25.0
)

var (
	skinColor     = scene.Hex(0xE5B27F)
	skinSpecular  = scene.Hex(0x33334C)
	selectedColor = scene.Hex(0xff0000)
	hoverEmissive = scene.Hex(0xff0000)
	markerColor   = scene.Hex(0x00ff00)
	// Phong materials without an explicit specular use this tint.
	defaultSpecular = scene.Hex(0x111111)
)

const skinOpacity = 0.5

// Span classes of a lymph marker label. The label classes hide-code and
// hide-pct hide them.
const (
	classCode = "code"
	classPct  = "pct"
)

var (
	markerLabelStyle  = uv.Style{Fg: color.Black, Bg: color.RGBA{0xf2, 0xf2, 0xf2, 0xff}}
	tooltipLabelStyle = uv.Style{Fg: color.White, Bg: color.RGBA{0x20, 0x20, 0x20, 0xff}, Attrs: uv.AttrBold}
)

// ShowFlags selects which label parts are displayed.
type ShowFlags struct {
	NodeCodes     bool
	Drainage      bool
	PatientCounts bool
}

// ShowFlagsUpdate changes the flags that are non-nil.
type ShowFlagsUpdate struct {
	NodeCodes     *bool
	Drainage      *bool
	PatientCounts *bool
}

// Bool returns a pointer to b, for building updates.
func Bool(b bool) *bool {
	return &b
}

func (f ShowFlags) merge(u ShowFlagsUpdate) ShowFlags {
	if u.NodeCodes != nil {
		f.NodeCodes = *u.NodeCodes
	}
	if u.Drainage != nil {
		f.Drainage = *u.Drainage
	}
	if u.PatientCounts != nil {
		f.PatientCounts = *u.PatientCounts
	}
	return f
}

// marker is a lymph node sphere and its label. Markers are created once
// at load time and only shown, hidden and restyled afterwards.
type marker struct {
	code   string
	sphere *scene.Node
	label  *overlay.Label
}

func (m *marker) hide() {
	m.sphere.Visible = false
	m.label.Visible = false
}

// SelectionEngine lets the user click skin elements of the body model.
// A selection emits the element's drainage rows and shows a marker for
// every lymph node they reference.
type SelectionEngine struct {
	*viewer

	onRows func([]assets.Row)

	flags   ShowFlags
	rows    []assets.Row
	stats   assets.Statistics
	counts  assets.PatientCounts
	markers map[string]*marker
	order   []*marker

	body       *scene.Node
	selectable []*scene.Node
	tooltip    *overlay.Label
}

// NewSelectionEngine creates an engine on host. onRows receives the row
// list after every selection and reset; it may be nil.
func NewSelectionEngine(host Host, opts Options, onRows func([]assets.Row)) *SelectionEngine {
	e := &SelectionEngine{
		onRows:  onRows,
		flags:   ShowFlags{NodeCodes: true, Drainage: true, PatientCounts: true},
		markers: make(map[string]*marker),
	}
	e.viewer = newViewer(host, opts, e, "selection")
	return e
}

func (e *SelectionEngine) uses() []assets.Asset {
	return []assets.Asset{assets.AssetScene, assets.AssetLymphPositions, assets.AssetElements, assets.AssetPatientCounts}
}

func (e *SelectionEngine) required() []assets.Asset {
	return e.uses()
}

func (e *SelectionEngine) build(b *assets.Bundle) error {
	e.stats = b.Statistics
	e.counts = b.PatientCounts

	e.tooltip = overlay.NewLabel("tooltip", math3d.Zero3(), overlay.Span{Class: "tt", Text: "0"})
	e.tooltip.Style = tooltipLabelStyle
	e.labels.Add(e.tooltip)

	sphere := scene.NewGeometry(models.NewUVSphere("lymph", markerRadius, 32, 32))
	for _, n := range b.LymphNodes {
		pos := n.Vec().Add(scene.AlignmentOffset)

		node := scene.NewMeshNode(n.Label, sphere, scene.NewPhongMaterial(markerColor, defaultSpecular, 20))
		node.Position = pos
		node.Visible = false
		e.scene.Add(node)

		label := overlay.NewLabel(n.Label, pos.Add(math3d.V3(0, 0, labelLift)),
			overlay.Span{Class: classCode, Text: n.Label},
			overlay.Span{Class: classPct},
		)
		label.Style = markerLabelStyle
		e.labels.Add(label)

		m := &marker{code: n.Label, sphere: node, label: label}
		if _, dup := e.markers[n.Label]; dup {
			e.log.Warn("duplicate lymph node label", zap.String("label", n.Label))
		}
		e.markers[n.Label] = m
		e.order = append(e.order, m)
	}

	src := b.Scene.Root()
	if src == nil {
		return &assets.AssetLoadError{Kind: assets.KindSchema, Path: e.opts.Paths.Scene, Err: errors.New("model has no root node")}
	}
	e.body = scene.FromModel(src, func(n *models.Node) *scene.Material {
		if n.Name == linesNodeName {
			return scene.NewLineMaterial(scene.Black, 1)
		}
		m := scene.NewPhongMaterial(skinColor, skinSpecular, 20)
		m.SetOpacity(skinOpacity)
		m.Side = scene.DoubleSide
		return m
	})
	for _, child := range e.body.Children {
		if child.Name == linesNodeName {
			child.ConvertToLines()
			continue
		}
		child.Traverse(func(n *scene.Node) { n.Selectable = true })
		e.selectable = append(e.selectable, child)
	}
	e.body.Position = scene.AlignmentOffset
	e.scene.Add(e.body)

	e.log.Info("selection scene built",
		zap.Int("elements", len(e.selectable)),
		zap.Int("markers", len(e.order)))
	return nil
}

func (e *SelectionEngine) pickRoots() []*scene.Node {
	return e.selectable
}

// hoverChanged tints the hovered element unless it is the selection.
func (e *SelectionEngine) hoverChanged(prev, next *scene.Node) {
	if prev != nil && prev.Material != nil {
		prev.Material.Emissive = scene.Black
	}
	if next != nil && next.Material != nil && next != e.state.Selected() {
		next.Material.Emissive = hoverEmissive
	}
}

func revertSkin(n *scene.Node) {
	if n == nil || n.Material == nil {
		return
	}
	n.Material.Color = skinColor
	n.Material.SetOpacity(skinOpacity)
}

func (e *SelectionEngine) selected(prev, next *scene.Node) {
	revertSkin(prev)
	if next.Material != nil {
		next.Material.Color = selectedColor
		next.Material.Emissive = scene.Black
	}

	for _, m := range e.order {
		m.hide()
	}

	rows := e.stats.Lookup(next.Name)
	if rows == nil {
		e.log.Debug("no drainage rows", zap.String("element", next.Name))
		rows = []assets.Row{}
	}
	e.rows = rows
	e.emitRows()

	e.tooltip.SetText("tt", strconv.Itoa(e.counts.ForElement(next.Name)))
	e.tooltip.Anchor = next.WorldCenter()

	for _, r := range rows {
		m, ok := e.markers[r.Code]
		if !ok {
			e.log.Debug("row references unknown lymph node", zap.String("code", r.Code))
			continue
		}
		m.sphere.Visible = true
		m.label.Visible = true
		m.label.SetText(classCode, r.Code)
		m.label.SetText(classPct, r.PercentLabel())
		m.sphere.Scale = markerScale(r)
	}
	e.applyLabels()
}

// markerScale maps drainage percentage to sphere scale: pct/50 clamped
// to [0.5, 1]. Unparseable percentages get the minimum.
func markerScale(r assets.Row) float64 {
	pct, ok := r.PercentValue()
	if !ok {
		return 0.5
	}
	return math3d.Clamp(pct/50, 0.5, 1)
}

func (e *SelectionEngine) applyLabels() {
	if e.tooltip != nil {
		e.tooltip.Visible = e.state.Selected() != nil && e.flags.PatientCounts
	}
	for _, r := range e.rows {
		m, ok := e.markers[r.Code]
		if !ok {
			continue
		}
		m.label.ToggleClass("hide-code", !e.flags.NodeCodes)
		m.label.ToggleClass("hide-pct", !e.flags.Drainage)
		m.label.Visible = e.flags.NodeCodes || e.flags.Drainage
		m.sphere.Visible = true
	}
}

func (e *SelectionEngine) reset(selected, hovered *scene.Node) {
	revertSkin(selected)
	if hovered != nil && hovered.Material != nil {
		hovered.Material.Emissive = scene.Black
	}
	for _, m := range e.order {
		m.hide()
	}
	if e.tooltip != nil {
		e.tooltip.Visible = false
	}
	e.rows = []assets.Row{}
	e.emitRows()
}

func (e *SelectionEngine) teardown() {
	e.markers = make(map[string]*marker)
	e.order = nil
	e.selectable = nil
	e.rows = nil
	e.onRows = nil
}

// emitRows queues the row callback to run once the engine is unlocked.
func (e *SelectionEngine) emitRows() {
	if e.onRows == nil {
		return
	}
	cb := e.onRows
	rows := append([]assets.Row(nil), e.rows...)
	if rows == nil {
		rows = []assets.Row{}
	}
	e.later(func() { cb(rows) })
}

// SetShowFlags merges the update into the display flags and restyles
// the labels.
func (e *SelectionEngine) SetShowFlags(u ShowFlagsUpdate) {
	e.lock()
	defer e.unlock()
	if e.disposed {
		return
	}
	e.flags = e.flags.merge(u)
	if e.ready {
		e.applyLabels()
	}
}

// ShowFlags returns the current display flags.
func (e *SelectionEngine) ShowFlags() ShowFlags {
	e.lock()
	defer e.unlock()
	return e.flags
}

// Rows returns a copy of the rows of the current selection.
func (e *SelectionEngine) Rows() []assets.Row {
	e.lock()
	defer e.unlock()
	return append([]assets.Row(nil), e.rows...)
}

// SelectedElement returns the name of the selected element.
func (e *SelectionEngine) SelectedElement() (string, bool) {
	e.lock()
	defer e.unlock()
	if n := e.state.Selected(); n != nil {
		return n.Name, true
	}
	return "", false
}

// Elements lists the selectable element names in model order.
func (e *SelectionEngine) Elements() []string {
	e.lock()
	defer e.unlock()
	names := make([]string, 0, len(e.selectable))
	for _, n := range e.selectable {
		names = append(names, n.Name)
	}
	return names
}

// OnRowsChange replaces the row callback.
func (e *SelectionEngine) OnRowsChange(fn func([]assets.Row)) {
	e.lock()
	defer e.unlock()
	e.onRows = fn
}

// SelectElement selects the named element as a click on it would. It
// reports false for unknown names or before Init completes.
func (e *SelectionEngine) SelectElement(name string) bool {
	e.lock()
	defer e.unlock()
	if !e.ready || e.disposed {
		return false
	}
	for _, n := range e.selectable {
		if n.Name == name {
			e.commit(n)
			return true
		}
	}
	e.log.Debug("no such element", zap.String("element", name))
	return false
}
