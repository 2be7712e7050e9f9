package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/lymphview/pkg/assets"
	"github.com/taigrr/lymphview/pkg/controls"
	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/models"
	"github.com/taigrr/lymphview/pkg/scene"
)

var (
	leftArmCenter  = math3d.V3(0, 0, 300)
	rightArmCenter = math3d.V3(0, 0, -300)
)

func selectionBundle() *assets.Bundle {
	root := &models.Node{
		Name:  "Scene",
		Local: math3d.Identity(),
		Children: []*models.Node{
			placed("element_Left_Arm", cube("left", 120), leftArmCenter),
			placed("element_Right_Arm", cube("right", 120), rightArmCenter),
			placed("Lines", lines("lines"), math3d.Zero3()),
		},
	}
	return &assets.Bundle{
		Scene: &models.Scene{Roots: []*models.Node{root}},
		LymphNodes: []assets.LymphNode{
			{Label: "N1", Position: [3]float64{10, 20, 30}},
			{Label: "N2", Position: [3]float64{40, 50, 60}},
			{Label: "N3", Position: [3]float64{70, 80, 90}},
		},
		Statistics: assets.Statistics{
			"element_Left_Arm": {
				{Code: "N1", Name: "Axilla", Count: "12", Percentage: "60"},
				{Code: "N2", Name: "Neck", Count: "2", Percentage: "10"},
				{Code: "NX", Name: "Unknown", Count: "1", Percentage: "5"},
			},
			"element Right Arm": {
				{Code: "N3", Name: "Groin", Count: "7", Percentage: "35"},
			},
		},
		PatientCounts: assets.PatientCounts{"Left_Arm": 42},
	}
}

type rowRecorder struct {
	calls [][]assets.Row
}

func (r *rowRecorder) record(rows []assets.Row) {
	r.calls = append(r.calls, rows)
}

func (r *rowRecorder) last() []assets.Row {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func newTestSelection(t *testing.T) (*SelectionEngine, *memHost, *rowRecorder, *staticLoader) {
	t.Helper()
	host := newMemHost()
	rec := &rowRecorder{}
	loader := &staticLoader{bundle: selectionBundle()}
	e := NewSelectionEngine(host, testOptions(t, loader), rec.record)
	e.newLoop = idleLoop
	require.NoError(t, e.Init(context.Background()))
	t.Cleanup(e.Dispose)
	return e, host, rec, loader
}

func element(t *testing.T, e *SelectionEngine, name string) *scene.Node {
	t.Helper()
	for _, n := range e.selectable {
		if n.Name == name {
			return n
		}
	}
	t.Fatalf("no element %q", name)
	return nil
}

func TestSelectionInitLoadsOnlyItsAssets(t *testing.T) {
	e, host, _, loader := newTestSelection(t)

	assert.Equal(t, "scene.glb", loader.paths.Scene)
	assert.Empty(t, loader.paths.HeatmapMesh)
	assert.Empty(t, loader.paths.RegionColors)
	assert.ElementsMatch(t, e.uses(), loader.required)

	assert.Equal(t, []string{"element_Left_Arm", "element_Right_Arm"}, e.Elements())
	assert.Equal(t, 2, host.mounted())
	assert.Len(t, e.order, 3)
	for _, m := range e.order {
		assert.False(t, m.sphere.Visible, m.code)
	}

	lines := e.body.Child("Lines")
	require.NotNil(t, lines)
	assert.Equal(t, scene.KindLines, lines.Kind)
	assert.Len(t, lines.Geometry.Segments, 1)
	assert.False(t, lines.Selectable)

	skin := element(t, e, "element_Left_Arm").Material
	assert.Equal(t, skinColor, skin.Color)
	assert.InDelta(t, 0.5, skin.Opacity, 1e-9)
	assert.True(t, skin.Transparent)
	assert.Equal(t, scene.DoubleSide, skin.Side)
}

func TestSelectionHoverTint(t *testing.T) {
	e, host, _, _ := newTestSelection(t)
	left := element(t, e, "element_Left_Arm")

	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.send(PointerEvent{Kind: PointerMove, X: x, Y: y})
	e.Tick()
	assert.Equal(t, hoverEmissive, left.Material.Emissive)
	assert.Equal(t, PhaseHovering, e.state.Phase())

	host.send(PointerEvent{Kind: PointerMove, X: 1, Y: 1})
	e.Tick()
	assert.Equal(t, scene.Black, left.Material.Emissive)
	assert.Equal(t, PhaseIdle, e.state.Phase())
}

func TestSelectionClickEmitsRowsAndFocuses(t *testing.T) {
	e, host, rec, _ := newTestSelection(t)
	left := element(t, e, "element_Left_Arm")

	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.click(x, y)

	name, ok := e.SelectedElement()
	require.True(t, ok)
	assert.Equal(t, "element_Left_Arm", name)
	assert.Equal(t, selectedColor, left.Material.Color)

	require.Len(t, rec.calls, 1)
	require.Len(t, rec.last(), 3)
	assert.Equal(t, "N1", rec.last()[0].Code)

	_, pivot := e.Camera()
	assert.True(t, pivot.ApproxEqual(leftArmCenter, 1e-6), "pivot %v", pivot)

	n1, n2, n3 := e.markers["N1"], e.markers["N2"], e.markers["N3"]
	assert.True(t, n1.sphere.Visible)
	assert.True(t, n2.sphere.Visible)
	assert.False(t, n3.sphere.Visible)
	assert.InDelta(t, 1.0, n1.sphere.Scale, 1e-9)
	assert.InDelta(t, 0.5, n2.sphere.Scale, 1e-9)
	assert.Equal(t, "N1 60%", n1.label.Text())

	assert.True(t, e.tooltip.Visible)
	assert.Equal(t, "42", e.tooltip.Text())
	assert.True(t, e.tooltip.Anchor.ApproxEqual(leftArmCenter, 1e-6))
}

func TestSelectionReselectKeepsPivot(t *testing.T) {
	e, host, rec, _ := newTestSelection(t)

	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.click(x, y)

	panned := math3d.V3(5, 5, 5)
	e.controls.SetTarget(panned)
	host.click(x, y)

	_, pivot := e.Camera()
	assert.Equal(t, panned, pivot)
	assert.Len(t, rec.calls, 2)

	rx, ry := screenOf(t, e.viewer, rightArmCenter)
	host.click(rx, ry)

	_, pivot = e.Camera()
	assert.True(t, pivot.ApproxEqual(rightArmCenter, 1e-6), "pivot %v", pivot)
	assert.Equal(t, skinColor, element(t, e, "element_Left_Arm").Material.Color)
	assert.InDelta(t, 0.5, element(t, e, "element_Left_Arm").Material.Opacity, 1e-9)

	// Underscores fall back to spaces.
	require.Len(t, rec.last(), 1)
	assert.Equal(t, "N3", rec.last()[0].Code)
	assert.False(t, e.markers["N1"].sphere.Visible)
	assert.True(t, e.markers["N3"].sphere.Visible)
	assert.Equal(t, "0", e.tooltip.Text())
}

func TestSelectionUnknownElementEmitsEmptyRows(t *testing.T) {
	e, _, rec, _ := newTestSelection(t)
	delete(e.stats, "element Right Arm")

	x, y := screenOf(t, e.viewer, rightArmCenter)
	e.handlePointer(PointerEvent{Kind: PointerDown, X: x, Y: y, Button: controls.ButtonLeft})
	e.handlePointer(PointerEvent{Kind: PointerUp, X: x, Y: y, Button: controls.ButtonLeft})

	require.Len(t, rec.calls, 1)
	assert.NotNil(t, rec.last())
	assert.Empty(t, rec.last())
}

func TestSelectionDragIsNotAClick(t *testing.T) {
	e, host, rec, _ := newTestSelection(t)

	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.send(PointerEvent{Kind: PointerDown, X: x, Y: y, Button: controls.ButtonLeft})
	host.send(PointerEvent{Kind: PointerMove, X: x + 10, Y: y})
	host.send(PointerEvent{Kind: PointerUp, X: x + 10, Y: y, Button: controls.ButtonLeft})

	_, ok := e.SelectedElement()
	assert.False(t, ok)
	assert.Empty(t, rec.calls)
}

func TestSelectionDragOntoOtherElementKeepsSelection(t *testing.T) {
	e, host, rec, _ := newTestSelection(t)

	lx, ly := screenOf(t, e.viewer, leftArmCenter)
	rx, ry := screenOf(t, e.viewer, rightArmCenter)
	host.click(lx, ly)
	_, pivot := e.Camera()
	require.Len(t, rec.calls, 1)

	host.send(PointerEvent{Kind: PointerDown, X: lx, Y: ly, Button: controls.ButtonLeft})
	host.send(PointerEvent{Kind: PointerMove, X: rx, Y: ry})
	host.send(PointerEvent{Kind: PointerUp, X: rx, Y: ry, Button: controls.ButtonLeft})

	name, ok := e.SelectedElement()
	require.True(t, ok)
	assert.Equal(t, "element_Left_Arm", name)
	_, after := e.Camera()
	assert.True(t, after.ApproxEqual(pivot, 1e-9), "pivot %v, want %v", after, pivot)
	assert.Len(t, rec.calls, 1)
}

func TestSelectionMissKeepsSelection(t *testing.T) {
	e, host, rec, _ := newTestSelection(t)

	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.click(x, y)
	host.click(1, 1)

	name, ok := e.SelectedElement()
	require.True(t, ok)
	assert.Equal(t, "element_Left_Arm", name)
	assert.Len(t, rec.calls, 1)
}

func TestSelectionShowFlags(t *testing.T) {
	e, host, _, _ := newTestSelection(t)
	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.click(x, y)

	n1 := e.markers["N1"]

	e.SetShowFlags(ShowFlagsUpdate{NodeCodes: Bool(false)})
	assert.Equal(t, "60%", n1.label.Text())
	assert.True(t, n1.label.Visible)

	e.SetShowFlags(ShowFlagsUpdate{Drainage: Bool(false)})
	assert.False(t, n1.label.Visible)
	assert.True(t, n1.sphere.Visible)
	assert.True(t, e.tooltip.Visible)

	e.SetShowFlags(ShowFlagsUpdate{PatientCounts: Bool(false), NodeCodes: Bool(true)})
	assert.False(t, e.tooltip.Visible)
	assert.True(t, n1.label.Visible)
	assert.Equal(t, "N1", n1.label.Text())

	assert.Equal(t, ShowFlags{NodeCodes: true}, e.ShowFlags())
}

func TestSelectionResetAll(t *testing.T) {
	e, host, rec, _ := newTestSelection(t)
	left := element(t, e, "element_Left_Arm")

	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.click(x, y)
	e.ZoomIn()

	e.ResetAll()

	_, ok := e.SelectedElement()
	assert.False(t, ok)
	assert.Equal(t, skinColor, left.Material.Color)
	assert.Equal(t, scene.Black, left.Material.Emissive)

	require.Len(t, rec.calls, 2)
	assert.NotNil(t, rec.last())
	assert.Empty(t, rec.last())
	assert.Empty(t, e.Rows())

	for _, m := range e.order {
		assert.False(t, m.sphere.Visible, m.code)
		assert.False(t, m.label.Visible, m.code)
	}
	assert.False(t, e.tooltip.Visible)

	pos, pivot := e.Camera()
	assert.Equal(t, math3d.Zero3(), pivot)
	assert.True(t, pos.ApproxEqual(e.controls.SavedPosition(), 1e-9))
	_, hasFocus := e.state.Focus()
	assert.False(t, hasFocus)
}

func TestSelectionRowCallbackMayReenter(t *testing.T) {
	host := newMemHost()
	var e *SelectionEngine
	var seen []string
	e = NewSelectionEngine(host, testOptions(t, &staticLoader{bundle: selectionBundle()}), func([]assets.Row) {
		name, _ := e.SelectedElement()
		seen = append(seen, name)
	})
	e.newLoop = idleLoop
	require.NoError(t, e.Init(context.Background()))
	defer e.Dispose()

	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.click(x, y)
	assert.Equal(t, []string{"element_Left_Arm"}, seen)
}

func TestViewPresets(t *testing.T) {
	e, _, _, _ := newTestSelection(t)

	dist := e.camera.Position.Distance(e.controls.Target)

	e.SetViewPreset(PresetAnterior)
	front, _ := e.Camera()
	e.SetViewPreset(PresetPosterior)
	back, _ := e.Camera()

	assert.InDelta(t, dist, front.Y, 1e-6)
	assert.InDelta(t, -dist, back.Y, 1e-6)
	assert.InDelta(t, 0, front.X, 1e-6)
	assert.InDelta(t, 0, back.Z, 1e-6)
	assert.Equal(t, math3d.Up(), e.camera.Up)

	e.SetViewPreset(PresetRightLateral)
	side, _ := e.Camera()
	assert.InDelta(t, dist, side.X, 1e-6)

	e.SetViewPreset(PresetAll)
	all, pivot := e.Camera()
	assert.True(t, all.ApproxEqual(e.controls.SavedPosition(), 1e-9))
	assert.Equal(t, math3d.Zero3(), pivot)
}

func TestViewPresetDropsDragSpin(t *testing.T) {
	e, host, _, _ := newTestSelection(t)

	host.send(PointerEvent{Kind: PointerDown, X: 50, Y: 50, Button: controls.ButtonLeft})
	host.send(PointerEvent{Kind: PointerMove, X: 80, Y: 50})
	host.send(PointerEvent{Kind: PointerUp, X: 80, Y: 50, Button: controls.ButtonLeft})

	dist := e.camera.Position.Distance(e.controls.Target)
	e.SetViewPreset(PresetAnterior)
	want := math3d.V3(0, dist, 0)

	pos, _ := e.Camera()
	assert.True(t, pos.ApproxEqual(want, 1e-6), "pos %v, want %v", pos, want)
	for range 3 {
		e.Tick()
	}
	pos, _ = e.Camera()
	assert.True(t, pos.ApproxEqual(want, 1e-6), "after ticks pos %v, want %v", pos, want)

	e.ZoomIn()
	e.Tick()
	pos, _ = e.Camera()
	assert.True(t, pos.ApproxEqual(want.Scale(0.85), 1e-6), "after zoom pos %v", pos)
}

func TestZoomRoundTrip(t *testing.T) {
	e, _, _, _ := newTestSelection(t)
	start, _ := e.Camera()

	e.ZoomIn()
	in, _ := e.Camera()
	assert.InDelta(t, start.Len()*0.85, in.Len(), 1e-6)

	e.ZoomOut()
	out, _ := e.Camera()
	assert.InEpsilon(t, start.Len(), out.Len(), 0.01)

	e.opts.ZoomOutFactor = 1 / e.opts.ZoomInFactor
	e.ZoomIn()
	e.ZoomOut()
	again, _ := e.Camera()
	assert.True(t, again.ApproxEqual(out, 1e-6), "%v != %v", again, out)
}

func TestZoomTowardsSelection(t *testing.T) {
	e, host, _, _ := newTestSelection(t)
	x, y := screenOf(t, e.viewer, leftArmCenter)
	host.click(x, y)

	before := e.camera.Position.Distance(leftArmCenter)
	e.ZoomIn()
	after := e.camera.Position.Distance(leftArmCenter)
	assert.InDelta(t, before*0.85, after, 1e-6)
}

func TestTickRendersAndPresents(t *testing.T) {
	e, host, _, _ := newTestSelection(t)

	e.Tick()
	assert.Equal(t, 1, host.presented())
	assert.Positive(t, e.FrameStats().NodesDrawn)

	e.resize(40, 0)
	w, h := e.renderer.Size()
	assert.Equal(t, 40, w)
	assert.Equal(t, 1, h)
}

func TestDisposeStopsEverything(t *testing.T) {
	e, host, _, _ := newTestSelection(t)
	left := element(t, e, "element_Left_Arm")
	e.Tick()

	e.Dispose()
	e.Dispose()

	e.Tick()
	assert.Equal(t, 1, host.presented())
	assert.Zero(t, host.mounted())
	assert.True(t, left.Material.Disposed())
	assert.True(t, left.Geometry.Disposed())
	assert.True(t, e.renderer.Disposed())
	assert.True(t, e.controls.Disposed())

	host.send(PointerEvent{Kind: PointerMove, X: 3, Y: 3})
	e.ZoomIn()
	e.ResetAll()
	e.resize(10, 10)

	assert.ErrorIs(t, e.Init(context.Background()), ErrDisposed)
	assert.ErrorIs(t, e.Snapshot(t.TempDir()+"/x.png"), ErrNotReady)
}

func TestInitTwice(t *testing.T) {
	e, _, _, _ := newTestSelection(t)
	assert.ErrorIs(t, e.Init(context.Background()), ErrAlreadyInitialized)
}

func TestDisposeWhileLoading(t *testing.T) {
	host := newMemHost()
	loader := newBlockingLoader(selectionBundle())
	e := NewSelectionEngine(host, testOptions(t, loader), nil)
	started := false
	e.newLoop = func(fps int, tick func()) *FrameLoop {
		started = true
		return idleLoop(fps, tick)
	}

	errc := make(chan error, 1)
	go func() { errc <- e.Init(context.Background()) }()

	<-loader.entered
	e.Dispose()
	close(loader.release)

	require.NoError(t, <-errc)
	assert.False(t, started)
	assert.Zero(t, host.mounted())
	e.Tick()
	assert.Zero(t, host.presented())
}

func TestInitLoadError(t *testing.T) {
	host := newMemHost()
	loadErr := &assets.AssetLoadError{Kind: assets.KindNetwork, Path: "scene.glb", Err: errors.New("connection refused")}
	e := NewSelectionEngine(host, testOptions(t, &staticLoader{err: loadErr}), nil)
	e.newLoop = idleLoop

	err := e.Init(context.Background())
	require.Error(t, err)
	var target *assets.AssetLoadError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, assets.KindNetwork, target.Kind)

	e.Tick()
	assert.Zero(t, host.presented())
	assert.NotPanics(t, e.Dispose)
	assert.Zero(t, host.mounted())
}

func TestSnapshotWritesPNG(t *testing.T) {
	e, _, _, _ := newTestSelection(t)
	path := t.TempDir() + "/frame.png"
	require.NoError(t, e.Snapshot(path))
	assert.FileExists(t, path)
}

func TestSelectionSelectElementByName(t *testing.T) {
	e, _, rec, _ := newTestSelection(t)

	assert.False(t, e.SelectElement("element_Torso"))
	assert.Empty(t, rec.calls)

	require.True(t, e.SelectElement("element_Left_Arm"))
	name, ok := e.SelectedElement()
	require.True(t, ok)
	assert.Equal(t, "element_Left_Arm", name)
	assert.Len(t, rec.last(), 3)
	assert.Equal(t, selectedColor, element(t, e, "element_Left_Arm").Material.Color)

	_, pivot := e.Camera()
	assert.True(t, pivot.ApproxEqual(leftArmCenter, 1e-6))

	e.Dispose()
	assert.False(t, e.SelectElement("element_Right_Arm"))
}
