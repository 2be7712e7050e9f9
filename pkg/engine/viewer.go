// Package engine drives the interactive anatomy views: it owns the
// scene, camera, controls and label overlay, reacts to host input and
// renders frames on a loop. SelectionEngine and HeatmapEngine share the
// viewer core and differ in how data maps to visuals.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"go.uber.org/zap"

	"github.com/taigrr/lymphview/pkg/assets"
	"github.com/taigrr/lymphview/pkg/controls"
	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/overlay"
	"github.com/taigrr/lymphview/pkg/picking"
	"github.com/taigrr/lymphview/pkg/render"
	"github.com/taigrr/lymphview/pkg/scene"
)

// hoverEpsilon is the NDC distance the pointer must move before hover
// is recomputed.
const hoverEpsilon = 0.001

// BundleLoader fetches the assets an engine needs.
type BundleLoader interface {
	Load(ctx context.Context, paths assets.Paths, required ...assets.Asset) (*assets.Bundle, error)
}

// Options configures an engine. Zero fields take their defaults.
type Options struct {
	Paths     assets.Paths
	AssetBase string
	FPS       int

	DragThreshold float64
	ZoomInFactor  float64
	ZoomOutFactor float64
	Background    scene.Color

	Logger *zap.Logger
	Loader BundleLoader
}

// DefaultPaths are the asset file names the viewer ships with.
func DefaultPaths() assets.Paths {
	return assets.Paths{
		Scene:          "scene.glb",
		HeatmapMesh:    "human_mesh.glb",
		LymphPositions: "lymphs_positions.json",
		Elements:       "data_elements.json",
		PatientCounts:  "element_patient_counts.json",
		RegionColors:   "heat_maps_verts_colors.json",
		DiscretePoints: "discrete_points_normalized.json",
	}
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		Paths:         DefaultPaths(),
		AssetBase:     "data",
		FPS:           30,
		DragThreshold: 4,
		ZoomInFactor:  0.85,
		ZoomOutFactor: 1.18,
		Background:    scene.White,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FPS <= 0 {
		o.FPS = d.FPS
	}
	if o.DragThreshold <= 0 {
		o.DragThreshold = d.DragThreshold
	}
	if o.ZoomInFactor <= 0 {
		o.ZoomInFactor = d.ZoomInFactor
	}
	if o.ZoomOutFactor <= 0 {
		o.ZoomOutFactor = d.ZoomOutFactor
	}
	if o.Paths == (assets.Paths{}) {
		o.Paths = d.Paths
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Loader == nil {
		o.Loader = assets.NewLoader(o.AssetBase, o.Logger)
	}
	return o
}

// variant is the data-to-visual mapping of a concrete engine. Every
// hook runs with the viewer locked.
type variant interface {
	uses() []assets.Asset
	required() []assets.Asset
	build(b *assets.Bundle) error
	pickRoots() []*scene.Node
	hoverChanged(prev, next *scene.Node)
	selected(prev, next *scene.Node)
	reset(selected, hovered *scene.Node)
	teardown()
}

// frameLayer presents the renderer's framebuffer.
type frameLayer struct {
	r *render.Renderer
}

func (f frameLayer) Draw(scr uv.Screen, area uv.Rectangle) {
	if f.r.Disposed() {
		return
	}
	f.r.Framebuffer().Draw(scr, area)
}

// viewer is the lifecycle, camera and interaction core shared by both
// engines.
type viewer struct {
	mu      sync.Mutex
	pending []func()

	host Host
	opts Options
	log  *zap.Logger
	v    variant

	cancel context.CancelFunc

	started  bool
	ready    bool
	disposed bool

	scene    *scene.Scene
	camera   *render.Camera
	renderer *render.Renderer
	controls *controls.Orbit
	labels   *overlay.Layer
	frame    frameLayer

	newLoop func(fps int, tick func()) *FrameLoop
	loop    *FrameLoop
	detach  []func()

	state     InteractionState
	drag      dragTracker
	pointer   math3d.Vec2
	needHover bool
	raycaster picking.Raycaster
	stats     render.Stats
}

func newViewer(host Host, opts Options, v variant, name string) *viewer {
	opts = opts.withDefaults()
	return &viewer{
		host:    host,
		opts:    opts,
		log:     opts.Logger.Named(name),
		v:       v,
		newLoop: StartFrameLoop,
		drag:    dragTracker{threshold: opts.DragThreshold},
	}
}

func (w *viewer) lock() {
	w.mu.Lock()
}

// unlock releases the lock, then runs callbacks queued while it was
// held so they may call back into the engine.
func (w *viewer) unlock() {
	queued := w.pending
	w.pending = nil
	w.mu.Unlock()
	for _, fn := range queued {
		fn()
	}
}

func (w *viewer) later(fn func()) {
	w.pending = append(w.pending, fn)
}

func (w *viewer) hostSize() (int, int) {
	width, height := w.host.Size()
	return max(width, 1), max(height, 1)
}

// Init builds the renderer, camera, lights and controls, loads the
// assets, attaches input and resize handlers and starts the frame loop.
// If Dispose runs while assets are loading, Init returns nil without
// finishing setup.
func (w *viewer) Init(ctx context.Context) error {
	w.lock()
	if w.disposed {
		w.unlock()
		return ErrDisposed
	}
	if w.started {
		w.unlock()
		return ErrAlreadyInitialized
	}
	w.started = true
	w.setup()

	loadCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	loader := w.opts.Loader
	paths := w.opts.Paths.Only(w.v.uses()...)
	required := w.v.required()
	w.unlock()

	start := time.Now()
	bundle, err := loader.Load(loadCtx, paths, required...)

	w.lock()
	defer w.unlock()
	if w.disposed {
		w.log.Debug("disposed while loading assets")
		return nil
	}
	if err != nil {
		w.log.Error("asset load failed", zap.Error(err))
		return fmt.Errorf("load assets: %w", err)
	}
	w.log.Info("assets loaded", zap.Duration("elapsed", time.Since(start)))

	if err := w.v.build(bundle); err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	w.detach = append(w.detach,
		w.host.OnPointer(w.handlePointer),
		w.host.OnResize(w.resize),
	)
	w.ready = true
	w.loop = w.newLoop(w.opts.FPS, w.Tick)
	w.log.Info("engine ready", zap.Int("fps", w.opts.FPS))
	return nil
}

// setup creates everything that does not depend on assets.
func (w *viewer) setup() {
	width, height := w.hostSize()

	w.scene = scene.New()
	w.scene.Background = w.opts.Background

	w.camera = render.NewCamera()
	w.camera.SetAspectRatio(float64(width) / float64(height))

	w.renderer = render.NewRenderer(width, height)
	w.controls = controls.NewOrbit(w.camera, w.opts.FPS)
	w.labels = overlay.NewLayer()
	w.frame = frameLayer{r: w.renderer}

	w.host.Mount(w.frame)
	w.host.Mount(w.labels)
}

// Dispose stops the frame loop, detaches input, unmounts the layers and
// releases every geometry and material. It is safe to call at any time
// and more than once.
func (w *viewer) Dispose() {
	w.lock()
	defer w.unlock()
	if w.disposed {
		return
	}
	w.disposed = true
	w.ready = false

	if w.cancel != nil {
		w.cancel()
	}
	if w.loop != nil {
		w.loop.Stop()
	}
	for _, d := range w.detach {
		d()
	}
	w.detach = nil

	if w.controls != nil {
		w.controls.Dispose()
	}
	if w.renderer != nil {
		w.host.Unmount(w.frame)
	}
	if w.labels != nil {
		w.host.Unmount(w.labels)
		w.labels.Clear()
	}

	w.v.teardown()
	if w.scene != nil {
		st := w.scene.Dispose()
		w.log.Debug("scene released",
			zap.Int("geometries", st.Geometries),
			zap.Int("materials", st.Materials))
	}
	if w.renderer != nil {
		w.renderer.Dispose()
	}
	w.state = InteractionState{}
	w.log.Info("engine disposed")
}

// Tick renders one frame. Ticks arriving before Init finished or after
// Dispose do nothing.
func (w *viewer) Tick() {
	w.lock()
	defer w.unlock()
	if !w.ready || w.disposed {
		return
	}
	if w.needHover {
		w.updateHover()
		w.needHover = false
	}
	w.controls.Update()

	width, height := w.renderer.Size()
	w.stats = w.renderer.Render(w.scene, w.camera)
	w.labels.Project(w.camera, width, height)
	w.host.Present()
}

// FrameStats returns the statistics of the last rendered frame.
func (w *viewer) FrameStats() render.Stats {
	w.lock()
	defer w.unlock()
	return w.stats
}

// Snapshot renders the current view and writes it as a PNG.
func (w *viewer) Snapshot(path string) error {
	w.lock()
	defer w.unlock()
	if !w.ready || w.disposed {
		return ErrNotReady
	}
	w.controls.Update()
	w.stats = w.renderer.Render(w.scene, w.camera)
	return w.renderer.Framebuffer().SavePNG(path)
}

// Camera returns the camera position and orbit pivot.
func (w *viewer) Camera() (position, pivot math3d.Vec3) {
	w.lock()
	defer w.unlock()
	if w.camera == nil || w.controls == nil {
		return math3d.Vec3{}, math3d.Vec3{}
	}
	return w.camera.Position, w.controls.Target
}

// resize follows the host size. It runs on the host's callback and so
// checks that camera and renderer still exist.
func (w *viewer) resize(width, height int) {
	w.lock()
	defer w.unlock()
	if w.disposed || w.camera == nil || w.renderer == nil {
		return
	}
	width, height = max(width, 1), max(height, 1)
	w.camera.SetAspectRatio(float64(width) / float64(height))
	w.renderer.SetSize(width, height)
	w.log.Debug("resized", zap.Int("width", width), zap.Int("height", height))
}

func (w *viewer) handlePointer(ev PointerEvent) {
	w.lock()
	defer w.unlock()
	if !w.ready || w.disposed {
		return
	}

	width, height := w.hostSize()
	p := math3d.V2(ev.X, ev.Y)

	switch ev.Kind {
	case PointerMove:
		ndc := render.ScreenToNDC(ev.X, ev.Y, width, height)
		if math.Abs(ndc.X-w.pointer.X) > hoverEpsilon || math.Abs(ndc.Y-w.pointer.Y) > hoverEpsilon {
			w.pointer = ndc
			w.needHover = true
		}
		w.drag.move(p)
		w.controls.PointerMove(p, height)

	case PointerDown:
		w.drag.press(p)
		w.controls.PointerDown(ev.Button, p)

	case PointerUp, PointerCancel:
		w.controls.PointerUp()
		if !w.drag.release(p) {
			return
		}
		if ev.X < 0 || ev.Y < 0 || ev.X > float64(width) || ev.Y > float64(height) {
			return
		}
		w.pointer = render.ScreenToNDC(ev.X, ev.Y, width, height)
		w.click()

	case PointerWheel:
		w.controls.Wheel(ev.Wheel)
	}
}

// updateHover raycasts once at the last pointer position.
func (w *viewer) updateHover() {
	roots := w.v.pickRoots()
	if len(roots) == 0 {
		return
	}
	w.raycaster.SetFromCamera(w.pointer, w.camera)
	var next *scene.Node
	if hit, ok := w.raycaster.Nearest(roots...); ok {
		next = hit.Node
	}
	if prev, changed := w.state.Hover(next); changed {
		w.v.hoverChanged(prev, next)
	}
}

// click commits the element under the pointer. A miss keeps the current
// selection.
func (w *viewer) click() {
	roots := w.v.pickRoots()
	if len(roots) == 0 {
		return
	}
	w.raycaster.SetFromCamera(w.pointer, w.camera)
	hit, ok := w.raycaster.Nearest(roots...)
	if !ok {
		return
	}
	w.commit(hit.Node)
}

// commit makes n the selection and moves the pivot to it when it is a
// different element.
func (w *viewer) commit(n *scene.Node) {
	prev, refocused := w.state.Select(n)
	if refocused {
		focus, _ := w.state.Focus()
		w.controls.SetTarget(focus)
	}
	w.log.Debug("selected", zap.String("element", n.Name), zap.Bool("refocused", refocused))
	w.v.selected(prev, n)
}

// focusPoint is the selection centre, else the orbit pivot.
func (w *viewer) focusPoint() math3d.Vec3 {
	if p, ok := w.state.Focus(); ok && w.state.Selected() != nil {
		return p
	}
	if w.controls != nil {
		return w.controls.Target
	}
	return math3d.Zero3()
}

func (w *viewer) dollyToFocus(scale float64) {
	focus := w.focusPoint()
	offset := w.camera.Position.Sub(focus).Scale(scale)
	w.camera.Position = focus.Add(offset)
	w.controls.StopInertia()
	w.controls.SetTarget(focus)
	w.controls.Update()
}

// ZoomIn moves the camera toward the focus point.
func (w *viewer) ZoomIn() {
	w.lock()
	defer w.unlock()
	if !w.ready || w.disposed {
		return
	}
	w.dollyToFocus(w.opts.ZoomInFactor)
}

// ZoomOut moves the camera away from the focus point.
func (w *viewer) ZoomOut() {
	w.lock()
	defer w.unlock()
	if !w.ready || w.disposed {
		return
	}
	w.dollyToFocus(w.opts.ZoomOutFactor)
}

// SetViewPreset looks at the focus point from a named side at the
// current distance, with +Z up. PresetAll resets the controls and
// keeps the focus point as pivot.
func (w *viewer) SetViewPreset(p ViewPreset) {
	w.lock()
	defer w.unlock()
	if !w.ready || w.disposed {
		return
	}

	w.controls.StopInertia()
	pivot := w.focusPoint()
	dist := w.camera.Position.Distance(pivot)

	dir, ok := p.direction()
	if !ok {
		w.controls.Reset()
	} else {
		w.camera.Position = pivot.Add(dir.Scale(dist))
	}
	w.camera.SetUp(math3d.Up())
	w.controls.SetTarget(pivot)
	w.controls.Update()
	w.log.Debug("view preset", zap.Stringer("preset", p))
}

// ResetAll restores the initial camera, clears the focus point and
// selection visuals, and reapplies the current data.
func (w *viewer) ResetAll() {
	w.lock()
	defer w.unlock()
	if !w.ready || w.disposed {
		return
	}
	w.controls.Reset()
	w.controls.SetTarget(math3d.Zero3())
	w.controls.Update()

	selected, hovered := w.state.Reset()
	w.v.reset(selected, hovered)
}
