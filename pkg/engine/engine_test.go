package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/taigrr/lymphview/pkg/assets"
	"github.com/taigrr/lymphview/pkg/controls"
	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/models"
	"github.com/taigrr/lymphview/pkg/scene"
)

const (
	hostWidth  = 160
	hostHeight = 96
)

// memHost is an in-memory Host that records what the engine does to it.
type memHost struct {
	mu       sync.Mutex
	width    int
	height   int
	layers   []Layer
	pointer  func(PointerEvent)
	resize   func(int, int)
	presents int
}

func newMemHost() *memHost {
	return &memHost{width: hostWidth, height: hostHeight}
}

func (h *memHost) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

func (h *memHost) Mount(l Layer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layers = append(h.layers, l)
}

func (h *memHost) Unmount(l Layer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, m := range h.layers {
		if m == l {
			h.layers = append(h.layers[:i], h.layers[i+1:]...)
			return
		}
	}
}

func (h *memHost) OnPointer(fn func(PointerEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pointer = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.pointer = nil
	}
}

func (h *memHost) OnResize(fn func(int, int)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resize = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.resize = nil
	}
}

func (h *memHost) Present() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presents++
}

func (h *memHost) send(ev PointerEvent) {
	h.mu.Lock()
	fn := h.pointer
	h.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (h *memHost) mounted() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.layers)
}

func (h *memHost) presented() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.presents
}

func (h *memHost) click(x, y float64) {
	h.send(PointerEvent{Kind: PointerDown, X: x, Y: y, Button: controls.ButtonLeft})
	h.send(PointerEvent{Kind: PointerUp, X: x, Y: y, Button: controls.ButtonLeft})
}

// staticLoader hands out a prepared bundle and records the request.
type staticLoader struct {
	bundle *assets.Bundle
	err    error

	paths    assets.Paths
	required []assets.Asset
}

func (l *staticLoader) Load(_ context.Context, paths assets.Paths, required ...assets.Asset) (*assets.Bundle, error) {
	l.paths, l.required = paths, required
	if l.err != nil {
		return nil, l.err
	}
	return l.bundle, nil
}

// blockingLoader waits for release or cancellation.
type blockingLoader struct {
	bundle  *assets.Bundle
	entered chan struct{}
	release chan struct{}
}

func newBlockingLoader(b *assets.Bundle) *blockingLoader {
	return &blockingLoader{bundle: b, entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *blockingLoader) Load(ctx context.Context, _ assets.Paths, _ ...assets.Asset) (*assets.Bundle, error) {
	close(l.entered)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.release:
		return l.bundle, nil
	}
}

// idleLoop replaces the ticker so tests drive frames by calling Tick.
func idleLoop(int, func()) *FrameLoop {
	return &FrameLoop{stop: make(chan struct{}), done: make(chan struct{})}
}

func testOptions(t *testing.T, loader BundleLoader) Options {
	opts := DefaultOptions()
	opts.Logger = zaptest.NewLogger(t)
	opts.Loader = loader
	return opts
}

// cube returns a closed box mesh centred on the origin.
func cube(name string, half float64) *models.Mesh {
	m := models.NewMesh(name)
	for i := 0; i < 8; i++ {
		x, y, z := -half, -half, -half
		if i&1 != 0 {
			x = half
		}
		if i&2 != 0 {
			y = half
		}
		if i&4 != 0 {
			z = half
		}
		m.Vertices = append(m.Vertices, models.MeshVertex{Position: math3d.V3(x, y, z)})
	}
	for _, q := range [][4]int{
		{0, 1, 3, 2}, {4, 6, 7, 5}, // -z, +z
		{0, 4, 5, 1}, {2, 3, 7, 6}, // -y, +y
		{0, 2, 6, 4}, {1, 5, 7, 3}, // -x, +x
	} {
		m.Faces = append(m.Faces,
			models.Face{V: [3]int{q[0], q[1], q[2]}},
			models.Face{V: [3]int{q[0], q[2], q[3]}},
		)
	}
	m.CalculateSmoothNormals()
	m.CalculateBounds()
	return m
}

// lines returns a segment-only mesh.
func lines(name string) *models.Mesh {
	m := models.NewMesh(name)
	m.Vertices = []models.MeshVertex{
		{Position: math3d.V3(0, 0, 0)},
		{Position: math3d.V3(0, 0, 100)},
	}
	m.Segments = [][2]int{{0, 1}}
	m.CalculateBounds()
	return m
}

// placed positions a model node so that, once the alignment offset is
// applied, its local origin lands on world.
func placed(name string, mesh *models.Mesh, world math3d.Vec3) *models.Node {
	local := world.Sub(scene.AlignmentOffset)
	return &models.Node{Name: name, Local: math3d.Translate(local), Mesh: mesh}
}

// screenOf projects a world point to host pixels with the engine camera.
func screenOf(t *testing.T, w *viewer, p math3d.Vec3) (float64, float64) {
	t.Helper()
	x, y, _, ok := w.camera.WorldToScreen(p, hostWidth, hostHeight)
	require.True(t, ok, "point %v is off screen", p)
	return x, y
}
