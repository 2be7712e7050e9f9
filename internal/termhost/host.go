// Package termhost presents engine frames in a terminal and feeds
// terminal mouse input back to the engine.
package termhost

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/taigrr/lymphview/pkg/controls"
	"github.com/taigrr/lymphview/pkg/engine"
)

const (
	mouseOn  = "\x1b[?1003h\x1b[?1006h" // any-event tracking, SGR encoding
	mouseOff = "\x1b[?1003l\x1b[?1006l"
)

// screen is the part of the terminal the host draws through.
type screen interface {
	uv.Screen
	Display() error
	Erase()
	Resize(width, height int) error
}

// Host renders engine layers into a terminal. The bottom row is kept
// for a status line and every other cell shows two framebuffer rows.
type Host struct {
	mu     sync.Mutex
	term   *uv.Terminal
	scr    screen
	out    io.Writer
	log    *zap.Logger
	cols   int
	rows   int
	layers []engine.Layer

	pointer func(engine.PointerEvent)
	resize  func(width, height int)

	status      string
	statusStyle lipgloss.Style
}

// New creates a host on the default terminal. Call Start before the
// engine's Init and Close when done.
func New(log *zap.Logger) (*Host, error) {
	term := uv.DefaultTerminal()
	cols, rows, err := term.GetSize()
	if err != nil {
		return nil, fmt.Errorf("get terminal size: %w", err)
	}
	h := newHost(term, cols, rows, log)
	h.term = term
	h.out = os.Stdout
	return h, nil
}

// NewOffscreen creates a host without a terminal whose framebuffer is
// width x height pixels. Start, Close and Run do nothing on it.
func NewOffscreen(width, height int, log *zap.Logger) *Host {
	cols, rows := max(width, 1), max(height, 1)/2+1
	return newHost(bufferScreen{uv.NewScreenBuffer(cols, rows)}, cols, rows, log)
}

// bufferScreen is an in-memory screen.
type bufferScreen struct {
	uv.ScreenBuffer
}

func (bufferScreen) Display() error { return nil }

func (bufferScreen) Erase() {}

func (b bufferScreen) Resize(width, height int) error {
	b.ScreenBuffer.Resize(width, height)
	return nil
}

func newHost(scr screen, cols, rows int, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		scr:  scr,
		out:  io.Discard,
		log:  log.Named("term"),
		cols: cols,
		rows: rows,
		statusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#3a3a4a")),
	}
}

// Start switches to the alternate screen and enables mouse reporting.
func (h *Host) Start() error {
	if h.term == nil {
		return nil
	}
	if err := h.term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.term.EnterAltScreen()
	h.term.HideCursor()
	if err := h.term.Resize(h.cols, h.rows); err != nil {
		return fmt.Errorf("resize terminal: %w", err)
	}
	fmt.Fprint(h.out, mouseOn)
	return nil
}

// Close restores the terminal.
func (h *Host) Close() error {
	if h.term == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprint(h.out, mouseOff)
	h.term.ExitAltScreen()
	h.term.ShowCursor()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return h.term.Shutdown(ctx)
}

// Size returns the framebuffer size the terminal can show.
func (h *Host) Size() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pixelSize()
}

func (h *Host) pixelSize() (int, int) {
	return max(h.cols, 1), max((h.rows-1)*2, 1)
}

// Mount adds a layer on top of the mounted ones.
func (h *Host) Mount(l engine.Layer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.layers = append(h.layers, l)
}

// Unmount removes a layer.
func (h *Host) Unmount(l engine.Layer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, m := range h.layers {
		if m == l {
			h.layers = append(h.layers[:i], h.layers[i+1:]...)
			return
		}
	}
}

// OnPointer registers the pointer handler.
func (h *Host) OnPointer(fn func(engine.PointerEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pointer = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.pointer = nil
	}
}

// OnResize registers the resize handler.
func (h *Host) OnResize(fn func(int, int)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resize = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.resize = nil
	}
}

// SetStatus replaces the status line text. It shows on the next frame.
func (h *Host) SetStatus(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = s
}

// Present draws the layers and the status line and flushes the terminal.
func (h *Host) Present() {
	h.mu.Lock()
	defer h.mu.Unlock()

	view := uv.Rect(0, 0, h.cols, max(h.rows-1, 0))
	for _, l := range h.layers {
		l.Draw(h.scr, view)
	}
	if h.rows > 0 {
		line := runewidth.Truncate(h.status, h.cols, "…")
		styled := h.statusStyle.Width(h.cols).Render(line)
		uv.NewStyledString(styled).Draw(h.scr, uv.Rect(0, h.rows-1, h.cols, 1))
	}
	if err := h.scr.Display(); err != nil {
		h.log.Warn("display failed", zap.Error(err))
	}
}

// Run forwards terminal events until ctx is done or the event stream
// closes. Key presses go to onKey.
func (h *Host) Run(ctx context.Context, onKey func(uv.KeyPressEvent)) {
	if h.term == nil {
		return
	}
	events := h.term.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if k, isKey := ev.(uv.KeyPressEvent); isKey {
				onKey(k)
				continue
			}
			h.handle(ev)
		}
	}
}

// handle dispatches a non-key event. Callbacks run without the host
// lock since they take the engine lock, which Present runs under.
func (h *Host) handle(ev uv.Event) {
	if sz, ok := ev.(uv.WindowSizeEvent); ok {
		h.mu.Lock()
		h.cols, h.rows = sz.Width, sz.Height
		h.scr.Erase()
		if err := h.scr.Resize(sz.Width, sz.Height); err != nil {
			h.log.Warn("resize failed", zap.Error(err))
		}
		w, px := h.pixelSize()
		fn := h.resize
		h.mu.Unlock()
		if fn != nil {
			fn(w, px)
		}
		return
	}

	pe, ok := pointerEvent(ev)
	if !ok {
		return
	}
	h.mu.Lock()
	fn := h.pointer
	h.mu.Unlock()
	if fn != nil {
		fn(pe)
	}
}

// pointerEvent converts terminal mouse input to framebuffer pixels. A
// cell covers one pixel column and two pixel rows; events land on the
// cell centre.
func pointerEvent(ev uv.Event) (engine.PointerEvent, bool) {
	at := func(m uv.Mouse, kind engine.PointerKind) engine.PointerEvent {
		return engine.PointerEvent{
			Kind:   kind,
			X:      float64(m.X) + 0.5,
			Y:      float64(m.Y)*2 + 1,
			Button: button(m.Button),
		}
	}
	switch ev := ev.(type) {
	case uv.MouseClickEvent:
		return at(uv.Mouse(ev), engine.PointerDown), true
	case uv.MouseReleaseEvent:
		return at(uv.Mouse(ev), engine.PointerUp), true
	case uv.MouseMotionEvent:
		return at(uv.Mouse(ev), engine.PointerMove), true
	case uv.MouseWheelEvent:
		pe := at(uv.Mouse(ev), engine.PointerWheel)
		pe.Button = controls.ButtonNone
		switch ev.Button {
		case uv.MouseWheelUp:
			pe.Wheel = -1
		case uv.MouseWheelDown:
			pe.Wheel = 1
		default:
			return engine.PointerEvent{}, false
		}
		return pe, true
	}
	return engine.PointerEvent{}, false
}

func button(b uv.MouseButton) controls.Button {
	switch b {
	case uv.MouseLeft:
		return controls.ButtonLeft
	case uv.MouseRight:
		return controls.ButtonRight
	default:
		return controls.ButtonNone
	}
}
