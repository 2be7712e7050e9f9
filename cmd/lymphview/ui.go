package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	uv "github.com/charmbracelet/ultraviolet"
	"go.uber.org/zap"

	"github.com/taigrr/lymphview/internal/config"
	"github.com/taigrr/lymphview/internal/termhost"
	"github.com/taigrr/lymphview/pkg/assets"
	"github.com/taigrr/lymphview/pkg/engine"
)

// viewControls are the camera operations both engines share.
type viewControls interface {
	ZoomIn()
	ZoomOut()
	ResetAll()
	SetViewPreset(engine.ViewPreset)
}

// lifecycle is the part of an engine runViewer drives.
type lifecycle interface {
	Init(ctx context.Context) error
	Dispose()
}

var presetKeys = []string{"1", "2", "3", "4", "5"}

// viewKey applies the camera keys. It reports whether k was one.
func viewKey(k uv.KeyPressEvent, v viewControls) bool {
	switch {
	case k.String() == "+" || k.MatchString("="):
		// MatchString splits on '+' and cannot match the plus key.
		v.ZoomIn()
	case k.MatchString("-", "_"):
		v.ZoomOut()
	case k.MatchString("r"):
		v.ResetAll()
	default:
		for i, key := range presetKeys {
			if k.MatchString(key) {
				v.SetViewPreset(engine.ViewPreset(i))
				return true
			}
		}
		return false
	}
	return true
}

func isQuit(k uv.KeyPressEvent) bool {
	return k.MatchString("escape", "ctrl+c", "q")
}

// cycleIndex steps through n entries from i, wrapping. A negative i
// starts at the first entry going forward and the last going back.
func cycleIndex(i, step, n int) int {
	if i < 0 {
		if step > 0 {
			return 0
		}
		return n - 1
	}
	return ((i+step)%n + n) % n
}

// elementTitle turns element_Left_Arm into Left Arm.
func elementTitle(name string) string {
	name = strings.TrimPrefix(name, "element_")
	return strings.ReplaceAll(name, "_", " ")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// selectionUI maps keys to the selection engine and keeps the status
// line current.
type selectionUI struct {
	eng       *engine.SelectionEngine
	setStatus func(string)
}

func (u *selectionUI) key(k uv.KeyPressEvent) {
	if viewKey(k, u.eng) {
		u.refresh()
		return
	}
	f := u.eng.ShowFlags()
	switch {
	case k.MatchString("c"):
		u.eng.SetShowFlags(engine.ShowFlagsUpdate{NodeCodes: engine.Bool(!f.NodeCodes)})
	case k.MatchString("d"):
		u.eng.SetShowFlags(engine.ShowFlagsUpdate{Drainage: engine.Bool(!f.Drainage)})
	case k.MatchString("p"):
		u.eng.SetShowFlags(engine.ShowFlagsUpdate{PatientCounts: engine.Bool(!f.PatientCounts)})
	case k.MatchString("tab"):
		u.cycle(1)
	case k.MatchString("shift+tab"):
		u.cycle(-1)
	default:
		return
	}
	u.refresh()
}

func (u *selectionUI) cycle(step int) {
	names := u.eng.Elements()
	if len(names) == 0 {
		return
	}
	cur, _ := u.eng.SelectedElement()
	u.eng.SelectElement(names[cycleIndex(slices.Index(names, cur), step, len(names))])
}

func (u *selectionUI) refresh() {
	name, ok := u.eng.SelectedElement()
	if !ok {
		name = ""
	}
	u.setStatus(selectionStatus(name, u.eng.Rows(), u.eng.ShowFlags()))
}

func selectionStatus(element string, rows []assets.Row, f engine.ShowFlags) string {
	flags := fmt.Sprintf("codes %s  drainage %s  counts %s",
		onOff(f.NodeCodes), onOff(f.Drainage), onOff(f.PatientCounts))
	if element == "" {
		return " Click a skin region │ " + flags
	}
	var drains string
	if len(rows) == 0 {
		drains = "no drainage data"
	} else {
		parts := make([]string, len(rows))
		for i, r := range rows {
			parts[i] = r.Code + " " + r.PercentLabel()
		}
		drains = strings.Join(parts, ", ")
	}
	return fmt.Sprintf(" %s: %s │ %s", elementTitle(element), drains, flags)
}

// heatmapUI maps keys to the heatmap engine and keeps the status line
// current.
type heatmapUI struct {
	eng       *engine.HeatmapEngine
	setStatus func(string)
}

func (u *heatmapUI) key(k uv.KeyPressEvent) {
	if viewKey(k, u.eng) {
		u.refresh()
		return
	}
	sel := u.eng.Selection()
	switch {
	case k.MatchString("tab"):
		u.cycle(sel.Region, 1)
	case k.MatchString("shift+tab"):
		u.cycle(sel.Region, -1)
	case k.MatchString("f"):
		next := engine.ModeFrequency
		if sel.Mode == engine.ModeFrequency {
			next = engine.ModeNormalized
		}
		u.eng.SetHeatmapSelection(engine.HeatmapSelectionUpdate{Mode: engine.Mode(next)})
	case k.MatchString("s"):
		u.eng.SetHeatmapSelection(engine.HeatmapSelectionUpdate{DisplaySites: engine.Bool(!sel.DisplaySites)})
	default:
		return
	}
	u.refresh()
}

func (u *heatmapUI) cycle(current string, step int) {
	meta, ok := u.eng.Meta()
	if !ok || len(meta.Regions) == 0 {
		return
	}
	i := cycleIndex(slices.Index(meta.Regions, current), step, len(meta.Regions))
	u.eng.SetHeatmapSelection(engine.HeatmapSelectionUpdate{Region: engine.String(meta.Regions[i])})
}

func (u *heatmapUI) refresh() {
	u.setStatus(heatmapStatus(u.eng.Selection(), u.eng.SiteCount()))
}

func heatmapStatus(sel engine.HeatmapSelection, sites int) string {
	mode := "normalised"
	if sel.Mode == engine.ModeFrequency {
		mode = "frequency"
	}
	shown := fmt.Sprintf("%d sites", sites)
	if !sel.DisplaySites {
		shown = "sites hidden"
	}
	return fmt.Sprintf(" %s │ %s │ %s", sel.Region, mode, shown)
}

// engineOptions applies the logger to the configured engine options.
func engineOptions(cfg *config.Config, log *zap.Logger) engine.Options {
	opts := cfg.EngineOptions()
	opts.Logger = log
	return opts
}

// heatmapEngine builds the heatmap engine with the configured initial
// selection. The skin overlay is dropped when disabled.
func heatmapEngine(host engine.Host, cfg *config.Config, log *zap.Logger) *engine.HeatmapEngine {
	opts := engineOptions(cfg, log)
	if !cfg.Assets.SkinOverlay {
		opts.Paths.Scene = ""
	}
	eng := engine.NewHeatmapEngine(host, opts)
	mode, err := engine.ParseDataMode(cfg.Heatmap.Mode)
	if err != nil {
		mode = engine.ModeNormalized
	}
	eng.SetHeatmapSelection(engine.HeatmapSelectionUpdate{
		Mode:         engine.Mode(mode),
		DisplaySites: engine.Bool(cfg.Heatmap.DisplaySites),
	})
	return eng
}

func runSelection(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	host, err := termhost.New(log)
	if err != nil {
		return err
	}
	eng := engine.NewSelectionEngine(host, engineOptions(cfg, log), nil)
	ui := &selectionUI{eng: eng, setStatus: host.SetStatus}
	eng.OnRowsChange(func([]assets.Row) { ui.refresh() })
	return runViewer(ctx, host, eng, ui.key, ui.refresh)
}

func runHeatmap(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	host, err := termhost.New(log)
	if err != nil {
		return err
	}
	eng := heatmapEngine(host, cfg, log)
	ui := &heatmapUI{eng: eng, setStatus: host.SetStatus}
	return runViewer(ctx, host, eng, ui.key, ui.refresh)
}

// runViewer owns the terminal for the lifetime of eng. The engine is
// disposed before the terminal is restored.
func runViewer(ctx context.Context, host *termhost.Host, eng lifecycle, onKey func(uv.KeyPressEvent), refresh func()) error {
	if err := host.Start(); err != nil {
		return err
	}
	defer host.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer eng.Dispose()

	host.SetStatus(" Loading assets…")
	host.Present()
	if err := eng.Init(ctx); err != nil {
		return err
	}
	refresh()

	host.Run(ctx, func(k uv.KeyPressEvent) {
		if isQuit(k) {
			cancel()
			return
		}
		onKey(k)
	})
	return nil
}
