package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/taigrr/lymphview/pkg/assets"
	"github.com/taigrr/lymphview/pkg/math3d"
	"github.com/taigrr/lymphview/pkg/models"
	"github.com/taigrr/lymphview/pkg/scene"
)

// DefaultRegion is shown first when the color data contains it.
const DefaultRegion = "Right Axilla"

const (
	siteRadius = 10.0
	siteScale  = 0.5

	overlaySkinOpacity  = 0.01
	overlayLinesOpacity = 0.7

	frequencySuffix = " Frequency"
)

// DataMode selects which melanoma site dataset is shown.
type DataMode int

const (
	// ModeNormalized shows sites colored by their normalized value.
	ModeNormalized DataMode = iota
	// ModeFrequency shows the frequency dataset with black sites.
	ModeFrequency
)

func (m DataMode) String() string {
	switch m {
	case ModeNormalized:
		return "norm"
	case ModeFrequency:
		return "freq"
	default:
		return fmt.Sprintf("DataMode(%d)", int(m))
	}
}

// ParseDataMode accepts norm, normalised, normalized, freq and
// frequency, case-insensitively.
func ParseDataMode(s string) (DataMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "norm", "normalised", "normalized":
		return ModeNormalized, nil
	case "freq", "frequency":
		return ModeFrequency, nil
	}
	return ModeNormalized, fmt.Errorf("unknown data mode %q", s)
}

// HeatmapSelection is what the heatmap engine displays.
type HeatmapSelection struct {
	Region       string
	Mode         DataMode
	DisplaySites bool
}

// HeatmapSelectionUpdate changes the fields that are non-nil.
type HeatmapSelectionUpdate struct {
	Region       *string
	Mode         *DataMode
	DisplaySites *bool
}

func (s HeatmapSelection) merge(u HeatmapSelectionUpdate) HeatmapSelection {
	if u.Region != nil {
		s.Region = *u.Region
	}
	if u.Mode != nil {
		s.Mode = *u.Mode
	}
	if u.DisplaySites != nil {
		s.DisplaySites = *u.DisplaySites
	}
	return s
}

// datasetKey names the site dataset for the selection.
func (s HeatmapSelection) datasetKey() string {
	if s.Mode == ModeFrequency {
		return s.Region + frequencySuffix
	}
	return s.Region
}

// Meta describes the loaded heatmap data.
type Meta struct {
	Regions         []string
	PatientDataKeys []string
	DefaultRegion   string
}

// HeatmapEngine recolors the body mesh with a per-region heatmap and
// overlays the melanoma sites of the selected dataset.
type HeatmapEngine struct {
	*viewer

	selection HeatmapSelection
	colors    assets.RegionColors
	points    assets.PointDatasets

	mesh          *scene.Node
	heatmapRoot   *scene.Node
	discreteGroup *scene.Node
	discrete      *scene.Node
	skinRoot      *scene.Node
}

// NewHeatmapEngine creates an engine on host. When opts.Paths.Scene is
// set the selection model is drawn over the heatmap as a faint skin.
func NewHeatmapEngine(host Host, opts Options) *HeatmapEngine {
	e := &HeatmapEngine{
		selection: HeatmapSelection{Region: DefaultRegion, Mode: ModeNormalized, DisplaySites: true},
	}
	e.viewer = newViewer(host, opts, e, "heatmap")
	return e
}

func (e *HeatmapEngine) uses() []assets.Asset {
	return []assets.Asset{assets.AssetHeatmapMesh, assets.AssetRegionColors, assets.AssetDiscretePoints, assets.AssetScene}
}

func (e *HeatmapEngine) required() []assets.Asset {
	return []assets.Asset{assets.AssetHeatmapMesh, assets.AssetRegionColors, assets.AssetDiscretePoints}
}

func (e *HeatmapEngine) build(b *assets.Bundle) error {
	e.colors = b.RegionColors
	e.points = b.Points

	first := b.HeatmapMesh.FirstMesh()
	if first == nil {
		return &assets.AssetLoadError{Kind: assets.KindSchema, Path: e.opts.Paths.HeatmapMesh, Err: errors.New("no triangle mesh")}
	}
	first.CalculateSmoothNormals()

	e.heatmapRoot = scene.NewGroup("heatmap")
	for _, r := range b.HeatmapMesh.Roots {
		e.heatmapRoot.Add(scene.FromModel(r, func(n *models.Node) *scene.Material {
			if n.Mesh != first {
				return scene.NewPhongMaterial(scene.White, defaultSpecular, 30)
			}
			m := scene.NewPhongMaterial(scene.White, skinSpecular, 20)
			m.Side = scene.DoubleSide
			m.VertexColors = true
			return m
		}))
	}
	e.heatmapRoot.Traverse(func(n *scene.Node) {
		if e.mesh == nil && n.Geometry != nil && n.Geometry.Mesh == first {
			e.mesh = n
		}
	})
	e.heatmapRoot.Position = e.heatmapRoot.Position.Add(scene.AlignmentOffset)
	e.scene.Add(e.heatmapRoot)

	e.discreteGroup = scene.NewGroup("discrete")
	e.heatmapRoot.Add(e.discreteGroup)

	if b.Scene != nil {
		if err := e.buildSkinOverlay(b.Scene); err != nil {
			return err
		}
	}

	e.selection.Region = e.meta().DefaultRegion
	e.applyHeatmap()
	e.applyDiscretePoints()

	e.log.Info("heatmap scene built",
		zap.Int("regions", len(e.colors)),
		zap.Int("datasets", len(e.points)),
		zap.Int("vertices", first.VertexCount()),
		zap.Bool("skin", e.skinRoot != nil))
	return nil
}

// buildSkinOverlay adds the selection model as a near-invisible skin
// with its Lines node drawn as segments.
func (e *HeatmapEngine) buildSkinOverlay(src *models.Scene) error {
	root := src.Root()
	if root == nil {
		return &assets.AssetLoadError{Kind: assets.KindSchema, Path: e.opts.Paths.Scene, Err: errors.New("model has no root node")}
	}

	skin := scene.NewPhongMaterial(skinColor, skinSpecular, 20)
	skin.SetOpacity(overlaySkinOpacity)
	skin.DepthWrite = false
	skin.Side = scene.DoubleSide

	e.skinRoot = scene.FromModel(root, func(n *models.Node) *scene.Material {
		if n.Name == linesNodeName {
			m := scene.NewLineMaterial(scene.Black, overlayLinesOpacity)
			m.DepthWrite = false
			return m
		}
		return skin
	})
	if lines := e.skinRoot.Child(linesNodeName); lines != nil {
		lines.ConvertToLines()
	}
	e.skinRoot.Position = e.skinRoot.Position.Add(scene.AlignmentOffset)
	e.scene.Add(e.skinRoot)
	return nil
}

func (e *HeatmapEngine) meta() Meta {
	regions := make([]string, 0, len(e.colors))
	for r := range e.colors {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	keys := make([]string, 0, len(e.points))
	for k := range e.points {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	def := DefaultRegion
	if _, ok := e.colors[DefaultRegion]; !ok && len(regions) > 0 {
		def = regions[0]
	}
	return Meta{Regions: regions, PatientDataKeys: keys, DefaultRegion: def}
}

// applyHeatmap swaps the mesh color attribute for the selected region.
// Unknown regions leave the current colors.
func (e *HeatmapEngine) applyHeatmap() {
	if e.mesh == nil || e.mesh.Geometry == nil {
		return
	}
	buf, ok := e.colors[e.selection.Region]
	if !ok {
		e.log.Debug("no heatmap for region", zap.String("region", e.selection.Region))
		return
	}
	if err := e.mesh.Geometry.SetColorAttribute(buf); err != nil {
		e.log.Warn("heatmap rejected", zap.String("region", e.selection.Region), zap.Error(err))
	}
}

// applyDiscretePoints rebuilds the site overlay for the selection.
func (e *HeatmapEngine) applyDiscretePoints() {
	if e.points == nil || e.discreteGroup == nil {
		return
	}
	e.clearDiscrete(true)
	if !e.selection.DisplaySites {
		return
	}

	key := e.selection.datasetKey()
	data, ok := e.points[key]
	if !ok || len(data.Positions) == 0 {
		e.log.Debug("no sites for dataset", zap.String("key", key))
		return
	}

	positions := make([]math3d.Vec3, len(data.Positions))
	colors := make([]scene.Color, len(data.Positions))
	for i, p := range data.Positions {
		positions[i] = math3d.FromArray(p)
		colors[i] = scene.Black
		if e.selection.Mode == ModeFrequency {
			continue
		}
		if c, ok := data.Color(i); ok {
			colors[i] = scene.Hex(c)
		}
	}

	sphere := scene.NewGeometry(models.NewUVSphere("site", siteRadius, 16, 16))
	mat := scene.NewPhongMaterial(scene.White, skinSpecular, 20)
	e.discrete = scene.NewInstanced("sites", sphere, mat, positions, siteScale, colors)
	e.discreteGroup.Add(e.discrete)
}

// clearDiscrete removes the site overlay and, with release set, frees
// its geometry and materials.
func (e *HeatmapEngine) clearDiscrete(release bool) {
	if e.discrete == nil {
		return
	}
	if e.discreteGroup != nil {
		e.discreteGroup.Remove(e.discrete)
	}
	if release {
		scene.DisposeTree(e.discrete)
	}
	e.discrete = nil
}

func (e *HeatmapEngine) pickRoots() []*scene.Node {
	return nil
}

func (e *HeatmapEngine) hoverChanged(_, _ *scene.Node) {}

func (e *HeatmapEngine) selected(_, _ *scene.Node) {}

func (e *HeatmapEngine) reset(_, _ *scene.Node) {
	e.clearDiscrete(true)
	e.applyHeatmap()
	e.applyDiscretePoints()
}

func (e *HeatmapEngine) teardown() {
	e.clearDiscrete(true)
	e.mesh = nil
	e.heatmapRoot = nil
	e.discreteGroup = nil
	e.skinRoot = nil
}

// SetHeatmapSelection merges the update into the selection and
// reapplies the heatmap and sites. Before Init completes only the
// selection is stored.
func (e *HeatmapEngine) SetHeatmapSelection(u HeatmapSelectionUpdate) {
	e.lock()
	defer e.unlock()
	if e.disposed {
		return
	}
	e.selection = e.selection.merge(u)
	if !e.ready {
		return
	}
	e.applyHeatmap()
	e.applyDiscretePoints()
}

// Selection returns the current heatmap selection.
func (e *HeatmapEngine) Selection() HeatmapSelection {
	e.lock()
	defer e.unlock()
	return e.selection
}

// Meta lists the regions and site datasets. It reports false until the
// data is loaded.
func (e *HeatmapEngine) Meta() (Meta, bool) {
	e.lock()
	defer e.unlock()
	if e.colors == nil || e.disposed {
		return Meta{}, false
	}
	return e.meta(), true
}

// SiteCount returns how many sites are currently drawn.
func (e *HeatmapEngine) SiteCount() int {
	e.lock()
	defer e.unlock()
	if e.discrete == nil {
		return 0
	}
	return len(e.discrete.Children)
}

// String is a shorthand for building region updates.
func String(s string) *string {
	return &s
}

// Mode is a shorthand for building mode updates.
func Mode(m DataMode) *DataMode {
	return &m
}
