// Package assets fetches and validates the mesh and JSON datasets that
// drive the lymphatic drainage viewer.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/lymphview/pkg/models"
)

// Asset names one input file.
type Asset int

const (
	AssetScene Asset = iota
	AssetHeatmapMesh
	AssetLymphPositions
	AssetElements
	AssetPatientCounts
	AssetRegionColors
	AssetDiscretePoints
)

func (a Asset) String() string {
	switch a {
	case AssetScene:
		return "scene"
	case AssetHeatmapMesh:
		return "heatmap mesh"
	case AssetLymphPositions:
		return "lymph positions"
	case AssetElements:
		return "elements"
	case AssetPatientCounts:
		return "patient counts"
	case AssetRegionColors:
		return "region colors"
	case AssetDiscretePoints:
		return "discrete points"
	default:
		return fmt.Sprintf("Asset(%d)", int(a))
	}
}

// Paths locates each asset relative to the fetcher base. Empty paths
// are skipped unless required.
type Paths struct {
	Scene          string `yaml:"scene"`
	HeatmapMesh    string `yaml:"heatmap_mesh"`
	LymphPositions string `yaml:"lymph_positions"`
	Elements       string `yaml:"elements"`
	PatientCounts  string `yaml:"patient_counts"`
	RegionColors   string `yaml:"region_colors"`
	DiscretePoints string `yaml:"discrete_points"`
}

// Get returns the configured path for an asset.
func (p Paths) Get(a Asset) string {
	switch a {
	case AssetScene:
		return p.Scene
	case AssetHeatmapMesh:
		return p.HeatmapMesh
	case AssetLymphPositions:
		return p.LymphPositions
	case AssetElements:
		return p.Elements
	case AssetPatientCounts:
		return p.PatientCounts
	case AssetRegionColors:
		return p.RegionColors
	case AssetDiscretePoints:
		return p.DiscretePoints
	}
	return ""
}

// Only returns a copy of p keeping just the listed assets.
func (p Paths) Only(keep ...Asset) Paths {
	var out Paths
	for _, a := range keep {
		v := p.Get(a)
		switch a {
		case AssetScene:
			out.Scene = v
		case AssetHeatmapMesh:
			out.HeatmapMesh = v
		case AssetLymphPositions:
			out.LymphPositions = v
		case AssetElements:
			out.Elements = v
		case AssetPatientCounts:
			out.PatientCounts = v
		case AssetRegionColors:
			out.RegionColors = v
		case AssetDiscretePoints:
			out.DiscretePoints = v
		}
	}
	return out
}

// Bundle is the validated result of a load.
type Bundle struct {
	Scene         *models.Scene
	HeatmapMesh   *models.Scene
	LymphNodes    []LymphNode
	Statistics    Statistics
	PatientCounts PatientCounts
	RegionColors  RegionColors
	Points        PointDatasets
}

// Loader fetches every configured asset concurrently.
type Loader struct {
	Fetcher *Fetcher
	GLTF    *models.GLTFLoader
	Logger  *zap.Logger
}

// NewLoader creates a loader reading from base.
func NewLoader(base string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		Fetcher: NewFetcher(base),
		GLTF:    models.NewGLTFLoader(),
		Logger:  logger,
	}
}

// Load fetches and validates the assets in paths. The first failure
// cancels the remaining fetches and is returned as *AssetLoadError.
func (l *Loader) Load(ctx context.Context, paths Paths, required ...Asset) (*Bundle, error) {
	for _, a := range required {
		if paths.Get(a) == "" {
			return nil, newLoadError(KindSchema, a.String(), errors.New("required asset has no path"))
		}
	}

	b := &Bundle{}
	g, gctx := errgroup.WithContext(ctx)

	l.goMesh(gctx, g, paths.Scene, &b.Scene)
	l.goMesh(gctx, g, paths.HeatmapMesh, &b.HeatmapMesh)
	goJSON(gctx, l, g, paths.LymphPositions, &b.LymphNodes)
	goJSON(gctx, l, g, paths.Elements, &b.Statistics)
	goJSON(gctx, l, g, paths.PatientCounts, &b.PatientCounts)
	goJSON(gctx, l, g, paths.RegionColors, &b.RegionColors)
	goJSON(gctx, l, g, paths.DiscretePoints, &b.Points)

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b.HeatmapMesh != nil {
		mesh := b.HeatmapMesh.FirstMesh()
		if mesh == nil {
			return nil, newLoadError(KindSchema, paths.HeatmapMesh, errors.New("no triangle mesh"))
		}
		if b.RegionColors == nil {
			return b, nil
		}
		if err := b.RegionColors.Validate(mesh.VertexCount()); err != nil {
			return nil, newLoadError(KindSchema, paths.RegionColors, err)
		}
	}
	return b, nil
}

func (l *Loader) goMesh(ctx context.Context, g *errgroup.Group, path string, dst **models.Scene) {
	if path == "" {
		return
	}
	g.Go(func() error {
		start := time.Now()
		scene, err := l.loadMesh(ctx, path)
		if err != nil {
			return err
		}
		*dst = scene
		l.Logger.Debug("mesh loaded",
			zap.String("path", path),
			zap.Int("meshes", scene.MeshCount()),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	})
}

func (l *Loader) loadMesh(ctx context.Context, path string) (*models.Scene, error) {
	loc, remote := l.Fetcher.Resolve(path)

	var (
		scene *models.Scene
		err   error
	)
	if remote {
		data, ferr := l.Fetcher.Fetch(ctx, path)
		if ferr != nil {
			return nil, ferr
		}
		scene, err = l.GLTF.ParseScene(data)
	} else {
		if cerr := ctx.Err(); cerr != nil {
			return nil, newLoadError(KindNetwork, path, cerr)
		}
		if _, serr := os.Stat(loc); serr != nil {
			return nil, newLoadError(KindNetwork, path, serr)
		}
		scene, err = l.GLTF.LoadScene(loc)
	}

	switch {
	case errors.Is(err, models.ErrNoMeshes):
		return nil, newLoadError(KindSchema, path, err)
	case err != nil:
		return nil, newLoadError(KindParse, path, err)
	}
	return scene, nil
}

func goJSON[T any](ctx context.Context, l *Loader, g *errgroup.Group, path string, dst *T) {
	if path == "" {
		return
	}
	g.Go(func() error {
		data, err := l.Fetcher.Fetch(ctx, path)
		if err != nil {
			return err
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				return newLoadError(KindParse, path, err)
			}
			return newLoadError(KindSchema, path, err)
		}
		*dst = v
		l.Logger.Debug("dataset loaded", zap.String("path", path), zap.Int("bytes", len(data)))
		return nil
	})
}
