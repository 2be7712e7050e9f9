package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/taigrr/lymphview/internal/config"
	"github.com/taigrr/lymphview/internal/termhost"
	"github.com/taigrr/lymphview/pkg/assets"
	"github.com/taigrr/lymphview/pkg/engine"
)

func snapshotSelection(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	host := termhost.NewOffscreen(snapshotW, snapshotH, log)
	eng := engine.NewSelectionEngine(host, engineOptions(cfg, log), nil)
	defer eng.Dispose()
	if err := eng.Init(ctx); err != nil {
		return err
	}
	if elementName != "" && !eng.SelectElement(elementName) && !eng.SelectElement("element_"+elementName) {
		return fmt.Errorf("unknown element %q (have %s)", elementName, strings.Join(eng.Elements(), ", "))
	}
	return writeSnapshot(eng, log)
}

func snapshotHeatmap(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	host := termhost.NewOffscreen(snapshotW, snapshotH, log)
	eng := heatmapEngine(host, cfg, log)
	defer eng.Dispose()
	if err := eng.Init(ctx); err != nil {
		return err
	}
	if regionName != "" {
		meta, _ := eng.Meta()
		if !slices.Contains(meta.Regions, regionName) {
			return fmt.Errorf("unknown region %q (have %s)", regionName, strings.Join(meta.Regions, ", "))
		}
		eng.SetHeatmapSelection(engine.HeatmapSelectionUpdate{Region: engine.String(regionName)})
	}
	return writeSnapshot(eng, log)
}

type snapshotter interface {
	Snapshot(path string) error
}

func writeSnapshot(s snapshotter, log *zap.Logger) error {
	if err := s.Snapshot(snapshotPath); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	log.Info("snapshot written",
		zap.String("path", snapshotPath),
		zap.Int("width", snapshotW),
		zap.Int("height", snapshotH))
	return nil
}

// runInfo loads every configured asset and prints a summary.
func runInfo(ctx context.Context, w io.Writer, cfg *config.Config, log *zap.Logger) error {
	b, err := assets.NewLoader(cfg.Assets.Base, log).Load(ctx, cfg.Assets.Paths)
	if err != nil {
		return err
	}
	printInfo(w, cfg.Assets.Base, b)
	return nil
}

func printInfo(w io.Writer, base string, b *assets.Bundle) {
	fmt.Fprintf(w, "Assets:      %s\n", base)

	if b.Scene != nil {
		var elements int
		if root := b.Scene.Root(); root != nil {
			for _, c := range root.Children {
				if c.Name != "Lines" {
					elements++
				}
			}
		}
		fmt.Fprintf(w, "Elements:    %d\n", elements)
	}
	if b.LymphNodes != nil {
		fmt.Fprintf(w, "Lymph nodes: %d\n", len(b.LymphNodes))
	}
	if b.Statistics != nil {
		fmt.Fprintf(w, "Drainage:    %d elements\n", len(b.Statistics))
	}
	if b.PatientCounts != nil {
		total := 0
		for _, n := range b.PatientCounts {
			total += n
		}
		fmt.Fprintf(w, "Patients:    %d across %d elements\n", total, len(b.PatientCounts))
	}
	if b.HeatmapMesh != nil {
		if m := b.HeatmapMesh.FirstMesh(); m != nil {
			fmt.Fprintf(w, "Body mesh:   %d vertices, %d triangles\n", m.VertexCount(), m.TriangleCount())
		}
	}
	if b.RegionColors != nil {
		fmt.Fprintf(w, "Regions:     %d\n", len(b.RegionColors))
	}
	if b.Points != nil {
		sites := 0
		for _, d := range b.Points {
			sites += len(d.Positions)
		}
		fmt.Fprintf(w, "Site sets:   %d (%d sites)\n", len(b.Points), sites)
	}
}
