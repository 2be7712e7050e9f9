// lymphview - Melanoma Lymphatic Drainage Viewer
// Explore lymphatic drainage statistics on a 3D body model in your terminal.
//
// Controls:
//
//	Click       - Select a skin region (selection)
//	Mouse drag  - Orbit (left) or pan (right)
//	Scroll      - Zoom
//	+/-         - Zoom toward/away from the selection
//	1-5         - Anterior, posterior, left, right, all
//	R           - Reset view and selection
//	C/D/P       - Toggle node codes, drainage, patient counts (selection)
//	Tab         - Next element (selection) or region (heatmap)
//	F           - Toggle normalised/frequency sites (heatmap)
//	S           - Toggle melanoma sites (heatmap)
//	Esc         - Quit
package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/lymphview/internal/config"
	"github.com/taigrr/lymphview/internal/logger"
)

var version = "dev"

var (
	configPath string
	assetBase  string
	targetFPS  int
	logLevel   string
	logFile    string

	dataMode     string
	snapshotPath string
	snapshotW    int
	snapshotH    int
	elementName  string
	regionName   string
)

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lymphview",
		Short: "Melanoma lymphatic drainage viewer",
		Long: `lymphview - Melanoma Lymphatic Drainage Viewer

Select a skin region to see where melanoma there drains, or recolour the
body with per-region heatmaps of melanoma sites.

Controls:
  Click       - Select a skin region
  Mouse drag  - Orbit (left) or pan (right)
  Scroll, +/- - Zoom
  1-5         - Anterior, posterior, left, right, all
  R           - Reset
  C/D/P       - Toggle node codes, drainage, patient counts
  Tab         - Next element or region
  F/S         - Toggle frequency data, melanoma sites
  Esc         - Quit`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to config file (default ./lymphview.yaml)")
	pf.StringVar(&assetBase, "assets", "", "Asset directory or http(s) URL")
	pf.IntVar(&targetFPS, "fps", 0, "Target FPS")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFile, "log-file", "", "Log file path")

	selection := &cobra.Command{
		Use:   "selection",
		Short: "Click skin regions to show their lymphatic drainage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(snapshotPath != "")
			if err != nil {
				return err
			}
			defer logger.Sync(log)
			if snapshotPath != "" {
				return snapshotSelection(cmd.Context(), cfg, log)
			}
			return runSelection(cmd.Context(), cfg, log)
		},
	}
	addSnapshotFlags(selection)
	selection.Flags().StringVar(&elementName, "element", "", "Element to select before the snapshot")

	heatmap := &cobra.Command{
		Use:   "heatmap",
		Short: "Recolour the body with per-region melanoma heatmaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(snapshotPath != "")
			if err != nil {
				return err
			}
			defer logger.Sync(log)
			if snapshotPath != "" {
				return snapshotHeatmap(cmd.Context(), cfg, log)
			}
			return runHeatmap(cmd.Context(), cfg, log)
		},
	}
	addSnapshotFlags(heatmap)
	heatmap.Flags().StringVar(&dataMode, "mode", "", "Site data: norm or freq")
	heatmap.Flags().StringVar(&regionName, "region", "", "Region to show in the snapshot")

	info := &cobra.Command{
		Use:   "info",
		Short: "Load every dataset and print a summary",
		Long:  "Load every configured asset, validate it and print element, lymph node, region and dataset counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(true)
			if err != nil {
				return err
			}
			defer logger.Sync(log)
			return runInfo(cmd.Context(), cmd.OutOrStdout(), cfg, log)
		},
	}

	root.AddCommand(selection, heatmap, info)
	return root
}

func addSnapshotFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Render one frame to this PNG and exit")
	cmd.Flags().IntVar(&snapshotW, "width", 640, "Snapshot width in pixels")
	cmd.Flags().IntVar(&snapshotH, "height", 480, "Snapshot height in pixels")
}

// setup loads the configuration and builds the logger. The terminal
// viewer logs to the configured file only; headless commands also log
// to stderr.
func setup(headless bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, config.Overrides{
		AssetBase: assetBase,
		FPS:       targetFPS,
		LogLevel:  logLevel,
		LogFile:   logFile,
		Mode:      dataMode,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	var fileCfg logger.FileConfig
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if headless {
		return cfg, logger.New(cfg.Logging.Level, fileCfg, os.Stderr), nil
	}
	return cfg, logger.New(cfg.Logging.Level, fileCfg, nil), nil
}
