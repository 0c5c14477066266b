package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"bikeshare-risk/cache"
	"bikeshare-risk/dataset"
	"bikeshare-risk/raster"
)

type rasterOutput struct {
	Crashes   dataset.LoadReport `json:"crashes"`
	Frame     raster.Frame       `json:"frame"`
	FramedBy  string             `json:"framed_by"`
	Aligned   int                `json:"aligned"`
	Options   raster.Options     `json:"options"`
	Cells     int                `json:"cells"`
	Total     int                `json:"total"`
	Published string             `json:"published,omitempty"`
	Raster    *raster.Raster     `json:"raster,omitempty"`
}

func newRasterCmd(a *app) *cobra.Command {
	var (
		tripsPath string
		bins      int
		timeBin   int
		publish   string
		withCells bool
	)

	cmd := &cobra.Command{
		Use:   "raster CRASHES",
		Short: "Aggregate crashes into a space and time-of-day grid",
		Long: "Project crashes to Web Mercator, keep those inside the dock network's extent when --trips is " +
			"given, and count them per spatial cell and time-of-day bin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := raster.Options{Bins: a.cfg.Raster.Bins, TimeBinMinutes: a.cfg.Raster.TimeBinMinutes}
			if cmd.Flags().Changed("bins") {
				opts.Bins = bins
			}
			if cmd.Flags().Changed("time-bin") {
				opts.TimeBinMinutes = timeBin
			}
			if publish != "" && !a.cfg.RedisEnabled() {
				return errors.New("--publish needs redis.addr to be configured")
			}

			loader, err := a.loader()
			if err != nil {
				return err
			}
			crashes, err := loader.LoadCrashesFromPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := rasterOutput{Crashes: crashes.Report, Options: opts}
			out.Frame, out.FramedBy, err = frame(cmd, loader, tripsPath, crashes)
			if err != nil {
				return err
			}

			points := out.Frame.Align(crashes.Records)
			r, err := raster.Rasterize(points, opts)
			if err != nil {
				return err
			}
			out.Aligned = len(points)
			out.Cells = len(r.Cells)
			out.Total = r.Total()
			if withCells {
				out.Raster = r
			}

			if publish != "" {
				rdb, err := cache.InitializeRedis(cmd.Context(), a.cfg.Redis, a.logger)
				if err != nil {
					return err
				}
				defer rdb.Close()
				store := cache.NewRasterStore(rdb, a.cfg.Redis.TTL, a.logger)
				if err := store.Publish(cmd.Context(), publish, r); err != nil {
					return err
				}
				out.Published = cache.Key(publish)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&tripsPath, "trips", "", "Trip exports whose stations frame the grid")
	cmd.Flags().IntVar(&bins, "bins", 0, "Spatial bins per axis (default from config)")
	cmd.Flags().IntVar(&timeBin, "time-bin", 0, "Time bin size in minutes (default from config)")
	cmd.Flags().StringVar(&publish, "publish", "", "Publish the raster to Redis under this name")
	cmd.Flags().BoolVar(&withCells, "cells", false, "Include the cells in the output")
	return cmd
}

// frame uses the stations of the trips at tripsPath, or the crashes
// themselves when no trips are given.
func frame(cmd *cobra.Command, loader *dataset.Loader, tripsPath string, crashes *dataset.CrashTable) (raster.Frame, string, error) {
	if tripsPath == "" {
		f, err := raster.NewFrame(crashes.Locations())
		return f, "crashes", err
	}
	trips, err := loader.LoadTripsFromPath(cmd.Context(), tripsPath)
	if err != nil {
		return raster.Frame{}, "", err
	}
	f, err := raster.FromStations(trips.Stations())
	return f, "stations", err
}
