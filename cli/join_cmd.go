package cli

import (
	"time"

	"github.com/spf13/cobra"

	"bikeshare-risk/dataset"
	"bikeshare-risk/matching"
)

type joinOutput struct {
	Trips        dataset.LoadReport `json:"trips"`
	Crashes      dataset.LoadReport `json:"crashes"`
	RadiusMeters float64            `json:"radius_meters"`
	TimeWindow   string             `json:"time_window"`
	Technique    string             `json:"technique"`
	Summary      matching.Summary   `json:"summary"`
	Pairs        []matching.Pair    `json:"pairs,omitempty"`
}

func newJoinCmd(a *app) *cobra.Command {
	var (
		radius    float64
		window    time.Duration
		technique string
		withPairs bool
	)

	cmd := &cobra.Command{
		Use:   "join TRIPS CRASHES",
		Short: "Pair trips with crashes near their start in space and time",
		Long: "Pair every trip with the crashes within a radius of its start location and a time window " +
			"of its start time. Pairs are a heuristic association, not evidence that the trip was involved.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jc := a.cfg.Join
			if cmd.Flags().Changed("radius") {
				jc.RadiusMeters = radius
			}
			if cmd.Flags().Changed("window") {
				jc.TimeWindow = window
			}
			if cmd.Flags().Changed("technique") {
				jc.Technique = technique
			}
			params, err := matching.ParamsFromConfig(jc)
			if err != nil {
				return err
			}

			loader, err := a.loader()
			if err != nil {
				return err
			}
			trips, err := loader.LoadTripsFromPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			crashes, err := loader.LoadCrashesFromPath(cmd.Context(), args[1])
			if err != nil {
				return err
			}

			pairs, err := matching.JoinByProximity(trips.Records, crashes.Records, params)
			if err != nil {
				return err
			}
			summary := matching.Summarize(pairs)
			a.logger.Info("join complete",
				"technique", params.Technique,
				"pairs", summary.Pairs,
				"trips", summary.Trips,
				"crashes", summary.Crashes)

			out := joinOutput{
				Trips:        trips.Report,
				Crashes:      crashes.Report,
				RadiusMeters: params.RadiusMeters,
				TimeWindow:   params.TimeWindow.String(),
				Technique:    string(params.Technique),
				Summary:      summary,
			}
			if withPairs {
				out.Pairs = pairs
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Float64Var(&radius, "radius", 0, "Search radius in meters (default from config)")
	cmd.Flags().DurationVar(&window, "window", 0, "Time window, e.g. 30m (default from config)")
	cmd.Flags().StringVar(&technique, "technique", "", "Spatial index: rtree, geohash or quadtree")
	cmd.Flags().BoolVar(&withPairs, "pairs", false, "Include the pairs in the output")
	return cmd
}
