package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"bikeshare-risk/dataset"
	"bikeshare-risk/models"
)

type tripsOutput struct {
	Report   dataset.LoadReport    `json:"report"`
	Duration dataset.DurationStats `json:"duration"`
	Stations int                   `json:"stations"`
	Busiest  []models.Station      `json:"busiest,omitempty"`
}

func newTripsCmd(a *app) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "trips PATH",
		Short: "Load trip exports and report data quality",
		Long:  "Load a trip CSV, a zip archive or a directory of monthly exports and print the load report.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := a.loader()
			if err != nil {
				return err
			}
			table, err := loader.LoadTripsFromPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			stations := table.Stations()
			return printJSON(cmd.OutOrStdout(), tripsOutput{
				Report:   table.Report,
				Duration: table.DurationStats(),
				Stations: len(stations),
				Busiest:  busiest(stations, top),
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "Also list the N stations with the most traffic")
	return cmd
}

// busiest returns the n stations with the most trips, ties by id.
func busiest(stations []models.Station, n int) []models.Station {
	if n <= 0 {
		return nil
	}
	out := append([]models.Station(nil), stations...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Traffic() > out[j].Traffic()
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}
