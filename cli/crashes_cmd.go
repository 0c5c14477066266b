package cli

import (
	"github.com/spf13/cobra"

	"bikeshare-risk/dataset"
	"bikeshare-risk/models"
)

type crashesOutput struct {
	Report     dataset.LoadReport `json:"report"`
	Located    int                `json:"located"`
	Factor     string             `json:"factor,omitempty"`
	WithFactor int                `json:"with_factor,omitempty"`
}

func newCrashesCmd(a *app) *cobra.Command {
	var (
		cyclistsOnly bool
		factor       string
	)

	cmd := &cobra.Command{
		Use:   "crashes PATH",
		Short: "Load crash exports and report data quality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("cyclists-only") {
				a.cfg.Dataset.CyclistsOnly = cyclistsOnly
			}
			table, err := a.loadCrashes(cmd, args[0])
			if err != nil {
				return err
			}
			out := crashesOutput{
				Report:  table.Report,
				Located: len(table.Located()),
			}
			if factor != "" {
				out.Factor = factor
				out.WithFactor = countFactor(table.Records, factor)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&cyclistsOnly, "cyclists-only", false, "Keep only crashes involving a cyclist")
	cmd.Flags().StringVar(&factor, "factor", "", "Also count crashes citing this contributing factor")
	return cmd
}

func countFactor(crashes []models.CrashRecord, factor string) int {
	n := 0
	for _, c := range crashes {
		if c.HasFactor(factor) {
			n++
		}
	}
	return n
}

func (a *app) loadCrashes(cmd *cobra.Command, path string) (*dataset.CrashTable, error) {
	loader, err := a.loader()
	if err != nil {
		return nil, err
	}
	return loader.LoadCrashesFromPath(cmd.Context(), path)
}
