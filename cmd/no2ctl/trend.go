package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ki-SH-an/NO2-predictor/internal/adapter/chart"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/trend"
	"github.com/spf13/cobra"
)

func newTrendCmd() *cobra.Command {
	var (
		lat, lng float64
		pngPath  string
	)

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Print or plot the illustrative monthly NO₂ trend for a point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := domain.Coordinate{Latitude: lat, Longitude: lng}
			if err := c.Validate(); err != nil {
				return err
			}
			series := trend.NewGenerator(nil).Generate(c)

			if pngPath == "" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(series)
			}

			f, err := os.Create(pngPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", pngPath, err)
			}
			if err := chart.RenderTrend(f, series); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write %s: %w", pngPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d points)\n", pngPath, len(series.Points))
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude in decimal degrees")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a PNG chart to this path instead of JSON")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}
