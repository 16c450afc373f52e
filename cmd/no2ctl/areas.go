package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/ki-SH-an/NO2-predictor/internal/adapter/geojson"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/registry"
	"github.com/spf13/cobra"
)

func newAreasCmd() *cobra.Command {
	var region, format string

	cmd := &cobra.Command{
		Use:   "areas",
		Short: "List high-NO₂ areas, highest concentration first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := domain.ParseRegion(region)
			if err != nil {
				return err
			}
			areas := registry.Default().QueryAreas(filter)
			out := cmd.OutOrStdout()

			switch format {
			case "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tREGION\tLAT\tLNG\tNO2 (µg/m³)")
				for _, a := range areas {
					fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.1f\n",
						a.Name, a.Region, a.Coordinate.Latitude, a.Coordinate.Longitude, a.Concentration)
				}
				return tw.Flush()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(areas)
			case "geojson":
				data, err := geojson.Marshal(areas)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			default:
				return fmt.Errorf("unknown format %q (want table, json or geojson)", format)
			}
		},
	}

	cmd.Flags().StringVar(&region, "region", domain.FilterAll, "region filter: All, North, South, East, West or Central")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json or geojson")
	return cmd
}
