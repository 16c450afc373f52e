package main

import (
	"errors"
	"fmt"

	"github.com/ki-SH-an/NO2-predictor/internal/adapter/predictapi"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/spf13/cobra"
)

func newPredictCmd(a *app) *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Request a single NO₂ prediction",
		Example: `  no2ctl predict --lat 28.6139 --lng 77.2090
  no2ctl predict --lat 19.076 --lng 72.8777 --base-url http://predict.internal:5000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := domain.Coordinate{Latitude: lat, Longitude: lng}
			client := predictapi.NewClient(a.baseURL, a.timeout, nil, a.logger)

			value, err := client.Predict(cmd.Context(), c, a.timeout)
			if err != nil {
				return errors.New(domain.UserMessage(err))
			}

			rounded := c.Rounded()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t(raw %g)\n", rounded, domain.FormatConcentration(value), value)
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude in decimal degrees")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}
