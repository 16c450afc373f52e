package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ki-SH-an/NO2-predictor/internal/adapter/predictapi"
	"github.com/ki-SH-an/NO2-predictor/internal/domain"
	"github.com/ki-SH-an/NO2-predictor/internal/registry"
	"github.com/spf13/cobra"
)

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var errCheckFailed = errors.New("prediction service check failed")

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify a running prediction service answers for every catalog area",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := predictapi.NewClient(a.baseURL, a.timeout, nil, a.logger)
			phases := runChecks(cmd.Context(), client, registry.Default())
			if !report(cmd.OutOrStdout(), client.BaseURL(), phases) {
				return errCheckFailed
			}
			return nil
		},
	}
}

type checkClient interface {
	domain.Predictor
	Ping(ctx context.Context) error
}

func runChecks(ctx context.Context, client checkClient, catalog *registry.Catalog) []*phase {
	reach := &phase{name: "Service reachable"}
	if err := client.Ping(ctx); err != nil {
		reach.errorf("%v", err)
	}

	predict := &phase{name: "Predictions for catalog areas"}
	invalid := &phase{name: "Invalid coordinates rejected locally"}
	if !reach.passed() {
		predict.errorf("skipped: service unreachable")
		return []*phase{reach, predict, invalid}
	}

	for _, area := range catalog.QueryAreas("") {
		value, err := client.Predict(ctx, area.Coordinate, 0)
		switch {
		case err != nil:
			predict.errorf("%s (%s): %s", area.Name, area.Coordinate, domain.UserMessage(err))
		case math.IsNaN(value) || math.IsInf(value, 0) || value < 0:
			predict.errorf("%s (%s): implausible value %v", area.Name, area.Coordinate, value)
		}
	}

	_, err := client.Predict(ctx, domain.Coordinate{Latitude: 91, Longitude: 0}, 0)
	if domain.KindOf(err) != domain.KindInvalidCoordinate {
		invalid.errorf("latitude 91 accepted or misclassified: %v", err)
	}

	return []*phase{reach, predict, invalid}
}

func report(w io.Writer, baseURL string, phases []*phase) bool {
	fmt.Fprintf(w, "=== Prediction service check: %s ===\n\n", baseURL)

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  %d. %s\n", i+1, e)
		}
	}
	return allPassed
}
