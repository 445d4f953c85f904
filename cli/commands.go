package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"go-soilsync/batch"
	"go-soilsync/config"
	"go-soilsync/engine"
	"go-soilsync/models"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRecommendCommand(st *state) *cobra.Command {
	var (
		sample   models.SoilSample
		noJitter bool
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print a recommendation for one soil sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			if noJitter {
				cfg.Engine.DisableJitter = true
			}
			rec := newPredictor(cfg, st.log).Recommend(cmd.Context(), sample)
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&sample.Phosphorus, "phosphorus", 0, "phosphorus, mg/kg")
	f.Float64Var(&sample.Potassium, "potassium", 0, "potassium, mg/kg")
	f.Float64Var(&sample.Nitrogen, "nitrogen", 0, "total nitrogen, %")
	f.Float64Var(&sample.OrganicCarbon, "organic-carbon", 0, "organic carbon, %")
	f.Float64Var(&sample.CationExchange, "cec", 0, "cation exchange capacity, cmol/kg")
	f.Float64Var(&sample.SandPercent, "sand", 0, "sand, %")
	f.Float64Var(&sample.ClayPercent, "clay", 0, "clay, %")
	f.Float64Var(&sample.SiltPercent, "silt", 0, "silt, %")
	f.Float64Var(&sample.Rainfall, "rainfall", 0, "mean annual rainfall, mm")
	f.Float64Var(&sample.Elevation, "elevation", 0, "elevation, m")
	f.StringVar(&sample.CropType, "crop", "", "crop type, e.g. maize")
	f.BoolVar(&noJitter, "no-jitter", false, "disable random jitter")
	return cmd
}

func newBatchCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE.csv",
		Short: "Predict every row of a CSV file and compare with its labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := batch.Parse(f, st.cfg.Batch.MaxRows)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			runner := batch.NewRunner(newPredictor(st.cfg, st.log), st.cfg.Batch.Concurrency)
			report, err := runner.Run(cmd.Context(), rows)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newSimulateCommand(st *state) *cobra.Command {
	var predict bool
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Print a simulated sensor reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample := engine.Simulate(randomSource(st.cfg.Engine))
			if !predict {
				return printJSON(cmd.OutOrStdout(), sample)
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Input          models.SoilSample     `json:"input"`
				Recommendation models.Recommendation `json:"recommendation"`
			}{sample, newPredictor(st.cfg, st.log).Recommend(cmd.Context(), sample)})
		},
	}
	cmd.Flags().BoolVar(&predict, "predict", false, "also print the recommendation for the reading")
	return cmd
}

func newMigrateCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured SQL storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage := st.cfg.Storage
			if storage.Driver != config.DriverMySQL && storage.Driver != config.DriverSQLite {
				return fmt.Errorf("storage driver %q has no migrations", storage.Driver)
			}
			db, err := config.OpenDB(cmd.Context(), storage, st.log)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%d migrations applied to %s\n", len(config.Migrations()), storage.Driver)
			return nil
		},
	}
}
