package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridforecast/internal/dataset"
	"github.com/jgoulah/gridforecast/internal/features"
	"github.com/jgoulah/gridforecast/pkg/models"
)

var (
	featuresInput  string
	featuresOutput string
)

var featuresCmd = &cobra.Command{
	Use:   "build-features",
	Short: "Turn merged observations into the processed training table",
	Long: `Reads merged observations (from the database by default, or from a CSV
written by "ingest --csv-out"), derives time and lag features, removes
outliers, fills missing predictor values, and writes the processed CSV with
its predictors.txt next to it.`,
	RunE: runBuildFeatures,
}

func init() {
	featuresCmd.Flags().StringVar(&featuresInput, "input", "", "merged CSV to read instead of the database")
	featuresCmd.Flags().StringVar(&featuresOutput, "output", "data/processed.csv", "processed CSV output path")
	rootCmd.AddCommand(featuresCmd)
}

func runBuildFeatures(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Build Features started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	var obs []models.Observation
	var err error
	if featuresInput != "" {
		fmt.Printf("Reading merged observations from %s...\n", featuresInput)
		obs, err = dataset.ReadObservations(featuresInput)
		if err != nil {
			return fmt.Errorf("reading observations: %w", err)
		}
	} else {
		db, err := openDB()
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		obs, err = db.ListObservations()
		if err != nil {
			return fmt.Errorf("listing observations: %w", err)
		}
	}

	fmt.Printf("Engineering features from %s observations...\n", humanize.Comma(int64(len(obs))))
	builder := features.NewBuilder(newLogger())
	rows, predictors, err := builder.Build(obs)
	if err != nil {
		return fmt.Errorf("building features: %w", err)
	}

	if err := features.WriteProcessed(featuresOutput, rows, predictors); err != nil {
		return fmt.Errorf("writing processed data: %w", err)
	}

	fmt.Printf("✓ Wrote %s feature rows to %s (predictors.txt alongside)\n",
		humanize.Comma(int64(len(rows))), featuresOutput)
	return nil
}
