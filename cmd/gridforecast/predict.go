package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridforecast/internal/dataset"
	"github.com/jgoulah/gridforecast/internal/prediction"
	"github.com/jgoulah/gridforecast/pkg/models"
)

var (
	predictModelDir string
	predictInput    string
	predictOutput   string
	predictRecord   bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Apply a saved model to new data",
	Long: `Loads a model artifact, selects the persisted predictor columns from the
input CSV, and writes the input with one appended predicted_electricity_usage
column. Fails if any predictor column is missing from the input.`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictModelDir, "model-dir", "", "artifact directory (default from config, then \"models\")")
	predictCmd.Flags().StringVar(&predictInput, "input", "", "input CSV containing the predictor columns (required)")
	predictCmd.Flags().StringVar(&predictOutput, "output", "", "output CSV path (required)")
	predictCmd.Flags().BoolVar(&predictRecord, "record", false, "also store predictions in the database (input must carry building_id and date columns)")
	predictCmd.MarkFlagRequired("input")
	predictCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Predict started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	modelDir := cfg.GetModelDir()
	if predictModelDir != "" {
		modelDir = predictModelDir
	}

	fmt.Printf("Loading model from %s...\n", modelDir)
	runner, err := prediction.Load(modelDir, newLogger())
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}

	fmt.Printf("Loading input from %s...\n", predictInput)
	frame, err := dataset.ReadCSV(predictInput)
	if err != nil {
		return err
	}

	preds, err := runner.Run(frame)
	if err != nil {
		return fmt.Errorf("running predictions: %w", err)
	}

	if err := frame.WriteCSV(predictOutput); err != nil {
		return fmt.Errorf("writing predictions: %w", err)
	}
	fmt.Printf("✓ Wrote %s predicted rows to %s\n", humanize.Comma(int64(len(preds))), predictOutput)

	if predictRecord {
		if err := recordPredictions(frame, preds, runner.RunID()); err != nil {
			return err
		}
	}

	return nil
}

// recordPredictions stores the predicted values in SQLite so they can be
// listed and published later.
func recordPredictions(frame *dataset.Frame, preds []float64, runID string) error {
	buildingIdx, ok := frame.ColumnIndex("building_id")
	if !ok {
		return fmt.Errorf("--record requires a building_id column in the input")
	}
	dateIdx, ok := frame.ColumnIndex("date")
	if !ok {
		return fmt.Errorf("--record requires a date column in the input")
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	for i, row := range frame.Rows {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(row[dateIdx]))
		if err != nil {
			return fmt.Errorf("row %d: parsing date: %w", i+1, err)
		}
		p := models.Prediction{
			BuildingID:   strings.TrimSpace(row[buildingIdx]),
			Date:         date,
			PredictedKWh: preds[i],
			ModelRunID:   runID,
		}
		if err := db.InsertPrediction(&p); err != nil {
			return fmt.Errorf("storing prediction for %s: %w", p.BuildingID, err)
		}
	}

	fmt.Printf("✓ Recorded %d predictions in the database\n", len(preds))
	return nil
}
