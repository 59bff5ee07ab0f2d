package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridforecast/internal/artifact"
	"github.com/jgoulah/gridforecast/internal/dataset"
	"github.com/jgoulah/gridforecast/internal/features"
	"github.com/jgoulah/gridforecast/internal/training"
)

var (
	trainInput        string
	trainModelDir     string
	trainTestFraction float64
	trainTrees        int
	trainFolds        int
	trainSeed         uint64
	trainMaxDepth     int
	trainTemporal     bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and evaluate the forecasting model",
	Long: `Reads the processed training table and its predictors.txt, fits a
random-forest regressor on a random train split, evaluates it on the held-out
rows, cross-validates over the full dataset, and saves the model artifact,
metrics and feature importance ranking.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainInput, "input", "data/processed.csv", "processed CSV written by build-features")
	trainCmd.Flags().StringVar(&trainModelDir, "model-dir", "", "artifact output directory (default from config, then \"models\")")
	trainCmd.Flags().Float64Var(&trainTestFraction, "test-fraction", 0, "held-out test fraction (default from config, then 0.3)")
	trainCmd.Flags().IntVar(&trainTrees, "trees", 0, "number of trees (default from config, then 100)")
	trainCmd.Flags().IntVar(&trainFolds, "folds", 0, "cross-validation folds (default from config, then 5)")
	trainCmd.Flags().Uint64Var(&trainSeed, "seed", 0, "random seed (default from config, then 42)")
	trainCmd.Flags().IntVar(&trainMaxDepth, "max-depth", 0, "tree depth limit, 0 = unlimited")
	trainCmd.Flags().BoolVar(&trainTemporal, "temporal-split", false, "hold out the trailing rows instead of a random sample")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Train started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config, then let flags override it
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	trainCfg := training.Config{
		TestFraction: cfg.GetTestFraction(),
		Trees:        cfg.GetTrees(),
		Folds:        cfg.GetFolds(),
		Seed:         cfg.GetSeed(),
		MaxDepth:     cfg.GetMaxDepth(),
	}
	if cmd.Flags().Changed("test-fraction") {
		trainCfg.TestFraction = trainTestFraction
	}
	if cmd.Flags().Changed("trees") {
		trainCfg.Trees = trainTrees
	}
	if cmd.Flags().Changed("folds") {
		trainCfg.Folds = trainFolds
	}
	if cmd.Flags().Changed("seed") {
		trainCfg.Seed = trainSeed
	}
	if cmd.Flags().Changed("max-depth") {
		trainCfg.MaxDepth = trainMaxDepth
	}

	modelDir := cfg.GetModelDir()
	if trainModelDir != "" {
		modelDir = trainModelDir
	}

	// Load processed data and its predictor contract
	fmt.Printf("Loading processed data from %s...\n", trainInput)
	frame, err := dataset.ReadCSV(trainInput)
	if err != nil {
		return err
	}
	predictors, err := dataset.ReadPredictors(filepath.Join(filepath.Dir(trainInput), "predictors.txt"))
	if err != nil {
		return fmt.Errorf("loading predictor list: %w", err)
	}

	X, err := frame.Matrix(predictors)
	if err != nil {
		return fmt.Errorf("building feature matrix: %w", err)
	}
	y, err := frame.Floats(features.Target)
	if err != nil {
		return fmt.Errorf("reading target column: %w", err)
	}
	fmt.Printf("Dataset: %s rows x %d features\n", humanize.Comma(int64(len(X))), len(predictors))

	// Split, fit, evaluate
	var trainX, testX [][]float64
	var trainY, testY []float64
	if trainTemporal {
		trainX, trainY, testX, testY, err = training.TemporalSplit(X, y, trainCfg.TestFraction)
	} else {
		trainX, trainY, testX, testY, err = training.Split(X, y, trainCfg.TestFraction, trainCfg.Seed)
	}
	if err != nil {
		return fmt.Errorf("splitting data: %w", err)
	}
	fmt.Printf("Train set: %d rows, test set: %d rows\n", len(trainX), len(testX))

	trainer := training.New(trainCfg, newLogger())
	model, err := trainer.Fit(trainX, trainY)
	if err != nil {
		return err
	}

	eval, err := training.Evaluate(model, testX, testY)
	if err != nil {
		return fmt.Errorf("evaluating model: %w", err)
	}
	fmt.Printf("\nTest-set performance:\n")
	fmt.Printf("  RMSE: %.4f\n", eval.RMSE)
	fmt.Printf("  R^2:  %.4f\n", eval.R2)
	fmt.Printf("  MAE:  %.4f\n", eval.MAE)

	// Feature importance
	ranked, err := training.RankImportance(model, predictors)
	if err != nil {
		return err
	}
	fmt.Printf("\nFeature importance:\n")
	fmt.Println("----------------------------------------")
	fmt.Printf("%-20s  %10s\n", "Feature", "Importance")
	fmt.Println("----------------------------------------")
	for _, imp := range ranked {
		fmt.Printf("%-20s  %10.4f\n", imp.Feature, imp.Score)
	}

	// Independent k-fold estimate over the full dataset
	cv, err := trainer.CrossValidate(X, y)
	if err != nil {
		return fmt.Errorf("cross-validating: %w", err)
	}
	fmt.Printf("\n%d-fold cross-validation:\n", trainCfg.Folds)
	for i, rmse := range cv.FoldRMSE {
		fmt.Printf("  fold %d RMSE: %.4f\n", i+1, rmse)
	}
	fmt.Printf("  mean RMSE: %.4f (stddev %.4f)\n", cv.MeanRMSE, cv.StdRMSE)

	// Persist the artifact bundle
	runID, err := artifact.Save(modelDir, model, predictors, artifact.Metrics{
		RMSE:       eval.RMSE,
		R2:         eval.R2,
		MAE:        eval.MAE,
		FoldRMSE:   cv.FoldRMSE,
		CVMeanRMSE: cv.MeanRMSE,
		CVStdRMSE:  cv.StdRMSE,
	}, ranked)
	if err != nil {
		return fmt.Errorf("saving artifact: %w", err)
	}

	fmt.Printf("\n✓ Model %s saved to %s\n", runID, modelDir)
	return nil
}
