package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridforecast/pkg/models"
)

var listBuilding string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored predictions",
	Long:  `Displays stored predictions from the database, plus a summary of the observation table.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listBuilding, "building", "", "Filter by building ID")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	count, err := db.CountObservations()
	if err != nil {
		return err
	}
	fmt.Printf("Observations stored: %s\n", humanize.Comma(int64(count)))

	preds, err := db.ListPredictions()
	if err != nil {
		return fmt.Errorf("listing predictions: %w", err)
	}

	if listBuilding != "" {
		filtered := make([]models.Prediction, 0, len(preds))
		for _, p := range preds {
			if p.BuildingID == listBuilding {
				filtered = append(filtered, p)
			}
		}
		preds = filtered
	}

	if len(preds) == 0 {
		fmt.Println("No predictions found")
		return nil
	}

	fmt.Printf("\nPredictions:\n")
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("%-12s  %-20s  %12s\n", "Date", "Building", "kWh")
	fmt.Println("------------------------------------------------------------")

	var total float64
	for _, p := range preds {
		fmt.Printf("%-12s  %-20s  %12.2f\n", p.Date.Format("2006-01-02"), p.BuildingID, p.PredictedKWh)
		total += p.PredictedKWh
	}

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %.2f kWh (%d records)\n", total, len(preds))

	return nil
}
