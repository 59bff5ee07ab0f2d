package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/gridforecast/internal/dataset"
)

var (
	ingestMetadata    string
	ingestWeather     string
	ingestElectricity string
	ingestCSVOut      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Merge raw data files into the database",
	Long: `Loads the building metadata, weather and electricity usage CSV files,
merges them into one observation per (building, date), and stores the result
in the local SQLite database. Duplicate (building, date) pairs are ignored.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMetadata, "metadata", "", "building metadata CSV (required)")
	ingestCmd.Flags().StringVar(&ingestWeather, "weather", "", "weather CSV (required)")
	ingestCmd.Flags().StringVar(&ingestElectricity, "electricity", "", "wide-format electricity usage CSV (required)")
	ingestCmd.Flags().StringVar(&ingestCSVOut, "csv-out", "", "also write the merged table to this CSV file")
	ingestCmd.MarkFlagRequired("metadata")
	ingestCmd.MarkFlagRequired("weather")
	ingestCmd.MarkFlagRequired("electricity")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Ingest started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	fmt.Printf("Loading metadata from %s...\n", ingestMetadata)
	meta, err := dataset.LoadMetadata(ingestMetadata)
	if err != nil {
		return fmt.Errorf("loading metadata: %w", err)
	}

	fmt.Printf("Loading weather from %s...\n", ingestWeather)
	weather, err := dataset.LoadWeather(ingestWeather)
	if err != nil {
		return fmt.Errorf("loading weather: %w", err)
	}

	fmt.Printf("Loading electricity usage from %s...\n", ingestElectricity)
	usage, err := dataset.LoadElectricity(ingestElectricity)
	if err != nil {
		return fmt.Errorf("loading electricity: %w", err)
	}

	fmt.Printf("Merging %s usage records with %d buildings and %s weather records...\n",
		humanize.Comma(int64(len(usage))), len(meta), humanize.Comma(int64(len(weather))))
	obs := dataset.Merge(usage, meta, weather)

	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	for i := range obs {
		if err := db.InsertObservation(&obs[i]); err != nil {
			return fmt.Errorf("storing observation for %s on %s: %w",
				obs[i].BuildingID, obs[i].Date.Format("2006-01-02"), err)
		}
	}

	count, err := db.CountObservations()
	if err != nil {
		return err
	}
	fmt.Printf("✓ Database now holds %s observations\n", humanize.Comma(int64(count)))

	if ingestCSVOut != "" {
		if err := dataset.WriteObservations(ingestCSVOut, obs); err != nil {
			return fmt.Errorf("writing merged CSV: %w", err)
		}
		fmt.Printf("✓ Merged table written to %s\n", ingestCSVOut)
	}

	return nil
}
