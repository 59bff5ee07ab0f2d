package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/gridforecast/internal/publisher"
	"github.com/jgoulah/gridforecast/pkg/models"
)

var (
	publishAll   bool
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish stored predictions to MQTT",
	Long:  `Reads stored predictions from the database and publishes them to the configured MQTT broker.`,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all records (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of records to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.MQTT.Enabled {
		return fmt.Errorf("MQTT is not enabled in config")
	}

	// Create publisher
	pub, err := publisher.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	// Open database
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// Get predictions based on --all flag
	var preds []models.Prediction
	if publishAll {
		preds, err = db.ListPredictions()
	} else {
		preds, err = db.ListUnpublishedPredictions()
	}
	if err != nil {
		return fmt.Errorf("listing predictions: %w", err)
	}

	if len(preds) == 0 {
		if publishAll {
			fmt.Println("No predictions found")
		} else {
			fmt.Println("No unpublished predictions found")
		}
		return nil
	}

	// Apply limit if specified
	if publishLimit > 0 && len(preds) > publishLimit {
		preds = preds[:publishLimit]
		fmt.Printf("Limiting to %d records (--limit flag)\n", publishLimit)
	}

	// Publish each record
	fmt.Printf("Publishing %d predictions...\n", len(preds))
	published := 0
	for i, p := range preds {
		fmt.Printf("[%d/%d] Publishing %s %s (%.2f kWh)... ",
			i+1, len(preds), p.BuildingID, p.Date.Format("2006-01-02"), p.PredictedKWh)
		if err := pub.Publish(p); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		// Mark record as published in database
		if err := db.MarkPublished(p.ID); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nSuccessfully published %d/%d predictions\n", published, len(preds))
	return nil
}
