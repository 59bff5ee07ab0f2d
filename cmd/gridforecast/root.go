package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jgoulah/gridforecast/internal/config"
	"github.com/jgoulah/gridforecast/internal/database"
	"github.com/jgoulah/gridforecast/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gridforecast",
	Short: "Forecast daily building electricity usage",
	Long: `GridForecast is a CLI pipeline that merges building metadata, weather and
electricity usage into a SQLite database, engineers time-aware features,
trains a random-forest regressor, and applies it to new data.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "data.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// newLogger builds the logger handed to pipeline components
func newLogger() *logging.Logger {
	return logging.New(verbose)
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}
