package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"construction-invoice-api/internal/database"
	"construction-invoice-api/internal/migration"
)

// Imports invoices from a legacy JSON export into the SQLite database.
// Runs the schema migrations first so the tool works against a fresh
// database file.

func main() {
	var (
		dbPath         = flag.String("db", "./data/construction.db", "Database file path")
		migrationsPath = flag.String("migrations", "./migrations", "Migrations directory path")
		jsonPath       = flag.String("json", "./data/legacy", "Directory containing the legacy invoices.json export")
		checkOnly      = flag.Bool("check", false, "Only check whether a legacy export exists")
		verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	absDBPath, err := filepath.Abs(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute database path")
	}
	absMigrationsPath, err := filepath.Abs(*migrationsPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute migrations path")
	}
	absJSONPath, err := filepath.Abs(*jsonPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute JSON path")
	}

	connectionManager := database.NewConnectionManager(&database.ConnectionConfig{
		DatabasePath:   absDBPath,
		MigrationsPath: absMigrationsPath,
		Logger:         logger,
	})

	if err := connectionManager.Connect(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer connectionManager.Close()

	importer := migration.NewJSONImporter(connectionManager.GetDB(), absJSONPath, logger)

	if *checkOnly {
		if importer.CheckLegacyExportExists() {
			fmt.Println("Legacy export found, ready to import")
		} else {
			fmt.Println("No legacy export found")
		}
		return
	}

	if !importer.CheckLegacyExportExists() {
		logger.WithField("json_path", absJSONPath).Fatal("No legacy invoices.json export found")
	}

	result, err := importer.ImportFromJSON()
	if err != nil {
		logger.WithError(err).Fatal("Import failed")
	}

	fmt.Printf("Import completed:\n")
	fmt.Printf("  Invoices imported:   %d\n", result.InvoicesImported)
	fmt.Printf("  Line items imported: %d\n", result.LineItemsImported)
	fmt.Printf("  Invoices skipped:    %d\n", result.InvoicesSkipped)
	for _, warning := range result.Warnings {
		fmt.Printf("  Warning: %s\n", warning)
	}

	if err := importer.ValidateImport(); err != nil {
		logger.WithError(err).Fatal("Import validation failed")
	}
}
