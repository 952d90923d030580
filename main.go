package main

import (
	"log"

	"linklens/adapters/excel"
	"linklens/adapters/ledger"
	"linklens/app"
	"linklens/domain/dataset"
	"linklens/internal/config"
	"linklens/internal/testkit"
	"linklens/ui"
)

// loadFrame reads the configured data file, falling back to a deterministic
// synthetic claims portfolio when none is set.
func loadFrame(cfg *config.Config) (*dataset.Frame, error) {
	if cfg.Data.File != "" {
		log.Printf("Using data source: %s", cfg.Data.File)
		return excel.NewDataReader(cfg.Data.File).ReadFrame()
	}

	log.Printf("No data file configured, using synthetic claims portfolio")
	genCfg := testkit.DefaultClaimsConfig()
	genCfg.Seed = cfg.Data.Seed
	return testkit.NewClaimsDataGenerator(genCfg).GenerateFrequencyFrame(), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := ledger.NewSQLiteLedger(cfg.Ledger.Path)
	if err != nil {
		log.Fatalf("Failed to open artifact ledger: %v", err)
	}
	defer store.Close()

	frame, err := loadFrame(cfg)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	if err := frame.Validate(); err != nil {
		log.Fatalf("Dataset failed validation: %v", err)
	}
	log.Printf("Dataset ready: %d rows, %d features (fingerprint %s)",
		frame.RowCount(), frame.FeatureCount(), frame.Fingerprint)

	service := app.NewAnalysisService(store, cfg.Stats.Tolerance, cfg.Data.Seed)
	server := ui.NewServer(cfg, store, service, frame)

	log.Printf("Starting server on port %s", cfg.Server.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
