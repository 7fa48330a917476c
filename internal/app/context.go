package app

import (
	"fmt"
	"os"

	"gigledger/internal/config"
)

// ResolveConfig loads gigledger.yml from the workspace, seeding the
// default file on first use so every later command sees the same limits.
func ResolveConfig(workspace, ledgerOverride string) (*config.Config, error) {
	path := config.Path(workspace)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		ledgerID := ledgerOverride
		if ledgerID == "" {
			ledgerID = "gigledger"
		}
		if err := os.WriteFile(path, []byte(config.GenerateDefault(ledgerID)), 0o644); err != nil {
			return nil, fmt.Errorf("seed config: %w", err)
		}
		return config.Default(ledgerID), nil
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if ledgerOverride != "" {
		cfg.Ledger.ID = ledgerOverride
	}
	return cfg, nil
}
