// Command classifier labels gridded emission inventories with worst-case
// air-quality classes.
package main

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/emissions-classifier/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}
