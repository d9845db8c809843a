package main

import (
	"os"
	"strings"

	"github.com/nimasrn/session-ledger/internal/config"
	"github.com/nimasrn/session-ledger/pkg/logger"
	"github.com/nimasrn/session-ledger/pkg/pg"
)

// main.go --env=.env --dir=./migrations
func main() {
	defer logger.Sync()

	err := config.Load(argValue("--env=", ".env"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err = pg.Migrate(config.Get().Store(), argValue("--dir=", "./migrations")); err != nil {
		logger.Error("migration: error running migrations", "error", err)
		os.Exit(1)
	}
}

// argValue returns the value of a --name= flag, falling back to def when the
// flag is absent. Paths that do not exist resolve to "".
func argValue(prefix, def string) string {
	path := def
	for _, v := range os.Args[1:] {
		if p, ok := strings.CutPrefix(v, prefix); ok {
			path = p
			break
		}
	}
	if _, err := os.Stat(path); err != nil {
		logger.Warn("path not found", "flag", prefix, "path", path)
		return ""
	}
	return path
}
