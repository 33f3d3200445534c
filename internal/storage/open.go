package storage

import (
	"errors"
	"strings"

	logx "swasthai/pkg/logx"
)

// Open initializes the configured store. An empty driver means "file".
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}
	newID := IDFunc(cfg.IDStrategy)

	switch driver {
	case "", "file", "json":
		return openFile(cfg, newID, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, newID, log)
	case "badger":
		return openBadger(cfg, newID, log)
	case "postgres", "postgresql", "pgx":
		return openPostgres(cfg, newID, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
