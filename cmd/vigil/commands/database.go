package commands

import (
	"database/sql"

	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/db"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
)

// openLedger opens and migrates the usage ledger at cfg's database path
func openLedger(cfg *am.Config) (*sql.DB, error) {
	path := cfg.GetDatabasePath()
	database, err := db.OpenAndMigrate(path, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open usage ledger at %s", path)
	}
	return database, nil
}
