package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JonMunkholm/csv2oltp/internal/logging"
)

// Bootstrap executes the DDL statements in the file at path verbatim.
// The statements run in a single round trip on db, so they share the
// caller's transaction.
func Bootstrap(ctx context.Context, db DBTX, path string) error {
	ddl, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}

	logger := logging.FromContext(ctx)
	logger.Info("initializing database", "schema_file", path)
	logger.Debug("schema statements", "sql", string(ddl))

	if strings.TrimSpace(string(ddl)) == "" {
		return nil
	}

	if _, err := db.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("execute schema file %s: %w", path, err)
	}
	return nil
}
