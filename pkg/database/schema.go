package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pktikkani/mindful-poster/pkg/logging"

	dbsql "github.com/pktikkani/mindful-poster/pkg/database/sql"
)

// EnsureSchema applies the embedded DDL files in name order. The statements
// are idempotent, so running this at every startup is safe.
func EnsureSchema(db PostgresConn, logger logging.Logger) error {
	entries, err := dbsql.Content.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read embedded schema: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, name := range names {
		ddl, err := dbsql.Content.ReadFile("schema/" + name)
		if err != nil {
			return fmt.Errorf("read schema file %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
			return fmt.Errorf("apply schema file %s: %w", name, err)
		}
	}

	logger.WithFields(logging.Fields{
		"files": len(names),
	}).Info("Database schema ensured")

	return nil
}
