package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"solana-token-aggregator/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded Postgres files in lexical order.
// Every file uses IF NOT EXISTS, so reruns are safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return nil
}
