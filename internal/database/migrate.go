package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const upSuffix = ".up.sql"

type migration struct {
	version  int
	filename string
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, in version order.
func Migrate(database *sql.DB) error {
	_, err := MigrateContext(context.Background(), database, migrationsFS)
	return err
}

// MigrateContext applies the pending *.up.sql files under migrations/ in
// source and returns how many ran. It stops at the first failure; earlier
// migrations stay committed.
func MigrateContext(ctx context.Context, database *sql.DB, source fs.FS) (int, error) {
	if _, err := database.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return 0, fmt.Errorf("creating migrations table: %w", err)
	}

	pending, err := listMigrations(source)
	if err != nil {
		return 0, err
	}

	applied, err := appliedVersions(ctx, database)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, next := range pending {
		if applied[next.version] {
			continue
		}
		if err := apply(ctx, database, source, next); err != nil {
			return count, err
		}
		count++
		slog.Info("applied migration", "version", next.version, "file", next.filename)
	}
	return count, nil
}

func listMigrations(source fs.FS) ([]migration, error) {
	names, err := fs.Glob(source, "migrations/*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	seen := make(map[int]string)
	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		filename := path.Base(name)
		version, err := parseVersion(filename)
		if err != nil {
			return nil, err
		}
		if previous, ok := seen[version]; ok {
			return nil, fmt.Errorf("migrations %s and %s share version %d", previous, filename, version)
		}
		seen[version] = filename
		migrations = append(migrations, migration{version: version, filename: filename})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})
	return migrations, nil
}

// parseVersion reads the numeric prefix of names like 003_recipes.up.sql.
func parseVersion(filename string) (int, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s has no version prefix", filename)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("migration %s has invalid version %q", filename, prefix)
	}
	return version, nil
}

func appliedVersions(ctx context.Context, database *sql.DB) (map[int]bool, error) {
	rows, err := database.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func apply(ctx context.Context, database *sql.DB, source fs.FS, next migration) error {
	content, err := fs.ReadFile(source, "migrations/"+next.filename)
	if err != nil {
		return fmt.Errorf("reading migration %s: %w", next.filename, err)
	}

	transaction, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction for migration %d: %w", next.version, err)
	}
	defer transaction.Rollback()

	if _, err := transaction.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("executing migration %s: %w", next.filename, err)
	}
	if _, err := transaction.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", next.version); err != nil {
		return fmt.Errorf("recording migration %d: %w", next.version, err)
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", next.version, err)
	}
	return nil
}
