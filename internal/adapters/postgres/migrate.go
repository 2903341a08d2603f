package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every embedded migration in the given direction ("up" or
// "down"). Down migrations run in reverse order.
func Migrate(ctx context.Context, db *DB, direction string) error {
	suffix := "." + direction + ".sql"
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	names, err := fs.Glob(migrationFS, "migrations/*"+suffix)
	if err != nil {
		return err
	}
	sort.Strings(names)
	if direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	for _, name := range names {
		data, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", name, classify(err))
		}
		slog.Info("migration applied", "file", strings.TrimPrefix(name, "migrations/"))
	}
	return nil
}
