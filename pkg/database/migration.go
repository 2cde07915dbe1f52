package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type migrationFile struct {
	Version string
	Name    string
	Path    string
}

// RunMigrations applies every not yet recorded "<version>_<name>.sql" file
// from migrationsDir in version order, one transaction per file.
func RunMigrations(ctx context.Context, db *pgxpool.Pool, migrationsDir string, logger *zap.Logger) (int, error) {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL
		);
	`)
	if err != nil {
		return 0, fmt.Errorf("ошибка при создании таблицы миграций: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}

	files, err := collectMigrations(migrationsDir, logger)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, file := range files {
		if applied[file.Version] {
			logger.Debug("миграция уже выполнена", zap.String("version", file.Version), zap.String("name", file.Name))
			continue
		}

		if err := applyMigration(ctx, db, file); err != nil {
			return count, err
		}
		count++

		logger.Info("миграция выполнена успешно", zap.String("version", file.Version), zap.String("name", file.Name))
	}

	return count, nil
}

func appliedVersions(ctx context.Context, db *pgxpool.Pool) (map[string]bool, error) {
	rows, err := db.Query(ctx, "SELECT version FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении списка выполненных миграций: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о миграции: %w", err)
		}
		applied[version] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса: %w", err)
	}

	return applied, nil
}

func collectMigrations(migrationsDir string, logger *zap.Logger) ([]migrationFile, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении директории миграций: %w", err)
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) != 2 || parts[0] == "" {
			logger.Warn("неверный формат имени файла миграции", zap.String("file", entry.Name()))
			continue
		}

		files = append(files, migrationFile{
			Version: parts[0],
			Name:    strings.TrimSuffix(parts[1], ".sql"),
			Path:    filepath.Join(migrationsDir, entry.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})

	return files, nil
}

func applyMigration(ctx context.Context, db *pgxpool.Pool, file migrationFile) error {
	content, err := os.ReadFile(file.Path)
	if err != nil {
		return fmt.Errorf("ошибка при чтении файла миграции %s: %w", file.Path, err)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("ошибка при выполнении миграции %s: %w", file.Path, err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO migrations (version, name, applied_at) VALUES ($1, $2, $3)",
		file.Version, file.Name, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("ошибка при записи информации о выполненной миграции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка при коммите транзакции: %w", err)
	}

	return nil
}
