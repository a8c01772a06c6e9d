package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Драйвер SQLite, импортируется для регистрации драйвера
	"go.alis.build/alog"
)

// MemoryPath открывает приватную базу в памяти (для тестов и временных сессий).
const MemoryPath = ":memory:"

// Open подключается к файлу SQLite и применяет схему.
// Один и тот же помощник используется локальным хранилищем клиента, хранилищем
// кэша оболочки и эталонным API.
func Open(ctx context.Context, path string, schema string) (*sqlx.DB, error) {
	dsn := path
	inMemory := path == MemoryPath || strings.HasPrefix(path, "file::memory:")
	if !inMemory {
		dsn = path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: не удалось подключиться к %s: %w", path, err)
	}
	// Каждое соединение с :memory: видит свою базу, поэтому держим одно.
	if inMemory {
		db.SetMaxOpenConns(1)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping %s: %w", path, err)
	}
	if schema != "" {
		if _, err = db.ExecContext(ctx, schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("Open: ошибка применения схемы к %s: %w", path, err)
		}
	}
	alog.Debugf(ctx, "SQLite database ready at %s", path)
	return db, nil
}

// columnExists проверяет наличие колонки через pragma_table_info.
func columnExists(ctx context.Context, db *sqlx.DB, table, column string) (bool, error) {
	var exists bool
	err := db.GetContext(ctx, &exists, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info(?)
		WHERE name = ?`, table, column)
	if err != nil {
		return false, fmt.Errorf("columnExists: %s.%s: %w", table, column, err)
	}
	return exists, nil
}

// EnsureCellsSchemaUpgrade добавляет колонку Header в базы, созданные до появления заголовков.
func EnsureCellsSchemaUpgrade(ctx context.Context, db *sqlx.DB) error {
	exists, err := columnExists(ctx, db, "Cells", "Header")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err = db.ExecContext(ctx, `ALTER TABLE Cells ADD COLUMN Header TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("EnsureCellsSchemaUpgrade: failed to add Header column: %w", err)
	}
	alog.Infof(ctx, "Добавлена колонка Header в таблицу Cells")
	return nil
}
