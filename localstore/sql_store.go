package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"exercise_grid_go/data"

	"github.com/jmoiron/sqlx"
)

// SQLStore хранит значения в таблице LocalStorage файла SQLite.
type SQLStore struct {
	db *sqlx.DB
}

// OpenSQLStore открывает (или создает) файл хранилища.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := data.Open(ctx, path, data.LocalStorageSchema)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLStore: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// NewSQLStore оборачивает уже открытую базу; схема должна быть применена.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.Get(&value, `SELECT Value FROM LocalStorage WHERE Key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("SQLStore.Get: %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO LocalStorage (Key, Value, UpdatedAt) VALUES (?, ?, ?)
		ON CONFLICT (Key) DO UPDATE SET Value = excluded.Value, UpdatedAt = excluded.UpdatedAt`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("SQLStore.Set: %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM LocalStorage WHERE Key = ?`, key); err != nil {
		return fmt.Errorf("SQLStore.Remove: %s: %w", key, err)
	}
	return nil
}

// Close закрывает базу.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
