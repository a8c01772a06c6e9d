package data

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository - доступ к базе эталонного API.
type Repository struct {
	db *sqlx.DB
}

// OpenRepository открывает базу API, применяет схему, обновления схемы и
// заполняет вкладки по умолчанию при первом запуске.
func OpenRepository(ctx context.Context, path string) (*Repository, error) {
	db, err := Open(ctx, path, GetAPISchema())
	if err != nil {
		return nil, err
	}
	if err := EnsureCellsSchemaUpgrade(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	repo := &Repository{db: db}
	if err := repo.SeedDefaultTabs(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenRepository: %w", err)
	}
	return repo, nil
}

// NewRepository оборачивает открытую базу (схема уже применена).
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	return r.db.Close()
}
