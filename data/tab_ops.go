package data

import (
	"context"
	"fmt"

	"exercise_grid_go/models"

	"go.alis.build/alog"
)

// GetTabs возвращает вкладки в порядке Position.
func (r *Repository) GetTabs(ctx context.Context) ([]models.Tab, error) {
	tabs := []models.Tab{}
	err := r.db.SelectContext(ctx, &tabs, `SELECT Id, Name, Position FROM Tabs ORDER BY Position, Id`)
	if err != nil {
		return nil, fmt.Errorf("GetTabs: ошибка получения вкладок: %w", err)
	}
	return tabs, nil
}

// CreateTab добавляет вкладку и возвращает ее ID.
func (r *Repository) CreateTab(ctx context.Context, tab models.Tab) (int64, error) {
	res, err := r.db.NamedExecContext(ctx, `INSERT INTO Tabs (Name, Position) VALUES (:Name, :Position)`, tab)
	if err != nil {
		return 0, fmt.Errorf("CreateTab: ошибка вставки вкладки %q: %w", tab.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateTab: ошибка получения LastInsertId: %w", err)
	}
	return id, nil
}

// SeedDefaultTabs создает вкладки по умолчанию, если таблица пуста.
func (r *Repository) SeedDefaultTabs(ctx context.Context) error {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM Tabs`); err != nil {
		return fmt.Errorf("SeedDefaultTabs: %w", err)
	}
	if count > 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SeedDefaultTabs: begin: %w", err)
	}
	defer tx.Rollback()
	for _, tab := range models.DefaultTabs() {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO Tabs (Id, Name, Position) VALUES (:Id, :Name, :Position)`, tab); err != nil {
			return fmt.Errorf("SeedDefaultTabs: вкладка %q: %w", tab.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SeedDefaultTabs: commit: %w", err)
	}
	alog.Infof(ctx, "Созданы вкладки по умолчанию")
	return nil
}
