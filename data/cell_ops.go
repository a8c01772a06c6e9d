package data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"exercise_grid_go/models"

	"github.com/jmoiron/sqlx"
	"go.alis.build/alog"
)

const selectCells = `SELECT Id, TabId, RowIndex, ColIndex, Content, Header FROM Cells`

// GetCellsByTab возвращает ячейки одной вкладки.
func (r *Repository) GetCellsByTab(ctx context.Context, tabID int64) ([]models.Cell, error) {
	cells := []models.Cell{}
	err := r.db.SelectContext(ctx, &cells, selectCells+` WHERE TabId = ? ORDER BY RowIndex, ColIndex`, tabID)
	if err != nil {
		return nil, fmt.Errorf("GetCellsByTab: вкладка %d: %w", tabID, err)
	}
	return cells, nil
}

// GetAllCells возвращает ячейки всех вкладок.
func (r *Repository) GetAllCells(ctx context.Context) ([]models.Cell, error) {
	cells := []models.Cell{}
	if err := r.db.SelectContext(ctx, &cells, selectCells+` ORDER BY TabId, RowIndex, ColIndex`); err != nil {
		return nil, fmt.Errorf("GetAllCells: %w", err)
	}
	return cells, nil
}

// UpsertCell сохраняет ячейку по координате. header == nil оставляет
// заголовок существующей ячейки без изменений.
func (r *Repository) UpsertCell(ctx context.Context, cell models.Cell, header *string) (*models.Cell, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("UpsertCell: begin: %w", err)
	}
	defer tx.Rollback()

	if err := UpsertCellWithTx(ctx, tx, cell, header); err != nil {
		return nil, err
	}
	saved := &models.Cell{}
	err = tx.GetContext(ctx, saved, selectCells+` WHERE TabId = ? AND RowIndex = ? AND ColIndex = ?`,
		cell.TabID, cell.RowIndex, cell.ColIndex)
	if err != nil {
		return nil, fmt.Errorf("UpsertCell: чтение сохраненной ячейки: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("UpsertCell: commit: %w", err)
	}
	return saved, nil
}

// UpsertCellWithTx - UpsertCell внутри транзакции.
func UpsertCellWithTx(ctx context.Context, tx *sqlx.Tx, cell models.Cell, header *string) error {
	now := time.Now().UTC()
	var err error
	if header == nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO Cells (TabId, RowIndex, ColIndex, Content, Header, UpdatedAt)
			VALUES (?, ?, ?, ?, '', ?)
			ON CONFLICT (TabId, RowIndex, ColIndex)
			DO UPDATE SET Content = excluded.Content, UpdatedAt = excluded.UpdatedAt`,
			cell.TabID, cell.RowIndex, cell.ColIndex, cell.Content, now)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO Cells (TabId, RowIndex, ColIndex, Content, Header, UpdatedAt)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (TabId, RowIndex, ColIndex)
			DO UPDATE SET Content = excluded.Content, Header = excluded.Header, UpdatedAt = excluded.UpdatedAt`,
			cell.TabID, cell.RowIndex, cell.ColIndex, cell.Content, *header, now)
	}
	if err != nil {
		return fmt.Errorf("UpsertCellWithTx: ячейка %s: %w", cell.Key(), err)
	}
	return nil
}

// columnNameRow - строка ColumnNames.
type columnNameRow struct {
	TabID    int64  `db:"TabId"`
	ColIndex int    `db:"ColIndex"`
	Label    string `db:"Label"`
}

// GetColumnNames возвращает все подписи столбцов.
func (r *Repository) GetColumnNames(ctx context.Context) (models.ColumnNames, error) {
	var rows []columnNameRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT TabId, ColIndex, Label FROM ColumnNames ORDER BY TabId, ColIndex`); err != nil {
		return nil, fmt.Errorf("GetColumnNames: %w", err)
	}
	names := models.ColumnNames{}
	for _, row := range rows {
		names.Set(row.TabID, row.ColIndex, row.Label)
	}
	return names, nil
}

// ReplaceColumnNamesWithTx заменяет все подписи столбцов присланным набором.
func ReplaceColumnNamesWithTx(ctx context.Context, tx *sqlx.Tx, names models.ColumnNames) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ColumnNames`); err != nil {
		return fmt.Errorf("ReplaceColumnNamesWithTx: очистка: %w", err)
	}
	for tabKey, byCol := range names {
		tabID, err := strconv.ParseInt(tabKey, 10, 64)
		if err != nil {
			return fmt.Errorf("ReplaceColumnNamesWithTx: неверный id вкладки %q: %w", tabKey, err)
		}
		for colKey, label := range byCol {
			col, err := strconv.Atoi(colKey)
			if err != nil {
				return fmt.Errorf("ReplaceColumnNamesWithTx: неверный индекс столбца %q: %w", colKey, err)
			}
			if label == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO ColumnNames (TabId, ColIndex, Label) VALUES (?, ?, ?)`, tabID, col, label); err != nil {
				return fmt.Errorf("ReplaceColumnNamesWithTx: %d/%d: %w", tabID, col, err)
			}
		}
	}
	return nil
}

// SyncAll выполняет пакетную выгрузку в одной транзакции: upsert каждой
// ячейки (ничего не удаляется) и замена подписей, если они присланы.
func (r *Repository) SyncAll(ctx context.Context, req models.SyncAllRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SyncAll: begin: %w", err)
	}
	defer tx.Rollback()

	for _, cell := range req.Cells {
		header := cell.Header
		if err := UpsertCellWithTx(ctx, tx, cell, &header); err != nil {
			return fmt.Errorf("SyncAll: %w", err)
		}
	}
	if req.ColumnNames != nil {
		if err := ReplaceColumnNamesWithTx(ctx, tx, req.ColumnNames); err != nil {
			return fmt.Errorf("SyncAll: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SyncAll: commit: %w", err)
	}
	alog.Debugf(ctx, "SyncAll: сохранено ячеек %d, вкладок с подписями %d", len(req.Cells), len(req.ColumnNames))
	return nil
}
