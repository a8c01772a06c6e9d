package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"exercise_grid_go/models"
)

// ListImages возвращает картинки, новые первыми. file_url не выбирается:
// данные отдаются по одной через GetImageByID.
func (r *Repository) ListImages(ctx context.Context) ([]models.Image, error) {
	images := []models.Image{}
	err := r.db.SelectContext(ctx, &images, `
		SELECT Id, FileName, NULL AS FileUrl, CreatedAt
		FROM Images ORDER BY CreatedAt DESC, Id DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListImages: %w", err)
	}
	return images, nil
}

// GetImageByID возвращает картинку с данными или nil, nil, если ее нет.
func (r *Repository) GetImageByID(ctx context.Context, id int64) (*models.Image, error) {
	img := &models.Image{}
	err := r.db.GetContext(ctx, img, `SELECT Id, FileName, FileUrl, CreatedAt FROM Images WHERE Id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetImageByID: %d: %w", id, err)
	}
	return img, nil
}

// CreateImage сохраняет картинку (data URL хранится как есть).
func (r *Repository) CreateImage(ctx context.Context, fileName, fileData string) (*models.Image, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `INSERT INTO Images (FileName, FileUrl, CreatedAt) VALUES (?, ?, ?)`, fileName, fileData, now)
	if err != nil {
		return nil, fmt.Errorf("CreateImage: %q: %w", fileName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("CreateImage: ошибка получения LastInsertId: %w", err)
	}
	return &models.Image{ID: id, FileName: fileName, FileURL: &fileData, CreatedAt: now}, nil
}

// DeleteImage удаляет картинку; false, если ее не было.
func (r *Repository) DeleteImage(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM Images WHERE Id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("DeleteImage: %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteImage: %w", err)
	}
	return n > 0, nil
}
