package syncclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"exercise_grid_go/models"
)

// ListImages возвращает список картинок; file_url в нем может отсутствовать.
func (c *Client) ListImages(ctx context.Context) ([]models.Image, error) {
	var resp models.ImagesResponse
	if err := c.getJSON(ctx, "ListImages", c.endpoints.Images, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// FetchImage возвращает одну картинку с заполненным file_url.
func (c *Client) FetchImage(ctx context.Context, id int64) (models.Image, error) {
	var resp models.ImageResponse
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if err := c.getJSON(ctx, "FetchImage", c.endpoints.Images, q, &resp); err != nil {
		return models.Image{}, err
	}
	return resp.Image, nil
}

// UploadImage загружает картинку, переданную как data URL.
func (c *Client) UploadImage(ctx context.Context, fileName, dataURL string) (models.Image, error) {
	var resp models.ImageResponse
	req := models.ImageUploadRequest{FileName: fileName, FileData: dataURL}
	if err := c.sendJSON(ctx, "UploadImage", http.MethodPost, c.endpoints.Images, nil, req, &resp); err != nil {
		return models.Image{}, err
	}
	return resp.Image, nil
}

// DeleteImage удаляет картинку.
func (c *Client) DeleteImage(ctx context.Context, id int64) error {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	return c.do(ctx, "DeleteImage", http.MethodDelete, c.endpoints.Images, q, nil, nil)
}
