package syncclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"exercise_grid_go/models"
)

// FetchTabs возвращает список вкладок.
func (c *Client) FetchTabs(ctx context.Context) ([]models.Tab, error) {
	var resp models.TabsResponse
	if err := c.getJSON(ctx, "FetchTabs", c.endpoints.Tabs, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tabs, nil
}

// FetchCells возвращает ячейки одной вкладки.
func (c *Client) FetchCells(ctx context.Context, tabID int64) ([]models.Cell, error) {
	var resp models.CellsResponse
	q := url.Values{"tab_id": {strconv.FormatInt(tabID, 10)}}
	if err := c.getJSON(ctx, "FetchCells", c.endpoints.Cells, q, &resp); err != nil {
		return nil, err
	}
	return resp.Cells, nil
}

// FetchAllCells возвращает ячейки всех вкладок.
func (c *Client) FetchAllCells(ctx context.Context) ([]models.Cell, error) {
	var resp models.CellsResponse
	if err := c.getJSON(ctx, "FetchAllCells", c.endpoints.Cells, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Cells, nil
}

// FetchColumnNames возвращает подписи столбцов всех вкладок.
func (c *Client) FetchColumnNames(ctx context.Context) (models.ColumnNames, error) {
	var resp models.ColumnsResponse
	q := url.Values{"action": {models.ActionGetColumns}}
	if err := c.getJSON(ctx, "FetchColumnNames", c.endpoints.Cells, q, &resp); err != nil {
		return nil, err
	}
	if resp.ColumnNames == nil {
		resp.ColumnNames = models.ColumnNames{}
	}
	return resp.ColumnNames, nil
}

// SaveCell отправляет полную ячейку (upsert одной координаты), заголовок всегда включен.
func (c *Client) SaveCell(ctx context.Context, cell models.Cell) error {
	row, col := cell.RowIndex, cell.ColIndex
	tabID := cell.TabID
	header := cell.Header
	req := models.SaveCellRequest{
		TabID:    &tabID,
		RowIndex: &row,
		ColIndex: &col,
		Content:  cell.Content,
		Header:   &header,
	}
	return c.sendJSON(ctx, "SaveCell", http.MethodPost, c.endpoints.Cells, nil, req, nil)
}

// SyncAll отправляет пакет со всеми ячейками и подписями.
func (c *Client) SyncAll(ctx context.Context, payload models.SyncAllRequest) error {
	payload.Action = models.ActionSyncAll
	return c.sendJSON(ctx, "SyncAll", http.MethodPost, c.endpoints.Cells, nil, payload, nil)
}
