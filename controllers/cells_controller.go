package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"exercise_grid_go/models"

	"go.alis.build/alog"
)

const maxCellsBody = 8 << 20

// GetCellsHandler отдает ячейки.
// GET /api/cells?tab_id=N - ячейки вкладки
// GET /api/cells?action=get_columns - подписи столбцов
// GET /api/cells - ячейки всех вкладок
func (a *API) GetCellsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("action") == models.ActionGetColumns {
		names, err := a.repo.GetColumnNames(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Ошибка получения подписей столбцов: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, models.ColumnsResponse{ColumnNames: names})
		return
	}

	if raw := q.Get("tab_id"); raw != "" {
		tabID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Неверный tab_id.")
			return
		}
		cells, err := a.repo.GetCellsByTab(r.Context(), tabID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Ошибка получения ячеек: "+err.Error())
			return
		}
		respondJSON(w, http.StatusOK, models.CellsResponse{Cells: cells})
		return
	}

	cells, err := a.repo.GetAllCells(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка получения ячеек: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.CellsResponse{Cells: cells})
}

// PostCellsHandler сохраняет одну ячейку или принимает пакет sync_all.
// POST /api/cells
func (a *API) PostCellsHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCellsBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Ошибка чтения запроса: "+err.Error())
		return
	}

	var probe struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}

	if probe.Action == models.ActionSyncAll {
		a.syncAll(w, r, body)
		return
	}

	var req models.SaveCellRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.TabID == nil || req.RowIndex == nil || req.ColIndex == nil {
		respondError(w, http.StatusBadRequest, "tab_id, row_index и col_index обязательны.")
		return
	}
	if *req.RowIndex < 0 || *req.ColIndex < 0 {
		respondError(w, http.StatusBadRequest, "Индексы строки и столбца не могут быть отрицательными.")
		return
	}

	cell := models.Cell{TabID: *req.TabID, RowIndex: *req.RowIndex, ColIndex: *req.ColIndex, Content: req.Content}
	saved, err := a.repo.UpsertCell(r.Context(), cell, req.Header)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка сохранения ячейки: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.CellResponse{Cell: *saved})
}

func (a *API) syncAll(w http.ResponseWriter, r *http.Request, body []byte) {
	var req models.SyncAllRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса sync_all: "+err.Error())
		return
	}
	for _, c := range req.Cells {
		if c.RowIndex < 0 || c.ColIndex < 0 {
			respondError(w, http.StatusBadRequest, "Индексы строки и столбца не могут быть отрицательными.")
			return
		}
	}
	if err := a.repo.SyncAll(r.Context(), req); err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка синхронизации: "+err.Error())
		return
	}
	alog.Infof(r.Context(), "sync_all: принято ячеек %d", len(req.Cells))
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
