package controllers

import (
	"net/http"

	"exercise_grid_go/models"
)

// TabsHandler возвращает вкладки.
// GET /api/tabs
func (a *API) TabsHandler(w http.ResponseWriter, r *http.Request) {
	tabs, err := a.repo.GetTabs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка получения вкладок: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.TabsResponse{Tabs: tabs})
}
