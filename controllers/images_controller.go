package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"exercise_grid_go/models"
)

func imageID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	return id, err == nil
}

// GetImagesHandler отдает список картинок или одну картинку с данными.
// GET /api/images, GET /api/images?id=N
func (a *API) GetImagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("id") {
		id, ok := imageID(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "Неверный id картинки.")
			return
		}
		img, err := a.repo.GetImageByID(r.Context(), id)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Ошибка получения картинки: "+err.Error())
			return
		}
		if img == nil {
			respondError(w, http.StatusNotFound, "Картинка не найдена.")
			return
		}
		respondJSON(w, http.StatusOK, models.ImageResponse{Image: *img})
		return
	}

	images, err := a.repo.ListImages(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка получения картинок: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.ImagesResponse{Images: images})
}

// UploadImageHandler сохраняет картинку, присланную как data URL.
// POST /api/images {file_name, file_data}
func (a *API) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ImageUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.FileName == "" || req.FileData == "" {
		respondError(w, http.StatusBadRequest, "file_name и file_data обязательны.")
		return
	}
	if !strings.HasPrefix(req.FileData, "data:") {
		respondError(w, http.StatusBadRequest, "file_data должен быть data URL.")
		return
	}

	img, err := a.repo.CreateImage(r.Context(), req.FileName, req.FileData)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка сохранения картинки: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, models.ImageResponse{Image: *img})
}

// DeleteImageHandler удаляет картинку.
// DELETE /api/images?id=N
func (a *API) DeleteImageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Неверный id картинки.")
		return
	}
	deleted, err := a.repo.DeleteImage(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Ошибка удаления картинки: "+err.Error())
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Картинка не найдена.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
