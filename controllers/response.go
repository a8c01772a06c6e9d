package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"exercise_grid_go/models"

	"go.alis.build/alog"
)

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Заголовки уже отправлены, ответить ошибкой нельзя.
			alog.Errorf(context.Background(), "Error encoding JSON response: %v", err)
		}
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	if statusCode >= http.StatusInternalServerError {
		alog.Errorf(context.Background(), "HTTP Error %d: %s", statusCode, message)
	}
	respondJSON(w, statusCode, models.ErrorResponse{Error: message})
}
