package controllers

import (
	"net/http"
	"time"
)

// HealthCheck возвращает статус "OK", если сервер работает.
// GET /api/Service/status
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "OK",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
