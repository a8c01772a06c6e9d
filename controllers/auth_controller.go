package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"exercise_grid_go/models"

	"go.alis.build/alog"
)

// TokenHandler выдает токен доступа по паролю.
// POST /api/auth/token {password}
func (a *API) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if !a.auth.Enabled() {
		respondError(w, http.StatusNotFound, "Доступ по паролю не настроен.")
		return
	}

	var req models.AuthTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.Password == "" {
		respondError(w, http.StatusBadRequest, "Пароль не может быть пустым.")
		return
	}
	if err := a.auth.CheckPassword(req.Password); err != nil {
		alog.Warnf(r.Context(), "TokenHandler: неверный пароль от %s", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "Неверный пароль.")
		return
	}

	token, expiresAt, err := a.auth.GenerateToken("api")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Не удалось сгенерировать токен доступа.")
		return
	}
	respondJSON(w, http.StatusOK, models.AuthTokenResponse{Token: token, ExpiresAt: expiresAt.UTC().Format(time.RFC3339)})
}
