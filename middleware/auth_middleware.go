package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"exercise_grid_go/auth"

	"go.alis.build/alog"
)

type contextKey string

// ClaimsKey - ключ claims токена в контексте запроса.
const ClaimsKey contextKey = "claims"

// JWTMiddleware проверяет JWT в заголовке Authorization. Если у сервиса нет
// пароля доступа, запросы пропускаются без проверки.
func JWTMiddleware(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !svc.Enabled() || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				alog.Debugf(r.Context(), "JWTMiddleware: нет заголовка Authorization для %s %s", r.Method, r.URL.Path)
				respondUnauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respondUnauthorized(w, "Неверный формат заголовка Authorization (ожидается Bearer {token})")
				return
			}

			claims, err := svc.ValidateToken(parts[1])
			if err != nil {
				alog.Debugf(r.Context(), "JWTMiddleware: невалидный токен для %s %s: %v", r.Method, r.URL.Path, err)
				respondUnauthorized(w, "Невалидный токен: "+err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
