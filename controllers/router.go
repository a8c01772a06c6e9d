// Package controllers - HTTP-обработчики эталонного API сетки.
package controllers

import (
	"net/http"

	"exercise_grid_go/auth"
	"exercise_grid_go/data"
	"exercise_grid_go/middleware"

	"github.com/gorilla/mux"
)

// API держит зависимости обработчиков.
type API struct {
	repo *data.Repository
	auth *auth.Service
}

func NewAPI(repo *data.Repository, authSvc *auth.Service) *API {
	return &API{repo: repo, auth: authSvc}
}

// NewRouter собирает маршруты. CORS оборачивает весь маршрутизатор, чтобы
// preflight OPTIONS получал 200 для любого пути.
func NewRouter(api *API) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	// Открытые маршруты.
	router.HandleFunc("/api/Service/status", HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/token", api.TokenHandler).Methods(http.MethodPost)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.JWTMiddleware(api.auth))

	apiRouter.HandleFunc("/tabs", api.TabsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/cells", api.GetCellsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/cells", api.PostCellsHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/images", api.GetImagesHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/images", api.UploadImageHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/images", api.DeleteImageHandler).Methods(http.MethodDelete)

	return middleware.CORSMiddleware(router)
}
