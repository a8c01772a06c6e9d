// Package config читает настройки сервера, клиента и прокси оболочки из
// переменных окружения. Значения по умолчанию подходят для локального запуска.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.alis.build/alog"
)

const (
	defaultAddr         = ":8080"
	defaultDBName       = "GridServer.db"
	defaultLocalDBName  = "GridLocal.db"
	defaultCacheDBName  = "GridCache.db"
	defaultAPIBase      = "http://127.0.0.1:8080/api"
	defaultTimeout      = 15 * time.Second
	defaultCacheVersion = "app-v3"
	defaultCacheLimit   = 50
	defaultShellAddr    = ":8081"
	defaultShellOrigin  = "http://127.0.0.1:5173"
	defaultRows         = 25
	defaultCols         = 15
)

// Server - настройки эталонного API.
type Server struct {
	Addr               string
	DBPath             string
	JWTSecret          string
	AccessPasswordHash string // bcrypt; пустая строка отключает проверку токена
	LogLevel           alog.LogLevel
}

// Client - настройки клиента синхронизации и локального хранилища.
type Client struct {
	TabsURL     string
	CellsURL    string
	ImagesURL   string
	Token       string
	LocalDBPath string
	Timeout     time.Duration
	Rows        int
	Cols        int
	FlushEvery  time.Duration
	LogLevel    alog.LogLevel
}

// Shell - настройки прокси с офлайн-кэшем оболочки приложения.
type Shell struct {
	Addr         string
	Origin       string
	CacheDBPath  string
	CacheVersion string
	CacheLimit   int
	LogLevel     alog.LogLevel
}

// LoadServer читает настройки сервера.
func LoadServer() (Server, error) {
	level, err := logLevel()
	if err != nil {
		return Server{}, err
	}
	cfg := Server{
		Addr:               env("GRID_ADDR", defaultAddr),
		DBPath:             env("GRID_DB_PATH", defaultDBName),
		JWTSecret:          env("GRID_JWT_SECRET", ""),
		AccessPasswordHash: env("GRID_ACCESS_PASSWORD_HASH", ""),
		LogLevel:           level,
	}
	if cfg.AccessPasswordHash != "" && cfg.JWTSecret == "" {
		return Server{}, fmt.Errorf("config: GRID_JWT_SECRET обязателен, если задан GRID_ACCESS_PASSWORD_HASH")
	}
	return cfg, nil
}

// LoadClient читает настройки клиента. Адреса эндпоинтов по умолчанию указывают
// на эталонный сервер, но могут быть любыми.
func LoadClient() (Client, error) {
	level, err := logLevel()
	if err != nil {
		return Client{}, err
	}
	base := strings.TrimRight(env("GRID_API_BASE", defaultAPIBase), "/")
	timeout, err := duration("GRID_TIMEOUT", defaultTimeout)
	if err != nil {
		return Client{}, err
	}
	flushEvery, err := duration("GRID_FLUSH_EVERY", 30*time.Second)
	if err != nil {
		return Client{}, err
	}
	if flushEvery <= 0 {
		return Client{}, fmt.Errorf("config: GRID_FLUSH_EVERY должен быть положительным, получено %s", flushEvery)
	}
	rows, err := integer("GRID_ROWS", defaultRows)
	if err != nil {
		return Client{}, err
	}
	cols, err := integer("GRID_COLS", defaultCols)
	if err != nil {
		return Client{}, err
	}
	return Client{
		TabsURL:     env("GRID_TABS_URL", base+"/tabs"),
		CellsURL:    env("GRID_CELLS_URL", base+"/cells"),
		ImagesURL:   env("GRID_IMAGES_URL", base+"/images"),
		Token:       env("GRID_TOKEN", ""),
		LocalDBPath: env("GRID_LOCAL_DB", defaultLocalDBName),
		Timeout:     timeout,
		Rows:        rows,
		Cols:        cols,
		FlushEvery:  flushEvery,
		LogLevel:    level,
	}, nil
}

// LoadShell читает настройки прокси оболочки.
func LoadShell() (Shell, error) {
	level, err := logLevel()
	if err != nil {
		return Shell{}, err
	}
	limit, err := integer("GRID_CACHE_LIMIT", defaultCacheLimit)
	if err != nil {
		return Shell{}, err
	}
	if limit <= 0 {
		return Shell{}, fmt.Errorf("config: GRID_CACHE_LIMIT должен быть положительным, получено %d", limit)
	}
	return Shell{
		Addr:         env("GRID_SHELL_ADDR", defaultShellAddr),
		Origin:       strings.TrimRight(env("GRID_SHELL_ORIGIN", defaultShellOrigin), "/"),
		CacheDBPath:  env("GRID_CACHE_DB", defaultCacheDBName),
		CacheVersion: env("GRID_CACHE_VERSION", defaultCacheVersion),
		CacheLimit:   limit,
		LogLevel:     level,
	}, nil
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func integer(key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func logLevel() (alog.LogLevel, error) {
	switch strings.ToUpper(env("GRID_LOG_LEVEL", "INFO")) {
	case "DEBUG":
		return alog.LevelDebug, nil
	case "INFO":
		return alog.LevelInfo, nil
	case "NOTICE":
		return alog.LevelNotice, nil
	case "WARNING", "WARN":
		return alog.LevelWarning, nil
	case "ERROR":
		return alog.LevelError, nil
	default:
		return alog.LevelInfo, fmt.Errorf("config: неизвестный GRID_LOG_LEVEL %q", os.Getenv("GRID_LOG_LEVEL"))
	}
}
