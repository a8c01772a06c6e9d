package offline

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"exercise_grid_go/data"

	"github.com/jmoiron/sqlx"
)

// CachedResponse - сохраненный ответ.
type CachedResponse struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Response восстанавливает *http.Response для запроса req.
func (c *CachedResponse) Response(req *http.Request) *http.Response {
	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        strconv.Itoa(c.Status) + " " + http.StatusText(c.Status),
		StatusCode:    c.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

// cacheEntry - строка CacheEntries.
type cacheEntry struct {
	Seq        int64     `db:"Seq"`
	CacheName  string    `db:"CacheName"`
	RequestKey string    `db:"RequestKey"`
	Status     int       `db:"Status"`
	HeaderJson string    `db:"HeaderJson"`
	Body       []byte    `db:"Body"`
	StoredAt   time.Time `db:"StoredAt"`
}

func (e *cacheEntry) toResponse() (*CachedResponse, error) {
	header := http.Header{}
	if e.HeaderJson != "" {
		if err := json.Unmarshal([]byte(e.HeaderJson), &header); err != nil {
			return nil, fmt.Errorf("cacheEntry: поврежденные заголовки %s: %w", e.RequestKey, err)
		}
	}
	return &CachedResponse{Status: e.Status, Header: header, Body: e.Body, StoredAt: e.StoredAt}, nil
}

// RequestKey - ключ кэша для URL: адрес без фрагмента.
func RequestKey(u *url.URL) string {
	k := *u
	k.Fragment = ""
	k.RawFragment = ""
	return k.String()
}

// CacheStorage - набор именованных кэшей одного источника в SQLite.
// Записи кэша перечисляются в порядке вставки (Seq).
type CacheStorage struct {
	db *sqlx.DB
}

// OpenCacheStorage открывает (или создает) файл хранилища кэшей.
func OpenCacheStorage(ctx context.Context, path string) (*CacheStorage, error) {
	db, err := data.Open(ctx, path, data.CacheStorageSchema)
	if err != nil {
		return nil, fmt.Errorf("OpenCacheStorage: %w", err)
	}
	return &CacheStorage{db: db}, nil
}

// NewCacheStorage оборачивает открытую базу со схемой CacheStorageSchema.
func NewCacheStorage(db *sqlx.DB) *CacheStorage {
	return &CacheStorage{db: db}
}

func (s *CacheStorage) Close() error {
	return s.db.Close()
}

// Open возвращает кэш с именем name, создавая его при необходимости.
func (s *CacheStorage) Open(ctx context.Context, name string) (*Cache, error) {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO Caches (Name, CreatedAt) VALUES (?, ?)`, name, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("CacheStorage.Open: %s: %w", name, err)
	}
	return &Cache{db: s.db, name: name}, nil
}

// Names возвращает имена кэшей в порядке создания.
func (s *CacheStorage) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := s.db.SelectContext(ctx, &names, `SELECT Name FROM Caches ORDER BY CreatedAt, Name`); err != nil {
		return nil, fmt.Errorf("CacheStorage.Names: %w", err)
	}
	return names, nil
}

// Has сообщает, существует ли кэш.
func (s *CacheStorage) Has(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM Caches WHERE Name = ?`, name); err != nil {
		return false, fmt.Errorf("CacheStorage.Has: %w", err)
	}
	return n > 0, nil
}

// Delete удаляет кэш вместе с записями. Возвращает false, если кэша не было.
func (s *CacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("CacheStorage.Delete: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM CacheEntries WHERE CacheName = ?`, name); err != nil {
		return false, fmt.Errorf("CacheStorage.Delete: entries %s: %w", name, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM Caches WHERE Name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("CacheStorage.Delete: %s: %w", name, err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("CacheStorage.Delete: commit: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Match ищет ответ во всех кэшах, начиная с самого старого кэша.
// Возвращает nil, nil, если ответа нет.
func (s *CacheStorage) Match(ctx context.Context, key string) (*CachedResponse, error) {
	var e cacheEntry
	err := s.db.GetContext(ctx, &e, `
		SELECT e.Seq, e.CacheName, e.RequestKey, e.Status, e.HeaderJson, e.Body, e.StoredAt
		FROM CacheEntries e JOIN Caches c ON c.Name = e.CacheName
		WHERE e.RequestKey = ?
		ORDER BY c.CreatedAt, c.Name
		LIMIT 1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("CacheStorage.Match: %s: %w", key, err)
	}
	return e.toResponse()
}

// Cache - один именованный кэш.
type Cache struct {
	db   *sqlx.DB
	name string
}

func (c *Cache) Name() string { return c.name }

// Match возвращает ответ по ключу или nil, nil.
func (c *Cache) Match(ctx context.Context, key string) (*CachedResponse, error) {
	var e cacheEntry
	err := c.db.GetContext(ctx, &e, `
		SELECT Seq, CacheName, RequestKey, Status, HeaderJson, Body, StoredAt
		FROM CacheEntries WHERE CacheName = ? AND RequestKey = ?`, c.name, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("Cache.Match: %s: %w", key, err)
	}
	return e.toResponse()
}

// Put сохраняет ответ. Повторная запись ключа переносит его в конец порядка.
func (c *Cache) Put(ctx context.Context, key string, resp CachedResponse) error {
	headerJson, err := json.Marshal(resp.Header)
	if err != nil {
		return fmt.Errorf("Cache.Put: заголовки %s: %w", key, err)
	}
	if resp.StoredAt.IsZero() {
		resp.StoredAt = time.Now().UTC()
	}
	if resp.Body == nil {
		resp.Body = []byte{}
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Cache.Put: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM CacheEntries WHERE CacheName = ? AND RequestKey = ?`, c.name, key); err != nil {
		return fmt.Errorf("Cache.Put: %s: %w", key, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO CacheEntries (CacheName, RequestKey, Status, HeaderJson, Body, StoredAt)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.name, key, resp.Status, string(headerJson), resp.Body, resp.StoredAt)
	if err != nil {
		return fmt.Errorf("Cache.Put: %s: %w", key, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("Cache.Put: commit: %w", err)
	}
	return nil
}

// Keys возвращает ключи в порядке вставки.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := c.db.SelectContext(ctx, &keys, `SELECT RequestKey FROM CacheEntries WHERE CacheName = ? ORDER BY Seq`, c.name); err != nil {
		return nil, fmt.Errorf("Cache.Keys: %w", err)
	}
	return keys, nil
}

// Delete удаляет запись. Возвращает false, если ее не было.
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM CacheEntries WHERE CacheName = ? AND RequestKey = ?`, c.name, key)
	if err != nil {
		return false, fmt.Errorf("Cache.Delete: %s: %w", key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Count возвращает число записей.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM CacheEntries WHERE CacheName = ?`, c.name); err != nil {
		return 0, fmt.Errorf("Cache.Count: %w", err)
	}
	return n, nil
}
