package grid

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"exercise_grid_go/models"

	"go.alis.build/alog"
	"golang.org/x/sync/errgroup"
)

const uploadConcurrency = 4

// ImageURLCache запоминает загруженные file_url по id картинки.
// Живет только в памяти процесса; очищается явно через Clear.
type ImageURLCache struct {
	mu   sync.RWMutex
	urls map[int64]string
}

func NewImageURLCache() *ImageURLCache {
	return &ImageURLCache{urls: make(map[int64]string)}
}

func (c *ImageURLCache) Get(id int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	url, ok := c.urls[id]
	return url, ok
}

func (c *ImageURLCache) Put(id int64, url string) {
	c.mu.Lock()
	c.urls[id] = url
	c.mu.Unlock()
}

func (c *ImageURLCache) Delete(id int64) {
	c.mu.Lock()
	delete(c.urls, id)
	c.mu.Unlock()
}

func (c *ImageURLCache) Clear() {
	c.mu.Lock()
	c.urls = make(map[int64]string)
	c.mu.Unlock()
}

func (c *ImageURLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.urls)
}

// ImageUpload - один файл для загрузки.
type ImageUpload struct {
	FileName string
	DataURL  string
}

// DataURL кодирует содержимое файла в data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL возвращает содержимое data URL в base64.
func DecodeDataURL(dataURL string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok || !strings.HasPrefix(dataURL, "data:") || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("DecodeDataURL: %w", ErrImageUnavailable)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("DecodeDataURL: %w", err)
	}
	return raw, nil
}

// UploadReport - итог пакетной загрузки в порядке входного списка.
type UploadReport struct {
	Uploaded []models.Image
	Failed   []UploadFailure
}

// Images возвращает список картинок. Пришедшие вместе со списком file_url
// сразу попадают в кэш.
func (m *Manager) Images(ctx context.Context) ([]models.Image, error) {
	images, err := m.remote.ListImages(ctx)
	if err != nil {
		m.notify.Error(ctx, msgImageFailed, err)
		return nil, fmt.Errorf("Images: %w", err)
	}
	for _, img := range images {
		if img.FileURL != nil && *img.FileURL != "" {
			m.imageURLs.Put(img.ID, *img.FileURL)
		}
	}
	return images, nil
}

// ImageURL возвращает file_url картинки, запрашивая его один раз за сессию.
func (m *Manager) ImageURL(ctx context.Context, id int64) (string, error) {
	if url, ok := m.imageURLs.Get(id); ok {
		return url, nil
	}
	img, err := m.remote.FetchImage(ctx, id)
	if err != nil {
		return "", fmt.Errorf("ImageURL: картинка %d: %w", id, err)
	}
	if img.FileURL == nil || *img.FileURL == "" {
		return "", fmt.Errorf("ImageURL: картинка %d: %w", id, ErrImageUnavailable)
	}
	m.imageURLs.Put(id, *img.FileURL)
	return *img.FileURL, nil
}

// UploadImages загружает файлы независимо друг от друга. Если часть не
// загрузилась, возвращается отчет и *PartialUploadError.
func (m *Manager) UploadImages(ctx context.Context, files []ImageUpload) (UploadReport, error) {
	uploaded := make([]*models.Image, len(files))
	failed := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			img, err := m.remote.UploadImage(gctx, f.FileName, f.DataURL)
			if err != nil {
				failed[i] = err
				return nil
			}
			uploaded[i] = &img
			return nil
		})
	}
	_ = g.Wait()

	var report UploadReport
	for i, f := range files {
		if failed[i] != nil {
			m.notify.Error(ctx, msgUploadFailed+": "+f.FileName, failed[i])
			report.Failed = append(report.Failed, UploadFailure{FileName: f.FileName, Err: failed[i]})
			continue
		}
		img := *uploaded[i]
		if img.FileURL != nil && *img.FileURL != "" {
			m.imageURLs.Put(img.ID, *img.FileURL)
		}
		report.Uploaded = append(report.Uploaded, img)
	}
	alog.Debugf(ctx, "UploadImages: загружено %d из %d", len(report.Uploaded), len(files))

	if len(report.Uploaded) > 0 {
		m.notify.Success(ctx, msgUploaded)
	}
	if len(report.Failed) > 0 {
		return report, &PartialUploadError{Total: len(files), Failed: report.Failed}
	}
	return report, nil
}

// DeleteImage удаляет картинку на сервере и из кэша адресов.
func (m *Manager) DeleteImage(ctx context.Context, id int64) error {
	if err := m.remote.DeleteImage(ctx, id); err != nil {
		m.notify.Error(ctx, msgImageFailed, err)
		return fmt.Errorf("DeleteImage: %w", err)
	}
	m.imageURLs.Delete(id)
	m.notify.Success(ctx, msgImageDeleted)
	return nil
}
