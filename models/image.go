package models

import "time"

// Image представляет картинку галереи. FileURL может не приходить в списке
// (тяжелые данные запрашиваются отдельно по id).
type Image struct {
	ID        int64     `json:"id" db:"Id"`
	FileName  string    `json:"file_name" db:"FileName"`
	FileURL   *string   `json:"file_url" db:"FileUrl"`
	CreatedAt time.Time `json:"created_at" db:"CreatedAt"`
}

// ImagesResponse - список картинок.
type ImagesResponse struct {
	Images []Image `json:"images"`
}

// ImageResponse - одна картинка.
type ImageResponse struct {
	Image Image `json:"image"`
}

// ImageUploadRequest - тело загрузки; FileData это data URL в base64.
type ImageUploadRequest struct {
	FileName string `json:"file_name"`
	FileData string `json:"file_data"`
}
