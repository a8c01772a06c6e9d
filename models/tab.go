package models

import "strings"

// Зарезервированные имена вкладки-галереи. Вкладка с таким именем показывает
// картинки вместо сетки ячеек.
const (
	ImageTabName       = "Images"
	ImageTabNameLegacy = "Картинки"
)

// Tab представляет именованную страницу сетки.
type Tab struct {
	ID       int64  `json:"id" db:"Id"`
	Name     string `json:"name" db:"Name"`
	Position int    `json:"position" db:"Position"`
}

// IsImageTab сообщает, переключает ли вкладка страницу в режим галереи.
func (t Tab) IsImageTab() bool {
	name := strings.TrimSpace(t.Name)
	return strings.EqualFold(name, ImageTabName) || strings.EqualFold(name, ImageTabNameLegacy)
}

// DefaultTabs - жестко заданный список, который используется, когда нет ни сети,
// ни локальной копии вкладок.
func DefaultTabs() []Tab {
	return []Tab{
		{ID: 1, Name: "EXERCISES", Position: 0},
		{ID: 2, Name: ImageTabName, Position: 1},
	}
}

// TabsResponse - ответ эндпоинта вкладок.
type TabsResponse struct {
	Tabs []Tab `json:"tabs"`
}
