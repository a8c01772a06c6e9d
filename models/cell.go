package models

import (
	"fmt"
	"sort"
	"strconv"
)

// CellKey - составной идентификатор ячейки. На одну координату вкладки
// приходится не больше одной ячейки.
type CellKey struct {
	TabID int64
	Row   int
	Col   int
}

// String возвращает ключ в виде "<tab>-<row>-<col>", как он хранится в локальной копии.
func (k CellKey) String() string {
	return strconv.FormatInt(k.TabID, 10) + "-" + strconv.Itoa(k.Row) + "-" + strconv.Itoa(k.Col)
}

// ParseCellKey разбирает строковый ключ обратно в CellKey.
func ParseCellKey(s string) (CellKey, error) {
	var k CellKey
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &k.TabID, &k.Row, &k.Col); err != nil {
		return CellKey{}, fmt.Errorf("ParseCellKey: неверный ключ %q: %w", s, err)
	}
	return k, nil
}

// Cell представляет одну ячейку сетки.
// Отсутствующая ячейка считается пустой; сохранение пустой строки заменяет удаление.
type Cell struct {
	ID       *int64 `json:"id,omitempty" db:"Id"`
	TabID    int64  `json:"tab_id" db:"TabId"`
	RowIndex int    `json:"row_index" db:"RowIndex"`
	ColIndex int    `json:"col_index" db:"ColIndex"`
	Content  string `json:"content" db:"Content"`
	Header   string `json:"header,omitempty" db:"Header"`
}

// Key возвращает составной ключ ячейки.
func (c Cell) Key() CellKey {
	return CellKey{TabID: c.TabID, Row: c.RowIndex, Col: c.ColIndex}
}

// CellMap - отображение ключ -> ячейка для одной вкладки (так оно и сериализуется
// в cells_<tabId>).
type CellMap map[string]Cell

// NewCellMap строит отображение из списка; при повторе координаты побеждает последняя ячейка.
func NewCellMap(cells []Cell) CellMap {
	m := make(CellMap, len(cells))
	for _, c := range cells {
		m[c.Key().String()] = c
	}
	return m
}

// Get возвращает ячейку по координате.
func (m CellMap) Get(tabID int64, row, col int) (Cell, bool) {
	c, ok := m[CellKey{TabID: tabID, Row: row, Col: col}.String()]
	return c, ok
}

// Put записывает ячейку по ее ключу.
func (m CellMap) Put(c Cell) {
	m[c.Key().String()] = c
}

// Clone возвращает независимую копию.
func (m CellMap) Clone() CellMap {
	out := make(CellMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Sorted возвращает ячейки в каноническом порядке (tab, row, col).
func (m CellMap) Sorted() []Cell {
	cells := make([]Cell, 0, len(m))
	for _, c := range m {
		cells = append(cells, c)
	}
	SortCells(cells)
	return cells
}

// SortCells упорядочивает ячейки по (tab, row, col).
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		a, b := cells[i], cells[j]
		if a.TabID != b.TabID {
			return a.TabID < b.TabID
		}
		if a.RowIndex != b.RowIndex {
			return a.RowIndex < b.RowIndex
		}
		return a.ColIndex < b.ColIndex
	})
}

// CellsResponse - ответ GET эндпоинта ячеек.
type CellsResponse struct {
	Cells []Cell `json:"cells"`
}

// CellResponse - ответ на сохранение одной ячейки.
type CellResponse struct {
	Cell Cell `json:"cell"`
}

// SaveCellRequest - тело POST для одной ячейки. Указатели нужны, чтобы отличить
// отсутствующее поле от нуля.
type SaveCellRequest struct {
	Action   string  `json:"action,omitempty"`
	TabID    *int64  `json:"tab_id"`
	RowIndex *int    `json:"row_index"`
	ColIndex *int    `json:"col_index"`
	Content  string  `json:"content"`
	Header   *string `json:"header,omitempty"`
}
