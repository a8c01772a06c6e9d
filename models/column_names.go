package models

import "strconv"

// ColumnNames: id вкладки -> индекс столбца -> подпись.
// Ключи строковые, потому что это ключи JSON-объекта.
type ColumnNames map[string]map[string]string

// DefaultColumnLabel возвращает подпись по умолчанию "LESSON {n}", n = col+1.
func DefaultColumnLabel(col int) string {
	return "LESSON " + strconv.Itoa(col+1)
}

// Label возвращает подпись столбца вкладки или подпись по умолчанию.
func (c ColumnNames) Label(tabID int64, col int) string {
	if byCol, ok := c[strconv.FormatInt(tabID, 10)]; ok {
		if label, ok := byCol[strconv.Itoa(col)]; ok && label != "" {
			return label
		}
	}
	return DefaultColumnLabel(col)
}

// Set задает подпись. Пустая подпись возвращает столбцу имя по умолчанию.
func (c ColumnNames) Set(tabID int64, col int, label string) {
	tab := strconv.FormatInt(tabID, 10)
	if label == "" {
		if byCol, ok := c[tab]; ok {
			delete(byCol, strconv.Itoa(col))
			if len(byCol) == 0 {
				delete(c, tab)
			}
		}
		return
	}
	if c[tab] == nil {
		c[tab] = make(map[string]string)
	}
	c[tab][strconv.Itoa(col)] = label
}

// Clone возвращает глубокую копию.
func (c ColumnNames) Clone() ColumnNames {
	out := make(ColumnNames, len(c))
	for tab, byCol := range c {
		inner := make(map[string]string, len(byCol))
		for col, label := range byCol {
			inner[col] = label
		}
		out[tab] = inner
	}
	return out
}

// ColumnsResponse - ответ на GET ?action=get_columns.
type ColumnsResponse struct {
	ColumnNames ColumnNames `json:"columnNames"`
}
