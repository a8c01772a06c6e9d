package models

// ActionSyncAll помечает пакетную выгрузку всех ячеек и подписей.
const ActionSyncAll = "sync_all"

// ActionGetColumns - значение параметра action для чтения подписей столбцов.
const ActionGetColumns = "get_columns"

// SyncAllRequest - тело пакетной выгрузки. Для одинаковых данных дает одинаковый
// JSON: ячейки в каноническом порядке, ключи карт сортирует encoding/json.
type SyncAllRequest struct {
	Action      string      `json:"action"`
	Cells       []Cell      `json:"cells"`
	ColumnNames ColumnNames `json:"columnNames"`
}

// NewSyncAllRequest собирает каноническое тело выгрузки.
func NewSyncAllRequest(cells []Cell, columns ColumnNames) SyncAllRequest {
	sorted := make([]Cell, 0, len(cells))
	sorted = append(sorted, cells...)
	SortCells(sorted)
	if columns == nil {
		columns = ColumnNames{}
	}
	return SyncAllRequest{Action: ActionSyncAll, Cells: sorted, ColumnNames: columns}
}

// ErrorResponse - тело ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthTokenRequest - запрос токена доступа к API.
type AuthTokenRequest struct {
	Password string `json:"password"`
}

// AuthTokenResponse - выданный токен.
type AuthTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}
