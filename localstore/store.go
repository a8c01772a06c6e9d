// Package localstore - постоянное хранилище ключ-значение, в которое клиент
// зеркалирует вкладки, ячейки и подписи столбцов (write-through кэш).
//
// Все операции синхронные. Вытеснения нет: рост ограничен только местом на диске.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Ключи областей хранения.
const (
	TabsBackupKey        = "tabs_backup"
	LegacyTabsKey        = "tabs"
	ColumnNamesKey       = "columnNamesByTab"
	LegacyColumnNamesKey = "columnNames"
	PendingWritesKey     = "pending_writes"
	cellsKeyPrefix       = "cells_"
)

// ErrEmptyCache означает, что локальной копии для запрошенной области нет.
var ErrEmptyCache = errors.New("local cache is empty")

// Store - контракт локального хранилища.
type Store interface {
	// Get возвращает значение и false, если ключа нет.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// CellsKey возвращает ключ кэша ячеек вкладки.
func CellsKey(tabID int64) string {
	return cellsKeyPrefix + strconv.FormatInt(tabID, 10)
}

// GetJSON читает значение и раскладывает его в out.
// Если ключа нет, возвращает ErrEmptyCache.
func GetJSON(s Store, key string, out any) error {
	raw, ok, err := s.Get(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrEmptyCache)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("GetJSON: поврежденное значение %s: %w", key, err)
	}
	return nil
}

// GetJSONFirst пробует ключи по порядку и читает первый найденный
// (новые ключи впереди, устаревшие после).
func GetJSONFirst(s Store, out any, keys ...string) error {
	for _, key := range keys {
		err := GetJSON(s, key, out)
		if errors.Is(err, ErrEmptyCache) {
			continue
		}
		return err
	}
	return ErrEmptyCache
}

// SetJSON сериализует value и сохраняет по ключу.
func SetJSON(s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("SetJSON: %s: %w", key, err)
	}
	return s.Set(key, raw)
}
