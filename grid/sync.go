package grid

import (
	"context"
	"errors"
	"fmt"

	"exercise_grid_go/localstore"
	"exercise_grid_go/models"

	"go.alis.build/alog"
	"golang.org/x/sync/errgroup"
)

// SyncAllToServer отправляет одним запросом все ячейки из локальной копии
// (кроме вкладок-галерей) и все подписи столбцов. Возвращает отправленное тело.
func (m *Manager) SyncAllToServer(ctx context.Context) (models.SyncAllRequest, error) {
	pending, err := m.outbox.Pending()
	if err != nil {
		alog.Warnf(ctx, "SyncAllToServer: очередь: %v", err)
	}

	m.mu.Lock()
	var cells []models.Cell
	for _, tab := range m.tabs {
		if tab.IsImageTab() {
			continue
		}
		var cached models.CellMap
		if err := localstore.GetJSON(m.store, localstore.CellsKey(tab.ID), &cached); err != nil {
			if !errors.Is(err, localstore.ErrEmptyCache) {
				alog.Warnf(ctx, "SyncAllToServer: вкладка %d: %v", tab.ID, err)
			}
			continue
		}
		for _, c := range cached {
			if c.TabID == tab.ID {
				cells = append(cells, c)
			}
		}
	}
	payload := models.NewSyncAllRequest(cells, m.columns.Clone())
	m.mu.Unlock()

	alog.Debugf(ctx, "SyncAllToServer: ячеек %d, вкладок с подписями %d", len(payload.Cells), len(payload.ColumnNames))
	if err := m.remote.SyncAll(ctx, payload); err != nil {
		m.notify.Error(ctx, msgSyncFailed, err)
		return payload, fmt.Errorf("SyncAllToServer: %w", err)
	}

	// Все правки из очереди уже лежали в локальной копии и ушли в пакете.
	if len(pending) > 0 {
		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			ids = append(ids, p.ID)
		}
		if err := m.outbox.Ack(ids...); err != nil {
			alog.Warnf(ctx, "SyncAllToServer: очередь: %v", err)
		}
	}
	m.notify.Success(ctx, msgSyncedToServer)
	return payload, nil
}

// SyncAllFromServer загружает все ячейки и подписи параллельно и пересобирает
// локальные копии вкладок с нуля (полная перезапись, не слияние).
func (m *Manager) SyncAllFromServer(ctx context.Context) error {
	var (
		cells   []models.Cell
		columns models.ColumnNames
	)
	m.mu.Lock()
	since := m.beginFetchLocked()
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cells, err = m.remote.FetchAllCells(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		columns, err = m.remote.FetchColumnNames(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		m.mu.Lock()
		m.endFetchLocked()
		m.mu.Unlock()
		m.notify.Error(ctx, msgSyncFailed, err)
		return fmt.Errorf("SyncAllFromServer: %w", err)
	}
	if columns == nil {
		columns = models.ColumnNames{}
	}

	byTab := make(map[int64]models.CellMap)
	for _, c := range cells {
		if byTab[c.TabID] == nil {
			byTab[c.TabID] = models.CellMap{}
		}
		byTab[c.TabID].Put(c)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.endFetchLocked()

	for _, tab := range m.tabs {
		if !tab.IsImageTab() && byTab[tab.ID] == nil {
			byTab[tab.ID] = models.CellMap{}
		}
	}
	for tabID, tabCells := range byTab {
		if err := m.outbox.Overlay(tabID, tabCells); err != nil {
			alog.Warnf(ctx, "SyncAllFromServer: очередь: %v", err)
		}
		m.replayEditsLocked(since, tabID, tabCells)
		if err := localstore.SetJSON(m.store, localstore.CellsKey(tabID), tabCells); err != nil {
			return fmt.Errorf("SyncAllFromServer: %w", err)
		}
	}
	if err := localstore.SetJSON(m.store, localstore.ColumnNamesKey, columns); err != nil {
		return fmt.Errorf("SyncAllFromServer: %w", err)
	}
	m.columns = columns

	// Ответы фоновых обновлений, начатых до полной загрузки, больше не применяются.
	m.epoch++
	if m.hasActive {
		if active, ok := byTab[m.activeTab]; ok {
			m.cells = active.Clone()
		} else {
			m.cells = models.CellMap{}
		}
		m.loading = false
	}
	alog.Debugf(ctx, "SyncAllFromServer: ячеек %d, вкладок %d", len(cells), len(byTab))
	m.notify.Success(ctx, msgSyncedFromServer)
	return nil
}
