package grid

import (
	"context"
	"errors"
	"testing"
	"time"

	"exercise_grid_go/localstore"
	"exercise_grid_go/models"
	"exercise_grid_go/syncclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, store localstore.Store, remote *fakeRemote) (*Manager, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	m := NewManager(store, remote, WithNotifier(n))
	t.Cleanup(m.Wait)
	return m, n
}

func TestLoadTabsFallsBackToDefaults(t *testing.T) {
	remote := newFakeRemote()
	remote.setOffline(true)
	m, n := newTestManager(t, localstore.NewMemoryStore(), remote)

	require.NoError(t, m.LoadTabs(context.Background()))

	tabs := m.Tabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, "EXERCISES", tabs[0].Name)
	assert.Equal(t, "Images", tabs[1].Name)
	active, ok := m.ActiveTab()
	require.True(t, ok)
	assert.Equal(t, int64(1), active.ID)
	assert.Equal(t, 1, n.errorCount())
}

func TestLoadTabsFallsBackToBackup(t *testing.T) {
	for _, key := range []string{localstore.TabsBackupKey, localstore.LegacyTabsKey} {
		t.Run(key, func(t *testing.T) {
			store := localstore.NewMemoryStore()
			backup := []models.Tab{{ID: 9, Name: "B", Position: 1}, {ID: 8, Name: "A", Position: 0}}
			require.NoError(t, localstore.SetJSON(store, key, backup))

			remote := newFakeRemote()
			remote.setOffline(true)
			m, _ := newTestManager(t, store, remote)
			require.NoError(t, m.LoadTabs(context.Background()))

			tabs := m.Tabs()
			require.Len(t, tabs, 2)
			assert.Equal(t, "A", tabs[0].Name)
			active, _ := m.ActiveTab()
			assert.Equal(t, int64(8), active.ID)
		})
	}
}

func TestLoadTabsWritesBackup(t *testing.T) {
	store := localstore.NewMemoryStore()
	remote := newFakeRemote()
	remote.tabs = []models.Tab{{ID: 5, Name: "Grammar", Position: 0}}
	m, _ := newTestManager(t, store, remote)

	require.NoError(t, m.LoadTabs(context.Background()))

	var backup []models.Tab
	require.NoError(t, localstore.GetJSON(store, localstore.TabsBackupKey, &backup))
	assert.Equal(t, remote.tabs, backup)
}

func TestSelectTabRendersCacheBeforeNetwork(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	cached := models.NewCellMap([]models.Cell{{TabID: 1, RowIndex: 0, ColIndex: 0, Content: "cached"}})
	require.NoError(t, localstore.SetJSON(store, localstore.CellsKey(1), cached))

	remote := newFakeRemote()
	remote.cells[1] = []models.Cell{{TabID: 1, RowIndex: 0, ColIndex: 0, Content: "fresh"}}
	release := remote.gate(1)
	m, _ := newTestManager(t, store, remote)
	require.NoError(t, m.LoadTabs(ctx))

	require.NoError(t, m.SelectTab(ctx, 1))
	cell, ok := m.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, "cached", cell.Content)
	assert.False(t, m.Loading())

	close(release)
	m.Wait()
	cell, _ = m.Cell(0, 0)
	assert.Equal(t, "fresh", cell.Content)

	var stored models.CellMap
	require.NoError(t, localstore.GetJSON(store, localstore.CellsKey(1), &stored))
	assert.Equal(t, "fresh", stored["1-0-0"].Content)
}

func TestSelectTabWithoutCacheIsLoading(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	release := remote.gate(1)
	m, _ := newTestManager(t, localstore.NewMemoryStore(), remote)
	require.NoError(t, m.LoadTabs(ctx))

	require.NoError(t, m.SelectTab(ctx, 1))
	assert.True(t, m.Loading())

	close(release)
	m.Wait()
	assert.False(t, m.Loading())
}

func TestSelectImageTabSkipsCells(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	m, _ := newTestManager(t, localstore.NewMemoryStore(), remote)
	require.NoError(t, m.LoadTabs(ctx))

	require.NoError(t, m.SelectTab(ctx, 2))
	m.Wait()
	assert.Empty(t, m.Cells())
	assert.Zero(t, remote.fetchCells[2])
	assert.ErrorIs(t, m.SaveCell(ctx, 0, 0, "x"), ErrImageTab)
}

func TestSelectUnknownTab(t *testing.T) {
	m, _ := newTestManager(t, localstore.NewMemoryStore(), newFakeRemote())
	require.NoError(t, m.LoadTabs(context.Background()))
	assert.ErrorIs(t, m.SelectTab(context.Background(), 42), ErrUnknownTab)
}

func TestSaveCellSurvivesReloadOffline(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	remote := newFakeRemote()
	remote.setOffline(true)

	m, n := newTestManager(t, store, remote)
	require.NoError(t, m.Start(ctx))

	err := m.SaveCell(ctx, 0, 0, "X")
	require.Error(t, err)
	assert.ErrorIs(t, err, syncclient.ErrNetwork)
	assert.Contains(t, n.errors, msgSaveFailed)

	// Правка не откатывается.
	cell, ok := m.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, "X", cell.Content)

	// "Перезагрузка страницы": новый менеджер над тем же хранилищем.
	reloaded, _ := newTestManager(t, store, remote)
	require.NoError(t, reloaded.Start(ctx))
	cell, ok = reloaded.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, "X", cell.Content)
	assert.Equal(t, 1, reloaded.Outbox().Len())
}

func TestSaveCellOnline(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	m, n := newTestManager(t, localstore.NewMemoryStore(), remote)
	require.NoError(t, m.Start(ctx))

	require.NoError(t, m.SaveCell(ctx, 1, 2, "run"))
	require.NoError(t, m.SaveHeader(ctx, 1, 2, "Verbs"))

	saved := remote.savedCells()
	require.Len(t, saved, 2)
	assert.Equal(t, models.Cell{TabID: 1, RowIndex: 1, ColIndex: 2, Content: "run", Header: "Verbs"}, saved[1])
	assert.Equal(t, 0, m.Outbox().Len())
	assert.Contains(t, n.success, msgSaved)
}

func TestSaveCellAtOtherTab(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	remote := newFakeRemote()
	remote.tabs = append(remote.tabs, models.Tab{ID: 3, Name: "Extra", Position: 2})
	m, _ := newTestManager(t, store, remote)
	require.NoError(t, m.Start(ctx))

	require.NoError(t, m.SaveCellAt(ctx, models.Cell{TabID: 3, RowIndex: 4, ColIndex: 1, Content: "far"}))
	_, ok := m.Cell(4, 1)
	assert.False(t, ok)

	var stored models.CellMap
	require.NoError(t, localstore.GetJSON(store, localstore.CellsKey(3), &stored))
	assert.Equal(t, "far", stored["3-4-1"].Content)
}

func TestSupersededFetchDoesNotOverwriteActiveTab(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	remote := newFakeRemote()
	remote.tabs = []models.Tab{{ID: 1, Name: "One"}, {ID: 3, Name: "Three", Position: 1}}
	remote.cells[1] = []models.Cell{{TabID: 1, Content: "one"}}
	remote.cells[3] = []models.Cell{{TabID: 3, Content: "three"}}
	m, _ := newTestManager(t, store, remote)
	require.NoError(t, m.LoadTabs(ctx))

	release := remote.gate(1)
	require.NoError(t, m.SelectTab(ctx, 1))
	require.NoError(t, m.SelectTab(ctx, 3))
	close(release)
	m.Wait()

	active, _ := m.ActiveTab()
	assert.Equal(t, int64(3), active.ID)
	cell, ok := m.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, "three", cell.Content)

	// Устаревший ответ все равно обновил локальную копию своей вкладки.
	var stored models.CellMap
	require.NoError(t, localstore.GetJSON(store, localstore.CellsKey(1), &stored))
	assert.Equal(t, "one", stored["1-0-0"].Content)
}

func TestInFlightFetchKeepsAcknowledgedEdit(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	remote := newFakeRemote()
	remote.cells[1] = []models.Cell{{TabID: 1, RowIndex: 0, ColIndex: 0, Content: "old"}}
	m, _ := newTestManager(t, store, remote)
	require.NoError(t, m.LoadTabs(ctx))

	release := remote.gate(1)
	require.NoError(t, m.SelectTab(ctx, 1))
	require.Eventually(t, func() bool { return remote.fetchCount(1) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.SaveCell(ctx, 0, 0, "NEW"))
	require.Equal(t, 0, m.Outbox().Len())

	close(release)
	m.Wait()

	cell, ok := m.Cell(0, 0)
	require.True(t, ok)
	assert.Equal(t, "NEW", cell.Content)

	var stored models.CellMap
	require.NoError(t, localstore.GetJSON(store, localstore.CellsKey(1), &stored))
	assert.Equal(t, "NEW", stored["1-0-0"].Content)

	// Следующая загрузка уже не помнит правку и берет ответ сервера.
	require.NoError(t, m.SelectTab(ctx, 1))
	m.Wait()
	cell, _ = m.Cell(0, 0)
	assert.Equal(t, "NEW", cell.Content)
}

func TestRefreshKeepsPendingEditsAndDrainsOutbox(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	remote := newFakeRemote()
	remote.cells[1] = []models.Cell{{TabID: 1, RowIndex: 0, ColIndex: 0, Content: "server"}}
	m, _ := newTestManager(t, store, remote)
	require.NoError(t, m.Start(ctx))

	remote.setOffline(true)
	require.Error(t, m.SaveCell(ctx, 0, 0, "local"))
	require.Equal(t, 1, m.Outbox().Len())

	remote.setOffline(false)
	require.NoError(t, m.SelectTab(ctx, 1))
	m.Wait()

	cell, _ := m.Cell(0, 0)
	assert.Equal(t, "local", cell.Content)
	assert.Equal(t, 0, m.Outbox().Len())
	saved := remote.savedCells()
	require.NotEmpty(t, saved)
	assert.Equal(t, "local", saved[len(saved)-1].Content)
}

func TestRenameColumn(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	remote := newFakeRemote()
	m, _ := newTestManager(t, store, remote)
	require.NoError(t, m.Start(ctx))

	assert.Equal(t, "LESSON 3", m.ColumnLabel(2))
	require.NoError(t, m.RenameColumn(ctx, 2, "Phonics"))
	assert.Equal(t, "Phonics", m.ColumnLabel(2))

	var stored models.ColumnNames
	require.NoError(t, localstore.GetJSON(store, localstore.ColumnNamesKey, &stored))
	assert.Equal(t, "Phonics", stored.Label(1, 2))

	require.Len(t, remote.syncs, 1)
	assert.Empty(t, remote.syncs[0].Cells)
	assert.Equal(t, "Phonics", remote.syncs[0].ColumnNames.Label(1, 2))

	require.NoError(t, m.RenameColumn(ctx, 2, ""))
	assert.Equal(t, "LESSON 3", m.ColumnLabel(2))
}

func TestColumnsFallBackToLegacyKey(t *testing.T) {
	store := localstore.NewMemoryStore()
	require.NoError(t, localstore.SetJSON(store, localstore.LegacyColumnNamesKey, models.ColumnNames{"1": {"0": "Old"}}))
	remote := newFakeRemote()
	remote.setOffline(true)
	m, _ := newTestManager(t, store, remote)
	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, "Old", m.ColumnLabel(0))
}

func TestSyncRoundTrip(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.tabs = []models.Tab{{ID: 1, Name: "EXERCISES"}, {ID: 2, Name: "Картинки", Position: 1}, {ID: 4, Name: "More", Position: 2}}
	remote.cells[1] = []models.Cell{
		{TabID: 1, RowIndex: 3, ColIndex: 1, Content: "b"},
		{TabID: 1, RowIndex: 0, ColIndex: 5, Content: "a", Header: "h"},
	}
	remote.cells[4] = []models.Cell{{TabID: 4, RowIndex: 40, ColIndex: 20, Content: "out of bounds"}}
	remote.cells[2] = []models.Cell{{TabID: 2, Content: "image tab"}}
	remote.cells[77] = []models.Cell{{TabID: 77, Content: "unknown tab"}}
	remote.columns = models.ColumnNames{"1": {"5": "Five"}}

	m, _ := newTestManager(t, localstore.NewMemoryStore(), remote)
	require.NoError(t, m.LoadTabs(ctx))
	require.NoError(t, m.SyncAllFromServer(ctx))

	cell, ok := m.Cell(0, 5)
	require.True(t, ok)
	assert.Equal(t, "a", cell.Content)

	payload, err := m.SyncAllToServer(ctx)
	require.NoError(t, err)

	expected := append(append([]models.Cell(nil), remote.cells[1]...), remote.cells[4]...)
	assert.Equal(t, models.NewSyncAllRequest(expected, remote.columns), payload)
	require.Len(t, remote.syncs, 1)
	assert.Equal(t, payload, remote.syncs[0])
}

func TestSyncAllFromServerOverwritesStaleEntries(t *testing.T) {
	ctx := context.Background()
	store := localstore.NewMemoryStore()
	stale := models.NewCellMap([]models.Cell{{TabID: 1, RowIndex: 9, ColIndex: 9, Content: "stale"}})
	require.NoError(t, localstore.SetJSON(store, localstore.CellsKey(1), stale))

	remote := newFakeRemote()
	remote.cells[1] = []models.Cell{{TabID: 1, Content: "new"}}
	m, _ := newTestManager(t, store, remote)
	require.NoError(t, m.LoadTabs(ctx))
	require.NoError(t, m.SyncAllFromServer(ctx))

	var stored models.CellMap
	require.NoError(t, localstore.GetJSON(store, localstore.CellsKey(1), &stored))
	assert.Len(t, stored, 1)
	_, ok := stored["1-9-9"]
	assert.False(t, ok)
}

func TestSyncAllToServerAcksOutbox(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	m, _ := newTestManager(t, localstore.NewMemoryStore(), remote)
	require.NoError(t, m.Start(ctx))

	remote.setOffline(true)
	require.Error(t, m.SaveCell(ctx, 0, 0, "queued"))
	_, err := m.SyncAllToServer(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, m.Outbox().Len())

	remote.setOffline(false)
	payload, err := m.SyncAllToServer(ctx)
	require.NoError(t, err)
	require.Len(t, payload.Cells, 1)
	assert.Equal(t, "queued", payload.Cells[0].Content)
	assert.Equal(t, 0, m.Outbox().Len())
}

func TestSyncAllFromServerFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.cells[1] = []models.Cell{{TabID: 1, Content: "kept"}}
	m, n := newTestManager(t, localstore.NewMemoryStore(), remote)
	require.NoError(t, m.Start(ctx))

	remote.setOffline(true)
	err := m.SyncAllFromServer(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, syncclient.ErrNetwork))
	assert.Contains(t, n.errors, msgSyncFailed)

	cell, _ := m.Cell(0, 0)
	assert.Equal(t, "kept", cell.Content)
}

func TestVisibleRowsHonoursBounds(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.cells[1] = []models.Cell{
		{TabID: 1, RowIndex: 1, ColIndex: 1, Content: "in"},
		{TabID: 1, RowIndex: 5, ColIndex: 0, Content: "out"},
	}
	n := &recordingNotifier{}
	m := NewManager(localstore.NewMemoryStore(), remote, WithNotifier(n), WithBounds(Bounds{Rows: 3, Cols: 2}))
	require.NoError(t, m.Start(ctx))

	rows := m.VisibleRows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"", "in"}, rows[1])
	assert.Len(t, m.Cells(), 2)
}
