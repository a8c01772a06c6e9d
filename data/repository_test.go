package data

import (
	"context"
	"testing"

	"exercise_grid_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := OpenRepository(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSeedDefaultTabsOnce(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.CreateTab(ctx, models.Tab{Name: "EXTRA", Position: 5})
	require.NoError(t, err)
	require.NoError(t, repo.SeedDefaultTabs(ctx))

	tabs, err := repo.GetTabs(ctx)
	require.NoError(t, err)
	require.Len(t, tabs, 3)
	assert.Equal(t, models.DefaultTabs(), tabs[:2])
	assert.Equal(t, id, tabs[2].ID)
}

func TestSchemaUpgradeAddsHeader(t *testing.T) {
	ctx := context.Background()
	legacy := `CREATE TABLE Cells (
		Id INTEGER PRIMARY KEY AUTOINCREMENT,
		TabId INTEGER NOT NULL,
		RowIndex INTEGER NOT NULL,
		ColIndex INTEGER NOT NULL,
		Content TEXT NOT NULL DEFAULT '',
		UpdatedAt DATETIME NOT NULL,
		UNIQUE (TabId, RowIndex, ColIndex)
	);`
	db, err := Open(ctx, MemoryPath, legacy)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, EnsureCellsSchemaUpgrade(ctx, db))
	require.NoError(t, EnsureCellsSchemaUpgrade(ctx, db), "повторный вызов ничего не меняет")

	ok, err := columnExists(ctx, db, "Cells", "Header")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSyncAllSkipsEmptyLabels(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	names := models.ColumnNames{"1": {"0": "Mon", "1": ""}}
	require.NoError(t, repo.SyncAll(ctx, models.SyncAllRequest{Action: models.ActionSyncAll, ColumnNames: names}))

	got, err := repo.GetColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ColumnNames{"1": {"0": "Mon"}}, got)

	// Без columnNames подписи не трогаются.
	require.NoError(t, repo.SyncAll(ctx, models.SyncAllRequest{Action: models.ActionSyncAll}))
	got, err = repo.GetColumnNames(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestImagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	a, err := repo.CreateImage(ctx, "a.png", "data:image/png;base64,AA==")
	require.NoError(t, err)
	b, err := repo.CreateImage(ctx, "b.png", "data:image/png;base64,AQ==")
	require.NoError(t, err)

	list, err := repo.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []int64{b.ID, a.ID}, []int64{list[0].ID, list[1].ID})

	missing, err := repo.GetImageByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	deleted, err := repo.DeleteImage(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.DeleteImage(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
