package grid

import (
	"context"
	"errors"
	"testing"

	"exercise_grid_go/localstore"
	"exercise_grid_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageURLIsMemoised(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	url := DataURL("image/png", []byte{1, 2, 3})
	remote.images[7] = models.Image{ID: 7, FileName: "cat.png", FileURL: &url}
	m, _ := newTestManager(t, localstore.NewMemoryStore(), remote)

	list, err := m.Images(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].FileURL)

	for i := 0; i < 3; i++ {
		got, err := m.ImageURL(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, url, got)
	}
	assert.Equal(t, 1, remote.fetchImages)

	m.ImageURLCache().Clear()
	_, err = m.ImageURL(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, remote.fetchImages)
}

func TestImageURLMissingData(t *testing.T) {
	remote := newFakeRemote()
	remote.images[3] = models.Image{ID: 3, FileName: "empty.png"}
	m, _ := newTestManager(t, localstore.NewMemoryStore(), remote)

	_, err := m.ImageURL(context.Background(), 3)
	assert.ErrorIs(t, err, ErrImageUnavailable)
	assert.Zero(t, m.ImageURLCache().Len())
}

func TestUploadImagesIsIndependentPerFile(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.failUpload["bad.png"] = true
	m, n := newTestManager(t, localstore.NewMemoryStore(), remote)

	files := []ImageUpload{
		{FileName: "a.png", DataURL: DataURL("image/png", []byte("a"))},
		{FileName: "bad.png", DataURL: DataURL("image/png", []byte("b"))},
		{FileName: "c.png", DataURL: DataURL("image/png", []byte("c"))},
	}
	report, err := m.UploadImages(ctx, files)
	require.Error(t, err)

	var partial *PartialUploadError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, 3, partial.Total)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, "bad.png", partial.Failed[0].FileName)

	require.Len(t, report.Uploaded, 2)
	assert.Equal(t, "a.png", report.Uploaded[0].FileName)
	assert.Equal(t, "c.png", report.Uploaded[1].FileName)
	assert.Equal(t, 2, m.ImageURLCache().Len())
	assert.Equal(t, 1, n.errorCount())
}

func TestDeleteImageForgetsURL(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	m, _ := newTestManager(t, localstore.NewMemoryStore(), remote)

	report, err := m.UploadImages(ctx, []ImageUpload{{FileName: "x.png", DataURL: "data:image/png;base64,AA=="}})
	require.NoError(t, err)
	id := report.Uploaded[0].ID
	_, ok := m.ImageURLCache().Get(id)
	require.True(t, ok)

	require.NoError(t, m.DeleteImage(ctx, id))
	_, ok = m.ImageURLCache().Get(id)
	assert.False(t, ok)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQID", DataURL("image/png", []byte{1, 2, 3}))

	raw, err := DecodeDataURL("data:image/png;base64,AQID")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, raw)

	_, err = DecodeDataURL("https://example.com/a.png")
	assert.ErrorIs(t, err, ErrImageUnavailable)
}
