package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"exercise_grid_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Endpoints{
		Tabs:   srv.URL + "/tabs",
		Cells:  srv.URL + "/cells",
		Images: srv.URL + "/images",
	}, opts...)
}

func TestFetchTabs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tabs", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		json.NewEncoder(w).Encode(models.TabsResponse{Tabs: models.DefaultTabs()})
	})

	tabs, err := c.FetchTabs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTabs(), tabs)
}

func TestFetchCellsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("tab_id") == "7":
			json.NewEncoder(w).Encode(models.CellsResponse{Cells: []models.Cell{{TabID: 7, Content: "a"}}})
		case r.URL.Query().Get("action") == models.ActionGetColumns:
			json.NewEncoder(w).Encode(models.ColumnsResponse{ColumnNames: models.ColumnNames{"7": {"0": "Intro"}}})
		default:
			json.NewEncoder(w).Encode(models.CellsResponse{Cells: []models.Cell{{TabID: 1}, {TabID: 7}}})
		}
	})
	ctx := context.Background()

	cells, err := c.FetchCells(ctx, 7)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "a", cells[0].Content)

	all, err := c.FetchAllCells(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cols, err := c.FetchColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Intro", cols.Label(7, 0))
}

func TestSaveCellPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}, WithToken("secret"))

	err := c.SaveCell(context.Background(), models.Cell{TabID: 1, RowIndex: 0, ColIndex: 0, Content: "X", Header: "H"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), got["tab_id"])
	assert.Equal(t, float64(0), got["row_index"])
	assert.Equal(t, float64(0), got["col_index"])
	assert.Equal(t, "X", got["content"])
	assert.Equal(t, "H", got["header"])
}

func TestSyncAllSetsAction(t *testing.T) {
	var got models.SyncAllRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	})
	err := c.SyncAll(context.Background(), models.SyncAllRequest{Cells: []models.Cell{}})
	require.NoError(t, err)
	assert.Equal(t, models.ActionSyncAll, got.Action)
}

func TestNonSuccessStatusIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "db down"})
	})

	err := c.SaveCell(context.Background(), models.Cell{TabID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Contains(t, err.Error(), "db down")
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Endpoints{Tabs: url + "/tabs"})
	_, err := c.FetchTabs(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, 0, ne.StatusCode)
}

func TestImages(t *testing.T) {
	url := "data:image/png;base64,AAAA"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Query().Get("id") == "5":
			json.NewEncoder(w).Encode(models.ImageResponse{Image: models.Image{ID: 5, FileURL: &url}})
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(models.ImagesResponse{Images: []models.Image{{ID: 5, FileName: "a.png"}}})
		case r.Method == http.MethodPost:
			var req models.ImageUploadRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(models.ImageResponse{Image: models.Image{ID: 6, FileName: req.FileName, FileURL: &req.FileData}})
		case r.Method == http.MethodDelete:
			assert.Equal(t, "5", r.URL.Query().Get("id"))
		}
	})
	ctx := context.Background()

	list, err := c.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].FileURL)

	img, err := c.FetchImage(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, img.FileURL)
	assert.Equal(t, url, *img.FileURL)

	up, err := c.UploadImage(ctx, "b.png", url)
	require.NoError(t, err)
	assert.Equal(t, int64(6), up.ID)

	assert.NoError(t, c.DeleteImage(ctx, 5))
}
