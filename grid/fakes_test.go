package grid

import (
	"context"
	"errors"
	"sync"

	"exercise_grid_go/models"
	"exercise_grid_go/syncclient"
)

var _ Remote = (*syncclient.Client)(nil)

var errOffline = &syncclient.NetworkError{Op: "fake", Err: errors.New("connection refused")}

// fakeRemote - удаленный API в памяти.
type fakeRemote struct {
	mu      sync.Mutex
	offline bool

	tabs    []models.Tab
	cells   map[int64][]models.Cell
	columns models.ColumnNames
	images  map[int64]models.Image
	nextID  int64

	gates      map[int64]chan struct{}
	failUpload map[string]bool

	saved       []models.Cell
	syncs       []models.SyncAllRequest
	fetchCells  map[int64]int
	fetchImages int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tabs:       models.DefaultTabs(),
		cells:      map[int64][]models.Cell{},
		columns:    models.ColumnNames{},
		images:     map[int64]models.Image{},
		nextID:     100,
		gates:      map[int64]chan struct{}{},
		failUpload: map[string]bool{},
		fetchCells: map[int64]int{},
	}
}

func (f *fakeRemote) setOffline(v bool) {
	f.mu.Lock()
	f.offline = v
	f.mu.Unlock()
}

func (f *fakeRemote) gate(tabID int64) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[tabID] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeRemote) savedCells() []models.Cell {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Cell(nil), f.saved...)
}

func (f *fakeRemote) FetchTabs(ctx context.Context) ([]models.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	return append([]models.Tab(nil), f.tabs...), nil
}

// FetchCells снимает ответ в момент запроса; gate только задерживает его доставку.
func (f *fakeRemote) FetchCells(ctx context.Context, tabID int64) ([]models.Cell, error) {
	f.mu.Lock()
	gate := f.gates[tabID]
	f.fetchCells[tabID]++
	snapshot := append([]models.Cell(nil), f.cells[tabID]...)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	return snapshot, nil
}

func (f *fakeRemote) fetchCount(tabID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCells[tabID]
}

func (f *fakeRemote) FetchAllCells(ctx context.Context) ([]models.Cell, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	var all []models.Cell
	for _, cells := range f.cells {
		all = append(all, cells...)
	}
	return all, nil
}

func (f *fakeRemote) FetchColumnNames(ctx context.Context) (models.ColumnNames, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	return f.columns.Clone(), nil
}

func (f *fakeRemote) SaveCell(ctx context.Context, cell models.Cell) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return errOffline
	}
	f.saved = append(f.saved, cell)
	cells := f.cells[cell.TabID]
	for i := range cells {
		if cells[i].Key() == cell.Key() {
			cells[i] = cell
			return nil
		}
	}
	f.cells[cell.TabID] = append(cells, cell)
	return nil
}

func (f *fakeRemote) SyncAll(ctx context.Context, payload models.SyncAllRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return errOffline
	}
	f.syncs = append(f.syncs, payload)
	return nil
}

func (f *fakeRemote) ListImages(ctx context.Context) ([]models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	var out []models.Image
	for _, img := range f.images {
		img.FileURL = nil
		out = append(out, img)
	}
	return out, nil
}

func (f *fakeRemote) FetchImage(ctx context.Context, id int64) (models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchImages++
	if f.offline {
		return models.Image{}, errOffline
	}
	img, ok := f.images[id]
	if !ok {
		return models.Image{}, &syncclient.NetworkError{Op: "FetchImage", StatusCode: 404}
	}
	return img, nil
}

func (f *fakeRemote) UploadImage(ctx context.Context, fileName, dataURL string) (models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline || f.failUpload[fileName] {
		return models.Image{}, errOffline
	}
	f.nextID++
	img := models.Image{ID: f.nextID, FileName: fileName, FileURL: &dataURL}
	f.images[img.ID] = img
	return img, nil
}

func (f *fakeRemote) DeleteImage(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return errOffline
	}
	delete(f.images, id)
	return nil
}

// recordingNotifier запоминает уведомления.
type recordingNotifier struct {
	mu      sync.Mutex
	success []string
	info    []string
	errors  []string
}

func (n *recordingNotifier) Success(ctx context.Context, msg string) {
	n.mu.Lock()
	n.success = append(n.success, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Info(ctx context.Context, msg string) {
	n.mu.Lock()
	n.info = append(n.info, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Error(ctx context.Context, msg string, err error) {
	n.mu.Lock()
	n.errors = append(n.errors, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}
