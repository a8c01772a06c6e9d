// Package grid держит состояние сетки активной вкладки и согласует его
// с локальной копией (localstore) и удаленным API.
//
// Состояние активной вкладки = локальная копия ⊕ последний успешный ответ
// сервера ⊕ неподтвержденные правки (очередь Outbox); при совпадении
// координат побеждает последняя запись.
package grid

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"exercise_grid_go/localstore"
	"exercise_grid_go/models"

	"go.alis.build/alog"
	"golang.org/x/sync/errgroup"
)

// Remote - удаленный API; его реализует *syncclient.Client.
type Remote interface {
	FetchTabs(ctx context.Context) ([]models.Tab, error)
	FetchCells(ctx context.Context, tabID int64) ([]models.Cell, error)
	FetchAllCells(ctx context.Context) ([]models.Cell, error)
	FetchColumnNames(ctx context.Context) (models.ColumnNames, error)
	SaveCell(ctx context.Context, cell models.Cell) error
	SyncAll(ctx context.Context, payload models.SyncAllRequest) error
	ListImages(ctx context.Context) ([]models.Image, error)
	FetchImage(ctx context.Context, id int64) (models.Image, error)
	UploadImage(ctx context.Context, fileName, dataURL string) (models.Image, error)
	DeleteImage(ctx context.Context, id int64) error
}

// Bounds - размер отображаемой сетки. Ячейки за границами хранятся, но не показываются.
type Bounds struct {
	Rows int
	Cols int
}

// DefaultBounds - размер сетки текущей версии.
var DefaultBounds = Bounds{Rows: 25, Cols: 15}

// Manager - состояние сетки. Все методы безопасны для конкурентного вызова.
type Manager struct {
	store     localstore.Store
	remote    Remote
	notify    Notifier
	outbox    *Outbox
	imageURLs *ImageURLCache
	bounds    Bounds

	mu        sync.Mutex
	tabs      []models.Tab
	activeTab int64
	hasActive bool
	cells     models.CellMap
	columns   models.ColumnNames
	loading   bool
	epoch     uint64

	// Правки, сделанные пока идет загрузка с сервера. Ответ, запрошенный до
	// правки, не должен ее откатить, даже если очередь уже пуста.
	editSeq  uint64
	fetching int
	recent   map[string]recentEdit

	wg sync.WaitGroup
}

type recentEdit struct {
	cell models.Cell
	seq  uint64
}

// Option настраивает Manager.
type Option func(*Manager)

func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notify = n } }

func WithBounds(b Bounds) Option { return func(m *Manager) { m.bounds = b } }

// WithImageURLCache подставляет общий кэш адресов картинок.
func WithImageURLCache(c *ImageURLCache) Option { return func(m *Manager) { m.imageURLs = c } }

// WithOutbox подставляет очередь (например, с другими задержками повтора).
func WithOutbox(o *Outbox) Option { return func(m *Manager) { m.outbox = o } }

// NewManager создает менеджер. Сеть не трогает; начальная загрузка - Start.
func NewManager(store localstore.Store, remote Remote, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		remote:  remote,
		notify:  LogNotifier{},
		bounds:  DefaultBounds,
		cells:   models.CellMap{},
		columns: models.ColumnNames{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.outbox == nil {
		m.outbox = NewOutbox(store, remote)
	}
	if m.imageURLs == nil {
		m.imageURLs = NewImageURLCache()
	}
	return m
}

// Outbox возвращает очередь неподтвержденных записей.
func (m *Manager) Outbox() *Outbox { return m.outbox }

// ImageURLCache возвращает кэш адресов картинок.
func (m *Manager) ImageURLCache() *ImageURLCache { return m.imageURLs }

// Wait ждет завершения фоновых обновлений.
func (m *Manager) Wait() { m.wg.Wait() }

// Start выполняет начальную загрузку: вкладки (затем ячейки первой вкладки)
// и подписи столбцов параллельно. Ошибки поглощаются запасными вариантами.
func (m *Manager) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := m.LoadTabs(gctx); err != nil {
			return err
		}
		tab, ok := m.ActiveTab()
		if !ok {
			return nil
		}
		epoch, refresh, err := m.selectTab(gctx, tab.ID)
		if err != nil || !refresh {
			return err
		}
		m.RefreshCells(gctx, tab.ID, epoch)
		return nil
	})
	g.Go(func() error {
		m.LoadColumns(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("Start: %w", err)
	}
	alog.Debugf(ctx, "Start: вкладок %d, очередь %d", len(m.Tabs()), m.outbox.Len())
	return nil
}

// LoadTabs загружает вкладки. При сбое берет tabs_backup, затем список по умолчанию.
// Ошибку возвращает только при сбое записи в локальное хранилище.
func (m *Manager) LoadTabs(ctx context.Context) error {
	tabs, err := m.remote.FetchTabs(ctx)
	if err == nil {
		sortTabs(tabs)
		m.mu.Lock()
		m.tabs = tabs
		m.selectFirstLocked()
		serr := localstore.SetJSON(m.store, localstore.TabsBackupKey, tabs)
		m.mu.Unlock()
		if serr != nil {
			return fmt.Errorf("LoadTabs: %w", serr)
		}
		m.drainOutbox(ctx)
		return nil
	}

	alog.Warnf(ctx, "LoadTabs: сервер недоступен: %v", err)
	m.notify.Error(ctx, msgTabsLoadFailed, err)

	var cached []models.Tab
	lerr := localstore.GetJSONFirst(m.store, &cached, localstore.TabsBackupKey, localstore.LegacyTabsKey)
	if lerr != nil || len(cached) == 0 {
		if lerr != nil && !errors.Is(lerr, localstore.ErrEmptyCache) {
			alog.Warnf(ctx, "LoadTabs: локальная копия не читается: %v", lerr)
		}
		cached = models.DefaultTabs()
	} else {
		m.notify.Info(ctx, msgOffline)
	}
	sortTabs(cached)
	m.mu.Lock()
	m.tabs = cached
	m.selectFirstLocked()
	m.mu.Unlock()
	return nil
}

func (m *Manager) selectFirstLocked() {
	if !m.hasActive && len(m.tabs) > 0 {
		m.activeTab = m.tabs[0].ID
		m.hasActive = true
	}
}

func sortTabs(tabs []models.Tab) {
	sort.SliceStable(tabs, func(i, j int) bool { return tabs[i].Position < tabs[j].Position })
}

// LoadColumns загружает подписи столбцов, при сбое - из локальной копии.
func (m *Manager) LoadColumns(ctx context.Context) {
	columns, err := m.remote.FetchColumnNames(ctx)
	if err == nil {
		if columns == nil {
			columns = models.ColumnNames{}
		}
		m.mu.Lock()
		m.columns = columns
		if serr := localstore.SetJSON(m.store, localstore.ColumnNamesKey, columns); serr != nil {
			alog.Warnf(ctx, "LoadColumns: %v", serr)
		}
		m.mu.Unlock()
		return
	}

	alog.Warnf(ctx, "LoadColumns: сервер недоступен: %v", err)
	var cached models.ColumnNames
	if lerr := localstore.GetJSONFirst(m.store, &cached, localstore.ColumnNamesKey, localstore.LegacyColumnNamesKey); lerr != nil || cached == nil {
		cached = models.ColumnNames{}
	}
	m.mu.Lock()
	m.columns = cached
	m.mu.Unlock()
}

// SelectTab делает вкладку активной. Локальная копия ячеек показывается сразу,
// обновление с сервера идет в фоне (Wait дожидается его).
func (m *Manager) SelectTab(ctx context.Context, tabID int64) error {
	epoch, refresh, err := m.selectTab(ctx, tabID)
	if err != nil || !refresh {
		return err
	}
	bg := context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.RefreshCells(bg, tabID, epoch)
	}()
	return nil
}

// selectTab переключает вкладку синхронно и возвращает эпоху запроса обновления.
func (m *Manager) selectTab(ctx context.Context, tabID int64) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab, ok := m.findTabLocked(tabID)
	if !ok {
		return 0, false, fmt.Errorf("SelectTab: %d: %w", tabID, ErrUnknownTab)
	}
	m.epoch++
	m.activeTab = tabID
	m.hasActive = true

	if tab.IsImageTab() {
		m.cells = models.CellMap{}
		m.loading = false
		return m.epoch, false, nil
	}

	var cached models.CellMap
	err := localstore.GetJSON(m.store, localstore.CellsKey(tabID), &cached)
	switch {
	case err == nil:
		if cached == nil {
			cached = models.CellMap{}
		}
		m.cells = cached
		m.loading = false
	default:
		if !errors.Is(err, localstore.ErrEmptyCache) {
			alog.Warnf(ctx, "SelectTab: локальная копия вкладки %d не читается: %v", tabID, err)
		}
		m.cells = models.CellMap{}
		m.loading = true
	}
	return m.epoch, true, nil
}

func (m *Manager) findTabLocked(tabID int64) (models.Tab, bool) {
	for _, t := range m.tabs {
		if t.ID == tabID {
			return t, true
		}
	}
	return models.Tab{}, false
}

// RefreshCells запрашивает ячейки вкладки. Ответ всегда записывается в
// локальную копию своей вкладки, но в память попадает, только если epoch
// все еще текущая (пользователь не ушел на другую вкладку).
func (m *Manager) RefreshCells(ctx context.Context, tabID int64, epoch uint64) {
	m.mu.Lock()
	since := m.beginFetchLocked()
	m.mu.Unlock()

	cells, err := m.remote.FetchCells(ctx, tabID)
	if err != nil {
		alog.Warnf(ctx, "RefreshCells: вкладка %d: %v", tabID, err)
		m.mu.Lock()
		m.endFetchLocked()
		current := m.epoch == epoch
		empty := current && m.loading
		if current {
			m.loading = false
		}
		m.mu.Unlock()
		if empty {
			m.notify.Error(ctx, msgCellsLoadFailed, err)
		}
		return
	}

	fresh := models.NewCellMap(cells)
	if err := m.outbox.Overlay(tabID, fresh); err != nil {
		alog.Warnf(ctx, "RefreshCells: очередь не читается: %v", err)
	}

	m.mu.Lock()
	m.replayEditsLocked(since, tabID, fresh)
	m.endFetchLocked()
	if err := localstore.SetJSON(m.store, localstore.CellsKey(tabID), fresh); err != nil {
		alog.Errorf(ctx, "RefreshCells: %v", err)
	}
	if m.epoch == epoch {
		m.cells = fresh.Clone()
		m.loading = false
	} else {
		alog.Debugf(ctx, "RefreshCells: ответ для вкладки %d устарел (эпоха %d, текущая %d)", tabID, epoch, m.epoch)
	}
	m.mu.Unlock()

	m.drainOutbox(ctx)
}

// beginFetchLocked отмечает начало загрузки и возвращает номер последней правки.
func (m *Manager) beginFetchLocked() uint64 {
	m.fetching++
	return m.editSeq
}

func (m *Manager) endFetchLocked() {
	m.fetching--
	if m.fetching == 0 {
		m.recent = nil
	}
}

// replayEditsLocked накладывает на ответ сервера правки вкладки, сделанные
// после начала загрузки.
func (m *Manager) replayEditsLocked(since uint64, tabID int64, cells models.CellMap) {
	for _, e := range m.recent {
		if e.seq > since && e.cell.TabID == tabID {
			cells.Put(e.cell)
		}
	}
}

// SaveCell сохраняет текст ячейки активной вкладки.
func (m *Manager) SaveCell(ctx context.Context, row, col int, content string) error {
	return m.edit(ctx, row, col, func(c *models.Cell) { c.Content = content })
}

// SaveHeader сохраняет заголовок ячейки активной вкладки.
func (m *Manager) SaveHeader(ctx context.Context, row, col int, header string) error {
	return m.edit(ctx, row, col, func(c *models.Cell) { c.Header = header })
}

func (m *Manager) edit(ctx context.Context, row, col int, apply func(*models.Cell)) error {
	m.mu.Lock()
	if !m.hasActive {
		m.mu.Unlock()
		return ErrNoActiveTab
	}
	tabID := m.activeTab
	m.mu.Unlock()

	cell, err := m.applyLocal(tabID, row, col, apply)
	if err != nil {
		return err
	}
	return m.push(ctx, cell)
}

// SaveCellAt записывает полную ячейку любой вкладки (содержимое и заголовок).
func (m *Manager) SaveCellAt(ctx context.Context, cell models.Cell) error {
	saved, err := m.applyLocal(cell.TabID, cell.RowIndex, cell.ColIndex, func(c *models.Cell) {
		c.Content = cell.Content
		c.Header = cell.Header
	})
	if err != nil {
		return err
	}
	return m.push(ctx, saved)
}

// applyLocal меняет ячейку в памяти (если вкладка активна) и в локальной копии.
func (m *Manager) applyLocal(tabID int64, row, col int, apply func(*models.Cell)) (models.Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tab, ok := m.findTabLocked(tabID); ok && tab.IsImageTab() {
		return models.Cell{}, fmt.Errorf("SaveCell: вкладка %d: %w", tabID, ErrImageTab)
	}

	var target models.CellMap
	if m.hasActive && m.activeTab == tabID {
		target = m.cells
	} else {
		if err := localstore.GetJSON(m.store, localstore.CellsKey(tabID), &target); err != nil || target == nil {
			target = models.CellMap{}
		}
	}

	cell, _ := target.Get(tabID, row, col)
	cell.TabID, cell.RowIndex, cell.ColIndex = tabID, row, col
	apply(&cell)
	target.Put(cell)

	m.editSeq++
	if m.fetching > 0 {
		if m.recent == nil {
			m.recent = make(map[string]recentEdit)
		}
		m.recent[cell.Key().String()] = recentEdit{cell: cell, seq: m.editSeq}
	}

	if err := localstore.SetJSON(m.store, localstore.CellsKey(tabID), target); err != nil {
		return models.Cell{}, fmt.Errorf("SaveCell: %w", err)
	}
	return cell, nil
}

// push отправляет ячейку на сервер. Правка сначала попадает в очередь и
// остается в ней при сбое; локальное состояние не откатывается.
func (m *Manager) push(ctx context.Context, cell models.Cell) error {
	id, err := m.outbox.Enqueue(cell)
	if err != nil {
		alog.Errorf(ctx, "SaveCell: очередь: %v", err)
	}
	if err := m.remote.SaveCell(ctx, cell); err != nil {
		if id != "" {
			if ferr := m.outbox.Fail(id, err); ferr != nil {
				alog.Warnf(ctx, "SaveCell: очередь: %v", ferr)
			}
		}
		m.notify.Error(ctx, msgSaveFailed, err)
		return fmt.Errorf("SaveCell: %s: %w", cell.Key(), err)
	}
	if id != "" {
		if err := m.outbox.Ack(id); err != nil {
			alog.Warnf(ctx, "SaveCell: очередь: %v", err)
		}
	}
	m.notify.Success(ctx, msgSaved)
	m.drainOutbox(ctx)
	return nil
}

// drainOutbox досылает накопленные правки после успешного обращения к серверу.
func (m *Manager) drainOutbox(ctx context.Context) {
	if m.outbox.Len() == 0 {
		return
	}
	if _, err := m.outbox.Drain(ctx); err != nil {
		alog.Debugf(ctx, "drainOutbox: %v", err)
	}
}

// RenameColumn задает подпись столбца активной вкладки; пустая подпись
// возвращает подпись по умолчанию. На сервер уходит sync_all без ячеек.
func (m *Manager) RenameColumn(ctx context.Context, col int, label string) error {
	m.mu.Lock()
	if !m.hasActive {
		m.mu.Unlock()
		return ErrNoActiveTab
	}
	m.columns.Set(m.activeTab, col, label)
	columns := m.columns.Clone()
	err := localstore.SetJSON(m.store, localstore.ColumnNamesKey, columns)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("RenameColumn: %w", err)
	}

	if err := m.remote.SyncAll(ctx, models.NewSyncAllRequest(nil, columns)); err != nil {
		m.notify.Error(ctx, msgSaveFailed, err)
		return fmt.Errorf("RenameColumn: %w", err)
	}
	m.notify.Success(ctx, msgSaved)
	return nil
}

// ColumnLabel возвращает подпись столбца активной вкладки.
func (m *Manager) ColumnLabel(col int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.columns.Label(m.activeTab, col)
}

// Tabs возвращает копию списка вкладок.
func (m *Manager) Tabs() []models.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Tab(nil), m.tabs...)
}

// ActiveTab возвращает активную вкладку.
func (m *Manager) ActiveTab() (models.Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasActive {
		return models.Tab{}, false
	}
	if tab, ok := m.findTabLocked(m.activeTab); ok {
		return tab, true
	}
	return models.Tab{ID: m.activeTab}, true
}

// Cells возвращает копию ячеек активной вкладки.
func (m *Manager) Cells() models.CellMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells.Clone()
}

// Cell возвращает ячейку активной вкладки.
func (m *Manager) Cell(row, col int) (models.Cell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells.Get(m.activeTab, row, col)
}

// Loading сообщает, что активная вкладка ждет первого ответа сервера.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Manager) Bounds() Bounds { return m.bounds }

// Columns возвращает копию всех подписей столбцов.
func (m *Manager) Columns() models.ColumnNames {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.columns.Clone()
}

// VisibleRows возвращает содержимое ячеек в пределах Bounds; пустая строка - нет ячейки.
func (m *Manager) VisibleRows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([][]string, m.bounds.Rows)
	for r := range rows {
		rows[r] = make([]string, m.bounds.Cols)
		for c := range rows[r] {
			if cell, ok := m.cells.Get(m.activeTab, r, c); ok {
				rows[r][c] = cell.Content
			}
		}
	}
	return rows
}
