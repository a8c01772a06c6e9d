package grid

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"exercise_grid_go/localstore"
	"exercise_grid_go/models"

	"github.com/google/uuid"
	"go.alis.build/alog"
)

const (
	defaultRetryBase = time.Second
	defaultRetryMax  = 5 * time.Minute
)

// PendingWrite - неподтвержденная сервером запись ячейки.
type PendingWrite struct {
	ID          string      `json:"id"`
	Cell        models.Cell `json:"cell"`
	Attempts    int         `json:"attempts"`
	QueuedAt    time.Time   `json:"queued_at"`
	NextAttempt time.Time   `json:"next_attempt"`
	LastError   string      `json:"last_error,omitempty"`
}

// CellSaver - часть удаленного API, нужная очереди.
type CellSaver interface {
	SaveCell(ctx context.Context, cell models.Cell) error
}

// Outbox - постоянная очередь неподтвержденных записей в localstore
// (ключ pending_writes). На одну координату хранится только последняя запись.
type Outbox struct {
	mu     sync.Mutex
	store  localstore.Store
	remote CellSaver
	now    func() time.Time
	base   time.Duration
	max    time.Duration
}

// NewOutbox создает очередь поверх хранилища.
func NewOutbox(store localstore.Store, remote CellSaver) *Outbox {
	return &Outbox{
		store:  store,
		remote: remote,
		now:    time.Now,
		base:   defaultRetryBase,
		max:    defaultRetryMax,
	}
}

func (o *Outbox) load() ([]PendingWrite, error) {
	var pending []PendingWrite
	err := localstore.GetJSON(o.store, localstore.PendingWritesKey, &pending)
	if errors.Is(err, localstore.ErrEmptyCache) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Outbox.load: %w", err)
	}
	return pending, nil
}

func (o *Outbox) save(pending []PendingWrite) error {
	if len(pending) == 0 {
		return o.store.Remove(localstore.PendingWritesKey)
	}
	if err := localstore.SetJSON(o.store, localstore.PendingWritesKey, pending); err != nil {
		return fmt.Errorf("Outbox.save: %w", err)
	}
	return nil
}

// Enqueue ставит запись в очередь, заменяя прежнюю запись той же координаты.
func (o *Outbox) Enqueue(cell models.Cell) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending, err := o.load()
	if err != nil {
		return "", err
	}
	now := o.now()
	entry := PendingWrite{ID: uuid.NewString(), Cell: cell, QueuedAt: now, NextAttempt: now}
	key := cell.Key()
	replaced := false
	for i := range pending {
		if pending[i].Cell.Key() == key {
			pending[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		pending = append(pending, entry)
	}
	if err := o.save(pending); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Ack удаляет подтвержденные записи. Если координату успели перезаписать,
// новая запись остается в очереди.
func (o *Outbox) Ack(ids ...string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending, err := o.load()
	if err != nil {
		return err
	}
	acked := make(map[string]bool, len(ids))
	for _, id := range ids {
		acked[id] = true
	}
	kept := pending[:0]
	for _, p := range pending {
		if !acked[p.ID] {
			kept = append(kept, p)
		}
	}
	return o.save(kept)
}

// Fail отмечает неудачную попытку и откладывает следующую.
func (o *Outbox) Fail(id string, cause error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending, err := o.load()
	if err != nil {
		return err
	}
	for i := range pending {
		if pending[i].ID != id {
			continue
		}
		pending[i].Attempts++
		pending[i].NextAttempt = o.now().Add(o.backoff(pending[i].Attempts))
		if cause != nil {
			pending[i].LastError = cause.Error()
		}
	}
	return o.save(pending)
}

// backoff: base * 2^(n-1) + jitter/2, не больше max.
func (o *Outbox) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	sleep := o.base
	for i := 1; i < attempts && sleep < o.max; i++ {
		sleep *= 2
	}
	if sleep > o.max {
		sleep = o.max
	}
	jitter := time.Duration(rand.Int63n(int64(sleep)))
	return sleep + jitter/2
}

// Pending возвращает копию очереди.
func (o *Outbox) Pending() ([]PendingWrite, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.load()
}

// Len - число записей в очереди; ошибка чтения считается пустой очередью.
func (o *Outbox) Len() int {
	pending, err := o.Pending()
	if err != nil {
		return 0
	}
	return len(pending)
}

// Overlay накладывает неподтвержденные записи вкладки на cells.
func (o *Outbox) Overlay(tabID int64, cells models.CellMap) error {
	pending, err := o.Pending()
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.Cell.TabID == tabID {
			cells.Put(p.Cell)
		}
	}
	return nil
}

// Flush отправляет записи, срок повтора которых наступил.
func (o *Outbox) Flush(ctx context.Context) (int, error) {
	return o.flush(ctx, false)
}

// Drain отправляет все записи без учета задержки (связь восстановлена).
func (o *Outbox) Drain(ctx context.Context) (int, error) {
	return o.flush(ctx, true)
}

// flush останавливается на первой ошибке: сеть, скорее всего, недоступна.
func (o *Outbox) flush(ctx context.Context, force bool) (int, error) {
	pending, err := o.Pending()
	if err != nil {
		return 0, err
	}
	now := o.now()
	sent := 0
	for _, p := range pending {
		if !force && p.NextAttempt.After(now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := o.remote.SaveCell(ctx, p.Cell); err != nil {
			if ferr := o.Fail(p.ID, err); ferr != nil {
				alog.Warnf(ctx, "Outbox: не удалось обновить запись %s: %v", p.ID, ferr)
			}
			return sent, fmt.Errorf("Outbox.Flush: ячейка %s: %w", p.Cell.Key(), err)
		}
		if err := o.Ack(p.ID); err != nil {
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		alog.Debugf(ctx, "Outbox: отправлено записей: %d", sent)
	}
	return sent, nil
}

// Run периодически вызывает Flush до отмены ctx.
func (o *Outbox) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("Outbox.Run: интервал должен быть положительным, получено %s", every)
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := o.Flush(ctx); err != nil && ctx.Err() == nil {
				alog.Debugf(ctx, "Outbox: повтор отложен: %v", err)
			}
		}
	}
}
