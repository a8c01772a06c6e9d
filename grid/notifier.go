package grid

import (
	"context"

	"go.alis.build/alog"
)

// Тексты уведомлений пользователю.
const (
	msgTabsLoadFailed   = "Ошибка загрузки вкладок"
	msgCellsLoadFailed  = "Ошибка загрузки данных"
	msgSaved            = "Сохранено!"
	msgSaveFailed       = "Ошибка сохранения"
	msgSyncedToServer   = "Все данные отправлены на сервер"
	msgSyncedFromServer = "Данные загружены с сервера"
	msgSyncFailed       = "Ошибка синхронизации"
	msgUploaded         = "Картинки загружены"
	msgUploadFailed     = "Ошибка загрузки картинки"
	msgImageDeleted     = "Картинка удалена"
	msgImageFailed      = "Ошибка работы с картинкой"
	msgOffline          = "Нет связи с сервером, показаны сохраненные данные"
)

// Notifier показывает пользователю короткие уведомления (аналог toast).
// Ни одна ошибка удаленной операции не выходит за пределы уведомления.
type Notifier interface {
	Success(ctx context.Context, msg string)
	Info(ctx context.Context, msg string)
	Error(ctx context.Context, msg string, err error)
}

// LogNotifier пишет уведомления в журнал.
type LogNotifier struct{}

func (LogNotifier) Success(ctx context.Context, msg string) { alog.Infof(ctx, "%s", msg) }

func (LogNotifier) Info(ctx context.Context, msg string) { alog.Infof(ctx, "%s", msg) }

func (LogNotifier) Error(ctx context.Context, msg string, err error) {
	if err != nil {
		alog.Errorf(ctx, "%s: %v", msg, err)
		return
	}
	alog.Errorf(ctx, "%s", msg)
}
