package grid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoActiveTab - операция требует выбранной вкладки.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrImageTab - на вкладке-галерее нет ячеек.
	ErrImageTab = errors.New("tab is an image gallery")
	// ErrUnknownTab - вкладки с таким id нет в списке.
	ErrUnknownTab = errors.New("unknown tab")
	// ErrImageUnavailable - сервер не вернул данные картинки.
	ErrImageUnavailable = errors.New("image data unavailable")
)

// UploadFailure - неудачная загрузка одного файла.
type UploadFailure struct {
	FileName string
	Err      error
}

// PartialUploadError возвращается, если часть файлов не загрузилась.
// Остальные файлы при этом загружены.
type PartialUploadError struct {
	Total  int
	Failed []UploadFailure
}

func (e *PartialUploadError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.FileName)
	}
	return fmt.Sprintf("uploaded %d of %d files, failed: %s", e.Total-len(e.Failed), e.Total, strings.Join(names, ", "))
}

func (e *PartialUploadError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}
