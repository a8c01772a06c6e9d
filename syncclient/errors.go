package syncclient

import (
	"errors"
	"fmt"
)

// ErrNetwork - общий признак сбоя удаленной операции: запрос не ушел,
// соединение оборвалось или сервер ответил не 2xx.
var ErrNetwork = errors.New("network failure")

// NetworkError описывает сбой конкретной операции.
type NetworkError struct {
	Op         string
	StatusCode int // 0, если ответа не было
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": network failure"
	}
}

func (e *NetworkError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Err}
}

// IsStatus сообщает, что err - ответ сервера с указанным кодом.
func IsStatus(err error, code int) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.StatusCode == code
}
